package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

type actionRepository struct {
	mu      sync.RWMutex
	actions map[types.ActionID]*model.Action
}

func newActionRepository() *actionRepository {
	return &actionRepository{
		actions: make(map[types.ActionID]*model.Action),
	}
}

// copyAction creates a deep copy of an action
func copyAction(a *model.Action) *model.Action {
	payload := make(map[string]any, len(a.Payload))
	for k, v := range a.Payload {
		payload[k] = v
	}

	return &model.Action{
		ID:         a.ID,
		ActionType: a.ActionType,
		SiteID:     a.SiteID,
		OwnerToken: a.OwnerToken,
		Status:     a.Status,
		Payload:    payload,
		LastError:  a.LastError,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func (r *actionRepository) Create(ctx context.Context, action *model.Action) (*model.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[action.ID]; exists {
		return nil, goerr.Wrap(ErrDuplicateKey, "action already exists", goerr.V("id", action.ID))
	}

	now := time.Now().UTC()
	created := copyAction(action)
	created.CreatedAt = now
	created.UpdatedAt = now

	r.actions[created.ID] = created
	return copyAction(created), nil
}

func (r *actionRepository) Get(ctx context.Context, id types.ActionID) (*model.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, exists := r.actions[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
	}

	return copyAction(action), nil
}

func (r *actionRepository) List(ctx context.Context, siteID types.SiteID) ([]*model.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]*model.Action, 0)
	for _, action := range r.actions {
		if action.SiteID == siteID {
			actions = append(actions, copyAction(action))
		}
	}

	return actions, nil
}

func (r *actionRepository) UpdateStatus(ctx context.Context, id types.ActionID, status types.ActionStatus, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	action, exists := r.actions[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
	}

	action.Status = status
	action.LastError = lastError
	action.UpdatedAt = time.Now().UTC()
	return nil
}
