package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

type eventRepository struct {
	mu     sync.RWMutex
	events []*model.Event
}

func newEventRepository() *eventRepository {
	return &eventRepository{}
}

func copyEvent(e *model.Event) *model.Event {
	data := make(map[string]any, len(e.Data))
	for k, v := range e.Data {
		data[k] = v
	}

	copied := *e
	copied.Data = data
	return &copied
}

func (r *eventRepository) Append(ctx context.Context, event *model.Event) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyEvent(event)
	created.CreatedAt = time.Now().UTC()

	r.events = append(r.events, created)
	return copyEvent(created), nil
}

func (r *eventRepository) ListByAction(ctx context.Context, actionID types.ActionID) ([]*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*model.Event, 0)
	for _, event := range r.events {
		if event.ActionID == actionID {
			events = append(events, copyEvent(event))
		}
	}

	return events, nil
}
