package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sitefix-lab/sitefix/pkg/domain/model"
	"github.com/sitefix-lab/sitefix/pkg/domain/types"
)

type patchRepository struct {
	mu      sync.RWMutex
	patches map[types.PatchID]*model.Patch
}

func newPatchRepository() *patchRepository {
	return &patchRepository{
		patches: make(map[types.PatchID]*model.Patch),
	}
}

func copyPatch(p *model.Patch) *model.Patch {
	copied := *p
	return &copied
}

func (r *patchRepository) Create(ctx context.Context, patch *model.Patch) (*model.Patch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.patches[patch.ID]; exists {
		return nil, goerr.Wrap(ErrDuplicateKey, "patch already exists", goerr.V("id", patch.ID))
	}

	now := time.Now().UTC()
	created := copyPatch(patch)
	created.CreatedAt = now
	created.UpdatedAt = now
	if created.VerificationStatus == "" {
		created.VerificationStatus = types.VerificationStatusUnverified
	}

	r.patches[created.ID] = created
	return copyPatch(created), nil
}

func (r *patchRepository) Get(ctx context.Context, id types.PatchID) (*model.Patch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patch, exists := r.patches[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "patch not found", goerr.V("id", id))
	}

	return copyPatch(patch), nil
}

func (r *patchRepository) ListByRun(ctx context.Context, runID types.RunID) ([]*model.Patch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patches := make([]*model.Patch, 0)
	for _, patch := range r.patches {
		if patch.RunID == runID {
			patches = append(patches, copyPatch(patch))
		}
	}

	return patches, nil
}

func (r *patchRepository) UpdateVerification(ctx context.Context, id types.PatchID, status types.VerificationStatus, details string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	patch, exists := r.patches[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "patch not found", goerr.V("id", id))
	}

	patch.VerificationStatus = status
	patch.VerificationDetails = details
	patch.UpdatedAt = time.Now().UTC()
	return nil
}
