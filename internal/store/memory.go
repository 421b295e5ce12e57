package store

import (
	"context"
	"sync"
	"time"

	"goserveph/internal/utils"
	"goserveph/pkg/types"
)

// MemoryApplicationRepository backs development runs without a database.
// Callers always receive copies.
type MemoryApplicationRepository struct {
	mu    sync.RWMutex
	order []string
	apps  map[string]*types.Application
	now   func() time.Time
}

func NewMemoryApplicationRepository() *MemoryApplicationRepository {
	return &MemoryApplicationRepository{
		apps: make(map[string]*types.Application),
		now:  time.Now,
	}
}

func (r *MemoryApplicationRepository) Application(_ context.Context, id string) (*types.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.apps[id]
	if !ok {
		return nil, types.ErrApplicationNotFound
	}
	return cloneApplication(app), nil
}

func (r *MemoryApplicationRepository) Applications(_ context.Context, pt types.PermitType, q types.ApplicationQuery) ([]*types.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.Application, 0)
	for _, id := range r.order {
		if app := r.apps[id]; matches(app, pt, q) {
			out = append(out, cloneApplication(app))
		}
	}
	return out, nil
}

func (r *MemoryApplicationRepository) CreateApplication(_ context.Context, app *types.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	prepareNew(app)
	app.SubmittedAt = now
	app.LastUpdated = now
	for {
		app.ID = utils.ReferenceID(app.PermitType.Prefix())
		if _, taken := r.apps[app.ID]; !taken {
			break
		}
	}

	r.apps[app.ID] = cloneApplication(app)
	r.order = append(r.order, app.ID)
	return nil
}

func (r *MemoryApplicationRepository) UpdateApplication(_ context.Context, app *types.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.apps[app.ID]
	if !ok {
		return types.ErrApplicationNotFound
	}

	next := cloneApplication(current)
	next.Status = app.Status
	next.AssignedOfficer = utils.NonEmptyStringPtr(utils.PtrString(app.AssignedOfficer))
	next.ReviewComments = utils.NonEmptyStringPtr(utils.PtrString(app.ReviewComments))
	next.LastUpdated = app.LastUpdated
	r.apps[app.ID] = next
	return nil
}

type MemoryReviewEventRepository struct {
	mu     sync.RWMutex
	events []*types.ReviewEvent
}

func NewMemoryReviewEventRepository() *MemoryReviewEventRepository {
	return &MemoryReviewEventRepository{}
}

func (r *MemoryReviewEventRepository) RecordEvent(_ context.Context, event *types.ReviewEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = utils.NanoID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	stored := *event
	r.events = append(r.events, &stored)
	return nil
}

func (r *MemoryReviewEventRepository) EventsByApplication(_ context.Context, applicationID string) ([]*types.ReviewEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.ReviewEvent, 0)
	for _, e := range r.events {
		if e.ApplicationID == applicationID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

type MemoryTODAOverrideRepository struct {
	mu        sync.RWMutex
	overrides map[string]bool
}

func NewMemoryTODAOverrideRepository() *MemoryTODAOverrideRepository {
	return &MemoryTODAOverrideRepository{overrides: make(map[string]bool)}
}

func (r *MemoryTODAOverrideRepository) Overrides(_ context.Context) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]bool, len(r.overrides))
	for k, v := range r.overrides {
		out[k] = v
	}
	return out, nil
}

func (r *MemoryTODAOverrideRepository) Override(_ context.Context, applicationID string) (*bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.overrides[applicationID]
	if !ok {
		return nil, nil
	}
	return utils.BoolPtr(v), nil
}

func (r *MemoryTODAOverrideRepository) SetOverride(_ context.Context, applicationID string, toda bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.overrides[applicationID] = toda
	return nil
}

func (r *MemoryTODAOverrideRepository) ClearOverride(_ context.Context, applicationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.overrides, applicationID)
	return nil
}
