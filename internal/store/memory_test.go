package store

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"goserveph/internal/utils"
	"goserveph/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(pt types.PermitType, applicationType, name string) *types.Application {
	return &types.Application{
		PermitType:      pt,
		ApplicationType: applicationType,
		Fields:          map[string]any{"full_name": name, "capital_investment": nil},
		Attachments:     map[string][]string{"attachments": {pt.Prefix() + "/a.pdf"}},
	}
}

func TestMemoryApplicationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryApplicationRepository()

	first := newApp(types.PermitTypeFranchise, "New", "Mario Santos")
	first.Status = types.StatusApproved
	require.NoError(t, repo.CreateApplication(ctx, first))
	require.NoError(t, repo.CreateApplication(ctx, newApp(types.PermitTypeBusiness, "New", "Elena Reyes")))
	require.NoError(t, repo.CreateApplication(ctx, newApp(types.PermitTypeFranchise, "Renewal", "Pedro Cruz")))

	assert.True(t, strings.HasPrefix(first.ID, "FRN-"))
	assert.Equal(t, types.StatusPending, first.Status)
	assert.False(t, first.SubmittedAt.IsZero())
	assert.Equal(t, first.SubmittedAt, first.LastUpdated)

	all, err := repo.Applications(ctx, types.PermitTypeFranchise, types.ApplicationQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Mario Santos", all[0].ApplicantName())
	assert.Equal(t, "Pedro Cruz", all[1].ApplicantName())

	renewals, err := repo.Applications(ctx, types.PermitTypeFranchise, types.ApplicationQuery{ApplicationType: "renewal"})
	require.NoError(t, err)
	require.Len(t, renewals, 1)

	approved, err := repo.Applications(ctx, types.PermitTypeFranchise, types.ApplicationQuery{Status: types.StatusApproved})
	require.NoError(t, err)
	assert.Empty(t, approved)

	got, err := repo.Application(ctx, first.ID)
	require.NoError(t, err)
	got.Fields["full_name"] = "tampered"
	got.Attachments["attachments"][0] = "tampered"

	again, _ := repo.Application(ctx, first.ID)
	assert.Equal(t, "Mario Santos", again.Fields["full_name"])
	assert.Equal(t, "FRN/a.pdf", again.Attachments["attachments"][0])

	_, err = repo.Application(ctx, "FRN-MISSING")
	assert.ErrorIs(t, err, types.ErrApplicationNotFound)
}

func TestMemoryUpdateOnlyTouchesReviewFields(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryApplicationRepository()

	app := newApp(types.PermitTypeBarangay, "New", "Jose Rizal")
	require.NoError(t, repo.CreateApplication(ctx, app))

	update := *app
	update.Status = types.StatusForCompliance
	update.AssignedOfficer = utils.StringPtr("Officer Dela Cruz")
	update.ReviewComments = utils.StringPtr("  ")
	update.Fields = map[string]any{"full_name": "Someone Else"}
	update.LastUpdated = app.LastUpdated.Add(time.Hour)
	require.NoError(t, repo.UpdateApplication(ctx, &update))

	got, _ := repo.Application(ctx, app.ID)
	assert.Equal(t, types.StatusForCompliance, got.Status)
	assert.Equal(t, "Officer Dela Cruz", utils.PtrString(got.AssignedOfficer))
	assert.Nil(t, got.ReviewComments)
	assert.Equal(t, "Jose Rizal", got.Fields["full_name"])
	assert.Equal(t, update.LastUpdated, got.LastUpdated)

	update.ID = "BRGY-MISSING"
	assert.ErrorIs(t, repo.UpdateApplication(ctx, &update), types.ErrApplicationNotFound)
}

func TestMemoryRepositoryConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryApplicationRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.CreateApplication(ctx, newApp(types.PermitTypeBuilding, "Electronics", "Ana")))
		}()
	}
	wg.Wait()

	all, err := repo.Applications(ctx, types.PermitTypeBuilding, types.ApplicationQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 50)
}

func TestMemoryReviewEvents(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryReviewEventRepository()

	status := types.StatusApproved
	require.NoError(t, repo.RecordEvent(ctx, &types.ReviewEvent{ApplicationID: "A", Action: types.ReviewActionAssign}))
	require.NoError(t, repo.RecordEvent(ctx, &types.ReviewEvent{ApplicationID: "B", Action: types.ReviewActionAssign}))
	require.NoError(t, repo.RecordEvent(ctx, &types.ReviewEvent{ApplicationID: "A", Action: types.ReviewActionTransition, Status: &status}))

	events, err := repo.EventsByApplication(ctx, "A")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, types.ReviewActionAssign, events[0].Action)
	assert.Equal(t, types.StatusApproved, *events[1].Status)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestMemoryTODAOverrides(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTODAOverrideRepository()

	v, err := repo.Override(ctx, "FRN-1")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, repo.SetOverride(ctx, "FRN-1", false))
	require.NoError(t, repo.SetOverride(ctx, "FRN-2", true))

	all, err := repo.Overrides(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"FRN-1": false, "FRN-2": true}, all)

	require.NoError(t, repo.ClearOverride(ctx, "FRN-2"))
	v, _ = repo.Override(ctx, "FRN-2")
	assert.Nil(t, v)
}
