package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/reglet-dev/featurefleet/internal/application/errors"
	"github.com/reglet-dev/featurefleet/internal/domain/values"
)

func TestReconciler_Status(t *testing.T) {
	f := newReconcilerFixture(t, 0)

	before := f.rec.Status()
	assert.Equal(t, "idle", before.State)
	assert.Empty(t, before.SnapshotID)
	assert.Nil(t, before.LastRun)

	run, err := f.rec.Run(context.Background(), ReasonManual)
	require.NoError(t, err)

	after := f.rec.Status()
	assert.Equal(t, "converged", after.State)
	assert.Equal(t, run.ID.String(), after.SnapshotID)
	require.NotNil(t, after.LastRun)
	assert.Equal(t, ReasonManual, after.LastRun.Reason)
	assert.True(t, after.LastRun.Finished)
	assert.Equal(t, 2, after.Repositories)
	assert.Equal(t, 2, after.Features)
}

func TestReconciler_History(t *testing.T) {
	f := newReconcilerFixture(t, 0)
	ctx := context.Background()

	first, err := f.rec.Run(ctx, "first")
	require.NoError(t, err)
	second, err := f.rec.Run(ctx, "second")
	require.NoError(t, err)

	all, err := f.rec.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID.String(), all[0].ID)
	assert.Equal(t, first.ID.String(), all[1].ID)
	assert.True(t, all[1].Finished)

	latest, err := f.rec.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "second", latest[0].Reason)
}

func TestReconciler_FindRun(t *testing.T) {
	f := newReconcilerFixture(t, 0)
	ctx := context.Background()

	run, err := f.rec.Run(ctx, "manual")
	require.NoError(t, err)

	found, err := f.rec.FindRun(ctx, run.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "manual", found.Reason)
	assert.Equal(t, string(values.StateConverged), found.State)

	_, err = f.rec.FindRun(ctx, values.NewRunID().String())
	assert.ErrorIs(t, err, apperrors.ErrRunNotFound)

	_, err = f.rec.FindRun(ctx, "not-a-uuid")
	assert.ErrorContains(t, err, "invalid run ID")
}

func TestReconciler_HistoryWithoutRepository(t *testing.T) {
	f := newReconcilerFixture(t, 0)
	f.rec.runs = nil
	ctx := context.Background()

	empty, err := f.rec.History(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	run, err := f.rec.Run(ctx, "manual")
	require.NoError(t, err)

	only, err := f.rec.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, run.ID.String(), only[0].ID)

	found, err := f.rec.FindRun(ctx, run.ID.String())
	require.NoError(t, err)
	assert.Equal(t, run.ID.String(), found.ID)

	_, err = f.rec.FindRun(ctx, values.NewRunID().String())
	assert.ErrorIs(t, err, apperrors.ErrRunNotFound)
}
