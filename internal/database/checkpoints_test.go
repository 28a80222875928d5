package database

import (
	"context"
	"testing"
	"time"

	"nearnio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	_, ok, err := db.GetCheckpoint(ctx, models.CheckpointNotify)
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.AdvanceCheckpoint(ctx, models.CheckpointNotify, at))

	got, ok, err := db.GetCheckpoint(ctx, models.CheckpointNotify)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(at))
}

func TestCheckpointMonotonic(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	later := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	require.NoError(t, db.AdvanceCheckpoint(ctx, models.CheckpointSync, later))

	// A stale writer must not move the cursor backwards.
	require.NoError(t, db.AdvanceCheckpoint(ctx, models.CheckpointSync, earlier))

	got, ok, err := db.GetCheckpoint(ctx, models.CheckpointSync)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(later))
}

func TestCheckpointKeysIndependent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	syncAt := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	notifyAt := syncAt.Add(30 * time.Minute)

	require.NoError(t, db.AdvanceCheckpoint(ctx, models.CheckpointSync, syncAt))
	require.NoError(t, db.AdvanceCheckpoint(ctx, models.CheckpointNotify, notifyAt))

	got, _, err := db.GetCheckpoint(ctx, models.CheckpointSync)
	require.NoError(t, err)
	assert.True(t, got.Equal(syncAt))

	got, _, err = db.GetCheckpoint(ctx, models.CheckpointNotify)
	require.NoError(t, err)
	assert.True(t, got.Equal(notifyAt))
}
