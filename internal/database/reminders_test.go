package database

import (
	"context"
	"testing"
	"time"

	"nearnio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReminder(userID int64, listingID string) *models.Reminder {
	return &models.Reminder{
		UserID:      userID,
		ListingID:   listingID,
		ListingSlug: listingID,
		Title:       "Build a wallet integration",
		Deadline:    time.Now().Add(48 * time.Hour),
	}
}

func TestAddReminderNoOpWhileActive(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	require.NoError(t, db.AddReminder(ctx, testReminder(42, "wallet-bounty")))

	err := db.AddReminder(ctx, testReminder(42, "wallet-bounty"))
	assert.ErrorIs(t, err, ErrReminderActive)

	// Still a single row.
	reminders, err := db.GetActiveReminders(ctx, time.Now())
	require.NoError(t, err)
	assert.Len(t, reminders, 1)
}

func TestReminderReactivation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	require.NoError(t, db.AddReminder(ctx, testReminder(42, "wallet-bounty")))

	deactivated, err := db.DeactivateReminder(ctx, 42, "wallet-bounty")
	require.NoError(t, err)
	assert.True(t, deactivated)

	active, err := db.HasActiveReminder(ctx, 42, "wallet-bounty")
	require.NoError(t, err)
	assert.False(t, active)

	// Re-adding after deactivation reactivates the same row.
	require.NoError(t, db.AddReminder(ctx, testReminder(42, "wallet-bounty")))

	reminders, err := db.GetActiveReminders(ctx, time.Now())
	require.NoError(t, err)
	assert.Len(t, reminders, 1)
}

func TestDeactivateReminderSingleWinner(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	require.NoError(t, db.AddReminder(ctx, testReminder(42, "wallet-bounty")))

	first, err := db.DeactivateReminder(ctx, 42, "wallet-bounty")
	require.NoError(t, err)
	second, err := db.DeactivateReminder(ctx, 42, "wallet-bounty")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestActiveRemindersExcludePastDeadlines(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	past := testReminder(42, "expired")
	past.Deadline = time.Now().Add(-time.Hour)
	require.NoError(t, db.AddReminder(ctx, past))
	require.NoError(t, db.AddReminder(ctx, testReminder(42, "upcoming")))

	reminders, err := db.GetActiveReminders(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "upcoming", reminders[0].ListingID)
}
