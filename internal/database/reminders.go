package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nearnio/internal/models"
)

// ErrReminderActive is returned when a user re-adds a reminder that is
// already active for the same listing.
var ErrReminderActive = errors.New("reminder already active")

// AddReminder creates the reminder row, or reactivates an inactive one.
// Adding while active is a no-op signalled with ErrReminderActive.
func (db *DB) AddReminder(ctx context.Context, reminder *models.Reminder) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var active bool
	err = tx.QueryRowContext(ctx,
		`SELECT is_active FROM reminders WHERE user_id = ? AND listing_id = ?`,
		reminder.UserID, reminder.ListingID,
	).Scan(&active)
	if err == nil && active {
		return ErrReminderActive
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
        INSERT INTO reminders (user_id, listing_id, listing_slug, title, deadline, is_active, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, 1, ?, ?)
        ON CONFLICT(user_id, listing_id) DO UPDATE SET
            is_active = 1,
            listing_slug = excluded.listing_slug,
            title = excluded.title,
            deadline = excluded.deadline,
            updated_at = excluded.updated_at
    `,
		reminder.UserID,
		reminder.ListingID,
		reminder.ListingSlug,
		reminder.Title,
		reminder.Deadline,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert reminder: %w", err)
	}

	return tx.Commit()
}

// GetActiveReminders returns all active rows whose deadline is still ahead
// of the given instant.
func (db *DB) GetActiveReminders(ctx context.Context, deadlineAfter time.Time) ([]*models.Reminder, error) {
	query := `
        SELECT id, user_id, listing_id, listing_slug, title, deadline, is_active, created_at, updated_at
        FROM reminders
        WHERE is_active = 1 AND deadline > ?
        ORDER BY deadline
    `

	rows, err := db.db.QueryContext(ctx, query, deadlineAfter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		var r models.Reminder
		err := rows.Scan(
			&r.ID,
			&r.UserID,
			&r.ListingID,
			&r.ListingSlug,
			&r.Title,
			&r.Deadline,
			&r.IsActive,
			&r.CreatedAt,
			&r.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, &r)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return reminders, nil
}

func (db *DB) HasActiveReminder(ctx context.Context, userID int64, listingID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM reminders WHERE user_id = ? AND listing_id = ? AND is_active = 1)`

	var exists bool
	err := db.db.QueryRowContext(ctx, query, userID, listingID).Scan(&exists)
	return exists, err
}

// DeactivateReminder retires the row. The is_active guard in the WHERE clause
// decides the winner between overlapping runs; only the winner sees true.
func (db *DB) DeactivateReminder(ctx context.Context, userID int64, listingID string) (bool, error) {
	query := `UPDATE reminders SET is_active = 0, updated_at = ? WHERE user_id = ? AND listing_id = ? AND is_active = 1`

	result, err := db.db.ExecContext(ctx, query, time.Now(), userID, listingID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
