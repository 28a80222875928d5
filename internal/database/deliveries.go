package database

import (
	"context"
	"time"
)

// HasDelivered reports whether a successful delivery record exists for the pair.
func (db *DB) HasDelivered(ctx context.Context, userID int64, listingID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM delivery_log WHERE user_id = ? AND listing_id = ? AND success = 1)`

	var exists bool
	err := db.db.QueryRowContext(ctx, query, userID, listingID).Scan(&exists)
	return exists, err
}

// RecordSuccess appends the success row for the pair. The partial unique index
// makes the insert a no-op when a concurrent run got there first; the return
// value reports whether this call won.
func (db *DB) RecordSuccess(ctx context.Context, userID int64, listingID string) (bool, error) {
	query := `INSERT OR IGNORE INTO delivery_log (user_id, listing_id, success, sent_at) VALUES (?, ?, 1, ?)`

	result, err := db.db.ExecContext(ctx, query, userID, listingID, time.Now())
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// RecordFailure appends a failed attempt. Failures are not deduplicated;
// each retry leaves its own row.
func (db *DB) RecordFailure(ctx context.Context, userID int64, listingID string, sendErr error) error {
	errText := ""
	if sendErr != nil {
		errText = sendErr.Error()
	}

	query := `INSERT INTO delivery_log (user_id, listing_id, success, error, sent_at) VALUES (?, ?, 0, ?, ?)`
	_, err := db.db.ExecContext(ctx, query, userID, listingID, errText, time.Now())
	return err
}

// CountDeliveries returns the number of successful sends for a user, for /preferences stats.
func (db *DB) CountDeliveries(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM delivery_log WHERE user_id = ? AND success = 1`

	var count int64
	err := db.db.QueryRowContext(ctx, query, userID).Scan(&count)
	return count, err
}
