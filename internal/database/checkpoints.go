package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nearnio/internal/models"
)

// GetCheckpoint returns the last processed instant for a key. The second
// return value is false when the key has never been written.
func (db *DB) GetCheckpoint(ctx context.Context, key string) (time.Time, bool, error) {
	var raw string
	err := db.db.QueryRowContext(ctx, `SELECT value FROM checkpoints WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	at, err := time.Parse(models.CheckpointTimeFormat, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decode checkpoint %s: %w", key, err)
	}
	return at, true, nil
}

// AdvanceCheckpoint upserts the checkpoint, refusing to move it backwards.
// Values use a fixed-width UTC encoding, so string order is time order and the
// monotonic guard can live inside the upsert itself.
func (db *DB) AdvanceCheckpoint(ctx context.Context, key string, at time.Time) error {
	value := at.UTC().Format(models.CheckpointTimeFormat)

	query := `
        INSERT INTO checkpoints (key, value) VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value
        WHERE excluded.value >= checkpoints.value
    `
	_, err := db.db.ExecContext(ctx, query, key, value)
	return err
}
