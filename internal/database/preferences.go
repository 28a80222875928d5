package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"nearnio/internal/models"
)

// SavePreference upserts the full filter row for a user.
func (db *DB) SavePreference(ctx context.Context, pref *models.UserPreference) error {
	query := `
        INSERT INTO user_preferences (user_id, chat_id, categories, min_bounty, max_bounty, project_type, is_active, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            chat_id = excluded.chat_id,
            categories = excluded.categories,
            min_bounty = excluded.min_bounty,
            max_bounty = excluded.max_bounty,
            project_type = excluded.project_type,
            is_active = excluded.is_active,
            updated_at = excluded.updated_at
    `

	now := time.Now()
	_, err := db.db.ExecContext(ctx, query,
		pref.UserID,
		pref.ChatID,
		encodeCategories(pref.Categories),
		pref.MinBounty,
		pref.MaxBounty,
		pref.ProjectType,
		pref.IsActive,
		now,
		now,
	)
	return err
}

const preferenceColumns = `user_id, chat_id, categories, min_bounty, max_bounty, project_type, is_active, created_at, updated_at`

// GetPreference returns nil without error when the user has no subscription.
func (db *DB) GetPreference(ctx context.Context, userID int64) (*models.UserPreference, error) {
	query := `SELECT ` + preferenceColumns + ` FROM user_preferences WHERE user_id = ?`
	pref, err := scanPreference(db.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return pref, err
}

func (db *DB) GetActivePreferences(ctx context.Context) ([]*models.UserPreference, error) {
	query := `SELECT ` + preferenceColumns + ` FROM user_preferences WHERE is_active = 1 ORDER BY user_id`

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefs []*models.UserPreference
	for rows.Next() {
		pref, err := scanPreference(rows)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, pref)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return prefs, nil
}

func (db *DB) SetPreferenceActive(ctx context.Context, userID int64, active bool) error {
	query := `UPDATE user_preferences SET is_active = ?, updated_at = ? WHERE user_id = ?`
	_, err := db.db.ExecContext(ctx, query, active, time.Now(), userID)
	return err
}

func (db *DB) DeletePreference(ctx context.Context, userID int64) error {
	query := `DELETE FROM user_preferences WHERE user_id = ?`
	_, err := db.db.ExecContext(ctx, query, userID)
	return err
}

func scanPreference(row rowScanner) (*models.UserPreference, error) {
	var pref models.UserPreference
	var categories string
	var maxBounty sql.NullFloat64

	err := row.Scan(
		&pref.UserID,
		&pref.ChatID,
		&categories,
		&pref.MinBounty,
		&maxBounty,
		&pref.ProjectType,
		&pref.IsActive,
		&pref.CreatedAt,
		&pref.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	pref.Categories = decodeCategories(categories)
	if maxBounty.Valid {
		v := maxBounty.Float64
		pref.MaxBounty = &v
	}

	return &pref, nil
}

func encodeCategories(categories []string) string {
	return strings.Join(categories, ",")
}

func decodeCategories(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
