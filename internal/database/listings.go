package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"nearnio/internal/models"
)

// UpsertListing inserts or refreshes a listing by slug. synced_at is always
// overwritten, even when no field changed; it is the notify window cursor.
func (db *DB) UpsertListing(ctx context.Context, listing *models.Listing) error {
	query := `
        INSERT INTO listings (id, slug, title, reward_amount, token, deadline, type, status, category,
            sponsor_name, sponsor_slug, sponsor_verified, submission_count, comments_count,
            synced_at, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(slug) DO UPDATE SET
            title = excluded.title,
            reward_amount = excluded.reward_amount,
            token = excluded.token,
            deadline = excluded.deadline,
            type = excluded.type,
            status = excluded.status,
            category = excluded.category,
            sponsor_name = excluded.sponsor_name,
            sponsor_slug = excluded.sponsor_slug,
            sponsor_verified = excluded.sponsor_verified,
            submission_count = excluded.submission_count,
            comments_count = excluded.comments_count,
            synced_at = excluded.synced_at,
            updated_at = excluded.updated_at
    `

	now := time.Now()
	_, err := db.db.ExecContext(ctx, query,
		listing.ID,
		listing.Slug,
		listing.Title,
		listing.RewardAmount,
		listing.Token,
		listing.Deadline,
		listing.Type,
		listing.Status,
		listing.Category,
		listing.SponsorName,
		listing.SponsorSlug,
		listing.SponsorVerified,
		listing.SubmissionCount,
		listing.CommentsCount,
		listing.SyncedAt,
		now,
		now,
	)
	return err
}

const listingColumns = `id, slug, title, reward_amount, token, deadline, type, status, category,
    sponsor_name, sponsor_slug, sponsor_verified, submission_count, comments_count,
    synced_at, created_at, updated_at`

func (db *DB) GetListingByID(ctx context.Context, id string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = ?`
	return db.scanListing(db.db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetListingBySlug(ctx context.Context, slug string) (*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE slug = ?`
	return db.scanListing(db.db.QueryRowContext(ctx, query, slug))
}

// GetListingsSyncedSince returns listings whose synced_at falls at or after
// the cursor, newest first.
func (db *DB) GetListingsSyncedSince(ctx context.Context, since time.Time) ([]*models.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE synced_at >= ? ORDER BY synced_at DESC`

	rows, err := db.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		listing, err := db.scanListingRow(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return listings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanListing maps a missing row to (nil, nil) so callers can distinguish
// "not found" from a real failure.
func (db *DB) scanListing(row *sql.Row) (*models.Listing, error) {
	listing, err := db.scanListingRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return listing, err
}

func (db *DB) scanListingRow(row rowScanner) (*models.Listing, error) {
	var listing models.Listing
	var reward sql.NullFloat64

	err := row.Scan(
		&listing.ID,
		&listing.Slug,
		&listing.Title,
		&reward,
		&listing.Token,
		&listing.Deadline,
		&listing.Type,
		&listing.Status,
		&listing.Category,
		&listing.SponsorName,
		&listing.SponsorSlug,
		&listing.SponsorVerified,
		&listing.SubmissionCount,
		&listing.CommentsCount,
		&listing.SyncedAt,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if reward.Valid {
		v := reward.Float64
		listing.RewardAmount = &v
	}

	return &listing, nil
}
