package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	db *sql.DB
}

func NewDB(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &DB{db: db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS listings (
            id TEXT PRIMARY KEY,
            slug TEXT UNIQUE NOT NULL,
            title TEXT NOT NULL,
            reward_amount REAL,
            token TEXT NOT NULL DEFAULT '',
            deadline DATETIME NOT NULL,
            type TEXT NOT NULL,
            status TEXT NOT NULL,
            category TEXT NOT NULL DEFAULT '',
            sponsor_name TEXT NOT NULL DEFAULT '',
            sponsor_slug TEXT NOT NULL DEFAULT '',
            sponsor_verified BOOLEAN NOT NULL DEFAULT 0,
            submission_count INTEGER NOT NULL DEFAULT 0,
            comments_count INTEGER NOT NULL DEFAULT 0,
            synced_at DATETIME NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS user_preferences (
            user_id INTEGER PRIMARY KEY,
            chat_id INTEGER NOT NULL,
            categories TEXT NOT NULL DEFAULT '',
            min_bounty REAL NOT NULL DEFAULT 0,
            max_bounty REAL,
            project_type TEXT NOT NULL DEFAULT 'all',
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS delivery_log (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            listing_id TEXT NOT NULL,
            success BOOLEAN NOT NULL,
            error TEXT,
            sent_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS reminders (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id INTEGER NOT NULL,
            listing_id TEXT NOT NULL,
            listing_slug TEXT NOT NULL,
            title TEXT NOT NULL,
            deadline DATETIME NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(user_id, listing_id)
        )`,

		`CREATE TABLE IF NOT EXISTS checkpoints (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_listings_synced_at ON listings(synced_at)`,
		`CREATE INDEX IF NOT EXISTS idx_listings_type ON listings(type)`,
		`CREATE INDEX IF NOT EXISTS idx_preferences_active ON user_preferences(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_active ON reminders(is_active, deadline)`,
		`CREATE INDEX IF NOT EXISTS idx_delivery_user ON delivery_log(user_id, listing_id)`,

		// At most one successful delivery per (user, listing), enforced at the
		// storage layer so overlapping runs cannot both record a send.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_delivery_success_once
            ON delivery_log(user_id, listing_id) WHERE success = 1`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}
