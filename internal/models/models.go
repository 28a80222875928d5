package models

import "time"

// Listing is one catalog row, upserted by the synchronizer and never deleted.
// RewardAmount is nil when the upstream marks compensation as variable; the
// matcher treats that as 0 USD.
type Listing struct {
	ID              string
	Slug            string
	Title           string
	RewardAmount    *float64
	Token           string
	Deadline        time.Time
	Type            string
	Status          string
	Category        string
	SponsorName     string
	SponsorSlug     string
	SponsorVerified bool
	SubmissionCount int
	CommentsCount   int
	SyncedAt        time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// USDAmount is filled by the price oracle, not persisted.
	USDAmount float64
}

type UserPreference struct {
	UserID      int64
	ChatID      int64
	Categories  []string
	MinBounty   float64
	MaxBounty   *float64
	ProjectType string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DeliveryRecord is one append-only ledger row. At most one success=true row
// may ever exist per (UserID, ListingID); the store enforces that.
type DeliveryRecord struct {
	ID        int64
	UserID    int64
	ListingID string
	Success   bool
	Error     string
	SentAt    time.Time
}

type Reminder struct {
	ID          int64
	UserID      int64
	ListingID   string
	ListingSlug string
	Title       string
	Deadline    time.Time
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DueReminder is a reminder joined with its freshly computed tier.
type DueReminder struct {
	Reminder
	TimeLeft    string
	IsFinal     bool
	SponsorSlug string
}

// SetupState holds the per-user /setup conversation position. Lives in the
// TTL-keyed state store, never in process memory.
type SetupState struct {
	UserID      int64          `json:"user_id"`
	ChatID      int64          `json:"chat_id"`
	CurrentStep string         `json:"current_step"`
	Draft       PreferenceDraft `json:"draft"`
}

type PreferenceDraft struct {
	ProjectType string   `json:"project_type,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	MinBounty   float64  `json:"min_bounty,omitempty"`
	MaxBounty   *float64 `json:"max_bounty,omitempty"`
}
