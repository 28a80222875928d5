package domain

import (
	"context"
	"time"

	"nearnio/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ListingSource pulls the full current open set from the upstream catalog.
type ListingSource interface {
	FetchListings(ctx context.Context) ([]*models.Listing, error)
}

type CatalogStore interface {
	UpsertListing(ctx context.Context, listing *models.Listing) error
	GetListingByID(ctx context.Context, id string) (*models.Listing, error)
	GetListingBySlug(ctx context.Context, slug string) (*models.Listing, error)
	GetListingsSyncedSince(ctx context.Context, since time.Time) ([]*models.Listing, error)
}

type PreferenceStore interface {
	SavePreference(ctx context.Context, pref *models.UserPreference) error
	GetPreference(ctx context.Context, userID int64) (*models.UserPreference, error)
	GetActivePreferences(ctx context.Context) ([]*models.UserPreference, error)
	SetPreferenceActive(ctx context.Context, userID int64, active bool) error
	DeletePreference(ctx context.Context, userID int64) error
}

// DeliveryLedger is the exactly-once production guard for notifications.
// RecordSuccess reports false when another run already holds the success
// record for the pair, so overlapping runs cannot both count a send.
type DeliveryLedger interface {
	HasDelivered(ctx context.Context, userID int64, listingID string) (bool, error)
	RecordSuccess(ctx context.Context, userID int64, listingID string) (bool, error)
	RecordFailure(ctx context.Context, userID int64, listingID string, sendErr error) error
	CountDeliveries(ctx context.Context, userID int64) (int64, error)
}

type ReminderStore interface {
	AddReminder(ctx context.Context, reminder *models.Reminder) error
	GetActiveReminders(ctx context.Context, deadlineAfter time.Time) ([]*models.Reminder, error)
	HasActiveReminder(ctx context.Context, userID int64, listingID string) (bool, error)
	// DeactivateReminder reports false when the row was already inactive,
	// which lets overlapping runs agree on who retired it.
	DeactivateReminder(ctx context.Context, userID int64, listingID string) (bool, error)
}

type CheckpointStore interface {
	GetCheckpoint(ctx context.Context, key string) (time.Time, bool, error)
	// AdvanceCheckpoint persists at only if it does not move the key backwards.
	AdvanceCheckpoint(ctx context.Context, key string, at time.Time) error
}

// PriceOracle converts token amounts to USD. It never fails: lookups fall
// back to a static table and unknown tokens resolve to 1.0.
type PriceOracle interface {
	Rate(ctx context.Context, token string) float64
	ConvertToUSD(ctx context.Context, listings []*models.Listing)
}

// PriceCache is the bounded-TTL store behind the oracle.
type PriceCache interface {
	GetRate(ctx context.Context, token string) (float64, bool, error)
	SetRate(ctx context.Context, token string, rate float64) error
}

// Dispatcher hands pre-rendered text to the messaging transport.
type Dispatcher interface {
	Send(ctx context.Context, chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// StateRepository persists per-user setup sessions with a TTL.
type StateRepository interface {
	GetState(ctx context.Context, userID int64) (*models.SetupState, error)
	SetState(ctx context.Context, state *models.SetupState) error
	ClearState(ctx context.Context, userID int64) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SyncRunner, NotifyRunner and RemindRunner are the three orchestrated
// operations, each externally triggerable on its own cadence.
type SyncRunner interface {
	Sync(ctx context.Context) (int, error)
}

type NotifyRunner interface {
	Notify(ctx context.Context) (int, error)
}

type RemindRunner interface {
	Remind(ctx context.Context) (int, error)
}

type ReminderManager interface {
	AddReminder(ctx context.Context, userID int64, listingID string) error
	CancelReminder(ctx context.Context, userID int64, listingID string) error
}
