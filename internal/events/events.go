package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventCatalogSynced    = "catalog_synced"
	EventNotificationSent = "notification_sent"
	EventReminderSent     = "reminder_sent"
	EventReminderRetired  = "reminder_retired"
	EventPreferenceSaved  = "preference_saved"
)

// CatalogSyncedPayload summarizes one synchronizer run.
type CatalogSyncedPayload struct {
	Fetched int       `json:"fetched"`
	Synced  int       `json:"synced"`
	RanAt   time.Time `json:"ran_at"`
}

// NotificationSentPayload describes one delivery attempt outcome.
type NotificationSentPayload struct {
	UserID    int64  `json:"user_id"`
	ListingID string `json:"listing_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// ReminderSentPayload describes one reminder send.
type ReminderSentPayload struct {
	UserID    int64  `json:"user_id"`
	ListingID string `json:"listing_id"`
	TimeLeft  string `json:"time_left"`
	IsFinal   bool   `json:"is_final"`
}

// PreferenceSavedPayload describes a completed subscription setup.
type PreferenceSavedPayload struct {
	UserID      int64    `json:"user_id"`
	ProjectType string   `json:"project_type"`
	Categories  []string `json:"categories,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
