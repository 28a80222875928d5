package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"nearnio/internal/database"
	"nearnio/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

var testLogger = zerolog.Nop()

type fakeSource struct {
	listings []*models.Listing
	err      error
}

func (f *fakeSource) FetchListings(ctx context.Context) ([]*models.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.listings, nil
}

type fakeCatalog struct {
	mu       sync.Mutex
	byID     map[string]*models.Listing
	upserted int
	failSlug string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{byID: make(map[string]*models.Listing)}
}

func (f *fakeCatalog) UpsertListing(ctx context.Context, listing *models.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if listing.Slug == f.failSlug {
		return errors.New("constraint violation")
	}
	cp := *listing
	f.byID[listing.ID] = &cp
	f.upserted++
	return nil
}

func (f *fakeCatalog) GetListingByID(ctx context.Context, id string) (*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (f *fakeCatalog) GetListingBySlug(ctx context.Context, slug string) (*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.byID {
		if l.Slug == slug {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) GetListingsSyncedSince(ctx context.Context, since time.Time) ([]*models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Listing
	for _, l := range f.byID {
		if !l.SyncedAt.Before(since) {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakePrefs struct {
	prefs map[int64]*models.UserPreference
}

func newFakePrefs(prefs ...*models.UserPreference) *fakePrefs {
	f := &fakePrefs{prefs: make(map[int64]*models.UserPreference)}
	for _, p := range prefs {
		f.prefs[p.UserID] = p
	}
	return f
}

func (f *fakePrefs) SavePreference(ctx context.Context, pref *models.UserPreference) error {
	f.prefs[pref.UserID] = pref
	return nil
}

func (f *fakePrefs) GetPreference(ctx context.Context, userID int64) (*models.UserPreference, error) {
	return f.prefs[userID], nil
}

func (f *fakePrefs) GetActivePreferences(ctx context.Context) ([]*models.UserPreference, error) {
	var out []*models.UserPreference
	for _, p := range f.prefs {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePrefs) SetPreferenceActive(ctx context.Context, userID int64, active bool) error {
	if p, ok := f.prefs[userID]; ok {
		p.IsActive = active
	}
	return nil
}

func (f *fakePrefs) DeletePreference(ctx context.Context, userID int64) error {
	delete(f.prefs, userID)
	return nil
}

type fakeLedger struct {
	mu        sync.Mutex
	successes map[string]bool
	failures  []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{successes: make(map[string]bool)}
}

func ledgerKey(userID int64, listingID string) string {
	return fmt.Sprintf("%d:%s", userID, listingID)
}

func (f *fakeLedger) HasDelivered(ctx context.Context, userID int64, listingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.successes[ledgerKey(userID, listingID)], nil
}

func (f *fakeLedger) RecordSuccess(ctx context.Context, userID int64, listingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := ledgerKey(userID, listingID)
	if f.successes[key] {
		return false, nil
	}
	f.successes[key] = true
	return true, nil
}

func (f *fakeLedger) RecordFailure(ctx context.Context, userID int64, listingID string, sendErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, ledgerKey(userID, listingID))
	return nil
}

func (f *fakeLedger) CountDeliveries(ctx context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := fmt.Sprintf("%d:", userID)
	var n int64
	for key := range f.successes {
		if strings.HasPrefix(key, prefix) {
			n++
		}
	}
	return n, nil
}

type fakeOracle struct {
	rates map[string]float64
}

func (f *fakeOracle) Rate(ctx context.Context, token string) float64 {
	if r, ok := f.rates[token]; ok {
		return r
	}
	return 1.0
}

func (f *fakeOracle) ConvertToUSD(ctx context.Context, listings []*models.Listing) {
	for _, l := range listings {
		if l.RewardAmount == nil {
			l.USDAmount = 0
			continue
		}
		l.USDAmount = *l.RewardAmount * f.Rate(ctx, l.Token)
	}
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeDispatcher struct {
	mu       sync.Mutex
	sent     []sentMessage
	failChat map[int64]error
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{failChat: make(map[int64]error)}
}

func (f *fakeDispatcher) Send(ctx context.Context, chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failChat[chatID]; ok {
		return err
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeDispatcher) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeCheckpoints struct {
	mu     sync.Mutex
	values map[string]time.Time
}

func newFakeCheckpoints() *fakeCheckpoints {
	return &fakeCheckpoints{values: make(map[string]time.Time)}
}

func (f *fakeCheckpoints) GetCheckpoint(ctx context.Context, key string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeCheckpoints) AdvanceCheckpoint(ctx context.Context, key string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.values[key]; ok && at.Before(cur) {
		return nil
	}
	f.values[key] = at
	return nil
}

type fakeReminderStore struct {
	mu        sync.Mutex
	reminders map[string]*models.Reminder
}

func newFakeReminderStore() *fakeReminderStore {
	return &fakeReminderStore{reminders: make(map[string]*models.Reminder)}
}

func (f *fakeReminderStore) AddReminder(ctx context.Context, reminder *models.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := ledgerKey(reminder.UserID, reminder.ListingID)
	if existing, ok := f.reminders[key]; ok && existing.IsActive {
		return database.ErrReminderActive
	}
	cp := *reminder
	cp.IsActive = true
	f.reminders[key] = &cp
	return nil
}

func (f *fakeReminderStore) GetActiveReminders(ctx context.Context, deadlineAfter time.Time) ([]*models.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Reminder
	for _, r := range f.reminders {
		if r.IsActive && r.Deadline.After(deadlineAfter) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeReminderStore) HasActiveReminder(ctx context.Context, userID int64, listingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reminders[ledgerKey(userID, listingID)]
	return ok && r.IsActive, nil
}

func (f *fakeReminderStore) DeactivateReminder(ctx context.Context, userID int64, listingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reminders[ledgerKey(userID, listingID)]
	if !ok || !r.IsActive {
		return false, nil
	}
	r.IsActive = false
	return true, nil
}

type staticRenderer struct{}

func (staticRenderer) RenderListing(l *models.Listing) (string, *tgbotapi.InlineKeyboardMarkup) {
	return "listing " + l.ID, nil
}

func (staticRenderer) RenderReminder(r *models.DueReminder) (string, *tgbotapi.InlineKeyboardMarkup) {
	return "reminder " + r.ListingID + " " + r.TimeLeft, nil
}

func floatPtr(v float64) *float64 { return &v }
