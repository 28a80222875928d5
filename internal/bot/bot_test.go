package bot

import (
	"context"
	"testing"
	"time"

	"nearnio/internal/database"
	"nearnio/internal/models"
	"nearnio/internal/repository"
	"nearnio/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	updatesChan chan tgbotapi.Update
	sent        []tgbotapi.Chattable
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.sent = append(m.sent, c)
	return tgbotapi.Message{}, nil
}

func (m *mockSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockSender) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updatesChan
}

func (m *mockSender) GetSelf() tgbotapi.User {
	return tgbotapi.User{UserName: "test_bot"}
}

func (m *mockSender) StopReceivingUpdates() {}

func (m *mockSender) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.sent)
	msg, ok := m.sent[len(m.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	return msg.Text
}

type mockPrefStore struct {
	prefs map[int64]*models.UserPreference
}

func (m *mockPrefStore) SavePreference(ctx context.Context, pref *models.UserPreference) error {
	m.prefs[pref.UserID] = pref
	return nil
}

func (m *mockPrefStore) GetPreference(ctx context.Context, userID int64) (*models.UserPreference, error) {
	return m.prefs[userID], nil
}

func (m *mockPrefStore) GetActivePreferences(ctx context.Context) ([]*models.UserPreference, error) {
	return nil, nil
}

func (m *mockPrefStore) SetPreferenceActive(ctx context.Context, userID int64, active bool) error {
	if p, ok := m.prefs[userID]; ok {
		p.IsActive = active
	}
	return nil
}

func (m *mockPrefStore) DeletePreference(ctx context.Context, userID int64) error {
	delete(m.prefs, userID)
	return nil
}

type mockLedger struct{}

func (mockLedger) HasDelivered(ctx context.Context, userID int64, listingID string) (bool, error) {
	return false, nil
}

func (mockLedger) RecordSuccess(ctx context.Context, userID int64, listingID string) (bool, error) {
	return true, nil
}

func (mockLedger) RecordFailure(ctx context.Context, userID int64, listingID string, sendErr error) error {
	return nil
}

func (mockLedger) CountDeliveries(ctx context.Context, userID int64) (int64, error) {
	return 3, nil
}

type mockReminders struct {
	added     []string
	cancelled []string
	addErr    error
}

func (m *mockReminders) AddReminder(ctx context.Context, userID int64, listingID string) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.added = append(m.added, listingID)
	return nil
}

func (m *mockReminders) CancelReminder(ctx context.Context, userID int64, listingID string) error {
	m.cancelled = append(m.cancelled, listingID)
	return nil
}

func newTestBot(t *testing.T) (*Bot, *mockSender, *mockPrefStore, *mockReminders) {
	t.Helper()
	sender := &mockSender{updatesChan: make(chan tgbotapi.Update, 1)}
	prefs := &mockPrefStore{prefs: make(map[int64]*models.UserPreference)}
	reminders := &mockReminders{}
	states := repository.NewMemoryStateRepository(time.Minute)
	logger := zerolog.Nop()

	b := NewBot(
		service.NewTelegramService(sender),
		prefs,
		mockLedger{},
		reminders,
		states,
		nil,
		nil,
		&logger,
	)
	return b, sender, prefs, reminders
}

func commandUpdate(userID, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID},
			Chat: &tgbotapi.Chat{ID: chatID},
			Text: text,
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len(firstWord(text))},
			},
		},
	}
}

func textUpdate(userID, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID},
			Chat: &tgbotapi.Chat{ID: chatID},
			Text: text,
		},
	}
}

func callbackUpdate(userID, chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb",
			From:    &tgbotapi.User{ID: userID},
			Data:    data,
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
		},
	}
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' {
			return s[:i]
		}
	}
	return s
}

func TestSetupFlowCreatesPreference(t *testing.T) {
	b, _, prefs, _ := newTestBot(t)
	ctx := context.Background()

	b.processUpdate(ctx, commandUpdate(7, 7, "/setup"))
	b.processUpdate(ctx, callbackUpdate(7, 7, "setup_type:bounty"))
	b.processUpdate(ctx, callbackUpdate(7, 7, "setup_cat:DEV"))
	b.processUpdate(ctx, callbackUpdate(7, 7, "setup_cat_done"))
	b.processUpdate(ctx, textUpdate(7, 7, "100"))
	b.processUpdate(ctx, textUpdate(7, 7, "500"))

	pref := prefs.prefs[7]
	require.NotNil(t, pref)
	assert.Equal(t, models.ProjectTypeBounty, pref.ProjectType)
	assert.Equal(t, []string{models.CategoryDevelopment}, pref.Categories)
	assert.Equal(t, 100.0, pref.MinBounty)
	require.NotNil(t, pref.MaxBounty)
	assert.Equal(t, 500.0, *pref.MaxBounty)
	assert.True(t, pref.IsActive)
}

func TestSetupSkipMaxBounty(t *testing.T) {
	b, _, prefs, _ := newTestBot(t)
	ctx := context.Background()

	b.processUpdate(ctx, commandUpdate(7, 7, "/setup"))
	b.processUpdate(ctx, callbackUpdate(7, 7, "setup_type:all"))
	b.processUpdate(ctx, callbackUpdate(7, 7, "setup_cat_done"))
	b.processUpdate(ctx, textUpdate(7, 7, "0"))
	b.processUpdate(ctx, textUpdate(7, 7, "skip"))

	pref := prefs.prefs[7]
	require.NotNil(t, pref)
	assert.Equal(t, models.ProjectTypeAll, pref.ProjectType)
	assert.Empty(t, pref.Categories)
	assert.Nil(t, pref.MaxBounty)
}

func TestSetupRejectsBadAmount(t *testing.T) {
	b, sender, prefs, _ := newTestBot(t)
	ctx := context.Background()

	b.processUpdate(ctx, commandUpdate(7, 7, "/setup"))
	b.processUpdate(ctx, callbackUpdate(7, 7, "setup_type:bounty"))
	b.processUpdate(ctx, callbackUpdate(7, 7, "setup_cat_done"))
	b.processUpdate(ctx, textUpdate(7, 7, "a lot"))

	assert.Contains(t, sender.lastText(t), "doesn't look like an amount")
	assert.Nil(t, prefs.prefs[7])

	// Recovers once a number arrives.
	b.processUpdate(ctx, textUpdate(7, 7, "$1,000"))
	b.processUpdate(ctx, textUpdate(7, 7, "skip"))
	require.NotNil(t, prefs.prefs[7])
	assert.Equal(t, 1000.0, prefs.prefs[7].MinBounty)
}

func TestPauseAndResume(t *testing.T) {
	b, _, prefs, _ := newTestBot(t)
	ctx := context.Background()

	prefs.prefs[7] = &models.UserPreference{UserID: 7, ChatID: 7, IsActive: true, ProjectType: models.ProjectTypeBounty}

	b.processUpdate(ctx, commandUpdate(7, 7, "/pause"))
	assert.False(t, prefs.prefs[7].IsActive)

	b.processUpdate(ctx, commandUpdate(7, 7, "/resume"))
	assert.True(t, prefs.prefs[7].IsActive)
}

func TestStopDeletesPreference(t *testing.T) {
	b, _, prefs, _ := newTestBot(t)
	ctx := context.Background()

	prefs.prefs[7] = &models.UserPreference{UserID: 7, ChatID: 7, IsActive: true}
	b.processUpdate(ctx, commandUpdate(7, 7, "/stop"))
	assert.Nil(t, prefs.prefs[7])
}

func TestReminderCallbacks(t *testing.T) {
	b, sender, _, reminders := newTestBot(t)
	ctx := context.Background()

	b.processUpdate(ctx, callbackUpdate(7, 7, "remind_lst-1"))
	assert.Equal(t, []string{"lst-1"}, reminders.added)

	b.processUpdate(ctx, callbackUpdate(7, 7, "stop_reminder_lst-1"))
	assert.Equal(t, []string{"lst-1"}, reminders.cancelled)

	reminders.addErr = database.ErrReminderActive
	b.processUpdate(ctx, callbackUpdate(7, 7, "remind_lst-1"))
	assert.Contains(t, sender.lastText(t), "already have a reminder")
}

func TestStaleSetupCallbackAsksForRestart(t *testing.T) {
	b, sender, _, _ := newTestBot(t)
	ctx := context.Background()

	b.processUpdate(ctx, callbackUpdate(7, 7, "setup_type:bounty"))
	assert.Contains(t, sender.lastText(t), "expired")
}
