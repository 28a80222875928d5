package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nearnio/internal/domain"
	"nearnio/internal/events"
	"nearnio/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrDeadlinePassed  = errors.New("listing deadline has passed")
)

// ReminderRenderer turns a due reminder into the outbound message body and
// its inline keyboard.
type ReminderRenderer interface {
	RenderReminder(reminder *models.DueReminder) (string, *tgbotapi.InlineKeyboardMarkup)
}

// ReminderService owns deadline reminders: opting in, opting out, and the
// periodic run that nudges users as a listing's deadline closes in. A
// reminder fires on every run until the final tier goes out, after which it
// is retired.
type ReminderService struct {
	reminders   domain.ReminderStore
	catalog     domain.CatalogStore
	prefs       domain.PreferenceStore
	dispatcher  domain.Dispatcher
	renderer    ReminderRenderer
	checkpoints domain.CheckpointStore
	bus         domain.EventPublisher
	limiter     *rate.Limiter
	logger      *zerolog.Logger
}

func NewReminderService(
	reminders domain.ReminderStore,
	catalog domain.CatalogStore,
	prefs domain.PreferenceStore,
	dispatcher domain.Dispatcher,
	renderer ReminderRenderer,
	checkpoints domain.CheckpointStore,
	bus domain.EventPublisher,
	sendDelay time.Duration,
	logger *zerolog.Logger,
) *ReminderService {
	if sendDelay <= 0 {
		sendDelay = models.DefaultSendDelay
	}
	return &ReminderService{
		reminders:   reminders,
		catalog:     catalog,
		prefs:       prefs,
		dispatcher:  dispatcher,
		renderer:    renderer,
		checkpoints: checkpoints,
		bus:         bus,
		limiter:     rate.NewLimiter(rate.Every(sendDelay), 1),
		logger:      logger,
	}
}

// AddReminder implements domain.ReminderManager. Adding is rejected for
// unknown listings and listings whose deadline already passed; an already
// active reminder surfaces the store's sentinel so the UI can say so.
func (s *ReminderService) AddReminder(ctx context.Context, userID int64, listingID string) error {
	listing, err := s.catalog.GetListingByID(ctx, listingID)
	if err != nil {
		return fmt.Errorf("load listing: %w", err)
	}
	if listing == nil {
		return ErrListingNotFound
	}
	if !listing.Deadline.After(time.Now().UTC()) {
		return ErrDeadlinePassed
	}

	return s.reminders.AddReminder(ctx, &models.Reminder{
		UserID:      userID,
		ListingID:   listing.ID,
		ListingSlug: listing.Slug,
		Title:       listing.Title,
		Deadline:    listing.Deadline,
	})
}

// CancelReminder implements domain.ReminderManager. Cancelling an inactive
// or unknown reminder is a no-op.
func (s *ReminderService) CancelReminder(ctx context.Context, userID int64, listingID string) error {
	_, err := s.reminders.DeactivateReminder(ctx, userID, listingID)
	return err
}

// Remind implements domain.RemindRunner and returns the number of reminders
// sent. The reminder checkpoint is pure bookkeeping: tier computation uses
// the deadline alone, so a late run degrades to coarser nudges rather than
// wrong ones.
func (s *ReminderService) Remind(ctx context.Context) (int, error) {
	start := time.Now().UTC()

	active, err := s.reminders.GetActiveReminders(ctx, start)
	if err != nil {
		return 0, fmt.Errorf("load active reminders: %w", err)
	}

	sent := 0
	for _, reminder := range active {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		label, final, due := TimeLeft(reminder.Deadline.Sub(start))
		if !due {
			continue
		}

		if s.sendReminder(ctx, reminder, label, final) {
			sent++
		}
	}

	if err := s.checkpoints.AdvanceCheckpoint(ctx, models.CheckpointRemind, start); err != nil {
		return sent, fmt.Errorf("advance reminder checkpoint: %w", err)
	}

	s.logger.Info().
		Int("active", len(active)).
		Int("sent", sent).
		Msg("reminder run complete")

	return sent, nil
}

func (s *ReminderService) sendReminder(ctx context.Context, reminder *models.Reminder, label string, final bool) bool {
	if err := s.limiter.Wait(ctx); err != nil {
		return false
	}

	due := &models.DueReminder{
		Reminder: *reminder,
		TimeLeft: label,
		IsFinal:  final,
	}
	if listing, err := s.catalog.GetListingByID(ctx, reminder.ListingID); err == nil && listing != nil {
		due.SponsorSlug = listing.SponsorSlug
	}

	text, keyboard := s.renderer.RenderReminder(due)

	chatID := s.chatFor(ctx, reminder.UserID)
	if err := s.dispatcher.Send(ctx, chatID, text, keyboard); err != nil {
		s.logger.Warn().Err(err).
			Int64("user_id", reminder.UserID).
			Str("listing_id", reminder.ListingID).
			Msg("reminder send failed")
		return false
	}

	if s.bus != nil {
		_ = s.bus.PublishJSON(events.EventReminderSent, events.ReminderSentPayload{
			UserID:    reminder.UserID,
			ListingID: reminder.ListingID,
			TimeLeft:  label,
			IsFinal:   final,
		})
	}

	// The final tier retires the reminder; the guarded update makes sure
	// only one run does, even if two overlap on the same window.
	if final {
		retired, err := s.reminders.DeactivateReminder(ctx, reminder.UserID, reminder.ListingID)
		if err != nil {
			s.logger.Error().Err(err).
				Int64("user_id", reminder.UserID).
				Str("listing_id", reminder.ListingID).
				Msg("failed to retire reminder")
		} else if retired && s.bus != nil {
			_ = s.bus.PublishJSON(events.EventReminderRetired, events.ReminderSentPayload{
				UserID:    reminder.UserID,
				ListingID: reminder.ListingID,
				TimeLeft:  label,
				IsFinal:   true,
			})
		}
	}

	return true
}

// chatFor resolves the delivery chat for a user. Private chats share the
// user's ID, which covers users who registered before preferences existed.
func (s *ReminderService) chatFor(ctx context.Context, userID int64) int64 {
	pref, err := s.prefs.GetPreference(ctx, userID)
	if err != nil || pref == nil {
		return userID
	}
	return pref.ChatID
}

// TimeLeft maps the remaining duration to a reminder tier. The label
// coarsens as the deadline nears; final marks the last nudge before the
// reminder is retired. due is false once the deadline has passed.
func TimeLeft(until time.Duration) (label string, final bool, due bool) {
	switch {
	case until <= 0:
		return "", false, false
	case until < models.FinalReminderWindow:
		return "closing soon", true, true
	case until < time.Hour:
		return fmt.Sprintf("%d minutes left", int(until/time.Minute)), false, true
	case until < 24*time.Hour:
		hours := int(until / time.Hour)
		return fmt.Sprintf("%d %s left", hours, plural("hour", hours)), false, true
	default:
		days := int(until / (24 * time.Hour))
		return fmt.Sprintf("%d %s left", days, plural("day", days)), false, true
	}
}

func plural(unit string, n int) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
