package service

import (
	"context"
	"fmt"
	"time"

	"nearnio/internal/domain"
	"nearnio/internal/events"
	"nearnio/internal/matcher"
	"nearnio/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ListingRenderer turns a matched listing into the outbound message body and
// its inline keyboard. The bot package owns the actual MarkdownV2 formatting.
type ListingRenderer interface {
	RenderListing(listing *models.Listing) (string, *tgbotapi.InlineKeyboardMarkup)
}

// NotifyService fans freshly synced listings out to the subscribers whose
// preferences match. The delivery ledger is the only exactly-once authority;
// the checkpoint merely narrows the candidate window and is advanced to the
// run's start instant only after a fully clean run, so a crashed or partially
// failed run re-examines the same window next time.
type NotifyService struct {
	catalog     domain.CatalogStore
	prefs       domain.PreferenceStore
	ledger      domain.DeliveryLedger
	oracle      domain.PriceOracle
	dispatcher  domain.Dispatcher
	renderer    ListingRenderer
	checkpoints domain.CheckpointStore
	bus         domain.EventPublisher
	limiter     *rate.Limiter
	lookback    time.Duration
	logger      *zerolog.Logger
}

func NewNotifyService(
	catalog domain.CatalogStore,
	prefs domain.PreferenceStore,
	ledger domain.DeliveryLedger,
	oracle domain.PriceOracle,
	dispatcher domain.Dispatcher,
	renderer ListingRenderer,
	checkpoints domain.CheckpointStore,
	bus domain.EventPublisher,
	sendDelay time.Duration,
	lookback time.Duration,
	logger *zerolog.Logger,
) *NotifyService {
	if sendDelay <= 0 {
		sendDelay = models.DefaultSendDelay
	}
	if lookback <= 0 {
		lookback = models.DefaultNotifyLookback
	}
	return &NotifyService{
		catalog:     catalog,
		prefs:       prefs,
		ledger:      ledger,
		oracle:      oracle,
		dispatcher:  dispatcher,
		renderer:    renderer,
		checkpoints: checkpoints,
		bus:         bus,
		limiter:     rate.NewLimiter(rate.Every(sendDelay), 1),
		lookback:    lookback,
		logger:      logger,
	}
}

// Notify implements domain.NotifyRunner and returns the number of successful
// sends this run was credited with.
func (s *NotifyService) Notify(ctx context.Context) (int, error) {
	start := time.Now().UTC()

	since, found, err := s.checkpoints.GetCheckpoint(ctx, models.CheckpointNotify)
	if err != nil {
		return 0, fmt.Errorf("load notify checkpoint: %w", err)
	}
	if !found {
		since = start.Add(-s.lookback)
	}

	listings, err := s.catalog.GetListingsSyncedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("load synced listings: %w", err)
	}
	if len(listings) == 0 {
		if err := s.checkpoints.AdvanceCheckpoint(ctx, models.CheckpointNotify, start); err != nil {
			return 0, fmt.Errorf("advance notify checkpoint: %w", err)
		}
		return 0, nil
	}

	preferences, err := s.prefs.GetActivePreferences(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active preferences: %w", err)
	}
	if len(preferences) == 0 {
		if err := s.checkpoints.AdvanceCheckpoint(ctx, models.CheckpointNotify, start); err != nil {
			return 0, fmt.Errorf("advance notify checkpoint: %w", err)
		}
		return 0, nil
	}

	s.oracle.ConvertToUSD(ctx, listings)

	sent := 0
	failed := 0
	for _, listing := range listings {
		for _, pref := range preferences {
			if err := ctx.Err(); err != nil {
				return sent, err
			}

			resolved := matcher.ResolveProjectType(listing, pref)
			if !matcher.Matches(listing, resolved) {
				continue
			}

			delivered, err := s.ledger.HasDelivered(ctx, pref.UserID, listing.ID)
			if err != nil {
				return sent, fmt.Errorf("check delivery ledger: %w", err)
			}
			if delivered {
				continue
			}

			ok, err := s.deliver(ctx, pref, listing)
			if err != nil {
				return sent, err
			}
			if ok {
				sent++
			} else {
				failed++
			}
		}
	}

	// A failed send leaves the window open so the pair is retried by the
	// next run; the ledger keeps retries from turning into duplicates.
	if failed == 0 {
		if err := s.checkpoints.AdvanceCheckpoint(ctx, models.CheckpointNotify, start); err != nil {
			return sent, fmt.Errorf("advance notify checkpoint: %w", err)
		}
	}

	s.logger.Info().
		Int("listings", len(listings)).
		Int("subscribers", len(preferences)).
		Int("sent", sent).
		Int("failed", failed).
		Msg("notification run complete")

	return sent, nil
}

// deliver sends one notification and records the outcome. It returns whether
// this run won the success record; transport failures are recorded and
// swallowed so one broken chat cannot abort the whole run.
func (s *NotifyService) deliver(ctx context.Context, pref *models.UserPreference, listing *models.Listing) (bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return false, err
	}

	text, keyboard := s.renderer.RenderListing(listing)

	if sendErr := s.dispatcher.Send(ctx, pref.ChatID, text, keyboard); sendErr != nil {
		s.logger.Warn().Err(sendErr).
			Int64("user_id", pref.UserID).
			Str("listing_id", listing.ID).
			Msg("notification send failed")
		if err := s.ledger.RecordFailure(ctx, pref.UserID, listing.ID, sendErr); err != nil {
			return false, fmt.Errorf("record delivery failure: %w", err)
		}
		s.publishOutcome(pref.UserID, listing.ID, false, sendErr)
		return false, nil
	}

	won, err := s.ledger.RecordSuccess(ctx, pref.UserID, listing.ID)
	if err != nil {
		return false, fmt.Errorf("record delivery success: %w", err)
	}
	if !won {
		// An overlapping run got there first; the message went out twice
		// but only one run counts it.
		s.logger.Debug().
			Int64("user_id", pref.UserID).
			Str("listing_id", listing.ID).
			Msg("delivery already recorded by concurrent run")
		return false, nil
	}

	s.publishOutcome(pref.UserID, listing.ID, true, nil)
	return true, nil
}

func (s *NotifyService) publishOutcome(userID int64, listingID string, success bool, sendErr error) {
	if s.bus == nil {
		return
	}
	payload := events.NotificationSentPayload{
		UserID:    userID,
		ListingID: listingID,
		Success:   success,
	}
	if sendErr != nil {
		payload.Error = sendErr.Error()
	}
	_ = s.bus.PublishJSON(events.EventNotificationSent, payload)
}
