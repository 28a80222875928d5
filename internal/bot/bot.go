package bot

import (
	"context"
	"os"
	"time"

	"nearnio/internal/domain"
	"nearnio/internal/events"
	"nearnio/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Callback data prefixes. The listing id travels inside the callback so a
// button keeps working long after the message that carried it.
const (
	callbackAddReminder  = "remind_"
	callbackStopReminder = "stop_reminder_"
	callbackSetupType    = "setup_type:"
	callbackSetupCat     = "setup_cat:"
	callbackSetupCatDone = "setup_cat_done"
)

type Bot struct {
	tg        *service.TelegramService
	prefs     domain.PreferenceStore
	ledger    domain.DeliveryLedger
	reminders domain.ReminderManager
	states    domain.StateRepository
	eventBus  domain.EventPublisher
	metrics   *Metrics
	logger    *zerolog.Logger
}

func NewBot(
	tg *service.TelegramService,
	prefs domain.PreferenceStore,
	ledger domain.DeliveryLedger,
	reminders domain.ReminderManager,
	states domain.StateRepository,
	eventBus domain.EventPublisher,
	metrics *Metrics,
	logger *zerolog.Logger,
) *Bot {
	if eventBus == nil {
		eventBus = events.NewEventBus()
	}
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}

	return &Bot{
		tg:        tg,
		prefs:     prefs,
		ledger:    ledger,
		reminders: reminders,
		states:    states,
		eventBus:  eventBus,
		metrics:   metrics,
		logger:    logger,
	}
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			b.tg.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update)
			return
		}
		if update.Message == nil || update.Message.From == nil {
			return
		}
		b.handleMessage(updateCtx, update)
	})
}

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.tg.SendMarkdown(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	if err := b.tg.SendWithKeyboard(chatID, text, keyboard); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}
