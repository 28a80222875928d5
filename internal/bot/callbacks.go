package bot

import (
	"context"
	"errors"
	"strings"

	"nearnio/internal/database"
	"nearnio/internal/models"
	"nearnio/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) {
	callback := update.CallbackQuery
	data := callback.Data
	userID := callback.From.ID

	// Answer immediately so the client stops showing the spinner.
	if err := b.tg.AnswerCallback(callback.ID, ""); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to answer callback")
	}

	switch {
	case strings.HasPrefix(data, callbackAddReminder):
		listingID := strings.TrimPrefix(data, callbackAddReminder)
		b.handleAddReminder(ctx, userID, callback.Message.Chat.ID, listingID)

	case strings.HasPrefix(data, callbackStopReminder):
		listingID := strings.TrimPrefix(data, callbackStopReminder)
		b.handleStopReminder(ctx, userID, callback.Message.Chat.ID, listingID)

	case strings.HasPrefix(data, callbackSetupType), strings.HasPrefix(data, callbackSetupCat), data == callbackSetupCatDone:
		b.handleSetupCallback(ctx, userID, callback.Message.Chat.ID, data)

	default:
		b.logger.Debug().Str("data", data).Msg("Unknown callback")
	}
}

func (b *Bot) handleAddReminder(ctx context.Context, userID, chatID int64, listingID string) {
	err := b.reminders.AddReminder(ctx, userID, listingID)
	switch {
	case err == nil:
		b.reply(chatID, "⏰ Reminder set\\. I'll nudge you as the deadline approaches\\.")
	case errors.Is(err, database.ErrReminderActive):
		b.reply(chatID, "You already have a reminder for this one\\.")
	case errors.Is(err, service.ErrDeadlinePassed):
		b.reply(chatID, "That deadline has already passed\\.")
	case errors.Is(err, service.ErrListingNotFound):
		b.reply(chatID, "I can't find that listing anymore\\.")
	default:
		b.logger.Error().Err(err).Int64("user_id", userID).Str("listing_id", listingID).Msg("Failed to add reminder")
		b.reply(chatID, "Something went wrong, try again later\\.")
	}
}

func (b *Bot) handleStopReminder(ctx context.Context, userID, chatID int64, listingID string) {
	if err := b.reminders.CancelReminder(ctx, userID, listingID); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Str("listing_id", listingID).Msg("Failed to cancel reminder")
		b.reply(chatID, "Something went wrong, try again later\\.")
		return
	}
	b.reply(chatID, "🔕 Reminder stopped\\.")
}

func (b *Bot) handleSetupCallback(ctx context.Context, userID, chatID int64, data string) {
	state, err := b.states.GetState(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load setup state")
		return
	}
	if state == nil {
		// Expired session or a stale keyboard from a finished setup.
		b.reply(chatID, "That setup session expired\\. Run /setup to start again\\.")
		return
	}

	switch {
	case strings.HasPrefix(data, callbackSetupType):
		if state.CurrentStep != models.StateSelectType {
			return
		}
		b.handleSetupTypeSelected(ctx, state, strings.TrimPrefix(data, callbackSetupType))

	case strings.HasPrefix(data, callbackSetupCat):
		if state.CurrentStep != models.StateSelectCategories {
			return
		}
		b.handleSetupCategoryToggled(ctx, state, strings.TrimPrefix(data, callbackSetupCat))

	case data == callbackSetupCatDone:
		if state.CurrentStep != models.StateSelectCategories {
			return
		}
		b.handleSetupCategoriesDone(ctx, state)
	}
}
