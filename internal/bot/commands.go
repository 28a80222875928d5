package bot

import (
	"context"

	"nearnio/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const welcomeText = `👋 *Welcome to the Nearn bounty bot\!*

I watch the listing board and ping you when something matching your filters shows up\.

/setup configure what you want to hear about
/preferences show your current filters
/pause stop notifications without losing filters
/resume turn notifications back on
/stop delete your subscription
/help this message`

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	userID := message.From.ID
	chatID := message.Chat.ID

	if b.metrics != nil {
		b.metrics.MessagesProcessed.Inc()
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	// Bare text only means something mid-setup.
	state, err := b.states.GetState(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load setup state")
		return
	}
	if state == nil {
		b.reply(chatID, "Not sure what you mean\\. Try /help\\.")
		return
	}

	b.handleSetupInput(ctx, state, message.Text, chatID)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID
	command := message.Command()

	if b.metrics != nil {
		b.metrics.CommandsProcessed.WithLabelValues(command).Inc()
	}

	switch command {
	case "start", "help":
		b.reply(chatID, welcomeText)

	case "setup":
		b.startSetup(ctx, userID, chatID)

	case "preferences":
		b.handlePreferences(ctx, userID, chatID)

	case "pause":
		b.setActive(ctx, userID, chatID, false)

	case "resume":
		b.setActive(ctx, userID, chatID, true)

	case "stop":
		b.handleStop(ctx, userID, chatID)

	default:
		b.reply(chatID, "Unknown command\\. Try /help\\.")
	}
}

func (b *Bot) handlePreferences(ctx context.Context, userID, chatID int64) {
	pref, err := b.prefs.GetPreference(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load preference")
		b.reply(chatID, "Something went wrong, try again later\\.")
		return
	}
	if pref == nil {
		b.reply(chatID, "You have no subscription yet\\. Run /setup to create one\\.")
		return
	}

	deliveries, err := b.ledger.CountDeliveries(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to count deliveries")
	}

	b.reply(chatID, formatPreference(pref, deliveries))
}

func (b *Bot) setActive(ctx context.Context, userID, chatID int64, active bool) {
	pref, err := b.prefs.GetPreference(ctx, userID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load preference")
		b.reply(chatID, "Something went wrong, try again later\\.")
		return
	}
	if pref == nil {
		b.reply(chatID, "You have no subscription yet\\. Run /setup to create one\\.")
		return
	}

	if err := b.prefs.SetPreferenceActive(ctx, userID, active); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to update preference")
		b.reply(chatID, "Something went wrong, try again later\\.")
		return
	}

	if active {
		b.reply(chatID, "▶️ Notifications resumed\\.")
	} else {
		b.reply(chatID, "⏸ Notifications paused\\. Run /resume to turn them back on\\.")
	}
}

func (b *Bot) handleStop(ctx context.Context, userID, chatID int64) {
	if err := b.prefs.DeletePreference(ctx, userID); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to delete preference")
		b.reply(chatID, "Something went wrong, try again later\\.")
		return
	}
	if err := b.states.ClearState(ctx, userID); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to clear setup state")
	}
	b.reply(chatID, "Your subscription is gone\\. Run /setup any time to start over\\.")
}

// validCategories in display order for the setup keyboard.
var validCategories = []string{
	models.CategoryDevelopment,
	models.CategoryDesign,
	models.CategoryContent,
	models.CategoryOther,
}
