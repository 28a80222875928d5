package bot

import (
	"context"
	"strconv"
	"strings"

	"nearnio/internal/events"
	"nearnio/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) startSetup(ctx context.Context, userID, chatID int64) {
	state := &models.SetupState{
		UserID:      userID,
		ChatID:      chatID,
		CurrentStep: models.StateSelectType,
	}
	if err := b.states.SetState(ctx, state); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to save setup state")
		b.reply(chatID, "Something went wrong, try again later\\.")
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Bounties", callbackSetupType+models.ProjectTypeBounty),
			tgbotapi.NewInlineKeyboardButtonData("🛠 Projects", callbackSetupType+models.ProjectTypeProject),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌐 Both", callbackSetupType+models.ProjectTypeAll),
		),
	)
	b.replyWithKeyboard(chatID, "*Step 1/4*: what kind of listings do you want?", keyboard)
}

func (b *Bot) handleSetupTypeSelected(ctx context.Context, state *models.SetupState, projectType string) {
	switch projectType {
	case models.ProjectTypeBounty, models.ProjectTypeProject, models.ProjectTypeAll:
	default:
		return
	}

	state.Draft.ProjectType = projectType
	state.CurrentStep = models.StateSelectCategories
	if err := b.states.SetState(ctx, state); err != nil {
		b.logger.Error().Err(err).Int64("user_id", state.UserID).Msg("Failed to save setup state")
		return
	}

	b.replyWithKeyboard(state.ChatID, "*Step 2/4*: pick categories, then hit Done\\.", b.categoryKeyboard(state))
}

func (b *Bot) handleSetupCategoryToggled(ctx context.Context, state *models.SetupState, category string) {
	if !isValidCategory(category) {
		return
	}

	idx := -1
	for i, c := range state.Draft.Categories {
		if c == category {
			idx = i
			break
		}
	}
	if idx >= 0 {
		state.Draft.Categories = append(state.Draft.Categories[:idx], state.Draft.Categories[idx+1:]...)
	} else {
		state.Draft.Categories = append(state.Draft.Categories, category)
	}

	if err := b.states.SetState(ctx, state); err != nil {
		b.logger.Error().Err(err).Int64("user_id", state.UserID).Msg("Failed to save setup state")
		return
	}

	b.replyWithKeyboard(state.ChatID, "*Step 2/4*: pick categories, then hit Done\\.", b.categoryKeyboard(state))
}

func (b *Bot) handleSetupCategoriesDone(ctx context.Context, state *models.SetupState) {
	state.CurrentStep = models.StateEnterMinBounty
	if err := b.states.SetState(ctx, state); err != nil {
		b.logger.Error().Err(err).Int64("user_id", state.UserID).Msg("Failed to save setup state")
		return
	}
	b.reply(state.ChatID, "*Step 3/4*: minimum bounty in USD \\(send `0` for no minimum\\)\\.")
}

func (b *Bot) handleSetupInput(ctx context.Context, state *models.SetupState, text string, chatID int64) {
	switch state.CurrentStep {
	case models.StateEnterMinBounty:
		value, err := parseAmount(text)
		if err != nil || value < 0 {
			b.reply(chatID, "That doesn't look like an amount\\. Send a number like `100`\\.")
			return
		}
		state.Draft.MinBounty = value
		state.CurrentStep = models.StateEnterMaxBounty
		if err := b.states.SetState(ctx, state); err != nil {
			b.logger.Error().Err(err).Int64("user_id", state.UserID).Msg("Failed to save setup state")
			return
		}
		b.reply(chatID, "*Step 4/4*: maximum bounty in USD, or `skip` for no cap\\.")

	case models.StateEnterMaxBounty:
		if !strings.EqualFold(strings.TrimSpace(text), "skip") {
			value, err := parseAmount(text)
			if err != nil || value < 0 {
				b.reply(chatID, "Send a number like `500`, or `skip`\\.")
				return
			}
			if value < state.Draft.MinBounty {
				b.reply(chatID, "The cap can't be below your minimum\\. Try again or send `skip`\\.")
				return
			}
			state.Draft.MaxBounty = &value
		}
		b.finishSetup(ctx, state, chatID)

	default:
		// Steps 1 and 2 are keyboard-driven; stray text is ignored.
		b.reply(chatID, "Use the buttons above to continue setup\\.")
	}
}

func (b *Bot) finishSetup(ctx context.Context, state *models.SetupState, chatID int64) {
	pref := &models.UserPreference{
		UserID:      state.UserID,
		ChatID:      chatID,
		Categories:  state.Draft.Categories,
		MinBounty:   state.Draft.MinBounty,
		MaxBounty:   state.Draft.MaxBounty,
		ProjectType: state.Draft.ProjectType,
		IsActive:    true,
	}

	if err := b.prefs.SavePreference(ctx, pref); err != nil {
		b.logger.Error().Err(err).Int64("user_id", state.UserID).Msg("Failed to save preference")
		b.reply(chatID, "Something went wrong, try again later\\.")
		return
	}
	if err := b.states.ClearState(ctx, state.UserID); err != nil {
		b.logger.Error().Err(err).Int64("user_id", state.UserID).Msg("Failed to clear setup state")
	}

	if b.eventBus != nil {
		_ = b.eventBus.PublishJSON(events.EventPreferenceSaved, events.PreferenceSavedPayload{
			UserID:      pref.UserID,
			ProjectType: pref.ProjectType,
			Categories:  pref.Categories,
		})
	}

	b.reply(chatID, "✅ *You're all set\\!*\n\n"+formatPreference(pref, 0))
}

func (b *Bot) categoryKeyboard(state *models.SetupState) tgbotapi.InlineKeyboardMarkup {
	selected := make(map[string]bool, len(state.Draft.Categories))
	for _, c := range state.Draft.Categories {
		selected[c] = true
	}

	var buttons []tgbotapi.InlineKeyboardButton
	for _, category := range validCategories {
		label := category
		if selected[category] {
			label = "✅ " + category
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(label, callbackSetupCat+category))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		buttons[:2],
		buttons[2:],
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Done ➡️", callbackSetupCatDone),
		),
	)
}

func isValidCategory(category string) bool {
	for _, c := range validCategories {
		if c == category {
			return true
		}
	}
	return false
}

func parseAmount(text string) (float64, error) {
	cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "$"))
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	return strconv.ParseFloat(cleaned, 64)
}
