package bot

import (
	"fmt"
	"strings"

	"nearnio/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// markdownV2Escaper covers every character Telegram reserves in MarkdownV2.
var markdownV2Escaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeMarkdownV2 escapes user-supplied text so it renders literally.
func EscapeMarkdownV2(text string) string {
	return markdownV2Escaper.Replace(text)
}

// Renderer builds the outbound MarkdownV2 message bodies and their inline
// keyboards. It satisfies the renderer contracts of the notify and reminder
// services.
type Renderer struct {
	baseURL string
}

func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/")}
}

func (r *Renderer) listingURL(sponsorSlug, slug string) string {
	if sponsorSlug == "" {
		return fmt.Sprintf("%s/bounties/%s", r.baseURL, slug)
	}
	return fmt.Sprintf("%s/%s/%s", r.baseURL, sponsorSlug, slug)
}

func (r *Renderer) RenderListing(listing *models.Listing) (string, *tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder

	sb.WriteString("🆕 *New ")
	sb.WriteString(EscapeMarkdownV2(listing.Type))
	sb.WriteString("*\n\n")
	sb.WriteString("*")
	sb.WriteString(EscapeMarkdownV2(listing.Title))
	sb.WriteString("*\n")

	if listing.SponsorName != "" {
		sb.WriteString("by ")
		sb.WriteString(EscapeMarkdownV2(listing.SponsorName))
		if listing.SponsorVerified {
			sb.WriteString(" ✅")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n💰 ")
	sb.WriteString(EscapeMarkdownV2(rewardLine(listing)))
	sb.WriteString("\n⏳ Deadline: ")
	sb.WriteString(EscapeMarkdownV2(listing.Deadline.UTC().Format("Jan 2, 2006 15:04 MST")))
	if listing.SubmissionCount > 0 {
		sb.WriteString(fmt.Sprintf("\n📝 %d submissions so far", listing.SubmissionCount))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 View Details", r.listingURL(listing.SponsorSlug, listing.Slug)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏰ Remind me", callbackAddReminder+listing.ID),
		),
	)
	return sb.String(), &keyboard
}

func (r *Renderer) RenderReminder(reminder *models.DueReminder) (string, *tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder

	if reminder.IsFinal {
		sb.WriteString("🚨 *Last call*\n\n")
	} else {
		sb.WriteString("⏰ *Deadline reminder*\n\n")
	}
	sb.WriteString("*")
	sb.WriteString(EscapeMarkdownV2(reminder.Title))
	sb.WriteString("*\n")
	sb.WriteString(EscapeMarkdownV2(reminder.TimeLeft))
	sb.WriteString("\n")

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 View Details", r.listingURL(reminder.SponsorSlug, reminder.ListingSlug)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔕 Stop reminders", callbackStopReminder+reminder.ListingID),
		),
	)
	return sb.String(), &keyboard
}

func rewardLine(listing *models.Listing) string {
	if listing.RewardAmount == nil {
		return "Variable compensation"
	}
	line := fmt.Sprintf("%s %s", formatAmount(*listing.RewardAmount), listing.Token)
	if listing.USDAmount > 0 && !strings.EqualFold(listing.Token, "USDC") && !strings.EqualFold(listing.Token, "USDT") {
		line += fmt.Sprintf(" (~$%s)", formatAmount(listing.USDAmount))
	}
	return line
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func formatPreference(pref *models.UserPreference, deliveries int64) string {
	var sb strings.Builder

	sb.WriteString("*Your preferences*\n\n")
	sb.WriteString("Type: ")
	sb.WriteString(EscapeMarkdownV2(pref.ProjectType))
	sb.WriteString("\nCategories: ")
	if len(pref.Categories) == 0 {
		sb.WriteString("all")
	} else {
		sb.WriteString(EscapeMarkdownV2(strings.Join(pref.Categories, ", ")))
	}
	sb.WriteString(fmt.Sprintf("\nMin bounty: $%s", EscapeMarkdownV2(formatAmount(pref.MinBounty))))
	if pref.MaxBounty != nil {
		sb.WriteString(fmt.Sprintf("\nMax bounty: $%s", EscapeMarkdownV2(formatAmount(*pref.MaxBounty))))
	}
	if pref.IsActive {
		sb.WriteString("\nStatus: active")
	} else {
		sb.WriteString("\nStatus: paused")
	}
	sb.WriteString(fmt.Sprintf("\n\nNotifications received: %d", deliveries))

	return sb.String()
}
