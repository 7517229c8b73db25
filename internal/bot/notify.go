package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gym-bot/internal/store"
)

// NotifyAdminDue tells the admin that a member's balance falls due, with
// buttons to settle or dismiss it.
func (t *TelegramBot) NotifyAdminDue(ctx context.Context, due store.Due) error {
	if t.adminID == 0 {
		return nil
	}
	m, p := due.Member, due.Payment
	id := strconv.FormatInt(m.UserID, 10)
	text := fmt.Sprintf("💰 *PAYMENT DUE REMINDER*\n%s\n\n👤 *Member*: %s\n🆔 *User ID*: `%d`\n📞 *Phone*: %s\n"+
		"💳 *Plan*: %s\n\n💵 *Amount Due*: %s\n📅 *Due Date*: %s\n\nHas this member paid?",
		rule, m.FullName, m.UserID, orDefault(m.Phone, "N/A"), orDefault(p.Plan, m.Plan), rupees(p.DueAmount), p.DueDate)
	return t.send(t.adminID, text, inlineKeyboard(
		[]button{{"✅ Paid", "paid_" + id}, {"❌ Not Paid", "notpaid_" + id}},
	))
}

// NotifyMemberDue reminds the member. When online payments are enabled the
// message carries a checkout link for the balance.
func (t *TelegramBot) NotifyMemberDue(ctx context.Context, due store.Due) error {
	m, p := due.Member, due.Payment
	text := fmt.Sprintf("💰 *Payment Reminder*\n%s\n\nHi %s! 👋\n\nThis is a friendly reminder that your payment is due tomorrow.\n\n"+
		"💵 *Amount Due*: %s\n📅 *Due Date*: %s\n\nPlease clear your dues at the front desk. Thank you! 🙏",
		rule, orDefault(m.FullName, "there"), rupees(p.DueAmount), p.DueDate)

	var markup interface{}
	if url := t.duesCheckout(ctx, m.UserID, p.DueAmount); url != "" {
		text += "\n\nOr pay online with the button below."
		markup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💳 Pay Online", url),
		))
	}
	return t.send(m.UserID, text, markup)
}

// duesCheckout opens a Stripe checkout for amount and records it. It
// returns "" when payments are off or the session cannot be created.
func (t *TelegramBot) duesCheckout(ctx context.Context, userID int64, amount int) string {
	if t.payments == nil || !t.payments.Enabled() || amount <= 0 {
		return ""
	}
	sessionID, url, err := t.payments.CreateDuesCheckout(userID, amount, "Gym membership dues")
	if err != nil {
		t.logger.Warnw("Failed to create dues checkout", "user_id", userID, "error", err)
		return ""
	}
	if err := t.ledger.SaveCheckout(ctx, userID, int64(amount), t.payments.Currency(), sessionID); err != nil {
		t.logger.Warnw("Failed to record dues checkout", "user_id", userID, "session_id", sessionID, "error", err)
	}
	return url
}
