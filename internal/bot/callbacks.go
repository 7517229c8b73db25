package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gym-bot/internal/models"
	"gym-bot/internal/nav"
	"gym-bot/internal/store"
)

var editFields = map[string]store.Field{
	"editname":  store.FieldName,
	"editphone": store.FieldPhone,
	"editaddr":  store.FieldAddress,
}

// handleCallbackQuery serves the inline buttons. They all act on other
// members, so only the admin may press them. Data is "<action>_<arg>".
func (t *TelegramBot) handleCallbackQuery(ctx context.Context, sess *nav.Session, cq *tgbotapi.CallbackQuery) error {
	answer := ""
	defer func() {
		if _, err := t.messenger.Request(tgbotapi.NewCallback(cq.ID, answer)); err != nil {
			t.logger.Warnw("Failed to answer callback", "callback_id", cq.ID, "error", err)
		}
	}()

	if !t.isAdmin(cq.From.ID) {
		t.logger.Warnw("Callback from non-admin ignored", "user_id", cq.From.ID, "data", cq.Data)
		answer = "⛔ Admin only"
		return nil
	}

	chatID, messageID := cq.From.ID, 0
	if cq.Message != nil {
		chatID, messageID = cq.Message.Chat.ID, cq.Message.MessageID
	}

	action, arg, _ := strings.Cut(cq.Data, "_")
	switch action {
	case "blkr":
		return t.bulkRemind(ctx, sess, chatID, messageID, arg)
	case "blkm":
		return t.bulkMessage(sess, chatID, messageID, arg)
	}

	target, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		t.logger.Warnw("Malformed callback data", "data", cq.Data)
		answer = "Invalid action"
		return nil
	}

	switch action {
	case "appr":
		return t.approve(ctx, chatID, messageID, target)
	case "reje", "deac":
		return t.deactivate(ctx, chatID, messageID, target, action == "reje")
	case "delm":
		return t.deleteMember(ctx, chatID, messageID, target)
	case "renw":
		sess.Flow = nav.AwaitingRenewalAmount{Target: target}
		return t.reply(chatID, fmt.Sprintf("🔄 *Renewing Member* `%d`\n\nStep 1/2: Please enter the *Amount Paid* (₹):", target),
			nav.CancelKeyboard())
	case "paid":
		return t.markPaid(ctx, chatID, messageID, target)
	case "notpaid":
		t.editOrSend(chatID, messageID, fmt.Sprintf("⏰ *Payment Reminder Dismissed*\n%s\n\n"+
			"The payment is still pending. You can follow up manually when needed.", rule))
		t.logger.Infow("Payment reminder dismissed", "user_id", target)
		return nil
	}

	if field, ok := editFields[action]; ok {
		sess.Flow = nav.AwaitingEdit{Target: target, Field: field}
		return t.reply(chatID, fmt.Sprintf("✏️ Enter the new *%s* for `%d`:", fieldLabels[field], target), nav.CancelKeyboard())
	}

	t.logger.Warnw("Unknown callback action", "data", cq.Data)
	answer = "Unknown action"
	return nil
}

// editOrSend replaces the pressed message, or sends a new one when the
// callback carries no message.
func (t *TelegramBot) editOrSend(chatID int64, messageID int, text string) {
	if messageID == 0 {
		_ = t.notify(chatID, text, nil)
		return
	}
	t.edit(chatID, messageID, text)
}

// approve activates a member. Approving an active member changes nothing
// and sends no second welcome.
func (t *TelegramBot) approve(ctx context.Context, chatID int64, messageID int, target int64) error {
	m, err := t.store.GetMember(ctx, target)
	switch {
	case errors.Is(err, store.ErrMemberNotFound):
		t.editOrSend(chatID, messageID, fmt.Sprintf("❌ User `%d` no longer exists.", target))
		return nil
	case err != nil:
		t.editOrSend(chatID, messageID, t.unavailable("Membership", err))
		return nil
	case m.Status == models.StatusActive:
		t.editOrSend(chatID, messageID, fmt.Sprintf("ℹ️ User `%d` is already *Active*.", target))
		return nil
	}

	m, err = t.store.UpdateMemberStatus(ctx, target, string(models.StatusActive))
	if err != nil {
		t.editOrSend(chatID, messageID, t.unavailable("Membership", err))
		return nil
	}
	t.logger.Infow("Member approved", "user_id", target)
	t.editOrSend(chatID, messageID, fmt.Sprintf("✅ User `%d` has been *Approved*.", target))

	_ = t.notify(target, fmt.Sprintf("🎊 *Congratulations!*\nYour membership at *%s* has been approved! "+
		"Welcome to the family! 💪\n\nUse the menu below to get started.", t.store.GymInfo(ctx).GymName),
		replyKeyboard(nav.SelectKeyboard(nav.MainMenu, t.memberViewer(m))))
	return nil
}

func (t *TelegramBot) deactivate(ctx context.Context, chatID int64, messageID int, target int64, reject bool) error {
	verb := "Deactivated"
	if reject {
		verb = "Rejected"
	}
	m, err := t.store.GetMember(ctx, target)
	switch {
	case errors.Is(err, store.ErrMemberNotFound):
		t.editOrSend(chatID, messageID, fmt.Sprintf("❌ User `%d` no longer exists.", target))
		return nil
	case err != nil:
		t.editOrSend(chatID, messageID, t.unavailable("Membership", err))
		return nil
	case m.Status == models.StatusInactive:
		t.editOrSend(chatID, messageID, fmt.Sprintf("ℹ️ User `%d` is already *Inactive*.", target))
		return nil
	}

	if _, err := t.store.UpdateMemberStatus(ctx, target, string(models.StatusInactive)); err != nil {
		t.editOrSend(chatID, messageID, t.unavailable("Membership", err))
		return nil
	}
	t.logger.Infow("Member deactivated", "user_id", target, "rejected", reject)
	t.editOrSend(chatID, messageID, fmt.Sprintf("🚫 User `%d` has been *%s*.", target, verb))

	_ = t.notify(target, "⚠️ *Membership Update*\nYour membership status has been updated to *Inactive*.\n"+
		"Please contact the gym admin for details.", removeKeyboard())
	return nil
}

func (t *TelegramBot) deleteMember(ctx context.Context, chatID int64, messageID int, target int64) error {
	err := t.store.DeleteMember(ctx, target)
	switch {
	case errors.Is(err, store.ErrMemberNotFound):
		t.editOrSend(chatID, messageID, fmt.Sprintf("❌ User `%d` no longer exists.", target))
	case err != nil:
		t.editOrSend(chatID, messageID, t.unavailable("Membership", err))
	default:
		t.logger.Infow("Member deleted", "user_id", target)
		t.editOrSend(chatID, messageID, fmt.Sprintf("🗑 User `%d` has been *Deleted Permanently*.", target))
	}
	return nil
}

func (t *TelegramBot) markPaid(ctx context.Context, chatID int64, messageID int, target int64) error {
	due, err := t.store.MarkDueAsPaid(ctx, target, "Cash")
	switch {
	case errors.Is(err, store.ErrNoDues):
		t.editOrSend(chatID, messageID, fmt.Sprintf("ℹ️ User `%d` has no outstanding dues.", target))
		return nil
	case err != nil:
		t.editOrSend(chatID, messageID, "❌ Failed to update payment status. Please try again or update manually.")
		t.logger.Errorw("Failed to mark payment as paid", "user_id", target, "error", err)
		return nil
	}
	t.logger.Infow("Payment marked as paid", "user_id", target)
	t.editOrSend(chatID, messageID, fmt.Sprintf("✅ *Payment Marked as Paid*\n%s\n\n👤 *Member*: %s\n"+
		"💰 *Due Amount*: ₹0 (Cleared)\n\nPayment record updated successfully!", rule, orDefault(due.Member.FullName, "Member")))
	return nil
}

// bulkTargets returns the targets of the last report when it was of the
// given category.
func bulkTargets(sess *nav.Session, category string) []int64 {
	if sess.Bulk.Category != category {
		return nil
	}
	return sess.Bulk.Targets
}

func (t *TelegramBot) bulkRemind(ctx context.Context, sess *nav.Session, chatID int64, messageID int, category string) error {
	template, ok := bulkTemplates[category]
	targets := bulkTargets(sess, category)
	if !ok || len(targets) == 0 {
		t.editOrSend(chatID, messageID, "❌ No target users found.")
		return nil
	}

	names := make(map[int64]string)
	if members, err := t.store.ListMembers(ctx); err == nil {
		for _, m := range members {
			names[m.UserID] = m.FullName
		}
	} else {
		t.logger.Warnw("Member names unavailable for reminders", "error", err)
	}

	sent, _ := t.deliver(targets, func(uid int64) string {
		return fmt.Sprintf(template, orDefault(names[uid], "there"))
	})
	t.logger.Infow("Bulk reminders delivered", "category", category, "sent", sent, "targets", len(targets))
	t.editOrSend(chatID, messageID, fmt.Sprintf("✅ *Reminders Sent*: %d/%d members notified.", sent, len(targets)))
	return nil
}

func (t *TelegramBot) bulkMessage(sess *nav.Session, chatID int64, messageID int, category string) error {
	targets := bulkTargets(sess, category)
	if len(targets) == 0 {
		t.editOrSend(chatID, messageID, "❌ No target users found.")
		return nil
	}
	sess.Flow = nav.AwaitingTargetedBroadcast{Targets: append([]int64(nil), targets...)}
	return t.reply(chatID, fmt.Sprintf("📢 *Targeted Messaging*\nRecipients: %d members\n\n✍️ *Please type the custom message*:", len(targets)),
		nav.CancelKeyboard())
}
