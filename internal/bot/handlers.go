package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gym-bot/internal/payment"
	"gym-bot/internal/store"
)

// maxWebhookBody bounds the request bodies read by the webhook handlers.
const maxWebhookBody = 1 << 20

// HandleStripeWebhook settles the dues paid through a checkout link. A
// redelivered event is acknowledged without being applied again.
func (t *TelegramBot) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if t.payments == nil {
		t.logger.Error("Stripe webhook received but payments are not configured")
		http.Error(w, "Webhook not configured", http.StatusInternalServerError)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		t.logger.Errorw("Failed to read webhook body", "error", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		t.logger.Error("Missing Stripe signature header")
		http.Error(w, "Missing signature", http.StatusBadRequest)
		return
	}

	event, err := t.payments.VerifyWebhookSignature(body, signature)
	if err != nil {
		t.logger.Errorw("Failed to verify webhook signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	if event.Type != payment.EventCheckoutCompleted {
		t.logger.Debugw("Ignoring Stripe event", "type", event.Type, "event_id", event.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	checkout, err := payment.ParseCheckoutCompleted(event)
	if err != nil {
		t.logger.Errorw("Failed to parse checkout session", "event_id", event.ID, "error", err)
		http.Error(w, "Failed to parse event data", http.StatusBadRequest)
		return
	}

	if err := t.applyCheckout(r, checkout); err != nil {
		t.logger.Errorw("Failed to apply checkout", "event_id", checkout.EventID, "user_id", checkout.UserID, "error", err)
		http.Error(w, "Failed to process event", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Webhook received"))
}

func (t *TelegramBot) applyCheckout(r *http.Request, c payment.Checkout) error {
	ctx := r.Context()
	if !c.Paid {
		t.logger.Infow("Checkout completed without payment", "session_id", c.SessionID, "user_id", c.UserID)
		return t.ledger.UpdatePaymentStatus(ctx, c.SessionID, "unpaid")
	}

	first, err := t.ledger.ClaimEvent(ctx, c.EventID)
	if err != nil {
		return fmt.Errorf("claim event: %w", err)
	}
	if !first {
		t.logger.Infow("Duplicate Stripe event ignored", "event_id", c.EventID)
		return nil
	}

	due, err := t.store.SettlePaidAmount(ctx, c.UserID, "Stripe", int(c.Amount))
	switch {
	case errors.Is(err, store.ErrAmountMismatch):
		t.logger.Warnw("Online payment does not match dues", "user_id", c.UserID, "session_id", c.SessionID, "error", err)
		t.setCheckoutStatus(ctx, c.SessionID, "review")
		_ = t.notify(c.UserID, fmt.Sprintf("✅ *Payment Received*\n%s\n\nWe received %s. The front desk will confirm your balance shortly.",
			rule, rupees(int(c.Amount))), nil)
		if t.adminID != 0 {
			_ = t.notify(t.adminID, fmt.Sprintf("⚠️ *Payment Needs Review*\n👤 User `%d` paid %s via Stripe, which does not match the dues on record. The dues were left unchanged.",
				c.UserID, rupees(int(c.Amount))), nil)
		}
		return nil
	case errors.Is(err, store.ErrNoDues):
		t.logger.Warnw("Online payment for a member without dues", "user_id", c.UserID, "session_id", c.SessionID)
	case err != nil:
		if rerr := t.ledger.ReleaseEvent(ctx, c.EventID); rerr != nil {
			t.logger.Errorw("Failed to release Stripe event", "event_id", c.EventID, "error", rerr)
		}
		return fmt.Errorf("settle dues: %w", err)
	}
	t.setCheckoutStatus(ctx, c.SessionID, "paid")
	t.logger.Infow("Dues paid online", "user_id", c.UserID, "amount", c.Amount, "session_id", c.SessionID)

	_ = t.notify(c.UserID, fmt.Sprintf("✅ *Payment Received*\n%s\n\nThank you! We received %s and your dues are cleared. 💪",
		rule, rupees(int(c.Amount))), nil)
	if t.adminID != 0 {
		name := orDefault(due.Member.FullName, fmt.Sprintf("User %d", c.UserID))
		_ = t.notify(t.adminID, fmt.Sprintf("💳 *Online Payment*\n👤 %s (`%d`) paid %s via Stripe.",
			name, c.UserID, rupees(int(c.Amount))), nil)
	}
	return nil
}

func (t *TelegramBot) setCheckoutStatus(ctx context.Context, sessionID, status string) {
	if err := t.ledger.UpdatePaymentStatus(ctx, sessionID, status); err != nil {
		t.logger.Warnw("Failed to update checkout status", "session_id", sessionID, "status", status, "error", err)
	}
}

// HandleTelegramWebhook accepts updates pushed by Telegram in webhook mode.
func (t *TelegramBot) HandleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&update); err != nil {
		t.logger.Warnw("Malformed Telegram update", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	t.inflight.Add(1)
	defer t.inflight.Done()
	t.HandleUpdate(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}
