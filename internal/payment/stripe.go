// internal/payment/stripe.go
package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/webhook"
)

// EventCheckoutCompleted is the webhook event that settles dues.
const EventCheckoutCompleted = "checkout.session.completed"

var ErrNotConfigured = errors.New("stripe is not configured")

type Options struct {
	SecretKey  string
	WebhookKey string
	Currency   string
	SuccessURL string
	CancelURL  string
}

type StripeClient struct {
	secretKey     string
	webhookSecret string
	currency      string
	successURL    string
	cancelURL     string

	// newSession is session.New, replaced in tests.
	newSession func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewStripeClient(opts Options) *StripeClient {
	stripe.Key = opts.SecretKey

	currency := strings.ToLower(opts.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyINR)
	}
	return &StripeClient{
		secretKey:     opts.SecretKey,
		webhookSecret: opts.WebhookKey,
		currency:      currency,
		successURL:    opts.SuccessURL,
		cancelURL:     opts.CancelURL,
		newSession:    session.New,
	}
}

// Enabled reports whether checkout links can be created.
func (s *StripeClient) Enabled() bool {
	return s != nil && s.secretKey != "" && s.successURL != "" && s.cancelURL != ""
}

func (s *StripeClient) Currency() string { return s.currency }

// CreateDuesCheckout opens a checkout session for amount (whole currency
// units) owed by userID and returns its ID and URL.
func (s *StripeClient) CreateDuesCheckout(userID int64, amount int, description string) (string, string, error) {
	if !s.Enabled() {
		return "", "", ErrNotConfigured
	}
	if amount <= 0 {
		return "", "", fmt.Errorf("invalid checkout amount %d", amount)
	}
	if stripe.Key != s.secretKey {
		stripe.Key = s.secretKey
	}

	uid := strconv.FormatInt(userID, 10)
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
					UnitAmount: stripe.Int64(int64(amount) * 100),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(uid),
	}
	params.AddMetadata("user_id", uid)

	sess, err := s.newSession(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return sess.ID, sess.URL, nil
}

func (s *StripeClient) VerifyWebhookSignature(payload []byte, sig string) (stripe.Event, error) {
	if s == nil || s.webhookSecret == "" {
		return stripe.Event{}, fmt.Errorf("webhook secret is not configured")
	}
	return webhook.ConstructEvent(payload, sig, s.webhookSecret)
}

// Checkout is the part of a completed checkout session the bot needs.
type Checkout struct {
	EventID   string
	SessionID string
	UserID    int64
	// Amount is in whole currency units.
	Amount int64
	Paid   bool
}

// ParseCheckoutCompleted decodes a checkout.session.completed event.
func ParseCheckoutCompleted(event stripe.Event) (Checkout, error) {
	if event.Type != EventCheckoutCompleted {
		return Checkout{}, fmt.Errorf("unexpected event type %q", event.Type)
	}
	if event.Data == nil {
		return Checkout{}, errors.New("event has no data")
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return Checkout{}, fmt.Errorf("decode checkout session: %w", err)
	}

	ref := sess.ClientReferenceID
	if ref == "" {
		ref = sess.Metadata["user_id"]
	}
	uid, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return Checkout{}, fmt.Errorf("checkout %s has no user reference", sess.ID)
	}
	return Checkout{
		EventID:   event.ID,
		SessionID: sess.ID,
		UserID:    uid,
		Amount:    sess.AmountTotal / 100,
		Paid:      sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}, nil
}
