package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gym-bot/internal/gpt"
	"gym-bot/internal/models"
	"gym-bot/internal/nav"
	"gym-bot/internal/payment"
	"gym-bot/internal/responder"
	"gym-bot/internal/store"
	"gym-bot/pkg/logger"
)

const (
	defaultUpdateTimeout = 60 * time.Second
	defaultMonthlyFee    = 1500
)

const apology = "⚠️ Something went wrong while handling your request. Please try again in a moment."

// PaymentLedger records dues checkouts and claims Stripe events so that a
// redelivered webhook is applied once. A claim is released when applying
// the event failed, so the redelivery can try again.
type PaymentLedger interface {
	SaveCheckout(ctx context.Context, userID int64, amount int64, currency, sessionID string) error
	UpdatePaymentStatus(ctx context.Context, sessionID, status string) error
	ClaimEvent(ctx context.Context, eventID string) (bool, error)
	ReleaseEvent(ctx context.Context, eventID string) error
}

// Deps are the collaborators of the bot. Store, Responder and AI are
// required; the rest default to offline or in-memory versions.
type Deps struct {
	Store     *store.Store
	Responder *responder.Responder
	AI        *gpt.Client
	Payments  *payment.StripeClient
	Ledger    PaymentLedger
	Sessions  *nav.Sessions
}

type Options struct {
	AdminID int64
	// MonthlyFee is the per-month rate used when the fee table has none.
	MonthlyFee    int
	WebhookURL    string
	UpdateTimeout time.Duration
}

type TelegramBot struct {
	api       *tgbotapi.BotAPI
	messenger Messenger
	store     *store.Store
	responder *responder.Responder
	ai        *gpt.Client
	payments  *payment.StripeClient
	ledger    PaymentLedger
	sessions  *nav.Sessions
	validate  *validator.Validate
	logger    *logger.Logger

	adminID       int64
	monthlyFee    int
	webhookURL    string
	updateTimeout time.Duration

	inflight sync.WaitGroup
}

func NewTelegramBot(token string, deps Deps, opts Options, log *logger.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	log.Infow("Authorized on Telegram", "username", api.Self.UserName)

	t := New(api, deps, opts, log)
	t.api = api
	return t, nil
}

// New builds a bot that talks through m. It is used directly by tests.
func New(m Messenger, deps Deps, opts Options, log *logger.Logger) *TelegramBot {
	if log == nil {
		log = logger.Nop()
	}
	if deps.Ledger == nil {
		deps.Ledger = newMemoryLedger()
	}
	if deps.Sessions == nil {
		deps.Sessions = nav.NewSessions(30 * time.Minute)
	}
	if deps.AI == nil {
		deps.AI = gpt.NewClient("", log)
	}
	if opts.UpdateTimeout <= 0 {
		opts.UpdateTimeout = defaultUpdateTimeout
	}
	if opts.MonthlyFee <= 0 {
		opts.MonthlyFee = defaultMonthlyFee
	}
	return &TelegramBot{
		messenger:     m,
		store:         deps.Store,
		responder:     deps.Responder,
		ai:            deps.AI,
		payments:      deps.Payments,
		ledger:        deps.Ledger,
		sessions:      deps.Sessions,
		validate:      validator.New(),
		logger:        log.Named("bot"),
		adminID:       opts.AdminID,
		monthlyFee:    opts.MonthlyFee,
		webhookURL:    opts.WebhookURL,
		updateTimeout: opts.UpdateTimeout,
	}
}

// Start begins receiving updates: through long polling, or by registering
// the webhook when a webhook URL is configured.
func (t *TelegramBot) Start(ctx context.Context) error {
	if t.api == nil {
		return errors.New("telegram api is not initialised")
	}

	if t.webhookURL != "" {
		wh, err := tgbotapi.NewWebhook(t.webhookURL)
		if err != nil {
			return fmt.Errorf("invalid webhook url: %w", err)
		}
		if _, err := t.api.Request(wh); err != nil {
			return fmt.Errorf("failed to set webhook: %w", err)
		}
		t.logger.Infow("Webhook registered", "url", t.webhookURL)
		return nil
	}

	// First, remove any existing webhook to ensure we can use polling
	t.logger.Info("Removing any existing webhook")
	_, err := t.api.Request(tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: true,
	})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := t.api.GetUpdatesChan(updateConfig)

	t.logger.Info("Started receiving Telegram updates")

	go t.handleUpdates(ctx, updates)

	return nil
}

func (t *TelegramBot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		t.inflight.Add(1)
		go func(update tgbotapi.Update) {
			defer t.inflight.Done()
			t.HandleUpdate(ctx, update)
		}(update)
	}
}

// HandleUpdate processes one update. Updates of the same user are handled
// one at a time; a handler error is logged and answered with an apology.
func (t *TelegramBot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Errorw("Recovered from panic while processing update", "update_id", update.UpdateID, "error", r)
		}
	}()

	var userID, chatID int64
	switch {
	case update.Message != nil && update.Message.From != nil:
		userID, chatID = update.Message.From.ID, update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		userID = update.CallbackQuery.From.ID
		chatID = userID
		if update.CallbackQuery.Message != nil {
			chatID = update.CallbackQuery.Message.Chat.ID
		}
	default:
		return
	}

	ctx, cancel := context.WithTimeout(ctx, t.updateTimeout)
	defer cancel()

	sess, release := t.sessions.Acquire(userID)
	defer release()
	if sess.Menu == "" && t.isAdmin(userID) {
		sess.AdminMode = true
	}

	var err error
	if update.Message != nil {
		t.logger.Debugw("Received message", "user_id", userID, "text", update.Message.Text)
		err = t.handleMessage(ctx, sess, update.Message)
	} else {
		t.logger.Debugw("Received callback", "user_id", userID, "data", update.CallbackQuery.Data)
		err = t.handleCallbackQuery(ctx, sess, update.CallbackQuery)
	}
	if err != nil {
		t.logger.Errorw("Failed to handle update", "update_id", update.UpdateID, "user_id", userID, "error", err)
		if sendErr := t.send(chatID, apology, nil); sendErr != nil {
			t.logger.Warnw("Failed to send apology", "chat_id", chatID, "error", sendErr)
		}
	}
}

// Stop stops polling and waits for in-flight updates until ctx is done.
func (t *TelegramBot) Stop(ctx context.Context) error {
	t.logger.Info("Stopping Telegram bot")
	if t.api != nil && t.webhookURL == "" {
		t.api.StopReceivingUpdates()
	}

	done := make(chan struct{})
	go func() {
		t.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *TelegramBot) isAdmin(userID int64) bool {
	return t.adminID != 0 && userID == t.adminID
}

// viewer describes the user of sess for keyboard selection. A store that
// cannot be read leaves the user unregistered.
func (t *TelegramBot) viewer(ctx context.Context, sess *nav.Session) (nav.Viewer, models.Member) {
	v := nav.Viewer{Admin: t.isAdmin(sess.UserID), AdminMode: sess.AdminMode}
	m, err := t.store.GetMember(ctx, sess.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrMemberNotFound) && !errors.Is(err, store.ErrOffline) {
			t.logger.Warnw("Member lookup failed", "user_id", sess.UserID, "error", err)
		}
		return v, models.Member{}
	}
	v.Registered = true
	v.Status = m.Status
	return v, m
}

// keyboard is the grid for intent, or for the current menu when intent is
// empty.
func (t *TelegramBot) keyboard(v nav.Viewer, sess *nav.Session, intent nav.Intent) [][]string {
	if intent == "" {
		intent = sess.Menu
	}
	if intent == "" {
		intent = nav.Initial(v)
	}
	return nav.SelectKeyboard(intent, v)
}

// memberViewer is the viewer of another user, used when notifying them.
func (t *TelegramBot) memberViewer(m models.Member) nav.Viewer {
	return nav.Viewer{Registered: true, Status: m.Status, Admin: t.isAdmin(m.UserID)}
}

type memoryLedger struct {
	mu     sync.Mutex
	events map[string]bool
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{events: make(map[string]bool)}
}

func (l *memoryLedger) SaveCheckout(context.Context, int64, int64, string, string) error { return nil }

func (l *memoryLedger) UpdatePaymentStatus(context.Context, string, string) error { return nil }

func (l *memoryLedger) ClaimEvent(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.events[eventID] {
		return false, nil
	}
	l.events[eventID] = true
	return true, nil
}

func (l *memoryLedger) ReleaseEvent(_ context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.events, eventID)
	return nil
}
