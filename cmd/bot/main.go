package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gym-bot/config"
	"gym-bot/internal/bot"
	"gym-bot/internal/db"
	"gym-bot/internal/gpt"
	"gym-bot/internal/nav"
	"gym-bot/internal/payment"
	"gym-bot/internal/responder"
	"gym-bot/internal/scheduler"
	"gym-bot/internal/server"
	"gym-bot/internal/sheets"
	"gym-bot/internal/store"
	"gym-bot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatalw("Failed to load config", "error", err)
	}

	l := logger.New(cfg.Log.Level)
	if cfg.Log.Development {
		l = logger.NewDevelopment()
	}
	defer func() { _ = l.Sync() }()
	l.Infow("Starting gym bot", "gym", cfg.Gym.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := cfg.Location()

	var backend sheets.Backend
	if cfg.SheetsReady() {
		g, err := sheets.NewGoogle(ctx, sheets.GoogleOptions{
			Credentials:   cfg.Sheets.ServiceAccountJSON,
			SpreadsheetID: cfg.Sheets.SpreadsheetID,
			Name:          cfg.Sheets.SpreadsheetName,
		}, l)
		switch {
		case err != nil:
			l.Errorw("Google Sheets unavailable, running offline", "error", err)
		default:
			if err := g.EnsureTables(ctx); err != nil {
				l.Errorw("Failed to prepare spreadsheet tables", "error", err)
			}
			backend = g
		}
	} else {
		l.Warn("Google Sheets is not configured, running offline")
	}
	st := store.New(backend, store.Options{
		TTL:      cfg.Sheets.CacheTTL,
		Location: loc,
		GymName:  cfg.Gym.Name,
	}, l)

	// Reminder and payment bookkeeping falls back to memory without Postgres.
	var (
		reminderLedger scheduler.Ledger = scheduler.NewMemoryLedger()
		paymentLedger  bot.PaymentLedger
	)
	if cfg.DB.Enabled {
		database := connectDB(cfg, l)
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			l.Fatalw("Failed to migrate database", "error", err)
		}
		reminderLedger = database
		paymentLedger = database
	}

	stripeClient := payment.NewStripeClient(payment.Options{
		SecretKey:  cfg.Stripe.SecretKey,
		WebhookKey: cfg.Stripe.WebhookKey,
		Currency:   cfg.Stripe.Currency,
		SuccessURL: cfg.Stripe.SuccessURL,
		CancelURL:  cfg.Stripe.CancelURL,
	})
	if !cfg.StripeReady() {
		l.Info("Stripe is not configured, online dues payment disabled")
	}

	gptClient := gpt.NewClient(cfg.GPT.APIKey, l).WithModel(cfg.GPT.Model).WithMaxTokens(cfg.GPT.MaxTokens)
	if !gptClient.Online() {
		l.Warn("OpenAI API key is not configured, AI features disabled")
	}

	sessions := nav.NewSessions(cfg.Gym.IdleTimeout)

	telegramBot, err := bot.NewTelegramBot(cfg.Telegram.Token, bot.Deps{
		Store:     st,
		Responder: responder.New(st, gptClient, l),
		AI:        gptClient,
		Payments:  stripeClient,
		Ledger:    paymentLedger,
		Sessions:  sessions,
	}, bot.Options{
		AdminID:       cfg.Telegram.AdminID,
		MonthlyFee:    cfg.Gym.MonthlyFee,
		WebhookURL:    cfg.Telegram.WebhookURL,
		UpdateTimeout: cfg.UpdateTimeout,
	}, l)
	if err != nil {
		l.Fatalw("Failed to create Telegram bot", "error", err)
	}

	jobs := scheduler.New(loc, 5*time.Minute, l.Named("scheduler"))
	reminders := scheduler.NewReminders(st, telegramBot, reminderLedger, l.Named("reminders"))
	if err := jobs.AddReminders(cfg.Scheduler.ReminderSpec, reminders, loc); err != nil {
		l.Fatalw("Failed to schedule due reminders", "error", err)
	}
	if err := jobs.Add("@every 10m", "session-prune", func(context.Context, time.Time) error {
		if n := sessions.Prune(); n > 0 {
			l.Debugw("Idle sessions pruned", "count", n, "active", sessions.Len())
		}
		return nil
	}); err != nil {
		l.Fatalw("Failed to schedule session pruning", "error", err)
	}
	jobs.Start()

	httpServer := server.NewServer(cfg.Server.Port, telegramBot, l)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	if err := telegramBot.Start(ctx); err != nil {
		l.Fatalw("Failed to start Telegram bot", "error", err)
	}
	l.Info("Gym bot started")

	<-ctx.Done()
	l.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		l.Errorw("Error during HTTP server shutdown", "error", err)
	}
	if err := telegramBot.Stop(shutdownCtx); err != nil {
		l.Errorw("Error during bot shutdown", "error", err)
	}
	jobs.Stop(shutdownCtx)

	l.Info("Gym bot stopped")
}

// connectDB opens Postgres, retrying with a growing pause.
func connectDB(cfg *config.Config, l *logger.Logger) *db.PostgresDB {
	opts := db.Options{
		Host:         cfg.DB.Host,
		Port:         cfg.DB.Port,
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		DBName:       cfg.DB.DBName,
		SSLMode:      cfg.DB.SSLMode,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		ConnLifetime: cfg.DB.ConnLifetime,
	}

	const maxRetries = 5
	var err error
	for i := 0; i < maxRetries; i++ {
		var database *db.PostgresDB
		database, err = db.NewPostgresDB(opts)
		if err == nil {
			return database
		}
		l.Warnw("Failed to connect to database, retrying...", "attempt", i+1, "error", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	l.Fatalw("Failed to connect to database after multiple attempts", "error", err)
	return nil
}
