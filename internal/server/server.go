package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gym-bot/pkg/logger"
)

// Webhooks are the HTTP entry points of the bot.
type Webhooks interface {
	HandleStripeWebhook(w http.ResponseWriter, r *http.Request)
	HandleTelegramWebhook(w http.ResponseWriter, r *http.Request)
}

type Server struct {
	server *http.Server
	logger *logger.Logger
}

func NewServer(port string, hooks Webhooks, log *logger.Logger) *Server {
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      Router(hooks),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		server: httpServer,
		logger: log.Named("http"),
	}
}

// Router mounts the health check and the webhook endpoints.
func Router(hooks Webhooks) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Post("/webhook/stripe", hooks.HandleStripeWebhook)
	r.Post("/webhook/telegram", hooks.HandleTelegramWebhook)
	return r
}

func (s *Server) Start() error {
	s.logger.Infow("Starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}
