package api

import (
	"log/slog"
	"net/http"

	"poll-chat/services"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMaxBodyBytes = 8 * 1024

type Options struct {
	MaxBodyBytes int64
}

// NewRouter creates and configures the HTTP router.
func NewRouter(log *slog.Logger, service services.IChatService, opts Options) *chi.Mux {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	r := chi.NewRouter()

	r.Use(Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger(log))
	r.Use(chimw.Recoverer)
	r.Use(MaxBodySize(opts.MaxBodyBytes))

	// Clients are plain pages and scripts calling from anywhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := NewHandler(log, service)

	r.Get("/messages.json", h.ListMessages)
	r.Post("/messages", h.PostMessage)
	r.Get("/messages/since", h.MessagesSince)
	r.Get("/messages/head", h.MessagesHead)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
