// Package router assembles the HTTP surface: webhook intake, realtime
// websocket, admin import trigger, health and metrics.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/oakline/callbridge/internal/http/middleware"
	"github.com/oakline/callbridge/internal/importer"
	"github.com/oakline/callbridge/internal/realtime"
	"github.com/oakline/callbridge/internal/webhook"
	"github.com/oakline/callbridge/pkg/logging"
)

// Config holds everything the router mounts. Webhooks is required; the
// rest is optional and skipped when nil.
type Config struct {
	Logger             *logging.Logger
	Webhooks           *webhook.Handler
	RealtimeHub        *realtime.Hub
	AdminImport        *importer.AdminHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	HealthCheck        http.HandlerFunc
	CORSAllowedOrigins []string

	// Webhook intake rate limit, requests/sec per IP. Zero disables it.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	if cfg.HealthCheck != nil {
		r.Get("/health", cfg.HealthCheck)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/webhooks/callrail", func(wh chi.Router) {
		if cfg.RateLimitPerSecond > 0 {
			wh.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
		}
		wh.Post("/pre-call", cfg.Webhooks.HandlePreCall)
		wh.Post("/post-call", cfg.Webhooks.HandlePostCall)
		wh.Post("/call-modified", cfg.Webhooks.HandleCallModified)
		wh.Post("/routing-complete", cfg.Webhooks.HandleRoutingComplete)
	})

	if cfg.RealtimeHub != nil {
		r.Get("/realtime/ws", cfg.RealtimeHub.ServeWS)
	}

	if cfg.AdminImport != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Post("/import", cfg.AdminImport.HandleImport)
		})
	}

	return r
}
