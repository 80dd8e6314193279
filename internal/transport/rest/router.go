package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/donation-service/internal/auth"
	"github.com/frahmantamala/donation-service/internal/donation"
	"github.com/frahmantamala/donation-service/internal/metrics"
	"github.com/frahmantamala/donation-service/internal/ratelimit"
	"github.com/frahmantamala/donation-service/internal/transport/middleware"
	"github.com/frahmantamala/donation-service/internal/transport/swagger"
)

type RouterConfig struct {
	AllowedOrigins []string
	Health         *HealthHandler
	Limiter        ratelimit.Limiter
	Logger         *slog.Logger
	MetricsEnabled bool
	MetricsPath    string
	OpenAPIPath    string
}

type Handlers struct {
	Donation *donation.Handler
	// Auth is nil when the admin API is disabled.
	Auth *auth.Handler
}

func RegisterAllRoutes(router *chi.Mux, cfg RouterConfig, h Handlers) {
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(cfg.Logger))
	router.Use(middleware.RecoveryMiddleware(cfg.Logger))
	if cfg.MetricsEnabled {
		router.Use(middleware.Metrics)
		router.Handle(cfg.MetricsPath, metrics.Handler())
	}

	if cfg.OpenAPIPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, cfg.OpenAPIPath)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if cfg.Health != nil {
			r.Get("/health", cfg.Health.Health)
			r.Get("/ping", cfg.Health.Ping)
		}

		r.Post("/payments", h.Donation.CreatePayment)
		r.With(
			middleware.AllowMethods(http.MethodPost),
			ratelimit.Middleware(cfg.Limiter, ratelimit.ClientKey, cfg.Logger),
		).HandleFunc("/payments/callback", h.Donation.PaymentCallback)
		r.Get("/donations/{merchantOrderId}/status", h.Donation.GetDonationStatus)

		if h.Auth != nil {
			r.Route("/admin", func(ar chi.Router) {
				ar.Post("/login", h.Auth.Login)
				ar.Post("/refresh", h.Auth.RefreshToken)

				ar.Group(func(pr chi.Router) {
					pr.Use(h.Auth.AuthMiddleware)
					pr.Get("/donations", h.Donation.ListDonations)
					pr.Get("/donations/summary", h.Donation.GetSummary)
				})
			})
		}
	})
}
