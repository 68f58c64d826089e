package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ledgerpay/transfer/internal/api/handler"
	"github.com/ledgerpay/transfer/internal/api/middleware"
)

// RouterConfig carries everything the router needs wired up.
type RouterConfig struct {
	Logger       *zap.Logger
	Transfers    *handler.TransferHandler
	Accounts     *handler.AccountHandler
	Health       *handler.HealthHandler
	RateLimitRPS int
	JWTSecret    string
}

// NewRouter builds the HTTP surface: transfers, account reads, health
// and metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Trace)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics)

	r.Get("/healthz/live", cfg.Health.Live)
	r.Get("/healthz/ready", cfg.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(middleware.RateLimiter(cfg.RateLimitRPS))
		}
		r.Use(middleware.Auth(cfg.JWTSecret))

		r.Post("/transfers", cfg.Transfers.Create)
		r.Get("/accounts/{id}/balance", cfg.Accounts.GetBalance)
		r.Get("/accounts/{id}/statement", cfg.Accounts.GetStatement)
	})

	return r
}
