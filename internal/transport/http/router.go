package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-verify-nosql/internal/config"
	"github.com/go-verify-nosql/internal/transport/http/handler"
	appmiddleware "github.com/go-verify-nosql/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds background
// work owned by the router.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(slog.Default()))
	r.Use(chimiddleware.Recoverer)
	if deps.Registry != nil {
		r.Use(appmiddleware.NewHTTPMetrics(deps.Registry).Instrument)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, on endpoints that issue or claim codes.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)
	authMw := appmiddleware.Auth(deps.Tokens)

	healthH := handler.NewHealthHandler(deps.Store)
	accountH := handler.NewAccountHandler(deps.Accounts)
	sessionH := handler.NewSessionHandler(deps.Identity)

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)

			r.Post("/register", accountH.SignUp)
			r.Post("/register/resend", accountH.ResendVerification)
			r.Post("/register/{code}", accountH.ConfirmRegistration)
			r.Post("/reset", accountH.ForgotPassword)
			r.Post("/reset/{code}", accountH.ResetPassword)
			r.Post("/sessions/login", sessionH.Login)
		})

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)
		})
	})

	return r
}
