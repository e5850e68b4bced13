package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"bookquery/internal/auth"
	"bookquery/internal/book"
	"bookquery/internal/config"
	"bookquery/internal/httpx"
)

const maxBodyBytes = 1 << 20

// Pinger reports whether the backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

func newRouter(ctx context.Context, cfg config.Config, log *slog.Logger, service *book.Service, db Pinger) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := db.Ping(pingCtx); err != nil {
			log.WarnContext(r.Context(), "readiness check failed", "error", err)
			httpx.JSONError(w, r, http.StatusServiceUnavailable, httpx.CodeStoreUnavailable, "Document store not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	admin := httpx.RequireRole(cfg.JWT.Secret, auth.RoleAdmin)
	book.NewHTTPHandler(service).Register(router, admin)

	limiter := httpx.NewRateLimitMiddleware(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	return httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(log),
		httpx.RecoveryMiddleware(log),
		httpx.SecurityHeadersMiddleware,
		limiter.Middleware,
		httpx.RequestSizeLimitMiddleware(maxBodyBytes),
	)
}
