package app

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/caldesk/caldesk/internal/auth"
	"github.com/caldesk/caldesk/internal/config"
	"github.com/caldesk/caldesk/internal/metrics"
	"github.com/caldesk/caldesk/pkg/user"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) {
	r.Use(requestMetrics)
	r.Use(resolveIdentity(deps, cfg))
}

// requestMetrics records per-route request latency.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, req)

		route := "unknown"
		if current := mux.CurrentRoute(req); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}
		metrics.RequestDuration.WithLabelValues(req.Method, route).
			Observe(float64(time.Since(start).Milliseconds()))
	})
}

// resolveIdentity authenticates the caller and propagates the user into the
// request context. Identity comes from a bearer token validated against the
// external identity provider's signing secret, or (development only, when
// auth.trustheader is set) from a plain X-User-Id header. Handlers that
// require identity reject requests that reach them without one.
func resolveIdentity(deps *Dependencies, cfg config.Application) mux.MiddlewareFunc {
	validator := auth.NewTokenValidator(cfg.Auth.Secret, cfg.Auth.Issuer)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			userId := ""
			if header := req.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
				subject, err := validator.Validate(strings.TrimPrefix(header, "Bearer "))
				if err != nil {
					log.Debugf("token validation failed: %v", err)
					http.Error(w, "invalid token", http.StatusUnauthorized)
					return
				}
				userId = subject
			} else if cfg.Auth.TrustHeader {
				userId = req.Header.Get("X-User-Id")
			}

			if userId != "" {
				u, err := deps.UserService.GetUser(ctx, userId)
				if err != nil {
					if errors.Is(err, user.ErrUserNotFound) {
						log.Debugf("user not found: %s", userId)
						http.Error(w, "user not found", http.StatusForbidden)
						return
					}
					log.Errorf("failed to get user: %v", err)
					http.Error(w, "failed to resolve user", http.StatusInternalServerError)
					return
				}
				ctx = user.WithUser(ctx, u)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}
