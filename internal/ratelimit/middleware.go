package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	errors "github.com/frahmantamala/donation-service/internal"
	"github.com/frahmantamala/donation-service/internal/metrics"
)

const unknownClient = "unknown"

type KeyFunc func(r *http.Request) string

// ClientKey uses the raw X-Forwarded-For value as the client identity. The whole
// header is the key; it is not split on commas.
func ClientKey(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); v != "" {
		return v
	}
	return unknownClient
}

// Middleware rejects requests over the limit with 429. A limiter error lets the
// request through.
func Middleware(limiter Limiter, keyFunc KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = ClientKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Error("rate limiter unavailable, allowing request",
					"client", key,
					"path", r.URL.Path,
					"error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				metrics.RecordRateLimited()
				logger.Warn("rate limit exceeded",
					"client", key,
					"path", r.URL.Path)
				status, body := errors.ErrTooManyRequests.ToHTTPResponse()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(body)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
