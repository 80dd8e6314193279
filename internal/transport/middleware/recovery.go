package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	errors "github.com/frahmantamala/donation-service/internal"
)

// RecoveryMiddleware turns a handler panic into a 500 with the standard error body.
// The panic is logged with the stack and the trace id set by RequestID.
func RecoveryMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				base.Error("panic recovered",
					"error", rec,
					"trace_id", w.Header().Get(TraceIDHeader),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(errors.Response{
					Error: "Internal server error",
					Code:  errors.ErrCodeInternal,
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
