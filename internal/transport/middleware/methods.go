package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	errors "github.com/frahmantamala/donation-service/internal"
)

// AllowMethods answers 405 for any method not listed, before later middleware runs.
func AllowMethods(methods ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		allowed[m] = struct{}{}
	}
	allowHeader := strings.Join(methods, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[r.Method]; !ok {
				w.Header().Set("Allow", allowHeader)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusMethodNotAllowed)
				_ = json.NewEncoder(w).Encode(errors.Response{
					Error: "Method not allowed",
					Code:  errors.ErrCodeMethodNotAllowed,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
