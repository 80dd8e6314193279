package middleware

import (
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/donation-service/internal/metrics"
)

var _ = Describe("Metrics", func() {
	It("should label requests by route pattern", func() {
		router := chi.NewRouter()
		router.Use(Metrics)
		router.Get("/donations/{merchantOrderId}/status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		before := metrics.HTTPRequestCount(http.MethodGet, "/donations/{merchantOrderId}/status", "404")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/donations/DON-1/status", nil))
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/donations/DON-2/status", nil))

		Expect(metrics.HTTPRequestCount(http.MethodGet, "/donations/{merchantOrderId}/status", "404")).To(Equal(before + 2))
	})

	It("should default the status to 200 when the handler writes nothing", func() {
		handler := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		before := metrics.HTTPRequestCount(http.MethodGet, "unmatched", "200")

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		Expect(metrics.HTTPRequestCount(http.MethodGet, "unmatched", "200")).To(Equal(before + 1))
	})
})
