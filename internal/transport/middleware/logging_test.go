package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LoggingMiddleware", func() {
	var (
		buf    *bytes.Buffer
		logger *slog.Logger
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		logger = slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	})

	It("should mask signatures in form bodies and keep the body readable", func() {
		var seen string
		handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			seen = string(b)
			w.WriteHeader(http.StatusOK)
		}))

		body := "merchantOrderId=DON-1&signature=abc123&resultCode=00"
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		Expect(seen).To(Equal(body))
		Expect(buf.String()).NotTo(ContainSubstring("abc123"))
		Expect(buf.String()).To(ContainSubstring("request completed"))
	})

	It("should log 4xx responses at warn level", func() {
		handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(buf.String()).To(ContainSubstring(`"level":"WARN"`))
		Expect(buf.String()).To(ContainSubstring(`"status_code":400`))
	})

	It("should carry the trace id set by RequestID", func() {
		handler := RequestID(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(TraceIDHeader, "trace-abc")

		handler.ServeHTTP(httptest.NewRecorder(), req)

		Expect(buf.String()).To(ContainSubstring(`"trace_id":"trace-abc"`))
	})
})

var _ = Describe("sensitive field filtering", func() {
	It("should mask nested JSON fields", func() {
		out := filterSensitiveBody([]byte(`{"email":"a@b.c","auth":{"password":"hunter2"},"items":[{"api_key":"k"}]}`))
		Expect(out).NotTo(ContainSubstring("hunter2"))
		Expect(out).NotTo(ContainSubstring(`"k"`))
		Expect(out).To(ContainSubstring("a@b.c"))
	})

	It("should refuse to log non-JSON bodies mentioning secrets", func() {
		Expect(filterSensitiveBody([]byte("token=xyz"))).To(Equal("[FILTERED - Contains sensitive data]"))
		Expect(filterSensitiveBody([]byte("hello"))).To(Equal("hello"))
	})

	It("should mask sensitive headers case-insensitively", func() {
		h := http.Header{}
		h.Set("Authorization", "Bearer t")
		h.Set("Content-Type", "application/json")

		filtered := filterSensitiveHeaders(h)
		Expect(filtered["Authorization"]).To(Equal("[FILTERED]"))
		Expect(filtered["Content-Type"]).To(Equal("application/json"))
	})
})
