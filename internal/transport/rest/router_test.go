package rest_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/donation-service/internal"
	"github.com/frahmantamala/donation-service/internal/auth"
	gatewaytypes "github.com/frahmantamala/donation-service/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/donation-service/internal/donation"
	"github.com/frahmantamala/donation-service/internal/ratelimit"
	"github.com/frahmantamala/donation-service/internal/transport"
	"github.com/frahmantamala/donation-service/internal/transport/rest"
)

type stubDonationService struct {
	callbacks int
}

func (s *stubDonationService) CreateDonation(ctx context.Context, req *donation.CreateDonationRequest) (*donation.CreatePaymentResponse, error) {
	return &donation.CreatePaymentResponse{PaymentURL: "https://pay.example/x", MerchantOrderID: "DON-1"}, nil
}

func (s *stubDonationService) HandleCallback(ctx context.Context, payload *gatewaytypes.CallbackPayload) (*donation.CallbackResult, error) {
	s.callbacks++
	return &donation.CallbackResult{MerchantOrderID: payload.MerchantOrderID, Status: "SUCCESS"}, nil
}

func (s *stubDonationService) GetStatus(ctx context.Context, merchantOrderID string) (*donation.StatusResponse, error) {
	if merchantOrderID != "DON-1" {
		return nil, errors.ErrDonationNotFound
	}
	return &donation.StatusResponse{MerchantOrderID: merchantOrderID, Status: "PENDING", Outcome: donation.OutcomePending}, nil
}

func (s *stubDonationService) ListDonations(ctx context.Context, filter donation.ListFilter) (*donation.ListResponse, error) {
	return &donation.ListResponse{Donations: []donation.DonationResponse{}, Limit: 20}, nil
}

func (s *stubDonationService) Summary(ctx context.Context) (*donation.Summary, error) {
	return &donation.Summary{Count: 1, TotalAmount: 50000, AverageAmount: 50000}, nil
}

type stubAuthService struct{}

func (stubAuthService) Authenticate(ctx context.Context, dto auth.LoginDTO) (auth.AuthTokens, error) {
	return auth.AuthTokens{AccessToken: "good"}, nil
}

func (stubAuthService) RefreshTokens(ctx context.Context, refreshToken string) (auth.AuthTokens, error) {
	return auth.AuthTokens{}, errors.ErrInvalidToken
}

func (stubAuthService) ValidateAccessToken(token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, errors.ErrInvalidToken
	}
	return &auth.Claims{UserID: "1", Email: "admin@example.org", Role: "admin"}, nil
}

func (stubAuthService) HashPassword(password string) (string, error) {
	return password, nil
}

var _ = Describe("RegisterAllRoutes", func() {
	var (
		router *chi.Mux
		svc    *stubDonationService
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		base := transport.NewBaseHandler(logger)
		svc = &stubDonationService{}

		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.RouterConfig{
			Limiter:        ratelimit.NewMemoryLimiter(2, time.Minute),
			Logger:         logger,
			MetricsEnabled: true,
			MetricsPath:    "/metrics",
		}, rest.Handlers{
			Donation: donation.NewHandler(base, svc),
			Auth:     auth.NewHandler(base, stubAuthService{}),
		})
	})

	serve := func(method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, body)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	callback := func(forwardedFor string) *httptest.ResponseRecorder {
		form := "merchantOrderId=DON-1&resultCode=00&reference=REF-1&amount=50000"
		return serve(http.MethodPost, "/api/v1/payments/callback", strings.NewReader(form), map[string]string{
			"Content-Type":    "application/x-www-form-urlencoded",
			"X-Forwarded-For": forwardedFor,
		})
	}

	It("should check the method before the rate limit", func() {
		for i := 0; i < 5; i++ {
			rec := serve(http.MethodGet, "/api/v1/payments/callback", nil, map[string]string{"X-Forwarded-For": "1.1.1.1"})
			Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
		}
		Expect(callback("1.1.1.1").Code).To(Equal(http.StatusOK))
	})

	It("should rate limit callbacks per client", func() {
		Expect(callback("2.2.2.2").Code).To(Equal(http.StatusOK))
		Expect(callback("2.2.2.2").Code).To(Equal(http.StatusOK))
		Expect(callback("2.2.2.2").Code).To(Equal(http.StatusTooManyRequests))
		Expect(callback("3.3.3.3").Code).To(Equal(http.StatusOK))
		Expect(svc.callbacks).To(Equal(3))
	})

	It("should answer CORS preflight on any route", func() {
		rec := serve(http.MethodOptions, "/api/v1/payments/callback", nil, nil)
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
	})

	It("should serve donation status", func() {
		rec := serve(http.MethodGet, "/api/v1/donations/DON-1/status", nil, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"merchantOrderId":"DON-1"`))

		Expect(serve(http.MethodGet, "/api/v1/donations/DON-404/status", nil, nil).Code).To(Equal(http.StatusNotFound))
	})

	It("should protect admin routes", func() {
		Expect(serve(http.MethodGet, "/api/v1/admin/donations", nil, nil).Code).To(Equal(http.StatusUnauthorized))

		rec := serve(http.MethodGet, "/api/v1/admin/donations/summary", nil, map[string]string{"Authorization": "Bearer good"})
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"total_amount":50000`))
	})

	It("should expose prometheus metrics", func() {
		serve(http.MethodGet, "/api/v1/donations/DON-1/status", nil, nil)

		rec := serve(http.MethodGet, "/metrics", nil, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("http_requests_total"))
	})

	It("should echo a trace id", func() {
		rec := serve(http.MethodGet, "/api/v1/donations/DON-1/status", nil, map[string]string{"X-Trace-ID": "t-1"})
		Expect(rec.Header().Get("X-Trace-ID")).To(Equal("t-1"))
	})
})
