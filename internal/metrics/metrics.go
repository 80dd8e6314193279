package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	CallbackSuccess          = "success"
	CallbackFailed           = "failed"
	CallbackDuplicate        = "duplicate"
	CallbackInvalidSignature = "invalid_signature"
	CallbackRejected         = "rejected"
	CallbackError            = "error"

	PaymentCreated      = "created"
	PaymentInvalid      = "invalid"
	PaymentGatewayError = "gateway_error"
	PaymentStorageError = "storage_error"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	paymentsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_payments_created_total",
			Help: "Payment initiation attempts by result",
		},
		[]string{"result"},
	)

	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_callbacks_total",
			Help: "Gateway callbacks by outcome",
		},
		[]string{"outcome"},
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "donation_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(paymentsCreatedTotal)
	prometheus.MustRegister(callbacksTotal)
	prometheus.MustRegister(rateLimitedTotal)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordHTTPRequest(method, route, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

func RecordPaymentCreated(result string) {
	paymentsCreatedTotal.WithLabelValues(result).Inc()
}

func RecordCallback(outcome string) {
	callbacksTotal.WithLabelValues(outcome).Inc()
}

func RecordRateLimited() {
	rateLimitedTotal.Inc()
}

// CallbackCount reads the current value of donation_callbacks_total for one outcome.
func CallbackCount(outcome string) float64 {
	return counterValue(callbacksTotal.WithLabelValues(outcome))
}

func RateLimitedCount() float64 {
	return counterValue(rateLimitedTotal)
}

func HTTPRequestCount(method, route, status string) float64 {
	return counterValue(httpRequestsTotal.WithLabelValues(method, route, status))
}
