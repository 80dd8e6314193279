package donation

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/donation-service/internal"
	"github.com/frahmantamala/donation-service/internal/metrics"
	"github.com/frahmantamala/donation-service/internal/transport"
	"github.com/frahmantamala/donation-service/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// CreatePayment handles POST /api/v1/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreateDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreatePayment: failed to parse request body", "error", err)
		metrics.RecordPaymentCreated(metrics.PaymentInvalid)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeInvalidBody))
		return
	}

	resp, err := h.Service.CreateDonation(r.Context(), &req)
	if err != nil {
		metrics.RecordPaymentCreated(paymentResult(err))
		h.HandleError(w, err)
		return
	}

	metrics.RecordPaymentCreated(metrics.PaymentCreated)
	h.WriteJSON(w, http.StatusOK, resp)
}

func paymentResult(err error) string {
	appErr, ok := errors.IsAppError(err)
	if !ok {
		return metrics.PaymentStorageError
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation:
		return metrics.PaymentInvalid
	case errors.ErrorTypeExternal:
		return metrics.PaymentGatewayError
	}
	return metrics.PaymentStorageError
}

// PaymentCallback handles POST /api/v1/payments/callback
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	lg := logger.From(r.Context())

	payload, err := ParseCallback(r)
	if err != nil {
		lg.Error("PaymentCallback: failed to parse request body", "error", err)
		metrics.RecordCallback(metrics.CallbackRejected)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeInvalidBody))
		return
	}

	lg.Info("PaymentCallback: callback received",
		"merchant_order_id", payload.MerchantOrderID,
		"result_code", payload.ResultCode,
		"reference", payload.Reference)

	result, err := h.Service.HandleCallback(r.Context(), payload)
	if err != nil {
		metrics.RecordCallback(callbackOutcome(err))
		h.HandleError(w, err)
		return
	}

	if result.AlreadyProcessed {
		metrics.RecordCallback(metrics.CallbackDuplicate)
		h.WriteJSON(w, http.StatusOK, CallbackResponse{Success: true, Message: "Already processed"})
		return
	}

	if NormalizeOutcome(result.Status) == OutcomeSuccess {
		metrics.RecordCallback(metrics.CallbackSuccess)
	} else {
		metrics.RecordCallback(metrics.CallbackFailed)
	}
	h.WriteJSON(w, http.StatusOK, CallbackResponse{Success: true})
}

func callbackOutcome(err error) string {
	appErr, ok := errors.IsAppError(err)
	if !ok {
		return metrics.CallbackError
	}
	switch appErr.Type {
	case errors.ErrorTypeForbidden:
		return metrics.CallbackInvalidSignature
	case errors.ErrorTypeValidation:
		return metrics.CallbackRejected
	}
	return metrics.CallbackError
}

// GetDonationStatus handles GET /api/v1/donations/{merchantOrderId}/status
func (h *Handler) GetDonationStatus(w http.ResponseWriter, r *http.Request) {
	merchantOrderID := chi.URLParam(r, "merchantOrderId")
	if merchantOrderID == "" {
		h.HandleError(w, errors.NewValidationFieldError("merchantOrderId", "merchantOrderId is required", errors.ErrCodeMissingFields))
		return
	}

	resp, err := h.Service.GetStatus(r.Context(), merchantOrderID)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// ListDonations handles GET /api/v1/admin/donations
func (h *Handler) ListDonations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ListFilter{Status: query.Get("status")}

	var err error
	if filter.Limit, err = queryInt(query.Get("limit")); err != nil {
		h.HandleError(w, errors.NewValidationFieldError("limit", "limit must be an integer", errors.ErrCodeValidationFailed))
		return
	}
	if filter.Offset, err = queryInt(query.Get("offset")); err != nil {
		h.HandleError(w, errors.NewValidationFieldError("offset", "offset must be an integer", errors.ErrCodeValidationFailed))
		return
	}

	resp, err := h.Service.ListDonations(r.Context(), filter)
	if err != nil {
		h.Logger.Error("ListDonations: service error", "error", err)
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// GetSummary handles GET /api/v1/admin/donations/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context())
	if err != nil {
		h.Logger.Error("GetSummary: service error", "error", err)
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}

func queryInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
