package donation

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	errors "github.com/frahmantamala/donation-service/internal"
	"github.com/frahmantamala/donation-service/internal/core/common/validation"
	"github.com/frahmantamala/donation-service/internal/core/datamodel/donation"
	gatewaytypes "github.com/frahmantamala/donation-service/internal/core/datamodel/paymentgateway"
)

const maxCallbackBody = 64 << 10

// CreateDonationRequest is the public donation form. Amount stays untyped so a
// string or missing amount is reported as invalid rather than failing to decode.
type CreateDonationRequest struct {
	DonorName string      `json:"donorName"`
	Email     *string     `json:"email,omitempty"`
	Message   *string     `json:"message,omitempty"`
	Amount    interface{} `json:"amount"`
}

func (r *CreateDonationRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("donorName", r.DonorName).
		Required(errors.ErrCodeInvalidDonorName).
		MaxLength(MaxDonorNameLength, errors.ErrCodeInvalidDonorName)
	validator.Field("email", r.Email).
		MaxLength(MaxEmailLength, errors.ErrCodeInvalidEmail)
	validator.Field("amount", r.Amount).
		Custom(validateAmount)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func validateAmount(value interface{}) *errors.AppError {
	f, ok := value.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return errors.NewValidationFieldError("amount", "amount must be a number", errors.ErrCodeInvalidAmount)
	}
	if f != math.Trunc(f) {
		return errors.NewValidationFieldError("amount", "amount must be a whole number", errors.ErrCodeInvalidAmount)
	}
	if f < MinAmount {
		return errors.NewValidationFieldError("amount", fmt.Sprintf("amount must be at least %d", MinAmount), errors.ErrCodeAmountTooLow)
	}
	if f > MaxAmount {
		return errors.NewValidationFieldError("amount", fmt.Sprintf("amount must not exceed %d", MaxAmount), errors.ErrCodeAmountTooHigh)
	}
	return nil
}

// AmountValue is only meaningful after Validate succeeded.
func (r *CreateDonationRequest) AmountValue() int64 {
	f, _ := r.Amount.(float64)
	return int64(f)
}

type CreatePaymentResponse struct {
	PaymentURL      string `json:"paymentUrl"`
	MerchantOrderID string `json:"merchantOrderId"`
}

type CallbackResult struct {
	MerchantOrderID  string `json:"-"`
	Status           string `json:"-"`
	AlreadyProcessed bool   `json:"-"`
}

type CallbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type StatusResponse struct {
	MerchantOrderID string  `json:"merchantOrderId"`
	Status          string  `json:"status"`
	Outcome         Outcome `json:"outcome"`
}

type DonationResponse struct {
	ID              int64     `json:"id"`
	MerchantOrderID string    `json:"merchant_order_id"`
	DonorName       string    `json:"donor_name"`
	Email           *string   `json:"email,omitempty"`
	Message         *string   `json:"message,omitempty"`
	Amount          int64     `json:"amount"`
	Reference       *string   `json:"reference,omitempty"`
	Status          string    `json:"status"`
	Outcome         Outcome   `json:"outcome"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ListResponse struct {
	Donations []DonationResponse `json:"donations"`
	Total     int64              `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

func ToDonationResponse(d *donation.Donation) DonationResponse {
	return DonationResponse{
		ID:              d.ID,
		MerchantOrderID: d.MerchantOrderID,
		DonorName:       d.DonorName,
		Email:           d.Email,
		Message:         d.Message,
		Amount:          d.Amount,
		Reference:       d.Reference,
		Status:          d.Status,
		Outcome:         NormalizeOutcome(d.Status),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// ParseCallback reads a gateway notification sent either form-encoded or as JSON.
// JSON numbers keep their literal text so the signature is computed over what
// the gateway sent.
func ParseCallback(r *http.Request) (*gatewaytypes.CallbackPayload, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		return nil, fmt.Errorf("read callback body: %w", err)
	}

	fields := make(map[string]string)
	if strings.Contains(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("parse form body: %w", err)
		}
		for key := range values {
			fields[key] = values.Get(key)
		}
	} else {
		decoder := json.NewDecoder(strings.NewReader(string(body)))
		decoder.UseNumber()
		raw := make(map[string]interface{})
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse json body: %w", err)
		}
		for key, value := range raw {
			fields[key] = stringify(value)
		}
	}

	return &gatewaytypes.CallbackPayload{
		MerchantCode:    fields["merchantCode"],
		MerchantOrderID: fields["merchantOrderId"],
		Amount:          fields["amount"],
		ResultCode:      fields["resultCode"],
		Reference:       fields["reference"],
		Signature:       fields["signature"],
	}, nil
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// parseCallbackAmount takes the leading integer part of the amount, or 0.
func parseCallbackAmount(amount string) int64 {
	whole, _, _ := strings.Cut(strings.TrimSpace(amount), ".")
	var n int64
	if _, err := fmt.Sscan(whole, &n); err != nil {
		return 0
	}
	return n
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// optionalString trims s and turns an empty result into nil.
func optionalString(s *string, max int) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	trimmed = truncate(trimmed, max)
	return &trimmed
}
