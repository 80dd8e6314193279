package donation

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	errors "github.com/frahmantamala/donation-service/internal"
	"github.com/frahmantamala/donation-service/internal/core/datamodel/donation"
	gatewaytypes "github.com/frahmantamala/donation-service/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/donation-service/internal/core/events"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type ServiceConfig struct {
	CallbackURL      string
	ReturnURL        string
	ExpiryMinutes    int
	OrderPrefix      string
	ProductDetails   string
	PlaceholderEmail string
	RequireSignature bool
}

type Service struct {
	repository RepositoryAPI
	gateway    GatewayAPI
	publisher  events.Publisher
	config     ServiceConfig
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(repository RepositoryAPI, gateway GatewayAPI, publisher events.Publisher, config ServiceConfig, logger *slog.Logger) *Service {
	return &Service{
		repository: repository,
		gateway:    gateway,
		publisher:  publisher,
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for order ids and updated_at.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NewMerchantOrderID builds "<prefix>-<unix millis>-<6 random hex chars>".
func NewMerchantOrderID(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), suffix)
}

// CreateDonation issues a gateway invoice and stores the donation as PENDING.
// Nothing is stored when the gateway call fails.
func (s *Service) CreateDonation(ctx context.Context, req *CreateDonationRequest) (*CreatePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	donorName := strings.TrimSpace(req.DonorName)
	email := optionalString(req.Email, MaxEmailLength)
	message := optionalString(req.Message, MaxMessageLength)
	amount := req.AmountValue()
	merchantOrderID := NewMerchantOrderID(s.config.OrderPrefix, s.now())

	invoiceEmail := s.config.PlaceholderEmail
	if email != nil {
		invoiceEmail = *email
	}

	invoice, err := s.gateway.CreateInvoice(ctx, &gatewaytypes.InvoiceRequest{
		PaymentAmount:   amount,
		MerchantOrderID: merchantOrderID,
		ProductDetails:  s.config.ProductDetails,
		CustomerVaName:  truncate(donorName, MaxVaNameLength),
		Email:           invoiceEmail,
		CallbackURL:     s.config.CallbackURL,
		ReturnURL:       s.config.ReturnURL,
		ExpiryPeriod:    s.config.ExpiryMinutes,
	})
	if err != nil {
		s.logger.Error("failed to create gateway invoice", "error", err, "merchant_order_id", merchantOrderID)
		return nil, errors.NewExternalError("Failed to create payment with gateway", err)
	}

	reference := invoice.Reference
	if reference == "" {
		reference = merchantOrderID
	}
	paymentURL := invoice.PaymentURL

	record := &donation.Donation{
		MerchantOrderID: merchantOrderID,
		DonorName:       donorName,
		Email:           email,
		Message:         message,
		Amount:          amount,
		Reference:       &reference,
		PaymentURL:      &paymentURL,
		Status:          donation.StatusPending,
	}
	if err := s.repository.Create(ctx, record); err != nil {
		// The invoice already exists at the gateway; its callback will insert the record.
		s.logger.Error("failed to store donation", "error", err, "merchant_order_id", merchantOrderID)
		return nil, errors.NewStorageError("Failed to store donation", err)
	}

	s.logger.Info("donation created",
		"merchant_order_id", merchantOrderID,
		"amount", amount,
		"reference", reference)

	return &CreatePaymentResponse{
		PaymentURL:      paymentURL,
		MerchantOrderID: merchantOrderID,
	}, nil
}

// HandleCallback applies a gateway notification at most once per merchant order id.
// Terminal records are left untouched and reported as already processed.
func (s *Service) HandleCallback(ctx context.Context, payload *gatewaytypes.CallbackPayload) (*CallbackResult, error) {
	if err := payload.Validate(); err != nil {
		if stderrors.Is(err, gatewaytypes.ErrMerchantOrderIDTooLong) {
			return nil, errors.NewValidationFieldError("merchantOrderId", err.Error(), errors.ErrCodeValidationFailed)
		}
		return nil, errors.NewValidationError("Missing required fields", errors.ErrCodeMissingFields)
	}

	if payload.Signature != "" || s.config.RequireSignature {
		if !s.gateway.VerifyCallback(payload) {
			s.logger.Warn("callback signature mismatch", "merchant_order_id", payload.MerchantOrderID)
			return nil, errors.ErrInvalidSignature
		}
	}

	existing, err := s.repository.GetByMerchantOrderID(ctx, payload.MerchantOrderID)
	if err != nil && !stderrors.Is(err, errors.ErrDonationNotFound) {
		return nil, errors.NewStorageError("Failed to load donation", err)
	}

	if existing != nil && IsTerminal(existing.Status) {
		s.logger.Info("callback already processed",
			"merchant_order_id", payload.MerchantOrderID,
			"status", existing.Status)
		return s.alreadyProcessed(payload.MerchantOrderID, existing.Status), nil
	}

	newStatus := StatusFromResultCode(payload.ResultCode)
	now := s.now()

	var applied bool
	if existing != nil {
		applied, err = s.repository.TransitionStatus(ctx, payload.MerchantOrderID, newStatus, payload.Reference, now)
		if err != nil {
			return nil, errors.NewStorageError("Failed to update donation", err)
		}
	} else {
		applied, err = s.insertFromCallback(ctx, payload, newStatus, now)
		if err != nil {
			return nil, err
		}
	}

	if !applied {
		s.logger.Info("callback lost race to a concurrent transition", "merchant_order_id", payload.MerchantOrderID)
		return s.alreadyProcessed(payload.MerchantOrderID, ""), nil
	}

	amount := parseCallbackAmount(payload.Amount)
	if existing != nil {
		amount = existing.Amount
	}
	s.publishTransition(ctx, payload, newStatus, amount)

	s.logger.Info("donation status updated",
		"merchant_order_id", payload.MerchantOrderID,
		"status", newStatus,
		"reference", payload.Reference)

	return &CallbackResult{
		MerchantOrderID: payload.MerchantOrderID,
		Status:          newStatus,
	}, nil
}

// insertFromCallback covers an initiator whose insert never landed. If another
// writer created the row first, it falls back to the conditional update.
func (s *Service) insertFromCallback(ctx context.Context, payload *gatewaytypes.CallbackPayload, status string, now time.Time) (bool, error) {
	reference := payload.Reference
	record := &donation.Donation{
		MerchantOrderID: payload.MerchantOrderID,
		DonorName:       UnknownDonorName,
		Amount:          parseCallbackAmount(payload.Amount),
		Reference:       &reference,
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := s.repository.CreateIfAbsent(ctx, record)
	if err != nil {
		return false, errors.NewStorageError("Failed to insert donation", err)
	}
	if created {
		s.logger.Warn("callback for unknown order, inserted placeholder donation",
			"merchant_order_id", payload.MerchantOrderID,
			"amount", record.Amount)
		return true, nil
	}

	applied, err := s.repository.TransitionStatus(ctx, payload.MerchantOrderID, status, payload.Reference, now)
	if err != nil {
		return false, errors.NewStorageError("Failed to update donation", err)
	}
	return applied, nil
}

func (s *Service) alreadyProcessed(merchantOrderID, status string) *CallbackResult {
	return &CallbackResult{
		MerchantOrderID:  merchantOrderID,
		Status:           status,
		AlreadyProcessed: true,
	}
}

func (s *Service) publishTransition(ctx context.Context, payload *gatewaytypes.CallbackPayload, status string, amount int64) {
	if s.publisher == nil {
		return
	}

	eventType := events.EventTypeDonationFailed
	if status == donation.StatusSuccess {
		eventType = events.EventTypeDonationSucceeded
	}

	event := events.NewDonationStatusChangedEvent(eventType, payload.MerchantOrderID, payload.Reference, amount, status, payload.ResultCode)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish donation event", "error", err, "event_type", eventType)
	}
}

func (s *Service) GetStatus(ctx context.Context, merchantOrderID string) (*StatusResponse, error) {
	record, err := s.repository.GetByMerchantOrderID(ctx, merchantOrderID)
	if err != nil {
		if stderrors.Is(err, errors.ErrDonationNotFound) {
			return nil, errors.ErrDonationNotFound
		}
		return nil, errors.NewStorageError("Failed to load donation", err)
	}

	return &StatusResponse{
		MerchantOrderID: record.MerchantOrderID,
		Status:          record.Status,
		Outcome:         NormalizeOutcome(record.Status),
	}, nil
}

func (s *Service) ListDonations(ctx context.Context, filter ListFilter) (*ListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Status = strings.ToUpper(strings.TrimSpace(filter.Status))
	if filter.Status != "" && filter.Status != donation.StatusPending && !IsTerminal(filter.Status) {
		return nil, errors.NewValidationFieldError("status", fmt.Sprintf("unknown status %q", filter.Status), errors.ErrCodeValidationFailed)
	}

	records, total, err := s.repository.List(ctx, filter)
	if err != nil {
		return nil, errors.NewStorageError("Failed to list donations", err)
	}

	donations := make([]DonationResponse, 0, len(records))
	for _, record := range records {
		donations = append(donations, ToDonationResponse(record))
	}

	return &ListResponse{
		Donations: donations,
		Total:     total,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	}, nil
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	summary, err := s.repository.Summary(ctx)
	if err != nil {
		return nil, errors.NewStorageError("Failed to summarise donations", err)
	}
	return summary, nil
}
