package donation

import (
	"context"
	"time"

	"github.com/frahmantamala/donation-service/internal/core/datamodel/donation"
	gatewaytypes "github.com/frahmantamala/donation-service/internal/core/datamodel/paymentgateway"
)

const (
	MinAmount = 10000
	MaxAmount = 100000000

	MaxDonorNameLength = 100
	MaxEmailLength     = 255
	MaxMessageLength   = 500
	MaxVaNameLength    = 50

	UnknownDonorName = "Unknown"
)

// Outcome is the two-bucket view of a status that clients poll on.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// NormalizeOutcome folds gateway aliases: PAID counts as success, EXPIRED as failed.
func NormalizeOutcome(status string) Outcome {
	switch status {
	case donation.StatusSuccess, donation.StatusPaid:
		return OutcomeSuccess
	case donation.StatusFailed, donation.StatusExpired:
		return OutcomeFailed
	}
	return OutcomePending
}

func IsTerminal(status string) bool {
	for _, s := range donation.TerminalStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// StatusFromResultCode maps a callback result code to the status it settles on.
func StatusFromResultCode(resultCode string) string {
	if resultCode == gatewaytypes.ResultCodeSuccess {
		return donation.StatusSuccess
	}
	return donation.StatusFailed
}

type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

type Summary struct {
	Count         int64   `json:"count"`
	TotalAmount   int64   `json:"total_amount"`
	AverageAmount float64 `json:"average_amount"`
}

type RepositoryAPI interface {
	Create(ctx context.Context, d *donation.Donation) error
	GetByMerchantOrderID(ctx context.Context, merchantOrderID string) (*donation.Donation, error)
	// TransitionStatus moves a non-terminal record to status. It reports false when
	// the record is missing or already terminal.
	TransitionStatus(ctx context.Context, merchantOrderID, status, reference string, at time.Time) (bool, error)
	// CreateIfAbsent inserts d unless a record with the same merchant order id exists.
	CreateIfAbsent(ctx context.Context, d *donation.Donation) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]*donation.Donation, int64, error)
	Summary(ctx context.Context) (*Summary, error)
}

type GatewayAPI interface {
	CreateInvoice(ctx context.Context, req *gatewaytypes.InvoiceRequest) (*gatewaytypes.InvoiceResponse, error)
	VerifyCallback(payload *gatewaytypes.CallbackPayload) bool
}

type ServiceAPI interface {
	CreateDonation(ctx context.Context, req *CreateDonationRequest) (*CreatePaymentResponse, error)
	HandleCallback(ctx context.Context, payload *gatewaytypes.CallbackPayload) (*CallbackResult, error)
	GetStatus(ctx context.Context, merchantOrderID string) (*StatusResponse, error)
	ListDonations(ctx context.Context, filter ListFilter) (*ListResponse, error)
	Summary(ctx context.Context) (*Summary, error)
}
