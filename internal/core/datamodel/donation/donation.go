package donation

import "time"

const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"

	// Statuses some gateway integrations report directly.
	StatusPaid    = "PAID"
	StatusExpired = "EXPIRED"
)

// TerminalStatuses never transition again once stored.
var TerminalStatuses = []string{StatusSuccess, StatusFailed, StatusPaid, StatusExpired}

// SucceededStatuses are counted as received money.
var SucceededStatuses = []string{StatusSuccess, StatusPaid}

type Donation struct {
	ID              int64     `gorm:"primaryKey"`
	MerchantOrderID string    `gorm:"column:merchant_order_id;not null;uniqueIndex"`
	DonorName       string    `gorm:"column:donor_name;not null"`
	Email           *string   `gorm:"column:email"`
	Message         *string   `gorm:"column:message"`
	Amount          int64     `gorm:"column:amount;not null"`
	Reference       *string   `gorm:"column:reference"`
	PaymentURL      *string   `gorm:"column:payment_url"`
	Status          string    `gorm:"column:status;not null;default:PENDING;index"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (Donation) TableName() string {
	return "donations"
}
