package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeDonationSucceeded = "donation.succeeded"
	EventTypeDonationFailed    = "donation.failed"
)

// DonationStatusChangedEvent is emitted once per applied callback transition.
type DonationStatusChangedEvent struct {
	BaseEvent
	MerchantOrderID string `json:"merchant_order_id"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	Status          string `json:"status"`
	ResultCode      string `json:"result_code"`
}

func NewDonationStatusChangedEvent(eventType, merchantOrderID, reference string, amount int64, status, resultCode string) *DonationStatusChangedEvent {
	return &DonationStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"merchant_order_id": merchantOrderID,
				"reference":         reference,
				"amount":            amount,
				"status":            status,
				"result_code":       resultCode,
			},
		},
		MerchantOrderID: merchantOrderID,
		Reference:       reference,
		Amount:          amount,
		Status:          status,
		ResultCode:      resultCode,
	}
}
