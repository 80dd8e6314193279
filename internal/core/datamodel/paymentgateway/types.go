package paymentgateway

import (
	"errors"
)

// ResultCodeSuccess is the callback result code for a settled payment.
const ResultCodeSuccess = "00"

// MaxMerchantOrderIDLength matches donations.merchant_order_id.
const MaxMerchantOrderIDLength = 64

var (
	ErrCallbackMissingFields  = errors.New("merchantOrderId, resultCode and reference are required")
	ErrMerchantOrderIDTooLong = errors.New("merchantOrderId must not exceed 64 characters")
)

// InvoiceRequest is the body sent to the gateway's invoice creation endpoint.
type InvoiceRequest struct {
	PaymentAmount   int64  `json:"paymentAmount"`
	MerchantOrderID string `json:"merchantOrderId"`
	ProductDetails  string `json:"productDetails"`
	CustomerVaName  string `json:"customerVaName"`
	Email           string `json:"email"`
	CallbackURL     string `json:"callbackUrl"`
	ReturnURL       string `json:"returnUrl"`
	ExpiryPeriod    int    `json:"expiryPeriod"`
}

func (r *InvoiceRequest) Validate() error {
	if r.MerchantOrderID == "" {
		return errors.New("merchantOrderId is required")
	}
	if r.PaymentAmount <= 0 {
		return errors.New("paymentAmount must be greater than 0")
	}
	if r.CallbackURL == "" || r.ReturnURL == "" {
		return errors.New("callbackUrl and returnUrl are required")
	}
	return nil
}

// InvoiceResponse is the gateway's reply; PaymentURL is empty when the invoice was not issued.
type InvoiceResponse struct {
	MerchantCode  string `json:"merchantCode"`
	Reference     string `json:"reference"`
	PaymentURL    string `json:"paymentUrl"`
	StatusCode    string `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
}

// CallbackPayload is the asynchronous notification the gateway posts back.
type CallbackPayload struct {
	MerchantCode    string `json:"merchantCode"`
	MerchantOrderID string `json:"merchantOrderId"`
	Amount          string `json:"amount"`
	ResultCode      string `json:"resultCode"`
	Reference       string `json:"reference"`
	Signature       string `json:"signature"`
}

func (p *CallbackPayload) Validate() error {
	if p.MerchantOrderID == "" || p.ResultCode == "" || p.Reference == "" {
		return ErrCallbackMissingFields
	}
	if len(p.MerchantOrderID) > MaxMerchantOrderIDLength {
		return ErrMerchantOrderIDTooLong
	}
	return nil
}
