package paymentgateway

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gatewaytypes "github.com/frahmantamala/donation-service/internal/core/datamodel/paymentgateway"
)

const (
	createInvoicePath = "/api/merchant/createInvoice"

	HeaderMerchantCode = "x-duitku-merchantcode"
	HeaderTimestamp    = "x-duitku-timestamp"
	HeaderSignature    = "x-duitku-signature"
)

type Config struct {
	BaseURL      string
	MerchantCode string
	APIKey       string
	Timeout      time.Duration
}

type Client struct {
	baseURL      string
	merchantCode string
	apiKey       string
	httpClient   *http.Client
	logger       *slog.Logger
	now          func() time.Time
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		merchantCode: config.MerchantCode,
		apiKey:       config.APIKey,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
		now:          time.Now,
	}
}

// RequestSignature signs an outbound request: hex(SHA-256(merchantCode + timestamp + apiKey)).
func RequestSignature(merchantCode, timestamp, apiKey string) string {
	sum := sha256.Sum256([]byte(merchantCode + timestamp + apiKey))
	return hex.EncodeToString(sum[:])
}

// CallbackSignature is the digest the gateway attaches to callbacks:
// hex(MD5(merchantCode + amount + merchantOrderId + apiKey)).
func CallbackSignature(merchantCode, amount, merchantOrderID, apiKey string) string {
	sum := md5.Sum([]byte(merchantCode + amount + merchantOrderID + apiKey))
	return hex.EncodeToString(sum[:])
}

// VerifyCallbackSignature compares in constant time against the lower-case hex
// digest the gateway sends.
func VerifyCallbackSignature(received, merchantCode, amount, merchantOrderID, apiKey string) bool {
	expected := CallbackSignature(merchantCode, amount, merchantOrderID, apiKey)
	return subtle.ConstantTimeCompare([]byte(received), []byte(expected)) == 1
}

// MerchantCode is the configured merchant identifier, used to verify callbacks.
func (c *Client) MerchantCode() string {
	return c.merchantCode
}

func (c *Client) VerifyCallback(p *gatewaytypes.CallbackPayload) bool {
	return VerifyCallbackSignature(p.Signature, c.merchantCode, p.Amount, p.MerchantOrderID, c.apiKey)
}

// CreateInvoice asks the gateway for a hosted payment page. Any non-2xx reply or a
// reply without a payment URL is an error.
func (c *Client) CreateInvoice(ctx context.Context, req *gatewaytypes.InvoiceRequest) (*gatewaytypes.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice request: %w", err)
	}

	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	url := c.baseURL + createInvoicePath

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(HeaderMerchantCode, c.merchantCode)
	httpReq.Header.Set(HeaderTimestamp, timestamp)
	httpReq.Header.Set(HeaderSignature, RequestSignature(c.merchantCode, timestamp, c.apiKey))

	c.logger.Info("creating gateway invoice",
		"merchant_order_id", req.MerchantOrderID,
		"amount", req.PaymentAmount,
		"url", url)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("gateway rejected invoice",
			"merchant_order_id", req.MerchantOrderID,
			"status", resp.StatusCode,
			"response", string(respBody))
		return nil, fmt.Errorf("gateway API error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var invoice gatewaytypes.InvoiceResponse
	if err := json.Unmarshal(respBody, &invoice); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if invoice.PaymentURL == "" {
		c.logger.Error("gateway response has no payment url",
			"merchant_order_id", req.MerchantOrderID,
			"response", string(respBody))
		return nil, fmt.Errorf("gateway API error [%d]: missing paymentUrl: %s", resp.StatusCode, string(respBody))
	}

	c.logger.Info("gateway invoice created",
		"merchant_order_id", req.MerchantOrderID,
		"reference", invoice.Reference)

	return &invoice, nil
}
