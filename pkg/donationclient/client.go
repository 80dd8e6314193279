// Package donationclient polls the public donation status endpoint.
package donationclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultPollInterval = 2 * time.Second

var ErrNotFound = errors.New("donation not found")

type Status struct {
	MerchantOrderID string `json:"merchantOrderId"`
	Status          string `json:"status"`
	Outcome         string `json:"outcome"`
}

// Final reports whether the donation has left the pending state.
func (s *Status) Final() bool {
	return s.Outcome == "success" || s.Outcome == "failed"
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithPollInterval(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.pollInterval = d
		}
	}
}

// New targets baseURL, e.g. "http://localhost:8080/api/v1".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetStatus(ctx context.Context, merchantOrderID string) (*Status, error) {
	endpoint := fmt.Sprintf("%s/donations/%s/status", c.baseURL, url.PathEscape(merchantOrderID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &status, nil
}

// WaitForStatus polls until the donation is final or ctx ends, returning the last
// status seen either way. onUpdate, when set, sees every poll result.
func (c *Client) WaitForStatus(ctx context.Context, merchantOrderID string, onUpdate func(*Status)) (*Status, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var last *Status
	for {
		status, err := c.GetStatus(ctx, merchantOrderID)
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			return last, err
		}
		last = status
		if onUpdate != nil {
			onUpdate(status)
		}
		if status.Final() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}
