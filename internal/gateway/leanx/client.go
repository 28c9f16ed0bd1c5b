// Package leanx implements gateway.Gateway against the Lean.x bill API.
package leanx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"workshop/internal/config"
	"workshop/internal/gateway"
)

const (
	createBillPath = "/api/v1/merchant/create-bill-page"

	defaultCustomerName  = "Valued Customer"
	defaultCustomerEmail = "noemail@example.com"
)

// Bill lookups are tried in this order; a 404 falls through to the next one.
var statusPaths = []string{
	"/api/v1/bills/%s",
	"/api/v1/merchant/bills/%s",
	"/api/v1/open/bills/%s",
}

// APIError is a non-2xx answer from Lean.x.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("leanx: status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	cfg config.Gateway
	c   *http.Client
}

var _ gateway.Gateway = (*Client)(nil)

func NewClient(cfg config.Gateway) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		cfg: cfg,
		c:   &http.Client{Timeout: timeout},
	}
}

type createBillRequest struct {
	CollectionUUID string      `json:"collection_uuid"`
	Amount         json.Number `json:"amount"`
	InvoiceRef     string      `json:"invoice_ref"`
	RedirectURL    string      `json:"redirect_url"`
	CallbackURL    string      `json:"callback_url"`
	FullName       string      `json:"full_name"`
	Email          string      `json:"email"`
	PhoneNumber    string      `json:"phone_number"`
}

func (c *Client) CreateBill(ctx context.Context, bill gateway.BillRequest) (gateway.Bill, error) {
	reqData := createBillRequest{
		CollectionUUID: c.cfg.CollectionUUID,
		Amount:         json.Number(bill.Amount.StringFixed(2)),
		InvoiceRef:     bill.InvoiceRef,
		RedirectURL:    bill.RedirectURL,
		CallbackURL:    bill.CallbackURL,
		FullName:       orDefault(bill.CustomerName, defaultCustomerName),
		Email:          orDefault(bill.CustomerEmail, defaultCustomerEmail),
		PhoneNumber:    bill.CustomerPhone,
	}
	if reqData.CallbackURL == "" {
		reqData.CallbackURL = bill.RedirectURL
	}

	b, err := json.Marshal(reqData)
	if err != nil {
		return gateway.Bill{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIHost+createBillPath, bytes.NewReader(b))
	if err != nil {
		return gateway.Bill{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("auth-token", c.cfg.AuthToken)

	status, body, err := c.do(req)
	if err != nil {
		return gateway.Bill{}, err
	}
	if status < 200 || status >= 300 {
		return gateway.Bill{}, newAPIError(status, body)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return gateway.Bill{}, fmt.Errorf("%w: unmarshal response: %v", gateway.ErrMalformedResponse, err)
	}

	return NormalizeBill(raw)
}

func (c *Client) CheckStatus(ctx context.Context, billID string) (gateway.BillStatus, error) {
	if strings.TrimSpace(billID) == "" {
		return gateway.BillStatus{}, gateway.ErrMissingBillID
	}

	for _, path := range statusPaths {
		reqURL := c.cfg.APIHost + fmt.Sprintf(path, url.PathEscape(billID))

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return gateway.BillStatus{}, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("auth-token", c.cfg.AuthToken)

		status, body, err := c.do(req)
		if err != nil {
			return gateway.BillStatus{}, err
		}
		if status == http.StatusNotFound {
			continue
		}
		if status < 200 || status >= 300 {
			return gateway.BillStatus{}, newAPIError(status, body)
		}

		var raw map[string]interface{}
		if err := json.Unmarshal(body, &raw); err != nil {
			return gateway.BillStatus{}, fmt.Errorf("%w: unmarshal response: %v", gateway.ErrMalformedResponse, err)
		}
		return NormalizeStatus(raw), nil
	}

	return gateway.BillStatus{Found: false, Status: gateway.StatusNotFound}, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.c.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func newAPIError(status int, body []byte) *APIError {
	msg := http.StatusText(status)

	var payload struct {
		Message     string `json:"message"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			msg = payload.Message
		case payload.Description != "":
			msg = payload.Description
		}
	}

	return &APIError{StatusCode: status, Message: msg}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
