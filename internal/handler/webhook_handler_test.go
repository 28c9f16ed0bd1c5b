package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"workshop/internal/model"
	"workshop/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postWebhook(r http.Handler, secret, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, service.WebhookPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(WebhookSecretHeader, secret)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler(t *testing.T) {
	svc := &stubReceiptService{
		webhook: func(payload service.WebhookPayload) (service.ReceiptOutcome, error) {
			if payload.InvoiceRef == "INV-404" {
				return service.ReceiptOutcome{}, fmt.Errorf("invoice INV-404: %w", model.ErrNotFound)
			}
			assert.Equal(t, "BP-1", payload.BillID)
			return service.ReceiptOutcome{
				Status:     service.ReceiptSettled,
				InvoiceNo:  payload.InvoiceRef,
				Credited:   true,
				BalanceDue: decimal.Zero,
			}, nil
		},
	}
	r := newRouter(NewWebhookHandler(svc, "hook-secret"))
	body := `{"invoice_ref":"INV-1","bill_id":"BP-1"}`

	w := postWebhook(r, "", body)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = postWebhook(r, "wrong", body)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = postWebhook(r, "hook-secret", `{"bill_id":"BP-1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = postWebhook(r, "hook-secret", `{"invoice_ref":"INV-404"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = postWebhook(r, "hook-secret", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"credited":true`)
	require.Contains(t, w.Body.String(), `"balance_due":"0.00"`)
}

func TestWebhookHandler_NotConfigured(t *testing.T) {
	r := newRouter(NewWebhookHandler(&stubReceiptService{}, ""))

	w := postWebhook(r, "anything", `{"invoice_ref":"INV-1"}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
