package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"workshop/internal/middleware"
	"workshop/internal/model"
	"workshop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "handler-secret"

type registrar interface {
	RegisterRoutes(router *gin.RouterGroup)
}

func newRouter(handlers ...registrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	for _, h := range handlers {
		h.RegisterRoutes(r.Group(""))
	}
	return r
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-" + role,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(r http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testAuth() *middleware.Auth {
	return middleware.NewAuth(testJWTSecret)
}

type stubInvoiceService struct {
	create func(userID string, req service.CreateInvoiceRequest) (service.InvoiceResponse, error)
	get    func(id string) (service.InvoiceResponse, error)
	list   func(filter service.InvoiceFilter) ([]service.InvoiceResponse, int64, error)
	del    func(id, userID string) error
	watch  func(ctx context.Context) (<-chan service.InvoiceSnapshot, error)
}

func (s *stubInvoiceService) CreateInvoice(_ context.Context, userID string, req service.CreateInvoiceRequest) (service.InvoiceResponse, error) {
	return s.create(userID, req)
}

func (s *stubInvoiceService) GetInvoice(_ context.Context, id string) (service.InvoiceResponse, error) {
	return s.get(id)
}

func (s *stubInvoiceService) GetInvoiceByNumber(_ context.Context, invoiceNo string) (service.InvoiceResponse, error) {
	return s.get(invoiceNo)
}

func (s *stubInvoiceService) ListInvoices(_ context.Context, filter service.InvoiceFilter) ([]service.InvoiceResponse, int64, error) {
	return s.list(filter)
}

func (s *stubInvoiceService) DeleteInvoice(_ context.Context, id string, userID string) error {
	return s.del(id, userID)
}

func (s *stubInvoiceService) WatchInvoices(ctx context.Context, _ service.InvoiceFilter) (<-chan service.InvoiceSnapshot, error) {
	return s.watch(ctx)
}

type stubPaymentService struct {
	link    func(id, userID string, req service.PaymentLinkRequest) (service.PaymentLinkResponse, error)
	confirm func(id string, req service.ConfirmDepositRequest) (service.InvoiceResponse, error)
	record  func(id string, req service.RecordPaymentRequest) (service.InvoiceResponse, error)
	list    func(id string) ([]service.PaymentResponse, error)
}

func (s *stubPaymentService) RequestLink(_ context.Context, id, userID string, req service.PaymentLinkRequest) (service.PaymentLinkResponse, error) {
	return s.link(id, userID, req)
}

func (s *stubPaymentService) ConfirmDepositReceived(_ context.Context, id, _ string, req service.ConfirmDepositRequest) (service.InvoiceResponse, error) {
	return s.confirm(id, req)
}

func (s *stubPaymentService) RecordPayment(_ context.Context, id, _ string, req service.RecordPaymentRequest) (service.InvoiceResponse, error) {
	return s.record(id, req)
}

func (s *stubPaymentService) ListPayments(_ context.Context, id string) ([]service.PaymentResponse, error) {
	return s.list(id)
}

type stubReceiptService struct {
	reconcile func(params service.RedirectParams) service.ReceiptOutcome
	retry     func(invoiceNo string) (string, error)
	webhook   func(payload service.WebhookPayload) (service.ReceiptOutcome, error)
}

func (s *stubReceiptService) Reconcile(_ context.Context, params service.RedirectParams) service.ReceiptOutcome {
	return s.reconcile(params)
}

func (s *stubReceiptService) RetryPayment(_ context.Context, invoiceNo string) (string, error) {
	return s.retry(invoiceNo)
}

func (s *stubReceiptService) HandleWebhook(_ context.Context, payload service.WebhookPayload) (service.ReceiptOutcome, error) {
	return s.webhook(payload)
}

type stubStatisticsService struct {
	summary func(timeframe string) (model.AccountingSummary, error)
}

func (s *stubStatisticsService) GetAccountingSummary(_ context.Context, timeframe string, _ time.Time) (model.AccountingSummary, error) {
	return s.summary(timeframe)
}

type stubAuditService struct {
	logs func(filter service.AuditFilter) ([]service.AuditLogResponse, int64, error)
}

func (s *stubAuditService) GetAuditLogs(_ context.Context, filter service.AuditFilter) ([]service.AuditLogResponse, int64, error) {
	return s.logs(filter)
}
