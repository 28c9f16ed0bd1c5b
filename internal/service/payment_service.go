package service

import (
	"context"
	"fmt"
	"time"

	"workshop/internal/events"
	"workshop/internal/gateway"
	"workshop/internal/logger"
	"workshop/internal/metrics"
	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/samber/lo"
)

// --- DTOs ---

type PaymentLinkRequest struct {
	Amount        string `json:"amount"`    // Optional, defaults to the outstanding balance
	ForceNew      bool   `json:"force_new"` // Skip the reuse policy
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email"`
}

type PaymentLinkResponse struct {
	InvoiceID string `json:"invoice_id"`
	InvoiceNo string `json:"invoice_no"`
	Amount    string `json:"amount"` // what the returned link charges
	URL       string `json:"url"`
	BillID    string `json:"bill_id,omitempty"`
	Reused    bool   `json:"reused"`
	Demo      bool   `json:"demo"`
	Error     string `json:"error,omitempty"`
	// Set when a reused link charges something other than what was asked for.
	RequestedAmount string `json:"requested_amount,omitempty"`
	Warning         string `json:"warning,omitempty"`
}

type ConfirmDepositRequest struct {
	Amount    string `json:"amount"` // Optional, defaults to the requested deposit
	Confirmed bool   `json:"confirmed"`
}

type RecordPaymentRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Method    string `json:"method" binding:"required,oneof=cash transfer cheque card"`
	Reference string `json:"reference"`
	Note      string `json:"note"`
}

type PaymentResponse struct {
	ID            string `json:"id"`
	InvoiceID     string `json:"invoice_id"`
	Amount        string `json:"amount"`
	Method        string `json:"method"`
	Source        string `json:"source"`
	Reference     string `json:"reference"`
	BillID        string `json:"bill_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	RecordedBy    string `json:"recorded_by"`
	Note          string `json:"note"`
	CreatedAt     string `json:"created_at"`
}

// --- Interface ---

type PaymentService interface {
	// RequestLink returns a payment link for the invoice, reusing the stored
	// one when the reuse policy allows. A gateway failure yields a demo link
	// flagged as such rather than an error.
	RequestLink(ctx context.Context, invoiceID, userID string, req PaymentLinkRequest) (PaymentLinkResponse, error)
	ConfirmDepositReceived(ctx context.Context, invoiceID, userID string, req ConfirmDepositRequest) (InvoiceResponse, error)
	RecordPayment(ctx context.Context, invoiceID, userID string, req RecordPaymentRequest) (InvoiceResponse, error)
	ListPayments(ctx context.Context, invoiceID string) ([]PaymentResponse, error)
}

type paymentService struct {
	ledger
	links linkIssuer
}

func NewPaymentService(
	invoiceRepo repository.InvoiceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	gw gateway.Gateway,
	feed events.Feed,
	publicBaseURL string,
	log *logger.Logger,
) PaymentService {
	return &paymentService{
		ledger: ledger{
			invoiceRepo: invoiceRepo,
			auditRepo:   auditRepo,
			txManager:   txManager,
			feed:        feed,
			logger:      log,
		},
		links: linkIssuer{gateway: gw, publicBaseURL: publicBaseURL},
	}
}

// --- Implementation ---

func (s *paymentService) RequestLink(ctx context.Context, invoiceID, userID string, req PaymentLinkRequest) (PaymentLinkResponse, error) {
	id, err := parseInvoiceID(invoiceID)
	if err != nil {
		return PaymentLinkResponse{}, err
	}

	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return PaymentLinkResponse{}, fmt.Errorf("invoice not found: %w", err)
	}

	if inv.IsSettled() && !inv.BalanceDue.IsPositive() {
		return PaymentLinkResponse{}, model.ErrAlreadyPaid
	}

	amount := inv.OutstandingAmount()
	if req.Amount != "" {
		amount, err = parseAmount("amount", req.Amount)
		if err != nil {
			return PaymentLinkResponse{}, err
		}
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return PaymentLinkResponse{}, fmt.Errorf("%w: amount must be greater than zero", model.ErrValidation)
	}

	resp := PaymentLinkResponse{
		InvoiceID: inv.ID.String(),
		InvoiceNo: inv.InvoiceNo,
		Amount:    amount.StringFixed(2),
	}

	if !req.ForceNew && inv.LinkDecision() == model.LinkReuse {
		resp.URL = inv.LastPaymentLink
		resp.BillID = inv.LastPaymentID
		resp.Reused = true
		if billed := inv.BilledAmount(); billed.IsPositive() && !billed.Equal(amount) {
			resp.Amount = billed.StringFixed(2)
			resp.RequestedAmount = amount.StringFixed(2)
			resp.Warning = ReusedLinkNotice
		}
		metrics.PaymentLinks.WithLabelValues(metrics.LinkReused).Inc()
		return resp, nil
	}

	phone := CleanPhone(lo.Ternary(req.CustomerPhone != "", req.CustomerPhone, inv.CustomerPhone))
	if err := validatePhone(phone); err != nil {
		return PaymentLinkResponse{}, err
	}

	bill, err := s.links.issue(ctx, inv, amount, phone, req.CustomerEmail)
	if err != nil {
		s.logger.Warnw("payment link generation failed, returning demo link",
			"invoice_no", inv.InvoiceNo, "amount", resp.Amount, "error", err)
		metrics.PaymentLinks.WithLabelValues(metrics.LinkDemo).Inc()

		resp.URL = DemoLinkURL(inv.InvoiceNo, amount)
		resp.Demo = true
		resp.Error = fmt.Sprintf("%s: %v", DemoLinkNotice, err)
		return resp, nil
	}

	resp.URL = bill.URL
	resp.BillID = bill.ID
	metrics.PaymentLinks.WithLabelValues(metrics.LinkGenerated).Inc()

	update := linkUpdate(inv, bill, amount)

	// The customer already has a working link; a failed write only costs reuse later.
	if err := s.invoiceRepo.UpdateLink(ctx, inv.ID, update); err != nil {
		s.logger.Warnw("failed to persist payment link", "invoice_no", inv.InvoiceNo, "bill_id", bill.ID, "error", err)
		return resp, nil
	}

	remember(inv, update)
	s.audit(ctx, userID, model.ActionGeneratePaymentLink, inv, map[string]interface{}{
		"amount":  resp.Amount,
		"bill_id": bill.ID,
		"forced":  req.ForceNew,
	})
	s.publish(ctx, events.PaymentLinkIssued, inv)

	return resp, nil
}

func (s *paymentService) ConfirmDepositReceived(ctx context.Context, invoiceID, userID string, req ConfirmDepositRequest) (InvoiceResponse, error) {
	if !req.Confirmed {
		return InvoiceResponse{}, model.ErrConfirmationRequired
	}

	id, err := parseInvoiceID(invoiceID)
	if err != nil {
		return InvoiceResponse{}, err
	}

	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invoice not found: %w", err)
	}

	amount := inv.RequestedDeposit
	if req.Amount != "" {
		amount, err = parseAmount("amount", req.Amount)
		if err != nil {
			return InvoiceResponse{}, err
		}
	}
	if !amount.IsPositive() {
		return InvoiceResponse{}, fmt.Errorf("%w: no deposit amount to confirm", model.ErrValidation)
	}

	_, err = s.apply(ctx, inv, credit{
		Amount:     amount,
		Source:     model.SourceLink,
		Method:     model.MethodOnlineLink,
		BillID:     inv.LastPaymentID,
		RecordedBy: userID,
		Note:       "deposit confirmed by staff",
		Action:     model.ActionConfirmDeposit,
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return s.reload(ctx, inv)
}

func (s *paymentService) RecordPayment(ctx context.Context, invoiceID, userID string, req RecordPaymentRequest) (InvoiceResponse, error) {
	id, err := parseInvoiceID(invoiceID)
	if err != nil {
		return InvoiceResponse{}, err
	}

	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return InvoiceResponse{}, err
	}
	method := model.PaymentMethod(req.Method)
	if !method.Valid() || method == model.MethodOnlineLink {
		return InvoiceResponse{}, fmt.Errorf("%w: unsupported payment method %q", model.ErrValidation, req.Method)
	}

	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invoice not found: %w", err)
	}

	_, err = s.apply(ctx, inv, credit{
		Amount:     amount,
		Source:     model.SourceOffline,
		Method:     method,
		Reference:  req.Reference,
		RecordedBy: userID,
		Note:       req.Note,
		Action:     model.ActionRecordPayment,
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	return s.reload(ctx, inv)
}

func (s *paymentService) ListPayments(ctx context.Context, invoiceID string) ([]PaymentResponse, error) {
	id, err := parseInvoiceID(invoiceID)
	if err != nil {
		return nil, err
	}

	if _, err := s.invoiceRepo.FindByID(ctx, id); err != nil {
		return nil, fmt.Errorf("invoice not found: %w", err)
	}

	payments, err := s.invoiceRepo.ListPayments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}

	return lo.Map(payments, func(p model.InvoicePayment, _ int) PaymentResponse {
		return toPaymentResponse(p)
	}), nil
}

func (s *paymentService) reload(ctx context.Context, inv *model.Invoice) (InvoiceResponse, error) {
	reloaded, err := s.invoiceRepo.FindByIDWithDetails(ctx, inv.ID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to reload invoice: %w", err)
	}
	return toInvoiceResponse(*reloaded), nil
}

// --- Mapping ---

func toPaymentResponse(p model.InvoicePayment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID.String(),
		InvoiceID:     p.InvoiceID.String(),
		Amount:        p.Amount.StringFixed(2),
		Method:        string(p.Method),
		Source:        string(p.Source),
		Reference:     p.Reference,
		BillID:        p.BillID,
		TransactionID: p.TransactionID,
		RecordedBy:    p.RecordedBy,
		Note:          p.Note,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}
