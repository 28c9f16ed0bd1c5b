package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workshop/internal/events"
	"workshop/internal/gateway"
	"workshop/internal/logger"
	"workshop/internal/metrics"
	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var ErrLinkUnavailable = errors.New("payment link could not be generated")

// --- DTOs ---

type ReceiptStatus string

const (
	// ReceiptSettled: the store shows the money, either already or after this visit.
	ReceiptSettled ReceiptStatus = "settled"
	// ReceiptUnverified: the gateway could not confirm either way; its own receipt decides.
	ReceiptUnverified ReceiptStatus = "unverified"
	ReceiptNotFound   ReceiptStatus = "not_found"
	ReceiptInvalid    ReceiptStatus = "invalid"
	ReceiptError      ReceiptStatus = "error"
)

type ReceiptOutcome struct {
	Status        ReceiptStatus
	InvoiceNo     string
	CustomerName  string
	VehiclePlate  string
	Credited      bool
	AmountPaid    decimal.Decimal
	BalanceDue    decimal.Decimal
	RedirectURL   string
	RedirectDelay time.Duration
	CanRetry      bool
}

// WebhookPayload is the gateway's server-to-server notification.
type WebhookPayload struct {
	InvoiceRef    string `json:"invoice_ref" binding:"required"`
	BillID        string `json:"bill_id"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
}

// --- Interface ---

type ReceiptService interface {
	// Reconcile verifies a gateway redirect against the gateway itself and
	// credits the invoice at most once per bill or transaction.
	Reconcile(ctx context.Context, params RedirectParams) ReceiptOutcome
	// RetryPayment issues a fresh link for the outstanding amount.
	RetryPayment(ctx context.Context, invoiceNo string) (string, error)
	HandleWebhook(ctx context.Context, payload WebhookPayload) (ReceiptOutcome, error)
}

type receiptService struct {
	ledger
	links         linkIssuer
	gateway       gateway.Gateway
	redirectDelay time.Duration
}

func NewReceiptService(
	invoiceRepo repository.InvoiceRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	gw gateway.Gateway,
	feed events.Feed,
	publicBaseURL string,
	redirectDelay time.Duration,
	log *logger.Logger,
) ReceiptService {
	return &receiptService{
		ledger: ledger{
			invoiceRepo: invoiceRepo,
			auditRepo:   auditRepo,
			txManager:   txManager,
			feed:        feed,
			logger:      log,
		},
		links:         linkIssuer{gateway: gw, publicBaseURL: publicBaseURL},
		gateway:       gw,
		redirectDelay: redirectDelay,
	}
}

// --- Implementation ---

func (s *receiptService) Reconcile(ctx context.Context, params RedirectParams) ReceiptOutcome {
	out := ReceiptOutcome{InvoiceNo: params.InvoiceNo}
	defer func() {
		metrics.Reconciliations.WithLabelValues(string(out.Status)).Inc()
	}()

	if params.InvoiceNo == "" {
		out.Status = ReceiptInvalid
		return out
	}

	inv, err := s.invoiceRepo.FindByNumber(ctx, params.InvoiceNo)
	if errors.Is(err, model.ErrNotFound) {
		out.Status = ReceiptNotFound
		return out
	}
	if err != nil {
		s.logger.Errorw("failed to load invoice for receipt", "invoice_no", params.InvoiceNo, "error", err)
		out.Status = ReceiptError
		return out
	}

	if params.FailureSignal || params.PaymentStatus == "failed" {
		s.logger.Infow("redirect reports failure, verifying with gateway",
			"invoice_no", inv.InvoiceNo, "payment_status", params.PaymentStatus)
	}

	out.Status, out.Credited = s.verify(ctx, inv, params)
	out.CustomerName = inv.CustomerName
	out.VehiclePlate = inv.VehiclePlate
	out.BalanceDue = inv.BalanceDue

	switch billed := inv.BilledAmount(); {
	case billed.IsPositive():
		out.AmountPaid = billed
	case params.Amount.IsPositive():
		out.AmountPaid = params.Amount
	case inv.Deposit.IsPositive():
		out.AmountPaid = inv.Deposit
	default:
		out.AmountPaid = inv.Total
	}

	if inv.LastPaymentLink != "" {
		out.RedirectURL = inv.LastPaymentLink
		out.RedirectDelay = s.redirectDelay
	} else {
		out.CanRetry = !inv.IsSettled()
	}

	return out
}

// verify runs the zero-trust check. inv is refreshed in place when a credit lands.
func (s *receiptService) verify(ctx context.Context, inv *model.Invoice, params RedirectParams) (ReceiptStatus, bool) {
	if inv.IsSettled() || !inv.HasOpenBalance() {
		return ReceiptSettled, false
	}

	// A paid deposit link redirect that does not match the balance is the
	// deposit payment coming back again. Without an amount there is nothing to
	// compare, so the gateway and the payment history decide.
	if inv.DepositStatus == model.DepositPaidLink && params.Amount.IsPositive() && !inv.MatchesBalance(params.Amount) {
		return ReceiptSettled, false
	}

	billID := lo.Ternary(params.BillID != "", params.BillID, inv.LastPaymentID)
	if billID == "" {
		s.logger.Infow("no bill id to verify receipt against", "invoice_no", inv.InvoiceNo)
		return ReceiptUnverified, false
	}

	start := time.Now()
	status, err := s.gateway.CheckStatus(ctx, billID)
	metrics.ObserveGateway("check_status", time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.Warnw("gateway status check failed", "invoice_no", inv.InvoiceNo, "bill_id", billID, "error", err)
		return ReceiptUnverified, false
	}
	if !status.Paid {
		s.logger.Infow("gateway does not report bill as paid", "invoice_no", inv.InvoiceNo, "bill_id", billID, "status", status.Status)
		return ReceiptUnverified, false
	}

	credited, err := s.creditFromGateway(ctx, inv, params, billID)
	if err != nil {
		// The gateway has the money; a failed write here is for staff to fix, not the customer.
		s.logger.Errorw("gateway confirmed payment but crediting failed",
			"invoice_no", inv.InvoiceNo, "bill_id", billID, "error", err)
	}
	return ReceiptSettled, credited
}

// creditFromGateway credits a gateway-confirmed payment once. On a version
// conflict it re-reads the invoice and re-checks idempotency a single time.
func (s *receiptService) creditFromGateway(ctx context.Context, inv *model.Invoice, params RedirectParams, billID string) (bool, error) {
	token := lo.Ternary(params.TransactionID != "", params.TransactionID, billID)

	for attempt := 0; attempt < 2; attempt++ {
		if inv.LastPaymentTransactionID != "" && inv.LastPaymentTransactionID == token {
			return false, nil
		}
		if !inv.HasOpenBalance() {
			return false, nil
		}
		seen, err := s.invoiceRepo.HasGatewayPayment(ctx, inv.ID, billID, params.TransactionID)
		if err != nil {
			return false, fmt.Errorf("failed to check payment history: %w", err)
		}
		if seen {
			return false, nil
		}

		_, err = s.apply(ctx, inv, credit{
			Amount:        gatewayCreditAmount(inv, params, billID),
			Source:        model.SourceLink,
			Method:        model.MethodOnlineLink,
			BillID:        billID,
			TransactionID: token,
			Note:          "confirmed with gateway after " + lo.Ternary(params.PaymentStatus == "webhook", "webhook", "redirect"),
			Action:        model.ActionGatewayPayment,
		})
		if errors.Is(err, model.ErrVersionConflict) {
			fresh, findErr := s.invoiceRepo.FindByID(ctx, inv.ID)
			if findErr != nil {
				return false, findErr
			}
			*inv = *fresh
			continue
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}

	return false, model.ErrVersionConflict
}

// gatewayCreditAmount trusts the amount recorded when the bill was issued. A
// redirect amount only stands in for bills with no recorded amount, and never
// beyond the balance.
func gatewayCreditAmount(inv *model.Invoice, params RedirectParams, billID string) decimal.Decimal {
	if billID == inv.LastPaymentID {
		if billed := inv.BilledAmount(); billed.IsPositive() {
			return billed
		}
	}
	if params.Amount.IsPositive() && params.Amount.LessThan(inv.BalanceDue) {
		return params.Amount
	}
	return inv.BalanceDue
}

func (s *receiptService) RetryPayment(ctx context.Context, invoiceNo string) (string, error) {
	if invoiceNo == "" {
		return "", fmt.Errorf("%w: invoice number is required", model.ErrValidation)
	}

	inv, err := s.invoiceRepo.FindByNumber(ctx, invoiceNo)
	if err != nil {
		return "", fmt.Errorf("invoice %s not found: %w", invoiceNo, err)
	}
	if inv.IsSettled() {
		return "", fmt.Errorf("invoice %s: %w", invoiceNo, model.ErrAlreadyPaid)
	}

	phone := CleanPhone(inv.CustomerPhone)
	if err := validatePhone(phone); err != nil {
		return "", err
	}

	amount := inv.OutstandingAmount()
	bill, err := s.links.issue(ctx, inv, amount, phone, "")
	if err != nil {
		s.logger.Warnw("retry payment link generation failed", "invoice_no", inv.InvoiceNo, "error", err)
		return "", fmt.Errorf("%w: %v", ErrLinkUnavailable, err)
	}
	metrics.PaymentLinks.WithLabelValues(metrics.LinkGenerated).Inc()

	update := linkUpdate(inv, bill, amount)
	if err := s.invoiceRepo.UpdateLink(ctx, inv.ID, update); err != nil {
		s.logger.Warnw("failed to persist retried payment link", "invoice_no", inv.InvoiceNo, "bill_id", bill.ID, "error", err)
		return bill.URL, nil
	}

	remember(inv, update)
	s.audit(ctx, model.SystemActor, model.ActionGeneratePaymentLink, inv, map[string]interface{}{
		"amount":  amount.StringFixed(2),
		"bill_id": bill.ID,
		"retry":   true,
	})
	s.publish(ctx, events.PaymentLinkIssued, inv)

	return bill.URL, nil
}

// HandleWebhook treats the notification like a redirect: it names the bill,
// the gateway confirms it.
func (s *receiptService) HandleWebhook(ctx context.Context, payload WebhookPayload) (ReceiptOutcome, error) {
	params := RedirectParams{
		PaymentStatus: "webhook",
		InvoiceNo:     payload.InvoiceRef,
		BillID:        payload.BillID,
		TransactionID: payload.TransactionID,
	}
	if payload.Amount != "" {
		amount, err := parseAmount("amount", payload.Amount)
		if err != nil {
			return ReceiptOutcome{}, err
		}
		if amount.IsPositive() {
			params.Amount = amount
		}
	}

	out := s.Reconcile(ctx, params)
	switch out.Status {
	case ReceiptNotFound:
		return out, fmt.Errorf("invoice %s: %w", payload.InvoiceRef, model.ErrNotFound)
	case ReceiptInvalid:
		return out, fmt.Errorf("%w: invoice_ref is required", model.ErrValidation)
	case ReceiptError:
		return out, errors.New("failed to load invoice")
	}
	return out, nil
}
