package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"workshop/internal/events"
	"workshop/internal/logger"
	"workshop/internal/metrics"
	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// credit describes money being added to an invoice.
type credit struct {
	Amount        decimal.Decimal
	Source        model.PaymentSource
	Method        model.PaymentMethod
	BillID        string
	TransactionID string
	Reference     string
	RecordedBy    string
	Note          string
	Action        string
}

// ledger is the single write path for invoice money. Every credit goes through
// ApplyPayment, Validate and a version-checked update in one transaction.
type ledger struct {
	invoiceRepo repository.InvoiceRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	feed        events.Feed
	logger      *logger.Logger
}

// apply credits a copy of inv and only writes it back once the transaction commits.
func (l *ledger) apply(ctx context.Context, inv *model.Invoice, c credit) (*model.InvoicePayment, error) {
	next := *inv
	if err := next.ApplyPayment(c.Amount, c.Source); err != nil {
		return nil, err
	}
	if c.TransactionID != "" {
		next.LastPaymentTransactionID = c.TransactionID
	}
	now := time.Now()
	next.LastPaymentAt = &now

	if err := next.Validate(); err != nil {
		return nil, err
	}

	payment := &model.InvoicePayment{
		InvoiceID:     next.ID,
		Amount:        c.Amount.Round(2),
		Method:        c.Method,
		Source:        c.Source,
		Reference:     c.Reference,
		BillID:        c.BillID,
		TransactionID: c.TransactionID,
		RecordedBy:    actorOrSystem(c.RecordedBy),
		Note:          c.Note,
	}

	err := l.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := l.invoiceRepo.UpdatePayment(txCtx, &next); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		if err := l.invoiceRepo.AppendPayment(txCtx, payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"amount":         payment.Amount.StringFixed(2),
			"method":         payment.Method,
			"source":         payment.Source,
			"bill_id":        payment.BillID,
			"transaction_id": payment.TransactionID,
			"balance_due":    next.BalanceDue.StringFixed(2),
			"payment_status": next.PaymentStatus,
		})
		if err := l.auditRepo.Log(txCtx, &model.AuditLog{
			Actor:      payment.RecordedBy,
			Action:     c.Action,
			EntityID:   next.ID.String(),
			EntityName: next.InvoiceNo,
			Details:    string(details),
		}); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	*inv = next
	metrics.PaymentsCredited.WithLabelValues(string(c.Source)).Inc()
	l.publish(ctx, events.PaymentRecorded, inv)
	return payment, nil
}

// audit writes a best-effort audit entry outside any ledger transaction.
func (l *ledger) audit(ctx context.Context, actor, action string, inv *model.Invoice, details map[string]interface{}) {
	payload, _ := json.Marshal(details)
	if err := l.auditRepo.Log(ctx, &model.AuditLog{
		Actor:      actorOrSystem(actor),
		Action:     action,
		EntityID:   inv.ID.String(),
		EntityName: inv.InvoiceNo,
		Details:    string(payload),
	}); err != nil {
		l.logger.Warnw("failed to write audit log", "invoice_no", inv.InvoiceNo, "action", action, "error", err)
	}
}

// publish never fails the caller; a missed event only delays live views.
func (l *ledger) publish(ctx context.Context, eventType events.EventType, inv *model.Invoice) {
	if l.feed == nil {
		return
	}
	err := l.feed.Publish(ctx, events.InvoiceEvent{
		Type:          eventType,
		InvoiceID:     inv.ID.String(),
		InvoiceNo:     inv.InvoiceNo,
		PaymentStatus: string(inv.PaymentStatus),
		BalanceDue:    inv.BalanceDue.StringFixed(2),
	})
	if err != nil {
		l.logger.Warnw("failed to publish invoice event", "invoice_no", inv.InvoiceNo, "event", eventType, "error", err)
	}
}

// --- Helpers ---

func actorOrSystem(actor string) string {
	if actor == "" {
		return model.SystemActor
	}
	return actor
}

func parseInvoiceID(id string) (uuid.UUID, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid invoice id: %v", model.ErrValidation, err)
	}
	return invoiceID, nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid %s: %v", model.ErrValidation, field, err)
	}
	return amount, nil
}

func parseOptionalAmount(field, raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return parseAmount(field, raw)
}

// CleanPhone strips the separators customers usually type.
func CleanPhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
}

const minPhoneDigits = 9

func validatePhone(phone string) error {
	if len(phone) < minPhoneDigits {
		return fmt.Errorf("%w: customer phone number must have at least %d digits", model.ErrValidation, minPhoneDigits)
	}
	return nil
}
