package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"workshop/internal/events"
	"workshop/internal/logger"
	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]model.Invoice
	payments []model.InvoicePayment

	// beforeUpdate runs once against the stored row before the next
	// UpdatePayment, standing in for a concurrent writer.
	beforeUpdate func(stored *model.Invoice)
	updateErr    error
	linkErr      error
	lastList     repository.InvoiceListFilter
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: map[uuid.UUID]model.Invoice{}}
}

func (r *fakeInvoiceRepo) Create(_ context.Context, invoice *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	invoice.CreatedAt = time.Now()
	for i := range invoice.Items {
		invoice.Items[i].ID = uuid.New()
		invoice.Items[i].InvoiceID = invoice.ID
	}
	stored := *invoice
	stored.Items = append([]model.InvoiceItem(nil), invoice.Items...)
	stored.Payments = nil
	r.invoices[invoice.ID] = stored
	return nil
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invoices[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	inv.Items = nil
	return &inv, nil
}

func (r *fakeInvoiceRepo) FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv, ok := r.invoices[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	inv.Items = append([]model.InvoiceItem(nil), inv.Items...)
	inv.Payments = r.paymentsFor(id)
	return &inv, nil
}

func (r *fakeInvoiceRepo) FindByNumber(_ context.Context, invoiceNo string) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, inv := range r.invoices {
		if inv.InvoiceNo == invoiceNo {
			inv.Items = nil
			return &inv, nil
		}
	}
	return nil, model.ErrNotFound
}

func (r *fakeInvoiceRepo) List(_ context.Context, filter repository.InvoiceListFilter) ([]model.Invoice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastList = filter

	var matched []model.Invoice
	for _, inv := range r.invoices {
		if filter.PaymentStatus != "" && string(inv.PaymentStatus) != filter.PaymentStatus {
			continue
		}
		if filter.InvoiceNo != "" && !strings.Contains(inv.InvoiceNo, filter.InvoiceNo) {
			continue
		}
		inv.Items = nil
		matched = append(matched, inv)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].InvoiceNo > matched[j].InvoiceNo })

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *fakeInvoiceRepo) ListCreatedBetween(_ context.Context, _, _ time.Time) ([]model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, inv)
	}
	return out, nil
}

func (r *fakeInvoiceRepo) UpdatePayment(_ context.Context, invoice *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.invoices[invoice.ID]
	if !ok {
		return model.ErrNotFound
	}
	if r.beforeUpdate != nil {
		r.beforeUpdate(&stored)
		r.beforeUpdate = nil
		r.invoices[invoice.ID] = stored
	}
	if stored.Version != invoice.Version {
		return model.ErrVersionConflict
	}

	stored.Deposit = invoice.Deposit
	stored.BalanceDue = invoice.BalanceDue
	stored.PaymentStatus = invoice.PaymentStatus
	stored.DepositStatus = invoice.DepositStatus
	stored.LastPaymentTransactionID = invoice.LastPaymentTransactionID
	stored.LastPaymentAt = invoice.LastPaymentAt
	stored.Version = invoice.Version + 1
	r.invoices[invoice.ID] = stored
	invoice.Version++
	return nil
}

func (r *fakeInvoiceRepo) UpdateLink(_ context.Context, id uuid.UUID, update repository.PaymentLinkUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.linkErr != nil {
		return r.linkErr
	}
	stored, ok := r.invoices[id]
	if !ok {
		return model.ErrNotFound
	}
	stored.LastPaymentLink = update.URL
	stored.LastPaymentID = update.BillID
	stored.LastPaymentAmount = update.Amount
	if update.DepositStatus != "" {
		stored.DepositStatus = update.DepositStatus
	}
	if update.RequestedDeposit != nil {
		stored.RequestedDeposit = *update.RequestedDeposit
	}
	r.invoices[id] = stored
	return nil
}

func (r *fakeInvoiceRepo) AppendPayment(_ context.Context, payment *model.InvoicePayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment.ID = uuid.New()
	payment.CreatedAt = time.Now()
	r.payments = append(r.payments, *payment)
	return nil
}

func (r *fakeInvoiceRepo) ListPayments(_ context.Context, invoiceID uuid.UUID) ([]model.InvoicePayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paymentsFor(invoiceID), nil
}

func (r *fakeInvoiceRepo) HasGatewayPayment(_ context.Context, invoiceID uuid.UUID, billID, transactionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.payments {
		if p.InvoiceID != invoiceID || p.Source != model.SourceLink {
			continue
		}
		if (billID != "" && p.BillID == billID) || (transactionID != "" && p.TransactionID == transactionID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeInvoiceRepo) CountByPrefix(_ context.Context, prefix string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, inv := range r.invoices {
		if strings.HasPrefix(inv.InvoiceNo, prefix) {
			n++
		}
	}
	return n, nil
}

func (r *fakeInvoiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.invoices[id]; !ok {
		return model.ErrNotFound
	}
	delete(r.invoices, id)
	return nil
}

func (r *fakeInvoiceRepo) paymentsFor(id uuid.UUID) []model.InvoicePayment {
	var out []model.InvoicePayment
	for _, p := range r.payments {
		if p.InvoiceID == id {
			out = append(out, p)
		}
	}
	return out
}

// seed stores an invoice with derived fields already computed.
func (r *fakeInvoiceRepo) seed(inv model.Invoice) *model.Invoice {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Version == 0 {
		inv.Version = 1
	}
	if inv.DepositStatus == "" {
		inv.DepositStatus = model.DepositNone
	}
	inv.Recompute()

	r.mu.Lock()
	r.invoices[inv.ID] = inv
	r.mu.Unlock()
	return &inv
}

func (r *fakeInvoiceRepo) get(id uuid.UUID) model.Invoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invoices[id]
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []model.AuditLog
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.logs = append(r.logs, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, filter repository.AuditListFilter) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.AuditLog
	for _, l := range r.logs {
		if filter.EntityID != "" && l.EntityID != filter.EntityID {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type testDeps struct {
	invoices *fakeInvoiceRepo
	audit    *fakeAuditRepo
	feed     events.Feed
	log      *logger.Logger
}

func newTestDeps() *testDeps {
	log := logger.NewNop()
	return &testDeps{
		invoices: newFakeInvoiceRepo(),
		audit:    &fakeAuditRepo{},
		feed:     events.NewMemoryFeed("invoices", log),
		log:      log,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
