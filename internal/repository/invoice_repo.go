package repository

import (
	"context"
	"errors"
	"time"

	"workshop/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceListFilter struct {
	PaymentStatus string // pending, deposit-paid, paid or empty for all
	InvoiceNo     string // partial match on invoice_no
	Search        string // partial match on customer name or plate
	OrderBy       string // whitelisted clause, newest first when empty
	Page          int
	Limit         int
}

// PaymentLinkUpdate is the link bookkeeping written after a bill is generated.
type PaymentLinkUpdate struct {
	URL              string
	BillID           string
	Amount           decimal.Decimal
	DepositStatus    model.DepositStatus // left untouched when empty
	RequestedDeposit *decimal.Decimal
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByNumber(ctx context.Context, invoiceNo string) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]model.Invoice, error)
	UpdatePayment(ctx context.Context, invoice *model.Invoice) error
	UpdateLink(ctx context.Context, id uuid.UUID, update PaymentLinkUpdate) error
	AppendPayment(ctx context.Context, payment *model.InvoicePayment) error
	ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]model.InvoicePayment, error)
	HasGatewayPayment(ctx context.Context, invoiceID uuid.UUID, billID, transactionID string) (bool, error)
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ErrNotFound
	}
	return err
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByNumber(ctx context.Context, invoiceNo string) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).First(&invoice, "invoice_no = ?", invoiceNo).Error; err != nil {
		return nil, notFound(err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Invoice{})
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.InvoiceNo != "" {
		query = query.Where("invoice_no ILIKE ?", "%"+filter.InvoiceNo+"%")
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("customer_name ILIKE ? OR vehicle_plate ILIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at desc"
	}
	if err := query.Order(orderBy).Offset(offset).Limit(filter.Limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

func (r *invoiceRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]model.Invoice, error) {
	var invoices []model.Invoice
	query := GetDB(ctx, r.db).Model(&model.Invoice{})
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("created_at <= ?", to)
	}
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// UpdatePayment writes the ledger columns if nobody else has since the invoice was read.
func (r *invoiceRepository) UpdatePayment(ctx context.Context, invoice *model.Invoice) error {
	res := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version).
		Updates(map[string]interface{}{
			"deposit":                     invoice.Deposit,
			"balance_due":                 invoice.BalanceDue,
			"payment_status":              invoice.PaymentStatus,
			"deposit_status":              invoice.DepositStatus,
			"last_payment_transaction_id": invoice.LastPaymentTransactionID,
			"last_payment_at":             invoice.LastPaymentAt,
			"version":                     invoice.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrVersionConflict
	}
	invoice.Version++
	return nil
}

func (r *invoiceRepository) UpdateLink(ctx context.Context, id uuid.UUID, update PaymentLinkUpdate) error {
	fields := map[string]interface{}{
		"last_payment_link":   update.URL,
		"last_payment_id":     update.BillID,
		"last_payment_amount": update.Amount,
	}
	if update.DepositStatus != "" {
		fields["deposit_status"] = update.DepositStatus
	}
	if update.RequestedDeposit != nil {
		fields["requested_deposit"] = *update.RequestedDeposit
	}

	res := GetDB(ctx, r.db).Model(&model.Invoice{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *invoiceRepository) AppendPayment(ctx context.Context, payment *model.InvoicePayment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *invoiceRepository) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]model.InvoicePayment, error) {
	var payments []model.InvoicePayment
	if err := GetDB(ctx, r.db).Where("invoice_id = ?", invoiceID).Order("created_at asc").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// HasGatewayPayment reports whether a credit for this bill or transaction is already in the history.
func (r *invoiceRepository) HasGatewayPayment(ctx context.Context, invoiceID uuid.UUID, billID, transactionID string) (bool, error) {
	if billID == "" && transactionID == "" {
		return false, nil
	}

	query := GetDB(ctx, r.db).Model(&model.InvoicePayment{}).
		Where("invoice_id = ? AND source = ?", invoiceID, model.SourceLink)
	switch {
	case billID != "" && transactionID != "":
		query = query.Where("bill_id = ? OR transaction_id = ?", billID, transactionID)
	case billID != "":
		query = query.Where("bill_id = ?", billID)
	default:
		query = query.Where("transaction_id = ?", transactionID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *invoiceRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Invoice{}).Where("invoice_no LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Select("Items", "Payments").Delete(&model.Invoice{ID: id})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
