package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemKind enum constants
const (
	ItemKindPart  = "part"
	ItemKindLabor = "labor"
)

// Invoice is a repair job bill together with its payment ledger.
// Deposit is the running total of money received. BalanceDue, PaymentStatus
// and DepositStatus are derived from it and must only change through
// ApplyPayment / Recompute so the two status fields cannot drift apart.
type Invoice struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo       string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	CustomerName    string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone   string          `gorm:"type:varchar(50)" json:"customer_phone"`
	CustomerEmail   string          `gorm:"type:varchar(255)" json:"customer_email"`
	VehiclePlate    string          `gorm:"type:varchar(20);index" json:"vehicle_plate"`
	WorkDescription string          `gorm:"type:text" json:"work_description"`
	Items           []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"subtotal"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0" json:"discount_percent"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount_amount"`
	Total           decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`

	Deposit          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"deposit"`
	BalanceDue       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"balance_due"`
	RequestedDeposit decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"requested_deposit"`
	PaymentStatus    PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	DepositStatus    DepositStatus   `gorm:"type:varchar(20);not null;default:'none'" json:"deposit_status"`

	LastPaymentLink string `gorm:"type:text" json:"last_payment_link"`
	LastPaymentID   string `gorm:"type:varchar(100);index" json:"last_payment_id"`
	// LastPaymentAmount is what the stored bill charges; redirects never override it.
	LastPaymentAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"last_payment_amount"`
	LastPaymentTransactionID string          `gorm:"type:varchar(100)" json:"last_payment_transaction_id"`
	LastPaymentAt            *time.Time      `json:"last_payment_at"`

	Payments []InvoicePayment `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`

	// Version guards read-modify-write cycles on the ledger columns.
	Version   int       `gorm:"not null;default:1" json:"version"`
	Note      string    `gorm:"type:text" json:"note"`
	CreatedBy string    `gorm:"type:varchar(50)" json:"created_by"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InvoiceItem is one billed line: a part or a block of labor.
type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Kind        string          `gorm:"type:varchar(10);not null" json:"kind"` // part, labor
	Description string          `gorm:"type:varchar(255);not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"line_total"`
}

// InvoicePayment is one credited amount in an invoice's payment history.
type InvoicePayment struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Method        PaymentMethod   `gorm:"type:varchar(20);not null" json:"method"`
	Source        PaymentSource   `gorm:"type:varchar(10);not null" json:"source"`
	Reference     string          `gorm:"type:varchar(100)" json:"reference"`
	BillID        string          `gorm:"type:varchar(100);index" json:"bill_id"`
	TransactionID string          `gorm:"type:varchar(100);index" json:"transaction_id"`
	RecordedBy    string          `gorm:"type:varchar(50)" json:"recorded_by"`
	Note          string          `gorm:"type:text" json:"note"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

// LineTotal returns qty x price rounded to cents.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

// ComputeTotals sums the item lines and applies a percentage discount.
func ComputeTotals(items []InvoiceItem, discountPercent decimal.Decimal) (subtotal, discount, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	subtotal = subtotal.Round(2)
	discount = subtotal.Mul(discountPercent).Div(decimal.NewFromInt(100)).Round(2)
	total = subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return subtotal, discount, total
}
