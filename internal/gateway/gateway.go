// Package gateway abstracts the hosted payment-bill provider.
package gateway

//go:generate mockgen -destination=../mocks/gateway_mock.go -package=mocks workshop/internal/gateway Gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Normalized bill status values.
const (
	StatusPaid     = "paid"
	StatusUnpaid   = "unpaid"
	StatusNotFound = "not_found"
)

var (
	ErrMissingBillID     = errors.New("bill id is required")
	ErrMalformedResponse = errors.New("malformed gateway response")
)

// BillRequest describes a hosted payment page to create.
type BillRequest struct {
	Amount        decimal.Decimal
	InvoiceRef    string
	RedirectURL   string
	CallbackURL   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// Bill is a created hosted payment page. ID may be empty if the provider did not return one.
type Bill struct {
	URL string
	ID  string
}

// BillStatus is the provider's view of a bill.
type BillStatus struct {
	Found  bool
	Paid   bool
	Status string
}

type Gateway interface {
	CreateBill(ctx context.Context, req BillRequest) (Bill, error)
	CheckStatus(ctx context.Context, billID string) (BillStatus, error)
}
