package model

import (
	"time"
)

// Accounting timeframes
const (
	TimeframeMonth = "month"
	TimeframeYear  = "year"
	TimeframeAll   = "all"
)

// AccountingSummary aggregates invoice totals for a timeframe
type AccountingSummary struct {
	Timeframe          string    `json:"timeframe"`
	TotalRevenue       string    `json:"total_revenue"`   // sum of invoice totals
	PendingPayment     string    `json:"pending_payment"` // balance still owed on unpaid invoices
	Collected          string    `json:"collected"`       // money received
	InvoiceCount       int       `json:"invoice_count"`
	PaidCount          int       `json:"paid_count"`
	DepositPaidCount   int       `json:"deposit_paid_count"`
	PendingCount       int       `json:"pending_count"`
	TimeRangeStartDate time.Time `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time `json:"time_range_end_date"`
}
