package service

import (
	"context"
	"fmt"
	"time"

	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/shopspring/decimal"
)

type StatisticsService interface {
	GetAccountingSummary(ctx context.Context, timeframe string, now time.Time) (model.AccountingSummary, error)
}

type statisticsService struct {
	invoiceRepo repository.InvoiceRepository
}

func NewStatisticsService(invoiceRepo repository.InvoiceRepository) StatisticsService {
	return &statisticsService{invoiceRepo: invoiceRepo}
}

// TimeframeBounds returns the creation-date window for a timeframe. "all" is unbounded.
func TimeframeBounds(timeframe string, now time.Time) (time.Time, time.Time, error) {
	switch timeframe {
	case model.TimeframeMonth, "":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now, nil
	case model.TimeframeYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), now, nil
	case model.TimeframeAll:
		return time.Time{}, time.Time{}, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown timeframe %q", model.ErrValidation, timeframe)
	}
}

// GetAccountingSummary totals invoices created in the timeframe.
// Pending is what unpaid invoices still owe; collected is revenue minus pending.
func (s *statisticsService) GetAccountingSummary(ctx context.Context, timeframe string, now time.Time) (model.AccountingSummary, error) {
	from, to, err := TimeframeBounds(timeframe, now)
	if err != nil {
		return model.AccountingSummary{}, err
	}
	if timeframe == "" {
		timeframe = model.TimeframeMonth
	}

	invoices, err := s.invoiceRepo.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return model.AccountingSummary{}, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	summary := model.AccountingSummary{
		Timeframe:          timeframe,
		InvoiceCount:       len(invoices),
		TimeRangeStartDate: from,
		TimeRangeEndDate:   to,
	}

	revenue, pending := decimal.Zero, decimal.Zero
	for _, inv := range invoices {
		revenue = revenue.Add(inv.Total)
		switch inv.PaymentStatus {
		case model.PaymentPaid:
			summary.PaidCount++
		case model.PaymentDepositPaid:
			summary.DepositPaidCount++
			pending = pending.Add(inv.BalanceDue)
		default:
			summary.PendingCount++
			pending = pending.Add(inv.BalanceDue)
		}
	}

	summary.TotalRevenue = revenue.StringFixed(2)
	summary.PendingPayment = pending.StringFixed(2)
	summary.Collected = revenue.Sub(pending).StringFixed(2)
	return summary, nil
}
