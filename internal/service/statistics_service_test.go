package service

import (
	"context"
	"testing"
	"time"

	"workshop/internal/model"

	"github.com/stretchr/testify/require"
)

func TestGetAccountingSummary(t *testing.T) {
	t.Parallel()
	deps := newTestDeps()
	svc := NewStatisticsService(deps.invoices)

	deps.invoices.seed(model.Invoice{InvoiceNo: "INV-1", Total: dec("1000"), Deposit: dec("1000"), DepositStatus: model.DepositPaidLink})
	deps.invoices.seed(model.Invoice{InvoiceNo: "INV-2", Total: dec("500"), Deposit: dec("200"), DepositStatus: model.DepositPaidOffline})
	deps.invoices.seed(model.Invoice{InvoiceNo: "INV-3", Total: dec("250")})

	summary, err := svc.GetAccountingSummary(context.Background(), model.TimeframeAll, time.Now())
	require.NoError(t, err)
	require.Equal(t, "1750.00", summary.TotalRevenue)
	require.Equal(t, "550.00", summary.PendingPayment)
	require.Equal(t, "1200.00", summary.Collected)
	require.Equal(t, 3, summary.InvoiceCount)
	require.Equal(t, 1, summary.PaidCount)
	require.Equal(t, 1, summary.DepositPaidCount)
	require.Equal(t, 1, summary.PendingCount)

	_, err = svc.GetAccountingSummary(context.Background(), "week", time.Now())
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestTimeframeBounds(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, time.October, 16, 14, 30, 0, 0, time.UTC)

	from, to, err := TimeframeBounds(model.TimeframeMonth, now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, now, to)

	from, _, err = TimeframeBounds(model.TimeframeYear, now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), from)

	from, to, err = TimeframeBounds(model.TimeframeAll, now)
	require.NoError(t, err)
	require.True(t, from.IsZero())
	require.True(t, to.IsZero())
}
