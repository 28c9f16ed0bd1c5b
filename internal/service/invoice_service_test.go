package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"workshop/internal/events"
	"workshop/internal/model"
	"workshop/pkg/pagination"

	"github.com/stretchr/testify/require"
)

func newInvoiceService(t *testing.T) (*testDeps, InvoiceService) {
	t.Helper()
	deps := newTestDeps()
	t.Cleanup(func() { _ = deps.feed.Close() })
	return deps, NewInvoiceService(deps.invoices, deps.audit, fakeTxManager{}, deps.feed, deps.log)
}

func brakeJob() CreateInvoiceRequest {
	return CreateInvoiceRequest{
		CustomerName:  "Lim Wei Jie",
		CustomerPhone: "016 222 3333",
		VehiclePlate:  "BKL 8821",
		Items: []InvoiceItemRequest{
			{Kind: model.ItemKindPart, Description: "Brake pads (front)", Quantity: "2", UnitPrice: "85.00"},
			{Kind: model.ItemKindLabor, Description: "Brake service", UnitPrice: "120"},
		},
		DiscountPercent: "10",
	}
}

func TestCreateInvoice_ComputesTotals(t *testing.T) {
	t.Parallel()
	deps, svc := newInvoiceService(t)

	resp, err := svc.CreateInvoice(context.Background(), "staff-1", brakeJob())
	require.NoError(t, err)

	require.Regexp(t, regexp.MustCompile(`^INV-\d{8}-00001$`), resp.InvoiceNo)
	require.Equal(t, "290.00", resp.Subtotal)
	require.Equal(t, "29.00", resp.DiscountAmount)
	require.Equal(t, "261.00", resp.Total)
	require.Equal(t, "261.00", resp.BalanceDue)
	require.Equal(t, string(model.PaymentPending), resp.PaymentStatus)
	require.Equal(t, string(model.DepositNone), resp.DepositStatus)
	require.Equal(t, "0162223333", resp.CustomerPhone)
	require.Len(t, resp.Items, 2)
	require.Equal(t, []string{model.ActionCreateInvoice}, deps.audit.actions())
}

func TestCreateInvoice_OfflineDeposit(t *testing.T) {
	t.Parallel()
	_, svc := newInvoiceService(t)

	req := brakeJob()
	req.Deposit = "100"
	req.DepositMethod = "transfer"

	resp, err := svc.CreateInvoice(context.Background(), "staff-1", req)
	require.NoError(t, err)
	require.Equal(t, "100.00", resp.Deposit)
	require.Equal(t, "161.00", resp.BalanceDue)
	require.Equal(t, string(model.PaymentDepositPaid), resp.PaymentStatus)
	require.Equal(t, string(model.DepositPaidOffline), resp.DepositStatus)
	require.Len(t, resp.Payments, 1)
	require.Equal(t, "transfer", resp.Payments[0].Method)
}

func TestCreateInvoice_RequestedDeposit(t *testing.T) {
	t.Parallel()
	_, svc := newInvoiceService(t)

	req := brakeJob()
	req.RequestDeposit = "80"

	resp, err := svc.CreateInvoice(context.Background(), "staff-1", req)
	require.NoError(t, err)
	require.Equal(t, string(model.DepositLinkGenerated), resp.DepositStatus)
	require.Equal(t, "80.00", resp.RequestedDeposit)
	require.Equal(t, string(model.StateDepositRequested), resp.PaymentState)
	require.Equal(t, string(model.PaymentPending), resp.PaymentStatus)
}

func TestCreateInvoice_Validation(t *testing.T) {
	t.Parallel()
	_, svc := newInvoiceService(t)
	ctx := context.Background()

	req := brakeJob()
	req.Deposit = "1000"
	_, err := svc.CreateInvoice(ctx, "staff-1", req)
	require.ErrorIs(t, err, model.ErrValidation)

	req = brakeJob()
	req.DiscountPercent = "150"
	_, err = svc.CreateInvoice(ctx, "staff-1", req)
	require.ErrorIs(t, err, model.ErrValidation)

	req = brakeJob()
	req.Items[0].UnitPrice = "abc"
	_, err = svc.CreateInvoice(ctx, "staff-1", req)
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestCreateInvoice_SequentialNumbers(t *testing.T) {
	t.Parallel()
	_, svc := newInvoiceService(t)
	ctx := context.Background()

	first, err := svc.CreateInvoice(ctx, "staff-1", brakeJob())
	require.NoError(t, err)
	second, err := svc.CreateInvoice(ctx, "staff-1", brakeJob())
	require.NoError(t, err)

	require.Regexp(t, `-00001$`, first.InvoiceNo)
	require.Regexp(t, `-00002$`, second.InvoiceNo)
}

func TestDeleteInvoice(t *testing.T) {
	t.Parallel()
	deps, svc := newInvoiceService(t)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, "staff-1", brakeJob())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteInvoice(ctx, created.ID, "admin-1"))
	_, err = svc.GetInvoice(ctx, created.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
	require.Contains(t, deps.audit.actions(), model.ActionDeleteInvoice)

	require.ErrorIs(t, svc.DeleteInvoice(ctx, created.ID, "admin-1"), model.ErrNotFound)
}

func TestWatchInvoices(t *testing.T) {
	t.Parallel()
	_, svc := newInvoiceService(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, err := svc.WatchInvoices(ctx, InvoiceFilter{})
	require.NoError(t, err)

	initial := <-snapshots
	require.Equal(t, "initial", initial.Cause)
	require.Zero(t, initial.Total)

	created, err := svc.CreateInvoice(context.Background(), "staff-1", brakeJob())
	require.NoError(t, err)

	select {
	case snap := <-snapshots:
		require.Equal(t, string(events.InvoiceCreated), snap.Cause)
		require.EqualValues(t, 1, snap.Total)
		require.Equal(t, created.InvoiceNo, snap.Invoices[0].InvoiceNo)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after invoice creation")
	}

	cancel()
	select {
	case _, open := <-snapshots:
		require.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot channel still open after cancel")
	}
}

func TestListInvoices_SortAndPageDefaults(t *testing.T) {
	t.Parallel()
	deps, svc := newInvoiceService(t)
	ctx := context.Background()

	_, _, err := svc.ListInvoices(ctx, InvoiceFilter{Limit: 500})
	require.NoError(t, err)
	require.Equal(t, "created_at desc", deps.invoices.lastList.OrderBy)
	require.Equal(t, 1, deps.invoices.lastList.Page)
	require.Equal(t, pagination.MaxLimit, deps.invoices.lastList.Limit)

	_, _, err = svc.ListInvoices(ctx, InvoiceFilter{Sort: pagination.Sort{Field: "balance_due"}})
	require.NoError(t, err)
	require.Equal(t, "balance_due asc", deps.invoices.lastList.OrderBy)

	_, _, err = svc.ListInvoices(ctx, InvoiceFilter{Sort: pagination.Sort{Field: "1; drop table invoices"}})
	require.NoError(t, err)
	require.Equal(t, "created_at desc", deps.invoices.lastList.OrderBy)
}
