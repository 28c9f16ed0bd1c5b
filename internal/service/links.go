package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"workshop/internal/gateway"
	"workshop/internal/metrics"
	"workshop/internal/model"
	"workshop/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	ReceiptPath = "/payment/receipt"
	WebhookPath = "/api/payments/webhook"

	demoLinkBase     = "https://demo.payment.com/pay/"
	DemoLinkNotice   = "Demo Link (API Failed)"
	ReusedLinkNotice = "Existing link bills a different amount; request a new link to change it"
)

// linkIssuer creates hosted bills whose redirect lands on our receipt page.
type linkIssuer struct {
	gateway       gateway.Gateway
	publicBaseURL string
}

func (li linkIssuer) issue(ctx context.Context, inv *model.Invoice, amount decimal.Decimal, phone, email string) (gateway.Bill, error) {
	if email == "" {
		email = inv.CustomerEmail
	}

	start := time.Now()
	bill, err := li.gateway.CreateBill(ctx, gateway.BillRequest{
		Amount:        amount,
		InvoiceRef:    inv.InvoiceNo,
		RedirectURL:   li.receiptURL(inv.InvoiceNo, amount),
		CallbackURL:   li.baseURL() + WebhookPath,
		CustomerName:  inv.CustomerName,
		CustomerEmail: email,
		CustomerPhone: phone,
	})
	metrics.ObserveGateway("create_bill", time.Since(start).Seconds(), err)
	return bill, err
}

// linkUpdate is the bookkeeping for a freshly issued bill. On an invoice with no
// money yet, a bill below the balance is a deposit request and a bill for the
// whole balance replaces any pending one.
func linkUpdate(inv *model.Invoice, bill gateway.Bill, amount decimal.Decimal) repository.PaymentLinkUpdate {
	update := repository.PaymentLinkUpdate{URL: bill.URL, BillID: bill.ID, Amount: amount}
	if inv.Deposit.IsPositive() || inv.DepositStatus.IsPaid() {
		return update
	}

	switch {
	case amount.LessThan(inv.BalanceDue):
		update.DepositStatus = model.DepositLinkGenerated
		update.RequestedDeposit = &amount
	case inv.DepositStatus == model.DepositLinkGenerated:
		none := decimal.Zero
		update.DepositStatus = model.DepositNone
		update.RequestedDeposit = &none
	}
	return update
}

// remember mirrors a persisted linkUpdate onto the in-memory invoice.
func remember(inv *model.Invoice, update repository.PaymentLinkUpdate) {
	inv.LastPaymentLink, inv.LastPaymentID, inv.LastPaymentAmount = update.URL, update.BillID, update.Amount
	if update.DepositStatus != "" {
		inv.DepositStatus = update.DepositStatus
	}
	if update.RequestedDeposit != nil {
		inv.RequestedDeposit = *update.RequestedDeposit
	}
}

// receiptURL is where the gateway sends the customer back. The amount lets the
// receipt page tell a deposit bill from a balance bill.
func (li linkIssuer) receiptURL(invoiceNo string, amount decimal.Decimal) string {
	q := url.Values{}
	q.Set("payment_status", "verify")
	q.Set("invoice", invoiceNo)
	q.Set("amount", amount.StringFixed(2))
	return li.baseURL() + ReceiptPath + "?" + q.Encode()
}

func (li linkIssuer) baseURL() string {
	return strings.TrimRight(li.publicBaseURL, "/")
}

// DemoLinkURL is the placeholder handed to staff when the gateway is unreachable.
func DemoLinkURL(invoiceNo string, amount decimal.Decimal) string {
	return fmt.Sprintf("%s%s?amt=%s", demoLinkBase, url.PathEscape(invoiceNo), amount.StringFixed(2))
}
