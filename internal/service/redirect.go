package service

import (
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// RedirectParams is what the gateway's return URL tells us. None of it is
// proof of payment; it only locates the invoice and hints at the amount.
type RedirectParams struct {
	PaymentStatus string
	InvoiceNo     string
	Amount        decimal.Decimal // zero when absent or unparseable
	BillID        string
	TransactionID string
	// FailureSignal is set when the gateway appended a failure marker.
	FailureSignal bool
}

var (
	billIDParams        = []string{"billplz[id]", "id", "bill_id"}
	transactionIDParams = []string{"transaction_id", "billcode", "id"}
)

// ParseRedirect reads the receipt query string. Some gateways append their own
// parameters with a second '?', which leaves them glued onto one of our
// values; those are recovered by scanning the values for key=value pairs.
func ParseRedirect(q url.Values) RedirectParams {
	p := RedirectParams{
		PaymentStatus: strings.ToLower(queryParam(q, "payment_status")),
		InvoiceNo:     queryParam(q, "invoice"),
		BillID:        firstParam(q, billIDParams),
		TransactionID: firstParam(q, transactionIDParams),
	}

	if raw := queryParam(q, "amount"); raw != "" {
		if amount, err := decimal.NewFromString(raw); err == nil && amount.IsPositive() {
			p.Amount = amount
		}
	}

	p.FailureSignal = queryParam(q, "status_id") == "3" || strings.EqualFold(queryParam(q, "billplz[paid]"), "false")
	return p
}

func firstParam(q url.Values, keys []string) string {
	for _, key := range keys {
		if v := queryParam(q, key); v != "" {
			return v
		}
	}
	return ""
}

func queryParam(q url.Values, key string) string {
	if v := q.Get(key); v != "" {
		if i := strings.IndexByte(v, '?'); i >= 0 {
			v = v[:i]
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	names := make([]string, 0, len(q))
	for name := range q {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range q[name] {
			if !strings.ContainsAny(value, "?&") {
				continue
			}
			for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == '?' || r == '&' }) {
				k, v, ok := strings.Cut(part, "=")
				if ok && k == key && v != "" {
					return strings.TrimSpace(v)
				}
			}
		}
	}
	return ""
}
