package leanx

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"workshop/internal/gateway"

	"github.com/samber/lo"
)

// Lean.x has returned the bill URL and id under several shapes over time.
// Keys are tried in order; a dot descends into a nested object.
var (
	billURLKeys = []string{"url", "payment_url", "redirect_url", "link", "data.url", "data.payment_url", "data.link"}
	billIDKeys  = []string{"id", "uuid", "bill_id", "data.id", "data.uuid"}
)

// Any of these marks a bill as paid. Checked on the top-level object, then under "data".
var paidSignals = []struct {
	key    string
	values []string
}{
	{key: "paid", values: []string{"true"}},
	{key: "status", values: []string{"paid", "completed"}},
	{key: "state", values: []string{"paid"}},
}

// NormalizeBill extracts the payment URL and bill id from a create-bill response.
func NormalizeBill(raw map[string]interface{}) (gateway.Bill, error) {
	billURL := firstString(raw, billURLKeys)
	if billURL == "" {
		return gateway.Bill{}, fmt.Errorf("%w: no payment url, received keys [%s]", gateway.ErrMalformedResponse, strings.Join(sortedKeys(raw), ", "))
	}

	id := firstString(raw, billIDKeys)
	if id == "" {
		id = billIDFromURL(billURL)
	}

	return gateway.Bill{URL: billURL, ID: id}, nil
}

// NormalizeStatus maps a bill lookup response onto gateway.BillStatus.
func NormalizeStatus(raw map[string]interface{}) gateway.BillStatus {
	scopes := []map[string]interface{}{raw}
	if data, ok := raw["data"].(map[string]interface{}); ok {
		scopes = append(scopes, data)
	}

	for _, scope := range scopes {
		for _, signal := range paidSignals {
			v := strings.ToLower(stringValue(scope[signal.key]))
			for _, want := range signal.values {
				if v == want {
					return gateway.BillStatus{Found: true, Paid: true, Status: gateway.StatusPaid}
				}
			}
		}
	}

	return gateway.BillStatus{Found: true, Status: gateway.StatusUnpaid}
}

// billIDFromURL falls back to the last path segment, then to an "id" query parameter.
func billIDFromURL(raw string) string {
	parts := strings.Split(raw, "/")
	last := parts[len(parts)-1]
	if len(last) > 5 && !strings.Contains(last, "?") {
		return last
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("id")
}

func firstString(raw map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if v := stringValue(lookup(raw, key)); v != "" {
			return v
		}
	}
	return ""
}

func lookup(raw map[string]interface{}, path string) interface{} {
	var cur interface{} = raw
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func sortedKeys(raw map[string]interface{}) []string {
	keys := lo.Keys(raw)
	sort.Strings(keys)
	return keys
}
