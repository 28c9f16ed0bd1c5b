package leanx

import (
	"testing"

	"workshop/internal/gateway"

	"github.com/stretchr/testify/require"
)

func TestNormalizeBill(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  map[string]interface{}
		want gateway.Bill
	}{
		{
			name: "top level url and id",
			raw:  map[string]interface{}{"url": "https://pay.example/b/1", "id": "bill-1"},
			want: gateway.Bill{URL: "https://pay.example/b/1", ID: "bill-1"},
		},
		{
			name: "nested data with numeric id",
			raw:  map[string]interface{}{"data": map[string]interface{}{"link": "https://pay.example/b/2", "id": float64(42)}},
			want: gateway.Bill{URL: "https://pay.example/b/2", ID: "42"},
		},
		{
			name: "id from last path segment",
			raw:  map[string]interface{}{"payment_url": "https://pay.example/bill/ABCDEF123"},
			want: gateway.Bill{URL: "https://pay.example/bill/ABCDEF123", ID: "ABCDEF123"},
		},
		{
			name: "id from query",
			raw:  map[string]interface{}{"redirect_url": "https://pay.example/checkout?id=Q-77"},
			want: gateway.Bill{URL: "https://pay.example/checkout?id=Q-77", ID: "Q-77"},
		},
		{
			name: "short segment and no query leaves id empty",
			raw:  map[string]interface{}{"url": "https://pay.example/b/x1"},
			want: gateway.Bill{URL: "https://pay.example/b/x1"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeBill(tt.raw)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  map[string]interface{}
		paid bool
	}{
		{"paid bool", map[string]interface{}{"paid": true}, true},
		{"paid string", map[string]interface{}{"paid": "true"}, true},
		{"status completed", map[string]interface{}{"status": "Completed"}, true},
		{"nested state", map[string]interface{}{"data": map[string]interface{}{"state": "paid"}}, true},
		{"pending", map[string]interface{}{"status": "pending", "paid": false}, false},
		{"empty", map[string]interface{}{}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := NormalizeStatus(tt.raw)
			require.True(t, st.Found)
			require.Equal(t, tt.paid, st.Paid)
		})
	}
}
