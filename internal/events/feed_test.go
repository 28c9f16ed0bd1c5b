package events

import (
	"context"
	"testing"
	"time"

	"workshop/internal/logger"

	"github.com/stretchr/testify/require"
)

func TestMemoryFeed_FansOutToEverySubscriber(t *testing.T) {
	t.Parallel()

	feed := NewMemoryFeed("invoices", logger.NewNop())
	t.Cleanup(func() { _ = feed.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	second, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, feed.Publish(ctx, InvoiceEvent{
		Type:          PaymentRecorded,
		InvoiceID:     "b5b7a0f4-0000-0000-0000-000000000001",
		InvoiceNo:     "INV-20260101-00001",
		PaymentStatus: "paid",
	}))

	for _, ch := range []<-chan InvoiceEvent{first, second} {
		select {
		case ev := <-ch:
			require.Equal(t, PaymentRecorded, ev.Type)
			require.Equal(t, "INV-20260101-00001", ev.InvoiceNo)
			require.NotEmpty(t, ev.ID)
			require.False(t, ev.OccurredAt.IsZero())
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestMemoryFeed_ClosesChannelOnCancel(t *testing.T) {
	t.Parallel()

	feed := NewMemoryFeed("invoices", logger.NewNop())
	t.Cleanup(func() { _ = feed.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}
