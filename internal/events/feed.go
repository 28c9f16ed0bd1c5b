// Package events carries invoice change notifications between the services
// and live views (websocket clients, snapshot watchers).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"workshop/internal/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type EventType string

const (
	InvoiceCreated    EventType = "invoice.created"
	InvoiceUpdated    EventType = "invoice.updated"
	InvoiceDeleted    EventType = "invoice.deleted"
	PaymentRecorded   EventType = "invoice.payment_recorded"
	PaymentLinkIssued EventType = "invoice.payment_link_issued"
)

// InvoiceEvent is the payload published on every invoice change.
type InvoiceEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"event"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNo     string    `json:"invoice_no"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	BalanceDue    string    `json:"balance_due,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Feed publishes invoice events and fans them out to subscribers.
// Each Subscribe call gets its own channel, closed when ctx is done.
type Feed interface {
	Publish(ctx context.Context, event InvoiceEvent) error
	Subscribe(ctx context.Context) (<-chan InvoiceEvent, error)
	Close() error
}

type watermillFeed struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
	logger     *logger.Logger
}

func (f *watermillFeed) Publish(ctx context.Context, event InvoiceEvent) error {
	if event.ID == "" {
		event.ID = watermill.NewUUID()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	if err := f.publisher.Publish(f.topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (f *watermillFeed) Subscribe(ctx context.Context) (<-chan InvoiceEvent, error) {
	messages, err := f.subscriber.Subscribe(ctx, f.topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", f.topic, err)
	}

	out := make(chan InvoiceEvent, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			var event InvoiceEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				f.logger.Warnw("dropping undecodable invoice event", "message_uuid", msg.UUID, "error", err)
				msg.Ack()
				continue
			}

			select {
			case out <- event:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()

	return out, nil
}

func (f *watermillFeed) Close() error {
	pubErr := f.publisher.Close()
	subErr := f.subscriber.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}
