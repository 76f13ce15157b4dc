package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkax "github.com/ariefcatur/b2b-orders.git/internal/kafka"
	"github.com/ariefcatur/b2b-orders.git/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
)

type fakeSender struct {
	sent []Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func testDispatcher(s Sender) *Dispatcher {
	return &Dispatcher{
		Sender:  s,
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Service: "notifier-test",
	}
}

func envelope(eventType string, payload any) kafkago.Message {
	ev := orders.Envelope{
		EventID:      "ev-1",
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "order-api-test",
		Payload:      kafkax.MustMarshal(payload),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(ev)}
}

func TestDispatchOrderCreated(t *testing.T) {
	s := &fakeSender{}
	d := testDispatcher(s)
	m := envelope(orders.EventOrderCreated, orders.OrderCreatedPayload{
		OrderID:        "o-1",
		OrderNumber:    42,
		ClientID:       "client-1",
		Items:          []orders.ItemLine{{ProductID: "p1", Qty: 5, PriceCents: 500}},
		TotalCents:     2500,
		RecipientEmail: "supplier@example.com",
	})
	if err := d.Handle(context.Background(), m); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(s.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(s.sent))
	}
	got := s.sent[0]
	if got.Recipient != "supplier@example.com" || got.OrderID != "o-1" {
		t.Fatalf("unexpected message: %+v", got)
	}
	if got.Subject != "New order #42" {
		t.Fatalf("subject = %q", got.Subject)
	}
}

func TestDispatchStatusChangedCarriesNote(t *testing.T) {
	s := &fakeSender{}
	d := testDispatcher(s)
	m := envelope(orders.EventOrderStatusChanged, orders.OrderStatusChangedPayload{
		OrderID:        "o-2",
		OrderNumber:    7,
		OldStatus:      orders.StatusPending,
		NewStatus:      orders.StatusRejected,
		Note:           "out of season",
		RecipientEmail: "client@example.com",
	})
	if err := d.Handle(context.Background(), m); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0].Note != "out of season" {
		t.Fatalf("note lost: %+v", s.sent)
	}
	if s.sent[0].Subject != "Order #7 is now rejected" {
		t.Fatalf("subject = %q", s.sent[0].Subject)
	}
}

func TestDispatchDropsMalformedAndUnknown(t *testing.T) {
	s := &fakeSender{}
	d := testDispatcher(s)
	ctx := context.Background()

	if err := d.Handle(ctx, kafkago.Message{Value: []byte("{not json")}); err != nil {
		t.Fatalf("malformed must not error (poison message): %v", err)
	}
	if err := d.Handle(ctx, envelope("SomethingElse", map[string]string{})); err != nil {
		t.Fatalf("unknown type must be ignored: %v", err)
	}
	if len(s.sent) != 0 {
		t.Fatalf("nothing should be sent, got %d", len(s.sent))
	}
}

func TestDispatchSendFailureIsNonFatal(t *testing.T) {
	s := &fakeSender{err: errors.New("smtp down")}
	d := testDispatcher(s)
	m := envelope(orders.EventOrderCreated, orders.OrderCreatedPayload{
		OrderID: "o-3", OrderNumber: 1, RecipientEmail: "x@example.com",
	})
	if err := d.Handle(context.Background(), m); err != nil {
		t.Fatalf("send failure must not bubble up: %v", err)
	}
}

func TestDispatchSkipsMissingRecipient(t *testing.T) {
	s := &fakeSender{}
	d := testDispatcher(s)
	m := envelope(orders.EventOrderCreated, orders.OrderCreatedPayload{OrderID: "o-4", OrderNumber: 2})
	if err := d.Handle(context.Background(), m); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(s.sent) != 0 {
		t.Fatal("no recipient, nothing should be sent")
	}
}
