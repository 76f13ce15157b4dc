package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkax "github.com/ariefcatur/b2b-orders.git/internal/kafka"
	"github.com/ariefcatur/b2b-orders.git/internal/orders"
	"github.com/ariefcatur/b2b-orders.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Dispatcher mengubah lifecycle event jadi notifikasi. Fire-and-forget:
// gagal kirim cuma jadi warning, offset tetap di-commit, dan tidak ada
// jalan balik ke ledger/order dari sini.
type Dispatcher struct {
	Redis   *redis.Client
	Sender  Sender
	Log     *slog.Logger
	Service string
}

// Handle dipasang sebagai handler consumer untuk kedua topic order.
func (d *Dispatcher) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message; jangan diulang terus
		d.Log.Warn("drop malformed event", "offset", m.Offset, "err", err)
		return nil
	}

	// dedup via Redis (pakai event_id)
	if d.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, d.Service, env.EventID)
		if exists, _ := redisx.Exists(ctx, d.Redis, dkey); exists {
			return nil
		}
		_ = d.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	msg, ok := d.render(env)
	if !ok {
		return nil
	}
	if msg.Recipient == "" {
		d.Log.Warn("event without recipient, skipping", "event_id", env.EventID, "type", env.EventType)
		return nil
	}
	if err := d.Sender.Send(ctx, msg); err != nil {
		d.Log.Warn("notification send failed",
			"event_id", env.EventID, "order_id", msg.OrderID, "recipient", msg.Recipient, "err", err)
	}
	return nil
}

func (d *Dispatcher) render(env orders.Envelope) (Message, bool) {
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			d.Log.Warn("drop event with bad payload", "event_id", env.EventID, "err", err)
			return Message{}, false
		}
		return Message{
			Type:      env.EventType,
			OrderID:   p.OrderID,
			Recipient: p.RecipientEmail,
			Subject:   fmt.Sprintf("New order #%d", p.OrderNumber),
			Body: fmt.Sprintf("Order #%d placed by %s: %d item(s), total %d cents.",
				p.OrderNumber, p.ClientID, len(p.Items), p.TotalCents),
		}, true
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			d.Log.Warn("drop event with bad payload", "event_id", env.EventID, "err", err)
			return Message{}, false
		}
		return Message{
			Type:      env.EventType,
			OrderID:   p.OrderID,
			Recipient: p.RecipientEmail,
			Subject:   fmt.Sprintf("Order #%d is now %s", p.OrderNumber, p.NewStatus),
			Body: fmt.Sprintf("Order #%d moved from %s to %s.",
				p.OrderNumber, p.OldStatus, p.NewStatus),
			Note: p.Note,
		}, true
	}
	return Message{}, false
}
