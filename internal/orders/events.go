package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "order-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type ItemLine struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

type OrderCreatedPayload struct {
	OrderID        string     `json:"order_id"`
	OrderNumber    int64      `json:"order_number"`
	ClientID       string     `json:"client_id"`
	SupplierID     string     `json:"supplier_id"`
	Items          []ItemLine `json:"items"`
	TotalCents     int        `json:"total_cents"`
	RecipientEmail string     `json:"recipient_email,omitempty"`
}

type OrderStatusChangedPayload struct {
	OrderID        string `json:"order_id"`
	OrderNumber    int64  `json:"order_number"`
	OldStatus      Status `json:"old_status"`
	NewStatus      Status `json:"new_status"`
	ActorID        string `json:"actor_id"`
	Note           string `json:"note,omitempty"`
	RecipientEmail string `json:"recipient_email,omitempty"`
}
