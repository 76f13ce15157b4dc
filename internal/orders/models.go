package orders

import "time"

type Role string

const (
	RoleClient   Role = "client"
	RoleSupplier Role = "supplier"
)

type Order struct {
	ID            string    `json:"id"`
	OrderNumber   int64     `json:"order_number"`
	ClientID      string    `json:"client_id"`
	SupplierID    string    `json:"supplier_id"`
	ClientEmail   string    `json:"client_email,omitempty"`
	SupplierEmail string    `json:"supplier_email,omitempty"`
	Status        Status    `json:"status"` // lihat status.go
	Items         []Item    `json:"items"`
	Notes         []Note    `json:"notes,omitempty"`
	TotalCents    int       `json:"total_cents"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Item struct {
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	PriceCents     int    `json:"price_cents"`
	LineTotalCents int    `json:"line_total_cents"`
}

// Notes append-only; tidak pernah diedit atau dihapus.
type Note struct {
	Message string    `json:"message"`
	ActorID string    `json:"actor_id"`
	At      time.Time `json:"at"`
}

// ItemInput: qty yang diminta caller; harga selalu diambil dari katalog,
// tidak pernah dipercaya dari client.
type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

func (o *Order) party(actorID string, role Role) bool {
	switch role {
	case RoleClient:
		return actorID == o.ClientID
	case RoleSupplier:
		return actorID == o.SupplierID
	}
	return false
}

func sumLines(items []Item) int {
	total := 0
	for _, it := range items {
		total += it.LineTotalCents
	}
	return total
}
