package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Product struct {
	ID         string    `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	Stock      int       `json:"stock"`
	Reserved   int       `json:"reserved"`
	PriceCents int       `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Available = jumlah yang boleh ditawarkan ke order baru.
func (p Product) Available() int { return p.Stock - p.Reserved }

var ErrProductNotFound = errors.New("product not found")

type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available=%d requested=%d",
		e.ProductID, e.Available, e.Requested)
}

// PersistenceError: kegagalan level storage (retryable di caller).
type PersistenceError struct {
	Op        string
	ProductID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("inventory %s %s: %v", e.Op, e.ProductID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Ledger adalah satu-satunya pintu mutasi stock/reserved.
// Semua operasi atomik per product: check-and-increment tidak boleh jadi dua step.
type Ledger interface {
	// Reserve menahan qty untuk order non-final. Gagal tanpa side effect
	// kalau available < qty.
	Reserve(ctx context.Context, productID string, qty int) error
	// Release mengembalikan reservation (reject/cancel/delete), floor di 0.
	Release(ctx context.Context, productID string, qty int) error
	// Commit mengubah reservation jadi pengurangan stok permanen (approve):
	// stock dan reserved sama-sama turun qty.
	Commit(ctx context.Context, productID string, qty int) error
	// Restock menambah stok fisik; tidak menyentuh reserved.
	Restock(ctx context.Context, productID string, qty int) error

	Get(ctx context.Context, productID string) (Product, error)
	List(ctx context.Context) ([]Product, error)
}

func validQty(qty int) error {
	if qty < 1 {
		return fmt.Errorf("qty must be >= 1, got %d", qty)
	}
	return nil
}
