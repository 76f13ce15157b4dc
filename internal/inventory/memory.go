package inventory

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory: ledger in-memory untuk unit test dan mode dev tanpa postgres.
// Satu mutex cukup; titik serialisasinya tetap storage layer, bukan caller.
type Memory struct {
	mu sync.Mutex
	m  map[string]*Product
}

var _ Ledger = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{m: make(map[string]*Product)}
}

func (l *Memory) Seed(products ...Product) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	for _, p := range products {
		cp := p
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = now
		}
		cp.UpdatedAt = now
		l.m[cp.ID] = &cp
	}
}

func (l *Memory) Reserve(_ context.Context, productID string, qty int) error {
	if err := validQty(qty); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.m[productID]
	if !ok {
		return ErrProductNotFound
	}
	if p.Available() < qty {
		return &InsufficientStockError{ProductID: productID, Available: p.Available(), Requested: qty}
	}
	p.Reserved += qty
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *Memory) Release(_ context.Context, productID string, qty int) error {
	if err := validQty(qty); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.m[productID]
	if !ok {
		return ErrProductNotFound
	}
	p.Reserved -= qty
	if p.Reserved < 0 {
		p.Reserved = 0
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *Memory) Commit(_ context.Context, productID string, qty int) error {
	if err := validQty(qty); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.m[productID]
	if !ok {
		return ErrProductNotFound
	}
	if p.Stock < qty {
		return &PersistenceError{Op: "commit", ProductID: productID,
			Err: &InsufficientStockError{ProductID: productID, Available: p.Stock, Requested: qty}}
	}
	p.Stock -= qty
	p.Reserved -= qty
	if p.Reserved < 0 {
		p.Reserved = 0
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *Memory) Restock(_ context.Context, productID string, qty int) error {
	if err := validQty(qty); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.m[productID]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock += qty
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (l *Memory) Get(_ context.Context, productID string) (Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.m[productID]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return *p, nil
}

func (l *Memory) List(_ context.Context) ([]Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Product, 0, len(l.m))
	for _, p := range l.m {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}
