package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore: penyimpanan order in-memory untuk test dan mode dev.
type MemoryStore struct {
	mu      sync.RWMutex
	m       map[string]Order
	counter int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]Order)}
}

func (s *MemoryStore) Create(_ context.Context, o Order) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	o.OrderNumber = s.counter
	s.m[o.ID] = cloneOrder(o)
	return o, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.m[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemoryStore) ListForUser(_ context.Context, userID string, role Role) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Order
	for _, o := range s.m {
		if o.party(userID, role) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber > out[j].OrderNumber })
	return out, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id string, from, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	s.m[id] = o
	return nil
}

func (s *MemoryStore) AppendNote(_ context.Context, id string, n Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return ErrNotFound
	}
	o.Notes = append(append([]Note{}, o.Notes...), n)
	s.m[id] = o
	return nil
}

func (s *MemoryStore) ReplaceItems(_ context.Context, id string, items []Item, totalCents int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return ErrNotFound
	}
	o.Items = append([]Item{}, items...)
	o.TotalCents = totalCents
	o.UpdatedAt = time.Now().UTC()
	s.m[id] = o
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[id]; !ok {
		return ErrNotFound
	}
	delete(s.m, id)
	return nil
}

func cloneOrder(o Order) Order {
	o.Items = append([]Item{}, o.Items...)
	o.Notes = append([]Note{}, o.Notes...)
	return o
}
