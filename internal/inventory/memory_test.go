package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func seeded(t *testing.T, stock, reserved int) *Memory {
	t.Helper()
	l := NewMemory()
	l.Seed(Product{ID: "p1", SKU: "SKU-1", Name: "Widget", Stock: stock, Reserved: reserved, PriceCents: 500})
	return l
}

func mustGet(t *testing.T, l Ledger, id string) Product {
	t.Helper()
	p, err := l.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return p
}

func TestReserveHappyPath(t *testing.T) {
	l := seeded(t, 20, 0)
	if err := l.Reserve(context.Background(), "p1", 5); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	p := mustGet(t, l, "p1")
	if p.Stock != 20 || p.Reserved != 5 {
		t.Fatalf("unexpected product state: %+v", p)
	}
	if p.Available() != 15 {
		t.Fatalf("available = %d, want 15", p.Available())
	}
}

func TestReserveInsufficientStock(t *testing.T) {
	l := seeded(t, 3, 0)
	err := l.Reserve(context.Background(), "p1", 5)
	var ins *InsufficientStockError
	if !errors.As(err, &ins) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if ins.Available != 3 || ins.Requested != 5 {
		t.Fatalf("unexpected error fields: %+v", ins)
	}
	// gagal tanpa side effect
	p := mustGet(t, l, "p1")
	if p.Stock != 3 || p.Reserved != 0 {
		t.Fatalf("state changed on failed reserve: %+v", p)
	}
}

func TestReserveCountsExistingReservations(t *testing.T) {
	l := seeded(t, 10, 7)
	if err := l.Reserve(context.Background(), "p1", 4); err == nil {
		t.Fatal("reserve beyond available should fail")
	}
	if err := l.Reserve(context.Background(), "p1", 3); err != nil {
		t.Fatalf("reserve within available: %v", err)
	}
	p := mustGet(t, l, "p1")
	if p.Reserved != 10 || p.Reserved > p.Stock {
		t.Fatalf("invariant violated: %+v", p)
	}
}

func TestReleaseFloorsAtZero(t *testing.T) {
	l := seeded(t, 10, 2)
	if err := l.Release(context.Background(), "p1", 5); err != nil {
		t.Fatalf("release: %v", err)
	}
	p := mustGet(t, l, "p1")
	if p.Reserved != 0 {
		t.Fatalf("reserved = %d, want 0", p.Reserved)
	}
	if p.Stock != 10 {
		t.Fatalf("release must not touch stock: %+v", p)
	}
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	l := seeded(t, 20, 3)
	ctx := context.Background()
	if err := l.Reserve(ctx, "p1", 6); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := l.Release(ctx, "p1", 6); err != nil {
		t.Fatalf("release: %v", err)
	}
	p := mustGet(t, l, "p1")
	if p.Stock != 20 || p.Reserved != 3 {
		t.Fatalf("round trip changed state: %+v", p)
	}
}

func TestReserveCommitRoundTrip(t *testing.T) {
	l := seeded(t, 20, 3)
	ctx := context.Background()
	if err := l.Reserve(ctx, "p1", 6); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := l.Commit(ctx, "p1", 6); err != nil {
		t.Fatalf("commit: %v", err)
	}
	p := mustGet(t, l, "p1")
	if p.Stock != 14 || p.Reserved != 3 {
		t.Fatalf("commit result: %+v", p)
	}
}

func TestCommitGuardsStock(t *testing.T) {
	l := seeded(t, 4, 4)
	err := l.Commit(context.Background(), "p1", 5)
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	p := mustGet(t, l, "p1")
	if p.Stock != 4 || p.Reserved != 4 {
		t.Fatalf("failed commit mutated state: %+v", p)
	}
}

func TestRestockIndependentOfReservation(t *testing.T) {
	l := seeded(t, 2, 2)
	if err := l.Restock(context.Background(), "p1", 8); err != nil {
		t.Fatalf("restock: %v", err)
	}
	p := mustGet(t, l, "p1")
	if p.Stock != 10 || p.Reserved != 2 {
		t.Fatalf("restock result: %+v", p)
	}
}

func TestUnknownProduct(t *testing.T) {
	l := NewMemory()
	ctx := context.Background()
	for _, op := range []func() error{
		func() error { return l.Reserve(ctx, "nope", 1) },
		func() error { return l.Release(ctx, "nope", 1) },
		func() error { return l.Commit(ctx, "nope", 1) },
		func() error { return l.Restock(ctx, "nope", 1) },
	} {
		if err := op(); !errors.Is(err, ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound, got %v", err)
		}
	}
}

func TestConcurrentReserveExactlyOneWins(t *testing.T) {
	l := seeded(t, 10, 0)
	ctx := context.Background()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = l.Reserve(ctx, "p1", 6)
		}(i)
	}
	wg.Wait()

	var okCount, insCount int
	for _, err := range errs {
		var ins *InsufficientStockError
		switch {
		case err == nil:
			okCount++
		case errors.As(err, &ins):
			insCount++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 || insCount != 1 {
		t.Fatalf("want exactly one success and one shortfall, got ok=%d ins=%d", okCount, insCount)
	}
	p := mustGet(t, l, "p1")
	if p.Reserved != 6 || p.Reserved > p.Stock {
		t.Fatalf("invariant violated after concurrent reserve: %+v", p)
	}
}

func TestConcurrentReserveNeverOversells(t *testing.T) {
	l := seeded(t, 50, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Reserve(ctx, "p1", 3)
		}()
	}
	wg.Wait()

	p := mustGet(t, l, "p1")
	if p.Reserved > p.Stock || p.Reserved < 0 {
		t.Fatalf("invariant violated: %+v", p)
	}
	if p.Reserved != 48 { // 16 dari 100 yang muat (floor(50/3)*3)
		t.Fatalf("reserved = %d, want 48", p.Reserved)
	}
}
