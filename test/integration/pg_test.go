package integration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/b2b-orders.git/internal/inventory"
	"github.com/ariefcatur/b2b-orders.git/internal/orders"
	"github.com/ariefcatur/b2b-orders.git/internal/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Jalankan dengan INTEGRATION=1 (butuh docker).
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run testcontainers tests")
	}
	ctx := context.Background()

	pgC, err := pgcontainer.Run(ctx,
		"postgres:16-alpine",
		pgcontainer.WithDatabase("b2border"),
		pgcontainer.WithUsername("postgres"),
		pgcontainer.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	pool, err := postgres.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func seedProduct(t *testing.T, led *inventory.PG, id string, stock, price int) {
	t.Helper()
	err := led.CreateProduct(context.Background(), inventory.Product{
		ID: id, SKU: "SKU-" + id, Name: "Product " + id, Stock: stock, PriceCents: price,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func TestPGLedgerConcurrentReserve(t *testing.T) {
	pool := setupPool(t)
	led := &inventory.PG{DB: pool}
	seedProduct(t, led, "conc", 10, 100)
	ctx := context.Background()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = led.Reserve(ctx, "conc", 6)
		}(i)
	}
	wg.Wait()

	var ok, ins int
	for _, err := range errs {
		var e *inventory.InsufficientStockError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &e):
			ins++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || ins != 1 {
		t.Fatalf("want one success and one shortfall, got ok=%d ins=%d", ok, ins)
	}
	p, err := led.Get(ctx, "conc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Reserved != 6 || p.Reserved > p.Stock {
		t.Fatalf("invariant violated: %+v", p)
	}
}

func TestPGLedgerRoundTrips(t *testing.T) {
	pool := setupPool(t)
	led := &inventory.PG{DB: pool}
	seedProduct(t, led, "rt", 20, 100)
	ctx := context.Background()

	if err := led.Reserve(ctx, "rt", 5); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := led.Release(ctx, "rt", 5); err != nil {
		t.Fatalf("release: %v", err)
	}
	p, _ := led.Get(ctx, "rt")
	if p.Stock != 20 || p.Reserved != 0 {
		t.Fatalf("after release: %+v", p)
	}

	if err := led.Reserve(ctx, "rt", 5); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := led.Commit(ctx, "rt", 5); err != nil {
		t.Fatalf("commit: %v", err)
	}
	p, _ = led.Get(ctx, "rt")
	if p.Stock != 15 || p.Reserved != 0 {
		t.Fatalf("after commit: %+v", p)
	}

	// release floor di 0
	if err := led.Release(ctx, "rt", 99); err != nil {
		t.Fatalf("over-release: %v", err)
	}
	p, _ = led.Get(ctx, "rt")
	if p.Reserved != 0 {
		t.Fatalf("reserved = %d, want 0", p.Reserved)
	}
}

func TestPGOrderNumbersUniqueUnderConcurrency(t *testing.T) {
	pool := setupPool(t)
	led := &inventory.PG{DB: pool}
	seedProduct(t, led, "bulk", 1000, 100)

	lc := &orders.Lifecycle{
		Store:   &orders.Repo{DB: pool},
		Ledger:  led,
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Service: "integration-test",
	}

	const n = 20
	var wg sync.WaitGroup
	nums := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := lc.Create(context.Background(), orders.CreateInput{
				ClientID:   "client-1",
				SupplierID: "supplier-1",
				Items:      []orders.ItemInput{{ProductID: "bulk", Qty: 1}},
			})
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			nums <- o.OrderNumber
		}()
	}
	wg.Wait()
	close(nums)

	seen := make(map[int64]bool)
	for num := range nums {
		if seen[num] {
			t.Fatalf("duplicate order number %d", num)
		}
		seen[num] = true
	}
	if len(seen) != n {
		t.Fatalf("got %d orders, want %d", len(seen), n)
	}
}

func TestPGFullLifecycle(t *testing.T) {
	pool := setupPool(t)
	led := &inventory.PG{DB: pool}
	seedProduct(t, led, "life", 20, 500)
	ctx := context.Background()

	lc := &orders.Lifecycle{
		Store:   &orders.Repo{DB: pool},
		Ledger:  led,
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Service: "integration-test",
	}

	o, err := lc.Create(ctx, orders.CreateInput{
		ClientID:      "client-1",
		SupplierID:    "supplier-1",
		ClientEmail:   "client@example.com",
		SupplierEmail: "supplier@example.com",
		Items:         []orders.ItemInput{{ProductID: "life", Qty: 5}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p, _ := led.Get(ctx, "life")
	if p.Stock != 20 || p.Reserved != 5 {
		t.Fatalf("after create: %+v", p)
	}

	got, err := lc.UpdateStatus(ctx, o.ID, "supplier-1", orders.RoleSupplier, orders.StatusApproved, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != orders.StatusApproved {
		t.Fatalf("status = %s", got.Status)
	}
	p, _ = led.Get(ctx, "life")
	if p.Stock != 15 || p.Reserved != 0 {
		t.Fatalf("after approve: %+v", p)
	}

	stored, err := lc.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != orders.StatusApproved || len(stored.Items) != 1 || stored.TotalCents != 2500 {
		t.Fatalf("stored order: %+v", stored)
	}
}
