package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/b2b-orders.git/internal/config"
	"github.com/ariefcatur/b2b-orders.git/internal/favorites"
	"github.com/ariefcatur/b2b-orders.git/internal/httpx"
	"github.com/ariefcatur/b2b-orders.git/internal/inventory"
	kafkax "github.com/ariefcatur/b2b-orders.git/internal/kafka"
	"github.com/ariefcatur/b2b-orders.git/internal/logging"
	"github.com/ariefcatur/b2b-orders.git/internal/orders"
	"github.com/ariefcatur/b2b-orders.git/internal/postgres"
	"github.com/ariefcatur/b2b-orders.git/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.ServiceName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		ledger inventory.Ledger
		store  orders.Store
	)
	switch cfg.Backend {
	case "memory":
		// mode demo/dev tanpa postgres
		mem := inventory.NewMemory()
		mem.Seed(
			inventory.Product{ID: "p-olive", SKU: "OLV-001", Name: "Olive oil 5L", Stock: 100, PriceCents: 4500},
			inventory.Product{ID: "p-flour", SKU: "FLR-001", Name: "Flour 25kg", Stock: 40, PriceCents: 1800},
		)
		ledger = mem
		store = orders.NewMemoryStore()
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("migrate failed", "err", err)
			os.Exit(1)
		}
		ledger = &inventory.PG{DB: db}
		store = &orders.Repo{DB: db}
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()
	}

	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, log)
	pCreated.Start(ctx)
	pChanged := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, log)
	pChanged.Start(ctx)

	lc := &orders.Lifecycle{
		Store:   store,
		Ledger:  ledger,
		Created: pCreated,
		Changed: pChanged,
		Log:     log,
		Service: cfg.ServiceName,
	}

	router := httpx.NewRouter()
	(&httpx.OrdersHandler{Lifecycle: lc, Redis: rdb, Log: log}).Register(router)
	(&httpx.ProductsHandler{Ledger: ledger}).Register(router)
	fh := &httpx.FavoritesHandler{}
	if rdb != nil {
		fh.Store = &favorites.Store{Redis: rdb}
	}
	fh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr, "backend", cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen failed", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pCreated.Close() // tutup inbox -> flush & close writer
	pChanged.Close()
	pCreated.WaitClosed()
	pChanged.WaitClosed()
	cancel()
}
