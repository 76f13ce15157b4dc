package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/b2b-orders.git/internal/config"
	kafkax "github.com/ariefcatur/b2b-orders.git/internal/kafka"
	"github.com/ariefcatur/b2b-orders.git/internal/logging"
	"github.com/ariefcatur/b2b-orders.git/internal/notify"
	"github.com/ariefcatur/b2b-orders.git/internal/orders"
	"github.com/ariefcatur/b2b-orders.git/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.ServiceName + "-notifier")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()
	}

	var sender notify.Sender
	if cfg.WebhookURL != "" {
		sender = notify.NewWebhookSender(cfg.WebhookURL)
	} else {
		sender = &notify.LogSender{Log: log}
	}

	d := &notify.Dispatcher{
		Redis:   rdb,
		Sender:  sender,
		Log:     log,
		Service: cfg.ServiceName + "-notifier",
	}

	// satu consumer per topic, dua-duanya masuk dispatcher yang sama
	for _, topic := range []string{orders.TopicOrderCreated, orders.TopicOrderStatusChanged} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifyGroup, topic, cfg.NotifyWorker, log)
		go func(topic string) {
			log.Info("notifier consumer started", "topic", topic, "group", cfg.NotifyGroup, "workers", cfg.NotifyWorker)
			if err := cons.Start(ctx, d.Handle); err != nil {
				log.Error("consumer exit", "topic", topic, "err", err)
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down notifier...")
		cancel()
	case <-ctx.Done():
	}
}
