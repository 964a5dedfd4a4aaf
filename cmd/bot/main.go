package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-storefront-bot/internal/admin"
	"github.com/ariefcatur/go-storefront-bot/internal/bot"
	"github.com/ariefcatur/go-storefront-bot/internal/cart"
	"github.com/ariefcatur/go-storefront-bot/internal/catalog"
	"github.com/ariefcatur/go-storefront-bot/internal/checkout"
	"github.com/ariefcatur/go-storefront-bot/internal/config"
	"github.com/ariefcatur/go-storefront-bot/internal/flow"
	"github.com/ariefcatur/go-storefront-bot/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront-bot/internal/kafka"
	"github.com/ariefcatur/go-storefront-bot/internal/logx"
	"github.com/ariefcatur/go-storefront-bot/internal/notify"
	"github.com/ariefcatur/go-storefront-bot/internal/orders"
	"github.com/ariefcatur/go-storefront-bot/internal/persist"
	"github.com/ariefcatur/go-storefront-bot/internal/postgres"
	"github.com/ariefcatur/go-storefront-bot/internal/redisx"
	"github.com/ariefcatur/go-storefront-bot/internal/relay"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logx.New(cfg.LogLevel, cfg.LogFormat).With("service", cfg.ServiceName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence: Postgres when configured, JSON files otherwise.
	var backend persist.Backend = persist.FileBackend{Dir: cfg.DataDir}
	if cfg.PostgresDSN != "" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			fatal(log, "db connect", err)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			fatal(log, "db schema", err)
		}
		backend = persist.PostgresBackend{DB: db}
	}

	products := catalog.NewStore()
	carts := cart.NewStore(cfg.MaxLineQuantity)
	ord := orders.NewStore()
	store := persist.NewManager(backend, products, carts, ord, log)
	if err := store.Load(ctx); err != nil {
		fatal(log, "load state", err)
	}

	// Redis: sessions survive restarts and event ids are shared between
	// replicas. Without it both stay in memory.
	var rdb *redis.Client
	var dedup redisx.Deduper = redisx.NewMemoryDeduper(redisx.TTLDedup)
	if cfg.RedisAddr != "" {
		rdb = redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			fatal(log, "redis ping", err)
		}
		dedup = redisx.NewDeduper(rdb, cfg.ServiceName)
	}

	// Kafka: notifications, domain events and replies. Without brokers
	// notifications are only logged and events dropped.
	var notifier notify.Notifier = notify.LogNotifier{Log: log}
	events := notify.NewEmitter(cfg.ServiceName, log)
	var producers []*kafkax.Producer
	newProducer := func(topic string) *kafkax.Producer {
		p := kafkax.NewProducer(cfg.KafkaBrokers, topic, 1024, log)
		p.Start(ctx)
		producers = append(producers, p)
		return p
	}
	if len(cfg.KafkaBrokers) > 0 {
		notifier = notify.KafkaNotifier{Producer: newProducer(orders.TopicNotifications), Service: cfg.ServiceName}
		events.Route(orders.TopicOrders, newProducer(orders.TopicOrders)).
			Route(orders.TopicCatalog, newProducer(orders.TopicCatalog))
	}

	co := checkout.New(carts, ord, products, sessions[checkout.Data](rdb, "checkout", cfg.SessionTTL))
	svc := bot.New(bot.Deps{
		Catalog:   products,
		Carts:     carts,
		Orders:    ord,
		Checkout:  co,
		Readdress: checkout.NewReaddress(ord, sessions[checkout.AddressData](rdb, "readdress", cfg.SessionTTL)),
		Wizard:    admin.NewWizard(products, sessions[admin.Draft](rdb, "create-product", cfg.SessionTTL)),
		Editor:    admin.NewEditor(products, sessions[admin.Edit](rdb, "edit-product", cfg.SessionTTL)),
		Gate:      admin.NewGate(cfg.AdminUsername, log),
		Saver:     store,
		Notifier:  notifier,
		Events:    events,
		PageSize:  cfg.OrdersPageSize,
		Log:       log,
	})

	// Inbound chat events over Kafka, when a topic is configured.
	if len(cfg.KafkaBrokers) > 0 && cfg.InboundTopic != "" {
		rl := &relay.Service{
			Bot:         svc,
			Dedup:       dedup,
			Replies:     newProducer(orders.TopicReplies),
			ServiceName: cfg.ServiceName,
			Log:         log,
		}
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.InboundGroup, cfg.InboundTopic, cfg.InboundWorkers, log)
		go func() {
			log.Info("relay consumer started", "group", cfg.InboundGroup, "topic", cfg.InboundTopic, "workers", cfg.InboundWorkers)
			if err := cons.Start(ctx, rl.HandleMessage); err != nil {
				log.Error("relay consumer exit", "err", err)
				cancel()
			}
		}()
	}

	router := httpx.NewRouter(log, store.Health)
	(&httpx.EventsHandler{Bot: svc, Dedup: dedup, Log: log}).Register(router)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel()
	if err := store.SaveAll(ctx2); err != nil {
		log.Error("final save", "err", err)
	}
	for _, p := range producers {
		p.Close()
	}
	for _, p := range producers {
		p.WaitClosed()
	}
}

func sessions[D any](rdb *redis.Client, name string, ttl time.Duration) flow.Store[D] {
	if rdb == nil {
		return flow.NewMemoryStore[D](ttl)
	}
	return flow.NewRedisStore[D](rdb, name, ttl)
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "err", err)
	os.Exit(1)
}
