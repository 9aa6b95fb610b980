package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"eventdesk/internal/audit"
	auditkafka "eventdesk/internal/audit/store/kafka"
	auditmemory "eventdesk/internal/audit/store/memory"
	checkinhandler "eventdesk/internal/checkin/handler"
	checkinmetrics "eventdesk/internal/checkin/metrics"
	checkinservice "eventdesk/internal/checkin/service"
	checkinstore "eventdesk/internal/checkin/store"
	eventhandler "eventdesk/internal/event/handler"
	eventservice "eventdesk/internal/event/service"
	eventstore "eventdesk/internal/event/store"
	jwttoken "eventdesk/internal/jwt_token"
	"eventdesk/internal/platform/config"
	"eventdesk/internal/platform/httpserver"
	"eventdesk/internal/platform/kafka"
	"eventdesk/internal/platform/logger"
	"eventdesk/internal/platform/metrics"
	"eventdesk/internal/platform/postgres"
	"eventdesk/internal/platform/redis"
	"eventdesk/internal/qrcode"
	reghandler "eventdesk/internal/registration/handler"
	regservice "eventdesk/internal/registration/service"
	regstore "eventdesk/internal/registration/store"
	"eventdesk/migrations"
)

// stores groups the persistence backends selected by configuration.
type stores struct {
	events        eventservice.Store
	registrations regservice.Store
	checkins      checkinservice.Store
	checkinTx     checkinservice.StoreTx
}

// main wires dependencies and runs the HTTP server and audit worker until a
// shutdown signal arrives. Business logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = postgres.Open(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.Apply(ctx, pool); err != nil {
			return err
		}
	}

	cache, err := redis.New(ctx, cfg.RedisConfig)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	st := buildStores(pool, cache, cfg, log)

	auditStore, closeAudit, err := buildAuditStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	publisher := audit.NewPublisher(audit.DefaultBufferSize, nil, log)
	worker := audit.NewWorker(auditStore, publisher.Inbox(), log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.New(registry)

	codec := qrcode.New(cfg.AppKey, cfg.QRHashSalt, qrcode.WithTTL(cfg.QRPayloadTTL))

	events := eventservice.New(st.events, eventservice.WithLogger(log))
	registrations := regservice.New(st.registrations, st.events, codec,
		regservice.WithAutoConfirm(cfg.RegistrationAutoConfirm),
		regservice.WithLogger(log),
		regservice.WithMetrics(httpMetrics),
		regservice.WithAuditPublisher(publisher),
	)
	checkins := checkinservice.New(st.checkins, codec,
		checkinservice.WithTx(st.checkinTx),
		checkinservice.WithRules(cfg.CheckInRules()),
		checkinservice.WithSignatureVerification(cfg.QRVerifySignature),
		checkinservice.WithMaxBulk(cfg.MaxBulkCodes),
		checkinservice.WithLogger(log),
		checkinservice.WithMetrics(checkinmetrics.New(registry)),
		checkinservice.WithAuditPublisher(publisher),
	)

	tokens := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience))

	r := chi.NewRouter()
	registerOpsRoutes(r, registry, healthChecks(pool, cache))
	eventhandler.New(events, log, httpMetrics, tokens).WithTimeout(cfg.RequestTimeout).Register(r)
	reghandler.New(registrations, log, httpMetrics, tokens).WithTimeout(cfg.RequestTimeout).Register(r)
	checkinhandler.New(checkins, log, httpMetrics, tokens).WithTimeout(cfg.RequestTimeout).Register(r)

	srv := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting eventdesk",
			"addr", cfg.Addr,
			"postgres", pool != nil,
			"redis", cache != nil,
			"kafka", len(cfg.Brokers()) > 0,
		)
		return httpserver.Run(gctx, srv, cfg.ShutdownTimeout, log)
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	go func() {
		<-gctx.Done()
		publisher.Close()
	}()

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("eventdesk stopped", "audit_dropped", publisher.Dropped())
	return nil
}

// buildStores picks Postgres when a pool is configured and in-memory stores
// otherwise. Event reads go through Redis when a cache client is available.
func buildStores(pool *pgxpool.Pool, cache *redis.Client, cfg config.Server, log *slog.Logger) stores {
	if pool == nil {
		var events eventservice.Store = eventstore.NewInMemoryStore()
		if cache != nil {
			events = eventstore.NewRedisCache(cache.Client, events, cfg.EventTTL, log)
		}
		registrations := regstore.NewInMemoryStore()
		checkins := checkinstore.NewInMemoryStore(registrations, events)
		return stores{
			events:        events,
			registrations: registrations,
			checkins:      checkins,
			checkinTx:     checkinservice.NewShardedTx(checkins, cfg.TxTimeout),
		}
	}

	var events eventservice.Store = eventstore.NewPostgres(pool)
	if cache != nil {
		events = eventstore.NewRedisCache(cache.Client, events, cfg.EventTTL, log)
	}
	registrations := regstore.NewPostgres(pool)
	checkins := checkinstore.NewPostgres(pool, events, registrations)
	return stores{
		events:        events,
		registrations: registrations,
		checkins:      checkins,
		checkinTx:     newCheckInPostgresTx(pool, checkins, cfg.TxTimeout),
	}
}

// buildAuditStore sends audit events to Kafka when brokers are configured.
func buildAuditStore(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Store, func(), error) {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return auditmemory.NewInMemoryStore(), func() {}, nil
	}
	client, err := kafka.NewClient(brokers, "eventdesk")
	if err != nil {
		return nil, nil, err
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.KafkaAuditTopic, 3, 1); err != nil {
		client.Close()
		return nil, nil, err
	}
	log.InfoContext(ctx, "audit events publishing to kafka", "topic", cfg.KafkaAuditTopic)
	return auditkafka.NewSink(client, cfg.KafkaAuditTopic), client.Close, nil
}
