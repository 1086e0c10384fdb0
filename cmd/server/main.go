package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"citamed/internal/appointment/cache"
	apptconsumer "citamed/internal/appointment/consumer"
	"citamed/internal/appointment/handler"
	apptmetrics "citamed/internal/appointment/metrics"
	"citamed/internal/appointment/service"
	"citamed/internal/appointment/store"
	"citamed/internal/events"
	"citamed/internal/platform/config"
	"citamed/internal/platform/httpserver"
	"citamed/internal/platform/idgen"
	"citamed/internal/platform/kafka"
	kconsumer "citamed/internal/platform/kafka/consumer"
	"citamed/internal/platform/kafka/producer"
	"citamed/internal/platform/logger"
	"citamed/internal/platform/postgres"
	platformredis "citamed/internal/platform/redis"
)

// main wires the API server: the central appointment store, the routed
// message producer, the completion finalizer consumer, and the HTTP router.
// Business logic lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("connect to appointment store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	apptStore := store.NewPostgres(db)
	if err := apptStore.EnsureSchema(ctx); err != nil {
		log.Error("ensure appointment schema", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		// The cache is optional; a broken Redis must not block scheduling.
		log.Warn("redis unavailable, list cache disabled", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	if err := kafka.EnsureTopics(ctx, cfg.Kafka.Brokers, 3, events.AllTopics()...); err != nil {
		log.Error("ensure kafka topics", "error", err)
		os.Exit(1)
	}

	prod, err := producer.New(cfg.Kafka.Brokers, log)
	if err != nil {
		log.Error("create kafka producer", "error", err)
		os.Exit(1)
	}
	defer prod.Close()

	m := apptmetrics.New()
	svc, err := service.New(apptStore, prod, idgen.New(),
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithListCache(cache.NewListCache(redisClient, cfg.Redis.TTL, log)),
	)
	if err != nil {
		log.Error("create appointment service", "error", err)
		os.Exit(1)
	}

	finalizer, err := kconsumer.New(kconsumer.Config{
		Brokers: cfg.Kafka.Brokers,
		Group:   cfg.Kafka.Group + ".finalizer",
		Topics:  []string{events.TopicAppointmentsCompleted},
	}, apptconsumer.NewCompletionHandler(svc, log), log)
	if err != nil {
		log.Error("create completion consumer", "error", err)
		os.Exit(1)
	}
	defer finalizer.Close()

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler.New(svc, log).Register(router)

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting citamed server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting completion finalizer", "topic", events.TopicAppointmentsCompleted)
		return finalizer.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
