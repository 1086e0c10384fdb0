package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	apptmetrics "citamed/internal/appointment/metrics"
	"citamed/internal/appointment/models"
	countryproc "citamed/internal/country"
	countryconsumer "citamed/internal/country/consumer"
	countrystore "citamed/internal/country/store"
	"citamed/internal/events"
	"citamed/internal/platform/config"
	"citamed/internal/platform/httpserver"
	"citamed/internal/platform/idgen"
	"citamed/internal/platform/kafka"
	kconsumer "citamed/internal/platform/kafka/consumer"
	"citamed/internal/platform/kafka/producer"
	"citamed/internal/platform/logger"
)

// main wires the country processors: one consumer, service, and bounded
// store pool per configured country, all running under one errgroup.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	ids := idgen.New()

	g, gctx := errgroup.WithContext(ctx)

	for _, countryCfg := range cfg.Countries {
		code, err := models.ParseCountryCode(countryCfg.Country)
		if err != nil {
			log.Error("invalid country in config", "country", countryCfg.Country, "error", err)
			os.Exit(1)
		}

		st, err := countrystore.NewPostgres(ctx, countryCfg.DSN, code, countryCfg.MaxConns)
		if err != nil {
			log.Error("connect country store", "country", code.String(), "error", err)
			os.Exit(1)
		}
		defer st.Close()
		if err := st.EnsureSchema(ctx); err != nil {
			log.Error("ensure country schema", "country", code.String(), "error", err)
			os.Exit(1)
		}

		svc, err := countryproc.New(code, st, prod, ids,
			countryproc.WithLogger(log),
			countryproc.WithMetrics(m),
		)
		if err != nil {
			log.Error("create country processor", "country", code.String(), "error", err)
			os.Exit(1)
		}

		topic, ok := events.TopicForCountry(code)
		if !ok {
			log.Error("no topic for country", "country", code.String())
			os.Exit(1)
		}

		cons, err := kconsumer.New(kconsumer.Config{
			Brokers: cfg.Kafka.Brokers,
			Group:   cfg.Kafka.Group + ".processor." + strings.ToLower(code.String()),
			Topics:  []string{topic},
		}, countryconsumer.NewHandler(svc, log), log)
		if err != nil {
			log.Error("create country consumer", "country", code.String(), "error", err)
			os.Exit(1)
		}
		defer cons.Close()

		g.Go(func() error {
			log.Info("starting country processor", "country", code.String(), "topic", topic)
			return cons.Run(gctx)
		})
	}

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httpserver.New(getAddr(), router)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("processor exited", "error", err)
		os.Exit(1)
	}
}

func getAddr() string {
	if addr := os.Getenv("CITAMED_PROCESSOR_ADDR"); addr != "" {
		return addr
	}
	return ":8081"
}
