package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"veridoc/internal/events"
	"veridoc/internal/jwttoken"
	"veridoc/internal/platform/config"
	"veridoc/internal/platform/httpserver"
	"veridoc/internal/platform/logger"
	platformredis "veridoc/internal/platform/redis"
	httptransport "veridoc/internal/transport/http"
	"veridoc/internal/verification/ocr"
	"veridoc/internal/verification/pipeline"
	"veridoc/internal/verification/pipeline/metrics"
	"veridoc/internal/verification/ports"
	"veridoc/internal/verification/store/cases"
	"veridoc/internal/verification/store/dedup"
	"veridoc/internal/verification/store/profile"
	"veridoc/internal/worker"
)

// main wires dependencies and owns the server lifecycle. All verification
// logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	caseStore, profileStore, cleanup, err := buildStores(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	dedupStore, err := buildDedupStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	provider, err := ocr.New(cfg.OCR, ocr.WithLogger(log))
	if err != nil {
		return fmt.Errorf("build ocr provider: %w", err)
	}
	log.Info("ocr provider configured", "provider", provider.ID())

	emitter, closeEmitter, err := buildEmitter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeEmitter()

	svc, err := pipeline.New(caseStore, profileStore, dedupStore, provider,
		pipeline.WithLogger(log),
		pipeline.WithEmitter(emitter),
		pipeline.WithMetrics(metrics.New()),
		pipeline.WithDedupTTL(cfg.Redis.DedupTTL),
	)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	dispatcher, err := worker.New(svc, int64(cfg.WorkerConcurrency), worker.WithLogger(log))
	if err != nil {
		return fmt.Errorf("build dispatcher: %w", err)
	}

	tokens := jwttoken.NewService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	handler := httptransport.NewHandler(dispatcher, svc, tokens, cfg.JWT.UploadAPIKeyHash, cfg.JWT.TokenTTL, log)
	router := httptransport.NewRouter(handler, tokens, log)

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr, "store_backend", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// buildStores selects the case and profile stores. Postgres gets the schema
// applied on startup so a fresh database is usable without a migration step.
func buildStores(cfg config.Config, log *slog.Logger) (ports.CaseStore, ports.ProfileStore, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		db, err := sql.Open("postgres", cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		if _, err := db.Exec(cases.Schema); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("apply case schema: %w", err)
		}
		if _, err := db.Exec(profile.Schema); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("apply profile schema: %w", err)
		}
		return cases.NewPostgres(db), profile.NewPostgres(db), func() { db.Close() }, nil
	case "memory", "":
		log.Warn("using in-memory stores; cases do not survive restarts")
		return cases.NewInMemory(), profile.NewInMemory(), func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildDedupStore(ctx context.Context, cfg config.Config, log *slog.Logger) (ports.DedupStore, error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		log.Warn("redis not configured; delivery dedup is per-process only")
		return dedup.NewInMemory(), nil
	}
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("redis health check: %w", err)
	}
	return dedup.NewRedis(client.Client), nil
}

func buildEmitter(ctx context.Context, cfg config.Config, log *slog.Logger) (ports.Emitter, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka not configured; emitting results to the log")
		return events.NewLogEmitter(log), func() {}, nil
	}
	emitter, err := events.NewKafkaEmitter(cfg.Kafka, events.WithKafkaLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("build kafka emitter: %w", err)
	}
	if err := emitter.EnsureTopics(ctx); err != nil {
		emitter.Close()
		return nil, nil, fmt.Errorf("ensure kafka topics: %w", err)
	}
	return emitter, emitter.Close, nil
}
