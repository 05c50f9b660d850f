package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bookenrich/internal/cache"
	"bookenrich/internal/catalog"
	"bookenrich/internal/config"
	"bookenrich/internal/enrich"
	"bookenrich/internal/httpx"
	"bookenrich/internal/metrics"
	"bookenrich/internal/pipeline"
	"bookenrich/internal/platform/fetch"
	"bookenrich/internal/platform/googlebooks"
	"bookenrich/internal/platform/logger"
	"bookenrich/internal/platform/openlibrary"
	"bookenrich/internal/provider"
	"bookenrich/internal/scheduler"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Run builds every component from cfg and executes one pipeline run.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) (*pipeline.Run, error) {
	reg := metrics.NewRegistry()
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, reg, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	store, err := cache.Open(cfg.Cache.Backend, cfg.Cache.BackendConfig())
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	layer := cache.NewLayer(store, cfg.Cache.Retention, cache.WithLogger(log))
	defer func() {
		if err := layer.Close(); err != nil {
			log.Warn("closing cache", "error", err)
		}
	}()

	var (
		books catalog.Repository
		runs  pipeline.RunRepository
	)
	if cfg.DB.DSN != "" {
		pool, err := openDB(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		books = catalog.NewPostgresRepo(pool)
		runs = pipeline.NewPostgresRepo(pool)
	}

	enricher := enrich.NewService(Adapters(cfg, reg, log), layer, reg, log)
	svc := pipeline.NewService(enricher, catalog.NewService(books, log), runs, pipeline.Config{
		Input:    cfg.Pipeline.Input,
		Output:   cfg.Pipeline.Output,
		Deadline: cfg.Pipeline.Deadline,
		Scheduler: scheduler.Options{
			Concurrency:   cfg.Scheduler.Concurrency,
			Delay:         cfg.Scheduler.Delay,
			ProgressEvery: cfg.Scheduler.ProgressEvery,
		},
	}, reg, log)

	return svc.Run(ctx)
}

// Adapters returns the cascade in priority order: identifier lookups
// before text searches, Google Books before Open Library.
func Adapters(cfg *config.Config, reg *metrics.Registry, log *logger.Logger) []enrich.Adapter {
	newFetcher := func(name string) *fetch.Client {
		return fetch.NewClient(fetch.Options{
			Name:            name,
			UserAgent:       cfg.Fetch.UserAgent,
			Timeout:         cfg.Fetch.Timeout,
			RatePerSecond:   cfg.Fetch.RatePerSecond,
			Retry:           cfg.Fetch.Retry(),
			BreakerFailures: cfg.Fetch.BreakerFailures,
			Metrics:         reg,
			Logger:          log,
		})
	}
	gb := googlebooks.NewClient(newFetcher(provider.GoogleBooksTag), cfg.Providers.GoogleBooksURL, cfg.Providers.GoogleBooksKey)
	ol := openlibrary.NewClient(newFetcher(provider.OpenLibraryTag), cfg.Providers.OpenLibraryURL)

	return []enrich.Adapter{
		provider.NewGoogleBooks(gb, enrich.ByIdentifier),
		provider.NewOpenLibrary(ol, enrich.ByIdentifier),
		provider.NewGoogleBooks(gb, enrich.ByText),
		provider.NewOpenLibrary(ol, enrich.ByText),
	}
}

func openDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func metricsHandler(reg *metrics.Registry, log *logger.Logger) http.Handler {
	router := http.NewServeMux()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", reg.Handler())
	return httpx.Chain(router, httpx.RequestIDMiddleware, httpx.AccessLogMiddleware(log))
}

func serveMetrics(addr string, reg *metrics.Registry, log *logger.Logger) *http.Server {
	srv := &http.Server{
		Addr:         addr,
		Handler:      metricsHandler(reg, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "error", err)
		}
	}()
	return srv
}
