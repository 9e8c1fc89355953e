package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"cryptonews/internal/api"
	"cryptonews/internal/config"
	"cryptonews/internal/enrich"
	"cryptonews/internal/feed"
	"cryptonews/internal/ingest"
	"cryptonews/internal/logger"
	"cryptonews/internal/notify"
	"cryptonews/internal/retry"
	"cryptonews/internal/scraper"
	"cryptonews/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Get()
	logger.Init(cfg.Debug)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := sqlx.Connect("postgres", cfg.DatabaseDSN)
	if err != nil {
		logger.Error("database connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	store := storage.New(db)
	if err := store.InitSchema(ctx); err != nil {
		logger.Error("schema init failed", "err", err)
		os.Exit(1)
	}
	if err := store.SeedSources(ctx, cfg.FeedsConfigPath); err != nil {
		logger.Warn("source seeding skipped", "err", err)
	}

	fetcher := feed.NewClient(cfg.RequestTimeout, retry.Config{
		MaxAttempts: cfg.RetryAttempts,
		Delay:       cfg.RetryDelay,
		Backoff:     true,
	}, cfg.MaxItemsPerCycle)

	var notifier ingest.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChannelID != 0 {
		n, err := notify.New(cfg.TelegramBotToken, cfg.TelegramChannelID)
		if err != nil {
			logger.Warn("telegram disabled", "err", err)
		} else {
			notifier = n
		}
	}

	orchestrator := ingest.New(
		store,
		store,
		ingest.NewGate(store, cfg.DedupBatchSize),
		fetcher,
		scraper.New(cfg.ScrapeTimeout),
		notifier,
	)

	var enricher api.Enricher
	if cfg.GeminiAPIKey != "" {
		e, err := enrich.New(ctx, cfg.GeminiAPIKey, store, cfg.EnrichBatchLimit, cfg.MaxGeminiRequests)
		if err != nil {
			logger.Warn("enrichment disabled", "err", err)
		} else {
			defer e.Close()
			enricher = e
		}
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(orchestrator, enricher),
	}
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "err", err)
		}
	}()

	runCycle := func() {
		if err := orchestrator.Run(ctx); err != nil {
			logger.Error("ingestion cycle failed", "err", err)
		}
	}

	// First cycle immediately, then on the ticker.
	runCycle()

	ticker := time.NewTicker(cfg.FetchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http shutdown failed", "err", err)
			}
			logger.Info("shutting down")
			return
		case <-ticker.C:
			runCycle()
		}
	}
}
