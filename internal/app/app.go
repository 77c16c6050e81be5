package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"contentscout/internal/config"
	"contentscout/internal/dedup"
	"contentscout/internal/infrastructure/extract"
	"contentscout/internal/infrastructure/feed"
	"contentscout/internal/infrastructure/newsdata"
	"contentscout/internal/infrastructure/scheduler"
	"contentscout/internal/infrastructure/sources"
	"contentscout/internal/infrastructure/storage"
	"contentscout/internal/logging"
	"contentscout/internal/ports"
	"contentscout/internal/ratelimit"
	"contentscout/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	ledger   *storage.SQLiteLedger
	scanner  *usecase.Scanner
	enricher *usecase.Enricher
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	ledger, err := storage.OpenSQLite(cfg.Database.Path, cfg.Scanning.MinTitleLength,
		baseLogger.With("component", "ledger"))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	catalog, err := sources.Load(cfg.Sources.Path, baseLogger.With("component", "sources"))
	if err != nil {
		baseLogger.Warn("cannot load source catalog", "path", cfg.Sources.Path, "error", err)
	} else if added, err := sources.Apply(context.Background(), ledger, catalog); err != nil {
		_ = ledger.Close()
		return nil, fmt.Errorf("seed sources: %w", err)
	} else if added > 0 {
		baseLogger.Info("source catalog seeded", "added", added)
	}

	limiter := ratelimit.NewHostLimiter(cfg.Scanning.MinInterval())
	httpClient := &http.Client{Timeout: cfg.Scanning.Timeout()}

	fetcher := feed.NewFetcher(httpClient, cfg.Scanning.MaxItemsPerSource,
		baseLogger.With("component", "feed"))

	var checker ports.DuplicateChecker
	if cfg.Scanning.CheckDuplicates {
		checker = dedup.New(ledger, cfg.Scanning.DuplicateThreshold,
			cfg.Scanning.DuplicateWindowDays, baseLogger.With("component", "dedup"))
	}

	var aggregator ports.Aggregator
	nd := newsdata.NewClient(cfg.NewsData, httpClient, baseLogger.With("component", "newsdata"))
	if nd.Configured() {
		aggregator = nd
	} else {
		baseLogger.Info("newsdata api key missing, aggregation disabled")
	}

	sc := usecase.NewScanner(ledger, fetcher, aggregator, checker, limiter,
		cfg.Scanning.MaxWorkers, baseLogger)

	extractor := extract.NewExtractor(httpClient, limiter, cfg.Scanning.MaxRetries,
		baseLogger.With("component", "extract"))
	enricher := usecase.NewEnricher(ledger, extractor, baseLogger)

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		ledger:   ledger,
		scanner:  sc,
		enricher: enricher,
	}, nil
}

// Run executes a single scan cycle, or keeps scanning on the configured
// interval until ctx is canceled.
func (a *Application) Run(ctx context.Context) error {
	defer a.ledger.Close()

	if a.cfg.Scheduler.IntervalMinutes <= 0 {
		_, err := a.scanner.Scan(ctx, usecase.Options{})
		return err
	}

	sched := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval())
	if err := sched.Start(ctx, func(t time.Time) {
		a.logger.Info("scheduled scan", "at", t)
		if _, err := a.scanner.Scan(ctx, usecase.Options{}); err != nil {
			a.logger.Error("scan cycle failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	_ = sched.Stop(context.Background())
	return ctx.Err()
}

// Enricher exposes the full-content extraction use case.
func (a *Application) Enricher() *usecase.Enricher {
	return a.enricher
}
