package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"contentscout/internal/domain"
	"contentscout/internal/ports"
)

// Scanner orchestrates one ingestion cycle: fan out over active sources with a
// bounded worker pool, admit candidates through the ledger, then make the
// single aggregation-API call.
type Scanner struct {
	ledger     ports.Ledger
	fetcher    ports.FeedFetcher
	aggregator ports.Aggregator
	dups       ports.DuplicateChecker
	limiter    ports.Waiter
	workers    int
	logger     *slog.Logger
}

// Options tunes a single Scan call.
type Options struct {
	// Priority restricts the cycle to one source tier; zero scans all tiers.
	Priority int
	// Progress, when set, is called after each source task completes.
	Progress ports.Progress
}

// NewScanner wires the orchestrator. DuplicateChecker, Aggregator, and Waiter
// may be nil; the corresponding step is skipped.
func NewScanner(ledger ports.Ledger, fetcher ports.FeedFetcher, aggregator ports.Aggregator,
	dups ports.DuplicateChecker, limiter ports.Waiter, workers int, logger *slog.Logger) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		ledger:     ledger,
		fetcher:    fetcher,
		aggregator: aggregator,
		dups:       dups,
		limiter:    limiter,
		workers:    workers,
		logger:     logger.With("component", "scanner"),
	}
}

// tally holds the per-source outcome folded into the cycle summary.
type tally struct {
	sourceName string
	found      int
	admitted   []domain.Article
	dupsHit    int
	err        error
}

// Scan runs one full cycle. Per-source failures are recorded in the summary's
// Errors and downgrade the status to partial; only ledger unavailability and
// exhausted sequence conflicts abort the cycle.
func (s *Scanner) Scan(ctx context.Context, opts Options) (domain.ScanSummary, error) {
	scanID, err := s.ledger.RecordScanStart(ctx)
	if err != nil {
		return domain.ScanSummary{}, fmt.Errorf("start scan: %w", err)
	}

	sources, err := s.ledger.ActiveSources(ctx, opts.Priority)
	if err != nil {
		return domain.ScanSummary{}, fmt.Errorf("load sources: %w", err)
	}

	s.logger.Info("scan started", "scanId", scanID, "sources", len(sources), "workers", s.workers)

	results := make([]tally, len(sources))
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			t, fatal := s.scanSource(gctx, src)
			results[i] = t
			if opts.Progress != nil {
				opts.Progress(int(completed.Add(1)), len(sources), src.Name)
			}
			return fatal
		})
	}
	poolErr := g.Wait()

	summary := domain.ScanSummary{
		ScanID:         scanID,
		SourcesScanned: len(sources),
		Status:         domain.ScanCompleted,
	}
	for _, t := range results {
		summary.ArticlesFound += t.found
		summary.NewArticles += len(t.admitted)
		summary.DuplicatesSkipped += t.dupsHit
		summary.Articles = append(summary.Articles, t.admitted...)
		if t.err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", t.sourceName, t.err))
		}
	}
	sort.Strings(summary.Errors)

	if poolErr != nil {
		s.finalize(ctx, scanID, summary, domain.ScanPartial, poolErr)
		return domain.ScanSummary{}, fmt.Errorf("scan %d aborted: %w", scanID, poolErr)
	}

	// One bounded aggregation call per cycle, after the per-source fan-out.
	if s.aggregator != nil {
		extra := s.aggregator.FetchLatest(ctx)
		summary.ArticlesFound += len(extra)
		for _, item := range extra {
			article, outcome, err := s.admit(ctx, item, nil, "newsdata")
			if err != nil {
				s.finalize(ctx, scanID, summary, domain.ScanPartial, err)
				return domain.ScanSummary{}, fmt.Errorf("scan %d aborted: %w", scanID, err)
			}
			switch outcome {
			case domain.Admitted:
				summary.NewArticles++
				summary.Articles = append(summary.Articles, article)
			case fuzzyDuplicate:
				summary.DuplicatesSkipped++
			}
		}
	}

	if len(summary.Errors) > 0 {
		summary.Status = domain.ScanPartial
	}

	rec := domain.ScanRecord{
		SourcesScanned:    summary.SourcesScanned,
		ArticlesFound:     summary.ArticlesFound,
		NewArticles:       summary.NewArticles,
		DuplicatesSkipped: summary.DuplicatesSkipped,
		Status:            summary.Status,
		Errors:            summary.Errors,
	}
	if err := s.ledger.RecordScanComplete(ctx, scanID, rec); err != nil {
		s.logger.Error("cannot finalize scan", "scanId", scanID, "error", err)
	}

	s.logger.Info("scan finished",
		"scanId", scanID,
		"status", summary.Status,
		"found", summary.ArticlesFound,
		"new", summary.NewArticles,
		"duplicates", summary.DuplicatesSkipped,
		"errors", len(summary.Errors))

	return summary, nil
}

// scanSource fetches one source's feed and admits its candidates. The second
// return value is non-nil only for cycle-fatal errors.
func (s *Scanner) scanSource(ctx context.Context, src domain.Source) (tally, error) {
	t := tally{sourceName: src.Name}

	if err := ctx.Err(); err != nil {
		t.err = err
		return t, nil
	}

	feedURL := src.FeedURL
	if feedURL == "" {
		feedURL = src.URL
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, feedURL); err != nil {
			t.err = fmt.Errorf("rate limit: %w", err)
			return t, nil
		}
	}

	items, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		s.logger.Warn("source fetch failed", "source", src.Name, "error", err)
		t.err = err
		return t, nil
	}
	t.found = len(items)

	sourceID := src.ID
	for _, item := range items {
		article, outcome, err := s.admit(ctx, item, &sourceID, src.Category)
		if err != nil {
			return t, err
		}
		switch outcome {
		case domain.Admitted:
			t.admitted = append(t.admitted, article)
		case fuzzyDuplicate:
			t.dupsHit++
		}
	}

	if err := s.ledger.TouchSource(ctx, src.ID); err != nil {
		s.logger.Warn("cannot touch source", "source", src.Name, "error", err)
	}

	return t, nil
}

// fuzzyDuplicate extends AdmitStatus for the orchestrator's bookkeeping: the
// candidate never reached the ledger because its title matched a recent one.
const fuzzyDuplicate domain.AdmitStatus = -1

// admit pushes one candidate through the admission pipeline: URL pre-check,
// fuzzy title check, ledger insert, sequence assignment. The returned error is
// always cycle-fatal.
func (s *Scanner) admit(ctx context.Context, item domain.CandidateItem, sourceID *int64, category string) (domain.Article, domain.AdmitStatus, error) {
	known, err := s.ledger.Exists(ctx, item.URL)
	if err != nil {
		if fatal(err) {
			return domain.Article{}, 0, err
		}
		s.logger.Warn("url pre-check failed", "url", item.URL, "error", err)
	}
	if known {
		return domain.Article{}, domain.DuplicateURL, nil
	}

	if s.dups != nil {
		dup, err := s.dups.IsDuplicate(ctx, item.Title)
		if err != nil {
			s.logger.Warn("duplicate check failed", "title", item.Title, "error", err)
		} else if dup {
			s.logger.Debug("fuzzy duplicate skipped", "title", item.Title)
			return domain.Article{}, fuzzyDuplicate, nil
		}
	}

	now := time.Now().UTC()
	result, err := s.ledger.Admit(ctx, domain.Article{
		SourceID:    sourceID,
		SourceName:  item.SourceName,
		Title:       item.Title,
		URL:         item.URL,
		Summary:     item.Summary,
		PublishedAt: item.PublishedAt,
		ScrapedAt:   now,
	})
	if err != nil {
		if fatal(err) {
			return domain.Article{}, 0, err
		}
		s.logger.Warn("admit failed", "url", item.URL, "error", err)
		return domain.Article{}, domain.ValidationFailed, nil
	}
	if result.Status != domain.Admitted {
		return domain.Article{}, result.Status, nil
	}

	if category == "" {
		category = "general"
	}
	seq, err := s.ledger.NextSequence(ctx, now.Format("2006-01-02")+"/"+category)
	if err != nil {
		if fatal(err) {
			return domain.Article{}, 0, err
		}
		s.logger.Warn("sequence assignment failed", "url", item.URL, "error", err)
	}

	article := domain.Article{
		ID:          result.ID,
		SourceID:    sourceID,
		SourceName:  item.SourceName,
		Title:       item.Title,
		URL:         item.URL,
		Summary:     item.Summary,
		PublishedAt: item.PublishedAt,
		ScrapedAt:   now,
		SeqNo:       seq,
	}
	return article, domain.Admitted, nil
}

// fatal reports whether an error must abort the whole cycle.
func fatal(err error) bool {
	return errors.Is(err, domain.ErrLedgerUnavailable) ||
		errors.Is(err, domain.ErrSequenceConflictExhausted)
}

// finalize best-effort records an aborted cycle so the ledger never holds a
// scan stuck in running.
func (s *Scanner) finalize(ctx context.Context, scanID int64, summary domain.ScanSummary, status domain.ScanStatus, cause error) {
	rec := domain.ScanRecord{
		SourcesScanned:    summary.SourcesScanned,
		ArticlesFound:     summary.ArticlesFound,
		NewArticles:       summary.NewArticles,
		DuplicatesSkipped: summary.DuplicatesSkipped,
		Status:            status,
		Errors:            append(summary.Errors, cause.Error()),
	}
	if err := s.ledger.RecordScanComplete(ctx, scanID, rec); err != nil {
		s.logger.Error("cannot finalize aborted scan", "scanId", scanID, "error", err)
	}
}

// Enrich runs the out-of-band full-content extraction for an admitted article
// and stores the body back in the ledger.
type Enricher struct {
	ledger    ports.Ledger
	extractor ports.Extractor
	logger    *slog.Logger
}

// NewEnricher wires the extraction use case.
func NewEnricher(ledger ports.Ledger, extractor ports.Extractor, logger *slog.Logger) *Enricher {
	return &Enricher{
		ledger:    ledger,
		extractor: extractor,
		logger:    logger.With("component", "enricher"),
	}
}

// Enrich extracts the full page behind article id and persists it. A fetch
// failure is logged and reported; partial extractions are stored as-is.
func (e *Enricher) Enrich(ctx context.Context, id int64) (domain.PageContent, error) {
	article, err := e.ledger.Article(ctx, id)
	if err != nil {
		return domain.PageContent{}, fmt.Errorf("load article %d: %w", id, err)
	}

	page := e.extractor.Extract(ctx, article.URL)
	if page.Err != "" {
		e.logger.Warn("extraction failed", "url", article.URL, "error", page.Err)
		return page, nil
	}

	if page.Content != "" {
		if err := e.ledger.SetFullContent(ctx, id, page.Content); err != nil {
			return page, fmt.Errorf("store content %d: %w", id, err)
		}
	}

	return page, nil
}
