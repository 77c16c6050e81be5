package ports

import (
	"context"
	"time"

	"contentscout/internal/domain"
)

// Ledger is the durable admission store: URL uniqueness, validation, atomic
// sequence counters, and scan-lifecycle bookkeeping.
type Ledger interface {
	AddSource(ctx context.Context, src domain.Source) (int64, error)
	ActiveSources(ctx context.Context, priority int) ([]domain.Source, error)
	TouchSource(ctx context.Context, id int64) error

	Exists(ctx context.Context, url string) (bool, error)
	Admit(ctx context.Context, article domain.Article) (domain.AdmitResult, error)
	RecentTitles(ctx context.Context, days int) ([]string, error)
	NextSequence(ctx context.Context, scopeKey string) (int, error)

	RecordScanStart(ctx context.Context) (int64, error)
	RecordScanComplete(ctx context.Context, id int64, rec domain.ScanRecord) error
	LastScan(ctx context.Context) (*domain.ScanRecord, error)

	Article(ctx context.Context, id int64) (domain.Article, error)
	SetFullContent(ctx context.Context, id int64, content string) error
}

// FeedFetcher retrieves and normalizes one source's feed. A fetch error is a
// per-source condition; it must never fail the cycle.
type FeedFetcher interface {
	Fetch(ctx context.Context, src domain.Source) ([]domain.CandidateItem, error)
}

// Aggregator performs the single bounded call per cycle against the quota-limited
// aggregation API. Errors are logged inside the client, never raised.
type Aggregator interface {
	FetchLatest(ctx context.Context) []domain.CandidateItem
}

// DuplicateChecker flags candidate titles that fuzzily match a recently
// admitted one.
type DuplicateChecker interface {
	IsDuplicate(ctx context.Context, title string) (bool, error)
}

// Waiter throttles dispatches per network host.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Extractor pulls full-page content on demand, outside the bulk scan loop.
type Extractor interface {
	Extract(ctx context.Context, url string) domain.PageContent
}

// Progress is invoked as each source task completes. The core never depends on
// it being present.
type Progress func(completed, total int, sourceName string)

// Scheduler controls when scan cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
