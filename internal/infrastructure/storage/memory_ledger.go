package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"contentscout/internal/domain"
	"contentscout/internal/ports"
)

var _ ports.Ledger = (*MemoryLedger)(nil)

// MemoryLedger keeps the whole ledger in process memory. It honors the same
// contract as the sqlite backend and backs tests and ephemeral runs.
type MemoryLedger struct {
	mu          sync.Mutex
	minTitleLen int

	sources   []domain.Source
	sourceSeq int64

	articles   map[string]domain.Article // keyed by URL
	articleSeq int64

	scans   map[int64]*domain.ScanRecord
	scanSeq int64

	counters map[string]int
}

// NewMemoryLedger builds an empty ledger enforcing the given minimum title
// length (the sqlite default when <= 0).
func NewMemoryLedger(minTitleLen int) *MemoryLedger {
	if minTitleLen <= 0 {
		minTitleLen = 5
	}
	return &MemoryLedger{
		minTitleLen: minTitleLen,
		articles:    make(map[string]domain.Article),
		scans:       make(map[int64]*domain.ScanRecord),
		counters:    make(map[string]int),
	}
}

func (l *MemoryLedger) AddSource(_ context.Context, src domain.Source) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.sources {
		if existing.URL == src.URL {
			return 0, nil
		}
	}

	l.sourceSeq++
	src.ID = l.sourceSeq
	src.Active = true
	l.sources = append(l.sources, src)
	return src.ID, nil
}

func (l *MemoryLedger) ActiveSources(_ context.Context, priority int) ([]domain.Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Source
	for _, src := range l.sources {
		if !src.Active {
			continue
		}
		if priority > 0 && src.Priority != priority {
			continue
		}
		out = append(out, src)
	}
	return out, nil
}

func (l *MemoryLedger) TouchSource(_ context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.sources {
		if l.sources[i].ID == id {
			now := time.Now()
			l.sources[i].LastChecked = &now
			return nil
		}
	}
	return fmt.Errorf("source %d not found", id)
}

func (l *MemoryLedger) Exists(_ context.Context, url string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.articles[url]
	return ok, nil
}

func (l *MemoryLedger) Admit(_ context.Context, article domain.Article) (domain.AdmitResult, error) {
	title := strings.TrimSpace(article.Title)
	if len(title) < l.minTitleLen {
		return domain.AdmitResult{Status: domain.ValidationFailed}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.articles[article.URL]; ok {
		return domain.AdmitResult{Status: domain.DuplicateURL}, nil
	}

	l.articleSeq++
	article.ID = l.articleSeq
	article.Title = title
	if article.ScrapedAt.IsZero() {
		article.ScrapedAt = time.Now()
	}
	l.articles[article.URL] = article

	return domain.AdmitResult{Status: domain.Admitted, ID: article.ID}, nil
}

func (l *MemoryLedger) RecentTitles(_ context.Context, days int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -days)
	var titles []string
	for _, article := range l.articles {
		if article.ScrapedAt.After(cutoff) && article.Title != "" {
			titles = append(titles, article.Title)
		}
	}
	return titles, nil
}

func (l *MemoryLedger) NextSequence(_ context.Context, scopeKey string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counters[scopeKey]++
	return l.counters[scopeKey], nil
}

func (l *MemoryLedger) RecordScanStart(_ context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.scanSeq++
	l.scans[l.scanSeq] = &domain.ScanRecord{
		ID:        l.scanSeq,
		StartedAt: time.Now(),
		Status:    domain.ScanRunning,
	}
	return l.scanSeq, nil
}

func (l *MemoryLedger) RecordScanComplete(_ context.Context, id int64, rec domain.ScanRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.scans[id]
	if !ok || current.Status != domain.ScanRunning {
		return fmt.Errorf("scan %d is not running", id)
	}

	now := time.Now()
	current.CompletedAt = &now
	current.SourcesScanned = rec.SourcesScanned
	current.ArticlesFound = rec.ArticlesFound
	current.NewArticles = rec.NewArticles
	current.DuplicatesSkipped = rec.DuplicatesSkipped
	current.Status = rec.Status
	current.Errors = rec.Errors
	return nil
}

func (l *MemoryLedger) LastScan(_ context.Context) (*domain.ScanRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.scanSeq == 0 {
		return nil, nil
	}
	rec := *l.scans[l.scanSeq]
	return &rec, nil
}

func (l *MemoryLedger) Article(_ context.Context, id int64) (domain.Article, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, article := range l.articles {
		if article.ID == id {
			return article, nil
		}
	}
	return domain.Article{}, fmt.Errorf("article %d not found", id)
}

func (l *MemoryLedger) SetFullContent(_ context.Context, id int64, content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for url, article := range l.articles {
		if article.ID == id {
			article.FullContent = content
			l.articles[url] = article
			return nil
		}
	}
	return fmt.Errorf("article %d not found", id)
}
