package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"contentscout/internal/domain"
	"contentscout/internal/ports"
	"contentscout/internal/retry"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    url TEXT UNIQUE NOT NULL,
    feed_url TEXT,
    category TEXT,
    priority INTEGER DEFAULT 2,
    last_checked DATETIME,
    is_active INTEGER DEFAULT 1,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id INTEGER,
    source_name TEXT,
    title TEXT NOT NULL,
    url TEXT UNIQUE NOT NULL,
    summary TEXT,
    full_content TEXT,
    published_at DATETIME,
    scraped_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (source_id) REFERENCES sources(id)
);

CREATE TABLE IF NOT EXISTS scan_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME,
    completed_at DATETIME,
    sources_scanned INTEGER DEFAULT 0,
    articles_found INTEGER DEFAULT 0,
    new_articles INTEGER DEFAULT 0,
    duplicates_skipped INTEGER DEFAULT 0,
    status TEXT DEFAULT 'running',
    error_message TEXT
);

CREATE TABLE IF NOT EXISTS sequence_counters (
    scope_key TEXT NOT NULL,
    value INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (scope_key, value)
);

CREATE INDEX IF NOT EXISTS idx_articles_scraped ON articles(scraped_at);
CREATE INDEX IF NOT EXISTS idx_sources_active ON sources(is_active);
`

// errorSeparator joins a scan's per-source errors into one column.
const errorSeparator = "; "

var _ ports.Ledger = (*SQLiteLedger)(nil)

// SQLiteLedger is the durable admission store. URL uniqueness and sequence
// contiguity are enforced by the database's unique constraints, not by
// application-level locking.
type SQLiteLedger struct {
	db          *sql.DB
	minTitleLen int
	seqPolicy   retry.Policy
	logger      *slog.Logger
}

// OpenSQLite opens (and migrates) the ledger database at path, creating parent
// directories as needed.
func OpenSQLite(path string, minTitleLen int, logger *slog.Logger) (*SQLiteLedger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", domain.ErrLedgerUnavailable, dir, err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_time_format=sqlite&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrLedgerUnavailable, path, err)
	}

	// sqlite permits one writer; a single pooled connection avoids busy errors
	// under concurrent admits.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate schema: %v", domain.ErrLedgerUnavailable, err)
	}

	if minTitleLen <= 0 {
		minTitleLen = 5
	}

	return &SQLiteLedger{
		db:          db,
		minTitleLen: minTitleLen,
		seqPolicy: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   5 * time.Millisecond,
			Multiplier:  2,
			Retryable:   isUniqueConflict,
		},
		logger: logger,
	}, nil
}

// Close releases the underlying database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// AddSource inserts a source unless its canonical URL is already present, in
// which case it reports id 0 without error.
func (l *SQLiteLedger) AddSource(ctx context.Context, src domain.Source) (int64, error) {
	query, args, err := sq.Insert("sources").
		Columns("name", "url", "feed_url", "category", "priority").
		Values(src.Name, src.URL, src.FeedURL, src.Category, src.Priority).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueConflict(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("insert source: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("source id: %w", err)
	}
	return id, nil
}

// ActiveSources lists active sources, optionally filtered by priority tier
// (0 means all tiers).
func (l *SQLiteLedger) ActiveSources(ctx context.Context, priority int) ([]domain.Source, error) {
	builder := sq.Select("id", "name", "url", "feed_url", "category", "priority", "last_checked").
		From("sources").
		Where(sq.Eq{"is_active": 1}).
		OrderBy("priority", "name")
	if priority > 0 {
		builder = builder.Where(sq.Eq{"priority": priority})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var (
			src         domain.Source
			feedURL     sql.NullString
			category    sql.NullString
			lastChecked sql.NullTime
		)
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &feedURL, &category, &src.Priority, &lastChecked); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.FeedURL = feedURL.String
		src.Category = category.String
		if lastChecked.Valid {
			t := lastChecked.Time
			src.LastChecked = &t
		}
		src.Active = true
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}

	return sources, nil
}

// TouchSource stamps the source's last-checked time.
func (l *SQLiteLedger) TouchSource(ctx context.Context, id int64) error {
	query, args, err := sq.Update("sources").
		Set("last_checked", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("touch source %d: %w", id, err)
	}
	return nil
}

// Exists reports whether an article with this URL was ever admitted.
func (l *SQLiteLedger) Exists(ctx context.Context, url string) (bool, error) {
	query, args, err := sq.Select("1").From("articles").Where(sq.Eq{"url": url}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}

	var one int
	err = l.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query url: %w", err)
	}
	return true, nil
}

// Admit validates and durably records the article. Two concurrent admits for
// the same URL yield exactly one Admitted; the loser observes the unique
// constraint and gets DuplicateURL.
func (l *SQLiteLedger) Admit(ctx context.Context, article domain.Article) (domain.AdmitResult, error) {
	title := strings.TrimSpace(article.Title)
	if len(title) < l.minTitleLen {
		l.debug("title rejected", "title", title, "url", article.URL)
		return domain.AdmitResult{Status: domain.ValidationFailed}, nil
	}

	query, args, err := sq.Insert("articles").
		Columns("source_id", "source_name", "title", "url", "summary", "published_at").
		Values(article.SourceID, article.SourceName, title, article.URL, article.Summary, article.PublishedAt).
		ToSql()
	if err != nil {
		return domain.AdmitResult{}, fmt.Errorf("build insert: %w", err)
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueConflict(err) {
			return domain.AdmitResult{Status: domain.DuplicateURL}, nil
		}
		return domain.AdmitResult{}, fmt.Errorf("%w: insert article: %v", domain.ErrLedgerUnavailable, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.AdmitResult{}, fmt.Errorf("article id: %w", err)
	}

	return domain.AdmitResult{Status: domain.Admitted, ID: id}, nil
}

// RecentTitles returns admitted titles scraped within the trailing window.
func (l *SQLiteLedger) RecentTitles(ctx context.Context, days int) ([]string, error) {
	query, args, err := sq.Select("title").
		From("articles").
		Where(sq.Expr("scraped_at >= datetime('now', ?)", fmt.Sprintf("-%d days", days))).
		Where(sq.NotEq{"title": ""}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}

	return titles, nil
}

// NextSequence hands out the next integer in scopeKey's contiguous range. The
// read-max-insert is a single atomic statement; a lost race violates the
// unique constraint and is retried up to the policy's bound.
func (l *SQLiteLedger) NextSequence(ctx context.Context, scopeKey string) (int, error) {
	const insert = `
INSERT INTO sequence_counters (scope_key, value)
VALUES (?, (SELECT COALESCE(MAX(value), 0) + 1 FROM sequence_counters WHERE scope_key = ?))
RETURNING value`

	var value int
	err := l.seqPolicy.Do(ctx, func() error {
		return l.db.QueryRowContext(ctx, insert, scopeKey, scopeKey).Scan(&value)
	})
	if err != nil {
		if isUniqueConflict(err) {
			return 0, fmt.Errorf("%w: scope %s", domain.ErrSequenceConflictExhausted, scopeKey)
		}
		return 0, fmt.Errorf("next sequence for %s: %w", scopeKey, err)
	}

	return value, nil
}

// RecordScanStart opens a running scan row.
func (l *SQLiteLedger) RecordScanStart(ctx context.Context) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO scan_history (started_at, status) VALUES (CURRENT_TIMESTAMP, ?)`,
		string(domain.ScanRunning))
	if err != nil {
		return 0, fmt.Errorf("%w: start scan: %v", domain.ErrLedgerUnavailable, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("scan id: %w", err)
	}
	return id, nil
}

// RecordScanComplete finalizes a scan exactly once; a second call for the
// same id is an error.
func (l *SQLiteLedger) RecordScanComplete(ctx context.Context, id int64, rec domain.ScanRecord) error {
	query, args, err := sq.Update("scan_history").
		Set("completed_at", sq.Expr("CURRENT_TIMESTAMP")).
		Set("sources_scanned", rec.SourcesScanned).
		Set("articles_found", rec.ArticlesFound).
		Set("new_articles", rec.NewArticles).
		Set("duplicates_skipped", rec.DuplicatesSkipped).
		Set("status", string(rec.Status)).
		Set("error_message", strings.Join(rec.Errors, errorSeparator)).
		Where(sq.Eq{"id": id, "status": string(domain.ScanRunning)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("complete scan %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete scan %d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("scan %d is not running", id)
	}
	return nil
}

// LastScan returns the most recent scan record, or nil when none exist.
func (l *SQLiteLedger) LastScan(ctx context.Context) (*domain.ScanRecord, error) {
	query, args, err := sq.Select("id", "started_at", "completed_at", "sources_scanned",
		"articles_found", "new_articles", "duplicates_skipped", "status", "error_message").
		From("scan_history").
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var (
		rec       domain.ScanRecord
		started   sql.NullTime
		completed sql.NullTime
		status    string
		errMsg    sql.NullString
	)
	err = l.db.QueryRowContext(ctx, query, args...).Scan(&rec.ID, &started, &completed,
		&rec.SourcesScanned, &rec.ArticlesFound, &rec.NewArticles, &rec.DuplicatesSkipped,
		&status, &errMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last scan: %w", err)
	}

	if started.Valid {
		rec.StartedAt = started.Time
	}
	if completed.Valid {
		t := completed.Time
		rec.CompletedAt = &t
	}
	rec.Status = domain.ScanStatus(status)
	if errMsg.Valid && errMsg.String != "" {
		rec.Errors = strings.Split(errMsg.String, errorSeparator)
	}

	return &rec, nil
}

// Article loads one admitted article by id.
func (l *SQLiteLedger) Article(ctx context.Context, id int64) (domain.Article, error) {
	query, args, err := sq.Select("id", "source_id", "source_name", "title", "url",
		"summary", "full_content", "published_at", "scraped_at").
		From("articles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build select: %w", err)
	}

	var (
		article     domain.Article
		sourceID    sql.NullInt64
		sourceName  sql.NullString
		summary     sql.NullString
		fullContent sql.NullString
		published   sql.NullTime
		scraped     sql.NullTime
	)
	err = l.db.QueryRowContext(ctx, query, args...).Scan(&article.ID, &sourceID, &sourceName,
		&article.Title, &article.URL, &summary, &fullContent, &published, &scraped)
	if err != nil {
		return domain.Article{}, fmt.Errorf("query article %d: %w", id, err)
	}

	if sourceID.Valid {
		v := sourceID.Int64
		article.SourceID = &v
	}
	article.SourceName = sourceName.String
	article.Summary = summary.String
	article.FullContent = fullContent.String
	if published.Valid {
		t := published.Time
		article.PublishedAt = &t
	}
	if scraped.Valid {
		article.ScrapedAt = scraped.Time
	}

	return article, nil
}

// SetFullContent stores the out-of-band extracted body for an article.
func (l *SQLiteLedger) SetFullContent(ctx context.Context, id int64, content string) error {
	query, args, err := sq.Update("articles").
		Set("full_content", content).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set full content %d: %w", id, err)
	}
	return nil
}

func isUniqueConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (l *SQLiteLedger) debug(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}
