package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"contentscout/internal/domain"
	"contentscout/internal/ports"
	"contentscout/internal/timeparse"
	"contentscout/internal/useragent"
)

// firstSentence captures text up to the first sentence terminator.
var firstSentence = regexp.MustCompile(`^(.+?[.!?])`)

const recoveredTitleMax = 100

var _ ports.FeedFetcher = (*Fetcher)(nil)

// Fetcher retrieves one source's feed and normalizes its entries into
// candidate items. Malformed payloads degrade to whatever entries are
// recoverable; request failures surface as a per-source error.
type Fetcher struct {
	client   *http.Client
	parser   *gofeed.Parser
	agents   *useragent.Rotator
	maxItems int
	logger   *slog.Logger
}

// NewFetcher wires an HTTP client; pass nil for a default 30s-timeout client.
func NewFetcher(client *http.Client, maxItems int, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxItems <= 0 {
		maxItems = 10
	}
	return &Fetcher{
		client:   client,
		parser:   gofeed.NewParser(),
		agents:   useragent.NewRotator(nil),
		maxItems: maxItems,
		logger:   logger,
	}
}

// Fetch downloads and parses the source's feed, capped at maxItems entries.
func (f *Fetcher) Fetch(ctx context.Context, src domain.Source) ([]domain.CandidateItem, error) {
	if src.FeedURL == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.agents.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	parsed, err := f.parser.Parse(bytes.NewReader(body))
	if err != nil {
		// Unrecoverable syntax degrades to an empty result, not a failure.
		f.debug("feed parse degraded", "source", src.Name, "error", err)
		return nil, nil
	}

	items := make([]domain.CandidateItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if len(items) >= f.maxItems {
			break
		}
		if candidate, ok := normalize(entry, src.Name); ok {
			items = append(items, candidate)
		}
	}

	return items, nil
}

// normalize maps one raw entry onto a candidate; entries lacking both a title
// and a link are dropped.
func normalize(entry *gofeed.Item, sourceName string) (domain.CandidateItem, bool) {
	summary := entry.Description
	if summary == "" {
		summary = entry.Content
	}
	summary = stripHTML(summary)

	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = recoverTitle(summary)
	}

	if title == "" || entry.Link == "" {
		return domain.CandidateItem{}, false
	}

	return domain.CandidateItem{
		Title:       title,
		URL:         entry.Link,
		Summary:     summary,
		PublishedAt: publishedAt(entry),
		SourceName:  sourceName,
	}, true
}

// recoverTitle derives a title from the summary: the first sentence, or the
// first 100 characters with a truncation marker.
func recoverTitle(summary string) string {
	if summary == "" {
		return ""
	}

	if m := firstSentence.FindStringSubmatch(summary); m != nil {
		return strings.TrimSpace(m[1])
	}

	runes := []rune(summary)
	if len(runes) <= recoveredTitleMax {
		return strings.TrimSpace(summary)
	}
	return strings.TrimSpace(string(runes[:recoveredTitleMax])) + "..."
}

func publishedAt(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed
	}
	if t := timeparse.Parse(entry.Published); t != nil {
		return t
	}
	return timeparse.Parse(entry.Updated)
}

// stripHTML flattens markup into collapsed plain text.
func stripHTML(raw string) string {
	if raw == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
