package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"contentscout/internal/domain"
	"contentscout/internal/ports"
	"contentscout/internal/ratelimit"
	"contentscout/internal/retry"
	"contentscout/internal/timeparse"
	"contentscout/internal/useragent"
)

var metaTitleSelectors = []string{
	`meta[property="og:title"]`,
	`meta[name="twitter:title"]`,
	`meta[property="article:title"]`,
	`meta[name="title"]`,
	`meta[itemprop="headline"]`,
	`meta[name="sailthru.title"]`,
	`meta[name="parsely-title"]`,
}

var headingSelectors = []string{
	"h1.article-title", "h1.post-title", "h1.entry-title",
	"h1.headline", "h1.story-title", "h1.news-title",
	"article h1", ".article h1", ".post h1",
	".article-header h1", ".post-header h1", ".entry-header h1",
	`h1[itemprop="headline"]`, `[itemprop="headline"]`,
	".entry-title", ".post-title",
	"main h1", "#content h1", "h1",
}

var contentSelectors = []string{
	"article .content", "article .entry-content", "article .post-content",
	".article-body", ".article-content", ".post-body", ".entry-content",
	`[itemprop="articleBody"]`, ".story-content", ".news-content",
	"article",
}

var authorSelectors = []string{
	`[rel="author"]`, ".author-name", ".byline", ".author",
	`[itemprop="author"]`, `meta[name="author"]`,
}

var dateSelectors = []string{
	"time[datetime]", `[itemprop="datePublished"]`,
	`meta[property="article:published_time"]`,
	".publish-date", ".post-date", ".article-date",
}

var titleSeparators = []string{" | ", " - ", " — ", " · ", " :: "}

const maxFallbackParagraphs = 20

var _ ports.Extractor = (*Extractor)(nil)

// Extractor performs on-demand full-page fetches with cascading heuristics for
// title, body, author, and date. It is used outside the bulk scan loop, only
// when a full article body is requested.
type Extractor struct {
	client  *http.Client
	limiter *ratelimit.HostLimiter
	agents  *useragent.Rotator
	policy  retry.Policy
	logger  *slog.Logger
}

// NewExtractor wires the shared HTTP client and per-host limiter.
func NewExtractor(client *http.Client, limiter *ratelimit.HostLimiter, maxRetries int, logger *slog.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Extractor{
		client:  client,
		limiter: limiter,
		agents:  useragent.NewRotator(nil),
		policy: retry.Policy{
			MaxAttempts: maxRetries,
			BaseDelay:   time.Second,
			Multiplier:  2,
		},
		logger: logger,
	}
}

// Extract fetches url and resolves page fields best-effort. Failures land in
// the Err field; the caller is never failed.
func (e *Extractor) Extract(ctx context.Context, url string) domain.PageContent {
	page := domain.PageContent{URL: url}

	doc, err := e.fetchDocument(ctx, url)
	if err != nil {
		page.Err = err.Error()
		return page
	}

	// Title first: container stripping below would drop headings inside
	// headers.
	page.Title = extractTitle(doc)

	doc.Find("script, style, nav, header, footer, aside, form").Remove()

	page.Content = extractContent(doc)
	page.Author = extractAuthor(doc)
	page.PublishedAt = extractDate(doc)

	return page
}

func (e *Extractor) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	var doc *goquery.Document

	err := e.policy.Do(ctx, func() error {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx, url); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", e.agents.Next())

		resp, err := e.client.Do(req)
		if err != nil {
			return fmt.Errorf("request page: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("page returned %s", resp.Status)
		}

		doc, err = goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return fmt.Errorf("parse page: %w", err)
		}
		return nil
	})
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("page fetch failed", "url", url, "error", err)
		}
		return nil, err
	}

	return doc, nil
}

// extractTitle walks the cascade: JSON-LD headline, meta tags, scoped
// headings, the <title> element with suffix stripping, then any significant
// heading.
func extractTitle(doc *goquery.Document) string {
	if title := jsonLDHeadline(doc); title != "" {
		return title
	}

	for _, selector := range metaTitleSelectors {
		if title := strings.TrimSpace(doc.Find(selector).First().AttrOr("content", "")); title != "" {
			return title
		}
	}

	for _, selector := range headingSelectors {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if len(title) > 5 {
			return title
		}
	}

	if title := pageTitle(doc); title != "" {
		return title
	}

	for _, tag := range []string{"h1", "h2"} {
		title := strings.TrimSpace(doc.Find(tag).First().Text())
		if len(title) > 10 {
			return title
		}
	}

	return ""
}

func jsonLDHeadline(doc *goquery.Document) string {
	var title string

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}

		if list, ok := data.([]any); ok {
			if len(list) == 0 {
				return true
			}
			data = list[0]
		}

		obj, ok := data.(map[string]any)
		if !ok {
			return true
		}

		for _, key := range []string{"headline", "name"} {
			if value, ok := obj[key].(string); ok && strings.TrimSpace(value) != "" {
				title = strings.TrimSpace(value)
				return false
			}
		}
		return true
	})

	return title
}

// pageTitle strips a trailing site-name suffix, keeping the longer side of the
// first separator found.
func pageTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return ""
	}

	for _, sep := range titleSeparators {
		if !strings.Contains(title, sep) {
			continue
		}
		parts := strings.Split(title, sep)
		if len(parts[0]) > len(parts[len(parts)-1]) {
			title = strings.TrimSpace(parts[0])
		}
		break
	}

	return title
}

func extractContent(doc *goquery.Document) string {
	for _, selector := range contentSelectors {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		if text := joinParagraphs(container.Find("p"), 0, 0); text != "" {
			return text
		}
	}

	// No recognizable container; fall back to the longest paragraphs anywhere.
	return joinParagraphs(doc.Find("p"), 50, maxFallbackParagraphs)
}

func joinParagraphs(sel *goquery.Selection, minLen, limit int) string {
	var paragraphs []string

	sel.EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if len(text) > minLen {
			paragraphs = append(paragraphs, text)
		}
		return limit <= 0 || len(paragraphs) < limit
	})

	return strings.Join(paragraphs, "\n\n")
}

func extractAuthor(doc *goquery.Document) string {
	for _, selector := range authorSelectors {
		elem := doc.Find(selector).First()
		if elem.Length() == 0 {
			continue
		}

		var author string
		if strings.HasPrefix(selector, "meta") {
			author = elem.AttrOr("content", "")
		} else {
			author = elem.Text()
		}
		if author = strings.TrimSpace(author); author != "" {
			return author
		}
	}

	return ""
}

func extractDate(doc *goquery.Document) *time.Time {
	for _, selector := range dateSelectors {
		elem := doc.Find(selector).First()
		if elem.Length() == 0 {
			continue
		}

		value := elem.AttrOr("datetime", "")
		if value == "" {
			value = elem.AttrOr("content", "")
		}
		if value == "" {
			value = strings.TrimSpace(elem.Text())
		}

		if t := timeparse.Parse(value); t != nil {
			return t
		}
	}

	return nil
}
