package newsdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"contentscout/internal/config"
	"contentscout/internal/domain"
	"contentscout/internal/ports"
	"contentscout/internal/timeparse"
)

const summaryMaxRunes = 500

var _ ports.Aggregator = (*Client)(nil)

// Client performs the single bounded call per scan cycle against the
// aggregation API. The upstream has no cursor, so a persisted seen-URL set
// prevents reprocessing items it returns again.
type Client struct {
	apiKey     string
	baseURL    string
	query      string
	language   string
	countries  []string
	maxResults int
	client     *http.Client
	cache      *seenCache
	logger     *slog.Logger
}

// NewClient builds a client from configuration; pass nil for a default
// 30s-timeout HTTP client.
func NewClient(cfg config.NewsDataConfig, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 || maxResults > 10 {
		maxResults = 10
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		query:      cfg.Query,
		language:   cfg.Language,
		countries:  cfg.Countries,
		maxResults: maxResults,
		client:     client,
		cache:      newSeenCache(cfg.CachePath),
		logger:     logger,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// FetchLatest issues one combined-query GET, deduplicates against the seen-URL
// set, and normalizes the results. Quota and transport errors yield an empty
// list; they are logged and never raised into the orchestrator.
func (c *Client) FetchLatest(ctx context.Context) []domain.CandidateItem {
	if !c.Configured() {
		c.debug("aggregation API key not configured, skipping")
		return nil
	}

	resp, err := c.request(ctx)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("aggregation API fetch failed", "error", err)
		}
		return nil
	}

	items := c.normalize(resp)

	for _, item := range items {
		c.cache.add(item.URL)
	}
	if err := c.cache.save(); err != nil && c.logger != nil {
		c.logger.Warn("could not persist seen-URL cache", "error", err)
	}

	c.debug("aggregation API fetch complete", "items", len(items))
	return items
}

type apiResponse struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Results []apiItem `json:"results"`
}

type apiItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Content     string `json:"content"`
	PubDate     string `json:"pubDate"`
	SourceID    string `json:"source_id"`
}

func (c *Client) request(ctx context.Context) (*apiResponse, error) {
	params := url.Values{}
	params.Set("q", c.query)
	params.Set("language", c.language)
	params.Set("size", strconv.Itoa(c.maxResults))
	params.Set("apikey", c.apiKey)
	if len(c.countries) > 0 {
		params.Set("country", strings.Join(c.countries, ","))
	}

	endpoint := c.baseURL + "/news?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.ErrQuotaExceeded
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aggregation API returned %s", resp.Status)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if payload.Status != "success" {
		return nil, fmt.Errorf("aggregation API error: %s", payload.Message)
	}

	return &payload, nil
}

func (c *Client) normalize(resp *apiResponse) []domain.CandidateItem {
	items := make([]domain.CandidateItem, 0, len(resp.Results))

	for _, raw := range resp.Results {
		if len(items) >= c.maxResults {
			break
		}

		title := strings.TrimSpace(raw.Title)
		if title == "" || raw.Link == "" {
			continue
		}
		if c.cache.seen(raw.Link) {
			continue
		}

		summary := raw.Description
		if summary == "" {
			summary = truncate(raw.Content, summaryMaxRunes)
		}

		sourceName := raw.SourceID
		if sourceName == "" {
			sourceName = "NewsData"
		}

		items = append(items, domain.CandidateItem{
			Title:       title,
			URL:         raw.Link,
			Summary:     summary,
			PublishedAt: timeparse.Parse(raw.PubDate),
			SourceName:  sourceName,
		})
	}

	return items
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
