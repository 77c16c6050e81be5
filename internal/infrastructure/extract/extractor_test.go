package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestExtractTitleJSONLDWins(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><head>
		<script type="application/ld+json">{"@type":"NewsArticle","headline":"Structured Headline"}</script>
		<meta property="og:title" content="Meta Headline">
		<title>Page Title | Site</title>
	</head><body><h1>Body Headline</h1></body></html>`)

	if got := extractTitle(doc); got != "Structured Headline" {
		t.Fatalf("title = %q", got)
	}
}

func TestExtractTitleJSONLDArray(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><head>
		<script type="application/ld+json">[{"@type":"NewsArticle","name":"Array Headline"}]</script>
	</head><body></body></html>`)

	if got := extractTitle(doc); got != "Array Headline" {
		t.Fatalf("title = %q", got)
	}
}

func TestExtractTitleMetaBeatsHeading(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><head>
		<meta name="twitter:title" content="Tweeted Headline">
	</head><body><h1 class="article-title">Displayed Headline</h1></body></html>`)

	if got := extractTitle(doc); got != "Tweeted Headline" {
		t.Fatalf("title = %q", got)
	}
}

func TestExtractTitleHeadingFallback(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><body><h1 class="entry-title">A Proper Headline</h1></body></html>`)

	if got := extractTitle(doc); got != "A Proper Headline" {
		t.Fatalf("title = %q", got)
	}
}

func TestExtractTitleSkipsShortHeading(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><head><title>Fallback Page Headline | Site</title></head>
		<body><h1>News</h1></body></html>`)

	if got := extractTitle(doc); got != "Fallback Page Headline" {
		t.Fatalf("title = %q", got)
	}
}

func TestPageTitleKeepsLongerSide(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><head><title>SN - Regulator Approves New Interconnector Project</title></head></html>`)

	if got := pageTitle(doc); got != "SN - Regulator Approves New Interconnector Project" {
		// the right side is longer than the left, so the title stays whole
		t.Fatalf("title = %q", got)
	}

	doc = docFrom(t, `<html><head><title>Regulator Approves New Interconnector Project | SN</title></head></html>`)
	if got := pageTitle(doc); got != "Regulator Approves New Interconnector Project" {
		t.Fatalf("title = %q", got)
	}
}

func TestExtractContentFromContainer(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><body>
		<div class="article-body"><p>First paragraph.</p><p>Second paragraph.</p></div>
		<p>Unrelated sidebar text that is definitely long enough to qualify.</p>
	</body></html>`)

	got := extractContent(doc)
	if got != "First paragraph.\n\nSecond paragraph." {
		t.Fatalf("content = %q", got)
	}
}

func TestExtractContentFallbackParagraphs(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><body>
		<p>short</p>
		<p>`+strings.Repeat("long enough paragraph text ", 4)+`</p>
	</body></html>`)

	got := extractContent(doc)
	if got == "" || strings.Contains(got, "short") {
		t.Fatalf("fallback content = %q", got)
	}
}

func TestExtractAuthor(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><head><meta name="author" content="Meta Author"></head>
		<body><span class="byline">Jane Byline</span></body></html>`)

	// element selectors come before the meta fallback
	if got := extractAuthor(doc); got != "Jane Byline" {
		t.Fatalf("author = %q", got)
	}
}

func TestExtractDateFromTimeElement(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><body><time datetime="2025-03-14T09:30:00Z">March 14</time></body></html>`)

	got := extractDate(doc)
	if got == nil {
		t.Fatal("date not extracted")
	}
	want := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("date = %v, want %v", got, want)
	}
}

func TestExtractFullPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<meta property="og:title" content="Pipeline Deal Signed">
			<meta property="article:published_time" content="2025-03-14T09:30:00Z">
		</head><body>
			<nav>Home News About</nav>
			<article><div class="entry-content">
				<p>The consortium signed the agreement on Friday.</p>
				<p>Construction starts next year.</p>
			</div></article>
			<footer>footer junk</footer>
		</body></html>`)
	}))
	t.Cleanup(srv.Close)

	e := NewExtractor(srv.Client(), nil, 1, nil)
	page := e.Extract(context.Background(), srv.URL)

	if page.Err != "" {
		t.Fatalf("unexpected Err: %s", page.Err)
	}
	if page.Title != "Pipeline Deal Signed" {
		t.Fatalf("title = %q", page.Title)
	}
	if !strings.Contains(page.Content, "consortium signed") || strings.Contains(page.Content, "footer junk") {
		t.Fatalf("content = %q", page.Content)
	}
	if page.PublishedAt == nil {
		t.Fatal("publishedAt not extracted")
	}
}

func TestExtractFetchFailureSetsErr(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	e := NewExtractor(srv.Client(), nil, 1, nil)
	page := e.Extract(context.Background(), srv.URL)

	if page.Err == "" {
		t.Fatal("expected Err to be set for 404")
	}
	if page.Content != "" || page.Title != "" {
		t.Fatalf("fields populated despite failure: %+v", page)
	}
}

func TestExtractRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `<html><head><title>Recovered Article Headline</title></head>
			<body><p>`+strings.Repeat("body text ", 10)+`</p></body></html>`)
	}))
	t.Cleanup(srv.Close)

	e := NewExtractor(srv.Client(), nil, 3, nil)
	e.policy.BaseDelay = time.Millisecond
	page := e.Extract(context.Background(), srv.URL)

	if page.Err != "" {
		t.Fatalf("expected recovery after retries, got %s", page.Err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if page.Title != "Recovered Article Headline" {
		t.Fatalf("title = %q", page.Title)
	}
}
