package domain

import "time"

// Source is a configured news origin, identified by its canonical site URL.
type Source struct {
	ID          int64
	Name        string
	URL         string
	FeedURL     string
	Category    string
	Priority    int
	LastChecked *time.Time
	Active      bool
}

// CandidateItem is a normalized feed or API entry that has not been admitted yet.
type CandidateItem struct {
	Title       string
	URL         string
	Summary     string
	PublishedAt *time.Time
	SourceName  string
}

// Article is an admitted item. URL is unique for the lifetime of the ledger.
type Article struct {
	ID          int64
	SourceID    *int64
	Title       string
	URL         string
	Summary     string
	FullContent string
	PublishedAt *time.Time
	ScrapedAt   time.Time
	SourceName  string
	// SeqNo is the per-day, per-category admission number assigned by the ledger.
	SeqNo int
}

// AdmitStatus enumerates the possible outcomes of a ledger admission.
type AdmitStatus int

const (
	Admitted AdmitStatus = iota
	DuplicateURL
	ValidationFailed
)

func (s AdmitStatus) String() string {
	switch s {
	case Admitted:
		return "admitted"
	case DuplicateURL:
		return "duplicate_url"
	case ValidationFailed:
		return "validation_failed"
	default:
		return "unknown"
	}
}

// AdmitResult carries the admission outcome; ID is set only when Status is Admitted.
type AdmitResult struct {
	Status AdmitStatus
	ID     int64
}

// ScanStatus is the lifecycle state of a scan cycle.
type ScanStatus string

const (
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanPartial   ScanStatus = "partial"
)

// ScanRecord is the persisted bookkeeping row for one scan cycle.
type ScanRecord struct {
	ID                int64
	StartedAt         time.Time
	CompletedAt       *time.Time
	SourcesScanned    int
	ArticlesFound     int
	NewArticles       int
	DuplicatesSkipped int
	Status            ScanStatus
	Errors            []string
}

// ScanSummary is what one orchestrated cycle hands to downstream consumers.
type ScanSummary struct {
	ScanID            int64
	SourcesScanned    int
	ArticlesFound     int
	NewArticles       int
	DuplicatesSkipped int
	Errors            []string
	Status            ScanStatus
	Articles          []Article
}

// PageContent is the best-effort result of an out-of-band full-page extraction.
// Err records a fetch failure instead of failing the caller.
type PageContent struct {
	URL         string
	Title       string
	Content     string
	Author      string
	PublishedAt *time.Time
	Err         string
}
