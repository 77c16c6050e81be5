package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agnivade/levenshtein"
)

// TitleSource yields admitted titles within a trailing window of days.
type TitleSource interface {
	RecentTitles(ctx context.Context, days int) ([]string, error)
}

// Detector flags candidate titles that fuzzily match a recently admitted one.
// Threshold and window are configurable; 0.85 over 7 days are defaults, not
// proven business rules.
type Detector struct {
	titles     TitleSource
	threshold  float64
	windowDays int
	logger     *slog.Logger
}

// New builds a detector over the given title source.
func New(titles TitleSource, threshold float64, windowDays int, logger *slog.Logger) *Detector {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Detector{
		titles:     titles,
		threshold:  threshold,
		windowDays: windowDays,
		logger:     logger,
	}
}

// IsDuplicate reports whether title is similar enough to any admitted title
// within the window.
func (d *Detector) IsDuplicate(ctx context.Context, title string) (bool, error) {
	candidate := strings.ToLower(strings.TrimSpace(title))
	if candidate == "" {
		return false, nil
	}

	recent, err := d.titles.RecentTitles(ctx, d.windowDays)
	if err != nil {
		return false, fmt.Errorf("load recent titles: %w", err)
	}

	for _, existing := range recent {
		existing = strings.ToLower(strings.TrimSpace(existing))
		if existing == "" {
			continue
		}
		if ratio := similarity(candidate, existing); ratio > d.threshold {
			if d.logger != nil {
				d.logger.Debug("duplicate title detected", "title", title, "ratio", ratio)
			}
			return true, nil
		}
	}

	return false, nil
}

// similarity maps edit distance onto a 0-1 scale: identical strings score 1.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
