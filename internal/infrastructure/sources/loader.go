// Package sources loads the curated source catalog from YAML and seeds the
// ledger with it.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"contentscout/internal/domain"
	"contentscout/internal/ports"
)

type fileFormat struct {
	Sources struct {
		Primary   []entry `yaml:"primary"`
		Secondary []entry `yaml:"secondary"`
		Tertiary  []entry `yaml:"tertiary"`
	} `yaml:"sources"`
}

type entry struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	RSSURL   string `yaml:"rss_url"`
	Category string `yaml:"category"`
	Priority int    `yaml:"priority"`
}

// Load parses the YAML catalog at path. Entries missing a name or URL are
// skipped with a warning; tier membership supplies the default priority.
func Load(path string, logger *slog.Logger) ([]domain.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources %s: %w", path, err)
	}

	var file fileFormat
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse sources %s: %w", path, err)
	}

	var out []domain.Source
	tiers := []struct {
		entries  []entry
		priority int
	}{
		{file.Sources.Primary, 1},
		{file.Sources.Secondary, 2},
		{file.Sources.Tertiary, 3},
	}
	for _, tier := range tiers {
		for _, e := range tier.entries {
			if e.Name == "" || e.URL == "" {
				if logger != nil {
					logger.Warn("skipping malformed source entry", "name", e.Name, "url", e.URL)
				}
				continue
			}
			priority := e.Priority
			if priority == 0 {
				priority = tier.priority
			}
			out = append(out, domain.Source{
				Name:     e.Name,
				URL:      e.URL,
				FeedURL:  e.RSSURL,
				Category: e.Category,
				Priority: priority,
				Active:   true,
			})
		}
	}

	return out, nil
}

// Apply registers every source with the ledger. Already-known URLs are left
// untouched; the count of newly added sources is returned.
func Apply(ctx context.Context, ledger ports.Ledger, sources []domain.Source) (int, error) {
	added := 0
	for _, src := range sources {
		id, err := ledger.AddSource(ctx, src)
		if err != nil {
			return added, fmt.Errorf("add source %s: %w", src.Name, err)
		}
		if id != 0 {
			added++
		}
	}
	return added, nil
}
