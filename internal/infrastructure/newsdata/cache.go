package newsdata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// seenCacheCap bounds the persisted set to the most recent entries.
const seenCacheCap = 1000

type cacheData struct {
	SeenURLs  []string `json:"seen_urls"`
	LastFetch string   `json:"last_fetch"`
}

// seenCache is the cross-cycle URL memory for the cursorless upstream.
// An empty path keeps the cache in memory only.
type seenCache struct {
	path string
	mu   sync.Mutex
	data cacheData
	set  map[string]struct{}
}

func newSeenCache(path string) *seenCache {
	c := &seenCache{path: path, set: make(map[string]struct{})}

	if path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			// A corrupt cache file just means starting over.
			_ = json.Unmarshal(raw, &c.data)
		}
	}
	for _, u := range c.data.SeenURLs {
		c.set[u] = struct{}{}
	}

	return c
}

func (c *seenCache) seen(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.set[url]
	return ok
}

func (c *seenCache) add(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.set[url]; ok {
		return
	}
	c.set[url] = struct{}{}
	c.data.SeenURLs = append(c.data.SeenURLs, url)

	if n := len(c.data.SeenURLs); n > seenCacheCap {
		dropped := c.data.SeenURLs[:n-seenCacheCap]
		for _, old := range dropped {
			delete(c.set, old)
		}
		c.data.SeenURLs = append([]string(nil), c.data.SeenURLs[n-seenCacheCap:]...)
	}
}

func (c *seenCache) save() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	c.data.LastFetch = time.Now().UTC().Format(time.RFC3339)
	blob, err := json.MarshalIndent(c.data, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, blob, 0o600)
}
