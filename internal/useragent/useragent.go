// Package useragent rotates a fixed set of browser identities across outbound
// requests so crawls do not present a single client fingerprint.
package useragent

import "sync/atomic"

var defaultAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
}

// Rotator hands out user-agent strings round-robin. Safe for concurrent use.
type Rotator struct {
	agents []string
	index  atomic.Uint64
}

// NewRotator builds a rotator; an empty list falls back to the default set.
func NewRotator(agents []string) *Rotator {
	if len(agents) == 0 {
		agents = defaultAgents
	}
	return &Rotator{agents: agents}
}

// Next returns the next identity in rotation.
func (r *Rotator) Next() string {
	n := r.index.Add(1) - 1
	return r.agents[n%uint64(len(r.agents))]
}
