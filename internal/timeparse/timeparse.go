// Package timeparse resolves publication dates against a fixed ordered list of
// layouts; the first match wins. Unknown formats yield nil rather than an
// error, since a missing date never blocks admission.
package timeparse

import (
	"strings"
	"time"
)

var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 GMT",
	"2 Jan 2006",
	"January 2, 2006",
}

// Parse tries each known layout in order.
func Parse(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}

	return nil
}
