// Package cache implements the offline response cache: dated generations
// of precached shell assets plus opportunistically cached upstream GETs.
package cache

import (
	"strings"
	"time"
)

// DefaultPrefix is the generation name prefix used when none is configured.
const DefaultPrefix = "smart-assistant-v1"

const dateLayout = "2006-01-02"

// GenerationName returns the generation name for the given day: the fixed
// prefix plus the calendar date, day granularity. Two installs on the same
// date produce the same name.
func GenerationName(prefix string, day time.Time) string {
	return prefix + "-" + day.UTC().Format(dateLayout)
}

// generationDate extracts the embedded date from a generation name.
// Returns false if the name does not carry the given prefix.
func generationDate(prefix, name string) (string, bool) {
	return strings.CutPrefix(name, prefix+"-")
}

// stale reports whether name is a prefix-managed generation whose embedded
// date is not today.
func stale(prefix, name string, today time.Time) bool {
	date, ok := generationDate(prefix, name)
	return ok && date != today.UTC().Format(dateLayout)
}
