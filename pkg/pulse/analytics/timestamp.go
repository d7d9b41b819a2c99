package analytics

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParseTimestamp leniently parses a comment timestamp. Strings without a zone
// are read as UTC; a parsed offset is kept so Hour reports local wall time.
// Empty or unparseable input reports false.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
