package warehouse

import (
	"time"

	"github.com/roach88/retailkit/internal/config"
)

// Dates are stored as ISO calendar days and timestamps as RFC 3339 in UTC,
// so TEXT comparison orders them chronologically.

func formatDate(t time.Time) string {
	return t.UTC().Format(config.DateLayout)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// nullDate maps a missing date to SQL NULL.
func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}
