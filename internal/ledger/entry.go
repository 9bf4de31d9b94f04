package ledger

import (
	"strings"
	"time"
)

var entryDateLayouts = []string{time.RFC3339, TimestampLayout, time.DateOnly}

// ParseEntryDate parses the date of a manually entered transaction in loc.
// Blank input means midnight today. Sub-second precision is dropped to
// match the Date column.
func ParseEntryDate(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		y, m, d := now.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	var lastErr error
	for _, layout := range entryDateLayouts {
		ts, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return ts.Truncate(time.Second), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
