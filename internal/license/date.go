package license

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format persisted in the store and sent on
// the wire.
const DateLayout = "2006-01-02"

// ParseDate reads a YYYY-MM-DD value as midnight UTC so that comparisons and
// re-formatting never shift the calendar day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateOf drops the time of day, keeping the calendar date as seen in t's own
// location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}
