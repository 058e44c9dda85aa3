package models

import (
	"fmt"
	"time"
)

// TimestampLayout is the fixed format used for run completion timestamps.
const TimestampLayout = "2006-01-02 15:04 UTC"

// FormatInterval renders an interval in the largest whole unit: minutes
// under an hour, hours under a day, otherwise days.
func FormatInterval(seconds int) string {
	switch {
	case seconds < 3600:
		return fmt.Sprintf("%d min", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%d hr", seconds/3600)
	default:
		d := seconds / 86400
		if d > 1 {
			return fmt.Sprintf("%d days", d)
		}
		return "1 day"
	}
}

// FormatTime renders a nullable timestamp for display, an em-dash for nil.
func FormatTime(t *time.Time) string {
	if t == nil {
		return "—"
	}
	return t.Format("Jan 02 15:04")
}

// FormatCountdown renders the remaining duration until a due time as
// "3m 05s", or just seconds under a minute. Negative durations clamp to 0s.
func FormatCountdown(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	m, s := secs/60, secs%60
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
