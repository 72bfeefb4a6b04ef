package view

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are the formats the viewer service uses. Layouts without a zone
// are read as local time. Fractional seconds are accepted by all of them.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// FormatDuration renders seconds as "1h 1m" or "5m". Non-positive values give "0m".
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "0m"
	}
	total := int64(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// FormatDateTime renders a service timestamp relative to the current time.
func FormatDateTime(ts string) string {
	return FormatDateTimeAt(ts, time.Now())
}

// FormatDateTimeAt renders ts relative to now: "just now" within a minute,
// "N min ago" within an hour, "N h ago" within a day, else "1/2 15:04" in local time.
// Empty input gives "--"; unparseable input is returned unchanged.
func FormatDateTimeAt(ts string, now time.Time) string {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return "--"
	}
	t, ok := parseTimestamp(ts)
	if !ok {
		return ts
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d min ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(diff/time.Hour))
	default:
		return t.Local().Format("1/2 15:04")
	}
}

// FormatTime renders a clock time such as the last refresh.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	return t.Local().Format("15:04")
}

func parseTimestamp(ts string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, ts, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
