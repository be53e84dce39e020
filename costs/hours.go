package costs

import "time"

// clockLayout is the naive wall-clock format sessions and time entries
// use. No timezone handling: values are interpreted as-is.
const clockLayout = "15:04"

// SpanHours returns the elapsed hours between two "HH:MM" wall-clock
// strings on the same nominal day, as a non-negative decimal.
//
// Returns 0 when either input is missing or unparseable, and when the
// computed span is zero or negative. end < start is NOT treated as
// crossing midnight; sessions do not span days.
func SpanHours(start, end string) float64 {
	if start == "" || end == "" {
		return 0
	}
	// Both values land on an arbitrary shared reference date; only the
	// difference matters.
	from, err := time.Parse(clockLayout, start)
	if err != nil {
		return 0
	}
	to, err := time.Parse(clockLayout, end)
	if err != nil {
		return 0
	}
	hours := to.Sub(from).Hours()
	if hours <= 0 {
		return 0
	}
	return hours
}

// FormatClock renders a timestamp-like value as the "HH:MM" string
// SpanHours expects. ok=false when the value is nil or of an unknown
// shape.
func FormatClock(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case time.Time:
		if t.IsZero() {
			return "", false
		}
		return t.Format(clockLayout), true
	case *time.Time:
		if t == nil || t.IsZero() {
			return "", false
		}
		return t.Format(clockLayout), true
	case DateSource:
		tt := t.ToDate()
		if tt.IsZero() {
			return "", false
		}
		return tt.Format(clockLayout), true
	default:
		return "", false
	}
}
