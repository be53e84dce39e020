/*
date.go - Canonical dates and pay-week boundaries

PURPOSE:
  Session and time-entry dates arrive in three shapes depending on the
  source: ISO date strings from persisted records, time.Time from live
  objects, and Timestamp-style wrappers exposing ToDate(). Every one of
  them is normalized here, once, into the Date type - the rest of the
  engine never type-sniffs.

WEEK BOUNDARIES:
  The pay week runs Sunday 00:00:00.000 through Saturday 23:59:59.999,
  in the date's own (naive local) terms. Overtime apportionment depends
  on these boundaries, so they live next to Date rather than in the
  labor calculator.

SEE ALSO:
  - labor.go: sibling filtering by week and date ordering
  - hours.go: wall-clock span arithmetic
*/
package costs

import (
	"strings"
	"time"
)

// =============================================================================
// DATE - calendar date, no time-of-day
// =============================================================================

// Date is a calendar date normalized to midnight local time. All week
// and ordering comparisons in the engine operate on Date values.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.Local)}
}

// DateOf truncates any time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// DateSource is the Timestamp-wrapper shape: any value exposing the
// underlying time via ToDate(). Firestore-style timestamp types satisfy
// this without importing their SDK.
type DateSource interface {
	ToDate() time.Time
}

// Timestamp is a minimal DateSource for callers that hold epoch-style
// timestamps rather than time.Time values.
type Timestamp struct {
	Seconds int64
	Nanos   int64
}

func (ts Timestamp) ToDate() time.Time {
	return time.Unix(ts.Seconds, ts.Nanos)
}

// ParseDateValue normalizes the three date shapes the system produces
// into a Date. Returns ok=false for nil, unparseable strings, and
// unknown types - never panics.
//
// Accepted shapes:
//   - string: "2006-01-02" (interpreted at local midnight) or RFC3339
//   - time.Time / *time.Time
//   - DateSource (Timestamp-style wrappers with ToDate())
//   - Date itself (pass-through)
func ParseDateValue(v any) (Date, bool) {
	switch d := v.(type) {
	case nil:
		return Date{}, false
	case Date:
		return d, !d.t.IsZero()
	case time.Time:
		if d.IsZero() {
			return Date{}, false
		}
		return DateOf(d), true
	case *time.Time:
		if d == nil || d.IsZero() {
			return Date{}, false
		}
		return DateOf(*d), true
	case DateSource:
		t := d.ToDate()
		if t.IsZero() {
			return Date{}, false
		}
		return DateOf(t), true
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return Date{}, false
		}
		if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
			return DateOf(t), true
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return DateOf(t), true
		}
		return Date{}, false
	default:
		return Date{}, false
	}
}

// Comparison. Dates compare by calendar day only.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }

func (d Date) Time() time.Time       { return d.t }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) AddDays(n int) Date    { return DateOf(d.t.AddDate(0, 0, n)) }
func (d Date) IsZero() bool          { return d.t.IsZero() }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// =============================================================================
// PAY WEEK - Sunday through Saturday
// =============================================================================

// WeekRange is one pay week: Start is Sunday 00:00:00.000, End is
// Saturday 23:59:59.999.
type WeekRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the date falls inside the week, inclusive on
// both ends.
func (w WeekRange) Contains(d Date) bool {
	return !d.t.Before(w.Start) && !d.t.After(w.End)
}

// WeekOf returns the pay week containing the given date value. Accepts
// the same shapes as ParseDateValue; ok=false when the value cannot be
// normalized.
func WeekOf(v any) (WeekRange, bool) {
	d, ok := ParseDateValue(v)
	if !ok {
		return WeekRange{}, false
	}
	start := d.AddDays(-int(d.Weekday())) // back up to Sunday
	end := start.t.AddDate(0, 0, 7).Add(-time.Millisecond)
	return WeekRange{Start: start.t, End: end}, true
}
