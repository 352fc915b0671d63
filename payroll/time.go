/*
Package payroll implements the biweekly payroll cycle and obligation
scheduling engine.

PURPOSE:
  Given a fixed anchor payday and a 14-day frequency, this package derives
  the payday lattice, decides which obligations (overtime, uniform-cost
  installments, PTO payouts, cross-location hour transfers) fall due on a
  given payday, and commits an idempotent close-out of the cycle.

KEY CONCEPTS IN THIS FILE (time.go):
  - DayStamp: a calendar day, normalized to UTC midnight

DESIGN PRINCIPLES:
  1. Day identity: two dates are equal iff they denote the same calendar
     day, never by timestamp comparison. Source data mixes date-only and
     date-time values; everything is normalized at the boundary.
  2. Precision: money and hours use decimal.Decimal, never float64.
  3. Injected storage: persistence is behind small interfaces (store.go),
     the engine holds no ambient global state.

SEE ALSO:
  - calendar.go: payday lattice arithmetic
  - installment.go: due-date matching for uniform orders
*/
package payroll

import (
	"fmt"
	"time"
)

// =============================================================================
// DAY STAMP - Calendar day, no time-of-day, no zone ambiguity
// =============================================================================

// DayStamp identifies a single calendar day. The zero value is "no date".
//
// All scheduling comparisons in this package run through DayStamp so that a
// due date stored as "2025-11-28" and a target passed as a local-time
// timestamp on the same day compare equal.
type DayStamp struct {
	t time.Time
}

// NewDay constructs a DayStamp for the given calendar day.
func NewDay(year int, month time.Month, day int) DayStamp {
	return DayStamp{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates any timestamp to its calendar day.
// The day is taken from the value's own location before normalizing,
// so a local midnight does not slip to the previous UTC day.
func DayOf(t time.Time) DayStamp {
	if t.IsZero() {
		return DayStamp{}
	}
	return NewDay(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day.
func Today() DayStamp {
	return DayOf(time.Now())
}

// ParseDay parses a date in ISO (2006-01-02) or RFC3339 form.
// Anything else is ErrInvalidInput.
func ParseDay(s string) (DayStamp, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return DayOf(t), nil
		}
	}
	return DayStamp{}, fmt.Errorf("%w: unparsable date %q", ErrInvalidInput, s)
}

// Comparison
func (d DayStamp) Before(other DayStamp) bool { return d.t.Before(other.t) }
func (d DayStamp) After(other DayStamp) bool  { return d.t.After(other.t) }
func (d DayStamp) Equal(other DayStamp) bool  { return d.t.Equal(other.t) }
func (d DayStamp) BeforeOrEqual(other DayStamp) bool { return !d.After(other) }
func (d DayStamp) AfterOrEqual(other DayStamp) bool  { return !d.Before(other) }

// Arithmetic
func (d DayStamp) AddDays(n int) DayStamp { return DayStamp{t: d.t.AddDate(0, 0, n)} }

// DaysBetween returns to - from in whole days. Negative when to is earlier.
func DaysBetween(from, to DayStamp) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// Properties
func (d DayStamp) Year() int             { return d.t.Year() }
func (d DayStamp) Month() time.Month     { return d.t.Month() }
func (d DayStamp) Day() int              { return d.t.Day() }
func (d DayStamp) Weekday() time.Weekday { return d.t.Weekday() }
func (d DayStamp) IsZero() bool          { return d.t.IsZero() }

// Time exposes the underlying UTC-midnight timestamp for storage layers.
func (d DayStamp) Time() time.Time { return d.t }

func (d DayStamp) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format("2006-01-02")
}
