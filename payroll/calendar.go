/*
calendar.go - Payday lattice arithmetic

PURPOSE:
  Pure date math for the biweekly payday sequence. Every payday is a point
  on a fixed lattice anchored to a known date: d ≡ anchor (mod frequency).
  Nothing in this file touches storage; PayCycle persistence lives behind
  the SettingsStore interface.

KEY OPERATIONS:
  NextPaydayFrom: smallest lattice point strictly after today
  PayPeriodFor:   the 14-day worked span a payday compensates
  PaydaySeries:   history + future window with current/next tagging

EDGE CASES:
  - A payday equal to today is NOT "next"; it advances one full period.
  - A mis-specified anchor (wrong weekday) still yields a consistent
    lattice. The weekday label is presentation, not correctness.

SEE ALSO:
  - close.go: advances the persisted cycle pointer after a close-out
*/
package payroll

// DefaultFrequencyDays is the biweekly cycle length.
const DefaultFrequencyDays = 14

// =============================================================================
// PAY CYCLE - Persisted schedule state
// =============================================================================

// PayCycle is the engine's view of the persisted schedule pointers.
//
// INVARIANTS:
//   - NextPayday ≡ AnchorPayday (mod FrequencyDays)
//   - NextPayday > today once normalized (never stale)
type PayCycle struct {
	FrequencyDays       int
	AnchorPayday        DayStamp
	NextPayday          DayStamp
	LastProcessedPayday DayStamp // zero until the first close-out
}

// Normalize returns a copy whose NextPayday is strictly after today and on
// the anchor lattice. A cycle freshly loaded from settings may be stale if
// no close ran for several periods; callers must not act on a stale pointer.
func (c PayCycle) Normalize(today DayStamp) PayCycle {
	out := c
	if out.FrequencyDays <= 0 {
		out.FrequencyDays = DefaultFrequencyDays
	}
	anchor := out.AnchorPayday
	if anchor.IsZero() {
		anchor = out.NextPayday
		out.AnchorPayday = anchor
	}
	if anchor.IsZero() {
		return out
	}
	if out.NextPayday.IsZero() || !out.NextPayday.After(today) {
		out.NextPayday = NextPaydayFrom(today, anchor, out.FrequencyDays)
	}
	return out
}

// =============================================================================
// LATTICE ARITHMETIC
// =============================================================================

// NextPaydayFrom returns the smallest date d with d ≡ anchor (mod
// frequencyDays) and d strictly after today. Works for anchors in the past
// or the future.
func NextPaydayFrom(today, anchor DayStamp, frequencyDays int) DayStamp {
	if frequencyDays <= 0 {
		frequencyDays = DefaultFrequencyDays
	}
	n := DaysBetween(anchor, today)
	// floorDiv keeps the lattice correct when today precedes the anchor.
	periods := floorDiv(n, frequencyDays)
	d := anchor.AddDays((periods + 1) * frequencyDays)
	for !d.After(today) {
		d = d.AddDays(frequencyDays)
	}
	return d
}

// PayPeriodFor derives the worked span a payday compensates:
// the 14 days ending 6 days before the payday.
func PayPeriodFor(payday DayStamp) PayPeriod {
	end := payday.AddDays(-6)
	return PayPeriod{Start: end.AddDays(-13), End: end}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// =============================================================================
// PAYDAY SERIES - Windowed view for review surfaces
// =============================================================================

// SeriesEntry is one payday in a series, tagged for display.
type SeriesEntry struct {
	Payday    DayStamp
	Period    PayPeriod
	IsCurrent bool // payday falls within the 14 days ending today
	IsNext    bool // payday falls within the 14 days after today
}

// PaydaySeries returns historyCount paydays at/before the most recent
// completed one plus futureCount future paydays, oldest first. Consecutive
// entries are exactly frequencyDays apart. At most one entry is IsCurrent
// and at most one IsNext.
func PaydaySeries(anchor DayStamp, frequencyDays int, today DayStamp, historyCount, futureCount int) []SeriesEntry {
	if frequencyDays <= 0 {
		frequencyDays = DefaultFrequencyDays
	}
	next := NextPaydayFrom(today, anchor, frequencyDays)

	series := make([]SeriesEntry, 0, historyCount+futureCount)
	for i := -historyCount; i < futureCount; i++ {
		payday := next.AddDays(i * frequencyDays)
		series = append(series, SeriesEntry{
			Payday:    payday,
			Period:    PayPeriodFor(payday),
			IsCurrent: payday.BeforeOrEqual(today) && payday.After(today.AddDays(-frequencyDays)),
			IsNext:    payday.After(today) && payday.BeforeOrEqual(today.AddDays(frequencyDays)),
		})
	}
	return series
}
