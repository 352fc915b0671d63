/*
calendar_test.go - Specification tests for the payday lattice

Each test documents one behavior of the calendar:
  1. NextPaydayFrom is strict and congruent to the anchor
  2. PayPeriodFor derives the exact 14-day worked span
  3. PaydaySeries spacing and current/next tagging
  4. PayCycle normalization never leaves a stale pointer
*/
package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func TestNextPaydayFrom_AlwaysStrictlyAfterToday(t *testing.T) {
	// GIVEN: A Friday anchor
	// WHEN: Computing the next payday from various todays
	// THEN: The result is > today and on the anchor lattice

	anchor := payroll.NewDay(2025, time.November, 28)

	todays := []payroll.DayStamp{
		payroll.NewDay(2025, time.November, 27), // day before anchor
		payroll.NewDay(2025, time.November, 28), // exactly the anchor
		payroll.NewDay(2025, time.November, 29), // day after anchor
		payroll.NewDay(2026, time.March, 15),    // far future
		payroll.NewDay(2024, time.January, 2),   // before the anchor entirely
	}
	for _, today := range todays {
		next := payroll.NextPaydayFrom(today, anchor, 14)

		assert.True(t, next.After(today), "next %s must be after today %s", next, today)
		assert.Equal(t, 0, mod14(anchor, next), "next %s must be congruent to anchor", next)
		// Smallest such date: one period earlier is not after today.
		assert.False(t, next.AddDays(-14).After(today), "next %s is not minimal for today %s", next, today)
	}
}

func TestNextPaydayFrom_PaydayEqualToTodayAdvancesFullPeriod(t *testing.T) {
	// GIVEN: Today is itself a lattice point
	// WHEN: Computing the next payday
	// THEN: It is exactly one full period later, never today

	anchor := payroll.NewDay(2025, time.November, 28)
	today := payroll.NewDay(2025, time.December, 12) // anchor + 14

	next := payroll.NextPaydayFrom(today, anchor, 14)
	assert.Equal(t, payroll.NewDay(2025, time.December, 26), next)
}

func TestNextPaydayFrom_MisSpecifiedAnchorStillYieldsConsistentLattice(t *testing.T) {
	// A Wednesday anchor for a nominally-Friday payroll still produces a
	// clean 14-day lattice. The weekday label is presentation only.

	anchor := payroll.NewDay(2025, time.November, 26) // Wednesday
	today := payroll.NewDay(2025, time.December, 1)

	first := payroll.NextPaydayFrom(today, anchor, 14)
	second := payroll.NextPaydayFrom(first, anchor, 14)
	assert.Equal(t, 14, payroll.DaysBetween(first, second))
	assert.Equal(t, time.Wednesday, first.Weekday())
}

func TestPayPeriodFor_ExactFourteenDaySpan(t *testing.T) {
	// end = payday - 6 days, start = end - 13 days, 14 days inclusive.

	payday := payroll.NewDay(2025, time.November, 28)
	period := payroll.PayPeriodFor(payday)

	assert.Equal(t, payroll.NewDay(2025, time.November, 22), period.End)
	assert.Equal(t, payroll.NewDay(2025, time.November, 9), period.Start)
	assert.Equal(t, 14, period.Days())
}

func TestPaydaySeries_SpacingAndTags(t *testing.T) {
	// GIVEN: A payday series window around today
	// THEN: Entries are strictly increasing by exactly 14 days, with at
	//       most one IsCurrent and one IsNext across the series

	anchor := payroll.NewDay(2025, time.November, 28)
	today := payroll.NewDay(2025, time.December, 20)

	series := payroll.PaydaySeries(anchor, 14, today, 6, 3)
	require.Len(t, series, 9)

	currents, nexts := 0, 0
	for i, entry := range series {
		if i > 0 {
			assert.Equal(t, 14, payroll.DaysBetween(series[i-1].Payday, entry.Payday))
		}
		if entry.IsCurrent {
			currents++
			assert.True(t, entry.Payday.BeforeOrEqual(today))
		}
		if entry.IsNext {
			nexts++
			assert.True(t, entry.Payday.After(today))
		}
		assert.Equal(t, payroll.PayPeriodFor(entry.Payday), entry.Period)
	}
	assert.Equal(t, 1, currents, "exactly one current payday in a covering window")
	assert.LessOrEqual(t, nexts, 1, "at most one next payday")

	// The tagged entries are the expected lattice points.
	assert.Equal(t, payroll.NewDay(2025, time.December, 12), series[5].Payday)
	assert.True(t, series[5].IsCurrent)
	assert.Equal(t, payroll.NewDay(2025, time.December, 26), series[6].Payday)
	assert.True(t, series[6].IsNext)
}

func TestPayCycle_NormalizeAdvancesStalePointer(t *testing.T) {
	// GIVEN: A persisted cycle whose next payday is in the past
	// WHEN: Normalizing against today
	// THEN: The pointer moves onto the lattice strictly after today

	cycle := payroll.PayCycle{
		FrequencyDays: 14,
		AnchorPayday:  payroll.NewDay(2025, time.November, 28),
		NextPayday:    payroll.NewDay(2025, time.December, 12),
	}
	today := payroll.NewDay(2026, time.February, 1)

	normalized := cycle.Normalize(today)
	assert.True(t, normalized.NextPayday.After(today))
	assert.Equal(t, 0, mod14(normalized.AnchorPayday, normalized.NextPayday))

	// A fresh pointer is left alone.
	again := normalized.Normalize(today)
	assert.Equal(t, normalized.NextPayday, again.NextPayday)
}

func TestPayCycle_NormalizeDefaultsFrequency(t *testing.T) {
	cycle := payroll.PayCycle{AnchorPayday: payroll.NewDay(2025, time.November, 28)}
	normalized := cycle.Normalize(payroll.NewDay(2025, time.December, 1))

	assert.Equal(t, 14, normalized.FrequencyDays)
	assert.False(t, normalized.NextPayday.IsZero())
}

func TestParseDay_NormalizesDateTimeToCalendarDay(t *testing.T) {
	// Date-only and date-time representations of the same day are equal.

	plain, err := payroll.ParseDay("2025-11-28")
	require.NoError(t, err)
	stamped, err := payroll.ParseDay("2025-11-28T16:45:00Z")
	require.NoError(t, err)

	assert.True(t, plain.Equal(stamped))

	_, err = payroll.ParseDay("next friday")
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)
}

// mod14 returns the day distance between two dates modulo 14, normalized
// to [0, 14).
func mod14(anchor, d payroll.DayStamp) int {
	n := payroll.DaysBetween(anchor, d) % 14
	if n < 0 {
		n += 14
	}
	return n
}
