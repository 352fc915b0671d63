/*
installment_test.go - Specification tests for uniform order amortization

Covered behaviors:
  1. Installment amounts always sum cent-exactly to the order total
  2. Due matching never re-bills an index below ChecksCompleted
  3. Skip shifts the schedule one full cycle, checks unchanged
  4. The $100.00 / 3 checks / 2025-11-28 end-to-end schedule
*/
package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func order(total float64, count, completed int, first payroll.DayStamp) payroll.UniformOrder {
	return payroll.UniformOrder{
		OrderID:         "ord-1",
		EmployeeID:      "emp-1",
		EmployeeName:    "Avery Quinn",
		TotalCost:       payroll.Dollars(total),
		ScheduleCount:   count,
		ChecksCompleted: completed,
		FirstDeduction:  first,
		Status:          payroll.OrderActive,
	}
}

func TestInstallmentAmounts_SumExactlyToTotal(t *testing.T) {
	// PROPERTY: sum(perInstallment for i < n-1) + final == totalCost,
	// cent-exact, for awkward divisions.

	cases := []struct {
		total float64
		count int
	}{
		{100.00, 3},
		{99.99, 4},
		{250.10, 7},
		{19.95, 2},
		{75.00, 6},
		{0.05, 3},
	}
	first := payroll.NewDay(2025, time.November, 28)

	for _, tc := range cases {
		o := order(tc.total, tc.count, 0, first)
		sum := decimal.Zero
		for i := 0; i < tc.count; i++ {
			sum = sum.Add(payroll.InstallmentAmount(o, i))
		}
		assert.True(t, sum.Equal(o.TotalCost),
			"total=%v count=%d: installments sum to %s", tc.total, tc.count, sum)
	}
}

func TestInstallmentDates_FourteenDayLattice(t *testing.T) {
	o := order(100, 3, 0, payroll.NewDay(2025, time.November, 28))
	dates := payroll.InstallmentDates(o)

	require.Len(t, dates, 3)
	assert.Equal(t, payroll.NewDay(2025, time.November, 28), dates[0])
	assert.Equal(t, payroll.NewDay(2025, time.December, 12), dates[1])
	assert.Equal(t, payroll.NewDay(2025, time.December, 26), dates[2])
}

func TestMatchDue_HundredDollarsOverThreeChecks(t *testing.T) {
	// End-to-end from the scheduling contract: $100.00 over 3 checks
	// starting 2025-11-28 bills 33.33, 33.33, then 33.34.

	first := payroll.NewDay(2025, time.November, 28)

	o := order(100.00, 3, 0, first)
	due, ok, err := payroll.MatchDue(o, first)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, due.Index)
	assert.Equal(t, "33.33", due.Amount.StringFixed(2))
	assert.Equal(t, "66.67", due.RemainingAfter.StringFixed(2))

	o.ChecksCompleted = 1
	due, ok, err = payroll.MatchDue(o, first.AddDays(14))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, due.Index)
	assert.Equal(t, "33.33", due.Amount.StringFixed(2))
	assert.Equal(t, "33.34", due.RemainingAfter.StringFixed(2))

	o.ChecksCompleted = 2
	due, ok, err = payroll.MatchDue(o, first.AddDays(28))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, due.Index)
	assert.Equal(t, "33.34", due.Amount.StringFixed(2), "final check absorbs the remainder")
	assert.True(t, due.RemainingAfter.IsZero())
	assert.True(t, due.IsFinal())
}

func TestMatchDue_NeverReBillsCompletedIndex(t *testing.T) {
	// GIVEN: An order whose first check is already completed
	// WHEN: The target date coincides with the completed index (e.g. after
	//       a retroactive schedule edit)
	// THEN: No installment matches

	first := payroll.NewDay(2025, time.November, 28)
	o := order(100.00, 3, 1, first)

	_, ok, err := payroll.MatchDue(o, first)
	require.NoError(t, err)
	assert.False(t, ok, "index 0 is completed and must not re-bill")

	// The next index still matches on its own date.
	due, ok, err := payroll.MatchDue(o, first.AddDays(14))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, due.Index)
}

func TestMatchDue_OffLatticeDateMatchesNothing(t *testing.T) {
	o := order(100.00, 3, 0, payroll.NewDay(2025, time.November, 28))
	_, ok, err := payroll.MatchDue(o, payroll.NewDay(2025, time.December, 5))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchDue_NonActiveOrderNeverDue(t *testing.T) {
	first := payroll.NewDay(2025, time.November, 28)
	for _, status := range []payroll.OrderStatus{payroll.OrderClosed, payroll.OrderCancelled} {
		o := order(100.00, 3, 0, first)
		o.Status = status
		_, ok, err := payroll.MatchDue(o, first)
		require.NoError(t, err)
		assert.False(t, ok, "status %s must not bill", status)
	}
}

func TestMatchDue_CorruptScheduleIsInvalidState(t *testing.T) {
	// checksCompleted > scheduleCount is a violated invariant, not a
	// silent no-match.
	o := order(100.00, 3, 5, payroll.NewDay(2025, time.November, 28))
	_, _, err := payroll.MatchDue(o, payroll.NewDay(2025, time.November, 28))
	assert.ErrorIs(t, err, payroll.ErrInvalidState)
}

func TestSkip_ShiftsOneFullCycle(t *testing.T) {
	// skip(order).firstDeduction == old + 14 days; checks unchanged.

	first := payroll.NewDay(2025, time.November, 28)
	o := order(100.00, 3, 1, first)

	skipped, err := payroll.Skip(o, payroll.NewDay(2025, time.November, 27))
	require.NoError(t, err)
	assert.Equal(t, first.AddDays(14), skipped.FirstDeduction)
	assert.Equal(t, 1, skipped.ChecksCompleted)
	assert.Contains(t, skipped.Notes, "Skipped check effective 2025-11-27")
	// The original value is untouched.
	assert.Equal(t, first, o.FirstDeduction)
}

func TestSkip_RequiresActiveOrderWithSchedule(t *testing.T) {
	first := payroll.NewDay(2025, time.November, 28)

	closed := order(100.00, 3, 3, first)
	closed.Status = payroll.OrderClosed
	_, err := payroll.Skip(closed, first)
	assert.ErrorIs(t, err, payroll.ErrInvalidState)

	unscheduled := order(100.00, 3, 0, payroll.DayStamp{})
	_, err = payroll.Skip(unscheduled, first)
	assert.ErrorIs(t, err, payroll.ErrInvalidState)
}

func TestOrderLineItems_TotalSumsItems(t *testing.T) {
	o := order(0, 2, 0, payroll.DayStamp{})
	o.Items = []payroll.OrderLineItem{
		{Description: "Work shirt", Quantity: 3, UnitPrice: payroll.Dollars(19.99)},
		{Description: "Apron", Quantity: 1, UnitPrice: payroll.Dollars(12.50)},
	}
	assert.Equal(t, "72.47", o.ItemsTotal().StringFixed(2))
}
