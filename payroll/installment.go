/*
installment.go - Uniform order amortization and due-date matching

PURPOSE:
  Decides, for a uniform order and a target payday, which installment (if
  any) is due, and computes rounding-safe installment amounts.

ROUNDING CONTRACT:
  perInstallment = round2(total / count); the FINAL installment instead
  absorbs the remainder so the cent-exact sum of all installments equals
  the total. $100.00 over 3 checks is 33.33 + 33.33 + 33.34.

RE-BILLING GUARD:
  An installment at index i is due only when i >= ChecksCompleted, even if
  dates coincide after a retroactive schedule edit. This is what makes
  re-running aggregation after a partial close safe.

DATE COMPARISON:
  Calendar-day identity via DayStamp, never timestamp equality.
*/
package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DUE INSTALLMENT
// =============================================================================

// DueInstallment is one matched deduction for a payday.
type DueInstallment struct {
	Order          UniformOrder
	Index          int // 0-based position in the schedule
	Amount         decimal.Decimal
	RemainingAfter decimal.Decimal // balance once this installment is paid
}

// IsFinal reports whether this is the order's last scheduled check.
func (d DueInstallment) IsFinal() bool {
	return d.Index == d.Order.ScheduleCount-1
}

// =============================================================================
// SCHEDULE EXPANSION
// =============================================================================

// InstallmentDates expands the full deduction schedule:
// FirstDeduction + k*14d for k = 0..ScheduleCount-1.
// Nil when the order has no schedule yet.
func InstallmentDates(o UniformOrder) []DayStamp {
	if o.FirstDeduction.IsZero() || o.ScheduleCount <= 0 {
		return nil
	}
	dates := make([]DayStamp, o.ScheduleCount)
	for k := 0; k < o.ScheduleCount; k++ {
		dates[k] = o.FirstDeduction.AddDays(k * DefaultFrequencyDays)
	}
	return dates
}

// PerInstallment is the evenly amortized amount before remainder handling.
func PerInstallment(o UniformOrder) decimal.Decimal {
	if o.ScheduleCount <= 0 {
		return decimal.Zero
	}
	return Round2(o.TotalCost.Div(decimal.NewFromInt(int64(o.ScheduleCount))))
}

// InstallmentAmount returns the amount for installment index i.
// The final index absorbs the rounding remainder so all installments sum
// to TotalCost exactly.
func InstallmentAmount(o UniformOrder, i int) decimal.Decimal {
	per := PerInstallment(o)
	if i == o.ScheduleCount-1 {
		paidBefore := per.Mul(decimal.NewFromInt(int64(o.ScheduleCount - 1)))
		return Round2(o.TotalCost.Sub(paidBefore))
	}
	return per
}

// ValidateSchedule checks the order's amortization invariants.
func ValidateSchedule(o UniformOrder) error {
	if o.ScheduleCount <= 0 {
		return &InvalidStateError{Op: "schedule", ID: o.OrderID, Reason: "payment schedule count must be positive"}
	}
	if o.ChecksCompleted > o.ScheduleCount {
		return &InvalidStateError{
			Op: "schedule", ID: o.OrderID,
			Reason: fmt.Sprintf("checks completed %d exceeds schedule count %d", o.ChecksCompleted, o.ScheduleCount),
		}
	}
	return nil
}

// =============================================================================
// DUE MATCHING
// =============================================================================

// MatchDue decides whether an installment of the order is due on the target
// payday. Matching is by calendar-day identity, guarded so an index below
// ChecksCompleted never matches again.
func MatchDue(o UniformOrder, target DayStamp) (DueInstallment, bool, error) {
	if o.Status != OrderActive {
		return DueInstallment{}, false, nil
	}
	if err := ValidateSchedule(o); err != nil {
		return DueInstallment{}, false, err
	}

	for i, date := range InstallmentDates(o) {
		if !date.Equal(target) {
			continue
		}
		if i < o.ChecksCompleted {
			// Already billed; a retroactive edit may land a paid index on
			// today's date. Never re-bill it.
			continue
		}
		amount := InstallmentAmount(o, i)
		return DueInstallment{
			Order:          o,
			Index:          i,
			Amount:         amount,
			RemainingAfter: remainingAfter(o, amount),
		}, true, nil
	}
	return DueInstallment{}, false, nil
}

// remainingAfter = round2(total - checksCompleted*per - due), floored at zero.
func remainingAfter(o UniformOrder, due decimal.Decimal) decimal.Decimal {
	paid := PerInstallment(o).Mul(decimal.NewFromInt(int64(o.ChecksCompleted)))
	remaining := Round2(o.TotalCost.Sub(paid).Sub(due))
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// =============================================================================
// SKIP
// =============================================================================

// Skip shifts the order's whole schedule forward by one full cycle and
// appends an audit note. ChecksCompleted is unchanged: the same number of
// checks remain owed, they just land 14 days later.
func Skip(o UniformOrder, effective DayStamp) (UniformOrder, error) {
	if o.Status != OrderActive {
		return o, &InvalidStateError{Op: "skip", ID: o.OrderID, Reason: "order is not Active"}
	}
	if o.FirstDeduction.IsZero() {
		return o, &InvalidStateError{Op: "skip", ID: o.OrderID, Reason: "order has no first deduction date"}
	}

	out := o
	out.FirstDeduction = o.FirstDeduction.AddDays(DefaultFrequencyDays)
	note := fmt.Sprintf("Skipped check effective %s; first deduction moved to %s.", effective, out.FirstDeduction)
	if out.Notes != "" {
		out.Notes += " "
	}
	out.Notes += note
	return out, nil
}
