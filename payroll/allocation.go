/*
allocation.go - Multi-location hour allocation

PURPOSE:
  Splits one employee's combined regular/overtime hours across two work
  locations and determines the cross-location transfer: hours worked at the
  non-paying location move, in full, onto the paying location's payroll.

KNOWN LIMITATION:
  Overtime is apportioned by each location's share of total location hours
  (ratio-based), NOT recomputed from the week-by-week overtime rule. The
  split therefore approximates where overtime was actually worked. Kept as
  a documented approximation; correcting it changes payout totals and
  needs a requirements decision first.

RECONCILIATION INVARIANT:
  locA.regular + locA.overtime + locB.regular + locB.overtime equals
  hoursA + hoursB within ±0.01 for all non-negative inputs.
*/
package payroll

import "github.com/shopspring/decimal"

// =============================================================================
// LOCATION ALLOCATION - Derived per report, never persisted
// =============================================================================

// LocationSplit is the regular/overtime breakdown attributed to one location.
type LocationSplit struct {
	Location string
	Regular  decimal.Decimal
	Overtime decimal.Decimal
}

// Total is the raw hours attributed to the location.
func (s LocationSplit) Total() decimal.Decimal {
	return s.Regular.Add(s.Overtime)
}

// LocationAllocation is one employee's two-location split plus the computed
// transfer. Recomputed for every report.
type LocationAllocation struct {
	EmployeeID   string
	EmployeeName string

	LocationA LocationSplit
	LocationB LocationSplit

	PaidFrom      string
	TransferFrom  string
	TransferTo    string
	TransferHours decimal.Decimal
}

// =============================================================================
// SPLITTING
// =============================================================================

// SplitHours allocates an employee's hours between two named locations and
// determines the transfer. Ties on hours pay from location A.
func SplitHours(employeeID, employeeName, locationA, locationB string, hoursA, hoursB, totalOT decimal.Decimal) LocationAllocation {
	alloc := LocationAllocation{
		EmployeeID:   employeeID,
		EmployeeName: employeeName,
		LocationA:    LocationSplit{Location: locationA},
		LocationB:    LocationSplit{Location: locationB},
		PaidFrom:     locationA,
	}

	total := hoursA.Add(hoursB)
	if total.IsZero() || total.IsNegative() {
		return alloc
	}

	regularPool := total.Sub(totalOT)
	if regularPool.IsNegative() {
		regularPool = decimal.Zero
	}

	alloc.LocationA.Regular, alloc.LocationA.Overtime = splitOne(hoursA, total, regularPool)
	alloc.LocationB.Regular, alloc.LocationB.Overtime = splitOne(hoursB, total, regularPool)

	// Paid from whichever location has greater-or-equal hours; the hours at
	// the other location transfer in full.
	if hoursA.GreaterThanOrEqual(hoursB) {
		alloc.PaidFrom = locationA
		if hoursB.IsPositive() {
			alloc.TransferFrom = locationB
			alloc.TransferTo = locationA
			alloc.TransferHours = hoursB
		}
	} else {
		alloc.PaidFrom = locationB
		if hoursA.IsPositive() {
			alloc.TransferFrom = locationA
			alloc.TransferTo = locationB
			alloc.TransferHours = hoursA
		}
	}
	return alloc
}

// splitOne computes one location's regular/overtime share.
// regular = min(hoursAtLoc, regularPool*ratio), overtime = remainder,
// both floored at zero.
func splitOne(hoursAtLoc, total, regularPool decimal.Decimal) (regular, overtime decimal.Decimal) {
	ratio := hoursAtLoc.Div(total)
	regular = regularPool.Mul(ratio)
	if regular.GreaterThan(hoursAtLoc) {
		regular = hoursAtLoc
	}
	if regular.IsNegative() {
		regular = decimal.Zero
	}
	overtime = hoursAtLoc.Sub(regular)
	if overtime.IsNegative() {
		overtime = decimal.Zero
	}
	return regular, overtime
}
