/*
types.go - Obligation records and derived aggregates

KEY CONCEPTS:
  - OvertimeRecord: immutable per-employee period snapshot from upstream
    time tracking; read-only to this engine
  - UniformOrder:   amortized one-time cost deducted across paydays
  - PTORequest:     approved time-off payout tied to one payout period
  - CycleReport:    the consolidated obligation set for one payday
  - CloseResult:    outcome of committing a cycle close-out

MUTABILITY:
  OvertimeRecord is never written here. UniformOrder mutates only through
  installment completion or skip. PTORequest becomes immutable once paid
  out. CycleReport is a pure read view; closing mutates the underlying
  records, not the view.
*/
package payroll

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// OVERTIME
// =============================================================================

// OvertimeRecord is one employee's hours for one pay period, produced by an
// upstream time-tracking process.
type OvertimeRecord struct {
	EmployeeID   string
	EmployeeName string
	Location     string // paying location label

	PeriodEnd DayStamp // period key: the last worked day of the period

	LocationAHours decimal.Decimal
	LocationBHours decimal.Decimal
	RegularHours   decimal.Decimal
	OvertimeHours  decimal.Decimal
	Week1Overtime  decimal.Decimal
	Week2Overtime  decimal.Decimal
	MultiLocation  bool
}

// TotalHours is regular plus overtime.
func (r OvertimeRecord) TotalHours() decimal.Decimal {
	return r.RegularHours.Add(r.OvertimeHours)
}

// =============================================================================
// UNIFORM ORDERS
// =============================================================================

type OrderStatus string

const (
	OrderActive    OrderStatus = "Active"
	OrderClosed    OrderStatus = "Closed"
	OrderCancelled OrderStatus = "Cancelled"
)

// OrderLineItem is one line of a uniform order, owned by its order.
type OrderLineItem struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Total is quantity times unit price, in cents.
func (li OrderLineItem) Total() decimal.Decimal {
	return Round2(li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))))
}

// UniformOrder is a one-time cost amortized across biweekly paydays.
//
// INVARIANTS:
//   - ChecksCompleted <= ScheduleCount
//   - deduction dates are FirstDeduction + k*14d for k = 0..ScheduleCount-1
//   - terminal (Closed) once ChecksCompleted == ScheduleCount
type UniformOrder struct {
	OrderID         string
	EmployeeID      string
	EmployeeName    string
	Location        string
	TotalCost       decimal.Decimal
	ScheduleCount   int
	FirstDeduction  DayStamp // zero until a schedule is assigned
	ChecksCompleted int
	Status          OrderStatus
	Notes           string
	Items           []OrderLineItem
}

// ItemsTotal sums the owned line items.
func (o UniformOrder) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.Items {
		total = total.Add(li.Total())
	}
	return Round2(total)
}

// =============================================================================
// PTO
// =============================================================================

type PTOStatus string

const (
	PTOPending   PTOStatus = "Pending"
	PTOApproved  PTOStatus = "Approved"
	PTOCancelled PTOStatus = "Cancelled"
	PTODenied    PTOStatus = "Denied"
)

// PTORequest is a paid-time-off payout tied to exactly one payout period.
type PTORequest struct {
	PTOID          string
	EmployeeID     string
	EmployeeName   string
	Location       string
	HoursRequested decimal.Decimal
	StartDate      DayStamp
	EndDate        DayStamp
	PayoutPeriod   DayStamp // the payday this request pays out on
	PaidOut        bool
	Status         PTOStatus
}

// PayableOn reports whether the request is due on the given payday:
// exact payout-period match, not yet paid, and not in a dead status.
func (p PTORequest) PayableOn(payday DayStamp) bool {
	if p.PaidOut || p.Status == PTOCancelled || p.Status == PTODenied {
		return false
	}
	return p.PayoutPeriod.Equal(payday)
}

// =============================================================================
// CYCLE REPORT - Derived aggregate, never persisted
// =============================================================================

// ReportSummary carries the roll-up totals for one payday.
type ReportSummary struct {
	EmployeeCount int // distinct employees across all four sources
	OvertimeHours decimal.Decimal
	UniformTotal  decimal.Decimal
	PTOHours      decimal.Decimal
	TransferHours decimal.Decimal
}

// CycleReport is the consolidated obligation set for one payday.
// A pure read view: closing the cycle mutates the underlying records,
// never this value.
type CycleReport struct {
	Payday DayStamp
	Period PayPeriod

	Overtime  []OvertimeRecord
	Uniforms  []DueInstallment
	PTO       []PTORequest
	Locations []LocationAllocation

	Summary  ReportSummary
	Warnings []SourceWarning
}

// =============================================================================
// CLOSE RESULT
// =============================================================================

// OrderError records one uniform order the close could not update.
// The order is left untouched, never partially billed.
type OrderError struct {
	OrderID string
	Err     string
}

// CloseResult is the outcome of CloseCycle. Cycle advancement is
// authoritative even when obligations partially fail.
type CloseResult struct {
	RunID  string
	Payday DayStamp

	OrdersMarked   int
	OrdersExcluded int
	OrderErrors    []OrderError
	UniformTotal   decimal.Decimal

	PTOPaid   []string
	PTOFailed []string
	PTOHours  decimal.Decimal

	NextPayday DayStamp
	Reclosed   bool // this payday was already processed before
	Warnings   []string
}
