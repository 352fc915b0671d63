/*
aggregate.go - Consolidated obligation set for one payday

PURPOSE:
  Composes the calendar with the four obligation sources (overtime, uniform
  installments, PTO payouts, multi-location allocations) into one
  CycleReport for a target payday.

RESILIENCE:
  The four sources are queried independently. A failing source contributes
  an empty sub-collection plus a SourceWarning on the report; it never
  aborts the others. A partial report is better than no report. Only an
  invalid target payday is fatal.

ORDERING:
  Each sub-collection is sorted by (location, name) ascending; the
  multi-location collection by name only.
*/
package payroll

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Aggregator builds CycleReports. Read-only; safe to run concurrently with
// itself, but not with a close of the same payday.
type Aggregator struct {
	stores   Stores
	settings *Settings
	log      *logrus.Logger
}

func NewAggregator(stores Stores, log *logrus.Logger) *Aggregator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Aggregator{stores: stores, settings: NewSettings(stores.Settings), log: log}
}

// BuildReport assembles the obligation set for the payday.
func (a *Aggregator) BuildReport(ctx context.Context, payday DayStamp) (CycleReport, error) {
	if payday.IsZero() {
		return CycleReport{}, ErrInvalidInput
	}

	report := CycleReport{
		Payday: payday,
		Period: PayPeriodFor(payday),
	}

	report.Overtime = a.overtimeSource(ctx, &report)
	report.Uniforms = a.uniformSource(ctx, payday, &report)
	report.PTO = a.ptoSource(ctx, payday, &report)
	report.Locations = a.locationSource(ctx, report.Overtime, &report)

	report.Summary = summarize(report)
	return report, nil
}

// warn downgrades a source failure to an empty sub-collection.
func (a *Aggregator) warn(report *CycleReport, source string, err error) {
	a.log.WithFields(logrus.Fields{"source": source, "payday": report.Payday.String()}).
		WithError(err).Warn("obligation source failed; reporting empty sub-collection")
	report.Warnings = append(report.Warnings, SourceWarning{Source: source, Err: err})
}

// =============================================================================
// SOURCES
// =============================================================================

func (a *Aggregator) overtimeSource(ctx context.Context, report *CycleReport) []OvertimeRecord {
	records, err := a.stores.Overtime.ByPeriod(ctx, report.Period)
	if err != nil {
		a.warn(report, "overtime", err)
		return nil
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Location != records[j].Location {
			return records[i].Location < records[j].Location
		}
		return records[i].EmployeeName < records[j].EmployeeName
	})
	return records
}

func (a *Aggregator) uniformSource(ctx context.Context, payday DayStamp, report *CycleReport) []DueInstallment {
	orders, err := a.stores.Orders.ActiveOrders(ctx)
	if err != nil {
		a.warn(report, "uniforms", err)
		return nil
	}

	var due []DueInstallment
	for _, order := range orders {
		match, ok, err := MatchDue(order, payday)
		if err != nil {
			// One malformed order must not hide the rest.
			a.warn(report, "uniforms", err)
			continue
		}
		if ok {
			due = append(due, match)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].Order.Location != due[j].Order.Location {
			return due[i].Order.Location < due[j].Order.Location
		}
		return due[i].Order.EmployeeName < due[j].Order.EmployeeName
	})
	return due
}

func (a *Aggregator) ptoSource(ctx context.Context, payday DayStamp, report *CycleReport) []PTORequest {
	requests, err := a.stores.PTO.ByPayoutDate(ctx, payday)
	if err != nil {
		a.warn(report, "pto", err)
		return nil
	}

	payable := requests[:0]
	for _, req := range requests {
		if req.PayableOn(payday) {
			payable = append(payable, req)
		}
	}
	sort.Slice(payable, func(i, j int) bool {
		if payable[i].Location != payable[j].Location {
			return payable[i].Location < payable[j].Location
		}
		return payable[i].EmployeeName < payable[j].EmployeeName
	})
	return payable
}

// locationSource derives allocations from the multi-location overtime
// records. Derived per report, never persisted.
func (a *Aggregator) locationSource(ctx context.Context, overtime []OvertimeRecord, report *CycleReport) []LocationAllocation {
	locA, locB, err := a.settings.LocationNames(ctx)
	if err != nil {
		a.warn(report, "locations", err)
		locA, locB = DefaultLocationA, DefaultLocationB
	}

	var allocations []LocationAllocation
	for _, r := range overtime {
		if !r.MultiLocation {
			continue
		}
		allocations = append(allocations, SplitHours(
			r.EmployeeID, r.EmployeeName, locA, locB,
			r.LocationAHours, r.LocationBHours, r.OvertimeHours,
		))
	}
	sort.Slice(allocations, func(i, j int) bool {
		return allocations[i].EmployeeName < allocations[j].EmployeeName
	})
	return allocations
}

// =============================================================================
// SUMMARY
// =============================================================================

func summarize(report CycleReport) ReportSummary {
	summary := ReportSummary{
		OvertimeHours: decimal.Zero,
		UniformTotal:  decimal.Zero,
		PTOHours:      decimal.Zero,
		TransferHours: decimal.Zero,
	}

	employees := make(map[string]struct{})
	for _, r := range report.Overtime {
		employees[r.EmployeeID] = struct{}{}
		summary.OvertimeHours = summary.OvertimeHours.Add(r.OvertimeHours)
	}
	for _, d := range report.Uniforms {
		employees[d.Order.EmployeeID] = struct{}{}
		summary.UniformTotal = summary.UniformTotal.Add(d.Amount)
	}
	for _, p := range report.PTO {
		employees[p.EmployeeID] = struct{}{}
		summary.PTOHours = summary.PTOHours.Add(p.HoursRequested)
	}
	for _, l := range report.Locations {
		employees[l.EmployeeID] = struct{}{}
		summary.TransferHours = summary.TransferHours.Add(l.TransferHours)
	}

	summary.EmployeeCount = len(employees)
	summary.UniformTotal = Round2(summary.UniformTotal)
	return summary
}
