/*
csv.go - Flat CSV export of a cycle report

One section per obligation source, separated by blank rows. This is a data
export for spreadsheets and downstream tooling, not a formatted report.
*/
package api

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/payroll-engine/payroll"
)

// ExportReportCSV writes the payday's report as CSV.
// GET /api/cycles/{date}/report.csv
func (h *Handler) ExportReportCSV(w http.ResponseWriter, r *http.Request) {
	payday, err := payroll.ParseDay(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payday", err)
		return
	}

	report, err := h.Aggregator.BuildReport(r.Context(), payday)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to build report", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="cycle-%s.csv"`, payday))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"Payday", report.Payday.String(),
		"Period", report.Period.Start.String(), report.Period.End.String()})
	cw.Write(nil)

	cw.Write([]string{"Overtime"})
	cw.Write([]string{"Employee", "Name", "Location", "Regular", "Overtime", "Week1 OT", "Week2 OT", "Multi-Location"})
	for _, rec := range report.Overtime {
		cw.Write([]string{
			rec.EmployeeID, rec.EmployeeName, rec.Location,
			rec.RegularHours.StringFixed(2), rec.OvertimeHours.StringFixed(2),
			rec.Week1Overtime.StringFixed(2), rec.Week2Overtime.StringFixed(2),
			fmt.Sprintf("%t", rec.MultiLocation),
		})
	}
	cw.Write(nil)

	cw.Write([]string{"Uniform Deductions"})
	cw.Write([]string{"Order", "Employee", "Name", "Location", "Check", "Amount", "Remaining"})
	for _, d := range report.Uniforms {
		cw.Write([]string{
			d.Order.OrderID, d.Order.EmployeeID, d.Order.EmployeeName, d.Order.Location,
			fmt.Sprintf("%d/%d", d.Index+1, d.Order.ScheduleCount),
			d.Amount.StringFixed(2), d.RemainingAfter.StringFixed(2),
		})
	}
	cw.Write(nil)

	cw.Write([]string{"PTO Payouts"})
	cw.Write([]string{"Request", "Employee", "Name", "Location", "Hours", "Status"})
	for _, p := range report.PTO {
		cw.Write([]string{
			p.PTOID, p.EmployeeID, p.EmployeeName, p.Location,
			p.HoursRequested.StringFixed(2), string(p.Status),
		})
	}
	cw.Write(nil)

	cw.Write([]string{"Location Transfers"})
	cw.Write([]string{"Employee", "Name", "Paid From", "Transfer From", "Transfer To", "Hours"})
	for _, l := range report.Locations {
		cw.Write([]string{
			l.EmployeeID, l.EmployeeName, l.PaidFrom,
			l.TransferFrom, l.TransferTo, l.TransferHours.StringFixed(2),
		})
	}

	if len(report.Warnings) > 0 {
		cw.Write(nil)
		cw.Write([]string{"Warnings"})
		for _, warn := range report.Warnings {
			cw.Write([]string{warn.String()})
		}
	}
}
