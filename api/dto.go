/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the HTTP surface, decoupled from the domain types.
  Dates travel as 2006-01-02 strings; money and hours as fixed-point
  decimal strings so no client ever sees binary-float money.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Done in handlers; DTOs are pure data carriers.
*/
package api

import (
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// CYCLE & SERIES
// =============================================================================

// CycleDTO is the persisted schedule state.
type CycleDTO struct {
	FrequencyDays       int    `json:"frequency_days"`
	AnchorPayday        string `json:"anchor_payday"`
	NextPayday          string `json:"next_payday"`
	LastProcessedPayday string `json:"last_processed_payday,omitempty"`
}

// SeriesEntryDTO is one payday in the windowed series.
type SeriesEntryDTO struct {
	Payday      string `json:"payday"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	IsCurrent   bool   `json:"is_current"`
	IsNext      bool   `json:"is_next"`
}

// =============================================================================
// REPORT
// =============================================================================

type OvertimeDTO struct {
	EmployeeID    string `json:"employee_id"`
	EmployeeName  string `json:"employee_name"`
	Location      string `json:"location"`
	RegularHours  string `json:"regular_hours"`
	OvertimeHours string `json:"overtime_hours"`
	Week1Overtime string `json:"week1_overtime"`
	Week2Overtime string `json:"week2_overtime"`
	MultiLocation bool   `json:"multi_location"`
}

type InstallmentDTO struct {
	OrderID        string `json:"order_id"`
	EmployeeID     string `json:"employee_id"`
	EmployeeName   string `json:"employee_name"`
	Location       string `json:"location"`
	CheckNumber    int    `json:"check_number"` // 1-based
	ScheduleCount  int    `json:"schedule_count"`
	Amount         string `json:"amount"`
	RemainingAfter string `json:"remaining_after"`
	IsFinal        bool   `json:"is_final"`
}

type PTODTO struct {
	PTOID          string `json:"pto_id"`
	EmployeeID     string `json:"employee_id"`
	EmployeeName   string `json:"employee_name"`
	Location       string `json:"location"`
	HoursRequested string `json:"hours_requested"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	Status         string `json:"status"`
}

type AllocationDTO struct {
	EmployeeID    string `json:"employee_id"`
	EmployeeName  string `json:"employee_name"`
	PaidFrom      string `json:"paid_from"`
	LocationA     SplitDTO `json:"location_a"`
	LocationB     SplitDTO `json:"location_b"`
	TransferFrom  string `json:"transfer_from,omitempty"`
	TransferTo    string `json:"transfer_to,omitempty"`
	TransferHours string `json:"transfer_hours"`
}

type SplitDTO struct {
	Location string `json:"location"`
	Regular  string `json:"regular"`
	Overtime string `json:"overtime"`
}

type SummaryDTO struct {
	EmployeeCount int    `json:"employee_count"`
	OvertimeHours string `json:"overtime_hours"`
	UniformTotal  string `json:"uniform_total"`
	PTOHours      string `json:"pto_hours"`
	TransferHours string `json:"transfer_hours"`
}

// ReportDTO is the consolidated obligation set for one payday.
type ReportDTO struct {
	Payday      string           `json:"payday"`
	PeriodStart string           `json:"period_start"`
	PeriodEnd   string           `json:"period_end"`
	Overtime    []OvertimeDTO    `json:"overtime"`
	Uniforms    []InstallmentDTO `json:"uniforms"`
	PTO         []PTODTO         `json:"pto"`
	Locations   []AllocationDTO  `json:"locations"`
	Summary     SummaryDTO       `json:"summary"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// =============================================================================
// CLOSE
// =============================================================================

// CloseRequest selects orders to hold back from this close.
type CloseRequest struct {
	ExcludedOrderIDs []string `json:"excluded_order_ids,omitempty"`
}

type CloseResultDTO struct {
	RunID          string            `json:"run_id"`
	Payday         string            `json:"payday"`
	OrdersMarked   int               `json:"orders_marked"`
	OrdersExcluded int               `json:"orders_excluded"`
	OrderErrors    map[string]string `json:"order_errors,omitempty"`
	UniformTotal   string            `json:"uniform_total"`
	PTOPaid        []string          `json:"pto_paid,omitempty"`
	PTOFailed      []string          `json:"pto_failed,omitempty"`
	PTOHours       string            `json:"pto_hours"`
	NextPayday     string            `json:"next_payday"`
	Reclosed       bool              `json:"reclosed"`
	Warnings       []string          `json:"warnings,omitempty"`
}

// =============================================================================
// ORDERS
// =============================================================================

type LineItemDTO struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

type OrderDTO struct {
	OrderID         string        `json:"order_id"`
	EmployeeID      string        `json:"employee_id"`
	EmployeeName    string        `json:"employee_name"`
	Location        string        `json:"location"`
	TotalCost       string        `json:"total_cost"`
	ScheduleCount   int           `json:"schedule_count"`
	FirstDeduction  string        `json:"first_deduction,omitempty"`
	ChecksCompleted int           `json:"checks_completed"`
	Status          string        `json:"status"`
	Notes           string        `json:"notes,omitempty"`
	Items           []LineItemDTO `json:"items,omitempty"`
	Schedule        []string      `json:"schedule,omitempty"`
	PerInstallment  string        `json:"per_installment"`
}

// CreateOrderRequest creates a uniform order. TotalCost may be omitted when
// line items are present; it then defaults to their sum.
type CreateOrderRequest struct {
	EmployeeID     string        `json:"employee_id"`
	EmployeeName   string        `json:"employee_name"`
	Location       string        `json:"location"`
	TotalCost      string        `json:"total_cost,omitempty"`
	ScheduleCount  int           `json:"schedule_count"`
	FirstDeduction string        `json:"first_deduction,omitempty"`
	Items          []LineItemDTO `json:"items,omitempty"`
}

// SkipRequest pushes an order's schedule one cycle forward.
type SkipRequest struct {
	EffectiveDate string `json:"effective_date,omitempty"` // defaults to today
}

// =============================================================================
// SETTINGS & ERRORS
// =============================================================================

type SettingDTO struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toReportDTO(report payroll.CycleReport) ReportDTO {
	dto := ReportDTO{
		Payday:      report.Payday.String(),
		PeriodStart: report.Period.Start.String(),
		PeriodEnd:   report.Period.End.String(),
		Overtime:    make([]OvertimeDTO, 0, len(report.Overtime)),
		Uniforms:    make([]InstallmentDTO, 0, len(report.Uniforms)),
		PTO:         make([]PTODTO, 0, len(report.PTO)),
		Locations:   make([]AllocationDTO, 0, len(report.Locations)),
		Summary: SummaryDTO{
			EmployeeCount: report.Summary.EmployeeCount,
			OvertimeHours: report.Summary.OvertimeHours.StringFixed(2),
			UniformTotal:  report.Summary.UniformTotal.StringFixed(2),
			PTOHours:      report.Summary.PTOHours.StringFixed(2),
			TransferHours: report.Summary.TransferHours.StringFixed(2),
		},
	}
	for _, r := range report.Overtime {
		dto.Overtime = append(dto.Overtime, OvertimeDTO{
			EmployeeID:    r.EmployeeID,
			EmployeeName:  r.EmployeeName,
			Location:      r.Location,
			RegularHours:  r.RegularHours.StringFixed(2),
			OvertimeHours: r.OvertimeHours.StringFixed(2),
			Week1Overtime: r.Week1Overtime.StringFixed(2),
			Week2Overtime: r.Week2Overtime.StringFixed(2),
			MultiLocation: r.MultiLocation,
		})
	}
	for _, d := range report.Uniforms {
		dto.Uniforms = append(dto.Uniforms, InstallmentDTO{
			OrderID:        d.Order.OrderID,
			EmployeeID:     d.Order.EmployeeID,
			EmployeeName:   d.Order.EmployeeName,
			Location:       d.Order.Location,
			CheckNumber:    d.Index + 1,
			ScheduleCount:  d.Order.ScheduleCount,
			Amount:         d.Amount.StringFixed(2),
			RemainingAfter: d.RemainingAfter.StringFixed(2),
			IsFinal:        d.IsFinal(),
		})
	}
	for _, p := range report.PTO {
		dto.PTO = append(dto.PTO, PTODTO{
			PTOID:          p.PTOID,
			EmployeeID:     p.EmployeeID,
			EmployeeName:   p.EmployeeName,
			Location:       p.Location,
			HoursRequested: p.HoursRequested.StringFixed(2),
			StartDate:      p.StartDate.String(),
			EndDate:        p.EndDate.String(),
			Status:         string(p.Status),
		})
	}
	for _, l := range report.Locations {
		dto.Locations = append(dto.Locations, AllocationDTO{
			EmployeeID:   l.EmployeeID,
			EmployeeName: l.EmployeeName,
			PaidFrom:     l.PaidFrom,
			LocationA: SplitDTO{
				Location: l.LocationA.Location,
				Regular:  l.LocationA.Regular.StringFixed(2),
				Overtime: l.LocationA.Overtime.StringFixed(2),
			},
			LocationB: SplitDTO{
				Location: l.LocationB.Location,
				Regular:  l.LocationB.Regular.StringFixed(2),
				Overtime: l.LocationB.Overtime.StringFixed(2),
			},
			TransferFrom:  l.TransferFrom,
			TransferTo:    l.TransferTo,
			TransferHours: l.TransferHours.StringFixed(2),
		})
	}
	for _, w := range report.Warnings {
		dto.Warnings = append(dto.Warnings, w.String())
	}
	return dto
}

func toCloseResultDTO(result payroll.CloseResult) CloseResultDTO {
	dto := CloseResultDTO{
		RunID:          result.RunID,
		Payday:         result.Payday.String(),
		OrdersMarked:   result.OrdersMarked,
		OrdersExcluded: result.OrdersExcluded,
		UniformTotal:   result.UniformTotal.StringFixed(2),
		PTOPaid:        result.PTOPaid,
		PTOFailed:      result.PTOFailed,
		PTOHours:       result.PTOHours.StringFixed(2),
		NextPayday:     result.NextPayday.String(),
		Reclosed:       result.Reclosed,
		Warnings:       result.Warnings,
	}
	if len(result.OrderErrors) > 0 {
		dto.OrderErrors = make(map[string]string, len(result.OrderErrors))
		for _, oe := range result.OrderErrors {
			dto.OrderErrors[oe.OrderID] = oe.Err
		}
	}
	return dto
}

func toOrderDTO(o payroll.UniformOrder) OrderDTO {
	dto := OrderDTO{
		OrderID:         o.OrderID,
		EmployeeID:      o.EmployeeID,
		EmployeeName:    o.EmployeeName,
		Location:        o.Location,
		TotalCost:       o.TotalCost.StringFixed(2),
		ScheduleCount:   o.ScheduleCount,
		FirstDeduction:  o.FirstDeduction.String(),
		ChecksCompleted: o.ChecksCompleted,
		Status:          string(o.Status),
		Notes:           o.Notes,
		PerInstallment:  payroll.PerInstallment(o).StringFixed(2),
	}
	for _, li := range o.Items {
		dto.Items = append(dto.Items, LineItemDTO{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice.StringFixed(2),
		})
	}
	for _, d := range payroll.InstallmentDates(o) {
		dto.Schedule = append(dto.Schedule, d.String())
	}
	return dto
}
