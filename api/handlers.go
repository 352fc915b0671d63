/*
handlers.go - HTTP API handlers for the payroll cycle engine

PURPOSE:
  Exposes the scheduling engine via REST. Handles HTTP request/response
  and JSON serialization, delegates everything else to the payroll
  package.

ENDPOINTS:
  Cycle:
    GET    /api/cycle                       Persisted schedule state
    GET    /api/paydays                     Payday series window
    GET    /api/cycles/{date}/report        Obligation report for a payday
    GET    /api/cycles/{date}/report.csv    Same report as CSV
    POST   /api/cycles/{date}/close         Commit the close-out

  Orders:
    GET    /api/orders                      List uniform orders
    POST   /api/orders                      Create order + line items
    GET    /api/orders/{id}                 Order detail with schedule
    POST   /api/orders/{id}/skip            Push schedule one cycle forward

  Settings:
    GET    /api/settings/{name}             Read one setting
    PUT    /api/settings/{name}             Write one setting

ERROR HANDLING:
  400 invalid input, 404 missing record, 409 close lock held or stale
  order state, 500 everything else.

SECURITY NOTE:
  No authentication; all endpoints are public.
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Stores     payroll.Stores
	Settings   *payroll.Settings
	Aggregator *payroll.Aggregator
	Closer     *payroll.Closer
	Log        *logrus.Logger
}

// NewHandler wires the engine components over the given stores.
func NewHandler(stores payroll.Stores, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Stores:     stores,
		Settings:   payroll.NewSettings(stores.Settings),
		Aggregator: payroll.NewAggregator(stores, log),
		Closer:     payroll.NewCloser(stores, log),
		Log:        log,
	}
}

// =============================================================================
// CYCLE HANDLERS
// =============================================================================

// GetCycle returns the persisted schedule state, normalized so the next
// payday is never stale.
func (h *Handler) GetCycle(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.Settings.LoadCycle(r.Context())
	if err != nil {
		if errors.Is(err, payroll.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Payroll anchor is not configured", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load cycle", err)
		return
	}
	cycle = cycle.Normalize(payroll.Today())

	writeJSON(w, http.StatusOK, CycleDTO{
		FrequencyDays:       cycle.FrequencyDays,
		AnchorPayday:        cycle.AnchorPayday.String(),
		NextPayday:          cycle.NextPayday.String(),
		LastProcessedPayday: cycle.LastProcessedPayday.String(),
	})
}

// ListPaydays returns the windowed payday series.
// Query params: history (default 6), future (default 3).
func (h *Handler) ListPaydays(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.Settings.LoadCycle(r.Context())
	if err != nil {
		if errors.Is(err, payroll.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Payroll anchor is not configured", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load cycle", err)
		return
	}

	history := queryInt(r, "history", 6)
	future := queryInt(r, "future", 3)
	series := payroll.PaydaySeries(cycle.AnchorPayday, cycle.FrequencyDays, payroll.Today(), history, future)

	dtos := make([]SeriesEntryDTO, len(series))
	for i, e := range series {
		dtos[i] = SeriesEntryDTO{
			Payday:      e.Payday.String(),
			PeriodStart: e.Period.Start.String(),
			PeriodEnd:   e.Period.End.String(),
			IsCurrent:   e.IsCurrent,
			IsNext:      e.IsNext,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetReport builds the obligation report for one payday.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// CloseCycle commits the payday's obligations and advances the schedule.
func (h *Handler) CloseCycle(w http.ResponseWriter, r *http.Request) {
	payday, err := payroll.ParseDay(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payday", err)
		return
	}

	var req CloseRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	result, err := h.Closer.CloseCycle(r.Context(), payday, req.ExcludedOrderIDs)
	if err != nil {
		switch {
		case errors.Is(err, payroll.ErrCloseInProgress):
			writeError(w, http.StatusConflict, "A close is already in progress", err)
		case errors.Is(err, payroll.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Invalid close request", err)
		default:
			writeError(w, http.StatusInternalServerError, "Close failed", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toCloseResultDTO(result))
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// ListOrders returns all uniform orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Stores.Orders.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list orders", err)
		return
	}
	dtos := make([]OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = toOrderDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOrder returns one order with its computed schedule.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Stores.Orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, payroll.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Order not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

// CreateOrder creates a uniform order with its line items.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" || req.ScheduleCount <= 0 {
		writeError(w, http.StatusBadRequest, "employee_id and a positive schedule_count are required", nil)
		return
	}

	order := payroll.UniformOrder{
		OrderID:       uuid.NewString(),
		EmployeeID:    req.EmployeeID,
		EmployeeName:  req.EmployeeName,
		Location:      req.Location,
		ScheduleCount: req.ScheduleCount,
		Status:        payroll.OrderActive,
	}
	for _, li := range req.Items {
		price, err := decimal.NewFromString(li.UnitPrice)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid unit price %q", li.UnitPrice), err)
			return
		}
		order.Items = append(order.Items, payroll.OrderLineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   price,
		})
	}

	// Total defaults to the line-item sum when omitted.
	if req.TotalCost != "" {
		total, err := decimal.NewFromString(req.TotalCost)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid total cost %q", req.TotalCost), err)
			return
		}
		order.TotalCost = total
	} else {
		order.TotalCost = order.ItemsTotal()
	}
	if !order.TotalCost.IsPositive() {
		writeError(w, http.StatusBadRequest, "Order total must be positive", nil)
		return
	}

	if req.FirstDeduction != "" {
		first, err := payroll.ParseDay(req.FirstDeduction)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid first deduction date", err)
			return
		}
		order.FirstDeduction = first
	}

	if err := h.Stores.Orders.Create(r.Context(), order); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create order", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(order))
}

// SkipOrder pushes the order's deduction schedule one full cycle forward.
func (h *Handler) SkipOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID := chi.URLParam(r, "id")

	var req SkipRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	effective := payroll.Today()
	if req.EffectiveDate != "" {
		var err error
		if effective, err = payroll.ParseDay(req.EffectiveDate); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid effective date", err)
			return
		}
	}

	order, err := h.Stores.Orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, payroll.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Order not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load order", err)
		return
	}

	skipped, err := payroll.Skip(order, effective)
	if err != nil {
		writeError(w, http.StatusConflict, "Order cannot be skipped", err)
		return
	}
	if err := h.Stores.Orders.UpdateSchedule(ctx, orderID, skipped.FirstDeduction, skipped.Notes); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update order", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"order_id":        orderID,
		"first_deduction": skipped.FirstDeduction.String(),
	}).Info("order schedule skipped one cycle")
	writeJSON(w, http.StatusOK, toOrderDTO(skipped))
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSetting reads one settings value.
func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := h.Stores.Settings.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, payroll.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Setting not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to read setting", err)
		return
	}
	writeJSON(w, http.StatusOK, SettingDTO{
		Name:      setting.Name,
		Value:     setting.Value,
		UpdatedAt: setting.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// PutSetting writes one settings value. Date-typed keys are validated.
func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var dto SettingDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	switch name {
	case payroll.KeyAnchorPayday, payroll.KeyNextPayroll, payroll.KeyLastProcessed:
		if _, err := payroll.ParseDay(dto.Value); err != nil {
			writeError(w, http.StatusBadRequest, "Setting requires a date value", err)
			return
		}
	case payroll.KeyFrequency:
		if n, err := strconv.Atoi(dto.Value); err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Setting requires a positive integer", err)
			return
		}
	case payroll.KeyOTRate:
		if _, err := decimal.NewFromString(dto.Value); err != nil {
			writeError(w, http.StatusBadRequest, "Setting requires a decimal value", err)
			return
		}
	}

	if err := h.Stores.Settings.Set(r.Context(), name, dto.Value); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to write setting", err)
		return
	}
	writeJSON(w, http.StatusOK, SettingDTO{Name: name, Value: dto.Value})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
