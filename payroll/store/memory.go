// Package store provides in-memory implementations of the payroll storage
// interfaces, used by tests and development servers.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - Implements all four storage interfaces
// =============================================================================

// Memory backs every store interface with maps. Failure hooks let tests
// exercise the partial-failure paths without a real database.
type Memory struct {
	mu       sync.RWMutex
	settings map[string]payroll.Setting
	overtime []payroll.OvertimeRecord
	orders   map[string]payroll.UniformOrder
	pto      map[string]payroll.PTORequest

	failOrders  map[string]error // order id -> injected failure
	failPTO     map[string]error // pto id -> injected failure
	failSources map[string]error // "overtime"|"uniforms"|"pto" -> injected failure
}

func NewMemory() *Memory {
	return &Memory{
		settings:    make(map[string]payroll.Setting),
		orders:      make(map[string]payroll.UniformOrder),
		pto:         make(map[string]payroll.PTORequest),
		failOrders:  make(map[string]error),
		failPTO:     make(map[string]error),
		failSources: make(map[string]error),
	}
}

// Stores bundles the memory store for engine constructors.
func (m *Memory) Stores() payroll.Stores {
	return payroll.Stores{Settings: m, Overtime: m, Orders: m, PTO: m}
}

// =============================================================================
// SEEDING AND FAILURE INJECTION
// =============================================================================

func (m *Memory) AddOvertime(records ...payroll.OvertimeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overtime = append(m.overtime, records...)
}

func (m *Memory) AddOrders(orders ...payroll.UniformOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		m.orders[o.OrderID] = o
	}
}

func (m *Memory) AddPTO(requests ...payroll.PTORequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range requests {
		m.pto[r.PTOID] = r
	}
}

// FailOrderUpdate makes RecordInstallment fail for one order.
func (m *Memory) FailOrderUpdate(orderID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOrders[orderID] = err
}

// FailPTOUpdate makes MarkPaidOut fail for one request.
func (m *Memory) FailPTOUpdate(ptoID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPTO[ptoID] = err
}

// FailSource makes a whole read source fail ("overtime", "uniforms", "pto").
func (m *Memory) FailSource(source string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSources[source] = err
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

func (m *Memory) Get(_ context.Context, name string) (payroll.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	setting, ok := m.settings[name]
	if !ok {
		return payroll.Setting{}, fmt.Errorf("setting %q: %w", name, payroll.ErrNotFound)
	}
	return setting, nil
}

func (m *Memory) Set(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[name] = payroll.Setting{Name: name, Value: value, UpdatedAt: time.Now().UTC()}
	return nil
}

func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, name)
	return nil
}

// SetUpdatedAt backdates a setting's timestamp (stale-lock tests).
func (m *Memory) SetUpdatedAt(name string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.settings[name]; ok {
		s.UpdatedAt = at
		m.settings[name] = s
	}
}

// =============================================================================
// OVERTIME STORE
// =============================================================================

func (m *Memory) ByPeriod(_ context.Context, period payroll.PayPeriod) ([]payroll.OvertimeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failSources["overtime"]; err != nil {
		return nil, err
	}
	var out []payroll.OvertimeRecord
	for _, r := range m.overtime {
		if period.Contains(r.PeriodEnd) {
			out = append(out, r)
		}
	}
	return out, nil
}

// =============================================================================
// UNIFORM ORDER STORE
// =============================================================================

func (m *Memory) ActiveOrders(_ context.Context) ([]payroll.UniformOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failSources["uniforms"]; err != nil {
		return nil, err
	}
	var out []payroll.UniformOrder
	for _, o := range m.orders {
		if o.Status == payroll.OrderActive {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *Memory) List(_ context.Context) ([]payroll.UniformOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]payroll.UniformOrder, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, nil
}

func (m *Memory) GetOrder(ctx context.Context, orderID string) (payroll.UniformOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	if !ok {
		return payroll.UniformOrder{}, fmt.Errorf("order %q: %w", orderID, payroll.ErrNotFound)
	}
	return o, nil
}

func (m *Memory) Create(_ context.Context, order payroll.UniformOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.OrderID]; exists {
		return fmt.Errorf("%w: order %q already exists", payroll.ErrInvalidInput, order.OrderID)
	}
	m.orders[order.OrderID] = order
	return nil
}

func (m *Memory) RecordInstallment(_ context.Context, orderID string, expectCompleted int, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failOrders[orderID]; err != nil {
		return err
	}
	o, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("order %q: %w", orderID, payroll.ErrNotFound)
	}
	if o.ChecksCompleted != expectCompleted {
		return fmt.Errorf("%w: order %s checks completed moved from %d", payroll.ErrInvalidState, orderID, expectCompleted)
	}

	o.ChecksCompleted++
	if note != "" {
		if o.Notes != "" {
			o.Notes += " "
		}
		o.Notes += note
	}
	if o.ChecksCompleted >= o.ScheduleCount {
		o.Status = payroll.OrderClosed
	}
	m.orders[orderID] = o
	return nil
}

func (m *Memory) UpdateSchedule(_ context.Context, orderID string, firstDeduction payroll.DayStamp, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("order %q: %w", orderID, payroll.ErrNotFound)
	}
	o.FirstDeduction = firstDeduction
	o.Notes = notes
	m.orders[orderID] = o
	return nil
}

// =============================================================================
// PTO STORE
// =============================================================================

func (m *Memory) ByPayoutDate(_ context.Context, payday payroll.DayStamp) ([]payroll.PTORequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failSources["pto"]; err != nil {
		return nil, err
	}
	var out []payroll.PTORequest
	for _, r := range m.pto {
		if r.PayoutPeriod.Equal(payday) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) MarkPaidOut(_ context.Context, ids []string) (payroll.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := payroll.BatchResult{Errs: make(map[string]string)}
	for _, id := range ids {
		if err := m.failPTO[id]; err != nil {
			result.Failed = append(result.Failed, id)
			result.Errs[id] = err.Error()
			continue
		}
		r, ok := m.pto[id]
		if !ok {
			result.Failed = append(result.Failed, id)
			result.Errs[id] = payroll.ErrNotFound.Error()
			continue
		}
		r.PaidOut = true
		m.pto[id] = r
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

// GetPTO reads one request back (test assertions).
func (m *Memory) GetPTO(ptoID string) (payroll.PTORequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.pto[ptoID]
	return r, ok
}
