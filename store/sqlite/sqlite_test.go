/*
sqlite_test.go - Storage contract tests against an in-memory database

Covered behaviors:
  1. Settings, overtime, order, and PTO roundtrips through real SQL
  2. RecordInstallment's conditional-update guard (at-most-one-apply)
  3. MarkPaidOut partial results when an id is missing
  4. Date normalization: date-time strings collapse to calendar days
*/
package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSettings_Roundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "anchor_payday")
	assert.ErrorIs(t, err, payroll.ErrNotFound)

	require.NoError(t, store.Set(ctx, "anchor_payday", "2025-11-28"))
	setting, err := store.Get(ctx, "anchor_payday")
	require.NoError(t, err)
	assert.Equal(t, "2025-11-28", setting.Value)
	assert.False(t, setting.UpdatedAt.IsZero())

	// Upsert replaces in place.
	require.NoError(t, store.Set(ctx, "anchor_payday", "2025-12-12"))
	setting, err = store.Get(ctx, "anchor_payday")
	require.NoError(t, err)
	assert.Equal(t, "2025-12-12", setting.Value)

	require.NoError(t, store.Delete(ctx, "anchor_payday"))
	_, err = store.Get(ctx, "anchor_payday")
	assert.ErrorIs(t, err, payroll.ErrNotFound)
}

func TestOvertime_ByPeriodFiltersAndNormalizes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	payday := payroll.NewDay(2025, time.November, 28)
	period := payroll.PayPeriodFor(payday)

	inPeriod := payroll.OvertimeRecord{
		EmployeeID:     "emp-1",
		EmployeeName:   "Avery Quinn",
		Location:       "Downtown",
		PeriodEnd:      period.End,
		RegularHours:   payroll.Dollars(80),
		OvertimeHours:  payroll.Dollars(5.25),
		LocationAHours: payroll.Dollars(50),
		LocationBHours: payroll.Dollars(35.25),
		MultiLocation:  true,
	}
	outOfPeriod := payroll.OvertimeRecord{
		EmployeeID:   "emp-2",
		EmployeeName: "Blair Osei",
		Location:     "Airport",
		PeriodEnd:    period.End.AddDays(14),
		RegularHours: payroll.Dollars(70),
	}
	require.NoError(t, store.SaveOvertime(ctx, inPeriod, outOfPeriod))

	records, err := store.ByPeriod(ctx, period)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "emp-1", got.EmployeeID)
	assert.True(t, got.PeriodEnd.Equal(period.End))
	assert.Equal(t, "5.25", got.OvertimeHours.StringFixed(2))
	assert.True(t, got.MultiLocation)
}

func TestOvertime_SaveIsUpsertPerPeriod(t *testing.T) {
	// Re-importing the same (employee, period) replaces the snapshot.

	store := newTestStore(t)
	ctx := context.Background()
	periodEnd := payroll.NewDay(2025, time.November, 22)

	record := payroll.OvertimeRecord{
		EmployeeID: "emp-1", EmployeeName: "Avery Quinn", Location: "Downtown",
		PeriodEnd: periodEnd, OvertimeHours: payroll.Dollars(3),
	}
	require.NoError(t, store.SaveOvertime(ctx, record))
	record.OvertimeHours = payroll.Dollars(7.5)
	require.NoError(t, store.SaveOvertime(ctx, record))

	period := payroll.PayPeriod{Start: periodEnd.AddDays(-13), End: periodEnd}
	records, err := store.ByPeriod(ctx, period)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "7.50", records[0].OvertimeHours.StringFixed(2))
}

func TestOrders_CreateAndReadBackWithLineItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	order := payroll.UniformOrder{
		OrderID:        "ord-1",
		EmployeeID:     "emp-1",
		EmployeeName:   "Avery Quinn",
		Location:       "Downtown",
		TotalCost:      payroll.Dollars(100),
		ScheduleCount:  3,
		FirstDeduction: payroll.NewDay(2025, time.November, 28),
		Status:         payroll.OrderActive,
		Items: []payroll.OrderLineItem{
			{Description: "Work shirt", Quantity: 3, UnitPrice: payroll.Dollars(19.99)},
			{Description: "Apron", Quantity: 1, UnitPrice: payroll.Dollars(12.50)},
		},
	}
	require.NoError(t, store.Create(ctx, order))

	got, err := store.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "100", got.TotalCost.String())
	assert.True(t, got.FirstDeduction.Equal(order.FirstDeduction))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Work shirt", got.Items[0].Description)
	assert.Equal(t, "72.47", got.ItemsTotal().StringFixed(2))

	_, err = store.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, payroll.ErrNotFound)
}

func TestOrders_ActiveOrdersExcludesTerminal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	active := payroll.UniformOrder{
		OrderID: "ord-active", EmployeeID: "e1", EmployeeName: "Avery Quinn",
		TotalCost: payroll.Dollars(50), ScheduleCount: 2, Status: payroll.OrderActive,
	}
	closed := payroll.UniformOrder{
		OrderID: "ord-closed", EmployeeID: "e2", EmployeeName: "Blair Osei",
		TotalCost: payroll.Dollars(50), ScheduleCount: 2, ChecksCompleted: 2,
		Status: payroll.OrderClosed,
	}
	require.NoError(t, store.Create(ctx, active))
	require.NoError(t, store.Create(ctx, closed))

	orders, err := store.ActiveOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "ord-active", orders[0].OrderID)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRecordInstallment_ConditionalGuard(t *testing.T) {
	// GIVEN: An order read at checks_completed = 0
	// WHEN: Two apply attempts race with the same expected value
	// THEN: Exactly one applies; the loser gets ErrInvalidState

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, payroll.UniformOrder{
		OrderID: "ord-1", EmployeeID: "e1", EmployeeName: "Avery Quinn",
		TotalCost: payroll.Dollars(100), ScheduleCount: 3,
		FirstDeduction: payroll.NewDay(2025, time.November, 28),
		Status:         payroll.OrderActive,
	}))

	require.NoError(t, store.RecordInstallment(ctx, "ord-1", 0, "Check 1/3 for $33.33 recorded on 2025-11-28."))
	err := store.RecordInstallment(ctx, "ord-1", 0, "duplicate apply")
	assert.ErrorIs(t, err, payroll.ErrInvalidState)

	got, err := store.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ChecksCompleted)
	assert.Equal(t, "Check 1/3 for $33.33 recorded on 2025-11-28.", got.Notes)
	assert.Equal(t, payroll.OrderActive, got.Status)
}

func TestRecordInstallment_FinalCheckClosesOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, payroll.UniformOrder{
		OrderID: "ord-1", EmployeeID: "e1", EmployeeName: "Avery Quinn",
		TotalCost: payroll.Dollars(100), ScheduleCount: 2,
		Status: payroll.OrderActive,
	}))

	require.NoError(t, store.RecordInstallment(ctx, "ord-1", 0, "first"))
	require.NoError(t, store.RecordInstallment(ctx, "ord-1", 1, "second"))

	got, err := store.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, payroll.OrderClosed, got.Status)
	assert.Equal(t, 2, got.ChecksCompleted)
	assert.Equal(t, "first second", got.Notes)

	// A closed order rejects further installments.
	err = store.RecordInstallment(ctx, "ord-1", 2, "third")
	assert.ErrorIs(t, err, payroll.ErrInvalidState)

	// A missing order is NotFound, not InvalidState.
	err = store.RecordInstallment(ctx, "missing", 0, "")
	assert.ErrorIs(t, err, payroll.ErrNotFound)
}

func TestUpdateSchedule_RewritesDeductionPlan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, payroll.UniformOrder{
		OrderID: "ord-1", EmployeeID: "e1", EmployeeName: "Avery Quinn",
		TotalCost: payroll.Dollars(100), ScheduleCount: 3,
		FirstDeduction: payroll.NewDay(2025, time.November, 28),
		Status:         payroll.OrderActive,
	}))

	shifted := payroll.NewDay(2025, time.December, 12)
	require.NoError(t, store.UpdateSchedule(ctx, "ord-1", shifted, "Skipped check effective 2025-11-27"))

	got, err := store.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.True(t, got.FirstDeduction.Equal(shifted))
	assert.Equal(t, "Skipped check effective 2025-11-27", got.Notes)

	err = store.UpdateSchedule(ctx, "missing", shifted, "")
	assert.ErrorIs(t, err, payroll.ErrNotFound)
}

func TestPTO_RoundtripAndPayoutMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	payday := payroll.NewDay(2025, time.November, 28)

	require.NoError(t, store.SavePTO(ctx,
		payroll.PTORequest{
			PTOID: "pto-1", EmployeeID: "e1", EmployeeName: "Avery Quinn",
			Location: "Downtown", HoursRequested: payroll.Dollars(16),
			StartDate: payroll.NewDay(2025, time.November, 10),
			EndDate:   payroll.NewDay(2025, time.November, 11),
			PayoutPeriod: payday, Status: payroll.PTOApproved,
		},
		payroll.PTORequest{
			PTOID: "pto-2", EmployeeID: "e2", EmployeeName: "Blair Osei",
			HoursRequested: payroll.Dollars(8),
			PayoutPeriod:   payday.AddDays(14), Status: payroll.PTOApproved,
		},
	))

	requests, err := store.ByPayoutDate(ctx, payday)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "pto-1", requests[0].PTOID)
	assert.Equal(t, "16.00", requests[0].HoursRequested.StringFixed(2))
	assert.False(t, requests[0].PaidOut)
}

func TestMarkPaidOut_PartialBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	payday := payroll.NewDay(2025, time.November, 28)

	require.NoError(t, store.SavePTO(ctx, payroll.PTORequest{
		PTOID: "pto-1", EmployeeID: "e1", EmployeeName: "Avery Quinn",
		HoursRequested: payroll.Dollars(8), PayoutPeriod: payday,
		Status: payroll.PTOApproved,
	}))

	batch, err := store.MarkPaidOut(ctx, []string{"pto-1", "pto-missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"pto-1"}, batch.Succeeded)
	assert.Equal(t, []string{"pto-missing"}, batch.Failed)
	assert.Contains(t, batch.Errs["pto-missing"], "not found")

	requests, err := store.ByPayoutDate(ctx, payday)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.True(t, requests[0].PaidOut)
}

func TestDates_DateTimeStringsCollapseToCalendarDays(t *testing.T) {
	// Legacy rows carry RFC3339 timestamps in date columns; reads normalize
	// them to the same day identity a date-only row has.

	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO overtime_records (employee_id, employee_name, location, period_end, overtime_hours)
		VALUES ('emp-1', 'Avery Quinn', 'Downtown', '2025-11-20T16:45:00Z', '4')`)
	require.NoError(t, err)

	payday := payroll.NewDay(2025, time.November, 28)
	records, err := store.ByPeriod(ctx, payroll.PayPeriodFor(payday))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].PeriodEnd.Equal(payroll.NewDay(2025, time.November, 20)))
}
