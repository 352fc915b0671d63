/*
Package sqlite provides the SQLite-backed implementation of the payroll
storage interfaces.

PURPOSE:
  Implements payroll.SettingsStore, payroll.OvertimeStore,
  payroll.UniformOrderStore, and payroll.PTOStore on one database. The
  same patterns apply to PostgreSQL; only dialect details differ.

NORMALIZATION AT THE BOUNDARY:
  Source data historically mixed date-only and date-time strings. Every
  date column is parsed through payroll.ParseDay on the way in and stored
  as 2006-01-02 on the way out, so business logic only ever sees
  calendar-day values. Money and hours are stored as decimal text, never
  as floats.

KEY TABLES:
  settings:          name -> value with last-updated timestamp
  overtime_records:  immutable per-employee period snapshots
  uniform_orders:    amortized orders (id, employee, total, schedule count,
                     first deduction, checks completed, status, notes)
  order_line_items:  owned children of uniform_orders
  pto_requests:      payout requests keyed by payout period

AT-MOST-ONE-APPLY:
  RecordInstallment is a conditional UPDATE guarded on the current
  checks_completed value. A lost race or a repeat apply affects zero rows
  and returns ErrInvalidState; the order is never partially billed.

WAL MODE:
  Opened with WAL for read concurrency; a mutex serializes writers, which
  matches the engine's single-writer cooperative model.

USAGE:
  db, err := sqlite.New("./data/payroll.db")   // ":memory:" for tests
  stores := db.Stores()
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// Store implements all payroll storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Stores bundles this store for the engine constructors.
func (s *Store) Stores() payroll.Stores {
	return payroll.Stores{Settings: s, Overtime: s, Orders: s, PTO: s}
}

func (s *Store) migrate() error {
	schema := `
	-- Settings (name -> value, typed by convention per key)
	CREATE TABLE IF NOT EXISTS settings (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Overtime snapshots (immutable, written by upstream time tracking)
	CREATE TABLE IF NOT EXISTS overtime_records (
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		location TEXT NOT NULL,
		period_end TEXT NOT NULL,
		location_a_hours TEXT NOT NULL DEFAULT '0',
		location_b_hours TEXT NOT NULL DEFAULT '0',
		regular_hours TEXT NOT NULL DEFAULT '0',
		overtime_hours TEXT NOT NULL DEFAULT '0',
		week1_overtime TEXT NOT NULL DEFAULT '0',
		week2_overtime TEXT NOT NULL DEFAULT '0',
		multi_location INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (employee_id, period_end)
	);

	CREATE INDEX IF NOT EXISTS idx_overtime_period_end
		ON overtime_records(period_end);

	-- Uniform orders
	CREATE TABLE IF NOT EXISTS uniform_orders (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		total_cost TEXT NOT NULL,
		schedule_count INTEGER NOT NULL,
		first_deduction TEXT,
		checks_completed INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'Active',
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_status
		ON uniform_orders(status);

	CREATE TABLE IF NOT EXISTS order_line_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL REFERENCES uniform_orders(id) ON DELETE CASCADE,
		description TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_line_items_order
		ON order_line_items(order_id);

	-- PTO payout requests
	CREATE TABLE IF NOT EXISTS pto_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		hours_requested TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		payout_period TEXT NOT NULL,
		paid_out INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'Pending'
	);

	CREATE INDEX IF NOT EXISTS idx_pto_payout_period
		ON pto_requests(payout_period);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SETTINGS STORE (payroll.SettingsStore)
// =============================================================================

func (s *Store) Get(ctx context.Context, name string) (payroll.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var setting payroll.Setting
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT name, value, updated_at FROM settings WHERE name = ?", name,
	).Scan(&setting.Name, &setting.Value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.Setting{}, fmt.Errorf("setting %q: %w", name, payroll.ErrNotFound)
	}
	if err != nil {
		return payroll.Setting{}, err
	}
	setting.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return setting, nil
}

func (s *Store) Set(ctx context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		name, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE name = ?", name)
	return err
}

// =============================================================================
// OVERTIME STORE (payroll.OvertimeStore)
// =============================================================================

func (s *Store) ByPeriod(ctx context.Context, period payroll.PayPeriod) ([]payroll.OvertimeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, employee_name, location, period_end,
		       location_a_hours, location_b_hours, regular_hours,
		       overtime_hours, week1_overtime, week2_overtime, multi_location
		FROM overtime_records
		WHERE period_end >= ? AND period_end <= ?
		ORDER BY employee_id`,
		period.Start.String(), period.End.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overtime records: %w", err)
	}
	defer rows.Close()

	var records []payroll.OvertimeRecord
	for rows.Next() {
		var (
			r         payroll.OvertimeRecord
			periodEnd string
			hours     [6]string
			multiLoc  int
		)
		err := rows.Scan(&r.EmployeeID, &r.EmployeeName, &r.Location, &periodEnd,
			&hours[0], &hours[1], &hours[2], &hours[3], &hours[4], &hours[5], &multiLoc)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overtime record: %w", err)
		}
		if r.PeriodEnd, err = payroll.ParseDay(periodEnd); err != nil {
			return nil, err
		}
		r.LocationAHours = parseDecimal(hours[0])
		r.LocationBHours = parseDecimal(hours[1])
		r.RegularHours = parseDecimal(hours[2])
		r.OvertimeHours = parseDecimal(hours[3])
		r.Week1Overtime = parseDecimal(hours[4])
		r.Week2Overtime = parseDecimal(hours[5])
		r.MultiLocation = multiLoc != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

// SaveOvertime upserts period snapshots (upstream import path).
func (s *Store) SaveOvertime(ctx context.Context, records ...payroll.OvertimeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO overtime_records (
				employee_id, employee_name, location, period_end,
				location_a_hours, location_b_hours, regular_hours,
				overtime_hours, week1_overtime, week2_overtime, multi_location
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(employee_id, period_end) DO UPDATE SET
				employee_name = excluded.employee_name,
				location = excluded.location,
				location_a_hours = excluded.location_a_hours,
				location_b_hours = excluded.location_b_hours,
				regular_hours = excluded.regular_hours,
				overtime_hours = excluded.overtime_hours,
				week1_overtime = excluded.week1_overtime,
				week2_overtime = excluded.week2_overtime,
				multi_location = excluded.multi_location`,
			r.EmployeeID, r.EmployeeName, r.Location, r.PeriodEnd.String(),
			r.LocationAHours.String(), r.LocationBHours.String(),
			r.RegularHours.String(), r.OvertimeHours.String(),
			r.Week1Overtime.String(), r.Week2Overtime.String(),
			boolToInt(r.MultiLocation),
		)
		if err != nil {
			return fmt.Errorf("failed to save overtime for %s: %w", r.EmployeeID, err)
		}
	}
	return nil
}

// =============================================================================
// UNIFORM ORDER STORE (payroll.UniformOrderStore)
// =============================================================================

const orderColumns = `id, employee_id, employee_name, location, total_cost,
	schedule_count, first_deduction, checks_completed, status, notes`

func (s *Store) ActiveOrders(ctx context.Context) ([]payroll.UniformOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryOrdersLocked(ctx,
		"SELECT "+orderColumns+" FROM uniform_orders WHERE status = ? ORDER BY employee_name",
		string(payroll.OrderActive))
}

func (s *Store) List(ctx context.Context) ([]payroll.UniformOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryOrdersLocked(ctx,
		"SELECT "+orderColumns+" FROM uniform_orders ORDER BY created_at, id")
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (payroll.UniformOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getOrderLocked(ctx, orderID)
}

func (s *Store) Create(ctx context.Context, order payroll.UniformOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	firstDeduction := sql.NullString{}
	if !order.FirstDeduction.IsZero() {
		firstDeduction = sql.NullString{String: order.FirstDeduction.String(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO uniform_orders (
			id, employee_id, employee_name, location, total_cost,
			schedule_count, first_deduction, checks_completed, status, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.OrderID, order.EmployeeID, order.EmployeeName, order.Location,
		order.TotalCost.String(), order.ScheduleCount, firstDeduction,
		order.ChecksCompleted, string(order.Status), order.Notes,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, li := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_line_items (order_id, description, quantity, unit_price)
			VALUES (?, ?, ?, ?)`,
			order.OrderID, li.Description, li.Quantity, li.UnitPrice.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) RecordInstallment(ctx context.Context, orderID string, expectCompleted int, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Conditional update: applies only while checks_completed is still the
	// value the caller computed against, and closes the order when the
	// schedule is exhausted. A lost race affects zero rows.
	appendNote := note
	if appendNote != "" {
		appendNote = " " + appendNote
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE uniform_orders SET
			checks_completed = checks_completed + 1,
			notes = CASE WHEN notes = '' THEN ? ELSE notes || ? END,
			status = CASE WHEN checks_completed + 1 >= schedule_count THEN 'Closed' ELSE status END
		WHERE id = ? AND checks_completed = ? AND status = 'Active'`,
		note, appendNote, orderID, expectCompleted,
	)
	if err != nil {
		return fmt.Errorf("failed to record installment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := s.getOrderLocked(ctx, orderID); errors.Is(err, payroll.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: order %s changed since it was read", payroll.ErrInvalidState, orderID)
	}
	return nil
}

func (s *Store) UpdateSchedule(ctx context.Context, orderID string, firstDeduction payroll.DayStamp, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE uniform_orders SET first_deduction = ?, notes = ? WHERE id = ?",
		firstDeduction.String(), notes, orderID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("order %q: %w", orderID, payroll.ErrNotFound)
	}
	return nil
}

func (s *Store) getOrderLocked(ctx context.Context, orderID string) (payroll.UniformOrder, error) {
	orders, err := s.queryOrdersLocked(ctx,
		"SELECT "+orderColumns+" FROM uniform_orders WHERE id = ?", orderID)
	if err != nil {
		return payroll.UniformOrder{}, err
	}
	if len(orders) == 0 {
		return payroll.UniformOrder{}, fmt.Errorf("order %q: %w", orderID, payroll.ErrNotFound)
	}
	return orders[0], nil
}

func (s *Store) queryOrdersLocked(ctx context.Context, query string, args ...any) ([]payroll.UniformOrder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []payroll.UniformOrder
	for rows.Next() {
		var (
			o              payroll.UniformOrder
			totalCost      string
			firstDeduction sql.NullString
			status         string
		)
		err := rows.Scan(&o.OrderID, &o.EmployeeID, &o.EmployeeName, &o.Location,
			&totalCost, &o.ScheduleCount, &firstDeduction, &o.ChecksCompleted,
			&status, &o.Notes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.TotalCost = parseDecimal(totalCost)
		o.Status = payroll.OrderStatus(status)
		if firstDeduction.Valid && firstDeduction.String != "" {
			if o.FirstDeduction, err = payroll.ParseDay(firstDeduction.String); err != nil {
				return nil, err
			}
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := s.lineItemsLocked(ctx, orders[i].OrderID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (s *Store) lineItemsLocked(ctx context.Context, orderID string) ([]payroll.OrderLineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT description, quantity, unit_price FROM order_line_items WHERE order_id = ? ORDER BY id",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	var items []payroll.OrderLineItem
	for rows.Next() {
		var li payroll.OrderLineItem
		var unitPrice string
		if err := rows.Scan(&li.Description, &li.Quantity, &unitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		li.UnitPrice = parseDecimal(unitPrice)
		items = append(items, li)
	}
	return items, rows.Err()
}

// =============================================================================
// PTO STORE (payroll.PTOStore)
// =============================================================================

func (s *Store) ByPayoutDate(ctx context.Context, payday payroll.DayStamp) ([]payroll.PTORequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, employee_name, location, hours_requested,
		       start_date, end_date, payout_period, paid_out, status
		FROM pto_requests
		WHERE payout_period = ?
		ORDER BY employee_name`,
		payday.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pto requests: %w", err)
	}
	defer rows.Close()

	var requests []payroll.PTORequest
	for rows.Next() {
		var (
			r                    payroll.PTORequest
			hours                string
			startDate, endDate   sql.NullString
			payoutPeriod, status string
			paidOut              int
		)
		err := rows.Scan(&r.PTOID, &r.EmployeeID, &r.EmployeeName, &r.Location,
			&hours, &startDate, &endDate, &payoutPeriod, &paidOut, &status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pto request: %w", err)
		}
		r.HoursRequested = parseDecimal(hours)
		if startDate.Valid && startDate.String != "" {
			r.StartDate, _ = payroll.ParseDay(startDate.String)
		}
		if endDate.Valid && endDate.String != "" {
			r.EndDate, _ = payroll.ParseDay(endDate.String)
		}
		if r.PayoutPeriod, err = payroll.ParseDay(payoutPeriod); err != nil {
			return nil, err
		}
		r.PaidOut = paidOut != 0
		r.Status = payroll.PTOStatus(status)
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (s *Store) MarkPaidOut(ctx context.Context, ids []string) (payroll.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := payroll.BatchResult{Errs: make(map[string]string)}
	for _, id := range ids {
		res, err := s.db.ExecContext(ctx,
			"UPDATE pto_requests SET paid_out = 1 WHERE id = ?", id)
		if err != nil {
			result.Failed = append(result.Failed, id)
			result.Errs[id] = err.Error()
			continue
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			result.Failed = append(result.Failed, id)
			result.Errs[id] = payroll.ErrNotFound.Error()
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

// SavePTO upserts payout requests (upstream import path).
func (s *Store) SavePTO(ctx context.Context, requests ...payroll.PTORequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range requests {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO pto_requests (
				id, employee_id, employee_name, location, hours_requested,
				start_date, end_date, payout_period, paid_out, status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				employee_id = excluded.employee_id,
				employee_name = excluded.employee_name,
				location = excluded.location,
				hours_requested = excluded.hours_requested,
				start_date = excluded.start_date,
				end_date = excluded.end_date,
				payout_period = excluded.payout_period,
				paid_out = excluded.paid_out,
				status = excluded.status`,
			r.PTOID, r.EmployeeID, r.EmployeeName, r.Location,
			r.HoursRequested.String(), r.StartDate.String(), r.EndDate.String(),
			r.PayoutPeriod.String(), boolToInt(r.PaidOut), string(r.Status),
		)
		if err != nil {
			return fmt.Errorf("failed to save pto request %s: %w", r.PTOID, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
