/*
store.go - Persistence interfaces for settings and obligation records

PURPOSE:
  Defines the boundary between the engine and storage. The engine never
  reaches into a database; it consumes these interfaces. Storage hands
  records back already normalized (DayStamp dates, decimal amounts) so no
  heterogeneous string/date values reach business logic.

IMPLEMENTATIONS:
  store/sqlite:        production SQLite store (all interfaces)
  payroll/store:       in-memory twins for tests and dev

CONCURRENCY:
  Single-writer, cooperative. Aggregation is read-only and may run
  concurrently with itself; CloseCycle holds an advisory settings lock so
  at most one close is in flight per payroll instance.
*/
package payroll

import (
	"context"
	"time"
)

// =============================================================================
// SETTINGS STORE - Named configuration values
// =============================================================================

// Setting is one name/value row. Values are strings typed by convention per
// key (dates as 2006-01-02, integers and decimals as their plain text).
type Setting struct {
	Name      string
	Value     string
	UpdatedAt time.Time
}

// SettingsStore is the key-value settings backend.
type SettingsStore interface {
	// Get returns the setting or ErrNotFound.
	Get(ctx context.Context, name string) (Setting, error)

	// Set upserts a setting and refreshes its UpdatedAt.
	Set(ctx context.Context, name, value string) error

	// Delete removes a setting. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error
}

// =============================================================================
// OBLIGATION RECORD STORES
// =============================================================================

// OvertimeStore reads the immutable per-period overtime snapshots.
type OvertimeStore interface {
	// ByPeriod returns all records whose period-end key falls inside the
	// given pay period.
	ByPeriod(ctx context.Context, period PayPeriod) ([]OvertimeRecord, error)
}

// UniformOrderStore reads and updates uniform orders and their line items.
type UniformOrderStore interface {
	// ActiveOrders returns every order with status Active.
	ActiveOrders(ctx context.Context) ([]UniformOrder, error)

	// List returns all orders regardless of status.
	List(ctx context.Context) ([]UniformOrder, error)

	// GetOrder returns one order with its line items, or ErrNotFound.
	GetOrder(ctx context.Context, orderID string) (UniformOrder, error)

	// Create persists a new order and its line items.
	Create(ctx context.Context, order UniformOrder) error

	// RecordInstallment marks one more check complete, appends the payment
	// note, and closes the order when the schedule is exhausted.
	//
	// AT-MOST-ONE-APPLY: the write succeeds only when the stored
	// checks_completed still equals expectCompleted. A concurrent or
	// repeated apply returns ErrInvalidState and leaves the order
	// untouched, never partially billed.
	RecordInstallment(ctx context.Context, orderID string, expectCompleted int, note string) error

	// UpdateSchedule rewrites the first deduction date and notes
	// (used by skip).
	UpdateSchedule(ctx context.Context, orderID string, firstDeduction DayStamp, notes string) error
}

// BatchResult reports which identifiers a batch write touched.
type BatchResult struct {
	Succeeded []string
	Failed    []string
	Errs      map[string]string // id -> failure reason
}

// PTOStore reads and settles PTO payout requests.
type PTOStore interface {
	// ByPayoutDate returns all requests whose payout period is exactly the
	// given payday, regardless of status. Callers filter with PayableOn.
	ByPayoutDate(ctx context.Context, payday DayStamp) ([]PTORequest, error)

	// MarkPaidOut sets paid_out on the given requests in one batch and
	// reports per-id outcomes. A partial failure is data, not an abort.
	MarkPaidOut(ctx context.Context, ids []string) (BatchResult, error)
}

// Stores bundles the four collaborators the engine consumes.
type Stores struct {
	Settings SettingsStore
	Overtime OvertimeStore
	Orders   UniformOrderStore
	PTO      PTOStore
}
