/*
close.go - Cycle close-out state machine

PURPOSE:
  Commits a payday: records due uniform installments, pays out matched PTO,
  and advances the persisted schedule pointer. The cycle moves
  Scheduled(next) -> Closing -> Closed(payday) -> Scheduled(next+14).

GUARANTEES:
  - At most one close in flight per instance (advisory settings lock,
    released on every exit path).
  - At-most-one-apply per order: a failed update leaves that order
    untouched; failures are collected, the batch continues.
  - Cycle advancement is UNCONDITIONAL: last_payroll_processed and
    next_payroll_date move even when individual obligations failed. A
    cycle is never stuck because one order would not update.

RE-CLOSING:
  Closing an already-closed payday is allowed (legitimate for catching
  stragglers) but logged as a warning. Idempotence comes from the
  installment index guard and the paid_out filter, not from blocking.
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Closer commits cycle close-outs.
type Closer struct {
	stores     Stores
	settings   *Settings
	aggregator *Aggregator
	log        *logrus.Logger
	now        func() time.Time
}

func NewCloser(stores Stores, log *logrus.Logger) *Closer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Closer{
		stores:     stores,
		settings:   NewSettings(stores.Settings),
		aggregator: NewAggregator(stores, log),
		log:        log,
		now:        time.Now,
	}
}

// CloseCycle commits the payday's obligations and advances the schedule.
//
// Fatal errors are limited to an invalid payday, a held close lock, and a
// failure to advance the cycle pointer; everything else is collected on
// the result.
func (c *Closer) CloseCycle(ctx context.Context, payday DayStamp, excludedOrderIDs []string) (CloseResult, error) {
	if payday.IsZero() {
		return CloseResult{}, fmt.Errorf("%w: close requires a target payday", ErrInvalidInput)
	}

	result := CloseResult{
		RunID:        uuid.NewString(),
		Payday:       payday,
		UniformTotal: decimal.Zero,
		PTOHours:     decimal.Zero,
	}
	runLog := c.log.WithFields(logrus.Fields{"run_id": result.RunID, "payday": payday.String()})

	if err := c.settings.AcquireCloseLock(ctx, result.RunID, c.now()); err != nil {
		return result, err
	}
	defer func() {
		if err := c.settings.ReleaseCloseLock(ctx); err != nil {
			runLog.WithError(err).Error("failed to release close lock")
		}
	}()

	// Advisory idempotence check: re-closing is allowed, just visible.
	if last, err := c.settings.Day(ctx, KeyLastProcessed); err == nil && last.AfterOrEqual(payday) {
		result.Reclosed = true
		runLog.WithField("last_processed", last.String()).
			Warn("payday already processed; re-running close for stragglers")
	}

	// Step 1: recompute the same obligation set the review surface showed.
	report, err := c.aggregator.BuildReport(ctx, payday)
	if err != nil {
		return result, err
	}
	for _, w := range report.Warnings {
		result.Warnings = append(result.Warnings, w.String())
	}

	c.markUniforms(ctx, report.Uniforms, excludedOrderIDs, &result, runLog)
	c.payOutPTO(ctx, report.PTO, &result, runLog)

	// Step 4: advance the cycle regardless of step 2/3 outcomes.
	if err := c.advanceCycle(ctx, payday, &result); err != nil {
		runLog.WithError(err).Error("cycle advancement failed")
		return result, err
	}

	runLog.WithFields(logrus.Fields{
		"orders_marked": result.OrdersMarked,
		"order_errors":  len(result.OrderErrors),
		"pto_paid":      len(result.PTOPaid),
		"next_payday":   result.NextPayday.String(),
	}).Info("cycle closed")
	return result, nil
}

// =============================================================================
// STEP 2: UNIFORM ORDERS
// =============================================================================

func (c *Closer) markUniforms(ctx context.Context, due []DueInstallment, excluded []string, result *CloseResult, runLog *logrus.Entry) {
	skip := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}

	for _, inst := range due {
		orderID := inst.Order.OrderID
		if _, ok := skip[orderID]; ok {
			result.OrdersExcluded++
			continue
		}

		note := fmt.Sprintf("Check %d/%d for $%s recorded on %s.",
			inst.Index+1, inst.Order.ScheduleCount, inst.Amount.StringFixed(2), result.Payday)
		err := c.stores.Orders.RecordInstallment(ctx, orderID, inst.Order.ChecksCompleted, note)
		if err != nil {
			// Order left untouched; collect and keep going.
			result.OrderErrors = append(result.OrderErrors, OrderError{OrderID: orderID, Err: err.Error()})
			runLog.WithField("order_id", orderID).WithError(err).Warn("failed to record installment")
			continue
		}
		result.OrdersMarked++
		result.UniformTotal = Round2(result.UniformTotal.Add(inst.Amount))
	}
}

// =============================================================================
// STEP 3: PTO PAYOUTS
// =============================================================================

func (c *Closer) payOutPTO(ctx context.Context, requests []PTORequest, result *CloseResult, runLog *logrus.Entry) {
	if len(requests) == 0 {
		return
	}

	ids := make([]string, 0, len(requests))
	hours := make(map[string]decimal.Decimal, len(requests))
	for _, req := range requests {
		ids = append(ids, req.PTOID)
		hours[req.PTOID] = req.HoursRequested
	}

	batch, err := c.stores.PTO.MarkPaidOut(ctx, ids)
	if err != nil && len(batch.Succeeded) == 0 && len(batch.Failed) == 0 {
		// Whole batch unreachable; report every id as failed.
		batch.Failed = ids
	}
	result.PTOPaid = batch.Succeeded
	result.PTOFailed = batch.Failed
	for _, id := range batch.Succeeded {
		result.PTOHours = result.PTOHours.Add(hours[id])
	}
	if len(batch.Failed) > 0 {
		pf := &PartialFailureError{Op: "pto payout", Succeeded: batch.Succeeded, Failed: batch.Failed}
		result.Warnings = append(result.Warnings, pf.Error())
		runLog.WithField("failed_ids", batch.Failed).Warn("pto payout batch partially failed")
	}
}

// =============================================================================
// STEP 4: ADVANCE
// =============================================================================

func (c *Closer) advanceCycle(ctx context.Context, payday DayStamp, result *CloseResult) error {
	freq, err := c.settings.Frequency(ctx)
	if err != nil {
		if !errors.Is(err, ErrInvalidInput) {
			return err
		}
		freq = DefaultFrequencyDays
	}

	if err := c.settings.SetDay(ctx, KeyLastProcessed, payday); err != nil {
		return fmt.Errorf("advancing %s: %w", KeyLastProcessed, err)
	}
	next := payday.AddDays(freq)
	if err := c.settings.SetDay(ctx, KeyNextPayroll, next); err != nil {
		return fmt.Errorf("advancing %s: %w", KeyNextPayroll, err)
	}
	result.NextPayday = next
	return nil
}
