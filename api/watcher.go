/*
watcher.go - Background cycle watcher

PURPOSE:
  Periodically normalizes the persisted schedule so next_payroll_date
  never goes stale, and logs when a payday has arrived and a close-out is
  still pending. It never closes a cycle on its own; closing stays a
  reviewed, explicit operation.

CONFIGURATION:
  - CheckInterval: how often to check (default: 1 hour)
  - Enabled: whether the watcher is active (default: true)

USAGE:
  watcher := NewCycleWatcher(handler)
  watcher.Start()
  // ... later
  watcher.Stop()
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/payroll"
)

// CycleWatcher keeps the stored schedule pointer fresh.
type CycleWatcher struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewCycleWatcher creates a watcher over the handler's settings.
func NewCycleWatcher(h *Handler) *CycleWatcher {
	return &CycleWatcher{
		Handler:       h,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the watcher.
func (cw *CycleWatcher) Start() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.Enabled {
		cw.Handler.Log.Info("cycle watcher disabled, not starting")
		return
	}

	cw.ticker = time.NewTicker(cw.CheckInterval)
	cw.wg.Add(1)
	go cw.run()

	cw.Handler.Log.WithField("interval", cw.CheckInterval.String()).Info("cycle watcher started")
}

// Stop stops the watcher.
func (cw *CycleWatcher) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.ticker != nil {
		cw.ticker.Stop()
		close(cw.stop)
		cw.wg.Wait()
		cw.Handler.Log.Info("cycle watcher stopped")
	}
}

func (cw *CycleWatcher) run() {
	defer cw.wg.Done()

	// Run immediately on start
	cw.check()

	for {
		select {
		case <-cw.ticker.C:
			cw.check()
		case <-cw.stop:
			return
		}
	}
}

func (cw *CycleWatcher) check() {
	ctx := context.Background()
	log := cw.Handler.Log
	today := payroll.Today()

	cycle, err := cw.Handler.Settings.LoadCycle(ctx)
	if err != nil {
		// Unconfigured instances are normal before first setup.
		log.WithError(err).Debug("cycle watcher: schedule not loadable yet")
		return
	}

	normalized := cycle.Normalize(today)
	if !normalized.NextPayday.Equal(cycle.NextPayday) {
		if err := cw.Handler.Settings.SetDay(ctx, payroll.KeyNextPayroll, normalized.NextPayday); err != nil {
			log.WithError(err).Error("cycle watcher: failed to advance stale next payday")
			return
		}
		log.WithFields(logrus.Fields{
			"was": cycle.NextPayday.String(),
			"now": normalized.NextPayday.String(),
		}).Warn("cycle watcher: stale next payday normalized")
	}

	// A payday inside the last period with no close recorded means a
	// close-out is pending.
	lastDue := normalized.NextPayday.AddDays(-normalized.FrequencyDays)
	if lastDue.BeforeOrEqual(today) && normalized.LastProcessedPayday.Before(lastDue) {
		log.WithField("payday", lastDue.String()).Info("cycle watcher: payday arrived, close-out pending")
	}
}
