/*
settings_test.go - Specification tests for the typed settings view

Covered behaviors:
  1. Missing keys with defaults are installed lazily on first read
  2. Keys without defaults surface ErrNotFound
  3. PayCycle load/save roundtrip
  4. Advisory close lock acquire/release and stale-break
*/
package payroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

func TestSettings_LazyDefaults(t *testing.T) {
	mem := store.NewMemory()
	settings := payroll.NewSettings(mem)
	ctx := context.Background()

	freq, err := settings.Frequency(ctx)
	require.NoError(t, err)
	assert.Equal(t, 14, freq)

	rate, err := settings.OTRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.5", rate.String())

	a, b, err := settings.LocationNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Location A", a)
	assert.Equal(t, "Location B", b)

	// The defaults were installed, not just returned.
	stored, err := mem.Get(ctx, payroll.KeyFrequency)
	require.NoError(t, err)
	assert.Equal(t, "14", stored.Value)
}

func TestSettings_KeysWithoutDefaultsSurfaceNotFound(t *testing.T) {
	settings := payroll.NewSettings(store.NewMemory())

	_, err := settings.Day(context.Background(), payroll.KeyAnchorPayday)
	assert.ErrorIs(t, err, payroll.ErrNotFound)
}

func TestSettings_MalformedValuesAreInvalidInput(t *testing.T) {
	mem := store.NewMemory()
	settings := payroll.NewSettings(mem)
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, payroll.KeyFrequency, "every other friday"))
	_, err := settings.Frequency(ctx)
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)

	require.NoError(t, mem.Set(ctx, payroll.KeyFrequency, "-7"))
	_, err = settings.Frequency(ctx)
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)

	require.NoError(t, mem.Set(ctx, payroll.KeyOTRate, "time and a half"))
	_, err = settings.OTRate(ctx)
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)
}

func TestSettings_CycleRoundtrip(t *testing.T) {
	mem := store.NewMemory()
	settings := payroll.NewSettings(mem)
	ctx := context.Background()

	saved := payroll.PayCycle{
		FrequencyDays:       14,
		AnchorPayday:        payroll.NewDay(2025, time.November, 28),
		NextPayday:          payroll.NewDay(2025, time.December, 12),
		LastProcessedPayday: payroll.NewDay(2025, time.November, 28),
	}
	require.NoError(t, settings.SaveCycle(ctx, saved))

	loaded, err := settings.LoadCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestSettings_LoadCycleWithoutAnchorFails(t *testing.T) {
	_, err := payroll.NewSettings(store.NewMemory()).LoadCycle(context.Background())
	assert.ErrorIs(t, err, payroll.ErrNotFound)
}

func TestSettings_CloseLockLifecycle(t *testing.T) {
	settings := payroll.NewSettings(store.NewMemory())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, settings.AcquireCloseLock(ctx, "run-1", now))

	// A second claimant is refused while the lock is live.
	err := settings.AcquireCloseLock(ctx, "run-2", now.Add(time.Minute))
	assert.ErrorIs(t, err, payroll.ErrCloseInProgress)

	// Released, the lock is free again.
	require.NoError(t, settings.ReleaseCloseLock(ctx))
	assert.NoError(t, settings.AcquireCloseLock(ctx, "run-2", now.Add(2*time.Minute)))
}

func TestSettings_StaleCloseLockIsBroken(t *testing.T) {
	// GIVEN: A lock whose holder stopped updating over an hour ago
	// WHEN: A new run tries to acquire
	// THEN: The dead lock is broken and ownership transfers

	mem := store.NewMemory()
	settings := payroll.NewSettings(mem)
	ctx := context.Background()

	require.NoError(t, settings.AcquireCloseLock(ctx, "dead-run", time.Now()))
	mem.SetUpdatedAt(payroll.KeyProcessing, time.Now().Add(-90*time.Minute))

	require.NoError(t, settings.AcquireCloseLock(ctx, "run-2", time.Now()))

	holder, err := mem.Get(ctx, payroll.KeyProcessing)
	require.NoError(t, err)
	assert.Equal(t, "run-2", holder.Value)
}

func TestSettings_ReleaseIsSafeWhenNotHeld(t *testing.T) {
	assert.NoError(t, payroll.NewSettings(store.NewMemory()).ReleaseCloseLock(context.Background()))
}
