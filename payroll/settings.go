/*
settings.go - Typed access to the settings key-value store

PURPOSE:
  Wraps the string-valued SettingsStore with the payroll keys and their
  conventional types (dates, integers, decimals), lazy defaults for missing
  keys, PayCycle load/save, and the advisory close lock.

LAZY INITIALIZATION:
  A missing key with a documented default is installed on first read
  instead of surfacing ErrNotFound. Keys without defaults (the anchor,
  the next payday) do surface ErrNotFound: the instance is unconfigured.
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Settings keys. Values are strings typed by convention.
const (
	KeyAnchorPayday  = "anchor_payday"          // date
	KeyNextPayroll   = "next_payroll_date"      // date
	KeyLastProcessed = "last_payroll_processed" // date
	KeyFrequency     = "payroll_frequency"      // integer days
	KeyOTRate        = "default_ot_rate"        // decimal multiplier
	KeyLocationA     = "location_a_name"        // string
	KeyLocationB     = "location_b_name"        // string
	KeyProcessing    = "payroll_processing"     // advisory close lock
)

// Defaults installed lazily on first read.
const (
	DefaultOTRate    = "1.5"
	DefaultLocationA = "Location A"
	DefaultLocationB = "Location B"
	staleLockAfter   = time.Hour
)

// Settings is the typed view over a SettingsStore.
type Settings struct {
	store SettingsStore
}

func NewSettings(store SettingsStore) *Settings {
	return &Settings{store: store}
}

// =============================================================================
// TYPED ACCESSORS
// =============================================================================

// getOrInit returns the value, installing def when the key is missing and a
// default exists.
func (s *Settings) getOrInit(ctx context.Context, name, def string) (string, error) {
	setting, err := s.store.Get(ctx, name)
	if errors.Is(err, ErrNotFound) && def != "" {
		if err := s.store.Set(ctx, name, def); err != nil {
			return "", err
		}
		return def, nil
	}
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

// Day reads a date-typed key. Missing keys surface ErrNotFound.
func (s *Settings) Day(ctx context.Context, name string) (DayStamp, error) {
	setting, err := s.store.Get(ctx, name)
	if err != nil {
		return DayStamp{}, err
	}
	return ParseDay(setting.Value)
}

// SetDay writes a date-typed key.
func (s *Settings) SetDay(ctx context.Context, name string, d DayStamp) error {
	return s.store.Set(ctx, name, d.String())
}

// Frequency reads the cycle length, defaulting to 14 days.
func (s *Settings) Frequency(ctx context.Context) (int, error) {
	v, err := s.getOrInit(ctx, KeyFrequency, strconv.Itoa(DefaultFrequencyDays))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s %q is not a positive integer", ErrInvalidInput, KeyFrequency, v)
	}
	return n, nil
}

// OTRate reads the overtime multiplier, defaulting to 1.5.
func (s *Settings) OTRate(ctx context.Context) (decimal.Decimal, error) {
	v, err := s.getOrInit(ctx, KeyOTRate, DefaultOTRate)
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a decimal", ErrInvalidInput, KeyOTRate, v)
	}
	return rate, nil
}

// LocationNames reads the two display names, installing defaults.
func (s *Settings) LocationNames(ctx context.Context) (a, b string, err error) {
	if a, err = s.getOrInit(ctx, KeyLocationA, DefaultLocationA); err != nil {
		return "", "", err
	}
	if b, err = s.getOrInit(ctx, KeyLocationB, DefaultLocationB); err != nil {
		return "", "", err
	}
	return a, b, nil
}

// =============================================================================
// PAY CYCLE LOAD / SAVE
// =============================================================================

// LoadCycle assembles the persisted PayCycle. The anchor is required; a
// missing next payday is derived from the anchor.
func (s *Settings) LoadCycle(ctx context.Context) (PayCycle, error) {
	anchor, err := s.Day(ctx, KeyAnchorPayday)
	if err != nil {
		return PayCycle{}, fmt.Errorf("loading %s: %w", KeyAnchorPayday, err)
	}
	freq, err := s.Frequency(ctx)
	if err != nil {
		return PayCycle{}, err
	}

	cycle := PayCycle{FrequencyDays: freq, AnchorPayday: anchor}

	if next, err := s.Day(ctx, KeyNextPayroll); err == nil {
		cycle.NextPayday = next
	} else if !errors.Is(err, ErrNotFound) {
		return PayCycle{}, err
	}
	if last, err := s.Day(ctx, KeyLastProcessed); err == nil {
		cycle.LastProcessedPayday = last
	} else if !errors.Is(err, ErrNotFound) {
		return PayCycle{}, err
	}
	return cycle, nil
}

// SaveCycle persists the schedule pointers.
func (s *Settings) SaveCycle(ctx context.Context, cycle PayCycle) error {
	if err := s.store.Set(ctx, KeyFrequency, strconv.Itoa(cycle.FrequencyDays)); err != nil {
		return err
	}
	if err := s.SetDay(ctx, KeyAnchorPayday, cycle.AnchorPayday); err != nil {
		return err
	}
	if err := s.SetDay(ctx, KeyNextPayroll, cycle.NextPayday); err != nil {
		return err
	}
	if !cycle.LastProcessedPayday.IsZero() {
		if err := s.SetDay(ctx, KeyLastProcessed, cycle.LastProcessedPayday); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// ADVISORY CLOSE LOCK
// =============================================================================

// AcquireCloseLock claims the processing flag for runID. A live lock held
// by another run returns ErrCloseInProgress. A lock older than an hour is
// considered abandoned (crashed run) and is broken.
func (s *Settings) AcquireCloseLock(ctx context.Context, runID string, now time.Time) error {
	setting, err := s.store.Get(ctx, KeyProcessing)
	if err == nil {
		if now.Sub(setting.UpdatedAt) < staleLockAfter {
			return fmt.Errorf("%w: held by run %s", ErrCloseInProgress, setting.Value)
		}
		// Stale lock from a dead run; break it.
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.store.Set(ctx, KeyProcessing, runID)
}

// ReleaseCloseLock drops the processing flag. Safe to call when not held.
func (s *Settings) ReleaseCloseLock(ctx context.Context) error {
	return s.store.Delete(ctx, KeyProcessing)
}
