package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoSnapshot is returned when a snapshot is requested before the first
// tick has published one.
var ErrNoSnapshot = errors.New("no snapshot published yet")

// DataGapError marks a record whose underlying spot or quote was missing.
// The record is dropped and the tick continues.
type DataGapError struct {
	Symbol string
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("no spot price for %s", e.Symbol)
}

// ConvergenceError reports a failed implied-volatility solve. Callers treat
// it as "analytics unavailable for this contract", never as a tick failure.
type ConvergenceError struct {
	Price  float64
	Reason string
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("implied vol solve failed for price %.4f: %s", e.Price, e.Reason)
}

// ConfigError rejects a criteria update. The prior criteria value is
// retained untouched.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid criteria: %s", e.Reason)
	}
	return fmt.Sprintf("invalid criteria field %q: %s", e.Field, e.Reason)
}

// AlreadyRunningError rejects a duplicate start. No state changes.
type AlreadyRunningError struct {
	State string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("monitor already started (state %s)", e.State)
}

// ScheduleOverrunError records a tick that exceeded its interval. It is
// logged as a warning and never propagated.
type ScheduleOverrunError struct {
	Interval time.Duration
	Elapsed  time.Duration
}

func (e *ScheduleOverrunError) Error() string {
	return fmt.Sprintf("tick took %s, interval is %s", e.Elapsed, e.Interval)
}
