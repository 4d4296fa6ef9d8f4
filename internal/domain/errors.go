package domain

import (
	"fmt"
	"time"
)

// ConfigurationError reports an invalid portfolio configuration or a ticker
// without price coverage for the requested window. It is fatal to the
// computation that raised it and carries enough context to fix the input.
type ConfigurationError struct {
	Ticker string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Ticker != "" {
		return fmt.Sprintf("configuration error for %s: %s", e.Ticker, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// DataGapError marks a date missing from one or more required series. The
// engine's policy is exclusion (the date is dropped from outputs); the error
// type exists so callers that opt into stricter handling can detect gaps.
type DataGapError struct {
	Ticker string
	Date   time.Time
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("no price for %s on %s", e.Ticker, e.Date.Format(DateFormat))
}

// OptimizationError reports a numeric solve that failed to converge, e.g. a
// singular covariance matrix or an infeasible constraint set. Callers recover
// by falling back to the Monte Carlo cloud's best observed point.
type OptimizationError struct {
	Strategy string
	Cause    error
}

func (e *OptimizationError) Error() string {
	return fmt.Sprintf("optimization failed (%s): %v", e.Strategy, e.Cause)
}

func (e *OptimizationError) Unwrap() error { return e.Cause }
