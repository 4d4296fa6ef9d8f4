// Package domain holds the value objects shared by the analytics engine.
// Everything here is immutable by convention: functions receive snapshots
// and allocate fresh outputs, so independent analyses can run concurrently
// without shared state.
package domain

import (
	"sort"
	"time"
)

// DateFormat is the canonical date layout used throughout the system.
const DateFormat = "2006-01-02"

// PricePoint is a single adjusted daily closing price.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries maps a ticker to its ordered (ascending, duplicate-free)
// sequence of daily price points. It is created wholesale by the price
// store and treated as read-only by every consumer.
type PriceSeries map[string][]PricePoint

// Tickers returns the tickers present in the series, sorted.
func (ps PriceSeries) Tickers() []string {
	tickers := make([]string, 0, len(ps))
	for t := range ps {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// PriceOn returns the closing price for ticker on the given date.
func (ps PriceSeries) PriceOn(ticker string, date time.Time) (float64, bool) {
	points := ps[ticker]
	i := sort.Search(len(points), func(i int) bool {
		return !points[i].Date.Before(date)
	})
	if i < len(points) && points[i].Date.Equal(date) {
		return points[i].Close, true
	}
	return 0, false
}

// FirstOnOrAfter returns the first available price point on or after date.
func (ps PriceSeries) FirstOnOrAfter(ticker string, date time.Time) (PricePoint, bool) {
	points := ps[ticker]
	i := sort.Search(len(points), func(i int) bool {
		return !points[i].Date.Before(date)
	})
	if i < len(points) {
		return points[i], true
	}
	return PricePoint{}, false
}

// AssetDefinition describes one holding of a portfolio configuration.
type AssetDefinition struct {
	Ticker       string  `json:"ticker"`
	Name         string  `json:"name"`
	AssetClass   string  `json:"asset_class"`
	TargetWeight float64 `json:"target_weight"`
}

// PortfolioConfig is a set of asset definitions whose target weights sum
// to 1, plus the capital deployed at the valuation start date. The target
// weights are fixed; realized weights drift as prices move (buy-and-hold).
type PortfolioConfig struct {
	Assets         []AssetDefinition `json:"assets"`
	InitialCapital float64           `json:"initial_capital"`
}

// WeightSumTolerance is the allowed deviation of Σ target weights from 1.
const WeightSumTolerance = 1e-3

// Validate checks the structural invariants of the configuration.
func (pc PortfolioConfig) Validate() error {
	if len(pc.Assets) == 0 {
		return &ConfigurationError{Reason: "portfolio has no assets"}
	}
	if pc.InitialCapital <= 0 {
		return &ConfigurationError{Reason: "initial capital must be positive"}
	}
	seen := make(map[string]bool, len(pc.Assets))
	sum := 0.0
	for _, a := range pc.Assets {
		if a.Ticker == "" {
			return &ConfigurationError{Reason: "asset with empty ticker"}
		}
		if seen[a.Ticker] {
			return &ConfigurationError{Ticker: a.Ticker, Reason: "duplicate ticker"}
		}
		seen[a.Ticker] = true
		if a.TargetWeight < 0 || a.TargetWeight > 1 {
			return &ConfigurationError{Ticker: a.Ticker, Reason: "target weight outside [0,1]"}
		}
		sum += a.TargetWeight
	}
	if sum < 1-WeightSumTolerance || sum > 1+WeightSumTolerance {
		return &ConfigurationError{Reason: "target weights do not sum to 1"}
	}
	return nil
}

// Tickers returns the configured tickers in declaration order.
func (pc PortfolioConfig) Tickers() []string {
	tickers := make([]string, len(pc.Assets))
	for i, a := range pc.Assets {
		tickers[i] = a.Ticker
	}
	return tickers
}

// Weights returns the target weight vector keyed by ticker.
func (pc PortfolioConfig) Weights() map[string]float64 {
	weights := make(map[string]float64, len(pc.Assets))
	for _, a := range pc.Assets {
		weights[a.Ticker] = a.TargetWeight
	}
	return weights
}

// ValuePoint is one observation of total portfolio value.
type ValuePoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// ValueSeries is an ordered portfolio value trajectory.
type ValueSeries []ValuePoint

// Values extracts the raw value column.
func (vs ValueSeries) Values() []float64 {
	out := make([]float64, len(vs))
	for i, p := range vs {
		out[i] = p.Value
	}
	return out
}

// First returns the first point of the series.
func (vs ValueSeries) First() ValuePoint {
	return vs[0]
}

// Last returns the last point of the series.
func (vs ValueSeries) Last() ValuePoint {
	return vs[len(vs)-1]
}
