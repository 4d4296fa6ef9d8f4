// Package optimization searches the feasible weight simplex for efficient
// portfolios given expected returns and an annualized covariance matrix.
//
// Two strategies live behind the Optimizer interface: a Monte Carlo sampler
// that evaluates random simplex points, and a numeric mean-variance solver
// built on gonum/optimize. The service runs the numeric solve by default and
// degrades to the best sampled point when the solve does not converge.
package optimization

import (
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/risk"
)

// Strategy tags which algorithm produced a set of frontier points.
type Strategy string

const (
	StrategyMonteCarlo   Strategy = "monte_carlo"
	StrategyNumericSolve Strategy = "numeric_solve"
)

// Method values reported on a Result.
const (
	MethodNumericSolve       = "numeric_solve"
	MethodMonteCarloFallback = "monte_carlo_fallback"
)

// FrontierPoint is one evaluated portfolio on or near the efficient frontier.
type FrontierPoint struct {
	Return     float64            `json:"return"`
	Volatility float64            `json:"volatility"`
	Sharpe     float64            `json:"sharpe"`
	Weights    map[string]float64 `json:"weights"`
}

// AssetMetric carries the standalone (return, volatility) of a single asset.
type AssetMetric struct {
	Ticker     string  `json:"ticker"`
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
}

// Result is the full optimizer output.
type Result struct {
	Frontier      []FrontierPoint `json:"frontier"`
	Cloud         []FrontierPoint `json:"cloud,omitempty"`
	MaxSharpe     FrontierPoint   `json:"max_sharpe"`
	MinVolatility FrontierPoint   `json:"min_volatility"`
	Current       *FrontierPoint  `json:"current,omitempty"`
	AssetMetrics  []AssetMetric   `json:"asset_metrics"`
	Method        string          `json:"method"`
}

// Inputs bundles what every strategy needs: the ticker order, the expected
// return vector and the annualized covariance matrix in that same order.
type Inputs struct {
	Tickers         []string
	ExpectedReturns []float64
	Covariance      risk.Matrix
	RiskFreeRate    float64
}

// Optimizer is implemented by both search strategies.
type Optimizer interface {
	Strategy() Strategy
	Optimize(in Inputs) ([]FrontierPoint, error)
}
