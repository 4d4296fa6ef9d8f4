// Package rebalancing answers "what if the weights were different": it
// backtests candidate weight vectors against the same price history, prices
// out the cost of moving to a target allocation, and produces a per-asset
// trade plan.
package rebalancing

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/performance"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/valuation"
)

// Trade actions.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// HoldThreshold is the absolute dollar delta under which no trade is planned.
const HoldThreshold = 1.0

// Service simulates alternative allocations and plans rebalancing trades.
type Service struct {
	valuation *valuation.Service
	log       zerolog.Logger
}

// New creates a rebalancing service.
func New(val *valuation.Service, log zerolog.Logger) *Service {
	return &Service{
		valuation: val,
		log:       log.With().Str("component", "rebalancing").Logger(),
	}
}

// Simulate backtests a candidate weight vector with the same buy-and-hold
// algorithm used for the real portfolio. The candidate weights must cover
// the same tickers and sum to one.
func (s *Service) Simulate(prices domain.PriceSeries, cfg domain.PortfolioConfig, candidate map[string]float64, startDate time.Time) (domain.ValueSeries, error) {
	whatIf := cfg
	whatIf.Assets = make([]domain.AssetDefinition, len(cfg.Assets))
	for i, a := range cfg.Assets {
		w, ok := candidate[a.Ticker]
		if !ok {
			return nil, &domain.ConfigurationError{Ticker: a.Ticker, Reason: "candidate weights missing ticker"}
		}
		a.TargetWeight = w
		whatIf.Assets[i] = a
	}
	return s.valuation.ComputeValue(prices, whatIf, startDate)
}

// MetricDeltas holds what-if-minus-realized metric differences.
type MetricDeltas struct {
	CumulativeReturn     float64 `json:"cumulative_return"`
	AnnualizedReturn     float64 `json:"annualized_return"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	SortinoRatio         float64 `json:"sortino_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown"`
}

// Comparison holds the realized and what-if trajectories with their metric
// summaries and the what-if-minus-realized deltas.
type Comparison struct {
	Realized        domain.ValueSeries  `json:"realized"`
	WhatIf          domain.ValueSeries  `json:"what_if"`
	RealizedSummary performance.Summary `json:"realized_summary"`
	WhatIfSummary   performance.Summary `json:"what_if_summary"`
	Deltas          MetricDeltas        `json:"deltas"`
}

// Compare backtests the candidate weights and summarizes both trajectories.
func (s *Service) Compare(prices domain.PriceSeries, cfg domain.PortfolioConfig, candidate map[string]float64, startDate time.Time, riskFreeRate float64) (*Comparison, error) {
	realized, err := s.valuation.ComputeValue(prices, cfg, startDate)
	if err != nil {
		return nil, err
	}
	whatIf, err := s.Simulate(prices, cfg, candidate, startDate)
	if err != nil {
		return nil, err
	}

	realizedSummary := performance.Summarize(realized, riskFreeRate, performance.TradingDaysPerYear)
	whatIfSummary := performance.Summarize(whatIf, riskFreeRate, performance.TradingDaysPerYear)

	return &Comparison{
		Realized:        realized,
		WhatIf:          whatIf,
		RealizedSummary: realizedSummary,
		WhatIfSummary:   whatIfSummary,
		Deltas: MetricDeltas{
			CumulativeReturn:     whatIfSummary.CumulativeReturn - realizedSummary.CumulativeReturn,
			AnnualizedReturn:     whatIfSummary.AnnualizedReturn - realizedSummary.AnnualizedReturn,
			AnnualizedVolatility: whatIfSummary.AnnualizedVolatility - realizedSummary.AnnualizedVolatility,
			SharpeRatio:          whatIfSummary.SharpeRatio - realizedSummary.SharpeRatio,
			SortinoRatio:         whatIfSummary.SortinoRatio - realizedSummary.SortinoRatio,
			MaxDrawdown:          whatIfSummary.MaxDrawdown.MaxDrawdown - realizedSummary.MaxDrawdown.MaxDrawdown,
		},
	}, nil
}

// CostEstimate is the output of RebalanceCost.
type CostEstimate struct {
	Cost      float64            `json:"cost"`
	Turnover  float64            `json:"turnover"`
	NewShares map[string]float64 `json:"new_shares"`
}

// RebalanceCost prices the move from the current allocation to the target
// weights at the given cost rate. The traded notional is the sum of absolute
// per-asset value deltas; turnover is that notional as a fraction of the
// portfolio value. Prices are the assets' latest values implied by the
// current allocation. Pure computation, no side effects.
func RebalanceCost(current []valuation.Allocation, target map[string]float64, portfolioValue, costRate float64) CostEstimate {
	traded := 0.0
	newShares := make(map[string]float64, len(current))
	for _, a := range current {
		targetValue := target[a.Ticker] * portfolioValue
		traded += math.Abs(targetValue - a.Value)
		if a.Price > 0 {
			newShares[a.Ticker] = targetValue / a.Price
		}
	}

	turnover := 0.0
	if portfolioValue > 0 {
		turnover = traded / portfolioValue
	}

	return CostEstimate{
		Cost:      traded * costRate,
		Turnover:  turnover,
		NewShares: newShares,
	}
}

// Trade is one planned rebalancing action.
type Trade struct {
	Ticker     string  `json:"ticker"`
	Action     string  `json:"action"`
	ShareDelta float64 `json:"share_delta"`
	Amount     float64 `json:"amount"`
	Cost       float64 `json:"cost"`
}

// PlanMetrics summarizes a trade plan.
type PlanMetrics struct {
	Turnover  float64 `json:"turnover"`
	TotalCost float64 `json:"total_cost"`
	Buys      int     `json:"buys"`
	Sells     int     `json:"sells"`
	Holds     int     `json:"holds"`
}

// Plan is a full rebalancing trade plan.
type Plan struct {
	Trades  []Trade     `json:"trades"`
	Metrics PlanMetrics `json:"metrics"`
}

// PlanTrades turns the current allocation and a target weight vector into
// per-asset BUY/SELL/HOLD actions with dollar amounts and costs. Deltas
// under HoldThreshold dollars are reported as HOLD with no cost.
func (s *Service) PlanTrades(current []valuation.Allocation, target map[string]float64, costRate float64) Plan {
	portfolioValue := 0.0
	for _, a := range current {
		portfolioValue += a.Value
	}

	var plan Plan
	traded := 0.0
	for _, a := range current {
		targetValue := target[a.Ticker] * portfolioValue
		delta := targetValue - a.Value

		trade := Trade{Ticker: a.Ticker, Action: ActionHold}
		switch {
		case delta > HoldThreshold:
			trade.Action = ActionBuy
		case delta < -HoldThreshold:
			trade.Action = ActionSell
		}
		if trade.Action != ActionHold {
			trade.Amount = math.Abs(delta)
			trade.Cost = trade.Amount * costRate
			if a.Price > 0 {
				trade.ShareDelta = delta / a.Price
			}
			traded += trade.Amount
		}

		switch trade.Action {
		case ActionBuy:
			plan.Metrics.Buys++
		case ActionSell:
			plan.Metrics.Sells++
		default:
			plan.Metrics.Holds++
		}
		plan.Trades = append(plan.Trades, trade)
		plan.Metrics.TotalCost += trade.Cost
	}

	if portfolioValue > 0 {
		plan.Metrics.Turnover = traded / portfolioValue
	}

	s.log.Debug().
		Int("buys", plan.Metrics.Buys).
		Int("sells", plan.Metrics.Sells).
		Float64("turnover", plan.Metrics.Turnover).
		Msg("Planned rebalancing trades")

	return plan
}
