package rebalancing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
	tst "github.com/BenPfeffer-bot/AssetManagementTracker/internal/testing"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/valuation"
)

func newService() *Service {
	return New(valuation.New(tst.SilentLogger()), tst.SilentLogger())
}

func testSeries(start time.Time) domain.PriceSeries {
	return domain.PriceSeries{
		"AAA": tst.Series(start, 100, 102, 104, 106, 108),
		"BBB": tst.Series(start, 50, 50, 51, 51, 52),
	}
}

func TestSimulateMatchesValuationForSameWeights(t *testing.T) {
	start := tst.Day(2024, time.January, 1)
	cfg := tst.TwoAssetConfig("AAA", "BBB", 0.6, 100000)
	svc := newService()

	realized, err := valuation.New(tst.SilentLogger()).ComputeValue(testSeries(start), cfg, start)
	require.NoError(t, err)

	whatIf, err := svc.Simulate(testSeries(start), cfg, map[string]float64{"AAA": 0.6, "BBB": 0.4}, start)
	require.NoError(t, err)
	assert.Equal(t, realized, whatIf)
}

func TestSimulateMissingTicker(t *testing.T) {
	start := tst.Day(2024, time.January, 1)
	cfg := tst.TwoAssetConfig("AAA", "BBB", 0.6, 100000)

	_, err := newService().Simulate(testSeries(start), cfg, map[string]float64{"AAA": 1.0}, start)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "BBB", cfgErr.Ticker)
}

func TestCompareIdenticalWeightsHasZeroDeltas(t *testing.T) {
	start := tst.Day(2024, time.January, 1)
	cfg := tst.TwoAssetConfig("AAA", "BBB", 0.6, 100000)

	comparison, err := newService().Compare(testSeries(start), cfg, map[string]float64{"AAA": 0.6, "BBB": 0.4}, start, 0.02)
	require.NoError(t, err)

	assert.InDelta(t, 0, comparison.Deltas.CumulativeReturn, 1e-12)
	assert.InDelta(t, 0, comparison.Deltas.AnnualizedVolatility, 1e-12)
	assert.InDelta(t, 0, comparison.Deltas.MaxDrawdown, 1e-12)
}

func TestCompareAllInWinner(t *testing.T) {
	start := tst.Day(2024, time.January, 1)
	cfg := tst.TwoAssetConfig("AAA", "BBB", 0.5, 100000)

	// AAA gains 8% over the window, BBB 4%: all-in AAA beats the mix.
	comparison, err := newService().Compare(testSeries(start), cfg, map[string]float64{"AAA": 1.0, "BBB": 0.0}, start, 0.02)
	require.NoError(t, err)
	assert.Positive(t, comparison.Deltas.CumulativeReturn)
	assert.Greater(t, comparison.WhatIfSummary.CumulativeReturn, comparison.RealizedSummary.CumulativeReturn)
}

func currentAllocations() []valuation.Allocation {
	// 10k portfolio: 60/40 drifted.
	return []valuation.Allocation{
		{Ticker: "AAA", Shares: 60, Price: 100, Value: 6000, Weight: 0.6, TargetWeight: 0.5},
		{Ticker: "BBB", Shares: 80, Price: 50, Value: 4000, Weight: 0.4, TargetWeight: 0.5},
	}
}

func TestRebalanceCost(t *testing.T) {
	target := map[string]float64{"AAA": 0.5, "BBB": 0.5}

	estimate := RebalanceCost(currentAllocations(), target, 10000, 0.001)

	// |5000-6000| + |5000-4000| = 2000 traded.
	assert.InDelta(t, 2000*0.001, estimate.Cost, 1e-9)
	assert.InDelta(t, 0.2, estimate.Turnover, 1e-9)
	assert.InDelta(t, 50, estimate.NewShares["AAA"], 1e-9)
	assert.InDelta(t, 100, estimate.NewShares["BBB"], 1e-9)
}

func TestRebalanceCostNoChange(t *testing.T) {
	target := map[string]float64{"AAA": 0.6, "BBB": 0.4}
	estimate := RebalanceCost(currentAllocations(), target, 10000, 0.001)
	assert.InDelta(t, 0, estimate.Cost, 1e-9)
	assert.InDelta(t, 0, estimate.Turnover, 1e-9)
}

func TestPlanTrades(t *testing.T) {
	target := map[string]float64{"AAA": 0.5, "BBB": 0.5}
	plan := newService().PlanTrades(currentAllocations(), target, 0.001)

	require.Len(t, plan.Trades, 2)
	byTicker := map[string]Trade{}
	for _, trade := range plan.Trades {
		byTicker[trade.Ticker] = trade
	}

	aaa := byTicker["AAA"]
	assert.Equal(t, ActionSell, aaa.Action)
	assert.InDelta(t, 1000, aaa.Amount, 1e-9)
	assert.InDelta(t, -10, aaa.ShareDelta, 1e-9)
	assert.InDelta(t, 1.0, aaa.Cost, 1e-9)

	bbb := byTicker["BBB"]
	assert.Equal(t, ActionBuy, bbb.Action)
	assert.InDelta(t, 20, bbb.ShareDelta, 1e-9)

	assert.Equal(t, 1, plan.Metrics.Buys)
	assert.Equal(t, 1, plan.Metrics.Sells)
	assert.Equal(t, 0, plan.Metrics.Holds)
	assert.InDelta(t, 0.2, plan.Metrics.Turnover, 1e-9)
	assert.InDelta(t, 2.0, plan.Metrics.TotalCost, 1e-9)
}

func TestPlanTradesHoldUnderThreshold(t *testing.T) {
	current := []valuation.Allocation{
		{Ticker: "AAA", Shares: 100, Price: 100, Value: 10000, Weight: 1.0, TargetWeight: 1.0},
	}
	plan := newService().PlanTrades(current, map[string]float64{"AAA": 1.0}, 0.001)

	require.Len(t, plan.Trades, 1)
	assert.Equal(t, ActionHold, plan.Trades[0].Action)
	assert.Equal(t, 0.0, plan.Trades[0].Cost)
	assert.Equal(t, 1, plan.Metrics.Holds)
	assert.InDelta(t, 0, plan.Metrics.Turnover, 1e-9)
}
