package optimization

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/rs/zerolog"
)

// DefaultSamples is the number of random simplex points evaluated per run.
const DefaultSamples = 5000

// MonteCarloOptimizer samples random weight vectors on the simplex and keeps
// the non-dominated subset as the frontier. The full cloud is retained for
// visualization and for the fallback path when the numeric solve fails.
type MonteCarloOptimizer struct {
	samples int
	rng     *rand.Rand
	log     zerolog.Logger
}

// NewMonteCarloOptimizer creates a sampler with the given sample count.
// A non-zero seed makes runs reproducible, which the tests rely on.
func NewMonteCarloOptimizer(samples int, seed int64, log zerolog.Logger) *MonteCarloOptimizer {
	if samples <= 0 {
		samples = DefaultSamples
	}
	return &MonteCarloOptimizer{
		samples: samples,
		rng:     rand.New(rand.NewSource(seed)),
		log:     log.With().Str("component", "optimizer.montecarlo").Logger(),
	}
}

// Strategy implements Optimizer.
func (mc *MonteCarloOptimizer) Strategy() Strategy { return StrategyMonteCarlo }

// Optimize implements Optimizer. It returns the full sampled cloud, sorted
// by volatility. Use Frontier to extract the non-dominated subset.
func (mc *MonteCarloOptimizer) Optimize(in Inputs) ([]FrontierPoint, error) {
	n := len(in.Tickers)
	if n == 0 {
		return nil, fmt.Errorf("no tickers provided")
	}
	if len(in.ExpectedReturns) != n || len(in.Covariance.Data) != n {
		return nil, fmt.Errorf("inputs disagree on asset count: %d tickers, %d returns, %d covariance rows",
			n, len(in.ExpectedReturns), len(in.Covariance.Data))
	}

	cloud := make([]FrontierPoint, 0, mc.samples)
	w := make([]float64, n)
	for s := 0; s < mc.samples; s++ {
		sum := 0.0
		for i := range w {
			w[i] = mc.rng.Float64()
			sum += w[i]
		}
		for i := range w {
			w[i] /= sum
		}
		cloud = append(cloud, evaluate(in, w))
	}

	sort.Slice(cloud, func(i, j int) bool { return cloud[i].Volatility < cloud[j].Volatility })

	mc.log.Debug().Int("samples", mc.samples).Int("assets", n).Msg("Sampled weight simplex")
	return cloud, nil
}

// Frontier extracts the non-dominated subset of a volatility-sorted cloud:
// points whose return strictly exceeds every lower-volatility point's.
func Frontier(cloud []FrontierPoint) []FrontierPoint {
	var frontier []FrontierPoint
	best := 0.0
	for i, p := range cloud {
		if i == 0 || p.Return > best {
			frontier = append(frontier, p)
			best = p.Return
		}
	}
	return frontier
}

// BestSharpe returns the cloud point with the highest defined Sharpe ratio.
func BestSharpe(cloud []FrontierPoint) (FrontierPoint, bool) {
	bestIdx := -1
	for i, p := range cloud {
		if p.Sharpe != p.Sharpe { // NaN
			continue
		}
		if bestIdx < 0 || p.Sharpe > cloud[bestIdx].Sharpe {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return FrontierPoint{}, false
	}
	return cloud[bestIdx], true
}

// MinVolatilityPoint returns the cloud point with the lowest defined
// volatility.
func MinVolatilityPoint(cloud []FrontierPoint) (FrontierPoint, bool) {
	bestIdx := -1
	for i, p := range cloud {
		if p.Volatility != p.Volatility { // NaN
			continue
		}
		if bestIdx < 0 || p.Volatility < cloud[bestIdx].Volatility {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return FrontierPoint{}, false
	}
	return cloud[bestIdx], true
}
