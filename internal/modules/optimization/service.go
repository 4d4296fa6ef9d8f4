package optimization

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/performance"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/risk"
)

// ResultCache memoizes optimizer results keyed by ticker-set hash. The
// service works without one; pass nil to disable caching.
type ResultCache interface {
	Get(category, key string, v any) (bool, error)
	Set(category, key string, v any, ttl time.Duration) error
}

const (
	cacheCategory = "frontier"
	cacheTTL      = 6 * time.Hour
)

// Service runs both strategies over a price series and assembles the final
// Result. The numeric solve is authoritative; when it fails the service
// degrades to the Monte Carlo cloud's best observed points and tags the
// result accordingly.
type Service struct {
	mc    *MonteCarloOptimizer
	mvo   *MVOptimizer
	cache ResultCache
	log   zerolog.Logger
}

// NewService creates the optimizer service.
func NewService(mc *MonteCarloOptimizer, mvo *MVOptimizer, cache ResultCache, log zerolog.Logger) *Service {
	return &Service{
		mc:    mc,
		mvo:   mvo,
		cache: cache,
		log:   log.With().Str("component", "optimizer").Logger(),
	}
}

// Optimize builds the efficient frontier for the configured assets over the
// given price series.
func (s *Service) Optimize(series domain.PriceSeries, cfg domain.PortfolioConfig, riskFreeRate float64) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tickers := cfg.Tickers()

	key := hashTickers(tickers, series)
	if s.cache != nil {
		var cached Result
		if ok, err := s.cache.Get(cacheCategory, key, &cached); err == nil && ok {
			s.log.Debug().Str("key", key).Msg("Frontier served from cache")
			return &cached, nil
		}
	}

	in := s.buildInputs(series, tickers, riskFreeRate)

	cloud, err := s.mc.Optimize(in)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Cloud:        cloud,
		AssetMetrics: AssetMetrics(series, tickers, performance.TradingDaysPerYear),
		Method:       MethodNumericSolve,
	}

	frontier, solveErr := s.mvo.Optimize(in)
	if solveErr == nil {
		result.Frontier = frontier
		if result.MaxSharpe, solveErr = s.mvo.MaxSharpe(in); solveErr == nil {
			result.MinVolatility, solveErr = s.mvo.MinVolatility(in)
		}
	}

	if solveErr != nil {
		var optErr *domain.OptimizationError
		if !errors.As(solveErr, &optErr) {
			return nil, solveErr
		}
		s.log.Warn().Err(solveErr).Msg("Numeric solve failed, falling back to sampled cloud")

		result.Method = MethodMonteCarloFallback
		result.Frontier = Frontier(cloud)
		// A cloud with no defined Sharpe or volatility yields the undefined
		// marker, never a zero-valued point.
		result.MaxSharpe = undefinedPoint()
		if best, ok := BestSharpe(cloud); ok {
			result.MaxSharpe = best
		}
		result.MinVolatility = undefinedPoint()
		if minVol, ok := MinVolatilityPoint(cloud); ok {
			result.MinVolatility = minVol
		}
	}

	current := evaluate(in, weightVector(cfg, tickers))
	result.Current = &current

	if s.cache != nil {
		if err := s.cache.Set(cacheCategory, key, result, cacheTTL); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache frontier result")
		}
	}

	return result, nil
}

func (s *Service) buildInputs(series domain.PriceSeries, tickers []string, riskFreeRate float64) Inputs {
	expected := ExpectedReturns(series, tickers, performance.TradingDaysPerYear)
	mu := make([]float64, len(tickers))
	for i, ticker := range tickers {
		mu[i] = expected[ticker]
	}
	return Inputs{
		Tickers:         tickers,
		ExpectedReturns: mu,
		Covariance:      risk.CovarianceMatrix(series, tickers, performance.TradingDaysPerYear),
		RiskFreeRate:    riskFreeRate,
	}
}

// undefinedPoint is the NaN-statistics marker for a distinguished portfolio
// that could not be computed.
func undefinedPoint() FrontierPoint {
	return FrontierPoint{
		Return:     math.NaN(),
		Volatility: math.NaN(),
		Sharpe:     math.NaN(),
	}
}

func weightVector(cfg domain.PortfolioConfig, tickers []string) []float64 {
	weights := cfg.Weights()
	w := make([]float64, len(tickers))
	for i, ticker := range tickers {
		w[i] = weights[ticker]
	}
	return w
}

// hashTickers builds a deterministic cache key from the sorted ticker set
// and the span of the underlying series.
func hashTickers(tickers []string, series domain.PriceSeries) string {
	sorted := make([]string, len(tickers))
	copy(sorted, tickers)
	sort.Strings(sorted)

	var span string
	for _, ticker := range sorted {
		points := series[ticker]
		if len(points) > 0 {
			span += points[0].Date.Format(domain.DateFormat) + points[len(points)-1].Date.Format(domain.DateFormat)
		}
	}

	h := sha256.Sum256([]byte(strings.Join(sorted, ",") + "|" + span))
	return hex.EncodeToString(h[:16])
}
