package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
)

// penaltyWeight scales the quadratic penalties that substitute for hard
// constraints (sum-to-one, target-return pinning).
const penaltyWeight = 1000.0

// FrontierResolution is the number of target-return levels traced between the
// min-volatility and max-return portfolios.
const FrontierResolution = 25

// MVOptimizer solves the mean-variance problem numerically: max Sharpe, min
// volatility, and min volatility at a target return, all long-only with
// weights summing to one. Constraints are enforced by bounds projection plus
// quadratic penalties; the final solution is projected and renormalized.
type MVOptimizer struct {
	log zerolog.Logger
}

// NewMVOptimizer creates a numeric solver.
func NewMVOptimizer(log zerolog.Logger) *MVOptimizer {
	return &MVOptimizer{
		log: log.With().Str("component", "optimizer.numeric").Logger(),
	}
}

// Strategy implements Optimizer.
func (mvo *MVOptimizer) Strategy() Strategy { return StrategyNumericSolve }

// Optimize implements Optimizer: it traces the efficient frontier over a
// linspace of target returns between the min-volatility portfolio's return
// and the highest single-asset expected return, ordered by volatility.
func (mvo *MVOptimizer) Optimize(in Inputs) ([]FrontierPoint, error) {
	if err := validateInputs(in); err != nil {
		return nil, err
	}

	minVol, err := mvo.MinVolatility(in)
	if err != nil {
		return nil, err
	}

	maxReturn := in.ExpectedReturns[0]
	for _, r := range in.ExpectedReturns[1:] {
		if r > maxReturn {
			maxReturn = r
		}
	}
	if maxReturn <= minVol.Return {
		return []FrontierPoint{minVol}, nil
	}

	frontier := []FrontierPoint{minVol}
	step := (maxReturn - minVol.Return) / float64(FrontierResolution)
	for i := 1; i <= FrontierResolution; i++ {
		target := minVol.Return + float64(i)*step
		point, err := mvo.EfficientReturn(in, target)
		if err != nil {
			// Target returns near the single-asset maximum can be
			// infeasible under the projected bounds. Stop tracing there.
			mvo.log.Debug().Float64("target_return", target).Err(err).
				Msg("Frontier trace stopped at infeasible target")
			break
		}
		frontier = append(frontier, point)
	}

	return frontier, nil
}

// MaxSharpe maximizes (mu'w - rf) / sqrt(w'Sigma w) on the simplex.
func (mvo *MVOptimizer) MaxSharpe(in Inputs) (FrontierPoint, error) {
	if err := validateInputs(in); err != nil {
		return FrontierPoint{}, err
	}
	n := len(in.Tickers)
	mu := in.ExpectedReturns
	cov := in.Covariance.Data
	rf := in.RiskFreeRate

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToSimplexBounds(x)
			ret := portfolioReturn(mu, w)
			variance := rawVariance(cov, w)
			stdDev := math.Sqrt(math.Max(variance, 1e-10))

			obj := -(ret - rf) / stdDev
			obj += sumPenalty(w)
			return obj
		},
		Grad: func(grad, x []float64) {
			w := projectToSimplexBounds(x)
			ret := portfolioReturn(mu, w)
			variance := rawVariance(cov, w)
			stdDev := math.Sqrt(math.Max(variance, 1e-10))

			for i := 0; i < n; i++ {
				var dVariance float64
				for j := 0; j < n; j++ {
					dVariance += 2 * cov[i][j] * w[j]
				}
				grad[i] = -mu[i]/stdDev + (ret-rf)*dVariance/(2*stdDev*stdDev*stdDev)
			}
			addSumPenaltyGradient(grad, w)
		},
	}

	w, err := mvo.solve(problem, n)
	if err != nil {
		return FrontierPoint{}, &domain.OptimizationError{Strategy: "max_sharpe", Cause: err}
	}
	return evaluate(in, w), nil
}

// MinVolatility minimizes w'Sigma w on the simplex.
func (mvo *MVOptimizer) MinVolatility(in Inputs) (FrontierPoint, error) {
	if err := validateInputs(in); err != nil {
		return FrontierPoint{}, err
	}
	n := len(in.Tickers)
	cov := in.Covariance.Data

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToSimplexBounds(x)
			obj := rawVariance(cov, w)
			obj += sumPenalty(w)
			return obj
		},
		Grad: func(grad, x []float64) {
			w := projectToSimplexBounds(x)
			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * cov[i][j] * w[j]
				}
			}
			addSumPenaltyGradient(grad, w)
		},
	}

	w, err := mvo.solve(problem, n)
	if err != nil {
		return FrontierPoint{}, &domain.OptimizationError{Strategy: "min_volatility", Cause: err}
	}
	return evaluate(in, w), nil
}

// EfficientReturn minimizes variance subject to mu'w pinned at the target
// return via a quadratic penalty.
func (mvo *MVOptimizer) EfficientReturn(in Inputs, targetReturn float64) (FrontierPoint, error) {
	if err := validateInputs(in); err != nil {
		return FrontierPoint{}, err
	}
	n := len(in.Tickers)
	mu := in.ExpectedReturns
	cov := in.Covariance.Data

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectToSimplexBounds(x)
			ret := portfolioReturn(mu, w)

			obj := rawVariance(cov, w)
			obj += sumPenalty(w)
			obj += penaltyWeight * (ret - targetReturn) * (ret - targetReturn)
			return obj
		},
		Grad: func(grad, x []float64) {
			w := projectToSimplexBounds(x)
			ret := portfolioReturn(mu, w)

			for i := 0; i < n; i++ {
				grad[i] = 0
				for j := 0; j < n; j++ {
					grad[i] += 2 * cov[i][j] * w[j]
				}
				grad[i] += 2 * penaltyWeight * (ret - targetReturn) * mu[i]
			}
			addSumPenaltyGradient(grad, w)
		},
	}

	w, err := mvo.solve(problem, n)
	if err != nil {
		return FrontierPoint{}, &domain.OptimizationError{Strategy: "efficient_return", Cause: err}
	}

	point := evaluate(in, w)
	if math.Abs(point.Return-targetReturn) > 0.02 {
		return FrontierPoint{}, &domain.OptimizationError{
			Strategy: "efficient_return",
			Cause:    fmt.Errorf("solution return %.4f missed target %.4f", point.Return, targetReturn),
		}
	}
	return point, nil
}

// solve runs the minimization from an equal-weight start, trying BFGS first
// and Nelder-Mead when BFGS errors or stalls, then projects and renormalizes
// the solution onto the simplex.
func (mvo *MVOptimizer) solve(problem optimize.Problem, n int) ([]float64, error) {
	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
	if err != nil || !converged(result.Status) {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("optimization failed: %w", err)
		}
		if !converged(result.Status) {
			return nil, fmt.Errorf("optimization did not converge: status=%v", result.Status)
		}
	}

	w := projectToSimplexBounds(result.X)
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum < 1e-10 {
		return nil, fmt.Errorf("optimization collapsed to a zero weight vector")
	}
	for i := range w {
		w[i] /= sum
	}
	return w, nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	}
	return false
}

func validateInputs(in Inputs) error {
	n := len(in.Tickers)
	if n == 0 {
		return fmt.Errorf("no tickers provided")
	}
	if len(in.ExpectedReturns) != n {
		return fmt.Errorf("expected returns size %d does not match %d tickers", len(in.ExpectedReturns), n)
	}
	if len(in.Covariance.Data) != n {
		return fmt.Errorf("covariance matrix size %d does not match %d tickers", len(in.Covariance.Data), n)
	}
	for i, row := range in.Covariance.Data {
		if len(row) != n {
			return fmt.Errorf("covariance matrix row %d has size %d, expected %d", i, len(row), n)
		}
		for _, v := range row {
			if math.IsNaN(v) {
				return &domain.OptimizationError{
					Strategy: "validate",
					Cause:    fmt.Errorf("covariance matrix contains NaN entries"),
				}
			}
		}
	}
	for i, r := range in.ExpectedReturns {
		if math.IsNaN(r) {
			return &domain.OptimizationError{
				Strategy: "validate",
				Cause:    fmt.Errorf("expected return for %s is NaN", in.Tickers[i]),
			}
		}
	}
	return nil
}

// projectToSimplexBounds clamps each weight to the long-only [0, 1] bounds.
func projectToSimplexBounds(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(0.0, math.Min(1.0, x[i]))
	}
	return proj
}

func rawVariance(cov [][]float64, w []float64) float64 {
	var variance float64
	for i := range w {
		for j := range w {
			variance += w[i] * w[j] * cov[i][j]
		}
	}
	return variance
}

func sumPenalty(w []float64) float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return penaltyWeight * (sum - 1.0) * (sum - 1.0)
}

func addSumPenaltyGradient(grad, w []float64) {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	for i := range grad {
		grad[i] += 2 * penaltyWeight * (sum - 1.0)
	}
}
