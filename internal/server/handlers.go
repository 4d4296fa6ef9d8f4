package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/charts"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/performance"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/risk"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "asset-tracker",
	})
}

// loadSeries fetches the stored price series for the configured assets over
// the analysis window.
func (s *Server) loadSeries() (domain.PriceSeries, error) {
	return s.deps.Store.GetSeries(s.deps.Portfolio.Tickers(), s.deps.Config.StartDate, s.deps.Config.EndDate)
}

func (s *Server) handleValue(w http.ResponseWriter, r *http.Request) {
	series, err := s.loadSeries()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	values, err := s.deps.Valuation.ComputeValue(series, s.deps.Portfolio, s.deps.Config.StartDate)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"initial_capital": s.deps.Portfolio.InitialCapital,
		"series":          values,
	})
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	series, err := s.loadSeries()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	values, err := s.deps.Valuation.ComputeValue(series, s.deps.Portfolio, s.deps.Config.StartDate)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	summary := performance.Summarize(values, s.deps.Config.RiskFreeRate, performance.TradingDaysPerYear)
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	confidence := 0.95
	if v := r.URL.Query().Get("confidence"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 || parsed >= 1 {
			s.writeError(w, http.StatusBadRequest, "confidence must be in (0, 1)")
			return
		}
		confidence = parsed
	}

	series, err := s.loadSeries()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	values, err := s.deps.Valuation.ComputeValue(series, s.deps.Portfolio, s.deps.Config.StartDate)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	returns := performance.DailyReturns(values.Values())

	tickers := s.deps.Portfolio.Tickers()
	response := map[string]interface{}{
		"confidence":         confidence,
		"value_at_risk":      risk.ValueAtRisk(returns, confidence),
		"conditional_var":    risk.ConditionalVaR(returns, confidence),
		"downside_deviation": risk.DownsideDeviation(returns, 0),
		"max_drawdown":       performance.DrawdownProfile(values),
		"correlation_matrix": risk.CorrelationMatrix(series, tickers),
	}

	if benchmark := r.URL.Query().Get("benchmark"); benchmark != "" {
		benchSeries, err := s.deps.Store.GetSeries([]string{benchmark}, s.deps.Config.StartDate, s.deps.Config.EndDate)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		benchValues, benchErr := s.deps.Valuation.ComputeValue(benchSeries, domain.PortfolioConfig{
			Assets:         []domain.AssetDefinition{{Ticker: benchmark, TargetWeight: 1.0}},
			InitialCapital: s.deps.Portfolio.InitialCapital,
		}, s.deps.Config.StartDate)
		if benchErr != nil {
			s.writeDomainError(w, benchErr)
			return
		}
		benchReturns := performance.DailyReturns(benchValues.Values())
		response["beta"] = risk.Beta(returns, benchReturns)
		response["benchmark"] = benchmark
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleAllocation(w http.ResponseWriter, r *http.Request) {
	series, err := s.loadSeries()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	allocations, err := s.deps.Valuation.CurrentAllocation(series, s.deps.Portfolio, s.deps.Config.StartDate)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"allocations": allocations})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	series, err := s.loadSeries()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	result, err := s.deps.Optimizer.Optimize(series, s.deps.Portfolio, s.deps.Config.RiskFreeRate)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	// The sampled cloud is large; expose it only on request.
	if r.URL.Query().Get("cloud") != "true" {
		trimmed := *result
		trimmed.Cloud = nil
		result = &trimmed
	}

	s.writeJSON(w, http.StatusOK, result)
}

type whatIfRequest struct {
	Weights map[string]float64 `json:"weights"`
}

func (s *Server) handleWhatIf(w http.ResponseWriter, r *http.Request) {
	var req whatIfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Weights) == 0 {
		s.writeError(w, http.StatusBadRequest, "weights are required")
		return
	}

	series, err := s.loadSeries()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	comparison, err := s.deps.Rebalancing.Compare(series, s.deps.Portfolio, req.Weights, s.deps.Config.StartDate, s.deps.Config.RiskFreeRate)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, comparison)
}

type rebalanceRequest struct {
	Weights  map[string]float64 `json:"weights"`
	CostRate float64            `json:"cost_rate"`
}

func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	var req rebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Weights) == 0 {
		s.writeError(w, http.StatusBadRequest, "weights are required")
		return
	}
	if req.CostRate < 0 {
		s.writeError(w, http.StatusBadRequest, "cost_rate must be non-negative")
		return
	}

	series, err := s.loadSeries()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	allocations, err := s.deps.Valuation.CurrentAllocation(series, s.deps.Portfolio, s.deps.Config.StartDate)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	plan := s.deps.Rebalancing.PlanTrades(allocations, req.Weights, req.CostRate)
	s.writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleValueChart(w http.ResponseWriter, r *http.Request) {
	series, err := s.loadSeries()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	values, err := s.deps.Valuation.ComputeValue(series, s.deps.Portfolio, s.deps.Config.StartDate)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	png, err := charts.RenderValueChart(values, s.deps.Portfolio.InitialCapital)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writePNG(w, png)
}

func (s *Server) handleFrontierChart(w http.ResponseWriter, r *http.Request) {
	series, err := s.loadSeries()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	result, err := s.deps.Optimizer.Optimize(series, s.deps.Portfolio, s.deps.Config.RiskFreeRate)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	png, err := charts.RenderFrontierChart(result)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writePNG(w, png)
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	coverage, err := s.deps.Store.Coverage()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := map[string]interface{}{"coverage": coverage}
	if latest, err := s.deps.Store.LatestDate(); err == nil && !latest.IsZero() {
		response["latest_date"] = latest.Format(domain.DateFormat)
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.deps.RefreshJob == nil {
		s.writeError(w, http.StatusServiceUnavailable, "refresh job not configured")
		return
	}

	s.log.Info().Msg("Manual price sync triggered")
	if err := s.deps.Scheduler.RunNow(s.deps.RefreshJob); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Price sync completed",
	})
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":     "running",
		"goroutines": runtime.NumGoroutine(),
		"time":       time.Now().Format(time.RFC3339),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		response["memory"] = map[string]interface{}{
			"used_percent": vm.UsedPercent,
			"total_mb":     vm.Total / 1024 / 1024,
			"available_mb": vm.Available / 1024 / 1024,
		}
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response. Encoding happens before the header is
// written so a failure still surfaces as a 500 instead of a truncated 200.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := marshalJSON(data)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeDomainError maps typed domain errors to HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		s.writeError(w, http.StatusUnprocessableEntity, cfgErr.Error())
		return
	}
	s.log.Error().Err(err).Msg("Request failed")
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		s.log.Error().Err(err).Msg("Failed to write PNG response")
	}
}
