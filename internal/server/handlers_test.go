package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/config"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/optimization"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/prices"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/rebalancing"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/valuation"
	tst "github.com/BenPfeffer-bot/AssetManagementTracker/internal/testing"
)

// oscillatingSeries builds a price path with nonzero volatility and both up
// and down days, so every summary statistic is finite.
func oscillatingSeries(start time.Time, first, amplitude, phase, drift float64, n int) []domain.PricePoint {
	points := make([]domain.PricePoint, n)
	price := first
	for i := range points {
		points[i] = domain.PricePoint{Date: start.AddDate(0, 0, i), Close: price}
		price *= 1 + amplitude*math.Sin(float64(i)+phase) + drift
	}
	return points
}

func newTestServer(t *testing.T) *Server {
	return newTestServerWithHistory(t, 120)
}

// newTestServerWithHistory seeds days of price history; two days is the
// shortest window the store accepts and leaves every ratio undefined.
func newTestServerWithHistory(t *testing.T, days int) *Server {
	t.Helper()

	db := tst.NewTestDB(t, "history")
	log := tst.SilentLogger()
	store := prices.NewStore(db.Conn(), log)

	start := tst.Day(2024, time.January, 1)
	require.NoError(t, store.SyncPrices("AAA.US", oscillatingSeries(start, 100, 0.010, 0, 0.0010, days)))
	require.NoError(t, store.SyncPrices("BBB.US", oscillatingSeries(start, 50, 0.006, math.Pi/2, 0.0005, days)))
	require.NoError(t, store.SyncPrices("BENCH.US", oscillatingSeries(start, 400, 0.008, math.Pi/4, 0.0008, days)))

	cfg := &config.Config{
		Port:         8080,
		DevMode:      true,
		RiskFreeRate: 0.02,
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, 150),
	}
	portfolio := domain.PortfolioConfig{
		Assets: []domain.AssetDefinition{
			{Ticker: "AAA.US", Name: "Asset A", AssetClass: "equity", TargetWeight: 0.6},
			{Ticker: "BBB.US", Name: "Asset B", AssetClass: "bond", TargetWeight: 0.4},
		},
		InitialCapital: 100000,
	}

	val := valuation.New(log)
	optimizer := optimization.NewService(
		optimization.NewMonteCarloOptimizer(2000, 42, log),
		optimization.NewMVOptimizer(log),
		nil,
		log,
	)

	return New(Deps{
		Config:      cfg,
		Portfolio:   portfolio,
		Store:       store,
		Valuation:   val,
		Optimizer:   optimizer,
		Rebalancing: rebalancing.New(val, log),
		Log:         log,
	})
}

func doRequest(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "healthy", body["status"])
}

func TestHandleValue(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/value", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, 100000.0, body["initial_capital"])
	series, ok := body["series"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, series)
}

func TestHandlePerformance(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/performance", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Contains(t, body, "cumulative_return")
	assert.Contains(t, body, "sharpe_ratio")
}

func TestHandlePerformanceUndefinedStatsAreNull(t *testing.T) {
	s := newTestServerWithHistory(t, 2)
	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/performance", nil)

	// One return observation leaves volatility and the ratios undefined; the
	// response must still be complete, well-formed JSON with nulls in their
	// place.
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Nil(t, body["annualized_volatility"])
	assert.Nil(t, body["sharpe_ratio"])
	assert.Nil(t, body["sortino_ratio"])
	assert.NotNil(t, body["cumulative_return"])
}

func TestHandleRiskUndefinedStatsAreNull(t *testing.T) {
	s := newTestServerWithHistory(t, 2)
	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/risk", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)

	matrix, ok := body["correlation_matrix"].(map[string]interface{})
	require.True(t, ok)
	rows, ok := matrix["data"].([]interface{})
	require.True(t, ok)
	row, ok := rows[0].([]interface{})
	require.True(t, ok)
	assert.Nil(t, row[0])
}

func TestHandleOptimizeFallbackIsNull(t *testing.T) {
	s := newTestServerWithHistory(t, 2)
	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/optimize", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "monte_carlo_fallback", body["method"])

	maxSharpe, ok := body["max_sharpe"].(map[string]interface{})
	require.True(t, ok)
	assert.Nil(t, maxSharpe["sharpe"])
	assert.Nil(t, maxSharpe["volatility"])
}

func TestHandleRisk(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/risk", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, 0.95, body["confidence"])
	assert.Contains(t, body, "value_at_risk")
	assert.Contains(t, body, "conditional_var")
	assert.Contains(t, body, "correlation_matrix")
	assert.NotContains(t, body, "beta")
}

func TestHandleRiskWithBenchmark(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/risk?benchmark=BENCH.US", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "BENCH.US", body["benchmark"])
	assert.Contains(t, body, "beta")
}

func TestHandleRiskInvalidConfidence(t *testing.T) {
	s := newTestServer(t)

	for _, q := range []string{"confidence=0", "confidence=1", "confidence=abc", "confidence=-0.5"} {
		rec := doRequest(t, s, http.MethodGet, "/api/portfolio/risk?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestHandleAllocation(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/allocation", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	allocations, ok := body["allocations"].([]interface{})
	require.True(t, ok)
	assert.Len(t, allocations, 2)
}

func TestHandleOptimize(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/optimize", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.NotEmpty(t, body["frontier"])
	assert.Empty(t, body["cloud"])
}

func TestHandleOptimizeWithCloud(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/portfolio/optimize?cloud=true", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	cloud, ok := body["cloud"].([]interface{})
	require.True(t, ok)
	assert.Len(t, cloud, 2000)
}

func TestHandleWhatIf(t *testing.T) {
	s := newTestServer(t)
	payload := []byte(`{"weights": {"AAA.US": 0.3, "BBB.US": 0.7}}`)
	rec := doRequest(t, s, http.MethodPost, "/api/portfolio/whatif", payload)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Contains(t, body, "realized_summary")
	assert.Contains(t, body, "what_if_summary")
	assert.Contains(t, body, "deltas")
}

func TestHandleWhatIfBadRequests(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/portfolio/whatif", []byte(`{not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/api/portfolio/whatif", []byte(`{"weights": {}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWhatIfUnknownTicker(t *testing.T) {
	s := newTestServer(t)
	payload := []byte(`{"weights": {"AAA.US": 0.5, "ZZZ.US": 0.5}}`)
	rec := doRequest(t, s, http.MethodPost, "/api/portfolio/whatif", payload)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleRebalance(t *testing.T) {
	s := newTestServer(t)
	payload := []byte(`{"weights": {"AAA.US": 0.5, "BBB.US": 0.5}, "cost_rate": 0.001}`)
	rec := doRequest(t, s, http.MethodPost, "/api/portfolio/rebalance", payload)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	trades, ok := body["trades"].([]interface{})
	require.True(t, ok)
	assert.Len(t, trades, 2)
}

func TestHandleRebalanceNegativeCostRate(t *testing.T) {
	s := newTestServer(t)
	payload := []byte(`{"weights": {"AAA.US": 1.0}, "cost_rate": -0.01}`)
	rec := doRequest(t, s, http.MethodPost, "/api/portfolio/rebalance", payload)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleValueChart(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/charts/value.png", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, rec.Body.Bytes()[:4])
}

func TestHandleCoverage(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/prices/coverage", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	coverage, ok := body["coverage"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 120.0, coverage["AAA.US"])
	assert.Contains(t, body, "latest_date")
}

func TestHandleSyncWithoutJob(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/prices/sync", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleSystemStatus(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/api/system/status", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON(t, rec)
	assert.Equal(t, "running", body["status"])
	assert.Greater(t, body["goroutines"], 0.0)
}
