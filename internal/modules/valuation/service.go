// Package valuation converts a target weight vector, initial capital and a
// price series into a buy-and-hold portfolio value trajectory.
//
// Shares are fixed at the valuation start date (weight x capital / start
// price) and never rebalanced, so realized weights drift as prices move.
// That drift is expected behavior: "current weight" figures are derived from
// the drifted values, not from the original targets.
package valuation

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
)

// Service computes portfolio value trajectories.
type Service struct {
	log zerolog.Logger
}

// New creates a valuation service.
func New(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("component", "valuation").Logger(),
	}
}

// commonDates returns the ascending inner join of the tickers' date sets.
// Dates missing for any ticker are excluded, never forward-filled.
func commonDates(prices domain.PriceSeries, tickers []string) []time.Time {
	counts := make(map[time.Time]int)
	for _, ticker := range tickers {
		for _, p := range prices[ticker] {
			counts[p.Date]++
		}
	}
	var dates []time.Time
	for date, c := range counts {
		if c == len(tickers) {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// ComputeValue produces the fixed-shares value series for the configuration
// starting at startDate. When startDate itself is not a trading day common
// to all assets, the nearest later common date is used.
//
// At the (effective) start date the series value equals the initial capital
// exactly, since shares are not rounded.
func (s *Service) ComputeValue(prices domain.PriceSeries, cfg domain.PortfolioConfig, startDate time.Time) (domain.ValueSeries, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, a := range cfg.Assets {
		if len(prices[a.Ticker]) == 0 {
			return nil, &domain.ConfigurationError{Ticker: a.Ticker, Reason: "no price data for analysis window"}
		}
	}

	dates := commonDates(prices, cfg.Tickers())
	i := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(startDate) })
	if i == len(dates) {
		return nil, &domain.ConfigurationError{Reason: "no common trading date on or after start date"}
	}
	dates = dates[i:]
	effectiveStart := dates[0]

	if !effectiveStart.Equal(startDate) {
		s.log.Debug().
			Str("requested", startDate.Format(domain.DateFormat)).
			Str("effective", effectiveStart.Format(domain.DateFormat)).
			Msg("Start date moved to nearest later common trading day")
	}

	shares, err := SharesAt(prices, cfg, effectiveStart)
	if err != nil {
		return nil, err
	}

	series := make(domain.ValueSeries, 0, len(dates))
	for _, date := range dates {
		total := 0.0
		for ticker, qty := range shares {
			price, ok := prices.PriceOn(ticker, date)
			if !ok {
				// Unreachable for dates from the inner join; guard anyway.
				continue
			}
			total += qty * price
		}
		series = append(series, domain.ValuePoint{Date: date, Value: total})
	}

	s.log.Debug().
		Int("observations", len(series)).
		Str("start", effectiveStart.Format(domain.DateFormat)).
		Msg("Computed portfolio value series")

	return series, nil
}

// SharesAt computes the fixed share quantities implied by the target weights
// and initial capital at the given date. Shares are fractional and not
// rounded.
func SharesAt(prices domain.PriceSeries, cfg domain.PortfolioConfig, date time.Time) (map[string]float64, error) {
	shares := make(map[string]float64, len(cfg.Assets))
	for _, a := range cfg.Assets {
		price, ok := prices.PriceOn(a.Ticker, date)
		if !ok {
			return nil, &domain.ConfigurationError{Ticker: a.Ticker, Reason: "no price on valuation start date"}
		}
		shares[a.Ticker] = a.TargetWeight * cfg.InitialCapital / price
	}
	return shares, nil
}

// Allocation describes one asset's position in the drifted portfolio.
type Allocation struct {
	Ticker       string  `json:"ticker"`
	Name         string  `json:"name"`
	AssetClass   string  `json:"asset_class"`
	Shares       float64 `json:"shares"`
	Price        float64 `json:"price"`
	Value        float64 `json:"value"`
	Weight       float64 `json:"weight"`
	TargetWeight float64 `json:"target_weight"`
}

// CurrentAllocation reports the drifted per-asset weights as of the last
// common trading date, alongside the original targets.
func (s *Service) CurrentAllocation(prices domain.PriceSeries, cfg domain.PortfolioConfig, startDate time.Time) ([]Allocation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dates := commonDates(prices, cfg.Tickers())
	i := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(startDate) })
	if i == len(dates) {
		return nil, &domain.ConfigurationError{Reason: "no common trading date on or after start date"}
	}
	effectiveStart := dates[i]
	lastDate := dates[len(dates)-1]

	shares, err := SharesAt(prices, cfg, effectiveStart)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for ticker, qty := range shares {
		price, _ := prices.PriceOn(ticker, lastDate)
		total += qty * price
	}

	allocations := make([]Allocation, 0, len(cfg.Assets))
	for _, a := range cfg.Assets {
		price, _ := prices.PriceOn(a.Ticker, lastDate)
		value := shares[a.Ticker] * price
		weight := 0.0
		if total > 0 {
			weight = value / total
		}
		allocations = append(allocations, Allocation{
			Ticker:       a.Ticker,
			Name:         a.Name,
			AssetClass:   a.AssetClass,
			Shares:       shares[a.Ticker],
			Price:        price,
			Value:        value,
			Weight:       weight,
			TargetWeight: a.TargetWeight,
		})
	}

	return allocations, nil
}
