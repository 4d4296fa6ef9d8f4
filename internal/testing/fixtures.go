// Package testing provides shared fixtures: in-memory databases with the
// schema applied and synthetic price series builders.
package testing

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/database"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
)

// NewTestDB opens an in-memory SQLite database with the named schema applied.
// name must be one of the embedded schema keys ("history", "calculations").
// Each call gets its own database; the shared cache only spans the pool's
// connections to it.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		Profile: database.ProfileCache,
		Name:    name,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// SilentLogger returns a logger that discards everything, for test services.
func SilentLogger() zerolog.Logger {
	return zerolog.Nop()
}

// Day returns midnight UTC for a date literal.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Series builds consecutive daily price points starting at start, one per
// close value. Weekends are not skipped; the analytics only care about
// ordering, not calendar gaps.
func Series(start time.Time, closes ...float64) []domain.PricePoint {
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	return points
}

// LinearSeries builds n daily points moving linearly from first to last.
func LinearSeries(start time.Time, first, last float64, n int) []domain.PricePoint {
	points := make([]domain.PricePoint, n)
	for i := 0; i < n; i++ {
		frac := float64(i) / float64(n-1)
		points[i] = domain.PricePoint{
			Date:  start.AddDate(0, 0, i),
			Close: first + (last-first)*frac,
		}
	}
	return points
}

// GrowthSeries builds n daily points compounding at rate per day from first.
func GrowthSeries(start time.Time, first, dailyRate float64, n int) []domain.PricePoint {
	points := make([]domain.PricePoint, n)
	price := first
	for i := 0; i < n; i++ {
		points[i] = domain.PricePoint{Date: start.AddDate(0, 0, i), Close: price}
		price *= 1 + dailyRate
	}
	return points
}

// TwoAssetConfig is a convenient valid portfolio over tickers a and b.
func TwoAssetConfig(a, b string, weightA, capital float64) domain.PortfolioConfig {
	return domain.PortfolioConfig{
		Assets: []domain.AssetDefinition{
			{Ticker: a, Name: a, AssetClass: "equity", TargetWeight: weightA},
			{Ticker: b, Name: b, AssetClass: "equity", TargetWeight: 1 - weightA},
		},
		InitialCapital: capital,
	}
}
