// Package prices implements the historical price store: a flat SQLite table
// of adjusted daily closes keyed by (ticker, date). Refreshes replace a
// ticker's history wholesale; readers get immutable snapshots.
package prices

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/utils"
)

// Store provides access to historical price data.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStore creates a new price store backed by the history database.
func NewStore(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("component", "price_store").Logger(),
	}
}

// SyncPrices replaces the stored history for a ticker with the given points
// in a single transaction. Points with non-positive prices are rejected.
func (s *Store) SyncPrices(ticker string, points []domain.PricePoint) error {
	if ticker == "" {
		return fmt.Errorf("empty ticker")
	}
	for _, p := range points {
		if p.Close <= 0 {
			return fmt.Errorf("non-positive price %.4f for %s on %s", p.Close, ticker, p.Date.Format(domain.DateFormat))
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op once Commit succeeds

	if _, err := tx.Exec("DELETE FROM daily_prices WHERE ticker = ?", ticker); err != nil {
		return fmt.Errorf("failed to clear prices for %s: %w", ticker, err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_prices (ticker, date, adjusted_close)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.Exec(ticker, utils.Midnight(p.Date).Unix(), p.Close); err != nil {
			return fmt.Errorf("failed to insert price for %s on %s: %w", ticker, p.Date.Format(domain.DateFormat), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Info().
		Str("ticker", ticker).
		Int("count", len(points)).
		Msg("Synced historical prices")

	return nil
}

// GetDailyPrices fetches the stored history for one ticker in ascending date
// order. A zero from/to means unbounded on that side.
func (s *Store) GetDailyPrices(ticker string, from, to time.Time) ([]domain.PricePoint, error) {
	fromUnix := int64(0)
	if !from.IsZero() {
		fromUnix = utils.Midnight(from).Unix()
	}
	toUnix := int64(1<<62 - 1)
	if !to.IsZero() {
		toUnix = utils.Midnight(to).Unix()
	}

	rows, err := s.db.Query(`
		SELECT date, adjusted_close
		FROM daily_prices
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, ticker, fromUnix, toUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var dateUnix int64
		var p domain.PricePoint
		if err := rows.Scan(&dateUnix, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		p.Date = utils.UnixToDate(dateUnix)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return points, nil
}

// GetSeries builds an immutable price series snapshot for the given tickers
// over [from, to]. A ticker with no data in the window yields a
// ConfigurationError so the caller knows which input to fix.
func (s *Store) GetSeries(tickers []string, from, to time.Time) (domain.PriceSeries, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers provided")
	}

	series := make(domain.PriceSeries, len(tickers))
	for _, ticker := range tickers {
		points, err := s.GetDailyPrices(ticker, from, to)
		if err != nil {
			return nil, err
		}
		if len(points) == 0 {
			return nil, &domain.ConfigurationError{Ticker: ticker, Reason: "no price data in requested window"}
		}
		series[ticker] = points
	}

	s.log.Debug().
		Int("tickers", len(series)).
		Msg("Built price series snapshot")

	return series, nil
}

// LatestDate returns the most recent date with any stored price, or the zero
// time when the table is empty.
func (s *Store) LatestDate() (time.Time, error) {
	var dateUnix sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(date) FROM daily_prices").Scan(&dateUnix)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest date: %w", err)
	}
	if !dateUnix.Valid {
		return time.Time{}, nil
	}
	return utils.UnixToDate(dateUnix.Int64), nil
}

// Coverage reports the number of stored observations per ticker.
func (s *Store) Coverage() (map[string]int, error) {
	rows, err := s.db.Query("SELECT ticker, COUNT(*) FROM daily_prices GROUP BY ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to query coverage: %w", err)
	}
	defer rows.Close()

	coverage := make(map[string]int)
	for rows.Next() {
		var ticker string
		var count int
		if err := rows.Scan(&ticker, &count); err != nil {
			return nil, fmt.Errorf("failed to scan coverage row: %w", err)
		}
		coverage[ticker] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coverage: %w", err)
	}

	return coverage, nil
}

// RecordSyncRun stores the outcome of a price refresh run for diagnostics.
func (s *Store) RecordSyncRun(id string, started, finished time.Time, tickers, points int, runErr error) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_runs (id, started_at, finished_at, tickers, points, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, started.Unix(), finished.Unix(), tickers, points, errText)
	if err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}
