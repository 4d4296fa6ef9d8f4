// Package stooq fetches daily adjusted close prices from stooq.com's CSV
// endpoint. The client is a pure data collaborator: it parses rows into
// domain.PricePoint values and contributes no analytics.
package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
)

// Client for stooq.com daily CSV downloads.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a stooq client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: "https://stooq.com/q/d/l/",
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("client", "stooq").Logger(),
	}
}

// FetchDaily downloads the daily price history for a ticker between from and
// to (inclusive). Rows with zero or unparseable closes are skipped; the
// result is ascending by date, matching stooq's CSV ordering.
func (c *Client) FetchDaily(ctx context.Context, ticker string, from, to time.Time) ([]domain.PricePoint, error) {
	q := url.Values{}
	q.Set("s", strings.ToLower(ticker))
	q.Set("d1", from.Format("20060102"))
	q.Set("d2", to.Format("20060102"))
	q.Set("i", "d")

	reqURL := c.baseURL + "?" + q.Encode()
	c.log.Debug().Str("ticker", ticker).Str("url", reqURL).Msg("Fetching daily prices")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stooq returned status %d for %s", resp.StatusCode, ticker)
	}

	points, err := parseCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV for %s: %w", ticker, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no price data returned for %s", ticker)
	}

	c.log.Info().Str("ticker", ticker).Int("points", len(points)).Msg("Fetched daily prices")
	return points, nil
}

// parseCSV reads stooq's Date,Open,High,Low,Close,Volume layout. Only Date
// and Close are kept.
func parseCSV(r io.Reader) ([]domain.PricePoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("missing CSV header: %w", err)
	}

	dateCol, closeCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			dateCol = i
		case "close":
			closeCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("CSV header missing Date/Close columns: %v", header)
	}

	var points []domain.PricePoint
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) <= dateCol || len(row) <= closeCol {
			continue
		}

		date, err := time.Parse(domain.DateFormat, strings.TrimSpace(row[dateCol]))
		if err != nil {
			continue
		}
		close, err := strconv.ParseFloat(strings.TrimSpace(row[closeCol]), 64)
		if err != nil || close <= 0 {
			continue
		}

		points = append(points, domain.PricePoint{Date: date, Close: close})
	}
	return points, nil
}
