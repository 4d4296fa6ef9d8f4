package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/calculations"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/prices"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/utils"
)

// PriceFetcher downloads a ticker's daily history. Satisfied by the stooq
// client.
type PriceFetcher interface {
	FetchDaily(ctx context.Context, ticker string, from, to time.Time) ([]domain.PricePoint, error)
}

// RefreshJob fetches the configured tickers' daily histories and replaces the
// stored series wholesale. Each run gets a uuid and a row in sync_runs; a
// successful run invalidates cached derived results.
type RefreshJob struct {
	client  PriceFetcher
	store   *prices.Store
	cache   *calculations.Cache
	tickers []string
	from    time.Time
	to      time.Time
	timeout time.Duration
	log     zerolog.Logger
}

// NewRefreshJob creates the price refresh job.
func NewRefreshJob(client PriceFetcher, store *prices.Store, cache *calculations.Cache, tickers []string, from, to time.Time, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		client:  client,
		store:   store,
		cache:   cache,
		tickers: tickers,
		from:    from,
		to:      to,
		timeout: 5 * time.Minute,
		log:     log.With().Str("component", "refresh").Logger(),
	}
}

// Name implements Job.
func (j *RefreshJob) Name() string { return "price-refresh" }

// Run implements Job. Per-ticker failures are logged and skipped; the run
// only fails when every ticker fails.
func (j *RefreshJob) Run() error {
	runID := uuid.New().String()
	started := time.Now()
	done := utils.OperationTimer("price_refresh", j.log)
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	var lastErr error
	synced, totalPoints := 0, 0
	for _, ticker := range j.tickers {
		points, err := j.client.FetchDaily(ctx, ticker, j.from, j.to)
		if err != nil {
			j.log.Warn().Err(err).Str("ticker", ticker).Str("run_id", runID).Msg("Fetch failed, keeping stored series")
			lastErr = err
			continue
		}
		if err := j.store.SyncPrices(ticker, points); err != nil {
			j.log.Error().Err(err).Str("ticker", ticker).Str("run_id", runID).Msg("Sync failed")
			lastErr = err
			continue
		}
		synced++
		totalPoints += len(points)
	}

	// The run only fails when every ticker failed, but the audit row keeps
	// the last per-ticker error so partial failures stay visible.
	runErr := lastErr
	if synced > 0 {
		runErr = nil
		if j.cache != nil {
			if err := j.cache.InvalidateCategory("frontier"); err != nil {
				j.log.Warn().Err(err).Msg("Failed to invalidate frontier cache")
			}
		}
	}

	if err := j.store.RecordSyncRun(runID, started, time.Now(), synced, totalPoints, lastErr); err != nil {
		j.log.Warn().Err(err).Str("run_id", runID).Msg("Failed to record sync run")
	}

	j.log.Info().
		Str("run_id", runID).
		Int("tickers", synced).
		Int("points", totalPoints).
		Msg("Price refresh finished")

	return runErr
}
