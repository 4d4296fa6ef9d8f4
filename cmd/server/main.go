// Package main is the entry point for the asset management tracker. It wires
// the price store, analytics services, scheduler and HTTP server, then waits
// for a shutdown signal.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/clients/stooq"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/config"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/database"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/calculations"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/optimization"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/prices"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/rebalancing"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/valuation"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/scheduler"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/server"
	"github.com/BenPfeffer-bot/AssetManagementTracker/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Msg("Starting asset tracker")

	portfolio, err := cfg.LoadPortfolio()
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.PortfolioPath).Msg("Failed to load portfolio definition")
	}
	log.Info().Int("assets", len(portfolio.Assets)).Msg("Portfolio loaded")

	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileHistory,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	calcDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "calculations.db"),
		Profile: database.ProfileCache,
		Name:    "calculations",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open calculations database")
	}
	defer calcDB.Close()

	for _, db := range []*database.DB{historyDB, calcDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("db", db.Name()).Msg("Failed to apply schema")
		}
	}

	store := prices.NewStore(historyDB.Conn(), log)
	cache := calculations.NewCache(calcDB.Conn(), log)

	valuationSvc := valuation.New(log)
	optimizerSvc := optimization.NewService(
		optimization.NewMonteCarloOptimizer(optimization.DefaultSamples, time.Now().UnixNano(), log),
		optimization.NewMVOptimizer(log),
		cache,
		log,
	)
	rebalancingSvc := rebalancing.New(valuationSvc, log)

	sched := scheduler.New(log)
	refreshJob := scheduler.NewRefreshJob(
		stooq.NewClient(log),
		store,
		cache,
		portfolio.Tickers(),
		cfg.StartDate,
		cfg.EndDate,
		log,
	)
	if err := sched.AddJob(cfg.RefreshCron, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Deps{
		Config:      cfg,
		Portfolio:   portfolio,
		Store:       store,
		Valuation:   valuationSvc,
		Optimizer:   optimizerSvc,
		Rebalancing: rebalancingSvc,
		Scheduler:   sched,
		RefreshJob:  refreshJob,
		Log:         log,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Stopped")
}
