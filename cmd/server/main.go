// Package main is the entry point for the folioscope pricing and
// portfolio-valuation service.
//
// Startup sequence:
// 1. Load configuration from environment variables
// 2. Initialize logging
// 3. Open the price cache database and apply its schema
// 4. Wire provider clients and services
// 5. Schedule the daily cache cleanup job
// 6. Start the HTTP server and wait for a shutdown signal
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/folioscope/folioscope/internal/clients/aiestimate"
	"github.com/folioscope/folioscope/internal/clients/coingecko"
	"github.com/folioscope/folioscope/internal/clients/exchangerate"
	"github.com/folioscope/folioscope/internal/clients/finnhub"
	"github.com/folioscope/folioscope/internal/clients/tiingo"
	"github.com/folioscope/folioscope/internal/clients/yahoo"
	"github.com/folioscope/folioscope/internal/config"
	"github.com/folioscope/folioscope/internal/database"
	"github.com/folioscope/folioscope/internal/modules/history"
	historyhandlers "github.com/folioscope/folioscope/internal/modules/history/handlers"
	"github.com/folioscope/folioscope/internal/modules/resolver"
	resolverhandlers "github.com/folioscope/folioscope/internal/modules/resolver/handlers"
	"github.com/folioscope/folioscope/internal/modules/valuation"
	valuationhandlers "github.com/folioscope/folioscope/internal/modules/valuation/handlers"
	"github.com/folioscope/folioscope/internal/pricecache"
	"github.com/folioscope/folioscope/internal/scheduler"
	"github.com/folioscope/folioscope/internal/server"
	"github.com/folioscope/folioscope/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logging isn't up yet.
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("base_currency", cfg.BaseCurrency).
		Msg("Starting folioscope")

	// Price cache database
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "pricecache.db"),
		Profile: database.ProfileCache,
		Name:    "pricecache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open price cache database")
	}
	defer cacheDB.Close()

	cacheRepo := pricecache.NewRepository(cacheDB.Conn())
	if err := cacheRepo.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize price cache schema")
	}

	// Provider clients
	rateClient := exchangerate.NewClient(log)
	tiingoClient := tiingo.NewClient(cfg.TiingoAPIKey, log)
	finnhubClient := finnhub.NewClient(cfg.FinnhubAPIKey, log)
	yahooClient := yahoo.NewClient(log)
	coingeckoClient := coingecko.NewClient(log)
	estimateClient := aiestimate.NewClient(cfg.GeminiAPIKey, log)

	// Services
	resolverService := resolver.NewService(
		cacheRepo,
		[]resolver.QuoteProvider{tiingoClient, finnhubClient, yahooClient},
		finnhubClient,
		coingeckoClient,
		estimateClient,
		rateClient,
		log,
	)
	valuationService := valuation.NewService(resolverService, rateClient, log)
	historyService := history.NewService(yahooClient, coingeckoClient, finnhubClient, rateClient, log)

	// Daily cache cleanup
	sched := scheduler.New(log)
	cleanupJob := pricecache.NewCleanupJob(cacheRepo, log)
	if err := sched.AddJob("@daily", cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache cleanup job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port:             cfg.Port,
		DevMode:          cfg.DevMode,
		ResolverHandler:  resolverhandlers.NewHandler(resolverService, log),
		ValuationHandler: valuationhandlers.NewHandler(valuationService, cfg.BaseCurrency, log),
		HistoryHandler:   historyhandlers.NewHandler(valuationService, historyService, cfg.BaseCurrency, log),
		HealthCheck: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return cacheDB.QuickCheck(ctx)
		},
		Log: log,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
