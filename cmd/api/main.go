package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/connectcapital4-hash/vertexcapital/internal/config"
	"github.com/connectcapital4-hash/vertexcapital/internal/db"
	"github.com/connectcapital4-hash/vertexcapital/internal/engine"
	"github.com/connectcapital4-hash/vertexcapital/internal/handlers"
	"github.com/connectcapital4-hash/vertexcapital/internal/ledger"
	"github.com/connectcapital4-hash/vertexcapital/internal/market"
	"github.com/connectcapital4-hash/vertexcapital/internal/models"
	"github.com/connectcapital4-hash/vertexcapital/internal/notify"
	"github.com/connectcapital4-hash/vertexcapital/internal/scheduler"
	"github.com/connectcapital4-hash/vertexcapital/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Int("port", cfg.Port).Msg("Starting Vertex Capital ledger")

	database, err := db.New(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	store := ledger.NewStore(database, log)
	prices := buildPriceGateway(cfg, log)

	locks := models.NewAccountLockManager()
	notifier := notify.NewLogGateway(log)

	assignment := engine.NewAssignmentEngine(store, prices, locks, notifier, cfg.LockTimeout, log)
	withdrawal := engine.NewWithdrawalEngine(store, prices, locks, notifier, cfg.LockTimeout, log)
	accounts := engine.NewAccountService(store, locks, notifier, cfg.LockTimeout, log)
	growth := engine.NewGrowthEngine(store, locks, notifier, engine.GrowthRates{Base: cfg.GrowthRate}, cfg.LockTimeout, log)
	valuation := engine.NewValuationService(store, prices, log)

	processor := engine.NewProcessor(cfg.TradeWorkers, assignment, withdrawal, log)
	processor.Start()
	defer processor.Stop()

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.GrowthSchedule, scheduler.NewGrowthJob(growth, 10*time.Minute)); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.GrowthSchedule).Msg("Failed to schedule growth accrual")
	}
	sched.Start()
	defer sched.Stop()

	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	h := handlers.New(store, processor, accounts, growth, valuation, prices, log)
	h.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
	log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
}

// buildPriceGateway wires live market providers, or a static table when
// running in dev mode without API credentials.
func buildPriceGateway(cfg *config.Config, log zerolog.Logger) market.PriceGateway {
	if cfg.DevMode && cfg.FinnhubAPIKey == "" {
		log.Warn().Msg("No market API key configured, using static dev prices")
		return market.NewStaticGateway(map[string]decimal.Decimal{
			"AAPL": decimal.NewFromFloat(210.50),
			"MSFT": decimal.NewFromFloat(415.20),
			"NVDA": decimal.NewFromFloat(122.85),
			"BTC":  decimal.NewFromFloat(58900),
			"ETH":  decimal.NewFromFloat(2480),
		})
	}
	stocks := market.NewFinnhubClient(cfg.FinnhubBaseURL, cfg.FinnhubAPIKey, cfg.PriceTimeout, log)
	crypto := market.NewCoinGeckoClient(cfg.CoinGeckoBaseURL, cfg.PriceTimeout, log)
	return market.NewGateway(stocks, crypto)
}
