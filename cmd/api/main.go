package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"card-auction-engine/config"
	httpHandler "card-auction-engine/internal/adapter/http/handler"
	"card-auction-engine/internal/adapter/inventory"
	pgStorage "card-auction-engine/internal/adapter/storage/postgres"
	redisStorage "card-auction-engine/internal/adapter/storage/redis"
	"card-auction-engine/internal/core/ports"
	"card-auction-engine/internal/realtime"
	"card-auction-engine/internal/service"
	"card-auction-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Card Auction Engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if err := pgStorage.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	auctionRepo := pgStorage.NewAuctionRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Broadcast: in-process hub for websocket viewers plus Redis pub/sub
	// mirror for other engine instances.
	hub := realtime.NewHub(log)
	publisher := realtime.NewFanout(hub, redisStorage.NewEventPublisher(rdb, log))

	// Initialize core services
	tokenSvc := service.NewJWTTokenService(cfg.Auth.Secret, cfg.Auth.Expiry, cfg.Auth.Issuer)
	inventorySvc := inventory.NewClient(cfg.Inventory, log)
	clock := service.SystemClock{}

	// Initialize business services
	ledgerSvc := service.NewLedgerService(walletRepo, ledgerRepo, transactor, log)
	auctionSvc := service.NewAuctionService(
		auctionRepo,
		ledgerSvc,
		inventorySvc,
		publisher,
		transactor,
		clock,
		cfg.Auction,
		log,
	)

	// Expiration sweeper
	sweeper := service.NewSweeper(auctionRepo, auctionSvc, clock, cfg.Auction.SweepInterval, log)
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go sweeper.Start(sweepCtx)

	// Initialize rate limit store
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuctionSvc:     auctionSvc,
		Ledger:         ledgerSvc,
		TokenValidator: tokenSvc,
		RateLimitStore: rateLimitStore,
		FeedHandler:    realtime.NewFeedHandler(hub, log),
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
