package handler

import (
	"card-auction-engine/internal/adapter/http/middleware"
	redisStore "card-auction-engine/internal/adapter/storage/redis"
	"card-auction-engine/internal/core/ports"
	"card-auction-engine/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuctionSvc     ports.AuctionService
	Ledger         ports.Ledger
	TokenValidator ports.TokenValidator
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	FeedHandler    *realtime.FeedHandler      // nil = websocket feeds disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Deep health check verifying PostgreSQL and Redis
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenValidator, deps.Logger)

	auctionHandler := NewAuctionHandler(deps.AuctionSvc)
	walletHandler := NewWalletHandler(deps.Ledger)

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public marketplace reads ---
	v1.GET("/auctions", rl("marketplace"), auctionHandler.List)
	v1.GET("/auctions/:id", rl("marketplace"), auctionHandler.Get)
	v1.GET("/auctions/:id/bids", rl("marketplace"), auctionHandler.ListBids)

	// --- Websocket event feeds ---
	if deps.FeedHandler != nil {
		v1.GET("/feed", deps.FeedHandler.MarketplaceFeed)
		v1.GET("/auctions/:id/feed", deps.FeedHandler.AuctionFeed)
	}

	// --- JWT-authenticated mutations ---
	v1.POST("/auctions", jwtAuth, rl("listings"), auctionHandler.Create)
	v1.POST("/auctions/:id/bids", jwtAuth, rl("bids"), auctionHandler.PlaceBid)
	v1.POST("/auctions/:id/buyout", jwtAuth, rl("buyout"), auctionHandler.Buyout)
	v1.DELETE("/auctions/:id", jwtAuth, auctionHandler.Cancel)

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("", rl("wallet"), walletHandler.GetBalance)
		wallet.GET("/transactions", rl("wallet"), walletHandler.ListTransactions)
		wallet.POST("/adjust", middleware.AdminOnly(), walletHandler.Adjust)
	}

	return r
}
