package handler

import (
	"ephemeral-account-service/internal/adapter/http/middleware"
	redisStore "ephemeral-account-service/internal/adapter/storage/redis"
	"ephemeral-account-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	AccountSvc     ports.AccountService
	ClientRepo     ports.ClientRepository
	EncSvc         ports.EncryptionService
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
//
// Route groups by trust level:
//   - HMAC-signed: initialize, record payment, sweep (collaborator API)
//   - public + rate limited: expire, reclaim (anyone may trigger them,
//     funds can only reach pre-committed identities)
//   - JWT: read-only queries
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
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

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	accountHandler := NewAccountHandler(deps.AccountSvc)

	// --- HMAC-authenticated routes (collaborator API) ---
	hmacAuth := middleware.HMACAuth(deps.ClientRepo, deps.EncSvc, deps.SigSvc, deps.NonceStore, deps.Logger)
	accounts := v1.Group("/accounts", hmacAuth)
	{
		accounts.POST("", rl("accounts"), accountHandler.Initialize)
		accounts.POST("/:id/payment", rl("accounts"), accountHandler.RecordPayment)
		accounts.POST("/:id/sweep", rl("sweeps"), accountHandler.Sweep)
	}

	// --- Public lifecycle routes (rate limited per IP) ---
	public := v1.Group("/accounts")
	{
		public.POST("/:id/expire", rl("expire"), accountHandler.Expire)
		public.POST("/:id/reserve/reclaim", rl("reclaim"), accountHandler.ReclaimReserve)
	}

	// --- JWT-authenticated routes (query API) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	queries := v1.Group("/accounts", jwtAuth)
	{
		queries.GET("/:id", rl("queries"), accountHandler.GetInfo)
		queries.GET("/:id/status", rl("queries"), accountHandler.GetStatus)
		queries.GET("/:id/expired", rl("queries"), accountHandler.IsExpired)
		queries.GET("/:id/reserve", rl("queries"), accountHandler.GetReserve)
		queries.GET("/:id/events", rl("queries"), accountHandler.ListEvents)
	}

	return r
}
