package handler

import (
	"payauth-platform/internal/adapter/http/middleware"
	redisStore "payauth-platform/internal/adapter/storage/redis"
	"payauth-platform/internal/core/ports"
	"payauth-platform/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	IngressSvc         ports.AuthIngressService
	TokenSvc           ports.TokenStoreService
	ReportingSvc       ports.ReportingService
	LoginSvc           ports.LoginService
	CredentialRepo     ports.RestaurantCredentialRepository
	EncSvc             ports.EncryptionService
	SigSvc             ports.SignatureService
	NonceStore         ports.NonceStore
	JWTSvc             ports.TokenService
	RateLimitStore     *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers     []ports.HealthChecker
	AuditSvc           ports.AuditService // nil = audit logging disabled
	Logger             zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

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

	// --- HMAC-authenticated routes (restaurant ingress) ---
	hmacAuth := middleware.HMACAuth(deps.CredentialRepo, deps.EncSvc, deps.SigSvc, deps.NonceStore, deps.Logger)

	authorizeHandler := NewAuthorizeHandler(deps.IngressSvc)
	v1 := r.Group("/api/v1", hmacAuth)
	{
		v1.POST("/authorize", rl("authorize"), authorizeHandler.Authorize)
		v1.GET("/authorize/:id", rl("status"), authorizeHandler.GetStatus)
		v1.POST("/authorize/:id/void", rl("void"), authorizeHandler.Void)
	}

	tokenHandler := NewTokenHandler(deps.TokenSvc)
	tokens := r.Group("/api/v1/payment-tokens", hmacAuth)
	{
		tokens.POST("", rl("payment_tokens"), tokenHandler.CreateToken)
		tokens.GET("/:id", rl("payment_tokens"), tokenHandler.GetToken)
		tokens.DELETE("/:id", rl("payment_tokens"), tokenHandler.RevokeToken)
	}

	// --- Dashboard login (unauthenticated — issues the JWT used below) ---
	loginHandler := NewLoginHandler(deps.LoginSvc)
	r.POST("/api/v1/dashboard/login", rl("dashboard"), loginHandler.Login)

	// --- JWT-authenticated routes (dashboard) ---
	jwtAuth := middleware.JWTAuth(deps.JWTSvc, deps.Logger)
	dashboardHandler := NewDashboardHandler(deps.ReportingSvc)
	dashboard := r.Group("/api/v1/dashboard", jwtAuth)
	{
		dashboard.GET("/summary", rl("dashboard"), dashboardHandler.Summary)
	}

	// --- Service-authenticated routes (Authorization Worker, key rotation) ---
	serviceAuth := middleware.ServiceAuth(deps.JWTSvc, deps.Logger)
	internalHandler := NewInternalHandler(deps.TokenSvc)
	internalV1 := r.Group("/internal/v1", serviceAuth)
	{
		internalV1.POST("/decrypt", rl("internal"), internalHandler.Decrypt)
		internalV1.POST("/encryption-keys/rotate", rl("internal"), internalHandler.RotateKeys)
	}

	return r
}
