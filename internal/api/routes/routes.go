package routes

import (
	"time"

	"docaudit/internal/api/handlers"
	"docaudit/internal/api/middleware"
	"docaudit/internal/config"
	"docaudit/internal/realtime"
	"docaudit/internal/repositories/postgres"
	"docaudit/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Router struct {
	engine       *gin.Engine
	wsHandler    *handlers.WSHandler
	auditHandler *handlers.AuditHandler
	userHandler  *handlers.UserHandler
	authHandler  *handlers.AuthHandler
	rateLimitMW  *middleware.RateLimitMiddleware
	authMW       *middleware.AuthMiddleware
}

func NewRouter(
	cfg *config.Config,
	db *gorm.DB,
	redisService *services.RedisService,
	auditService *services.AuditService,
	registry *realtime.Registry,
	mux *realtime.Mux,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	userRepo := postgres.NewUserRepository(db)
	authService := services.NewAuthService(userRepo, redisService, cfg.Auth.JWTSecret, cfg.Auth.JWTExpire)

	authMW := middleware.NewAuthMiddleware(authService, cfg.Auth.CookieName)
	rateLimitMW := middleware.NewRateLimitMiddleware(redisService)

	cookieMaxAge := int(cfg.Auth.JWTExpire / time.Second)

	return &Router{
		engine:       engine,
		wsHandler:    handlers.NewWSHandler(registry, mux, authService, authMW),
		auditHandler: handlers.NewAuditHandler(auditService),
		userHandler:  handlers.NewUserHandler(auditService),
		authHandler:  handlers.NewAuthHandler(authService, cfg.Auth.CookieName, cookieMaxAge),
		rateLimitMW:  rateLimitMW,
		authMW:       authMW,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	// WebSocket handshake; authentication happens inside the handler so a
	// bad credential gets the unauthorized close code, not an HTTP 401.
	api.GET("/ws", r.wsHandler.HandleWebSocket)

	// Authenticated routes
	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		users := auth.Group("/users")
		users.Use(r.rateLimitMW.RateLimit(100, time.Minute))
		{
			users.GET("/profile", r.userHandler.GetProfile)
		}

		audits := auth.Group("/audits")
		audits.Use(r.rateLimitMW.RateLimit(30, time.Minute))
		{
			audits.POST("/", r.auditHandler.Create)
			audits.GET("/", r.auditHandler.History)
		}
	}

	// Public routes
	public := api.Group("/")
	{
		authRoutes := public.Group("/auth")
		authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute))
		{
			authRoutes.POST("/register", r.authHandler.Register)
			authRoutes.POST("/login", r.authHandler.Login)
			authRoutes.DELETE("/logout", r.authHandler.Logout)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
