package main

import (
	"fmt"
	"log"
	"os"

	"main/handler"
	"main/middleware"
	"main/repository"
	"main/services"
	"main/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && os.Getenv("GO_ENV") != "test" {
		log.Fatalf("Error loading .env file: %v", err)
	}

	// Check required environment variables
	requiredEnvVars := []string{
		"MONGO_URI",
		"MONGO_DB",
		"USERS_COLLECTION",
		"SESSIONS_COLLECTION",
		"AUDIT_COLLECTION",
		"JWT_SECRET_KEY",
		"JWT_EXPIRATION_TIME",
		"REFRESH_TOKEN_EXPIRATION_TIME",
		"SESSION_DURATION",
		"REDIS_URL",
		"PORT",
	}

	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" && os.Getenv("GO_ENV") != "test" {
			log.Fatalf("Required environment variable %s is not set", envVar)
		}
	}

	utils.InitValidator()
	utils.InitJWT()
	utils.InitMongoClient()
}

func initRedis() {
	redisURL := os.Getenv("REDIS_URL")

	cache, err := services.NewSessionCache(redisURL)
	if err != nil {
		log.Fatalf("Failed to initialize session cache: %v", err)
	}
	services.GlobalSessionCache = cache
	cache.StartCleanupTask()

	feed, err := services.NewRedisSessionFeed(redisURL)
	if err != nil {
		log.Fatalf("Failed to initialize session feed: %v", err)
	}
	services.GlobalSessionFeed = feed

	blacklist, err := services.NewTokenBlacklist(redisURL)
	if err != nil {
		log.Fatalf("Failed to initialize token blacklist: %v", err)
	}
	services.TokenBlacklist = blacklist
}

func setupRouter() *gin.Engine {
	router := gin.Default()

	// Repositories
	sessionRepo := repository.GetSessionRepo(utils.MongoClient)
	auditRepo := repository.GetAuditRepo(utils.MongoClient)
	userRepo := repository.GetUserRepo(utils.MongoClient)

	// Services
	services.GlobalAlertService = services.NewAlertService()
	registrar := services.NewSessionRegistrar(sessionRepo, auditRepo, services.GlobalAlertService)
	activityLog := services.NewLockActivityLog(utils.GetEnvAsString("LOCK_LOG_PATH", "lock_activity.json"))

	// Handlers
	sessionHandler := handler.NewSessionHandler(sessionRepo, auditRepo, userRepo, registrar)
	lockHandler := handler.NewLockHandler(userRepo, activityLog)
	statsHandler := handler.NewStatsHandler(userRepo, sessionRepo, activityLog)

	// Middleware
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.EnhancedRecoveryMiddleware())
	router.Use(middleware.RequestTracingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestSizeLimiter(1 << 20))
	router.Use(middleware.SessionMiddleware(sessionRepo))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes (no authentication required)
	public := router.Group("/api")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/register", func(c *gin.Context) {
				handler.RegistrationHandler(c, userRepo)
			})
			auth.POST("/login", func(c *gin.Context) {
				handler.LoginHandler(c, userRepo, registrar)
			})
			auth.POST("/refresh", handler.RefreshHandler)
		}
	}

	// Protected routes (authentication required)
	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		user := protected.Group("/user")
		{
			user.GET("/profile", func(c *gin.Context) {
				handler.GetUserProfileHandler(c, userRepo)
			})
			user.POST("/logout", func(c *gin.Context) {
				handler.LogoutHandler(c, sessionRepo, auditRepo)
			})
		}

		// Session management endpoints
		sessions := protected.Group("/sessions")
		{
			sessions.GET("/active", sessionHandler.GetActiveSessions)
			sessions.POST("/register", sessionHandler.RegisterSession)
			sessions.POST("/heartbeat", sessionHandler.Heartbeat)
			sessions.DELETE("/:id", sessionHandler.KillSession)
			sessions.POST("/logout-all", sessionHandler.KillAllOtherSessions)
			sessions.GET("/events", sessionHandler.StreamSessionEvents)
			sessions.GET("/audit", sessionHandler.GetAuditLog)
		}

		// Lock overlay endpoints
		lock := protected.Group("/lock")
		{
			lock.POST("", lockHandler.Lock)
			lock.POST("/unlock", lockHandler.Unlock)
			lock.GET("/activity", lockHandler.GetActivity)
		}

		// Dashboard stats
		protected.GET("/stats/security",
			middleware.CacheControlMiddleware("15"),
			statsHandler.GetSecurityStats)
	}

	return router
}

func main() {
	initRedis()

	// Set up database indexes
	dbName := os.Getenv("MONGO_DB")
	if err := repository.SetupIndexes(utils.MongoClient.Database(dbName)); err != nil {
		log.Fatalf("Failed to set up indexes: %v", err)
	}

	// Set up router
	router := setupRouter()

	// Get port from environment variable or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	serverAddr := fmt.Sprintf(":%s", port)
	log.Printf("Server starting on %s", serverAddr)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
