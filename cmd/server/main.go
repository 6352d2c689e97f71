package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/gatepass/visitor-gate-backend/internal/config"
	"github.com/gatepass/visitor-gate-backend/internal/database"
	"github.com/gatepass/visitor-gate-backend/internal/handlers"
	"github.com/gatepass/visitor-gate-backend/internal/middleware"
	"github.com/gatepass/visitor-gate-backend/internal/models"
	"github.com/gatepass/visitor-gate-backend/internal/services"
	"github.com/gatepass/visitor-gate-backend/pkg/jwt"
	"github.com/gatepass/visitor-gate-backend/pkg/messaging"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Visitor Gate Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	userRepository := database.NewUserRepository(db)
	residentRepository := database.NewResidentRepository(db)
	propertyRepository := database.NewPropertyRepository(db)
	visitorRepository := database.NewVisitorRepository(db)
	notificationRepository := database.NewNotificationRepository(db)
	refreshTokenRepository := database.NewRefreshTokenRepository(db)
	auditLogRepository := database.NewAuditLogRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	otpService := services.NewOTPService(db)
	rateLimitService := services.NewRateLimitService(db, services.DefaultRateLimitConfig())
	auditService := services.NewAuditService(db, logger)

	// Initialize messaging gateway
	var gateway messaging.Gateway
	if cfg.Messaging.Mode == "production" {
		logger.Info("Initializing Twilio messaging gateway")
		gateway = messaging.NewTwilioGateway(messaging.TwilioConfig{
			APIURL:       cfg.Messaging.APIURL,
			AccountSID:   cfg.Messaging.AccountSID,
			AuthToken:    cfg.Messaging.AuthToken,
			SMSFrom:      cfg.Messaging.SMSFrom,
			WhatsAppFrom: cfg.Messaging.WhatsAppFrom,
		})
	} else {
		logger.Info("Messaging gateway in development mode (no messages will be sent)")
		gateway = messaging.NewDevGateway(logger)
	}

	notificationService := services.NewNotificationService(
		notificationRepository,
		userRepository,
		gateway,
		logger,
	)
	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		userRepository,
		refreshTokenRepository,
		jwtService,
		otpService,
		rateLimitService,
		auditService,
		notificationService,
		cfg,
		logger,
	)
	visitorHandler := handlers.NewVisitorHandler(
		visitorRepository,
		residentRepository,
		auditService,
		notificationService,
		logger,
	)
	residentVisitorHandler := handlers.NewResidentVisitorHandler(
		visitorRepository,
		residentRepository,
		auditService,
		notificationService,
		logger,
	)
	guardHandler := handlers.NewGuardHandler(
		visitorRepository,
		residentRepository,
		auditService,
		notificationService,
		logger,
	)
	notificationHandler := handlers.NewNotificationHandler(notificationRepository, logger)
	adminHandler := handlers.NewAdminHandler(
		userRepository,
		residentRepository,
		propertyRepository,
		visitorRepository,
		refreshTokenRepository,
		auditLogRepository,
		auditService,
		cfg,
		logger,
	)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	authRequired := middleware.AuthMiddleware(jwtService, logger)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/send-otp", authHandler.SendOTP)
			auth.POST("/verify-otp", authHandler.VerifyOTP)
			auth.POST("/admin-login", authHandler.AdminLogin)
			auth.POST("/refresh-token", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)

			protected := auth.Group("")
			protected.Use(authRequired)
			{
				protected.GET("/me", authHandler.Me)
			}
		}

		// Public visitor self-registration
		visitors := v1.Group("/visitors")
		{
			visitors.POST("/register", visitorHandler.Register)
			visitors.POST("/verify-otp", visitorHandler.VerifyOTP)
			visitors.GET("/:id/status", visitorHandler.Status)
		}

		// Resident routes (resident role required)
		resident := v1.Group("/resident")
		resident.Use(authRequired, middleware.RequireRole(models.RoleResident))
		{
			resident.GET("/visitors", residentVisitorHandler.List)
			resident.GET("/directory", residentVisitorHandler.Directory)
			resident.POST("/visitors/approve", residentVisitorHandler.Approve)
			resident.POST("/visitors/reject", residentVisitorHandler.Reject)
			resident.POST("/visitors/forward", residentVisitorHandler.Forward)
			resident.POST("/visitors/mark-exit", residentVisitorHandler.MarkExit)
		}

		// Guard routes (guard role required)
		guard := v1.Group("/guard")
		guard.Use(authRequired, middleware.RequireRole(models.RoleGuard))
		{
			guard.GET("/visitors", guardHandler.GateList)
			guard.POST("/visitors/check-in", guardHandler.CheckIn)
			guard.POST("/visitors/manual-entry", guardHandler.ManualEntry)
		}

		// Notification routes (any authenticated user)
		notifications := v1.Group("/notifications")
		notifications.Use(authRequired)
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
		}

		// Admin routes (super admin only)
		admin := v1.Group("/admin")
		admin.Use(authRequired, middleware.RequireRole(models.RoleSuperAdmin))
		{
			admin.POST("/users", adminHandler.CreateUser)
			admin.GET("/users", adminHandler.ListUsers)
			admin.PATCH("/users/:id/status", adminHandler.UpdateUserStatus)

			admin.POST("/properties", adminHandler.CreateProperty)
			admin.GET("/properties", adminHandler.ListProperties)
			admin.GET("/properties/:id", adminHandler.GetProperty)
			admin.PATCH("/properties/:id", adminHandler.UpdateProperty)
			admin.GET("/properties/:id/residents", adminHandler.ListPropertyResidents)
			admin.GET("/properties/:id/stats", adminHandler.PropertyStats)

			admin.GET("/audit-logs", adminHandler.AuditLogs)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID.String()
			fields["role"] = userCtx.Role
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case len(c.Errors) > 0:
			entry.WithField("errors", c.Errors.String()).Error("Request failed with errors")
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
