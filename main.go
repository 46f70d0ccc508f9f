package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gabriel-Santos7/zapsign-api/config"
	"github.com/Gabriel-Santos7/zapsign-api/handler"
	"github.com/Gabriel-Santos7/zapsign-api/middleware"
	"github.com/Gabriel-Santos7/zapsign-api/pkg/logger"
	"github.com/Gabriel-Santos7/zapsign-api/service"
)

func main() {
	// Optional .env for local development; config.Load reads the environment
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize services
	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	store := service.NewDocumentStore()
	zapsignSvc := service.NewZapSignService(&cfg.ZapSign)
	extractor := service.NewPDFExtractor()

	// Whether a primary analysis provider exists is resolved once here,
	// never per request
	var primary service.AnalysisProvider
	if cfg.Gemini.APIKey != "" {
		gemini, err := service.NewGeminiAnalyzer(context.Background(), &cfg.Gemini)
		if err != nil {
			slog.Error("failed to initialize gemini analyzer", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		primary = gemini
		slog.Info("primary analysis provider enabled", "model", cfg.Gemini.Model)
	} else {
		slog.Warn("gemini api key not configured, analyses run on the local analyzer only")
	}

	orchestrator := service.NewAnalysisOrchestrator(
		store,
		extractor,
		primary,
		service.NewLocalAnalyzer(),
		time.Duration(cfg.Analysis.PrimaryTimeoutSeconds)*time.Second,
		time.Duration(cfg.Analysis.SecondaryTimeoutSeconds)*time.Second,
	)
	dispatcher := service.NewWebhookDispatcher(store, cfg.ZapSign.WebhookSecret)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	documentHandler := handler.NewDocumentHandler(store, minioSvc, zapsignSvc)
	analysisHandler := handler.NewAnalysisHandler(store, orchestrator)
	webhookHandler := handler.NewWebhookHandler(dispatcher)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(corsMiddleware())
	router.Use(middleware.RateLimit(100, time.Minute, "/api/webhooks/")) // 100 requests per minute per client

	// Health check and metrics
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/webhooks/signature-provider", webhookHandler.HandleSignatureEvent)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/documents", documentHandler.Create)
		protected.POST("/documents/upload", documentHandler.Upload)
		protected.GET("/documents", documentHandler.List)
		protected.GET("/documents/stats", documentHandler.Stats)
		protected.GET("/documents/alerts", documentHandler.Alerts)
		protected.GET("/documents/:id", documentHandler.Get)
		protected.DELETE("/documents/:id", documentHandler.Delete)
		protected.POST("/documents/:id/signers", documentHandler.AddSigner)
		protected.POST("/documents/:id/send", documentHandler.Send)
		protected.POST("/documents/:id/cancel", documentHandler.Cancel)
		protected.POST("/documents/:id/refresh-status", documentHandler.RefreshStatus)
		protected.POST("/documents/:id/analyze", analysisHandler.Analyze)
		protected.GET("/documents/:id/analyses", analysisHandler.History)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
