package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/studio-media/internal/client"
	"github.com/yourorg/studio-media/internal/config"
	"github.com/yourorg/studio-media/internal/event"
	"github.com/yourorg/studio-media/internal/handler"
	"github.com/yourorg/studio-media/internal/middleware"
	"github.com/yourorg/studio-media/internal/provider"
	"github.com/yourorg/studio-media/internal/registry"
	"github.com/yourorg/studio-media/internal/service"
	"github.com/yourorg/studio-media/internal/staging"
	"github.com/yourorg/studio-media/internal/uploader"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Set up the staging spool and its background sweeper
	spool, err := staging.NewSpool(cfg.Upload.SpoolDir, cfg.Upload.SpoolTTL, logger)
	if err != nil {
		logger.Fatal("Failed to create staging spool", zap.Error(err))
	}
	sweeper := spool.StartSweeper(time.Hour)

	// Initialize clients
	cmsClient := client.NewCMSClient(cfg.CMS.BaseURL, cfg.CMS.Username, cfg.CMS.Password, cfg.CMS.Timeout, logger)
	cloudinaryClient := provider.NewCloudinaryClient(
		cfg.Providers.Cloudinary.BaseURL,
		cfg.Providers.Cloudinary.CloudName,
		cfg.Providers.Cloudinary.APIKey,
		logger,
	)
	muxClient := provider.NewMuxClient(cfg.Providers.Mux.ChunkSize, logger)

	// Initialize the content-changed broadcast
	var producer *event.Producer
	if cfg.Kafka.Enabled {
		producer = event.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID, cfg.Kafka.Topic, logger)
		logger.Info("Content-changed broadcast enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}

	// Initialize services
	jobRegistry := registry.New(cfg.Jobs.CompletedTTL, logger)
	uploadService := service.NewUploadService(jobRegistry, cmsClient, producer, logger)
	uploaderFactory := uploader.NewFactory(
		cloudinaryClient,
		muxClient,
		cmsClient,
		cmsClient,
		cfg.Providers.Cloudinary.Folder,
		cfg.Upload.MaxImageSize,
		cfg.Upload.MaxVideoSize,
		logger,
	)

	// Initialize handlers
	uploadHandler := handler.NewUploadHandler(uploadService, jobRegistry, spool, uploaderFactory, logger)

	// Set up HTTP server with Gin
	router := setupRouter(uploadHandler, cfg, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	sweeper.Stop()
	if producer != nil {
		producer.Close()
	}

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func setupRouter(uploadHandler *handler.UploadHandler, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg, logger))
	{
		api.POST("/uploads", uploadHandler.Submit)
		api.GET("/jobs", uploadHandler.ListJobs)
		api.DELETE("/jobs/:id", uploadHandler.DismissJob)
	}

	return router
}

func createLogger(level string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Create logger config
	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}
