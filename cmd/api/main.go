package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DFCPagro/DFCP-sub001/internal/application"
	mongoRepo "github.com/DFCPagro/DFCP-sub001/internal/infrastructure/mongodb"
	"github.com/DFCPagro/DFCP-sub001/pkg/cloudevents"
	"github.com/DFCPagro/DFCP-sub001/pkg/kafka"
	"github.com/DFCPagro/DFCP-sub001/pkg/logging"
	"github.com/DFCPagro/DFCP-sub001/pkg/metrics"
	"github.com/DFCPagro/DFCP-sub001/pkg/middleware"
	"github.com/DFCPagro/DFCP-sub001/pkg/mongodb"
	"github.com/DFCPagro/DFCP-sub001/pkg/outbox"
	"github.com/DFCPagro/DFCP-sub001/pkg/tracing"
)

const serviceName = "fulfillment-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting fulfillment-service API")

	config := loadConfig()
	ctx := context.Background()

	// OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := metrics.New(serviceName)

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	kafkaProducer := kafka.NewProducer(config.Kafka)
	breakerProducer := kafka.NewCircuitBreakerProducer(kafkaProducer, logger)
	producer := kafka.NewInstrumentedProducer(breakerProducer, m)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	eventFactory := cloudevents.NewEventFactory("/fulfillment-service")

	taskRepo := mongoRepo.NewFulfillmentTaskRepository(mongoClient.Database(), eventFactory, logger)
	orderRepo := mongoRepo.NewOrderRepository(mongoClient.Database())
	itemRepo := mongoRepo.NewItemCatalogRepository(mongoClient.Database())
	containerRepo := mongoRepo.NewContainerCatalogRepository(mongoClient.Database())
	overrideRepo := mongoRepo.NewOverrideRepository(mongoClient.Database())
	workCenterRepo := mongoRepo.NewWorkCenterRepository(mongoClient.Database())
	actorRepo := mongoRepo.NewActorRepository(mongoClient.Database())

	outboxPublisher := outbox.NewPublisher(
		taskRepo.GetOutboxRepository(),
		producer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	fulfillmentService := application.NewFulfillmentService(
		taskRepo,
		orderRepo,
		itemRepo,
		containerRepo,
		overrideRepo,
		workCenterRepo,
		actorRepo,
		m,
		logger,
	)

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")
	{
		tasks := api.Group("/tasks")
		tasks.POST("/generate", generateTasksHandler(fulfillmentService, logger))
		tasks.POST("/claim", claimTaskHandler(fulfillmentService, logger))
		tasks.GET("", listTasksHandler(fulfillmentService, logger))
		tasks.GET("/:taskId", getTaskHandler(fulfillmentService, logger))
		tasks.POST("/:taskId/release", releaseTaskHandler(fulfillmentService, logger))
		tasks.POST("/:taskId/release-claim", releaseClaimHandler(fulfillmentService, logger))
		tasks.POST("/:taskId/start", startTaskHandler(fulfillmentService, logger))
		tasks.POST("/:taskId/progress", updateProgressHandler(fulfillmentService, logger))
		tasks.POST("/:taskId/complete", completeTaskHandler(fulfillmentService, logger))
		tasks.POST("/:taskId/problem", reportProblemHandler(fulfillmentService, logger))
		tasks.POST("/:taskId/cancel", cancelTaskHandler(fulfillmentService, logger))

		api.POST("/plans/preview", previewPlanHandler(fulfillmentService, logger))
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "dfcp_fulfillment"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
