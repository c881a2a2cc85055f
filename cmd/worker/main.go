package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DFCPagro/DFCP-sub001/internal/activities"
	"github.com/DFCPagro/DFCP-sub001/internal/application"
	mongoRepo "github.com/DFCPagro/DFCP-sub001/internal/infrastructure/mongodb"
	"github.com/DFCPagro/DFCP-sub001/internal/workflows"
	"github.com/DFCPagro/DFCP-sub001/pkg/cloudevents"
	"github.com/DFCPagro/DFCP-sub001/pkg/kafka"
	"github.com/DFCPagro/DFCP-sub001/pkg/logging"
	"github.com/DFCPagro/DFCP-sub001/pkg/metrics"
	"github.com/DFCPagro/DFCP-sub001/pkg/mongodb"
	"github.com/DFCPagro/DFCP-sub001/pkg/outbox"
	"github.com/DFCPagro/DFCP-sub001/pkg/temporal"
)

const serviceName = "fulfillment-worker"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting fulfillment worker")

	config := loadConfig()
	ctx := context.Background()

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	m := metrics.New(serviceName)

	kafkaProducer := kafka.NewProducer(config.Kafka)
	breakerProducer := kafka.NewCircuitBreakerProducer(kafkaProducer, logger)
	producer := kafka.NewInstrumentedProducer(breakerProducer, m)
	defer producer.Close()

	eventFactory := cloudevents.NewEventFactory("/fulfillment-worker")

	taskRepo := mongoRepo.NewFulfillmentTaskRepository(mongoClient.Database(), eventFactory, logger)

	// The worker runs its own outbox publisher so tasks created by scheduled
	// generation runs still get their events onto Kafka.
	outboxPublisher := outbox.NewPublisher(
		taskRepo.GetOutboxRepository(),
		producer,
		logger,
		m,
		nil,
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()

	fulfillmentService := application.NewFulfillmentService(
		taskRepo,
		mongoRepo.NewOrderRepository(mongoClient.Database()),
		mongoRepo.NewItemCatalogRepository(mongoClient.Database()),
		mongoRepo.NewContainerCatalogRepository(mongoClient.Database()),
		mongoRepo.NewOverrideRepository(mongoClient.Database()),
		mongoRepo.NewWorkCenterRepository(mongoClient.Database()),
		mongoRepo.NewActorRepository(mongoClient.Database()),
		m,
		logger,
	)

	temporalClient, err := temporal.NewClient(ctx, config.Temporal)
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		os.Exit(1)
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal", "hostPort", config.Temporal.HostPort)

	taskActivities := activities.NewTaskActivities(fulfillmentService, logger)

	workerOpts := temporal.DefaultWorkerOptions(temporal.TaskQueues.Fulfillment)
	w := temporalClient.NewWorker(workerOpts)

	w.RegisterWorkflow(workflows.ShiftTaskGenerationWorkflow)
	logger.Info("Registered workflow", "workflow", temporal.WorkflowNames.ShiftTaskGeneration)

	w.RegisterActivity(taskActivities.GenerateShiftTasks)
	logger.Info("Registered activities")

	go func() {
		if err := w.Run(nil); err != nil {
			logger.WithError(err).Error("Worker failed")
			os.Exit(1)
		}
	}()
	logger.Info("Worker started", "taskQueue", temporal.TaskQueues.Fulfillment)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	w.Stop()
	logger.Info("Worker stopped")
}

// Config holds application configuration
type Config struct {
	MongoDB  *mongodb.Config
	Kafka    *kafka.Config
	Temporal *temporal.Config
}

func loadConfig() *Config {
	return &Config{
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
		Temporal: &temporal.Config{
			HostPort:  getEnv("TEMPORAL_HOST", "localhost:7233"),
			Namespace: getEnv("TEMPORAL_NAMESPACE", "default"),
			Identity:  serviceName,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
