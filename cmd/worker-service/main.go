package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/leadgen-crm/internal/config"
	"github.com/cuongbtq/leadgen-crm/internal/phantombuster"
	"github.com/cuongbtq/leadgen-crm/internal/worker"
	"github.com/cuongbtq/leadgen-crm/internal/worker/storage"
	"github.com/cuongbtq/leadgen-crm/shared/logger"
	"github.com/cuongbtq/leadgen-crm/shared/postgresql"
	"github.com/cuongbtq/leadgen-crm/shared/rabbitmq"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	workerID := newWorkerID()
	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("worker_id", workerID),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	workerInstance := worker.NewWorker(&worker.Config{
		Logger: appLogger.Logger,
		Store:  storage.NewStorage(dbClient.GetDB(), appLogger.Logger),
		Phantom: phantombuster.NewClient(&phantombuster.Config{
			BaseURL:           cfg.PhantomBuster.BaseURL,
			APIKey:            cfg.PhantomBuster.APIKey,
			Timeout:           cfg.PhantomBuster.RequestTimeout,
			RequestsPerSecond: cfg.PhantomBuster.RequestsPerSecond,
			Burst:             cfg.PhantomBuster.Burst,
		}, appLogger.Logger),
		Broker:              rabbitClient,
		WorkerID:            workerID,
		QueueName:           cfg.RabbitMQ.Queue.Name,
		Concurrency:         cfg.Worker.Concurrency,
		PrefetchCount:       cfg.RabbitMQ.Consumer.PrefetchCount,
		JobTimeout:          cfg.Worker.JobTimeout,
		PollInterval:        cfg.Worker.PollInterval,
		HeartbeatInterval:   cfg.Worker.HeartbeatInterval,
		MaxTransientRetries: cfg.Import.MaxTransientRetries,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stop consuming when the broker drops the channel
	go func() {
		select {
		case amqpErr, ok := <-rabbitClient.NotifyClose():
			if ok && amqpErr != nil {
				appLogger.Error("RabbitMQ channel closed", slog.String("error", amqpErr.Error()))
			}
			stop()
		case <-ctx.Done():
		}
	}()

	appLogger.Info("Worker service started successfully")

	startErr := workerInstance.Start(ctx)
	if startErr != nil {
		appLogger.Error("Worker error", slog.Any("error", startErr))
	}

	// Give running campaigns time to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer cancel()

	if err := workerInstance.Stop(shutdownCtx); err != nil {
		appLogger.Warn("Worker shutdown timeout exceeded, running campaigns were interrupted")
	}

	appLogger.Info("Worker service shutdown complete")
	return startErr
}

// newWorkerID identifies this process as consumer tag and campaign owner
func newWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// initRabbitMQ initializes the RabbitMQ consumer
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
	}, logger)
}
