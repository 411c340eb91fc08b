package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/leadgen-crm/internal/phantombuster"
	"github.com/cuongbtq/leadgen-crm/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultPollInterval        = 10 * time.Second
	defaultHeartbeatInterval   = 30 * time.Second
	defaultMaxTransientRetries = 5
)

// CampaignStore is the campaign persistence the worker drives
type CampaignStore interface {
	ClaimCampaign(ctx context.Context, campaignID, workerID string) (*domain.Campaign, error)
	GetCampaignTargets(ctx context.Context, campaignID string) ([]string, error)
	SetContainerID(ctx context.Context, campaignID, containerID string) error
	UpdateCampaignStatus(ctx context.Context, campaignID, status string, result map[string]any, errorMsg string) error
	ReleaseForRetry(ctx context.Context, campaignID, errorMsg string) error
	UpdateHeartbeat(ctx context.Context, campaignID string) error
}

// PhantomClient launches and watches outreach phantoms
type PhantomClient interface {
	Launch(ctx context.Context, agentID string, arguments map[string]any) (string, error)
	FetchStatus(ctx context.Context, containerID string) (*phantombuster.ContainerStatus, error)
}

// Broker is the queue the worker consumes campaign messages from
type Broker interface {
	Qos(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Config holds worker configuration
type Config struct {
	Logger              *slog.Logger
	Store               CampaignStore
	Phantom             PhantomClient
	Broker              Broker
	WorkerID            string
	QueueName           string
	Concurrency         int
	PrefetchCount       int
	JobTimeout          time.Duration
	PollInterval        time.Duration
	HeartbeatInterval   time.Duration
	MaxTransientRetries int
}

// Worker consumes campaign messages and runs them on a goroutine pool
type Worker struct {
	logger              *slog.Logger
	storage             CampaignStore
	phantom             PhantomClient
	broker              Broker
	workerID            string
	rabbitMQQueueName   string
	concurrency         int
	prefetchCount       int
	jobTimeout          time.Duration
	pollInterval        time.Duration
	heartbeatInterval   time.Duration
	maxTransientRetries int

	jobsChan  chan *task
	wg        sync.WaitGroup
	runCtx    context.Context
	cancelRun context.CancelFunc
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := max(cfg.Concurrency, 1)

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	heartbeatInterval := cfg.HeartbeatInterval
	if heartbeatInterval <= 0 {
		heartbeatInterval = defaultHeartbeatInterval
	}
	maxTransient := cfg.MaxTransientRetries
	if maxTransient <= 0 {
		maxTransient = defaultMaxTransientRetries
	}

	runCtx, cancelRun := context.WithCancel(context.Background())

	return &Worker{
		logger:              cfg.Logger,
		storage:             cfg.Store,
		phantom:             cfg.Phantom,
		broker:              cfg.Broker,
		workerID:            cfg.WorkerID,
		rabbitMQQueueName:   cfg.QueueName,
		concurrency:         concurrency,
		prefetchCount:       max(cfg.PrefetchCount, 1),
		jobTimeout:          cfg.JobTimeout,
		pollInterval:        pollInterval,
		heartbeatInterval:   heartbeatInterval,
		maxTransientRetries: maxTransient,
		jobsChan:            make(chan *task, concurrency),
		runCtx:              runCtx,
		cancelRun:           cancelRun,
	}
}

// Start consumes campaign messages until ctx is cancelled or the delivery
// channel closes. Campaigns already handed to the pool keep running; call
// Stop to wait for them.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(w.runCtx)

	w.startMessageDispatcher(ctx, deliveries)
	close(w.jobsChan)

	w.logger.Info("Worker stopped consuming", slog.String("worker_id", w.workerID))
	return nil
}

// Stop waits for in-flight campaigns. When ctx expires first, running
// campaigns are interrupted and marked failed.
func (w *Worker) Stop(ctx context.Context) error {
	w.logger.Info("Stopping worker...")

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.cancelRun()
		w.logger.Info("Worker stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Shutdown timeout reached, interrupting running campaigns")
		w.cancelRun()
		<-done
		return ctx.Err()
	}
}
