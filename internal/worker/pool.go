package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/leadgen-crm/internal/worker/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// task pairs a parsed campaign message with the delivery's acknowledger
type task struct {
	msg *domain.CampaignMessage
	ack amqp.Acknowledger
}

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := range w.concurrency {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop processes campaigns until jobsChan is closed and drained
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started", slog.String("worker_name", workerName))

	for t := range w.jobsChan {
		w.logger.Info("Worker received campaign",
			slog.String("worker_name", workerName),
			slog.String("campaign_id", t.msg.CampaignID),
			slog.Uint64("delivery_tag", t.msg.DeliveryTag),
		)

		err := w.processCampaign(ctx, t.msg)
		w.settle(workerName, t, err)
	}

	w.logger.Debug("Worker goroutine stopping - jobsChan closed", slog.String("worker_name", workerName))
}

// settle ACKs or NACKs the delivery based on the processing result
func (w *Worker) settle(workerName string, t *task, err error) {
	if err == nil {
		if ackErr := t.ack.Ack(t.msg.DeliveryTag, false); ackErr != nil {
			w.logger.Error("Failed to ACK message",
				slog.String("worker_name", workerName),
				slog.String("campaign_id", t.msg.CampaignID),
				slog.String("error", ackErr.Error()),
			)
		}
		return
	}

	requeue := shouldRequeue(err)
	w.logger.Error("Campaign processing failed",
		slog.String("worker_name", workerName),
		slog.String("campaign_id", t.msg.CampaignID),
		slog.String("error", err.Error()),
		slog.Bool("requeue", requeue),
	)

	if nackErr := t.ack.Nack(t.msg.DeliveryTag, false, requeue); nackErr != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("worker_name", workerName),
			slog.String("campaign_id", t.msg.CampaignID),
			slog.String("error", nackErr.Error()),
		)
	}
}

// shouldRequeue decides whether a failed campaign message goes back to the queue
func shouldRequeue(err error) bool {
	switch {
	case errors.Is(err, domain.ErrCampaignAlreadyClaimed),
		errors.Is(err, domain.ErrMaxRetriesExceeded),
		errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrNoTargets):
		return false
	}

	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}
