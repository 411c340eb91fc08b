package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/leadgen-crm/internal/phantombuster"
	"github.com/cuongbtq/leadgen-crm/internal/worker/domain"
)

// finalizeTimeout bounds the status writes made after a campaign ends
const finalizeTimeout = 10 * time.Second

var (
	errCampaignTimeout = errors.New("campaign timed out")
	errPollExhausted   = errors.New("phantom status polling exhausted")
)

// processCampaign claims a campaign, runs its outreach phantom and records
// the outcome
func (w *Worker) processCampaign(ctx context.Context, msg *domain.CampaignMessage) error {
	// Step 1: Claim campaign (PENDING → RUNNING)
	campaign, err := w.storage.ClaimCampaign(ctx, msg.CampaignID, w.workerID)
	if err != nil {
		if errors.Is(err, domain.ErrCampaignAlreadyClaimed) {
			return fmt.Errorf("campaign already claimed: %w", err)
		}
		return domain.NewRetryableError(fmt.Errorf("failed to claim campaign: %w", err))
	}

	// Step 2: Resolve the profile URLs to contact
	targets, err := w.storage.GetCampaignTargets(ctx, campaign.CampaignID)
	if err != nil {
		return w.retryOrFail(ctx, campaign, err)
	}
	if len(targets) == 0 {
		w.markFailed(ctx, campaign.CampaignID, domain.ErrNoTargets.Error())
		return domain.ErrNoTargets
	}

	// Step 3: Per-campaign timeout
	timeout := w.jobTimeout
	if campaign.TimeoutSeconds > 0 {
		timeout = time.Duration(campaign.TimeoutSeconds) * time.Second
	}
	var (
		jobCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		jobCtx, cancel = context.WithTimeoutCause(ctx, timeout, errCampaignTimeout)
	} else {
		jobCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	// Step 4: Heartbeat while the phantom runs
	heartbeatDone := make(chan struct{})
	go w.sendHeartbeat(jobCtx, campaign.CampaignID, heartbeatDone)
	defer close(heartbeatDone)

	// Step 5: Launch the outreach phantom
	containerID, err := w.phantom.Launch(jobCtx, campaign.AgentID, outreachArguments(campaign, targets))
	if err != nil {
		if jobCtx.Err() != nil {
			w.markFailed(ctx, campaign.CampaignID, interruptReason(jobCtx, err))
			return err
		}
		return w.retryOrFail(ctx, campaign, err)
	}

	if err := w.storage.SetContainerID(jobCtx, campaign.CampaignID, containerID); err != nil {
		w.logger.Warn("Failed to record container id",
			slog.String("campaign_id", campaign.CampaignID),
			slog.String("container_id", containerID),
			slog.String("error", err.Error()),
		)
	}

	// Step 6: Poll until the container finishes. A launched phantom is never
	// relaunched, so failures from here on are final.
	st, err := w.awaitContainer(jobCtx, campaign.CampaignID, containerID)
	if err != nil {
		reason := err.Error()
		if jobCtx.Err() != nil {
			reason = interruptReason(jobCtx, err)
		}
		w.markFailed(ctx, campaign.CampaignID, reason)
		return fmt.Errorf("campaign %s failed: %s", campaign.CampaignID, reason)
	}

	result := map[string]any{
		"container_id": containerID,
		"targets":      len(targets),
	}
	if st.ExitCode != nil {
		result["exit_code"] = *st.ExitCode
	}

	if st.State() == phantombuster.StateFailed {
		reason := failureReason(st)
		w.finish(ctx, campaign.CampaignID, domain.CampaignStatusFailed, result, reason)
		return fmt.Errorf("campaign %s failed: %s", campaign.CampaignID, reason)
	}

	w.finish(ctx, campaign.CampaignID, domain.CampaignStatusCompleted, result, "")

	w.logger.Info("Campaign completed",
		slog.String("campaign_id", campaign.CampaignID),
		slog.String("container_id", containerID),
		slog.Int("targets", len(targets)),
	)

	return nil
}

// awaitContainer polls the container until it reaches a terminal state.
// Consecutive transient fetch errors are tolerated up to maxTransientRetries.
func (w *Worker) awaitContainer(ctx context.Context, campaignID, containerID string) (*phantombuster.ContainerStatus, error) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	transient := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		st, err := w.phantom.FetchStatus(ctx, containerID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !phantombuster.IsTransient(err) {
				return nil, err
			}
			transient++
			w.logger.Warn("Transient phantom status error",
				slog.String("campaign_id", campaignID),
				slog.Int("attempt", transient),
				slog.String("error", err.Error()),
			)
			if transient > w.maxTransientRetries {
				return nil, fmt.Errorf("%w: %v", errPollExhausted, err)
			}
			continue
		}
		transient = 0

		if st.State().Terminal() {
			return st, nil
		}
		w.logger.Debug("Phantom still running",
			slog.String("campaign_id", campaignID),
			slog.String("container_id", containerID),
			slog.String("status", st.Status),
		)
	}
}

// retryOrFail returns the campaign to PENDING for a requeue while retries are
// left, and fails it otherwise
func (w *Worker) retryOrFail(ctx context.Context, campaign *domain.Campaign, cause error) error {
	if campaign.RetryCount < campaign.MaxRetries {
		fctx, cancel := finalizeContext(ctx)
		defer cancel()

		if err := w.storage.ReleaseForRetry(fctx, campaign.CampaignID, cause.Error()); err != nil {
			w.logger.Error("Failed to release campaign for retry",
				slog.String("campaign_id", campaign.CampaignID),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("failed to release campaign: %w", err)
		}

		w.logger.Info("Campaign will be retried",
			slog.String("campaign_id", campaign.CampaignID),
			slog.Int("retry_count", campaign.RetryCount+1),
			slog.Int("max_retries", campaign.MaxRetries),
		)
		return domain.NewRetryableError(cause)
	}

	w.logger.Warn("Campaign exceeded max retries",
		slog.String("campaign_id", campaign.CampaignID),
		slog.Int("retry_count", campaign.RetryCount),
		slog.Int("max_retries", campaign.MaxRetries),
	)
	w.markFailed(ctx, campaign.CampaignID, cause.Error())
	return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, cause)
}

func (w *Worker) markFailed(ctx context.Context, campaignID, reason string) {
	w.finish(ctx, campaignID, domain.CampaignStatusFailed, nil, reason)
}

func (w *Worker) finish(ctx context.Context, campaignID, status string, result map[string]any, errorMsg string) {
	fctx, cancel := finalizeContext(ctx)
	defer cancel()

	if err := w.storage.UpdateCampaignStatus(fctx, campaignID, status, result, errorMsg); err != nil {
		w.logger.Error("Failed to update campaign status",
			slog.String("campaign_id", campaignID),
			slog.String("status", status),
			slog.String("error", err.Error()),
		)
	}
}

// sendHeartbeat periodically updates the campaign's heartbeat timestamp
func (w *Worker) sendHeartbeat(ctx context.Context, campaignID string, done <-chan struct{}) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.storage.UpdateHeartbeat(ctx, campaignID); err != nil {
				w.logger.Warn("Failed to update campaign heartbeat",
					slog.String("campaign_id", campaignID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// finalizeContext survives cancellation of ctx so outcomes still get written
// during shutdown
func finalizeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}

func outreachArguments(campaign *domain.Campaign, targets []string) map[string]any {
	args := map[string]any{
		"profileUrls": targets,
	}
	if campaign.Message != "" {
		args["message"] = campaign.Message
	}
	return args
}

func interruptReason(ctx context.Context, err error) string {
	if cause := context.Cause(ctx); errors.Is(cause, errCampaignTimeout) {
		return errCampaignTimeout.Error()
	}
	if errors.Is(err, context.Canceled) || errors.Is(context.Cause(ctx), context.Canceled) {
		return "worker shut down before the phantom finished"
	}
	return err.Error()
}

func failureReason(st *phantombuster.ContainerStatus) string {
	if st.ExitCode != nil {
		return fmt.Sprintf("Phantom failed with exit code %d", *st.ExitCode)
	}
	if st.EndType != "" {
		return fmt.Sprintf("Phantom failed (%s)", st.EndType)
	}
	return "Phantom failed"
}
