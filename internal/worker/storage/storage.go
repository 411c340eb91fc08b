package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/leadgen-crm/internal/leads"
	"github.com/cuongbtq/leadgen-crm/internal/worker/domain"
	"github.com/jmoiron/sqlx"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimCampaign attempts to claim a campaign using optimistic locking
// Returns the campaign on success, ErrCampaignAlreadyClaimed if it is not PENDING
func (s *Storage) ClaimCampaign(ctx context.Context, campaignID, workerID string) (*domain.Campaign, error) {
	query := `
		UPDATE campaigns
		SET status = $1,
		    worker_id = $2,
		    started_at = NOW(),
		    last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE campaign_id = $3
		  AND status = $4
		RETURNING campaign_id, name, agent_id, message, status, worker_id, retry_count, max_retries, timeout_seconds
	`

	var campaign domain.Campaign
	err := s.db.QueryRowxContext(ctx, query, domain.CampaignStatusRunning, workerID, campaignID, domain.CampaignStatusPending).
		StructScan(&campaign)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to claim campaign - already claimed or not found",
				slog.String("campaign_id", campaignID),
				slog.String("worker_id", workerID),
			)
			return nil, domain.ErrCampaignAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim campaign: %w", err)
	}

	s.logger.Info("Campaign claimed successfully",
		slog.String("campaign_id", campaignID),
		slog.String("worker_id", workerID),
		slog.Int("retry_count", campaign.RetryCount),
	)

	return &campaign, nil
}

// GetCampaignTargets returns the profile URLs of the campaign's leads that are
// still approved
func (s *Storage) GetCampaignTargets(ctx context.Context, campaignID string) ([]string, error) {
	query := `
		SELECT l.linkedin_url
		FROM campaign_leads cl
		JOIN leads l ON l.lead_id = cl.lead_id
		WHERE cl.campaign_id = $1
		  AND l.review_status = $2
		  AND l.linkedin_url <> ''
		ORDER BY l.created_at, l.lead_id
	`

	var urls []string
	if err := s.db.SelectContext(ctx, &urls, query, campaignID, string(leads.ReviewApproved)); err != nil {
		return nil, fmt.Errorf("failed to get campaign targets: %w", err)
	}
	return urls, nil
}

// SetContainerID records the remote container running the campaign
func (s *Storage) SetContainerID(ctx context.Context, campaignID, containerID string) error {
	query := `
		UPDATE campaigns
		SET container_id = $1,
		    updated_at = NOW()
		WHERE campaign_id = $2
	`

	if _, err := s.db.ExecContext(ctx, query, containerID, campaignID); err != nil {
		return fmt.Errorf("failed to set container id: %w", err)
	}
	return nil
}

// UpdateCampaignStatus updates the campaign status and optionally sets result/error
func (s *Storage) UpdateCampaignStatus(ctx context.Context, campaignID, status string, result map[string]any, errorMsg string) error {
	query := `
		UPDATE campaigns
		SET status = $1::text,
			result = $2,
			error_message = $3,
			completed_at = CASE
				WHEN $1::text IN ($4::text, $5::text) THEN NOW()
				ELSE NULL
			END,
			updated_at = NOW()
		WHERE campaign_id = $6
	`

	var resultJSON []byte
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, query, status, resultJSON, errorMsg,
		domain.CampaignStatusCompleted, domain.CampaignStatusFailed, campaignID)
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}

	s.logger.Info("Campaign status updated",
		slog.String("campaign_id", campaignID),
		slog.String("status", status),
	)

	return nil
}

// ReleaseForRetry hands a RUNNING campaign back to PENDING so a requeued
// message can claim it again
func (s *Storage) ReleaseForRetry(ctx context.Context, campaignID, errorMsg string) error {
	query := `
		UPDATE campaigns
		SET status = $1,
		    worker_id = NULL,
		    container_id = NULL,
		    retry_count = retry_count + 1,
		    error_message = $2,
		    updated_at = NOW()
		WHERE campaign_id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.CampaignStatusPending, errorMsg, campaignID, domain.CampaignStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to release campaign: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrCampaignNotFound
	}

	return nil
}

// UpdateHeartbeat updates the last_heartbeat_at timestamp for a running campaign
func (s *Storage) UpdateHeartbeat(ctx context.Context, campaignID string) error {
	query := `
		UPDATE campaigns
		SET last_heartbeat_at = NOW(),
		    updated_at = NOW()
		WHERE campaign_id = $1 AND status = $2
	`

	result, err := s.db.ExecContext(ctx, query, campaignID, domain.CampaignStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to update campaign heartbeat: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Campaign heartbeat update - no rows affected (campaign may not be running)",
			slog.String("campaign_id", campaignID),
		)
	}

	return nil
}
