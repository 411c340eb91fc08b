package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/leadgen-crm/internal/api/domain"
	"github.com/cuongbtq/leadgen-crm/internal/api/model"
	"github.com/lib/pq"
)

// CreateCampaign inserts a campaign and its lead links in one transaction
func (s *Storage) CreateCampaign(ctx context.Context, campaign *model.Campaign, leadIDs []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO campaigns (
			campaign_id, name, agent_id, message,
			status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7
		)
	`
	_, err = tx.ExecContext(
		ctx,
		query,
		campaign.CampaignID,
		campaign.Name,
		campaign.AgentID,
		campaign.Message,
		campaign.Status,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO campaign_leads (campaign_id, lead_id)
		SELECT $1, unnest($2::uuid[])
	`, campaign.CampaignID, pq.Array(leadIDs))
	if err != nil {
		return fmt.Errorf("failed to link campaign leads: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit campaign: %w", err)
	}

	campaign.LeadCount = len(leadIDs)

	s.logger.Info("Campaign created",
		slog.String("campaign_id", campaign.CampaignID),
		slog.Int("lead_count", len(leadIDs)),
	)

	return nil
}

// GetCampaign retrieves a campaign with its lead count
func (s *Storage) GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error) {
	query := `
		SELECT
			c.campaign_id, c.name, c.agent_id, c.message, c.status,
			c.container_id, c.retry_count, c.error_message,
			(SELECT COUNT(*) FROM campaign_leads cl WHERE cl.campaign_id = c.campaign_id) AS lead_count,
			c.created_at, c.updated_at, c.completed_at
		FROM campaigns c
		WHERE c.campaign_id = $1
	`

	var campaign model.Campaign
	if err := s.db.GetContext(ctx, &campaign, query, campaignID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return &campaign, nil
}
