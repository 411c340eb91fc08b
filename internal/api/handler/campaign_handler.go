package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/leadgen-crm/internal/api/domain"
	"github.com/cuongbtq/leadgen-crm/internal/api/dto"
	"github.com/cuongbtq/leadgen-crm/internal/api/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateCampaign handles POST /api/v1/campaigns
// Creates a PENDING campaign over approved leads and queues it for the worker
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req dto.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "name is required",
		})
		return
	}

	for _, id := range req.LeadIDs {
		if _, err := uuid.Parse(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "lead_ids must be valid UUIDs",
			})
			return
		}
	}

	agentID := req.AgentID
	if agentID == "" {
		agentID = h.outreachAgentID
	}
	if agentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "agent_id is required",
		})
		return
	}

	ctx := c.Request.Context()

	targets, err := h.leads.ListApprovedLeadURLs(ctx, req.LeadIDs)
	if err != nil {
		h.logger.Error("Failed to list approved leads", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create campaign",
		})
		return
	}
	if len(targets) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": domain.ErrNoApprovedLeads.Error(),
		})
		return
	}

	leadIDs := make([]string, len(targets))
	for i, t := range targets {
		leadIDs[i] = t.LeadID
	}

	now := time.Now().UTC()
	campaign := &model.Campaign{
		CampaignID: uuid.NewString(),
		Name:       req.Name,
		AgentID:    agentID,
		Message:    req.Message,
		Status:     domain.CampaignStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.campaigns.CreateCampaign(ctx, campaign, leadIDs); err != nil {
		h.logger.Error("Failed to create campaign", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create campaign",
		})
		return
	}

	if err := h.publisher.PublishJSON(ctx, dto.CampaignMessage{CampaignID: campaign.CampaignID}); err != nil {
		h.logger.Error("Failed to publish campaign",
			slog.String("campaign_id", campaign.CampaignID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":       "Campaign saved but could not be queued",
			"campaign_id": campaign.CampaignID,
		})
		return
	}

	h.logger.Info("Campaign queued",
		slog.String("campaign_id", campaign.CampaignID),
		slog.Int("lead_count", len(leadIDs)),
	)

	c.JSON(http.StatusAccepted, toCampaignDTO(campaign))
}

// GetCampaign handles GET /api/v1/campaigns/:campaign_id
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	campaignID := c.Param("campaign_id")
	if _, err := uuid.Parse(campaignID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "campaign_id must be a valid UUID",
		})
		return
	}

	campaign, err := h.campaigns.GetCampaign(c.Request.Context(), campaignID)
	if err != nil {
		if errors.Is(err, domain.ErrCampaignNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Campaign not found",
			})
			return
		}
		h.logger.Error("Failed to get campaign",
			slog.String("campaign_id", campaignID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get campaign",
		})
		return
	}

	c.JSON(http.StatusOK, toCampaignDTO(campaign))
}

func toCampaignDTO(campaign *model.Campaign) dto.CampaignDTO {
	out := dto.CampaignDTO{
		CampaignID:   campaign.CampaignID,
		Name:         campaign.Name,
		AgentID:      campaign.AgentID,
		Message:      campaign.Message,
		Status:       campaign.Status,
		LeadCount:    campaign.LeadCount,
		ContainerID:  campaign.ContainerID.String,
		RetryCount:   campaign.RetryCount,
		ErrorMessage: campaign.ErrorMessage,
		CreatedAt:    campaign.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    campaign.UpdatedAt.Format(time.RFC3339),
	}
	if campaign.CompletedAt.Valid {
		out.CompletedAt = campaign.CompletedAt.Time.Format(time.RFC3339)
	}
	return out
}
