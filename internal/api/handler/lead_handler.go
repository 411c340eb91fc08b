package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/leadgen-crm/internal/api/domain"
	"github.com/cuongbtq/leadgen-crm/internal/api/dto"
	"github.com/cuongbtq/leadgen-crm/internal/api/model"
	"github.com/cuongbtq/leadgen-crm/internal/api/storage"
	"github.com/cuongbtq/leadgen-crm/internal/leads"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListLeads handles GET /api/v1/leads
// Lists leads with optional filtering and cursor pagination
func (h *LeadHandler) ListLeads(c *gin.Context) {
	var req dto.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	if req.ReviewStatus != "" {
		st, err := leads.ParseReviewStatus(req.ReviewStatus)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid review_status",
			})
			return
		}
		req.ReviewStatus = string(st)
	}

	cursor, err := DecodeLeadCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.LeadFilter{
		ReviewStatus: req.ReviewStatus,
		Source:       req.Source,
		Company:      req.Company,
		Title:        req.Title,
		Location:     req.Location,
		Industry:     req.Industry,
		Search:       req.Search,
		PageSize:     req.PageSize,
		Cursor:       cursor,
	}

	rows, err := h.leads.ListLeads(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list leads", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list leads",
		})
		return
	}

	hasMore := len(rows) > req.PageSize
	if hasMore {
		rows = rows[:req.PageSize]
	}

	resp := dto.ListLeadsResponse{Leads: make([]dto.LeadDTO, len(rows))}
	for i := range rows {
		resp.Leads[i] = toLeadDTO(&rows[i])
	}

	if hasMore {
		last := rows[len(rows)-1]
		resp.NextCursor = EncodeLeadCursor(&storage.LeadCursor{
			CreatedAt: last.CreatedAt,
			LeadID:    last.LeadID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// GetLead handles GET /api/v1/leads/:lead_id
func (h *LeadHandler) GetLead(c *gin.Context) {
	leadID, ok := leadIDParam(c)
	if !ok {
		return
	}

	lead, err := h.leads.GetLead(c.Request.Context(), leadID)
	if err != nil {
		if errors.Is(err, domain.ErrLeadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Lead not found",
			})
			return
		}
		h.logger.Error("Failed to get lead", slog.String("lead_id", leadID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get lead",
		})
		return
	}

	c.JSON(http.StatusOK, toLeadDTO(lead))
}

// UpdateReview handles PATCH /api/v1/leads/:lead_id/review
// Approved and rejected leads can only go back to the review queue
func (h *LeadHandler) UpdateReview(c *gin.Context) {
	leadID, ok := leadIDParam(c)
	if !ok {
		return
	}

	var req dto.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	to, err := leads.ParseReviewStatus(req.ReviewStatus)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "review_status must be one of to_be_reviewed, approved, rejected",
		})
		return
	}

	lead, err := h.leads.UpdateReviewStatus(c.Request.Context(), leadID, to)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, toLeadDTO(lead))
	case errors.Is(err, domain.ErrLeadNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Lead not found",
		})
	case errors.Is(err, leads.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
	default:
		h.logger.Error("Failed to update review status",
			slog.String("lead_id", leadID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update review status",
		})
	}
}

func leadIDParam(c *gin.Context) (string, bool) {
	leadID := c.Param("lead_id")
	if _, err := uuid.Parse(leadID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "lead_id must be a valid UUID",
		})
		return "", false
	}
	return leadID, true
}

func toLeadDTO(lead *model.Lead) dto.LeadDTO {
	return dto.LeadDTO{
		LeadID:           lead.LeadID,
		LinkedinURL:      lead.LinkedinURL,
		FullName:         lead.FullName,
		Title:            lead.Title,
		Company:          lead.Company,
		Location:         lead.Location,
		Industry:         lead.Industry,
		Email:            lead.Email,
		Phone:            lead.Phone,
		ConnectionDegree: lead.ConnectionDegree,
		Source:           lead.Source,
		ReviewStatus:     lead.ReviewStatus,
		CreatedAt:        lead.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        lead.UpdatedAt.Format(time.RFC3339),
	}
}
