package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/leadgen-crm/internal/api/dto"
	"github.com/cuongbtq/leadgen-crm/internal/importjob"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StartImport handles POST /api/v1/imports
// Launches the scraping phantom and returns the job id to poll
func (h *ImportHandler) StartImport(c *gin.Context) {
	var req dto.StartImportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	jobID, err := h.imports.Start(c.Request.Context(), importjob.LaunchRequest{
		AgentID:   req.AgentID,
		Arguments: req.Arguments,
		Source:    req.Source,
	})
	if err != nil {
		h.logger.Error("Failed to start import", slog.String("error", err.Error()))
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, importjob.ErrNoAgent):
			status = http.StatusBadRequest
		case errors.Is(err, importjob.ErrPollerClosed):
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error": "Failed to start import",
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.StartImportResponse{
		JobID:  jobID,
		Status: string(importjob.StatusQueued),
	})
}

// GetImport handles GET /api/v1/imports/:job_id
// A failed import is still a successful read of the job
func (h *ImportHandler) GetImport(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	job, err := h.imports.Status(c.Request.Context(), jobID)
	if err != nil {
		h.writeLookupError(c, jobID, err)
		return
	}

	c.JSON(http.StatusOK, toImportJobDTO(job))
}

// CancelImport handles POST /api/v1/imports/:job_id/cancel
func (h *ImportHandler) CancelImport(c *gin.Context) {
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	job, err := h.imports.Cancel(c.Request.Context(), jobID)
	if err != nil {
		h.writeLookupError(c, jobID, err)
		return
	}

	h.logger.Info("Import cancel requested",
		slog.String("job_id", jobID),
		slog.String("status", string(job.Status)),
	)

	c.JSON(http.StatusOK, toImportJobDTO(job))
}

func (h *ImportHandler) jobIDParam(c *gin.Context) (string, bool) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return "", false
	}
	return jobID, true
}

func (h *ImportHandler) writeLookupError(c *gin.Context, jobID string, err error) {
	if errors.Is(err, importjob.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Import job not found",
		})
		return
	}

	h.logger.Error("Failed to get import job",
		slog.String("job_id", jobID),
		slog.String("error", err.Error()),
	)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Failed to get import job",
	})
}

func toImportJobDTO(job importjob.Job) dto.ImportJobDTO {
	out := dto.ImportJobDTO{
		JobID:       job.ID,
		Source:      job.Source,
		Status:      string(job.Status),
		Progress:    job.Progress,
		Message:     job.Message,
		ContainerID: job.ContainerID,
		CreatedAt:   job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   job.UpdatedAt.Format(time.RFC3339),
	}
	if job.FinishedAt != nil {
		out.FinishedAt = job.FinishedAt.Format(time.RFC3339)
	}
	if job.Result != nil {
		out.Result = &dto.ImportResultDTO{
			SavedCount:     job.Result.Saved,
			SkippedCount:   job.Result.Skipped,
			MalformedCount: job.Result.Malformed,
			Anomaly:        job.Status == importjob.StatusCompleted && job.Result.Saved == 0 && job.Result.Skipped == 0,
		}
	}
	return out
}
