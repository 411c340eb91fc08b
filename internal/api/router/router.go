package router

import (
	"net/http"

	"github.com/cuongbtq/leadgen-crm/internal/api/handler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter configures and returns the Gin router with all routes. The
// /metrics route is mounted only when gatherer is non-nil.
func SetupRouter(deps *handler.Dependencies, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "leadgen-api-service",
		})
	})

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	importHandler := handler.NewImportHandler(deps)
	leadHandler := handler.NewLeadHandler(deps)
	campaignHandler := handler.NewCampaignHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		imports := v1.Group("/imports")
		{
			// POST /api/v1/imports - Launch a scraping phantom
			imports.POST("", importHandler.StartImport)

			// GET /api/v1/imports/:job_id - Poll import progress
			imports.GET("/:job_id", importHandler.GetImport)

			// POST /api/v1/imports/:job_id/cancel - Stop polling an import
			imports.POST("/:job_id/cancel", importHandler.CancelImport)
		}

		leads := v1.Group("/leads")
		{
			// GET /api/v1/leads - List leads with filtering and pagination
			leads.GET("", leadHandler.ListLeads)

			// GET /api/v1/leads/:lead_id - Get lead details
			leads.GET("/:lead_id", leadHandler.GetLead)

			// PATCH /api/v1/leads/:lead_id/review - Approve, reject or requeue a lead
			leads.PATCH("/:lead_id/review", leadHandler.UpdateReview)
		}

		campaigns := v1.Group("/campaigns")
		{
			// POST /api/v1/campaigns - Create and queue an outreach campaign
			campaigns.POST("", campaignHandler.CreateCampaign)

			// GET /api/v1/campaigns/:campaign_id - Get campaign status
			campaigns.GET("/:campaign_id", campaignHandler.GetCampaign)
		}
	}

	return r
}
