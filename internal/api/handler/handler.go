package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/leadgen-crm/internal/api/model"
	"github.com/cuongbtq/leadgen-crm/internal/api/storage"
	"github.com/cuongbtq/leadgen-crm/internal/importjob"
	"github.com/cuongbtq/leadgen-crm/internal/leads"
)

// ImportService starts and tracks lead imports
type ImportService interface {
	Start(ctx context.Context, req importjob.LaunchRequest) (string, error)
	Status(ctx context.Context, jobID string) (importjob.Job, error)
	Cancel(ctx context.Context, jobID string) (importjob.Job, error)
}

// LeadStore is the lead persistence the handlers read and curate
type LeadStore interface {
	ListLeads(ctx context.Context, filter storage.LeadFilter) ([]model.Lead, error)
	GetLead(ctx context.Context, leadID string) (*model.Lead, error)
	UpdateReviewStatus(ctx context.Context, leadID string, to leads.ReviewStatus) (*model.Lead, error)
	ListApprovedLeadURLs(ctx context.Context, ids []string) ([]model.LeadURL, error)
}

// CampaignStore persists outreach campaigns
type CampaignStore interface {
	CreateCampaign(ctx context.Context, campaign *model.Campaign, leadIDs []string) error
	GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error)
}

// Publisher hands campaigns to the worker service
type Publisher interface {
	PublishJSON(ctx context.Context, v any) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger          *slog.Logger
	Imports         ImportService
	Leads           LeadStore
	Campaigns       CampaignStore
	Publisher       Publisher
	OutreachAgentID string
}

// ImportHandler handles lead import requests
type ImportHandler struct {
	logger  *slog.Logger
	imports ImportService
}

// NewImportHandler creates a new ImportHandler instance
func NewImportHandler(deps *Dependencies) *ImportHandler {
	return &ImportHandler{
		logger:  deps.Logger,
		imports: deps.Imports,
	}
}

// LeadHandler handles lead review requests
type LeadHandler struct {
	logger *slog.Logger
	leads  LeadStore
}

// NewLeadHandler creates a new LeadHandler instance
func NewLeadHandler(deps *Dependencies) *LeadHandler {
	return &LeadHandler{
		logger: deps.Logger,
		leads:  deps.Leads,
	}
}

// CampaignHandler handles outreach campaign requests
type CampaignHandler struct {
	logger          *slog.Logger
	leads           LeadStore
	campaigns       CampaignStore
	publisher       Publisher
	outreachAgentID string
}

// NewCampaignHandler creates a new CampaignHandler instance
func NewCampaignHandler(deps *Dependencies) *CampaignHandler {
	return &CampaignHandler{
		logger:          deps.Logger,
		leads:           deps.Leads,
		campaigns:       deps.Campaigns,
		publisher:       deps.Publisher,
		outreachAgentID: deps.OutreachAgentID,
	}
}
