package handler

import (
	"context"

	"github.com/cuongbtq/leadgen-crm/internal/api/model"
	"github.com/cuongbtq/leadgen-crm/internal/api/storage"
	"github.com/cuongbtq/leadgen-crm/internal/importjob"
	"github.com/cuongbtq/leadgen-crm/internal/leads"
	"github.com/stretchr/testify/mock"
)

type mockImports struct {
	mock.Mock
}

func (m *mockImports) Start(ctx context.Context, req importjob.LaunchRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockImports) Status(ctx context.Context, jobID string) (importjob.Job, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(importjob.Job), args.Error(1)
}

func (m *mockImports) Cancel(ctx context.Context, jobID string) (importjob.Job, error) {
	args := m.Called(ctx, jobID)
	return args.Get(0).(importjob.Job), args.Error(1)
}

type mockLeads struct {
	mock.Mock
}

func (m *mockLeads) ListLeads(ctx context.Context, filter storage.LeadFilter) ([]model.Lead, error) {
	args := m.Called(ctx, filter)
	rows, _ := args.Get(0).([]model.Lead)
	return rows, args.Error(1)
}

func (m *mockLeads) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	args := m.Called(ctx, leadID)
	lead, _ := args.Get(0).(*model.Lead)
	return lead, args.Error(1)
}

func (m *mockLeads) UpdateReviewStatus(ctx context.Context, leadID string, to leads.ReviewStatus) (*model.Lead, error) {
	args := m.Called(ctx, leadID, to)
	lead, _ := args.Get(0).(*model.Lead)
	return lead, args.Error(1)
}

func (m *mockLeads) ListApprovedLeadURLs(ctx context.Context, ids []string) ([]model.LeadURL, error) {
	args := m.Called(ctx, ids)
	rows, _ := args.Get(0).([]model.LeadURL)
	return rows, args.Error(1)
}

type mockCampaigns struct {
	mock.Mock
}

func (m *mockCampaigns) CreateCampaign(ctx context.Context, campaign *model.Campaign, leadIDs []string) error {
	args := m.Called(ctx, campaign, leadIDs)
	return args.Error(0)
}

func (m *mockCampaigns) GetCampaign(ctx context.Context, campaignID string) (*model.Campaign, error) {
	args := m.Called(ctx, campaignID)
	c, _ := args.Get(0).(*model.Campaign)
	return c, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(ctx context.Context, v any) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}
