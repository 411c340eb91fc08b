package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cuongbtq/leadgen-crm/internal/api/domain"
	"github.com/cuongbtq/leadgen-crm/internal/api/dto"
	"github.com/cuongbtq/leadgen-crm/internal/api/model"
	"github.com/cuongbtq/leadgen-crm/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testCampaignID = "9d2f7c1e-3b4a-4e5f-8a6b-7c8d9e0f1a2b"

type campaignMocks struct {
	leads     *mockLeads
	campaigns *mockCampaigns
	publisher *mockPublisher
}

func newCampaignRouter(m campaignMocks, outreachAgentID string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := NewCampaignHandler(&Dependencies{
		Logger:          logger.NewDiscard(),
		Leads:           m.leads,
		Campaigns:       m.campaigns,
		Publisher:       m.publisher,
		OutreachAgentID: outreachAgentID,
	})
	r := gin.New()
	r.POST("/api/v1/campaigns", h.CreateCampaign)
	r.GET("/api/v1/campaigns/:campaign_id", h.GetCampaign)
	return r
}

func TestCampaignHandler_CreateCampaign(t *testing.T) {
	approved := []model.LeadURL{
		{LeadID: testLeadID, LinkedinURL: "https://linkedin.com/in/a"},
		{LeadID: "1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f", LinkedinURL: "https://linkedin.com/in/b"},
	}

	tests := []struct {
		name       string
		body       string
		agentID    string
		setup      func(m campaignMocks)
		wantStatus int
	}{
		{
			name:    "queued with default agent",
			body:    `{"name":" Spring outreach ","message":"Hi {firstName}"}`,
			agentID: "outreach-1",
			setup: func(m campaignMocks) {
				m.leads.On("ListApprovedLeadURLs", mock.Anything, []string(nil)).Return(approved, nil)
				m.campaigns.On("CreateCampaign", mock.Anything, mock.MatchedBy(func(c *model.Campaign) bool {
					return c.Name == "Spring outreach" && c.AgentID == "outreach-1" &&
						c.Status == domain.CampaignStatusPending && c.Message == "Hi {firstName}"
				}), []string{approved[0].LeadID, approved[1].LeadID}).
					Run(func(args mock.Arguments) {
						args.Get(1).(*model.Campaign).LeadCount = 2
					}).
					Return(nil)
				m.publisher.On("PublishJSON", mock.Anything, mock.AnythingOfType("dto.CampaignMessage")).Return(nil)
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name: "explicit agent and lead ids",
			body: `{"name":"Targeted","agent_id":"custom","lead_ids":["` + testLeadID + `"]}`,
			setup: func(m campaignMocks) {
				m.leads.On("ListApprovedLeadURLs", mock.Anything, []string{testLeadID}).Return(approved[:1], nil)
				m.campaigns.On("CreateCampaign", mock.Anything, mock.MatchedBy(func(c *model.Campaign) bool {
					return c.AgentID == "custom"
				}), []string{testLeadID}).Return(nil)
				m.publisher.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "missing name",
			body:       `{"agent_id":"x"}`,
			setup:      func(m campaignMocks) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "blank name",
			body:       `{"name":"   ","agent_id":"x"}`,
			setup:      func(m campaignMocks) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid lead id",
			body:       `{"name":"n","agent_id":"x","lead_ids":["nope"]}`,
			setup:      func(m campaignMocks) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no agent configured",
			body:       `{"name":"n"}`,
			setup:      func(m campaignMocks) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:    "no approved leads",
			body:    `{"name":"n"}`,
			agentID: "outreach-1",
			setup: func(m campaignMocks) {
				m.leads.On("ListApprovedLeadURLs", mock.Anything, []string(nil)).Return([]model.LeadURL{}, nil)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:    "store failure",
			body:    `{"name":"n"}`,
			agentID: "outreach-1",
			setup: func(m campaignMocks) {
				m.leads.On("ListApprovedLeadURLs", mock.Anything, []string(nil)).Return(approved, nil)
				m.campaigns.On("CreateCampaign", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("tx aborted"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:    "queue unavailable",
			body:    `{"name":"n"}`,
			agentID: "outreach-1",
			setup: func(m campaignMocks) {
				m.leads.On("ListApprovedLeadURLs", mock.Anything, []string(nil)).Return(approved, nil)
				m.campaigns.On("CreateCampaign", mock.Anything, mock.Anything, mock.Anything).Return(nil)
				m.publisher.On("PublishJSON", mock.Anything, mock.Anything).Return(errors.New("channel closed"))
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := campaignMocks{leads: &mockLeads{}, campaigns: &mockCampaigns{}, publisher: &mockPublisher{}}
			tt.setup(m)

			w := doRequest(newCampaignRouter(m, tt.agentID), http.MethodPost, "/api/v1/campaigns", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			switch tt.wantStatus {
			case http.StatusAccepted:
				var resp dto.CampaignDTO
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.CampaignID)
				assert.Equal(t, domain.CampaignStatusPending, resp.Status)

				published := m.publisher.Calls[0].Arguments.Get(1).(dto.CampaignMessage)
				assert.Equal(t, resp.CampaignID, published.CampaignID)
			case http.StatusServiceUnavailable:
				var resp map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp["campaign_id"])
			}

			m.leads.AssertExpectations(t)
			m.campaigns.AssertExpectations(t)
			m.publisher.AssertExpectations(t)
		})
	}
}

func TestCampaignHandler_GetCampaign(t *testing.T) {
	completed := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		campaignID string
		campaign   *model.Campaign
		err        error
		wantStatus int
	}{
		{
			name:       "completed campaign",
			campaignID: testCampaignID,
			campaign: &model.Campaign{
				CampaignID:  testCampaignID,
				Name:        "Spring",
				Status:      domain.CampaignStatusCompleted,
				ContainerID: sql.NullString{String: "c-1", Valid: true},
				LeadCount:   12,
				CompletedAt: sql.NullTime{Time: completed, Valid: true},
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing",
			campaignID: testCampaignID,
			err:        domain.ErrCampaignNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "store failure",
			campaignID: testCampaignID,
			err:        errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "invalid id",
			campaignID: "abc",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := campaignMocks{leads: &mockLeads{}, campaigns: &mockCampaigns{}, publisher: &mockPublisher{}}
			if tt.wantStatus != http.StatusBadRequest {
				m.campaigns.On("GetCampaign", mock.Anything, tt.campaignID).Return(tt.campaign, tt.err)
			}

			w := doRequest(newCampaignRouter(m, ""), http.MethodGet, "/api/v1/campaigns/"+tt.campaignID, "")
			require.Equal(t, tt.wantStatus, w.Code)

			if tt.campaign != nil {
				var resp dto.CampaignDTO
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "c-1", resp.ContainerID)
				assert.Equal(t, 12, resp.LeadCount)
				assert.Equal(t, "2026-03-02T09:00:00Z", resp.CompletedAt)
			}
			m.campaigns.AssertExpectations(t)
		})
	}
}
