package domain

import (
	"errors"
)

const (
	CampaignStatusPending   = "PENDING"
	CampaignStatusRunning   = "RUNNING"
	CampaignStatusCompleted = "COMPLETED"
	CampaignStatusFailed    = "FAILED"
)

var (
	ErrLeadNotFound     = errors.New("lead not found")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrNoApprovedLeads  = errors.New("no approved leads with a profile url")
)
