package model

import (
	"database/sql"
	"time"
)

type Lead struct {
	LeadID           string    `db:"lead_id"`
	IdentityKey      string    `db:"identity_key"`
	LinkedinURL      string    `db:"linkedin_url"`
	FullName         string    `db:"full_name"`
	Title            string    `db:"title"`
	Company          string    `db:"company"`
	Location         string    `db:"location"`
	Industry         string    `db:"industry"`
	Email            string    `db:"email"`
	Phone            string    `db:"phone"`
	ConnectionDegree string    `db:"connection_degree"`
	Source           string    `db:"source"`
	ReviewStatus     string    `db:"review_status"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// LeadURL is the outreach target of an approved lead
type LeadURL struct {
	LeadID      string `db:"lead_id"`
	LinkedinURL string `db:"linkedin_url"`
}

type Campaign struct {
	CampaignID   string         `db:"campaign_id"`
	Name         string         `db:"name"`
	AgentID      string         `db:"agent_id"`
	Message      string         `db:"message"`
	Status       string         `db:"status"`
	ContainerID  sql.NullString `db:"container_id"`
	RetryCount   int            `db:"retry_count"`
	ErrorMessage string         `db:"error_message"`
	LeadCount    int            `db:"lead_count"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
}
