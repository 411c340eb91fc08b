package dto

type CreateCampaignRequest struct {
	Name    string   `json:"name" binding:"required"`
	AgentID string   `json:"agent_id"`
	Message string   `json:"message"`
	LeadIDs []string `json:"lead_ids"`
}

type CampaignDTO struct {
	CampaignID   string `json:"campaign_id"`
	Name         string `json:"name"`
	AgentID      string `json:"agent_id"`
	Message      string `json:"message,omitempty"`
	Status       string `json:"status"`
	LeadCount    int    `json:"lead_count"`
	ContainerID  string `json:"container_id,omitempty"`
	RetryCount   int    `json:"retry_count"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	CompletedAt  string `json:"completed_at,omitempty"`
}

// CampaignMessage is the queue payload consumed by the worker service
type CampaignMessage struct {
	CampaignID string `json:"campaign_id"`
}
