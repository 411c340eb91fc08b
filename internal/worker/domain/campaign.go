package domain

// Campaign status constants
const (
	CampaignStatusPending   = "PENDING"
	CampaignStatusRunning   = "RUNNING"
	CampaignStatusCompleted = "COMPLETED"
	CampaignStatusFailed    = "FAILED"
)

// Campaign represents a claimed outreach campaign
type Campaign struct {
	CampaignID     string `db:"campaign_id"`
	Name           string `db:"name"`
	AgentID        string `db:"agent_id"`
	Message        string `db:"message"`
	Status         string `db:"status"`
	WorkerID       string `db:"worker_id"`
	RetryCount     int    `db:"retry_count"`
	MaxRetries     int    `db:"max_retries"`
	TimeoutSeconds int    `db:"timeout_seconds"`
}

// CampaignMessage represents a campaign message from RabbitMQ
type CampaignMessage struct {
	CampaignID  string `json:"campaign_id"`
	DeliveryTag uint64 `json:"-"`
}
