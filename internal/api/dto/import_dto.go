package dto

type StartImportRequest struct {
	AgentID   string         `json:"agent_id"`
	Arguments map[string]any `json:"arguments"`
	Source    string         `json:"source"`
}

type StartImportResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type ImportResultDTO struct {
	SavedCount     int  `json:"saved_count"`
	SkippedCount   int  `json:"skipped_count"`
	MalformedCount int  `json:"malformed_count"`
	Anomaly        bool `json:"anomaly"`
}

type ImportJobDTO struct {
	JobID       string           `json:"job_id"`
	Source      string           `json:"source"`
	Status      string           `json:"status"`
	Progress    int              `json:"progress"`
	Message     string           `json:"message"`
	ContainerID string           `json:"container_id,omitempty"`
	Result      *ImportResultDTO `json:"result,omitempty"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
	FinishedAt  string           `json:"finished_at,omitempty"`
}
