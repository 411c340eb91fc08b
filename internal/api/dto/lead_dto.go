package dto

type ListLeadsRequest struct {
	ReviewStatus string `form:"review_status"`
	Source       string `form:"source"`
	Company      string `form:"company"`
	Title        string `form:"title"`
	Location     string `form:"location"`
	Industry     string `form:"industry"`
	Search       string `form:"q"`
	PageSize     int    `form:"page_size"`
	Cursor       string `form:"cursor"`
}

type ListLeadsResponse struct {
	Leads      []LeadDTO `json:"leads"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

type LeadDTO struct {
	LeadID           string `json:"lead_id"`
	LinkedinURL      string `json:"linkedin_url,omitempty"`
	FullName         string `json:"full_name,omitempty"`
	Title            string `json:"title,omitempty"`
	Company          string `json:"company,omitempty"`
	Location         string `json:"location,omitempty"`
	Industry         string `json:"industry,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	ConnectionDegree string `json:"connection_degree,omitempty"`
	Source           string `json:"source"`
	ReviewStatus     string `json:"review_status"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type UpdateReviewRequest struct {
	ReviewStatus string `json:"review_status" binding:"required"`
}
