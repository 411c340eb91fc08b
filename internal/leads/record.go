// Package leads holds the normalized lead record, its identity rule, review
// status transitions and the parser that turns scrape artifacts into records.
package leads

import (
	"errors"
	"strings"
)

// ReviewStatus is the human curation state of a lead
type ReviewStatus string

const (
	ReviewToBeReviewed ReviewStatus = "to_be_reviewed"
	ReviewApproved     ReviewStatus = "approved"
	ReviewRejected     ReviewStatus = "rejected"
)

var (
	// ErrInvalidReviewStatus is returned for values outside the review vocabulary
	ErrInvalidReviewStatus = errors.New("invalid review status")

	// ErrInvalidTransition is returned when a review change skips the review queue
	ErrInvalidTransition = errors.New("invalid review status transition")
)

// ParseReviewStatus validates a review status coming from a request
func ParseReviewStatus(s string) (ReviewStatus, error) {
	switch st := ReviewStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case ReviewToBeReviewed, ReviewApproved, ReviewRejected:
		return st, nil
	default:
		return "", ErrInvalidReviewStatus
	}
}

// CanTransition reports whether a lead may move from one review status to
// another. Approved and rejected are only reachable from the review queue and
// only lead back to it. Staying in place is allowed.
func CanTransition(from, to ReviewStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case ReviewToBeReviewed:
		return to == ReviewApproved || to == ReviewRejected
	case ReviewApproved, ReviewRejected:
		return to == ReviewToBeReviewed
	default:
		return false
	}
}

// AllowedSources returns every status from which `to` is reachable
func AllowedSources(to ReviewStatus) []ReviewStatus {
	var out []ReviewStatus
	for _, from := range []ReviewStatus{ReviewToBeReviewed, ReviewApproved, ReviewRejected} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// Record is one prospect produced from scraped data. Empty strings mean the
// field is absent.
type Record struct {
	LinkedinURL      string `json:"linkedin_url,omitempty"`
	FullName         string `json:"full_name,omitempty"`
	Title            string `json:"title,omitempty"`
	Company          string `json:"company,omitempty"`
	Location         string `json:"location,omitempty"`
	Industry         string `json:"industry,omitempty"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	ConnectionDegree string `json:"connection_degree,omitempty"`
	Source           string `json:"source,omitempty"`
}

// IdentityKey is the dedup key: the canonical LinkedIn URL when present,
// otherwise full name plus company. Returns "" when neither is usable.
func (r *Record) IdentityKey() string {
	if r.LinkedinURL != "" {
		return "url:" + strings.ToLower(r.LinkedinURL)
	}
	if r.FullName == "" {
		return ""
	}
	return "name:" + strings.ToLower(r.FullName) + "|" + strings.ToLower(r.Company)
}
