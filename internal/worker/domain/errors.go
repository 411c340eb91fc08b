package domain

import "errors"

var (
	// ErrCampaignNotFound is returned when a campaign cannot be found in the database
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrCampaignAlreadyClaimed is returned when a campaign is not PENDING anymore
	ErrCampaignAlreadyClaimed = errors.New("campaign already claimed or not in PENDING status")

	// ErrInvalidPayload is returned when a queue message is malformed
	ErrInvalidPayload = errors.New("invalid campaign payload")

	// ErrNoTargets is returned when none of the campaign's leads can be contacted
	ErrNoTargets = errors.New("campaign has no approved leads with a profile url")

	// ErrMaxRetriesExceeded is returned when a campaign has exceeded its retry limit
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
