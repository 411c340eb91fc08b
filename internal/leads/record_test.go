package leads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_IdentityKey(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		want   string
	}{
		{
			name:   "url wins over name",
			record: Record{LinkedinURL: "https://linkedin.com/in/Jane", FullName: "Jane Doe", Company: "Acme"},
			want:   "url:https://linkedin.com/in/jane",
		},
		{
			name:   "name and company when url is missing",
			record: Record{FullName: "Jane Doe", Company: "ACME"},
			want:   "name:jane doe|acme",
		},
		{
			name:   "name without company",
			record: Record{FullName: "Jane Doe"},
			want:   "name:jane doe|",
		},
		{
			name:   "no identity",
			record: Record{Company: "Acme", Email: "jane@acme.io"},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.IdentityKey())
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ReviewStatus
		want     bool
	}{
		{ReviewToBeReviewed, ReviewApproved, true},
		{ReviewToBeReviewed, ReviewRejected, true},
		{ReviewApproved, ReviewToBeReviewed, true},
		{ReviewRejected, ReviewToBeReviewed, true},
		{ReviewApproved, ReviewRejected, false},
		{ReviewRejected, ReviewApproved, false},
		{ReviewApproved, ReviewApproved, true},
		{ReviewToBeReviewed, ReviewToBeReviewed, true},
		{ReviewStatus("archived"), ReviewApproved, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestAllowedSources(t *testing.T) {
	assert.ElementsMatch(t, []ReviewStatus{ReviewToBeReviewed, ReviewApproved}, AllowedSources(ReviewApproved))
	assert.ElementsMatch(t, []ReviewStatus{ReviewToBeReviewed, ReviewRejected}, AllowedSources(ReviewRejected))
	assert.ElementsMatch(t, []ReviewStatus{ReviewToBeReviewed, ReviewApproved, ReviewRejected}, AllowedSources(ReviewToBeReviewed))
}

func TestParseReviewStatus(t *testing.T) {
	st, err := ParseReviewStatus(" Approved ")
	require.NoError(t, err)
	assert.Equal(t, ReviewApproved, st)

	_, err = ParseReviewStatus("maybe")
	assert.ErrorIs(t, err, ErrInvalidReviewStatus)
}
