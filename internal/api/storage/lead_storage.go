package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/leadgen-crm/internal/api/domain"
	"github.com/cuongbtq/leadgen-crm/internal/api/model"
	"github.com/cuongbtq/leadgen-crm/internal/leads"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const leadColumns = `lead_id, identity_key, linkedin_url, full_name, title, company,
	location, industry, email, phone, connection_degree, source,
	review_status, created_at, updated_at`

// ErrMissingIdentity is returned for records that carry neither a profile url nor a name
var ErrMissingIdentity = errors.New("lead has no identity")

type LeadFilter struct {
	ReviewStatus string
	Source       string
	Company      string
	Title        string
	Location     string
	Industry     string
	Search       string
	PageSize     int
	Cursor       *LeadCursor
}

type LeadCursor struct {
	CreatedAt time.Time
	LeadID    string
}

// InsertOrSkip stores a new lead. It reports false without error when a lead
// with the same identity already exists.
func (s *Storage) InsertOrSkip(ctx context.Context, rec leads.Record) (bool, error) {
	key := rec.IdentityKey()
	if key == "" {
		return false, ErrMissingIdentity
	}

	query := `
		INSERT INTO leads (
			lead_id, identity_key, linkedin_url, full_name, title, company,
			location, industry, email, phone, connection_degree, source,
			review_status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15
		)
		ON CONFLICT (identity_key) DO NOTHING
	`

	now := s.now()
	result, err := s.db.ExecContext(
		ctx,
		query,
		uuid.NewString(),
		key,
		rec.LinkedinURL,
		rec.FullName,
		rec.Title,
		rec.Company,
		rec.Location,
		rec.Industry,
		rec.Email,
		rec.Phone,
		rec.ConnectionDegree,
		rec.Source,
		string(leads.ReviewToBeReviewed),
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert lead: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// GetLead retrieves a lead by id
func (s *Storage) GetLead(ctx context.Context, leadID string) (*model.Lead, error) {
	var lead model.Lead
	query := `SELECT ` + leadColumns + ` FROM leads WHERE lead_id = $1`

	if err := s.db.GetContext(ctx, &lead, query, leadID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	return &lead, nil
}

// ListLeads returns up to PageSize+1 leads, newest first, so callers can tell
// whether another page exists
func (s *Storage) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.ReviewStatus != "" {
		query += fmt.Sprintf(" AND review_status = $%d", argIdx)
		args = append(args, filter.ReviewStatus)
		argIdx++
	}

	if filter.Source != "" {
		query += fmt.Sprintf(" AND source = $%d", argIdx)
		args = append(args, filter.Source)
		argIdx++
	}

	for _, f := range []struct {
		column, value string
	}{
		{"company", filter.Company},
		{"title", filter.Title},
		{"location", filter.Location},
		{"industry", filter.Industry},
	} {
		if f.value == "" {
			continue
		}
		query += fmt.Sprintf(" AND %s ILIKE $%d", f.column, argIdx)
		args = append(args, likePattern(f.value))
		argIdx++
	}

	if filter.Search != "" {
		query += fmt.Sprintf(" AND (full_name ILIKE $%[1]d OR company ILIKE $%[1]d OR title ILIKE $%[1]d)", argIdx)
		args = append(args, likePattern(filter.Search))
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, lead_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.LeadID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, lead_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var out []model.Lead
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	return out, nil
}

// UpdateReviewStatus moves a lead to another review status in one conditional
// update. A lead in a status that cannot reach `to` yields
// leads.ErrInvalidTransition.
func (s *Storage) UpdateReviewStatus(ctx context.Context, leadID string, to leads.ReviewStatus) (*model.Lead, error) {
	sources := leads.AllowedSources(to)
	allowed := make([]string, len(sources))
	for i, st := range sources {
		allowed[i] = string(st)
	}

	query := `
		UPDATE leads
		SET review_status = $1,
		    updated_at = $2
		WHERE lead_id = $3
		  AND review_status = ANY($4)
		RETURNING ` + leadColumns

	var lead model.Lead
	err := s.db.GetContext(ctx, &lead, query, string(to), s.now(), leadID, pq.Array(allowed))
	if err == nil {
		s.logger.Info("Lead review status updated",
			slog.String("lead_id", leadID),
			slog.String("review_status", string(to)),
		)
		return &lead, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to update review status: %w", err)
	}

	var current string
	err = s.db.GetContext(ctx, &current, `SELECT review_status FROM leads WHERE lead_id = $1`, leadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get review status: %w", err)
	}

	return nil, fmt.Errorf("%w: %s to %s", leads.ErrInvalidTransition, current, to)
}

// ListApprovedLeadURLs returns approved leads that have a profile url,
// restricted to ids when ids is non-empty
func (s *Storage) ListApprovedLeadURLs(ctx context.Context, ids []string) ([]model.LeadURL, error) {
	query := `
		SELECT lead_id, linkedin_url
		FROM leads
		WHERE review_status = $1
		  AND linkedin_url <> ''
	`
	args := []interface{}{string(leads.ReviewApproved)}

	if len(ids) > 0 {
		query += " AND lead_id = ANY($2)"
		args = append(args, pq.Array(ids))
	}
	query += " ORDER BY created_at, lead_id"

	var out []model.LeadURL
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list approved leads: %w", err)
	}

	return out, nil
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}
