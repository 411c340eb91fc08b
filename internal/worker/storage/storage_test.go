package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cuongbtq/leadgen-crm/internal/worker/domain"
	"github.com/cuongbtq/leadgen-crm/shared/logger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	campaignID = "9d2f7c1e-3b4a-4e5f-8a6b-7c8d9e0f1a2b"
	workerID   = "worker-test"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStorage(sqlx.NewDb(db, "postgres"), logger.NewDiscard()), mock
}

func TestStorage_ClaimCampaign(t *testing.T) {
	columns := []string{"campaign_id", "name", "agent_id", "message", "status", "worker_id", "retry_count", "max_retries", "timeout_seconds"}

	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		err     error
		wantErr error
	}{
		{
			name: "pending campaign is claimed",
			rows: sqlmock.NewRows(columns).AddRow(campaignID, "Spring", "2222", "Hi", "RUNNING", workerID, 1, 3, 600),
		},
		{
			name:    "already claimed",
			rows:    sqlmock.NewRows(columns),
			wantErr: domain.ErrCampaignAlreadyClaimed,
		},
		{
			name: "database error",
			err:  errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			exp := mock.ExpectQuery(regexp.QuoteMeta("UPDATE campaigns")).
				WithArgs("RUNNING", workerID, campaignID, "PENDING")
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnRows(tt.rows)
			}

			campaign, err := s.ClaimCampaign(context.Background(), campaignID, workerID)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.err != nil:
				assert.ErrorIs(t, err, tt.err)
				assert.NotErrorIs(t, err, domain.ErrCampaignAlreadyClaimed)
			default:
				require.NoError(t, err)
				assert.Equal(t, &domain.Campaign{
					CampaignID:     campaignID,
					Name:           "Spring",
					AgentID:        "2222",
					Message:        "Hi",
					Status:         "RUNNING",
					WorkerID:       workerID,
					RetryCount:     1,
					MaxRetries:     3,
					TimeoutSeconds: 600,
				}, campaign)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_GetCampaignTargets(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM campaign_leads cl")).
		WithArgs(campaignID, "approved").
		WillReturnRows(sqlmock.NewRows([]string{"linkedin_url"}).
			AddRow("https://linkedin.com/in/a").
			AddRow("https://linkedin.com/in/b"))

	urls, err := s.GetCampaignTargets(context.Background(), campaignID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://linkedin.com/in/a", "https://linkedin.com/in/b"}, urls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_SetContainerID(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta("SET container_id = $1")).
		WithArgs("c-42", campaignID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SetContainerID(context.Background(), campaignID, "c-42"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_UpdateCampaignStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		result   map[string]any
		errMsg   string
		wantJSON []byte
	}{
		{
			name:     "completed with result",
			status:   domain.CampaignStatusCompleted,
			result:   map[string]any{"container_id": "c-1", "targets": 2},
			wantJSON: []byte(`{"container_id":"c-1","targets":2}`),
		},
		{
			name:   "failed without result",
			status: domain.CampaignStatusFailed,
			errMsg: "Phantom failed with exit code 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			mock.ExpectExec(regexp.QuoteMeta("SET status = $1::text")).
				WithArgs(tt.status, tt.wantJSON, tt.errMsg, "COMPLETED", "FAILED", campaignID).
				WillReturnResult(sqlmock.NewResult(0, 1))

			require.NoError(t, s.UpdateCampaignStatus(context.Background(), campaignID, tt.status, tt.result, tt.errMsg))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_ReleaseForRetry(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		wantErr      error
	}{
		{name: "running campaign goes back to pending", rowsAffected: 1},
		{name: "campaign no longer running", rowsAffected: 0, wantErr: domain.ErrCampaignNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			mock.ExpectExec(regexp.QuoteMeta("retry_count = retry_count + 1")).
				WithArgs("PENDING", "launch failed", campaignID, "RUNNING").
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))

			err := s.ReleaseForRetry(context.Background(), campaignID, "launch failed")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_UpdateHeartbeat(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(regexp.QuoteMeta("SET last_heartbeat_at = NOW()")).
		WithArgs(campaignID, "RUNNING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.UpdateHeartbeat(context.Background(), campaignID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
