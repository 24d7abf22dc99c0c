package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ripe-api/internal/models"
)

// StatusLogRepository appends submission status transitions.
type StatusLogRepository struct {
	db *sqlx.DB
}

// NewStatusLogRepository constructs the repository.
func NewStatusLogRepository(db *sqlx.DB) *StatusLogRepository {
	return &StatusLogRepository{db: db}
}

func (r *StatusLogRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts the entry and fills in its id.
func (r *StatusLogRepository) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.StatusLog) error {
	if entry == nil {
		return fmt.Errorf("status log payload is nil")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO submission_status_logs (submission_id, changed_by, old_status, new_status, remarks, created_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := sqlx.GetContext(ctx, r.exec(exec), &entry.ID, query,
		entry.SubmissionID, entry.ChangedBy, entry.OldStatus, entry.NewStatus, entry.Remarks, entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert status log: %w", err)
	}
	return nil
}
