package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ripe-api/internal/models"
)

const submissionAllocationColumns = `SELECT s.id, s.title, s.type, s.submitted_at, s.unit_id, u.code AS unit_code,
s.department_id, s.status, s.ripe_code, s.researcher_id, r.full_name AS researcher_name, r.email AS researcher_email
FROM submissions s
LEFT JOIN units u ON u.id = s.unit_id
LEFT JOIN users r ON r.id = s.researcher_id
WHERE s.id = $1 AND s.ripe_code IS NULL`

// SubmissionRepository reads and updates submissions for the RIPE workflow.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockForAllocation loads a submission without a RIPE code and locks its row for the rest of the
// transaction. It returns sql.ErrNoRows when the submission is missing or already coded.
func (r *SubmissionRepository) LockForAllocation(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Submission, error) {
	var submission models.Submission
	if err := sqlx.GetContext(ctx, r.exec(exec), &submission, submissionAllocationColumns+" FOR UPDATE OF s", id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// FindUncoded is the non-locking variant used by previews.
func (r *SubmissionRepository) FindUncoded(ctx context.Context, id int64) (*models.Submission, error) {
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, submissionAllocationColumns, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// MarkAccepted attaches the RIPE code and moves the submission to accepted_by_facilitator. It
// returns sql.ErrNoRows if the submission was coded or changed state concurrently.
func (r *SubmissionRepository) MarkAccepted(ctx context.Context, exec sqlx.ExtContext, params models.AcceptSubmissionParams) error {
	const query = `UPDATE submissions
SET ripe_code = $1, coded_by = $2, coded_at = $3, status = $4, program_id = $5, project_id = $6, updated_at = $3
WHERE id = $7 AND ripe_code IS NULL AND status = $8`
	result, err := r.exec(exec).ExecContext(ctx, query,
		params.RipeCode,
		params.CodedBy,
		params.CodedAt,
		models.SubmissionStatusAcceptedByFacilitator,
		params.ProgramID,
		params.ProjectID,
		params.SubmissionID,
		models.SubmissionStatusSubmitted,
	)
	if err != nil {
		return fmt.Errorf("mark submission accepted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("submission rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListRegister returns coded submissions ordered by RIPE code.
func (r *SubmissionRepository) ListRegister(ctx context.Context, filter models.RegisterFilter) ([]models.RegisterEntry, error) {
	conditions := []string{"s.ripe_code IS NOT NULL"}
	args := make([]interface{}, 0, 4)
	add := func(expr string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}
	if filter.DepartmentID > 0 {
		add("s.department_id = $%d", filter.DepartmentID)
	}
	if filter.UnitID > 0 {
		add("s.unit_id = $%d", filter.UnitID)
	}
	if filter.Year > 0 {
		add("EXTRACT(YEAR FROM s.submitted_at) = $%d", filter.Year)
	}
	if filter.Type != "" {
		add("s.type = $%d", filter.Type)
	}
	query := `SELECT s.ripe_code, s.title, s.type, COALESCE(r.full_name, '') AS researcher_name, s.coded_at
FROM submissions s
LEFT JOIN users r ON r.id = s.researcher_id
WHERE ` + strings.Join(conditions, " AND ") + `
ORDER BY s.ripe_code ASC`

	var entries []models.RegisterEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list ripe register: %w", err)
	}
	return entries, nil
}
