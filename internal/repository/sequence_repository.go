package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ripe-api/internal/models"
)

// SequenceRepository persists study-number counters in ripe_sequences.
type SequenceRepository struct {
	db *sqlx.DB
}

// NewSequenceRepository constructs the repository.
func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

func (r *SequenceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Increment creates the counter at 1 or bumps it by one and returns the new value. The row stays
// locked until the caller's transaction ends, so concurrent increments on one key serialize.
func (r *SequenceRepository) Increment(ctx context.Context, exec sqlx.ExtContext, key models.SequenceKey, at time.Time) (int, error) {
	const query = `INSERT INTO ripe_sequences (type_char, year, unit_code, college_code, program_code, project_code, last_number, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
ON CONFLICT (type_char, year, unit_code, college_code, program_code, project_code)
DO UPDATE SET last_number = ripe_sequences.last_number + 1, updated_at = EXCLUDED.updated_at
RETURNING last_number`
	var next int
	if err := sqlx.GetContext(ctx, r.exec(exec), &next, query,
		key.TypeChar, key.Year, key.UnitCode, key.CollegeCode, key.ProgramCode, key.ProjectCode, at,
	); err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", key, err)
	}
	return next, nil
}

// Current returns the last issued number for the key, or 0 when none has been issued.
func (r *SequenceRepository) Current(ctx context.Context, key models.SequenceKey) (int, error) {
	const query = `SELECT last_number FROM ripe_sequences
WHERE type_char = $1 AND year = $2 AND unit_code = $3 AND college_code = $4 AND program_code = $5 AND project_code = $6`
	var current int
	err := r.db.GetContext(ctx, &current, query,
		key.TypeChar, key.Year, key.UnitCode, key.CollegeCode, key.ProgramCode, key.ProjectCode,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read sequence %s: %w", key, err)
	}
	return current, nil
}
