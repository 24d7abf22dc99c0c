package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ripe-api/internal/models"
)

type orgTable struct {
	name   string
	parent string
}

var orgTables = map[models.OrgLevel]orgTable{
	models.OrgLevelUnit:    {name: "units", parent: "NULL::bigint"},
	models.OrgLevelCollege: {name: "colleges", parent: "NULL::bigint"},
	models.OrgLevelProgram: {name: "programs", parent: "college_id"},
	models.OrgLevelProject: {name: "projects", parent: "program_id"},
}

// OrganizationRepository reads the organisational lookup tables.
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository constructs the repository.
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindActive loads an active row by id. It returns sql.ErrNoRows for unknown or inactive rows.
func (r *OrganizationRepository) FindActive(ctx context.Context, exec sqlx.ExtContext, level models.OrgLevel, id int64) (*models.OrgUnit, error) {
	table, ok := orgTables[level]
	if !ok {
		return nil, fmt.Errorf("unknown organisation level %q", level)
	}
	query := fmt.Sprintf(`SELECT id, %s AS parent_id, code, name, active FROM %s WHERE id = $1 AND active = TRUE`, table.parent, table.name)
	var unit models.OrgUnit
	if err := sqlx.GetContext(ctx, r.exec(exec), &unit, query, id); err != nil {
		return nil, err
	}
	return &unit, nil
}

// ListActive returns active rows ordered by name, restricted to a parent when one is given.
func (r *OrganizationRepository) ListActive(ctx context.Context, level models.OrgLevel, parentID *int64) ([]models.OrgUnit, error) {
	table, ok := orgTables[level]
	if !ok {
		return nil, fmt.Errorf("unknown organisation level %q", level)
	}
	query := fmt.Sprintf(`SELECT id, %s AS parent_id, code, name, active FROM %s WHERE active = TRUE`, table.parent, table.name)
	args := []interface{}{}
	if parentID != nil {
		if table.parent == "NULL::bigint" {
			return nil, fmt.Errorf("%s has no parent", table.name)
		}
		query += fmt.Sprintf(" AND %s = $1", table.parent)
		args = append(args, *parentID)
	}
	query += " ORDER BY name ASC"

	units := make([]models.OrgUnit, 0)
	if err := r.db.SelectContext(ctx, &units, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", table.name, err)
	}
	return units, nil
}
