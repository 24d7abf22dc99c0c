package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ripe-api/internal/models"
	"github.com/noah-isme/ripe-api/pkg/database"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
)

type organizationReader interface {
	FindActive(ctx context.Context, exec sqlx.ExtContext, level models.OrgLevel, id int64) (*models.OrgUnit, error)
	ListActive(ctx context.Context, level models.OrgLevel, parentID *int64) ([]models.OrgUnit, error)
}

// codeSelection holds the resolved organisational codes of a request.
type codeSelection struct {
	College   string
	Program   string
	Project   string
	ProgramID *int64
	ProjectID *int64
}

// codeResolver turns selected ids into codes. Allocation and preview share it so both produce
// identical keys for the same selection.
type codeResolver struct {
	orgs organizationReader
}

func (r codeResolver) resolve(ctx context.Context, exec sqlx.ExtContext, collegeID, programID, projectID int64) (codeSelection, error) {
	sel := codeSelection{College: models.SentinelCode, Program: models.SentinelCode, Project: models.SentinelCode}

	if collegeID > 0 {
		college, err := r.lookup(ctx, exec, models.OrgLevelCollege, collegeID)
		if err != nil {
			return sel, err
		}
		sel.College = college.Code
	}
	if programID > 0 {
		program, err := r.lookup(ctx, exec, models.OrgLevelProgram, programID)
		if err != nil {
			return sel, err
		}
		if collegeID > 0 && (program.ParentID == nil || *program.ParentID != collegeID) {
			return sel, appErrors.Clone(appErrors.ErrValidation, "program does not belong to the selected college")
		}
		sel.Program = program.Code
		sel.ProgramID = &program.ID
	}
	if projectID > 0 {
		project, err := r.lookup(ctx, exec, models.OrgLevelProject, projectID)
		if err != nil {
			return sel, err
		}
		if programID > 0 && (project.ParentID == nil || *project.ParentID != programID) {
			return sel, appErrors.Clone(appErrors.ErrValidation, "project does not belong to the selected program")
		}
		sel.Project = project.Code
		sel.ProjectID = &project.ID
	}
	return sel, nil
}

func (r codeResolver) lookup(ctx context.Context, exec sqlx.ExtContext, level models.OrgLevel, id int64) (*models.OrgUnit, error) {
	unit, err := r.orgs.FindActive(ctx, exec, level, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s %d not found", level, id))
	}
	if err != nil {
		return nil, persistenceError(err, fmt.Sprintf("failed to load %s", level))
	}
	return unit, nil
}

// sequenceKeyFor derives the sequence key of a submission for the resolved selection.
func sequenceKeyFor(sub *models.Submission, sel codeSelection) (models.SequenceKey, error) {
	typeChar, ok := sub.Type.Char()
	if !ok {
		return models.SequenceKey{}, appErrors.Clone(appErrors.ErrInvalidSubmissionType, fmt.Sprintf("unrecognized submission type %q", sub.Type))
	}
	unitCode := models.DefaultUnitCode
	if sub.UnitCode != nil && strings.TrimSpace(*sub.UnitCode) != "" {
		unitCode = strings.TrimSpace(*sub.UnitCode)
	}
	return models.SequenceKey{
		TypeChar:    typeChar,
		Year:        sub.SubmittedAt.UTC().Year(),
		UnitCode:    unitCode,
		CollegeCode: sel.College,
		ProgramCode: sel.Program,
		ProjectCode: sel.Project,
	}, nil
}

// persistenceError maps datastore failures, separating lock and serialization conflicts that the
// caller may retry.
func persistenceError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if database.IsRetryable(err) {
		return appErrors.Wrap(err, appErrors.ErrTransactionConflict.Code, appErrors.ErrTransactionConflict.Status, appErrors.ErrTransactionConflict.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
