package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/ripe-api/internal/dto"
	"github.com/noah-isme/ripe-api/internal/models"
	"github.com/noah-isme/ripe-api/pkg/database"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type submissionStore interface {
	LockForAllocation(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Submission, error)
	MarkAccepted(ctx context.Context, exec sqlx.ExtContext, params models.AcceptSubmissionParams) error
}

type studyNumberAllocator interface {
	Next(ctx context.Context, exec sqlx.ExtContext, key models.SequenceKey) (int, error)
}

type statusLogWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, entry *models.StatusLog) error
}

type notificationWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, n *models.Notification) error
}

type allocationMetrics interface {
	ObserveAllocation(submissionType, outcome string, duration time.Duration)
}

type assignmentMailer interface {
	Dispatch(mail RipeAssignedMail) error
}

// RipeServiceConfig tunes allocation side effects.
type RipeServiceConfig struct {
	// LinkTemplate receives the submission id, e.g. "/researcher/submissions/%d".
	LinkTemplate string
}

// RipeService assigns RIPE codes to submissions.
type RipeService struct {
	tx            txProvider
	submissions   submissionStore
	sequences     studyNumberAllocator
	resolver      codeResolver
	statusLogs    statusLogWriter
	notifications notificationWriter
	metrics       allocationMetrics
	mailer        assignmentMailer
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
	linkTemplate  string
}

// NewRipeService wires allocation dependencies. metrics and mailer may be nil.
func NewRipeService(
	tx txProvider,
	submissions submissionStore,
	sequences studyNumberAllocator,
	orgs organizationReader,
	statusLogs statusLogWriter,
	notifications notificationWriter,
	metrics allocationMetrics,
	mailer assignmentMailer,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg RipeServiceConfig,
) *RipeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LinkTemplate == "" {
		cfg.LinkTemplate = "/researcher/submissions/%d"
	}
	return &RipeService{
		tx:            tx,
		submissions:   submissions,
		sequences:     sequences,
		resolver:      codeResolver{orgs: orgs},
		statusLogs:    statusLogs,
		notifications: notifications,
		metrics:       metrics,
		mailer:        mailer,
		validator:     validate,
		logger:        logger,
		now:           time.Now,
		linkTemplate:  cfg.LinkTemplate,
	}
}

// Allocate assigns the next RIPE code to a submission and accepts it. The lock, the sequence
// increment, the status change, the status log and the notification commit together or not at all.
func (s *RipeService) Allocate(ctx context.Context, req dto.AllocateRequest, actor *models.Actor) (resp *dto.AllocateResponse, err error) {
	start := s.now()
	var submissionType string
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = appErrors.FromError(err).Code
		}
		if s.metrics != nil {
			s.metrics.ObserveAllocation(submissionType, outcome, s.now().Sub(start))
		}
	}()

	if err = s.authorize(actor); err != nil {
		return nil, err
	}
	if err = s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocation payload")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, persistenceError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sub, err := s.submissions.LockForAllocation(ctx, tx, req.SubmissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = s.unavailable(req.SubmissionID, actor, "submission missing or already coded")
			return nil, err
		}
		err = persistenceError(err, "failed to lock submission")
		return nil, err
	}
	submissionType = string(sub.Type)

	if err = checkEligibility(s.logger, sub, actor); err != nil {
		return nil, err
	}

	sel, err := s.resolver.resolve(ctx, tx, req.CollegeID, req.ProgramID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	key, err := sequenceKeyFor(sub, sel)
	if err != nil {
		return nil, err
	}

	studyNumber, err := s.sequences.Next(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	ref := models.NewReferenceNumber(key, studyNumber)
	codedAt := s.now().UTC()

	err = s.submissions.MarkAccepted(ctx, tx, models.AcceptSubmissionParams{
		SubmissionID: sub.ID,
		RipeCode:     ref.String(),
		CodedBy:      actor.UserID,
		CodedAt:      codedAt,
		ProgramID:    sel.ProgramID,
		ProjectID:    sel.ProjectID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = s.unavailable(sub.ID, actor, "submission changed before it could be accepted")
			return nil, err
		}
		if database.IsUniqueViolation(err) {
			s.logger.Error("ripe code already in use",
				zap.Int64("submission_id", sub.ID),
				zap.String("ripe_code", ref.String()),
				zap.String("sequence_key", key.String()),
			)
		}
		err = persistenceError(err, "failed to update submission")
		return nil, err
	}

	remarks := fmt.Sprintf("RIPE code %s assigned", ref)
	if err = s.statusLogs.Create(ctx, tx, &models.StatusLog{
		SubmissionID: sub.ID,
		ChangedBy:    actor.UserID,
		OldStatus:    models.SubmissionStatusSubmitted,
		NewStatus:    models.SubmissionStatusAcceptedByFacilitator,
		Remarks:      &remarks,
		CreatedAt:    codedAt,
	}); err != nil {
		err = persistenceError(err, "failed to record status change")
		return nil, err
	}

	notification := s.buildNotification(sub, ref, codedAt)
	if err = s.notifications.Create(ctx, tx, notification); err != nil {
		err = persistenceError(err, "failed to create notification")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = persistenceError(err, "failed to commit allocation")
		return nil, err
	}

	s.afterCommit(sub, ref, notification, actor)

	code := ref.String()
	return &dto.AllocateResponse{
		Success:         true,
		Message:         fmt.Sprintf("RIPE code %s assigned", code),
		ReferenceNumber: &code,
	}, nil
}

func (s *RipeService) authorize(actor *models.Actor) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleFacilitator {
		return appErrors.Clone(appErrors.ErrForbidden, "only facilitators can assign RIPE codes")
	}
	return nil
}

// checkEligibility applies the state and scope preconditions shared with previews.
func checkEligibility(logger *zap.Logger, sub *models.Submission, actor *models.Actor) error {
	if sub.Status != models.SubmissionStatusSubmitted {
		logger.Info("submission not eligible for RIPE code",
			zap.Int64("submission_id", sub.ID),
			zap.String("status", string(sub.Status)),
			zap.Int64("actor_id", actor.UserID),
		)
		return appErrors.ErrSubmissionUnavailable
	}
	if !actor.InScope(sub.DepartmentID, sub.UnitID) {
		logger.Warn("submission outside facilitator scope",
			zap.Int64("submission_id", sub.ID),
			zap.Int64("actor_id", actor.UserID),
			zap.Int64("submission_department_id", sub.DepartmentID),
			zap.Int64("submission_unit_id", sub.UnitID),
			zap.Int64("actor_department_id", actor.DepartmentID),
			zap.Int64("actor_unit_id", actor.UnitID),
		)
		return appErrors.ErrScopeMismatch
	}
	return nil
}

func (s *RipeService) unavailable(submissionID int64, actor *models.Actor, reason string) error {
	s.logger.Info("submission not available for allocation",
		zap.Int64("submission_id", submissionID),
		zap.Int64("actor_id", actor.UserID),
		zap.String("reason", reason),
	)
	return appErrors.ErrSubmissionUnavailable
}

func (s *RipeService) buildNotification(sub *models.Submission, ref models.ReferenceNumber, at time.Time) *models.Notification {
	submissionID := sub.ID
	return &models.Notification{
		UserID:              sub.ResearcherID,
		Type:                models.NotificationTypeRipeAssigned,
		Title:               "RIPE code assigned",
		Message:             fmt.Sprintf("Your submission %q was accepted and assigned RIPE code %s.", sub.Title, ref),
		Link:                fmt.Sprintf(s.linkTemplate, sub.ID),
		IsRead:              false,
		RelatedSubmissionID: &submissionID,
		CreatedAt:           at,
	}
}

// afterCommit runs side effects that must not change the allocation result.
func (s *RipeService) afterCommit(sub *models.Submission, ref models.ReferenceNumber, n *models.Notification, actor *models.Actor) {
	s.logger.Info("ripe code assigned",
		zap.String("audit", "ripe_allocation"),
		zap.Int64("submission_id", sub.ID),
		zap.String("ripe_code", ref.String()),
		zap.Int64("actor_id", actor.UserID),
		zap.Int64("researcher_id", sub.ResearcherID),
	)

	if s.mailer == nil || sub.ResearcherEmail == nil || *sub.ResearcherEmail == "" {
		return
	}
	name := ""
	if sub.ResearcherName != nil {
		name = *sub.ResearcherName
	}
	if err := s.mailer.Dispatch(RipeAssignedMail{
		To:              *sub.ResearcherEmail,
		ResearcherName:  name,
		SubmissionTitle: sub.Title,
		ReferenceNumber: ref.String(),
		Link:            n.Link,
	}); err != nil {
		s.logger.Warn("failed to queue notification e-mail", zap.Int64("submission_id", sub.ID), zap.Error(err))
	}
}
