package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ripe-api/internal/dto"
	"github.com/noah-isme/ripe-api/internal/models"
	"github.com/noah-isme/ripe-api/pkg/cache"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
)

type submissionReader interface {
	FindUncoded(ctx context.Context, id int64) (*models.Submission, error)
}

type studyNumberPeeker interface {
	Peek(ctx context.Context, key models.SequenceKey) (int, error)
}

type optionCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
}

type previewMetrics interface {
	ObservePreview(outcome string)
}

// PreviewServiceConfig tunes option caching.
type PreviewServiceConfig struct {
	OptionsTTL time.Duration
}

// PreviewService shows the RIPE code the next allocation would produce. It never locks or writes,
// so a concurrent allocation may consume the previewed number first.
type PreviewService struct {
	submissions submissionReader
	sequences   studyNumberPeeker
	orgs        organizationReader
	resolver    codeResolver
	cache       optionCache
	metrics     previewMetrics
	validator   *validator.Validate
	logger      *zap.Logger
	optionsTTL  time.Duration
}

// NewPreviewService wires preview dependencies. cache and metrics may be nil.
func NewPreviewService(
	submissions submissionReader,
	sequences studyNumberPeeker,
	orgs organizationReader,
	cache optionCache,
	metrics previewMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg PreviewServiceConfig,
) *PreviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreviewService{
		submissions: submissions,
		sequences:   sequences,
		orgs:        orgs,
		resolver:    codeResolver{orgs: orgs},
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		optionsTTL:  cfg.OptionsTTL,
	}
}

// Preview computes the next reference number for the selection. On failure it returns a
// defaulted response with Success=false alongside the error.
func (s *PreviewService) Preview(ctx context.Context, req dto.PreviewRequest, actor *models.Actor) (*dto.PreviewResponse, error) {
	resp, err := s.preview(ctx, req, actor)
	outcome := "success"
	if err != nil {
		appErr := appErrors.FromError(err)
		outcome = appErr.Code
		if appErr.Status >= 500 {
			s.logger.Error("preview failed", zap.Int64("submission_id", req.SubmissionID), zap.Error(err))
		}
		resp = dto.NewFailedPreview(appErr.Message)
	}
	if s.metrics != nil {
		s.metrics.ObservePreview(outcome)
	}
	return resp, err
}

func (s *PreviewService) preview(ctx context.Context, req dto.PreviewRequest, actor *models.Actor) (*dto.PreviewResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleFacilitator {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only facilitators can preview RIPE codes")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preview request")
	}

	sub, err := s.submissions.FindUncoded(ctx, req.SubmissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSubmissionUnavailable
		}
		return nil, persistenceError(err, "failed to load submission")
	}
	if err := checkEligibility(s.logger, sub, actor); err != nil {
		return nil, err
	}

	resp := &dto.PreviewResponse{Success: true}
	if resp.Colleges, err = s.options(ctx, models.OrgLevelCollege, 0); err != nil {
		return nil, err
	}
	if resp.Programs, err = s.options(ctx, models.OrgLevelProgram, req.CollegeID); err != nil {
		return nil, err
	}
	if resp.Projects, err = s.options(ctx, models.OrgLevelProject, req.ProgramID); err != nil {
		return nil, err
	}

	sel, err := s.resolver.resolve(ctx, nil, req.CollegeID, req.ProgramID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	key, err := sequenceKeyFor(sub, sel)
	if err != nil {
		return nil, err
	}
	current, err := s.sequences.Peek(ctx, key)
	if err != nil {
		return nil, err
	}

	next := current + 1
	resp.NextStudyNumber = models.FormatStudyNumber(next)
	resp.PreviewReferenceNumber = models.NewReferenceNumber(key, next).String()
	resp.Message = "Preview generated"
	return resp, nil
}

// options lists active rows of a level. Programs and projects need a selected parent; without one
// the list is empty. Lists are cached; study numbers never are.
func (s *PreviewService) options(ctx context.Context, level models.OrgLevel, parentID int64) ([]dto.OrgOption, error) {
	var parent *int64
	if level != models.OrgLevelCollege {
		if parentID <= 0 {
			return []dto.OrgOption{}, nil
		}
		parent = &parentID
	}

	cacheKey := cache.Key("options", string(level), strconv.FormatInt(parentID, 10))
	var cached []dto.OrgOption
	if s.cache != nil && s.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	units, err := s.orgs.ListActive(ctx, level, parent)
	if err != nil {
		return nil, persistenceError(err, "failed to load options")
	}
	options := dto.OptionsFromUnits(units)
	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, options, s.optionsTTL)
	}
	return options, nil
}
