package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ripe-api/internal/dto"
	"github.com/noah-isme/ripe-api/internal/models"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
	"github.com/noah-isme/ripe-api/pkg/export"
	"github.com/noah-isme/ripe-api/pkg/storage"
)

var registerColumns = []string{"RIPE Code", "Title", "Type", "Researcher", "Coded At"}

type registerReader interface {
	ListRegister(ctx context.Context, filter models.RegisterFilter) ([]models.RegisterEntry, error)
}

type fileStore interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type urlSigner interface {
	Generate(id, relPath string) (string, time.Time, error)
	Parse(token string) (storage.SignedFile, error)
}

type exportMetrics interface {
	ObserveExport(format string)
}

// RegisterServiceConfig configures register exports.
type RegisterServiceConfig struct {
	// DownloadPath is the route serving signed downloads, e.g. "/api/v1/ripe/register/download".
	DownloadPath string
	Retention    time.Duration
}

// RegisterDownload is an opened export ready to be streamed.
type RegisterDownload struct {
	File        *os.File
	Size        int64
	Filename    string
	ContentType string
}

// RegisterService exports the RIPE register as CSV or PDF.
type RegisterService struct {
	repo      registerReader
	store     fileStore
	signer    urlSigner
	metrics   exportMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cfg       RegisterServiceConfig
	now       func() time.Time
}

// NewRegisterService constructs the service.
func NewRegisterService(repo registerReader, store fileStore, signer urlSigner, metrics exportMetrics, validate *validator.Validate, logger *zap.Logger, cfg RegisterServiceConfig) *RegisterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	return &RegisterService{repo: repo, store: store, signer: signer, metrics: metrics, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// Export renders the register visible to the actor and returns a signed download link.
// Facilitators see their own department and unit; administrators see everything.
func (s *RegisterService) Export(ctx context.Context, actor *models.Actor, req dto.RegisterExportRequest) (*dto.RegisterExportResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export format")
	}

	filter := models.RegisterFilter{Year: req.Year, Type: models.SubmissionType(req.Type)}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleFacilitator:
		if actor.DepartmentID <= 0 || actor.UnitID <= 0 {
			return nil, appErrors.Clone(appErrors.ErrScopeMismatch, "session has no department or unit scope")
		}
		filter.DepartmentID = actor.DepartmentID
		filter.UnitID = actor.UnitID
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "register export requires facilitator or admin role")
	}

	entries, err := s.repo.ListRegister(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load register")
	}

	table := export.Table{Title: registerTitle(req), Columns: registerColumns, Rows: make([][]string, 0, len(entries))}
	for _, e := range entries {
		table.Rows = append(table.Rows, []string{e.RipeCode, e.Title, string(e.Type), e.ResearcherName, e.CodedAt.UTC().Format("2006-01-02")})
	}
	content, err := export.RendererFor(format).Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render register")
	}

	id := uuid.NewString()
	name := path.Join("register", s.now().UTC().Format("20060102"), id+format.Extension())
	if _, err := s.store.Save(name, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store register export")
	}
	token, expiresAt, err := s.signer.Generate(id, name)
	if err != nil {
		if delErr := s.store.Delete(name); delErr != nil {
			s.logger.Warn("failed to remove unsigned export", zap.String("name", name), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	if s.metrics != nil {
		s.metrics.ObserveExport(string(format))
	}
	s.logger.Info("ripe register exported",
		zap.String("audit", "register_export"),
		zap.String("export_id", id),
		zap.Int64("actor_id", actor.UserID),
		zap.Int("rows", len(entries)),
		zap.String("format", string(format)),
	)

	return &dto.RegisterExportResponse{
		ID:          id,
		Format:      string(format),
		Rows:        len(entries),
		DownloadURL: s.cfg.DownloadPath + "?token=" + url.QueryEscape(token),
		ExpiresAt:   expiresAt,
	}, nil
}

// Open validates a download token and opens the referenced export.
func (s *RegisterService) Open(token string) (*RegisterDownload, error) {
	signed, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	file, err := s.store.Open(signed.Path)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export no longer available")
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export")
	}
	format, err := export.ParseFormat(extensionOf(signed.Path))
	if err != nil {
		_ = file.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "unknown export format")
	}
	return &RegisterDownload{
		File:        file,
		Size:        info.Size(),
		Filename:    "ripe-register" + format.Extension(),
		ContentType: format.ContentType(),
	}, nil
}

// Cleanup removes exports older than the configured retention.
func (s *RegisterService) Cleanup() (int, error) {
	deleted, err := s.store.CleanupOlderThan(s.cfg.Retention)
	if err != nil {
		return 0, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired register exports removed", zap.Int("count", len(deleted)))
	}
	return len(deleted), nil
}

func registerTitle(req dto.RegisterExportRequest) string {
	title := "RIPE Register"
	if req.Type != "" {
		title += fmt.Sprintf(" - %s", req.Type)
	}
	if req.Year > 0 {
		title += " " + strconv.Itoa(req.Year)
	}
	return title
}

func extensionOf(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}
	return ext[1:]
}
