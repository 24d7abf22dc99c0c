package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ripe-api/internal/dto"
	"github.com/noah-isme/ripe-api/internal/models"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
)

const (
	defaultNotificationPageSize = 20
)

type notificationInbox interface {
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID int64) error
}

// NotificationService exposes a user's own notifications.
type NotificationService struct {
	repo      notificationInbox
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationInbox, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, validator: validate, logger: logger}
}

// List returns one page of the actor's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor *models.Actor, query dto.NotificationListQuery) ([]models.Notification, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification query")
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = defaultNotificationPageSize
	}

	items, total, err := s.repo.List(ctx, models.NotificationFilter{
		UserID:     actor.UserID,
		UnreadOnly: query.UnreadOnly,
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return items, &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total}, nil
}

// MarkRead flags one of the actor's notifications as read. Notifications of other users are
// reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.Actor, id int64) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if id <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "invalid notification id")
	}
	if err := s.repo.MarkRead(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	return nil
}
