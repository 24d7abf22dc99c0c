package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ripe-api/internal/dto"
	"github.com/noah-isme/ripe-api/internal/models"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
	"github.com/noah-isme/ripe-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, actor *models.Actor, query dto.NotificationListQuery) ([]models.Notification, *models.Pagination, error)
	MarkRead(ctx context.Context, actor *models.Actor, id int64) error
}

// NotificationHandler exposes the caller's notification inbox.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler builds a new handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary List own notifications
// @Tags Notifications
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Param unread_only query bool false "Only unread notifications"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	var query dto.NotificationListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification query"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), actorFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Param id path int true "Notification ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid notification id"))
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), actorFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
