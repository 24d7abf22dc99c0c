package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ripe-api/internal/dto"
	"github.com/noah-isme/ripe-api/internal/models"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
)

type notificationServiceMock struct {
	items     []models.Notification
	page      *models.Pagination
	listErr   error
	markErr   error
	lastQuery dto.NotificationListQuery
	markedID  int64
}

func (m *notificationServiceMock) List(ctx context.Context, actor *models.Actor, query dto.NotificationListQuery) ([]models.Notification, *models.Pagination, error) {
	m.lastQuery = query
	return m.items, m.page, m.listErr
}

func (m *notificationServiceMock) MarkRead(ctx context.Context, actor *models.Actor, id int64) error {
	m.markedID = id
	return m.markErr
}

func TestNotificationHandlerList(t *testing.T) {
	svc := &notificationServiceMock{
		items: []models.Notification{{ID: 1, UserID: 9, Type: models.NotificationTypeRipeAssigned}},
		page:  &models.Pagination{Page: 2, PageSize: 10, TotalCount: 11},
	}
	handler := NewNotificationHandler(svc)

	c, w := newTestContext(http.MethodGet, "/notifications?page=2&page_size=10&unread_only=true", "")
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.NotificationListQuery{Page: 2, PageSize: 10, UnreadOnly: true}, svc.lastQuery)
	assert.Contains(t, w.Body.String(), `"total_count":11`)
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	svc := &notificationServiceMock{}
	handler := NewNotificationHandler(svc)

	c, w := newTestContext(http.MethodPatch, "/notifications/5/read", "")
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	handler.MarkRead(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(5), svc.markedID)

	c, w = newTestContext(http.MethodPatch, "/notifications/x/read", "")
	c.Params = gin.Params{{Key: "id", Value: "x"}}
	handler.MarkRead(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.markErr = appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	c, w = newTestContext(http.MethodPatch, "/notifications/6/read", "")
	c.Params = gin.Params{{Key: "id", Value: "6"}}
	handler.MarkRead(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
