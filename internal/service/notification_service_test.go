package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ripe-api/internal/dto"
	"github.com/noah-isme/ripe-api/internal/models"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
	"github.com/noah-isme/ripe-api/pkg/jobs"
	"github.com/noah-isme/ripe-api/pkg/mailer"
)

type inboxStub struct {
	filters []models.NotificationFilter
	items   []models.Notification
	total   int
	listErr error
	markErr error
	marked  [][2]int64
}

func (s *inboxStub) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	s.filters = append(s.filters, filter)
	return s.items, s.total, s.listErr
}

func (s *inboxStub) MarkRead(ctx context.Context, id, userID int64) error {
	s.marked = append(s.marked, [2]int64{id, userID})
	return s.markErr
}

func TestNotificationServiceListScopesToActor(t *testing.T) {
	repo := &inboxStub{items: []models.Notification{{ID: 1, UserID: 77}}, total: 1}
	svc := NewNotificationService(repo, nil, nil)
	actor := &models.Actor{UserID: 77, Role: models.RoleResearcher}

	items, page, err := svc.List(context.Background(), actor, dto.NotificationListQuery{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, page)
	assert.Equal(t, models.NotificationFilter{UserID: 77, UnreadOnly: true, Page: 1, PageSize: 20}, repo.filters[0])

	_, _, err = svc.List(context.Background(), actor, dto.NotificationListQuery{PageSize: 500})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, _, err = svc.List(context.Background(), nil, dto.NotificationListQuery{})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	repo.listErr = errors.New("db down")
	_, _, err = svc.List(context.Background(), actor, dto.NotificationListQuery{})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestNotificationServiceMarkRead(t *testing.T) {
	repo := &inboxStub{}
	svc := NewNotificationService(repo, nil, nil)
	actor := &models.Actor{UserID: 77, Role: models.RoleResearcher}

	require.NoError(t, svc.MarkRead(context.Background(), actor, 11))
	assert.Equal(t, [2]int64{11, 77}, repo.marked[0])

	repo.markErr = sql.ErrNoRows
	err := svc.MarkRead(context.Background(), actor, 12)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	err = svc.MarkRead(context.Background(), actor, 0)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

type senderStub struct {
	mu       sync.Mutex
	messages []mailer.Message
	failures int
	sent     chan struct{}
}

func (s *senderStub) Send(ctx context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp unavailable")
	}
	s.messages = append(s.messages, msg)
	if s.sent != nil {
		s.sent <- struct{}{}
	}
	return nil
}

type mailMetricsStub struct {
	mu      sync.Mutex
	results []bool
}

func (m *mailMetricsStub) ObserveMailDelivery(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, ok)
}

func TestNotificationDispatcherDeliversWithRetry(t *testing.T) {
	sender := &senderStub{failures: 1, sent: make(chan struct{}, 1)}
	metrics := &mailMetricsStub{}
	dispatcher := NewNotificationDispatcher(sender, metrics, nil, jobs.QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 5 * time.Millisecond})
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	require.NoError(t, dispatcher.Dispatch(RipeAssignedMail{
		To:              "ana@example.edu",
		ResearcherName:  "Ana <Cruz>",
		SubmissionTitle: "Soil study",
		ReferenceNumber: "R-2025-1-00-00-00-01",
		Link:            "/researcher/submissions/42",
	}))

	select {
	case <-sender.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("mail was not delivered")
	}

	sender.mu.Lock()
	msg := sender.messages[0]
	sender.mu.Unlock()
	assert.Equal(t, []string{"ana@example.edu"}, msg.To)
	assert.Equal(t, "RIPE code R-2025-1-00-00-00-01 assigned", msg.Subject)
	assert.Contains(t, msg.HTML, "Ana &lt;Cruz&gt;")
	assert.Contains(t, msg.HTML, "R-2025-1-00-00-00-01")

	assert.Eventually(t, func() bool {
		metrics.mu.Lock()
		defer metrics.mu.Unlock()
		return len(metrics.results) == 2
	}, 2*time.Second, 5*time.Millisecond)
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Equal(t, []bool{false, true}, metrics.results)
}

func TestNotificationDispatcherRejectsMissingRecipient(t *testing.T) {
	dispatcher := NewNotificationDispatcher(&senderStub{}, nil, nil, jobs.QueueConfig{})
	assert.Error(t, dispatcher.Dispatch(RipeAssignedMail{}))
}

func TestNotificationDispatcherDropsUnknownJobs(t *testing.T) {
	dispatcher := NewNotificationDispatcher(&senderStub{}, nil, nil, jobs.QueueConfig{})
	assert.NoError(t, dispatcher.Handle(context.Background(), jobs.Job{ID: "x", Type: "other", Payload: 1}))
}
