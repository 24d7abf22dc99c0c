package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ripe-api/internal/dto"
	"github.com/noah-isme/ripe-api/internal/models"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type submissionStoreStub struct {
	mu       sync.Mutex
	items    map[int64]*models.Submission
	lockErr  error
	markErr  error
	accepted []models.AcceptSubmissionParams
}

func (s *submissionStoreStub) find(id int64) (*models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.items[id]
	if !ok || sub.RipeCode != nil {
		return nil, sql.ErrNoRows
	}
	clone := *sub
	return &clone, nil
}

func (s *submissionStoreStub) LockForAllocation(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Submission, error) {
	if s.lockErr != nil {
		return nil, s.lockErr
	}
	return s.find(id)
}

func (s *submissionStoreStub) FindUncoded(ctx context.Context, id int64) (*models.Submission, error) {
	return s.find(id)
}

func (s *submissionStoreStub) MarkAccepted(ctx context.Context, exec sqlx.ExtContext, params models.AcceptSubmissionParams) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.items[params.SubmissionID]
	code := params.RipeCode
	sub.RipeCode = &code
	sub.Status = models.SubmissionStatusAcceptedByFacilitator
	s.accepted = append(s.accepted, params)
	return nil
}

type orgStub struct {
	units     map[models.OrgLevel]map[int64]models.OrgUnit
	findErr   error
	listErr   error
	listCalls int
}

func newOrgStub() *orgStub {
	college := int64(3)
	program := int64(5)
	return &orgStub{units: map[models.OrgLevel]map[int64]models.OrgUnit{
		models.OrgLevelCollege: {
			3: {ID: 3, Code: "CA", Name: "College of Agriculture", Active: true},
			4: {ID: 4, Code: "CE", Name: "College of Engineering", Active: true},
		},
		models.OrgLevelProgram: {
			5: {ID: 5, ParentID: &college, Code: "01", Name: "Agronomy", Active: true},
		},
		models.OrgLevelProject: {
			8: {ID: 8, ParentID: &program, Code: "02", Name: "Rice Yield", Active: true},
		},
	}}
}

func (o *orgStub) FindActive(ctx context.Context, exec sqlx.ExtContext, level models.OrgLevel, id int64) (*models.OrgUnit, error) {
	if o.findErr != nil {
		return nil, o.findErr
	}
	unit, ok := o.units[level][id]
	if !ok || !unit.Active {
		return nil, sql.ErrNoRows
	}
	return &unit, nil
}

func (o *orgStub) ListActive(ctx context.Context, level models.OrgLevel, parentID *int64) ([]models.OrgUnit, error) {
	o.listCalls++
	if o.listErr != nil {
		return nil, o.listErr
	}
	result := []models.OrgUnit{}
	for _, unit := range o.units[level] {
		if parentID != nil && (unit.ParentID == nil || *unit.ParentID != *parentID) {
			continue
		}
		result = append(result, unit)
	}
	return result, nil
}

type statusLogStub struct {
	entries []*models.StatusLog
	err     error
}

func (s *statusLogStub) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.StatusLog) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

type notificationStub struct {
	items []*models.Notification
	err   error
}

func (n *notificationStub) Create(ctx context.Context, exec sqlx.ExtContext, item *models.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.items = append(n.items, item)
	return nil
}

type allocationMetricsStub struct {
	outcomes []string
}

func (m *allocationMetricsStub) ObserveAllocation(submissionType, outcome string, duration time.Duration) {
	m.outcomes = append(m.outcomes, submissionType+":"+outcome)
}

type mailerStub struct {
	mails []RipeAssignedMail
	err   error
}

func (m *mailerStub) Dispatch(mail RipeAssignedMail) error {
	m.mails = append(m.mails, mail)
	return m.err
}

type ripeFixture struct {
	service       *RipeService
	mock          sqlmock.Sqlmock
	submissions   *submissionStoreStub
	sequences     *memorySequenceStore
	orgs          *orgStub
	logs          *statusLogStub
	notifications *notificationStub
	metrics       *allocationMetricsStub
	mailer        *mailerStub
}

func strRef(v string) *string { return &v }

func newSubmission(id int64) *models.Submission {
	return &models.Submission{
		ID:              id,
		Title:           "Soil study",
		Type:            models.SubmissionTypeResearch,
		SubmittedAt:     time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC),
		UnitID:          1,
		UnitCode:        strRef("1"),
		DepartmentID:    4,
		Status:          models.SubmissionStatusSubmitted,
		ResearcherID:    77,
		ResearcherName:  strRef("Ana Cruz"),
		ResearcherEmail: strRef("ana@example.edu"),
	}
}

func facilitator() *models.Actor {
	return &models.Actor{UserID: 9, Role: models.RoleFacilitator, DepartmentID: 4, UnitID: 1}
}

func newRipeFixture(t *testing.T) *ripeFixture {
	tx, mock := newTxProviderMock(t)
	f := &ripeFixture{
		mock:          mock,
		submissions:   &submissionStoreStub{items: map[int64]*models.Submission{42: newSubmission(42), 43: newSubmission(43)}},
		sequences:     newMemorySequenceStore(),
		orgs:          newOrgStub(),
		logs:          &statusLogStub{},
		notifications: &notificationStub{},
		metrics:       &allocationMetricsStub{},
		mailer:        &mailerStub{},
	}
	f.service = NewRipeService(tx, f.submissions, NewSequenceAllocator(f.sequences, nil), f.orgs, f.logs, f.notifications,
		f.metrics, f.mailer, nil, nil, RipeServiceConfig{})
	return f
}

func TestRipeServiceAllocateAssignsSequentialCodes(t *testing.T) {
	f := newRipeFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	first, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	require.NoError(t, err)
	second, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 43}, facilitator())
	require.NoError(t, err)

	assert.True(t, first.Success)
	assert.Equal(t, "R-2025-1-00-00-00-01", *first.ReferenceNumber)
	assert.Equal(t, "R-2025-1-00-00-00-02", *second.ReferenceNumber)
	assert.NoError(t, f.mock.ExpectationsWereMet())

	require.Len(t, f.submissions.accepted, 2)
	assert.Nil(t, f.submissions.accepted[0].ProgramID)
	assert.Equal(t, int64(9), f.submissions.accepted[0].CodedBy)
	assert.Equal(t, models.SubmissionStatusAcceptedByFacilitator, f.submissions.items[42].Status)

	require.Len(t, f.logs.entries, 2)
	assert.Equal(t, models.SubmissionStatusSubmitted, f.logs.entries[0].OldStatus)
	assert.Equal(t, models.SubmissionStatusAcceptedByFacilitator, f.logs.entries[0].NewStatus)

	require.Len(t, f.notifications.items, 2)
	n := f.notifications.items[0]
	assert.Equal(t, int64(77), n.UserID)
	assert.False(t, n.IsRead)
	assert.Contains(t, n.Message, "R-2025-1-00-00-00-01")
	assert.Equal(t, "/researcher/submissions/42", n.Link)

	require.Len(t, f.mailer.mails, 2)
	assert.Equal(t, "ana@example.edu", f.mailer.mails[0].To)
	assert.Equal(t, []string{"research:success", "research:success"}, f.metrics.outcomes)
}

func TestRipeServiceAllocateWithFullSelection(t *testing.T) {
	f := newRipeFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42, CollegeID: 3, ProgramID: 5, ProjectID: 8}, facilitator())
	require.NoError(t, err)
	assert.Equal(t, "R-2025-1-CA-01-02-01", *resp.ReferenceNumber)
	require.Len(t, f.submissions.accepted, 1)
	assert.Equal(t, int64(5), *f.submissions.accepted[0].ProgramID)
	assert.Equal(t, int64(8), *f.submissions.accepted[0].ProjectID)
}

func TestRipeServiceAllocateDefaultsMissingUnitCode(t *testing.T) {
	f := newRipeFixture(t)
	f.submissions.items[42].UnitCode = nil
	f.submissions.items[42].Type = models.SubmissionTypeExtension
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	require.NoError(t, err)
	assert.Equal(t, "E-2025-0-00-00-00-01", *resp.ReferenceNumber)
}

func TestRipeServiceAllocateTwiceIsRejected(t *testing.T) {
	f := newRipeFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	require.NoError(t, err)
	_, err = f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSubmissionUnavailable.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, f.sequences.total())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRipeServiceAllocateAlreadyAccepted(t *testing.T) {
	f := newRipeFixture(t)
	f.submissions.items[42].Status = models.SubmissionStatusAcceptedByFacilitator
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSubmissionUnavailable.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, f.sequences.total())
	assert.Empty(t, f.notifications.items)
	assert.Equal(t, []string{"research:SUBMISSION_UNAVAILABLE"}, f.metrics.outcomes)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRipeServiceAllocateScopeMismatch(t *testing.T) {
	f := newRipeFixture(t)
	f.submissions.items[42].DepartmentID = 5
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrScopeMismatch.Code, appErr.Code)
	assert.Equal(t, 403, appErr.Status)
	assert.Equal(t, 0, f.sequences.total())
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRipeServiceAllocateRequiresFacilitator(t *testing.T) {
	f := newRipeFixture(t)

	_, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, nil)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	researcher := facilitator()
	researcher.Role = models.RoleResearcher
	_, err = f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, researcher)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 0}, facilitator())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRipeServiceAllocateInvalidType(t *testing.T) {
	f := newRipeFixture(t)
	f.submissions.items[42].Type = models.SubmissionType("thesis")
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	assert.Equal(t, appErrors.ErrInvalidSubmissionType.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, f.sequences.total())
}

func TestRipeServiceAllocateRejectsUnknownOrMismatchedSelection(t *testing.T) {
	cases := []struct {
		name string
		req  dto.AllocateRequest
		msg  string
	}{
		{name: "unknown college", req: dto.AllocateRequest{SubmissionID: 42, CollegeID: 99}, msg: "college 99 not found"},
		{name: "program of other college", req: dto.AllocateRequest{SubmissionID: 42, CollegeID: 4, ProgramID: 5}, msg: "program does not belong to the selected college"},
		{name: "project without matching program", req: dto.AllocateRequest{SubmissionID: 42, ProgramID: 6, ProjectID: 8}, msg: "program 6 not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRipeFixture(t)
			f.mock.ExpectBegin()
			f.mock.ExpectRollback()

			_, err := f.service.Allocate(context.Background(), tc.req, facilitator())
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			assert.Equal(t, tc.msg, appErr.Message)
			assert.Equal(t, 0, f.sequences.total())
		})
	}
}

func TestRipeServiceAllocateRollsBackWhenNotificationFails(t *testing.T) {
	f := newRipeFixture(t)
	f.notifications.err = errors.New("insert failed")
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.mailer.mails)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRipeServiceAllocateMapsLockTimeout(t *testing.T) {
	f := newRipeFixture(t)
	f.submissions.lockErr = &pq.Error{Code: "57014", Message: "canceling statement due to lock timeout"}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTransactionConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 409, appErrors.FromError(err).Status)
}

func TestRipeServiceAllocateConcurrentUpdateIsUnavailable(t *testing.T) {
	f := newRipeFixture(t)
	f.submissions.markErr = sql.ErrNoRows
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	assert.Equal(t, appErrors.ErrSubmissionUnavailable.Code, appErrors.FromError(err).Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRipeServiceAllocateDuplicateCodeRollsBack(t *testing.T) {
	f := newRipeFixture(t)
	f.submissions.markErr = &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.notifications.items)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRipeServiceAllocateIgnoresMailFailures(t *testing.T) {
	f := newRipeFixture(t)
	f.mailer.err = errors.New("queue full")
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestRipeServiceAllocateSkipsMailWithoutAddress(t *testing.T) {
	f := newRipeFixture(t)
	f.submissions.items[42].ResearcherEmail = nil
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	require.NoError(t, err)
	assert.Empty(t, f.mailer.mails)
}

func TestRipeServiceAllocateCommitFailure(t *testing.T) {
	f := newRipeFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})

	_, err := f.service.Allocate(context.Background(), dto.AllocateRequest{SubmissionID: 42}, facilitator())
	require.Error(t, err)
	assert.True(t, appErrors.Retryable(err))
	assert.Empty(t, f.mailer.mails)
}
