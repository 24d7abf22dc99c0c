package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/ripe-api/internal/models"
	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
)

// Study numbers above this render with three or more digits.
const maxTwoDigitStudyNumber = 99

type sequenceStore interface {
	Increment(ctx context.Context, exec sqlx.ExtContext, key models.SequenceKey, at time.Time) (int, error)
	Current(ctx context.Context, key models.SequenceKey) (int, error)
}

// SequenceAllocator hands out study numbers per sequence key.
type SequenceAllocator struct {
	store  sequenceStore
	logger *zap.Logger
	now    func() time.Time
}

// NewSequenceAllocator constructs the allocator.
func NewSequenceAllocator(store sequenceStore, logger *zap.Logger) *SequenceAllocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SequenceAllocator{store: store, logger: logger, now: time.Now}
}

// Next increments the counter for key inside exec's transaction and returns the new value.
// The first call for a key returns 1. If the transaction rolls back the increment is undone.
func (a *SequenceAllocator) Next(ctx context.Context, exec sqlx.ExtContext, key models.SequenceKey) (int, error) {
	if err := key.Validate(); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sequence key")
	}
	next, err := a.store.Increment(ctx, exec, key, a.now().UTC())
	if err != nil {
		return 0, persistenceError(err, "failed to allocate study number")
	}
	if next > maxTwoDigitStudyNumber {
		a.logger.Warn("study number exceeds two digits", zap.String("sequence", key.String()), zap.Int("study_number", next))
	}
	return next, nil
}

// Peek returns the last issued value for key without changing it. Unused keys return 0.
func (a *SequenceAllocator) Peek(ctx context.Context, key models.SequenceKey) (int, error) {
	if err := key.Validate(); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sequence key")
	}
	current, err := a.store.Current(ctx, key)
	if err != nil {
		return 0, persistenceError(err, "failed to read study number")
	}
	return current, nil
}
