package database

import (
	"errors"

	"github.com/lib/pq"
)

// SQLSTATE codes that indicate the transaction lost a race and may be resubmitted.
var retryableCodes = map[pq.ErrorCode]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
	"57014": {}, // query_canceled (statement/lock timeout)
}

// IsRetryable reports whether err is a PostgreSQL concurrency failure.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	_, ok := retryableCodes[pqErr.Code]
	return ok
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
