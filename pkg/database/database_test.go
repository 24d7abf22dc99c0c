package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/ripe-api/pkg/config"
)

func TestDSNIncludesLockTimeout(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host: "db", Port: 5432, User: "ripe", Password: "secret", Name: "ripe_portal", SSLMode: "disable",
		LockTimeout: 3 * time.Second,
	})
	assert.Equal(t, "host=db port=5432 user=ripe password=secret dbname=ripe_portal sslmode=disable lock_timeout=3000", dsn)
}

func TestDSNWithoutLockTimeout(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "ripe", Name: "ripe_portal", SSLMode: "disable"})
	assert.NotContains(t, dsn, "lock_timeout")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40P01"}))
	assert.True(t, IsRetryable(fmt.Errorf("next sequence: %w", &pq.Error{Code: "55P03"})))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, IsRetryable(fmt.Errorf("plain")))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("mark accepted: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "40001"}))
}
