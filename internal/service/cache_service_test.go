package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/ripe-api/pkg/errors"
)

type memoryCacheRepo struct {
	items  map[string][]byte
	getErr error
	setErr error
	ttls   map[string]time.Duration
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.items = map[string][]byte{}
	return nil
}

type cacheMetricsStub struct {
	hits, misses, writes int
}

func (c *cacheMetricsStub) RecordCacheOperation(hit bool, duration time.Duration) {
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

func (c *cacheMetricsStub) ObserveCacheWrite(duration time.Duration) { c.writes++ }

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := &cacheMetricsStub{}
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)

	var out []string
	assert.False(t, svc.Get(context.Background(), "k", &out))
	svc.Set(context.Background(), "k", []string{"a"}, 0)
	assert.True(t, svc.Get(context.Background(), "k", &out))
	assert.Equal(t, []string{"a"}, out)
	assert.Equal(t, time.Minute, repo.ttls["k"])
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 1, metrics.writes)
}

func TestCacheServiceErrorsDegradeToMiss(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("redis down")
	repo.setErr = errors.New("redis down")
	svc := NewCacheService(repo, nil, 0, nil, true)

	var out []string
	assert.False(t, svc.Get(context.Background(), "k", &out))
	svc.Set(context.Background(), "k", []string{"a"}, time.Second)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)
	svc.Set(context.Background(), "k", "v", 0)
	assert.Empty(t, repo.items)
	assert.NoError(t, svc.Invalidate(context.Background(), "*"))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}
