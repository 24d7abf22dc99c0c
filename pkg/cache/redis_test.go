package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ripe-api/pkg/config"
)

func TestNewRedisDisabled(t *testing.T) {
	client, err := NewRedis(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "ripe:options:programs:7", Key("options", "programs", "7"))
	assert.Equal(t, "ripe", Key())
}
