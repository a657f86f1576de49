package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/backstage/services/procurement/config"
)

func TestNewRedisCacheDisabledByConfig(t *testing.T) {
	c, err := NewRedisCache(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, c)

	var out string
	require.Error(t, c.Get(context.Background(), "k", &out))
	require.Error(t, c.Set(context.Background(), "k", "v", time.Minute))
	require.NoError(t, c.Delete(context.Background(), "k"))
	require.NoError(t, c.Close())
}

// A failed connection still yields a usable disabled cache; the
// commands log the error and continue without caching.
func TestNewRedisCacheConnectFailureReturnsDisabledCache(t *testing.T) {
	c, err := NewRedisCache(config.RedisConfig{
		Enabled: true,
		Host:    "127.0.0.1",
		Port:    1,
	})
	require.Error(t, err)
	require.NotNil(t, c)

	var out string
	require.Error(t, c.Get(context.Background(), "k", &out))
	require.NoError(t, c.Delete(context.Background(), "k"))
	require.NoError(t, c.Close())
}
