package redisclient

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/config"
)

func TestNewRedisClient_DisabledWithoutAddr(t *testing.T) {
	rdb, err := NewRedisClient(context.Background(), config.Config{})
	require.NoError(t, err)
	assert.Nil(t, rdb)
}

func TestNewRedisClient_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedisClient(context.Background(), config.Config{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	require.NotNil(t, rdb)
	defer rdb.Close()

	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedisClient_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), config.Config{RedisAddr: addr})
	assert.Error(t, err)
}
