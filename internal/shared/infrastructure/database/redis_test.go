package database

import (
	"context"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis_InvalidConfig(t *testing.T) {
	cfg := RedisConfig{
		Host: "invalid-redis-host-xyz",
		Port: "6379",
	}

	client, err := NewRedis(cfg)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid-redis-host-xyz:6379")
	assert.Nil(t, client)
}

func TestNewRedis_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	client, err := NewRedis(RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "redis.example.com:6380", RedisConfig{Host: "redis.example.com", Port: "6380"}.Addr())
	assert.Equal(t, "[::1]:6379", RedisConfig{Host: "::1", Port: "6379"}.Addr())
}
