package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ fiber.Storage = (*RedisStorage)(nil)

func TestNewRedisStorage_InvalidURL(t *testing.T) {
	_, err := NewRedisStorage(context.Background(), "not a url")
	require.Error(t, err)
}

func TestRedisStorage_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	s, err := NewRedisStorage(context.Background(), url)
	require.NoError(t, err)
	defer s.Close()

	key := "pokeguide:test:" + time.Now().Format(time.RFC3339Nano)

	got, err := s.Get(key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set(key, []byte("7"), time.Minute))
	got, err = s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), got)

	require.NoError(t, s.Delete(key))
	got, err = s.Get(key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStorage_KeysArePrefixed(t *testing.T) {
	s := &RedisStorage{prefix: RedisKeyPrefix}
	assert.Equal(t, "pokeguide:ratelimit:login:10.0.0.1", s.key("login:10.0.0.1"))
}

func TestRedisStorage_ResetKeepsForeignKeys(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	s, err := NewRedisStorage(context.Background(), url)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	foreign := "pokeguide:test:foreign:" + time.Now().Format(time.RFC3339Nano)
	require.NoError(t, s.client.Set(ctx, foreign, "keep", time.Minute).Err())
	t.Cleanup(func() { s.client.Del(context.Background(), foreign) })

	require.NoError(t, s.Set("login:10.0.0.1", []byte("3"), time.Minute))
	require.NoError(t, s.Reset())

	got, err := s.Get("login:10.0.0.1")
	require.NoError(t, err)
	assert.Nil(t, got)

	val, err := s.client.Get(ctx, foreign).Result()
	require.NoError(t, err)
	assert.Equal(t, "keep", val)
}
