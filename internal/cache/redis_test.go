package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCacheWithClient(client)
}

func TestSetAndGet(t *testing.T) {
	c := setupTestRedis(t)

	type boardPayload struct {
		Area  string   `json:"area"`
		Tasks []string `json:"tasks"`
	}
	in := boardPayload{Area: "engineering", Tasks: []string{"a", "b"}}
	require.NoError(t, c.Set("board:engineering", in, time.Minute))

	var out boardPayload
	require.NoError(t, c.Get("board:engineering", &out))
	assert.Equal(t, in, out)
}

func TestGetMiss(t *testing.T) {
	c := setupTestRedis(t)

	var out string
	err := c.Get("missing", &out)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	c := setupTestRedis(t)

	require.NoError(t, c.Set("unread:u1", 5, time.Minute))
	require.NoError(t, c.Delete("unread:u1"))

	var out int64
	assert.ErrorIs(t, c.Get("unread:u1", &out), ErrCacheMiss)
}

func TestDeletePattern(t *testing.T) {
	c := setupTestRedis(t)

	require.NoError(t, c.Set("board:engineering", 1, time.Minute))
	require.NoError(t, c.Set("board:design", 2, time.Minute))
	require.NoError(t, c.Set("unread:u1", 3, time.Minute))

	require.NoError(t, c.DeletePattern("board:*"))

	var out int64
	assert.ErrorIs(t, c.Get("board:engineering", &out), ErrCacheMiss)
	assert.ErrorIs(t, c.Get("board:design", &out), ErrCacheMiss)
	assert.NoError(t, c.Get("unread:u1", &out))
}

func TestPing(t *testing.T) {
	c := setupTestRedis(t)
	assert.NoError(t, c.Ping())
}
