package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedis(context.Background(), RedisConfig{Addr: mr.Addr(), KeyPrefix: "debt:", TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s, mr
}

func TestRedisStore_Contract(t *testing.T) {
	s, _ := newTestRedisStore(t, 0)
	exerciseStore(t, s)
}

func TestRedisStore_KeyLayout(t *testing.T) {
	s, mr := newTestRedisStore(t, 0)
	key := Key{PersonID: "p1", Date: "2024_05_01", Site: "Kredinor"}

	require.NoError(t, s.Put(context.Background(), key, sampleSnapshot()))

	assert.True(t, mr.Exists("debt:snapshot:p1/2024_05_01/Kredinor"))
	members, err := mr.Members("debt:dates:p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024_05_01"}, members)
}

func TestRedisStore_ExpiredSnapshotsDropOut(t *testing.T) {
	s, mr := newTestRedisStore(t, time.Hour)
	ctx := context.Background()
	key := Key{PersonID: "p1", Date: "2024_05_01", Site: "Kredinor"}

	require.NoError(t, s.Put(ctx, key, sampleSnapshot()))
	mr.FastForward(2 * time.Hour)

	sites, err := s.ListSites(ctx, "p1", "2024_05_01")
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedis(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: ping")
}
