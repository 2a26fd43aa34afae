package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kvStorage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

func exerciseStorage(t *testing.T, s kvStorage) {
	t.Helper()

	_, ok, err := s.Get("history")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("history", `[{"q":"Paris","date":1}]`))
	v, ok, err := s.Get("history")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"q":"Paris","date":1}]`, v)

	require.NoError(t, s.Set("history", `[]`))
	v, _, err = s.Get("history")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)

	require.NoError(t, s.Remove("history"))
	_, ok, err = s.Get("history")
	require.NoError(t, err)
	assert.False(t, ok)

	// removing twice is fine
	require.NoError(t, s.Remove("history"))
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestMemoryStorage_TTL(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewMemoryStorage(WithMemoryTTL(time.Minute), WithMemoryClock(func() time.Time { return now }))

	require.NoError(t, s.Set("a", "1"))
	now = now.Add(30 * time.Second)
	v, ok, err := s.Get("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	now = now.Add(31 * time.Second)
	_, ok, err = s.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStorage_MaxEntries(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewMemoryStorage(WithMaxEntries(3), WithMemoryClock(func() time.Time { return now }))

	for i := 0; i < 100; i++ {
		now = now.Add(time.Second)
		require.NoError(t, s.Set(fmt.Sprintf("session:%d", i), "[]"))
		assert.LessOrEqual(t, s.Len(), 3)
	}

	// the most recent writes survive
	for i := 97; i < 100; i++ {
		_, ok, err := s.Get(fmt.Sprintf("session:%d", i))
		require.NoError(t, err)
		assert.True(t, ok, "session:%d", i)
	}
	_, ok, _ := s.Get("session:0")
	assert.False(t, ok)

	// overwriting an existing key does not evict
	now = now.Add(time.Second)
	require.NoError(t, s.Set("session:97", `[{"q":"x","date":1}]`))
	assert.Equal(t, 3, s.Len())
	_, ok, _ = s.Get("session:98")
	assert.True(t, ok)
}

func TestMemoryStorage_ExpiredKeysMakeRoom(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewMemoryStorage(WithMaxEntries(2), WithMemoryTTL(time.Minute), WithMemoryClock(func() time.Time { return now }))

	require.NoError(t, s.Set("old", "1"))
	now = now.Add(10 * time.Second)
	require.NoError(t, s.Set("fresh", "2"))
	now = now.Add(55 * time.Second)
	require.NoError(t, s.Set("new", "3"))

	_, ok, _ := s.Get("fresh")
	assert.True(t, ok)
	_, ok, _ = s.Get("new")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Len())
}

func TestFileStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := NewFileStorage(dir)
	require.NoError(t, err)
	exerciseStorage(t, s)
}

func TestFileStorage_SanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set("../escape/me", "x"))
	_, err = os.Stat(filepath.Join(dir, ".._escape_me.json"))
	assert.NoError(t, err)
}

func TestRedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStorageFromClient(client, "hero:", 0)
	t.Cleanup(func() { _ = s.Close() })

	exerciseStorage(t, s)
}

func TestRedisStorage_PrefixAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStorageFromClient(client, "hero:", time.Hour)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set("session-1", "[]"))
	assert.True(t, mr.Exists("hero:session-1"))
	assert.Equal(t, time.Hour, mr.TTL("hero:session-1"))

	mr.FastForward(2 * time.Hour)
	_, ok, err := s.Get("session-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisStorage_URL(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisStorage("redis://"+mr.Addr()+"/0", "hero:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = NewRedisStorage("not a url", "hero:", 0)
	assert.Error(t, err)
}

func TestRedisStorage_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	s := NewRedisStorageFromClient(client, "hero:", 0)
	mr.Close()

	_, _, err := s.Get("x")
	assert.Error(t, err)
	assert.Error(t, s.Set("x", "y"))
}
