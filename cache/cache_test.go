package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func Test_MemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("it returns a miss for unknown keys", func(t *testing.T) {
		s := NewMemoryStore()
		_, ok, err := s.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("it returns stored values while within their ttl", func(t *testing.T) {
		clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
		s := NewMemoryStore(WithClock(clock.Now))

		require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

		clock.Advance(59 * time.Second)
		val, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("v"), val)

		clock.Advance(time.Second)
		_, ok, err = s.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok, "entry must expire exactly at its ttl")
		assert.Equal(t, 0, s.Len())
	})

	t.Run("it keeps entries without ttl", func(t *testing.T) {
		clock := &fakeClock{t: time.Unix(0, 0)}
		s := NewMemoryStore(WithClock(clock.Now))
		require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))

		clock.Advance(24 * 365 * time.Hour)
		_, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("it does not alias caller buffers", func(t *testing.T) {
		s := NewMemoryStore()
		buf := []byte("abc")
		require.NoError(t, s.Set(ctx, "k", buf, time.Minute))
		buf[0] = 'z'

		val, _, _ := s.Get(ctx, "k")
		assert.Equal(t, "abc", string(val))
	})

	t.Run("it deletes and resets", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
		require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Minute))

		require.NoError(t, s.Delete(ctx, "a"))
		require.NoError(t, s.Delete(ctx, "missing"))
		assert.Equal(t, 1, s.Len())

		require.NoError(t, s.Reset(ctx))
		assert.Equal(t, 0, s.Len())
	})
}

func Test_RedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(rdb, "test:")
	t.Cleanup(func() { _ = s.Close() })

	t.Run("it round trips values under the key prefix", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
		assert.True(t, mr.Exists("test:k"))

		val, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("v"), val)
	})

	t.Run("it expires entries", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "short", []byte("v"), time.Second))
		mr.FastForward(2 * time.Second)

		_, ok, err := s.Get(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("it deletes and resets only its own keys", func(t *testing.T) {
		require.NoError(t, mr.Set("other:k", "x"))
		require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
		require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Minute))

		require.NoError(t, s.Delete(ctx, "a"))
		assert.False(t, mr.Exists("test:a"))

		require.NoError(t, s.Reset(ctx))
		assert.False(t, mr.Exists("test:b"))
		assert.True(t, mr.Exists("other:k"))
	})

	t.Run("it reports backend failures", func(t *testing.T) {
		broken := NewRedisStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), "")
		_, _, err := broken.Get(ctx, "k")
		assert.Error(t, err)
	})

	t.Run("it rejects malformed urls", func(t *testing.T) {
		_, err := NewRedisStoreFromURL("not-a-url", "")
		assert.Error(t, err)
	})
}
