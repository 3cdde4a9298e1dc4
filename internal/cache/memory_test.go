package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("stores and returns copies", func(t *testing.T) {
		t.Parallel()

		c := NewMemory(time.Minute, 4, func() time.Time { return start })
		key := Key{SessionID: "s1", Kind: "tally"}
		original := []byte(`{"a":1}`)
		c.Store(ctx, key, original)
		original[0] = 'X'

		got, ok := c.Get(ctx, key)
		require.True(t, ok)
		assert.Equal(t, `{"a":1}`, string(got))

		got[0] = 'Y'
		again, ok := c.Get(ctx, key)
		require.True(t, ok)
		assert.Equal(t, `{"a":1}`, string(again))
	})

	t.Run("entries expire", func(t *testing.T) {
		t.Parallel()

		current := start
		c := NewMemory(time.Second, 4, func() time.Time { return current })
		key := Key{SessionID: "s1", Kind: "tally"}
		c.Store(ctx, key, []byte("v"))
		_, ok := c.Get(ctx, key)
		require.True(t, ok)

		current = current.Add(2 * time.Second)
		_, ok = c.Get(ctx, key)
		assert.False(t, ok)
	})

	t.Run("invalidate advances generation and drops entries", func(t *testing.T) {
		t.Parallel()

		c := NewMemory(time.Minute, 4, func() time.Time { return start })
		gen, err := c.Generation(ctx, "s1")
		require.NoError(t, err)
		assert.Zero(t, gen)

		stale := Key{SessionID: "s1", Generation: gen, Kind: "overlap"}
		c.Store(ctx, stale, []byte("old"))
		other := Key{SessionID: "s2", Kind: "overlap"}
		c.Store(ctx, other, []byte("keep"))

		require.NoError(t, c.Invalidate(ctx, "s1"))
		gen, _ = c.Generation(ctx, "s1")
		assert.Equal(t, uint64(1), gen)

		_, ok := c.Get(ctx, stale)
		assert.False(t, ok)
		_, ok = c.Get(ctx, other)
		assert.True(t, ok)
	})

	t.Run("values computed before an invalidation are not stored", func(t *testing.T) {
		t.Parallel()

		c := NewMemory(time.Minute, 4, func() time.Time { return start })
		captured, _ := c.Generation(ctx, "s1")
		require.NoError(t, c.Invalidate(ctx, "s1"))

		c.Store(ctx, Key{SessionID: "s1", Generation: captured, Kind: "recs"}, []byte("stale"))
		assert.Zero(t, c.Len())
	})

	t.Run("idle generation counters are dropped", func(t *testing.T) {
		t.Parallel()

		current := start
		c := NewMemory(time.Minute, 4, func() time.Time { return current })
		require.NoError(t, c.Invalidate(ctx, "deleted"))
		require.NoError(t, c.Invalidate(ctx, "deleted"))
		assert.Equal(t, 1, c.Sessions())

		current = current.Add(23 * time.Hour)
		require.NoError(t, c.Invalidate(ctx, "active"))
		assert.Equal(t, 2, c.Sessions())

		current = current.Add(2 * time.Hour)
		c.Store(ctx, Key{SessionID: "other", Kind: "tally"}, []byte("v"))
		assert.Equal(t, 1, c.Sessions())

		gen, err := c.Generation(ctx, "deleted")
		require.NoError(t, err)
		assert.Zero(t, gen)
		gen, err = c.Generation(ctx, "active")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), gen)
	})

	t.Run("cap evicts the entry closest to expiry", func(t *testing.T) {
		t.Parallel()

		current := start
		c := NewMemory(time.Minute, 2, func() time.Time { return current })
		first := Key{SessionID: "a", Kind: "k"}
		c.Store(ctx, first, []byte("1"))
		current = current.Add(time.Second)
		c.Store(ctx, Key{SessionID: "b", Kind: "k"}, []byte("2"))
		current = current.Add(time.Second)
		c.Store(ctx, Key{SessionID: "c", Kind: "k"}, []byte("3"))

		assert.Equal(t, 2, c.Len())
		_, ok := c.Get(ctx, first)
		assert.False(t, ok)
	})
}

func TestKeyString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "s1:3:recs:top5", Key{SessionID: "s1", Generation: 3, Kind: "recs", Variant: "top5"}.String())
	assert.Equal(t, "s1:0:tally", Key{SessionID: "s1", Kind: "tally"}.String())
	assert.Equal(t, "yescount:cache:s1:0:tally", entryKey(Key{SessionID: "s1", Kind: "tally"}))
	assert.Equal(t, "yescount:gen:s1", generationKey("s1"))
}

func TestNop(t *testing.T) {
	t.Parallel()

	var c DerivedCache = Nop{}
	c.Store(context.Background(), Key{SessionID: "s"}, []byte("v"))
	_, ok := c.Get(context.Background(), Key{SessionID: "s"})
	assert.False(t, ok)
}
