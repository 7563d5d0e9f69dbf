package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	*Memory
	gets int
}

func (c *countingRepo) Get(ctx context.Context, host, timestamp string) (Record, error) {
	c.gets++
	return c.Memory.Get(ctx, host, timestamp)
}

func TestCached_ServesRepeatGetsFromCache(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepo{Memory: NewMemory()}
	_, err := backing.Save(ctx, Record{Host: "h", Timestamp: "t", Data: []byte(`{"a":1}`)})
	require.NoError(t, err)

	cached := NewCached(backing, 4, time.Minute)
	for i := 0; i < 3; i++ {
		rec, err := cached.Get(ctx, "h", "t")
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(rec.Data))
	}
	assert.Equal(t, 1, backing.gets)
	assert.Equal(t, 1, cached.Len())
}

func TestCached_DoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepo{Memory: NewMemory()}
	cached := NewCached(backing, 4, time.Minute)

	_, err := cached.Get(ctx, "h", "t")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = backing.Save(ctx, Record{Host: "h", Timestamp: "t", Data: []byte(`{}`)})
	require.NoError(t, err)
	_, err = cached.Get(ctx, "h", "t")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.gets)
}

func TestCached_ReturnedDataIsIndependent(t *testing.T) {
	ctx := context.Background()
	cached := NewCached(NewMemory(), 4, 0)
	_, err := cached.Save(ctx, Record{Host: "h", Timestamp: "t", Data: []byte(`{"a":1}`)})
	require.NoError(t, err)

	rec, err := cached.Get(ctx, "h", "t")
	require.NoError(t, err)
	rec.Data[0] = 'X'

	again, err := cached.Get(ctx, "h", "t")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(again.Data))
}

func TestCached_ListsPassThrough(t *testing.T) {
	ctx := context.Background()
	cached := NewCached(NewMemory(), 4, time.Minute)
	_, err := cached.ListHosts(ctx)
	require.NoError(t, err)

	_, err = cached.Save(ctx, Record{Host: "h", Timestamp: "t"})
	require.NoError(t, err)
	hosts, err := cached.ListHosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"h"}, hosts)
}
