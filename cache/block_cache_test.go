package cache

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/arvidw/lsmkv/block"
	"github.com/stretchr/testify/require"
)

func buildBlock(t *testing.T, key, value string) *block.Block {
	t.Helper()
	b := block.NewBuilder(4096)
	require.True(t, b.Add([]byte(key), []byte(value)))
	blk, err := b.Build()
	require.NoError(t, err)
	return blk
}

func TestBlockCacheHitsAndMisses(t *testing.T) {
	c := New(8)
	key := MakeKey(1, 0)
	want := buildBlock(t, "a", "1")

	var loads int64
	load := func() (*block.Block, error) {
		atomic.AddInt64(&loads, 1)
		return want, nil
	}

	got, err := c.GetOrLoad(key, load)
	require.NoError(t, err)
	require.Same(t, want, got)

	got, err = c.GetOrLoad(key, load)
	require.NoError(t, err)
	require.Same(t, want, got)

	require.EqualValues(t, 1, atomic.LoadInt64(&loads))
	hits, misses := c.Stats()
	require.EqualValues(t, 1, hits)
	require.EqualValues(t, 1, misses)
}

func TestBlockCacheCoalescesConcurrentMisses(t *testing.T) {
	c := New(8)
	key := MakeKey(7, 2)
	want := buildBlock(t, "k", "v")

	var loads int64
	release := make(chan struct{})
	load := func() (*block.Block, error) {
		atomic.AddInt64(&loads, 1)
		<-release
		return want, nil
	}

	const n = 16
	var wg sync.WaitGroup
	results := make([]*block.Block, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			blk, err := c.GetOrLoad(key, load)
			require.NoError(t, err)
			results[i] = blk
		}(i)
	}

	close(release)
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt64(&loads))
	for _, r := range results {
		require.Same(t, want, r)
	}
}

func TestBlockCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	blocks := map[int]*block.Block{
		0: buildBlock(t, "a", "1"),
		1: buildBlock(t, "b", "2"),
		2: buildBlock(t, "c", "3"),
	}
	loadFor := func(i int) func() (*block.Block, error) {
		return func() (*block.Block, error) { return blocks[i], nil }
	}

	k0, k1, k2 := MakeKey(1, 0), MakeKey(1, 1), MakeKey(1, 2)
	_, err := c.GetOrLoad(k0, loadFor(0))
	require.NoError(t, err)
	_, err = c.GetOrLoad(k1, loadFor(1))
	require.NoError(t, err)
	// Touch k0 so it's more recent than k1.
	_, err = c.GetOrLoad(k0, loadFor(0))
	require.NoError(t, err)
	// Inserting a third entry should evict k1, the least recently used.
	_, err = c.GetOrLoad(k2, loadFor(2))
	require.NoError(t, err)

	require.Equal(t, 2, c.Len())

	var loads int64
	_, err = c.GetOrLoad(k1, func() (*block.Block, error) {
		atomic.AddInt64(&loads, 1)
		return blocks[1], nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, loads, "k1 should have been evicted and reloaded")
}

func TestBlockCacheDoesNotCacheErrors(t *testing.T) {
	c := New(4)
	key := MakeKey(3, 0)

	var attempts int64
	_, err := c.GetOrLoad(key, func() (*block.Block, error) {
		atomic.AddInt64(&attempts, 1)
		return nil, assertErr
	})
	require.ErrorIs(t, err, assertErr)

	want := buildBlock(t, "x", "y")
	got, err := c.GetOrLoad(key, func() (*block.Block, error) {
		atomic.AddInt64(&attempts, 1)
		return want, nil
	})
	require.NoError(t, err)
	require.Same(t, want, got)
	require.EqualValues(t, 2, atomic.LoadInt64(&attempts))
}

var assertErr = errSentinel("boom")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }
