package table

import (
	"testing"

	"github.com/arvidw/lsmkv/common/testutil"
	"github.com/stretchr/testify/require"
)

func TestIteratorCrossesBlockBoundaries(t *testing.T) {
	dir := testutil.TempDir(t)
	sst := buildTestTable(t, dir, 10, 100)
	defer sst.Close()
	require.True(t, sst.NumBlocks() >= 3)

	it, err := CreateAndSeekToFirst(sst)
	require.NoError(t, err)

	var keys []string
	for it.IsValid() {
		keys = append(keys, string(it.Key()))
		require.NoError(t, it.Next())
	}
	require.Len(t, keys, 100)
	for i := 1; i < len(keys); i++ {
		require.Less(t, keys[i-1], keys[i])
	}
}

func TestIteratorEmptyTable(t *testing.T) {
	dir := testutil.TempDir(t)
	b := NewBuilder(128, 0)
	// No Add calls: Build must still produce a readable, empty table.
	sst, err := b.Build(1, Path(dir, 1), nil)
	require.NoError(t, err)
	defer sst.Close()

	it, err := CreateAndSeekToFirst(sst)
	require.NoError(t, err)
	require.False(t, it.IsValid())
}
