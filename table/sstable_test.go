package table

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/arvidw/lsmkv/cache"
	"github.com/arvidw/lsmkv/common/testutil"
	"github.com/stretchr/testify/require"
)

func buildTestTable(t *testing.T, dir string, id uint64, n int) *SSTable {
	t.Helper()
	b := NewBuilder(128, n)
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key-%04d", i))
		val := []byte(fmt.Sprintf("val-%04d", i))
		require.NoError(t, b.Add(key, val))
	}
	sst, err := b.Build(id, Path(dir, id), cache.New(16))
	require.NoError(t, err)
	return sst
}

func TestSSTableRoundTrip(t *testing.T) {
	dir := testutil.TempDir(t)
	sst := buildTestTable(t, dir, 1, 50)
	defer sst.Close()

	require.True(t, sst.NumBlocks() > 1, "50 entries at blockSize 128 should span multiple blocks")

	it, err := CreateAndSeekToFirst(sst)
	require.NoError(t, err)
	count := 0
	for it.IsValid() {
		want := fmt.Sprintf("key-%04d", count)
		require.Equal(t, want, string(it.Key()))
		count++
		require.NoError(t, it.Next())
	}
	require.Equal(t, 50, count)
}

func TestSSTableSeekToKey(t *testing.T) {
	dir := testutil.TempDir(t)
	sst := buildTestTable(t, dir, 2, 50)
	defer sst.Close()

	it, err := CreateAndSeekToKey(sst, []byte("key-0025"))
	require.NoError(t, err)
	require.True(t, it.IsValid())
	require.Equal(t, "key-0025", string(it.Key()))

	// Seeking to a key between two entries lands on the next one.
	it, err = CreateAndSeekToKey(sst, []byte("key-0025a"))
	require.NoError(t, err)
	require.True(t, it.IsValid())
	require.Equal(t, "key-0026", string(it.Key()))

	// Seeking past the end is invalid.
	it, err = CreateAndSeekToKey(sst, []byte("zzz"))
	require.NoError(t, err)
	require.False(t, it.IsValid())
}

func TestSSTableFilterRoundTrip(t *testing.T) {
	dir := testutil.TempDir(t)
	sst := buildTestTable(t, dir, 3, 20)
	defer sst.Close()

	require.True(t, sst.MayContain([]byte("key-0005")))
	require.False(t, sst.MayContain([]byte("absolutely-not-present-xyz")))

	reopened, err := Open(3, Path(dir, 3), nil)
	require.NoError(t, err)
	defer reopened.Close()
	require.True(t, reopened.MayContain([]byte("key-0005")))
}

func TestSSTableOpenMissingFilterDegradesGracefully(t *testing.T) {
	dir := testutil.TempDir(t)
	sst := buildTestTable(t, dir, 4, 5)
	sst.Close()

	require.NoError(t, os.Remove(filepath.Join(dir, "00004.sst.filter")))

	reopened, err := Open(4, Path(dir, 4), nil)
	require.NoError(t, err)
	defer reopened.Close()
	require.True(t, reopened.MayContain([]byte("anything")))
}

func TestSSTableFindBlockIdx(t *testing.T) {
	dir := testutil.TempDir(t)
	sst := buildTestTable(t, dir, 5, 50)
	defer sst.Close()

	require.Equal(t, 0, sst.FindBlockIdx([]byte("aaa")))
	last := sst.FindBlockIdx([]byte("zzz"))
	require.Equal(t, sst.NumBlocks()-1, last)
}
