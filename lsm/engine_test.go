package lsm

import (
	"fmt"
	"testing"

	"github.com/arvidw/lsmkv/bound"
	"github.com/arvidw/lsmkv/common"
	"github.com/arvidw/lsmkv/common/testutil"
	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig(testutil.TempDir(t))
	cfg.BlockSize = 256
	e, err := Open(cfg)
	require.NoError(t, err)
	return e
}

func scanAll(t *testing.T, e *Engine, lower, upper bound.Bound) []string {
	t.Helper()
	it, err := e.Scan(lower, upper)
	require.NoError(t, err)
	var got []string
	for it.IsValid() {
		got = append(got, fmt.Sprintf("%s=%s", it.Key(), it.Value()))
		require.NoError(t, it.Next())
	}
	return got
}

func TestEnginePutGetBasic(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Put([]byte("a"), []byte("1")))
	require.NoError(t, e.Put([]byte("b"), []byte("2")))

	v, err := e.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, "1", string(v))

	v, err = e.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, "2", string(v))

	_, err = e.Get([]byte("c"))
	require.ErrorIs(t, err, common.ErrKeyNotFound)
}

func TestEngineDeleteBeforeFlush(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Put([]byte("a"), []byte("1")))
	require.NoError(t, e.Delete([]byte("a")))

	_, err := e.Get([]byte("a"))
	require.ErrorIs(t, err, common.ErrKeyNotFound)
	require.Empty(t, scanAll(t, e, bound.UnboundedBound(), bound.UnboundedBound()))
}

func TestEngineOverwriteAcrossFlush(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Put([]byte("a"), []byte("1")))
	require.NoError(t, e.Sync())
	require.NoError(t, e.Put([]byte("a"), []byte("2")))

	v, err := e.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, "2", string(v))

	require.NoError(t, e.Sync())
	v, err = e.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, "2", string(v))
}

func TestEngineDeleteAfterFlush(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Put([]byte("a"), []byte("1")))
	require.NoError(t, e.Put([]byte("b"), []byte("2")))
	require.NoError(t, e.Sync())

	require.NoError(t, e.Delete([]byte("a")))
	_, err := e.Get([]byte("a"))
	require.ErrorIs(t, err, common.ErrKeyNotFound)

	require.Equal(t, []string{"b=2"}, scanAll(t, e, bound.UnboundedBound(), bound.UnboundedBound()))
}

func TestEngineScanWithBounds(t *testing.T) {
	e := openTestEngine(t)

	for i := 0; i < 100; i++ {
		key := []byte(fmt.Sprintf("k%02d", i))
		val := []byte(fmt.Sprintf("%d", i))
		require.NoError(t, e.Put(key, val))
	}
	require.NoError(t, e.Sync())

	got := scanAll(t, e, bound.IncludedBound([]byte("k10")), bound.ExcludedBound([]byte("k15")))
	want := []string{"k10=10", "k11=11", "k12=12", "k13=13", "k14=14"}
	require.Equal(t, want, got)
}

func TestEngineOversizedEntrySpansSingleBlock(t *testing.T) {
	e := openTestEngine(t)

	bigValue := make([]byte, e.cfg.BlockSize*2)
	for i := range bigValue {
		bigValue[i] = byte('x' + i%5)
	}

	require.NoError(t, e.Put([]byte("huge"), bigValue))
	require.NoError(t, e.Sync())

	v, err := e.Get([]byte("huge"))
	require.NoError(t, err)
	require.Equal(t, bigValue, v)

	st := e.snapshot()
	require.Len(t, st.l0, 1)
	require.Equal(t, 1, st.l0[0].NumBlocks())
}

func TestEnginePutRejectsEmptyValueDeleteAllowsIt(t *testing.T) {
	e := openTestEngine(t)

	err := e.Put([]byte("k"), nil)
	require.ErrorIs(t, err, common.ErrValueEmpty)

	require.NoError(t, e.Put([]byte("k"), []byte("v")))
	require.NoError(t, e.Delete([]byte("k")))
}

func TestEngineFlushRemovesExactMemtableByIdentity(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Put([]byte("a"), []byte("1")))
	require.NoError(t, e.Sync())
	require.NoError(t, e.Put([]byte("b"), []byte("2")))
	require.NoError(t, e.Sync())

	st := e.snapshot()
	require.Empty(t, st.immutables, "both flushes should have cleared their own frozen memtable")
	require.Len(t, st.l0, 2)
}

func TestEngineSkipsEmptyFlush(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Sync())
	st := e.snapshot()
	require.Empty(t, st.l0, "flushing an empty memtable must not create an SST")
	require.EqualValues(t, 1, st.nextSSTID, "an empty flush must not consume an sst id")
}
