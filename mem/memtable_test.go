package mem

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arvidw/lsmkv/bound"
)

func putRange(t *testing.T, tbl *Table, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("k%02d", i))
		val := []byte(fmt.Sprintf("%d", i))
		tbl.Put(key, val)
	}
}

func drainScan(it *Iterator) []string {
	var got []string
	for it.IsValid() {
		got = append(got, string(it.Key())+"="+string(it.Value()))
		it.Next()
	}
	return got
}

func TestTableScanUnbounded(t *testing.T) {
	tbl := New()
	putRange(t, tbl, 5)

	got := drainScan(tbl.Scan(bound.UnboundedBound(), bound.UnboundedBound()))
	require.Equal(t, []string{"k00=0", "k01=1", "k02=2", "k03=3", "k04=4"}, got)
}

func TestTableScanIncludedLowerIncludedUpper(t *testing.T) {
	tbl := New()
	putRange(t, tbl, 10)

	got := drainScan(tbl.Scan(bound.IncludedBound([]byte("k02")), bound.IncludedBound([]byte("k05"))))
	require.Equal(t, []string{"k02=2", "k03=3", "k04=4", "k05=5"}, got)
}

func TestTableScanExcludedLowerSkipsTheBoundaryKey(t *testing.T) {
	tbl := New()
	putRange(t, tbl, 10)

	// The lower bound itself is present in the memtable; Excluded must
	// step past it rather than including it.
	got := drainScan(tbl.Scan(bound.ExcludedBound([]byte("k02")), bound.ExcludedBound([]byte("k05"))))
	require.Equal(t, []string{"k03=3", "k04=4"}, got)
}

func TestTableScanExcludedUpperStopsBeforeTheBoundaryKey(t *testing.T) {
	tbl := New()
	putRange(t, tbl, 10)

	got := drainScan(tbl.Scan(bound.IncludedBound([]byte("k07")), bound.ExcludedBound([]byte("k09"))))
	require.Equal(t, []string{"k07=7", "k08=8"}, got)
}

func TestTableScanExcludedLowerOnAbsentKeyFallsThroughToNext(t *testing.T) {
	tbl := New()
	tbl.Put([]byte("a"), []byte("1"))
	tbl.Put([]byte("c"), []byte("3"))

	// No entry equals the excluded lower bound itself, so the skip loop
	// must be a no-op rather than over-skipping into "c".
	got := drainScan(tbl.Scan(bound.ExcludedBound([]byte("b")), bound.UnboundedBound()))
	require.Equal(t, []string{"c=3"}, got)
}

func TestTableScanReflectsTombstones(t *testing.T) {
	tbl := New()
	tbl.Put([]byte("a"), []byte("1"))
	tbl.Put([]byte("b"), nil)

	got := drainScan(tbl.Scan(bound.UnboundedBound(), bound.UnboundedBound()))
	require.Equal(t, []string{"a=1", "b="}, got)
}
