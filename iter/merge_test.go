package iter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// sliceIter is a trivial in-memory Iterator used only to exercise the
// merge iterators without pulling in the mem or table packages.
type sliceIter struct {
	keys, vals [][]byte
	idx        int
}

func newSliceIter(pairs ...[2]string) *sliceIter {
	s := &sliceIter{}
	for _, p := range pairs {
		s.keys = append(s.keys, []byte(p[0]))
		s.vals = append(s.vals, []byte(p[1]))
	}
	return s
}

func (s *sliceIter) IsValid() bool { return s.idx < len(s.keys) }
func (s *sliceIter) Key() []byte   { return s.keys[s.idx] }
func (s *sliceIter) Value() []byte { return s.vals[s.idx] }
func (s *sliceIter) Next() error   { s.idx++; return nil }

func drain(t *testing.T, it Iterator) []string {
	t.Helper()
	var out []string
	for it.IsValid() {
		out = append(out, string(it.Key())+"="+string(it.Value()))
		require.NoError(t, it.Next())
	}
	return out
}

func TestMergeIteratorAscendingAcrossSources(t *testing.T) {
	a := newSliceIter([2]string{"a", "1"}, [2]string{"c", "3"})
	b := newSliceIter([2]string{"b", "2"}, [2]string{"d", "4"})

	m := NewMergeIterator([]Iterator{a, b})
	require.Equal(t, []string{"a=1", "b=2", "c=3", "d=4"}, drain(t, m))
}

func TestMergeIteratorLowerIndexWinsOnTie(t *testing.T) {
	newest := newSliceIter([2]string{"a", "newest-a"}, [2]string{"b", "newest-b"})
	older := newSliceIter([2]string{"a", "older-a"}, [2]string{"c", "older-c"})

	// newest is index 0: its value must win on the shared key "a", and
	// older's duplicate entry for "a" must be silently dropped.
	m := NewMergeIterator([]Iterator{newest, older})
	require.Equal(t, []string{"a=newest-a", "b=newest-b", "c=older-c"}, drain(t, m))
}

func TestMergeIteratorEmptySources(t *testing.T) {
	m := NewMergeIterator(nil)
	require.False(t, m.IsValid())
}

func TestTwoMergeIteratorPrefersA(t *testing.T) {
	a := newSliceIter([2]string{"a", "from-a"}, [2]string{"c", "from-a-c"})
	b := newSliceIter([2]string{"a", "from-b"}, [2]string{"b", "from-b-only"})

	two, err := NewTwoMergeIterator(a, b)
	require.NoError(t, err)
	require.Equal(t, []string{"a=from-a", "b=from-b-only", "c=from-a-c"}, drain(t, two))
}

func TestFusedIteratorRejectsCallsAfterEnd(t *testing.T) {
	a := newSliceIter([2]string{"a", "1"})
	f := NewFusedIterator(a)
	require.True(t, f.IsValid())
	require.NoError(t, f.Next())
	require.False(t, f.IsValid())
	require.Error(t, f.Next())
}
