// Package mem implements the memtable: a mutable, ordered, in-memory
// key-value store that absorbs writes before they are flushed to an
// SST. It is backed by a real skip list rather than a hand-rolled
// ordered map.
package mem

import (
	"bytes"
	"sync"

	"github.com/huandu/skiplist"

	"github.com/arvidw/lsmkv/bound"
)

// byteKeys orders skiplist elements lexicographically by raw key
// bytes.
type byteKeys struct{}

func (byteKeys) Compare(lhs, rhs interface{}) int {
	return bytes.Compare(lhs.([]byte), rhs.([]byte))
}

func (byteKeys) CalcScore(key interface{}) float64 {
	b := key.([]byte)
	var score float64
	for i := 0; i < 8; i++ {
		score *= 256
		if i < len(b) {
			score += float64(b[i])
		}
	}
	return score
}

// Entry is a single memtable record. An empty Value is a tombstone.
type Entry struct {
	Key   []byte
	Value []byte
}

// Table is a mutable, ordered, concurrency-safe key-value map. It
// wraps github.com/huandu/skiplist behind a RWMutex: the skip list
// itself gives O(log n) ordered insert/seek, and the mutex makes the
// table internally concurrent — multiple callers may Put through the
// same Table at once without external coordination.
type Table struct {
	mu       sync.RWMutex
	list     *skiplist.SkipList
	sizeHint int
}

// New creates an empty memtable.
func New() *Table {
	return &Table{list: skiplist.New(byteKeys{})}
}

// Put inserts or overwrites key with value. A zero-length value stores
// a tombstone.
func (t *Table) Put(key, value []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	t.list.Set(k, v)
	t.sizeHint += len(k) + len(v)
}

// Get looks up key, returning (value, true) if present (tombstone
// included — callers are responsible for interpreting an empty value
// as "not live").
func (t *Table) Get(key []byte) ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.list.Get(key)
	if e == nil {
		return nil, false
	}
	return e.Value.([]byte), true
}

// Len returns the number of distinct keys (including tombstones).
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.list.Len()
}

// SizeBytes is an approximate byte size: the total length of every key
// and value Put into the table, overwritten entries included. It is
// only reported; it does not trigger a flush.
func (t *Table) SizeBytes() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sizeHint
}

// Scan returns an ascending iterator over entries between lower and
// upper, each bound inclusive, exclusive or unbounded by its Kind.
// It snapshots matching entries under the read lock so the returned
// iterator is safe to use after further concurrent Puts.
func (t *Table) Scan(lower, upper bound.Bound) *Iterator {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var entries []Entry
	var elem *skiplist.Element

	if lower.Kind == bound.Unbounded {
		elem = t.list.Front()
	} else {
		elem = t.list.Find(lower.Key)
		if lower.Kind == bound.Excluded {
			for elem != nil && bytes.Equal(elem.Key().([]byte), lower.Key) {
				elem = elem.Next()
			}
		}
	}

	for elem != nil {
		k := elem.Key().([]byte)
		if !upper.BelowUpper(k) {
			break
		}
		entries = append(entries, Entry{Key: k, Value: elem.Value.([]byte)})
		elem = elem.Next()
	}

	return &Iterator{entries: entries}
}
