package iter

import (
	"bytes"
	"container/heap"
)

type mergeHeapItem struct {
	idx int // lower idx means more recent data
	src Iterator
}

type mergeHeap []*mergeHeapItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if c := bytes.Compare(h[i].src.Key(), h[j].src.Key()); c != 0 {
		return c < 0
	}
	return h[i].idx < h[j].idx
}
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)        { *h = append(*h, x.(*mergeHeapItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// MergeIterator is a k-way merge over a set of ascending sources.
// Source index at construction determines recency: index 0 is the
// most recent source (e.g. the mutable memtable, or the newest L0
// SST), and on equal keys across sources, the lowest-index source's
// value wins while every other source is advanced past that key.
type MergeIterator struct {
	h   *mergeHeap
	key []byte
	val []byte
	err error
}

// NewMergeIterator builds a merge iterator. sources are consumed in
// their current position; callers must have already positioned each
// source (e.g. via SeekToFirst/SeekToKey) before constructing.
func NewMergeIterator(sources []Iterator) *MergeIterator {
	h := &mergeHeap{}
	for i, s := range sources {
		if s.IsValid() {
			*h = append(*h, &mergeHeapItem{idx: i, src: s})
		}
	}
	heap.Init(h)

	m := &MergeIterator{h: h}
	m.advance()
	return m
}

func (m *MergeIterator) IsValid() bool { return m.err == nil && m.key != nil }
func (m *MergeIterator) Key() []byte   { return m.key }
func (m *MergeIterator) Value() []byte { return m.val }
func (m *MergeIterator) Error() error  { return m.err }

func (m *MergeIterator) Next() error {
	if m.err != nil {
		return m.err
	}
	m.advance()
	return m.err
}

func (m *MergeIterator) advance() {
	if m.h.Len() == 0 {
		m.key, m.val = nil, nil
		return
	}

	top := heap.Pop(m.h).(*mergeHeapItem)
	m.key = append([]byte(nil), top.src.Key()...)
	m.val = append([]byte(nil), top.src.Value()...)

	for m.h.Len() > 0 {
		peek := (*m.h)[0]
		if !bytes.Equal(peek.src.Key(), m.key) {
			break
		}
		dup := heap.Pop(m.h).(*mergeHeapItem)
		if err := dup.src.Next(); err != nil {
			m.err = err
			return
		}
		if dup.src.IsValid() {
			heap.Push(m.h, dup)
		}
	}

	if err := top.src.Next(); err != nil {
		m.err = err
		return
	}
	if top.src.IsValid() {
		heap.Push(m.h, top)
	}
}
