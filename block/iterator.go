package block

import "sort"

// Iterator walks a decoded Block in order. Key/Value return views into
// the underlying block bytes; callers must copy before the block is
// discarded if they need to retain the data.
type Iterator struct {
	blk *Block
	idx int
	key []byte
	val []byte
	err error
}

// NewIterator constructs an iterator over blk, initially invalid until
// one of the Seek* methods is called.
func NewIterator(blk *Block) *Iterator {
	return &Iterator{blk: blk, idx: -1}
}

// SeekToFirst positions the iterator at entry 0.
func (it *Iterator) SeekToFirst() {
	it.idx = 0
	it.loadEntry()
}

// SeekToKey positions the iterator at the first entry whose key is >=
// target, found by binary search over the offsets array. If no such
// entry exists the iterator becomes invalid.
func (it *Iterator) SeekToKey(target []byte) {
	n := len(it.blk.Offsets)
	idx := sort.Search(n, func(i int) bool {
		k, _, err := entryAt(it.blk.Data, it.blk.Offsets[i])
		if err != nil {
			return true
		}
		return string(k) >= string(target)
	})
	it.idx = idx
	it.loadEntry()
}

func (it *Iterator) loadEntry() {
	if it.idx < 0 || it.idx >= len(it.blk.Offsets) {
		it.key = nil
		it.val = nil
		return
	}
	k, v, err := entryAt(it.blk.Data, it.blk.Offsets[it.idx])
	if err != nil {
		it.err = err
		it.idx = len(it.blk.Offsets)
		it.key = nil
		it.val = nil
		return
	}
	it.key = k
	it.val = v
}

// Next advances to the next entry.
func (it *Iterator) Next() {
	it.idx++
	it.loadEntry()
}

// IsValid reports whether the cursor is positioned at an entry.
func (it *Iterator) IsValid() bool {
	return it.err == nil && it.idx >= 0 && it.idx < len(it.blk.Offsets)
}

// Key returns the current entry's key. Only valid while IsValid.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the current entry's value. Only valid while IsValid.
func (it *Iterator) Value() []byte { return it.val }

// Error returns any decode error encountered while iterating.
func (it *Iterator) Error() error { return it.err }
