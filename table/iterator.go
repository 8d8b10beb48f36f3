package table

import "github.com/arvidw/lsmkv/block"

// Iterator walks one SST's entries in key order, transparently
// crossing block boundaries through the table's cached reader.
type Iterator struct {
	sst      *SSTable
	blockIdx int
	blkIter  *block.Iterator
	err      error
}

// CreateAndSeekToFirst positions a new iterator at the table's first
// entry.
func CreateAndSeekToFirst(sst *SSTable) (*Iterator, error) {
	it := &Iterator{sst: sst}
	if sst.NumBlocks() == 0 {
		return it, nil
	}
	blk, err := sst.ReadBlockCached(0)
	if err != nil {
		it.err = err
		return it, err
	}
	it.blkIter = block.NewIterator(blk)
	it.blkIter.SeekToFirst()
	return it, nil
}

// CreateAndSeekToKey positions a new iterator at the first entry with
// key >= target.
func CreateAndSeekToKey(sst *SSTable, target []byte) (*Iterator, error) {
	it := &Iterator{sst: sst}
	if sst.NumBlocks() == 0 {
		return it, nil
	}
	idx := sst.FindBlockIdx(target)
	blk, err := sst.ReadBlockCached(idx)
	if err != nil {
		it.err = err
		return it, err
	}
	it.blockIdx = idx
	it.blkIter = block.NewIterator(blk)
	it.blkIter.SeekToKey(target)
	if err := it.crossBlocksIfExhausted(); err != nil {
		it.err = err
		return it, err
	}
	return it, nil
}

// crossBlocksIfExhausted advances to the next block (re-seeking to
// its first entry) whenever the current block iterator has run past
// its last entry.
func (it *Iterator) crossBlocksIfExhausted() error {
	for it.blkIter != nil && !it.blkIter.IsValid() {
		if it.blkIter.Error() != nil {
			return it.blkIter.Error()
		}
		it.blockIdx++
		if it.blockIdx >= it.sst.NumBlocks() {
			it.blkIter = nil
			return nil
		}
		blk, err := it.sst.ReadBlockCached(it.blockIdx)
		if err != nil {
			return err
		}
		it.blkIter = block.NewIterator(blk)
		it.blkIter.SeekToFirst()
	}
	return nil
}

func (it *Iterator) IsValid() bool {
	return it.err == nil && it.blkIter != nil && it.blkIter.IsValid()
}

func (it *Iterator) Key() []byte {
	if !it.IsValid() {
		return nil
	}
	return it.blkIter.Key()
}

func (it *Iterator) Value() []byte {
	if !it.IsValid() {
		return nil
	}
	return it.blkIter.Value()
}

func (it *Iterator) Next() error {
	if it.err != nil {
		return it.err
	}
	if it.blkIter == nil {
		return nil
	}
	it.blkIter.Next()
	if err := it.crossBlocksIfExhausted(); err != nil {
		it.err = err
		return err
	}
	return nil
}
