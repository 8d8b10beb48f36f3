package table

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/arvidw/lsmkv/block"
	"github.com/arvidw/lsmkv/cache"
	"github.com/arvidw/lsmkv/common"
)

// Builder accumulates sorted key-value entries into blocks and writes
// a finished SST file. Callers must add entries in ascending key
// order; the builder does not sort.
type Builder struct {
	blockSize int
	cur       *block.Builder
	curFirst  []byte

	data   []byte
	metas  []BlockMeta
	filter *Filter
}

// NewBuilder creates a Builder whose blocks target at most blockSize
// bytes each, and whose sidecar filter is sized for expectedKeys
// entries.
func NewBuilder(blockSize, expectedKeys int) *Builder {
	return &Builder{
		blockSize: blockSize,
		cur:       block.NewBuilder(blockSize),
		filter:    NewFilter(expectedKeys),
	}
}

// Add appends one entry. A zero-length value represents a tombstone
// and is stored like any other entry.
func (b *Builder) Add(key, value []byte) error {
	if len(key) == 0 {
		return common.ErrKeyEmpty
	}
	if len(key) > common.MaxKeyLen {
		return common.ErrKeyTooBig
	}
	if len(value) > common.MaxValueLen {
		return common.ErrValueTooBig
	}

	b.filter.AddKey(key)

	if b.cur.IsEmpty() {
		b.curFirst = append([]byte(nil), key...)
	}
	if b.cur.Add(key, value) {
		return nil
	}

	if err := b.finishBlock(); err != nil {
		return err
	}
	b.curFirst = append([]byte(nil), key...)
	if !b.cur.Add(key, value) {
		return fmt.Errorf("table: entry of %d bytes does not fit a fresh %d-byte block", len(key)+len(value), b.blockSize)
	}
	return nil
}

func (b *Builder) finishBlock() error {
	blk, err := b.cur.Build()
	if err != nil {
		return err
	}
	encoded := block.Encode(blk)
	b.metas = append(b.metas, BlockMeta{Offset: uint32(len(b.data)), FirstKey: b.curFirst})
	b.filter.AddBlockChecksum(encoded)
	b.data = append(b.data, encoded...)
	b.cur = block.NewBuilder(b.blockSize)
	return nil
}

// Build flushes any pending block, writes the finished table to path
// (atomically, via a temp file and rename), writes its sidecar
// filter, and opens it for reading.
func (b *Builder) Build(id uint64, path string, c *cache.BlockCache) (*SSTable, error) {
	if !b.cur.IsEmpty() {
		if err := b.finishBlock(); err != nil {
			return nil, err
		}
	}

	metaOffset := uint32(len(b.data))
	out := append([]byte(nil), b.data...)
	out = append(out, encodeMeta(b.metas)...)
	out = binary.BigEndian.AppendUint32(out, metaOffset)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, err
	}
	if err := b.filter.WriteTo(path); err != nil {
		return nil, fmt.Errorf("write filter sidecar for sst %d: %w", id, err)
	}

	return Open(id, path, c)
}
