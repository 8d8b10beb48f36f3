package block

import (
	"encoding/binary"

	"github.com/arvidw/lsmkv/common"
)

// Builder accumulates entries, in caller-guaranteed ascending key
// order, until adding one more would exceed the target block size.
type Builder struct {
	blockSize int
	data      []byte
	offsets   []uint16
	firstKey  []byte
}

// NewBuilder constructs a Builder targeting blockSize bytes per block.
func NewBuilder(blockSize int) *Builder {
	return &Builder{blockSize: blockSize}
}

// estimatedSize is entries_bytes + 2*num_entries + 2 for the trailing
// count, i.e. the size the block would occupy encoded right now.
func (b *Builder) estimatedSize() int {
	return len(b.data) + 2*len(b.offsets) + 2
}

// IsEmpty reports whether any entry has been added.
func (b *Builder) IsEmpty() bool {
	return len(b.offsets) == 0
}

// FirstKey returns the first key added to this block, or nil if empty.
func (b *Builder) FirstKey() []byte {
	return b.firstKey
}

// Add appends key/value if doing so would not exceed the target block
// size, except that an empty builder always accepts its first entry
// regardless of size (otherwise an oversized single entry could never
// be stored). Returns whether the entry was accepted. Panics if key is
// empty: an empty key is a programmer error, not a runtime condition.
func (b *Builder) Add(key, value []byte) bool {
	if len(key) == 0 {
		panic("block: key must not be empty")
	}

	entrySize := 4 + len(key) + len(value)
	newSize := b.estimatedSize() + entrySize + 2 // one more offset slot

	if !b.IsEmpty() && newSize > b.blockSize {
		return false
	}

	b.offsets = append(b.offsets, uint16(len(b.data)))
	b.data = binary.BigEndian.AppendUint16(b.data, uint16(len(key)))
	b.data = append(b.data, key...)
	b.data = binary.BigEndian.AppendUint16(b.data, uint16(len(value)))
	b.data = append(b.data, value...)

	if b.firstKey == nil {
		b.firstKey = append([]byte(nil), key...)
	}

	return true
}

// Build finalizes the accumulated entries into a Block. Calling Build
// on an empty builder is a programmer error.
func (b *Builder) Build() (*Block, error) {
	if b.IsEmpty() {
		return nil, common.ErrEmptyBlock
	}
	return &Block{Data: b.data, Offsets: b.offsets}, nil
}
