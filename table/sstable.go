// Package table implements the on-disk sorted string table: its
// encoding, a builder that accumulates entries into blocks and writes
// the finished file, a reader that serves individual blocks (through
// an optional cache), and a per-table iterator.
package table

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/arvidw/lsmkv/block"
	"github.com/arvidw/lsmkv/cache"
	"github.com/arvidw/lsmkv/common"
)

// BlockMeta records where a data block begins in the file and the
// smallest key it holds.
type BlockMeta struct {
	Offset   uint32
	FirstKey []byte
}

// trailerSize is the width, in bytes, of the fixed footer appended
// after the meta index: a single big-endian u32 giving the byte
// offset where the meta index begins.
const trailerSize = 4

func encodeMeta(metas []BlockMeta) []byte {
	var buf []byte
	for _, m := range metas {
		buf = binary.BigEndian.AppendUint32(buf, m.Offset)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(m.FirstKey)))
		buf = append(buf, m.FirstKey...)
	}
	return buf
}

func decodeMeta(raw []byte) ([]BlockMeta, error) {
	var metas []BlockMeta
	pos := 0
	for pos < len(raw) {
		if pos+6 > len(raw) {
			return nil, fmt.Errorf("decode sst meta: %w: truncated entry header", common.ErrCorrupt)
		}
		offset := binary.BigEndian.Uint32(raw[pos:])
		pos += 4
		keyLen := int(binary.BigEndian.Uint16(raw[pos:]))
		pos += 2
		if pos+keyLen > len(raw) {
			return nil, fmt.Errorf("decode sst meta: %w: truncated first key", common.ErrCorrupt)
		}
		key := make([]byte, keyLen)
		copy(key, raw[pos:pos+keyLen])
		pos += keyLen
		metas = append(metas, BlockMeta{Offset: offset, FirstKey: key})
	}
	return metas, nil
}

// Path builds the conventional filename for SST id under dir: a
// five-digit zero-padded decimal id followed by ".sst".
func Path(dir string, id uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%05d.sst", id))
}

// SSTable is an immutable, already-flushed table backed by a file on
// disk. Its block index is loaded once at Open; individual blocks are
// read (and optionally cached) on demand.
type SSTable struct {
	file       *os.File
	id         uint64
	metaOffset uint32
	metas      []BlockMeta
	cache      *cache.BlockCache
	filter     *Filter
}

// Open parses an existing SST file's trailer and meta index, and
// loads its sidecar filter if one is present. c may be nil to disable
// block caching for this table.
func Open(id uint64, path string, c *cache.BlockCache) (*SSTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	size := stat.Size()
	if size < trailerSize {
		file.Close()
		return nil, fmt.Errorf("open sst %d: %w: file smaller than trailer", id, common.ErrCorrupt)
	}

	trailer := make([]byte, trailerSize)
	if _, err := file.ReadAt(trailer, size-trailerSize); err != nil {
		file.Close()
		return nil, err
	}
	metaOffset := binary.BigEndian.Uint32(trailer)
	if int64(metaOffset) > size-trailerSize {
		file.Close()
		return nil, fmt.Errorf("open sst %d: %w: meta offset past end of file", id, common.ErrCorrupt)
	}

	metaRaw := make([]byte, size-trailerSize-int64(metaOffset))
	if _, err := file.ReadAt(metaRaw, int64(metaOffset)); err != nil {
		file.Close()
		return nil, err
	}
	metas, err := decodeMeta(metaRaw)
	if err != nil {
		file.Close()
		return nil, err
	}

	filter, err := ReadFilter(path)
	if err != nil {
		// The filter is an optimization layered outside the core
		// format; a damaged sidecar degrades to no-filter rather than
		// failing the open.
		filter = nil
	}

	return &SSTable{
		file:       file,
		id:         id,
		metaOffset: metaOffset,
		metas:      metas,
		cache:      c,
		filter:     filter,
	}, nil
}

// ID returns the table's identifier.
func (t *SSTable) ID() uint64 { return t.id }

// NumBlocks returns the number of data blocks in the table.
func (t *SSTable) NumBlocks() int { return len(t.metas) }

// FirstKey returns the smallest key in the table, or nil if the table
// has no blocks.
func (t *SSTable) FirstKey() []byte {
	if len(t.metas) == 0 {
		return nil
	}
	return t.metas[0].FirstKey
}

// MayContain reports whether key could be present, using the
// sidecar bloom filter when one was loaded.
func (t *SSTable) MayContain(key []byte) bool {
	return t.filter.MayContain(key)
}

// FindBlockIdx returns the index of the unique block that may contain
// key: the block with the largest first key <= key. If key is below
// every block's first key, it returns 0.
func (t *SSTable) FindBlockIdx(key []byte) int {
	n := len(t.metas)
	idx := sort.Search(n, func(i int) bool {
		return bytes.Compare(t.metas[i].FirstKey, key) > 0
	})
	if idx == 0 {
		return 0
	}
	return idx - 1
}

func (t *SSTable) blockRange(idx int) (start, end uint32) {
	start = t.metas[idx].Offset
	if idx+1 < len(t.metas) {
		end = t.metas[idx+1].Offset
	} else {
		end = t.metaOffset
	}
	return start, end
}

// ReadBlock reads and decodes block idx directly from disk, bypassing
// the cache.
func (t *SSTable) ReadBlock(idx int) (*block.Block, error) {
	if idx < 0 || idx >= len(t.metas) {
		return nil, fmt.Errorf("read block %d of sst %d: %w: index out of range", idx, t.id, common.ErrCorrupt)
	}
	start, end := t.blockRange(idx)
	raw := make([]byte, end-start)
	if _, err := t.file.ReadAt(raw, int64(start)); err != nil {
		return nil, err
	}
	if t.filter != nil && !t.filter.VerifyBlock(idx, raw) {
		return nil, fmt.Errorf("read block %d of sst %d: %w: checksum mismatch", idx, t.id, common.ErrCorrupt)
	}
	return block.Decode(raw)
}

// ReadBlockCached reads block idx through the table's block cache,
// falling back to an uncached read when no cache was configured.
func (t *SSTable) ReadBlockCached(idx int) (*block.Block, error) {
	if t.cache == nil {
		return t.ReadBlock(idx)
	}
	key := cache.MakeKey(t.id, idx)
	return t.cache.GetOrLoad(key, func() (*block.Block, error) {
		return t.ReadBlock(idx)
	})
}

// Close closes the underlying file.
func (t *SSTable) Close() error {
	return t.file.Close()
}
