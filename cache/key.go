package cache

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Key identifies one cached block by (SST id, block index), folded
// into a single uint64 via xxhash so the cache's hot path is a plain
// map lookup rather than a struct comparison.
type Key uint64

// MakeKey derives the cache key for block blockIdx of the SST with the
// given id.
func MakeKey(sstID uint64, blockIdx int) Key {
	var buf [12]byte
	binary.BigEndian.PutUint64(buf[0:8], sstID)
	binary.BigEndian.PutUint32(buf[8:12], uint32(blockIdx))
	return Key(xxhash.Sum64(buf[:]))
}
