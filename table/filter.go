package table

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/cespare/xxhash/v2"
)

// Filter is the optional sidecar written next to an SST's data file:
// a bloom filter over every key in the table, plus a per-block
// xxhash64 checksum. Neither participates in the core wire format;
// both live in a separate <sst path>.filter file (e.g. 00001.sst.filter)
// so a reader that doesn't
// care about them never has to skip past their bytes.
type Filter struct {
	bloom     *bloom.BloomFilter
	checksums []uint64
}

// NewFilter allocates a filter sized for approximately expectedKeys
// entries at a 1% false-positive rate.
func NewFilter(expectedKeys int) *Filter {
	return &Filter{bloom: bloom.NewWithEstimates(uint(max(expectedKeys, 1)), 0.01)}
}

// AddKey records key in the bloom filter.
func (f *Filter) AddKey(key []byte) { f.bloom.Add(key) }

// AddBlockChecksum records the checksum of one encoded block, in
// block-index order.
func (f *Filter) AddBlockChecksum(encoded []byte) {
	f.checksums = append(f.checksums, xxhash.Sum64(encoded))
}

// MayContain reports whether key could be present in the table. A nil
// filter (no sidecar on disk) always answers true.
func (f *Filter) MayContain(key []byte) bool {
	if f == nil || f.bloom == nil {
		return true
	}
	return f.bloom.Test(key)
}

// VerifyBlock reports whether encoded matches the checksum recorded
// for block idx. A nil filter, or an index beyond what was recorded,
// always verifies.
func (f *Filter) VerifyBlock(idx int, encoded []byte) bool {
	if f == nil || idx >= len(f.checksums) {
		return true
	}
	return xxhash.Sum64(encoded) == f.checksums[idx]
}

func filterPath(sstPath string) string { return sstPath + ".filter" }

// WriteTo persists the filter alongside sstPath.
func (f *Filter) WriteTo(sstPath string) error {
	file, err := os.Create(filterPath(sstPath))
	if err != nil {
		return err
	}
	defer file.Close()

	hdr := make([]byte, 4)
	binary.BigEndian.PutUint32(hdr, uint32(len(f.checksums)))
	if _, err := file.Write(hdr); err != nil {
		return err
	}
	for _, sum := range f.checksums {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], sum)
		if _, err := file.Write(b[:]); err != nil {
			return err
		}
	}
	_, err = f.bloom.WriteTo(file)
	return err
}

// ReadFilter loads the sidecar for sstPath. A missing sidecar is not
// an error: it returns (nil, nil), and callers treat the table as
// having no filter.
func ReadFilter(sstPath string) (*Filter, error) {
	file, err := os.Open(filterPath(sstPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	hdr := make([]byte, 4)
	if _, err := io.ReadFull(file, hdr); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr)
	checksums := make([]uint64, n)
	for i := range checksums {
		var b [8]byte
		if _, err := io.ReadFull(file, b[:]); err != nil {
			return nil, err
		}
		checksums[i] = binary.BigEndian.Uint64(b[:])
	}

	bf := &bloom.BloomFilter{}
	if _, err := bf.ReadFrom(file); err != nil {
		return nil, err
	}
	return &Filter{bloom: bf, checksums: checksums}, nil
}
