// Package block implements the on-disk block format: a sorted run of
// key-value entries packed into a fixed-size byte buffer, plus the
// builder that accumulates entries into one.
//
// Wire format (all integers big-endian / network order):
//
//	entries: for each entry  key_len:u16 | key | value_len:u16 | value
//	offsets: num_entries x u16 (byte offset of each entry within entries)
//	trailer: num_entries:u16
package block

import (
	"encoding/binary"
	"fmt"

	"github.com/arvidw/lsmkv/common"
)

// Block is the decoded form of one on-disk block: the raw entry bytes
// plus the offset of each entry within them. Entries are strictly
// ascending by key; Offsets[i] is the byte at which entry i begins.
type Block struct {
	Data    []byte
	Offsets []uint16
}

// Encode serializes a Block back to its on-disk byte layout.
func Encode(b *Block) []byte {
	buf := make([]byte, 0, len(b.Data)+2*len(b.Offsets)+2)
	buf = append(buf, b.Data...)
	for _, off := range b.Offsets {
		buf = binary.BigEndian.AppendUint16(buf, off)
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(b.Offsets)))
	return buf
}

// Decode parses the on-disk layout back into a Block. The trailing
// num_entries is read first to locate the offsets region, and the
// prefix is treated as the entry area.
func Decode(raw []byte) (*Block, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("decode block: %w: truncated trailer", common.ErrCorrupt)
	}
	numEntries := int(binary.BigEndian.Uint16(raw[len(raw)-2:]))

	offsetsStart := len(raw) - 2 - 2*numEntries
	if offsetsStart < 0 {
		return nil, fmt.Errorf("decode block: %w: offsets region overruns buffer", common.ErrCorrupt)
	}

	offsets := make([]uint16, numEntries)
	for i := 0; i < numEntries; i++ {
		offsets[i] = binary.BigEndian.Uint16(raw[offsetsStart+2*i:])
	}

	data := make([]byte, offsetsStart)
	copy(data, raw[:offsetsStart])

	return &Block{Data: data, Offsets: offsets}, nil
}

// entryAt decodes the key and value of the entry starting at byte
// offset off within data.
func entryAt(data []byte, off uint16) (key, value []byte, err error) {
	pos := int(off)
	if pos+2 > len(data) {
		return nil, nil, fmt.Errorf("decode entry: %w: truncated key length", common.ErrCorrupt)
	}
	keyLen := int(binary.BigEndian.Uint16(data[pos:]))
	pos += 2
	if pos+keyLen+2 > len(data) {
		return nil, nil, fmt.Errorf("decode entry: %w: truncated key", common.ErrCorrupt)
	}
	key = data[pos : pos+keyLen]
	pos += keyLen
	valLen := int(binary.BigEndian.Uint16(data[pos:]))
	pos += 2
	if pos+valLen > len(data) {
		return nil, nil, fmt.Errorf("decode entry: %w: truncated value", common.ErrCorrupt)
	}
	value = data[pos : pos+valLen]
	return key, value, nil
}
