package lsm

import (
	"github.com/arvidw/lsmkv/mem"
	"github.com/arvidw/lsmkv/table"
)

// numLevels is the count of compacted levels (L1-L6) the state
// reserves room for. Nothing ever populates them: compaction across
// levels is out of scope, so these stay empty slices for the lifetime
// of the engine.
const numLevels = 6

// state is the engine's composite view at one instant: the mutable
// memtable, the stack of frozen-but-unflushed memtables (oldest
// first), the set of L0 SSTs (oldest first; ranges may overlap, so
// readers traverse newest-first), and the L1-L6 placeholder compaction
// never fills in. It is never mutated in place — every write publishes
// a whole new state, which is the RCU discipline Engine.snapshot,
// Engine.Sync and Engine.publishAfterFlush implement.
type state struct {
	memtable   *mem.Table
	immutables []*mem.Table
	l0         []*table.SSTable
	levels     [][]*table.SSTable // L1..L6; always empty, never consulted
	nextSSTID  uint64
}

func newState() *state {
	return &state{memtable: mem.New(), levels: make([][]*table.SSTable, numLevels), nextSSTID: 1}
}

// clone returns a shallow copy: the slices are copied (so appends
// don't alias the published state) but the memtable and SSTable
// pointers are shared, since both are themselves safe for concurrent
// read access.
func (s *state) clone() *state {
	c := &state{
		memtable:  s.memtable,
		nextSSTID: s.nextSSTID,
	}
	c.immutables = append([]*mem.Table(nil), s.immutables...)
	c.l0 = append([]*table.SSTable(nil), s.l0...)
	c.levels = append([][]*table.SSTable(nil), s.levels...)
	return c
}
