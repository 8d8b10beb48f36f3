// Package lsm wires the block, table, mem, iter, and cache packages
// into the storage engine: RCU-published state, the read path across
// memtable/immutables/L0, and the flush protocol that turns a frozen
// memtable into a new on-disk SST.
package lsm

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/arvidw/lsmkv/bound"
	"github.com/arvidw/lsmkv/cache"
	"github.com/arvidw/lsmkv/common"
	"github.com/arvidw/lsmkv/iter"
	"github.com/arvidw/lsmkv/mem"
	"github.com/arvidw/lsmkv/table"
	"github.com/google/uuid"
)

// Config configures an Engine.
type Config struct {
	DataDir string

	// BlockSize bounds the size in bytes of each SST data block.
	BlockSize int

	// BlockCacheBlocks bounds how many decoded blocks the shared block
	// cache holds at once. Tuning knob only, not part of the contract.
	BlockCacheBlocks int
}

// DefaultConfig returns sane defaults rooted at dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:          dataDir,
		BlockSize:        4096,
		BlockCacheBlocks: 1024,
	}
}

// Engine is the embedded LSM storage engine.
type Engine struct {
	cfg Config

	// instanceID tags this engine's log lines, so output from several
	// engines opened in the same process (tests, benchmarks) can be
	// told apart.
	instanceID string

	mu      sync.RWMutex
	st      *state
	flushMu sync.Mutex

	cache *cache.BlockCache

	writeCount atomic.Int64
	readCount  atomic.Int64
	flushCount atomic.Int64
}

var _ common.StorageEngine = (*Engine)(nil)

// Open creates the data directory if needed and returns a fresh,
// empty engine. There is no crash recovery: any SSTs already present
// in dataDir from a prior run are not loaded, matching the no-WAL,
// no-durability scope this engine implements.
func Open(cfg Config) (*Engine, error) {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultConfig(cfg.DataDir).BlockSize
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("lsm: open %s: %w", cfg.DataDir, err)
	}

	e := &Engine{
		cfg:        cfg,
		instanceID: uuid.NewString(),
		st:         newState(),
		cache:      cache.New(cfg.BlockCacheBlocks),
	}
	log.Printf("lsm[%s]: engine opened at %s", e.instanceID, cfg.DataDir)
	return e, nil
}

// snapshot is the reader side of the RCU discipline: clone the
// pointer to the published state under the outer lock's shared mode,
// then release it. The returned state is never mutated in place.
func (e *Engine) snapshot() *state {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st
}

// Put stores key with value. Both must be non-empty; store a
// tombstone with Delete instead of an empty-valued Put.
func (e *Engine) Put(key, value []byte) error {
	if len(value) == 0 {
		return common.ErrValueEmpty
	}
	return e.put(key, value)
}

// Delete stores a tombstone for key, suppressing any earlier value.
func (e *Engine) Delete(key []byte) error {
	return e.put(key, nil)
}

func (e *Engine) put(key, value []byte) error {
	if len(key) == 0 {
		return common.ErrKeyEmpty
	}
	if len(key) > common.MaxKeyLen {
		return common.ErrKeyTooBig
	}
	if len(value) > common.MaxValueLen {
		return common.ErrValueTooBig
	}

	// The memtable's own container is internally concurrent, so a
	// shared lock on the outer state is enough: multiple writers may
	// Put through the same memtable at once.
	e.mu.RLock()
	e.st.memtable.Put(key, value)
	e.mu.RUnlock()

	e.writeCount.Add(1)
	return nil
}

// Get returns the current value for key, or common.ErrKeyNotFound if
// it is absent or was deleted.
func (e *Engine) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, common.ErrKeyEmpty
	}
	e.readCount.Add(1)
	st := e.snapshot()

	if v, ok := st.memtable.Get(key); ok {
		return tombstoneToNotFound(v)
	}
	for i := len(st.immutables) - 1; i >= 0; i-- {
		if v, ok := st.immutables[i].Get(key); ok {
			return tombstoneToNotFound(v)
		}
	}
	if len(st.l0) == 0 {
		return nil, common.ErrKeyNotFound
	}

	sources := make([]iter.Iterator, 0, len(st.l0))
	for i := len(st.l0) - 1; i >= 0; i-- {
		sst := st.l0[i]
		if !sst.MayContain(key) {
			continue
		}
		it, err := table.CreateAndSeekToKey(sst, key)
		if err != nil {
			return nil, fmt.Errorf("lsm: get %q: %w", key, err)
		}
		sources = append(sources, it)
	}
	if len(sources) == 0 {
		return nil, common.ErrKeyNotFound
	}

	m := iter.NewMergeIterator(sources)
	if err := m.Error(); err != nil {
		return nil, fmt.Errorf("lsm: get %q: %w", key, err)
	}
	if !m.IsValid() || !bytes.Equal(m.Key(), key) {
		return nil, common.ErrKeyNotFound
	}
	return tombstoneToNotFound(m.Value())
}

func tombstoneToNotFound(value []byte) ([]byte, error) {
	if len(value) == 0 {
		return nil, common.ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

// Scan returns an ascending iterator over entries between lower and
// upper (each bound inclusive, exclusive or unbounded by its Kind),
// merging the mutable memtable, every immutable memtable, and every L0
// SST into one view with tombstones elided.
func (e *Engine) Scan(lower, upper bound.Bound) (*iter.FusedIterator, error) {
	e.readCount.Add(1)
	st := e.snapshot()

	memSources := make([]iter.Iterator, 0, 1+len(st.immutables))
	memSources = append(memSources, st.memtable.Scan(lower, upper))
	for i := len(st.immutables) - 1; i >= 0; i-- {
		memSources = append(memSources, st.immutables[i].Scan(lower, upper))
	}
	memMerge := iter.NewMergeIterator(memSources)
	if err := memMerge.Error(); err != nil {
		return nil, fmt.Errorf("lsm: scan: %w", err)
	}

	sstSources := make([]iter.Iterator, 0, len(st.l0))
	for i := len(st.l0) - 1; i >= 0; i-- {
		it, err := seekSST(st.l0[i], lower)
		if err != nil {
			return nil, fmt.Errorf("lsm: scan: %w", err)
		}
		sstSources = append(sstSources, it)
	}
	sstMerge := iter.NewMergeIterator(sstSources)
	if err := sstMerge.Error(); err != nil {
		return nil, fmt.Errorf("lsm: scan: %w", err)
	}

	two, err := iter.NewTwoMergeIterator(memMerge, sstMerge)
	if err != nil {
		return nil, fmt.Errorf("lsm: scan: %w", err)
	}
	lsmIt, err := iter.NewLsmIterator(two, upper)
	if err != nil {
		return nil, fmt.Errorf("lsm: scan: %w", err)
	}
	return iter.NewFusedIterator(lsmIt), nil
}

func seekSST(sst *table.SSTable, lower bound.Bound) (*table.Iterator, error) {
	if lower.Kind == bound.Unbounded {
		return table.CreateAndSeekToFirst(sst)
	}
	it, err := table.CreateAndSeekToKey(sst, lower.Key)
	if err != nil {
		return it, err
	}
	if lower.Kind == bound.Excluded {
		for it.IsValid() && bytes.Equal(it.Key(), lower.Key) {
			if err := it.Next(); err != nil {
				return it, err
			}
		}
	}
	return it, nil
}

// Sync runs the flush protocol: freeze the mutable memtable, write it
// to a new L0 SST, and publish the result. flushMu serializes flushes
// so at most one runs at a time. The freeze (step 2) holds the outer
// state lock only to swap in the new state; the file write (step 3)
// happens outside it, so readers and writers are never blocked on I/O.
func (e *Engine) Sync() error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.mu.Lock()
	frozen := e.st.memtable
	next := e.st.clone()
	next.memtable = mem.New()
	next.immutables = append(next.immutables, frozen)
	sstID := next.nextSSTID
	e.st = next
	e.mu.Unlock()

	if frozen.Len() == 0 {
		e.publishAfterFlush(frozen, nil, sstID, false)
		return nil
	}

	path := table.Path(e.cfg.DataDir, sstID)
	builder := table.NewBuilder(e.cfg.BlockSize, frozen.Len())
	it := frozen.Scan(bound.UnboundedBound(), bound.UnboundedBound())
	for it.IsValid() {
		if err := builder.Add(it.Key(), it.Value()); err != nil {
			return fmt.Errorf("lsm: sync: building sst %d: %w", sstID, err)
		}
		if err := it.Next(); err != nil {
			return fmt.Errorf("lsm: sync: building sst %d: %w", sstID, err)
		}
	}

	sst, err := builder.Build(sstID, path, e.cache)
	if err != nil {
		// The frozen memtable stays parked in immutables, where Get and
		// Scan still see it, and nextSSTID is not advanced. A later Sync
		// does not flush it: it freezes and flushes only the memtable
		// that is current at that time, reusing the same sstID.
		return fmt.Errorf("lsm: sync: flushing sst %d: %w", sstID, err)
	}

	e.publishAfterFlush(frozen, sst, sstID, true)
	e.flushCount.Add(1)
	log.Printf("lsm[%s]: flushed memtable to %s (%d entries)", e.instanceID, path, frozen.Len())
	return nil
}

// publishAfterFlush removes the just-flushed memtable from the
// immutable list by identity rather than by popping either end of the
// slice, and, on success, appends the new SST and advances nextSSTID.
func (e *Engine) publishAfterFlush(frozen *mem.Table, sst *table.SSTable, sstID uint64, advanceID bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.st.clone()
	out := cur.immutables[:0:0]
	for _, m := range cur.immutables {
		if m != frozen {
			out = append(out, m)
		}
	}
	cur.immutables = out
	if sst != nil {
		cur.l0 = append(cur.l0, sst)
	}
	if advanceID {
		cur.nextSSTID = sstID + 1
	}
	e.st = cur
}

// Close flushes any pending writes and releases open file handles.
func (e *Engine) Close() error {
	if err := e.Sync(); err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, sst := range e.st.l0 {
		if err := sst.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Stats reports current engine counters.
func (e *Engine) Stats() common.Stats {
	st := e.snapshot()
	hits, misses := e.cache.Stats()
	return common.Stats{
		WriteCount:     e.writeCount.Load(),
		ReadCount:      e.readCount.Load(),
		FlushCount:     e.flushCount.Load(),
		MemtableBytes:  int64(st.memtable.SizeBytes()),
		ImmutableCount: len(st.immutables),
		L0TableCount:   len(st.l0),
		NextSSTableID:  st.nextSSTID,
		BlockCacheHits: hits,
		BlockCacheMiss: misses,
	}
}
