package fingerprint

import (
	"context"
	"sync"
	"time"
)

const numShards = 64

// MemIndex is a sharded in-process fingerprint index. All recipients and
// tenants contend on it, so entries are spread over shards keyed by hash
// prefix, each behind its own RWMutex. Compaction takes the same shard locks
// as the hot path.
type MemIndex struct {
	budget   int
	strategy EvictionStrategy
	shards   [numShards]indexShard
}

type indexShard struct {
	mu      sync.RWMutex
	entries map[uint64]*indexEntry
}

type indexEntry struct {
	count    int
	lastSeen time.Time
}

func NewMemIndex(budget int, strategy EvictionStrategy) *MemIndex {
	idx := &MemIndex{budget: budget, strategy: strategy}
	for i := range idx.shards {
		idx.shards[i].entries = make(map[uint64]*indexEntry)
	}
	return idx
}

func (idx *MemIndex) shard(fp uint64) *indexShard {
	return &idx.shards[fp%numShards]
}

func (idx *MemIndex) Increment(ctx context.Context, fp uint64) (int, error) {
	sh := idx.shard(fp)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[fp]
	if !ok {
		e = &indexEntry{}
		sh.entries[fp] = e
	}
	e.count++
	e.lastSeen = time.Now()
	return e.count, nil
}

func (idx *MemIndex) Count(ctx context.Context, fp uint64) (int, error) {
	sh := idx.shard(fp)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	e, ok := sh.entries[fp]
	if !ok {
		return 0, nil
	}
	return e.count, nil
}

func (idx *MemIndex) Compact(ctx context.Context, now time.Time) (int, error) {
	// snapshot shard by shard; compaction is lossy anyway, so entries
	// written between snapshot and delete just survive until the next sweep
	var snapshot []Entry
	for i := range idx.shards {
		sh := &idx.shards[i]
		sh.mu.RLock()
		for fp, e := range sh.entries {
			snapshot = append(snapshot, Entry{Fingerprint: fp, Count: e.count, LastSeen: e.lastSeen})
		}
		sh.mu.RUnlock()
	}
	victims := idx.strategy.Victims(snapshot, idx.budget)
	for _, fp := range victims {
		sh := idx.shard(fp)
		sh.mu.Lock()
		delete(sh.entries, fp)
		sh.mu.Unlock()
	}
	return len(victims), nil
}

func (idx *MemIndex) Size() int {
	n := 0
	for i := range idx.shards {
		sh := &idx.shards[i]
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

var _ Index = (*MemIndex)(nil)
