package freqstore

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const numShards = 64

// MemFrequencyStore keeps send history in lock-striped in-process maps.
// A shard lock covers every read-modify-write for the keys it holds, so a
// check-then-record sequence for one recipient cannot interleave with a
// concurrent write for that same recipient, while unrelated recipients land
// on other shards and proceed in parallel. The janitor takes the same shard
// locks during pruning.
type MemFrequencyStore struct {
	limits Limits
	shards [numShards]freqShard
}

type freqShard struct {
	mu   sync.Mutex
	recs map[string]*record
}

type record struct {
	// send timestamps, non-decreasing
	stamps       []time.Time
	firstContact time.Time
}

func NewMemFrequencyStore(limits Limits) *MemFrequencyStore {
	s := &MemFrequencyStore{limits: limits}
	for i := range s.shards {
		s.shards[i].recs = make(map[string]*record)
	}
	return s
}

func (s *MemFrequencyStore) shard(recipient string) *freqShard {
	return &s.shards[xxhash.Sum64String(recipient)%numShards]
}

func (s *MemFrequencyStore) Check(ctx context.Context, recipient string, now time.Time) (Check, error) {
	sh := s.shard(recipient)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.recs[recipient]
	if !ok {
		// new recipient, unconditionally allowed on this check
		return Check{Allowed: true}, nil
	}
	rec.pruneBefore(now.Add(-s.limits.Retention))

	var hour, day, week int
	for _, ts := range rec.stamps {
		if ts.After(now.Add(-time.Hour)) {
			hour++
		}
		if ts.After(now.Add(-24 * time.Hour)) {
			day++
		}
		if ts.After(now.Add(-7 * 24 * time.Hour)) {
			week++
		}
	}
	return evaluate(hour, day, week, s.limits), nil
}

func (s *MemFrequencyStore) RecordSend(ctx context.Context, recipient string, now time.Time) error {
	sh := s.shard(recipient)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.recs[recipient]
	if !ok {
		rec = &record{firstContact: now}
		sh.recs[recipient] = rec
	}
	rec.stamps = append(rec.stamps, now)
	return nil
}

func (s *MemFrequencyStore) CountSince(ctx context.Context, recipient string, since time.Time) (int, error) {
	sh := s.shard(recipient)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.recs[recipient]
	if !ok {
		return 0, nil
	}
	n := 0
	for _, ts := range rec.stamps {
		if ts.After(since) {
			n++
		}
	}
	return n, nil
}

func (s *MemFrequencyStore) Prune(ctx context.Context, now time.Time) (PruneStats, error) {
	var stats PruneStats
	cutoff := now.Add(-s.limits.Retention)
	grace := now.Add(-s.limits.Grace)
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for key, rec := range sh.recs {
			stats.RemovedStamps += rec.pruneBefore(cutoff)
			if len(rec.stamps) == 0 && rec.firstContact.Before(grace) {
				delete(sh.recs, key)
				stats.RemovedRecipients++
			}
		}
		stats.Recipients += len(sh.recs)
		sh.mu.Unlock()
	}
	return stats, nil
}

func (s *MemFrequencyStore) ReadStats(ctx context.Context, now time.Time) (Stats, error) {
	var stats Stats
	dayAgo := now.Add(-24 * time.Hour)
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		stats.TrackedRecipients += len(sh.recs)
		for _, rec := range sh.recs {
			recent := 0
			for _, ts := range rec.stamps {
				if ts.After(dayAgo) {
					recent++
				}
			}
			if recent > 0 {
				stats.ActiveRecipients++
				stats.MessagesPastDay += recent
			}
		}
		sh.mu.Unlock()
	}
	return stats, nil
}

// pruneBefore drops timestamps at or before the cutoff and returns how many
// were removed. Timestamps are non-decreasing, so this is a prefix cut.
func (r *record) pruneBefore(cutoff time.Time) int {
	idx := 0
	for idx < len(r.stamps) && !r.stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return 0
	}
	r.stamps = append([]time.Time(nil), r.stamps[idx:]...)
	return idx
}

var _ FrequencyStore = (*MemFrequencyStore)(nil)
