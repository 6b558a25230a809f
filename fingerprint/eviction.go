package fingerprint

import (
	"fmt"
	"sort"
	"time"
)

// Entry is a snapshot of one indexed fingerprint, handed to eviction
// strategies during compaction.
type Entry struct {
	Fingerprint uint64
	Count       int
	LastSeen    time.Time
}

// EvictionStrategy selects which fingerprints to discard when the index
// exceeds its budget.
//
// Keeping the highest raw counts matches the original cleanup policy, but
// can starve a newly emerging burst of a previously rare message; the
// recency strategy trades that off the other way. Which one runs is a
// configuration choice.
type EvictionStrategy interface {
	Name() string
	// Victims returns the fingerprints to evict so that at most budget
	// entries remain. The input slice may be reordered.
	Victims(entries []Entry, budget int) []uint64
}

// TopK keeps the most frequent fingerprints, discarding the rest regardless
// of how recently they were seen.
type TopK struct{}

func (TopK) Name() string { return "topk" }

func (TopK) Victims(entries []Entry, budget int) []uint64 {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})
	return tail(entries, budget)
}

// Recency keeps the most recently seen fingerprints, so a fresh burst
// survives compaction even before its count catches up.
type Recency struct{}

func (Recency) Name() string { return "recency" }

func (Recency) Victims(entries []Entry, budget int) []uint64 {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})
	return tail(entries, budget)
}

func tail(entries []Entry, budget int) []uint64 {
	if budget < 0 {
		budget = 0
	}
	if len(entries) <= budget {
		return nil
	}
	out := make([]uint64, 0, len(entries)-budget)
	for _, e := range entries[budget:] {
		out = append(out, e.Fingerprint)
	}
	return out
}

func StrategyByName(name string) (EvictionStrategy, error) {
	switch name {
	case "", "topk":
		return TopK{}, nil
	case "recency":
		return Recency{}, nil
	}
	return nil, fmt.Errorf("not a fingerprint eviction strategy: %q", name)
}
