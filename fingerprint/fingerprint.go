// Duplicate-content detection over a global hash -> occurrence-count index.
//
// Content is normalized (case folded, whitespace collapsed) before hashing,
// so near-identical blasts of the same message to many recipients collapse to
// one fingerprint. The index is lossy: the janitor periodically compacts it
// down to a configured budget using a pluggable eviction strategy.
package fingerprint

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Marseau/sendguard/keyword"
)

// Hash returns the fingerprint for a message body. Inputs that differ only in
// case or surrounding/internal whitespace runs hash identically.
func Hash(content string) uint64 {
	return xxhash.Sum64String(keyword.Normalize(content))
}

type Index interface {
	// Increment bumps the occurrence count for a fingerprint and returns the
	// new count. Called when a message is actually sent.
	Increment(ctx context.Context, fp uint64) (int, error)
	// Count returns the current occurrence count without mutating it, so
	// that checking a candidate message does not itself count as a send.
	Count(ctx context.Context, fp uint64) (int, error)
	// Compact trims the index down to its budget, returning how many
	// fingerprints were evicted.
	Compact(ctx context.Context, now time.Time) (int, error)
	Size() int
}
