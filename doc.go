// Admission-control engine for outbound messaging, deciding per message
// whether sending it to a given recipient is likely to trigger provider-side
// anti-abuse enforcement (spam blocks, account bans).
//
// This package (`github.com/Marseau/sendguard`) composes sliding-window
// frequency tracking, duplicate-content fingerprinting, content heuristics,
// template throttling and historical-engagement scoring into a single
// auditable decision. It is an embedded library with no wire protocol of its
// own; the engine is explicitly fail-open, so a degraded external dependency
// can make it overly permissive but never block the send pipeline.
//
// See `cmd/sendguard` for a daemon built on this package.
package sendguard
