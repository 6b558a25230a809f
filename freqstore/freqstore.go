// Per-recipient sliding-window send frequency tracking.
//
// Each tracked recipient has an ordered history of send timestamps; checks
// count backward from "now" over hour/day/week windows. History older than
// the retention period is pruned lazily on access and in bulk by the janitor,
// so stored state stays bounded between sweeps.
package freqstore

import (
	"context"
	"time"

	"github.com/Marseau/sendguard/risk"
)

const (
	WindowHour = "hour"
	WindowDay  = "day"
	WindowWeek = "week"
)

// Limits holds the frequency thresholds. A count equal to the limit already
// violates the window.
type Limits struct {
	MaxPerHour int
	MaxPerDay  int
	MaxPerWeek int
	// Retention is how far back send history is kept. Must cover the widest
	// window (one week).
	Retention time.Duration
	// Grace is how long an empty record lingers after first contact before
	// the janitor reclaims it.
	Grace time.Duration
}

// Check is the outcome of a frequency evaluation. When blocked, Window,
// Reason, Count and Limit describe the first violated window in
// hour -> day -> week order.
type Check struct {
	Allowed bool
	Window  string
	Reason  string
	Count   int
	Limit   int
}

type PruneStats struct {
	Recipients        int
	RemovedRecipients int
	RemovedStamps     int
}

type Stats struct {
	TrackedRecipients int
	ActiveRecipients  int // recipients with at least one send in the past day
	MessagesPastDay   int
}

type FrequencyStore interface {
	// Check evaluates the hour, day and week windows in that order and
	// reports the first violation. A recipient with no history is allowed.
	Check(ctx context.Context, recipient string, now time.Time) (Check, error)
	// RecordSend appends a send timestamp for the recipient. Call exactly
	// once per dispatched message.
	RecordSend(ctx context.Context, recipient string, now time.Time) error
	// CountSince returns the number of sends to the recipient strictly after
	// the given instant. Used for rapid-fire detection.
	CountSince(ctx context.Context, recipient string, since time.Time) (int, error)
	// Prune drops expired history and reclaims empty records.
	Prune(ctx context.Context, now time.Time) (PruneStats, error)
	// ReadStats summarizes tracked state for health reporting.
	ReadStats(ctx context.Context, now time.Time) (Stats, error)
}

// evaluate applies the shared window rules to pre-computed counts.
func evaluate(hour, day, week int, lim Limits) Check {
	if lim.MaxPerHour > 0 && hour >= lim.MaxPerHour {
		return Check{Window: WindowHour, Reason: risk.ReasonHourlyLimit, Count: hour, Limit: lim.MaxPerHour}
	}
	if lim.MaxPerDay > 0 && day >= lim.MaxPerDay {
		return Check{Window: WindowDay, Reason: risk.ReasonDailyLimit, Count: day, Limit: lim.MaxPerDay}
	}
	if lim.MaxPerWeek > 0 && week >= lim.MaxPerWeek {
		return Check{Window: WindowWeek, Reason: risk.ReasonWeeklyLimit, Count: week, Limit: lim.MaxPerWeek}
	}
	return Check{Allowed: true}
}
