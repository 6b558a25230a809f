// Historical-engagement risk scoring. An external conversation log is
// queried for the trailing window and reduced to response-rate and confidence
// aggregates; recipients who never answer a long run of business messages are
// flagged as high risk.
//
// This is the only component doing blocking external I/O, and it is
// explicitly fail-open: a failed or timed-out query yields an "unknown"
// assessment, never an error, so a conversation-log outage can not stall or
// reject outbound traffic.
package engagement

import (
	"context"
	"log/slog"
	"time"

	"github.com/Marseau/sendguard/risk"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one conversation-log row, as returned by the external store.
type Entry struct {
	Role       string
	Time       time.Time
	Confidence float64
}

// ConversationLogReader is the read-only query surface of the external
// conversation-storage subsystem.
type ConversationLogReader interface {
	Query(ctx context.Context, tenantID, recipient string, since time.Time) ([]Entry, error)
}

// Snapshot holds per-call aggregates. It is recomputed on every assessment,
// never cached: either fresh, or the whole assessment is marked unknown.
type Snapshot struct {
	BusinessMessages int
	UserMessages     int
	TotalEntries     int
	ResponseRate     float64
	AvgConfidence    float64
}

type Assessment struct {
	Level    risk.Level
	Reasons  []string
	Snapshot Snapshot
}

type Analyzer struct {
	Reader ConversationLogReader
	Logger *slog.Logger
	// trailing window to aggregate over
	Window time.Duration
	// below this response rate (with enough business messages) a recipient
	// is considered disengaged
	MinResponseRate float64
	MinConfidence   float64
	// minimum business messages / total entries before the respective rules fire
	MinBusinessMessages int
	MinTotalEntries     int
}

func NewAnalyzer(reader ConversationLogReader, logger *slog.Logger, minResponseRate float64, window time.Duration) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return &Analyzer{
		Reader:              reader,
		Logger:              logger.With("component", "engagement"),
		Window:              window,
		MinResponseRate:     minResponseRate,
		MinConfidence:       0.3,
		MinBusinessMessages: 10,
		MinTotalEntries:     5,
	}
}

// Assess queries the conversation log and classifies the recipient. It never
// returns an error; dependency failures degrade to an unknown assessment.
func (a *Analyzer) Assess(ctx context.Context, tenantID, recipient string, now time.Time) Assessment {
	if a.Reader == nil {
		return Assessment{Level: risk.Unknown}
	}

	entries, err := a.Reader.Query(ctx, tenantID, recipient, now.Add(-a.Window))
	if err != nil {
		a.Logger.Warn("conversation log query failed, skipping engagement check", "tenant", tenantID, "err", err)
		return Assessment{Level: risk.Unknown}
	}
	if len(entries) == 0 {
		// new contact, not penalized
		return Assessment{Level: risk.Low}
	}

	snap := summarize(entries)
	if snap.ResponseRate < a.MinResponseRate && snap.BusinessMessages > a.MinBusinessMessages {
		return Assessment{
			Level:    risk.High,
			Reasons:  []string{risk.ReasonLowEngagement},
			Snapshot: snap,
		}
	}
	if snap.AvgConfidence < a.MinConfidence && snap.TotalEntries > a.MinTotalEntries {
		return Assessment{
			Level:    risk.Medium,
			Reasons:  []string{risk.ReasonLowConfidence},
			Snapshot: snap,
		}
	}
	return Assessment{Level: risk.Low, Snapshot: snap}
}

func summarize(entries []Entry) Snapshot {
	snap := Snapshot{TotalEntries: len(entries)}
	confidenceSum := 0.0
	for _, e := range entries {
		switch e.Role {
		case RoleAssistant:
			snap.BusinessMessages++
		case RoleUser:
			snap.UserMessages++
		}
		confidenceSum += e.Confidence
	}
	if snap.BusinessMessages > 0 {
		snap.ResponseRate = float64(snap.UserMessages) / float64(snap.BusinessMessages)
	}
	snap.AvgConfidence = confidenceSum / float64(len(entries))
	return snap
}
