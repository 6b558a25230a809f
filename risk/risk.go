// Shared risk vocabulary for the sendguard decision pipeline: the ordinal
// risk level, the machine-readable reason codes emitted by checks, and the
// AnalysisResult value returned to callers.
package risk

import (
	"encoding/json"
	"fmt"
)

// Ordinal risk classification. Unknown sorts below Low: it means "no signal"
// (eg, a degraded dependency), not "known bad".
type Level int8

const (
	Unknown Level = iota
	Low
	Medium
	High
)

func (l Level) String() string {
	switch l {
	case Unknown:
		return "unknown"
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return fmt.Sprintf("invalid(%d)", int8(l))
	}
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

func ParseLevel(s string) (Level, error) {
	switch s {
	case "unknown":
		return Unknown, nil
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	}
	return Unknown, fmt.Errorf("not a risk level: %q", s)
}

// Max returns the more severe of two levels. Severity only ever increases
// during a pipeline run, so all merging goes through this.
func Max(a, b Level) Level {
	if b > a {
		return b
	}
	return a
}

// Reason codes, stable strings shared with the audit trail and any dashboards
// built on top of it.
const (
	ReasonHourlyLimit    = "HOURLY_FREQUENCY_LIMIT_EXCEEDED"
	ReasonDailyLimit     = "DAILY_FREQUENCY_LIMIT_EXCEEDED"
	ReasonWeeklyLimit    = "WEEKLY_FREQUENCY_LIMIT_EXCEEDED"
	ReasonDuplicate      = "DUPLICATE_CONTENT_DETECTED"
	ReasonSpamKeywords   = "MULTIPLE_SPAM_KEYWORDS"
	ReasonTemplateLimit  = "TEMPLATE_FREQUENCY_LIMIT_EXCEEDED"
	ReasonLowEngagement  = "LOW_ENGAGEMENT_RATE"
	ReasonLowConfidence  = "LOW_CONFIDENCE_INTERACTIONS"
	ReasonRapidFire      = "RAPID_FIRE_MESSAGING_DETECTED"
	ReasonAnalysisFailed = "ANALYSIS_FAILED_MESSAGE_ALLOWED"
)

// The decision for one candidate send. Pure value type; safe to copy, hand to
// the audit sink, or serialize.
type AnalysisResult struct {
	Allowed         bool     `json:"allowed"`
	Level           Level    `json:"riskLevel"`
	Reasons         []string `json:"reasons"`
	Recommendations []string `json:"recommendations"`
}
