// Best-effort audit trail for high-risk decisions. Writes are fire-and-forget
// from the engine's point of view: a failing audit backend is logged and
// never surfaced to the caller that already received its decision.
package auditstore

import (
	"context"
	"time"

	"github.com/Marseau/sendguard/risk"
)

// MessageMeta carries the non-decision context recorded alongside a result.
// ContentPreview is truncated by the caller; full bodies are never persisted.
type MessageMeta struct {
	MessageType    string
	ContentPreview string
	ContentLength  int
	IsTemplate     bool
	TemplateName   string
}

type AuditStore interface {
	Record(ctx context.Context, tenantID, recipient string, result risk.AnalysisResult, meta MessageMeta) error
}

// Event is one recorded decision, as stored.
type Event struct {
	ID              uint      `gorm:"primarykey" json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
	TenantID        string    `gorm:"index" json:"tenantId"`
	Recipient       string    `gorm:"index" json:"recipient"`
	RiskLevel       string    `json:"riskLevel"`
	Blocked         bool      `json:"blocked"`
	Reasons         []string  `gorm:"serializer:json" json:"reasons"`
	Recommendations []string  `gorm:"serializer:json" json:"recommendations"`
	MessageType     string    `json:"messageType"`
	ContentPreview  string    `json:"contentPreview"`
	ContentLength   int       `json:"contentLength"`
	IsTemplate      bool      `json:"isTemplate"`
	TemplateName    string    `json:"templateName"`
}

func (Event) TableName() string {
	return "send_audit_events"
}

func newEvent(tenantID, recipient string, result risk.AnalysisResult, meta MessageMeta) Event {
	return Event{
		CreatedAt:       time.Now(),
		TenantID:        tenantID,
		Recipient:       recipient,
		RiskLevel:       result.Level.String(),
		Blocked:         !result.Allowed,
		Reasons:         result.Reasons,
		Recommendations: result.Recommendations,
		MessageType:     meta.MessageType,
		ContentPreview:  meta.ContentPreview,
		ContentLength:   meta.ContentLength,
		IsTemplate:      meta.IsTemplate,
		TemplateName:    meta.TemplateName,
	}
}
