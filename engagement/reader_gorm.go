package engagement

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ConversationRow is the conversation_history table, as written by the chat
// pipeline (out of scope here; we only read it).
type ConversationRow struct {
	ID         uint   `gorm:"primarykey"`
	TenantID   string `gorm:"index:idx_conversation_tenant_recipient"`
	Recipient  string `gorm:"index:idx_conversation_tenant_recipient"`
	Role       string
	Confidence float64
	CreatedAt  time.Time `gorm:"index"`
}

func (ConversationRow) TableName() string {
	return "conversation_history"
}

type GormLogReader struct {
	DB *gorm.DB
}

func NewGormLogReader(db *gorm.DB) *GormLogReader {
	return &GormLogReader{DB: db}
}

func (r *GormLogReader) Query(ctx context.Context, tenantID, recipient string, since time.Time) ([]Entry, error) {
	var rows []ConversationRow
	err := r.DB.WithContext(ctx).
		Where("tenant_id = ? AND recipient = ? AND created_at >= ?", tenantID, recipient, since).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, Entry{Role: row.Role, Time: row.CreatedAt, Confidence: row.Confidence})
	}
	return out, nil
}

var _ ConversationLogReader = (*GormLogReader)(nil)
