package auditstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/Marseau/sendguard/risk"
)

type GormAuditStore struct {
	DB *gorm.DB
}

func NewGormAuditStore(db *gorm.DB) (*GormAuditStore, error) {
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, err
	}
	return &GormAuditStore{DB: db}, nil
}

func (s *GormAuditStore) Record(ctx context.Context, tenantID, recipient string, result risk.AnalysisResult, meta MessageMeta) error {
	evt := newEvent(tenantID, recipient, result, meta)
	return s.DB.WithContext(ctx).Create(&evt).Error
}

var _ AuditStore = (*GormAuditStore)(nil)
