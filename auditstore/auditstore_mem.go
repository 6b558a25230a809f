package auditstore

import (
	"context"
	"sync"

	"github.com/Marseau/sendguard/risk"
)

// MemAuditStore collects events in memory. Used in tests and when no durable
// backend is configured.
type MemAuditStore struct {
	mu     sync.Mutex
	events []Event
}

func NewMemAuditStore() *MemAuditStore {
	return &MemAuditStore{}
}

func (s *MemAuditStore) Record(ctx context.Context, tenantID, recipient string, result risk.AnalysisResult, meta MessageMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, newEvent(tenantID, recipient, result, meta))
	return nil
}

func (s *MemAuditStore) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

var _ AuditStore = (*MemAuditStore)(nil)
