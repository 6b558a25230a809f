package templatestore

import (
	"context"
	"sync"
	"time"
)

type MemTemplateStore struct {
	limit time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewMemTemplateStore(limit time.Duration) *MemTemplateStore {
	return &MemTemplateStore{
		limit:    limit,
		lastSent: make(map[string]time.Time),
	}
}

func templateKey(template, recipient string) string {
	return template + "/" + recipient
}

func (s *MemTemplateStore) Check(ctx context.Context, template, recipient string, now time.Time) (Check, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.lastSent[templateKey(template, recipient)]
	if !ok {
		return Check{Allowed: true}, nil
	}
	elapsed := now.Sub(last)
	if elapsed >= s.limit {
		return Check{Allowed: true}, nil
	}
	remaining := s.limit - elapsed
	mins := int((remaining + time.Minute - 1) / time.Minute)
	return Check{RetryAfterMinutes: mins, LastSent: last}, nil
}

func (s *MemTemplateStore) RecordSend(ctx context.Context, template, recipient string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// exactly one timestamp per key, always the most recent
	s.lastSent[templateKey(template, recipient)] = now
	return nil
}

func (s *MemTemplateStore) Prune(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := now.Add(-s.limit)
	for key, last := range s.lastSent {
		if last.Before(cutoff) {
			delete(s.lastSent, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemTemplateStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lastSent)
}

var _ TemplateStore = (*MemTemplateStore)(nil)
