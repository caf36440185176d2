package audit

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process. Used by the CLI scenario runner and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	recs []Record
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.recs {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return q.Trim(out), nil
}

func (s *MemoryStore) Close() error { return nil }
