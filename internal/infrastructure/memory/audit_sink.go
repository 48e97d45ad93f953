package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/artisanmart/internal/domain/audit"
)

// AuditSink records entries in memory. Intended for tests and local runs.
type AuditSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func NewAuditSink() *AuditSink { return &AuditSink{} }

func (s *AuditSink) Record(ctx context.Context, e audit.Entry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *AuditSink) Entries() []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Entry(nil), s.entries...)
}

// ForOrder returns the entries for one order in recording order.
func (s *AuditSink) ForOrder(orderID string) []audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Entry
	for _, e := range s.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}
