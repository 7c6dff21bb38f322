package order

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// NumberSource allocates human-readable order numbers, unique under
// concurrency. Numbers look like LAB-20260830-000042: a configured prefix,
// the allocation date, and a monotone sequence.
type NumberSource interface {
	Next(ctx context.Context) (string, error)
}

// FormatNumber renders an order number from its parts.
func FormatNumber(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%06d", prefix, day.UTC().Format("20060102"), seq)
}

// MemoryNumberSource issues numbers from an in-process counter that resets
// each day. Used by tests and the seed tooling.
type MemoryNumberSource struct {
	prefix string

	mu  sync.Mutex
	day string
	seq int64
}

func NewMemoryNumberSource(prefix string) *MemoryNumberSource {
	return &MemoryNumberSource{prefix: prefix}
}

func (m *MemoryNumberSource) Next(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	day := now.Format("20060102")
	if day != m.day {
		m.day = day
		m.seq = 0
	}
	m.seq++
	return FormatNumber(m.prefix, now, m.seq), nil
}
