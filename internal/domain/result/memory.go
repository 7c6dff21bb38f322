package result

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/labops/labops/internal/platform/apperr"
)

// MemoryRepo is an in-memory Repository used by tests and the seed tooling.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]TestResult
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[uuid.UUID]TestResult)}
}

var _ Repository = (*MemoryRepo)(nil)

func (m *MemoryRepo) Create(_ context.Context, t *TestResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New()
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	m.byID[t.ID] = *t
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*TestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("test result not found")
	}
	cp := t
	return &cp, nil
}

func (m *MemoryRepo) GetByOrderAndService(_ context.Context, orderID, serviceID uuid.UUID) (*TestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.byID {
		if t.OrderID == orderID && t.ServiceID == serviceID {
			cp := t
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("test result not found")
}

func (m *MemoryRepo) Update(_ context.Context, t *TestResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[t.ID]; !ok {
		return apperr.NotFound("test result not found")
	}
	t.UpdatedAt = time.Now().UTC()
	m.byID[t.ID] = *t
	return nil
}

func (m *MemoryRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]*TestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*TestResult
	for _, t := range m.byID {
		if t.OrderID == orderID {
			cp := t
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].EnteredAt.Before(items[j].EnteredAt) })
	return items, nil
}

func (m *MemoryRepo) CountByOrderAndStatus(_ context.Context, orderID uuid.UUID, status Status) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.byID {
		if t.OrderID == orderID && t.Status == status {
			n++
		}
	}
	return n, nil
}
