package order

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
	mu      sync.RWMutex
	byID    map[uuid.UUID]LabOrder
	lines   map[uuid.UUID][]Line
	history map[uuid.UUID][]StatusChange
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[uuid.UUID]LabOrder),
		lines:   make(map[uuid.UUID][]Line),
		history: make(map[uuid.UUID][]StatusChange),
	}
}

var _ Repository = (*MemoryRepo)(nil)

func (m *MemoryRepo) Create(_ context.Context, o *LabOrder, lines []*Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = uuid.New()
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	m.byID[o.ID] = *o
	stored := make([]Line, 0, len(lines))
	for _, l := range lines {
		l.ID = uuid.New()
		l.OrderID = o.ID
		stored = append(stored, *l)
	}
	m.lines[o.ID] = stored
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*LabOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	cp := o
	return &cp, nil
}

func (m *MemoryRepo) GetByNumber(_ context.Context, number string) (*LabOrder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.byID {
		if o.OrderNumber == number {
			cp := o
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("order not found")
}

func (m *MemoryRepo) ListLines(_ context.Context, orderID uuid.UUID) ([]*Line, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.lines[orderID]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	lines := make([]*Line, 0, len(stored))
	for _, l := range stored {
		cp := l
		lines = append(lines, &cp)
	}
	return lines, nil
}

func (m *MemoryRepo) UpdateWithHistory(_ context.Context, o *LabOrder, h *StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[o.ID]; !ok {
		return apperr.NotFound("order not found")
	}
	o.UpdatedAt = time.Now().UTC()
	m.byID[o.ID] = *o
	h.ID = uuid.New()
	h.OrderID = o.ID
	m.history[o.ID] = append(m.history[o.ID], *h)
	return nil
}

func (m *MemoryRepo) ListHistory(_ context.Context, orderID uuid.UUID) ([]*StatusChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.history[orderID]
	items := make([]*StatusChange, 0, len(stored))
	for _, h := range stored {
		cp := h
		items = append(items, &cp)
	}
	return items, nil
}

func (m *MemoryRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*LabOrder, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []LabOrder
	for _, o := range m.byID {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.PatientID != nil && o.PatientID != *f.PatientID {
			continue
		}
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	items := make([]*LabOrder, 0, end-offset)
	for i := offset; i < end; i++ {
		cp := all[i]
		items = append(items, &cp)
	}
	return items, total, nil
}

func (m *MemoryRepo) CountActiveByCollector(_ context.Context, collectorID, excludeOrderID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, o := range m.byID {
		if o.CollectorID != nil && *o.CollectorID == collectorID &&
			o.ID != excludeOrderID && o.Status == StatusCollectionScheduled {
			n++
		}
	}
	return n, nil
}
