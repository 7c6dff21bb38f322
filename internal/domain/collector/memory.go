package collector

import (
	"bytes"
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
	byID map[uuid.UUID]Collector
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[uuid.UUID]Collector)}
}

var _ Repository = (*MemoryRepo)(nil)

func (m *MemoryRepo) Create(_ context.Context, c *Collector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	m.byID[c.ID] = *c
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Collector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("collector not found")
	}
	cp := c
	return &cp, nil
}

func (m *MemoryRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("collector not found")
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	m.byID[id] = c
	return nil
}

func (m *MemoryRepo) UpdatePosition(_ context.Context, id uuid.UUID, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("collector not found")
	}
	c.Lat = &lat
	c.Lng = &lng
	c.UpdatedAt = time.Now().UTC()
	m.byID[id] = c
	return nil
}

func (m *MemoryRepo) ListAvailable(_ context.Context) ([]*Collector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*Collector
	for _, c := range m.byID {
		if c.Assignable() {
			cp := c
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return bytes.Compare(items[i].ID[:], items[j].ID[:]) < 0
	})
	return items, nil
}

func (m *MemoryRepo) List(_ context.Context, limit, offset int) ([]*Collector, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]Collector, 0, len(m.byID))
	for _, c := range m.byID {
		all = append(all, c)
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
	items := make([]*Collector, 0, end-offset)
	for i := offset; i < end; i++ {
		cp := all[i]
		items = append(items, &cp)
	}
	return items, total, nil
}
