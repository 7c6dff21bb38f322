package inventory

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
	byID map[uuid.UUID]Item
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[uuid.UUID]Item)}
}

var _ Repository = (*MemoryRepo)(nil)

func (m *MemoryRepo) Create(_ context.Context, i *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i.ID = uuid.New()
	now := time.Now().UTC()
	i.CreatedAt = now
	i.UpdatedAt = now
	m.byID[i.ID] = *i
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("inventory item not found")
	}
	cp := i
	return &cp, nil
}

func (m *MemoryRepo) GetByName(_ context.Context, name string) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, i := range m.byID {
		if i.Name == name {
			cp := i
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("inventory item not found")
}

func (m *MemoryRepo) AdjustStock(_ context.Context, id uuid.UUID, delta int, restocked bool) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("inventory item not found")
	}
	if i.CurrentStock+delta < 0 {
		return nil, apperr.InsufficientStock("item %s cannot absorb delta %d", id, delta)
	}
	i.CurrentStock += delta
	now := time.Now().UTC()
	if restocked {
		i.LastRestocked = &now
	}
	i.UpdatedAt = now
	m.byID[id] = i
	cp := i
	return &cp, nil
}

func (m *MemoryRepo) List(_ context.Context, limit, offset int) ([]*Item, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]Item, 0, len(m.byID))
	for _, i := range m.byID {
		all = append(all, i)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	items := make([]*Item, 0, end-offset)
	for i := offset; i < end; i++ {
		cp := all[i]
		items = append(items, &cp)
	}
	return items, total, nil
}

func (m *MemoryRepo) ListLowStock(_ context.Context) ([]*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*Item
	for _, i := range m.byID {
		if i.IsLowStock() {
			cp := i
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}
