package catalog

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
	byID map[uuid.UUID]LabService
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[uuid.UUID]LabService)}
}

var _ Repository = (*MemoryRepo)(nil)

func (m *MemoryRepo) Create(_ context.Context, s *LabService) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	m.byID[s.ID] = *s
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*LabService, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("lab service not found")
	}
	cp := s
	return &cp, nil
}

func (m *MemoryRepo) GetByCode(_ context.Context, code string) (*LabService, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.byID {
		if s.Code == code {
			cp := s
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("lab service not found")
}

func (m *MemoryRepo) Update(_ context.Context, s *LabService) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[s.ID]; !ok {
		return apperr.NotFound("lab service not found")
	}
	s.UpdatedAt = time.Now().UTC()
	m.byID[s.ID] = *s
	return nil
}

func (m *MemoryRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*LabService, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]LabService, 0, len(m.byID))
	for _, s := range m.byID {
		if activeOnly && !s.Active {
			continue
		}
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })

	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	items := make([]*LabService, 0, end-offset)
	for i := offset; i < end; i++ {
		cp := all[i]
		items = append(items, &cp)
	}
	return items, total, nil
}
