package patient

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
	byID map[uuid.UUID]Patient
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[uuid.UUID]Patient)}
}

var _ Repository = (*MemoryRepo)(nil)

func (m *MemoryRepo) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.byID[p.ID] = *p
	return nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("patient not found")
	}
	cp := p
	return &cp, nil
}

func (m *MemoryRepo) GetByNationalID(_ context.Context, nationalID string) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.byID {
		if p.NationalID == nationalID {
			cp := p
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("patient not found")
}

func (m *MemoryRepo) UpdateContact(_ context.Context, id uuid.UUID, upd ContactUpdate) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, apperr.NotFound("patient not found")
	}
	if upd.Phone != nil {
		p.Phone = *upd.Phone
	}
	if upd.Address != nil {
		p.Address = *upd.Address
	}
	p.UpdatedAt = time.Now().UTC()
	m.byID[id] = p
	cp := p
	return &cp, nil
}

func (m *MemoryRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]Patient, 0, len(m.byID))
	for _, p := range m.byID {
		all = append(all, p)
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
	items := make([]*Patient, 0, end-offset)
	for i := offset; i < end; i++ {
		cp := all[i]
		items = append(items, &cp)
	}
	return items, total, nil
}
