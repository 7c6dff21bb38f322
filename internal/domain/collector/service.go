package collector

import (
	"context"

	"github.com/google/uuid"

	"github.com/labops/labops/internal/platform/apperr"
	"github.com/labops/labops/internal/platform/locking"
)

// AssignmentSource reports how many live assignments a collector carries.
// The order store implements it; the registry consults it before releasing
// a collector back to the pool.
type AssignmentSource interface {
	CountActiveByCollector(ctx context.Context, collectorID, excludeOrderID uuid.UUID) (int, error)
}

// Service is the collector registry. It owns the available/busy/offline
// lifecycle; callers never write a status directly.
type Service struct {
	collectors  Repository
	locks       *locking.KeyedMutex
	assignments AssignmentSource
}

func NewService(collectors Repository, locks *locking.KeyedMutex) *Service {
	return &Service{collectors: collectors, locks: locks}
}

// SetAssignmentSource wires the order store in after construction; the two
// packages are built in opposite order at startup.
func (s *Service) SetAssignmentSource(src AssignmentSource) {
	s.assignments = src
}

func (s *Service) Register(ctx context.Context, c *Collector) error {
	if c.FullName == "" {
		return apperr.Validation("full_name is required")
	}
	c.Active = true
	c.Status = StatusAvailable
	return s.collectors.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Collector, error) {
	return s.collectors.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Collector, int, error) {
	return s.collectors.List(ctx, limit, offset)
}

// FindAvailable returns every collector eligible for a new assignment,
// ordered by id so repeated calls pick deterministically.
func (s *Service) FindAvailable(ctx context.Context) ([]*Collector, error) {
	return s.collectors.ListAvailable(ctx)
}

// MarkBusy transitions an available collector to busy. The caller is the
// assignment path, which already holds this collector's lock.
func (s *Service) MarkBusy(ctx context.Context, id uuid.UUID) error {
	c, err := s.collectors.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !c.Assignable() {
		return apperr.CollectorUnavailable("collector %s is %s", id, describe(c))
	}
	return s.collectors.UpdateStatus(ctx, id, StatusBusy)
}

// MarkAvailable returns a busy collector to the pool. Releasing an already
// available collector is a no-op; an offline collector stays offline. The
// caller holds this collector's lock.
func (s *Service) MarkAvailable(ctx context.Context, id uuid.UUID) error {
	c, err := s.collectors.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != StatusBusy {
		return nil
	}
	return s.collectors.UpdateStatus(ctx, id, StatusAvailable)
}

// SetOffline takes a collector out of rotation. A busy collector cannot go
// offline while it still carries an assignment.
func (s *Service) SetOffline(ctx context.Context, id uuid.UUID) error {
	unlock, err := s.locks.Lock(ctx, locking.CollectorKey(id.String()))
	if err != nil {
		return err
	}
	defer unlock()

	c, err := s.collectors.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch c.Status {
	case StatusBusy:
		return apperr.InvalidTransition("collector %s has an active assignment", id)
	case StatusOffline:
		return nil
	}
	return s.collectors.UpdateStatus(ctx, id, StatusOffline)
}

// SetOnline brings an offline collector back as available.
func (s *Service) SetOnline(ctx context.Context, id uuid.UUID) error {
	unlock, err := s.locks.Lock(ctx, locking.CollectorKey(id.String()))
	if err != nil {
		return err
	}
	defer unlock()

	c, err := s.collectors.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != StatusOffline {
		return nil
	}
	return s.collectors.UpdateStatus(ctx, id, StatusAvailable)
}

// HasOtherActiveAssignment reports whether the collector still carries an
// assignment other than the order being released.
func (s *Service) HasOtherActiveAssignment(ctx context.Context, collectorID, excludeOrderID uuid.UUID) (bool, error) {
	if s.assignments == nil {
		return false, nil
	}
	n, err := s.assignments.CountActiveByCollector(ctx, collectorID, excludeOrderID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Service) UpdatePosition(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return apperr.Validation("lat must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return apperr.Validation("lng must be between -180 and 180")
	}
	return s.collectors.UpdatePosition(ctx, id, lat, lng)
}

func describe(c *Collector) string {
	if !c.Active {
		return "inactive"
	}
	return string(c.Status)
}
