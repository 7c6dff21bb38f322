package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/labops/labops/internal/platform/apperr"
)

type Service struct {
	services Repository
}

func NewService(services Repository) *Service {
	return &Service{services: services}
}

func (s *Service) Create(ctx context.Context, ls *LabService) error {
	if ls.Code == "" {
		return apperr.Validation("code is required")
	}
	if ls.Name == "" {
		return apperr.Validation("name is required")
	}
	if ls.PriceCents < 0 {
		return apperr.Validation("price must not be negative")
	}
	if !validSampleTypes[ls.SampleType] {
		return apperr.Validation("unknown sample type %q", ls.SampleType)
	}
	if ls.TurnaroundHours <= 0 {
		return apperr.Validation("turnaround_hours must be positive")
	}
	existing, err := s.services.GetByCode(ctx, ls.Code)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}
	if existing != nil {
		return apperr.Validation("service code %s already exists", ls.Code)
	}
	ls.Active = true
	return s.services.Create(ctx, ls)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*LabService, error) {
	return s.services.GetByID(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*LabService, error) {
	return s.services.GetByCode(ctx, code)
}

// UpdatePrice changes the live catalog price. Existing orders keep their
// frozen line prices.
func (s *Service) UpdatePrice(ctx context.Context, id uuid.UUID, priceCents int64) (*LabService, error) {
	if priceCents < 0 {
		return nil, apperr.Validation("price must not be negative")
	}
	ls, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ls.PriceCents = priceCents
	if err := s.services.Update(ctx, ls); err != nil {
		return nil, err
	}
	return ls, nil
}

// SetActive toggles whether a service can be ordered.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*LabService, error) {
	ls, err := s.services.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ls.Active = active
	if err := s.services.Update(ctx, ls); err != nil {
		return nil, err
	}
	return ls, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*LabService, int, error) {
	return s.services.List(ctx, activeOnly, limit, offset)
}
