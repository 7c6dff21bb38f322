package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/labops/labops/internal/platform/apperr"
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

func (s *Service) Register(ctx context.Context, p *Patient) error {
	if p.FullName == "" {
		return apperr.Validation("full_name is required")
	}
	if p.NationalID == "" {
		return apperr.Validation("national_id is required")
	}
	if p.Age < 0 {
		return apperr.Validation("age must not be negative")
	}
	existing, err := s.patients.GetByNationalID(ctx, p.NationalID)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}
	if existing != nil {
		return apperr.Validation("national_id %s is already registered", p.NationalID)
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// UpdateContact changes phone and/or address; all other fields are immutable.
func (s *Service) UpdateContact(ctx context.Context, id uuid.UUID, upd ContactUpdate) (*Patient, error) {
	if upd.Phone == nil && upd.Address == nil {
		return nil, apperr.Validation("nothing to update")
	}
	return s.patients.UpdateContact(ctx, id, upd)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}
