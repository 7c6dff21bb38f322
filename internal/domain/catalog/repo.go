package catalog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *LabService) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabService, error)
	GetByCode(ctx context.Context, code string) (*LabService, error)
	Update(ctx context.Context, s *LabService) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*LabService, int, error)
}
