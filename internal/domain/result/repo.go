package result

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *TestResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*TestResult, error)
	GetByOrderAndService(ctx context.Context, orderID, serviceID uuid.UUID) (*TestResult, error)
	Update(ctx context.Context, r *TestResult) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*TestResult, error)
	CountByOrderAndStatus(ctx context.Context, orderID uuid.UUID, status Status) (int, error)
}
