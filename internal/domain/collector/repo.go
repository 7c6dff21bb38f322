package collector

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists collectors.
type Repository interface {
	Create(ctx context.Context, c *Collector) error
	GetByID(ctx context.Context, id uuid.UUID) (*Collector, error)
	// UpdateStatus persists a status change stamped by the registry.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdatePosition(ctx context.Context, id uuid.UUID, lat, lng float64) error
	// ListAvailable returns active collectors in available status, ordered
	// by id ascending so assignment is deterministic.
	ListAvailable(ctx context.Context) ([]*Collector, error)
	List(ctx context.Context, limit, offset int) ([]*Collector, int, error)
}
