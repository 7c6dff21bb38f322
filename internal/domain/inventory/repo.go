package inventory

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, i *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	GetByName(ctx context.Context, name string) (*Item, error)
	// AdjustStock changes current stock by delta. A result below zero must
	// fail with InsufficientStock and leave the row untouched. restocked
	// stamps last_restocked alongside the adjustment.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int, restocked bool) (*Item, error)
	List(ctx context.Context, limit, offset int) ([]*Item, int, error)
	ListLowStock(ctx context.Context) ([]*Item, error)
}
