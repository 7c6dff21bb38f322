package order

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows ListOrders. Nil fields match everything.
type ListFilter struct {
	Status    *Status
	PatientID *uuid.UUID
}

type Repository interface {
	// Create persists the order and its lines atomically.
	Create(ctx context.Context, o *LabOrder, lines []*Line) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabOrder, error)
	GetByNumber(ctx context.Context, number string) (*LabOrder, error)
	ListLines(ctx context.Context, orderID uuid.UUID) ([]*Line, error)
	// UpdateWithHistory persists a state change and its audit row atomically.
	UpdateWithHistory(ctx context.Context, o *LabOrder, h *StatusChange) error
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]*StatusChange, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*LabOrder, int, error)
	// CountActiveByCollector counts collection_scheduled orders held by the
	// collector, excluding one order. Implements collector.AssignmentSource.
	CountActiveByCollector(ctx context.Context, collectorID, excludeOrderID uuid.UUID) (int, error)
}
