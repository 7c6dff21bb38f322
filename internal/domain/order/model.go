package order

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a lab order. The lifecycle is strictly
// linear; transitions maps each state to its single successor.
type Status string

const (
	StatusRegistered          Status = "registered"
	StatusCollectionScheduled Status = "collection_scheduled"
	StatusCollected           Status = "collected"
	StatusProcessing          Status = "processing"
	StatusCompleted           Status = "completed"
	StatusDelivered           Status = "delivered"
)

var transitions = map[Status]Status{
	StatusRegistered:          StatusCollectionScheduled,
	StatusCollectionScheduled: StatusCollected,
	StatusCollected:           StatusProcessing,
	StatusProcessing:          StatusCompleted,
	StatusCompleted:           StatusDelivered,
}

// CanTransition reports whether to is the single legal next step from from.
func CanTransition(from, to Status) bool {
	return transitions[from] == to
}

// Priority orders the dispatch queue.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

var validPriorities = map[Priority]bool{
	PriorityUrgent: true, PriorityHigh: true, PriorityNormal: true, PriorityLow: true,
}

// LabOrder is one home-collection request. CollectorID is set exactly while
// the order is past registered; TotalCents is frozen at creation from the
// line prices.
type LabOrder struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OrderNumber string     `db:"order_number" json:"order_number"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	CollectorID *uuid.UUID `db:"collector_id" json:"collector_id,omitempty"`
	Status      Status     `db:"status" json:"status"`
	Priority    Priority   `db:"priority" json:"priority"`
	Notes       string     `db:"notes" json:"notes,omitempty"`
	Address     string     `db:"address" json:"address"`
	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	TotalCents  int64      `db:"total_cents" json:"total_cents"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// linkedConsistently is the engine's core invariant: a collector is linked
// exactly when the order has left registered.
func (o *LabOrder) linkedConsistently() bool {
	return (o.CollectorID != nil) == (o.Status != StatusRegistered)
}

// Line freezes one catalog service into the order at its price at order time.
type Line struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OrderID     uuid.UUID `db:"order_id" json:"order_id"`
	ServiceID   uuid.UUID `db:"service_id" json:"service_id"`
	ServiceName string    `db:"service_name" json:"service_name"`
	SampleType  string    `db:"sample_type" json:"sample_type"`
	PriceCents  int64     `db:"price_cents" json:"price_cents"`
	Quantity    int       `db:"quantity" json:"quantity"`
}

// StatusChange is one audit row, appended on every transition.
type StatusChange struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	OrderID    uuid.UUID  `db:"order_id" json:"order_id"`
	FromStatus Status     `db:"from_status" json:"from_status"`
	ToStatus   Status     `db:"to_status" json:"to_status"`
	ChangedBy  *uuid.UUID `db:"changed_by" json:"changed_by,omitempty"`
	Reason     string     `db:"reason" json:"reason,omitempty"`
	ChangedAt  time.Time  `db:"changed_at" json:"changed_at"`
}
