package result

import (
	"time"

	"github.com/google/uuid"
)

// Status is the review pipeline state of a test result. A result row is
// created the moment a value is entered, so stored rows start at completed;
// pending describes order lines with no row yet.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusReviewed  Status = "reviewed"
	StatusValidated Status = "validated"
)

// next holds the single legal forward step for each stored status.
var next = map[Status]Status{
	StatusCompleted: StatusReviewed,
	StatusReviewed:  StatusValidated,
}

// TestResult is one measured value for one service line of an order.
type TestResult struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OrderID     uuid.UUID  `db:"order_id" json:"order_id"`
	ServiceID   uuid.UUID  `db:"service_id" json:"service_id"`
	Value       string     `db:"value" json:"value"`
	Unit        string     `db:"unit" json:"unit,omitempty"`
	NormalRange string     `db:"normal_range" json:"normal_range,omitempty"`
	Status      Status     `db:"status" json:"status"`
	EnteredBy   *uuid.UUID `db:"entered_by" json:"entered_by,omitempty"`
	EnteredAt   time.Time  `db:"entered_at" json:"entered_at"`
	ReviewedBy  *uuid.UUID `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ValidatedAt *time.Time `db:"validated_at" json:"validated_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// PendingServices returns the service ids of lines whose result is absent or
// not yet validated.
func PendingServices(lineServiceIDs []uuid.UUID, results []*TestResult) []uuid.UUID {
	done := make(map[uuid.UUID]bool, len(results))
	for _, r := range results {
		if r.Status == StatusValidated {
			done[r.ServiceID] = true
		}
	}
	var pending []uuid.UUID
	for _, id := range lineServiceIDs {
		if !done[id] {
			pending = append(pending, id)
		}
	}
	return pending
}
