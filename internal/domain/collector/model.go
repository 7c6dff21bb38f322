package collector

import (
	"time"

	"github.com/google/uuid"
)

// Status is the assignment state of a collector. It is mutated only by the
// registry in response to lifecycle events, never set directly by callers.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
	StatusOffline   Status = "offline"
)

// Collector is a field agent dispatched to draw samples at a patient's home.
type Collector struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Phone     string    `db:"phone" json:"phone"`
	Active    bool      `db:"active" json:"active"`
	Status    Status    `db:"status" json:"status"`
	Lat       *float64  `db:"lat" json:"lat,omitempty"`
	Lng       *float64  `db:"lng" json:"lng,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Assignable reports whether the collector can take a new order right now.
func (c *Collector) Assignable() bool {
	return c.Active && c.Status == StatusAvailable
}
