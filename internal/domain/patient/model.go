package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the system-of-record identity row. Only contact fields (phone,
// address) may change after creation.
type Patient struct {
	ID         uuid.UUID `db:"id" json:"id"`
	FullName   string    `db:"full_name" json:"full_name"`
	NationalID string    `db:"national_id" json:"national_id"`
	Phone      string    `db:"phone" json:"phone"`
	Age        int       `db:"age" json:"age"`
	Gender     string    `db:"gender" json:"gender,omitempty"`
	Address    string    `db:"address" json:"address"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ContactUpdate carries the only mutable fields of a patient record.
type ContactUpdate struct {
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}
