package catalog

import (
	"time"

	"github.com/google/uuid"
)

// SampleType identifies the kind of specimen a lab service needs; it drives
// the consumable bill of materials at collection time.
type SampleType string

const (
	SampleBlood SampleType = "blood"
	SampleUrine SampleType = "urine"
	SampleSwab  SampleType = "swab"
	SampleStool SampleType = "stool"
)

var validSampleTypes = map[SampleType]bool{
	SampleBlood: true, SampleUrine: true, SampleSwab: true, SampleStool: true,
}

// LabService is a priced, timed test definition. Reference data: orders
// snapshot the price into their own line rows, so editing the catalog never
// rewrites history.
type LabService struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Code            string     `db:"code" json:"code"`
	Name            string     `db:"name" json:"name"`
	Category        string     `db:"category" json:"category"`
	PriceCents      int64      `db:"price_cents" json:"price_cents"`
	SampleType      SampleType `db:"sample_type" json:"sample_type"`
	TurnaroundHours int        `db:"turnaround_hours" json:"turnaround_hours"`
	Preparation     string     `db:"preparation" json:"preparation,omitempty"`
	Active          bool       `db:"active" json:"active"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
