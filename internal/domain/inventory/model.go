package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Category groups inventory items for reporting.
type Category string

const (
	CategoryConsumables Category = "consumables"
	CategoryEquipment   Category = "equipment"
	CategoryReagents    Category = "reagents"
)

var validCategories = map[Category]bool{
	CategoryConsumables: true, CategoryEquipment: true, CategoryReagents: true,
}

// Item is one stocked article. CurrentStock never goes below zero; every
// change flows through the ledger's AdjustStock.
type Item struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Category      Category   `db:"category" json:"category"`
	Unit          string     `db:"unit" json:"unit,omitempty"`
	Supplier      string     `db:"supplier" json:"supplier,omitempty"`
	CurrentStock  int        `db:"current_stock" json:"current_stock"`
	MinThreshold  int        `db:"min_threshold" json:"min_threshold"`
	LastRestocked *time.Time `db:"last_restocked" json:"last_restocked,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// IsLowStock reports whether the item is at or below its reorder threshold.
func (i *Item) IsLowStock() bool {
	return i.CurrentStock <= i.MinThreshold
}
