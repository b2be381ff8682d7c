package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Vaccine is a catalog definition. DosesRequired and IntervalDays drive the
// scheduling and application rules; they become immutable once any application
// references the vaccine.
type Vaccine struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Manufacturer  string    `json:"manufacturer"`
	Description   *string   `json:"description,omitempty"`
	DosesRequired int       `json:"doses_required"`
	IntervalDays  *int      `json:"interval_days,omitempty"`
	IsObligatory  bool      `json:"is_obligatory"`
	MinStockLevel *int      `json:"min_stock_level,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
