package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Batch statuses. EXPIRED is also derived lazily at read time for AVAILABLE
// batches whose expiration date has passed.
const (
	StatusAvailable = "AVAILABLE"
	StatusExpired   = "EXPIRED"
	StatusDepleted  = "DEPLETED"
	StatusDiscarded = "DISCARDED"
)

// Batch is a physical lot of a vaccine. Never deleted, only soft-retired via
// status. CurrentQuantity is consumed one dose at a time by the application
// engine.
type Batch struct {
	ID              uuid.UUID `json:"id"`
	VaccineID       uuid.UUID `json:"vaccine_id"`
	BatchNumber     string    `json:"batch_number"`
	InitialQuantity int       `json:"initial_quantity"`
	CurrentQuantity int       `json:"current_quantity"`
	ExpirationDate  time.Time `json:"expiration_date"`
	ReceivedDate    time.Time `json:"received_date"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EffectiveStatus surfaces EXPIRED for AVAILABLE batches whose expiration date
// has passed, without requiring a background transition.
func (b *Batch) EffectiveStatus(now time.Time) string {
	if b.Status == StatusAvailable && !b.ExpirationDate.After(now) {
		return StatusExpired
	}
	return b.Status
}

// Eligible reports whether the batch may supply a new application.
func (b *Batch) Eligible(now time.Time) bool {
	return b.EffectiveStatus(now) == StatusAvailable && b.CurrentQuantity > 0
}
