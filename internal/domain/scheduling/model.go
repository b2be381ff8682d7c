package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Scheduling statuses. CANCELLED and COMPLETED are terminal.
const (
	StatusScheduled = "SCHEDULED"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

// Scheduling is a planned dose appointment. A patient holds at most one live
// (SCHEDULED or CONFIRMED) scheduling per (vaccine, dose).
type Scheduling struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	VaccineID       uuid.UUID  `json:"vaccine_id"`
	AssignedNurseID *uuid.UUID `json:"assigned_nurse_id,omitempty"`
	ScheduledDate   time.Time  `json:"scheduled_date"`
	DoseNumber      int        `json:"dose_number"`
	Status          string     `json:"status"`
	Notes           *string    `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Live reports whether the scheduling still occupies its dose slot.
func (s *Scheduling) Live() bool {
	return s.Status == StatusScheduled || s.Status == StatusConfirmed
}

// Terminal reports whether the scheduling accepts no further mutation.
func (s *Scheduling) Terminal() bool {
	return s.Status == StatusCancelled || s.Status == StatusCompleted
}

var transitions = map[string]map[string]bool{
	StatusScheduled: {StatusConfirmed: true, StatusCancelled: true, StatusCompleted: true},
	StatusConfirmed: {StatusCancelled: true, StatusCompleted: true},
}

// CanTransition reports whether changing from one status to the other is legal.
func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// AgendaEntry is one scheduling enriched for the monthly nurse agenda.
type AgendaEntry struct {
	Scheduling  *Scheduling         `json:"scheduling"`
	PatientName string              `json:"patient_name"`
	VaccineName string              `json:"vaccine_name"`
	NurseName   string              `json:"nurse_name,omitempty"`
	Application *ApplicationSummary `json:"application,omitempty"`
}

// ApplicationSummary is the slice of a linked application the agenda shows.
type ApplicationSummary struct {
	ID              uuid.UUID `json:"id"`
	ApplicationDate time.Time `json:"application_date"`
	BatchNumber     string    `json:"batch_number"`
}
