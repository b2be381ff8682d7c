package application

import (
	"time"

	"github.com/google/uuid"
)

// Application is the immutable record of a dose actually administered. The
// user/vaccine/dose triple is denormalized from the scheduling so the storage
// layer can enforce the one-application-per-dose invariant directly.
type Application struct {
	ID              uuid.UUID `json:"id"`
	SchedulingID    uuid.UUID `json:"scheduling_id"`
	UserID          uuid.UUID `json:"user_id"`
	VaccineID       uuid.UUID `json:"vaccine_id"`
	DoseNumber      int       `json:"dose_number"`
	BatchID         uuid.UUID `json:"batch_id"`
	AppliedByID     uuid.UUID `json:"applied_by_id"`
	ApplicationDate time.Time `json:"application_date"`
	ApplicationSite string    `json:"application_site"`
	Observations    *string   `json:"observations,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateInput is the sealed union of the two accepted creation shapes.
type CreateInput interface {
	isCreateInput()
}

// SchedulingBased records a dose against an existing scheduling.
type SchedulingBased struct {
	SchedulingID    uuid.UUID
	BatchID         uuid.UUID
	AppliedByID     uuid.UUID
	ApplicationSite string
	Observations    *string
}

func (SchedulingBased) isCreateInput() {}

// WalkInBased records a dose without a prior appointment; a completed
// scheduling is synthesized in the same transaction.
type WalkInBased struct {
	UserID          uuid.UUID
	VaccineID       uuid.UUID
	DoseNumber      int
	BatchID         uuid.UUID
	AppliedByID     uuid.UUID
	ApplicationSite string
	Observations    *string
}

func (WalkInBased) isCreateInput() {}

// VaccineHistory groups a user's doses for one vaccine.
type VaccineHistory struct {
	VaccineID         uuid.UUID      `json:"vaccine_id"`
	VaccineName       string         `json:"vaccine_name"`
	DosesRequired     int            `json:"doses_required"`
	DosesApplied      int            `json:"doses_applied"`
	CompletionPercent int            `json:"completion_percent"`
	Applications      []*Application `json:"applications"`
	NextDoseDate      *time.Time     `json:"next_dose_date,omitempty"`
}

// UserHistory is the aggregate view of everything applied to a user.
type UserHistory struct {
	UserID            uuid.UUID         `json:"user_id"`
	TotalApplied      int               `json:"total_applied"`
	VaccinesCompleted int               `json:"vaccines_completed"`
	VaccinesPending   int               `json:"vaccines_pending"`
	MandatoryPending  int               `json:"mandatory_pending"`
	Vaccines          []*VaccineHistory `json:"vaccines"`
	NotStartedOblig   []string          `json:"not_started_obligatory"`
	NotStartedOption  []string          `json:"not_started_optional"`
}
