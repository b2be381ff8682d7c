package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	Status    string
	UserID    uuid.UUID
	VaccineID uuid.UUID
	From      time.Time
	To        time.Time
}

type SchedulingRepository interface {
	Create(ctx context.Context, s *Scheduling) error
	GetByID(ctx context.Context, id uuid.UUID) (*Scheduling, error)
	Update(ctx context.Context, s *Scheduling) error
	// FindLive returns the live scheduling for the dose slot, or NotFound.
	FindLive(ctx context.Context, userID, vaccineID uuid.UUID, doseNumber int) (*Scheduling, error)
	// ListLiveByUserVaccine returns every live scheduling a user holds for a vaccine.
	ListLiveByUserVaccine(ctx context.Context, userID, vaccineID uuid.UUID) ([]*Scheduling, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Scheduling, int, error)
	ListByDate(ctx context.Context, date time.Time) ([]*Scheduling, error)
	ListByNurseMonth(ctx context.Context, nurseID uuid.UUID, year int, month time.Month) ([]*Scheduling, error)
}
