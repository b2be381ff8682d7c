package application

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	UserID      uuid.UUID
	VaccineID   uuid.UUID
	AppliedByID uuid.UUID
	BatchID     uuid.UUID
	DoseNumber  int
	From        time.Time
	To          time.Time
}

type ApplicationRepository interface {
	Create(ctx context.Context, a *Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*Application, error)
	GetBySchedulingID(ctx context.Context, schedulingID uuid.UUID) (*Application, error)
	// UpdateMutable persists the only two fields that may change after creation.
	UpdateMutable(ctx context.Context, id uuid.UUID, site string, observations *string) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Application, int, error)
	ListByUserVaccine(ctx context.Context, userID, vaccineID uuid.UUID) ([]*Application, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Application, error)
}
