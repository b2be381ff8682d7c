package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows ListVaccines results.
type ListFilter struct {
	Obligatory *bool
}

type VaccineRepository interface {
	Create(ctx context.Context, v *Vaccine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Vaccine, error)
	GetByNameManufacturer(ctx context.Context, name, manufacturer string) (*Vaccine, error)
	Update(ctx context.Context, v *Vaccine) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Vaccine, int, error)
	// HasApplications reports whether any application references the vaccine.
	HasApplications(ctx context.Context, vaccineID uuid.UUID) (bool, error)
}
