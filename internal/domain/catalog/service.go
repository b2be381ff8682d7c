package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/vaxtrack/vaxtrack/internal/platform/db"
	"github.com/vaxtrack/vaxtrack/pkg/vaxerr"
)

type Service struct {
	vaccines VaccineRepository
}

func NewService(vaccines VaccineRepository) *Service {
	return &Service{vaccines: vaccines}
}

func (s *Service) validate(v *Vaccine) error {
	if v.Name == "" {
		return vaxerr.New(vaxerr.KindInvalidInput, "name is required")
	}
	if v.Manufacturer == "" {
		return vaxerr.New(vaxerr.KindInvalidInput, "manufacturer is required")
	}
	if v.DosesRequired < 1 {
		return vaxerr.New(vaxerr.KindInvalidInput, "doses_required must be at least 1")
	}
	if v.IntervalDays != nil && *v.IntervalDays < 1 {
		return vaxerr.New(vaxerr.KindInvalidInput, "interval_days must be positive when set")
	}
	if v.MinStockLevel != nil && *v.MinStockLevel < 0 {
		return vaxerr.New(vaxerr.KindInvalidInput, "min_stock_level cannot be negative")
	}
	return nil
}

func (s *Service) CreateVaccine(ctx context.Context, v *Vaccine) error {
	if err := s.validate(v); err != nil {
		return err
	}

	existing, err := s.vaccines.GetByNameManufacturer(ctx, v.Name, v.Manufacturer)
	if err != nil && !vaxerr.IsKind(err, vaxerr.KindNotFound) {
		return err
	}
	if existing != nil {
		return vaxerr.New(vaxerr.KindInvalidInput,
			"vaccine %q by %q already exists", v.Name, v.Manufacturer)
	}

	return s.vaccines.Create(ctx, v)
}

func (s *Service) GetVaccine(ctx context.Context, id uuid.UUID) (*Vaccine, error) {
	return s.vaccines.GetByID(ctx, id)
}

// Exists returns a NotFound domain error when the vaccine is not cataloged.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) error {
	_, err := s.vaccines.GetByID(ctx, id)
	return err
}

// UpdateVaccine applies the patch. Name, manufacturer, doses_required and
// interval_days are frozen once any application references the vaccine;
// description, min_stock_level and is_obligatory stay editable.
func (s *Service) UpdateVaccine(ctx context.Context, id uuid.UUID, patch *Vaccine) (*Vaccine, error) {
	current, err := s.vaccines.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applied, err := s.vaccines.HasApplications(ctx, id)
	if err != nil {
		return nil, err
	}
	if applied {
		breaking := patch.Name != current.Name ||
			patch.Manufacturer != current.Manufacturer ||
			patch.DosesRequired != current.DosesRequired ||
			!intPtrEqual(patch.IntervalDays, current.IntervalDays)
		if breaking {
			return nil, vaxerr.New(vaxerr.KindInvalidInput,
				"vaccine has recorded applications; only description, min_stock_level and is_obligatory may change")
		}
	}

	current.Name = patch.Name
	current.Manufacturer = patch.Manufacturer
	current.Description = patch.Description
	current.DosesRequired = patch.DosesRequired
	current.IntervalDays = patch.IntervalDays
	current.IsObligatory = patch.IsObligatory
	current.MinStockLevel = patch.MinStockLevel

	if err := s.validate(current); err != nil {
		return nil, err
	}
	if err := s.vaccines.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// DeleteVaccine removes a vaccine and, via cascade, its batches. Rejected once
// any application references the vaccine to preserve the audit trail.
func (s *Service) DeleteVaccine(ctx context.Context, id uuid.UUID) error {
	if _, err := s.vaccines.GetByID(ctx, id); err != nil {
		return err
	}

	applied, err := s.vaccines.HasApplications(ctx, id)
	if err != nil {
		return err
	}
	if applied {
		return vaxerr.New(vaxerr.KindInvalidInput,
			"vaccine has recorded applications and cannot be deleted")
	}

	return s.vaccines.Delete(ctx, id)
}

type vaccinePage struct {
	items []*Vaccine
	total int
}

func (s *Service) ListVaccines(ctx context.Context, filter ListFilter, limit, offset int) ([]*Vaccine, int, error) {
	page, err := db.Read(ctx, func(ctx context.Context) (vaccinePage, error) {
		items, total, err := s.vaccines.List(ctx, filter, limit, offset)
		return vaccinePage{items, total}, err
	})
	return page.items, page.total, err
}

// ListAllVaccines returns the whole catalog without pagination. Used by the
// alert generator and the user history projection.
func (s *Service) ListAllVaccines(ctx context.Context) ([]*Vaccine, error) {
	page, err := db.Read(ctx, func(ctx context.Context) (vaccinePage, error) {
		items, total, err := s.vaccines.List(ctx, ListFilter{}, 0, 0)
		return vaccinePage{items, total}, err
	})
	return page.items, err
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
