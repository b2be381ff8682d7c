package alerts

import (
	"context"
	"time"

	"github.com/vaxtrack/vaxtrack/internal/domain/catalog"
	"github.com/vaxtrack/vaxtrack/internal/domain/inventory"
)

const (
	MinHorizonDays = 1
	MaxHorizonDays = 30
)

// CatalogSnapshot supplies the vaccine definitions to scan.
type CatalogSnapshot interface {
	ListAllVaccines(ctx context.Context) ([]*catalog.Vaccine, error)
}

// InventorySnapshot supplies every batch with its stored status.
type InventorySnapshot interface {
	ListAllBatches(ctx context.Context) ([]*inventory.Batch, error)
}

type Service struct {
	catalog        CatalogSnapshot
	inventory      InventorySnapshot
	defaultHorizon int
	now            func() time.Time
}

func NewService(cat CatalogSnapshot, inv InventorySnapshot, defaultHorizonDays int) *Service {
	return &Service{
		catalog:        cat,
		inventory:      inv,
		defaultHorizon: defaultHorizonDays,
		now:            time.Now,
	}
}

// CurrentAlerts computes the alerts from the live catalog and inventory.
// horizonDays 0 falls back to the configured default; out-of-range values
// are clamped to [MinHorizonDays, MaxHorizonDays].
func (s *Service) CurrentAlerts(ctx context.Context, horizonDays int) ([]Alert, error) {
	if horizonDays == 0 {
		horizonDays = s.defaultHorizon
	}
	if horizonDays < MinHorizonDays {
		horizonDays = MinHorizonDays
	}
	if horizonDays > MaxHorizonDays {
		horizonDays = MaxHorizonDays
	}

	vaccines, err := s.catalog.ListAllVaccines(ctx)
	if err != nil {
		return nil, err
	}
	batches, err := s.inventory.ListAllBatches(ctx)
	if err != nil {
		return nil, err
	}

	return Generate(vaccines, batches, horizonDays, s.now()), nil
}
