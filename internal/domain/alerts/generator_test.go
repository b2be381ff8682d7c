package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vaxtrack/vaxtrack/internal/domain/catalog"
	"github.com/vaxtrack/vaxtrack/internal/domain/inventory"
)

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func intPtr(n int) *int { return &n }

func vaccine(name string, minStock *int) *catalog.Vaccine {
	return &catalog.Vaccine{
		ID:            uuid.New(),
		Name:          name,
		Manufacturer:  "Butantan",
		DosesRequired: 1,
		MinStockLevel: minStock,
	}
}

func batch(vaccineID uuid.UUID, qty int, expires time.Time, status string) *inventory.Batch {
	return &inventory.Batch{
		ID:              uuid.New(),
		VaccineID:       vaccineID,
		BatchNumber:     uuid.NewString()[:8],
		InitialQuantity: qty,
		CurrentQuantity: qty,
		ExpirationDate:  expires,
		Status:          status,
	}
}

func groupByType(alerts []Alert) map[string][]any {
	out := make(map[string][]any, len(alerts))
	for _, a := range alerts {
		out[a.AlertType] = a.Objects
	}
	return out
}

func TestGenerate_LowStockBoundary(t *testing.T) {
	below := vaccine("Hepatite B", intPtr(100))
	exact := vaccine("Influenza", intPtr(100))
	unset := vaccine("Tetano", nil)

	future := now.AddDate(1, 0, 0)
	batches := []*inventory.Batch{
		batch(below.ID, 90, future, inventory.StatusAvailable),
		batch(exact.ID, 100, future, inventory.StatusAvailable),
		batch(unset.ID, 0, future, inventory.StatusDepleted),
	}

	groups := groupByType(Generate([]*catalog.Vaccine{below, exact, unset}, batches, 7, now))

	low := groups[TypeLowStock]
	if len(low) != 1 {
		t.Fatalf("expected one low-stock vaccine, got %d", len(low))
	}
	if low[0].(*catalog.Vaccine).Name != "Hepatite B" {
		t.Fatalf("expected Hepatite B below threshold, got %+v", low[0])
	}
}

func TestGenerate_LowStockIgnoresIneligibleBatches(t *testing.T) {
	v := vaccine("Hepatite B", intPtr(50))

	batches := []*inventory.Batch{
		batch(v.ID, 40, now.AddDate(1, 0, 0), inventory.StatusAvailable),
		// None of these count toward stock.
		batch(v.ID, 100, now.AddDate(0, 0, -1), inventory.StatusAvailable),
		batch(v.ID, 100, now.AddDate(1, 0, 0), inventory.StatusDiscarded),
	}

	groups := groupByType(Generate([]*catalog.Vaccine{v}, batches, 7, now))
	if len(groups[TypeLowStock]) != 1 {
		t.Fatalf("expected low stock from the single eligible batch, got %+v", groups)
	}
}

func TestGenerate_ExpiredBatch(t *testing.T) {
	v := vaccine("Hepatite B", nil)

	lazily := batch(v.ID, 10, now.AddDate(0, 0, -1), inventory.StatusAvailable)
	depleted := batch(v.ID, 0, now.AddDate(0, 0, -1), inventory.StatusDepleted)
	marked := batch(v.ID, 10, now.AddDate(0, 0, -1), inventory.StatusExpired)
	discarded := batch(v.ID, 10, now.AddDate(0, 0, -1), inventory.StatusDiscarded)

	groups := groupByType(Generate([]*catalog.Vaccine{v},
		[]*inventory.Batch{lazily, depleted, marked, discarded}, 7, now))

	expired := groups[TypeExpiredBatch]
	if len(expired) != 2 {
		t.Fatalf("expected 2 expired batches, got %d", len(expired))
	}
	ids := map[uuid.UUID]bool{}
	for _, o := range expired {
		ids[o.(*inventory.Batch).ID] = true
	}
	if !ids[lazily.ID] || !ids[depleted.ID] {
		t.Fatalf("expected the unmarked batches, got %+v", expired)
	}
}

func TestGenerate_NearingExpiration(t *testing.T) {
	v := vaccine("Hepatite B", nil)

	within := batch(v.ID, 10, now.AddDate(0, 0, 5), inventory.StatusAvailable)
	boundary := batch(v.ID, 10, now.AddDate(0, 0, 7), inventory.StatusAvailable)
	beyond := batch(v.ID, 10, now.AddDate(0, 0, 8), inventory.StatusAvailable)
	discarded := batch(v.ID, 10, now.AddDate(0, 0, 5), inventory.StatusDiscarded)

	groups := groupByType(Generate([]*catalog.Vaccine{v},
		[]*inventory.Batch{within, boundary, beyond, discarded}, 7, now))

	nearing := groups[TypeNearingExpiration]
	if len(nearing) != 2 {
		t.Fatalf("expected 2 nearing batches, got %d", len(nearing))
	}
	ids := map[uuid.UUID]bool{}
	for _, o := range nearing {
		ids[o.(*inventory.Batch).ID] = true
	}
	if !ids[within.ID] || !ids[boundary.ID] {
		t.Fatalf("expected batches within the horizon, got %+v", nearing)
	}
}

func TestGenerate_EmptyGroupsOmitted(t *testing.T) {
	v := vaccine("Hepatite B", intPtr(10))
	healthy := batch(v.ID, 500, now.AddDate(1, 0, 0), inventory.StatusAvailable)

	alerts := Generate([]*catalog.Vaccine{v}, []*inventory.Batch{healthy}, 7, now)
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %+v", alerts)
	}
}

type staticCatalog struct{ vaccines []*catalog.Vaccine }

func (s staticCatalog) ListAllVaccines(context.Context) ([]*catalog.Vaccine, error) {
	return s.vaccines, nil
}

type staticInventory struct{ batches []*inventory.Batch }

func (s staticInventory) ListAllBatches(context.Context) ([]*inventory.Batch, error) {
	return s.batches, nil
}

func TestCurrentAlerts_HorizonClamped(t *testing.T) {
	v := vaccine("Hepatite B", nil)
	soon := batch(v.ID, 10, now.AddDate(0, 0, 1), inventory.StatusAvailable)
	later := batch(v.ID, 10, now.AddDate(0, 0, 15), inventory.StatusAvailable)

	svc := NewService(
		staticCatalog{[]*catalog.Vaccine{v}},
		staticInventory{[]*inventory.Batch{soon, later}}, 7)
	svc.now = func() time.Time { return now }

	nearingCount := func(horizon int) int {
		t.Helper()
		alerts, err := svc.CurrentAlerts(context.Background(), horizon)
		if err != nil {
			t.Fatalf("horizon %d: %v", horizon, err)
		}
		for _, a := range alerts {
			if a.AlertType == TypeNearingExpiration {
				return len(a.Objects)
			}
		}
		return 0
	}

	// Below the minimum clamps to a 1-day window, so only the batch
	// expiring tomorrow is flagged.
	if got := nearingCount(-1); got != 1 {
		t.Fatalf("horizon -1: expected 1 nearing batch, got %d", got)
	}
	// Above the maximum clamps to 30 days, which covers both batches.
	if got := nearingCount(31); got != 2 {
		t.Fatalf("horizon 31: expected 2 nearing batches, got %d", got)
	}
	// Zero falls back to the configured default of 7 days.
	if got := nearingCount(0); got != 1 {
		t.Fatalf("default horizon: expected 1 nearing batch, got %d", got)
	}
}
