package alerts

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaxtrack/vaxtrack/internal/domain/catalog"
	"github.com/vaxtrack/vaxtrack/internal/domain/inventory"
)

// Alert types, in the order groups are emitted.
const (
	TypeLowStock          = "LOW_STOCK"
	TypeExpiredBatch      = "EXPIRED_BATCH"
	TypeNearingExpiration = "NEARING_EXPIRATION_BATCH"
)

// Alert is one derived group. Objects holds vaccines for LOW_STOCK and
// batches for the other two types. Alerts are recomputed on demand and
// never persisted.
type Alert struct {
	AlertType string `json:"alert_type"`
	Objects   []any  `json:"objects"`
}

// Generate derives the current alerts from a catalog and inventory snapshot.
// horizonDays bounds the nearing-expiration window. Empty groups are omitted.
func Generate(vaccines []*catalog.Vaccine, batches []*inventory.Batch, horizonDays int, now time.Time) []Alert {
	horizon := now.AddDate(0, 0, horizonDays)

	stock := make(map[uuid.UUID]int, len(vaccines))
	var expired, nearing []any

	for _, b := range batches {
		if b.EffectiveStatus(now) == inventory.StatusAvailable {
			stock[b.VaccineID] += b.CurrentQuantity
			if !b.ExpirationDate.After(horizon) {
				nearing = append(nearing, b)
			}
			continue
		}
		// Past expiration but not yet marked; lazily expired AVAILABLE
		// batches and depleted ones both need the flag raised.
		pastExpiration := !b.ExpirationDate.After(now)
		if pastExpiration && b.Status != inventory.StatusExpired && b.Status != inventory.StatusDiscarded {
			expired = append(expired, b)
		}
	}

	var low []any
	for _, v := range vaccines {
		if v.MinStockLevel == nil {
			continue
		}
		if stock[v.ID] < *v.MinStockLevel {
			low = append(low, v)
		}
	}

	var out []Alert
	if len(low) > 0 {
		out = append(out, Alert{AlertType: TypeLowStock, Objects: low})
	}
	if len(expired) > 0 {
		out = append(out, Alert{AlertType: TypeExpiredBatch, Objects: expired})
	}
	if len(nearing) > 0 {
		out = append(out, Alert{AlertType: TypeNearingExpiration, Objects: nearing})
	}
	return out
}
