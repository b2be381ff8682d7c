package inventory

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows ListByVaccine results.
type ListFilter struct {
	Status string
}

type BatchRepository interface {
	Create(ctx context.Context, b *Batch) error
	GetByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	GetByBatchNumber(ctx context.Context, batchNumber string) (*Batch, error)
	Update(ctx context.Context, b *Batch) error
	ListByVaccine(ctx context.Context, vaccineID uuid.UUID, filter ListFilter, limit, offset int) ([]*Batch, int, error)
	ListAll(ctx context.Context) ([]*Batch, error)
	// AvailableStock sums current_quantity over AVAILABLE, unexpired batches.
	AvailableStock(ctx context.Context, vaccineID uuid.UUID) (int, error)
	// Decrement atomically takes one dose from the batch, flipping DEPLETED at
	// zero in the same statement. Returns false when the batch had no stock or
	// was not AVAILABLE.
	Decrement(ctx context.Context, batchID uuid.UUID) (bool, error)
}
