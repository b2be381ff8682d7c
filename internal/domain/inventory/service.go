package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vaxtrack/vaxtrack/internal/platform/db"
	"github.com/vaxtrack/vaxtrack/pkg/vaxerr"
)

// VaccineChecker is the slice of the catalog the inventory needs.
type VaccineChecker interface {
	Exists(ctx context.Context, vaccineID uuid.UUID) error
}

type Service struct {
	batches  BatchRepository
	vaccines VaccineChecker
	now      func() time.Time
}

func NewService(batches BatchRepository, vaccines VaccineChecker) *Service {
	return &Service{batches: batches, vaccines: vaccines, now: time.Now}
}

var validStatuses = map[string]bool{
	StatusAvailable: true, StatusExpired: true, StatusDepleted: true, StatusDiscarded: true,
}

func (s *Service) CreateBatch(ctx context.Context, b *Batch) error {
	if b.BatchNumber == "" {
		return vaxerr.New(vaxerr.KindInvalidInput, "batch_number is required")
	}
	if b.InitialQuantity < 1 {
		return vaxerr.New(vaxerr.KindInvalidInput, "initial_quantity must be at least 1")
	}
	if b.ExpirationDate.IsZero() || !b.ExpirationDate.After(s.now()) {
		return vaxerr.New(vaxerr.KindInvalidInput, "expiration_date must be in the future")
	}
	if err := s.vaccines.Exists(ctx, b.VaccineID); err != nil {
		return err
	}

	existing, err := s.batches.GetByBatchNumber(ctx, b.BatchNumber)
	if err != nil && !vaxerr.IsKind(err, vaxerr.KindNotFound) {
		return err
	}
	if existing != nil {
		return vaxerr.New(vaxerr.KindInvalidInput, "batch number %q already exists", b.BatchNumber)
	}

	b.CurrentQuantity = b.InitialQuantity
	b.Status = StatusAvailable
	if b.ReceivedDate.IsZero() {
		b.ReceivedDate = s.now()
	}
	return s.batches.Create(ctx, b)
}

// BatchPatch carries administrative corrections. Nil fields are left unchanged.
type BatchPatch struct {
	InitialQuantity *int       `json:"initial_quantity,omitempty"`
	CurrentQuantity *int       `json:"current_quantity,omitempty"`
	ExpirationDate  *time.Time `json:"expiration_date,omitempty"`
	Status          *string    `json:"status,omitempty"`
}

// UpdateBatch applies administrative corrections. Quantity bounds are enforced
// here and again by the storage constraints.
func (s *Service) UpdateBatch(ctx context.Context, id uuid.UUID, patch BatchPatch) (*Batch, error) {
	b, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.InitialQuantity != nil {
		b.InitialQuantity = *patch.InitialQuantity
	}
	if patch.CurrentQuantity != nil {
		b.CurrentQuantity = *patch.CurrentQuantity
	}
	if patch.ExpirationDate != nil {
		b.ExpirationDate = *patch.ExpirationDate
	}
	if patch.Status != nil {
		if !validStatuses[*patch.Status] {
			return nil, vaxerr.New(vaxerr.KindInvalidInput, "invalid status: %s", *patch.Status)
		}
		b.Status = *patch.Status
	}

	if b.CurrentQuantity < 0 {
		return nil, vaxerr.New(vaxerr.KindInvalidInput, "current_quantity cannot be negative")
	}
	if b.CurrentQuantity > b.InitialQuantity {
		return nil, vaxerr.New(vaxerr.KindInvalidInput, "current_quantity cannot exceed initial_quantity")
	}
	if b.CurrentQuantity == 0 && b.Status == StatusAvailable {
		b.Status = StatusDepleted
	}

	if err := s.batches.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DiscardBatch soft-retires a batch. Terminal.
func (s *Service) DiscardBatch(ctx context.Context, id uuid.UUID) (*Batch, error) {
	b, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == StatusDiscarded {
		return b, nil
	}
	b.Status = StatusDiscarded
	if err := s.batches.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error) {
	b, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Status = b.EffectiveStatus(s.now())
	return b, nil
}

type batchPage struct {
	items []*Batch
	total int
}

func (s *Service) ListBatchesByVaccine(ctx context.Context, vaccineID uuid.UUID, filter ListFilter, limit, offset int) ([]*Batch, int, error) {
	page, err := db.Read(ctx, func(ctx context.Context) (batchPage, error) {
		items, total, err := s.batches.ListByVaccine(ctx, vaccineID, filter, limit, offset)
		return batchPage{items, total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for _, b := range page.items {
		b.Status = b.EffectiveStatus(now)
	}
	return page.items, page.total, nil
}

// ListAllBatches returns every batch with its stored status untouched, so the
// alert generator can tell a lazily expired batch from one already marked.
func (s *Service) ListAllBatches(ctx context.Context) ([]*Batch, error) {
	return db.Read(ctx, func(ctx context.Context) ([]*Batch, error) {
		return s.batches.ListAll(ctx)
	})
}

func (s *Service) AvailableStock(ctx context.Context, vaccineID uuid.UUID) (int, error) {
	if err := s.vaccines.Exists(ctx, vaccineID); err != nil {
		return 0, err
	}
	return db.Read(ctx, func(ctx context.Context) (int, error) {
		return s.batches.AvailableStock(ctx, vaccineID)
	})
}

// ConsumeDose takes one dose from the given batch on behalf of the application
// engine. The batch must belong to the vaccine, be effectively AVAILABLE and
// hold stock; the decrement itself is a single conditional write, so two
// concurrent consumers of a one-dose batch resolve to one success and one
// InsufficientStock.
func (s *Service) ConsumeDose(ctx context.Context, batchID, vaccineID uuid.UUID) (*Batch, error) {
	b, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b.VaccineID != vaccineID {
		return nil, vaxerr.New(vaxerr.KindInvalidInput, "batch %s does not belong to the target vaccine", b.BatchNumber)
	}
	if b.EffectiveStatus(s.now()) != StatusAvailable {
		return nil, vaxerr.New(vaxerr.KindInsufficientStock, "batch %s is not available", b.BatchNumber)
	}

	ok, err := s.batches.Decrement(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, vaxerr.New(vaxerr.KindInsufficientStock, "batch %s has no remaining doses", b.BatchNumber)
	}

	return s.batches.GetByID(ctx, batchID)
}
