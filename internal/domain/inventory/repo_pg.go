package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaxtrack/vaxtrack/internal/platform/db"
	"github.com/vaxtrack/vaxtrack/pkg/vaxerr"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type batchRepoPG struct{ pool *pgxpool.Pool }

func NewBatchRepoPG(pool *pgxpool.Pool) BatchRepository {
	return &batchRepoPG{pool: pool}
}

func (r *batchRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const batchCols = `id, vaccine_id, batch_number, initial_quantity, current_quantity,
	expiration_date, received_date, status, created_at, updated_at`

func scanBatch(row pgx.Row) (*Batch, error) {
	var b Batch
	err := row.Scan(&b.ID, &b.VaccineID, &b.BatchNumber, &b.InitialQuantity, &b.CurrentQuantity,
		&b.ExpirationDate, &b.ReceivedDate, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, vaxerr.NotFound("batch")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *batchRepoPG) Create(ctx context.Context, b *Batch) error {
	b.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vaccine_batch (id, vaccine_id, batch_number, initial_quantity,
			current_quantity, expiration_date, received_date, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		b.ID, b.VaccineID, b.BatchNumber, b.InitialQuantity,
		b.CurrentQuantity, b.ExpirationDate, b.ReceivedDate, b.Status).
		Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *batchRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Batch, error) {
	return scanBatch(r.conn(ctx).QueryRow(ctx,
		`SELECT `+batchCols+` FROM vaccine_batch WHERE id = $1`, id))
}

func (r *batchRepoPG) GetByBatchNumber(ctx context.Context, batchNumber string) (*Batch, error) {
	return scanBatch(r.conn(ctx).QueryRow(ctx,
		`SELECT `+batchCols+` FROM vaccine_batch WHERE batch_number = $1`, batchNumber))
}

func (r *batchRepoPG) Update(ctx context.Context, b *Batch) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE vaccine_batch SET initial_quantity=$2, current_quantity=$3,
			expiration_date=$4, status=$5, updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.InitialQuantity, b.CurrentQuantity, b.ExpirationDate, b.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vaxerr.NotFound("batch")
	}
	return nil
}

func (r *batchRepoPG) ListByVaccine(ctx context.Context, vaccineID uuid.UUID, filter ListFilter, limit, offset int) ([]*Batch, int, error) {
	where := ` WHERE vaccine_id = $1`
	args := []interface{}{vaccineID}
	if filter.Status != "" {
		where += ` AND status = $2`
		args = append(args, filter.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vaccine_batch`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM vaccine_batch%s ORDER BY expiration_date LIMIT $%d OFFSET $%d`,
		batchCols, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

func (r *batchRepoPG) ListAll(ctx context.Context) ([]*Batch, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+batchCols+` FROM vaccine_batch ORDER BY expiration_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

func (r *batchRepoPG) AvailableStock(ctx context.Context, vaccineID uuid.UUID) (int, error) {
	var sum int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(current_quantity), 0)
		FROM vaccine_batch
		WHERE vaccine_id = $1 AND status = $2 AND expiration_date > NOW()`,
		vaccineID, StatusAvailable).Scan(&sum)
	return sum, err
}

func (r *batchRepoPG) Decrement(ctx context.Context, batchID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE vaccine_batch
		SET current_quantity = current_quantity - 1,
		    status = CASE WHEN current_quantity - 1 = 0 THEN $2 ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $3 AND current_quantity > 0`,
		batchID, StatusDepleted, StatusAvailable)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
