package catalog

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

type vaccineRepoPG struct{ pool *pgxpool.Pool }

func NewVaccineRepoPG(pool *pgxpool.Pool) VaccineRepository {
	return &vaccineRepoPG{pool: pool}
}

func (r *vaccineRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const vaccineCols = `id, name, manufacturer, description, doses_required,
	interval_days, is_obligatory, min_stock_level, created_at, updated_at`

func scanVaccine(row pgx.Row) (*Vaccine, error) {
	var v Vaccine
	err := row.Scan(&v.ID, &v.Name, &v.Manufacturer, &v.Description, &v.DosesRequired,
		&v.IntervalDays, &v.IsObligatory, &v.MinStockLevel, &v.CreatedAt, &v.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, vaxerr.NotFound("vaccine")
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vaccineRepoPG) Create(ctx context.Context, v *Vaccine) error {
	v.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vaccine (id, name, manufacturer, description, doses_required,
			interval_days, is_obligatory, min_stock_level)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		v.ID, v.Name, v.Manufacturer, v.Description, v.DosesRequired,
		v.IntervalDays, v.IsObligatory, v.MinStockLevel).
		Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (r *vaccineRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Vaccine, error) {
	return scanVaccine(r.conn(ctx).QueryRow(ctx,
		`SELECT `+vaccineCols+` FROM vaccine WHERE id = $1`, id))
}

func (r *vaccineRepoPG) GetByNameManufacturer(ctx context.Context, name, manufacturer string) (*Vaccine, error) {
	return scanVaccine(r.conn(ctx).QueryRow(ctx,
		`SELECT `+vaccineCols+` FROM vaccine WHERE name = $1 AND manufacturer = $2`,
		name, manufacturer))
}

func (r *vaccineRepoPG) Update(ctx context.Context, v *Vaccine) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE vaccine SET name=$2, manufacturer=$3, description=$4, doses_required=$5,
			interval_days=$6, is_obligatory=$7, min_stock_level=$8, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.Name, v.Manufacturer, v.Description, v.DosesRequired,
		v.IntervalDays, v.IsObligatory, v.MinStockLevel)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vaxerr.NotFound("vaccine")
	}
	return nil
}

func (r *vaccineRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM vaccine WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vaxerr.NotFound("vaccine")
	}
	return nil
}

func (r *vaccineRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Vaccine, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Obligatory != nil {
		where = " WHERE is_obligatory = $1"
		args = append(args, *filter.Obligatory)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vaccine`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// limit 0 means no pagination
	var lim any = limit
	if limit <= 0 {
		lim = nil
	}
	query := fmt.Sprintf(`SELECT %s FROM vaccine%s ORDER BY name, manufacturer LIMIT $%d OFFSET $%d`,
		vaccineCols, where, len(args)+1, len(args)+2)
	args = append(args, lim, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Vaccine
	for rows.Next() {
		v, err := scanVaccine(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}

func (r *vaccineRepoPG) HasApplications(ctx context.Context, vaccineID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vaccine_application WHERE vaccine_id = $1)`,
		vaccineID).Scan(&exists)
	return exists, err
}
