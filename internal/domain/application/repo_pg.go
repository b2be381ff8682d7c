package application

import (
	"context"
	"errors"
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

type applicationRepoPG struct{ pool *pgxpool.Pool }

func NewApplicationRepoPG(pool *pgxpool.Pool) ApplicationRepository {
	return &applicationRepoPG{pool: pool}
}

func (r *applicationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const appCols = `id, scheduling_id, user_id, vaccine_id, dose_number, batch_id,
	applied_by_id, application_date, application_site, observations, created_at, updated_at`

func scanApplication(row pgx.Row) (*Application, error) {
	var a Application
	err := row.Scan(&a.ID, &a.SchedulingID, &a.UserID, &a.VaccineID, &a.DoseNumber, &a.BatchID,
		&a.AppliedByID, &a.ApplicationDate, &a.ApplicationSite, &a.Observations, &a.CreatedAt, &a.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, vaxerr.NotFound("application")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *applicationRepoPG) Create(ctx context.Context, a *Application) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vaccine_application (id, scheduling_id, user_id, vaccine_id,
			dose_number, batch_id, applied_by_id, application_date,
			application_site, observations)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		a.ID, a.SchedulingID, a.UserID, a.VaccineID,
		a.DoseNumber, a.BatchID, a.AppliedByID, a.ApplicationDate,
		a.ApplicationSite, a.Observations).
		Scan(&a.CreatedAt, &a.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		// Unique indexes on (user, vaccine, dose) and scheduling_id close the
		// duplicate-dose race between concurrent writers.
		return vaxerr.New(vaxerr.KindDuplicateApplication,
			"dose %d has already been applied", a.DoseNumber)
	}
	return err
}

func (r *applicationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Application, error) {
	return scanApplication(r.conn(ctx).QueryRow(ctx,
		`SELECT `+appCols+` FROM vaccine_application WHERE id = $1`, id))
}

func (r *applicationRepoPG) GetBySchedulingID(ctx context.Context, schedulingID uuid.UUID) (*Application, error) {
	return scanApplication(r.conn(ctx).QueryRow(ctx,
		`SELECT `+appCols+` FROM vaccine_application WHERE scheduling_id = $1`, schedulingID))
}

func (r *applicationRepoPG) UpdateMutable(ctx context.Context, id uuid.UUID, site string, observations *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE vaccine_application SET application_site=$2, observations=$3, updated_at=NOW()
		WHERE id = $1`, id, site, observations)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vaxerr.NotFound("application")
	}
	return nil
}

func (r *applicationRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Application, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where += fmt.Sprintf(clause, len(args))
	}
	if filter.UserID != uuid.Nil {
		add(` AND user_id = $%d`, filter.UserID)
	}
	if filter.VaccineID != uuid.Nil {
		add(` AND vaccine_id = $%d`, filter.VaccineID)
	}
	if filter.AppliedByID != uuid.Nil {
		add(` AND applied_by_id = $%d`, filter.AppliedByID)
	}
	if filter.BatchID != uuid.Nil {
		add(` AND batch_id = $%d`, filter.BatchID)
	}
	if filter.DoseNumber > 0 {
		add(` AND dose_number = $%d`, filter.DoseNumber)
	}
	if !filter.From.IsZero() {
		add(` AND application_date >= $%d`, filter.From)
	}
	if !filter.To.IsZero() {
		add(` AND application_date <= $%d`, filter.To)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vaccine_application`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM vaccine_application%s ORDER BY application_date DESC LIMIT $%d OFFSET $%d`,
		appCols, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collect(rows)
	return items, total, err
}

func collect(rows pgx.Rows) ([]*Application, error) {
	var items []*Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *applicationRepoPG) ListByUserVaccine(ctx context.Context, userID, vaccineID uuid.UUID) ([]*Application, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+appCols+` FROM vaccine_application
		WHERE user_id = $1 AND vaccine_id = $2
		ORDER BY dose_number`, userID, vaccineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *applicationRepoPG) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Application, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+appCols+` FROM vaccine_application
		WHERE user_id = $1
		ORDER BY vaccine_id, dose_number`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}
