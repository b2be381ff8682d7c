package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

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

type schedulingRepoPG struct{ pool *pgxpool.Pool }

func NewSchedulingRepoPG(pool *pgxpool.Pool) SchedulingRepository {
	return &schedulingRepoPG{pool: pool}
}

func (r *schedulingRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const schedCols = `id, user_id, vaccine_id, assigned_nurse_id, scheduled_date,
	dose_number, status, notes, created_at, updated_at`

func scanScheduling(row pgx.Row) (*Scheduling, error) {
	var s Scheduling
	err := row.Scan(&s.ID, &s.UserID, &s.VaccineID, &s.AssignedNurseID, &s.ScheduledDate,
		&s.DoseNumber, &s.Status, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, vaxerr.NotFound("scheduling")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// uniqueViolation detects the partial unique index on live dose slots.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *schedulingRepoPG) Create(ctx context.Context, s *Scheduling) error {
	s.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vaccine_scheduling (id, user_id, vaccine_id, assigned_nurse_id,
			scheduled_date, dose_number, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		s.ID, s.UserID, s.VaccineID, s.AssignedNurseID,
		s.ScheduledDate, s.DoseNumber, s.Status, s.Notes).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if uniqueViolation(err) {
		return vaxerr.New(vaxerr.KindDuplicateScheduling,
			"a live scheduling already exists for dose %d", s.DoseNumber)
	}
	return err
}

func (r *schedulingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Scheduling, error) {
	return scanScheduling(r.conn(ctx).QueryRow(ctx,
		`SELECT `+schedCols+` FROM vaccine_scheduling WHERE id = $1`, id))
}

func (r *schedulingRepoPG) Update(ctx context.Context, s *Scheduling) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE vaccine_scheduling SET assigned_nurse_id=$2, scheduled_date=$3,
			status=$4, notes=$5, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.AssignedNurseID, s.ScheduledDate, s.Status, s.Notes)
	if uniqueViolation(err) {
		return vaxerr.New(vaxerr.KindDuplicateScheduling,
			"a live scheduling already exists for dose %d", s.DoseNumber)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vaxerr.NotFound("scheduling")
	}
	return nil
}

func (r *schedulingRepoPG) FindLive(ctx context.Context, userID, vaccineID uuid.UUID, doseNumber int) (*Scheduling, error) {
	return scanScheduling(r.conn(ctx).QueryRow(ctx, `
		SELECT `+schedCols+` FROM vaccine_scheduling
		WHERE user_id = $1 AND vaccine_id = $2 AND dose_number = $3
		  AND status IN ($4, $5)`,
		userID, vaccineID, doseNumber, StatusScheduled, StatusConfirmed))
}

func (r *schedulingRepoPG) ListLiveByUserVaccine(ctx context.Context, userID, vaccineID uuid.UUID) ([]*Scheduling, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+schedCols+` FROM vaccine_scheduling
		WHERE user_id = $1 AND vaccine_id = $2 AND status IN ($3, $4)
		ORDER BY dose_number`,
		userID, vaccineID, StatusScheduled, StatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]*Scheduling, error) {
	var items []*Scheduling
	for rows.Next() {
		s, err := scanScheduling(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *schedulingRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Scheduling, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where += fmt.Sprintf(clause, len(args))
	}
	if filter.Status != "" {
		add(` AND status = $%d`, filter.Status)
	}
	if filter.UserID != uuid.Nil {
		add(` AND user_id = $%d`, filter.UserID)
	}
	if filter.VaccineID != uuid.Nil {
		add(` AND vaccine_id = $%d`, filter.VaccineID)
	}
	if !filter.From.IsZero() {
		add(` AND scheduled_date >= $%d`, filter.From)
	}
	if !filter.To.IsZero() {
		add(` AND scheduled_date <= $%d`, filter.To)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vaccine_scheduling`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM vaccine_scheduling%s ORDER BY scheduled_date LIMIT $%d OFFSET $%d`,
		schedCols, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collect(rows)
	return items, total, err
}

func (r *schedulingRepoPG) ListByDate(ctx context.Context, date time.Time) ([]*Scheduling, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+schedCols+` FROM vaccine_scheduling
		WHERE scheduled_date::date = $1::date
		ORDER BY scheduled_date`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *schedulingRepoPG) ListByNurseMonth(ctx context.Context, nurseID uuid.UUID, year int, month time.Month) ([]*Scheduling, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+schedCols+` FROM vaccine_scheduling
		WHERE assigned_nurse_id = $1 AND scheduled_date >= $2 AND scheduled_date < $3
		ORDER BY scheduled_date`, nurseID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}
