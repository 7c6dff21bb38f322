package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labops/labops/internal/platform/apperr"
	"github.com/labops/labops/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const cols = `id, code, name, category, price_cents, sample_type, turnaround_hours, preparation, active, created_at, updated_at`

func scan(row pgx.Row) (*LabService, error) {
	var s LabService
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Category, &s.PriceCents, &s.SampleType,
		&s.TurnaroundHours, &s.Preparation, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("lab service not found")
	}
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *LabService) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_service (id, code, name, category, price_cents, sample_type, turnaround_hours, preparation, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.Code, s.Name, s.Category, s.PriceCents, s.SampleType, s.TurnaroundHours, s.Preparation, s.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*LabService, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM lab_service WHERE id = $1`, id))
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*LabService, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM lab_service WHERE code = $1`, code))
}

func (r *repoPG) Update(ctx context.Context, s *LabService) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_service SET name=$2, category=$3, price_cents=$4, sample_type=$5,
			turnaround_hours=$6, preparation=$7, active=$8, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Category, s.PriceCents, s.SampleType, s.TurnaroundHours, s.Preparation, s.Active)
	return err
}

func (r *repoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*LabService, int, error) {
	where := ``
	if activeOnly {
		where = ` WHERE active`
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_service`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+cols+` FROM lab_service`+where+` ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*LabService
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
