package collector

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

const cols = `id, full_name, phone, active, status, lat, lng, created_at, updated_at`

func scan(row pgx.Row) (*Collector, error) {
	var c Collector
	err := row.Scan(&c.ID, &c.FullName, &c.Phone, &c.Active, &c.Status, &c.Lat, &c.Lng, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("collector not found")
	}
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Collector) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO collector (id, full_name, phone, active, status, lat, lng)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.FullName, c.Phone, c.Active, c.Status, c.Lat, c.Lng)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Collector, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM collector WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE collector SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("collector not found")
	}
	return nil
}

func (r *repoPG) UpdatePosition(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE collector SET lat = $2, lng = $3, updated_at = NOW() WHERE id = $1`, id, lat, lng)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("collector not found")
	}
	return nil
}

func (r *repoPG) ListAvailable(ctx context.Context) ([]*Collector, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM collector WHERE active AND status = 'available' ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Collector
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Collector, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM collector`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+cols+` FROM collector ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Collector
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
