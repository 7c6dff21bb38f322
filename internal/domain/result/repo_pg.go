package result

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

const cols = `id, order_id, service_id, value, unit, normal_range, status, entered_by, entered_at, reviewed_by, reviewed_at, validated_at, created_at, updated_at`

func scan(row pgx.Row) (*TestResult, error) {
	var t TestResult
	err := row.Scan(&t.ID, &t.OrderID, &t.ServiceID, &t.Value, &t.Unit, &t.NormalRange, &t.Status,
		&t.EnteredBy, &t.EnteredAt, &t.ReviewedBy, &t.ReviewedAt, &t.ValidatedAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("test result not found")
	}
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *TestResult) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO test_result (id, order_id, service_id, value, unit, normal_range, status, entered_by, entered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.OrderID, t.ServiceID, t.Value, t.Unit, t.NormalRange, t.Status, t.EnteredBy, t.EnteredAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*TestResult, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM test_result WHERE id = $1`, id))
}

func (r *repoPG) GetByOrderAndService(ctx context.Context, orderID, serviceID uuid.UUID) (*TestResult, error) {
	return scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM test_result WHERE order_id = $1 AND service_id = $2`, orderID, serviceID))
}

func (r *repoPG) Update(ctx context.Context, t *TestResult) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE test_result SET
			status = $2, reviewed_by = $3, reviewed_at = $4, validated_at = $5, updated_at = NOW()
		WHERE id = $1`,
		t.ID, t.Status, t.ReviewedBy, t.ReviewedAt, t.ValidatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("test result not found")
	}
	return nil
}

func (r *repoPG) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*TestResult, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM test_result WHERE order_id = $1 ORDER BY entered_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TestResult
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *repoPG) CountByOrderAndStatus(ctx context.Context, orderID uuid.UUID, status Status) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM test_result WHERE order_id = $1 AND status = $2`, orderID, status).Scan(&n)
	return n, err
}
