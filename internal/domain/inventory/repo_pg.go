package inventory

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

const cols = `id, name, category, unit, supplier, current_stock, min_threshold, last_restocked, created_at, updated_at`

func scan(row pgx.Row) (*Item, error) {
	var i Item
	err := row.Scan(&i.ID, &i.Name, &i.Category, &i.Unit, &i.Supplier, &i.CurrentStock, &i.MinThreshold, &i.LastRestocked, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("inventory item not found")
	}
	return &i, err
}

func (r *repoPG) Create(ctx context.Context, i *Item) error {
	i.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO inventory_item (id, name, category, unit, supplier, current_stock, min_threshold)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		i.ID, i.Name, i.Category, i.Unit, i.Supplier, i.CurrentStock, i.MinThreshold)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM inventory_item WHERE id = $1`, id))
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*Item, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM inventory_item WHERE name = $1`, name))
}

// AdjustStock relies on the WHERE guard for atomicity: a concurrent overdraw
// loses the race and matches zero rows, which is then disambiguated into
// not-found vs. insufficient stock.
func (r *repoPG) AdjustStock(ctx context.Context, id uuid.UUID, delta int, restocked bool) (*Item, error) {
	q := `
		UPDATE inventory_item SET
			current_stock = current_stock + $2,
			last_restocked = CASE WHEN $3 THEN NOW() ELSE last_restocked END,
			updated_at = NOW()
		WHERE id = $1 AND current_stock + $2 >= 0
		RETURNING ` + cols
	item, err := scan(r.conn(ctx).QueryRow(ctx, q, id, delta, restocked))
	if apperr.IsKind(err, apperr.KindNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, apperr.InsufficientStock("item %s cannot absorb delta %d", id, delta)
	}
	return item, err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM inventory_item`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+cols+` FROM inventory_item ORDER BY name ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		i, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, i)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListLowStock(ctx context.Context) ([]*Item, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM inventory_item WHERE current_stock <= min_threshold ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		i, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
