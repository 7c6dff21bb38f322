package order

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// inTx runs fn inside the ambient transaction when one is present, otherwise
// in a fresh one carried through the context.
func (r *repoPG) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if db.TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, r.pool, fn)
}

const cols = `id, order_number, patient_id, collector_id, status, priority, notes, address, scheduled_at, total_cents, created_at, updated_at`

func scan(row pgx.Row) (*LabOrder, error) {
	var o LabOrder
	err := row.Scan(&o.ID, &o.OrderNumber, &o.PatientID, &o.CollectorID, &o.Status, &o.Priority,
		&o.Notes, &o.Address, &o.ScheduledAt, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order not found")
	}
	return &o, err
}

func (r *repoPG) Create(ctx context.Context, o *LabOrder, lines []*Line) error {
	o.ID = uuid.New()
	return r.inTx(ctx, func(ctx context.Context) error {
		q := r.conn(ctx)
		_, err := q.Exec(ctx, `
			INSERT INTO lab_order (id, order_number, patient_id, status, priority, notes, address, scheduled_at, total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			o.ID, o.OrderNumber, o.PatientID, o.Status, o.Priority, o.Notes, o.Address, o.ScheduledAt, o.TotalCents)
		if err != nil {
			return err
		}
		for _, l := range lines {
			l.ID = uuid.New()
			l.OrderID = o.ID
			_, err := q.Exec(ctx, `
				INSERT INTO order_line (id, order_id, service_id, service_name, sample_type, price_cents, quantity)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				l.ID, l.OrderID, l.ServiceID, l.ServiceName, l.SampleType, l.PriceCents, l.Quantity)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*LabOrder, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM lab_order WHERE id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*LabOrder, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM lab_order WHERE order_number = $1`, number))
}

func (r *repoPG) ListLines(ctx context.Context, orderID uuid.UUID) ([]*Line, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, order_id, service_id, service_name, sample_type, price_cents, quantity
		FROM order_line WHERE order_id = $1 ORDER BY service_name ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []*Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ServiceID, &l.ServiceName, &l.SampleType, &l.PriceCents, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

func (r *repoPG) UpdateWithHistory(ctx context.Context, o *LabOrder, h *StatusChange) error {
	return r.inTx(ctx, func(ctx context.Context) error {
		q := r.conn(ctx)
		tag, err := q.Exec(ctx, `
			UPDATE lab_order SET collector_id = $2, status = $3, updated_at = NOW() WHERE id = $1`,
			o.ID, o.CollectorID, o.Status)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("order not found")
		}
		h.ID = uuid.New()
		h.OrderID = o.ID
		_, err = q.Exec(ctx, `
			INSERT INTO order_status_history (id, order_id, from_status, to_status, changed_by, reason, changed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			h.ID, h.OrderID, h.FromStatus, h.ToStatus, h.ChangedBy, h.Reason, h.ChangedAt)
		return err
	})
}

func (r *repoPG) ListHistory(ctx context.Context, orderID uuid.UUID) ([]*StatusChange, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, order_id, from_status, to_status, changed_by, reason, changed_at
		FROM order_status_history WHERE order_id = $1 ORDER BY changed_at ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*StatusChange
	for rows.Next() {
		var h StatusChange
		if err := rows.Scan(&h.ID, &h.OrderID, &h.FromStatus, &h.ToStatus, &h.ChangedBy, &h.Reason, &h.ChangedAt); err != nil {
			return nil, err
		}
		items = append(items, &h)
	}
	return items, rows.Err()
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*LabOrder, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if f.Status != nil {
		args = append(args, *f.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_order`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	q := `SELECT ` + cols + ` FROM lab_order` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*LabOrder
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CountActiveByCollector(ctx context.Context, collectorID, excludeOrderID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM lab_order
		WHERE collector_id = $1 AND id <> $2 AND status = 'collection_scheduled'`,
		collectorID, excludeOrderID).Scan(&n)
	return n, err
}

// PGNumberSource allocates order numbers from a database sequence, so
// concurrent processes never collide.
type PGNumberSource struct {
	pool   *pgxpool.Pool
	prefix string
}

func NewPGNumberSource(pool *pgxpool.Pool, prefix string) *PGNumberSource {
	return &PGNumberSource{pool: pool, prefix: prefix}
}

func (s *PGNumberSource) Next(ctx context.Context) (string, error) {
	var seq int64
	if err := s.pool.QueryRow(ctx, `SELECT nextval('lab_order_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return FormatNumber(s.prefix, time.Now(), seq), nil
}
