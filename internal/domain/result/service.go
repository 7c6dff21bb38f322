package result

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/labops/labops/internal/platform/apperr"
	"github.com/labops/labops/internal/platform/locking"
)

// OrderGate is the slice of the order engine the result workflow needs:
// whether an order can take results right now, and which service lines it
// carries.
type OrderGate interface {
	// AcceptsResult returns nil when the order exists, is in a status that
	// accepts results, and serviceID is one of its lines.
	AcceptsResult(ctx context.Context, orderID, serviceID uuid.UUID) error
	LineServiceIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error)
}

// EnterParams carries one result entry.
type EnterParams struct {
	OrderID     uuid.UUID  `json:"order_id"`
	ServiceID   uuid.UUID  `json:"service_id"`
	Value       string     `json:"value"`
	Unit        string     `json:"unit"`
	NormalRange string     `json:"normal_range"`
	EnteredBy   *uuid.UUID `json:"entered_by"`
}

// Service runs the result workflow. All mutations lock the owning order so
// entry, review and validation serialize with the order engine.
type Service struct {
	results Repository
	orders  OrderGate
	locks   *locking.KeyedMutex

	// requireDistinctReviewer rejects a review by the same actor who
	// entered the value.
	requireDistinctReviewer bool
}

func NewService(results Repository, orders OrderGate, locks *locking.KeyedMutex, requireDistinctReviewer bool) *Service {
	return &Service{
		results:                 results,
		orders:                  orders,
		locks:                   locks,
		requireDistinctReviewer: requireDistinctReviewer,
	}
}

// EnterResult records a measured value for one order line. The row is created
// on first entry; a second entry for the same line fails DuplicateResult.
func (s *Service) EnterResult(ctx context.Context, p EnterParams) (*TestResult, error) {
	if p.Value == "" {
		return nil, apperr.Validation("value is required")
	}

	unlock, err := s.locks.Lock(ctx, locking.OrderKey(p.OrderID.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.orders.AcceptsResult(ctx, p.OrderID, p.ServiceID); err != nil {
		return nil, err
	}
	existing, err := s.results.GetByOrderAndService(ctx, p.OrderID, p.ServiceID)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.DuplicateResult("result for order %s service %s already entered", p.OrderID, p.ServiceID)
	}

	t := &TestResult{
		OrderID:     p.OrderID,
		ServiceID:   p.ServiceID,
		Value:       p.Value,
		Unit:        p.Unit,
		NormalRange: p.NormalRange,
		Status:      StatusCompleted,
		EnteredBy:   p.EnteredBy,
		EnteredAt:   time.Now().UTC(),
	}
	if err := s.results.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ReviewResult moves a completed result to reviewed, stamping the reviewer.
func (s *Service) ReviewResult(ctx context.Context, resultID, reviewerID uuid.UUID) (*TestResult, error) {
	if reviewerID == uuid.Nil {
		return nil, apperr.Validation("reviewer_id is required")
	}
	return s.advance(ctx, resultID, StatusCompleted, func(t *TestResult) error {
		if s.requireDistinctReviewer && t.EnteredBy != nil && *t.EnteredBy == reviewerID {
			return apperr.Validation("reviewer must differ from the actor who entered the result")
		}
		now := time.Now().UTC()
		t.ReviewedBy = &reviewerID
		t.ReviewedAt = &now
		return nil
	})
}

// ValidateResult moves a reviewed result to validated, the terminal status.
func (s *Service) ValidateResult(ctx context.Context, resultID uuid.UUID) (*TestResult, error) {
	return s.advance(ctx, resultID, StatusReviewed, func(t *TestResult) error {
		now := time.Now().UTC()
		t.ValidatedAt = &now
		return nil
	})
}

func (s *Service) advance(ctx context.Context, resultID uuid.UUID, from Status, stamp func(*TestResult) error) (*TestResult, error) {
	t, err := s.results.GetByID(ctx, resultID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, locking.OrderKey(t.OrderID.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// re-read under the lock; the first read only located the order
	t, err = s.results.GetByID(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if t.Status != from {
		return nil, apperr.InvalidTransition("result %s is %s, expected %s", resultID, t.Status, from)
	}
	t.Status = next[from]
	if err := stamp(t); err != nil {
		return nil, err
	}
	if err := s.results.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*TestResult, error) {
	return s.results.GetByID(ctx, id)
}

func (s *Service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*TestResult, error) {
	return s.results.ListByOrder(ctx, orderID)
}

// PendingForOrder lists the order's service lines still waiting on a
// validated result.
func (s *Service) PendingForOrder(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	lines, err := s.orders.LineServiceIDs(ctx, orderID)
	if err != nil {
		return nil, err
	}
	results, err := s.results.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return PendingServices(lines, results), nil
}

// AllValidatedForOrder reports whether every one of the expected lines has a
// validated result. The order engine calls it before completing an order.
func (s *Service) AllValidatedForOrder(ctx context.Context, orderID uuid.UUID, expected int) (bool, error) {
	n, err := s.results.CountByOrderAndStatus(ctx, orderID, StatusValidated)
	if err != nil {
		return false, err
	}
	return n == expected, nil
}
