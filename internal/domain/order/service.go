package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labops/labops/internal/domain/catalog"
	"github.com/labops/labops/internal/domain/patient"
	"github.com/labops/labops/internal/platform/apperr"
	"github.com/labops/labops/internal/platform/locking"
)

// The engine talks to its neighbours through narrow interfaces so each can
// be stubbed in tests.

type PatientDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Catalog interface {
	Get(ctx context.Context, id uuid.UUID) (*catalog.LabService, error)
}

type CollectorRegistry interface {
	MarkBusy(ctx context.Context, id uuid.UUID) error
	MarkAvailable(ctx context.Context, id uuid.UUID) error
	HasOtherActiveAssignment(ctx context.Context, collectorID, excludeOrderID uuid.UUID) (bool, error)
}

type InventoryLedger interface {
	ConsumeForCollection(ctx context.Context, orderID uuid.UUID, sampleTypes []string) error
	RestoreForCollection(ctx context.Context, orderID uuid.UUID, sampleTypes []string) error
}

// ResultGate answers whether an order's results clear it for completion.
type ResultGate interface {
	AllValidatedForOrder(ctx context.Context, orderID uuid.UUID, expected int) (bool, error)
}

// Selection picks one catalog service for an order.
type Selection struct {
	ServiceID uuid.UUID `json:"service_id"`
	Quantity  int       `json:"quantity"`
}

type CreateParams struct {
	PatientID   uuid.UUID   `json:"patient_id"`
	Selections  []Selection `json:"selections"`
	Priority    Priority    `json:"priority"`
	Notes       string      `json:"notes"`
	Address     string      `json:"address"`
	ScheduledAt *time.Time  `json:"scheduled_at"`
}

// Details is the full projection of one order.
type Details struct {
	Order   *LabOrder       `json:"order"`
	Lines   []*Line         `json:"lines"`
	History []*StatusChange `json:"history"`
}

// Service is the order lifecycle engine. Every mutation locks the aggregates
// it touches and re-validates inside the lock, so concurrent callers observe
// a serial history per order and per collector.
type Service struct {
	orders   Repository
	numbers  NumberSource
	patients PatientDirectory
	services Catalog
	registry CollectorRegistry
	ledger   InventoryLedger
	gate     ResultGate
	locks    *locking.KeyedMutex
	log      zerolog.Logger
}

func NewService(
	orders Repository,
	numbers NumberSource,
	patients PatientDirectory,
	services Catalog,
	registry CollectorRegistry,
	ledger InventoryLedger,
	locks *locking.KeyedMutex,
	log zerolog.Logger,
) *Service {
	return &Service{
		orders:   orders,
		numbers:  numbers,
		patients: patients,
		services: services,
		registry: registry,
		ledger:   ledger,
		locks:    locks,
		log:      log,
	}
}

// SetResultGate wires the result workflow in after construction; the two
// services reference each other and are built in sequence at startup.
func (s *Service) SetResultGate(gate ResultGate) {
	s.gate = gate
}

// CreateOrder registers a new order. Line prices are frozen from the catalog
// at this moment; later price edits do not touch existing orders.
func (s *Service) CreateOrder(ctx context.Context, p CreateParams) (*LabOrder, error) {
	if len(p.Selections) == 0 {
		return nil, apperr.Validation("at least one service selection is required")
	}
	if p.Priority == "" {
		p.Priority = PriorityNormal
	}
	if !validPriorities[p.Priority] {
		return nil, apperr.Validation("unknown priority %q", p.Priority)
	}
	pat, err := s.patients.Get(ctx, p.PatientID)
	if err != nil {
		return nil, err
	}
	if p.Address == "" {
		p.Address = pat.Address
	}

	lines := make([]*Line, 0, len(p.Selections))
	var total int64
	for _, sel := range p.Selections {
		qty := sel.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return nil, apperr.Validation("quantity must be positive")
		}
		ls, err := s.services.Get(ctx, sel.ServiceID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return nil, apperr.Validation("unknown service %s", sel.ServiceID)
			}
			return nil, err
		}
		if !ls.Active {
			return nil, apperr.Validation("service %s is not orderable", ls.Code)
		}
		lines = append(lines, &Line{
			ServiceID:   ls.ID,
			ServiceName: ls.Name,
			SampleType:  string(ls.SampleType),
			PriceCents:  ls.PriceCents,
			Quantity:    qty,
		})
		total += ls.PriceCents * int64(qty)
	}

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, err
	}
	o := &LabOrder{
		OrderNumber: number,
		PatientID:   p.PatientID,
		Status:      StatusRegistered,
		Priority:    p.Priority,
		Notes:       p.Notes,
		Address:     p.Address,
		ScheduledAt: p.ScheduledAt,
		TotalCents:  total,
	}
	if err := s.orders.Create(ctx, o, lines); err != nil {
		return nil, err
	}
	s.checkLinked(o)
	return o, nil
}

// AssignCollector links an available collector to a registered order and
// schedules the collection. Both aggregates are locked, so two orders racing
// for the same collector produce exactly one winner.
func (s *Service) AssignCollector(ctx context.Context, orderID, collectorID uuid.UUID, changedBy *uuid.UUID) (*LabOrder, error) {
	unlock, err := s.locks.Lock(ctx,
		locking.OrderKey(orderID.String()),
		locking.CollectorKey(collectorID.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusRegistered {
		return nil, apperr.InvalidTransition("order %s is %s, collectors are assigned to registered orders", o.OrderNumber, o.Status)
	}
	if err := s.registry.MarkBusy(ctx, collectorID); err != nil {
		return nil, err
	}

	o.CollectorID = &collectorID
	o.Status = StatusCollectionScheduled
	if err := s.orders.UpdateWithHistory(ctx, o, &StatusChange{
		FromStatus: StatusRegistered,
		ToStatus:   StatusCollectionScheduled,
		ChangedBy:  changedBy,
		Reason:     "collector assigned",
		ChangedAt:  time.Now().UTC(),
	}); err != nil {
		if relErr := s.registry.MarkAvailable(ctx, collectorID); relErr != nil {
			s.log.Error().Err(relErr).Str("collector_id", collectorID.String()).
				Msg("failed to release collector after aborted assignment")
		}
		return nil, err
	}
	s.checkLinked(o)
	return o, nil
}

// AdvanceStatus moves the order exactly one step forward, into collected,
// processing or delivered. Entering collected draws the collection's
// materials from stock first and then hands the collector back unless they
// still hold another scheduled order. Completed is reached only through
// CompleteOrder.
func (s *Service) AdvanceStatus(ctx context.Context, orderID uuid.UUID, to Status, changedBy *uuid.UUID, reason string) (*LabOrder, error) {
	switch to {
	case StatusCollected, StatusProcessing, StatusDelivered:
	case StatusCompleted:
		return nil, apperr.Validation("completed is reached through order completion, not a plain advance")
	default:
		return nil, apperr.Validation("cannot advance into %q", to)
	}

	// first read only locates the collector so both locks are taken in one
	// call; everything is re-read and re-checked under the locks
	peek, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	keys := []locking.Key{locking.OrderKey(orderID.String())}
	if peek.CollectorID != nil {
		keys = append(keys, locking.CollectorKey(peek.CollectorID.String()))
	}
	unlock, err := s.locks.Lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, apperr.InvalidTransition("order %s cannot go from %s to %s", o.OrderNumber, o.Status, to)
	}

	var consumed []string
	if to == StatusCollected {
		lines, err := s.orders.ListLines(ctx, orderID)
		if err != nil {
			return nil, err
		}
		consumed = sampleTypes(lines)
		if err := s.ledger.ConsumeForCollection(ctx, orderID, consumed); err != nil {
			return nil, err
		}
	}

	from := o.Status
	o.Status = to
	if err := s.orders.UpdateWithHistory(ctx, o, &StatusChange{
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  changedBy,
		Reason:     reason,
		ChangedAt:  time.Now().UTC(),
	}); err != nil {
		// the draw committed but the transition did not; put the stock back
		// so the order and the ledger stay in step
		if consumed != nil {
			if undoErr := s.ledger.RestoreForCollection(ctx, orderID, consumed); undoErr != nil {
				s.log.Error().Err(undoErr).Str("order_id", o.ID.String()).
					Msg("status write failed and consumed stock could not be put back")
			}
		}
		return nil, err
	}

	if to == StatusCollected && o.CollectorID != nil {
		if err := s.releaseCollector(ctx, o); err != nil {
			s.log.Error().Err(err).Str("order_id", o.ID.String()).
				Msg("collection recorded but collector not released")
		}
	}
	s.checkLinked(o)
	return o, nil
}

// releaseCollector hands the collector back unless another scheduled order
// still needs them. Caller holds the collector's lock.
func (s *Service) releaseCollector(ctx context.Context, o *LabOrder) error {
	busy, err := s.registry.HasOtherActiveAssignment(ctx, *o.CollectorID, o.ID)
	if err != nil {
		return err
	}
	if busy {
		return nil
	}
	return s.registry.MarkAvailable(ctx, *o.CollectorID)
}

// CompleteOrder closes the processing phase once every service line carries a
// validated result.
func (s *Service) CompleteOrder(ctx context.Context, orderID uuid.UUID, changedBy *uuid.UUID) (*LabOrder, error) {
	unlock, err := s.locks.Lock(ctx, locking.OrderKey(orderID.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusProcessing {
		return nil, apperr.InvalidTransition("order %s is %s, only processing orders complete", o.OrderNumber, o.Status)
	}
	lines, err := s.orders.ListLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	ok, err := s.gate.AllValidatedForOrder(ctx, orderID, len(lines))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.IncompleteResults("order %s still has unvalidated results", o.OrderNumber)
	}

	o.Status = StatusCompleted
	if err := s.orders.UpdateWithHistory(ctx, o, &StatusChange{
		FromStatus: StatusProcessing,
		ToStatus:   StatusCompleted,
		ChangedBy:  changedBy,
		Reason:     "all results validated",
		ChangedAt:  time.Now().UTC(),
	}); err != nil {
		return nil, err
	}
	s.checkLinked(o)
	return o, nil
}

// DeliverOrder hands the completed report to the patient, the terminal step.
func (s *Service) DeliverOrder(ctx context.Context, orderID uuid.UUID, changedBy *uuid.UUID) (*LabOrder, error) {
	return s.AdvanceStatus(ctx, orderID, StatusDelivered, changedBy, "report delivered")
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*LabOrder, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *Service) GetOrderWithDetails(ctx context.Context, id uuid.UUID) (*Details, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.orders.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.orders.ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Details{Order: o, Lines: lines, History: history}, nil
}

func (s *Service) ListOrders(ctx context.Context, f ListFilter, limit, offset int) ([]*LabOrder, int, error) {
	return s.orders.List(ctx, f, limit, offset)
}

func (s *Service) ListHistory(ctx context.Context, orderID uuid.UUID) ([]*StatusChange, error) {
	return s.orders.ListHistory(ctx, orderID)
}

// AcceptsResult reports whether the order takes result entries right now and
// carries the given service line. Called by the result workflow while it
// holds this order's lock, so no lock is taken here.
func (s *Service) AcceptsResult(ctx context.Context, orderID, serviceID uuid.UUID) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != StatusCollected && o.Status != StatusProcessing {
		return apperr.InvalidTransition("order %s is %s, results are entered after collection", o.OrderNumber, o.Status)
	}
	lines, err := s.orders.ListLines(ctx, orderID)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if l.ServiceID == serviceID {
			return nil
		}
	}
	return apperr.Validation("service %s is not a line of order %s", serviceID, o.OrderNumber)
}

// LineServiceIDs lists the order's service ids for the result workflow.
func (s *Service) LineServiceIDs(ctx context.Context, orderID uuid.UUID) ([]uuid.UUID, error) {
	lines, err := s.orders.ListLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ServiceID)
	}
	return ids, nil
}

func sampleTypes(lines []*Line) []string {
	seen := make(map[string]bool, len(lines))
	var types []string
	for _, l := range lines {
		if !seen[l.SampleType] {
			seen[l.SampleType] = true
			types = append(types, l.SampleType)
		}
	}
	return types
}

func (s *Service) checkLinked(o *LabOrder) {
	if !o.linkedConsistently() {
		s.log.Error().Str("order_id", o.ID.String()).Str("status", string(o.Status)).
			Msg("collector link out of step with order status")
	}
}
