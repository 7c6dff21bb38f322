package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labops/labops/internal/platform/apperr"
	"github.com/labops/labops/internal/platform/locking"
)

// Service is the inventory ledger. Stock only moves through AdjustStock and
// ConsumeForCollection, so the non-negative invariant is enforced in one
// place.
type Service struct {
	items Repository
	bom   BOM
	locks *locking.KeyedMutex
	log   zerolog.Logger
}

func NewService(items Repository, bom BOM, locks *locking.KeyedMutex, log zerolog.Logger) *Service {
	if bom == nil {
		bom = DefaultBOM()
	}
	return &Service{items: items, bom: bom, locks: locks, log: log}
}

func (s *Service) CreateItem(ctx context.Context, i *Item) error {
	if i.Name == "" {
		return apperr.Validation("name is required")
	}
	if !validCategories[i.Category] {
		return apperr.Validation("unknown category %q", i.Category)
	}
	if i.CurrentStock < 0 {
		return apperr.Validation("current_stock must not be negative")
	}
	if i.MinThreshold < 0 {
		return apperr.Validation("min_threshold must not be negative")
	}
	existing, err := s.items.GetByName(ctx, i.Name)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}
	if existing != nil {
		return apperr.Validation("item %q already exists", i.Name)
	}
	return s.items.Create(ctx, i)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.items.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	return s.items.List(ctx, limit, offset)
}

func (s *Service) ListLowStock(ctx context.Context) ([]*Item, error) {
	return s.items.ListLowStock(ctx)
}

// AdjustStock applies delta to one item. A delta that would push stock below
// zero fails with InsufficientStock and changes nothing; a positive delta
// counts as a restock.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*Item, error) {
	if delta == 0 {
		return nil, apperr.Validation("delta must not be zero")
	}
	unlock, err := s.locks.Lock(ctx, locking.ItemKey(id.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	item, err := s.items.AdjustStock(ctx, id, delta, delta > 0)
	if err != nil {
		return nil, err
	}
	if item.IsLowStock() {
		s.log.Warn().Str("item", item.Name).Int("current_stock", item.CurrentStock).
			Int("min_threshold", item.MinThreshold).Msg("item at or below reorder threshold")
	}
	return item, nil
}

type draw struct {
	id  uuid.UUID
	qty int
}

// resolveDraws aggregates the bill of materials for the given sample types
// into per-item quantities and the lock keys guarding them.
func (s *Service) resolveDraws(ctx context.Context, sampleTypes []string) ([]draw, []locking.Key, error) {
	needed := make(map[string]int)
	for _, st := range sampleTypes {
		lines, ok := s.bom[st]
		if !ok {
			return nil, nil, apperr.Validation("no bill of materials for sample type %q", st)
		}
		for _, l := range lines {
			needed[l.Item] += l.Quantity
		}
	}
	draws := make([]draw, 0, len(needed))
	keys := make([]locking.Key, 0, len(needed))
	for name, qty := range needed {
		item, err := s.items.GetByName(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		draws = append(draws, draw{id: item.ID, qty: qty})
		keys = append(keys, locking.ItemKey(item.ID.String()))
	}
	return draws, keys, nil
}

// ConsumeForCollection draws the bill of materials for every sample type in
// the collection, all or nothing. If any item falls short, deltas already
// applied are put back and the order's stock view is unchanged.
func (s *Service) ConsumeForCollection(ctx context.Context, orderID uuid.UUID, sampleTypes []string) error {
	draws, keys, err := s.resolveDraws(ctx, sampleTypes)
	if err != nil {
		return err
	}
	if len(draws) == 0 {
		return nil
	}

	unlock, err := s.locks.Lock(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	applied := make([]draw, 0, len(draws))
	for _, d := range draws {
		if _, err := s.items.AdjustStock(ctx, d.id, -d.qty, false); err != nil {
			for _, a := range applied {
				if _, undoErr := s.items.AdjustStock(ctx, a.id, a.qty, false); undoErr != nil {
					s.log.Error().Err(undoErr).Str("item_id", a.id.String()).
						Str("order_id", orderID.String()).Msg("failed to put back consumed stock")
				}
			}
			return err
		}
		applied = append(applied, d)
	}
	return nil
}

// RestoreForCollection puts back the materials a successful
// ConsumeForCollection drew, for when the transition that consumed them
// could not be recorded. Best effort: every item is attempted even if an
// earlier put-back fails.
func (s *Service) RestoreForCollection(ctx context.Context, orderID uuid.UUID, sampleTypes []string) error {
	draws, keys, err := s.resolveDraws(ctx, sampleTypes)
	if err != nil {
		return err
	}
	if len(draws) == 0 {
		return nil
	}

	unlock, err := s.locks.Lock(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	var firstErr error
	for _, d := range draws {
		if _, err := s.items.AdjustStock(ctx, d.id, d.qty, false); err != nil {
			s.log.Error().Err(err).Str("item_id", d.id.String()).
				Str("order_id", orderID.String()).Msg("failed to put back consumed stock")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
