package inventory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/labops/labops/internal/domain/catalog"
	"github.com/labops/labops/internal/platform/apperr"
	"github.com/labops/labops/internal/platform/locking"
)

func newTestService(bom BOM) *Service {
	return NewService(NewMemoryRepo(), bom, locking.NewKeyedMutex(time.Second), zerolog.Nop())
}

func addItem(t *testing.T, svc *Service, name string, stock, threshold int) *Item {
	t.Helper()
	i := &Item{Name: name, Category: CategoryConsumables, CurrentStock: stock, MinThreshold: threshold}
	if err := svc.CreateItem(context.Background(), i); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return i
}

func TestCreateItem_Validation(t *testing.T) {
	svc := newTestService(nil)
	cases := []struct {
		name string
		item Item
	}{
		{"missing name", Item{Category: CategoryConsumables}},
		{"unknown category", Item{Name: "x", Category: "stationery"}},
		{"negative stock", Item{Name: "x", Category: CategoryReagents, CurrentStock: -1}},
		{"negative threshold", Item{Name: "x", Category: CategoryReagents, MinThreshold: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := tc.item
			if err := svc.CreateItem(context.Background(), &item); !apperr.IsKind(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateItem_DuplicateName(t *testing.T) {
	svc := newTestService(nil)
	addItem(t, svc, "blood draw kit", 10, 2)
	i := &Item{Name: "blood draw kit", Category: CategoryConsumables}
	if err := svc.CreateItem(context.Background(), i); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// faultyItems fails the duplicate-name lookup, standing in for a storage
// error.
type faultyItems struct {
	Repository
}

func (f *faultyItems) GetByName(context.Context, string) (*Item, error) {
	return nil, errors.New("connection reset")
}

func TestCreateItem_LookupErrorPropagates(t *testing.T) {
	svc := NewService(&faultyItems{Repository: NewMemoryRepo()}, nil, locking.NewKeyedMutex(time.Second), zerolog.Nop())
	err := svc.CreateItem(context.Background(), &Item{Name: "blood draw kit", Category: CategoryConsumables})
	if err == nil || apperr.KindOf(err) != "" {
		t.Fatalf("storage error must surface, not be read as absence: %v", err)
	}
}

func TestAdjustStock_Restock(t *testing.T) {
	svc := newTestService(nil)
	i := addItem(t, svc, "specimen cup", 5, 2)
	updated, err := svc.AdjustStock(context.Background(), i.ID, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.CurrentStock != 15 {
		t.Errorf("expected stock 15, got %d", updated.CurrentStock)
	}
	if updated.LastRestocked == nil {
		t.Error("positive delta must stamp last_restocked")
	}
}

func TestAdjustStock_ConsumeDoesNotStampRestock(t *testing.T) {
	svc := newTestService(nil)
	i := addItem(t, svc, "specimen cup", 5, 2)
	updated, err := svc.AdjustStock(context.Background(), i.ID, -2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.CurrentStock != 3 {
		t.Errorf("expected stock 3, got %d", updated.CurrentStock)
	}
	if updated.LastRestocked != nil {
		t.Error("negative delta must not stamp last_restocked")
	}
}

func TestAdjustStock_OverdrawLeavesStockUntouched(t *testing.T) {
	svc := newTestService(nil)
	i := addItem(t, svc, "specimen cup", 3, 1)
	_, err := svc.AdjustStock(context.Background(), i.ID, -5)
	if !apperr.IsKind(err, apperr.KindInsufficientStock) {
		t.Fatalf("expected insufficient_stock, got %v", err)
	}
	got, _ := svc.Get(context.Background(), i.ID)
	if got.CurrentStock != 3 {
		t.Errorf("failed overdraw must not change stock, got %d", got.CurrentStock)
	}
}

func TestAdjustStock_UnknownItem(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.AdjustStock(context.Background(), uuid.New(), 1)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestListLowStock(t *testing.T) {
	svc := newTestService(nil)
	addItem(t, svc, "abundant", 50, 5)
	low := addItem(t, svc, "scarce", 2, 5)
	atEdge := addItem(t, svc, "edge", 5, 5)

	items, err := svc.ListLowStock(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 low-stock items, got %d", len(items))
	}
	if items[0].ID != atEdge.ID || items[1].ID != low.ID {
		t.Errorf("unexpected low-stock set: %v, %v", items[0].Name, items[1].Name)
	}
}

func TestConsumeForCollection(t *testing.T) {
	svc := newTestService(nil)
	kit := addItem(t, svc, "blood draw kit", 3, 1)
	cup := addItem(t, svc, "specimen cup", 3, 1)

	err := svc.ConsumeForCollection(context.Background(), uuid.New(), []string{"blood", "urine"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gotKit, _ := svc.Get(context.Background(), kit.ID)
	gotCup, _ := svc.Get(context.Background(), cup.ID)
	if gotKit.CurrentStock != 2 || gotCup.CurrentStock != 2 {
		t.Errorf("expected both stocks at 2, got %d and %d", gotKit.CurrentStock, gotCup.CurrentStock)
	}
}

func TestRestoreForCollection_UndoesConsume(t *testing.T) {
	svc := newTestService(nil)
	kit := addItem(t, svc, "blood draw kit", 3, 1)
	orderID := uuid.New()

	if err := svc.ConsumeForCollection(context.Background(), orderID, []string{"blood"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.RestoreForCollection(context.Background(), orderID, []string{"blood"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.Get(context.Background(), kit.ID)
	if got.CurrentStock != 3 {
		t.Errorf("expected stock back at 3, got %d", got.CurrentStock)
	}
	if got.LastRestocked != nil {
		t.Error("a put-back must not count as a restock")
	}
}

func TestConsumeForCollection_UnknownSampleType(t *testing.T) {
	svc := newTestService(nil)
	err := svc.ConsumeForCollection(context.Background(), uuid.New(), []string{"plasma"})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestConsumeForCollection_RollbackOnShortfall(t *testing.T) {
	bom := BOM{
		"blood": {
			{Item: "blood draw kit", Quantity: 1},
			{Item: "gloves", Quantity: 2},
		},
	}
	svc := newTestService(bom)
	kit := addItem(t, svc, "blood draw kit", 5, 1)
	gloves := addItem(t, svc, "gloves", 1, 1)

	err := svc.ConsumeForCollection(context.Background(), uuid.New(), []string{"blood"})
	if !apperr.IsKind(err, apperr.KindInsufficientStock) {
		t.Fatalf("expected insufficient_stock, got %v", err)
	}
	gotKit, _ := svc.Get(context.Background(), kit.ID)
	gotGloves, _ := svc.Get(context.Background(), gloves.ID)
	if gotKit.CurrentStock != 5 {
		t.Errorf("consumed items must be put back on failure, kit stock %d", gotKit.CurrentStock)
	}
	if gotGloves.CurrentStock != 1 {
		t.Errorf("short item must be untouched, gloves stock %d", gotGloves.CurrentStock)
	}
}

func TestConsumeForCollection_ConcurrentDrainsToZero(t *testing.T) {
	svc := newTestService(nil)
	kit := addItem(t, svc, "blood draw kit", 2, 0)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for n := 0; n < 3; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = svc.ConsumeForCollection(context.Background(), uuid.New(), []string{"blood"})
		}(n)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.IsKind(err, apperr.KindInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 2 || short != 1 {
		t.Errorf("expected exactly 2 successes and 1 shortfall, got %d and %d", ok, short)
	}
	got, _ := svc.Get(context.Background(), kit.ID)
	if got.CurrentStock != 0 {
		t.Errorf("expected stock drained to 0, got %d", got.CurrentStock)
	}
}

func TestLoadBOM_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.yaml")
	data := []byte("blood:\n  - item: vacutainer\n    quantity: 2\nstool:\n  - item: stool kit\n    quantity: 1\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	bom, err := LoadBOM(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bom["blood"]) != 1 || bom["blood"][0].Item != "vacutainer" || bom["blood"][0].Quantity != 2 {
		t.Errorf("unexpected blood lines: %+v", bom["blood"])
	}
}

func TestLoadBOM_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.yaml")
	if err := os.WriteFile(path, []byte("blood:\n  - item: vacutainer\n    quantity: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBOM(path); err == nil {
		t.Error("expected error for zero quantity")
	}
}

func TestLoadBOM_DefaultWhenUnset(t *testing.T) {
	bom, err := LoadBOM("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bom["blood"]) == 0 || len(bom["urine"]) == 0 || len(bom["swab"]) == 0 {
		t.Errorf("default bom must cover the stock sample types: %+v", bom)
	}
}

// Every sample type the catalog accepts needs a default consumable mapping,
// or orders for it could never reach collected under default config.
func TestDefaultBOM_CoversCatalogSampleTypes(t *testing.T) {
	bom := DefaultBOM()
	for _, st := range []catalog.SampleType{
		catalog.SampleBlood, catalog.SampleUrine, catalog.SampleSwab, catalog.SampleStool,
	} {
		if len(bom[string(st)]) == 0 {
			t.Errorf("no default bill of materials for sample type %q", st)
		}
	}
}
