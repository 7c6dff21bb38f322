package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/labops/labops/internal/platform/apperr"
)

func newTestService() *Service {
	return NewService(NewMemoryRepo())
}

func validService() *LabService {
	return &LabService{
		Code:            "CBC",
		Name:            "Complete Blood Count",
		Category:        "hematology",
		PriceCents:      10000,
		SampleType:      SampleBlood,
		TurnaroundHours: 24,
	}
}

func TestCreate(t *testing.T) {
	svc := newTestService()
	ls := validService()
	if err := svc.Create(context.Background(), ls); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ls.Active {
		t.Error("new services must start active")
	}
}

func TestCreate_CodeRequired(t *testing.T) {
	svc := newTestService()
	ls := validService()
	ls.Code = ""
	if err := svc.Create(context.Background(), ls); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreate_DuplicateCode(t *testing.T) {
	svc := newTestService()
	if err := svc.Create(context.Background(), validService()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := svc.Create(context.Background(), validService())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for duplicate code, got %v", err)
	}
}

// faultyServices fails the duplicate-code lookup, standing in for a storage
// error.
type faultyServices struct {
	Repository
}

func (f *faultyServices) GetByCode(context.Context, string) (*LabService, error) {
	return nil, errors.New("connection reset")
}

func TestCreate_LookupErrorPropagates(t *testing.T) {
	svc := NewService(&faultyServices{Repository: NewMemoryRepo()})
	err := svc.Create(context.Background(), validService())
	if err == nil || apperr.KindOf(err) != "" {
		t.Fatalf("storage error must surface, not be read as absence: %v", err)
	}
}

func TestCreate_UnknownSampleType(t *testing.T) {
	svc := newTestService()
	ls := validService()
	ls.SampleType = "plasma"
	if err := svc.Create(context.Background(), ls); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreate_NegativePrice(t *testing.T) {
	svc := newTestService()
	ls := validService()
	ls.PriceCents = -1
	if err := svc.Create(context.Background(), ls); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUpdatePrice(t *testing.T) {
	svc := newTestService()
	ls := validService()
	svc.Create(context.Background(), ls)

	updated, err := svc.UpdatePrice(context.Background(), ls.ID, 25000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.PriceCents != 25000 {
		t.Errorf("expected 25000, got %d", updated.PriceCents)
	}
}

func TestSetActive(t *testing.T) {
	svc := newTestService()
	ls := validService()
	svc.Create(context.Background(), ls)

	updated, err := svc.SetActive(context.Background(), ls.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Active {
		t.Error("expected service deactivated")
	}

	items, total, err := svc.List(context.Background(), true, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("deactivated service must not appear in active listing, got %d", total)
	}
}
