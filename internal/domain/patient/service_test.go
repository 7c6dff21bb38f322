package patient

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/labops/labops/internal/platform/apperr"
)

func newTestService() *Service {
	return NewService(NewMemoryRepo())
}

func TestRegister(t *testing.T) {
	svc := newTestService()
	p := &Patient{FullName: "Sara Ali", NationalID: "29001010112345", Phone: "+201000000001", Age: 34, Address: "12 Nile St"}
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
}

func TestRegister_NameRequired(t *testing.T) {
	svc := newTestService()
	err := svc.Register(context.Background(), &Patient{NationalID: "123"})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRegister_NationalIDRequired(t *testing.T) {
	svc := newTestService()
	err := svc.Register(context.Background(), &Patient{FullName: "Sara Ali"})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRegister_DuplicateNationalID(t *testing.T) {
	svc := newTestService()
	first := &Patient{FullName: "Sara Ali", NationalID: "29001010112345"}
	if err := svc.Register(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := svc.Register(context.Background(), &Patient{FullName: "Other", NationalID: "29001010112345"})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for duplicate national id, got %v", err)
	}
}

// faultyPatients fails the duplicate-id lookup, standing in for a storage
// error.
type faultyPatients struct {
	Repository
}

func (f *faultyPatients) GetByNationalID(context.Context, string) (*Patient, error) {
	return nil, errors.New("connection reset")
}

func TestRegister_LookupErrorPropagates(t *testing.T) {
	svc := NewService(&faultyPatients{Repository: NewMemoryRepo()})
	err := svc.Register(context.Background(), &Patient{FullName: "Sara Ali", NationalID: "29001010112345"})
	if err == nil || apperr.KindOf(err) != "" {
		t.Fatalf("storage error must surface, not be read as absence: %v", err)
	}
}

func TestUpdateContact_OnlyContactFieldsChange(t *testing.T) {
	svc := newTestService()
	p := &Patient{FullName: "Sara Ali", NationalID: "29001010112345", Phone: "+201000000001", Address: "12 Nile St"}
	svc.Register(context.Background(), p)

	phone := "+201000000099"
	updated, err := svc.UpdateContact(context.Background(), p.ID, ContactUpdate{Phone: &phone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Phone != phone {
		t.Errorf("expected phone updated, got %s", updated.Phone)
	}
	if updated.Address != "12 Nile St" {
		t.Errorf("address must be untouched, got %s", updated.Address)
	}
	if updated.FullName != "Sara Ali" || updated.NationalID != "29001010112345" {
		t.Error("identity fields must be immutable")
	}
}

func TestUpdateContact_Empty(t *testing.T) {
	svc := newTestService()
	p := &Patient{FullName: "Sara Ali", NationalID: "29001010112345"}
	svc.Register(context.Background(), p)
	_, err := svc.UpdateContact(context.Background(), p.ID, ContactUpdate{})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := newTestService()
	_, err := svc.Get(context.Background(), uuid.New())
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestList_Pagination(t *testing.T) {
	svc := newTestService()
	for i := 0; i < 5; i++ {
		svc.Register(context.Background(), &Patient{FullName: "P", NationalID: uuid.NewString()})
	}
	items, total, err := svc.List(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
}
