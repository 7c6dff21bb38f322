package collector

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/labops/labops/internal/platform/apperr"
	"github.com/labops/labops/internal/platform/locking"
)

func newTestService() *Service {
	return NewService(NewMemoryRepo(), locking.NewKeyedMutex(time.Second))
}

func register(t *testing.T, svc *Service, name string) *Collector {
	t.Helper()
	c := &Collector{FullName: name, Phone: "+201000000010"}
	if err := svc.Register(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestRegister(t *testing.T) {
	svc := newTestService()
	c := register(t, svc, "Mona Fathy")
	if c.Status != StatusAvailable {
		t.Errorf("expected new collector available, got %s", c.Status)
	}
	if !c.Active {
		t.Error("expected new collector active")
	}
}

func TestRegister_NameRequired(t *testing.T) {
	svc := newTestService()
	err := svc.Register(context.Background(), &Collector{})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestMarkBusy(t *testing.T) {
	svc := newTestService()
	c := register(t, svc, "Mona Fathy")
	if err := svc.MarkBusy(context.Background(), c.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.Get(context.Background(), c.ID)
	if got.Status != StatusBusy {
		t.Errorf("expected busy, got %s", got.Status)
	}
}

func TestMarkBusy_AlreadyBusy(t *testing.T) {
	svc := newTestService()
	c := register(t, svc, "Mona Fathy")
	if err := svc.MarkBusy(context.Background(), c.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := svc.MarkBusy(context.Background(), c.ID)
	if !apperr.IsKind(err, apperr.KindCollectorUnavailable) {
		t.Errorf("expected collector_unavailable, got %v", err)
	}
}

func TestMarkBusy_Offline(t *testing.T) {
	svc := newTestService()
	c := register(t, svc, "Mona Fathy")
	if err := svc.SetOffline(context.Background(), c.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := svc.MarkBusy(context.Background(), c.ID)
	if !apperr.IsKind(err, apperr.KindCollectorUnavailable) {
		t.Errorf("expected collector_unavailable, got %v", err)
	}
}

func TestMarkAvailable(t *testing.T) {
	svc := newTestService()
	c := register(t, svc, "Mona Fathy")
	svc.MarkBusy(context.Background(), c.ID)
	if err := svc.MarkAvailable(context.Background(), c.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.Get(context.Background(), c.ID)
	if got.Status != StatusAvailable {
		t.Errorf("expected available, got %s", got.Status)
	}
}

func TestMarkAvailable_IdempotentAndKeepsOffline(t *testing.T) {
	svc := newTestService()
	c := register(t, svc, "Mona Fathy")
	if err := svc.MarkAvailable(context.Background(), c.ID); err != nil {
		t.Fatalf("release of an available collector must be a no-op: %v", err)
	}
	svc.SetOffline(context.Background(), c.ID)
	if err := svc.MarkAvailable(context.Background(), c.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.Get(context.Background(), c.ID)
	if got.Status != StatusOffline {
		t.Errorf("offline collector must stay offline, got %s", got.Status)
	}
}

func TestSetOffline_BusyRejected(t *testing.T) {
	svc := newTestService()
	c := register(t, svc, "Mona Fathy")
	svc.MarkBusy(context.Background(), c.ID)
	err := svc.SetOffline(context.Background(), c.ID)
	if !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Errorf("expected invalid_transition, got %v", err)
	}
}

func TestSetOnline(t *testing.T) {
	svc := newTestService()
	c := register(t, svc, "Mona Fathy")
	svc.SetOffline(context.Background(), c.ID)
	if err := svc.SetOnline(context.Background(), c.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.Get(context.Background(), c.ID)
	if got.Status != StatusAvailable {
		t.Errorf("expected available, got %s", got.Status)
	}
}

func TestFindAvailable_ExcludesBusyAndOffline(t *testing.T) {
	svc := newTestService()
	a := register(t, svc, "A")
	b := register(t, svc, "B")
	c := register(t, svc, "C")
	svc.MarkBusy(context.Background(), b.ID)
	svc.SetOffline(context.Background(), c.ID)

	items, err := svc.FindAvailable(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != a.ID {
		t.Errorf("expected only %s available, got %v", a.ID, items)
	}
}

func TestUpdatePosition(t *testing.T) {
	svc := newTestService()
	c := register(t, svc, "Mona Fathy")
	if err := svc.UpdatePosition(context.Background(), c.ID, 30.0444, 31.2357); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.Get(context.Background(), c.ID)
	if got.Lat == nil || *got.Lat != 30.0444 {
		t.Errorf("expected lat recorded, got %v", got.Lat)
	}
}

func TestUpdatePosition_Invalid(t *testing.T) {
	svc := newTestService()
	c := register(t, svc, "Mona Fathy")
	err := svc.UpdatePosition(context.Background(), c.ID, 91, 0)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := svc.UpdatePosition(context.Background(), uuid.New(), 0, 0); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}
