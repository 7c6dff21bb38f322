package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := InsufficientStock("draw kit would go to %d", -1)
	if KindOf(err) != KindInsufficientStock {
		t.Errorf("expected insufficient_stock, got %s", KindOf(err))
	}
}

func TestKindOf_PlainError(t *testing.T) {
	if KindOf(errors.New("boom")) != "" {
		t.Error("expected empty kind for plain error")
	}
}

func TestIsKind_Wrapped(t *testing.T) {
	inner := NotFound("item %s", "abc")
	err := fmt.Errorf("consume: %w", inner)
	if !IsKind(err, KindNotFound) {
		t.Error("expected not_found kind through wrapping")
	}
	if IsKind(err, KindValidation) {
		t.Error("did not expect validation kind")
	}
}

func TestErrorsIs_SameKind(t *testing.T) {
	a := Contention("lock on order timed out")
	b := Contention("different message")
	if !errors.Is(a, b) {
		t.Error("expected errors.Is to match on kind")
	}
}

func TestWrap_Unwrap(t *testing.T) {
	cause := errors.New("row locked")
	err := Wrap(KindContention, cause, "acquire order lock")
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable")
	}
	if KindOf(err) != KindContention {
		t.Errorf("expected contention, got %s", KindOf(err))
	}
}
