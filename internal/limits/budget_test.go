package limits

import (
	"errors"
	"testing"
)

func TestBudgetCharge(t *testing.T) {
	b := NewBudget(10)
	if err := b.Charge(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Charge(6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := b.Charge(1)
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("expected ErrStepLimit, got %v", err)
	}
	if err.Error() != "max instruction count exceeded (10)" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if b.Used() != 10 {
		t.Fatalf("failed charge must not be recorded, used=%d", b.Used())
	}
	b.Reset()
	if b.Used() != 0 || b.Limit() != 10 {
		t.Fatalf("reset: used=%d limit=%d", b.Used(), b.Limit())
	}
}

func TestBudgetUnlimited(t *testing.T) {
	b := NewBudget(0)
	if err := b.Charge(1_000_000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Used() != 1_000_000 {
		t.Fatalf("unlimited budgets still count, used=%d", b.Used())
	}

	var nilBudget *Budget
	if err := nilBudget.Charge(5); err != nil || nilBudget.Used() != 0 {
		t.Fatalf("nil budget must be inert")
	}
}
