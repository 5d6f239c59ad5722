package code

import (
	"errors"
	"reflect"
	"testing"

	"pychart/internal/object"
)

func sampleFragments(t *testing.T) []Fragment {
	t.Helper()
	i := Ident(1, "i")
	c := Ident(2, ".t0")

	create, _ := NewCreate(i)
	zero, _ := NewPush(i, Val(&object.Integer{Value: 0}))
	less, _ := NewBinary(OpLess, c, i, Val(&object.Integer{Value: 3}))
	jif, _ := NewJumpIfFalse(c, "while.end.0")
	inc, _ := NewBinary(OpAdd, i, i, Val(&object.Integer{Value: 1}))

	return []Fragment{
		create,
		zero,
		Seq{
			NewLabel("while.start.0"),
			Seq{less, jif},
			Seq{NewEnterScope(), inc, NewExitScope()},
			NewJump("while.start.0"),
			NewLabel("while.end.0"),
		},
	}
}

func TestLinearizeResolvesLabels(t *testing.T) {
	ins, err := Linearize(sampleFragments(t), false)
	if err != nil {
		t.Fatalf("linearize: %v", err)
	}
	if len(ins) != 10 {
		t.Fatalf("expected 10 instructions, got %d:\n%s", len(ins), ins)
	}

	if ins[2].Op != OpNoop || ins[9].Op != OpNoop {
		t.Fatalf("labels should be erased to no-ops:\n%s", ins)
	}
	if ins[4].Op != OpJumpIfFalse || ins[4].Target != 9 {
		t.Fatalf("expected jeqz to 9, got %v -> %d", ins[4].Op, ins[4].Target)
	}
	if ins[8].Op != OpJump || ins[8].Target != 2 {
		t.Fatalf("expected jump to 2, got %v -> %d", ins[8].Op, ins[8].Target)
	}
	for _, in := range ins {
		if in.Op == OpLabel {
			t.Fatalf("label survived linearization")
		}
	}
}

func TestLinearizeKeepLabels(t *testing.T) {
	ins, err := Linearize(sampleFragments(t), true)
	if err != nil {
		t.Fatalf("linearize: %v", err)
	}
	if ins[2].Op != OpLabel || ins[2].Label != "while.start.0" {
		t.Fatalf("expected kept label at 2, got %v", ins[2])
	}
	if ins[8].Target != 2 {
		t.Fatalf("expected jump to kept label index 2, got %d", ins[8].Target)
	}
}

func TestLinearizeIdempotent(t *testing.T) {
	for _, keep := range []bool{false, true} {
		once, err := Linearize(sampleFragments(t), keep)
		if err != nil {
			t.Fatalf("linearize: %v", err)
		}
		twice, err := Linearize([]Fragment{once}, keep)
		if err != nil {
			t.Fatalf("second linearize: %v", err)
		}
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("keep=%v: not idempotent\nonce:\n%s\ntwice:\n%s", keep, once, twice)
		}
	}
}

func TestLinearizeUnresolvedLabel(t *testing.T) {
	_, err := Linearize([]Fragment{NewJump("nowhere")}, false)
	var ule *UnresolvedLabelError
	if !errors.As(err, &ule) {
		t.Fatalf("expected UnresolvedLabelError, got %v", err)
	}
	if ule.Label != "nowhere" || ule.Index != 0 {
		t.Fatalf("unexpected error detail %+v", ule)
	}
}

func TestLinearizeDuplicateLabel(t *testing.T) {
	_, err := Linearize([]Fragment{NewLabel("a"), NewLabel("a")}, false)
	var dle *DuplicateLabelError
	if !errors.As(err, &dle) {
		t.Fatalf("expected DuplicateLabelError, got %v", err)
	}
}

func TestFlattenPreservesOrder(t *testing.T) {
	a := NewLabel("a")
	b := NewLabel("b")
	c := NewLabel("c")
	ins := Flatten(Seq{a, Seq{Seq{b}}, Instructions{c}})
	if len(ins) != 3 || ins[0].Label != "a" || ins[1].Label != "b" || ins[2].Label != "c" {
		t.Fatalf("unexpected flatten result %v", ins)
	}
}
