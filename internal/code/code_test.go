package code

import (
	"errors"
	"strings"
	"testing"

	"pychart/internal/object"
)

func TestEveryOpcodeHasOneDefinition(t *testing.T) {
	seenNames := map[string]Opcode{}
	for _, op := range Opcodes() {
		def, ok := Lookup(op)
		if !ok {
			t.Fatalf("opcode %d has no definition", op)
		}
		if prev, dup := seenNames[def.Name]; dup {
			t.Fatalf("opcodes %d and %d share definition name %s", prev, op, def.Name)
		}
		seenNames[def.Name] = op
	}
	if len(definitions) != len(Opcodes()) {
		t.Fatalf("definitions has %d entries for %d opcodes", len(definitions), len(Opcodes()))
	}
}

func TestConstructorsRejectBadOperands(t *testing.T) {
	x := Ident(1, "x")
	one := Val(&object.Integer{Value: 1})
	var absent Operand

	tests := []struct {
		name string
		fn   func() error
	}{
		{"create value", func() error { _, err := NewCreate(one); return err }},
		{"push to value", func() error { _, err := NewPush(one, x); return err }},
		{"push absent", func() error { _, err := NewPush(x, absent); return err }},
		{"binary dst value", func() error { _, err := NewBinary(OpAdd, one, x, x); return err }},
		{"binary missing right", func() error { _, err := NewBinary(OpAdd, x, x, absent); return err }},
		{"binary wrong opcode", func() error { _, err := NewBinary(OpNot, x, x, x); return err }},
		{"unary wrong opcode", func() error { _, err := NewUnary(OpAdd, x, x); return err }},
		{"call value callee", func() error { _, err := NewCall(absent, one, nil); return err }},
		{"call value dst", func() error { _, err := NewCall(one, x, nil); return err }},
		{"call absent arg", func() error { _, err := NewCall(absent, x, []Operand{absent}); return err }},
		{"func value param", func() error { _, err := NewDefineFunction(x, []Operand{one}, 0); return err }},
		{"func negative length", func() error { _, err := NewDefineFunction(x, nil, -1); return err }},
		{"jif absent", func() error { _, err := NewJumpIfFalse(absent, "L"); return err }},
		{"jit empty label", func() error { _, err := NewJumpIfTrue(x, ""); return err }},
		{"aget value array", func() error { _, err := NewArrayGet(x, one, one); return err }},
		{"aset value array", func() error { _, err := NewArraySet(one, one, one); return err }},
		{"array absent element", func() error { _, err := NewArrayNew(x, []Operand{absent}); return err }},
	}
	for _, tt := range tests {
		err := tt.fn()
		var ce *ConstructionError
		if !errors.As(err, &ce) {
			t.Fatalf("%s: expected ConstructionError, got %v", tt.name, err)
		}
	}
}

func TestPushPicksOpcodeFromSource(t *testing.T) {
	x := Ident(1, "x")
	y := Ident(2, "y")

	in, err := NewPush(x, y)
	if err != nil || in.Op != OpPushIdentifier {
		t.Fatalf("expected OpPushIdentifier, got %v (%v)", in.Op, err)
	}
	in, err = NewPush(x, Val(object.NULL))
	if err != nil || in.Op != OpPushValue {
		t.Fatalf("expected OpPushValue, got %v (%v)", in.Op, err)
	}
}

func TestCallAllowsAbsentDestination(t *testing.T) {
	in, err := NewCall(Operand{}, Ident(3, "print"), []Operand{Val(&object.String{Value: "hi"})})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !in.Dst.IsAbsent() {
		t.Fatalf("expected absent destination")
	}
}

func TestDisassemble(t *testing.T) {
	x := Ident(1, "x")
	f := Ident(2, "f")
	a := Ident(3, "a")
	two := Val(&object.Integer{Value: 2})

	create, _ := NewCreate(x)
	push, _ := NewPush(x, Val(&object.String{Value: "s"}))
	fn, _ := NewDefineFunction(f, []Operand{a}, 1)
	call, _ := NewCall(x, f, []Operand{two})
	add, _ := NewBinary(OpAdd, x, x, two)
	jif, _ := NewJumpIfFalse(x, "end")

	ins, err := Linearize([]Fragment{
		create, push, fn, NewReturn(a), call, add, jif, NewLabel("end"),
	}, true)
	if err != nil {
		t.Fatalf("linearize: %v", err)
	}

	want := []string{
		`0000 create  x`,
		`0001 push    x, "s"`,
		`0002 func    f[a] len=1`,
		`	0003 return  a`,
		``,
		`0004 call    x, f, [2]`,
		`0005 add     x, x, 2`,
		`0006 jeqz    x, 7 (end)`,
		`0007 end:`,
	}
	got := strings.Split(strings.TrimRight(ins.String(), "\n"), "\n")
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(got), ins.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if m := ins.Disassemble(true); !strings.Contains(m, "1.x") {
		t.Fatalf("expected mangled names, got:\n%s", m)
	}
}

func TestProgramSymbols(t *testing.T) {
	p := &Program{Symbols: []Symbol{
		{Slot: 0, Name: "print", Global: true},
		{Slot: 4, Name: "x"},
	}}
	if slot, ok := p.GlobalSlot("print"); !ok || slot != 0 {
		t.Fatalf("expected print at slot 0, got %d %v", slot, ok)
	}
	if _, ok := p.GlobalSlot("x"); ok {
		t.Fatalf("x is not global")
	}
	if p.SymbolName(4) != "x" || p.SymbolName(9) != "#9" {
		t.Fatalf("unexpected symbol names")
	}
}
