package compiler

import (
	"errors"
	"strings"
	"testing"

	"pychart/internal/ast"
	"pychart/internal/code"
	"pychart/internal/diag"
	"pychart/internal/lexer"
	"pychart/internal/parser"
)

func compile(t *testing.T, input string, opts Options) (*code.Program, *Compiler, error) {
	t.Helper()
	p := parser.New(lexer.New(input))
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %s", strings.Join(p.Errors(), "; "))
	}
	c := New(opts)
	prog, err := c.Compile(program)
	return prog, c, err
}

func mustCompile(t *testing.T, input string) *code.Program {
	t.Helper()
	prog, _, err := compile(t, input, Options{})
	if err != nil {
		t.Fatalf("compile %q: %v", input, err)
	}
	return prog
}

func opcodes(ins code.Instructions) []code.Opcode {
	out := make([]code.Opcode, len(ins))
	for i, in := range ins {
		out[i] = in.Op
	}
	return out
}

func expectOps(t *testing.T, input string, ins code.Instructions, want ...code.Opcode) {
	t.Helper()
	got := opcodes(ins)
	if len(got) != len(want) {
		t.Fatalf("%q: expected %d instructions, got %d\n%s", input, len(want), len(got), ins)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%q: instruction %d: expected %s, got %s\n%s", input, i, want[i], got[i], ins)
		}
	}
}

func TestLoweringTablesCoverOperators(t *testing.T) {
	binary, unary := 0, 0
	for _, op := range code.Opcodes() {
		def, _ := code.Lookup(op)
		switch def.Shape {
		case code.ShapeBinary:
			binary++
			if binaryOps[def.Operator] != op {
				t.Fatalf("operator %q does not lower to %s", def.Operator, op)
			}
		case code.ShapeUnary:
			unary++
			if unaryOps[def.Operator] != op {
				t.Fatalf("prefix operator %q does not lower to %s", def.Operator, op)
			}
		}
	}
	if binary != len(binaryOps) || unary != len(unaryOps) {
		t.Fatalf("lowering tables out of sync: %d/%d binary, %d/%d unary",
			len(binaryOps), binary, len(unaryOps), unary)
	}
}

func TestLetAndFolding(t *testing.T) {
	input := `let x = 1 + 2 * 3;`
	prog := mustCompile(t, input)
	expectOps(t, input, prog.Instructions, code.OpCreate, code.OpPushValue)
	if got := prog.Instructions.String(); got != "0000 create  x\n0001 push    x, 7\n" {
		t.Fatalf("unexpected listing:\n%s", got)
	}

	input = `let x = 1; let y = x + 1;`
	prog = mustCompile(t, input)
	expectOps(t, input, prog.Instructions, code.OpCreate, code.OpPushValue, code.OpCreate, code.OpAdd)

	input = `let x; let y = -x;`
	prog = mustCompile(t, input)
	expectOps(t, input, prog.Instructions, code.OpCreate, code.OpCreate, code.OpNegate)
}

func TestFoldingSkipsErrors(t *testing.T) {
	input := `let x = 1 / 0;`
	prog := mustCompile(t, input)
	expectOps(t, input, prog.Instructions, code.OpCreate, code.OpDiv)
}

func TestIfShape(t *testing.T) {
	input := `let x = 0; if (x) { x = 1; } else { x = 2; }`
	prog := mustCompile(t, input)
	ins := prog.Instructions
	expectOps(t, input, ins,
		code.OpCreate, code.OpPushValue,
		code.OpJumpIfTrue,
		code.OpEnterScope, code.OpPushValue, code.OpExitScope,
		code.OpJump,
		code.OpNoop,
		code.OpEnterScope, code.OpPushValue, code.OpExitScope,
		code.OpNoop,
	)
	if ins[2].Target != 7 || ins[6].Target != 11 {
		t.Fatalf("unexpected targets %d, %d\n%s", ins[2].Target, ins[6].Target, ins)
	}
}

func TestWhileShape(t *testing.T) {
	input := `let i = 0; while (i < 3) { i = i + 1; }`
	prog := mustCompile(t, input)
	ins := prog.Instructions
	expectOps(t, input, ins,
		code.OpCreate, code.OpPushValue,
		code.OpNoop,
		code.OpCreate, code.OpLess, code.OpJumpIfFalse,
		code.OpEnterScope, code.OpAdd, code.OpExitScope,
		code.OpJump,
		code.OpNoop,
	)
	if ins[5].Target != 10 || ins[9].Target != 2 {
		t.Fatalf("unexpected targets %d, %d\n%s", ins[5].Target, ins[9].Target, ins)
	}
}

func TestBreakExitsScopes(t *testing.T) {
	input := `while (true) { { break; } }`
	prog := mustCompile(t, input)
	ins := prog.Instructions
	expectOps(t, input, ins,
		code.OpNoop,
		code.OpJumpIfFalse,
		code.OpEnterScope,
		code.OpEnterScope,
		code.OpExitScope, code.OpExitScope, code.OpJump,
		code.OpExitScope,
		code.OpExitScope,
		code.OpJump,
		code.OpNoop,
	)
	if ins[6].Target != 10 {
		t.Fatalf("break should jump past the loop, got %d\n%s", ins[6].Target, ins)
	}
}

func TestFunctionShape(t *testing.T) {
	input := `func f(a) { return a; }`
	prog := mustCompile(t, input)
	ins := prog.Instructions
	expectOps(t, input, ins, code.OpDefineFunction, code.OpReturn, code.OpReturn)
	if ins[0].Length != 2 || len(ins[0].Params) != 1 {
		t.Fatalf("unexpected function header %s", ins[0])
	}
	if ins[1].Left.Name != "a" || !ins[2].Left.IsAbsent() {
		t.Fatalf("unexpected returns:\n%s", ins)
	}
}

func TestReturnFromBlockParksValue(t *testing.T) {
	input := `func f() { { let v = 1; return v; } }`
	prog := mustCompile(t, input)
	ins := prog.Instructions
	expectOps(t, input, ins,
		code.OpDefineFunction,
		code.OpCreate,
		code.OpEnterScope, code.OpCreate, code.OpPushValue,
		code.OpPushIdentifier, code.OpExitScope, code.OpReturn,
		code.OpExitScope,
		code.OpReturn,
	)
	if ins[0].Length != 9 {
		t.Fatalf("expected body length 9, got %d", ins[0].Length)
	}
	if ins[7].Left.Name != ".ret" || ins[1].Dst.Name != ".ret" {
		t.Fatalf("expected return through .ret:\n%s", ins)
	}
}

func TestCallShapes(t *testing.T) {
	input := `func f(a) { return a; } f(1); let r = f(2);`
	prog := mustCompile(t, input)
	ins := prog.Instructions
	expectOps(t, input, ins,
		code.OpDefineFunction, code.OpReturn, code.OpReturn,
		code.OpCall,
		code.OpCreate, code.OpCall,
	)
	if !ins[3].Dst.IsAbsent() {
		t.Fatalf("discarded call should have no destination: %s", ins[3])
	}
	if ins[5].Dst.Name != "r" {
		t.Fatalf("call result should go straight to r: %s", ins[5])
	}
}

func TestEvaluationOrderUsesTemporaries(t *testing.T) {
	input := `func f() { return 1; } let x = f() + f();`
	prog := mustCompile(t, input)
	ins := prog.Instructions
	expectOps(t, input, ins,
		code.OpDefineFunction, code.OpReturn, code.OpReturn,
		code.OpCreate, code.OpCall,
		code.OpCreate, code.OpCall,
		code.OpCreate, code.OpAdd,
	)
	if ins[4].Dst.Name != ".t0" || ins[6].Dst.Name != ".t1" {
		t.Fatalf("expected calls into .t0 then .t1:\n%s", ins)
	}
}

func TestArrays(t *testing.T) {
	input := `let a = [1, 2]; a[0] = a[1];`
	prog := mustCompile(t, input)
	expectOps(t, input, prog.Instructions,
		code.OpCreate, code.OpArrayNew,
		code.OpCreate, code.OpArrayGet,
		code.OpArraySet,
	)
}

func TestSiblingScopesGetDistinctSlots(t *testing.T) {
	prog := mustCompile(t, `{ let a = 1; } { let a = 2; }`)
	var slots []int
	for _, in := range prog.Instructions {
		if in.Op == code.OpCreate {
			slots = append(slots, in.Dst.Slot)
		}
	}
	if len(slots) != 2 || slots[0] == slots[1] {
		t.Fatalf("expected two distinct slots, got %v", slots)
	}
}

func TestGeneratorErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`break;`, "break outside of loop"},
		{`while (true) { func f() { break; } }`, "break outside of loop"},
		{`return 1;`, "return outside of function"},
		{`let x = 1; let x = 2;`, "variable x is already defined"},
		{`func f(a, a) { }`, "variable a is already defined"},
		{`y = 1;`, "undefined variable y"},
		{`let x = y;`, "undefined variable y"},
		{`1[0];`, "cannot use subscript on literals"},
		{`"s"[0] = 1;`, "cannot use subscript on literals"},
		{`5();`, "cannot call a literal"},
	}
	for _, tt := range tests {
		prog, _, err := compile(t, tt.input, Options{})
		if err == nil {
			t.Fatalf("%q: expected error", tt.input)
		}
		if prog != nil {
			t.Fatalf("%q: expected no partial program", tt.input)
		}
		var ge *GeneratorError
		if !errors.As(err, &ge) {
			t.Fatalf("%q: expected *GeneratorError, got %T", tt.input, err)
		}
		if !strings.Contains(ge.Message, tt.want) {
			t.Fatalf("%q: expected %q, got %q", tt.input, tt.want, ge.Message)
		}
		if ge.Diagnostic().Code != diag.CodeGenerate {
			t.Fatalf("%q: unexpected diagnostic code %s", tt.input, ge.Diagnostic().Code)
		}
	}
}

func TestGeneratorErrorPosition(t *testing.T) {
	_, _, err := compile(t, "let x = 1;\n  y = 2;", Options{})
	var ge *GeneratorError
	if !errors.As(err, &ge) {
		t.Fatalf("expected *GeneratorError, got %v", err)
	}
	if ge.Line != 2 || ge.Col != 3 {
		t.Fatalf("expected 2:3, got %d:%d", ge.Line, ge.Col)
	}
}

func TestShadowWarnings(t *testing.T) {
	_, c, err := compile(t, `let x = 1; { let x = 2; } func f(x) { }`, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w := c.Warnings()
	if len(w) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(w))
	}
	for _, d := range w {
		if d.Severity != diag.SeverityWarning || !strings.Contains(d.Message, "x") {
			t.Fatalf("unexpected warning %+v", d)
		}
	}
}

func TestNativesArePredeclared(t *testing.T) {
	prog, _, err := compile(t, `print(1);`, Options{Natives: []string{"print", "len"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slot, ok := prog.GlobalSlot("print")
	if !ok || slot != 0 {
		t.Fatalf("expected print at global slot 0, got %d (%v)", slot, ok)
	}
	if prog.Instructions[0].Left.Slot != slot {
		t.Fatalf("call should target the native's slot: %s", prog.Instructions[0])
	}
}

func TestKeepLabels(t *testing.T) {
	prog, _, err := compile(t, `while (false) { }`, Options{KeepLabels: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ins := prog.Instructions
	if ins[0].Op != code.OpLabel || ins[0].Label != "while.start.1" {
		t.Fatalf("expected start label, got %s", ins[0])
	}
	if last := ins[len(ins)-1]; last.Op != code.OpLabel || last.Label != "while.end.1" {
		t.Fatalf("expected end label, got %s", last)
	}
}

func TestIncrementalCompile(t *testing.T) {
	c := New(Options{})
	first := parser.New(lexer.New(`let x = 1;`)).ParseProgram()
	if _, err := c.Compile(first); err != nil {
		t.Fatalf("first: %v", err)
	}
	bad := parser.New(lexer.New(`{ let y = 1; z; }`)).ParseProgram()
	if _, err := c.Compile(bad); err == nil {
		t.Fatalf("expected error for undefined z")
	}
	second := parser.New(lexer.New(`x = x + 1;`)).ParseProgram()
	prog, err := c.Compile(second)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	expectOps(t, "x = x + 1;", prog.Instructions, code.OpAdd)
}

func TestFailedCompileForgetsGlobals(t *testing.T) {
	c := New(Options{})
	parse := func(src string) *ast.Program { return parser.New(lexer.New(src)).ParseProgram() }

	if _, err := c.Compile(parse(`let x = 1;`)); err != nil {
		t.Fatalf("first: %v", err)
	}
	before := c.arena.Len()
	if _, err := c.Compile(parse(`let y = 2; func f() { } let z = nope;`)); err == nil {
		t.Fatalf("expected error for undefined nope")
	}
	if c.arena.Len() != before {
		t.Fatalf("arena grew from %d to %d after a failed chunk", before, c.arena.Len())
	}
	for _, name := range []string{"y", "f", "z"} {
		if _, ok := c.symbols.Resolve(name); ok {
			t.Fatalf("%s should not stay declared after a failed chunk", name)
		}
	}

	prog, err := c.Compile(parse(`let y = 5; func f() { return x; }`))
	if err != nil {
		t.Fatalf("redeclaring after a failed chunk: %v", err)
	}
	if _, ok := prog.GlobalSlot("y"); !ok {
		t.Fatalf("y missing from symbols")
	}
}

func TestErrorsInsideFunctionsInLoopsLeaveCompilerUsable(t *testing.T) {
	inputs := []string{
		`while (true) { func f() { break; } }`,
		`while (true) { func f(a, a) { } }`,
		`while (true) { while (false) { func f() { return nope; } } }`,
		`func outer() { while (true) { func f() { y = 1; } } }`,
	}
	for _, input := range inputs {
		c := New(Options{})
		if _, err := c.Compile(parser.New(lexer.New(input)).ParseProgram()); err == nil {
			t.Fatalf("%q: expected error", input)
		}
		if c.fn != nil || len(c.loops) != 0 || len(c.buffers) != 1 || c.symbols.Outer != nil {
			t.Fatalf("%q: compiler state not restored", input)
		}
		prog, err := c.Compile(parser.New(lexer.New(`let i = 0; while (i < 2) { i = i + 1; break; }`)).ParseProgram())
		if err != nil {
			t.Fatalf("%q: follow-up compile failed: %v", input, err)
		}
		if len(prog.Instructions) == 0 {
			t.Fatalf("%q: empty follow-up program", input)
		}
	}
}
