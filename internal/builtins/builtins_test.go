package builtins

import (
	"bytes"
	"strings"
	"testing"

	"pychart/internal/object"
	"pychart/internal/runtimeio"
)

func lookup(t *testing.T, list []*object.Builtin, name string) object.BuiltinFunction {
	t.Helper()
	for _, b := range list {
		if b.Name == name {
			return b.Fn
		}
	}
	t.Fatalf("builtin %s not registered", name)
	return nil
}

func TestNamesMatchRegistry(t *testing.T) {
	list := New(runtimeio.New(nil, &bytes.Buffer{}))
	names := Names()
	if len(names) != len(list) {
		t.Fatalf("expected %d names, got %d", len(list), len(names))
	}
	for i, b := range list {
		if names[i] != b.Name {
			t.Fatalf("name %d: expected %s, got %s", i, b.Name, names[i])
		}
	}
}

func TestPrintJoinsWithSpaces(t *testing.T) {
	var out bytes.Buffer
	print := lookup(t, New(runtimeio.New(nil, &out)), "print")
	arr := &object.Array{Elements: []object.Object{&object.Integer{Value: 1}, &object.String{Value: "a"}}}
	if _, err := print(&object.String{Value: "x"}, &object.Integer{Value: 2}, arr, object.NULL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "x 2 [1, \"a\"] null\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestInputReadsLines(t *testing.T) {
	var out bytes.Buffer
	input := lookup(t, New(runtimeio.New(strings.NewReader("alice\nbob"), &out)), "input")

	first, err := input(&object.String{Value: "name? "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.(*object.String).Value != "alice" {
		t.Fatalf("expected alice, got %s", first.Inspect())
	}
	if out.String() != "name? " {
		t.Fatalf("expected prompt to be written, got %q", out.String())
	}
	second, err := input()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.(*object.String).Value != "bob" {
		t.Fatalf("expected bob, got %s", second.Inspect())
	}
	if _, err := input(); err == nil {
		t.Fatalf("expected error at end of input")
	}
}

func TestArrayBuiltins(t *testing.T) {
	arr := &object.Array{Elements: []object.Object{&object.Integer{Value: 1}}}

	if _, err := builtinPush(arr, &object.Integer{Value: 2}); err != nil {
		t.Fatalf("push: %v", err)
	}
	n, err := builtinLen(arr)
	if err != nil || n.(*object.Integer).Value != 2 {
		t.Fatalf("expected len 2, got %v (%v)", n, err)
	}
	last, err := builtinPop(arr)
	if err != nil || last.(*object.Integer).Value != 2 {
		t.Fatalf("expected pop 2, got %v (%v)", last, err)
	}
	builtinPop(arr)
	empty, _ := builtinPop(arr)
	if empty != object.NULL {
		t.Fatalf("expected null from empty pop, got %s", empty.Inspect())
	}
	if _, err := builtinPush(&object.Integer{Value: 1}, object.NULL); err == nil {
		t.Fatalf("expected push on non-array to fail")
	}
}

func TestConversions(t *testing.T) {
	tests := []struct {
		in   object.Object
		want string
	}{
		{&object.String{Value: "42"}, "42"},
		{&object.String{Value: " 2.5 "}, "2.5"},
		{&object.String{Value: "3.0"}, "3"},
		{&object.String{Value: "-1e2"}, "-100"},
		{object.TRUE, "1"},
		{&object.Float{Value: 1.5}, "1.5"},
	}
	for _, tt := range tests {
		got, err := builtinNum(tt.in)
		if err != nil {
			t.Fatalf("num(%s): %v", tt.in.Inspect(), err)
		}
		if got.Inspect() != tt.want {
			t.Fatalf("num(%s): expected %s, got %s", tt.in.Inspect(), tt.want, got.Inspect())
		}
	}
	for _, bad := range []string{"abc", "inf", "0x10", ""} {
		if _, err := builtinNum(&object.String{Value: bad}); err == nil {
			t.Fatalf("expected num(%q) to fail", bad)
		}
	}

	s, _ := builtinStr(&object.Integer{Value: 7})
	if s.(*object.String).Value != "7" {
		t.Fatalf("expected \"7\", got %s", s.Inspect())
	}
	l, _ := builtinLen(&object.String{Value: "héllo"})
	if l.(*object.Integer).Value != 5 {
		t.Fatalf("expected rune length 5, got %s", l.Inspect())
	}
}
