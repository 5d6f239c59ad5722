package semantics

import (
	"errors"
	"testing"

	"pychart/internal/object"
)

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		obj  object.Object
		want bool
	}{
		{object.TRUE, true},
		{object.FALSE, false},
		{object.NULL, false},
		{&object.Integer{Value: 0}, false},
		{&object.Integer{Value: 1}, true},
		{&object.Float{Value: 0}, false},
		{&object.Float{Value: 0.1}, true},
		{&object.String{Value: ""}, false},
		{&object.String{Value: "x"}, true},
		{&object.Array{}, false},
		{&object.Array{Elements: []object.Object{object.NULL}}, true},
		{&object.Closure{}, true},
	}
	for i, tt := range tests {
		if got := IsTruthy(tt.obj); got != tt.want {
			t.Fatalf("tests[%d] expected %v, got %v", i, tt.want, got)
		}
	}
}

func TestBinaryOpNumbers(t *testing.T) {
	tests := []struct {
		op    string
		left  object.Object
		right object.Object
		want  object.Object
	}{
		{"+", &object.Integer{Value: 1}, &object.Integer{Value: 2}, &object.Integer{Value: 3}},
		{"-", &object.Integer{Value: 5}, &object.Integer{Value: 3}, &object.Integer{Value: 2}},
		{"*", &object.Integer{Value: 2}, &object.Integer{Value: 4}, &object.Integer{Value: 8}},
		{"/", &object.Integer{Value: 6}, &object.Integer{Value: 2}, &object.Integer{Value: 3}},
		{"/", &object.Integer{Value: 5}, &object.Integer{Value: 2}, &object.Float{Value: 2.5}},
		{"+", &object.Integer{Value: 1}, &object.Float{Value: 2.5}, &object.Float{Value: 3.5}},
		{"+", &object.Float{Value: 1.5}, &object.Float{Value: 1.5}, &object.Integer{Value: 3}},
		{"/", &object.Float{Value: 5.0}, &object.Integer{Value: 2}, &object.Float{Value: 2.5}},
	}
	for i, tt := range tests {
		got, err := BinaryOp(tt.op, tt.left, tt.right)
		if err != nil {
			t.Fatalf("tests[%d] unexpected error: %v", i, err)
		}
		switch want := tt.want.(type) {
		case *object.Integer:
			intObj, ok := got.(*object.Integer)
			if !ok || intObj.Value != want.Value {
				t.Fatalf("tests[%d] expected %T(%v), got %T(%v)", i, want, want.Value, got, got)
			}
		case *object.Float:
			floatObj, ok := got.(*object.Float)
			if !ok || floatObj.Value != want.Value {
				t.Fatalf("tests[%d] expected %T(%v), got %T(%v)", i, want, want.Value, got, got)
			}
		default:
			t.Fatalf("tests[%d] unsupported want type %T", i, tt.want)
		}
	}
}

func TestBinaryOpStringConcat(t *testing.T) {
	tests := []struct {
		left  object.Object
		right object.Object
		want  string
	}{
		{&object.String{Value: "a"}, &object.String{Value: "b"}, "ab"},
		{&object.String{Value: "n="}, &object.Integer{Value: 3}, "n=3"},
		{&object.Float{Value: 1.5}, &object.String{Value: "!"}, "1.5!"},
		{&object.String{Value: "v:"}, object.NULL, "v:null"},
	}
	for i, tt := range tests {
		got, err := BinaryOp("+", tt.left, tt.right)
		if err != nil {
			t.Fatalf("tests[%d] unexpected error: %v", i, err)
		}
		s, ok := got.(*object.String)
		if !ok || s.Value != tt.want {
			t.Fatalf("tests[%d] expected %q, got %T(%v)", i, tt.want, got, got)
		}
	}
}

func TestBinaryOpErrors(t *testing.T) {
	tests := []struct {
		op      string
		left    object.Object
		right   object.Object
		wantErr string
	}{
		{"/", &object.Integer{Value: 1}, &object.Integer{Value: 0}, "division by zero"},
		{"/", &object.Float{Value: 1}, &object.Float{Value: 0}, "division by zero"},
		{"-", &object.String{Value: "a"}, &object.Integer{Value: 1}, "type mismatch: STRING - INTEGER"},
		{"*", &object.String{Value: "a"}, &object.String{Value: "b"}, "unknown operator: STRING * STRING"},
		{"+", object.TRUE, object.FALSE, "unknown operator: BOOLEAN + BOOLEAN"},
		{"+", object.NULL, &object.Integer{Value: 1}, "type mismatch: NULL + INTEGER"},
	}
	for i, tt := range tests {
		_, err := BinaryOp(tt.op, tt.left, tt.right)
		if err == nil {
			t.Fatalf("tests[%d] expected error, got nil", i)
		}
		if err.Error() != tt.wantErr {
			t.Fatalf("tests[%d] expected %q, got %q", i, tt.wantErr, err.Error())
		}
	}

	_, err := BinaryOp("/", &object.Integer{Value: 1}, &object.Integer{Value: 0})
	if !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		op    string
		left  object.Object
		right object.Object
		want  bool
	}{
		{"==", &object.Integer{Value: 1}, &object.Float{Value: 1.0}, true},
		{"!=", &object.Integer{Value: 1}, &object.Float{Value: 1.5}, true},
		{">", &object.Float{Value: 1.5}, &object.Integer{Value: 1}, true},
		{"<", &object.Float{Value: 1.5}, &object.Integer{Value: 2}, true},
		{">=", &object.Float{Value: 2.0}, &object.Integer{Value: 2}, true},
		{"<=", &object.Float{Value: 2.0}, &object.Integer{Value: 1}, false},
		{"<", &object.String{Value: "a"}, &object.String{Value: "b"}, true},
		{"==", &object.String{Value: "a"}, &object.String{Value: "a"}, true},
		{"==", object.TRUE, &object.Boolean{Value: true}, true},
		{"==", object.NULL, object.NULL, true},
		{"==", object.NULL, &object.Integer{Value: 0}, false},
		{"==", &object.Integer{Value: 1}, &object.String{Value: "1"}, false},
		{"!=", &object.Integer{Value: 1}, &object.String{Value: "1"}, true},
		{"==",
			&object.Array{Elements: []object.Object{&object.Integer{Value: 1}, &object.String{Value: "x"}}},
			&object.Array{Elements: []object.Object{&object.Integer{Value: 1}, &object.String{Value: "x"}}},
			true},
		{"==",
			&object.Array{Elements: []object.Object{&object.Integer{Value: 1}}},
			&object.Array{Elements: []object.Object{&object.Integer{Value: 1}, &object.Integer{Value: 2}}},
			false},
	}
	for i, tt := range tests {
		got, err := Compare(tt.op, tt.left, tt.right)
		if err != nil {
			t.Fatalf("tests[%d] unexpected error: %v", i, err)
		}
		if got != tt.want {
			t.Fatalf("tests[%d] expected %v, got %v", i, tt.want, got)
		}
	}
}

func TestCompareErrors(t *testing.T) {
	tests := []struct {
		op      string
		left    object.Object
		right   object.Object
		wantErr string
	}{
		{">", object.TRUE, object.FALSE, "cannot compare BOOLEAN > BOOLEAN"},
		{"<", &object.Integer{Value: 1}, &object.String{Value: "1"}, "cannot compare INTEGER < STRING"},
		{">=", object.NULL, &object.Integer{Value: 1}, "cannot compare NULL >= INTEGER"},
	}
	for i, tt := range tests {
		_, err := Compare(tt.op, tt.left, tt.right)
		if err == nil {
			t.Fatalf("tests[%d] expected error, got nil", i)
		}
		if err.Error() != tt.wantErr {
			t.Fatalf("tests[%d] expected %q, got %q", i, tt.wantErr, err.Error())
		}
	}
}

func TestLogicalAndUnary(t *testing.T) {
	got, _ := Logical("&&", &object.Integer{Value: 1}, &object.String{Value: "x"})
	if got != object.TRUE {
		t.Fatalf("expected true, got %v", got)
	}
	got, _ = Logical("||", object.NULL, &object.Integer{Value: 0})
	if got != object.FALSE {
		t.Fatalf("expected false, got %v", got)
	}

	neg, err := Unary("-", &object.Float{Value: 2.5})
	if err != nil || neg.(*object.Float).Value != -2.5 {
		t.Fatalf("unexpected negate result %v, %v", neg, err)
	}
	not, _ := Unary("!", &object.Integer{Value: 0})
	if not != object.TRUE {
		t.Fatalf("expected !0 to be true, got %v", not)
	}
	if _, err := Unary("+", &object.String{Value: "s"}); err == nil {
		t.Fatalf("expected error for +string")
	}
}

func TestIndexing(t *testing.T) {
	arr := &object.Array{Elements: []object.Object{
		&object.Integer{Value: 10}, &object.Integer{Value: 20}, &object.Integer{Value: 30},
	}}

	tests := []struct {
		idx  object.Object
		want object.Object
	}{
		{&object.Integer{Value: 0}, &object.Integer{Value: 10}},
		{&object.Float{Value: 1.9}, &object.Integer{Value: 20}},
		{&object.Integer{Value: -1}, &object.Integer{Value: 30}},
		{&object.Integer{Value: 5}, object.NULL},
		{&object.Integer{Value: -4}, object.NULL},
	}
	for i, tt := range tests {
		got, err := IndexGet(arr, tt.idx)
		if err != nil {
			t.Fatalf("tests[%d] unexpected error: %v", i, err)
		}
		if !Equal(got, tt.want) {
			t.Fatalf("tests[%d] expected %s, got %s", i, tt.want.Inspect(), got.Inspect())
		}
	}

	if err := IndexSet(arr, &object.Integer{Value: -5}, &object.Integer{Value: 9}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arr.Inspect() != "[10, 20, 30]" {
		t.Fatalf("out-of-range write must be a no-op, got %s", arr.Inspect())
	}
	if err := IndexSet(arr, &object.Integer{Value: -1}, &object.Integer{Value: 9}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arr.Inspect() != "[10, 20, 9]" {
		t.Fatalf("expected last element replaced, got %s", arr.Inspect())
	}

	if _, err := IndexGet(&object.Integer{Value: 1}, &object.Integer{Value: 0}); err == nil {
		t.Fatalf("expected error indexing a non-array")
	}
	if _, err := IndexGet(arr, &object.String{Value: "0"}); err == nil {
		t.Fatalf("expected error for string index")
	}
}
