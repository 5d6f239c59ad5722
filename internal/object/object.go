package object

import (
	"bytes"
	"strconv"

	"pychart/internal/ast"
)

type Type string

const (
	INTEGER_OBJ      Type = "INTEGER"
	FLOAT_OBJ        Type = "FLOAT"
	STRING_OBJ       Type = "STRING"
	BOOLEAN_OBJ      Type = "BOOLEAN"
	NULL_OBJ         Type = "NULL"
	ARRAY_OBJ        Type = "ARRAY"
	FUNCTION_OBJ     Type = "FUNCTION"
	CLOSURE_OBJ      Type = "CLOSURE"
	BUILTIN_OBJ      Type = "BUILTIN"
	RETURN_VALUE_OBJ Type = "RETURN_VALUE"
	BREAK_OBJ        Type = "BREAK"
)

type Object interface {
	Type() Type
	Inspect() string
}

var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

func NativeBool(b bool) *Boolean {
	if b {
		return TRUE
	}
	return FALSE
}

type Integer struct{ Value int64 }

func (*Integer) Type() Type        { return INTEGER_OBJ }
func (i *Integer) Inspect() string { return strconv.FormatInt(i.Value, 10) }

type Float struct{ Value float64 }

func (*Float) Type() Type { return FLOAT_OBJ }
func (f *Float) Inspect() string {
	return strconv.FormatFloat(f.Value, 'g', -1, 64)
}

type String struct{ Value string }

func (*String) Type() Type        { return STRING_OBJ }
func (s *String) Inspect() string { return s.Value }

type Boolean struct{ Value bool }

func (*Boolean) Type() Type { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string {
	if b.Value {
		return "true"
	}
	return "false"
}

type Null struct{}

func (*Null) Type() Type      { return NULL_OBJ }
func (*Null) Inspect() string { return "null" }

// Array is shared by reference: passing one to a function aliases it.
type Array struct {
	Elements []Object
}

func (*Array) Type() Type { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	var out bytes.Buffer
	out.WriteString("[")
	for i, el := range a.Elements {
		if i > 0 {
			out.WriteString(", ")
		}
		if s, ok := el.(*String); ok {
			out.WriteString(strconv.Quote(s.Value))
			continue
		}
		out.WriteString(el.Inspect())
	}
	out.WriteString("]")
	return out.String()
}

// Function is a user function as seen by the tree-walking evaluator.
type Function struct {
	Name       string
	Parameters []*ast.Identifier
	Body       *ast.BlockStatement
	Env        *Environment
}

func (*Function) Type() Type { return FUNCTION_OBJ }
func (f *Function) Inspect() string {
	return "<func " + f.Name + ">"
}

// Closure is a user function as seen by the VM. Scopes is the scope stack
// live at definition time; it is captured by reference, so later writes to
// captured bindings are visible when the closure runs.
type Closure struct {
	Name   string
	Entry  int
	Params []int
	Scopes []*Scope
}

func (*Closure) Type() Type { return CLOSURE_OBJ }
func (c *Closure) Inspect() string {
	return "<func " + c.Name + ">"
}

type BuiltinFunction func(args ...Object) (Object, error)

type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (*Builtin) Type() Type        { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string { return "<builtin " + b.Name + ">" }

// ReturnValue and Break only travel inside the evaluator.
type ReturnValue struct{ Value Object }

func (*ReturnValue) Type() Type         { return RETURN_VALUE_OBJ }
func (rv *ReturnValue) Inspect() string { return rv.Value.Inspect() }

type Break struct{}

func (*Break) Type() Type      { return BREAK_OBJ }
func (*Break) Inspect() string { return "break" }

// IsCallable reports whether obj can appear in callee position.
func IsCallable(obj Object) bool {
	switch obj.(type) {
	case *Function, *Closure, *Builtin:
		return true
	}
	return false
}
