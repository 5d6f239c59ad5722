// Package builtins holds the host functions every program can call. Both
// engines bind the same set: the evaluator directly, the VM through
// vm.Natives.
package builtins

import (
	"fmt"
	"unicode/utf8"

	"pychart/internal/numlit"
	"pychart/internal/object"
	"pychart/internal/runtimeio"
	"pychart/internal/semantics"
)

// Names lists the builtins in a fixed order, for predeclaring them in the
// compiler's global frame.
func Names() []string {
	return []string{"print", "input", "len", "push", "pop", "str", "num"}
}

func New(console *runtimeio.IO) []*object.Builtin {
	return []*object.Builtin{
		{Name: "print", Fn: func(args ...object.Object) (object.Object, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = a.Inspect()
			}
			return object.NULL, console.Println(parts...)
		}},
		{Name: "input", Fn: func(args ...object.Object) (object.Object, error) {
			if len(args) > 1 {
				return nil, arity(1, len(args))
			}
			prompt := ""
			if len(args) == 1 {
				prompt = args[0].Inspect()
			}
			line, err := console.Input(prompt)
			if err != nil {
				return nil, err
			}
			return &object.String{Value: line}, nil
		}},
		{Name: "len", Fn: builtinLen},
		{Name: "push", Fn: builtinPush},
		{Name: "pop", Fn: builtinPop},
		{Name: "str", Fn: builtinStr},
		{Name: "num", Fn: builtinNum},
	}
}

func arity(want, got int) error {
	return fmt.Errorf("wrong number of arguments: expected %d, got %d", want, got)
}

func builtinLen(args ...object.Object) (object.Object, error) {
	if len(args) != 1 {
		return nil, arity(1, len(args))
	}
	switch v := args[0].(type) {
	case *object.String:
		return &object.Integer{Value: int64(utf8.RuneCountInString(v.Value))}, nil
	case *object.Array:
		return &object.Integer{Value: int64(len(v.Elements))}, nil
	default:
		return nil, fmt.Errorf("len: unsupported argument %s", args[0].Type())
	}
}

// push appends in place and returns the array.
func builtinPush(args ...object.Object) (object.Object, error) {
	if len(args) != 2 {
		return nil, arity(2, len(args))
	}
	arr, ok := args[0].(*object.Array)
	if !ok {
		return nil, fmt.Errorf("push: first argument must be ARRAY, got %s", args[0].Type())
	}
	arr.Elements = append(arr.Elements, args[1])
	return arr, nil
}

// pop removes and returns the last element, or null for an empty array.
func builtinPop(args ...object.Object) (object.Object, error) {
	if len(args) != 1 {
		return nil, arity(1, len(args))
	}
	arr, ok := args[0].(*object.Array)
	if !ok {
		return nil, fmt.Errorf("pop: argument must be ARRAY, got %s", args[0].Type())
	}
	n := len(arr.Elements)
	if n == 0 {
		return object.NULL, nil
	}
	last := arr.Elements[n-1]
	arr.Elements = arr.Elements[:n-1]
	return last, nil
}

func builtinStr(args ...object.Object) (object.Object, error) {
	if len(args) != 1 {
		return nil, arity(1, len(args))
	}
	if s, ok := args[0].(*object.String); ok {
		return s, nil
	}
	return &object.String{Value: args[0].Inspect()}, nil
}

func builtinNum(args ...object.Object) (object.Object, error) {
	if len(args) != 1 {
		return nil, arity(1, len(args))
	}
	switch v := args[0].(type) {
	case *object.Integer, *object.Float:
		return v, nil
	case *object.Boolean:
		if v.Value {
			return &object.Integer{Value: 1}, nil
		}
		return &object.Integer{Value: 0}, nil
	case *object.String:
		n, err := numlit.Parse(v.Value)
		if err != nil {
			return nil, fmt.Errorf("num: cannot convert %q to a number", v.Value)
		}
		if !n.IsFloat {
			return &object.Integer{Value: n.Int}, nil
		}
		return semantics.NormalizeFloat(n.Float), nil
	default:
		return nil, fmt.Errorf("num: unsupported argument %s", args[0].Type())
	}
}
