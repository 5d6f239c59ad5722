package vm

import (
	"pychart/internal/code"
	"pychart/internal/object"
)

// Native is a host function callable from programs. It receives the raw
// argument operands and resolves them through m.Resolve.
type Native func(m *VM, args []code.Operand) (object.Object, error)

type nativeFunc struct {
	name string
	fn   Native
}

func (*nativeFunc) Type() object.Type   { return object.BUILTIN_OBJ }
func (n *nativeFunc) Inspect() string { return "<builtin " + n.name + ">" }

// FromBuiltin adapts an object-level builtin into a Native.
func FromBuiltin(fn object.BuiltinFunction) Native {
	return func(m *VM, args []code.Operand) (object.Object, error) {
		vals := make([]object.Object, len(args))
		for i, a := range args {
			v, err := m.Resolve(a)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return fn(vals...)
	}
}

// Natives builds a registry from builtins.
func Natives(builtins []*object.Builtin) map[string]Native {
	out := make(map[string]Native, len(builtins))
	for _, b := range builtins {
		out[b.Name] = FromBuiltin(b.Fn)
	}
	return out
}
