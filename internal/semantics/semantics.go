package semantics

import (
	"errors"
	"fmt"
	"math"

	"pychart/internal/object"
)

var ErrDivisionByZero = errors.New("division by zero")

// IsTruthy: false, null, zero numbers, the empty string and the empty array
// are falsy; everything else is truthy.
func IsTruthy(obj object.Object) bool {
	switch v := obj.(type) {
	case *object.Boolean:
		return v.Value
	case *object.Null:
		return false
	case *object.Integer:
		return v.Value != 0
	case *object.Float:
		return v.Value != 0
	case *object.String:
		return v.Value != ""
	case *object.Array:
		return len(v.Elements) != 0
	case nil:
		return false
	default:
		return true
	}
}

// BinaryOp evaluates the arithmetic operators + - * /.
func BinaryOp(op string, left, right object.Object) (object.Object, error) {
	if op == "+" {
		ls, lok := left.(*object.String)
		rs, rok := right.(*object.String)
		switch {
		case lok && rok:
			return &object.String{Value: ls.Value + rs.Value}, nil
		case lok:
			return &object.String{Value: ls.Value + right.Inspect()}, nil
		case rok:
			return &object.String{Value: left.Inspect() + rs.Value}, nil
		}
	}

	if li, lok := left.(*object.Integer); lok {
		if ri, rok := right.(*object.Integer); rok {
			switch op {
			case "+":
				return &object.Integer{Value: li.Value + ri.Value}, nil
			case "-":
				return &object.Integer{Value: li.Value - ri.Value}, nil
			case "*":
				return &object.Integer{Value: li.Value * ri.Value}, nil
			case "/":
				if ri.Value == 0 {
					return nil, ErrDivisionByZero
				}
				if li.Value%ri.Value == 0 {
					return &object.Integer{Value: li.Value / ri.Value}, nil
				}
				return &object.Float{Value: float64(li.Value) / float64(ri.Value)}, nil
			default:
				return nil, fmt.Errorf("unknown operator for integers: %s", op)
			}
		}
	}

	if isNumeric(left) && isNumeric(right) {
		lf := toFloat(left)
		rf := toFloat(right)
		switch op {
		case "+":
			return NormalizeFloat(lf + rf), nil
		case "-":
			return NormalizeFloat(lf - rf), nil
		case "*":
			return NormalizeFloat(lf * rf), nil
		case "/":
			if rf == 0 {
				return nil, ErrDivisionByZero
			}
			return NormalizeFloat(lf / rf), nil
		default:
			return nil, fmt.Errorf("unknown operator for numbers: %s", op)
		}
	}

	if left.Type() != right.Type() {
		return nil, fmt.Errorf("type mismatch: %s %s %s", left.Type(), op, right.Type())
	}
	return nil, fmt.Errorf("unknown operator: %s %s %s", left.Type(), op, right.Type())
}

// Infix dispatches any binary operator.
func Infix(op string, left, right object.Object) (object.Object, error) {
	switch op {
	case "+", "-", "*", "/":
		return BinaryOp(op, left, right)
	case "==", "!=", "<", "<=", ">", ">=":
		b, err := Compare(op, left, right)
		if err != nil {
			return nil, err
		}
		return object.NativeBool(b), nil
	case "&&", "||":
		return Logical(op, left, right)
	default:
		return nil, fmt.Errorf("unknown operator: %s", op)
	}
}

// Compare evaluates == != < <= > >=. Equality between values of different
// kinds is false rather than an error; ordering requires two numbers or two
// strings.
func Compare(op string, left, right object.Object) (bool, error) {
	switch op {
	case "==":
		return Equal(left, right), nil
	case "!=":
		return !Equal(left, right), nil
	}

	if isNumeric(left) && isNumeric(right) {
		if li, ok := left.(*object.Integer); ok {
			if ri, ok := right.(*object.Integer); ok {
				return ordered(op, cmpInt(li.Value, ri.Value))
			}
		}
		lf, rf := toFloat(left), toFloat(right)
		c := 0
		switch {
		case lf < rf:
			c = -1
		case lf > rf:
			c = 1
		}
		return ordered(op, c)
	}

	if ls, ok := left.(*object.String); ok {
		if rs, ok := right.(*object.String); ok {
			c := 0
			switch {
			case ls.Value < rs.Value:
				c = -1
			case ls.Value > rs.Value:
				c = 1
			}
			return ordered(op, c)
		}
	}

	return false, fmt.Errorf("cannot compare %s %s %s", left.Type(), op, right.Type())
}

func ordered(op string, c int) (bool, error) {
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	default:
		return false, fmt.Errorf("unknown comparison operator: %s", op)
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Equal is structural for scalars and arrays, identity for functions.
func Equal(left, right object.Object) bool {
	if isNumeric(left) && isNumeric(right) {
		if li, ok := left.(*object.Integer); ok {
			if ri, ok := right.(*object.Integer); ok {
				return li.Value == ri.Value
			}
		}
		return toFloat(left) == toFloat(right)
	}

	switch l := left.(type) {
	case *object.Null:
		_, ok := right.(*object.Null)
		return ok
	case *object.Boolean:
		r, ok := right.(*object.Boolean)
		return ok && l.Value == r.Value
	case *object.String:
		r, ok := right.(*object.String)
		return ok && l.Value == r.Value
	case *object.Array:
		r, ok := right.(*object.Array)
		if !ok || len(l.Elements) != len(r.Elements) {
			return false
		}
		if l == r {
			return true
		}
		for i := range l.Elements {
			if !Equal(l.Elements[i], r.Elements[i]) {
				return false
			}
		}
		return true
	default:
		return left == right
	}
}

// Logical evaluates && and || over truthiness. Both operands are already
// evaluated; the result is always a boolean.
func Logical(op string, left, right object.Object) (object.Object, error) {
	switch op {
	case "&&":
		return object.NativeBool(IsTruthy(left) && IsTruthy(right)), nil
	case "||":
		return object.NativeBool(IsTruthy(left) || IsTruthy(right)), nil
	default:
		return nil, fmt.Errorf("unknown logical operator: %s", op)
	}
}

// Unary evaluates the prefix operators - + !.
func Unary(op string, right object.Object) (object.Object, error) {
	switch op {
	case "!":
		return object.NativeBool(!IsTruthy(right)), nil
	case "-":
		switch v := right.(type) {
		case *object.Integer:
			return &object.Integer{Value: -v.Value}, nil
		case *object.Float:
			return &object.Float{Value: -v.Value}, nil
		}
	case "+":
		switch right.(type) {
		case *object.Integer, *object.Float:
			return right, nil
		}
	default:
		return nil, fmt.Errorf("unknown unary operator: %s", op)
	}
	return nil, fmt.Errorf("unsupported operand type for %s: %s", op, right.Type())
}

// NormalizeFloat turns an integer-valued float into an Integer.
func NormalizeFloat(f float64) object.Object {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return &object.Integer{Value: int64(f)}
	}
	return &object.Float{Value: f}
}

// ToIndex converts an index operand to int. Floats are truncated.
func ToIndex(idx object.Object) (int, error) {
	switch v := idx.(type) {
	case *object.Integer:
		return int(v.Value), nil
	case *object.Float:
		return int(v.Value), nil
	default:
		return 0, fmt.Errorf("array index must be a number, got %s", idx.Type())
	}
}

// resolveIndex maps a possibly negative index onto [0, n); ok is false when
// the index falls outside the array.
func resolveIndex(i, n int) (int, bool) {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// IndexGet reads arr[idx]. Out-of-range reads yield null.
func IndexGet(left, idx object.Object) (object.Object, error) {
	arr, ok := left.(*object.Array)
	if !ok {
		return nil, fmt.Errorf("index operator not supported: %s", left.Type())
	}
	i, err := ToIndex(idx)
	if err != nil {
		return nil, err
	}
	i, ok = resolveIndex(i, len(arr.Elements))
	if !ok {
		return object.NULL, nil
	}
	return arr.Elements[i], nil
}

// IndexSet writes arr[idx] = val. Out-of-range writes are silently dropped.
func IndexSet(left, idx, val object.Object) error {
	arr, ok := left.(*object.Array)
	if !ok {
		return fmt.Errorf("index assignment not supported: %s", left.Type())
	}
	i, err := ToIndex(idx)
	if err != nil {
		return err
	}
	i, ok = resolveIndex(i, len(arr.Elements))
	if !ok {
		return nil
	}
	arr.Elements[i] = val
	return nil
}

func isNumeric(o object.Object) bool {
	switch o.(type) {
	case *object.Integer, *object.Float:
		return true
	default:
		return false
	}
}

func toFloat(o object.Object) float64 {
	switch v := o.(type) {
	case *object.Float:
		return v.Value
	case *object.Integer:
		return float64(v.Value)
	default:
		return 0
	}
}
