// Package evaluator runs an AST directly. It shares internal/semantics with
// the VM and is kept in lockstep with it: for any program both engines must
// print the same output and fail on the same inputs.
package evaluator

import (
	"errors"
	"fmt"

	"pychart/internal/ast"
	"pychart/internal/limits"
	"pychart/internal/object"
	"pychart/internal/semantics"
	"pychart/internal/token"
)

const MaxCallDepth = 1024

var (
	ErrNotCallable = errors.New("value is not callable")
	ErrCallDepth   = errors.New("max call depth exceeded")
)

// Error carries the source position of the node that failed.
type Error struct {
	Line int
	Col  int
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d:%d: %v", e.Line, e.Col, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func errorAt(tok token.Token, err error) error {
	var located *Error
	if errors.As(err, &located) {
		return err
	}
	return &Error{Line: tok.Line, Col: tok.Col, Err: err}
}

func errorf(tok token.Token, format string, args ...any) error {
	return errorAt(tok, fmt.Errorf(format, args...))
}

// NewEnvironment returns a global environment with builtins bound.
func NewEnvironment(builtins []*object.Builtin) *object.Environment {
	env := object.NewEnvironment()
	for _, b := range builtins {
		env.Bind(b.Name, b)
	}
	return env
}

type Evaluator struct {
	depth  int
	budget *limits.Budget
}

// New returns an evaluator that fails once it has run maxSteps statements
// in one Program call; 0 means unlimited.
func New(maxSteps int64) *Evaluator {
	return &Evaluator{budget: limits.NewBudget(maxSteps)}
}

// Eval runs program in env without a step limit. The value of the last
// expression statement is returned, for the REPL.
func Eval(program *ast.Program, env *object.Environment) (object.Object, error) {
	return New(0).Program(program, env)
}

// Steps is the number of statements run by the last Program call.
func (e *Evaluator) Steps() int64 { return e.budget.Used() }

func (e *Evaluator) Program(program *ast.Program, env *object.Environment) (object.Object, error) {
	e.budget.Reset()
	e.depth = 0
	var result object.Object = object.NULL
	for _, s := range program.Statements {
		val, err := e.statement(s, env)
		if err != nil {
			return nil, err
		}
		switch v := val.(type) {
		case *object.ReturnValue:
			return nil, errorf(s.Pos(), "return outside of function")
		case *object.Break:
			return nil, errorf(s.Pos(), "break outside of loop")
		case nil:
		default:
			result = v
		}
	}
	return result, nil
}

// statement returns a ReturnValue or Break to unwind, the value of an
// expression statement, or nil.
func (e *Evaluator) statement(s ast.Statement, env *object.Environment) (object.Object, error) {
	if err := e.budget.Charge(1); err != nil {
		return nil, errorAt(s.Pos(), err)
	}
	switch n := s.(type) {
	case *ast.ExpressionStatement:
		return e.expression(n.Expression, env)

	case *ast.LetStatement:
		var val object.Object = object.NULL
		if n.Value != nil {
			v, err := e.expression(n.Value, env)
			if err != nil {
				return nil, err
			}
			val = v
		}
		if !env.Declare(n.Name.Value, val) {
			return nil, errorf(n.Name.Pos(), "variable %s is already defined", n.Name.Value)
		}
		return nil, nil

	case *ast.BlockStatement:
		return e.block(n.Statements, object.NewEnclosedEnvironment(env))

	case *ast.IfStatement:
		cond, err := e.expression(n.Condition, env)
		if err != nil {
			return nil, err
		}
		if semantics.IsTruthy(cond) {
			return e.scoped(n.Consequence, env)
		}
		if n.Alternative != nil {
			return e.scoped(n.Alternative, env)
		}
		return nil, nil

	case *ast.WhileStatement:
		for {
			// Each test of the condition is a step, so empty loops still run out.
			if err := e.budget.Charge(1); err != nil {
				return nil, errorAt(n.Pos(), err)
			}
			cond, err := e.expression(n.Condition, env)
			if err != nil {
				return nil, err
			}
			if !semantics.IsTruthy(cond) {
				return nil, nil
			}
			val, err := e.scoped(n.Body, env)
			if err != nil {
				return nil, err
			}
			switch val.(type) {
			case *object.Break:
				return nil, nil
			case *object.ReturnValue:
				return val, nil
			}
		}

	case *ast.BreakStatement:
		return &object.Break{}, nil

	case *ast.ReturnStatement:
		var val object.Object = object.NULL
		if n.ReturnValue != nil {
			v, err := e.expression(n.ReturnValue, env)
			if err != nil {
				return nil, err
			}
			val = v
		}
		return &object.ReturnValue{Value: val}, nil

	case *ast.FuncStatement:
		fn := &object.Function{
			Name:       n.Name.Value,
			Parameters: n.Parameters,
			Body:       n.Body,
			Env:        env,
		}
		if !env.Declare(n.Name.Value, fn) {
			return nil, errorf(n.Name.Pos(), "variable %s is already defined", n.Name.Value)
		}
		return nil, nil

	default:
		return nil, errorf(s.Pos(), "unsupported statement %T", s)
	}
}

// scoped runs s in a fresh environment. A block contributes its statements
// directly.
func (e *Evaluator) scoped(s ast.Statement, env *object.Environment) (object.Object, error) {
	inner := object.NewEnclosedEnvironment(env)
	if block, ok := s.(*ast.BlockStatement); ok {
		return e.block(block.Statements, inner)
	}
	val, err := e.statement(s, inner)
	if err != nil {
		return nil, err
	}
	return unwinding(val), nil
}

func (e *Evaluator) block(stmts []ast.Statement, env *object.Environment) (object.Object, error) {
	for _, s := range stmts {
		val, err := e.statement(s, env)
		if err != nil {
			return nil, err
		}
		if u := unwinding(val); u != nil {
			return u, nil
		}
	}
	return nil, nil
}

func unwinding(val object.Object) object.Object {
	switch val.(type) {
	case *object.ReturnValue, *object.Break:
		return val
	}
	return nil
}

func (e *Evaluator) expression(x ast.Expression, env *object.Environment) (object.Object, error) {
	switch n := x.(type) {
	case *ast.IntegerLiteral:
		return &object.Integer{Value: n.Value}, nil
	case *ast.FloatLiteral:
		return semantics.NormalizeFloat(n.Value), nil
	case *ast.StringLiteral:
		return &object.String{Value: n.Value}, nil
	case *ast.BooleanLiteral:
		return object.NativeBool(n.Value), nil
	case *ast.NullLiteral:
		return object.NULL, nil
	case *ast.GroupedExpression:
		return e.expression(n.Expression, env)

	case *ast.Identifier:
		if v, ok := env.Get(n.Value); ok {
			return v, nil
		}
		return nil, errorf(n.Pos(), "undefined variable %s", n.Value)

	case *ast.PrefixExpression:
		right, err := e.expression(n.Right, env)
		if err != nil {
			return nil, err
		}
		v, err := semantics.Unary(n.Operator, right)
		if err != nil {
			return nil, errorAt(n.Pos(), err)
		}
		return v, nil

	case *ast.InfixExpression:
		left, err := e.expression(n.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := e.expression(n.Right, env)
		if err != nil {
			return nil, err
		}
		v, err := semantics.Infix(n.Operator, left, right)
		if err != nil {
			return nil, errorAt(n.Pos(), err)
		}
		return v, nil

	case *ast.AssignExpression:
		owner := env.Owner(n.Name.Value)
		if owner == nil {
			return nil, errorf(n.Name.Pos(), "undefined variable %s", n.Name.Value)
		}
		val, err := e.expression(n.Value, env)
		if err != nil {
			return nil, err
		}
		owner.Bind(n.Name.Value, val)
		return val, nil

	case *ast.IndexAssignExpression:
		arr, err := e.expression(n.Left.Left, env)
		if err != nil {
			return nil, err
		}
		idx, err := e.expression(n.Left.Index, env)
		if err != nil {
			return nil, err
		}
		val, err := e.expression(n.Value, env)
		if err != nil {
			return nil, err
		}
		if err := semantics.IndexSet(arr, idx, val); err != nil {
			return nil, errorAt(n.Pos(), err)
		}
		return val, nil

	case *ast.IndexExpression:
		arr, err := e.expression(n.Left, env)
		if err != nil {
			return nil, err
		}
		idx, err := e.expression(n.Index, env)
		if err != nil {
			return nil, err
		}
		v, err := semantics.IndexGet(arr, idx)
		if err != nil {
			return nil, errorAt(n.Pos(), err)
		}
		return v, nil

	case *ast.ArrayLiteral:
		elems, err := e.expressions(n.Elements, env)
		if err != nil {
			return nil, err
		}
		return &object.Array{Elements: elems}, nil

	case *ast.CallExpression:
		fn, err := e.expression(n.Function, env)
		if err != nil {
			return nil, err
		}
		args, err := e.expressions(n.Arguments, env)
		if err != nil {
			return nil, err
		}
		return e.apply(n.Pos(), fn, args)

	default:
		return nil, errorf(x.Pos(), "unsupported expression %T", x)
	}
}

func (e *Evaluator) expressions(exprs []ast.Expression, env *object.Environment) ([]object.Object, error) {
	out := make([]object.Object, 0, len(exprs))
	for _, x := range exprs {
		v, err := e.expression(x, env)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Evaluator) apply(tok token.Token, fn object.Object, args []object.Object) (object.Object, error) {
	switch f := fn.(type) {
	case *object.Function:
		if len(args) != len(f.Parameters) {
			return nil, errorf(tok, "wrong number of arguments to %s: want=%d, got=%d", f.Name, len(f.Parameters), len(args))
		}
		if e.depth >= MaxCallDepth {
			return nil, errorAt(tok, fmt.Errorf("%w (%d)", ErrCallDepth, MaxCallDepth))
		}
		e.depth++
		defer func() { e.depth-- }()

		callEnv := object.NewEnclosedEnvironment(f.Env)
		for i, p := range f.Parameters {
			callEnv.Bind(p.Value, args[i])
		}
		val, err := e.block(f.Body.Statements, callEnv)
		if err != nil {
			return nil, err
		}
		switch v := val.(type) {
		case *object.ReturnValue:
			return v.Value, nil
		case *object.Break:
			return nil, errorf(tok, "break outside of loop")
		}
		return object.NULL, nil

	case *object.Builtin:
		v, err := f.Fn(args...)
		if err != nil {
			return nil, errorAt(tok, fmt.Errorf("%s: %w", f.Name, err))
		}
		if v == nil {
			v = object.NULL
		}
		return v, nil

	default:
		return nil, errorAt(tok, fmt.Errorf("%w: %s", ErrNotCallable, fn.Type()))
	}
}
