package compiler

import (
	"pychart/internal/ast"
	"pychart/internal/code"
	"pychart/internal/object"
	"pychart/internal/semantics"
)

var binaryOps = map[string]code.Opcode{
	"+":  code.OpAdd,
	"-":  code.OpSub,
	"*":  code.OpMul,
	"/":  code.OpDiv,
	"==": code.OpEqual,
	"!=": code.OpNotEqual,
	"<":  code.OpLess,
	"<=": code.OpLessEqual,
	">":  code.OpGreater,
	">=": code.OpGreaterEqual,
	"&&": code.OpAnd,
	"||": code.OpOr,
}

var unaryOps = map[string]code.Opcode{
	"-": code.OpNegate,
	"+": code.OpSign,
	"!": code.OpNot,
}

type resultKind int

const (
	resultConstant resultKind = iota
	resultOperand
	resultDeferred
)

// result is what an expression compiles to. Deferred results have not been
// emitted yet: build produces the instruction once the destination is known,
// which saves a temporary when the value goes straight into a variable.
type result struct {
	kind        resultKind
	value       object.Object
	op          code.Operand
	build       func(dst code.Operand) (code.Instruction, error)
	discardable bool
}

func constant(v object.Object) result { return result{kind: resultConstant, value: v} }

func binding(op code.Operand) result {
	if op.IsValue() {
		return constant(op.Value)
	}
	return result{kind: resultOperand, op: op}
}

func deferred(build func(dst code.Operand) (code.Instruction, error)) result {
	return result{kind: resultDeferred, build: build}
}

func (c *Compiler) materialize(r result) (code.Operand, error) {
	switch r.kind {
	case resultConstant:
		return code.Val(r.value), nil
	case resultOperand:
		return r.op, nil
	}
	tmp := c.newTemp()
	if err := c.emitChecked(code.NewCreate(tmp)); err != nil {
		return code.Operand{}, err
	}
	if err := c.emitChecked(r.build(tmp)); err != nil {
		return code.Operand{}, err
	}
	return tmp, nil
}

// store writes r into an already created binding.
func (c *Compiler) store(dst code.Operand, r result) error {
	switch r.kind {
	case resultConstant:
		return c.emitChecked(code.NewPush(dst, code.Val(r.value)))
	case resultOperand:
		return c.emitChecked(code.NewPush(dst, r.op))
	default:
		return c.emitChecked(r.build(dst))
	}
}

func (c *Compiler) operandOf(e ast.Expression) (code.Operand, error) {
	r, err := c.expression(e)
	if err != nil {
		return code.Operand{}, err
	}
	return c.materialize(r)
}

func (c *Compiler) operandsOf(exprs []ast.Expression) ([]code.Operand, error) {
	out := make([]code.Operand, 0, len(exprs))
	for _, e := range exprs {
		op, err := c.operandOf(e)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}

func (c *Compiler) expression(e ast.Expression) (result, error) {
	switch n := e.(type) {
	case *ast.IntegerLiteral:
		return constant(&object.Integer{Value: n.Value}), nil
	case *ast.FloatLiteral:
		return constant(semantics.NormalizeFloat(n.Value)), nil
	case *ast.StringLiteral:
		return constant(&object.String{Value: n.Value}), nil
	case *ast.BooleanLiteral:
		return constant(object.NativeBool(n.Value)), nil
	case *ast.NullLiteral:
		return constant(object.NULL), nil
	case *ast.GroupedExpression:
		return c.expression(n.Expression)
	case *ast.Identifier:
		op, ok := c.symbols.Resolve(n.Value)
		if !ok {
			return result{}, errorAt(n, "undefined variable %s", n.Value)
		}
		return binding(op), nil
	case *ast.PrefixExpression:
		return c.compilePrefix(n)
	case *ast.InfixExpression:
		return c.compileInfix(n)
	case *ast.AssignExpression:
		return c.compileAssign(n)
	case *ast.IndexAssignExpression:
		return c.compileIndexAssign(n)
	case *ast.IndexExpression:
		return c.compileIndex(n)
	case *ast.CallExpression:
		return c.compileCall(n)
	case *ast.ArrayLiteral:
		elems, err := c.operandsOf(n.Elements)
		if err != nil {
			return result{}, err
		}
		return deferred(func(dst code.Operand) (code.Instruction, error) {
			return code.NewArrayNew(dst, elems)
		}), nil
	default:
		return result{}, errorAt(e, "unsupported expression %T", e)
	}
}

func (c *Compiler) compilePrefix(n *ast.PrefixExpression) (result, error) {
	op, ok := unaryOps[n.Operator]
	if !ok {
		return result{}, errorAt(n, "unknown operator %s", n.Operator)
	}
	r, err := c.expression(n.Right)
	if err != nil {
		return result{}, err
	}
	if r.kind == resultConstant {
		if folded, err := semantics.Unary(n.Operator, r.value); err == nil {
			return constant(folded), nil
		}
	}
	v, err := c.materialize(r)
	if err != nil {
		return result{}, err
	}
	return deferred(func(dst code.Operand) (code.Instruction, error) {
		return code.NewUnary(op, dst, v)
	}), nil
}

func (c *Compiler) compileInfix(n *ast.InfixExpression) (result, error) {
	op, ok := binaryOps[n.Operator]
	if !ok {
		return result{}, errorAt(n, "unknown operator %s", n.Operator)
	}

	lr, err := c.expression(n.Left)
	if err != nil {
		return result{}, err
	}
	// Emit the left side before anything the right side needs.
	left, err := c.materialize(lr)
	if err != nil {
		return result{}, err
	}
	rr, err := c.expression(n.Right)
	if err != nil {
		return result{}, err
	}

	if lr.kind == resultConstant && rr.kind == resultConstant {
		if folded, err := semantics.Infix(n.Operator, lr.value, rr.value); err == nil {
			return constant(folded), nil
		}
	}

	right, err := c.materialize(rr)
	if err != nil {
		return result{}, err
	}
	return deferred(func(dst code.Operand) (code.Instruction, error) {
		return code.NewBinary(op, dst, left, right)
	}), nil
}

func (c *Compiler) compileAssign(n *ast.AssignExpression) (result, error) {
	target, ok := c.symbols.Resolve(n.Name.Value)
	if !ok {
		return result{}, errorAt(n.Name, "undefined variable %s", n.Name.Value)
	}
	r, err := c.expression(n.Value)
	if err != nil {
		return result{}, err
	}
	if err := c.store(target, r); err != nil {
		return result{}, err
	}
	return binding(target), nil
}

func (c *Compiler) compileIndexAssign(n *ast.IndexAssignExpression) (result, error) {
	arr, err := c.subscriptTarget(n.Left.Left)
	if err != nil {
		return result{}, err
	}
	idx, err := c.operandOf(n.Left.Index)
	if err != nil {
		return result{}, err
	}
	val, err := c.operandOf(n.Value)
	if err != nil {
		return result{}, err
	}
	if err := c.emitChecked(code.NewArraySet(arr, idx, val)); err != nil {
		return result{}, err
	}
	return binding(val), nil
}

func (c *Compiler) compileIndex(n *ast.IndexExpression) (result, error) {
	arr, err := c.subscriptTarget(n.Left)
	if err != nil {
		return result{}, err
	}
	idx, err := c.operandOf(n.Index)
	if err != nil {
		return result{}, err
	}
	return deferred(func(dst code.Operand) (code.Instruction, error) {
		return code.NewArrayGet(dst, arr, idx)
	}), nil
}

func (c *Compiler) subscriptTarget(e ast.Expression) (code.Operand, error) {
	r, err := c.expression(e)
	if err != nil {
		return code.Operand{}, err
	}
	if r.kind == resultConstant {
		return code.Operand{}, errorAt(e, "cannot use subscript on literals")
	}
	return c.materialize(r)
}

func (c *Compiler) compileCall(n *ast.CallExpression) (result, error) {
	r, err := c.expression(n.Function)
	if err != nil {
		return result{}, err
	}
	if r.kind == resultConstant {
		return result{}, errorAt(n.Function, "cannot call a literal")
	}
	callee, err := c.materialize(r)
	if err != nil {
		return result{}, err
	}
	args, err := c.operandsOf(n.Arguments)
	if err != nil {
		return result{}, err
	}
	call := deferred(func(dst code.Operand) (code.Instruction, error) {
		return code.NewCall(dst, callee, args)
	})
	call.discardable = true
	return call, nil
}
