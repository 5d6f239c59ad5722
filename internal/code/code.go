package code

import (
	"fmt"
	"strconv"

	"pychart/internal/object"
)

type Opcode byte

const (
	OpNoop Opcode = iota
	OpCreate
	OpPushIdentifier
	OpPushValue
	OpEnterScope
	OpExitScope

	OpJump        // target
	OpJumpIfTrue  // cond, target
	OpJumpIfFalse // cond, target

	OpDefineFunction // name, params, body length
	OpCall           // [dst], callee, args
	OpReturn         // [value]

	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpAnd
	OpOr
	OpNot

	OpAdd
	OpSub
	OpDiv
	OpMul
	OpSign
	OpNegate

	OpArrayNew // dst, elements
	OpArrayGet // dst, array, index
	OpArraySet // array, index, value

	// OpLabel only exists before linearization, or afterwards when labels
	// are kept for printing. It executes as a no-op.
	OpLabel

	opCount
)

// Opcodes lists every opcode in declaration order.
func Opcodes() []Opcode {
	out := make([]Opcode, 0, opCount)
	for op := Opcode(0); op < opCount; op++ {
		out = append(out, op)
	}
	return out
}

// Shape describes which Instruction fields an opcode uses.
type Shape int

const (
	ShapeNone     Shape = iota
	ShapeCreate         // Dst
	ShapePush           // Dst, Left
	ShapeJump           // Target
	ShapeCondJump       // Left, Target
	ShapeFunction       // Dst, Params, Length
	ShapeCall           // Dst?, Left, Args
	ShapeReturn         // Left?
	ShapeBinary         // Dst, Left, Right
	ShapeUnary          // Dst, Left
	ShapeArrayNew       // Dst, Args
	ShapeArrayGet       // Dst, Left, Right
	ShapeArraySet       // Left, Right, Args[0]
	ShapeLabel          // Label
)

// Definition is the static description of one opcode.
type Definition struct {
	Name     string
	Mnemonic string
	Shape    Shape
	// Operator is the source operator an arithmetic, comparison or
	// logical opcode implements; empty for everything else.
	Operator string
}

var definitions = map[Opcode]*Definition{
	OpNoop:           {"OpNoop", "noop", ShapeNone, ""},
	OpCreate:         {"OpCreate", "create", ShapeCreate, ""},
	OpPushIdentifier: {"OpPushIdentifier", "push", ShapePush, ""},
	OpPushValue:      {"OpPushValue", "push", ShapePush, ""},
	OpEnterScope:     {"OpEnterScope", "frame", ShapeNone, ""},
	OpExitScope:      {"OpExitScope", "raze", ShapeNone, ""},
	OpJump:           {"OpJump", "jump", ShapeJump, ""},
	OpJumpIfTrue:     {"OpJumpIfTrue", "jnez", ShapeCondJump, ""},
	OpJumpIfFalse:    {"OpJumpIfFalse", "jeqz", ShapeCondJump, ""},
	OpDefineFunction: {"OpDefineFunction", "func", ShapeFunction, ""},
	OpCall:           {"OpCall", "call", ShapeCall, ""},
	OpReturn:         {"OpReturn", "return", ShapeReturn, ""},
	OpEqual:          {"OpEqual", "eq", ShapeBinary, "=="},
	OpNotEqual:       {"OpNotEqual", "neq", ShapeBinary, "!="},
	OpLess:           {"OpLess", "lt", ShapeBinary, "<"},
	OpLessEqual:      {"OpLessEqual", "lte", ShapeBinary, "<="},
	OpGreater:        {"OpGreater", "gt", ShapeBinary, ">"},
	OpGreaterEqual:   {"OpGreaterEqual", "gte", ShapeBinary, ">="},
	OpAnd:            {"OpAnd", "and", ShapeBinary, "&&"},
	OpOr:             {"OpOr", "or", ShapeBinary, "||"},
	OpNot:            {"OpNot", "not", ShapeUnary, "!"},
	OpAdd:            {"OpAdd", "add", ShapeBinary, "+"},
	OpSub:            {"OpSub", "sub", ShapeBinary, "-"},
	OpDiv:            {"OpDiv", "div", ShapeBinary, "/"},
	OpMul:            {"OpMul", "mul", ShapeBinary, "*"},
	OpSign:           {"OpSign", "sign", ShapeUnary, "+"},
	OpNegate:         {"OpNegate", "negate", ShapeUnary, "-"},
	OpArrayNew:       {"OpArrayNew", "array", ShapeArrayNew, ""},
	OpArrayGet:       {"OpArrayGet", "aget", ShapeArrayGet, ""},
	OpArraySet:       {"OpArraySet", "aset", ShapeArraySet, ""},
	OpLabel:          {"OpLabel", "label", ShapeLabel, ""},
}

func Lookup(op Opcode) (*Definition, bool) {
	def, ok := definitions[op]
	return def, ok
}

func (op Opcode) String() string {
	if def, ok := definitions[op]; ok {
		return def.Name
	}
	return "Op(" + strconv.Itoa(int(op)) + ")"
}

/* -------------------- operands -------------------- */

type OperandKind byte

const (
	KindAbsent OperandKind = iota
	KindIdentifier
	KindValue
)

// Operand is either a binding reference or an immediate value. The zero
// Operand is absent.
type Operand struct {
	Kind  OperandKind
	Slot  int
	Name  string
	Value object.Object
}

func Ident(slot int, name string) Operand {
	return Operand{Kind: KindIdentifier, Slot: slot, Name: name}
}

func Val(v object.Object) Operand {
	return Operand{Kind: KindValue, Value: v}
}

func (o Operand) IsAbsent() bool     { return o.Kind == KindAbsent }
func (o Operand) IsIdentifier() bool { return o.Kind == KindIdentifier }
func (o Operand) IsValue() bool      { return o.Kind == KindValue }

// Mangled is the slot-qualified name, unique across the program.
func (o Operand) Mangled() string {
	return strconv.Itoa(o.Slot) + "." + o.Name
}

func (o Operand) String() string {
	switch o.Kind {
	case KindIdentifier:
		return o.Name
	case KindValue:
		if s, ok := o.Value.(*object.String); ok {
			return strconv.Quote(s.Value)
		}
		return o.Value.Inspect()
	default:
		return "_"
	}
}

/* -------------------- instructions -------------------- */

// Unresolved marks a jump whose Target still names a label.
const Unresolved = -1

type Instruction struct {
	Op     Opcode
	Dst    Operand
	Left   Operand
	Right  Operand
	Args   []Operand
	Params []Operand
	Target int
	Label  string
	Length int
}

type Instructions []Instruction

type ConstructionError struct {
	Op     Opcode
	Reason string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("cannot construct %s: %s", e.Op, e.Reason)
}

func constructErr(op Opcode, format string, args ...any) error {
	return &ConstructionError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

func needIdent(op Opcode, role string, o Operand) error {
	if !o.IsIdentifier() {
		return constructErr(op, "%s must be an identifier", role)
	}
	return nil
}

func needOperand(op Opcode, role string, o Operand) error {
	if o.IsAbsent() {
		return constructErr(op, "%s is missing", role)
	}
	return nil
}

func NewNoop() Instruction       { return Instruction{Op: OpNoop} }
func NewEnterScope() Instruction { return Instruction{Op: OpEnterScope} }
func NewExitScope() Instruction  { return Instruction{Op: OpExitScope} }

func NewLabel(name string) Instruction {
	return Instruction{Op: OpLabel, Label: name}
}

func NewCreate(dst Operand) (Instruction, error) {
	if err := needIdent(OpCreate, "name", dst); err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: OpCreate, Dst: dst}, nil
}

// NewPush picks OpPushIdentifier or OpPushValue from the source kind.
func NewPush(dst, src Operand) (Instruction, error) {
	op := OpPushValue
	if src.IsIdentifier() {
		op = OpPushIdentifier
	}
	if err := needIdent(op, "destination", dst); err != nil {
		return Instruction{}, err
	}
	if err := needOperand(op, "source", src); err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: op, Dst: dst, Left: src}, nil
}

func NewJump(label string) Instruction {
	return Instruction{Op: OpJump, Target: Unresolved, Label: label}
}

func NewJumpIfTrue(cond Operand, label string) (Instruction, error) {
	return newCondJump(OpJumpIfTrue, cond, label)
}

func NewJumpIfFalse(cond Operand, label string) (Instruction, error) {
	return newCondJump(OpJumpIfFalse, cond, label)
}

func newCondJump(op Opcode, cond Operand, label string) (Instruction, error) {
	if err := needOperand(op, "condition", cond); err != nil {
		return Instruction{}, err
	}
	if label == "" {
		return Instruction{}, constructErr(op, "target label is empty")
	}
	return Instruction{Op: op, Left: cond, Target: Unresolved, Label: label}, nil
}

func NewDefineFunction(name Operand, params []Operand, length int) (Instruction, error) {
	if err := needIdent(OpDefineFunction, "name", name); err != nil {
		return Instruction{}, err
	}
	for i, p := range params {
		if err := needIdent(OpDefineFunction, fmt.Sprintf("parameter %d", i), p); err != nil {
			return Instruction{}, err
		}
	}
	if length < 0 {
		return Instruction{}, constructErr(OpDefineFunction, "negative body length %d", length)
	}
	return Instruction{Op: OpDefineFunction, Dst: name, Params: params, Length: length}, nil
}

// NewCall builds a call; dst may be absent when the result is discarded.
func NewCall(dst, callee Operand, args []Operand) (Instruction, error) {
	if !dst.IsAbsent() {
		if err := needIdent(OpCall, "destination", dst); err != nil {
			return Instruction{}, err
		}
	}
	if err := needIdent(OpCall, "callee", callee); err != nil {
		return Instruction{}, err
	}
	for i, a := range args {
		if err := needOperand(OpCall, fmt.Sprintf("argument %d", i), a); err != nil {
			return Instruction{}, err
		}
	}
	return Instruction{Op: OpCall, Dst: dst, Left: callee, Args: args}, nil
}

// NewReturn builds a return; value may be absent.
func NewReturn(value Operand) Instruction {
	return Instruction{Op: OpReturn, Left: value}
}

func NewBinary(op Opcode, dst, left, right Operand) (Instruction, error) {
	if def, ok := Lookup(op); !ok || def.Shape != ShapeBinary {
		return Instruction{}, constructErr(op, "not a binary opcode")
	}
	if err := needIdent(op, "destination", dst); err != nil {
		return Instruction{}, err
	}
	if err := needOperand(op, "left operand", left); err != nil {
		return Instruction{}, err
	}
	if err := needOperand(op, "right operand", right); err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: op, Dst: dst, Left: left, Right: right}, nil
}

func NewUnary(op Opcode, dst, value Operand) (Instruction, error) {
	if def, ok := Lookup(op); !ok || def.Shape != ShapeUnary {
		return Instruction{}, constructErr(op, "not a unary opcode")
	}
	if err := needIdent(op, "destination", dst); err != nil {
		return Instruction{}, err
	}
	if err := needOperand(op, "operand", value); err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: op, Dst: dst, Left: value}, nil
}

func NewArrayNew(dst Operand, elems []Operand) (Instruction, error) {
	if err := needIdent(OpArrayNew, "destination", dst); err != nil {
		return Instruction{}, err
	}
	for i, e := range elems {
		if err := needOperand(OpArrayNew, fmt.Sprintf("element %d", i), e); err != nil {
			return Instruction{}, err
		}
	}
	return Instruction{Op: OpArrayNew, Dst: dst, Args: elems}, nil
}

func NewArrayGet(dst, array, index Operand) (Instruction, error) {
	if err := needIdent(OpArrayGet, "destination", dst); err != nil {
		return Instruction{}, err
	}
	if err := needIdent(OpArrayGet, "array", array); err != nil {
		return Instruction{}, err
	}
	if err := needOperand(OpArrayGet, "index", index); err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: OpArrayGet, Dst: dst, Left: array, Right: index}, nil
}

func NewArraySet(array, index, value Operand) (Instruction, error) {
	if err := needIdent(OpArraySet, "array", array); err != nil {
		return Instruction{}, err
	}
	if err := needOperand(OpArraySet, "index", index); err != nil {
		return Instruction{}, err
	}
	if err := needOperand(OpArraySet, "value", value); err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: OpArraySet, Left: array, Right: index, Args: []Operand{value}}, nil
}

// IsJump reports whether the instruction carries a jump target.
func (ins Instruction) IsJump() bool {
	switch ins.Op {
	case OpJump, OpJumpIfTrue, OpJumpIfFalse:
		return true
	}
	return false
}
