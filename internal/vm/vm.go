package vm

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"pychart/internal/code"
	"pychart/internal/limits"
	"pychart/internal/object"
	"pychart/internal/semantics"
)

const MaxCallDepth = 1024

var log = commonlog.GetLogger("pychart.vm")

type callRecord struct {
	name     string
	returnPC int
	scopes   []*object.Scope
	dst      code.Operand
}

type signalKind int

const (
	signalContinue signalKind = iota
	signalJump
	signalReturn
)

// signal tells the dispatch loop how to leave an instruction. A return
// signal with a nil value is the NilSignal: the callee returned nothing, or
// null, and the caller sees object.NULL.
type signal struct {
	kind   signalKind
	target int
	value  object.Object
}

var (
	next      = signal{kind: signalContinue}
	nilSignal = signal{kind: signalReturn}
)

type VM struct {
	program *code.Program
	ins     code.Instructions
	pc      int

	globals *object.Scope
	scopes  []*object.Scope
	calls   []callRecord

	natives map[string]Native

	budget *limits.Budget
	trace  bool
}

func New(program *code.Program, natives map[string]Native) *VM {
	m := &VM{
		globals: object.NewScope(),
		natives: natives,
	}
	m.Load(program)
	return m
}

// Load appends a program to the machine's code and positions it at the
// first new instruction. Earlier chunks stay in place, so closures defined
// by them keep valid entry addresses; the global scope is kept too.
// Natives named by the program's global symbols are bound if not already.
func (m *VM) Load(program *code.Program) {
	base := len(m.ins)
	m.program = program
	m.ins = append(m.ins, rebase(program.Instructions, base)...)
	m.pc = base
	m.scopes = []*object.Scope{m.globals}
	m.calls = nil

	names := make([]string, 0, len(m.natives))
	for name := range m.natives {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		slot, ok := program.GlobalSlot(name)
		if !ok || m.globals.Has(slot) {
			continue
		}
		m.globals.Set(slot, &nativeFunc{name: name, fn: m.natives[name]})
	}
}

// rebase shifts the absolute jump targets of a chunk loaded at base.
func rebase(ins code.Instructions, base int) code.Instructions {
	if base == 0 {
		return ins
	}
	out := make(code.Instructions, len(ins))
	for i, in := range ins {
		if def, ok := code.Lookup(in.Op); ok && (def.Shape == code.ShapeJump || def.Shape == code.ShapeCondJump) && in.Target >= 0 {
			in.Target += base
		}
		out[i] = in
	}
	return out
}

// SetMaxSteps bounds each Run to max instructions; 0 means unlimited.
func (m *VM) SetMaxSteps(max int64) {
	m.budget = limits.NewBudget(max)
}

// Steps is the number of instructions executed by the last Run.
func (m *VM) Steps() int64 { return m.budget.Used() }

// CallDepth is the number of active calls.
func (m *VM) CallDepth() int { return len(m.calls) }

// ScopeDepth is the number of open scopes, globals included.
func (m *VM) ScopeDepth() int { return len(m.scopes) }

// Global returns the value of a top-level binding by source name.
func (m *VM) Global(name string) (object.Object, bool) {
	for i := len(m.program.Symbols) - 1; i >= 0; i-- {
		s := m.program.Symbols[i]
		if s.Global && s.Name == name {
			return m.globals.Get(s.Slot)
		}
	}
	return nil, false
}

func (m *VM) Run() error {
	if m.budget == nil {
		m.budget = limits.NewBudget(0)
	}
	m.budget.Reset()
	m.trace = log.AllowLevel(commonlog.Debug)

	for m.pc < len(m.ins) {
		if err := m.budget.Charge(1); err != nil {
			return m.fail(err)
		}

		ins := m.ins[m.pc]
		if m.trace {
			log.Debugf("%04d %s", m.pc, ins.String())
		}

		sig, err := m.step(ins)
		if err != nil {
			return m.fail(err)
		}

		switch sig.kind {
		case signalContinue:
			m.pc++
		case signalJump:
			m.pc = sig.target
		case signalReturn:
			if len(m.calls) == 0 {
				// return at top level halts the program
				return nil
			}
			if err := m.unwind(sig.value); err != nil {
				return m.fail(err)
			}
		}
	}
	return nil
}

func (m *VM) fail(err error) error {
	var rt *RuntimeError
	if errors.As(err, &rt) {
		return err
	}
	op := code.OpNoop
	if m.pc >= 0 && m.pc < len(m.ins) {
		op = m.ins[m.pc].Op
	}
	trace := make([]string, 0, len(m.calls)+1)
	for i := len(m.calls) - 1; i >= 0; i-- {
		trace = append(trace, m.calls[i].name)
	}
	trace = append(trace, "<main>")
	return &RuntimeError{PC: m.pc, Op: op, Trace: trace, Err: err}
}

func (m *VM) unwind(value object.Object) error {
	rec := m.calls[len(m.calls)-1]
	m.calls = m.calls[:len(m.calls)-1]
	m.scopes = rec.scopes
	m.pc = rec.returnPC
	if rec.dst.IsAbsent() {
		return nil
	}
	if value == nil {
		value = object.NULL
	}
	return m.write(rec.dst, value)
}

// Resolve turns an operand into a value: literals as is, identifiers via
// the scope stack innermost first.
func (m *VM) Resolve(op code.Operand) (object.Object, error) {
	switch op.Kind {
	case code.KindValue:
		return op.Value, nil
	case code.KindIdentifier:
		if v, ok := object.Lookup(m.scopes, op.Slot); ok {
			return v, nil
		}
		return nil, &UnboundNameError{Name: op.Name, Slot: op.Slot}
	default:
		return object.NULL, nil
	}
}

func (m *VM) write(dst code.Operand, v object.Object) error {
	owner := object.Owner(m.scopes, dst.Slot)
	if owner == nil {
		return &UnboundNameError{Name: dst.Name, Slot: dst.Slot}
	}
	owner.Set(dst.Slot, v)
	return nil
}

func (m *VM) innermost() *object.Scope { return m.scopes[len(m.scopes)-1] }

func (m *VM) jumpTo(ins code.Instruction) (signal, error) {
	if ins.Target < 0 || ins.Target > len(m.ins) {
		return next, fmt.Errorf("unresolved jump target %q", ins.Label)
	}
	return signal{kind: signalJump, target: ins.Target}, nil
}

func (m *VM) step(ins code.Instruction) (signal, error) {
	switch ins.Op {
	case code.OpNoop, code.OpLabel:
		return next, nil

	case code.OpCreate:
		m.innermost().Set(ins.Dst.Slot, object.NULL)
		return next, nil

	case code.OpPushIdentifier, code.OpPushValue:
		v, err := m.Resolve(ins.Left)
		if err != nil {
			return next, err
		}
		return next, m.write(ins.Dst, v)

	case code.OpEnterScope:
		m.scopes = append(m.scopes, object.NewScope())
		return next, nil

	case code.OpExitScope:
		if len(m.scopes) <= 1 {
			return next, ErrScopeUnderflow
		}
		m.scopes = m.scopes[:len(m.scopes)-1]
		return next, nil

	case code.OpJump:
		return m.jumpTo(ins)

	case code.OpJumpIfTrue, code.OpJumpIfFalse:
		cond, err := m.Resolve(ins.Left)
		if err != nil {
			return next, err
		}
		if semantics.IsTruthy(cond) == (ins.Op == code.OpJumpIfTrue) {
			return m.jumpTo(ins)
		}
		return next, nil

	case code.OpDefineFunction:
		params := make([]int, len(ins.Params))
		for i, p := range ins.Params {
			params[i] = p.Slot
		}
		captured := make([]*object.Scope, len(m.scopes))
		copy(captured, m.scopes)
		m.innermost().Set(ins.Dst.Slot, &object.Closure{
			Name:   ins.Dst.Name,
			Entry:  m.pc + 1,
			Params: params,
			Scopes: captured,
		})
		return signal{kind: signalJump, target: m.pc + 1 + ins.Length}, nil

	case code.OpCall:
		return m.call(ins)

	case code.OpReturn:
		if ins.Left.IsAbsent() {
			return nilSignal, nil
		}
		v, err := m.Resolve(ins.Left)
		if err != nil {
			return next, err
		}
		if v == object.NULL {
			return nilSignal, nil
		}
		return signal{kind: signalReturn, value: v}, nil

	case code.OpEqual, code.OpNotEqual, code.OpLess, code.OpLessEqual,
		code.OpGreater, code.OpGreaterEqual, code.OpAnd, code.OpOr,
		code.OpAdd, code.OpSub, code.OpMul, code.OpDiv:
		def, _ := code.Lookup(ins.Op)
		l, err := m.Resolve(ins.Left)
		if err != nil {
			return next, err
		}
		r, err := m.Resolve(ins.Right)
		if err != nil {
			return next, err
		}
		v, err := semantics.Infix(def.Operator, l, r)
		if err != nil {
			return next, err
		}
		return next, m.write(ins.Dst, v)

	case code.OpNot, code.OpSign, code.OpNegate:
		def, _ := code.Lookup(ins.Op)
		operand, err := m.Resolve(ins.Left)
		if err != nil {
			return next, err
		}
		v, err := semantics.Unary(def.Operator, operand)
		if err != nil {
			return next, err
		}
		return next, m.write(ins.Dst, v)

	case code.OpArrayNew:
		elems := make([]object.Object, len(ins.Args))
		for i, a := range ins.Args {
			v, err := m.Resolve(a)
			if err != nil {
				return next, err
			}
			elems[i] = v
		}
		return next, m.write(ins.Dst, &object.Array{Elements: elems})

	case code.OpArrayGet:
		arr, err := m.Resolve(ins.Left)
		if err != nil {
			return next, err
		}
		idx, err := m.Resolve(ins.Right)
		if err != nil {
			return next, err
		}
		v, err := semantics.IndexGet(arr, idx)
		if err != nil {
			return next, err
		}
		return next, m.write(ins.Dst, v)

	case code.OpArraySet:
		arr, err := m.Resolve(ins.Left)
		if err != nil {
			return next, err
		}
		idx, err := m.Resolve(ins.Right)
		if err != nil {
			return next, err
		}
		if len(ins.Args) != 1 {
			return next, fmt.Errorf("malformed %s instruction", ins.Op)
		}
		v, err := m.Resolve(ins.Args[0])
		if err != nil {
			return next, err
		}
		return next, semantics.IndexSet(arr, idx, v)

	default:
		return next, fmt.Errorf("unknown opcode %d", ins.Op)
	}
}

func (m *VM) call(ins code.Instruction) (signal, error) {
	callee, err := m.Resolve(ins.Left)
	if err != nil {
		return next, err
	}
	args := ins.Args

	switch fn := callee.(type) {
	case *object.Closure:
		if len(args) != len(fn.Params) {
			return next, &ArityError{Name: fn.Name, Want: len(fn.Params), Got: len(args)}
		}
		if len(m.calls) >= MaxCallDepth {
			return next, fmt.Errorf("%w (%d)", ErrCallDepth, MaxCallDepth)
		}

		// Arguments are evaluated in the caller's scopes.
		frame := object.NewScope()
		for i, a := range args {
			v, err := m.Resolve(a)
			if err != nil {
				return next, err
			}
			frame.Set(fn.Params[i], v)
		}

		m.calls = append(m.calls, callRecord{
			name:     fn.Name,
			returnPC: m.pc + 1,
			scopes:   m.scopes,
			dst:      ins.Dst,
		})
		scopes := make([]*object.Scope, len(fn.Scopes), len(fn.Scopes)+1)
		copy(scopes, fn.Scopes)
		m.scopes = append(scopes, frame)
		return signal{kind: signalJump, target: fn.Entry}, nil

	case *nativeFunc:
		v, err := fn.fn(m, args)
		if err != nil {
			return next, fmt.Errorf("%s: %w", fn.name, err)
		}
		if ins.Dst.IsAbsent() {
			return next, nil
		}
		if v == nil {
			v = object.NULL
		}
		return next, m.write(ins.Dst, v)

	default:
		return next, fmt.Errorf("%w: %s", ErrNotCallable, callee.Type())
	}
}
