package compiler

import (
	"fmt"

	"pychart/internal/code"
)

// Bindings is the program-wide slot arena. Every declaration, including
// temporaries, gets a fresh slot, so two scopes never alias a binding even
// when they sit at the same nesting depth.
type Bindings struct {
	symbols []code.Symbol
}

func (b *Bindings) Declare(name string, global bool) code.Operand {
	slot := len(b.symbols)
	b.symbols = append(b.symbols, code.Symbol{Slot: slot, Name: name, Global: global})
	return code.Ident(slot, name)
}

func (b *Bindings) Symbols() []code.Symbol {
	out := make([]code.Symbol, len(b.symbols))
	copy(out, b.symbols)
	return out
}

func (b *Bindings) Len() int { return len(b.symbols) }

// Truncate forgets every slot from n on.
func (b *Bindings) Truncate(n int) {
	if n >= 0 && n < len(b.symbols) {
		b.symbols = b.symbols[:n]
	}
}

type FrameKind int

const (
	GlobalFrame FrameKind = iota
	FunctionFrame
	BlockFrame
)

func (k FrameKind) String() string {
	switch k {
	case GlobalFrame:
		return "global"
	case FunctionFrame:
		return "function"
	default:
		return "block"
	}
}

// SymbolTable maps source names to slots for one frame. Frames chain
// outward through Outer; a function frame's Outer is the frame it was
// declared in.
type SymbolTable struct {
	Outer *SymbolTable
	Kind  FrameKind
	store map[string]code.Operand
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{Kind: GlobalFrame, store: map[string]code.Operand{}}
}

func NewEnclosedSymbolTable(outer *SymbolTable, kind FrameKind) *SymbolTable {
	return &SymbolTable{Outer: outer, Kind: kind, store: map[string]code.Operand{}}
}

func (st *SymbolTable) Define(name string, arena *Bindings) (code.Operand, error) {
	if _, dup := st.store[name]; dup {
		return code.Operand{}, fmt.Errorf("variable %s is already defined", name)
	}
	op := arena.Declare(name, st.Kind == GlobalFrame)
	st.store[name] = op
	return op, nil
}

func (st *SymbolTable) Resolve(name string) (code.Operand, bool) {
	for t := st; t != nil; t = t.Outer {
		if op, ok := t.store[name]; ok {
			return op, true
		}
	}
	return code.Operand{}, false
}

// ResolveOuter looks name up in enclosing frames only.
func (st *SymbolTable) ResolveOuter(name string) (code.Operand, bool) {
	if st.Outer == nil {
		return code.Operand{}, false
	}
	return st.Outer.Resolve(name)
}
