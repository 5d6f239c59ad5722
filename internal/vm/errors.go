package vm

import (
	"errors"
	"fmt"
	"strings"

	"pychart/internal/code"
	"pychart/internal/limits"
)

var (
	ErrNotCallable    = errors.New("value is not callable")
	ErrStepLimit      = limits.ErrStepLimit
	ErrCallDepth      = errors.New("max call depth exceeded")
	ErrScopeUnderflow = errors.New("exit-scope with no open scope")
)

// UnboundNameError reports a read of, or write to, a binding that no
// visible scope declares.
type UnboundNameError struct {
	Name string
	Slot int
}

func (e *UnboundNameError) Error() string {
	return fmt.Sprintf("unbound name %s", e.Name)
}

type ArityError struct {
	Name string
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("wrong number of arguments to %s: want=%d, got=%d", e.Name, e.Want, e.Got)
}

// RuntimeError wraps any failure raised while executing an instruction. PC
// is the index of the failing instruction; Trace lists the active calls,
// innermost first.
type RuntimeError struct {
	PC    int
	Op    code.Opcode
	Trace []string
	Err   error
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "runtime error at %04d (%s): %v", e.PC, e.Op, e.Err)
	for _, frame := range e.Trace {
		b.WriteString("\n  at ")
		b.WriteString(frame)
	}
	return b.String()
}

func (e *RuntimeError) Unwrap() error { return e.Err }
