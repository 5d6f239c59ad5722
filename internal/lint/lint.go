// Package lint reports suspicious but legal code: bindings that are never
// read and statements that can never run. Shadowing is reported by the
// compiler itself.
package lint

import (
	"pychart/internal/ast"
	"pychart/internal/diag"
)

const (
	CodeUnusedVariable  = "PL0001"
	CodeUnusedParameter = "PL0002"
	CodeUnreachable     = "PL0003"
)

type Options struct {
	// CheckGlobals also reports unused top-level bindings. Off by default
	// since globals are often meant for the REPL or the host.
	CheckGlobals bool
}

func DefaultOptions() Options {
	return Options{}
}

type Linter struct {
	opts Options
}

func New() *Linter {
	return &Linter{opts: DefaultOptions()}
}

func NewWithOptions(opts Options) *Linter {
	return &Linter{opts: opts}
}

func Run(program *ast.Program) []diag.Diagnostic {
	return New().Run(program)
}

func (l *Linter) Run(program *ast.Program) []diag.Diagnostic {
	if program == nil {
		return nil
	}
	r := &Runner{sc: newScope(nil), opts: l.opts}
	r.walkProgram(program)
	if l.opts.CheckGlobals {
		r.report(r.sc)
	}
	diag.Sort(r.diags)
	return r.diags
}
