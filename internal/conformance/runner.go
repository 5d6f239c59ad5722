package conformance

import (
	"bytes"
	"fmt"
	"strings"

	"pychart/internal/builtins"
	"pychart/internal/compiler"
	"pychart/internal/evaluator"
	"pychart/internal/lexer"
	"pychart/internal/parser"
	"pychart/internal/runtimeio"
	"pychart/internal/vm"
)

const (
	EngineVM   = "vm"
	EngineEval = "eval"
)

// MaxSteps bounds runs on either engine so a broken loop fails instead of
// hanging.
const MaxSteps = 1_000_000

// Outcome is what a run makes observable.
type Outcome struct {
	Output  string
	Globals map[string]string
	Err     error
}

func console(input string) (*runtimeio.IO, *bytes.Buffer) {
	var out bytes.Buffer
	return runtimeio.New(strings.NewReader(input), &out), &out
}

// Run executes source on the named engine. names lists the globals to
// report.
func Run(engine, source, input string, names []string) Outcome {
	p := parser.New(lexer.New(source))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return Outcome{Err: fmt.Errorf("parse error: %s", strings.Join(errs, "; "))}
	}

	io, out := console(input)
	globals := map[string]string{}

	switch engine {
	case EngineVM:
		prog, err := compiler.New(compiler.Options{File: "case.pc", Natives: builtins.Names()}).Compile(program)
		if err != nil {
			return Outcome{Err: err}
		}
		m := vm.New(prog, vm.Natives(builtins.New(io)))
		m.SetMaxSteps(MaxSteps)
		err = m.Run()
		for _, name := range names {
			if v, ok := m.Global(name); ok {
				globals[name] = v.Inspect()
			}
		}
		return Outcome{Output: out.String(), Globals: globals, Err: err}

	case EngineEval:
		env := evaluator.NewEnvironment(builtins.New(io))
		_, err := evaluator.New(MaxSteps).Program(program, env)
		for _, name := range names {
			if v, ok := env.Local(name); ok {
				globals[name] = v.Inspect()
			}
		}
		return Outcome{Output: out.String(), Globals: globals, Err: err}

	default:
		return Outcome{Err: fmt.Errorf("unknown engine %q", engine)}
	}
}

// Check compares an outcome with the case's expectation.
func Check(c Case, o Outcome) error {
	if c.Expect.Error != "" {
		if o.Err == nil {
			return fmt.Errorf("expected error containing %q, got none", c.Expect.Error)
		}
		if !strings.Contains(o.Err.Error(), c.Expect.Error) {
			return fmt.Errorf("expected error containing %q, got %v", c.Expect.Error, o.Err)
		}
	} else if o.Err != nil {
		return fmt.Errorf("unexpected error: %v", o.Err)
	}

	if err := matchOutput(o.Output, c.Expect, c.dir); err != nil {
		return err
	}
	for name, want := range c.Expect.Globals {
		got, ok := o.Globals[name]
		if !ok {
			return fmt.Errorf("global %s not set", name)
		}
		if got != want {
			return fmt.Errorf("global %s = %s, want %s", name, got, want)
		}
	}
	return nil
}

// RunCase runs c on engine and checks it.
func RunCase(engine string, c Case) error {
	names := make([]string, 0, len(c.Expect.Globals))
	for name := range c.Expect.Globals {
		names = append(names, name)
	}
	return Check(c, Run(engine, c.Source, c.Input, names))
}
