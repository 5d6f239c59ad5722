package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"pychart/internal/ast"
	"pychart/internal/builtins"
	"pychart/internal/compiler"
	"pychart/internal/evaluator"
	"pychart/internal/lexer"
	"pychart/internal/object"
	"pychart/internal/parser"
	"pychart/internal/runtimeio"
	"pychart/internal/token"
	"pychart/internal/vm"
)

const (
	prompt1 = "pychart> "
	prompt2 = "....> "
)

// resultName is the binding the REPL stores the last expression value in.
const resultName = "_"

type Options struct {
	Engine   string // "vm" (default) or "eval"
	MaxSteps int64
	Dump     bool // print the listing of each compiled chunk
}

type session interface {
	run(program *ast.Program) (object.Object, error)
}

type vmSession struct {
	compiler *compiler.Compiler
	machine  *vm.VM
	natives  map[string]vm.Native
	maxSteps int64
	dump     bool
	out      io.Writer
}

func (s *vmSession) run(program *ast.Program) (object.Object, error) {
	prog, err := s.compiler.Compile(program)
	if err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}
	if s.dump {
		fmt.Fprint(s.out, prog.Instructions.Disassemble(false))
	}
	if s.machine == nil {
		s.machine = vm.New(prog, s.natives)
	} else {
		s.machine.Load(prog)
	}
	s.machine.SetMaxSteps(s.maxSteps)
	if err := s.machine.Run(); err != nil {
		return nil, err
	}
	v, _ := s.machine.Global(resultName)
	return v, nil
}

type evalSession struct {
	env       *object.Environment
	evaluator *evaluator.Evaluator
}

func (s *evalSession) run(program *ast.Program) (object.Object, error) {
	if _, err := s.evaluator.Program(program, s.env); err != nil {
		return nil, err
	}
	v, _ := s.env.Local(resultName)
	return v, nil
}

func newSession(console *runtimeio.IO, out io.Writer, opts Options) (session, error) {
	var s session
	if opts.Engine == "eval" {
		s = &evalSession{
			env:       evaluator.NewEnvironment(builtins.New(console)),
			evaluator: evaluator.New(opts.MaxSteps),
		}
	} else {
		s = &vmSession{
			compiler: compiler.New(compiler.Options{File: "<repl>", Natives: builtins.Names()}),
			natives:  vm.Natives(builtins.New(console)),
			maxSteps: opts.MaxSteps,
			dump:     opts.Dump,
			out:      out,
		}
	}
	p := parser.New(lexer.New("let " + resultName + ";"))
	if _, err := s.run(p.ParseProgram()); err != nil {
		return nil, err
	}
	return s, nil
}

func Start(in io.Reader, out io.Writer, opts Options) {
	reader := bufio.NewReader(in)
	console := runtimeio.New(reader, out)

	s, err := newSession(console, out, opts)
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}

	fmt.Fprint(out, "pychart REPL (.exit or Ctrl+D to quit)\n")

	var buf strings.Builder
	braces, parens := 0, 0
	inString, escaped := false, false

	for {
		if buf.Len() == 0 {
			fmt.Fprint(out, prompt1)
		} else {
			fmt.Fprint(out, prompt2)
		}

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprint(out, "\n")
			return
		}
		line = strings.TrimRight(line, "\r\n")
		trim := strings.TrimSpace(line)

		if buf.Len() == 0 {
			if trim == ".exit" || trim == "exit" || trim == "quit" {
				return
			}
			if trim == "" {
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteString("\n")

		braces, parens, inString, escaped = updateBalance(line, braces, parens, inString, escaped)
		if braces > 0 || parens > 0 || inString {
			continue
		}

		src := buf.String()
		buf.Reset()
		inString, escaped = false, false

		p := parser.New(lexer.New(src))
		program := p.ParseProgram()
		if len(p.Errors()) > 0 {
			printParserErrors(out, p.Errors())
			continue
		}
		captureResult(program)

		result, err := s.run(program)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if result != nil && result != object.NULL {
			fmt.Fprintln(out, result.Inspect())
		}
	}
}

// captureResult rewrites a trailing expression statement `e;` into
// `_ = e;` so its value can be echoed. The previous result is cleared
// first.
func captureResult(program *ast.Program) {
	if len(program.Statements) == 0 {
		return
	}
	target := &ast.Identifier{Token: token.Token{Type: token.IDENT, Literal: resultName, Line: 1, Col: 1}, Value: resultName}
	if last, ok := program.Statements[len(program.Statements)-1].(*ast.ExpressionStatement); ok {
		last.Expression = &ast.AssignExpression{Token: last.Token, Name: target, Value: last.Expression}
	}
	reset := &ast.ExpressionStatement{
		Token:      target.Token,
		Expression: &ast.AssignExpression{Token: target.Token, Name: target, Value: &ast.NullLiteral{Token: target.Token}},
	}
	program.Statements = append([]ast.Statement{reset}, program.Statements...)
}

func updateBalance(line string, braces, parens int, inString, escaped bool) (int, int, bool, bool) {
	for i := 0; i < len(line); i++ {
		ch := line[i]

		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			break
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			braces++
		case '}':
			if braces > 0 {
				braces--
			}
		case '(':
			parens++
		case ')':
			if parens > 0 {
				parens--
			}
		}
	}
	return braces, parens, inString, escaped
}

func printParserErrors(out io.Writer, errs []string) {
	for _, e := range errs {
		fmt.Fprintf(out, "parse error: %s\n", e)
	}
}
