package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"pychart/internal/ast"
	"pychart/internal/builtins"
	"pychart/internal/code"
	"pychart/internal/compiler"
	"pychart/internal/config"
	"pychart/internal/diag"
	"pychart/internal/evaluator"
	"pychart/internal/image"
	"pychart/internal/lexer"
	"pychart/internal/parser"
	"pychart/internal/repl"
	"pychart/internal/runtimeio"
	"pychart/internal/token"
	"pychart/internal/vm"
)

const sourceExt = ".pc"

var log = commonlog.GetLogger("pychart.cli")

// cli carries the process streams so commands can be driven from tests.
type cli struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	console func() *runtimeio.IO

	// interactive reports whether stdin is a terminal; nil means it is.
	interactive func() bool
}

func main() {
	c := &cli{
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		console:     runtimeio.Std,
		interactive: runtimeio.StdinIsTerminal,
	}
	os.Exit(c.main(os.Args[1:]))
}

func (c *cli) main(args []string) int {
	if len(args) == 0 {
		// `echo 'print(1);' | pychart` runs the piped program.
		if c.interactive != nil && !c.interactive() {
			return c.runStdin()
		}
		return c.runREPL(nil)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "run":
		return c.runFile(rest)
	case "repl":
		return c.runREPL(rest)
	case "build":
		return c.runBuild(rest)
	case "exec":
		return c.runExec(rest)
	case "test":
		return c.runTest(rest)
	case "init":
		return c.runInit(rest)
	case "fmt":
		return c.runFmt(rest)
	case "lint":
		return c.runLint(rest)
	case "tools":
		return c.runTools(rest)
	case "help", "-h", "-help", "--help":
		c.usage()
		return 0
	}
	// `pychart file.pc` and `pychart -dis file.pc` mean `pychart run ...`.
	if strings.HasPrefix(cmd, "-") || strings.HasSuffix(cmd, sourceExt) || isPathArg(cmd) {
		return c.runFile(args)
	}
	fmt.Fprintln(c.stderr, "unknown command:", cmd)
	c.usage()
	return 2
}

func (c *cli) usage() {
	fmt.Fprint(c.stderr, `usage:
  pychart [run] [flags] [file.pc|dir]   run a program
  pychart < prog.pc                     run a program piped on stdin
  pychart repl [-eval] [-dump]          start the REPL
  pychart build [-o out.pcc] file.pc    write a compiled program image
  pychart exec [-max-steps N] out.pcc   run a compiled program image
  pychart test [-engine vm|eval] [dir]  run YAML conformance fixtures
  pychart init [-name N] [-entry F]     create pychart.toml
  pychart fmt [-w] [-l] [path...]       format source files
  pychart lint <file|dir>...            report diagnostics without running
  pychart tools install [-bin dir]      build pychart and pychart-lsp
`)
}

// countFlag counts repeated boolean occurrences, so -v -v means 2.
type countFlag int

func (f *countFlag) String() string   { return strconv.Itoa(int(*f)) }
func (f *countFlag) IsBoolFlag() bool { return true }
func (f *countFlag) Set(s string) error {
	if s == "true" {
		*f++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid verbosity %q", s)
	}
	*f = countFlag(n)
	return nil
}

// runFlags are shared by run, repl, build and exec.
type runFlags struct {
	verbose    countFlag
	logFile    string
	eval       bool
	keepLabels bool
	maxSteps   int64
}

func (r *runFlags) register(fs *flag.FlagSet) {
	fs.Var(&r.verbose, "v", "increase log verbosity (repeatable)")
	fs.StringVar(&r.logFile, "log", "", "write logs to this file instead of stderr")
	fs.BoolVar(&r.eval, "eval", false, "run with the tree-walking evaluator instead of the VM")
	fs.BoolVar(&r.keepLabels, "keep-labels", false, "keep label pseudo-instructions in the listing")
	fs.Int64Var(&r.maxSteps, "max-steps", -1, "abort the VM after this many instructions (0 = unlimited)")
}

// apply merges command-line flags over the manifest. Flags win.
func (r *runFlags) apply(m *config.Manifest) {
	if r.eval {
		m.Run.Engine = config.EngineEval
	}
	if r.keepLabels {
		m.Run.KeepLabels = true
	}
	if r.maxSteps >= 0 {
		m.Run.MaxSteps = r.maxSteps
	}
	if int(r.verbose) > m.Log.Verbosity {
		m.Log.Verbosity = int(r.verbose)
	}
	if r.logFile != "" {
		m.Log.File = r.logFile
	}
}

func configureLogging(m *config.Manifest) {
	commonlog.Configure(m.Log.Verbosity, m.LogFile())
}

// manifestFor finds the pychart.toml governing dir, or a default one.
func manifestFor(dir string) (*config.Manifest, error) {
	m, err := config.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = config.Default()
		if abs, err := filepath.Abs(dir); err == nil {
			m.Dir = abs
		}
	}
	return m, nil
}

func isPathArg(arg string) bool {
	if arg == "." || arg == ".." {
		return true
	}
	if strings.HasPrefix(arg, "./") || strings.HasPrefix(arg, "../") || filepath.IsAbs(arg) {
		return true
	}
	return strings.Contains(arg, string(os.PathSeparator))
}

// resolveRunTarget turns a file or project directory into an entry file
// and the manifest that applies to it.
func resolveRunTarget(target string) (string, *config.Manifest, error) {
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("path not found: %s", target)
		}
		return "", nil, err
	}

	if !info.IsDir() {
		abs, err := filepath.Abs(target)
		if err != nil {
			return "", nil, err
		}
		m, err := manifestFor(filepath.Dir(abs))
		if err != nil {
			return "", nil, err
		}
		return abs, m, nil
	}

	m, err := manifestFor(target)
	if err != nil {
		return "", nil, err
	}
	entry := m.EntryPath()
	if entry == "" {
		return "", nil, fmt.Errorf("%s: no entry configured (set [project] entry in %s)", target, config.FileName)
	}
	return entry, m, nil
}

func (c *cli) runFile(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	var rf runFlags
	rf.register(fs)
	tokensMode := fs.Bool("tokens", false, "print tokens instead of running")
	astMode := fs.Bool("ast", false, "print the AST instead of running")
	disMode := fs.Bool("dis", false, "print the instruction listing before running")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(c.stderr, "usage: pychart run [flags] [file.pc|dir]")
		return 2
	}

	target := "."
	if fs.NArg() == 1 {
		target = fs.Arg(0)
	}
	path, m, err := resolveRunTarget(target)
	if err != nil {
		fmt.Fprintln(c.stderr, "run error:", err)
		return 1
	}
	rf.apply(m)
	configureLogging(m)

	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(c.stderr, "read error:", err)
		return 1
	}
	src := string(b)
	display := displayPath(path)

	if *tokensMode {
		for _, tok := range lexer.New(src).Tokens() {
			fmt.Fprintf(c.stdout, "%4d:%-3d  %-10s  %q\n", tok.Line, tok.Col, tok.Type, tok.Literal)
			if tok.Type == token.EOF {
				break
			}
		}
		return 0
	}

	program, ok := c.parse(display, src)
	if !ok {
		return 1
	}
	if *astMode {
		fmt.Fprintln(c.stdout, program.String())
		return 0
	}

	return c.runProgram(display, program, m, *disMode)
}

// runStdin runs the whole of stdin as one program under the manifest of
// the working directory.
func (c *cli) runStdin() int {
	m, err := manifestFor(".")
	if err != nil {
		fmt.Fprintln(c.stderr, "config error:", err)
		return 1
	}
	configureLogging(m)

	b, err := io.ReadAll(c.stdin)
	if err != nil {
		fmt.Fprintln(c.stderr, "read error:", err)
		return 1
	}
	const display = "<stdin>"
	program, ok := c.parse(display, string(b))
	if !ok {
		return 1
	}
	return c.runProgram(display, program, m, false)
}

func (c *cli) runProgram(display string, program *ast.Program, m *config.Manifest, dis bool) int {
	log.Debugf("running %s with engine %s", display, m.Run.Engine)

	if m.Run.Engine == config.EngineEval {
		if dis {
			fmt.Fprintln(c.stderr, "-dis needs the VM engine")
			return 2
		}
		env := evaluator.NewEnvironment(builtins.New(c.console()))
		if _, err := evaluator.New(m.Run.MaxSteps).Program(program, env); err != nil {
			fmt.Fprintf(c.stderr, "%s: %v\n", display, err)
			return 1
		}
		return 0
	}

	prog, ok := c.compile(display, program, m.Run.KeepLabels)
	if !ok {
		return 1
	}
	if dis {
		fmt.Fprint(c.stdout, prog.Instructions.Disassemble(false))
	}
	return c.execute(display, prog, m.Run.MaxSteps)
}

func (c *cli) parse(display, src string) (*ast.Program, bool) {
	p := parser.New(lexer.New(src))
	program := p.ParseProgram()
	if ds := p.Diagnostics(); len(ds) > 0 {
		c.printDiagnostics(display, ds)
		return nil, false
	}
	return program, true
}

func (c *cli) compile(display string, program *ast.Program, keepLabels bool) (*code.Program, bool) {
	comp := compiler.New(compiler.Options{File: display, Natives: builtins.Names(), KeepLabels: keepLabels})
	prog, err := comp.Compile(program)
	c.printDiagnostics(display, comp.Warnings())
	if err != nil {
		var genErr *compiler.GeneratorError
		if errors.As(err, &genErr) {
			c.printDiagnostics(display, []diag.Diagnostic{genErr.Diagnostic()})
		} else {
			fmt.Fprintf(c.stderr, "%s: compile error: %v\n", display, err)
		}
		return nil, false
	}
	return prog, true
}

func (c *cli) execute(display string, prog *code.Program, maxSteps int64) int {
	m := vm.New(prog, vm.Natives(builtins.New(c.console())))
	m.SetMaxSteps(maxSteps)
	if err := m.Run(); err != nil {
		fmt.Fprintf(c.stderr, "%s: %v\n", display, err)
		return 1
	}
	log.Debugf("%s: finished after %d steps", display, m.Steps())
	return 0
}

func (c *cli) printDiagnostics(display string, ds []diag.Diagnostic) {
	diag.Sort(ds)
	for _, d := range ds {
		fmt.Fprintln(c.stderr, d.Format(display))
	}
}

func (c *cli) runREPL(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	var rf runFlags
	rf.register(fs)
	dump := fs.Bool("dump", false, "print the listing of each compiled chunk")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(c.stderr, "usage: pychart repl [flags]")
		return 2
	}

	m, err := manifestFor(".")
	if err != nil {
		fmt.Fprintln(c.stderr, "config error:", err)
		return 1
	}
	rf.apply(m)
	configureLogging(m)

	repl.Start(c.stdin, c.stdout, repl.Options{
		Engine:   m.Run.Engine,
		MaxSteps: m.Run.MaxSteps,
		Dump:     *dump,
	})
	return 0
}

func (c *cli) runBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	var rf runFlags
	rf.register(fs)
	out := fs.String("o", "", "output image path (default: source with .pcc extension)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(c.stderr, "usage: pychart build [-o out.pcc] [file.pc|dir]")
		return 2
	}

	target := "."
	if fs.NArg() == 1 {
		target = fs.Arg(0)
	}
	path, m, err := resolveRunTarget(target)
	if err != nil {
		fmt.Fprintln(c.stderr, "build error:", err)
		return 1
	}
	rf.apply(m)
	configureLogging(m)

	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(c.stderr, "read error:", err)
		return 1
	}
	display := displayPath(path)
	program, ok := c.parse(display, string(b))
	if !ok {
		return 1
	}
	prog, ok := c.compile(display, program, false)
	if !ok {
		return 1
	}

	data, err := image.Marshal(prog)
	if err != nil {
		fmt.Fprintln(c.stderr, "build error:", err)
		return 1
	}
	dst := *out
	if dst == "" {
		dst = strings.TrimSuffix(path, filepath.Ext(path)) + image.Ext
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		fmt.Fprintln(c.stderr, "build error:", err)
		return 1
	}
	log.Infof("wrote %s (%d instructions, %d bytes)", dst, len(prog.Instructions), len(data))
	fmt.Fprintf(c.stdout, "wrote %s\n", dst)
	return 0
}

func (c *cli) runExec(args []string) int {
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	var rf runFlags
	rf.register(fs)
	disMode := fs.Bool("dis", false, "print the instruction listing before running")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "usage: pychart exec [flags] image.pcc")
		return 2
	}

	path := fs.Arg(0)
	m, err := manifestFor(filepath.Dir(path))
	if err != nil {
		fmt.Fprintln(c.stderr, "config error:", err)
		return 1
	}
	rf.apply(m)
	configureLogging(m)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(c.stderr, "read error:", err)
		return 1
	}
	prog, err := image.Unmarshal(data)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s: %v\n", path, err)
		return 1
	}
	if *disMode {
		fmt.Fprint(c.stdout, prog.Instructions.Disassemble(false))
	}
	display := prog.File
	if display == "" {
		display = path
	}
	return c.execute(display, prog, m.Run.MaxSteps)
}

// displayPath shortens path relative to the working directory when it can.
func displayPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
