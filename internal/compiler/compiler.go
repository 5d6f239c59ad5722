package compiler

import (
	"fmt"

	"github.com/tliron/commonlog"

	"pychart/internal/ast"
	"pychart/internal/code"
	"pychart/internal/diag"
)

var log = commonlog.GetLogger("pychart.compiler")

type Options struct {
	File       string
	Natives    []string
	KeepLabels bool
}

type loopContext struct {
	end   string
	depth int // scope depth outside the loop body
}

type functionContext struct {
	baseDepth int
	ret       code.Operand
}

// Compiler lowers an AST to a flat instruction array. A Compiler may be fed
// several programs in turn (the REPL does this); declarations persist
// between calls.
type Compiler struct {
	opts    Options
	arena   Bindings
	symbols *SymbolTable

	buffers []code.Seq
	depth   int
	loops   []loopContext
	fn      *functionContext

	labelIndex int
	tempIndex  int
	warnings   []diag.Diagnostic
}

func New(opts Options) *Compiler {
	c := &Compiler{
		opts:    opts,
		symbols: NewSymbolTable(),
	}
	for _, name := range opts.Natives {
		if _, ok := c.symbols.store[name]; ok {
			continue
		}
		_, _ = c.symbols.Define(name, &c.arena)
	}
	return c
}

// Warnings returns the shadowing warnings collected so far.
func (c *Compiler) Warnings() []diag.Diagnostic { return c.warnings }

func (c *Compiler) Compile(program *ast.Program) (*code.Program, error) {
	c.reset()
	mark := c.snapshot()

	for _, s := range program.Statements {
		if err := c.compileStatement(s); err != nil {
			c.reset()
			c.rollback(mark)
			return nil, err
		}
	}

	ins, err := code.Linearize([]code.Fragment{c.buffers[0]}, c.opts.KeepLabels)
	if err != nil {
		c.reset()
		c.rollback(mark)
		return nil, fmt.Errorf("linearize: %w", err)
	}

	log.Debugf("compiled %s: %d instructions, %d bindings", c.fileName(), len(ins), c.arena.Len())

	return &code.Program{
		File:         c.opts.File,
		Instructions: ins,
		Symbols:      c.arena.Symbols(),
	}, nil
}

func (c *Compiler) reset() {
	for c.symbols.Outer != nil {
		c.symbols = c.symbols.Outer
	}
	c.buffers = []code.Seq{{}}
	c.depth = 0
	c.loops = nil
	c.fn = nil
}

// compileMark records the global declarations and arena size before a
// Compile call so a failed chunk leaves nothing declared.
type compileMark struct {
	globals map[string]bool
	arena   int
}

func (c *Compiler) snapshot() compileMark {
	globals := make(map[string]bool, len(c.symbols.store))
	for name := range c.symbols.store {
		globals[name] = true
	}
	return compileMark{globals: globals, arena: c.arena.Len()}
}

// rollback expects the global frame to be current.
func (c *Compiler) rollback(mark compileMark) {
	for name := range c.symbols.store {
		if !mark.globals[name] {
			delete(c.symbols.store, name)
		}
	}
	c.arena.Truncate(mark.arena)
}

func (c *Compiler) fileName() string {
	if c.opts.File == "" {
		return "<input>"
	}
	return c.opts.File
}

/* -------------------- emission -------------------- */

func (c *Compiler) emit(frags ...code.Fragment) {
	top := len(c.buffers) - 1
	c.buffers[top] = append(c.buffers[top], frags...)
}

func (c *Compiler) emitChecked(ins code.Instruction, err error) error {
	if err != nil {
		return err
	}
	c.emit(ins)
	return nil
}

func (c *Compiler) pushBuffer() {
	c.buffers = append(c.buffers, code.Seq{})
}

func (c *Compiler) popBuffer() code.Seq {
	top := c.buffers[len(c.buffers)-1]
	c.buffers = c.buffers[:len(c.buffers)-1]
	return top
}

func (c *Compiler) nextLabelID() int {
	c.labelIndex++
	return c.labelIndex
}

func (c *Compiler) newTemp() code.Operand {
	name := fmt.Sprintf(".t%d", c.tempIndex)
	c.tempIndex++
	return c.arena.Declare(name, false)
}

/* -------------------- declarations -------------------- */

func (c *Compiler) declare(id *ast.Identifier) (code.Operand, error) {
	if _, here := c.symbols.store[id.Value]; !here {
		if _, outer := c.symbols.ResolveOuter(id.Value); outer {
			c.warnShadow(id)
		}
	}
	op, err := c.symbols.Define(id.Value, &c.arena)
	if err != nil {
		return code.Operand{}, errorAt(id, "%s", err.Error())
	}
	return op, nil
}

func (c *Compiler) warnShadow(id *ast.Identifier) {
	tok := id.Pos()
	log.Warningf("%s:%d:%d: shadowing declaration of variable %s", c.fileName(), tok.Line, tok.Col, id.Value)
	c.warnings = append(c.warnings, diag.Diagnostic{
		Code:     diag.CodeGenerate,
		Message:  fmt.Sprintf("shadowing declaration of variable %s", id.Value),
		Severity: diag.SeverityWarning,
		Range:    diag.Range{Line: tok.Line, Col: tok.Col, Length: len(id.Value)},
	})
}

/* -------------------- statements -------------------- */

func (c *Compiler) compileStatement(s ast.Statement) error {
	switch n := s.(type) {
	case *ast.ExpressionStatement:
		return c.compileExpressionStatement(n)
	case *ast.LetStatement:
		return c.compileLet(n)
	case *ast.BlockStatement:
		seq, err := c.scoped(n)
		if err != nil {
			return err
		}
		c.emit(seq)
		return nil
	case *ast.IfStatement:
		return c.compileIf(n)
	case *ast.WhileStatement:
		return c.compileWhile(n)
	case *ast.BreakStatement:
		return c.compileBreak(n)
	case *ast.FuncStatement:
		return c.compileFunc(n)
	case *ast.ReturnStatement:
		return c.compileReturn(n)
	default:
		return errorAt(s, "unsupported statement %T", s)
	}
}

func (c *Compiler) compileExpressionStatement(n *ast.ExpressionStatement) error {
	r, err := c.expression(n.Expression)
	if err != nil {
		return err
	}
	if r.kind != resultDeferred {
		return nil
	}
	if r.discardable {
		return c.emitChecked(r.build(code.Operand{}))
	}
	_, err = c.materialize(r)
	return err
}

func (c *Compiler) compileLet(n *ast.LetStatement) error {
	var (
		r   result
		err error
	)
	if n.Value != nil {
		r, err = c.expression(n.Value)
		if err != nil {
			return err
		}
	}

	dst, err := c.declare(n.Name)
	if err != nil {
		return err
	}
	if err := c.emitChecked(code.NewCreate(dst)); err != nil {
		return err
	}
	if n.Value == nil {
		return nil
	}
	return c.store(dst, r)
}

// scoped compiles s as its own block: a fresh frame bracketed by
// enter-scope and exit-scope. A block statement contributes its statements
// directly rather than nesting a second scope.
func (c *Compiler) scoped(s ast.Statement) (code.Seq, error) {
	c.pushBuffer()
	c.symbols = NewEnclosedSymbolTable(c.symbols, BlockFrame)
	c.depth++

	var err error
	if block, ok := s.(*ast.BlockStatement); ok {
		for _, inner := range block.Statements {
			if err = c.compileStatement(inner); err != nil {
				break
			}
		}
	} else {
		err = c.compileStatement(s)
	}

	c.depth--
	c.symbols = c.symbols.Outer
	body := c.popBuffer()
	if err != nil {
		return nil, err
	}
	return code.Seq{code.NewEnterScope(), body, code.NewExitScope()}, nil
}

// compileIf lowers to
//
//	jnez cond, then ; [else] ; jump end ; then: [then] ; end:
func (c *Compiler) compileIf(n *ast.IfStatement) error {
	cond, err := c.operandOf(n.Condition)
	if err != nil {
		return err
	}

	id := c.nextLabelID()
	thenLabel := fmt.Sprintf("if.then.%d", id)
	endLabel := fmt.Sprintf("if.end.%d", id)

	if err := c.emitChecked(code.NewJumpIfTrue(cond, thenLabel)); err != nil {
		return err
	}
	if n.Alternative != nil {
		alt, err := c.scoped(n.Alternative)
		if err != nil {
			return err
		}
		c.emit(alt)
	}
	c.emit(code.NewJump(endLabel), code.NewLabel(thenLabel))

	then, err := c.scoped(n.Consequence)
	if err != nil {
		return err
	}
	c.emit(then, code.NewLabel(endLabel))
	return nil
}

// compileWhile lowers to
//
//	start: [cond setup] ; jeqz cond, end ; [body] ; jump start ; end:
func (c *Compiler) compileWhile(n *ast.WhileStatement) error {
	id := c.nextLabelID()
	startLabel := fmt.Sprintf("while.start.%d", id)
	endLabel := fmt.Sprintf("while.end.%d", id)

	c.emit(code.NewLabel(startLabel))

	cond, err := c.operandOf(n.Condition)
	if err != nil {
		return err
	}
	if err := c.emitChecked(code.NewJumpIfFalse(cond, endLabel)); err != nil {
		return err
	}

	outer := c.loops
	c.loops = append(c.loops, loopContext{end: endLabel, depth: c.depth})
	body, err := c.scoped(n.Body)
	c.loops = outer
	if err != nil {
		return err
	}

	c.emit(body, code.NewJump(startLabel), code.NewLabel(endLabel))
	return nil
}

func (c *Compiler) compileBreak(n *ast.BreakStatement) error {
	if len(c.loops) == 0 {
		return errorAt(n, "break outside of loop")
	}
	loop := c.loops[len(c.loops)-1]
	for i := c.depth; i > loop.depth; i-- {
		c.emit(code.NewExitScope())
	}
	c.emit(code.NewJump(loop.end))
	return nil
}

func (c *Compiler) compileFunc(n *ast.FuncStatement) error {
	name, err := c.declare(n.Name)
	if err != nil {
		return err
	}

	fn := &functionContext{baseDepth: c.depth}
	savedLoops, savedFn, savedSymbols, savedBuffers := c.loops, c.fn, c.symbols, len(c.buffers)
	defer func() {
		c.loops, c.fn, c.symbols = savedLoops, savedFn, savedSymbols
		c.buffers = c.buffers[:savedBuffers]
	}()
	c.loops = nil
	c.fn = fn
	c.symbols = NewEnclosedSymbolTable(c.symbols, FunctionFrame)
	c.pushBuffer()

	params := make([]code.Operand, 0, len(n.Parameters))
	for _, p := range n.Parameters {
		op, err := c.declare(p)
		if err != nil {
			return err
		}
		params = append(params, op)
	}

	for _, s := range n.Body.Statements {
		if err := c.compileStatement(s); err != nil {
			return err
		}
	}
	c.emit(code.NewReturn(code.Operand{}))
	raw := c.popBuffer()

	if !fn.ret.IsAbsent() {
		create, err := code.NewCreate(fn.ret)
		if err != nil {
			return err
		}
		raw = code.Seq{create, raw}
	}
	body := code.Flatten(raw)

	def, err := code.NewDefineFunction(name, params, len(body))
	if err != nil {
		return err
	}
	c.emit(def, body)
	return nil
}

func (c *Compiler) compileReturn(n *ast.ReturnStatement) error {
	if c.fn == nil {
		return errorAt(n, "return outside of function")
	}

	var val code.Operand
	if n.ReturnValue != nil {
		var err error
		val, err = c.operandOf(n.ReturnValue)
		if err != nil {
			return err
		}
	}

	// The value may live in a scope about to be exited; park it in a slot
	// of the function's own scope first.
	if c.depth > c.fn.baseDepth && val.IsIdentifier() {
		if c.fn.ret.IsAbsent() {
			c.fn.ret = c.arena.Declare(".ret", false)
		}
		if err := c.emitChecked(code.NewPush(c.fn.ret, val)); err != nil {
			return err
		}
		val = c.fn.ret
	}

	for i := c.depth; i > c.fn.baseDepth; i-- {
		c.emit(code.NewExitScope())
	}
	c.emit(code.NewReturn(val))
	return nil
}
