package lint

import (
	"fmt"
	"sort"

	"pychart/internal/ast"
	"pychart/internal/diag"
	"pychart/internal/token"
)

type symKind int

const (
	kindVar symKind = iota
	kindParam
	kindFunc
)

type sym struct {
	name string
	tok  token.Token
	used bool
	kind symKind
}

type scope struct {
	parent *scope
	syms   map[string]*sym
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, syms: map[string]*sym{}}
}

func (s *scope) lookup(name string) *sym {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.syms[name]; ok {
			return v
		}
	}
	return nil
}

type Runner struct {
	diags []diag.Diagnostic
	sc    *scope
	opts  Options
}

func (r *Runner) warn(tok token.Token, code string, msg string) {
	r.diags = append(r.diags, diag.Diagnostic{
		Code:     code,
		Message:  msg,
		Severity: diag.SeverityWarning,
		Range: diag.Range{
			Line:   tok.Line,
			Col:    tok.Col,
			Length: tokLength(tok),
		},
	})
}

func tokLength(tok token.Token) int {
	if tok.Literal == "" {
		return 1
	}
	return len([]rune(tok.Literal))
}

func (r *Runner) push() { r.sc = newScope(r.sc) }

func (r *Runner) pop() {
	r.report(r.sc)
	r.sc = r.sc.parent
}

// report warns about the unread bindings of sc in declaration order.
func (r *Runner) report(sc *scope) {
	unused := make([]*sym, 0, len(sc.syms))
	for name, sm := range sc.syms {
		if name == "_" || sm.used {
			continue
		}
		unused = append(unused, sm)
	}
	sort.Slice(unused, func(i, j int) bool {
		if unused[i].tok.Line != unused[j].tok.Line {
			return unused[i].tok.Line < unused[j].tok.Line
		}
		return unused[i].tok.Col < unused[j].tok.Col
	})
	for _, sm := range unused {
		switch sm.kind {
		case kindVar:
			r.warn(sm.tok, CodeUnusedVariable, fmt.Sprintf("unused variable: %s", sm.name))
		case kindParam:
			r.warn(sm.tok, CodeUnusedParameter, fmt.Sprintf("unused parameter: %s", sm.name))
		}
	}
}

func (r *Runner) declare(id *ast.Identifier, k symKind) {
	if id == nil || id.Value == "" {
		return
	}
	r.sc.syms[id.Value] = &sym{name: id.Value, tok: id.Token, kind: k}
}

func (r *Runner) use(name string) {
	if sm := r.sc.lookup(name); sm != nil {
		sm.used = true
	}
}

func (r *Runner) walkProgram(p *ast.Program) {
	for _, st := range p.Statements {
		r.walkStmt(st)
	}
}

// walkScoped walks a statement that runs in a scope of its own.
func (r *Runner) walkScoped(st ast.Statement) {
	if b, ok := st.(*ast.BlockStatement); ok {
		r.walkBlock(b)
		return
	}
	r.push()
	r.walkStmt(st)
	r.pop()
}

func (r *Runner) walkBlock(b *ast.BlockStatement) {
	r.push()
	r.walkStatements(b)
	r.pop()
}

func (r *Runner) walkStatements(b *ast.BlockStatement) {
	if b == nil {
		return
	}
	terminated, warned := false, false
	for _, st := range b.Statements {
		if terminated && !warned {
			r.warn(st.Pos(), CodeUnreachable, "unreachable code")
			warned = true
		}
		r.walkStmt(st)
		if isTerminator(st) {
			terminated = true
		}
	}
}

func isTerminator(st ast.Statement) bool {
	switch st.(type) {
	case *ast.ReturnStatement, *ast.BreakStatement:
		return true
	}
	return false
}

func (r *Runner) walkStmt(st ast.Statement) {
	if st == nil {
		return
	}
	switch n := st.(type) {
	case *ast.BlockStatement:
		r.walkBlock(n)

	case *ast.LetStatement:
		// The initializer runs before the name exists.
		r.walkExpr(n.Value)
		r.declare(n.Name, kindVar)

	case *ast.FuncStatement:
		r.declare(n.Name, kindFunc)
		r.push()
		for _, p := range n.Parameters {
			r.declare(p, kindParam)
		}
		r.walkStatements(n.Body)
		r.pop()

	case *ast.ReturnStatement:
		r.walkExpr(n.ReturnValue)

	case *ast.ExpressionStatement:
		r.walkExpr(n.Expression)

	case *ast.IfStatement:
		r.walkExpr(n.Condition)
		if n.Consequence != nil {
			r.walkScoped(n.Consequence)
		}
		if n.Alternative != nil {
			if elif, ok := n.Alternative.(*ast.IfStatement); ok {
				r.walkStmt(elif)
			} else {
				r.walkScoped(n.Alternative)
			}
		}

	case *ast.WhileStatement:
		r.walkExpr(n.Condition)
		if n.Body != nil {
			r.walkScoped(n.Body)
		}
	}
}

func (r *Runner) walkExpr(e ast.Expression) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.Identifier:
		r.use(n.Value)

	case *ast.GroupedExpression:
		r.walkExpr(n.Expression)

	case *ast.PrefixExpression:
		r.walkExpr(n.Right)

	case *ast.InfixExpression:
		r.walkExpr(n.Left)
		r.walkExpr(n.Right)

	case *ast.AssignExpression:
		// Writing a binding is not a use of it.
		r.walkExpr(n.Value)

	case *ast.IndexAssignExpression:
		if n.Left != nil {
			r.walkExpr(n.Left.Left)
			r.walkExpr(n.Left.Index)
		}
		r.walkExpr(n.Value)

	case *ast.CallExpression:
		r.walkExpr(n.Function)
		for _, a := range n.Arguments {
			r.walkExpr(a)
		}

	case *ast.IndexExpression:
		r.walkExpr(n.Left)
		r.walkExpr(n.Index)

	case *ast.ArrayLiteral:
		for _, el := range n.Elements {
			r.walkExpr(el)
		}
	}
}
