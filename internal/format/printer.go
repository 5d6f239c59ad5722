package format

import (
	"bytes"
	"strconv"
	"strings"

	"pychart/internal/ast"
	"pychart/internal/token"
)

type printer struct {
	indent      string
	level       int
	atLineStart bool
	fresh       bool // nothing printed yet in the current block
	buf         bytes.Buffer

	lines    []string
	comments []comment
	next     int
}

func newPrinter(indent string, lines []string, comments []comment) *printer {
	return &printer{
		indent:      indent,
		atLineStart: true,
		fresh:       true,
		lines:       lines,
		comments:    comments,
	}
}

func (p *printer) String() string {
	out := p.buf.String()
	if out == "" {
		return ""
	}
	return strings.TrimRight(out, "\n") + "\n"
}

func (p *printer) write(s string) {
	if s == "" {
		return
	}
	if p.atLineStart {
		for i := 0; i < p.level; i++ {
			p.buf.WriteString(p.indent)
		}
		p.atLineStart = false
	}
	p.buf.WriteString(s)
}

func (p *printer) newline() {
	p.buf.WriteByte('\n')
	p.atLineStart = true
	p.fresh = false
}

func (p *printer) blankBefore(line int) bool {
	if p.fresh || line < 2 || line-2 >= len(p.lines) {
		return false
	}
	return strings.TrimSpace(p.lines[line-2]) == ""
}

// flush prints the comments that start before line, each on its own line.
func (p *printer) flush(line int) {
	for p.next < len(p.comments) && p.comments[p.next].line < line {
		c := p.comments[p.next]
		if p.blankBefore(c.line) {
			p.newline()
		}
		p.write(c.text)
		p.newline()
		p.next++
	}
}

// endLine appends the comments on or before line to the current output
// line and ends it.
func (p *printer) endLine(line int) {
	for p.next < len(p.comments) && p.comments[p.next].line <= line {
		p.write(" " + p.comments[p.next].text)
		p.next++
	}
	p.newline()
}

func (p *printer) program(prog *ast.Program) {
	p.statements(prog.Statements)
	p.flush(int(^uint(0) >> 1))
}

func (p *printer) statements(stmts []ast.Statement) {
	for _, st := range stmts {
		start := st.Pos().Line
		p.flush(start)
		if p.blankBefore(start) {
			p.newline()
		}
		p.statement(st)
	}
}

func (p *printer) statement(s ast.Statement) {
	switch n := s.(type) {
	case *ast.LetStatement:
		p.write("let " + n.Name.Value)
		if n.Value != nil {
			p.write(" = " + expr(n.Value))
		}
		p.write(";")
		p.endLine(n.Token.Line)

	case *ast.ExpressionStatement:
		p.write(expr(n.Expression) + ";")
		p.endLine(n.Token.Line)

	case *ast.ReturnStatement:
		p.write("return")
		if n.ReturnValue != nil {
			p.write(" " + expr(n.ReturnValue))
		}
		p.write(";")
		p.endLine(n.Token.Line)

	case *ast.BreakStatement:
		p.write("break;")
		p.endLine(n.Token.Line)

	case *ast.BlockStatement:
		p.endLine(p.body(n, n.Token.Line))

	case *ast.IfStatement:
		p.ifChain(n)

	case *ast.WhileStatement:
		p.write("while (" + expr(n.Condition) + ") ")
		p.endLine(p.body(n.Body, n.Token.Line))

	case *ast.FuncStatement:
		params := make([]string, 0, len(n.Parameters))
		for _, param := range n.Parameters {
			params = append(params, param.Value)
		}
		p.write("func " + n.Name.Value + "(" + strings.Join(params, ", ") + ") ")
		p.endLine(p.body(n.Body, n.Token.Line))
	}
}

func (p *printer) ifChain(n *ast.IfStatement) {
	p.write("if (" + expr(n.Condition) + ") ")
	closeLine := p.body(n.Consequence, n.Token.Line)
	for n.Alternative != nil {
		if elif, ok := n.Alternative.(*ast.IfStatement); ok && elif.Token.Type == token.ELIF {
			p.write(" elif (" + expr(elif.Condition) + ") ")
			closeLine = p.body(elif.Consequence, elif.Token.Line)
			n = elif
			continue
		}
		p.write(" else ")
		closeLine = p.body(n.Alternative, closeLine)
		break
	}
	p.endLine(closeLine)
}

// body prints s as a braced block and returns the source line of its
// closing brace, or headerLine when s is not a block.
func (p *printer) body(s ast.Statement, headerLine int) int {
	stmts := []ast.Statement{s}
	openLine, closeLine := headerLine, headerLine
	if b, ok := s.(*ast.BlockStatement); ok {
		stmts = b.Statements
		if b.Token.Line > 0 {
			openLine = b.Token.Line
		}
		if b.Rbrace.Line > 0 {
			closeLine = b.Rbrace.Line
		}
	}

	if len(stmts) == 0 && !p.commentBefore(closeLine) {
		p.write("{}")
		return closeLine
	}

	p.write("{")
	p.endLine(openLine)
	p.level++
	p.fresh = true
	p.statements(stmts)
	p.flush(closeLine)
	p.level--
	p.write("}")
	return closeLine
}

func (p *printer) commentBefore(line int) bool {
	return p.next < len(p.comments) && p.comments[p.next].line < line
}

func expr(e ast.Expression) string {
	switch n := e.(type) {
	case *ast.Identifier:
		return n.Value
	case *ast.IntegerLiteral:
		if n.Token.Literal != "" {
			return n.Token.Literal
		}
		return strconv.FormatInt(n.Value, 10)
	case *ast.FloatLiteral:
		if n.Token.Literal != "" {
			return n.Token.Literal
		}
		return strconv.FormatFloat(n.Value, 'f', -1, 64)
	case *ast.StringLiteral:
		if n.Token.Raw != "" {
			return n.Token.Raw
		}
		return quote(n.Value)
	case *ast.BooleanLiteral:
		return strconv.FormatBool(n.Value)
	case *ast.NullLiteral:
		return "null"
	case *ast.ArrayLiteral:
		return "[" + exprList(n.Elements) + "]"
	case *ast.GroupedExpression:
		return "(" + expr(n.Expression) + ")"
	case *ast.PrefixExpression:
		return n.Operator + expr(n.Right)
	case *ast.InfixExpression:
		return expr(n.Left) + " " + n.Operator + " " + expr(n.Right)
	case *ast.AssignExpression:
		return n.Name.Value + " = " + expr(n.Value)
	case *ast.IndexAssignExpression:
		return expr(n.Left) + " = " + expr(n.Value)
	case *ast.CallExpression:
		return expr(n.Function) + "(" + exprList(n.Arguments) + ")"
	case *ast.IndexExpression:
		return expr(n.Left) + "[" + expr(n.Index) + "]"
	default:
		return e.String()
	}
}

func exprList(es []ast.Expression) string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, expr(e))
	}
	return strings.Join(parts, ", ")
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

func quote(s string) string {
	return `"` + quoter.Replace(s) + `"`
}
