package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"pychart/internal/ast"
	"pychart/internal/lexer"
	"pychart/internal/parser"
)

// DocumentSymbols lists functions, their parameters and let bindings as an
// outline. Blocks of if/while contribute their declarations to the
// enclosing level. Text that fails to parse still yields whatever the
// parser recovered.
func DocumentSymbols(text string) []protocol.DocumentSymbol {
	p := parser.New(lexer.New(text))
	prog := p.ParseProgram()
	lines := splitLines(text)
	return collectSymbols(lines, prog.Statements)
}

func collectSymbols(lines []string, stmts []ast.Statement) []protocol.DocumentSymbol {
	out := []protocol.DocumentSymbol{}
	for _, s := range stmts {
		out = append(out, statementSymbols(lines, s)...)
	}
	return out
}

func statementSymbols(lines []string, s ast.Statement) []protocol.DocumentSymbol {
	switch n := s.(type) {
	case *ast.LetStatement:
		if n.Name == nil {
			return nil
		}
		return []protocol.DocumentSymbol{identSymbol(lines, n.Name, protocol.SymbolKindVariable)}

	case *ast.FuncStatement:
		if n.Name == nil {
			return nil
		}
		sym := identSymbol(lines, n.Name, protocol.SymbolKindFunction)
		sym.Range.Start = rangeAt(lines, n.Token.Line, n.Token.Col, 1).Start
		children := []protocol.DocumentSymbol{}
		for _, param := range n.Parameters {
			children = append(children, identSymbol(lines, param, protocol.SymbolKindVariable))
		}
		if n.Body != nil {
			children = append(children, collectSymbols(lines, n.Body.Statements)...)
		}
		sym.Children = children
		return []protocol.DocumentSymbol{sym}

	case *ast.BlockStatement:
		return collectSymbols(lines, n.Statements)

	case *ast.IfStatement:
		var out []protocol.DocumentSymbol
		if n.Consequence != nil {
			out = append(out, statementSymbols(lines, n.Consequence)...)
		}
		if n.Alternative != nil {
			out = append(out, statementSymbols(lines, n.Alternative)...)
		}
		return out

	case *ast.WhileStatement:
		if n.Body != nil {
			return statementSymbols(lines, n.Body)
		}
	}
	return nil
}

func identSymbol(lines []string, id *ast.Identifier, kind protocol.SymbolKind) protocol.DocumentSymbol {
	r := rangeAt(lines, id.Token.Line, id.Token.Col, len([]rune(id.Value)))
	return protocol.DocumentSymbol{
		Name:           id.Value,
		Kind:           kind,
		Range:          r,
		SelectionRange: r,
	}
}
