package compiler

import (
	"fmt"

	"pychart/internal/ast"
	"pychart/internal/diag"
)

// GeneratorError aborts compilation; no partial program is produced.
type GeneratorError struct {
	Line    int
	Col     int
	Message string
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Col, e.Message)
}

func (e *GeneratorError) Diagnostic() diag.Diagnostic {
	return diag.Error(diag.CodeGenerate, e.Line, e.Col, e.Message)
}

func errorAt(node ast.Node, format string, args ...any) error {
	tok := node.Pos()
	return &GeneratorError{Line: tok.Line, Col: tok.Col, Message: fmt.Sprintf(format, args...)}
}
