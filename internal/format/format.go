// Package format pretty-prints pychart source: one statement per line,
// braces on every branch and loop body, operators spaced, comments and
// single blank lines kept.
package format

import (
	"fmt"
	"strings"

	"pychart/internal/lexer"
	"pychart/internal/parser"
)

type Options struct {
	Indent string // "  " or "\t"
}

// Format reformats src. Source that does not parse is returned unchanged
// along with the first parse error.
func Format(src string, opt Options) (string, error) {
	if opt.Indent == "" {
		opt.Indent = "  "
	}

	p := parser.New(lexer.New(src))
	program := p.ParseProgram()
	if ds := p.Diagnostics(); len(ds) > 0 {
		d := ds[0]
		return src, fmt.Errorf("%d:%d: %s", d.Range.Line, d.Range.Col, d.Message)
	}

	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	pr := newPrinter(opt.Indent, lines, scanComments(src))
	pr.program(program)
	return pr.String(), nil
}
