package lsp

import (
	"errors"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"pychart/internal/builtins"
	"pychart/internal/compiler"
	"pychart/internal/diag"
	"pychart/internal/lexer"
	"pychart/internal/lint"
	"pychart/internal/parser"
)

var log = commonlog.GetLogger("pychart.lsp")

const source = "pychart"

// Analyze parses text and, when it parses cleanly, runs the linter and the
// generator over it. Parse errors, lint warnings, shadowing warnings and the
// first generator error are returned sorted by position.
func Analyze(file, text string) []diag.Diagnostic {
	p := parser.New(lexer.New(text))
	prog := p.ParseProgram()

	ds := append([]diag.Diagnostic{}, p.Diagnostics()...)
	if diag.HasErrors(ds) {
		diag.Sort(ds)
		return ds
	}

	ds = append(ds, lint.Run(prog)...)

	c := compiler.New(compiler.Options{File: file, Natives: builtins.Names()})
	_, err := c.Compile(prog)
	ds = append(ds, c.Warnings()...)

	var genErr *compiler.GeneratorError
	switch {
	case errors.As(err, &genErr):
		ds = append(ds, genErr.Diagnostic())
	case err != nil:
		log.Errorf("%s: %v", file, err)
		ds = append(ds, diag.Error(diag.CodeGenerate, 1, 1, err.Error()))
	}

	diag.Sort(ds)
	return ds
}

// ToLspDiagnostics converts ds for publication. text is needed to turn byte
// columns into UTF-16 offsets.
func ToLspDiagnostics(text string, ds []diag.Diagnostic) []protocol.Diagnostic {
	lines := splitLines(text)
	out := make([]protocol.Diagnostic, 0, len(ds))
	for _, d := range ds {
		severity := protocol.DiagnosticSeverityError
		switch d.Severity {
		case diag.SeverityWarning:
			severity = protocol.DiagnosticSeverityWarning
		case diag.SeverityInfo:
			severity = protocol.DiagnosticSeverityInformation
		}

		pd := protocol.Diagnostic{
			Range:    rangeAt(lines, d.Range.Line, d.Range.Col, d.Range.Length),
			Severity: &severity,
			Source:   ptrString(source),
			Message:  d.Message,
		}
		if d.Code != "" {
			code := protocol.IntegerOrString{Value: d.Code}
			pd.Code = &code
		}
		out = append(out, pd)
	}
	return out
}

func ptrString(s string) *string { return &s }
