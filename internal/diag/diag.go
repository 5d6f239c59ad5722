package diag

import (
	"fmt"
	"sort"
)

const (
	CodeParse    = "PP0001"
	CodeGenerate = "PG0001"
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Range is 1-based; Length is best effort and at least 1.
type Range struct {
	Line   int
	Col    int
	Length int
}

type Diagnostic struct {
	Code     string
	Message  string
	Severity Severity
	Range    Range
}

func Error(code string, line, col int, msg string) Diagnostic {
	return Diagnostic{
		Code:     code,
		Message:  msg,
		Severity: SeverityError,
		Range:    Range{Line: line, Col: col, Length: 1},
	}
}

func (d Diagnostic) Format(path string) string {
	if d.Code != "" {
		return fmt.Sprintf("%s:%d:%d: %s %s: %s", path, d.Range.Line, d.Range.Col, d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", path, d.Range.Line, d.Range.Col, d.Severity, d.Message)
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Sort orders diagnostics by position.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Range.Line != ds[j].Range.Line {
			return ds[i].Range.Line < ds[j].Range.Line
		}
		return ds[i].Range.Col < ds[j].Range.Col
	})
}
