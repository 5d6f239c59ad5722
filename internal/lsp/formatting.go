package lsp

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"pychart/internal/format"
)

// FormatEdits returns a single whole-document edit, or none when text
// does not parse or is already formatted.
func FormatEdits(text string, opts protocol.FormattingOptions) []protocol.TextEdit {
	formatted, err := format.Format(text, format.Options{Indent: IndentFromOptions(opts)})
	if err != nil {
		log.Debugf("format: %s", err)
		return []protocol.TextEdit{}
	}
	if formatted == text {
		return []protocol.TextEdit{}
	}
	return []protocol.TextEdit{{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   EndPositionUTF16(text),
		},
		NewText: formatted,
	}}
}

func IndentFromOptions(opts protocol.FormattingOptions) string {
	insertSpaces := true
	if v, ok := opts[protocol.FormattingOptionInsertSpaces].(bool); ok {
		insertSpaces = v
	}
	if !insertSpaces {
		return "\t"
	}

	tabSize := 2
	switch n := opts[protocol.FormattingOptionTabSize].(type) {
	case int:
		tabSize = n
	case int32:
		tabSize = int(n)
	case uint32:
		tabSize = int(n)
	case float64:
		tabSize = int(n)
	}
	if tabSize <= 0 {
		tabSize = 2
	}
	return strings.Repeat(" ", tabSize)
}
