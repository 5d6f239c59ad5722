package lsp

import (
	"strings"
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

func runeUnits(r rune) uint32 {
	n := len(utf16.Encode([]rune{r}))
	if n < 0 {
		n = 1
	}
	return uint32(n)
}

// byteColToUTF16 converts a 1-based byte column in lineText to a 0-based
// UTF-16 character offset.
func byteColToUTF16(lineText string, byteCol int) uint32 {
	if byteCol <= 1 {
		return 0
	}
	limit := byteCol - 1
	if limit > len(lineText) {
		limit = len(lineText)
	}
	var count uint32
	for _, r := range lineText[:limit] {
		count += runeUnits(r)
	}
	return count
}

// EndPositionUTF16 returns the LSP position at the end of text, using UTF-16 code units.
func EndPositionUTF16(text string) protocol.Position {
	var line uint32
	var col uint32
	for _, r := range text {
		if r == '\n' {
			line++
			col = 0
			continue
		}
		col += runeUnits(r)
	}
	return protocol.Position{Line: line, Character: col}
}

// rangeAt maps a 1-based line/byte-column span of length runes onto an
// LSP range.
func rangeAt(lines []string, line, col, length int) protocol.Range {
	if line <= 0 {
		line = 1
	}
	if length < 1 {
		length = 1
	}
	if line > len(lines) {
		p := protocol.Position{Line: uint32(line - 1)}
		return protocol.Range{Start: p, End: p}
	}
	text := lines[line-1]
	start := protocol.Position{Line: uint32(line - 1), Character: byteColToUTF16(text, col)}
	end := start
	rest := text
	if col > 1 && col-1 <= len(text) {
		rest = text[col-1:]
	}
	n := 0
	for _, r := range rest {
		if n == length {
			break
		}
		end.Character += runeUnits(r)
		n++
	}
	if n < length {
		end.Character += uint32(length - n)
	}
	return protocol.Range{Start: start, End: end}
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}
