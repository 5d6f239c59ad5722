package format

import "strings"

type comment struct {
	text     string // including the leading //
	line     int
	trailing bool // code precedes it on its line
}

// scanComments finds // comments outside string literals.
func scanComments(src string) []comment {
	var out []comment
	for i, raw := range strings.Split(src, "\n") {
		line := strings.TrimRight(raw, "\r")
		inString, escaped := false, false
		for j := 0; j < len(line); j++ {
			ch := line[j]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}
			if ch == '"' {
				inString = true
				continue
			}
			if ch == '/' && j+1 < len(line) && line[j+1] == '/' {
				out = append(out, comment{
					text:     strings.TrimRight(line[j:], " \t"),
					line:     i + 1,
					trailing: strings.TrimSpace(line[:j]) != "",
				})
				break
			}
		}
	}
	return out
}
