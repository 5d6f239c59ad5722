package conformance

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type outputMode int

const (
	outputNone outputMode = iota
	outputExact
	outputContains
	outputFile
)

// outputExpectation picks the one output form a case uses. LoadFile has
// already rejected cases that set more than one.
func (e Expectation) outputExpectation() (outputMode, string) {
	switch {
	case e.Output != nil:
		return outputExact, *e.Output
	case e.OutputContains != "":
		return outputContains, e.OutputContains
	case e.OutputFile != "":
		return outputFile, e.OutputFile
	default:
		return outputNone, ""
	}
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// matchOutput compares printed output; file paths are relative to baseDir.
func matchOutput(got string, e Expectation, baseDir string) error {
	got = normalizeNewlines(got)
	mode, value := e.outputExpectation()
	switch mode {
	case outputExact:
		if want := normalizeNewlines(value); got != want {
			return fmt.Errorf("output = %q, want %q", got, want)
		}
	case outputContains:
		if want := normalizeNewlines(value); !strings.Contains(got, want) {
			return fmt.Errorf("output = %q, want it to contain %q", got, want)
		}
	case outputFile:
		path := value
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read expected output: %w", err)
		}
		if want := normalizeNewlines(string(b)); got != want {
			return fmt.Errorf("output = %q, want contents of %s %q", got, value, want)
		}
	}
	return nil
}
