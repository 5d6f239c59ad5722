package conformance

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConformance(t *testing.T) {
	cases, err := LoadDir("testdata")
	if err != nil {
		t.Fatalf("failed to load fixtures: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("no fixtures loaded")
	}

	for _, lc := range cases {
		lc := lc
		t.Run(lc.File+"/"+lc.Case.Name, func(t *testing.T) {
			if lc.Case.Skip != "" {
				t.Skipf("skipped: %s", lc.Case.Skip)
			}
			for _, engine := range []string{EngineVM, EngineEval} {
				if !lc.Case.RunsOn(engine) {
					continue
				}
				if err := RunCase(engine, lc.Case); err != nil {
					t.Errorf("%s: %v", engine, err)
				}
			}
		})
	}
}

// TestEnginesAgreeOnFixtures checks parity directly: every fixture prints
// the same text on both engines and both either fail or succeed.
func TestEnginesAgreeOnFixtures(t *testing.T) {
	cases, err := LoadDir("testdata")
	if err != nil {
		t.Fatalf("failed to load fixtures: %v", err)
	}
	for _, lc := range cases {
		c := lc.Case
		if c.Skip != "" || len(c.Engines) != 0 {
			continue
		}
		vm := Run(EngineVM, c.Source, c.Input, nil)
		ev := Run(EngineEval, c.Source, c.Input, nil)
		if vm.Output != ev.Output {
			t.Fatalf("%s/%s: output differs:\nvm:   %q\neval: %q", lc.File, c.Name, vm.Output, ev.Output)
		}
		if (vm.Err == nil) != (ev.Err == nil) {
			t.Fatalf("%s/%s: vm error %v, eval error %v", lc.File, c.Name, vm.Err, ev.Err)
		}
	}
}

// genExpr builds a random expression over the variables a, b, s and
// literals. Division is left out of the denominators so the programs
// rarely fail; failures must still agree.
func genExpr(r *rand.Rand, depth int) string {
	if depth == 0 || r.Intn(4) == 0 {
		leaves := []string{"a", "b", "s", "0", "1", "2", "-3", "2.5", "true", "false", "null", `"x"`, `""`}
		return leaves[r.Intn(len(leaves))]
	}
	if r.Intn(5) == 0 {
		ops := []string{"-", "!", "+"}
		return ops[r.Intn(len(ops))] + "(" + genExpr(r, depth-1) + ")"
	}
	ops := []string{"+", "-", "*", "/", "==", "!=", "<", "<=", ">", ">=", "&&", "||"}
	return "(" + genExpr(r, depth-1) + " " + ops[r.Intn(len(ops))] + " " + genExpr(r, depth-1) + ")"
}

func TestRandomStraightLineParity(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		var src strings.Builder
		src.WriteString("let a = 4; let b = 2.5; let s = \"str\";\n")
		for j := 0; j < 3; j++ {
			fmt.Fprintf(&src, "print(%s);\n", genExpr(r, 3))
		}
		source := src.String()

		vm := Run(EngineVM, source, "", nil)
		ev := Run(EngineEval, source, "", nil)
		if (vm.Err == nil) != (ev.Err == nil) {
			t.Fatalf("program:\n%s\nvm error %v, eval error %v", source, vm.Err, ev.Err)
		}
		if vm.Output != ev.Output {
			t.Fatalf("program:\n%s\nvm:   %q\neval: %q", source, vm.Output, ev.Output)
		}
	}
}

func TestCheckReportsMismatch(t *testing.T) {
	want := "1\n"
	c := Case{Name: "x", Source: "print(2);", Expect: Expectation{Output: &want}}
	if err := RunCase(EngineVM, c); err == nil {
		t.Fatalf("expected mismatch to be reported")
	}
	c.Expect = Expectation{Error: "boom"}
	if err := RunCase(EngineEval, c); err == nil {
		t.Fatalf("expected missing error to be reported")
	}
}

func TestMatchOutput(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "want.txt"), []byte("a\r\nb\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	exact := "a\nb\n"
	tests := []struct {
		name   string
		expect Expectation
		ok     bool
	}{
		{"exact", Expectation{Output: &exact}, true},
		{"contains", Expectation{OutputContains: "b\n"}, true},
		{"contains missing", Expectation{OutputContains: "c"}, false},
		{"file normalizes newlines", Expectation{OutputFile: "want.txt"}, true},
		{"missing file", Expectation{OutputFile: "nope.txt"}, false},
		{"no expectation", Expectation{}, true},
	}
	for _, tt := range tests {
		err := matchOutput("a\r\nb\n", tt.expect, dir)
		if (err == nil) != tt.ok {
			t.Fatalf("%s: err = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}

func TestLoadFileRejectsTwoOutputForms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	src := `name: bad
tests:
  - name: both
    source: "print(1);"
    expect:
      output: "1\n"
      output_contains: "1"
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "sets 2") {
		t.Fatalf("expected rejection, got %v", err)
	}
}
