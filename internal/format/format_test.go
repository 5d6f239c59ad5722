package format

import (
	"strings"
	"testing"

	"pychart/internal/lexer"
	"pychart/internal/token"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "spacing",
			in:   "let   x=1+2*3;print( x );",
			want: "let x = 1 + 2 * 3;\nprint(x);\n",
		},
		{
			name: "groups kept",
			in:   "let y = (1+2)*-x;",
			want: "let y = (1 + 2) * -x;\n",
		},
		{
			name: "blocks indented",
			in:   "func f(a,b){\nreturn a+b;}\nwhile(true){break;}",
			want: "func f(a, b) {\n  return a + b;\n}\nwhile (true) {\n  break;\n}\n",
		},
		{
			name: "branch bodies get braces",
			in:   "if (x) y = 1; elif (z) { y = 2; } else y = 3;",
			want: "if (x) {\n  y = 1;\n} elif (z) {\n  y = 2;\n} else {\n  y = 3;\n}\n",
		},
		{
			name: "empty block",
			in:   "while (false) {\n}\n",
			want: "while (false) {}\n",
		},
		{
			name: "literals keep their spelling",
			in:   "let a = [1.50, \"a\\\"b\", null, false];\na[0] = 2.25;",
			want: "let a = [1.50, \"a\\\"b\", null, false];\na[0] = 2.25;\n",
		},
		{
			name: "blank lines collapse to one",
			in:   "let a = 1;\n\n\n\nlet b = 2;\nlet c = 3;\n",
			want: "let a = 1;\n\nlet b = 2;\nlet c = 3;\n",
		},
		{
			name: "comments",
			in:   "// header\nlet a = 1; // one\n\n// before b\nlet b = 2;\nfunc f() { // opens\n  // inside\n  return 1;\n  // last\n}\n// tail\n",
			want: "// header\nlet a = 1; // one\n\n// before b\nlet b = 2;\nfunc f() { // opens\n  // inside\n  return 1;\n  // last\n}\n// tail\n",
		},
		{
			name: "comment markers inside strings",
			in:   "print(\"// not a comment\");",
			want: "print(\"// not a comment\");\n",
		},
		{
			name: "empty source",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.in, Options{})
			if err != nil {
				t.Fatalf("Format: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestFormatIndentOption(t *testing.T) {
	got, err := Format("if (a) { if (b) { c(); } }", Options{Indent: "\t"})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	want := "if (a) {\n\tif (b) {\n\t\tc();\n\t}\n}\n"
	if got != want {
		t.Fatalf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestFormatParseError(t *testing.T) {
	src := "let x = ;"
	got, err := Format(src, Options{})
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if got != src {
		t.Fatalf("source should come back unchanged, got %q", got)
	}
	if !strings.HasPrefix(err.Error(), "1:") {
		t.Fatalf("error should carry a position: %v", err)
	}
}

const sample = `// fib
func fib(n) {
  if (n < 2) { return n; }
  let a = 0; let b = 1;
  let i = 1;
  while (i < n) { let t = a + b; a = b; b = t; i = i + 1; }
  return b;
}

let xs = [fib(1), fib(2), -fib(3)];
if (!xs[0]) print("zero"); elif (xs[1] == 1 || false) { print(xs[1]); }
else print("other");
print("n: " + input());
`

func TestFormatIdempotent(t *testing.T) {
	once, err := Format(sample, Options{})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	twice, err := Format(once, Options{})
	if err != nil {
		t.Fatalf("Format of formatted output: %v", err)
	}
	if once != twice {
		t.Fatalf("not idempotent:\nonce:\n%s\ntwice:\n%s", once, twice)
	}
}

// significant returns the token stream without braces, which formatting
// may add around single-statement bodies.
func significant(src string) []string {
	l := lexer.New(src)
	var out []string
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			return out
		}
		if tok.Type == token.LBRACE || tok.Type == token.RBRACE {
			continue
		}
		lit := tok.Literal
		if tok.Raw != "" {
			lit = tok.Raw
		}
		out = append(out, string(tok.Type)+" "+lit)
	}
}

func TestFormatPreservesTokens(t *testing.T) {
	got, err := Format(sample, Options{})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	before, after := significant(sample), significant(got)
	if len(before) != len(after) {
		t.Fatalf("token count changed: %d -> %d\n%s", len(before), len(after), got)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("token %d changed: %s -> %s", i, before[i], after[i])
		}
	}
}
