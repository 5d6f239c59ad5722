package numlit

import (
	"errors"
	"testing"
)

func TestParseLiterals(t *testing.T) {
	if v, err := ParseInt("9007"); err != nil || v != 9007 {
		t.Fatalf("ParseInt: %d, %v", v, err)
	}
	if _, err := ParseInt("99999999999999999999"); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if _, err := ParseInt("1a"); err == nil {
		t.Fatalf("expected invalid digit error")
	}
	if v, err := ParseFloat("2.50"); err != nil || v != 2.5 {
		t.Fatalf("ParseFloat: %v, %v", v, err)
	}
	for _, bad := range []string{"1.", ".5", "1e", "inf", "0x10", "12"} {
		if _, err := ParseFloat(bad); err == nil {
			t.Fatalf("ParseFloat(%q): expected error", bad)
		}
	}
}

func TestParseText(t *testing.T) {
	tests := []struct {
		in      string
		isFloat bool
		i       int64
		f       float64
	}{
		{"42", false, 42, 0},
		{"  -7 ", false, -7, 0},
		{"+3", false, 3, 0},
		{"2.5", true, 0, 2.5},
		{"-0.25", true, 0, -0.25},
		{"1e3", true, 0, 1000},
		{"2.5E-1", true, 0, 0.25},
		{"99999999999999999999", true, 0, 1e20},
	}
	for _, tt := range tests {
		n, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if n.IsFloat != tt.isFloat || n.Int != tt.i || n.Float != tt.f {
			t.Fatalf("Parse(%q) = %+v", tt.in, n)
		}
	}

	for _, bad := range []string{"", "abc", "inf", "NaN", "0x1f", "1.", "--1", "1 2"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("Parse(%q): expected error", bad)
		}
	}
}
