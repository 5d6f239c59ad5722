// Package numlit defines the decimal number grammar shared by source
// literals and the num native:
//
//	int   = digit { digit }
//	float = digit { digit } "." digit { digit } [ exponent ]
//	      | digit { digit } exponent
//
// Exponents are accepted from text only; the lexer never produces them.
package numlit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrOutOfRange = errors.New("number out of range")
	ErrSyntax     = errors.New("invalid number")
)

// ParseInt parses an unsigned decimal integer literal.
func ParseInt(lit string) (int64, error) {
	if err := validateDigits(lit); err != nil {
		return 0, fmt.Errorf("invalid integer literal %q: %w", lit, err)
	}
	v, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return 0, convError("integer literal", lit, err)
	}
	return v, nil
}

// ParseFloat parses an unsigned decimal float literal.
func ParseFloat(lit string) (float64, error) {
	if err := validateFloat(lit); err != nil {
		return 0, fmt.Errorf("invalid float literal %q: %w", lit, err)
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, convError("float literal", lit, err)
	}
	return v, nil
}

// Number is the result of Parse: an int unless IsFloat is set.
type Number struct {
	Int     int64
	Float   float64
	IsFloat bool
}

// Parse reads a number from free text: surrounding whitespace and one
// leading sign are allowed. Integers that overflow int64 fall back to
// float. Hex, inf and nan are rejected, unlike strconv.
func Parse(text string) (Number, error) {
	s := strings.TrimSpace(text)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	if validateDigits(s) == nil {
		signed := s
		if neg {
			signed = "-" + s
		}
		if i, err := strconv.ParseInt(signed, 10, 64); err == nil {
			return Number{Int: i}, nil
		}
	} else if validateFloat(s) != nil {
		return Number{}, ErrSyntax
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}, convError("number", text, err)
	}
	if neg {
		f = -f
	}
	return Number{Float: f, IsFloat: true}, nil
}

func convError(what, lit string, err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
		return fmt.Errorf("%s %q: %w", what, lit, ErrOutOfRange)
	}
	return fmt.Errorf("%s %q: %w", what, lit, ErrSyntax)
}

func validateFloat(s string) error {
	mantissa, exp, hasExp := s, "", false
	if idx := strings.IndexAny(s, "eE"); idx >= 0 {
		mantissa, exp, hasExp = s[:idx], s[idx+1:], true
		if exp != "" && (exp[0] == '+' || exp[0] == '-') {
			exp = exp[1:]
		}
		if err := validateDigits(exp); err != nil {
			return fmt.Errorf("exponent: %w", err)
		}
	}

	whole, frac, hasDot := strings.Cut(mantissa, ".")
	if err := validateDigits(whole); err != nil {
		return err
	}
	if hasDot {
		if err := validateDigits(frac); err != nil {
			return fmt.Errorf("fraction: %w", err)
		}
	} else if !hasExp {
		return errors.New("not a float")
	}
	return nil
}

func validateDigits(s string) error {
	if s == "" {
		return errors.New("digits required")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return fmt.Errorf("invalid digit %q", s[i])
		}
	}
	return nil
}
