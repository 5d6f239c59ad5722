package runtimeio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var ErrInputUnavailable = errors.New("input is not available")

// IO is the console a program talks to through print and input.
type IO struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// StdinIsTerminal reports whether the process reads from a terminal.
func StdinIsTerminal() bool { return IsTerminal(os.Stdin) }

// Std wires IO to the process's stdin and stdout.
func Std() *IO {
	return &IO{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		interactive: StdinIsTerminal(),
	}
}

// New builds a non-interactive IO over arbitrary streams. A nil reader
// makes input unavailable.
func New(in io.Reader, out io.Writer) *IO {
	var r *bufio.Reader
	if in != nil {
		r = bufio.NewReader(in)
	}
	return &IO{in: r, out: out}
}

func (c *IO) IsInteractive() bool { return c.interactive }

func (c *IO) Out() io.Writer { return c.out }

// Println writes the values separated by single spaces.
func (c *IO) Println(values ...string) error {
	_, err := fmt.Fprintln(c.out, strings.Join(values, " "))
	return err
}

// Input writes prompt and reads one line without its terminator. A final
// line lacking a newline is still returned.
func (c *IO) Input(prompt string) (string, error) {
	if c.in == nil {
		return "", ErrInputUnavailable
	}
	if prompt != "" {
		if _, err := fmt.Fprint(c.out, prompt); err != nil {
			return "", err
		}
	}
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrInputUnavailable
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
