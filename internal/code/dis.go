package code

import (
	"bytes"
	"fmt"
	"strings"
)

func (ins Instructions) String() string {
	return ins.Disassemble(false)
}

// Disassemble renders one instruction per line. Function bodies are
// indented under their define-function. With mangled set, identifiers are
// printed slot-qualified.
func (ins Instructions) Disassemble(mangled bool) string {
	var out bytes.Buffer

	type body struct{ end int }
	var bodies []body

	for i, in := range ins {
		for len(bodies) > 0 && i >= bodies[len(bodies)-1].end {
			bodies = bodies[:len(bodies)-1]
			out.WriteString("\n")
		}

		indent := strings.Repeat("\t", len(bodies))
		fmt.Fprintf(&out, "%s%04d %s\n", indent, i, in.format(mangled))

		if in.Op == OpDefineFunction && in.Length > 0 {
			bodies = append(bodies, body{end: i + 1 + in.Length})
		}
	}

	return out.String()
}

func (in Instruction) String() string { return in.format(false) }

func (in Instruction) format(mangled bool) string {
	def, ok := Lookup(in.Op)
	if !ok {
		return fmt.Sprintf("UNKNOWN_OPCODE %d", in.Op)
	}

	name := func(o Operand) string {
		if mangled && o.IsIdentifier() {
			return o.Mangled()
		}
		return o.String()
	}
	list := func(ops []Operand) string {
		parts := make([]string, 0, len(ops))
		for _, o := range ops {
			parts = append(parts, name(o))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	target := func() string {
		if in.Target == Unresolved {
			return in.Label
		}
		if in.Label != "" {
			return fmt.Sprintf("%d (%s)", in.Target, in.Label)
		}
		return fmt.Sprintf("%d", in.Target)
	}

	m := fmt.Sprintf("%-7s", def.Mnemonic)
	switch def.Shape {
	case ShapeCreate:
		return m + " " + name(in.Dst)
	case ShapePush, ShapeUnary:
		return m + " " + name(in.Dst) + ", " + name(in.Left)
	case ShapeJump:
		return m + " " + target()
	case ShapeCondJump:
		return m + " " + name(in.Left) + ", " + target()
	case ShapeFunction:
		return fmt.Sprintf("%s %s%s len=%d", m, name(in.Dst), list(in.Params), in.Length)
	case ShapeCall:
		dst := "_"
		if !in.Dst.IsAbsent() {
			dst = name(in.Dst)
		}
		return m + " " + dst + ", " + name(in.Left) + ", " + list(in.Args)
	case ShapeReturn:
		if in.Left.IsAbsent() {
			return strings.TrimSpace(m)
		}
		return m + " " + name(in.Left)
	case ShapeBinary, ShapeArrayGet:
		return m + " " + name(in.Dst) + ", " + name(in.Left) + ", " + name(in.Right)
	case ShapeArrayNew:
		return m + " " + name(in.Dst) + ", " + list(in.Args)
	case ShapeArraySet:
		val := "_"
		if len(in.Args) == 1 {
			val = name(in.Args[0])
		}
		return m + " " + name(in.Left) + ", " + name(in.Right) + ", " + val
	case ShapeLabel:
		return in.Label + ":"
	default:
		return strings.TrimSpace(m)
	}
}
