package code

import "fmt"

// Fragment is either a single Instruction or a nested sequence of fragments.
type Fragment interface {
	fragment()
}

type Seq []Fragment

func (Instruction) fragment()  {}
func (Seq) fragment()          {}
func (Instructions) fragment() {}

type UnresolvedLabelError struct {
	Label string
	Index int
}

func (e *UnresolvedLabelError) Error() string {
	return fmt.Sprintf("jump at %d targets undefined label %q", e.Index, e.Label)
}

type DuplicateLabelError struct {
	Label string
	First int
	Again int
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("label %q defined at %d and again at %d", e.Label, e.First, e.Again)
}

// Flatten splices nested fragments into one array, preserving order. Labels
// are kept, so the result has the final length of the code it describes.
func Flatten(frags ...Fragment) Instructions {
	out := Instructions{}
	var walk func(f Fragment)
	walk = func(f Fragment) {
		switch v := f.(type) {
		case Instruction:
			out = append(out, v)
		case Instructions:
			out = append(out, v...)
		case Seq:
			for _, inner := range v {
				walk(inner)
			}
		}
	}
	for _, f := range frags {
		walk(f)
	}
	return out
}

// Linearize flattens frags, resolves every symbolic jump target to an
// absolute index and erases labels to no-ops unless keepLabels is set.
// Erasing in place keeps the indices computed in the same pass valid.
// Jumps that already carry an absolute target are left alone, so running
// Linearize on its own output changes nothing.
func Linearize(frags []Fragment, keepLabels bool) (Instructions, error) {
	ins := Flatten(frags...)

	labels := map[string]int{}
	for i, in := range ins {
		if in.Op != OpLabel {
			continue
		}
		if first, dup := labels[in.Label]; dup {
			return nil, &DuplicateLabelError{Label: in.Label, First: first, Again: i}
		}
		labels[in.Label] = i
	}

	for i := range ins {
		in := &ins[i]
		if !in.IsJump() || in.Target != Unresolved {
			continue
		}
		at, ok := labels[in.Label]
		if !ok {
			return nil, &UnresolvedLabelError{Label: in.Label, Index: i}
		}
		in.Target = at
	}

	if !keepLabels {
		for i := range ins {
			if ins[i].Op == OpLabel {
				ins[i] = NewNoop()
			}
		}
	}

	return ins, nil
}
