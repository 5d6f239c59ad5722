package code

import "strconv"

// Symbol names a binding slot. Global symbols live in the outermost scope
// and are where natives get bound.
type Symbol struct {
	Slot   int
	Name   string
	Global bool
}

type Program struct {
	File         string
	Instructions Instructions
	Symbols      []Symbol
}

// SymbolName returns the source name of slot, or "#slot" when unknown.
func (p *Program) SymbolName(slot int) string {
	for _, s := range p.Symbols {
		if s.Slot == slot {
			return s.Name
		}
	}
	return "#" + strconv.Itoa(slot)
}

// GlobalSlot finds the slot of a global binding by name.
func (p *Program) GlobalSlot(name string) (int, bool) {
	for _, s := range p.Symbols {
		if s.Global && s.Name == name {
			return s.Slot, true
		}
	}
	return 0, false
}

func (p *Program) String() string {
	return p.Instructions.String()
}
