package object

import (
	"sort"
	"strings"
)

// Scope maps binding slots to values. Slots are unique per program, so two
// sibling scopes never share a key.
type Scope struct {
	store map[int]Object
	order []int
}

func NewScope() *Scope {
	return &Scope{store: map[int]Object{}}
}

func (s *Scope) Get(slot int) (Object, bool) {
	v, ok := s.store[slot]
	return v, ok
}

func (s *Scope) Has(slot int) bool {
	_, ok := s.store[slot]
	return ok
}

// Set declares slot if needed and stores v.
func (s *Scope) Set(slot int, v Object) {
	if _, ok := s.store[slot]; !ok {
		s.order = append(s.order, slot)
	}
	s.store[slot] = v
}

// Slots returns the declared slots in declaration order.
func (s *Scope) Slots() []int {
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Scope) Len() int { return len(s.order) }

// Lookup searches scopes innermost first.
func Lookup(scopes []*Scope, slot int) (Object, bool) {
	for i := len(scopes) - 1; i >= 0; i-- {
		if v, ok := scopes[i].Get(slot); ok {
			return v, true
		}
	}
	return nil, false
}

// Owner returns the innermost scope declaring slot, or nil.
func Owner(scopes []*Scope, slot int) *Scope {
	for i := len(scopes) - 1; i >= 0; i-- {
		if scopes[i].Has(slot) {
			return scopes[i]
		}
	}
	return nil
}

// Dump renders a scope for debug traces, naming slots through names.
func (s *Scope) Dump(names func(int) string) string {
	slots := s.Slots()
	sort.Ints(slots)
	parts := make([]string, 0, len(slots))
	for _, slot := range slots {
		parts = append(parts, names(slot)+"="+s.store[slot].Inspect())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
