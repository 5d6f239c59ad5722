package object

// Environment is one lexical scope of the tree-walking evaluator: the
// globals, a block body or a call frame. Lookups walk outward.
type Environment struct {
	vars  map[string]Object
	outer *Environment
}

func NewEnvironment() *Environment {
	return &Environment{vars: map[string]Object{}}
}

func NewEnclosedEnvironment(outer *Environment) *Environment {
	return &Environment{vars: map[string]Object{}, outer: outer}
}

// Get resolves name in the nearest enclosing scope.
func (e *Environment) Get(name string) (Object, bool) {
	if owner := e.Owner(name); owner != nil {
		return owner.vars[name], true
	}
	return nil, false
}

// Local resolves name in this scope only.
func (e *Environment) Local(name string) (Object, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Owner returns the nearest scope declaring name, or nil.
func (e *Environment) Owner(name string) *Environment {
	for s := e; s != nil; s = s.outer {
		if _, ok := s.vars[name]; ok {
			return s
		}
	}
	return nil
}

// Declare introduces name in this scope. It reports false, leaving the
// scope untouched, when name is already declared here. Shadowing an outer
// name is allowed.
func (e *Environment) Declare(name string, val Object) bool {
	if _, ok := e.vars[name]; ok {
		return false
	}
	e.vars[name] = val
	return true
}

// Bind writes name in this scope unconditionally. Builtins and call
// parameters are bound this way.
func (e *Environment) Bind(name string, val Object) {
	e.vars[name] = val
}

// Assign writes to the nearest scope declaring name. It reports false
// when no scope does.
func (e *Environment) Assign(name string, val Object) bool {
	owner := e.Owner(name)
	if owner == nil {
		return false
	}
	owner.vars[name] = val
	return true
}
