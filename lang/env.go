package lang

// Env implements a lexical environment chain. A frame holds its own
// bindings and a pointer to the enclosing frame; lookups walk outward.
// Frames stay alive as long as any closure or child frame references them.
type Env struct {
	parent *Env
	values map[string]Value
}

// NewEnv creates an environment with optional parent.
func NewEnv(parent *Env) *Env {
	return &Env{
		parent: parent,
		values: make(map[string]Value),
	}
}

// Define binds name to value in the current frame. This is the only
// mutation the language performs on an environment; def! always targets
// the innermost frame.
func (e *Env) Define(name string, val Value) {
	e.values[name] = val
}

// Get retrieves a binding, searching parents if necessary.
func (e *Env) Get(name string) (Value, error) {
	if val, ok := e.values[name]; ok {
		return val, nil
	}
	if e.parent != nil {
		return e.parent.Get(name)
	}
	return Value{}, &UnboundSymbolError{Name: name}
}

// Lookup probes for a binding without producing an error. Used to decide
// whether a list head names a macro.
func (e *Env) Lookup(name string) (Value, bool) {
	if val, ok := e.values[name]; ok {
		return val, true
	}
	if e.parent != nil {
		return e.parent.Lookup(name)
	}
	return Value{}, false
}

// Parent returns the parent environment.
func (e *Env) Parent() *Env {
	return e.parent
}
