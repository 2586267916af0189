package lang

import "fmt"

// UnboundSymbolError reports a symbol lookup that exhausted the
// environment chain.
type UnboundSymbolError struct {
	Name string
}

func (e *UnboundSymbolError) Error() string {
	return fmt.Sprintf("symbol %s is not defined", e.Name)
}

// ArityError reports a closure or macro invoked with the wrong number of
// arguments. Variadic is set when the callee takes a rest parameter, in
// which case Want is the minimum.
type ArityError struct {
	Want     int
	Got      int
	Variadic bool
}

func (e *ArityError) Error() string {
	if e.Variadic {
		return fmt.Sprintf("expected at least %d arguments, received %d", e.Want, e.Got)
	}
	return fmt.Sprintf("expected %d arguments, received %d", e.Want, e.Got)
}

// NotCallableError reports a list form whose head is neither a closure,
// a macro, nor a host primitive.
type NotCallableError struct {
	Value Value
}

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("%s is not a function", e.Value)
}

// FormError reports a special form invoked with the wrong shape.
type FormError struct {
	Form   string
	Reason string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("%s: %s", e.Form, e.Reason)
}
