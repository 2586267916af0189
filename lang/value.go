package lang

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ValueType enumerates the different runtime value categories.
type ValueType int

const (
	TypeNil ValueType = iota
	TypeBool
	TypeNumber
	TypeString
	TypeKeyword
	TypeSymbol
	TypePair
	TypeHash
	TypePrimitive
	TypeClosure
	TypeMacro
)

// Value represents any runtime object in the interpreter.
type Value struct {
	Type    ValueType
	payload interface{}
}

// Pair represents a cons cell. Chained pairs ending in nil form proper lists.
type Pair struct {
	Car Value
	Cdr Value
}

// Primitive represents a built-in Go function exposed to the interpreter.
type Primitive func(*Evaluator, []Value) (Value, error)

// Closure represents a user-defined function with lexical scope.
// Rest, when non-empty, names the parameter bound to any arguments
// beyond the fixed ones (the "& rest" form).
type Closure struct {
	Params []string
	Rest   string
	Body   Value
	Env    *Env
}

// Macro represents a macro transformer. Unlike a Closure it carries no
// environment: macro bodies expand against the root frame, never the
// definition or call site. Macros are unhygienic.
type Macro struct {
	Params []string
	Rest   string
	Body   Value
}

// NilValue is the singleton nil value, doubling as the empty list.
var NilValue = Value{Type: TypeNil}

// BoolValue returns the boolean Value equivalent.
func BoolValue(b bool) Value {
	return Value{Type: TypeBool, payload: b}
}

// NumberValue constructs a numeric Value.
func NumberValue(f float64) Value {
	return Value{Type: TypeNumber, payload: f}
}

// StringValue constructs a string Value.
func StringValue(s string) Value {
	return Value{Type: TypeString, payload: s}
}

// KeywordValue constructs a keyword Value; name includes the leading colon.
func KeywordValue(s string) Value {
	return Value{Type: TypeKeyword, payload: s}
}

// SymbolValue constructs a symbol Value.
func SymbolValue(s string) Value {
	return Value{Type: TypeSymbol, payload: s}
}

// PairValue constructs a pair Value.
func PairValue(car, cdr Value) Value {
	return Value{
		Type:    TypePair,
		payload: &Pair{Car: car, Cdr: cdr},
	}
}

// HashValue wraps a hash map. Keys must be atoms.
func HashValue(m map[Value]Value) Value {
	return Value{Type: TypeHash, payload: m}
}

// List constructs a proper list from provided values.
func List(vals ...Value) Value {
	result := NilValue
	for i := len(vals) - 1; i >= 0; i-- {
		result = PairValue(vals[i], result)
	}
	return result
}

// ToSlice converts a proper list into a Go slice. Nil yields an empty slice.
func ToSlice(list Value) ([]Value, error) {
	var out []Value
	cur := list
	for cur.Type != TypeNil {
		p := cur.Pair()
		if cur.Type != TypePair || p == nil {
			return nil, fmt.Errorf("expected proper list, got %s", cur)
		}
		out = append(out, p.Car)
		cur = p.Cdr
	}
	return out, nil
}

// PrimitiveValue wraps the primitive function.
func PrimitiveValue(fn Primitive) Value {
	return Value{
		Type:    TypePrimitive,
		payload: fn,
	}
}

// ClosureValue wraps a closure.
func ClosureValue(params []string, rest string, body Value, env *Env) Value {
	return Value{
		Type:    TypeClosure,
		payload: &Closure{Params: params, Rest: rest, Body: body, Env: env},
	}
}

// MacroValue wraps a macro transformer.
func MacroValue(params []string, rest string, body Value) Value {
	return Value{
		Type:    TypeMacro,
		payload: &Macro{Params: params, Rest: rest, Body: body},
	}
}

func (v Value) Bool() bool {
	if b, ok := v.payload.(bool); ok {
		return b
	}
	return false
}

func (v Value) Num() float64 {
	if f, ok := v.payload.(float64); ok {
		return f
	}
	return 0
}

func (v Value) Str() string {
	if s, ok := v.payload.(string); ok {
		return s
	}
	return ""
}

func (v Value) Sym() string {
	if s, ok := v.payload.(string); ok {
		return s
	}
	return ""
}

func (v Value) Keyword() string {
	if s, ok := v.payload.(string); ok {
		return s
	}
	return ""
}

func (v Value) Pair() *Pair {
	if p, ok := v.payload.(*Pair); ok {
		return p
	}
	return nil
}

func (v Value) Hash() map[Value]Value {
	if m, ok := v.payload.(map[Value]Value); ok {
		return m
	}
	return nil
}

func (v Value) Primitive() Primitive {
	if p, ok := v.payload.(Primitive); ok {
		return p
	}
	return nil
}

func (v Value) Closure() *Closure {
	if c, ok := v.payload.(*Closure); ok {
		return c
	}
	return nil
}

func (v Value) Macro() *Macro {
	if m, ok := v.payload.(*Macro); ok {
		return m
	}
	return nil
}

// IsSymbol reports whether v is the symbol with the given name.
func IsSymbol(v Value, name string) bool {
	return v.Type == TypeSymbol && v.Sym() == name
}

// IsTruthy reports whether a value counts as true. Only false and nil
// are falsey; numbers, strings and empty hashes all count as true.
func IsTruthy(v Value) bool {
	switch v.Type {
	case TypeNil:
		return false
	case TypeBool:
		return v.Bool()
	default:
		return true
	}
}

// Equal reports structural equality. Symbols and keywords compare by name,
// pairs element-wise, hashes key-wise. Closures, macros and primitives
// compare by identity.
func Equal(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TypeNil:
		return true
	case TypeBool:
		return a.Bool() == b.Bool()
	case TypeNumber:
		return a.Num() == b.Num()
	case TypeString, TypeKeyword, TypeSymbol:
		return a.Str() == b.Str()
	case TypePair:
		pa, pb := a.Pair(), b.Pair()
		if pa == pb {
			return true
		}
		return Equal(pa.Car, pb.Car) && Equal(pa.Cdr, pb.Cdr)
	case TypeHash:
		ma, mb := a.Hash(), b.Hash()
		if len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, ok := mb[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	case TypePrimitive:
		// Func values cannot be compared directly.
		return reflect.ValueOf(a.payload).Pointer() == reflect.ValueOf(b.payload).Pointer()
	default:
		return a.payload == b.payload
	}
}

// String renders the value in readable form: strings are quoted.
func (v Value) String() string {
	return v.render(true)
}

// Display renders the value for print/println: strings appear raw.
func (v Value) Display() string {
	return v.render(false)
}

func (v Value) render(readable bool) string {
	switch v.Type {
	case TypeNil:
		return "nil"
	case TypeBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case TypeNumber:
		return strconv.FormatFloat(v.Num(), 'g', -1, 64)
	case TypeString:
		if readable {
			return strconv.Quote(v.Str())
		}
		return v.Str()
	case TypeKeyword:
		return v.Keyword()
	case TypeSymbol:
		return v.Sym()
	case TypePair:
		return v.renderPair(readable)
	case TypeHash:
		return v.renderHash(readable)
	case TypePrimitive:
		return "#<function>"
	case TypeClosure:
		return "#<closure>"
	case TypeMacro:
		return "#<macro>"
	default:
		return "#<unknown>"
	}
}

func (v Value) renderPair(readable bool) string {
	var out strings.Builder
	out.WriteByte('(')
	cur := v
	first := true
	for {
		p := cur.Pair()
		if cur.Type != TypePair || p == nil {
			out.WriteString(" . ")
			out.WriteString(cur.render(readable))
			break
		}
		if !first {
			out.WriteByte(' ')
		}
		out.WriteString(p.Car.render(readable))
		if p.Cdr.Type == TypeNil {
			break
		}
		cur = p.Cdr
		first = false
	}
	out.WriteByte(')')
	return out.String()
}

func (v Value) renderHash(readable bool) string {
	m := v.Hash()
	entries := make([]string, 0, len(m))
	for k, val := range m {
		entries = append(entries, k.render(readable)+" "+val.render(readable))
	}
	sort.Strings(entries)
	return "{" + strings.Join(entries, " ") + "}"
}
