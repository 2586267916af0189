package lang

// Evaluator executes Lispy programs.
type Evaluator struct {
	Global *Env
}

// NewEvaluator constructs an evaluator rooted at a new global environment.
func NewEvaluator() *Evaluator {
	return &Evaluator{Global: NewEnv(nil)}
}

// Eval evaluates a single expression within the provided environment.
// A nil environment means the global one.
//
// The loop rebinds expr/env instead of recursing for forms evaluated in
// tail position (if branches, do tails, let* bodies, closure bodies), so
// deeply iterative programs do not grow the Go stack one frame per step.
func (ev *Evaluator) Eval(expr Value, env *Env) (Value, error) {
	if env == nil {
		env = ev.Global
	}
	for {
		switch expr.Type {
		case TypeSymbol:
			return env.Get(expr.Sym())
		case TypeHash:
			return ev.evalHash(expr, env)
		case TypePair:
			// handled below
		default:
			return expr, nil
		}

		pair := expr.Pair()
		head := pair.Car
		args := pair.Cdr

		if head.Type == TypeSymbol {
			switch head.Sym() {
			case "quote":
				return singleArg("quote", args)
			case "if":
				next, err := ev.evalIf(args, env)
				if err != nil {
					return Value{}, err
				}
				expr = next
				continue
			case "do":
				next, done, err := ev.evalDo(args, env)
				if err != nil {
					return Value{}, err
				}
				if done {
					return next, nil
				}
				expr = next
				continue
			case "def!":
				return ev.evalDef(args, env)
			case "fn*":
				return ev.evalFn(args, env)
			case "defmacro!":
				return ev.evalDefmacro(args, env)
			case "let*":
				next, frame, err := ev.evalLet(args, env)
				if err != nil {
					return Value{}, err
				}
				expr = next
				env = frame
				continue
			case "quasiquote":
				template, err := singleArg("quasiquote", args)
				if err != nil {
					return Value{}, err
				}
				expanded, err := ExpandQuasiquote(template, 1)
				if err != nil {
					return Value{}, err
				}
				expr = expanded
				continue
			case "quasiquote-expand":
				template, err := singleArg("quasiquote-expand", args)
				if err != nil {
					return Value{}, err
				}
				return ExpandQuasiquote(template, 1)
			case "macro-expand":
				form, err := singleArg("macro-expand", args)
				if err != nil {
					return Value{}, err
				}
				return ev.MacroExpand(form, env)
			case "eval":
				// Evaluate the argument in the current environment, then
				// evaluate its result as code in the global one. load-file
				// relies on this: (eval (compile-string (slurp path))) must
				// install the file's definitions at top level, not in
				// load-file's own call frame.
				form, err := singleArg("eval", args)
				if err != nil {
					return Value{}, err
				}
				code, err := ev.Eval(form, env)
				if err != nil {
					return Value{}, err
				}
				expr = code
				env = ev.Global
				continue
			}
		}

		if _, _, ok := macroCall(expr, env); ok {
			expanded, err := ev.MacroExpand(expr, env)
			if err != nil {
				return Value{}, err
			}
			expr = expanded
			continue
		}

		operator, err := ev.Eval(head, env)
		if err != nil {
			return Value{}, err
		}
		argForms, err := ToSlice(args)
		if err != nil {
			return Value{}, &FormError{Form: head.String(), Reason: "malformed argument list"}
		}
		argVals := make([]Value, len(argForms))
		for i, form := range argForms {
			val, err := ev.Eval(form, env)
			if err != nil {
				return Value{}, err
			}
			argVals[i] = val
		}

		switch operator.Type {
		case TypePrimitive:
			return operator.Primitive()(ev, argVals)
		case TypeClosure:
			closure := operator.Closure()
			frame := NewEnv(closure.Env)
			if err := bindParameters(frame, closure.Params, closure.Rest, argVals); err != nil {
				return Value{}, err
			}
			expr = closure.Body
			env = frame
			continue
		default:
			return Value{}, &NotCallableError{Value: operator}
		}
	}
}

// EvalAll evaluates a sequence of expressions, returning the last value.
func (ev *Evaluator) EvalAll(exprs []Value, env *Env) (Value, error) {
	result := NilValue
	for _, expr := range exprs {
		val, err := ev.Eval(expr, env)
		if err != nil {
			return Value{}, err
		}
		result = val
	}
	return result, nil
}

// MacroExpand repeatedly expands form while it is a macro call: the head
// symbol's binding is a macro, whose body is evaluated with the unevaluated
// argument forms bound in a throwaway frame. That frame hangs off the global
// environment, not the call site, so macros cannot capture caller bindings.
// Expansion of anything the produced form contains is left to Eval.
func (ev *Evaluator) MacroExpand(form Value, env *Env) (Value, error) {
	for {
		macro, callArgs, ok := macroCall(form, env)
		if !ok {
			return form, nil
		}
		frame := NewEnv(ev.Global)
		if err := bindParameters(frame, macro.Params, macro.Rest, callArgs); err != nil {
			return Value{}, err
		}
		expanded, err := ev.Eval(macro.Body, frame)
		if err != nil {
			return Value{}, err
		}
		form = expanded
	}
}

func macroCall(form Value, env *Env) (*Macro, []Value, bool) {
	if form.Type != TypePair {
		return nil, nil, false
	}
	pair := form.Pair()
	if pair.Car.Type != TypeSymbol {
		return nil, nil, false
	}
	bound, ok := env.Lookup(pair.Car.Sym())
	if !ok || bound.Type != TypeMacro {
		return nil, nil, false
	}
	callArgs, err := ToSlice(pair.Cdr)
	if err != nil {
		return nil, nil, false
	}
	return bound.Macro(), callArgs, true
}

func (ev *Evaluator) evalIf(args Value, env *Env) (Value, error) {
	parts, err := ToSlice(args)
	if err != nil || len(parts) < 2 || len(parts) > 3 {
		return Value{}, &FormError{Form: "if", Reason: "expected condition, then branch and optional else branch"}
	}
	cond, err := ev.Eval(parts[0], env)
	if err != nil {
		return Value{}, err
	}
	if IsTruthy(cond) {
		return parts[1], nil
	}
	if len(parts) == 3 {
		return parts[2], nil
	}
	// nil evaluates to itself, so it can stand in for the missing branch.
	return NilValue, nil
}

func (ev *Evaluator) evalDo(args Value, env *Env) (Value, bool, error) {
	parts, err := ToSlice(args)
	if err != nil {
		return Value{}, false, &FormError{Form: "do", Reason: "expected a proper list of forms"}
	}
	if len(parts) == 0 {
		return NilValue, true, nil
	}
	for _, form := range parts[:len(parts)-1] {
		if _, err := ev.Eval(form, env); err != nil {
			return Value{}, false, err
		}
	}
	return parts[len(parts)-1], false, nil
}

func (ev *Evaluator) evalDef(args Value, env *Env) (Value, error) {
	parts, err := ToSlice(args)
	if err != nil || len(parts) != 2 {
		return Value{}, &FormError{Form: "def!", Reason: "expected a symbol and a value expression"}
	}
	if parts[0].Type != TypeSymbol {
		return Value{}, &FormError{Form: "def!", Reason: "first argument must be a symbol, received " + parts[0].String()}
	}
	val, err := ev.Eval(parts[1], env)
	if err != nil {
		return Value{}, err
	}
	env.Define(parts[0].Sym(), val)
	return val, nil
}

func (ev *Evaluator) evalFn(args Value, env *Env) (Value, error) {
	parts, err := ToSlice(args)
	if err != nil || len(parts) != 2 {
		return Value{}, &FormError{Form: "fn*", Reason: "expected a binding list and a body form"}
	}
	params, rest, err := parseParams(parts[0])
	if err != nil {
		return Value{}, &FormError{Form: "fn*", Reason: err.Error()}
	}
	return ClosureValue(params, rest, parts[1], env), nil
}

func (ev *Evaluator) evalDefmacro(args Value, env *Env) (Value, error) {
	parts, err := ToSlice(args)
	if err != nil || len(parts) != 3 {
		return Value{}, &FormError{Form: "defmacro!", Reason: "expected a name, a binding list and a body form"}
	}
	if parts[0].Type != TypeSymbol {
		return Value{}, &FormError{Form: "defmacro!", Reason: "first argument must be a symbol, received " + parts[0].String()}
	}
	params, rest, err := parseParams(parts[1])
	if err != nil {
		return Value{}, &FormError{Form: "defmacro!", Reason: err.Error()}
	}
	macro := MacroValue(params, rest, parts[2])
	env.Define(parts[0].Sym(), macro)
	return macro, nil
}

func (ev *Evaluator) evalLet(args Value, env *Env) (Value, *Env, error) {
	parts, err := ToSlice(args)
	if err != nil || len(parts) != 2 {
		return Value{}, nil, &FormError{Form: "let*", Reason: "expected a binding list and a body form"}
	}
	bindings, err := ToSlice(parts[0])
	if err != nil || len(bindings)%2 != 0 {
		return Value{}, nil, &FormError{Form: "let*", Reason: "bindings must be a flat list of symbol/value pairs"}
	}
	frame := NewEnv(env)
	for i := 0; i < len(bindings); i += 2 {
		name := bindings[i]
		if name.Type != TypeSymbol {
			return Value{}, nil, &FormError{Form: "let*", Reason: "binding name must be a symbol, received " + name.String()}
		}
		val, err := ev.Eval(bindings[i+1], frame)
		if err != nil {
			return Value{}, nil, err
		}
		frame.Define(name.Sym(), val)
	}
	return parts[1], frame, nil
}

func (ev *Evaluator) evalHash(expr Value, env *Env) (Value, error) {
	src := expr.Hash()
	out := make(map[Value]Value, len(src))
	for key, form := range src {
		val, err := ev.Eval(form, env)
		if err != nil {
			return Value{}, err
		}
		out[key] = val
	}
	return HashValue(out), nil
}

func singleArg(form string, args Value) (Value, error) {
	parts, err := ToSlice(args)
	if err != nil || len(parts) != 1 {
		return Value{}, &FormError{Form: form, Reason: "expected exactly one argument"}
	}
	return parts[0], nil
}

func parseParams(val Value) ([]string, string, error) {
	names, err := ToSlice(val)
	if err != nil {
		return nil, "", err
	}
	var params []string
	var rest string
	for i := 0; i < len(names); i++ {
		name := names[i]
		if name.Type != TypeSymbol {
			return nil, "", &FormError{Form: "bindings", Reason: "parameter must be a symbol, received " + name.String()}
		}
		if name.Sym() == "&" {
			if i+1 != len(names)-1 {
				return nil, "", &FormError{Form: "bindings", Reason: "& must be followed by exactly one rest parameter"}
			}
			if names[i+1].Type != TypeSymbol {
				return nil, "", &FormError{Form: "bindings", Reason: "rest parameter must be a symbol"}
			}
			rest = names[i+1].Sym()
			break
		}
		params = append(params, name.Sym())
	}
	return params, rest, nil
}

func bindParameters(env *Env, params []string, rest string, args []Value) error {
	if rest == "" && len(args) != len(params) {
		return &ArityError{Want: len(params), Got: len(args)}
	}
	if rest != "" && len(args) < len(params) {
		return &ArityError{Want: len(params), Got: len(args), Variadic: true}
	}
	for i, name := range params {
		env.Define(name, args[i])
	}
	if rest != "" {
		env.Define(rest, List(args[len(params):]...))
	}
	return nil
}
