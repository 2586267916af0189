package lang

import (
	"errors"
	"strings"
	"testing"
)

func newTestEvaluator() *Evaluator {
	ev := NewEvaluator()

	ev.Global.Define("+", PrimitiveValue(func(_ *Evaluator, args []Value) (Value, error) {
		sum := 0.0
		for _, arg := range args {
			if arg.Type != TypeNumber {
				return Value{}, errors.New("+: expected numbers")
			}
			sum += arg.Num()
		}
		return NumberValue(sum), nil
	}))

	ev.Global.Define("cons", PrimitiveValue(func(_ *Evaluator, args []Value) (Value, error) {
		if len(args) != 2 {
			return Value{}, errors.New("cons: expected 2 arguments")
		}
		return PairValue(args[0], args[1]), nil
	}))

	ev.Global.Define("concat", PrimitiveValue(func(_ *Evaluator, args []Value) (Value, error) {
		var collected []Value
		for _, arg := range args {
			items, err := ToSlice(arg)
			if err != nil {
				return Value{}, errors.New("concat: expected proper list")
			}
			collected = append(collected, items...)
		}
		return List(collected...), nil
	}))

	ev.Global.Define("list", PrimitiveValue(func(_ *Evaluator, args []Value) (Value, error) {
		return List(args...), nil
	}))

	return ev
}

func mustEval(t *testing.T, ev *Evaluator, expr Value) Value {
	t.Helper()
	val, err := ev.Eval(expr, nil)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	return val
}

func mustEvalAll(t *testing.T, ev *Evaluator, exprs ...Value) Value {
	t.Helper()
	val, err := ev.EvalAll(exprs, nil)
	if err != nil {
		t.Fatalf("EvalAll error: %v", err)
	}
	return val
}

func TestEvaluatorEvalLiteralValues(t *testing.T) {
	ev := newTestEvaluator()

	tests := []struct {
		name string
		val  Value
	}{
		{"nil", NilValue},
		{"bool-true", BoolValue(true)},
		{"bool-false", BoolValue(false)},
		{"number", NumberValue(42)},
		{"string", StringValue("hello")},
		{"keyword", KeywordValue(":key")},
		{"primitive", PrimitiveValue(func(*Evaluator, []Value) (Value, error) { return NilValue, nil })},
		{"closure", ClosureValue([]string{"x"}, "", SymbolValue("x"), ev.Global)},
		{"macro", MacroValue([]string{"x"}, "", SymbolValue("x"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustEval(t, ev, tt.val)
			if !Equal(got, tt.val) {
				t.Fatalf("expected %v, got %v", tt.val, got)
			}
		})
	}
}

func TestEvaluatorEvalSymbol(t *testing.T) {
	ev := newTestEvaluator()
	ev.Global.Define("answer", NumberValue(42))

	got := mustEval(t, ev, SymbolValue("answer"))
	if got.Type != TypeNumber || got.Num() != 42 {
		t.Fatalf("expected 42, got %v", got)
	}

	_, err := ev.Eval(SymbolValue("z"), nil)
	var unbound *UnboundSymbolError
	if !errors.As(err, &unbound) {
		t.Fatalf("expected UnboundSymbolError, got %v", err)
	}
	if unbound.Name != "z" {
		t.Fatalf("expected offending symbol z, got %q", unbound.Name)
	}
}

func TestEvaluatorQuote(t *testing.T) {
	ev := newTestEvaluator()

	form := List(SymbolValue("a"), SymbolValue("b"), NumberValue(3))
	got := mustEval(t, ev, List(SymbolValue("quote"), form))
	if !Equal(got, form) {
		t.Fatalf("expected %v verbatim, got %v", form, got)
	}

	_, err := ev.Eval(List(SymbolValue("quote")), nil)
	var formErr *FormError
	if !errors.As(err, &formErr) {
		t.Fatalf("expected FormError for bare quote, got %v", err)
	}
}

func TestEvaluatorIf(t *testing.T) {
	ev := newTestEvaluator()

	tests := []struct {
		name string
		expr Value
		want Value
	}{
		{
			"true-selects-then",
			List(SymbolValue("if"), BoolValue(true), NumberValue(1), NumberValue(2)),
			NumberValue(1),
		},
		{
			"false-selects-else",
			List(SymbolValue("if"), BoolValue(false), NumberValue(1), NumberValue(2)),
			NumberValue(2),
		},
		{
			"nil-selects-else",
			List(SymbolValue("if"), NilValue, NumberValue(1), NumberValue(2)),
			NumberValue(2),
		},
		{
			"missing-else-yields-nil",
			List(SymbolValue("if"), BoolValue(false), NumberValue(1)),
			NilValue,
		},
		{
			"zero-is-truthy",
			List(SymbolValue("if"), NumberValue(0), NumberValue(1), NumberValue(2)),
			NumberValue(1),
		},
		{
			"empty-string-is-truthy",
			List(SymbolValue("if"), StringValue(""), NumberValue(1), NumberValue(2)),
			NumberValue(1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustEval(t, ev, tt.expr)
			if !Equal(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	_, err := ev.Eval(List(SymbolValue("if")), nil)
	var formErr *FormError
	if !errors.As(err, &formErr) {
		t.Fatalf("expected FormError for zero-argument if, got %v", err)
	}

	// The untaken branch must not be evaluated.
	mustEval(t, ev, List(SymbolValue("if"), BoolValue(true), NumberValue(1), SymbolValue("z")))
}

func TestEvaluatorDo(t *testing.T) {
	ev := newTestEvaluator()

	got := mustEval(t, ev, List(SymbolValue("do")))
	if got.Type != TypeNil {
		t.Fatalf("expected nil for empty do, got %v", got)
	}

	got = mustEval(t, ev, List(
		SymbolValue("do"),
		List(SymbolValue("def!"), SymbolValue("side"), NumberValue(1)),
		List(SymbolValue("+"), SymbolValue("side"), NumberValue(2)),
	))
	if got.Num() != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
	if val := mustEval(t, ev, SymbolValue("side")); val.Num() != 1 {
		t.Fatalf("do skipped a non-tail form, side = %v", val)
	}
}

func TestEvaluatorDef(t *testing.T) {
	ev := newTestEvaluator()

	got := mustEval(t, ev, List(SymbolValue("def!"), SymbolValue("x"), NumberValue(5)))
	if got.Num() != 5 {
		t.Fatalf("def! should return the bound value, got %v", got)
	}
	if val := mustEval(t, ev, SymbolValue("x")); val.Num() != 5 {
		t.Fatalf("expected x = 5, got %v", val)
	}

	_, err := ev.Eval(List(SymbolValue("def!"), NumberValue(1), NumberValue(2)), nil)
	var formErr *FormError
	if !errors.As(err, &formErr) {
		t.Fatalf("expected FormError for non-symbol def! target, got %v", err)
	}
	if formErr.Form != "def!" {
		t.Fatalf("expected the error to name def!, got %q", formErr.Form)
	}
}

func TestEvaluatorDefTargetsCurrentFrame(t *testing.T) {
	ev := newTestEvaluator()
	ev.Global.Define("x", NumberValue(1))

	inner := NewEnv(ev.Global)
	if _, err := ev.Eval(List(SymbolValue("def!"), SymbolValue("x"), NumberValue(2)), inner); err != nil {
		t.Fatalf("Eval error: %v", err)
	}

	if val, _ := inner.Get("x"); val.Num() != 2 {
		t.Fatalf("expected inner x = 2, got %v", val)
	}
	if val, _ := ev.Global.Get("x"); val.Num() != 1 {
		t.Fatalf("def! leaked into the parent frame, global x = %v", val)
	}
}

func TestEvaluatorClosureApplication(t *testing.T) {
	ev := newTestEvaluator()

	got := mustEval(t, ev, List(
		List(SymbolValue("fn*"), List(SymbolValue("y")), List(SymbolValue("+"), SymbolValue("y"), NumberValue(1))),
		NumberValue(41),
	))
	if got.Num() != 42 {
		t.Fatalf("expected 42, got %v", got)
	}
}

func TestEvaluatorClosureCapturesLexicalEnvironment(t *testing.T) {
	ev := newTestEvaluator()

	mustEvalAll(t, ev,
		List(SymbolValue("def!"), SymbolValue("x"), NumberValue(5)),
		List(SymbolValue("def!"), SymbolValue("f"),
			List(SymbolValue("fn*"), List(SymbolValue("y")),
				List(SymbolValue("+"), SymbolValue("y"), SymbolValue("x")))),
	)

	// Shadowing x in an unrelated frame must not affect f.
	other := NewEnv(ev.Global)
	other.Define("x", NumberValue(10))
	if _, err := ev.Eval(List(SymbolValue("f"), NumberValue(1)), other); err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	got := mustEval(t, ev, List(SymbolValue("f"), NumberValue(1)))
	if got.Num() != 6 {
		t.Fatalf("expected 6 from the captured frame, got %v", got)
	}

	// Mutating the frame f actually closed over is visible.
	mustEval(t, ev, List(SymbolValue("def!"), SymbolValue("x"), NumberValue(10)))
	got = mustEval(t, ev, List(SymbolValue("f"), NumberValue(1)))
	if got.Num() != 11 {
		t.Fatalf("expected 11 after mutating the captured frame, got %v", got)
	}
}

func TestEvaluatorClosureOutlivesDefiningCall(t *testing.T) {
	ev := newTestEvaluator()

	// make-adder returns a closure over its parameter frame.
	mustEvalAll(t, ev,
		List(SymbolValue("def!"), SymbolValue("make-adder"),
			List(SymbolValue("fn*"), List(SymbolValue("n")),
				List(SymbolValue("fn*"), List(SymbolValue("m")),
					List(SymbolValue("+"), SymbolValue("n"), SymbolValue("m"))))),
		List(SymbolValue("def!"), SymbolValue("add3"),
			List(SymbolValue("make-adder"), NumberValue(3))),
	)
	got := mustEval(t, ev, List(SymbolValue("add3"), NumberValue(4)))
	if got.Num() != 7 {
		t.Fatalf("expected 7, got %v", got)
	}
}

func TestEvaluatorArityMismatch(t *testing.T) {
	ev := newTestEvaluator()

	mustEval(t, ev, List(SymbolValue("def!"), SymbolValue("add"),
		List(SymbolValue("fn*"), List(SymbolValue("a"), SymbolValue("b")),
			List(SymbolValue("+"), SymbolValue("a"), SymbolValue("b")))))

	_, err := ev.Eval(List(SymbolValue("add"), NumberValue(1)), nil)
	var arity *ArityError
	if !errors.As(err, &arity) {
		t.Fatalf("expected ArityError, got %v", err)
	}
	if arity.Want != 2 || arity.Got != 1 || arity.Variadic {
		t.Fatalf("unexpected arity report: %+v", arity)
	}
}

func TestEvaluatorRestParameters(t *testing.T) {
	ev := newTestEvaluator()

	mustEval(t, ev, List(SymbolValue("def!"), SymbolValue("tail"),
		List(SymbolValue("fn*"),
			List(SymbolValue("a"), SymbolValue("&"), SymbolValue("more")),
			SymbolValue("more"))))

	got := mustEval(t, ev, List(SymbolValue("tail"), NumberValue(1), NumberValue(2), NumberValue(3)))
	want := List(NumberValue(2), NumberValue(3))
	if !Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got = mustEval(t, ev, List(SymbolValue("tail"), NumberValue(1)))
	if got.Type != TypeNil {
		t.Fatalf("expected empty rest to be nil, got %v", got)
	}

	_, err := ev.Eval(List(SymbolValue("tail")), nil)
	var arity *ArityError
	if !errors.As(err, &arity) {
		t.Fatalf("expected ArityError for missing fixed argument, got %v", err)
	}
	if !arity.Variadic {
		t.Fatalf("expected a variadic arity report, got %+v", arity)
	}
}

func TestEvaluatorNotCallable(t *testing.T) {
	ev := newTestEvaluator()

	_, err := ev.Eval(List(NumberValue(5), NumberValue(1)), nil)
	var notCallable *NotCallableError
	if !errors.As(err, &notCallable) {
		t.Fatalf("expected NotCallableError, got %v", err)
	}
	if notCallable.Value.Num() != 5 {
		t.Fatalf("expected the offending value in the error, got %v", notCallable.Value)
	}
}

func TestEvaluatorDefmacro(t *testing.T) {
	ev := newTestEvaluator()

	// (defmacro! unless (test body) (list 'if test nil body))
	mustEval(t, ev, List(SymbolValue("defmacro!"), SymbolValue("unless"),
		List(SymbolValue("test"), SymbolValue("body")),
		List(SymbolValue("list"),
			List(SymbolValue("quote"), SymbolValue("if")),
			SymbolValue("test"),
			NilValue,
			SymbolValue("body"))))

	got := mustEval(t, ev, List(SymbolValue("unless"), BoolValue(false), NumberValue(7)))
	if got.Num() != 7 {
		t.Fatalf("expected 7, got %v", got)
	}

	// Arguments reach the macro unevaluated: the untaken branch may
	// reference an unbound symbol without failing.
	got = mustEval(t, ev, List(SymbolValue("unless"), BoolValue(true), SymbolValue("z")))
	if got.Type != TypeNil {
		t.Fatalf("expected nil, got %v", got)
	}

	_, err := ev.Eval(List(SymbolValue("unless"), BoolValue(true)), nil)
	var arity *ArityError
	if !errors.As(err, &arity) {
		t.Fatalf("expected ArityError for macro call, got %v", err)
	}
}

func TestEvaluatorMacroExpandForm(t *testing.T) {
	ev := newTestEvaluator()

	mustEval(t, ev, List(SymbolValue("defmacro!"), SymbolValue("wrap"),
		List(SymbolValue("x")),
		List(SymbolValue("list"),
			List(SymbolValue("quote"), SymbolValue("quote")),
			SymbolValue("x"))))

	got := mustEval(t, ev, List(SymbolValue("macro-expand"),
		List(SymbolValue("wrap"), SymbolValue("a"))))
	want := List(SymbolValue("quote"), SymbolValue("a"))
	if !Equal(got, want) {
		t.Fatalf("expected expansion %v, got %v", want, got)
	}
}

func TestEvaluatorMacroExpansionIsUnhygienic(t *testing.T) {
	ev := newTestEvaluator()
	ev.Global.Define("prefix", SymbolValue("global"))

	// The macro body sees the global prefix, not any call-site shadowing.
	mustEval(t, ev, List(SymbolValue("defmacro!"), SymbolValue("tag"),
		List(SymbolValue("x")),
		List(SymbolValue("list"),
			List(SymbolValue("quote"), SymbolValue("quote")),
			List(SymbolValue("list"), SymbolValue("prefix"), SymbolValue("x")))))

	got := mustEval(t, ev, List(
		SymbolValue("let*"),
		List(SymbolValue("prefix"), List(SymbolValue("quote"), SymbolValue("local"))),
		List(SymbolValue("tag"), SymbolValue("a"))))
	want := List(SymbolValue("global"), SymbolValue("a"))
	if !Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEvaluatorLet(t *testing.T) {
	ev := newTestEvaluator()
	ev.Global.Define("x", NumberValue(1))

	// Later bindings see earlier ones.
	got := mustEval(t, ev, List(
		SymbolValue("let*"),
		List(SymbolValue("a"), NumberValue(2),
			SymbolValue("b"), List(SymbolValue("+"), SymbolValue("a"), NumberValue(3))),
		List(SymbolValue("+"), SymbolValue("a"), SymbolValue("b"))))
	if got.Num() != 7 {
		t.Fatalf("expected 7, got %v", got)
	}

	// Shadowing stays inside the let* frame.
	got = mustEval(t, ev, List(
		SymbolValue("let*"),
		List(SymbolValue("x"), NumberValue(10)),
		SymbolValue("x")))
	if got.Num() != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
	if val := mustEval(t, ev, SymbolValue("x")); val.Num() != 1 {
		t.Fatalf("let* leaked into the global frame, x = %v", val)
	}

	_, err := ev.Eval(List(
		SymbolValue("let*"),
		List(SymbolValue("a")),
		SymbolValue("a")), nil)
	var formErr *FormError
	if !errors.As(err, &formErr) {
		t.Fatalf("expected FormError for odd binding list, got %v", err)
	}
}

func TestEvaluatorEvalForm(t *testing.T) {
	ev := newTestEvaluator()

	// (eval (quote (+ 1 2))) evaluates the quoted code.
	got := mustEval(t, ev, List(SymbolValue("eval"),
		List(SymbolValue("quote"),
			List(SymbolValue("+"), NumberValue(1), NumberValue(2)))))
	if got.Num() != 3 {
		t.Fatalf("expected 3, got %v", got)
	}

	// The produced code runs against the global frame, so definitions it
	// makes survive the calling frame.
	inner := NewEnv(ev.Global)
	_, err := ev.Eval(List(SymbolValue("eval"),
		List(SymbolValue("quote"),
			List(SymbolValue("def!"), SymbolValue("made"), NumberValue(42)))), inner)
	if err != nil {
		t.Fatalf("Eval error: %v", err)
	}
	if val := mustEval(t, ev, SymbolValue("made")); val.Num() != 42 {
		t.Fatalf("expected made = 42 in the global frame, got %v", val)
	}
}

func TestEvaluatorHashValues(t *testing.T) {
	ev := newTestEvaluator()
	ev.Global.Define("x", NumberValue(7))

	src := map[Value]Value{
		KeywordValue(":a"): SymbolValue("x"),
		KeywordValue(":b"): NumberValue(1),
	}
	got := mustEval(t, ev, HashValue(src))
	want := map[Value]Value{
		KeywordValue(":a"): NumberValue(7),
		KeywordValue(":b"): NumberValue(1),
	}
	if !Equal(got, HashValue(want)) {
		t.Fatalf("expected %v, got %v", HashValue(want), got)
	}
}

func TestEvaluatorErrorsAbortButKeepPriorDefs(t *testing.T) {
	ev := newTestEvaluator()

	_, err := ev.EvalAll([]Value{
		List(SymbolValue("def!"), SymbolValue("kept"), NumberValue(1)),
		SymbolValue("z"),
		List(SymbolValue("def!"), SymbolValue("skipped"), NumberValue(2)),
	}, nil)
	if err == nil {
		t.Fatal("expected evaluation to fail on the unbound symbol")
	}
	if val := mustEval(t, ev, SymbolValue("kept")); val.Num() != 1 {
		t.Fatalf("completed def! lost after error, kept = %v", val)
	}
	if _, err := ev.Eval(SymbolValue("skipped"), nil); err == nil {
		t.Fatal("def! after the failing form should not have run")
	}
}

func TestEvaluatorMalformedForms(t *testing.T) {
	ev := newTestEvaluator()

	tests := []struct {
		name string
		expr Value
	}{
		{"fn-missing-body", List(SymbolValue("fn*"), List(SymbolValue("a")))},
		{"fn-non-symbol-param", List(SymbolValue("fn*"), List(NumberValue(1)), NilValue)},
		{"defmacro-missing-body", List(SymbolValue("defmacro!"), SymbolValue("m"), List(SymbolValue("a")))},
		{"quasiquote-no-args", List(SymbolValue("quasiquote"))},
		{"eval-no-args", List(SymbolValue("eval"))},
		{"rest-without-name", List(SymbolValue("fn*"), List(SymbolValue("a"), SymbolValue("&")), NilValue)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ev.Eval(tt.expr, nil)
			var formErr *FormError
			if !errors.As(err, &formErr) {
				t.Fatalf("expected FormError, got %v", err)
			}
		})
	}
}

func TestErrorMessagesNameTheOffender(t *testing.T) {
	ev := newTestEvaluator()

	_, err := ev.Eval(SymbolValue("missing"), nil)
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected the symbol name in %v", err)
	}

	_, err = ev.Eval(List(StringValue("nope")), nil)
	if err == nil || !strings.Contains(err.Error(), "not a function") {
		t.Fatalf("expected a not-callable message, got %v", err)
	}
}
