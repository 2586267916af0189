package runtime

import (
	"fmt"
	"os"
	"strings"

	"github.com/sergev/lispy/lang"
	"github.com/sergev/lispy/reader"
)

func installPrimitives(ev *lang.Evaluator) {
	env := ev.Global
	define := func(name string, fn lang.Primitive) {
		env.Define(name, lang.PrimitiveValue(fn))
	}

	define("+", primAdd)
	define("-", primSub)
	define("*", primMul)
	define("/", primDiv)

	define("=", primEqual)
	define("<", primLess)
	define("<=", primLessEq)
	define(">", primGreater)
	define(">=", primGreaterEq)

	define("count", primCount)
	define("cons", primCons)
	define("concat", primConcat)
	define("first", primFirst)
	define("rest", primRest)
	define("nth", primNth)
	define("list", primList)

	define("nil?", typePredicate(lang.TypeNil))
	define("bool?", typePredicate(lang.TypeBool))
	define("number?", typePredicate(lang.TypeNumber))
	define("string?", typePredicate(lang.TypeString))
	define("keyword?", typePredicate(lang.TypeKeyword))
	define("symbol?", typePredicate(lang.TypeSymbol))
	define("hash?", typePredicate(lang.TypeHash))
	define("macro?", typePredicate(lang.TypeMacro))
	define("list?", primIsList)
	define("function?", primIsFunction)

	define("print", primPrint)
	define("println", primPrintln)

	define("slurp", primSlurp)
	define("compile-string", primCompileString)
}

func wantArgs(name string, args []lang.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: expected %d arguments, received %d", name, n, len(args))
	}
	return nil
}

func numArgs(name string, args []lang.Value) ([]float64, error) {
	nums := make([]float64, len(args))
	for i, arg := range args {
		if arg.Type != lang.TypeNumber {
			return nil, fmt.Errorf("%s: expected a number, received %s", name, arg)
		}
		nums[i] = arg.Num()
	}
	return nums, nil
}

func primAdd(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	nums, err := numArgs("+", args)
	if err != nil {
		return lang.Value{}, err
	}
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return lang.NumberValue(sum), nil
}

func primSub(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	nums, err := numArgs("-", args)
	if err != nil {
		return lang.Value{}, err
	}
	if len(nums) == 0 {
		return lang.Value{}, fmt.Errorf("-: expected at least 1 argument")
	}
	if len(nums) == 1 {
		return lang.NumberValue(-nums[0]), nil
	}
	diff := nums[0]
	for _, n := range nums[1:] {
		diff -= n
	}
	return lang.NumberValue(diff), nil
}

func primMul(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	nums, err := numArgs("*", args)
	if err != nil {
		return lang.Value{}, err
	}
	prod := 1.0
	for _, n := range nums {
		prod *= n
	}
	return lang.NumberValue(prod), nil
}

func primDiv(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	nums, err := numArgs("/", args)
	if err != nil {
		return lang.Value{}, err
	}
	if len(nums) < 2 {
		return lang.Value{}, fmt.Errorf("/: expected at least 2 arguments")
	}
	quot := nums[0]
	for _, n := range nums[1:] {
		if n == 0 {
			return lang.Value{}, fmt.Errorf("/: division by zero")
		}
		quot /= n
	}
	return lang.NumberValue(quot), nil
}

func primEqual(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	if err := wantArgs("=", args, 2); err != nil {
		return lang.Value{}, err
	}
	return lang.BoolValue(lang.Equal(args[0], args[1])), nil
}

func comparePrimitive(name string, cmp func(a, b float64) bool) lang.Primitive {
	return func(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
		if err := wantArgs(name, args, 2); err != nil {
			return lang.Value{}, err
		}
		nums, err := numArgs(name, args)
		if err != nil {
			return lang.Value{}, err
		}
		return lang.BoolValue(cmp(nums[0], nums[1])), nil
	}
}

var (
	primLess      = comparePrimitive("<", func(a, b float64) bool { return a < b })
	primLessEq    = comparePrimitive("<=", func(a, b float64) bool { return a <= b })
	primGreater   = comparePrimitive(">", func(a, b float64) bool { return a > b })
	primGreaterEq = comparePrimitive(">=", func(a, b float64) bool { return a >= b })
)

func primCount(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	if err := wantArgs("count", args, 1); err != nil {
		return lang.Value{}, err
	}
	switch args[0].Type {
	case lang.TypeNil:
		return lang.NumberValue(0), nil
	case lang.TypeString:
		return lang.NumberValue(float64(len(args[0].Str()))), nil
	case lang.TypeHash:
		return lang.NumberValue(float64(len(args[0].Hash()))), nil
	case lang.TypePair:
		items, err := lang.ToSlice(args[0])
		if err != nil {
			return lang.Value{}, fmt.Errorf("count: %w", err)
		}
		return lang.NumberValue(float64(len(items))), nil
	default:
		return lang.Value{}, fmt.Errorf("count: %s is not countable", args[0])
	}
}

func primCons(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	if err := wantArgs("cons", args, 2); err != nil {
		return lang.Value{}, err
	}
	return lang.PairValue(args[0], args[1]), nil
}

func primConcat(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	var collected []lang.Value
	for _, arg := range args {
		items, err := lang.ToSlice(arg)
		if err != nil {
			return lang.Value{}, fmt.Errorf("concat: %w", err)
		}
		collected = append(collected, items...)
	}
	return lang.List(collected...), nil
}

func primFirst(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	if err := wantArgs("first", args, 1); err != nil {
		return lang.Value{}, err
	}
	switch args[0].Type {
	case lang.TypeNil:
		return lang.NilValue, nil
	case lang.TypePair:
		return args[0].Pair().Car, nil
	default:
		return lang.Value{}, fmt.Errorf("first: expected a list, received %s", args[0])
	}
}

func primRest(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	if err := wantArgs("rest", args, 1); err != nil {
		return lang.Value{}, err
	}
	switch args[0].Type {
	case lang.TypeNil:
		return lang.NilValue, nil
	case lang.TypePair:
		return args[0].Pair().Cdr, nil
	default:
		return lang.Value{}, fmt.Errorf("rest: expected a list, received %s", args[0])
	}
}

func primNth(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	if err := wantArgs("nth", args, 2); err != nil {
		return lang.Value{}, err
	}
	if args[1].Type != lang.TypeNumber {
		return lang.Value{}, fmt.Errorf("nth: index must be a number, received %s", args[1])
	}
	items, err := lang.ToSlice(args[0])
	if err != nil {
		return lang.Value{}, fmt.Errorf("nth: %w", err)
	}
	idx := int(args[1].Num())
	if idx < 0 || idx >= len(items) {
		return lang.Value{}, fmt.Errorf("nth: index %d out of range for list of %d", idx, len(items))
	}
	return items[idx], nil
}

func primList(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	return lang.List(args...), nil
}

func typePredicate(t lang.ValueType) lang.Primitive {
	return func(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
		if len(args) != 1 {
			return lang.Value{}, fmt.Errorf("predicate expects 1 argument, received %d", len(args))
		}
		return lang.BoolValue(args[0].Type == t), nil
	}
}

func primIsList(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	if err := wantArgs("list?", args, 1); err != nil {
		return lang.Value{}, err
	}
	ok := args[0].Type == lang.TypeNil || args[0].Type == lang.TypePair
	return lang.BoolValue(ok), nil
}

func primIsFunction(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	if err := wantArgs("function?", args, 1); err != nil {
		return lang.Value{}, err
	}
	ok := args[0].Type == lang.TypePrimitive || args[0].Type == lang.TypeClosure
	return lang.BoolValue(ok), nil
}

func displayArgs(args []lang.Value) string {
	var out strings.Builder
	for _, arg := range args {
		out.WriteString(arg.Display())
	}
	return out.String()
}

func primPrint(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	fmt.Print(displayArgs(args))
	return lang.NilValue, nil
}

func primPrintln(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	fmt.Println(displayArgs(args))
	return lang.NilValue, nil
}

func primSlurp(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	if err := wantArgs("slurp", args, 1); err != nil {
		return lang.Value{}, err
	}
	if args[0].Type != lang.TypeString {
		return lang.Value{}, fmt.Errorf("slurp: expected a path string, received %s", args[0])
	}
	data, err := os.ReadFile(args[0].Str())
	if err != nil {
		return lang.Value{}, fmt.Errorf("slurp: %w", err)
	}
	return lang.StringValue(string(data)), nil
}

// primCompileString parses source text and wraps the resulting forms in a
// single (do ...), so evaluating the result runs the whole text in order.
func primCompileString(_ *lang.Evaluator, args []lang.Value) (lang.Value, error) {
	if err := wantArgs("compile-string", args, 1); err != nil {
		return lang.Value{}, err
	}
	if args[0].Type != lang.TypeString {
		return lang.Value{}, fmt.Errorf("compile-string: expected a source string, received %s", args[0])
	}
	forms, err := reader.ReadString(args[0].Str())
	if err != nil {
		return lang.Value{}, fmt.Errorf("compile-string: %w", err)
	}
	wrapped := append([]lang.Value{lang.SymbolValue("do")}, forms...)
	return lang.List(wrapped...), nil
}
