package lang

// ExpandQuasiquote rewrites a quasiquoted template into a construction
// form built from cons, concat and quote, which the evaluator then runs
// to materialize the result. Call it with depth 1; nested quasiquote
// forms raise the depth, and unquote markers below the surface level are
// rebuilt as literal structure instead of being evaluated.
func ExpandQuasiquote(template Value, depth int) (Value, error) {
	switch template.Type {
	case TypePair:
		return expandQuasiPair(template, depth)
	case TypeSymbol, TypeNil, TypeHash:
		// Evaluating these would resolve or rebuild them; quote keeps
		// the template text verbatim.
		return List(SymbolValue("quote"), template), nil
	default:
		return template, nil
	}
}

func expandQuasiPair(template Value, depth int) (Value, error) {
	if inner, ok := taggedForm(template, "unquote"); ok {
		if depth == 1 {
			return inner, nil
		}
		return expandLiteralMarker("unquote", inner, depth-1)
	}
	if inner, ok := taggedForm(template, "quasiquote"); ok {
		return expandLiteralMarker("quasiquote", inner, depth+1)
	}

	pair := template.Pair()
	restExpanded, err := ExpandQuasiquote(pair.Cdr, depth)
	if err != nil {
		return Value{}, err
	}
	if inner, ok := taggedForm(pair.Car, "unquote-splicing"); ok {
		if depth == 1 {
			return List(SymbolValue("concat"), inner, restExpanded), nil
		}
		eltExpanded, err := expandLiteralMarker("unquote-splicing", inner, depth-1)
		if err != nil {
			return Value{}, err
		}
		return List(SymbolValue("cons"), eltExpanded, restExpanded), nil
	}
	eltExpanded, err := ExpandQuasiquote(pair.Car, depth)
	if err != nil {
		return Value{}, err
	}
	return List(SymbolValue("cons"), eltExpanded, restExpanded), nil
}

// expandLiteralMarker rebuilds (marker inner) as data: the marker symbol
// stays quoted and inner is expanded at the adjusted depth, so quoting
// code that itself contains quasiquote syntax round-trips.
func expandLiteralMarker(marker string, inner Value, depth int) (Value, error) {
	innerExpanded, err := ExpandQuasiquote(inner, depth)
	if err != nil {
		return Value{}, err
	}
	return List(
		SymbolValue("cons"),
		List(SymbolValue("quote"), SymbolValue(marker)),
		List(SymbolValue("cons"), innerExpanded, List(SymbolValue("quote"), NilValue)),
	), nil
}

// taggedForm matches a two-element list (tag x) and returns x.
func taggedForm(v Value, tag string) (Value, bool) {
	if v.Type != TypePair {
		return Value{}, false
	}
	p := v.Pair()
	if !IsSymbol(p.Car, tag) || p.Cdr.Type != TypePair {
		return Value{}, false
	}
	rest := p.Cdr.Pair()
	if rest.Cdr.Type != TypeNil {
		return Value{}, false
	}
	return rest.Car, true
}
