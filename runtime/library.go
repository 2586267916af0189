package runtime

import (
	_ "embed"

	"github.com/sergev/lispy/lang"
	"github.com/sergev/lispy/reader"
)

//go:embed prelude.lispy
var preludeSource string

func installLibrary(ev *lang.Evaluator) error {
	forms, err := reader.ReadString(preludeSource)
	if err != nil {
		return err
	}
	_, err = ev.EvalAll(forms, nil)
	return err
}
