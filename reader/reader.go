// Package reader turns Lispy source text into lang values. The evaluator
// never parses text itself; compile-string and the REPL both come here.
package reader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/sergev/lispy/lang"
)

// ReadString parses all expressions from a string.
func ReadString(src string) ([]lang.Value, error) {
	return ReadAll(strings.NewReader(src))
}

// ReadAll parses all expressions from the provided reader.
func ReadAll(r io.Reader) ([]lang.Value, error) {
	rd := newRuneReader(r)
	var values []lang.Value
	for {
		if err := rd.skipWhitespace(); err != nil {
			if errors.Is(err, io.EOF) {
				return values, nil
			}
			return nil, err
		}
		if rd.peekEOF() {
			return values, nil
		}
		val, err := readExpr(rd)
		if err != nil {
			return nil, err
		}
		values = append(values, val)
	}
}

type runeReader struct {
	br   *bufio.Reader
	undo []rune
}

func newRuneReader(r io.Reader) *runeReader {
	return &runeReader{br: bufio.NewReader(r)}
}

func (rr *runeReader) read() (rune, error) {
	if len(rr.undo) > 0 {
		r := rr.undo[len(rr.undo)-1]
		rr.undo = rr.undo[:len(rr.undo)-1]
		return r, nil
	}
	ch, _, err := rr.br.ReadRune()
	return ch, err
}

func (rr *runeReader) unread(r rune) {
	rr.undo = append(rr.undo, r)
}

func (rr *runeReader) peek() (rune, error) {
	r, err := rr.read()
	if err != nil {
		return 0, err
	}
	rr.unread(r)
	return r, nil
}

func (rr *runeReader) peekEOF() bool {
	_, err := rr.peek()
	return errors.Is(err, io.EOF)
}

// skipWhitespace also skips commas (the language treats them as
// whitespace, so parameter lists may read "(a, b, c)") and ; comments.
func (rr *runeReader) skipWhitespace() error {
	for {
		r, err := rr.read()
		if err != nil {
			return err
		}
		if unicode.IsSpace(r) || r == ',' {
			continue
		}
		if r == ';' {
			if err := rr.skipLine(); err != nil {
				return err
			}
			continue
		}
		rr.unread(r)
		return nil
	}
}

func (rr *runeReader) skipLine() error {
	for {
		r, err := rr.read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if r == '\n' {
			return nil
		}
	}
}

func readExpr(rr *runeReader) (lang.Value, error) {
	if err := rr.skipWhitespace(); err != nil {
		return lang.Value{}, err
	}
	r, err := rr.read()
	if err != nil {
		return lang.Value{}, err
	}
	switch r {
	case '(':
		return readList(rr)
	case '{':
		return readHash(rr)
	case '\'':
		return readWrapped(rr, "quote")
	case '`':
		return readWrapped(rr, "quasiquote")
	case '~':
		next, err := rr.peek()
		if err == nil && next == '@' {
			if _, err := rr.read(); err != nil {
				return lang.Value{}, err
			}
			return readWrapped(rr, "unquote-splicing")
		}
		return readWrapped(rr, "unquote")
	case '"':
		return readString(rr)
	case ')':
		return lang.Value{}, fmt.Errorf("unexpected )")
	case '}':
		return lang.Value{}, fmt.Errorf("unexpected }")
	default:
		rr.unread(r)
		return readAtom(rr)
	}
}

func readWrapped(rr *runeReader, sym string) (lang.Value, error) {
	expr, err := readExpr(rr)
	if err != nil {
		return lang.Value{}, err
	}
	return lang.List(lang.SymbolValue(sym), expr), nil
}

func readList(rr *runeReader) (lang.Value, error) {
	var elems []lang.Value
	for {
		if err := rr.skipWhitespace(); err != nil {
			if errors.Is(err, io.EOF) {
				return lang.Value{}, errors.New("unterminated list")
			}
			return lang.Value{}, err
		}
		r, err := rr.peek()
		if err != nil {
			return lang.Value{}, err
		}
		if r == ')' {
			if _, err := rr.read(); err != nil {
				return lang.Value{}, err
			}
			return lang.List(elems...), nil
		}
		elem, err := readExpr(rr)
		if err != nil {
			return lang.Value{}, err
		}
		elems = append(elems, elem)
	}
}

func readHash(rr *runeReader) (lang.Value, error) {
	entries := make(map[lang.Value]lang.Value)
	for {
		if err := rr.skipWhitespace(); err != nil {
			if errors.Is(err, io.EOF) {
				return lang.Value{}, errors.New("unterminated hash")
			}
			return lang.Value{}, err
		}
		r, err := rr.peek()
		if err != nil {
			return lang.Value{}, err
		}
		if r == '}' {
			if _, err := rr.read(); err != nil {
				return lang.Value{}, err
			}
			return lang.HashValue(entries), nil
		}
		key, err := readExpr(rr)
		if err != nil {
			return lang.Value{}, err
		}
		switch key.Type {
		case lang.TypePair, lang.TypeHash:
			return lang.Value{}, fmt.Errorf("hash key must be an atom, got %s", key)
		}
		if err := rr.skipWhitespace(); err != nil {
			if errors.Is(err, io.EOF) {
				return lang.Value{}, errors.New("unterminated hash")
			}
			return lang.Value{}, err
		}
		if r, err := rr.peek(); err == nil && r == '}' {
			return lang.Value{}, fmt.Errorf("hash literal needs a value for key %s", key)
		}
		val, err := readExpr(rr)
		if err != nil {
			return lang.Value{}, err
		}
		entries[key] = val
	}
}

func readString(rr *runeReader) (lang.Value, error) {
	var builder strings.Builder
	for {
		r, err := rr.read()
		if err != nil {
			return lang.Value{}, errors.New("unterminated string")
		}
		if r == '"' {
			break
		}
		if r == '\\' {
			esc, err := rr.read()
			if err != nil {
				return lang.Value{}, errors.New("unterminated escape sequence")
			}
			switch esc {
			case 'n':
				builder.WriteRune('\n')
			case 't':
				builder.WriteRune('\t')
			case '\\':
				builder.WriteRune('\\')
			case '"':
				builder.WriteRune('"')
			default:
				builder.WriteRune(esc)
			}
			continue
		}
		builder.WriteRune(r)
	}
	return lang.StringValue(builder.String()), nil
}

func isDelimiter(r rune) bool {
	return unicode.IsSpace(r) || r == ',' || r == '(' || r == ')' ||
		r == '{' || r == '}' || r == '"' || r == ';'
}

func readAtom(rr *runeReader) (lang.Value, error) {
	var builder strings.Builder
	for {
		r, err := rr.read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return lang.Value{}, err
		}
		if isDelimiter(r) {
			rr.unread(r)
			break
		}
		builder.WriteRune(r)
	}
	token := builder.String()
	if len(token) == 0 {
		return lang.Value{}, fmt.Errorf("unexpected token")
	}
	switch token {
	case "nil":
		return lang.NilValue, nil
	case "true":
		return lang.BoolValue(true), nil
	case "false":
		return lang.BoolValue(false), nil
	}
	if strings.HasPrefix(token, ":") && len(token) > 1 {
		return lang.KeywordValue(token), nil
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return lang.NumberValue(f), nil
	}
	return lang.SymbolValue(token), nil
}
