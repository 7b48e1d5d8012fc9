package jenkins

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/rendis/cigraph/pkg/schema"
)

// MaxFileSize is the largest pipeline script ParseFile accepts (1 MiB).
const MaxFileSize = 1024 * 1024

// Str is a string literal argument.
type Str struct {
	Text         string `json:"text"`
	Interpolated bool   `json:"interpolated,omitempty"`
}

// Arg is one call argument. Strings holds the literal value, or every
// element of a literal list; Expr holds the source of anything else.
type Arg struct {
	Key     string `json:"key,omitempty"`
	Strings []Str  `json:"strings,omitempty"`
	Expr    string `json:"expr,omitempty"`
}

// Literal reports whether the argument is made only of string literals.
func (a Arg) Literal() bool {
	return a.Expr == "" && len(a.Strings) > 0
}

// Call is an invocation of one of the steps that pull in other code:
// @Library, library, load and build.
type Call struct {
	Name       string `json:"name"`
	Annotation bool   `json:"annotation,omitempty"`
	Line       int    `json:"line"`
	Args       []Arg  `json:"args,omitempty"`
}

// Arg returns the named argument key, falling back to the first positional
// argument when key is absent.
func (c Call) Arg(key string) (Arg, bool) {
	for _, a := range c.Args {
		if a.Key == key {
			return a, true
		}
	}
	for _, a := range c.Args {
		if a.Key == "" {
			return a, true
		}
	}
	return Arg{}, false
}

// Script is a scanned Jenkinsfile or loaded Groovy file.
type Script struct {
	Path  string
	Calls []Call
}

// ParseFile reads and scans path. Errors follow yamldoc.ParseFile: NOT_FOUND,
// IO_ERROR, or PARSE_ERROR for oversized or lexically broken scripts.
func ParseFile(path string) (*Script, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, schema.NewError(schema.ErrCodeNotFound, "file does not exist").WithPath(path).WithCause(err)
		}
		return nil, schema.NewError(schema.ErrCodeIO, "cannot stat file").WithPath(path).WithCause(err)
	}
	if info.IsDir() {
		return nil, schema.NewError(schema.ErrCodeNotFound, "path is a directory").WithPath(path)
	}
	if info.Size() > MaxFileSize {
		return nil, schema.NewErrorf(schema.ErrCodeParse, "file is %d bytes, limit is %d", info.Size(), MaxFileSize).WithPath(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeIO, "cannot read file").WithPath(path).WithCause(err)
	}
	return Parse(data, path)
}

// Parse scans Groovy source and extracts the calls of interest in source
// order.
func Parse(data []byte, path string) (*Script, error) {
	toks, err := scan(string(data), path)
	if err != nil {
		return nil, err
	}
	return &Script{Path: path, Calls: extractCalls(toks)}, nil
}

// Value implements callgraph.Document.
func (s *Script) Value() any {
	calls := make([]any, 0, len(s.Calls))
	for _, c := range s.Calls {
		args := make([]any, 0, len(c.Args))
		for _, a := range c.Args {
			strs := make([]any, 0, len(a.Strings))
			for _, str := range a.Strings {
				strs = append(strs, map[string]any{"text": str.Text, "interpolated": str.Interpolated})
			}
			args = append(args, map[string]any{"key": a.Key, "strings": strs, "expr": a.Expr})
		}
		calls = append(calls, map[string]any{
			"name":       c.Name,
			"annotation": c.Annotation,
			"line":       c.Line,
			"args":       args,
		})
	}
	return map[string]any{"calls": calls}
}

var steps = map[string]bool{"library": true, "load": true, "build": true}

func extractCalls(toks []token) []Call {
	var calls []Call
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokIdent {
			continue
		}

		if t.text == "Library" && i > 0 && isPunct(toks[i-1], "@") {
			call := Call{Name: "Library", Annotation: true, Line: t.line}
			if i+1 < len(toks) && isPunct(toks[i+1], "(") {
				var end int
				call.Args, end = parenArgs(toks, i+1)
				i = end
			}
			calls = append(calls, call)
			continue
		}

		if !steps[t.text] || !callable(toks, i) {
			continue
		}
		call := Call{Name: t.text, Line: t.line}
		var end int
		if isPunct(toks[i+1], "(") {
			call.Args, end = parenArgs(toks, i+1)
		} else {
			call.Args, end = commandArgs(toks, i+1)
		}
		calls = append(calls, call)
		i = end
	}
	return calls
}

// callable reports whether toks[i] starts a step invocation rather than a
// method call on some object, a definition, or a plain identifier.
func callable(toks []token, i int) bool {
	if i > 0 {
		prev := toks[i-1]
		if isPunct(prev, ".") || (prev.kind == tokIdent && (prev.text == "def" || prev.text == "void")) {
			return false
		}
	}
	if i+1 >= len(toks) {
		return false
	}
	next := toks[i+1]
	switch {
	case isPunct(next, "("), next.kind == tokString:
		return true
	case next.kind == tokIdent && i+2 < len(toks) && isPunct(toks[i+2], ":"):
		return next.line == toks[i].line
	}
	return false
}

// parenArgs splits the tokens between toks[open] and its matching ")" on
// top-level commas. It returns the index of the closing parenthesis.
func parenArgs(toks []token, open int) ([]Arg, int) {
	depth := 0
	start := open + 1
	var args []Arg
	for j := open; j < len(toks); j++ {
		switch {
		case isOpen(toks[j]):
			depth++
		case isClose(toks[j]):
			depth--
			if depth == 0 {
				if j > start {
					args = append(args, toArg(toks[start:j]))
				}
				return args, j
			}
		case depth == 1 && isPunct(toks[j], ","):
			args = append(args, toArg(toks[start:j]))
			start = j + 1
		}
	}
	return args, len(toks) - 1
}

// commandArgs collects Groovy command-expression arguments: comma-separated
// and ending at the end of the line unless the line ends with a comma.
func commandArgs(toks []token, first int) ([]Arg, int) {
	depth := 0
	start := first
	var args []Arg
	j := first
	for ; j < len(toks); j++ {
		t := toks[j]
		if depth == 0 && j > first {
			prev := toks[j-1]
			if t.line != prev.line && !isPunct(prev, ",") {
				break
			}
			if isPunct(t, ";") || isClose(t) {
				break
			}
		}
		switch {
		case isOpen(t):
			depth++
		case isClose(t):
			depth--
		case depth == 0 && isPunct(t, ","):
			args = append(args, toArg(toks[start:j]))
			start = j + 1
		}
	}
	if j > start {
		args = append(args, toArg(toks[start:j]))
	}
	return args, j - 1
}

func toArg(toks []token) Arg {
	var a Arg
	if len(toks) >= 2 && toks[0].kind == tokIdent && isPunct(toks[1], ":") {
		a.Key = toks[0].text
		toks = toks[2:]
	}
	switch {
	case len(toks) == 1 && toks[0].kind == tokString:
		a.Strings = []Str{{Text: toks[0].text, Interpolated: toks[0].interpolated}}
	case len(toks) >= 2 && isPunct(toks[0], "[") && isPunct(toks[len(toks)-1], "]") && stringList(toks[1:len(toks)-1]):
		for _, t := range toks[1 : len(toks)-1] {
			if t.kind == tokString {
				a.Strings = append(a.Strings, Str{Text: t.text, Interpolated: t.interpolated})
			}
		}
	default:
		a.Expr = render(toks)
	}
	return a
}

// stringList reports whether toks is `'a', 'b', ...` with optional
// trailing comma.
func stringList(toks []token) bool {
	for k, t := range toks {
		if k%2 == 0 && t.kind != tokString {
			return false
		}
		if k%2 == 1 && !isPunct(t, ",") {
			return false
		}
	}
	return len(toks) > 0
}

func render(toks []token) string {
	parts := make([]string, 0, len(toks))
	for _, t := range toks {
		if t.kind == tokString {
			parts = append(parts, `"`+t.text+`"`)
			continue
		}
		parts = append(parts, t.text)
	}
	return strings.Join(parts, " ")
}

func isPunct(t token, p string) bool { return t.kind == tokPunct && t.text == p }

func isOpen(t token) bool {
	return t.kind == tokPunct && (t.text == "(" || t.text == "[" || t.text == "{")
}

func isClose(t token) bool {
	return t.kind == tokPunct && (t.text == ")" || t.text == "]" || t.text == "}")
}
