package jenkins

import (
	"strings"

	"github.com/rendis/cigraph/pkg/schema"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokPunct
	tokOther
)

type token struct {
	kind tokenKind
	text string
	line int
	// interpolated is set for double-quoted strings containing $ expressions.
	interpolated bool
}

// scanner splits Groovy source into identifiers, string literals and
// punctuation. It understands enough of the lexical grammar (comments, the
// quote styles including slashy and dollar-slashy strings, escapes, bracket
// nesting) to find calls reliably; it does not parse expressions.
type scanner struct {
	src    string
	path   string
	pos    int
	line   int
	tokens []token
	stack  []bracket
}

type bracket struct {
	open byte
	line int
}

var closing = map[byte]byte{')': '(', ']': '[', '}': '{'}

func scan(src, path string) ([]token, error) {
	s := &scanner{src: src, path: path, line: 1}
	if strings.HasPrefix(src, "#!") {
		s.skipLine()
	}
	for s.pos < len(s.src) {
		if err := s.next(); err != nil {
			return nil, err
		}
	}
	if n := len(s.stack); n > 0 {
		return nil, s.errorf(s.stack[n-1].line, "unclosed %q", s.stack[n-1].open)
	}
	return s.tokens, nil
}

func (s *scanner) next() error {
	c := s.src[s.pos]
	switch {
	case c == '\n':
		s.line++
		s.pos++
	case c == ' ' || c == '\t' || c == '\r':
		s.pos++
	case strings.HasPrefix(s.src[s.pos:], "//"):
		s.skipLine()
	case strings.HasPrefix(s.src[s.pos:], "/*"):
		return s.blockComment()
	case strings.HasPrefix(s.src[s.pos:], `'''`), strings.HasPrefix(s.src[s.pos:], `"""`):
		return s.str(s.src[s.pos:s.pos+3], true)
	case c == '\'' || c == '"':
		return s.str(string(c), false)
	case strings.HasPrefix(s.src[s.pos:], "$/") && s.operandExpected():
		return s.dollarSlashy()
	case c == '/' && s.operandExpected():
		return s.slashy()
	case isIdentStart(c):
		start := s.pos
		for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
			s.pos++
		}
		s.emit(token{kind: tokIdent, text: s.src[start:s.pos], line: s.line})
	case c >= '0' && c <= '9':
		start := s.pos
		for s.pos < len(s.src) && (isIdentPart(s.src[s.pos]) || s.src[s.pos] == '.') {
			s.pos++
		}
		s.emit(token{kind: tokOther, text: s.src[start:s.pos], line: s.line})
	default:
		if err := s.bracket(c); err != nil {
			return err
		}
		s.emit(token{kind: tokPunct, text: string(c), line: s.line})
		s.pos++
	}
	return nil
}

func (s *scanner) bracket(c byte) error {
	switch c {
	case '(', '[', '{':
		s.stack = append(s.stack, bracket{open: c, line: s.line})
	case ')', ']', '}':
		n := len(s.stack)
		if n == 0 || s.stack[n-1].open != closing[c] {
			return s.errorf(s.line, "unbalanced %q", c)
		}
		s.stack = s.stack[:n-1]
	}
	return nil
}

func (s *scanner) skipLine() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *scanner) blockComment() error {
	start := s.line
	end := strings.Index(s.src[s.pos+2:], "*/")
	if end < 0 {
		return s.errorf(start, "unterminated block comment")
	}
	body := s.src[s.pos : s.pos+2+end+2]
	s.line += strings.Count(body, "\n")
	s.pos += len(body)
	return nil
}

// str consumes a string literal opened by quote. Single-line literals may
// not contain raw newlines.
func (s *scanner) str(quote string, multiline bool) error {
	start := s.line
	s.pos += len(quote)
	var b strings.Builder
	interpolated := false
	double := quote[0] == '"'

	for {
		if s.pos >= len(s.src) {
			return s.errorf(start, "unterminated string")
		}
		if strings.HasPrefix(s.src[s.pos:], quote) {
			s.pos += len(quote)
			break
		}
		c := s.src[s.pos]
		switch {
		case c == '\\' && s.pos+1 < len(s.src):
			b.WriteByte(unescape(s.src[s.pos+1]))
			if s.src[s.pos+1] == '\n' {
				s.line++
			}
			s.pos += 2
			continue
		case c == '\n':
			if !multiline {
				return s.errorf(start, "unterminated string")
			}
			s.line++
		case c == '$' && double && s.interpolationAt(s.pos):
			interpolated = true
		}
		b.WriteByte(c)
		s.pos++
	}
	s.emit(token{kind: tokString, text: b.String(), line: start, interpolated: interpolated})
	return nil
}

// slashyKeywords are the identifiers after which a '/' opens a slashy
// string rather than dividing.
var slashyKeywords = map[string]bool{
	"return": true, "in": true, "case": true, "assert": true, "throw": true, "else": true,
}

// operandExpected reports whether the next token starts an operand: at the
// start of input, after an operator or opening bracket, or after a keyword.
// After an identifier, literal or closing bracket a '/' is division.
func (s *scanner) operandExpected() bool {
	if len(s.tokens) == 0 {
		return true
	}
	prev := s.tokens[len(s.tokens)-1]
	switch prev.kind {
	case tokPunct:
		return prev.text != ")" && prev.text != "]" && prev.text != "}"
	case tokIdent:
		return slashyKeywords[prev.text]
	default:
		return false
	}
}

// slashy consumes /.../. Only \/ is an escape; slashy strings may span
// lines and interpolate.
func (s *scanner) slashy() error {
	start := s.line
	s.pos++
	var b strings.Builder
	interpolated := false

	for {
		if s.pos >= len(s.src) {
			return s.errorf(start, "unterminated slashy string")
		}
		c := s.src[s.pos]
		switch {
		case c == '/':
			s.pos++
			s.emit(token{kind: tokString, text: b.String(), line: start, interpolated: interpolated})
			return nil
		case c == '\\' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/':
			b.WriteByte('/')
			s.pos += 2
			continue
		case c == '\n':
			s.line++
		case c == '$' && s.interpolationAt(s.pos):
			interpolated = true
		}
		b.WriteByte(c)
		s.pos++
	}
}

// dollarSlashy consumes $/.../$, where $$ and $/ escape a dollar and a
// slash.
func (s *scanner) dollarSlashy() error {
	start := s.line
	s.pos += 2
	var b strings.Builder
	interpolated := false

	for {
		if s.pos >= len(s.src) {
			return s.errorf(start, "unterminated dollar-slashy string")
		}
		rest := s.src[s.pos:]
		switch {
		case strings.HasPrefix(rest, "/$"):
			s.pos += 2
			s.emit(token{kind: tokString, text: b.String(), line: start, interpolated: interpolated})
			return nil
		case strings.HasPrefix(rest, "$$"), strings.HasPrefix(rest, "$/"):
			b.WriteByte(rest[1])
			s.pos += 2
			continue
		case rest[0] == '\n':
			s.line++
		case rest[0] == '$' && s.interpolationAt(s.pos):
			interpolated = true
		}
		b.WriteByte(rest[0])
		s.pos++
	}
}

// interpolationAt reports whether the '$' at i starts a GString expression.
func (s *scanner) interpolationAt(i int) bool {
	return i+1 < len(s.src) && (s.src[i+1] == '{' || isIdentStart(s.src[i+1]))
}

func (s *scanner) emit(t token) {
	s.tokens = append(s.tokens, t)
}

func (s *scanner) errorf(line int, format string, args ...any) error {
	return schema.NewErrorf(schema.ErrCodeParse, format, args...).
		WithPath(s.path).
		WithDetails(map[string]any{"line": line})
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
