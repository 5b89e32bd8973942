// Package parser turns command-language source into pkg/ast parse trees.
// It performs no substitution itself: variable, command, and backslash
// substitutions are represented as tokens for the compiler to resolve.
package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/das/fen/pkg/ast"
)

// SyntaxError reports a parse failure with its source position.
type SyntaxError struct {
	Line int
	Pos  int // byte offset into the source
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse parses a complete script.
func Parse(src string) (*ast.Script, error) {
	s := &scanner{src: src, line: 1}
	script, err := s.parseScript(false)
	if err != nil {
		return nil, err
	}
	if !s.eof() {
		return nil, s.errf("unexpected %q", s.peek())
	}
	return script, nil
}

type scanner struct {
	src  string
	pos  int
	line int
}

func (s *scanner) errf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: s.line, Pos: s.pos, Msg: fmt.Sprintf(format, args...)}
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

// skipSpace consumes spaces, tabs, and backslash-newline continuations.
// It does not consume command separators.
func (s *scanner) skipSpace() {
	for !s.eof() {
		c := s.peek()
		if c == ' ' || c == '\t' || c == '\r' {
			s.pos++
			continue
		}
		if c == '\\' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '\n' {
			s.pos += 2
			s.line++
			for !s.eof() && (s.peek() == ' ' || s.peek() == '\t') {
				s.pos++
			}
			continue
		}
		return
	}
}

// parseScript parses commands until end of input, or until an unconsumed
// ']' when nested inside a command substitution.
func (s *scanner) parseScript(nested bool) (*ast.Script, error) {
	start := s.pos
	script := &ast.Script{}
	for {
		s.skipSpace()
		if s.eof() {
			break
		}
		c := s.peek()
		if c == '\n' || c == ';' {
			s.next()
			continue
		}
		if nested && c == ']' {
			break
		}
		if c == '#' {
			s.skipComment()
			continue
		}
		cmd, err := s.parseCommand(nested)
		if err != nil {
			return nil, err
		}
		if len(cmd.Words) > 0 {
			script.Commands = append(script.Commands, cmd)
		}
	}
	script.Source = s.src[start:s.pos]
	return script, nil
}

func (s *scanner) next() byte {
	c := s.src[s.pos]
	s.pos++
	if c == '\n' {
		s.line++
	}
	return c
}

func (s *scanner) skipComment() {
	for !s.eof() {
		c := s.next()
		if c == '\n' {
			return
		}
		// A backslash-newline continues the comment.
		if c == '\\' && !s.eof() && s.peek() == '\n' {
			s.next()
		}
	}
}

// parseCommand parses one command: words up to a separator.
func (s *scanner) parseCommand(nested bool) (ast.CommandNode, error) {
	cmd := ast.CommandNode{Line: s.line}
	for {
		s.skipSpace()
		if s.eof() {
			return cmd, nil
		}
		c := s.peek()
		if c == '\n' || c == ';' {
			s.next()
			return cmd, nil
		}
		if nested && c == ']' {
			return cmd, nil
		}
		word, err := s.parseWord(nested)
		if err != nil {
			return cmd, err
		}
		cmd.Words = append(cmd.Words, word)
	}
}

func isWordEnd(c byte, nested bool) bool {
	switch c {
	case ' ', '\t', '\r', '\n', ';':
		return true
	case ']':
		return nested
	}
	return false
}

func (s *scanner) parseWord(nested bool) (ast.Token, error) {
	expand := false
	if strings.HasPrefix(s.src[s.pos:], "{*}") && s.pos+3 < len(s.src) && !isWordEnd(s.src[s.pos+3], nested) {
		s.pos += 3
		expand = true
	}
	var tok ast.Token
	var err error
	switch s.peek() {
	case '{':
		tok, err = s.parseBracedWord(nested)
	case '"':
		tok, err = s.parseQuotedWord(nested)
	default:
		tok, err = s.parseBareWord(nested)
	}
	tok.Expand = expand
	return tok, err
}

// parseBracedWord parses {...}. Braces nest; no substitutions are
// performed inside. A backslash-newline is the only escape honored, and
// only for brace counting.
func (s *scanner) parseBracedWord(nested bool) (ast.Token, error) {
	line := s.line
	s.next() // consume '{'
	start := s.pos
	depth := 1
	for !s.eof() {
		c := s.next()
		switch c {
		case '\\':
			if !s.eof() {
				s.next()
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				text := s.src[start : s.pos-1]
				if !s.eof() && !isWordEnd(s.peek(), nested) {
					return ast.Token{}, s.errf("extra characters after close-brace")
				}
				return ast.Token{Kind: ast.SimpleWord, Text: text, Line: line}, nil
			}
		}
	}
	return ast.Token{}, &SyntaxError{Line: line, Pos: s.pos, Msg: "missing close-brace"}
}

// parseQuotedWord parses "..." with substitutions.
func (s *scanner) parseQuotedWord(nested bool) (ast.Token, error) {
	line := s.line
	s.next() // consume '"'
	toks, err := s.parseTokens(func(c byte) bool { return c == '"' }, false)
	if err != nil {
		return ast.Token{}, err
	}
	if s.eof() {
		return ast.Token{}, &SyntaxError{Line: line, Pos: s.pos, Msg: "missing close-quote"}
	}
	s.next() // consume '"'
	if !s.eof() && !isWordEnd(s.peek(), nested) {
		return ast.Token{}, s.errf("extra characters after close-quote")
	}
	return foldWord(toks, line), nil
}

func (s *scanner) parseBareWord(nested bool) (ast.Token, error) {
	line := s.line
	toks, err := s.parseTokens(func(c byte) bool { return isWordEnd(c, nested) }, nested)
	if err != nil {
		return ast.Token{}, err
	}
	if len(toks) == 0 {
		return ast.Token{}, s.errf("empty word")
	}
	return foldWord(toks, line), nil
}

// foldWord collapses a token run into a single word token: a lone
// literal becomes a SimpleWord, a lone substitution stays itself, and
// only a genuine mix becomes a compound Word.
func foldWord(toks []ast.Token, line int) ast.Token {
	if len(toks) == 1 {
		t := toks[0]
		switch t.Kind {
		case ast.Text:
			return ast.Token{Kind: ast.SimpleWord, Text: t.Text, Line: line}
		case ast.Backslash:
			return ast.Token{Kind: ast.SimpleWord, Text: t.Value, Line: line}
		default:
			return t
		}
	}
	if len(toks) == 0 {
		return ast.Token{Kind: ast.SimpleWord, Text: "", Line: line}
	}
	return ast.Token{Kind: ast.Word, Line: line, Children: toks}
}

// parseTokens scans substitution tokens until the terminator predicate
// matches at the top level.
func (s *scanner) parseTokens(term func(byte) bool, nested bool) ([]ast.Token, error) {
	var toks []ast.Token
	textStart := s.pos
	textLine := s.line
	flush := func(end int) {
		if end > textStart {
			toks = append(toks, ast.Token{Kind: ast.Text, Text: s.src[textStart:end], Line: textLine})
		}
	}
	for !s.eof() {
		c := s.peek()
		if term(c) {
			flush(s.pos)
			return toks, nil
		}
		switch c {
		case '$':
			mark := s.pos
			tok, ok, err := s.parseVariable()
			if err != nil {
				return nil, err
			}
			if ok {
				flush(mark)
				toks = append(toks, tok)
				textStart = s.pos
				textLine = s.line
			} else {
				// A lone '$' is ordinary text.
				s.next()
			}
		case '[':
			flush(s.pos)
			tok, err := s.parseCommandToken()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			textStart = s.pos
			textLine = s.line
		case '\\':
			flush(s.pos)
			tok, err := s.parseBackslash()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			textStart = s.pos
			textLine = s.line
		default:
			s.next()
		}
	}
	flush(s.pos)
	return toks, nil
}

// parseCommandToken parses a [script] substitution.
func (s *scanner) parseCommandToken() (ast.Token, error) {
	line := s.line
	s.next() // consume '['
	script, err := s.parseScript(true)
	if err != nil {
		return ast.Token{}, err
	}
	if s.eof() || s.peek() != ']' {
		return ast.Token{}, &SyntaxError{Line: line, Pos: s.pos, Msg: "missing close-bracket"}
	}
	s.next() // consume ']'
	return ast.Token{Kind: ast.Command, Line: line, Script: script}, nil
}

func isVarNameChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// parseVariable parses $name, ${name}, or $name(index). Returns ok=false
// when the '$' is not followed by a variable name.
func (s *scanner) parseVariable() (ast.Token, bool, error) {
	line := s.line
	mark := s.pos
	s.next() // consume '$'
	if s.eof() {
		s.pos = mark
		return ast.Token{}, false, nil
	}
	if s.peek() == '{' {
		s.next()
		start := s.pos
		for !s.eof() && s.peek() != '}' {
			s.next()
		}
		if s.eof() {
			return ast.Token{}, false, &SyntaxError{Line: line, Pos: s.pos, Msg: "missing close-brace for variable name"}
		}
		name := s.src[start:s.pos]
		s.next() // consume '}'
		return ast.Token{Kind: ast.Variable, Text: name, Line: line}, true, nil
	}
	start := s.pos
	for !s.eof() {
		c := s.peek()
		if isVarNameChar(c) {
			s.next()
			continue
		}
		// "::" namespace separators are part of the name.
		if c == ':' && s.pos+1 < len(s.src) && s.src[s.pos+1] == ':' {
			s.pos += 2
			continue
		}
		break
	}
	if s.pos == start {
		s.pos = mark
		return ast.Token{}, false, nil
	}
	name := s.src[start:s.pos]
	tok := ast.Token{Kind: ast.Variable, Text: name, Line: line}
	if !s.eof() && s.peek() == '(' {
		s.next()
		idx, err := s.parseTokens(func(c byte) bool { return c == ')' }, false)
		if err != nil {
			return ast.Token{}, false, err
		}
		if s.eof() {
			return ast.Token{}, false, &SyntaxError{Line: line, Pos: s.pos, Msg: "missing close-paren for array element"}
		}
		s.next() // consume ')'
		tok.Children = idx
	}
	return tok, true, nil
}

// parseBackslash parses one backslash escape sequence.
func (s *scanner) parseBackslash() (ast.Token, error) {
	line := s.line
	start := s.pos
	s.next() // consume '\'
	if s.eof() {
		return ast.Token{Kind: ast.Backslash, Text: "\\", Value: "\\", Line: line}, nil
	}
	c := s.next()
	var val string
	switch c {
	case 'a':
		val = "\a"
	case 'b':
		val = "\b"
	case 'f':
		val = "\f"
	case 'n':
		val = "\n"
	case 'r':
		val = "\r"
	case 't':
		val = "\t"
	case 'v':
		val = "\v"
	case '\n':
		// Backslash-newline plus following whitespace collapses to a
		// single space.
		for !s.eof() && (s.peek() == ' ' || s.peek() == '\t') {
			s.pos++
		}
		val = " "
	case 'x':
		val = s.scanHex(2)
	case 'u':
		val = s.scanUnicode(4)
	case 'U':
		val = s.scanUnicode(8)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := int(c - '0')
		for i := 0; i < 2 && !s.eof(); i++ {
			d := s.peek()
			if d < '0' || d > '7' {
				break
			}
			n = n*8 + int(d-'0')
			s.next()
		}
		val = string(rune(n))
	default:
		val = string(c)
	}
	return ast.Token{Kind: ast.Backslash, Text: s.src[start:s.pos], Value: val, Line: line}, nil
}

func (s *scanner) scanHex(max int) string {
	n := 0
	seen := 0
	for seen < max && !s.eof() {
		d, ok := hexVal(s.peek())
		if !ok {
			break
		}
		n = n*16 + d
		s.next()
		seen++
	}
	if seen == 0 {
		return "x"
	}
	return string(rune(n))
}

func (s *scanner) scanUnicode(max int) string {
	n := 0
	seen := 0
	for seen < max && !s.eof() {
		d, ok := hexVal(s.peek())
		if !ok {
			break
		}
		n = n*16 + d
		s.next()
		seen++
	}
	if seen == 0 {
		if max == 4 {
			return "u"
		}
		return "U"
	}
	if n > utf8.MaxRune {
		n = 0xFFFD
	}
	return string(rune(n))
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}
