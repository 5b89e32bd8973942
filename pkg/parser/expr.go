package parser

import (
	"fmt"

	"github.com/das/fen/pkg/ast"
)

// ParseExpr parses an expression into an operator tree. Substitution
// tokens inside the expression are carried through for the compiler.
func ParseExpr(src string) (*ast.Expr, error) {
	s := &scanner{src: src, line: 1}
	lx, err := lexExpr(s)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: lx, src: src}
	e, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, &SyntaxError{Line: p.cur().line, Msg: "extra tokens after expression"}
	}
	return e, nil
}

type exprTokKind int

const (
	tkValue exprTokKind = iota // leaf carried as an ast.Token
	tkOp                       // operator text
	tkName                     // bareword (function name or boolean)
	tkLParen
	tkRParen
	tkComma
	tkQuestion
	tkColon
	tkEnd
)

type exprTok struct {
	kind exprTokKind
	text string
	tok  ast.Token
	line int
}

func lexExpr(s *scanner) ([]exprTok, error) {
	var out []exprTok
	for {
		s.skipSpace()
		for !s.eof() && (s.peek() == '\n' || s.peek() == '\r') {
			s.next()
			s.skipSpace()
		}
		if s.eof() {
			out = append(out, exprTok{kind: tkEnd, line: s.line})
			return out, nil
		}
		line := s.line
		c := s.peek()
		switch {
		case c == '(':
			s.next()
			out = append(out, exprTok{kind: tkLParen, line: line})
		case c == ')':
			s.next()
			out = append(out, exprTok{kind: tkRParen, line: line})
		case c == ',':
			s.next()
			out = append(out, exprTok{kind: tkComma, line: line})
		case c == '?':
			s.next()
			out = append(out, exprTok{kind: tkQuestion, line: line})
		case c == ':':
			s.next()
			out = append(out, exprTok{kind: tkColon, line: line})
		case c == '$':
			tok, ok, err := s.parseVariable()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, s.errf("invalid character %q in expression", c)
			}
			out = append(out, exprTok{kind: tkValue, tok: tok, line: line})
		case c == '[':
			tok, err := s.parseCommandToken()
			if err != nil {
				return nil, err
			}
			out = append(out, exprTok{kind: tkValue, tok: tok, line: line})
		case c == '"':
			s.next()
			toks, err := s.parseTokens(func(b byte) bool { return b == '"' }, false)
			if err != nil {
				return nil, err
			}
			if s.eof() {
				return nil, &SyntaxError{Line: line, Msg: "missing close-quote"}
			}
			s.next()
			out = append(out, exprTok{kind: tkValue, tok: foldWord(toks, line), line: line})
		case c == '{':
			tok, err := s.parseBracedExprValue()
			if err != nil {
				return nil, err
			}
			out = append(out, exprTok{kind: tkValue, tok: tok, line: line})
		case c >= '0' && c <= '9', c == '.' && s.pos+1 < len(s.src) && isDigit(s.src[s.pos+1]):
			out = append(out, exprTok{kind: tkValue, tok: s.scanNumber(), line: line})
		case isExprNameStart(c):
			start := s.pos
			for !s.eof() && isVarNameChar(s.peek()) {
				s.next()
			}
			name := s.src[start:s.pos]
			switch name {
			case "eq", "ne", "in", "ni":
				out = append(out, exprTok{kind: tkOp, text: name, line: line})
			default:
				out = append(out, exprTok{kind: tkName, text: name, line: line})
			}
		default:
			op := s.scanOperator()
			if op == "" {
				return nil, s.errf("invalid character %q in expression", c)
			}
			out = append(out, exprTok{kind: tkOp, text: op, line: line})
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isExprNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// parseBracedExprValue parses a braced literal used as a value, without
// the word-boundary check script words require.
func (s *scanner) parseBracedExprValue() (ast.Token, error) {
	line := s.line
	s.next()
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
				return ast.Token{Kind: ast.SimpleWord, Text: s.src[start : s.pos-1], Line: line}, nil
			}
		}
	}
	return ast.Token{}, &SyntaxError{Line: line, Pos: s.pos, Msg: "missing close-brace"}
}

// scanNumber consumes an integer or floating-point literal. The text is
// kept verbatim; numeric interpretation happens at run time.
func (s *scanner) scanNumber() ast.Token {
	line := s.line
	start := s.pos
	hex := false
	if s.peek() == '0' && s.pos+1 < len(s.src) && (s.src[s.pos+1] == 'x' || s.src[s.pos+1] == 'X') {
		hex = true
		s.next()
		s.next()
	}
	for !s.eof() {
		c := s.peek()
		if isDigit(c) || c == '.' {
			s.next()
			continue
		}
		if hex && ((c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			s.next()
			continue
		}
		if !hex && (c == 'e' || c == 'E') {
			// Exponent, possibly signed.
			save := s.pos
			s.next()
			if !s.eof() && (s.peek() == '+' || s.peek() == '-') {
				s.next()
			}
			if s.eof() || !isDigit(s.peek()) {
				s.pos = save
				break
			}
			continue
		}
		break
	}
	return ast.Token{Kind: ast.SimpleWord, Text: s.src[start:s.pos], Line: line}
}

var exprOperators = []string{
	"**", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+", "-", "*", "/", "%", "<", ">", "&", "|", "^", "!", "~",
}

func (s *scanner) scanOperator() string {
	rest := s.src[s.pos:]
	for _, op := range exprOperators {
		if len(rest) >= len(op) && rest[:len(op)] == op {
			s.pos += len(op)
			return op
		}
	}
	return ""
}

type exprParser struct {
	toks []exprTok
	pos  int
	src  string
}

func (p *exprParser) cur() exprTok  { return p.toks[p.pos] }
func (p *exprParser) advance()      { p.pos++ }
func (p *exprParser) atEnd() bool   { return p.cur().kind == tkEnd }

func (p *exprParser) errf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: p.cur().line, Msg: fmt.Sprintf(format, args...)}
}

// binaryPrec maps operators to binding strength. Zero means the token is
// not a binary operator.
var binaryPrec = map[string]int{
	"||": 1, "&&": 2,
	"|": 3, "^": 4, "&": 5,
	"==": 6, "!=": 6, "eq": 6, "ne": 6, "in": 6, "ni": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
	"**": 11,
}

func (p *exprParser) parseTernary() (*ast.Expr, error) {
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tkQuestion {
		return cond, nil
	}
	line := p.cur().line
	p.advance()
	thenE, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tkColon {
		return nil, p.errf("missing ':' in conditional expression")
	}
	p.advance()
	elseE, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ast.Expr{Kind: ast.ExprTernary, Operands: []*ast.Expr{cond, thenE, elseE}, Line: line}, nil
}

func (p *exprParser) parseBinary(minPrec int) (*ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		if t.kind != tkOp {
			break
		}
		prec := binaryPrec[t.text]
		if prec == 0 || prec < minPrec {
			break
		}
		p.advance()
		// ** is right-associative; everything else binds left.
		nextMin := prec + 1
		if t.text == "**" {
			nextMin = prec
		}
		right, err := p.parseBinary(nextMin)
		if err != nil {
			return nil, err
		}
		switch t.text {
		case "&&":
			left = &ast.Expr{Kind: ast.ExprAnd, Operands: []*ast.Expr{left, right}, Line: t.line}
		case "||":
			left = &ast.Expr{Kind: ast.ExprOr, Operands: []*ast.Expr{left, right}, Line: t.line}
		default:
			left = &ast.Expr{Kind: ast.ExprBinary, Op: t.text, Operands: []*ast.Expr{left, right}, Line: t.line}
		}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (*ast.Expr, error) {
	t := p.cur()
	if t.kind == tkOp {
		switch t.text {
		case "!", "~", "+", "-":
			p.advance()
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &ast.Expr{Kind: ast.ExprUnary, Op: t.text, Operands: []*ast.Expr{operand}, Line: t.line}, nil
		}
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (*ast.Expr, error) {
	t := p.cur()
	switch t.kind {
	case tkValue:
		p.advance()
		tok := t.tok
		return &ast.Expr{Kind: ast.ExprLeaf, Word: &tok, Line: t.line}, nil
	case tkLParen:
		p.advance()
		inner, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tkRParen {
			return nil, p.errf("missing close-paren")
		}
		p.advance()
		return inner, nil
	case tkName:
		p.advance()
		if p.cur().kind == tkLParen {
			p.advance()
			call := &ast.Expr{Kind: ast.ExprFunc, Func: t.text, Line: t.line}
			if p.cur().kind == tkRParen {
				p.advance()
				return call, nil
			}
			for {
				arg, err := p.parseTernary()
				if err != nil {
					return nil, err
				}
				call.Operands = append(call.Operands, arg)
				if p.cur().kind == tkComma {
					p.advance()
					continue
				}
				break
			}
			if p.cur().kind != tkRParen {
				return nil, p.errf("missing close-paren in function call")
			}
			p.advance()
			return call, nil
		}
		if val, ok := booleanWord(t.text); ok {
			tok := ast.Token{Kind: ast.SimpleWord, Text: val, Line: t.line}
			return &ast.Expr{Kind: ast.ExprLeaf, Word: &tok, Line: t.line}, nil
		}
		return nil, &SyntaxError{Line: t.line, Msg: fmt.Sprintf("invalid bareword %q in expression", t.text)}
	default:
		return nil, p.errf("unexpected token in expression")
	}
}

// booleanWord maps a boolean bareword to its canonical numeric text.
// Only barewords normalize; quoted or braced strings keep their value.
func booleanWord(s string) (string, bool) {
	switch s {
	case "true", "yes", "on":
		return "1", true
	case "false", "no", "off":
		return "0", true
	}
	return "", false
}
