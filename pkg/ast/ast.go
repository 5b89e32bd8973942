// Package ast defines the parse tree produced by pkg/parser and consumed
// by the bytecode compiler. A script is a sequence of commands; a command
// is a sequence of words; a word is a sequence of component tokens that
// are concatenated after substitution.
package ast

// TokenKind identifies the role of a token within a word.
type TokenKind int

const (
	// SimpleWord is a word with no substitutions. Text holds the literal
	// value after brace/quote stripping.
	SimpleWord TokenKind = iota

	// Word is a compound word built from Children, concatenated after
	// each child is substituted.
	Word

	// Text is a literal run of characters inside a compound word.
	Text

	// Backslash is a backslash escape. Text holds the raw source form
	// and Value holds the single substituted string.
	Backslash

	// Command is a bracketed script substitution. Script holds the
	// nested parse tree.
	Command

	// Variable is a $name or $name(index) substitution. Text holds the
	// variable name; Children hold the index word tokens, if any.
	Variable
)

// String returns a human-readable name for a token kind.
func (k TokenKind) String() string {
	switch k {
	case SimpleWord:
		return "SimpleWord"
	case Word:
		return "Word"
	case Text:
		return "Text"
	case Backslash:
		return "Backslash"
	case Command:
		return "Command"
	case Variable:
		return "Variable"
	default:
		return "Unknown"
	}
}

// Token is one component of a word.
type Token struct {
	Kind     TokenKind
	Text     string  // literal text, variable name, or raw escape
	Value    string  // substituted form for Backslash tokens
	Line     int     // 1-based source line
	Children []Token // components of Word and Variable tokens
	Script   *Script // nested script for Command tokens
	Expand   bool    // word carries the {*} expansion prefix
}

// IsLiteral reports whether the token's value is known at compile time.
func (t *Token) IsLiteral() bool {
	switch t.Kind {
	case SimpleWord, Text:
		return true
	case Backslash:
		return true
	case Word:
		for i := range t.Children {
			if !t.Children[i].IsLiteral() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// LiteralValue returns the compile-time value of a literal token.
// Valid only when IsLiteral reports true.
func (t *Token) LiteralValue() string {
	switch t.Kind {
	case SimpleWord, Text:
		return t.Text
	case Backslash:
		return t.Value
	case Word:
		var s string
		for i := range t.Children {
			s += t.Children[i].LiteralValue()
		}
		return s
	default:
		return ""
	}
}

// CommandNode is one command invocation: a non-empty sequence of words.
// The first word names the command.
type CommandNode struct {
	Words []Token
	Line  int
}

// Script is a parsed script: a sequence of commands.
type Script struct {
	Commands []CommandNode
	Source   string // the original source text
}

// ExprKind identifies the shape of an expression node.
type ExprKind int

const (
	// ExprLeaf is a primary: a number, a quoted or braced string, a
	// variable or command substitution, or a bareword.
	ExprLeaf ExprKind = iota

	// ExprUnary applies Op to Operands[0].
	ExprUnary

	// ExprBinary applies Op to Operands[0] and Operands[1].
	ExprBinary

	// ExprAnd and ExprOr are the short-circuit logicals.
	ExprAnd
	ExprOr

	// ExprTernary is the ?: conditional over three operands.
	ExprTernary

	// ExprFunc is a math-function call Func(Operands...).
	ExprFunc
)

// Expr is a node of a parsed expression tree.
type Expr struct {
	Kind     ExprKind
	Op       string  // operator text for unary/binary nodes
	Func     string  // function name for ExprFunc nodes
	Operands []*Expr
	Word     *Token // the leaf token for ExprLeaf nodes
	Line     int
}
