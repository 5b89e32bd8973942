package parser

import (
	"strings"
	"testing"

	"github.com/das/fen/pkg/ast"
)

func TestParseSimpleCommand(t *testing.T) {
	script, err := Parse("set x 10")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(script.Commands) != 1 {
		t.Fatalf("got %d commands, want 1", len(script.Commands))
	}
	words := script.Commands[0].Words
	if len(words) != 3 {
		t.Fatalf("got %d words, want 3", len(words))
	}
	for i, want := range []string{"set", "x", "10"} {
		if words[i].Kind != ast.SimpleWord || words[i].Text != want {
			t.Errorf("word %d = %v %q, want SimpleWord %q", i, words[i].Kind, words[i].Text, want)
		}
	}
}

func TestParseCommandSeparators(t *testing.T) {
	tests := []struct {
		src  string
		want int
	}{
		{"a; b; c", 3},
		{"a\nb\nc", 3},
		{"a;;b", 2},
		{"\n\n", 0},
		{"a \\\n b", 1},
		{"# comment\na", 1},
		{"a ;# trailing\nb", 2},
	}
	for _, tt := range tests {
		script, err := Parse(tt.src)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.src, err)
			continue
		}
		if len(script.Commands) != tt.want {
			t.Errorf("Parse(%q) = %d commands, want %d", tt.src, len(script.Commands), tt.want)
		}
	}
}

func TestParseBracedWord(t *testing.T) {
	script, err := Parse(`set x {a $b [c] {nested}}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w := script.Commands[0].Words[2]
	if w.Kind != ast.SimpleWord {
		t.Fatalf("kind = %v, want SimpleWord", w.Kind)
	}
	if w.Text != "a $b [c] {nested}" {
		t.Errorf("text = %q", w.Text)
	}
}

func TestParseQuotedWordSubstitutions(t *testing.T) {
	script, err := Parse(`puts "x=$x y=[get y]\n"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w := script.Commands[0].Words[1]
	if w.Kind != ast.Word {
		t.Fatalf("kind = %v, want Word", w.Kind)
	}
	kinds := make([]ast.TokenKind, len(w.Children))
	for i, ch := range w.Children {
		kinds[i] = ch.Kind
	}
	want := []ast.TokenKind{ast.Text, ast.Variable, ast.Text, ast.Command, ast.Backslash}
	if len(kinds) != len(want) {
		t.Fatalf("children = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("child %d = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestParseVariableForms(t *testing.T) {
	tests := []struct {
		src      string
		wantName string
		indexed  bool
	}{
		{"$abc", "abc", false},
		{"${weird name}", "weird name", false},
		{"$::global::x", "::global::x", false},
		{"$arr(key)", "arr", true},
	}
	for _, tt := range tests {
		script, err := Parse("puts " + tt.src)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.src, err)
			continue
		}
		w := script.Commands[0].Words[1]
		var v ast.Token
		switch w.Kind {
		case ast.Variable:
			v = w
		case ast.Word:
			v = w.Children[0]
		default:
			t.Errorf("%q: word kind = %v", tt.src, w.Kind)
			continue
		}
		if v.Text != tt.wantName {
			t.Errorf("%q: name = %q, want %q", tt.src, v.Text, tt.wantName)
		}
		if tt.indexed && len(v.Children) == 0 {
			t.Errorf("%q: expected index tokens", tt.src)
		}
	}
}

func TestParseDollarNotFollowedByName(t *testing.T) {
	script, err := Parse(`puts "a$ b"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w := script.Commands[0].Words[1]
	if got := w.LiteralValue(); got != "a$ b" {
		t.Errorf("literal = %q, want %q", got, "a$ b")
	}
}

func TestParseCommandSubstitution(t *testing.T) {
	script, err := Parse("set x [expr {1 + 2}]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w := script.Commands[0].Words[2]
	if w.Kind != ast.Command {
		t.Fatalf("kind = %v, want Command", w.Kind)
	}
	if w.Script == nil || len(w.Script.Commands) != 1 {
		t.Fatalf("nested script missing")
	}
	if w.Script.Commands[0].Words[0].Text != "expr" {
		t.Errorf("nested command = %q", w.Script.Commands[0].Words[0].Text)
	}
}

func TestParseExpandPrefix(t *testing.T) {
	script, err := Parse("cmd {*}$args last")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	w := script.Commands[0].Words[1]
	if !w.Expand {
		t.Errorf("expected Expand on word %q", w.Text)
	}
	if script.Commands[0].Words[2].Expand {
		t.Errorf("unexpected Expand on final word")
	}
}

func TestParseBackslashEscapes(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`\n`, "\n"},
		{`\t`, "\t"},
		{`\x41`, "A"},
		{`é`, "é"},
		{`\101`, "A"},
		{`\q`, "q"},
	}
	for _, tt := range tests {
		script, err := Parse(`set x "` + tt.src + `"`)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.src, err)
			continue
		}
		w := script.Commands[0].Words[2]
		if got := w.LiteralValue(); got != tt.want {
			t.Errorf("escape %q = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{"set x {unclosed", "missing close-brace"},
		{`set x "unclosed`, "missing close-quote"},
		{"set x [unclosed", "missing close-bracket"},
		{"set x {a}b", "extra characters after close-brace"},
	}
	for _, tt := range tests {
		_, err := Parse(tt.src)
		if err == nil {
			t.Errorf("Parse(%q): expected error", tt.src)
			continue
		}
		if !strings.Contains(err.Error(), tt.msg) {
			t.Errorf("Parse(%q) = %q, want substring %q", tt.src, err, tt.msg)
		}
	}
}

func TestParseLineNumbers(t *testing.T) {
	script, err := Parse("a\nb\n\nc")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	wantLines := []int{1, 2, 4}
	for i, want := range wantLines {
		if got := script.Commands[i].Line; got != want {
			t.Errorf("command %d line = %d, want %d", i, got, want)
		}
	}
}
