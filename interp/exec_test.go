package interp

import (
	"strings"
	"testing"
)

func evalOK(t *testing.T, i *Interp, script string) string {
	t.Helper()
	if code := i.Eval(script); code != ResultOK {
		t.Fatalf("eval %q: code %v, result %q", script, code, i.Result().String())
	}
	return i.Result().String()
}

func TestExprArithmetic(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"1 / 2", "0"},
		{"1 / 2.0", "0.5"},
		{"-7 / 2", "-4"},
		{"-7 % 2", "1"},
		{"7 % -2", "-1"},
		{"2 ** 10", "1024"},
		{"2 ** -1", "0.5"},
		{"1 << 4", "16"},
		{"255 >> 4", "15"},
		{"7 & 3", "3"},
		{"5 | 2", "7"},
		{"5 ^ 1", "4"},
		{"~0", "-1"},
		{"-5", "-5"},
		{"+5", "5"},
		{"!0", "1"},
		{"!7", "0"},
		{"3 > 2", "1"},
		{"3 < 2", "0"},
		{"2 <= 2", "1"},
		{"2 >= 3", "0"},
		{"2 == 2.0", "1"},
		{"2 != 2", "0"},
		{"{abc} eq {abc}", "1"},
		{"{abc} ne {abd}", "1"},
		{"{10} eq {10.0}", "0"},
		{"{b} in {a b c}", "1"},
		{"{d} ni {a b c}", "1"},
		{"1 ? {a} : {b}", "a"},
		{"0 ? {a} : {b}", "b"},
		{"true", "1"},
		{"off", "0"},
		{"!true", "0"},
		{"yes && on", "1"},
		{"0x1F + 1", "32"},
		{"1.5e2", "150.0"},
	}
	for _, tt := range tests {
		i := New()
		got := evalOK(t, i, "expr {"+tt.expr+"}")
		if got != tt.want {
			t.Errorf("expr %s = %q, want %q", tt.expr, got, tt.want)
		}
		i.Close()
	}
}

func TestExprDivideByZero(t *testing.T) {
	i := New()
	defer i.Close()
	if code := i.Eval("expr {1 / 0}"); code != ResultError {
		t.Fatalf("1/0: code %v, want error", code)
	}
	if !strings.Contains(i.Result().String(), "divide by zero") {
		t.Errorf("1/0 result = %q", i.Result().String())
	}
}

func TestExprShortCircuit(t *testing.T) {
	i := New()
	defer i.Close()
	if got := evalOK(t, i, "expr {0 && [error boom]}"); got != "0" {
		t.Errorf("0 && [error] = %q, want 0", got)
	}
	if got := evalOK(t, i, "expr {1 || [error boom]}"); got != "1" {
		t.Errorf("1 || [error] = %q, want 1", got)
	}
	// The right side runs when the left does not decide.
	evalOK(t, i, "set ran 0")
	if got := evalOK(t, i, "expr {1 && [set ran 1]}"); got != "1" {
		t.Errorf("1 && [set ran 1] = %q, want 1", got)
	}
	if got := evalOK(t, i, "set ran"); got != "1" {
		t.Errorf("ran = %q, want 1", got)
	}
}

func TestExprMathFuncs(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"sqrt(16)", "4.0"},
		{"abs(-5)", "5"},
		{"abs(-2.5)", "2.5"},
		{"int(3.9)", "3"},
		{"double(2)", "2.0"},
		{"round(2.6)", "3"},
		{"pow(2, 3)", "8.0"},
		{"max(3, 9, 1)", "9"},
		{"min(3, 9, 1)", "1"},
		{"min(1.5, 2)", "1.5"},
		{"floor(2.7)", "2.0"},
		{"ceil(2.1)", "3.0"},
		{"fmod(7.5, 2)", "1.5"},
	}
	for _, tt := range tests {
		i := New()
		got := evalOK(t, i, "expr {"+tt.expr+"}")
		if got != tt.want {
			t.Errorf("expr %s = %q, want %q", tt.expr, got, tt.want)
		}
		i.Close()
	}
}

func TestExprCustomMathFunc(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, "proc ::tcl::mathfunc::twice {x} { expr {$x * 2} }")
	if got := evalOK(t, i, "expr {twice(21)}"); got != "42" {
		t.Errorf("twice(21) = %q, want 42", got)
	}
}

func TestSetGetUnset(t *testing.T) {
	i := New()
	defer i.Close()
	if got := evalOK(t, i, "set x 5"); got != "5" {
		t.Errorf("set x 5 = %q", got)
	}
	if got := evalOK(t, i, "set x"); got != "5" {
		t.Errorf("set x = %q", got)
	}
	evalOK(t, i, "unset x")
	if code := i.Eval("set x"); code != ResultError {
		t.Fatalf("reading unset var: code %v", code)
	}
	if !strings.Contains(i.Result().String(), "no such variable") {
		t.Errorf("unset read result = %q", i.Result().String())
	}
}

func TestArrayVars(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, "set a(one) 1")
	evalOK(t, i, "set a(two) 2")
	if got := evalOK(t, i, "set a(one)"); got != "1" {
		t.Errorf("a(one) = %q", got)
	}
	if got := evalOK(t, i, `expr {$a(one) + $a(two)}`); got != "3" {
		t.Errorf("a(one)+a(two) = %q", got)
	}
}

func TestIncr(t *testing.T) {
	i := New()
	defer i.Close()
	if got := evalOK(t, i, "incr fresh"); got != "1" {
		t.Errorf("incr fresh = %q, want 1", got)
	}
	if got := evalOK(t, i, "incr fresh 10"); got != "11" {
		t.Errorf("incr fresh 10 = %q, want 11", got)
	}
	if got := evalOK(t, i, "incr fresh -1"); got != "10" {
		t.Errorf("incr fresh -1 = %q, want 10", got)
	}
}

func TestAppend(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, "append s abc")
	evalOK(t, i, "append s def ghi")
	if got := evalOK(t, i, "set s"); got != "abcdefghi" {
		t.Errorf("s = %q", got)
	}
}

func TestIfElse(t *testing.T) {
	i := New()
	defer i.Close()
	tests := []struct {
		script string
		want   string
	}{
		{"if {1} {set r then}", "then"},
		{"if {0} {set r then} else {set r else}", "else"},
		{"if {0} {set r a} elseif {1} {set r b} else {set r c}", "b"},
		{"if {0} {set r a}", ""},
	}
	for _, tt := range tests {
		if got := evalOK(t, i, tt.script); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.script, got, tt.want)
		}
	}
}

func TestWhileBreak(t *testing.T) {
	i := New()
	defer i.Close()
	got := evalOK(t, i, `
		set n 0
		while {$n < 10} {
			incr n
			if {$n == 5} { break }
		}
		set n
	`)
	if got != "5" {
		t.Errorf("counter = %q, want 5", got)
	}
}

func TestWhileContinue(t *testing.T) {
	i := New()
	defer i.Close()
	got := evalOK(t, i, `
		set n 0
		set sum 0
		while {$n < 10} {
			incr n
			if {$n % 2} { continue }
			incr sum $n
		}
		set sum
	`)
	if got != "30" {
		t.Errorf("sum of evens = %q, want 30", got)
	}
}

func TestForLoop(t *testing.T) {
	i := New()
	defer i.Close()
	got := evalOK(t, i, `
		set sum 0
		for {set i 0} {$i < 5} {incr i} {
			incr sum $i
		}
		set sum
	`)
	if got != "10" {
		t.Errorf("sum = %q, want 10", got)
	}
}

func TestForeach(t *testing.T) {
	i := New()
	defer i.Close()
	got := evalOK(t, i, `
		set sum 0
		foreach x {1 2 3 4} { incr sum $x }
		set sum
	`)
	if got != "10" {
		t.Errorf("foreach sum = %q, want 10", got)
	}

	// Multiple variables consume the list in pairs.
	got = evalOK(t, i, `
		set out {}
		foreach {k v} {a 1 b 2} { lappend out $v $k }
		set out
	`)
	if got != "1 a 2 b" {
		t.Errorf("foreach pairs = %q, want \"1 a 2 b\"", got)
	}

	// Two lists iterate in lockstep, padding with empties.
	got = evalOK(t, i, `
		set out {}
		foreach x {1 2 3} y {a b} { lappend out $x$y }
		set out
	`)
	if got != "1a 2b 3" {
		t.Errorf("foreach lockstep = %q, want \"1a 2b 3\"", got)
	}
}

func TestForeachInProc(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, `
		proc sum {vals} {
			set total 0
			foreach v $vals { incr total $v }
			return $total
		}
	`)
	if got := evalOK(t, i, "sum {1 2 3 4 5}"); got != "15" {
		t.Errorf("sum = %q, want 15", got)
	}
}

func TestProcArgs(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, `proc greet {name {greeting hello}} { return "$greeting $name" }`)
	if got := evalOK(t, i, "greet world"); got != "hello world" {
		t.Errorf("greet world = %q", got)
	}
	if got := evalOK(t, i, "greet world hi"); got != "hi world" {
		t.Errorf("greet world hi = %q", got)
	}
	if code := i.Eval("greet"); code != ResultError {
		t.Fatalf("greet with no args: code %v", code)
	}
	if !strings.Contains(i.Result().String(), "wrong # args") {
		t.Errorf("arity error = %q", i.Result().String())
	}
}

func TestProcVarArgs(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, "proc count {first args} { llength $args }")
	if got := evalOK(t, i, "count a b c d"); got != "3" {
		t.Errorf("count = %q, want 3", got)
	}
	if got := evalOK(t, i, "count a"); got != "0" {
		t.Errorf("count a = %q, want 0", got)
	}
}

func TestProcRecursion(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, `
		proc fib {n} {
			if {$n < 2} { return $n }
			expr {[fib [expr {$n - 1}]] + [fib [expr {$n - 2}]]}
		}
	`)
	if got := evalOK(t, i, "fib 10"); got != "55" {
		t.Errorf("fib 10 = %q, want 55", got)
	}
}

func TestRecursionLimit(t *testing.T) {
	i := New()
	defer i.Close()
	i.RecursionLimit = 50
	evalOK(t, i, "proc loop {} { loop }")
	if code := i.Eval("loop"); code != ResultError {
		t.Fatalf("unbounded recursion: code %v", code)
	}
	if !strings.Contains(i.Result().String(), "too many nested evaluations") {
		t.Errorf("recursion error = %q", i.Result().String())
	}
}

func TestCatch(t *testing.T) {
	i := New()
	defer i.Close()
	if got := evalOK(t, i, "catch {error boom} msg"); got != "1" {
		t.Errorf("catch error = %q, want 1", got)
	}
	if got := evalOK(t, i, "set msg"); got != "boom" {
		t.Errorf("msg = %q, want boom", got)
	}
	if got := evalOK(t, i, "catch {set ok fine} msg"); got != "0" {
		t.Errorf("catch ok = %q, want 0", got)
	}
	if got := evalOK(t, i, "set msg"); got != "fine" {
		t.Errorf("msg = %q, want fine", got)
	}
	if got := evalOK(t, i, "catch {break}"); got != "3" {
		t.Errorf("catch break = %q, want 3", got)
	}
	if got := evalOK(t, i, "catch {continue}"); got != "4" {
		t.Errorf("catch continue = %q, want 4", got)
	}
}

func TestCatchOptions(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, "catch {error boom info {CODE 7}} msg opts")
	opts := evalOK(t, i, "set opts")
	for _, want := range []string{"-code 1", "-errorcode", "CODE 7"} {
		if !strings.Contains(opts, want) {
			t.Errorf("opts %q missing %q", opts, want)
		}
	}
}

func TestReturnOptions(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, `
		proc fail {} {
			return -code error -errorinfo outer -errorcode {X 1} boom
		}
	`)
	code := i.Eval("fail")
	if code != ResultError {
		t.Fatalf("fail: code %v, want error", code)
	}
	if got := i.Result().String(); got != "boom" {
		t.Errorf("result = %q, want boom", got)
	}
	if got := i.ErrorCode().String(); got != "X 1" {
		t.Errorf("errorCode = %q, want \"X 1\"", got)
	}
	if info := i.ErrorInfo().String(); !strings.HasPrefix(info, "outer") {
		t.Errorf("errorInfo = %q, want prefix \"outer\"", info)
	}
}

func TestReturnOptionsPreserveUnknownKeys(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, `
		proc custom {} { return -shape circle done }
		catch {custom} msg opts
	`)
	opts := evalOK(t, i, "set opts")
	if !strings.Contains(opts, "-shape circle") {
		t.Errorf("opts %q missing -shape circle", opts)
	}
}

func TestReturnCustomCode(t *testing.T) {
	i := New()
	defer i.Close()
	if got := evalOK(t, i, "catch {return -level 0 -code 42 x}"); got != "42" {
		t.Errorf("custom code = %q, want 42", got)
	}
}

func TestErrorInfoTraceback(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, `
		proc inner {} { error deep }
		proc outer {} { inner }
	`)
	if code := i.Eval("outer"); code != ResultError {
		t.Fatalf("outer: code %v", code)
	}
	info := i.ErrorInfo().String()
	if !strings.HasPrefix(info, "deep") {
		t.Errorf("errorInfo = %q, want prefix deep", info)
	}
	if !strings.Contains(info, `procedure "inner"`) || !strings.Contains(info, `procedure "outer"`) {
		t.Errorf("errorInfo missing frames: %q", info)
	}
}

func TestErrorCodeDefault(t *testing.T) {
	i := New()
	defer i.Close()
	i.Eval("error plain")
	if got := i.ErrorCode().String(); got != "NONE" {
		t.Errorf("errorCode = %q, want NONE", got)
	}
}

func TestGlobalAndUpvar(t *testing.T) {
	i := New()
	defer i.Close()
	got := evalOK(t, i, `
		set g 1
		proc bump {} {
			global g
			incr g
		}
		bump
		bump
		set g
	`)
	if got != "3" {
		t.Errorf("g = %q, want 3", got)
	}

	got = evalOK(t, i, `
		proc swap {an bn} {
			upvar 1 $an a $bn b
			set tmp $a
			set a $b
			set b $tmp
		}
		set x 1
		set y 2
		swap x y
		list $x $y
	`)
	if got != "2 1" {
		t.Errorf("swap = %q, want \"2 1\"", got)
	}
}

func TestUplevel(t *testing.T) {
	i := New()
	defer i.Close()
	got := evalOK(t, i, `
		proc setcaller {name val} {
			uplevel 1 [list set $name $val]
		}
		setcaller z 99
		set z
	`)
	if got != "99" {
		t.Errorf("z = %q, want 99", got)
	}
}

func TestNamespaces(t *testing.T) {
	i := New()
	defer i.Close()
	got := evalOK(t, i, `
		namespace eval counter {
			variable n 0
			proc bump {} {
				variable n
				incr n
			}
		}
		counter::bump
		counter::bump
		set ::counter::n
	`)
	if got != "2" {
		t.Errorf("counter::n = %q, want 2", got)
	}
	if got := evalOK(t, i, "namespace eval counter {namespace current}"); got != "::counter" {
		t.Errorf("namespace current = %q", got)
	}
}

func TestRename(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, "proc orig {} { return hi }")
	evalOK(t, i, "rename orig fresh")
	if got := evalOK(t, i, "fresh"); got != "hi" {
		t.Errorf("fresh = %q", got)
	}
	if code := i.Eval("orig"); code != ResultError {
		t.Fatalf("orig after rename: code %v", code)
	}
	evalOK(t, i, "rename fresh {}")
	if code := i.Eval("fresh"); code != ResultError {
		t.Fatalf("fresh after delete: code %v", code)
	}
}

func TestExpansion(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, "set parts {b c d}")
	if got := evalOK(t, i, "list a {*}$parts e"); got != "a b c d e" {
		t.Errorf("expansion = %q, want \"a b c d e\"", got)
	}
	// Execution continues cleanly past the splice.
	if got := evalOK(t, i, "set r [list x {*}$parts]\nset r"); got != "x b c d" {
		t.Errorf("r = %q, want \"x b c d\"", got)
	}
}

func TestCommandSubstitution(t *testing.T) {
	i := New()
	defer i.Close()
	if got := evalOK(t, i, `set x [expr {2 + 2}]`); got != "4" {
		t.Errorf("x = %q, want 4", got)
	}
	if got := evalOK(t, i, `set s "have [set x] items"`); got != "have 4 items" {
		t.Errorf("s = %q", got)
	}
}

func TestEvalCommand(t *testing.T) {
	i := New()
	defer i.Close()
	if got := evalOK(t, i, "eval set dyn 7"); got != "7" {
		t.Errorf("eval = %q, want 7", got)
	}
	if got := evalOK(t, i, "eval {set dyn 8}"); got != "8" {
		t.Errorf("eval braced = %q, want 8", got)
	}
}

func TestInfoCommands(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, "proc sample {a b} { return $a$b }")
	if got := evalOK(t, i, "info args sample"); got != "a b" {
		t.Errorf("info args = %q", got)
	}
	if got := evalOK(t, i, "info body sample"); !strings.Contains(got, "return $a$b") {
		t.Errorf("info body = %q", got)
	}
	if got := evalOK(t, i, "info exists missing"); got != "0" {
		t.Errorf("info exists missing = %q", got)
	}
	evalOK(t, i, "set present 1")
	if got := evalOK(t, i, "info exists present"); got != "1" {
		t.Errorf("info exists present = %q", got)
	}
}

func TestStringCommand(t *testing.T) {
	i := New()
	defer i.Close()
	tests := []struct {
		script string
		want   string
	}{
		{"string length hello", "5"},
		{"string index hello 1", "e"},
		{"string range hello 1 3", "ell"},
		{"string toupper hello", "HELLO"},
		{"string tolower HeLLo", "hello"},
		{"string trim {  hi  }", "hi"},
		{"string equal a a", "1"},
		{"string match {h*o} hello", "1"},
		{"string match {h?llo} hello", "1"},
		{"string match {[a-h]ello} hello", "1"},
		{"string first l hello", "2"},
		{"string last l hello", "3"},
		{"string is integer 42", "1"},
		{"string is integer 4.2", "0"},
		{"string is double 4.2", "1"},
	}
	for _, tt := range tests {
		if got := evalOK(t, i, tt.script); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.script, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	i := New()
	defer i.Close()
	tests := []struct {
		script string
		want   string
	}{
		{"format %d 42", "42"},
		{"format %5d 42", "   42"},
		{"format %-5d| 42", "42   |"},
		{"format %x 255", "ff"},
		{"format %.2f 3.14159", "3.14"},
		{"format {%s=%d} count 3", "count=3"},
		{"format %%", "%"},
	}
	for _, tt := range tests {
		if got := evalOK(t, i, tt.script); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.script, got, tt.want)
		}
	}
}

func TestListCommands(t *testing.T) {
	i := New()
	defer i.Close()
	tests := []struct {
		script string
		want   string
	}{
		{"list a b c", "a b c"},
		{"list {a b} c", "{a b} c"},
		{"list", ""},
		{"llength {a b c}", "3"},
		{"llength {}", "0"},
		{"lindex {a b c} 1", "b"},
		{"lindex {a b c} end", "c"},
		{"lindex {a b c} end-1", "b"},
		{"lindex {{a b} {c d}} 1 0", "c"},
		{"lrange {a b c d e} 1 3", "b c d"},
		{"lrange {a b c} 1 end", "b c"},
		{"concat {a b} {c d}", "a b c d"},
		{"join {a b c} -", "a-b-c"},
		{"split a,b,,c ,", "a b {} c"},
		{"split {a b c}", "a b c"},
	}
	for _, tt := range tests {
		if got := evalOK(t, i, tt.script); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.script, got, tt.want)
		}
	}
}

func TestLappend(t *testing.T) {
	i := New()
	defer i.Close()
	evalOK(t, i, "lappend acc a")
	evalOK(t, i, "lappend acc b {c d}")
	if got := evalOK(t, i, "set acc"); got != "a b {c d}" {
		t.Errorf("acc = %q", got)
	}
	if got := evalOK(t, i, "llength $acc"); got != "3" {
		t.Errorf("llength acc = %q, want 3", got)
	}
}

func TestPuts(t *testing.T) {
	i := New()
	defer i.Close()
	var buf strings.Builder
	i.Out = &buf
	evalOK(t, i, "puts hello")
	evalOK(t, i, "puts -nonewline world")
	if got := buf.String(); got != "hello\nworld" {
		t.Errorf("output = %q", got)
	}
}

func TestCancellation(t *testing.T) {
	i := New()
	defer i.Close()
	i.Cancel("stopped by test")
	if code := i.Eval("set x 1"); code != ResultError {
		t.Fatalf("cancelled eval: code %v", code)
	}
	if got := i.Result().String(); got != "stopped by test" {
		t.Errorf("result = %q", got)
	}
	if got := i.ErrorCode().String(); !strings.HasPrefix(got, "CANCEL") {
		t.Errorf("errorCode = %q, want CANCEL prefix", got)
	}
	i.ClearCancel()
	if got := evalOK(t, i, "set x 1"); got != "1" {
		t.Errorf("after clear = %q", got)
	}
}

func TestCancelIsCatchable(t *testing.T) {
	i := New()
	defer i.Close()
	i.Cancel("interrupted")
	if code := i.Eval("catch {set x 1} msg"); code != ResultError {
		// The flag stays set, so even catch's own invocation fails;
		// what matters is that evaluation stops.
		i.ClearCancel()
		return
	}
	i.ClearCancel()
}

func TestTraceCommand(t *testing.T) {
	i := New()
	defer i.Close()
	got := evalOK(t, i, `
		set log {}
		proc record {name1 name2 op} {
			global log
			upvar 1 $name1 v
			lappend log $v
		}
		trace add variable x write record
		set x a
		set x b
		set log
	`)
	if got != "a b" {
		t.Errorf("trace log = %q, want \"a b\"", got)
	}
}

func TestWrongArgsMessages(t *testing.T) {
	i := New()
	defer i.Close()
	tests := []string{
		"set",
		"incr",
		"while {1}",
		"proc p",
		"rename a",
	}
	for _, script := range tests {
		if code := i.Eval(script); code != ResultError {
			t.Errorf("%s: code %v, want error", script, code)
			continue
		}
		if !strings.Contains(i.Result().String(), "wrong # args") {
			t.Errorf("%s: result %q, want wrong # args", script, i.Result().String())
		}
	}
}

func TestInvalidCommandName(t *testing.T) {
	i := New()
	defer i.Close()
	if code := i.Eval("definitely-not-a-command"); code != ResultError {
		t.Fatalf("code %v, want error", code)
	}
	if got := i.Result().String(); !strings.Contains(got, "invalid command name") {
		t.Errorf("result = %q", got)
	}
}

func TestNestedLoopBreak(t *testing.T) {
	i := New()
	defer i.Close()
	got := evalOK(t, i, `
		set hits 0
		foreach outer {1 2 3} {
			foreach inner {1 2 3} {
				if {$inner == 2} { break }
				incr hits
			}
		}
		set hits
	`)
	if got != "3" {
		t.Errorf("hits = %q, want 3", got)
	}
}

func TestRunAPI(t *testing.T) {
	i := New()
	defer i.Close()
	result, err := i.Run("expr {6 * 7}")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != "42" {
		t.Errorf("result = %q, want 42", result)
	}
	if _, err := i.Run("error nope"); err == nil {
		t.Fatal("Run of error: want error")
	}
}
