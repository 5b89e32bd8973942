package interp

import (
	"reflect"
	"testing"
)

func TestStringFromIntRep(t *testing.T) {
	tests := []struct {
		o    *Obj
		want string
	}{
		{NewInt(42), "42"},
		{NewInt(-7), "-7"},
		{NewDouble(0.5), "0.5"},
		{NewDouble(3), "3.0"},
		{NewDouble(1.5e20), "1.5e+20"},
		{NewBool(true), "1"},
		{NewBool(false), "0"},
		{NewList([]*Obj{NewString("a"), NewString("b c")}), "a {b c}"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestNumericConversion(t *testing.T) {
	o := NewString("  0x10 ")
	n, err := o.AsInt()
	if err != nil {
		t.Fatalf("AsInt: %v", err)
	}
	if n != 16 {
		t.Fatalf("AsInt = %d, want 16", n)
	}
	// The conversion installs the intrep but the string rep stays
	// authoritative.
	if o.String() != "  0x10 " {
		t.Fatalf("String() after AsInt = %q", o.String())
	}
	if _, ok := o.IntRep().(IntType); !ok {
		t.Fatalf("intrep after AsInt is %T", o.IntRep())
	}

	if _, err := NewString("pear").AsInt(); err == nil {
		t.Fatal("AsInt on non-number did not fail")
	}
	f, err := NewString("2.5").AsDouble()
	if err != nil || f != 2.5 {
		t.Fatalf("AsDouble = %v, %v", f, err)
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true}, {"0", false},
		{"true", true}, {"false", false},
		{"Yes", true}, {"no", false},
		{"on", true}, {"off", false},
		{"3", true}, {"0.0", false},
	}
	for _, tt := range tests {
		got, err := NewString(tt.in).AsBool()
		if err != nil {
			t.Errorf("AsBool(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("AsBool(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := NewString("maybe").AsBool(); err == nil {
		t.Fatal("AsBool accepted a non-boolean word")
	}
}

func TestRefCounting(t *testing.T) {
	o := NewString("x")
	if o.Refs() != 0 || o.Shared() {
		t.Fatalf("fresh value: refs %d shared %v", o.Refs(), o.Shared())
	}
	o.Retain()
	if o.Shared() {
		t.Fatal("single holder reported as shared")
	}
	o.Retain()
	if !o.Shared() {
		t.Fatal("two holders not reported as shared")
	}
	o.Release()
	o.Release()
	if o.Refs() != 0 {
		t.Fatalf("refs after release = %d", o.Refs())
	}
	// Over-release clamps rather than going negative.
	o.Release()
	if o.Refs() != 0 {
		t.Fatalf("refs after over-release = %d", o.Refs())
	}
}

func TestDupIsIndependent(t *testing.T) {
	orig := NewList([]*Obj{NewString("a"), NewString("b")})
	orig.Retain()
	dup := orig.Dup()
	if dup.Refs() != 0 {
		t.Fatalf("dup refs = %d, want 0", dup.Refs())
	}
	lt := dup.IntRep().(*ListType)
	lt.Items = append(lt.Items, NewString("c").Retain())
	dup.InvalidateString()
	if got := dup.String(); got != "a b c" {
		t.Fatalf("dup = %q", got)
	}
	if got := orig.String(); got != "a b" {
		t.Fatalf("original changed to %q after dup mutation", got)
	}
}

func TestListStringCoherence(t *testing.T) {
	// Parsing a string into a list must not disturb the string rep,
	// and regenerating the string from a built list must produce a
	// form that parses back to the same elements.
	o := NewString("a {b c}  d")
	items, err := o.AsList()
	if err != nil {
		t.Fatalf("AsList: %v", err)
	}
	if len(items) != 3 || items[1].String() != "b c" {
		t.Fatalf("AsList items = %v", items)
	}
	if o.String() != "a {b c}  d" {
		t.Fatalf("string rep changed to %q", o.String())
	}

	built := NewList([]*Obj{NewString("x y"), NewString(""), NewString("{")})
	round, err := NewString(built.String()).AsList()
	if err != nil {
		t.Fatalf("reparse %q: %v", built.String(), err)
	}
	want := []string{"x y", "", "{"}
	for n, it := range round {
		if it.String() != want[n] {
			t.Fatalf("round trip element %d = %q, want %q", n, it.String(), want[n])
		}
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"a b c", []string{"a", "b", "c"}},
		{"a {b c} d", []string{"a", "b c", "d"}},
		{"{a {b} c}", []string{"a {b} c"}},
		{`"a b" c`, []string{"a b", "c"}},
		{`a\ b c`, []string{"a b", "c"}},
		{`"x\ty"`, []string{"x\ty"}},
		{"{}", []string{""}},
		{"a\n\tb", []string{"a", "b"}},
	}
	for _, tt := range tests {
		got, err := ParseList(tt.in)
		if err != nil {
			t.Errorf("ParseList(%q): %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"{a b", `"a b`, "{a}b"} {
		if _, err := ParseList(bad); err == nil {
			t.Errorf("ParseList(%q) did not fail", bad)
		}
	}
}

func TestFormatListRoundTrip(t *testing.T) {
	cases := [][]string{
		{"plain"},
		{"two words", "three more words"},
		{""},
		{"$var", "[cmd]", "semi;colon"},
		{"tab\there", "newline\nhere"},
		{"unbalanced {", "}"},
	}
	for _, elems := range cases {
		got, err := ParseList(FormatList(elems))
		if err != nil {
			t.Errorf("reparse of %q: %v", FormatList(elems), err)
			continue
		}
		if !reflect.DeepEqual(got, elems) {
			t.Errorf("round trip %q -> %q", elems, got)
		}
	}
}

func TestDict(t *testing.T) {
	d := NewDict()
	dt := d.IntRep().(*DictType)
	dt.Set("a", NewString("1"))
	dt.Set("b", NewString("2"))
	dt.Set("a", NewString("9"))
	if got := d.String(); got != "a 9 b 2" {
		t.Fatalf("dict string = %q", got)
	}
	dt.Remove("a")
	d.InvalidateString()
	if got := d.String(); got != "b 2" {
		t.Fatalf("dict string after remove = %q", got)
	}

	parsed, err := NewString("x 1 y {2 3}").AsDict()
	if err != nil {
		t.Fatalf("AsDict: %v", err)
	}
	if parsed.Get("y").String() != "2 3" {
		t.Fatalf("parsed dict y = %q", parsed.Get("y").String())
	}
	if _, err := NewString("x 1 y").AsDict(); err == nil {
		t.Fatal("AsDict accepted odd-length list")
	}
}

func TestReturnOptionsToDict(t *testing.T) {
	r := &ReturnOptions{Code: ResultError, Level: 1}
	r.ErrorInfo = NewString("trace here")
	r.ErrorCode = NewString("ARITH DIVZERO")
	r.ErrorLine = 3
	r.setExtra("-shape", NewString("circle"))

	d, err := r.ToDict().AsDict()
	if err != nil {
		t.Fatalf("ToDict: %v", err)
	}
	checks := map[string]string{
		"-code":      "1",
		"-level":     "1",
		"-errorinfo": "trace here",
		"-errorcode": "ARITH DIVZERO",
		"-errorline": "3",
		"-shape":     "circle",
	}
	for k, want := range checks {
		v := d.Get(k)
		if v == nil {
			t.Errorf("missing key %s", k)
			continue
		}
		if v.String() != want {
			t.Errorf("%s = %q, want %q", k, v.String(), want)
		}
	}
}

func TestSetIntRepGuards(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("dropping both representations did not panic")
		}
	}()
	o := NewInt(5)
	_ = o // no string rep generated yet
	o.SetIntRep(nil)
}
