package interp

import (
	"errors"
	"fmt"
	"testing"
)

func TestTraceVarWrite(t *testing.T) {
	i := New()
	defer i.Close()
	var fired []string
	err := i.TraceVar("x", "", "w", func(i *Interp, name1, name2, op string) error {
		v, _ := i.GetVar(name1, "")
		fired = append(fired, fmt.Sprintf("%s=%s(%s)", name1, v.String(), op))
		return nil
	})
	if err != nil {
		t.Fatalf("TraceVar: %v", err)
	}
	if _, err := i.SetVar("x", "", NewString("a")); err != nil {
		t.Fatalf("SetVar: %v", err)
	}
	if _, err := i.SetVar("x", "", NewString("b")); err != nil {
		t.Fatalf("SetVar: %v", err)
	}
	want := []string{"x=a(write)", "x=b(write)"}
	if len(fired) != 2 || fired[0] != want[0] || fired[1] != want[1] {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
}

func TestTraceVarReadAndUnset(t *testing.T) {
	i := New()
	defer i.Close()
	var ops []string
	if err := i.TraceVar("x", "", "ru", func(i *Interp, name1, name2, op string) error {
		ops = append(ops, op)
		return nil
	}); err != nil {
		t.Fatalf("TraceVar: %v", err)
	}
	i.SetVar("x", "", NewString("v"))
	i.GetVar("x", "")
	i.UnsetVar("x", "")
	if len(ops) != 2 || ops[0] != "read" || ops[1] != "unset" {
		t.Fatalf("ops = %v", ops)
	}
}

func TestWriteTraceVeto(t *testing.T) {
	i := New()
	defer i.Close()
	if _, err := i.SetVar("x", "", NewString("a")); err != nil {
		t.Fatalf("SetVar: %v", err)
	}
	veto := errors.New("rejected")
	if err := i.TraceVar("x", "", "w", func(i *Interp, name1, name2, op string) error {
		return veto
	}); err != nil {
		t.Fatalf("TraceVar: %v", err)
	}
	if _, err := i.SetVar("x", "", NewString("b")); err == nil {
		t.Fatal("vetoed write succeeded")
	}
	v, err := i.GetVar("x", "")
	if err != nil {
		t.Fatalf("GetVar after veto: %v", err)
	}
	if v.String() != "a" {
		t.Fatalf("x = %q after vetoed write, want %q", v.String(), "a")
	}
}

func TestUnsetTraceErrorStillRemoves(t *testing.T) {
	i := New()
	defer i.Close()
	i.SetVar("x", "", NewString("v"))
	if err := i.TraceVar("x", "", "u", func(i *Interp, name1, name2, op string) error {
		return errors.New("complaint")
	}); err != nil {
		t.Fatalf("TraceVar: %v", err)
	}
	if err := i.UnsetVar("x", ""); err == nil {
		t.Fatal("unset trace error not reported")
	}
	if _, err := i.GetVar("x", ""); err == nil {
		t.Fatal("variable survived unset")
	}
}

// A trace writing its own variable must not recurse into itself.
func TestTraceReentrySuppressed(t *testing.T) {
	i := New()
	defer i.Close()
	calls := 0
	if err := i.TraceVar("x", "", "w", func(i *Interp, name1, name2, op string) error {
		calls++
		_, err := i.SetVar("x", "", NewString("from-trace"))
		return err
	}); err != nil {
		t.Fatalf("TraceVar: %v", err)
	}
	if _, err := i.SetVar("x", "", NewString("outer")); err != nil {
		t.Fatalf("SetVar: %v", err)
	}
	if calls != 1 {
		t.Fatalf("trace fired %d times, want 1", calls)
	}
	v, _ := i.GetVar("x", "")
	if v.String() != "from-trace" {
		t.Fatalf("x = %q", v.String())
	}
}

func TestArrayTraceSeesElements(t *testing.T) {
	i := New()
	defer i.Close()
	var seen []string
	if err := i.TraceVar("a", "", "w", func(i *Interp, name1, name2, op string) error {
		seen = append(seen, name1+"("+name2+")")
		return nil
	}); err != nil {
		t.Fatalf("TraceVar: %v", err)
	}
	i.SetVar("a", "one", NewString("1"))
	i.SetVar("a", "two", NewString("2"))
	if len(seen) != 2 || seen[0] != "a(one)" || seen[1] != "a(two)" {
		t.Fatalf("seen = %v", seen)
	}
}

func TestUntraceVar(t *testing.T) {
	i := New()
	defer i.Close()
	calls := 0
	i.TraceVar("x", "", "w", func(i *Interp, name1, name2, op string) error {
		calls++
		return nil
	})
	i.SetVar("x", "", NewString("1"))
	if err := i.UntraceVar("x", "", "w"); err != nil {
		t.Fatalf("UntraceVar: %v", err)
	}
	i.SetVar("x", "", NewString("2"))
	if calls != 1 {
		t.Fatalf("trace fired %d times after removal, want 1", calls)
	}
}

func TestBadTraceOps(t *testing.T) {
	i := New()
	defer i.Close()
	for _, ops := range []string{"", "x", "rwz"} {
		if err := i.TraceVar("x", "", ops, nil); err == nil {
			t.Errorf("TraceVar accepted ops %q", ops)
		}
	}
}
