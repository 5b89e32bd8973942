package interp

import (
	"fmt"
	"strings"
)

// Var is a variable cell: a scalar value, an array of cells, or a link
// to a cell in another frame or namespace.
type Var struct {
	value   *Obj
	arr     map[string]*Var
	link    *Var
	traces  []*varTrace
	inTrace traceOp
	name    string
}

func (v *Var) resolveLink() *Var {
	for v.link != nil {
		v = v.link
	}
	return v
}

func (v *Var) defined() bool {
	return v.value != nil || v.arr != nil
}

func (v *Var) isArray() bool { return v.arr != nil }

// invalidate clears the cell and drops its traces when its owner is
// destroyed.
func (v *Var) invalidate(i *Interp) {
	if v.value != nil {
		v.value.Release()
		v.value = nil
	}
	for _, el := range v.arr {
		el.invalidate(i)
	}
	v.arr = nil
	v.traces = nil
	v.link = nil
}

// CallFrame is the activation record of a procedure invocation or of
// the top level. Compiled procedure locals live in slot order; other
// variables created at run time go in the named map.
type CallFrame struct {
	locals     []*Var
	localNames []string
	vars       map[string]*Var
	ns         *Namespace
	level      int
	proc       *Proc
	objv       []*Obj
}

// Level returns the frame's absolute level. The global frame is level
// zero.
func (f *CallFrame) Level() int { return f.level }

func newFrame(ns *Namespace, level int) *CallFrame {
	return &CallFrame{vars: map[string]*Var{}, ns: ns, level: level}
}

// lookupVar finds or creates the cell for name1 in the current scope.
// Qualified names resolve to namespace variables regardless of the
// current frame.
func (i *Interp) lookupVar(name string, create bool) (*Var, error) {
	if strings.Contains(name, "::") {
		return i.lookupNamespaceVar(name, create)
	}
	f := i.currentFrame()
	if f.proc != nil {
		for idx, ln := range f.localNames {
			if ln == name {
				if f.locals[idx] == nil {
					f.locals[idx] = &Var{name: name}
				}
				return f.locals[idx].resolveLink(), nil
			}
		}
		v, ok := f.vars[name]
		if !ok {
			if !create {
				return nil, fmt.Errorf("can't read %q: no such variable", name)
			}
			v = &Var{name: name}
			f.vars[name] = v
		}
		return v.resolveLink(), nil
	}
	// Top level: frame-less evaluation uses the namespace's variables.
	ns := f.ns
	if ns == nil {
		ns = i.global
	}
	v, ok := ns.vars[name]
	if !ok {
		if !create {
			return nil, fmt.Errorf("can't read %q: no such variable", name)
		}
		v = &Var{name: name}
		ns.vars[name] = v
	}
	return v.resolveLink(), nil
}

func (i *Interp) lookupNamespaceVar(name string, create bool) (*Var, error) {
	path, simple, absolute := splitQualName(name)
	base := i.currentNamespace()
	if absolute {
		base = i.global
	}
	ns := i.walkPath(base, path)
	if ns == nil && !absolute {
		ns = i.walkPath(i.global, path)
	}
	if ns == nil {
		return nil, fmt.Errorf("can't find namespace for %q", name)
	}
	v, ok := ns.vars[simple]
	if !ok {
		if !create {
			return nil, fmt.Errorf("can't read %q: no such variable", name)
		}
		v = &Var{name: simple}
		ns.vars[simple] = v
	}
	return v.resolveLink(), nil
}

func (i *Interp) elemVar(v *Var, name1, elem string, create bool) (*Var, error) {
	if v.value != nil {
		return nil, fmt.Errorf("can't set %q: variable isn't array", name1+"("+elem+")")
	}
	if v.arr == nil {
		if !create {
			return nil, fmt.Errorf("can't read %q: no such element in array", name1+"("+elem+")")
		}
		v.arr = map[string]*Var{}
	}
	el, ok := v.arr[elem]
	if !ok {
		if !create {
			return nil, fmt.Errorf("can't read %q: no such element in array", name1+"("+elem+")")
		}
		el = &Var{name: elem}
		v.arr[elem] = el
	}
	return el.resolveLink(), nil
}

// GetVar reads a variable. elem selects an array element when
// non-empty. Read traces fire before the value is fetched.
func (i *Interp) GetVar(name1, elem string) (*Obj, error) {
	v, err := i.lookupVar(name1, false)
	if err != nil {
		return nil, err
	}
	target := v
	if elem != "" {
		target, err = i.elemVar(v, name1, elem, false)
		if err != nil {
			return nil, err
		}
	} else if v.isArray() {
		return nil, fmt.Errorf("can't read %q: variable is array", name1)
	}
	if err := i.fireTraces(v, target, name1, elem, traceRead); err != nil {
		return nil, fmt.Errorf("can't read %q: %w", traceVarName(name1, elem), err)
	}
	if target.value == nil {
		return nil, fmt.Errorf("can't read %q: no such variable", traceVarName(name1, elem))
	}
	return target.value, nil
}

// SetVar writes a variable and returns the stored value. Write traces
// see the new value; an error from a trace restores the previous value
// and fails the write.
func (i *Interp) SetVar(name1, elem string, val *Obj) (*Obj, error) {
	v, err := i.lookupVar(name1, true)
	if err != nil {
		return nil, err
	}
	target := v
	if elem != "" {
		target, err = i.elemVar(v, name1, elem, true)
		if err != nil {
			return nil, err
		}
	} else if v.isArray() {
		return nil, fmt.Errorf("can't set %q: variable is array", name1)
	}
	old := target.value
	target.value = val.Retain()
	if err := i.fireTraces(v, target, name1, elem, traceWrite); err != nil {
		target.value.Release()
		target.value = old
		return nil, fmt.Errorf("can't set %q: %w", traceVarName(name1, elem), err)
	}
	if old != nil {
		old.Release()
	}
	return target.value, nil
}

// AppendVar appends the string rep of val to the variable, creating it
// as an empty string first when unset.
func (i *Interp) AppendVar(name1, elem string, val *Obj) (*Obj, error) {
	v, err := i.lookupVar(name1, true)
	if err != nil {
		return nil, err
	}
	target := v
	if elem != "" {
		target, err = i.elemVar(v, name1, elem, true)
		if err != nil {
			return nil, err
		}
	}
	old := target.value
	var next *Obj
	if old == nil {
		next = NewString(val.String())
	} else {
		next = NewString(old.String() + val.String())
	}
	target.value = next.Retain()
	if err := i.fireTraces(v, target, name1, elem, traceWrite); err != nil {
		target.value.Release()
		target.value = old
		return nil, fmt.Errorf("can't set %q: %w", traceVarName(name1, elem), err)
	}
	if old != nil {
		old.Release()
	}
	return target.value, nil
}

// UnsetVar removes a variable or array element. Unset traces fire
// before removal; a trace error is reported but never prevents the
// removal itself.
func (i *Interp) UnsetVar(name1, elem string) error {
	v, err := i.lookupVar(name1, false)
	if err != nil {
		return fmt.Errorf("can't unset %q: no such variable", traceVarName(name1, elem))
	}
	if elem != "" {
		el, err := i.elemVar(v, name1, elem, false)
		if err != nil {
			return fmt.Errorf("can't unset %q: no such element in array", traceVarName(name1, elem))
		}
		traceErr := i.fireTraces(v, el, name1, elem, traceUnset)
		el.invalidate(i)
		delete(v.arr, elem)
		return traceErr
	}
	if !v.defined() {
		return fmt.Errorf("can't unset %q: no such variable", name1)
	}
	traceErr := i.fireTraces(v, v, name1, "", traceUnset)
	v.invalidate(i)
	i.removeVarCell(name1)
	return traceErr
}

func (i *Interp) removeVarCell(name string) {
	if strings.Contains(name, "::") {
		path, simple, absolute := splitQualName(name)
		base := i.currentNamespace()
		if absolute {
			base = i.global
		}
		if ns := i.walkPath(base, path); ns != nil {
			delete(ns.vars, simple)
		}
		return
	}
	f := i.currentFrame()
	if f.proc != nil {
		delete(f.vars, name)
		for idx, ln := range f.localNames {
			if ln == name {
				f.locals[idx] = nil
			}
		}
		return
	}
	ns := f.ns
	if ns == nil {
		ns = i.global
	}
	delete(ns.vars, name)
}

// LinkVar makes localName in the current frame an alias for otherName
// resolved in targetFrame.
func (i *Interp) LinkVar(localName string, targetFrame *CallFrame, otherName string) error {
	cur := i.currentFrame()
	saved := i.frames
	// Resolve the target in its own frame.
	i.frames = i.framesUpTo(targetFrame)
	target, err := i.lookupVar(otherName, true)
	i.frames = saved
	if err != nil {
		return err
	}
	f := cur
	if f.proc != nil {
		for idx, ln := range f.localNames {
			if ln == localName {
				f.locals[idx] = &Var{name: localName, link: target}
				return nil
			}
		}
		f.vars[localName] = &Var{name: localName, link: target}
		return nil
	}
	ns := f.ns
	if ns == nil {
		ns = i.global
	}
	ns.vars[localName] = &Var{name: localName, link: target}
	return nil
}

func (i *Interp) framesUpTo(f *CallFrame) []*CallFrame {
	for idx := len(i.frames) - 1; idx >= 0; idx-- {
		if i.frames[idx] == f {
			return i.frames[:idx+1]
		}
	}
	return i.frames[:1]
}

// FrameAtLevel resolves an upvar-style level spec: "#n" is absolute,
// a bare integer is relative to the current frame, and the default is
// one level up.
func (i *Interp) FrameAtLevel(spec string) (*CallFrame, error) {
	cur := i.currentFrame()
	if strings.HasPrefix(spec, "#") {
		var n int
		if _, err := fmt.Sscanf(spec[1:], "%d", &n); err != nil {
			return nil, fmt.Errorf("bad level %q", spec)
		}
		for _, f := range i.frames {
			if f.level == n {
				return f, nil
			}
		}
		return nil, fmt.Errorf("bad level %q", spec)
	}
	var n int
	if _, err := fmt.Sscanf(spec, "%d", &n); err != nil {
		return nil, fmt.Errorf("bad level %q", spec)
	}
	want := cur.level - n
	for _, f := range i.frames {
		if f.level == want {
			return f, nil
		}
	}
	return nil, fmt.Errorf("bad level %q", spec)
}

func traceVarName(name1, elem string) string {
	if elem == "" {
		return name1
	}
	return name1 + "(" + elem + ")"
}
