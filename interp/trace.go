package interp

type traceOp int

const (
	traceRead traceOp = 1 << iota
	traceWrite
	traceUnset
)

// TraceFunc is a variable trace callback. name1 is the variable, name2
// the array element or empty, op one of "read", "write", or "unset".
// A non-nil error from a write trace vetoes the assignment; an error
// from an unset trace is reported but the removal still happens.
type TraceFunc func(i *Interp, name1, name2, op string) error

type varTrace struct {
	ops traceOp
	fn  TraceFunc
}

func opName(op traceOp) string {
	switch op {
	case traceRead:
		return "read"
	case traceWrite:
		return "write"
	case traceUnset:
		return "unset"
	}
	return "unknown"
}

func parseTraceOps(s string) (traceOp, bool) {
	var ops traceOp
	for _, c := range s {
		switch c {
		case 'r':
			ops |= traceRead
		case 'w':
			ops |= traceWrite
		case 'u':
			ops |= traceUnset
		default:
			return 0, false
		}
	}
	return ops, ops != 0
}

// TraceVar installs a trace callback on the named variable for the
// given operations ("r", "w", "u" in any combination). The variable is
// created undefined if it does not exist so the trace has a cell to
// live on.
func (i *Interp) TraceVar(name1, elem string, ops string, fn TraceFunc) error {
	mask, ok := parseTraceOps(ops)
	if !ok {
		return errBadTraceOps(ops)
	}
	v, err := i.lookupVar(name1, true)
	if err != nil {
		return err
	}
	if elem != "" {
		el, err := i.elemVar(v, name1, elem, true)
		if err != nil {
			return err
		}
		v = el
	}
	v.traces = append(v.traces, &varTrace{ops: mask, fn: fn})
	return nil
}

// UntraceVar removes every trace on the variable matching the operation
// set.
func (i *Interp) UntraceVar(name1, elem string, ops string) error {
	mask, ok := parseTraceOps(ops)
	if !ok {
		return errBadTraceOps(ops)
	}
	v, err := i.lookupVar(name1, false)
	if err != nil {
		return nil
	}
	if elem != "" {
		el, err := i.elemVar(v, name1, elem, false)
		if err != nil {
			return nil
		}
		v = el
	}
	kept := v.traces[:0]
	for _, t := range v.traces {
		if t.ops&mask == 0 {
			kept = append(kept, t)
		}
	}
	v.traces = kept
	return nil
}

func errBadTraceOps(s string) error {
	return &traceOpsError{ops: s}
}

type traceOpsError struct{ ops string }

func (e *traceOpsError) Error() string {
	return "bad trace operations \"" + e.ops + "\": must be one or more of r, w, or u"
}

// fireTraces runs the traces attached to the whole variable and to the
// element, in install order. The in-trace flag suppresses re-entry for
// the same operation so a trace that touches its own variable does not
// recurse.
func (i *Interp) fireTraces(whole, target *Var, name1, elem string, op traceOp) error {
	var firstErr error
	run := func(v *Var) {
		if v.inTrace&op != 0 {
			return
		}
		v.inTrace |= op
		defer func() { v.inTrace &^= op }()
		for _, t := range v.traces {
			if t.ops&op == 0 {
				continue
			}
			if err := t.fn(i, name1, elem, opName(op)); err != nil && firstErr == nil {
				firstErr = err
				if op != traceUnset {
					return
				}
			}
		}
	}
	run(whole)
	if target != whole {
		run(target)
	}
	return firstErr
}
