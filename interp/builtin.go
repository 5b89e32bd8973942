package interp

import (
	"fmt"
	"strings"
)

func registerCoreCommands(i *Interp) {
	for name, fn := range map[string]CmdFunc{
		"set":       cmdSet,
		"unset":     cmdUnset,
		"incr":      cmdIncr,
		"append":    cmdAppend,
		"expr":      cmdExpr,
		"if":        cmdIf,
		"while":     cmdWhile,
		"for":       cmdFor,
		"foreach":   cmdForeach,
		"break":     cmdBreak,
		"continue":  cmdContinue,
		"proc":      cmdProc,
		"return":    cmdReturn,
		"error":     cmdError,
		"catch":     cmdCatch,
		"global":    cmdGlobal,
		"upvar":     cmdUpvar,
		"uplevel":   cmdUplevel,
		"variable":  cmdVariable,
		"namespace": cmdNamespace,
		"rename":    cmdRename,
		"trace":     cmdTrace,
		"eval":      cmdEval,
		"info":      cmdInfo,
		"puts":      cmdPuts,
	} {
		i.RegisterCommand("::"+name, fn, nil)
	}
	registerListCommands(i)
	registerStringCommands(i)
}

// splitIndexedName splits "name(elem)" into its variable and element
// parts. A name without a trailing ")" has no element.
func splitIndexedName(name string) (string, string) {
	if !strings.HasSuffix(name, ")") {
		return name, ""
	}
	open := strings.IndexByte(name, '(')
	if open < 0 {
		return name, ""
	}
	return name[:open], name[open+1 : len(name)-1]
}

func wrongArgs(i *Interp, usage string) Code {
	return i.SetErrorf("wrong # args: should be %q", usage)
}

func cmdSet(i *Interp, cd any, args []*Obj) Code {
	switch len(args) {
	case 2:
		n1, elem := splitIndexedName(args[1].String())
		val, err := i.GetVar(n1, elem)
		if err != nil {
			return i.SetError(err)
		}
		i.SetResult(val)
		return ResultOK
	case 3:
		n1, elem := splitIndexedName(args[1].String())
		stored, err := i.SetVar(n1, elem, args[2])
		if err != nil {
			return i.SetError(err)
		}
		i.SetResult(stored)
		return ResultOK
	}
	return wrongArgs(i, "set varName ?newValue?")
}

func cmdUnset(i *Interp, cd any, args []*Obj) Code {
	rest := args[1:]
	complain := true
	if len(rest) > 0 && rest[0].String() == "-nocomplain" {
		complain = false
		rest = rest[1:]
	}
	for _, name := range rest {
		n1, elem := splitIndexedName(name.String())
		if err := i.UnsetVar(n1, elem); err != nil && complain {
			return i.SetError(err)
		}
	}
	i.SetResult(NewObj())
	return ResultOK
}

func cmdIncr(i *Interp, cd any, args []*Obj) Code {
	if len(args) != 2 && len(args) != 3 {
		return wrongArgs(i, "incr varName ?increment?")
	}
	delta := NewInt(1)
	if len(args) == 3 {
		delta = args[2]
	}
	n1, elem := splitIndexedName(args[1].String())
	stored, err := i.incrVar(n1, elem, delta)
	if err != nil {
		return i.SetError(err)
	}
	i.SetResult(stored)
	return ResultOK
}

func cmdAppend(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 2 {
		return wrongArgs(i, "append varName ?value value ...?")
	}
	n1, elem := splitIndexedName(args[1].String())
	if len(args) == 2 {
		val, err := i.GetVar(n1, elem)
		if err != nil {
			return i.SetError(err)
		}
		i.SetResult(val)
		return ResultOK
	}
	var stored *Obj
	for _, val := range args[2:] {
		var err error
		stored, err = i.AppendVar(n1, elem, val)
		if err != nil {
			return i.SetError(err)
		}
	}
	i.SetResult(stored)
	return ResultOK
}

// evalExprObj evaluates expression text and leaves the value as the
// interpreter result.
func (i *Interp) evalExprObj(expr string) Code {
	u, err := i.CompileExprSource(expr)
	if err != nil {
		return i.SetError(err)
	}
	return i.execUnit(u)
}

// exprBool evaluates an expression as a condition.
func (i *Interp) exprBool(expr string) (bool, Code) {
	if code := i.evalExprObj(expr); code != ResultOK {
		return false, code
	}
	b, err := i.result.AsBool()
	if err != nil {
		return false, i.SetError(err)
	}
	return b, ResultOK
}

func cmdExpr(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 2 {
		return wrongArgs(i, "expr arg ?arg ...?")
	}
	parts := make([]string, len(args)-1)
	for idx, a := range args[1:] {
		parts[idx] = a.String()
	}
	return i.evalExprObj(strings.Join(parts, " "))
}

func cmdIf(i *Interp, cd any, args []*Obj) Code {
	words := args[1:]
	for {
		if len(words) < 2 {
			return wrongArgs(i, "if expr1 ?then? body1 elseif expr2 ?then? body2 ... ?else? ?bodyN?")
		}
		cond := words[0]
		words = words[1:]
		if words[0].String() == "then" {
			words = words[1:]
			if len(words) == 0 {
				return wrongArgs(i, "if expr1 ?then? body1 ...")
			}
		}
		b, code := i.exprBool(cond.String())
		if code != ResultOK {
			return code
		}
		if b {
			return i.EvalObj(words[0])
		}
		words = words[1:]
		if len(words) == 0 {
			i.SetResult(NewObj())
			return ResultOK
		}
		switch words[0].String() {
		case "elseif":
			words = words[1:]
			continue
		case "else":
			words = words[1:]
			if len(words) != 1 {
				return wrongArgs(i, "if ... else body")
			}
			return i.EvalObj(words[0])
		default:
			if len(words) != 1 {
				return wrongArgs(i, "if ... ?else? ?bodyN?")
			}
			return i.EvalObj(words[0])
		}
	}
}

func cmdWhile(i *Interp, cd any, args []*Obj) Code {
	if len(args) != 3 {
		return wrongArgs(i, "while test command")
	}
	for {
		b, code := i.exprBool(args[1].String())
		if code != ResultOK {
			return code
		}
		if !b {
			break
		}
		switch code := i.EvalObj(args[2]); code {
		case ResultOK, ResultContinue:
		case ResultBreak:
			i.SetResult(NewObj())
			return ResultOK
		default:
			return code
		}
	}
	i.SetResult(NewObj())
	return ResultOK
}

func cmdFor(i *Interp, cd any, args []*Obj) Code {
	if len(args) != 5 {
		return wrongArgs(i, "for start test next command")
	}
	if code := i.EvalObj(args[1]); code != ResultOK {
		return code
	}
	for {
		b, code := i.exprBool(args[2].String())
		if code != ResultOK {
			return code
		}
		if !b {
			break
		}
		switch code := i.EvalObj(args[4]); code {
		case ResultOK, ResultContinue:
		case ResultBreak:
			i.SetResult(NewObj())
			return ResultOK
		default:
			return code
		}
		if code := i.EvalObj(args[3]); code != ResultOK {
			return code
		}
	}
	i.SetResult(NewObj())
	return ResultOK
}

func cmdForeach(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 4 || len(args)%2 != 0 {
		return wrongArgs(i, "foreach varList list ?varList list ...? command")
	}
	body := args[len(args)-1]
	pairs := args[1 : len(args)-1]
	type group struct {
		names []string
		items []*Obj
	}
	var groups []group
	maxIter := 0
	for n := 0; n < len(pairs); n += 2 {
		names, err := ParseList(pairs[n].String())
		if err != nil || len(names) == 0 {
			return i.SetErrorf("foreach varlist is empty or malformed")
		}
		items, err := pairs[n+1].AsList()
		if err != nil {
			return i.SetError(err)
		}
		snapshot := make([]*Obj, len(items))
		copy(snapshot, items)
		groups = append(groups, group{names: names, items: snapshot})
		iters := (len(items) + len(names) - 1) / len(names)
		if iters > maxIter {
			maxIter = iters
		}
	}
	for iter := 0; iter < maxIter; iter++ {
		for _, g := range groups {
			for n, name := range g.names {
				idx := iter*len(g.names) + n
				val := NewObj()
				if idx < len(g.items) {
					val = g.items[idx]
				}
				n1, elem := splitIndexedName(name)
				if _, err := i.SetVar(n1, elem, val); err != nil {
					return i.SetError(err)
				}
			}
		}
		switch code := i.EvalObj(body); code {
		case ResultOK, ResultContinue:
		case ResultBreak:
			i.SetResult(NewObj())
			return ResultOK
		default:
			return code
		}
	}
	i.SetResult(NewObj())
	return ResultOK
}

func cmdBreak(i *Interp, cd any, args []*Obj) Code {
	if len(args) != 1 {
		return wrongArgs(i, "break")
	}
	i.SetResult(NewObj())
	return ResultBreak
}

func cmdContinue(i *Interp, cd any, args []*Obj) Code {
	if len(args) != 1 {
		return wrongArgs(i, "continue")
	}
	i.SetResult(NewObj())
	return ResultContinue
}

func cmdProc(i *Interp, cd any, args []*Obj) Code {
	if len(args) != 4 {
		return wrongArgs(i, "proc name args body")
	}
	params, err := parseProcParams(args[2])
	if err != nil {
		return i.SetError(err)
	}
	name := args[1].String()
	p := &Proc{
		name:   name,
		params: params,
		body:   args[3].Retain(),
	}
	cmd, err := i.createCommand(name, procInvoke, p)
	if err != nil {
		return i.SetError(err)
	}
	p.ns = cmd.ns
	cmd.proc = p
	i.SetResult(NewObj())
	return ResultOK
}

// applyReturnOptions installs an options dictionary as the in-flight
// return options and yields the completion code the caller should
// raise. Unknown keys are preserved.
func (i *Interp) applyReturnOptions(opts *Obj) (Code, error) {
	d, err := opts.AsDict()
	if err != nil {
		return 0, err
	}
	ro := &ReturnOptions{Code: ResultOK, Level: 1}
	for _, k := range d.Order {
		v := d.Items[k]
		switch k {
		case "-code":
			c, err := ParseCode(v)
			if err != nil {
				return 0, err
			}
			ro.Code = c
		case "-level":
			n, err := v.AsInt()
			if err != nil || n < 0 {
				return 0, fmt.Errorf("bad -level value: expected non-negative integer but got %q", v.String())
			}
			ro.Level = int(n)
		case "-errorinfo":
			ro.ErrorInfo = v.Retain()
		case "-errorcode":
			ro.ErrorCode = v.Retain()
		case "-errorline":
			n, err := v.AsInt()
			if err != nil {
				return 0, fmt.Errorf("bad -errorline value %q", v.String())
			}
			ro.ErrorLine = int(n)
		default:
			ro.setExtra(k, v)
		}
	}
	i.returnOpts = ro
	if ro.Level == 0 {
		return ro.Code, nil
	}
	return ResultReturn, nil
}

func cmdReturn(i *Interp, cd any, args []*Obj) Code {
	rest := args[1:]
	result := NewObj()
	if len(rest)%2 == 1 {
		result = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}
	ro := &ReturnOptions{Code: ResultOK, Level: 1}
	for n := 0; n < len(rest); n += 2 {
		key := rest[n].String()
		val := rest[n+1]
		switch key {
		case "-code":
			c, err := ParseCode(val)
			if err != nil {
				return i.SetError(err)
			}
			ro.Code = c
		case "-level":
			lv, err := val.AsInt()
			if err != nil || lv < 0 {
				return i.SetErrorf("bad -level value: expected non-negative integer but got %q", val.String())
			}
			ro.Level = int(lv)
		case "-errorinfo":
			ro.ErrorInfo = val.Retain()
		case "-errorcode":
			ro.ErrorCode = val.Retain()
		case "-errorline":
			lv, err := val.AsInt()
			if err != nil {
				return i.SetErrorf("bad -errorline value %q", val.String())
			}
			ro.ErrorLine = int(lv)
		case "-options":
			d, err := val.AsDict()
			if err != nil {
				return i.SetError(err)
			}
			for _, k := range d.Order {
				rest = append(rest, NewString(k), d.Items[k])
			}
		default:
			// Unknown keys ride along in the options dictionary.
			ro.setExtra(key, val)
		}
	}
	i.SetResult(result)
	i.returnOpts = ro
	if ro.Level == 0 {
		return ro.Code
	}
	return ResultReturn
}

func cmdError(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 2 || len(args) > 4 {
		return wrongArgs(i, "error message ?errorInfo? ?errorCode?")
	}
	i.SetResult(args[1])
	ro := &ReturnOptions{Code: ResultError, Level: 0}
	if len(args) >= 3 && args[2].Len() > 0 {
		ro.ErrorInfo = args[2].Retain()
		i.errorInfo = args[2].Retain()
		i.errAlreadyLogged = true
	}
	if len(args) == 4 {
		ro.ErrorCode = args[3].Retain()
		i.SetErrorCode(args[3])
	}
	i.returnOpts = ro
	return ResultError
}

func cmdCatch(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 2 || len(args) > 4 {
		return wrongArgs(i, "catch script ?resultVarName? ?optionVarName?")
	}
	code := i.EvalObj(args[1])
	if len(args) >= 3 {
		if _, err := i.SetVar(args[2].String(), "", i.result); err != nil {
			return i.SetError(err)
		}
	}
	if len(args) == 4 {
		if _, err := i.SetVar(args[3].String(), "", i.ReturnOptions()); err != nil {
			return i.SetError(err)
		}
	}
	// The caught completion is neutralized; errors may be raised again
	// from a fresh state.
	i.errAlreadyLogged = false
	i.SetResult(NewInt(int64(code)))
	return ResultOK
}

func cmdGlobal(i *Interp, cd any, args []*Obj) Code {
	globalFrame := i.frames[0]
	for _, name := range args[1:] {
		if err := i.LinkVar(name.String(), globalFrame, name.String()); err != nil {
			return i.SetError(err)
		}
	}
	i.SetResult(NewObj())
	return ResultOK
}

func cmdUpvar(i *Interp, cd any, args []*Obj) Code {
	rest := args[1:]
	level := "1"
	if len(rest) > 0 {
		s := rest[0].String()
		if strings.HasPrefix(s, "#") || isAllDigits(s) {
			level = s
			rest = rest[1:]
		}
	}
	if len(rest) == 0 || len(rest)%2 != 0 {
		return wrongArgs(i, "upvar ?level? otherVar localVar ?otherVar localVar ...?")
	}
	target, err := i.FrameAtLevel(level)
	if err != nil {
		return i.SetError(err)
	}
	for n := 0; n < len(rest); n += 2 {
		if err := i.LinkVar(rest[n+1].String(), target, rest[n].String()); err != nil {
			return i.SetError(err)
		}
	}
	i.SetResult(NewObj())
	return ResultOK
}

func cmdUplevel(i *Interp, cd any, args []*Obj) Code {
	rest := args[1:]
	level := "1"
	if len(rest) > 1 {
		s := rest[0].String()
		if strings.HasPrefix(s, "#") || isAllDigits(s) {
			level = s
			rest = rest[1:]
		}
	}
	if len(rest) == 0 {
		return wrongArgs(i, "uplevel ?level? command ?arg ...?")
	}
	target, err := i.FrameAtLevel(level)
	if err != nil {
		return i.SetError(err)
	}
	var script *Obj
	if len(rest) == 1 {
		script = rest[0]
	} else {
		parts := make([]string, len(rest))
		for n, a := range rest {
			parts[n] = a.String()
		}
		script = NewString(strings.Join(parts, " "))
	}
	saved := i.frames
	i.frames = i.framesUpTo(target)
	code := i.EvalObj(script)
	i.frames = saved
	return code
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for n := 0; n < len(s); n++ {
		if s[n] < '0' || s[n] > '9' {
			return false
		}
	}
	return true
}

func cmdVariable(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 2 {
		return wrongArgs(i, "variable ?name value...? name ?value?")
	}
	ns := i.currentNamespace()
	rest := args[1:]
	for n := 0; n < len(rest); n += 2 {
		name := rest[n].String()
		simple := name
		if idx := strings.LastIndex(name, "::"); idx >= 0 {
			simple = name[idx+2:]
		}
		v, ok := ns.vars[simple]
		if !ok {
			v = &Var{name: simple}
			ns.vars[simple] = v
		}
		if n+1 < len(rest) {
			old := v.value
			v.value = rest[n+1].Retain()
			if old != nil {
				old.Release()
			}
		}
		// Inside a procedure the name also becomes a local link. The
		// link goes in the compiled slot when one exists so that slot
		// based variable access resolves through it.
		f := i.currentFrame()
		if f.proc != nil {
			link := &Var{name: simple, link: v}
			placed := false
			for idx, ln := range f.localNames {
				if ln == simple {
					f.locals[idx] = link
					placed = true
					break
				}
			}
			if !placed {
				f.vars[simple] = link
			}
		}
	}
	i.SetResult(NewObj())
	return ResultOK
}

func cmdNamespace(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 2 {
		return wrongArgs(i, "namespace subcommand ?arg ...?")
	}
	switch args[1].String() {
	case "current":
		i.SetResult(NewString(i.currentNamespace().fullName))
		return ResultOK
	case "eval":
		if len(args) < 4 {
			return wrongArgs(i, "namespace eval name arg ?arg...?")
		}
		ns, err := i.findNamespace(args[2].String(), i.currentNamespace(), true)
		if err != nil {
			return i.SetError(err)
		}
		var script *Obj
		if len(args) == 4 {
			script = args[3]
		} else {
			parts := make([]string, len(args)-3)
			for n, a := range args[3:] {
				parts[n] = a.String()
			}
			script = NewString(strings.Join(parts, " "))
		}
		f := newFrame(ns, i.currentFrame().level)
		i.frames = append(i.frames, f)
		code := i.EvalObj(script)
		i.frames = i.frames[:len(i.frames)-1]
		return code
	case "delete":
		for _, name := range args[2:] {
			ns, err := i.findNamespace(name.String(), i.currentNamespace(), false)
			if err != nil {
				return i.SetError(err)
			}
			if err := i.deleteNamespace(ns); err != nil {
				return i.SetError(err)
			}
		}
		i.SetResult(NewObj())
		return ResultOK
	case "exists":
		if len(args) != 3 {
			return wrongArgs(i, "namespace exists name")
		}
		_, err := i.findNamespace(args[2].String(), i.currentNamespace(), false)
		i.SetResult(NewBool(err == nil))
		return ResultOK
	case "children":
		ns := i.currentNamespace()
		if len(args) >= 3 {
			found, err := i.findNamespace(args[2].String(), ns, false)
			if err != nil {
				return i.SetError(err)
			}
			ns = found
		}
		var items []*Obj
		for _, child := range ns.children {
			items = append(items, NewString(child.fullName))
		}
		i.SetResult(NewList(items))
		return ResultOK
	case "export":
		ns := i.currentNamespace()
		for _, pat := range args[2:] {
			ns.exports = append(ns.exports, pat.String())
		}
		i.SetResult(NewObj())
		return ResultOK
	case "import":
		for _, pat := range args[2:] {
			if code := i.namespaceImport(pat.String()); code != ResultOK {
				return code
			}
		}
		i.SetResult(NewObj())
		return ResultOK
	}
	return i.SetErrorf("unknown namespace subcommand %q", args[1].String())
}

// namespaceImport copies exported commands matching a qualified pattern
// into the current namespace.
func (i *Interp) namespaceImport(pattern string) Code {
	idx := strings.LastIndex(pattern, "::")
	if idx < 0 {
		return i.SetErrorf("no namespace specified in import pattern %q", pattern)
	}
	nsName, cmdPat := pattern[:idx], pattern[idx+2:]
	src, err := i.findNamespace(nsName, i.currentNamespace(), false)
	if err != nil {
		return i.SetError(err)
	}
	dst := i.currentNamespace()
	for name, cmd := range src.commands {
		if !StringMatch(cmdPat, name) {
			continue
		}
		exported := false
		for _, pat := range src.exports {
			if StringMatch(pat, name) {
				exported = true
				break
			}
		}
		if !exported {
			continue
		}
		target := cmd
		imported := &Command{
			name:       name,
			fullName:   qualify(dst, name),
			ns:         dst,
			fn:         func(i *Interp, cd any, args []*Obj) Code { return target.fn(i, target.clientData, args) },
			clientData: nil,
			epoch:      i.cmdEpoch,
		}
		dst.commands[name] = imported
	}
	i.bumpCmdEpoch()
	return ResultOK
}

func cmdRename(i *Interp, cd any, args []*Obj) Code {
	if len(args) != 3 {
		return wrongArgs(i, "rename oldName newName")
	}
	if err := i.RenameCommand(args[1].String(), args[2].String()); err != nil {
		return i.SetError(err)
	}
	i.SetResult(NewObj())
	return ResultOK
}

func cmdTrace(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 2 {
		return wrongArgs(i, "trace subcommand ?arg ...?")
	}
	switch args[1].String() {
	case "add":
		if len(args) != 6 || args[2].String() != "variable" {
			return wrongArgs(i, "trace add variable name ops commandPrefix")
		}
		ops, err := traceOpsFromList(args[4])
		if err != nil {
			return i.SetError(err)
		}
		prefix := args[5].String()
		n1, elem := splitIndexedName(args[3].String())
		err = i.TraceVar(n1, elem, ops, func(i *Interp, name1, name2, op string) error {
			script := prefix + " " + FormatList([]string{name1, name2, op})
			if code := i.EvalObj(NewString(script)); code != ResultOK {
				return fmt.Errorf("%s", i.result.String())
			}
			return nil
		})
		if err != nil {
			return i.SetError(err)
		}
		i.SetResult(NewObj())
		return ResultOK
	case "remove":
		if len(args) != 6 || args[2].String() != "variable" {
			return wrongArgs(i, "trace remove variable name ops commandPrefix")
		}
		ops, err := traceOpsFromList(args[4])
		if err != nil {
			return i.SetError(err)
		}
		n1, elem := splitIndexedName(args[3].String())
		if err := i.UntraceVar(n1, elem, ops); err != nil {
			return i.SetError(err)
		}
		i.SetResult(NewObj())
		return ResultOK
	}
	return i.SetErrorf("unknown trace subcommand %q", args[1].String())
}

// traceOpsFromList maps an ops list like {read write} to the compact
// "rw" form TraceVar accepts.
func traceOpsFromList(o *Obj) (string, error) {
	words, err := o.AsList()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, w := range words {
		switch w.String() {
		case "read":
			b.WriteByte('r')
		case "write":
			b.WriteByte('w')
		case "unset":
			b.WriteByte('u')
		default:
			return "", fmt.Errorf("bad operation %q: must be read, write, or unset", w.String())
		}
	}
	return b.String(), nil
}

func cmdEval(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 2 {
		return wrongArgs(i, "eval arg ?arg ...?")
	}
	if len(args) == 2 {
		return i.EvalObj(args[1])
	}
	parts := make([]string, len(args)-1)
	for n, a := range args[1:] {
		parts[n] = a.String()
	}
	return i.Eval(strings.Join(parts, " "))
}

func cmdInfo(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 2 {
		return wrongArgs(i, "info subcommand ?arg ...?")
	}
	switch args[1].String() {
	case "exists":
		if len(args) != 3 {
			return wrongArgs(i, "info exists varName")
		}
		n1, elem := splitIndexedName(args[2].String())
		_, err := i.GetVar(n1, elem)
		i.SetResult(NewBool(err == nil))
		return ResultOK
	case "level":
		if len(args) == 2 {
			i.SetResult(NewInt(int64(i.currentFrame().level)))
			return ResultOK
		}
		f, err := i.FrameAtLevel(args[2].String())
		if err != nil {
			return i.SetError(err)
		}
		if f.objv == nil {
			return i.SetErrorf("bad level %q", args[2].String())
		}
		items := make([]*Obj, len(f.objv))
		copy(items, f.objv)
		i.SetResult(NewList(items))
		return ResultOK
	case "commands":
		pat := "*"
		if len(args) >= 3 {
			pat = args[2].String()
		}
		var items []*Obj
		for name := range i.currentNamespace().commands {
			if StringMatch(pat, name) {
				items = append(items, NewString(name))
			}
		}
		if i.currentNamespace() != i.global {
			for name := range i.global.commands {
				if StringMatch(pat, name) {
					items = append(items, NewString(name))
				}
			}
		}
		i.SetResult(NewList(items))
		return ResultOK
	case "body":
		if len(args) != 3 {
			return wrongArgs(i, "info body procname")
		}
		cmd := i.resolveCommand(args[2].String())
		if cmd == nil || cmd.proc == nil {
			return i.SetErrorf("%q isn't a procedure", args[2].String())
		}
		i.SetResult(cmd.proc.body)
		return ResultOK
	case "args":
		if len(args) != 3 {
			return wrongArgs(i, "info args procname")
		}
		cmd := i.resolveCommand(args[2].String())
		if cmd == nil || cmd.proc == nil {
			return i.SetErrorf("%q isn't a procedure", args[2].String())
		}
		names := make([]*Obj, len(cmd.proc.params))
		for n, p := range cmd.proc.params {
			names[n] = NewString(p.name)
		}
		i.SetResult(NewList(names))
		return ResultOK
	}
	return i.SetErrorf("unknown info subcommand %q", args[1].String())
}

func cmdPuts(i *Interp, cd any, args []*Obj) Code {
	rest := args[1:]
	newline := true
	if len(rest) > 0 && rest[0].String() == "-nonewline" {
		newline = false
		rest = rest[1:]
	}
	if len(rest) != 1 {
		return wrongArgs(i, "puts ?-nonewline? string")
	}
	out := i.Out
	if out == nil {
		i.SetResult(NewObj())
		return ResultOK
	}
	text := rest[0].String()
	if newline {
		text += "\n"
	}
	if _, err := out.Write([]byte(text)); err != nil {
		return i.SetError(err)
	}
	i.SetResult(NewObj())
	return ResultOK
}
