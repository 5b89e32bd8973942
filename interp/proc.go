package interp

import (
	"fmt"
	"strings"

	"github.com/das/fen/pkg/parser"
)

type procParam struct {
	name   string
	def    *Obj
	hasDef bool
}

// Proc is a script-defined procedure. The body value carries its
// compiled unit in its intrep; a stale compile epoch triggers lazy
// recompilation on the next call.
type Proc struct {
	name   string
	params []procParam
	body   *Obj
	ns     *Namespace
}

func (i *Interp) compileProcBody(source string, p *Proc) (*Unit, error) {
	script, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return i.compileScriptUnit(script, source, p)
}

func parseProcParams(spec *Obj) ([]procParam, error) {
	fields, err := spec.AsList()
	if err != nil {
		return nil, err
	}
	params := make([]procParam, 0, len(fields))
	for _, f := range fields {
		parts, err := f.AsList()
		if err != nil {
			return nil, err
		}
		switch len(parts) {
		case 1:
			params = append(params, procParam{name: parts[0].String()})
		case 2:
			params = append(params, procParam{
				name:   parts[0].String(),
				def:    parts[1].Retain(),
				hasDef: true,
			})
		default:
			return nil, fmt.Errorf("too many fields in argument specifier %q", f.String())
		}
	}
	return params, nil
}

// usage renders the wrong-number-of-arguments message body.
func (p *Proc) usage() string {
	var b strings.Builder
	b.WriteString(p.name)
	for _, prm := range p.params {
		b.WriteByte(' ')
		if prm.name == "args" || prm.hasDef {
			b.WriteString("?" + prm.name + "?")
		} else {
			b.WriteString(prm.name)
		}
	}
	return b.String()
}

// procInvoke runs a procedure call: binds arguments to compiled-local
// slots, pushes a frame, and executes the body unit.
func procInvoke(i *Interp, cd any, args []*Obj) Code {
	p := cd.(*Proc)
	u, err := i.unitForScript(p.body, p)
	if err != nil {
		return i.SetErrorf("%s", err.Error())
	}

	f := newFrame(p.ns, i.currentFrame().level+1)
	f.proc = p
	f.localNames = u.LocalNames
	f.locals = make([]*Var, len(u.LocalNames))
	f.objv = args

	actuals := args[1:]
	for idx, prm := range p.params {
		if prm.name == "args" && idx == len(p.params)-1 {
			rest := actuals[min(idx, len(actuals)):]
			f.locals[idx] = &Var{name: prm.name, value: NewList(rest).Retain()}
			actuals = actuals[:min(idx, len(actuals))]
			break
		}
		var val *Obj
		switch {
		case idx < len(actuals):
			val = actuals[idx]
		case prm.hasDef:
			val = prm.def
		default:
			return i.SetErrorf("wrong # args: should be %q", p.usage())
		}
		f.locals[idx] = &Var{name: prm.name, value: val.Retain()}
	}
	lastIsArgs := len(p.params) > 0 && p.params[len(p.params)-1].name == "args"
	if !lastIsArgs && len(actuals) > len(p.params) {
		return i.SetErrorf("wrong # args: should be %q", p.usage())
	}

	i.frames = append(i.frames, f)
	code := i.execUnit(u)
	i.frames = i.frames[:len(i.frames)-1]
	for _, cell := range f.locals {
		if cell != nil {
			cell.invalidate(i)
		}
	}
	for _, cell := range f.vars {
		cell.invalidate(i)
	}

	if code == ResultReturn {
		code = i.unwindReturn()
	}
	if code == ResultError {
		i.logErrorInfo(fmt.Sprintf("    (procedure %q line %d)", p.name, i.errorLine))
	}
	return code
}

// unwindReturn processes a return completion crossing a procedure
// boundary: the level counts down once per frame, and at zero the
// carried code takes effect.
func (i *Interp) unwindReturn() Code {
	opts := i.returnOpts
	if opts.Level > 0 {
		opts.Level--
	}
	if opts.Level > 0 {
		return ResultReturn
	}
	code := opts.Code
	if code == ResultError {
		if opts.ErrorCode != nil && i.errorCode == nil {
			i.errorCode = opts.ErrorCode.Retain()
		}
		if opts.ErrorInfo != nil && i.errorInfo == nil {
			i.errorInfo = opts.ErrorInfo.Retain()
		}
		if opts.ErrorLine != 0 {
			i.errorLine = opts.ErrorLine
		}
	}
	return code
}
