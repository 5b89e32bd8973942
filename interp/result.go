package interp

import (
	"fmt"
	"strconv"
)

// Code is a command completion code. Values above ResultContinue are
// legal and propagate like errors unless caught.
type Code int

const (
	ResultOK       Code = 0
	ResultError    Code = 1
	ResultReturn   Code = 2
	ResultBreak    Code = 3
	ResultContinue Code = 4
)

func (c Code) String() string {
	switch c {
	case ResultOK:
		return "ok"
	case ResultError:
		return "error"
	case ResultReturn:
		return "return"
	case ResultBreak:
		return "break"
	case ResultContinue:
		return "continue"
	}
	return strconv.Itoa(int(c))
}

// ParseCode interprets a value as a completion code: one of the
// symbolic names or any integer.
func ParseCode(o *Obj) (Code, error) {
	switch o.String() {
	case "ok":
		return ResultOK, nil
	case "error":
		return ResultError, nil
	case "return":
		return ResultReturn, nil
	case "break":
		return ResultBreak, nil
	case "continue":
		return ResultContinue, nil
	}
	n, err := o.AsInt()
	if err != nil {
		return 0, fmt.Errorf("bad completion code %q: must be ok, error, return, break, continue, or an integer", o.String())
	}
	return Code(n), nil
}

// ReturnOptions carries the option dictionary of an in-flight result.
// Unknown keys supplied by scripts are preserved in Extra in their
// original order.
type ReturnOptions struct {
	Code      Code
	Level     int
	ErrorInfo *Obj
	ErrorCode *Obj
	ErrorLine int
	Extra     *DictType
}

func newReturnOptions() *ReturnOptions {
	return &ReturnOptions{Code: ResultOK}
}

// ToDict renders the options as a dictionary value in canonical key
// order, with preserved unknown keys appended.
func (r *ReturnOptions) ToDict() *Obj {
	d := &DictType{Items: map[string]*Obj{}}
	d.Set("-code", NewInt(int64(r.Code)))
	d.Set("-level", NewInt(int64(r.Level)))
	if r.ErrorInfo != nil {
		d.Set("-errorinfo", r.ErrorInfo)
	}
	if r.ErrorCode != nil {
		d.Set("-errorcode", r.ErrorCode)
	}
	if r.Code == ResultError {
		d.Set("-errorline", NewInt(int64(r.ErrorLine)))
	}
	if r.Extra != nil {
		for _, k := range r.Extra.Order {
			d.Set(k, r.Extra.Items[k])
		}
	}
	return &Obj{intrep: d}
}

func (r *ReturnOptions) setExtra(key string, val *Obj) {
	if r.Extra == nil {
		r.Extra = &DictType{Items: map[string]*Obj{}}
	}
	r.Extra.Set(key, val)
}
