// Package interp implements the Fen command language: a dual-representation
// value system, a bytecode compiler, and a stack virtual machine.
package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
)

// ObjType is an internal representation attached to an Obj. The intrep
// caches a structured view of the value; the string rep remains the
// authoritative form and can always be regenerated from the intrep.
type ObjType interface {
	// TypeName identifies the representation for diagnostics.
	TypeName() string
	// UpdateString produces the canonical string form of the intrep.
	UpdateString() string
	// Dup returns a deep enough copy that mutation of one side cannot
	// be observed through the other.
	Dup() ObjType
}

// Obj is a reference-counted value. At most one of the two
// representations may be absent at a time; both absent is a bug.
type Obj struct {
	refs     int32
	bytes    string
	hasBytes bool
	intrep   ObjType
}

// NewObj returns an empty-string value with refcount zero.
func NewObj() *Obj {
	return &Obj{bytes: "", hasBytes: true}
}

func NewString(s string) *Obj {
	return &Obj{bytes: s, hasBytes: true}
}

func NewInt(n int64) *Obj {
	return &Obj{intrep: IntType(n)}
}

func NewDouble(f float64) *Obj {
	return &Obj{intrep: DoubleType(f)}
}

func NewBool(b bool) *Obj {
	return &Obj{intrep: BoolType(b)}
}

func NewList(items []*Obj) *Obj {
	for _, it := range items {
		it.Retain()
	}
	return &Obj{intrep: &ListType{Items: items}}
}

// Retain increments the reference count and returns the value for
// chaining.
func (o *Obj) Retain() *Obj {
	atomic.AddInt32(&o.refs, 1)
	return o
}

// Release decrements the reference count. Go's collector owns the
// memory; the count exists to drive copy-on-write decisions.
func (o *Obj) Release() {
	if atomic.AddInt32(&o.refs, -1) < 0 {
		atomic.StoreInt32(&o.refs, 0)
	}
}

// Refs reports the current reference count.
func (o *Obj) Refs() int32 {
	return atomic.LoadInt32(&o.refs)
}

// Shared reports whether more than one holder references the value.
// Mutating a shared value in place is not allowed; callers must Dup
// first.
func (o *Obj) Shared() bool {
	return atomic.LoadInt32(&o.refs) > 1
}

// Dup returns an unshared copy with refcount zero. The string rep is
// carried over; the intrep is duplicated through its Dup method.
func (o *Obj) Dup() *Obj {
	d := &Obj{bytes: o.bytes, hasBytes: o.hasBytes}
	if o.intrep != nil {
		d.intrep = o.intrep.Dup()
	}
	return d
}

// String materializes the string representation, generating it from the
// intrep on first use and caching it.
func (o *Obj) String() string {
	if !o.hasBytes {
		o.bytes = o.intrep.UpdateString()
		o.hasBytes = true
	}
	return o.bytes
}

// IntRep returns the current internal representation, which may be nil.
func (o *Obj) IntRep() ObjType {
	return o.intrep
}

// SetIntRep installs a new internal representation, discarding the old
// one. The string rep, if present, is kept.
func (o *Obj) SetIntRep(t ObjType) {
	if !o.hasBytes && t == nil {
		panic("interp: value would lose both representations")
	}
	o.intrep = t
}

// InvalidateString drops the cached string rep after an in-place intrep
// mutation. The intrep must be present.
func (o *Obj) InvalidateString() {
	if o.intrep == nil {
		panic("interp: cannot invalidate string rep without an intrep")
	}
	o.bytes = ""
	o.hasBytes = false
}

// Len returns the length of the string rep in bytes.
func (o *Obj) Len() int {
	return len(o.String())
}

// IntType is the intrep of an integer value.
type IntType int64

func (IntType) TypeName() string        { return "int" }
func (t IntType) UpdateString() string  { return strconv.FormatInt(int64(t), 10) }
func (t IntType) Dup() ObjType          { return t }

// DoubleType is the intrep of a floating-point value.
type DoubleType float64

func (DoubleType) TypeName() string { return "double" }

func (t DoubleType) UpdateString() string {
	f := float64(t)
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Inf"
	}
	if math.IsInf(f, -1) {
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	// Keep doubles distinguishable from integers in string form.
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (t DoubleType) Dup() ObjType { return t }

// BoolType is the intrep of a boolean value.
type BoolType bool

func (BoolType) TypeName() string { return "bool" }

func (t BoolType) UpdateString() string {
	if t {
		return "1"
	}
	return "0"
}

func (t BoolType) Dup() ObjType { return t }

// AsInt converts the value to an integer, going through the string rep
// when the intrep is of another type.
func (o *Obj) AsInt() (int64, error) {
	switch t := o.intrep.(type) {
	case IntType:
		return int64(t), nil
	case BoolType:
		if t {
			return 1, nil
		}
		return 0, nil
	}
	s := strings.TrimSpace(o.String())
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("expected integer but got %q", o.String())
	}
	o.SetIntRep(IntType(n))
	return n, nil
}

// AsDouble converts the value to a float, accepting integer forms.
func (o *Obj) AsDouble() (float64, error) {
	switch t := o.intrep.(type) {
	case DoubleType:
		return float64(t), nil
	case IntType:
		return float64(t), nil
	case BoolType:
		if t {
			return 1, nil
		}
		return 0, nil
	}
	s := strings.TrimSpace(o.String())
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		o.SetIntRep(IntType(n))
		return float64(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("expected floating-point number but got %q", o.String())
	}
	o.SetIntRep(DoubleType(f))
	return f, nil
}

// AsBool converts the value to a boolean. Accepts the boolean words and
// any numeric value, where nonzero is true.
func (o *Obj) AsBool() (bool, error) {
	switch t := o.intrep.(type) {
	case BoolType:
		return bool(t), nil
	case IntType:
		return t != 0, nil
	case DoubleType:
		return t != 0, nil
	}
	s := strings.ToLower(strings.TrimSpace(o.String()))
	switch s {
	case "1", "true", "yes", "on":
		o.SetIntRep(BoolType(true))
		return true, nil
	case "0", "false", "no", "off":
		o.SetIntRep(BoolType(false))
		return false, nil
	}
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return n != 0, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0, nil
	}
	return false, fmt.Errorf("expected boolean value but got %q", o.String())
}

// IsNumeric reports whether the value currently holds, or parses as, a
// number. Parsing installs the numeric intrep as a side effect.
func (o *Obj) IsNumeric() bool {
	switch o.intrep.(type) {
	case IntType, DoubleType:
		return true
	}
	s := strings.TrimSpace(o.String())
	if s == "" {
		return false
	}
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		o.SetIntRep(IntType(n))
		return true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		o.SetIntRep(DoubleType(f))
		return true
	}
	return false
}
