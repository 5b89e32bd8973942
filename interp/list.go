package interp

import (
	"fmt"
	"strings"
)

// ListType is the intrep of a list value. Items hold their own
// references.
type ListType struct {
	Items []*Obj
}

func (*ListType) TypeName() string { return "list" }

func (t *ListType) UpdateString() string {
	elems := make([]string, len(t.Items))
	for i, it := range t.Items {
		elems[i] = it.String()
	}
	return FormatList(elems)
}

func (t *ListType) Dup() ObjType {
	items := make([]*Obj, len(t.Items))
	for i, it := range t.Items {
		items[i] = it.Retain()
	}
	return &ListType{Items: items}
}

// AsList converts the value to a list, parsing the string rep when
// needed. The returned slice is the intrep's backing store; callers
// that mutate it must hold an unshared value and invalidate the string
// rep afterwards.
func (o *Obj) AsList() ([]*Obj, error) {
	if t, ok := o.intrep.(*ListType); ok {
		return t.Items, nil
	}
	elems, err := ParseList(o.String())
	if err != nil {
		return nil, err
	}
	items := make([]*Obj, len(elems))
	for i, e := range elems {
		items[i] = NewString(e).Retain()
	}
	o.SetIntRep(&ListType{Items: items})
	return items, nil
}

// ParseList splits a string into list elements following the quoting
// rules of the language: braced elements nest, quoted elements honor
// backslash escapes, bare elements end at whitespace.
func ParseList(s string) ([]string, error) {
	var elems []string
	i := 0
	for {
		for i < len(s) && isListSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			return elems, nil
		}
		var elem string
		var err error
		switch s[i] {
		case '{':
			elem, i, err = parseBracedElement(s, i)
		case '"':
			elem, i, err = parseQuotedElement(s, i)
		default:
			elem, i, err = parseBareElement(s, i)
		}
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
}

func isListSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func parseBracedElement(s string, i int) (string, int, error) {
	i++ // consume '{'
	start := i
	depth := 1
	for i < len(s) {
		switch s[i] {
		case '\\':
			i += 2
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				elem := s[start:i]
				i++
				if i < len(s) && !isListSpace(s[i]) {
					return "", 0, fmt.Errorf("list element in braces followed by %q instead of space", s[i])
				}
				return elem, i, nil
			}
		}
		i++
	}
	return "", 0, fmt.Errorf("unmatched open brace in list")
}

func parseQuotedElement(s string, i int) (string, int, error) {
	i++ // consume '"'
	var b strings.Builder
	for i < len(s) {
		switch s[i] {
		case '\\':
			r, n := listBackslash(s[i:])
			b.WriteString(r)
			i += n
		case '"':
			i++
			if i < len(s) && !isListSpace(s[i]) {
				return "", 0, fmt.Errorf("list element in quotes followed by %q instead of space", s[i])
			}
			return b.String(), i, nil
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return "", 0, fmt.Errorf("unmatched open quote in list")
}

func parseBareElement(s string, i int) (string, int, error) {
	var b strings.Builder
	for i < len(s) && !isListSpace(s[i]) {
		if s[i] == '\\' {
			r, n := listBackslash(s[i:])
			b.WriteString(r)
			i += n
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String(), i, nil
}

// listBackslash resolves a backslash escape at the start of s, returning
// the replacement text and the number of bytes consumed.
func listBackslash(s string) (string, int) {
	if len(s) < 2 {
		return "\\", 1
	}
	switch s[1] {
	case 'n':
		return "\n", 2
	case 't':
		return "\t", 2
	case 'r':
		return "\r", 2
	case 'a':
		return "\a", 2
	case 'b':
		return "\b", 2
	case 'f':
		return "\f", 2
	case 'v':
		return "\v", 2
	case '\n':
		return " ", 2
	}
	return string(s[1]), 2
}

// FormatList joins elements into a well-formed list string, quoting each
// element so that ParseList recovers it exactly.
func FormatList(elems []string) string {
	var b strings.Builder
	for i, e := range elems {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(quoteListElement(e))
	}
	return b.String()
}

func quoteListElement(e string) string {
	if e == "" {
		return "{}"
	}
	needQuote := false
	braceOK := true
	depth := 0
	for i := 0; i < len(e); i++ {
		switch e[i] {
		case ' ', '\t', '\n', '\r', '\v', '\f', ';', '$', '"', '[', ']':
			needQuote = true
		case '{':
			needQuote = true
			depth++
		case '}':
			needQuote = true
			depth--
			if depth < 0 {
				braceOK = false
			}
		case '\\':
			needQuote = true
			if i == len(e)-1 {
				braceOK = false
			} else {
				i++
			}
		}
	}
	if e[0] == '#' {
		needQuote = true
	}
	if depth != 0 {
		braceOK = false
	}
	if !needQuote {
		return e
	}
	if braceOK {
		return "{" + e + "}"
	}
	// Backslash-quote every special character.
	var b strings.Builder
	for i := 0; i < len(e); i++ {
		switch e[i] {
		case ' ', '\t', ';', '$', '"', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
			b.WriteByte(e[i])
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		default:
			b.WriteByte(e[i])
		}
	}
	return b.String()
}

// DictType is the intrep of a dictionary value. Order preserves first
// insertion for string generation.
type DictType struct {
	Items map[string]*Obj
	Order []string
}

func (*DictType) TypeName() string { return "dict" }

func (t *DictType) UpdateString() string {
	elems := make([]string, 0, len(t.Order)*2)
	for _, k := range t.Order {
		elems = append(elems, k, t.Items[k].String())
	}
	return FormatList(elems)
}

func (t *DictType) Dup() ObjType {
	items := make(map[string]*Obj, len(t.Items))
	for k, v := range t.Items {
		items[k] = v.Retain()
	}
	order := make([]string, len(t.Order))
	copy(order, t.Order)
	return &DictType{Items: items, Order: order}
}

// Get returns the value for key, or nil when absent.
func (t *DictType) Get(key string) *Obj {
	return t.Items[key]
}

// Set stores key to val, preserving the key's original position when it
// already exists.
func (t *DictType) Set(key string, val *Obj) {
	if _, ok := t.Items[key]; !ok {
		t.Order = append(t.Order, key)
	}
	t.Items[key] = val.Retain()
}

// Remove deletes key when present.
func (t *DictType) Remove(key string) {
	if _, ok := t.Items[key]; !ok {
		return
	}
	delete(t.Items, key)
	for i, k := range t.Order {
		if k == key {
			t.Order = append(t.Order[:i], t.Order[i+1:]...)
			break
		}
	}
}

// NewDict returns an empty dictionary value.
func NewDict() *Obj {
	return &Obj{intrep: &DictType{Items: map[string]*Obj{}}}
}

// AsDict converts the value to a dictionary, parsing the string rep as
// an even-length list of key value pairs.
func (o *Obj) AsDict() (*DictType, error) {
	if t, ok := o.intrep.(*DictType); ok {
		return t, nil
	}
	elems, err := ParseList(o.String())
	if err != nil {
		return nil, err
	}
	if len(elems)%2 != 0 {
		return nil, fmt.Errorf("missing value to go with key")
	}
	d := &DictType{Items: make(map[string]*Obj, len(elems)/2)}
	for i := 0; i < len(elems); i += 2 {
		if _, ok := d.Items[elems[i]]; !ok {
			d.Order = append(d.Order, elems[i])
		}
		d.Items[elems[i]] = NewString(elems[i+1]).Retain()
	}
	o.SetIntRep(d)
	return d, nil
}
