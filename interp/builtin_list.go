package interp

import (
	"strings"
	"unicode/utf8"
)

func registerListCommands(i *Interp) {
	for name, fn := range map[string]CmdFunc{
		"list":    cmdList,
		"lindex":  cmdLindex,
		"llength": cmdLlength,
		"lappend": cmdLappend,
		"lrange":  cmdLrange,
		"concat":  cmdConcat,
		"join":    cmdJoin,
		"split":   cmdSplit,
	} {
		i.RegisterCommand("::"+name, fn, nil)
	}
}

func cmdList(i *Interp, cd any, args []*Obj) Code {
	items := make([]*Obj, len(args)-1)
	copy(items, args[1:])
	i.SetResult(NewList(items))
	return ResultOK
}

// listIndexArg parses an index word, accepting "end" and "end-N".
func listIndexArg(o *Obj, length int) (int, error) {
	s := o.String()
	if s == "end" {
		return length - 1, nil
	}
	if rest, ok := strings.CutPrefix(s, "end-"); ok {
		off, err := NewString(rest).AsInt()
		if err != nil {
			return 0, err
		}
		return length - 1 - int(off), nil
	}
	n, err := o.AsInt()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func cmdLindex(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 2 {
		return wrongArgs(i, "lindex list ?index ...?")
	}
	cur := args[1]
	for _, idxWord := range args[2:] {
		items, err := cur.AsList()
		if err != nil {
			return i.SetError(err)
		}
		n, err := listIndexArg(idxWord, len(items))
		if err != nil {
			return i.SetError(err)
		}
		if n < 0 || n >= len(items) {
			i.SetResult(NewObj())
			return ResultOK
		}
		cur = items[n]
	}
	i.SetResult(cur)
	return ResultOK
}

func cmdLlength(i *Interp, cd any, args []*Obj) Code {
	if len(args) != 2 {
		return wrongArgs(i, "llength list")
	}
	items, err := args[1].AsList()
	if err != nil {
		return i.SetError(err)
	}
	i.SetResult(NewInt(int64(len(items))))
	return ResultOK
}

// cmdLappend appends elements to a list variable in place, duplicating
// the list first when it is shared.
func cmdLappend(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 2 {
		return wrongArgs(i, "lappend varName ?value value ...?")
	}
	n1, elem := splitIndexedName(args[1].String())
	cur, err := i.GetVar(n1, elem)
	if err != nil {
		cur = NewList(nil)
	}
	if cur.Shared() {
		cur = cur.Dup()
	}
	if _, err := cur.AsList(); err != nil {
		return i.SetError(err)
	}
	t := cur.intrep.(*ListType)
	for _, val := range args[2:] {
		t.Items = append(t.Items, val.Retain())
	}
	cur.InvalidateString()
	stored, err := i.SetVar(n1, elem, cur)
	if err != nil {
		return i.SetError(err)
	}
	i.SetResult(stored)
	return ResultOK
}

func cmdLrange(i *Interp, cd any, args []*Obj) Code {
	if len(args) != 4 {
		return wrongArgs(i, "lrange list first last")
	}
	items, err := args[1].AsList()
	if err != nil {
		return i.SetError(err)
	}
	first, err := listIndexArg(args[2], len(items))
	if err != nil {
		return i.SetError(err)
	}
	last, err := listIndexArg(args[3], len(items))
	if err != nil {
		return i.SetError(err)
	}
	if first < 0 {
		first = 0
	}
	if last >= len(items) {
		last = len(items) - 1
	}
	if first > last {
		i.SetResult(NewList(nil))
		return ResultOK
	}
	out := make([]*Obj, last-first+1)
	copy(out, items[first:last+1])
	i.SetResult(NewList(out))
	return ResultOK
}

func cmdConcat(i *Interp, cd any, args []*Obj) Code {
	var items []*Obj
	for _, a := range args[1:] {
		sub, err := a.AsList()
		if err != nil {
			return i.SetError(err)
		}
		items = append(items, sub...)
	}
	i.SetResult(NewList(items))
	return ResultOK
}

func cmdJoin(i *Interp, cd any, args []*Obj) Code {
	if len(args) != 2 && len(args) != 3 {
		return wrongArgs(i, "join list ?joinString?")
	}
	sep := " "
	if len(args) == 3 {
		sep = args[2].String()
	}
	items, err := args[1].AsList()
	if err != nil {
		return i.SetError(err)
	}
	parts := make([]string, len(items))
	for n, it := range items {
		parts[n] = it.String()
	}
	i.SetResult(NewString(strings.Join(parts, sep)))
	return ResultOK
}

func cmdSplit(i *Interp, cd any, args []*Obj) Code {
	if len(args) != 2 && len(args) != 3 {
		return wrongArgs(i, "split string ?splitChars?")
	}
	s := args[1].String()
	chars := " \t\n\r"
	if len(args) == 3 {
		chars = args[2].String()
	}
	var items []*Obj
	if chars == "" {
		for _, r := range s {
			items = append(items, NewString(string(r)))
		}
	} else {
		start := 0
		for idx, r := range s {
			if strings.ContainsRune(chars, r) {
				items = append(items, NewString(s[start:idx]))
				start = idx + utf8.RuneLen(r)
			}
		}
		items = append(items, NewString(s[start:]))
	}
	i.SetResult(NewList(items))
	return ResultOK
}
