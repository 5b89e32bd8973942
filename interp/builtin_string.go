package interp

import (
	"fmt"
	"strings"
	"unicode"
)

func registerStringCommands(i *Interp) {
	i.RegisterCommand("::string", cmdString, nil)
	i.RegisterCommand("::format", cmdFormat, nil)
}

// StringMatch implements glob-style matching: * matches any run, ?
// any single character, [...] a character set with ranges, and \x a
// literal x.
func StringMatch(pattern, s string) bool {
	p := []rune(pattern)
	t := []rune(s)
	return globMatch(p, t)
}

func globMatch(p, s []rune) bool {
	for len(p) > 0 {
		switch p[0] {
		case '*':
			for len(p) > 0 && p[0] == '*' {
				p = p[1:]
			}
			if len(p) == 0 {
				return true
			}
			for n := 0; n <= len(s); n++ {
				if globMatch(p, s[n:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			p = p[1:]
			s = s[1:]
		case '[':
			if len(s) == 0 {
				return false
			}
			rest, ok := matchSet(p[1:], s[0])
			if !ok {
				return false
			}
			p = rest
			s = s[1:]
		case '\\':
			if len(p) < 2 || len(s) == 0 || p[1] != s[0] {
				return false
			}
			p = p[2:]
			s = s[1:]
		default:
			if len(s) == 0 || p[0] != s[0] {
				return false
			}
			p = p[1:]
			s = s[1:]
		}
	}
	return len(s) == 0
}

// matchSet matches c against a [...] set starting just past the open
// bracket, returning the pattern remainder past the close bracket.
func matchSet(p []rune, c rune) ([]rune, bool) {
	matched := false
	n := 0
	for n < len(p) && p[n] != ']' {
		lo := p[n]
		if n+2 < len(p) && p[n+1] == '-' && p[n+2] != ']' {
			hi := p[n+2]
			if c >= lo && c <= hi {
				matched = true
			}
			n += 3
			continue
		}
		if c == lo {
			matched = true
		}
		n++
	}
	if n >= len(p) {
		return nil, false
	}
	return p[n+1:], matched
}

func cmdString(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 3 {
		return wrongArgs(i, "string subcommand string ?arg ...?")
	}
	sub := args[1].String()
	switch sub {
	case "length":
		i.SetResult(NewInt(int64(len([]rune(args[2].String())))))
		return ResultOK
	case "index":
		if len(args) != 4 {
			return wrongArgs(i, "string index string charIndex")
		}
		runes := []rune(args[2].String())
		n, err := listIndexArg(args[3], len(runes))
		if err != nil {
			return i.SetError(err)
		}
		if n < 0 || n >= len(runes) {
			i.SetResult(NewObj())
		} else {
			i.SetResult(NewString(string(runes[n])))
		}
		return ResultOK
	case "range":
		if len(args) != 5 {
			return wrongArgs(i, "string range string first last")
		}
		runes := []rune(args[2].String())
		first, err := listIndexArg(args[3], len(runes))
		if err != nil {
			return i.SetError(err)
		}
		last, err := listIndexArg(args[4], len(runes))
		if err != nil {
			return i.SetError(err)
		}
		if first < 0 {
			first = 0
		}
		if last >= len(runes) {
			last = len(runes) - 1
		}
		if first > last {
			i.SetResult(NewObj())
		} else {
			i.SetResult(NewString(string(runes[first : last+1])))
		}
		return ResultOK
	case "tolower":
		i.SetResult(NewString(strings.ToLower(args[2].String())))
		return ResultOK
	case "toupper":
		i.SetResult(NewString(strings.ToUpper(args[2].String())))
		return ResultOK
	case "trim":
		cutset := " \t\n\r"
		if len(args) == 4 {
			cutset = args[3].String()
		}
		i.SetResult(NewString(strings.Trim(args[2].String(), cutset)))
		return ResultOK
	case "equal":
		if len(args) != 4 {
			return wrongArgs(i, "string equal string1 string2")
		}
		i.SetResult(NewBool(args[2].String() == args[3].String()))
		return ResultOK
	case "compare":
		if len(args) != 4 {
			return wrongArgs(i, "string compare string1 string2")
		}
		i.SetResult(NewInt(int64(strings.Compare(args[2].String(), args[3].String()))))
		return ResultOK
	case "match":
		if len(args) != 4 {
			return wrongArgs(i, "string match pattern string")
		}
		i.SetResult(NewBool(StringMatch(args[2].String(), args[3].String())))
		return ResultOK
	case "first":
		if len(args) != 4 {
			return wrongArgs(i, "string first needleString haystackString")
		}
		i.SetResult(NewInt(int64(strings.Index(args[3].String(), args[2].String()))))
		return ResultOK
	case "last":
		if len(args) != 4 {
			return wrongArgs(i, "string last needleString haystackString")
		}
		i.SetResult(NewInt(int64(strings.LastIndex(args[3].String(), args[2].String()))))
		return ResultOK
	case "is":
		// string is class string; supports the classes expressions need.
		if len(args) != 4 {
			return wrongArgs(i, "string is class string")
		}
		s := args[3].String()
		var ok bool
		switch args[2].String() {
		case "integer":
			ok = NewString(s).IsNumeric()
			if ok {
				_, isInt := NewString(s).intrep.(IntType)
				ok = isInt
			}
		case "double":
			ok = NewString(s).IsNumeric()
		case "boolean":
			_, err := NewString(s).AsBool()
			ok = err == nil
		case "space":
			ok = s != "" && strings.TrimFunc(s, unicode.IsSpace) == ""
		case "alpha":
			ok = s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) < 0
		case "digit":
			ok = s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
		default:
			return i.SetErrorf("unknown string class %q", args[2].String())
		}
		i.SetResult(NewBool(ok))
		return ResultOK
	}
	return i.SetErrorf("unknown string subcommand %q", sub)
}

// cmdFormat is a thin bridge to Go's formatter for the common verbs.
func cmdFormat(i *Interp, cd any, args []*Obj) Code {
	if len(args) < 2 {
		return wrongArgs(i, "format formatString ?arg ...?")
	}
	spec := args[1].String()
	vals := make([]any, 0, len(args)-2)
	argIdx := 2
	for n := 0; n < len(spec) && argIdx < len(args); n++ {
		if spec[n] != '%' {
			continue
		}
		n++
		for n < len(spec) && strings.ContainsRune("-+ #0123456789.", rune(spec[n])) {
			n++
		}
		if n >= len(spec) {
			break
		}
		switch spec[n] {
		case 'd', 'i', 'x', 'X', 'o', 'b', 'c':
			v, err := args[argIdx].AsInt()
			if err != nil {
				return i.SetError(err)
			}
			vals = append(vals, v)
			argIdx++
		case 'f', 'e', 'E', 'g', 'G':
			v, err := args[argIdx].AsDouble()
			if err != nil {
				return i.SetError(err)
			}
			vals = append(vals, v)
			argIdx++
		case 's', 'q', 'v':
			vals = append(vals, args[argIdx].String())
			argIdx++
		case '%':
		}
	}
	spec = strings.ReplaceAll(spec, "%i", "%d")
	i.SetResult(NewString(fmt.Sprintf(spec, vals...)))
	return ResultOK
}
