package vfs

import (
	"io"
	"os"

	"github.com/das/fen/interp"
)

// Install creates per-interpreter filesystem state and registers the
// filesystem-facing commands. The initial cwd comes from the native
// filesystem.
func Install(i *interp.Interp) *State {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}
	s := NewState(i, cwd)

	i.RegisterCommand("::cd", cmdCd, s)
	i.RegisterCommand("::pwd", cmdPwd, s)
	i.RegisterCommand("::glob", cmdGlob, s)
	i.RegisterCommand("::file", cmdFile, s)
	i.RegisterCommand("::source", cmdSource, s)
	return s
}

func wrongNumArgs(i *interp.Interp, usage string) interp.Code {
	return i.SetErrorf("wrong # args: should be %q", usage)
}

func cmdCd(i *interp.Interp, cd any, args []*interp.Obj) interp.Code {
	s := cd.(*State)
	var target *interp.Obj
	switch len(args) {
	case 1:
		home := os.Getenv("HOME")
		if home == "" {
			home = "/"
		}
		target = interp.NewString(home)
	case 2:
		target = args[1]
	default:
		return wrongNumArgs(i, "cd ?dirName?")
	}
	if err := s.Chdir(target); err != nil {
		return i.SetError(err)
	}
	i.ResetResult()
	return interp.ResultOK
}

func cmdPwd(i *interp.Interp, cd any, args []*interp.Obj) interp.Code {
	s := cd.(*State)
	if len(args) != 1 {
		return wrongNumArgs(i, "pwd")
	}
	i.SetResult(s.Cwd())
	return interp.ResultOK
}

func cmdGlob(i *interp.Interp, cd any, args []*interp.Obj) interp.Code {
	s := cd.(*State)
	var dir *interp.Obj
	var types GlobTypes
	rest := args[1:]
options:
	for len(rest) > 0 {
		switch rest[0].String() {
		case "-directory":
			if len(rest) < 2 {
				return i.SetErrorf("missing argument to %q", "-directory")
			}
			dir = rest[1]
			rest = rest[2:]
		case "-types":
			if len(rest) < 2 {
				return i.SetErrorf("missing argument to %q", "-types")
			}
			items, err := rest[1].AsList()
			if err != nil {
				return i.SetError(err)
			}
			for _, t := range items {
				switch t.String() {
				case "f":
					types.Files = true
				case "d":
					types.Dirs = true
				default:
					return i.SetErrorf("bad type %q: must be f or d", t.String())
				}
			}
			rest = rest[2:]
		case "--":
			rest = rest[1:]
			break options
		default:
			break options
		}
	}
	if len(rest) == 0 {
		return wrongNumArgs(i, "glob ?-directory dir? ?-types list? pattern ?pattern ...?")
	}
	var matches []*interp.Obj
	for _, pat := range rest {
		found, err := s.MatchInDirectory(dir, pat.String(), types)
		if err != nil {
			return i.SetError(err)
		}
		matches = append(matches, found...)
	}
	i.SetResult(interp.NewList(matches))
	return interp.ResultOK
}

func cmdFile(i *interp.Interp, cd any, args []*interp.Obj) interp.Code {
	s := cd.(*State)
	if len(args) < 2 {
		return wrongNumArgs(i, "file subcommand ?arg ...?")
	}
	sub := args[1].String()
	switch sub {
	case "exists", "isfile", "isdirectory", "size", "mtime":
		if len(args) != 3 {
			return wrongNumArgs(i, "file "+sub+" name")
		}
		info, err := s.Stat(args[2])
		switch sub {
		case "exists":
			i.SetResult(interp.NewBool(err == nil))
			return interp.ResultOK
		case "isfile":
			i.SetResult(interp.NewBool(err == nil && !info.IsDir()))
			return interp.ResultOK
		case "isdirectory":
			i.SetResult(interp.NewBool(err == nil && info.IsDir()))
			return interp.ResultOK
		}
		if err != nil {
			return i.SetErrorf("could not read %q: %v", args[2].String(), err)
		}
		if sub == "size" {
			i.SetResult(interp.NewInt(info.Size()))
		} else {
			i.SetResult(interp.NewInt(info.ModTime().Unix()))
		}
		return interp.ResultOK

	case "delete":
		for _, p := range args[2:] {
			if err := s.Remove(p); err != nil {
				return i.SetError(err)
			}
		}
		i.ResetResult()
		return interp.ResultOK

	case "rename":
		if len(args) != 4 {
			return wrongNumArgs(i, "file rename source target")
		}
		if err := s.Rename(args[2], args[3]); err != nil {
			return i.SetError(err)
		}
		i.ResetResult()
		return interp.ResultOK

	case "copy":
		if len(args) != 4 {
			return wrongNumArgs(i, "file copy source target")
		}
		if err := s.Copy(args[2], args[3]); err != nil {
			return i.SetError(err)
		}
		i.ResetResult()
		return interp.ResultOK

	case "mkdir":
		for _, p := range args[2:] {
			if err := s.Mkdir(p, 0o755); err != nil {
				return i.SetError(err)
			}
		}
		i.ResetResult()
		return interp.ResultOK

	case "normalize":
		if len(args) != 3 {
			return wrongNumArgs(i, "file normalize name")
		}
		norm, err := s.Normalize(args[2])
		if err != nil {
			return i.SetError(err)
		}
		i.SetResult(norm)
		return interp.ResultOK

	case "dirname", "tail":
		if len(args) != 3 {
			return wrongNumArgs(i, "file "+sub+" name")
		}
		dir, tail := SplitPath(args[2].String())
		if sub == "dirname" {
			i.SetResult(interp.NewString(dir))
		} else {
			i.SetResult(interp.NewString(tail))
		}
		return interp.ResultOK

	case "join":
		if len(args) < 3 {
			return wrongNumArgs(i, "file join name ?name ...?")
		}
		joined := args[2].String()
		for _, p := range args[3:] {
			part := p.String()
			if isAbsolute(part) {
				joined = part
			} else {
				joined = joinPath(joined, part)
			}
		}
		i.SetResult(interp.NewString(joined))
		return interp.ResultOK

	default:
		return i.SetErrorf("unknown or ambiguous subcommand %q: must be copy, delete, dirname, exists, isdirectory, isfile, join, mkdir, mtime, normalize, rename, size, or tail", sub)
	}
}

func cmdSource(i *interp.Interp, cd any, args []*interp.Obj) interp.Code {
	s := cd.(*State)
	if len(args) != 2 {
		return wrongNumArgs(i, "source fileName")
	}
	f, err := s.Open(args[1], os.O_RDONLY, 0)
	if err != nil {
		return i.SetErrorf("couldn't read file %q: %v", args[1].String(), err)
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return i.SetErrorf("couldn't read file %q: %v", args[1].String(), err)
	}
	code := i.Eval(string(data))
	if code == interp.ResultReturn {
		// A return in a sourced file ends the file, not the caller.
		code = interp.ResultOK
	}
	return code
}

// Copy copies one file's contents across arbitrary filesystems.
func (s *State) Copy(src, dst *interp.Obj) error {
	in, err := s.Open(src, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := s.Open(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
