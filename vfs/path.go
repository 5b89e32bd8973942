package vfs

import (
	"strings"

	"github.com/das/fen/interp"
)

// pathType is the internal representation a path-consuming operation
// installs on a value. It caches the normalized form, the cwd the
// normalization was relative to, and the filesystem record the path
// resolved to, stamped with the epoch of resolution. For relative
// paths, tail holds the dot-free remainder: leading ".." components
// are consumed against the directory the value was first resolved in,
// and a later cwd change re-roots the remainder under the new cwd.
type pathType struct {
	translated string
	normalized *interp.Obj // nil when the value is itself normalized
	cwd        *interp.Obj // nil for absolute paths
	tail       string
	rec        *Record
	epoch      uint64
}

func (p *pathType) TypeName() string { return "path" }

func (p *pathType) UpdateString() string { return p.translated }

func (p *pathType) Dup() interp.ObjType {
	cp := *p
	if cp.normalized != nil {
		cp.normalized.Retain()
	}
	if cp.cwd != nil {
		cp.cwd.Retain()
	}
	return &cp
}

// State is the per-interpreter filesystem state: the cached normalized
// cwd. One State serves one interpreter; the filesystem stack itself
// is process-wide.
type State struct {
	i   *interp.Interp
	cwd *interp.Obj
}

// NewState creates filesystem state for an interpreter with the given
// initial working directory (already absolute).
func NewState(i *interp.Interp, cwd string) *State {
	s := &State{i: i}
	s.cwd = interp.NewString(normalizeAbsolute(cwd)).Retain()
	return s
}

// pathRep returns the path intrep for a value, installing a fresh one
// if the value has none or the mount table changed since it was built.
// A cwd change keeps the rep; Normalize re-roots it.
func (s *State) pathRep(o *interp.Obj) *pathType {
	if p, ok := o.IntRep().(*pathType); ok && p.epoch == Epoch() {
		return p
	}
	p := &pathType{translated: o.String(), epoch: Epoch()}
	o.SetIntRep(p)
	return p
}

// Normalize returns the normalized absolute form of a path value. The
// result is cached on the value; relative paths record the cwd they
// were resolved against, and after a cwd change the dot-free remainder
// re-roots under the new cwd.
func (s *State) Normalize(o *interp.Obj) (*interp.Obj, error) {
	p := s.pathRep(o)
	if p.normalized != nil && (p.cwd == nil || p.cwd == s.cwd) {
		return p.normalized, nil
	}
	text := p.translated
	switch {
	case isAbsolute(text):
	case p.cwd != nil:
		p.cwd.Release()
		p.cwd = s.cwd.Retain()
		text = joinPath(s.cwd.String(), p.tail)
	default:
		p.cwd = s.cwd.Retain()
		p.tail = stripDots(text)
		text = joinPath(s.cwd.String(), text)
	}
	norm := normalizeAbsolute(text)
	norm = applyNormalizeHooks(norm)
	if p.normalized != nil {
		p.normalized.Release()
		p.normalized = nil
	}
	p.rec = nil
	if norm == p.translated {
		// Already in normalized form; the value is its own
		// normalization.
		return o, nil
	}
	p.normalized = interp.NewString(norm).Retain()
	return p.normalized, nil
}

// FilesystemFor returns the filesystem record owning a path value,
// using the record cached on the value when its epoch is current.
func (s *State) FilesystemFor(o *interp.Obj) (*Record, error) {
	p := s.pathRep(o)
	if p.rec != nil && p.epoch == Epoch() && (p.cwd == nil || p.cwd == s.cwd) {
		return p.rec, nil
	}
	norm, err := s.Normalize(o)
	if err != nil {
		return nil, err
	}
	rec, err := Resolve(norm.String())
	if err != nil {
		return nil, err
	}
	p.rec = rec
	return rec, nil
}

// ------------------------------------------------------------------ //
// Lexical path algebra
// ------------------------------------------------------------------ //

// Paths with a volume-style prefix ("mem:", "sql:") are treated as
// absolute within their filesystem; everything after the prefix is
// normalized lexically.

func volumePrefix(path string) string {
	for n := 0; n < len(path); n++ {
		c := path[n]
		if c == ':' && n > 0 {
			return path[:n+1]
		}
		if c == '/' {
			return ""
		}
	}
	return ""
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "/") || volumePrefix(path) != ""
}

func joinPath(base, rel string) string {
	if base == "" || strings.HasSuffix(base, "/") {
		return base + rel
	}
	return base + "/" + rel
}

// normalizeAbsolute resolves "." and ".." components lexically. The
// volume prefix, if any, survives untouched.
func normalizeAbsolute(path string) string {
	vol := volumePrefix(path)
	rest := strings.TrimPrefix(path[len(vol):], "/")
	var out []string
	for _, part := range strings.Split(rest, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	if vol != "" {
		return vol + strings.Join(out, "/")
	}
	return "/" + strings.Join(out, "/")
}

// stripDots resolves "." and ".." inside a relative path and drops any
// leading ".." run, leaving the remainder below whatever root it joins.
func stripDots(rel string) string {
	var out []string
	for _, part := range strings.Split(rel, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	return strings.Join(out, "/")
}

// applyNormalizeHooks runs each registered filesystem's normalize hook
// over an already lexically-normalized absolute path, native first,
// then up the stack, so filesystems nearer the head refine the result.
func applyNormalizeHooks(path string) string {
	recs := snapshot()
	defer endIter()
	for n := len(recs) - 1; n >= 0; n-- {
		if nz, ok := recs[n].FS.(Normalizer); ok {
			path = nz.NormalizePath(path)
		}
	}
	return path
}

// SplitPath separates a path into its directory and final component.
func SplitPath(path string) (dir, tail string) {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		if vol := volumePrefix(path); vol != "" {
			return vol, path[len(vol):]
		}
		return ".", path
	}
	if idx == 0 {
		return "/", path[1:]
	}
	return path[:idx], path[idx+1:]
}
