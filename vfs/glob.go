package vfs

import (
	"fmt"
	"strings"

	"github.com/das/fen/interp"
)

func matchGlob(pattern, name string) bool {
	return interp.StringMatch(pattern, name)
}

// MatchInDirectory globs inside one directory, delegating to the
// directory's filesystem. A nil dir means the interpreter's cwd; in
// that case the cwd prefix is stripped from each result so callers see
// relative names, and filesystem implementations never deal with the
// cwd themselves.
func (s *State) MatchInDirectory(dir *interp.Obj, pattern string, types GlobTypes) ([]*interp.Obj, error) {
	relative := dir == nil
	if dir == nil {
		dir = s.cwd
	}
	norm, err := s.Normalize(dir)
	if err != nil {
		return nil, err
	}
	rec, err := s.FilesystemFor(dir)
	if err != nil {
		return nil, err
	}
	g, ok := rec.FS.(GlobFS)
	if !ok {
		return nil, fmt.Errorf("filesystem %q does not support glob", rec.FS.Name())
	}
	names, err := g.MatchInDirectory(norm.String(), pattern, types)
	if err != nil {
		return nil, err
	}
	prefix := norm.String()
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	out := make([]*interp.Obj, 0, len(names))
	for _, name := range names {
		if relative {
			name = strings.TrimPrefix(name, prefix)
		}
		out = append(out, interp.NewString(name))
	}
	return out, nil
}
