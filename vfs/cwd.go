package vfs

import (
	"fmt"
	"io/fs"

	"github.com/das/fen/interp"
)

// Cwd returns the cached working directory, polling the owning
// filesystem's getcwd hook so an external change is picked up.
func (s *State) Cwd() *interp.Obj {
	if rec, err := Resolve(s.cwd.String()); err == nil {
		if c, ok := rec.FS.(CwdFS); ok {
			if actual, err := c.Getcwd(); err == nil && actual != s.cwd.String() {
				s.setCwd(actual)
			}
		}
	}
	return s.cwd
}

// Chdir normalizes path, asks the owning filesystem to change into it,
// and on success replaces the cached cwd.
func (s *State) Chdir(path *interp.Obj) error {
	norm, err := s.Normalize(path)
	if err != nil {
		return err
	}
	rec, err := s.FilesystemFor(path)
	if err != nil {
		return err
	}
	if c, ok := rec.FS.(ChdirFS); ok {
		if err := c.Chdir(norm.String()); err != nil {
			return err
		}
	} else {
		// Filesystems without a chdir hook still host a cwd as
		// long as the target is a directory.
		info, err := rec.FS.Stat(norm.String())
		if err != nil {
			return fmt.Errorf("couldn't change working directory to %q: %w", path.String(), err)
		}
		if !info.IsDir() {
			return fmt.Errorf("couldn't change working directory to %q: not a directory", path.String())
		}
	}
	s.setCwd(norm.String())
	return nil
}

func (s *State) setCwd(path string) {
	old := s.cwd
	s.cwd = interp.NewString(normalizeAbsolute(path)).Retain()
	if old != nil {
		old.Release()
	}
}

// Stat dispatches a stat through the path's filesystem.
func (s *State) Stat(path *interp.Obj) (fs.FileInfo, error) {
	norm, err := s.Normalize(path)
	if err != nil {
		return nil, err
	}
	rec, err := s.FilesystemFor(path)
	if err != nil {
		return nil, err
	}
	return rec.FS.Stat(norm.String())
}

// Open dispatches an open through the path's filesystem.
func (s *State) Open(path *interp.Obj, flag int, perm fs.FileMode) (File, error) {
	norm, err := s.Normalize(path)
	if err != nil {
		return nil, err
	}
	rec, err := s.FilesystemFor(path)
	if err != nil {
		return nil, err
	}
	return rec.FS.Open(norm.String(), flag, perm)
}

// Access dispatches an access check, falling back to stat when the
// filesystem has no access hook.
func (s *State) Access(path *interp.Obj, mode uint32) error {
	norm, err := s.Normalize(path)
	if err != nil {
		return err
	}
	rec, err := s.FilesystemFor(path)
	if err != nil {
		return err
	}
	if a, ok := rec.FS.(AccessFS); ok {
		return a.Access(norm.String(), mode)
	}
	_, err = rec.FS.Stat(norm.String())
	return err
}

// Remove, Rename, and Mkdir dispatch through MutableFS.

func (s *State) Remove(path *interp.Obj) error {
	norm, err := s.Normalize(path)
	if err != nil {
		return err
	}
	rec, err := s.FilesystemFor(path)
	if err != nil {
		return err
	}
	m, ok := rec.FS.(MutableFS)
	if !ok {
		return fmt.Errorf("filesystem %q is read-only", rec.FS.Name())
	}
	return m.Remove(norm.String())
}

func (s *State) Rename(oldPath, newPath *interp.Obj) error {
	oldNorm, err := s.Normalize(oldPath)
	if err != nil {
		return err
	}
	newNorm, err := s.Normalize(newPath)
	if err != nil {
		return err
	}
	oldRec, err := s.FilesystemFor(oldPath)
	if err != nil {
		return err
	}
	newRec, err := s.FilesystemFor(newPath)
	if err != nil {
		return err
	}
	if oldRec.FS != newRec.FS {
		return fmt.Errorf("rename across filesystems (%q to %q) is not supported", oldRec.FS.Name(), newRec.FS.Name())
	}
	m, ok := oldRec.FS.(MutableFS)
	if !ok {
		return fmt.Errorf("filesystem %q is read-only", oldRec.FS.Name())
	}
	return m.Rename(oldNorm.String(), newNorm.String())
}

func (s *State) Mkdir(path *interp.Obj, perm fs.FileMode) error {
	norm, err := s.Normalize(path)
	if err != nil {
		return err
	}
	rec, err := s.FilesystemFor(path)
	if err != nil {
		return err
	}
	m, ok := rec.FS.(MutableFS)
	if !ok {
		return fmt.Errorf("filesystem %q is read-only", rec.FS.Name())
	}
	return m.Mkdir(norm.String(), perm)
}
