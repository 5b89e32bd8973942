package vfs

import (
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// NativeFS delegates to the host operating system. It sits permanently
// at the tail of the stack and accepts any non-empty path.
type NativeFS struct{}

// NewNativeFS returns the native filesystem.
func NewNativeFS() *NativeFS { return &NativeFS{} }

func (n *NativeFS) Name() string { return "native" }

func (n *NativeFS) Accepts(path string) bool { return path != "" }

func (n *NativeFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (n *NativeFS) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

func (n *NativeFS) Open(path string, flag int, perm fs.FileMode) (File, error) {
	return os.OpenFile(path, flag, perm)
}

func (n *NativeFS) Access(path string, mode uint32) error {
	return unix.Access(path, mode)
}

func (n *NativeFS) Remove(path string) error { return os.Remove(path) }

func (n *NativeFS) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

func (n *NativeFS) Mkdir(path string, perm fs.FileMode) error {
	return os.Mkdir(path, perm)
}

func (n *NativeFS) ReadLink(path string) (string, error) {
	return os.Readlink(path)
}

func (n *NativeFS) Utime(path string, atime, mtime int64) error {
	ts := []unix.Timespec{
		{Sec: atime},
		{Sec: mtime},
	}
	return unix.UtimesNano(path, ts)
}

// NormalizePath resolves symlinks where the path exists; a path that
// does not exist yet is returned as-is.
func (n *NativeFS) NormalizePath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

func (n *NativeFS) Chdir(path string) error { return os.Chdir(path) }

func (n *NativeFS) Getcwd() (string, error) { return os.Getwd() }

func (n *NativeFS) MatchInDirectory(dir, pattern string, types GlobTypes) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !matchGlob(pattern, e.Name()) {
			continue
		}
		if !types.matches(e.IsDir()) {
			continue
		}
		out = append(out, joinPath(dir, e.Name()))
	}
	return out, nil
}

// ListVolumes reports the root of the native tree.
func (n *NativeFS) ListVolumes() []string { return []string{"/"} }
