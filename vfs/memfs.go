package vfs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemFS is an in-memory filesystem claiming paths under a volume
// prefix such as "mem:". Directories are implicit: a path is a
// directory when any file lives beneath it.
type MemFS struct {
	prefix string
	mu     sync.Mutex
	files  map[string]*memEntry
}

type memEntry struct {
	data  []byte
	mode  fs.FileMode
	mtime time.Time
}

// NewMemFS creates an empty in-memory filesystem for the given volume
// prefix (for example "mem:").
func NewMemFS(prefix string) *MemFS {
	return &MemFS{prefix: prefix, files: make(map[string]*memEntry)}
}

func (m *MemFS) Name() string { return "memory(" + m.prefix + ")" }

func (m *MemFS) Accepts(path string) bool {
	return strings.HasPrefix(path, m.prefix)
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.files[path]; ok {
		return memInfo{name: tailOf(path), size: int64(len(e.data)), mode: e.mode, mtime: e.mtime}, nil
	}
	if m.isDirLocked(path) {
		return memInfo{name: tailOf(path), mode: fs.ModeDir | 0o755}, nil
	}
	return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
}

func (m *MemFS) isDirLocked(path string) bool {
	if path == m.prefix {
		return true
	}
	dirPrefix := path + "/"
	for name := range m.files {
		if strings.HasPrefix(name, dirPrefix) {
			return true
		}
	}
	return false
}

func (m *MemFS) Open(path string, flag int, perm fs.FileMode) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.files[path]
	if !ok {
		if flag&os.O_CREATE == 0 {
			return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
		}
		e = &memEntry{mode: perm, mtime: time.Now()}
		m.files[path] = e
	}
	f := &memFile{fs: m, path: path}
	if flag&os.O_TRUNC != 0 {
		e.data = nil
	}
	f.data = append([]byte(nil), e.data...)
	if flag&os.O_APPEND != 0 {
		f.off = int64(len(f.data))
	}
	return f, nil
}

func (m *MemFS) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("%q: %w", path, ErrNotFound)
	}
	delete(m.files, path)
	return nil
}

func (m *MemFS) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.files[oldPath]
	if !ok {
		return fmt.Errorf("%q: %w", oldPath, ErrNotFound)
	}
	delete(m.files, oldPath)
	m.files[newPath] = e
	return nil
}

func (m *MemFS) Mkdir(path string, perm fs.FileMode) error {
	// Directories are implicit; creating one is a no-op.
	return nil
}

func (m *MemFS) MatchInDirectory(dir, pattern string, types GlobTypes) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := dir
	if !strings.HasSuffix(prefix, "/") && prefix != m.prefix {
		prefix += "/"
	}
	seen := make(map[string]bool)
	var out []string
	for name := range m.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := name[len(prefix):]
		entry := rest
		isDir := false
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			entry = rest[:idx]
			isDir = true
		}
		if seen[entry] || !matchGlob(pattern, entry) || !types.matches(isDir) {
			continue
		}
		seen[entry] = true
		out = append(out, prefix+entry)
	}
	sort.Strings(out)
	return out, nil
}

// WriteFile stores a complete file, creating it if needed.
func (m *MemFS) WriteFile(path string, data []byte, perm fs.FileMode) {
	m.mu.Lock()
	m.files[path] = &memEntry{data: append([]byte(nil), data...), mode: perm, mtime: time.Now()}
	m.mu.Unlock()
}

func tailOf(path string) string {
	_, tail := SplitPath(path)
	return tail
}

// ------------------------------------------------------------------ //
// File handle
// ------------------------------------------------------------------ //

type memFile struct {
	fs   *MemFS
	path string
	data []byte
	off  int64
}

func (f *memFile) Name() string { return f.path }

func (f *memFile) Read(p []byte) (int, error) {
	if f.off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.off:])
	f.off += int64(n)
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	end := f.off + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[f.off:], p)
	f.off = end
	return len(p), nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.off = offset
	case io.SeekCurrent:
		f.off += offset
	case io.SeekEnd:
		f.off = int64(len(f.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if f.off < 0 {
		f.off = 0
		return 0, fmt.Errorf("negative seek offset")
	}
	return f.off, nil
}

// Close flushes the handle's contents back into the filesystem.
func (f *memFile) Close() error {
	f.fs.mu.Lock()
	f.fs.files[f.path] = &memEntry{data: f.data, mode: 0o644, mtime: time.Now()}
	f.fs.mu.Unlock()
	return nil
}

// ------------------------------------------------------------------ //
// FileInfo
// ------------------------------------------------------------------ //

type memInfo struct {
	name  string
	size  int64
	mode  fs.FileMode
	mtime time.Time
}

func (fi memInfo) Name() string       { return fi.name }
func (fi memInfo) Size() int64        { return fi.size }
func (fi memInfo) Mode() fs.FileMode  { return fi.mode }
func (fi memInfo) ModTime() time.Time { return fi.mtime }
func (fi memInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi memInfo) Sys() any           { return nil }
