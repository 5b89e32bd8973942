// Package vfs is the filesystem core: a pluggable stack of filesystems
// dispatched by path, a normalized path value type cached on script
// values, and the cwd/glob/load plumbing built on top of the stack.
package vfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("fen.vfs")

// ErrNotFound reports that no registered filesystem accepts a path, or
// that a path does not exist within its filesystem.
var ErrNotFound = errors.New("no such file or directory")

// File is an open file handle returned by a filesystem.
type File interface {
	io.ReadWriteCloser
	io.Seeker
	Name() string
}

// Filesystem is the mandatory part of a filesystem's vtable. Optional
// capabilities are expressed as further interfaces; the dispatcher
// type-asserts for them and falls back when absent.
type Filesystem interface {
	// Name identifies the filesystem in errors and logs.
	Name() string
	// Accepts is the path-in-filesystem probe. The native filesystem
	// accepts any non-empty path, so it must sit at the tail.
	Accepts(path string) bool
	Stat(path string) (fs.FileInfo, error)
	Open(path string, flag int, perm fs.FileMode) (File, error)
}

// Normalizer refines an already slash-normalized absolute path, for
// example by resolving symlinks or canonicalizing case.
type Normalizer interface {
	NormalizePath(path string) string
}

// ChdirFS is implemented by filesystems that track a working directory.
type ChdirFS interface {
	Chdir(path string) error
}

// CwdFS lets a filesystem report external working-directory changes.
type CwdFS interface {
	Getcwd() (string, error)
}

// GlobFS matches a glob pattern inside one directory.
type GlobFS interface {
	MatchInDirectory(dir, pattern string, types GlobTypes) ([]string, error)
}

// MutableFS is implemented by filesystems supporting modification.
type MutableFS interface {
	Remove(path string) error
	Rename(oldPath, newPath string) error
	Mkdir(path string, perm fs.FileMode) error
}

// AccessFS checks permission bits without opening the file.
type AccessFS interface {
	Access(path string, mode uint32) error
}

// GlobTypes restricts glob results by entry kind. Zero value matches
// everything.
type GlobTypes struct {
	Files bool
	Dirs  bool
}

func (t GlobTypes) matches(isDir bool) bool {
	if !t.Files && !t.Dirs {
		return true
	}
	if isDir {
		return t.Dirs
	}
	return t.Files
}

// ------------------------------------------------------------------ //
// Registry
// ------------------------------------------------------------------ //

// Record pairs a registered filesystem with its client data.
type Record struct {
	FS         Filesystem
	ClientData any
}

// The stack is process-wide. Readers iterate a snapshot under an
// iterator counter; writers wait for the counter to drain, modify the
// list, and advance the epoch. Cached filesystem records on path
// values carry the epoch they were resolved under and are discarded
// when it moves.
var registry = struct {
	mu        sync.Mutex
	cond      *sync.Cond
	iterators int
	records   []*Record
	epoch     atomic.Uint64
}{}

func init() {
	registry.cond = sync.NewCond(&registry.mu)
	registry.records = []*Record{{FS: NewNativeFS()}}
	registry.epoch.Store(1)
}

// Epoch returns the current filesystem epoch. It advances on every
// registration and unregistration.
func Epoch() uint64 { return registry.epoch.Load() }

// Register inserts a filesystem ahead of the native record at the
// tail. Earlier registrations keep probe priority, so a mount cannot
// shadow one already serving the same paths.
func Register(f Filesystem, clientData any) {
	registry.mu.Lock()
	for registry.iterators > 0 {
		registry.cond.Wait()
	}
	// Probes are opaque predicates, so true shadowing of an earlier
	// registration cannot be detected here; a name collision is the
	// observable proxy and is worth a warning.
	for _, rec := range registry.records[:len(registry.records)-1] {
		if rec.FS.Name() == f.Name() {
			log.Warningf("registering filesystem %q over an existing registration with the same name", f.Name())
		}
	}
	tail := len(registry.records) - 1
	recs := make([]*Record, 0, len(registry.records)+1)
	recs = append(recs, registry.records[:tail]...)
	recs = append(recs, &Record{FS: f, ClientData: clientData})
	recs = append(recs, registry.records[tail])
	registry.records = recs
	registry.epoch.Add(1)
	registry.mu.Unlock()
}

// Unregister removes the first record for f. The native record at the
// tail cannot be removed.
func Unregister(f Filesystem) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	for registry.iterators > 0 {
		registry.cond.Wait()
	}
	for n, rec := range registry.records[:len(registry.records)-1] {
		if rec.FS == f {
			recs := make([]*Record, 0, len(registry.records)-1)
			recs = append(recs, registry.records[:n]...)
			recs = append(recs, registry.records[n+1:]...)
			registry.records = recs
			registry.epoch.Add(1)
			return nil
		}
	}
	return fmt.Errorf("filesystem %q is not registered", f.Name())
}

// snapshot returns the current record list for iteration. The caller
// must call endIter when done.
func snapshot() []*Record {
	registry.mu.Lock()
	registry.iterators++
	recs := registry.records
	registry.mu.Unlock()
	return recs
}

func endIter() {
	registry.mu.Lock()
	registry.iterators--
	if registry.iterators == 0 {
		registry.cond.Broadcast()
	}
	registry.mu.Unlock()
}

// Resolve finds the filesystem record accepting a path, probing head
// to tail. First registered wins among stacked filesystems.
func Resolve(path string) (*Record, error) {
	recs := snapshot()
	defer endIter()
	for _, rec := range recs {
		if rec.FS.Accepts(path) {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
}
