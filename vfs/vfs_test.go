package vfs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/das/fen/interp"
)

func TestRegisterUnregister(t *testing.T) {
	before := Epoch()
	m := NewMemFS("mem:")
	Register(m, nil)
	if Epoch() == before {
		t.Fatal("registration did not advance the epoch")
	}

	rec, err := Resolve("mem:anything")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.FS != m {
		t.Fatalf("resolved to %s", rec.FS.Name())
	}

	mid := Epoch()
	if err := Unregister(m); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if Epoch() == mid {
		t.Fatal("removal did not advance the epoch")
	}

	// The native filesystem catches everything once the mount is gone.
	rec, err = Resolve("mem:anything")
	if err != nil {
		t.Fatalf("Resolve after removal: %v", err)
	}
	if rec.FS == Filesystem(m) {
		t.Fatal("removed filesystem still resolving")
	}

	if err := Unregister(m); err == nil {
		t.Fatal("double unregister did not fail")
	}
}

func TestFirstRegisteredWins(t *testing.T) {
	a := NewMemFS("mem:")
	b := NewMemFS("mem:")
	Register(a, nil)
	Register(b, nil)
	defer Unregister(b)

	rec, err := Resolve("mem:x")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// The earlier registration keeps probe priority.
	if rec.FS != a {
		t.Fatal("later mount shadowed an earlier one")
	}

	if err := Unregister(a); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	rec, err = Resolve("mem:x")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.FS != b {
		t.Fatal("surviving mount did not take over after removal")
	}
}

func TestMemFS(t *testing.T) {
	m := NewMemFS("mem:")
	m.WriteFile("mem:greeting.txt", []byte("hello"), 0o644)

	fi, err := m.Stat("mem:greeting.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fi.Size() != 5 || fi.IsDir() {
		t.Fatalf("Stat = size %d dir %v", fi.Size(), fi.IsDir())
	}

	f, err := m.Open("mem:greeting.txt", os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	f.Close()
	if string(data) != "hello" {
		t.Fatalf("read %q", data)
	}

	// Writes become visible on close.
	f, err = m.Open("mem:new.txt", os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("Open create: %v", err)
	}
	if _, err := f.Write([]byte("fresh")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if fi, err := m.Stat("mem:new.txt"); err != nil || fi.Size() != 5 {
		t.Fatalf("Stat new.txt: %v, %v", fi, err)
	}

	// Seek and overwrite.
	f, _ = m.Open("mem:new.txt", os.O_RDWR, 0)
	if _, err := f.Seek(1, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	f.Write([]byte("LAT"))
	f.Close()
	f, _ = m.Open("mem:new.txt", os.O_RDONLY, 0)
	data, _ = io.ReadAll(f)
	f.Close()
	if string(data) != "fLATh" {
		t.Fatalf("after seek-write: %q", data)
	}

	// Implicit directories appear in stat results.
	m.WriteFile("mem:sub/inner.txt", []byte("x"), 0o644)
	fi, err = m.Stat("mem:sub")
	if err != nil {
		t.Fatalf("Stat implicit dir: %v", err)
	}
	if !fi.IsDir() {
		t.Fatal("mem:sub not a directory")
	}

	if err := m.Rename("mem:new.txt", "mem:old.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := m.Stat("mem:new.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Stat after rename: %v", err)
	}
	if err := m.Remove("mem:old.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := m.Open("mem:old.txt", os.O_RDONLY, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open removed file: %v", err)
	}
}

func TestMemFSMatchInDirectory(t *testing.T) {
	m := NewMemFS("mem:")
	m.WriteFile("mem:a.txt", nil, 0o644)
	m.WriteFile("mem:b.txt", nil, 0o644)
	m.WriteFile("mem:c.log", nil, 0o644)
	m.WriteFile("mem:sub/d.txt", nil, 0o644)

	got, err := m.MatchInDirectory("mem:", "*.txt", GlobTypes{})
	if err != nil {
		t.Fatalf("MatchInDirectory: %v", err)
	}
	want := []string{"mem:a.txt", "mem:b.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("matches = %v, want %v", got, want)
	}

	dirs, err := m.MatchInDirectory("mem:", "*", GlobTypes{Dirs: true})
	if err != nil {
		t.Fatalf("MatchInDirectory dirs: %v", err)
	}
	if !reflect.DeepEqual(dirs, []string{"mem:sub"}) {
		t.Fatalf("dir matches = %v", dirs)
	}
}

func TestStateDispatch(t *testing.T) {
	i := interp.New()
	defer i.Close()
	s := NewState(i, "/")

	m := NewMemFS("mem:")
	m.WriteFile("mem:hello.txt", []byte("hi"), 0o644)
	Register(m, nil)

	path := interp.NewString("mem:hello.txt")
	fi, err := s.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fi.Size() != 2 {
		t.Fatalf("size = %d", fi.Size())
	}

	f, err := s.Open(path, os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(f)
	f.Close()
	if string(data) != "hi" {
		t.Fatalf("read %q", data)
	}

	// Removing the mount invalidates the value's cached resolution;
	// the path now falls through to the native filesystem, where it
	// does not exist.
	if err := Unregister(m); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if _, err := s.Stat(path); err == nil {
		t.Fatal("stat through removed mount succeeded")
	}
}

func TestStateChdirMemFS(t *testing.T) {
	i := interp.New()
	defer i.Close()
	s := NewState(i, "/")

	m := NewMemFS("mem:")
	m.WriteFile("mem:proj/notes.txt", []byte("n"), 0o644)
	Register(m, nil)
	defer Unregister(m)

	if err := s.Chdir(interp.NewString("mem:proj")); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	if got := s.Cwd().String(); got != "mem:proj" {
		t.Fatalf("cwd = %q", got)
	}
	// Relative lookups now resolve inside the mount.
	if _, err := s.Stat(interp.NewString("notes.txt")); err != nil {
		t.Fatalf("relative stat: %v", err)
	}
	if err := s.Chdir(interp.NewString("mem:proj/notes.txt")); err == nil {
		t.Fatal("chdir to a file succeeded")
	}
}

func TestStateRenameAcrossFilesystems(t *testing.T) {
	i := interp.New()
	defer i.Close()
	s := NewState(i, "/")

	m := NewMemFS("mem:")
	m.WriteFile("mem:a", []byte("a"), 0o644)
	Register(m, nil)
	defer Unregister(m)

	dst := filepath.Join(t.TempDir(), "b")
	err := s.Rename(interp.NewString("mem:a"), interp.NewString(dst))
	if err == nil {
		t.Fatal("cross-filesystem rename succeeded")
	}
}

func TestSQLFS(t *testing.T) {
	fsys, err := NewSQLFS("sql:", filepath.Join(t.TempDir(), "files.db"))
	if err != nil {
		t.Fatalf("NewSQLFS: %v", err)
	}
	defer fsys.Close()

	f, err := fsys.Open("sql:doc.txt", os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("Open create: %v", err)
	}
	if _, err := f.Write([]byte("stored")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fi, err := fsys.Stat("sql:doc.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fi.Size() != 6 {
		t.Fatalf("size = %d", fi.Size())
	}

	f, err = fsys.Open("sql:doc.txt", os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(f)
	f.Close()
	if string(data) != "stored" {
		t.Fatalf("read %q", data)
	}

	if f, err := fsys.Open("sql:sub/x", os.O_CREATE, 0o644); err != nil {
		t.Fatalf("Open sub: %v", err)
	} else if err := f.Close(); err != nil {
		t.Fatalf("Close sub: %v", err)
	}
	if fi, err := fsys.Stat("sql:sub"); err != nil || !fi.IsDir() {
		t.Fatalf("implicit dir: %v, %v", fi, err)
	}
	if fi, err := fsys.Stat("sql:sub/x"); err != nil || fi.Size() != 0 {
		t.Fatalf("empty file: %v, %v", fi, err)
	}

	if err := fsys.Rename("sql:doc.txt", "sql:doc2.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if err := fsys.Remove("sql:doc2.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := fsys.Remove("sql:doc2.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Remove missing: %v", err)
	}

	names, err := fsys.MatchInDirectory("sql:", "*", GlobTypes{Files: true})
	if err != nil {
		t.Fatalf("MatchInDirectory: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("leftover files: %v", names)
	}
}
