package vfs

import (
	"strings"
	"testing"

	"github.com/das/fen/interp"
)

func newScriptEnv(t *testing.T) (*interp.Interp, *MemFS) {
	t.Helper()
	i := interp.New()
	t.Cleanup(i.Close)
	Install(i)
	m := NewMemFS("mem:")
	Register(m, nil)
	t.Cleanup(func() { Unregister(m) })
	return i, m
}

func run(t *testing.T, i *interp.Interp, script string) string {
	t.Helper()
	out, err := i.Run(script)
	if err != nil {
		t.Fatalf("eval %q: %v", script, err)
	}
	return out
}

func TestFilePathCommands(t *testing.T) {
	i, _ := newScriptEnv(t)
	tests := []struct {
		script string
		want   string
	}{
		{"file join a b c", "a/b/c"},
		{"file join a /b c", "/b/c"},
		{"file join a mem:b", "mem:b"},
		{"file normalize /x/y/../z", "/x/z"},
		{"file dirname /a/b/c", "/a/b"},
		{"file tail /a/b/c", "c"},
		{"file dirname mem:notes", "mem:"},
	}
	for _, tt := range tests {
		if got := run(t, i, tt.script); got != tt.want {
			t.Errorf("%q = %q, want %q", tt.script, got, tt.want)
		}
	}
}

func TestFileStatCommands(t *testing.T) {
	i, m := newScriptEnv(t)
	m.WriteFile("mem:doc.txt", []byte("payload"), 0o644)

	tests := []struct {
		script string
		want   string
	}{
		{"file exists mem:doc.txt", "1"},
		{"file exists mem:nope", "0"},
		{"file isfile mem:doc.txt", "1"},
		{"file isdirectory mem:doc.txt", "0"},
		{"file size mem:doc.txt", "7"},
	}
	for _, tt := range tests {
		if got := run(t, i, tt.script); got != tt.want {
			t.Errorf("%q = %q, want %q", tt.script, got, tt.want)
		}
	}

	run(t, i, "file delete mem:doc.txt")
	if got := run(t, i, "file exists mem:doc.txt"); got != "0" {
		t.Fatalf("file survived delete")
	}
}

func TestFileCopyAcrossFilesystems(t *testing.T) {
	i, m := newScriptEnv(t)
	m.WriteFile("mem:src.txt", []byte("carried"), 0o644)

	dir := t.TempDir()
	run(t, i, "file copy mem:src.txt "+dir+"/dst.txt")
	if got := run(t, i, "file size "+dir+"/dst.txt"); got != "7" {
		t.Fatalf("copied size = %s", got)
	}
}

func TestGlobCommand(t *testing.T) {
	i, m := newScriptEnv(t)
	m.WriteFile("mem:x.fen", nil, 0o644)
	m.WriteFile("mem:y.fen", nil, 0o644)
	m.WriteFile("mem:z.txt", nil, 0o644)

	got := run(t, i, "glob -directory mem: *.fen")
	if got != "mem:x.fen mem:y.fen" {
		t.Fatalf("glob = %q", got)
	}

	if _, err := i.Run("glob"); err == nil {
		t.Fatal("glob with no pattern succeeded")
	}
}

func TestSourceCommand(t *testing.T) {
	i, m := newScriptEnv(t)
	m.WriteFile("mem:lib.fen", []byte("proc triple {n} { expr {$n * 3} }\nset loaded 1\n"), 0o644)

	run(t, i, "source mem:lib.fen")
	if got := run(t, i, "triple 5"); got != "15" {
		t.Fatalf("sourced proc = %q", got)
	}
	if got := run(t, i, "set loaded"); got != "1" {
		t.Fatalf("loaded = %q", got)
	}

	if _, err := i.Run("source mem:absent.fen"); err == nil {
		t.Fatal("sourcing a missing file succeeded")
	}

	// A file-level return stops the file without failing the caller.
	m.WriteFile("mem:early.fen", []byte("set a 1\nreturn\nset a 2\n"), 0o644)
	run(t, i, "source mem:early.fen")
	if got := run(t, i, "set a"); got != "1" {
		t.Fatalf("a = %q after early return", got)
	}
}

func TestCdAndPwdOnMount(t *testing.T) {
	i, m := newScriptEnv(t)
	m.WriteFile("mem:ws/readme.md", []byte("#"), 0o644)

	run(t, i, "cd mem:ws")
	if got := run(t, i, "pwd"); got != "mem:ws" {
		t.Fatalf("pwd = %q", got)
	}
	if got := run(t, i, "file exists readme.md"); got != "1" {
		t.Fatal("relative lookup failed after cd")
	}
	if _, err := i.Run("cd mem:missing"); err == nil {
		t.Fatal("cd into a missing directory succeeded")
	}
}

func TestFileErrorMessages(t *testing.T) {
	i, _ := newScriptEnv(t)
	_, err := i.Run("file size mem:absent")
	if err == nil {
		t.Fatal("file size on missing file succeeded")
	}
	if !strings.Contains(err.Error(), "mem:absent") {
		t.Fatalf("error %q does not name the path", err)
	}

	_, err = i.Run("file frobnicate x")
	if err == nil || !strings.Contains(err.Error(), "unknown or ambiguous subcommand") {
		t.Fatalf("unexpected error: %v", err)
	}
}
