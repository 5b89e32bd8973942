package interp

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestUnitStoreCacheHit(t *testing.T) {
	i := New()
	defer i.Close()
	s := NewUnitStore()
	const src = `expr {6 * 7}`

	u1, err := s.Compile(i, src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	u2, err := s.Compile(i, src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if u1 != u2 {
		t.Fatal("second compilation did not hit the cache")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	if got := s.Lookup(sha256.Sum256([]byte(src))); got != u1 {
		t.Fatal("Lookup by source hash missed")
	}
}

func TestUnitStoreEpochInvalidation(t *testing.T) {
	i := New()
	defer i.Close()
	s := NewUnitStore()
	const src = `set x 1`

	u1, err := s.Compile(i, src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	i.bumpCompileEpoch()
	u2, err := s.Compile(i, src)
	if err != nil {
		t.Fatalf("Compile after epoch bump: %v", err)
	}
	if u1 == u2 {
		t.Fatal("stale unit served after a compile epoch bump")
	}
	if u2.Epoch != i.compileEpoch {
		t.Fatalf("recompiled unit epoch %d, interp epoch %d", u2.Epoch, i.compileEpoch)
	}
	// The stale entry is replaced, not accumulated.
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestUnitStoreErrorNotCached(t *testing.T) {
	i := New()
	defer i.Close()
	s := NewUnitStore()
	if _, err := s.Compile(i, "set x {unclosed"); err == nil {
		t.Fatal("bad source compiled")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d after failed compile, want 0", s.Len())
	}
}

func TestUnitWireRoundTrip(t *testing.T) {
	src := New()
	defer src.Close()
	const script = `
		set total 0
		foreach n {1 2 3 4 5} {
			if {$n == 4} { continue }
			incr total $n
		}
		set total
	`
	u, err := src.Compile(script)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	data, err := MarshalUnit(u)
	if err != nil {
		t.Fatalf("MarshalUnit: %v", err)
	}
	// Canonical encoding is deterministic.
	again, err := MarshalUnit(u)
	if err != nil {
		t.Fatalf("MarshalUnit: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Fatal("two encodings of the same unit differ")
	}

	dst := New()
	defer dst.Close()
	got, err := UnmarshalUnit(dst, data)
	if err != nil {
		t.Fatalf("UnmarshalUnit: %v", err)
	}
	if !bytes.Equal(got.Code, u.Code) {
		t.Fatal("code bytes changed in transit")
	}
	if got.MaxStackDepth != u.MaxStackDepth || got.NumLocals != u.NumLocals {
		t.Fatalf("limits changed: stack %d/%d locals %d/%d",
			got.MaxStackDepth, u.MaxStackDepth, got.NumLocals, u.NumLocals)
	}
	if len(got.ExceptRanges) != len(u.ExceptRanges) {
		t.Fatalf("exception ranges %d, want %d", len(got.ExceptRanges), len(u.ExceptRanges))
	}
	for n := range got.ExceptRanges {
		if got.ExceptRanges[n] != u.ExceptRanges[n] {
			t.Fatalf("range %d = %+v, want %+v", n, got.ExceptRanges[n], u.ExceptRanges[n])
		}
	}
	if got.Epoch != dst.compileEpoch {
		t.Fatalf("unit epoch %d not restamped to %d", got.Epoch, dst.compileEpoch)
	}
	for n, lit := range got.Literals {
		if lit.String() != u.Literals[n].String() {
			t.Fatalf("literal %d = %q, want %q", n, lit.String(), u.Literals[n].String())
		}
	}

	// The decoded unit must actually run.
	if code := dst.execUnit(got); code != ResultOK {
		t.Fatalf("execUnit: code %v, result %q", code, dst.Result().String())
	}
	if dst.Result().String() != "11" {
		t.Fatalf("result = %q, want %q", dst.Result().String(), "11")
	}
}

func TestDiskUnitStore(t *testing.T) {
	dir := t.TempDir()
	const src = `expr {40 + 2}`

	i1 := New()
	defer i1.Close()
	s1, err := NewDiskUnitStore(dir)
	if err != nil {
		t.Fatalf("NewDiskUnitStore: %v", err)
	}
	if _, err := s1.Compile(i1, src); err != nil {
		t.Fatalf("Compile: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("cache directory holds %d entries, want 1", len(entries))
	}
	h := sha256.Sum256([]byte(src))
	want := hex.EncodeToString(h[:]) + ".unit"
	if entries[0].Name() != want {
		t.Fatalf("cache file %q, want %q", entries[0].Name(), want)
	}

	// A second store over the same directory decodes the persisted
	// unit instead of recompiling, and the result still runs.
	i2 := New()
	defer i2.Close()
	s2, err := NewDiskUnitStore(dir)
	if err != nil {
		t.Fatalf("NewDiskUnitStore: %v", err)
	}
	u, err := s2.Compile(i2, src)
	if err != nil {
		t.Fatalf("Compile from disk: %v", err)
	}
	if u.Source != src {
		t.Fatalf("decoded source = %q", u.Source)
	}
	if code := i2.execUnit(u); code != ResultOK {
		t.Fatalf("execUnit: code %v, result %q", code, i2.Result().String())
	}
	if i2.Result().String() != "42" {
		t.Fatalf("result = %q, want 42", i2.Result().String())
	}
}

func TestDiskUnitStoreIgnoresCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	const src = `set x ok`
	h := sha256.Sum256([]byte(src))
	name := filepath.Join(dir, hex.EncodeToString(h[:])+".unit")
	if err := os.WriteFile(name, []byte("not cbor"), 0o644); err != nil {
		t.Fatal(err)
	}

	i := New()
	defer i.Close()
	s, err := NewDiskUnitStore(dir)
	if err != nil {
		t.Fatalf("NewDiskUnitStore: %v", err)
	}
	u, err := s.Compile(i, src)
	if err != nil {
		t.Fatalf("Compile over corrupt entry: %v", err)
	}
	if code := i.execUnit(u); code != ResultOK {
		t.Fatalf("execUnit: %v", i.Result().String())
	}
}

func TestInterpUsesUnitStore(t *testing.T) {
	i := New()
	defer i.Close()
	s := NewUnitStore()
	i.SetUnitStore(s)
	evalOK(t, i, `proc area {r} { expr {3.14159 * $r * $r} }`)
	evalOK(t, i, `area 2`)
	if s.Len() == 0 {
		t.Fatal("interpreter evaluation bypassed the unit store")
	}
}
