package interp

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("fen.unitcache")

// ---------------------------------------------------------------------------
// UnitStore: content-addressed cache of compiled units
// ---------------------------------------------------------------------------

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("interp: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// UnitStore caches compiled units keyed by the SHA-256 of their source
// text. A hit is reused as long as its epoch matches the interpreter's
// current compile epoch; stale entries are recompiled in place. With a
// backing directory, units also persist across sessions in their CBOR
// wire form.
type UnitStore struct {
	mu    sync.RWMutex
	units map[[32]byte]*Unit
	dir   string
}

// NewUnitStore creates an empty in-memory unit store.
func NewUnitStore() *UnitStore {
	return &UnitStore{units: make(map[[32]byte]*Unit)}
}

// NewDiskUnitStore creates a unit store persisting to dir, creating it
// when missing.
func NewDiskUnitStore(dir string) (*UnitStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating unit cache directory: %w", err)
	}
	return &UnitStore{units: make(map[[32]byte]*Unit), dir: dir}, nil
}

// Compile returns a compiled unit for source, consulting the memory
// cache and then the backing directory before falling back to the
// compiler. Compilation errors are not cached.
func (s *UnitStore) Compile(i *Interp, source string) (*Unit, error) {
	h := sha256.Sum256([]byte(source))
	s.mu.RLock()
	u := s.units[h]
	s.mu.RUnlock()
	if u != nil && u.Epoch == i.compileEpoch {
		return u, nil
	}
	if u == nil && s.dir != "" {
		if loaded := s.loadFromDisk(i, h); loaded != nil {
			s.mu.Lock()
			s.units[h] = loaded
			s.mu.Unlock()
			return loaded, nil
		}
	}
	u, err := i.Compile(source)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.units[h] = u
	s.mu.Unlock()
	if s.dir != "" {
		s.saveToDisk(h, u)
	}
	return u, nil
}

func (s *UnitStore) unitPath(h [32]byte) string {
	return filepath.Join(s.dir, hex.EncodeToString(h[:])+".unit")
}

func (s *UnitStore) loadFromDisk(i *Interp, h [32]byte) *Unit {
	data, err := os.ReadFile(s.unitPath(h))
	if err != nil {
		return nil
	}
	u, err := UnmarshalUnit(i, data)
	if err != nil {
		log.Warningf("discarding undecodable cached unit %x: %v", h[:4], err)
		return nil
	}
	return u
}

// saveToDisk writes the unit under a temporary name and renames it into
// place so concurrent readers never see a partial file. Disk failures
// only cost the persistence, not the compilation.
func (s *UnitStore) saveToDisk(h [32]byte, u *Unit) {
	data, err := MarshalUnit(u)
	if err != nil {
		log.Warningf("cannot encode unit for the disk cache: %v", err)
		return
	}
	tmp := filepath.Join(s.dir, "tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Warningf("cannot write unit cache file: %v", err)
		return
	}
	if err := os.Rename(tmp, s.unitPath(h)); err != nil {
		os.Remove(tmp)
		log.Warningf("cannot install unit cache file: %v", err)
	}
}

// Lookup returns the cached unit for a source hash, or nil.
func (s *UnitStore) Lookup(h [32]byte) *Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.units[h]
}

// Len returns the number of cached units.
func (s *UnitStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.units)
}

// ---------------------------------------------------------------------------
// Wire format
// ---------------------------------------------------------------------------

// wireUnit is the CBOR-serializable shape of a Unit. Literals travel as
// their string representations; internal reps are rebuilt lazily on the
// receiving side.
type wireUnit struct {
	Code          []byte        `cbor:"1,keyasint"`
	Literals      []string      `cbor:"2,keyasint"`
	ExceptRanges  []wireRange   `cbor:"3,keyasint,omitempty"`
	Aux           []wireForeach `cbor:"4,keyasint,omitempty"`
	MaxStackDepth int           `cbor:"5,keyasint"`
	NumLocals     int           `cbor:"6,keyasint"`
	LocalNames    []string      `cbor:"7,keyasint,omitempty"`
	SrcMap        []wireSrc     `cbor:"8,keyasint,omitempty"`
	Source        string        `cbor:"9,keyasint"`
}

type wireRange struct {
	Kind           int `cbor:"1,keyasint"`
	Start          int `cbor:"2,keyasint"`
	End            int `cbor:"3,keyasint"`
	ContinueTarget int `cbor:"4,keyasint"`
	BreakTarget    int `cbor:"5,keyasint"`
	CatchTarget    int `cbor:"6,keyasint"`
	StackDepth     int `cbor:"7,keyasint"`
}

type wireForeach struct {
	VarSlots [][]int `cbor:"1,keyasint"`
}

type wireSrc struct {
	PC   int `cbor:"1,keyasint"`
	Line int `cbor:"2,keyasint"`
}

// MarshalUnit serializes a unit to canonical CBOR bytes. The epoch is
// deliberately excluded: it is local to one interpreter session.
func MarshalUnit(u *Unit) ([]byte, error) {
	w := wireUnit{
		Code:          u.Code,
		Literals:      make([]string, len(u.Literals)),
		MaxStackDepth: u.MaxStackDepth,
		NumLocals:     u.NumLocals,
		LocalNames:    u.LocalNames,
		Source:        u.Source,
	}
	for n, lit := range u.Literals {
		w.Literals[n] = lit.String()
	}
	for _, r := range u.ExceptRanges {
		w.ExceptRanges = append(w.ExceptRanges, wireRange{
			Kind:           int(r.Kind),
			Start:          r.Start,
			End:            r.End,
			ContinueTarget: r.ContinueTarget,
			BreakTarget:    r.BreakTarget,
			CatchTarget:    r.CatchTarget,
			StackDepth:     r.StackDepth,
		})
	}
	for _, a := range u.Aux {
		w.Aux = append(w.Aux, wireForeach{VarSlots: a.VarSlots})
	}
	for _, e := range u.SrcMap {
		w.SrcMap = append(w.SrcMap, wireSrc{PC: e.PC, Line: e.Line})
	}
	return cborEncMode.Marshal(&w)
}

// UnmarshalUnit deserializes a unit produced by MarshalUnit. Literal
// objects are interned in the given interpreter and the unit is stamped
// with its current compile epoch.
func UnmarshalUnit(i *Interp, data []byte) (*Unit, error) {
	var w wireUnit
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("interp: unmarshal unit: %w", err)
	}
	u := &Unit{
		Code:          w.Code,
		Literals:      make([]*Obj, len(w.Literals)),
		MaxStackDepth: w.MaxStackDepth,
		NumLocals:     w.NumLocals,
		LocalNames:    w.LocalNames,
		SrcMap:        make([]SrcEntry, 0, len(w.SrcMap)),
		Epoch:         i.compileEpoch,
		Source:        w.Source,
	}
	for n, s := range w.Literals {
		u.Literals[n] = i.internLiteral(NewString(s)).Retain()
	}
	for _, r := range w.ExceptRanges {
		u.ExceptRanges = append(u.ExceptRanges, ExceptRange{
			Kind:           RangeKind(r.Kind),
			Start:          r.Start,
			End:            r.End,
			ContinueTarget: r.ContinueTarget,
			BreakTarget:    r.BreakTarget,
			CatchTarget:    r.CatchTarget,
			StackDepth:     r.StackDepth,
		})
	}
	for _, a := range w.Aux {
		u.Aux = append(u.Aux, AuxForeach{VarSlots: a.VarSlots})
	}
	for _, e := range w.SrcMap {
		u.SrcMap = append(u.SrcMap, SrcEntry{PC: e.PC, Line: e.Line})
	}
	return u, nil
}
