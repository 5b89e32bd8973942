package interp

import "sort"

// RangeKind classifies an exception range.
type RangeKind int

const (
	LoopRange RangeKind = iota
	CatchRange
)

// ExceptRange covers a half-open code interval [Start,End) and tells
// the executor where a non-ok completion inside it should land. Ranges
// nest; the innermost range containing the program counter governs.
type ExceptRange struct {
	Kind           RangeKind
	Start, End     int
	ContinueTarget int // loops only
	BreakTarget    int // loops only
	CatchTarget    int // catch only
	StackDepth     int // operand stack depth at entry
}

// SrcEntry maps a code offset to its source line. Entries are sorted by
// PC and each covers the interval up to the next entry.
type SrcEntry struct {
	PC   int
	Line int
}

// AuxForeach is the compiler-emitted description of one inline foreach:
// which local slots receive values from each list.
type AuxForeach struct {
	VarSlots [][]int
}

// Unit is a finalized compilation: immutable once built, reusable for
// repeated execution while its epoch is current.
type Unit struct {
	Code          []byte
	Literals      []*Obj
	ExceptRanges  []ExceptRange
	Aux           []AuxForeach
	MaxStackDepth int
	NumLocals     int
	LocalNames    []string
	SrcMap        []SrcEntry
	Epoch         uint64
	Source        string
}

// LineForPC returns the source line governing a code offset, or zero
// when unmapped.
func (u *Unit) LineForPC(pc int) int {
	idx := sort.Search(len(u.SrcMap), func(n int) bool { return u.SrcMap[n].PC > pc })
	if idx == 0 {
		return 0
	}
	return u.SrcMap[idx-1].Line
}

// containingRanges returns the exception ranges covering pc, innermost
// first. The executor walks the list, skipping ranges that cannot
// handle the pending completion code.
func (u *Unit) containingRanges(pc int) []int {
	var idxs []int
	for idx := range u.ExceptRanges {
		r := &u.ExceptRanges[idx]
		if pc >= r.Start && pc < r.End {
			idxs = append(idxs, idx)
		}
	}
	sort.Slice(idxs, func(a, b int) bool {
		ra, rb := &u.ExceptRanges[idxs[a]], &u.ExceptRanges[idxs[b]]
		if ra.Start != rb.Start {
			return ra.Start > rb.Start
		}
		return ra.End < rb.End
	})
	return idxs
}
