package mc

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Label identifies a position in a compilation unit. The zero value means
// "no label" so instruction structs can carry an optional target.
type Label uint32

const NoLabel Label = 0

func (l Label) String() string {
	if l == NoLabel {
		return "<none>"
	}
	return fmt.Sprintf(".L%d", uint32(l))
}

// Labels hands out fresh labels for one compilation unit
type Labels struct {
	next Label
}

// New returns a label that has not been handed out before
func (g *Labels) New() Label {
	g.next++
	return g.next
}

// RelocKind names the bit field of an emitted instruction that is rewritten
// once a label's offset is known.
type RelocKind int

const (
	RelocHi20  RelocKind = iota // auipc upper 20 bits, pc-relative
	RelocLo12I                  // addi low 12 bits, relative to the paired auipc
	RelocBr12                   // conditional branch offset
	RelocJ20                    // jal offset
	RelocAbs64                  // 64-bit offset from the start of the unit
	RelocRel32                  // 32-bit displacement from the end of the instruction
)

func (k RelocKind) String() string {
	switch k {
	case RelocHi20:
		return "HI20"
	case RelocLo12I:
		return "LO12_I"
	case RelocBr12:
		return "BRANCH"
	case RelocJ20:
		return "JAL"
	case RelocAbs64:
		return "ABS64"
	case RelocRel32:
		return "REL32"
	default:
		return "UNKNOWN"
	}
}

// Size is the number of bytes the relocated field spans, starting at Reloc.At
func (k RelocKind) Size() int {
	if k == RelocAbs64 {
		return 8
	}
	return 4
}

// Reloc records a reference to Label from the field at At. Anchor is the
// offset that relative values are measured from.
type Reloc struct {
	Kind   RelocKind
	At     int
	Anchor int
	Label  Label
	Target int // resolved offset of Label, -1 while pending
}

func (r Reloc) String() string {
	return fmt.Sprintf("%s @%#x -> %s", r.Kind, r.At, r.Label)
}

// PatchData rewrites the architecture neutral relocation kinds, Abs64 and Rel32
func PatchData(field []byte, r Reloc, target int) error {
	switch r.Kind {
	case RelocAbs64:
		binary.LittleEndian.PutUint64(field, uint64(target))
		return nil
	case RelocRel32:
		rel := int64(target) - int64(r.Anchor)
		if rel < math.MinInt32 || rel > math.MaxInt32 {
			return Errorf(KindInvalid, "rel32 displacement %d to %s out of range", rel, r.Label)
		}
		binary.LittleEndian.PutUint32(field, uint32(int32(rel)))
		return nil
	}
	return Errorf(KindReloc, "relocation kind %s cannot be patched as data", r.Kind)
}
