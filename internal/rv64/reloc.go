package rv64

import (
	"encoding/binary"

	"github.com/xyproto/mcode/internal/mc"
)

// fixup describes the field of op, encoded at here, that refers to its label
func fixup(op Op, here int) mc.Reloc {
	switch op.(type) {
	case Auipc:
		return mc.Reloc{Kind: mc.RelocHi20, At: here, Anchor: here}
	case OpImm:
		return mc.Reloc{Kind: mc.RelocLo12I, At: here, Anchor: here - 4}
	case Br:
		return mc.Reloc{Kind: mc.RelocBr12, At: here, Anchor: here}
	case Jal:
		return mc.Reloc{Kind: mc.RelocJ20, At: here, Anchor: here}
	}
	return mc.Reloc{Kind: mc.RelocAbs64, At: here}
}

// Patch rewrites the immediate field of an emitted instruction word so that
// it refers to target
func Patch(field []byte, r mc.Reloc, target int) error {
	if r.Kind == mc.RelocAbs64 {
		return mc.PatchData(field, r, target)
	}
	if len(field) != 4 {
		return mc.Errorf(mc.KindBuf, "%s patch needs 4 bytes, got %d", r.Kind, len(field))
	}

	v := int64(target - r.Anchor)
	var (
		mask uint32
		bits uint32
		err  error
	)
	switch r.Kind {
	case mc.RelocHi20:
		mask = maskU
		bits, err = immU(hi20(v))
	case mc.RelocLo12I:
		mask = maskI
		bits, err = immI(lo12(v))
	case mc.RelocBr12:
		mask = maskB
		bits, err = immB(v)
	case mc.RelocJ20:
		mask = maskJ
		bits, err = immJ(v)
	default:
		return mc.Errorf(mc.KindReloc, "relocation kind %s does not apply to RV64", r.Kind)
	}
	if err != nil {
		return err
	}

	word := binary.LittleEndian.Uint32(field)
	binary.LittleEndian.PutUint32(field, word&^mask|bits)
	return nil
}
