package x64

import "github.com/xyproto/mcode/internal/mc"

// fixup locates the label field of op, encoded at here in size bytes. A
// movabs carries its value right after REX and opcode; everything else ends
// in a rel32 measured from the end of the instruction.
func fixup(op Op, here, size int) mc.Reloc {
	if _, ok := op.(MovImm64); ok {
		return mc.Reloc{Kind: mc.RelocAbs64, At: here + 2}
	}
	return mc.Reloc{Kind: mc.RelocRel32, At: here + size - 4, Anchor: here + size}
}

// Patch writes target into a rel32 or abs64 field
func Patch(field []byte, r mc.Reloc, target int) error {
	if len(field) != r.Kind.Size() {
		return mc.Errorf(mc.KindBuf, "%s patch needs %d bytes, got %d", r.Kind, r.Kind.Size(), len(field))
	}
	return mc.PatchData(field, r, target)
}
