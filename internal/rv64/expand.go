package rv64

import "math/bits"

// Expand rewrites the pseudo-instructions li, mv and ret into real
// instructions. Everything else is passed through.
func Expand(ops []Op) []Op {
	out := make([]Op, 0, len(ops))
	for _, op := range ops {
		switch op := op.(type) {
		case Li:
			out = append(out, materialize(op.Rd, op.Imm)...)
		case Mv:
			out = append(out, OpImm{Kind: Addi, Rd: op.Rd, Rs1: op.Rs})
		case Ret:
			out = append(out, Jalr{Rd: Zero, Rs1: RA})
		default:
			out = append(out, op)
		}
	}
	return out
}

// materialize returns the instructions that load v into rd.
//
// A value that fits 32 bits takes lui+addi, rounding the upper part so the
// sign-extended low part corrects it. Wider values are built from their upper
// bits, shifted into place, plus the low 12 bits.
func materialize(rd Reg, v int64) []Op {
	if v == int64(int32(v)) {
		hi := hi20(v)
		lo := lo12(v)
		var ops []Op
		kind := Addi
		if hi == 1<<19 {
			// v is in [0x7FFFF800, 0x7FFFFFFF]: lui sets bit 31 and the
			// 32-bit add brings the result back to a positive value
			hi = -(1 << 19)
			kind = Addiw
		}
		if hi != 0 {
			ops = append(ops, Lui{Rd: rd, Imm20: int32(hi)})
		}
		if lo != 0 || hi == 0 {
			src := rd
			if hi == 0 {
				src = Zero
			}
			ops = append(ops, OpImm{Kind: kind, Rd: rd, Rs1: src, Imm12: int32(lo)})
		}
		return ops
	}

	lo := lo12(v)
	upper := int64(uint64(v) - uint64(lo))
	shift := bits.TrailingZeros64(uint64(upper))
	upper >>= shift

	ops := materialize(rd, upper)
	ops = append(ops, OpImm{Kind: Slli, Rd: rd, Rs1: rd, Shamt: uint8(shift)})
	if lo != 0 {
		ops = append(ops, OpImm{Kind: Addi, Rd: rd, Rs1: rd, Imm12: int32(lo)})
	}
	return ops
}
