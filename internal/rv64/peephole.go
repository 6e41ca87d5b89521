package rv64

import "github.com/xyproto/mcode/internal/mc"

// Simplify runs the peephole pass. Each instruction is first reduced on its
// own, then merged with the instruction before it where possible; a merged
// result is checked again against its new predecessor. The output is
// therefore a fixed point and Simplify(Simplify(ops)) equals Simplify(ops).
//
// Instructions are never reordered. Instructions that refer to a label are
// left alone, and nothing is merged across a label definition.
func Simplify(ops []Op) []Op {
	out := make([]Op, 0, len(ops))
	for _, op := range ops {
		out = push(out, op)
	}
	return out
}

func push(out []Op, op Op) []Op {
	op, keep := reduce(op)
	if !keep {
		return out
	}
	if n := len(out); n > 0 {
		if merged, ok := combine(out[n-1], op); ok {
			mc.Tracef("peephole: %s; %s -> %s\n", Format(out[n-1]), Format(op), Format(merged))
			return push(out[:n-1], merged)
		}
	}
	return append(out, op)
}

// reduce applies single-instruction rules until none match. keep is false
// when op has no effect at all.
func reduce(op Op) (Op, bool) {
	for {
		next, keep, changed := reduceOnce(op)
		if !keep {
			mc.Tracef("peephole: removed %s\n", Format(op))
			return nil, false
		}
		if !changed {
			return op, true
		}
		mc.Tracef("peephole: %s -> %s\n", Format(op), Format(next))
		op = next
	}
}

func reduceOnce(op Op) (next Op, keep, changed bool) {
	switch o := op.(type) {
	case Alu:
		if o.Rd == Zero {
			return nil, false, false
		}
		// sub rd, rs1, zero is add rd, rs1, zero
		if o.Kind == Sub && o.Rs2 == Zero {
			o.Kind = Add
			return o, true, true
		}
		if o.Kind == Add && (o.Rd == o.Rs1 && o.Rs2 == Zero || o.Rd == o.Rs2 && o.Rs1 == Zero) {
			return nil, false, false
		}
	case OpImm:
		if o.Target != mc.NoLabel {
			break
		}
		if o.Rd == Zero {
			return nil, false, false
		}
		if o.Kind == Addi && o.Rd == o.Rs1 && o.Imm12 == 0 {
			return nil, false, false
		}
	case MulDiv:
		if o.Rd == Zero {
			return nil, false, false
		}
	case Lui:
		if o.Rd == Zero {
			return nil, false, false
		}
		if o.Imm20 == 0 {
			return OpImm{Kind: Addi, Rd: o.Rd, Rs1: Zero}, true, true
		}
	}
	return op, true, false
}

// combine merges two adjacent instructions into one
func combine(prev, cur Op) (Op, bool) {
	p, ok := prev.(OpImm)
	if !ok || p.Kind != Addi || p.Target != mc.NoLabel || p.Rs1 != Zero {
		return nil, false
	}
	c, ok := cur.(OpImm)
	if !ok || c.Kind != Addi || c.Target != mc.NoLabel || c.Rd != p.Rd || c.Rs1 != p.Rd {
		return nil, false
	}
	sum := int64(p.Imm12) + int64(c.Imm12)
	if sum < minImm12 || sum > maxImm12 {
		return nil, false
	}
	return OpImm{Kind: Addi, Rd: p.Rd, Rs1: Zero, Imm12: int32(sum)}, true
}
