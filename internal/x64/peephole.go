package x64

import (
	"math"

	"github.com/xyproto/mcode/internal/mc"
)

// Simplify runs the peephole pass. It works like the RV64 pass: every
// instruction is reduced on its own and then merged with the one before it,
// so the result is a fixed point of the rules.
//
// An add or sub of zero still sets the flags. It is only removed when the
// following instructions overwrite the flags, or leave through ret or call,
// before any jcc, jmp or label could observe them.
func Simplify(ops []Op) []Op {
	out := make([]Op, 0, len(ops))
	for i, op := range ops {
		out = push(out, op, ops[i+1:])
	}
	return out
}

func push(out []Op, op Op, next []Op) []Op {
	op, keep := reduce(op, next)
	if !keep {
		return out
	}
	if n := len(out); n > 0 {
		if merged, ok := combine(out[n-1], op); ok {
			mc.Tracef("peephole: %s; %s -> %s\n", Format(out[n-1]), Format(op), Format(merged))
			return push(out[:n-1], merged, next)
		}
	}
	return append(out, op)
}

func reduce(op Op, next []Op) (Op, bool) {
	for {
		n, keep, changed := reduceOnce(op, next)
		if !keep {
			mc.Tracef("peephole: removed %s\n", Format(op))
			return nil, false
		}
		if !changed {
			return op, true
		}
		mc.Tracef("peephole: %s -> %s\n", Format(op), Format(n))
		op = n
	}
}

// flagsRead reports whether the flags left by an instruction may be read by
// the instructions in next
func flagsRead(next []Op) bool {
	for _, op := range next {
		switch op.(type) {
		case Mov, Movx, Lea, Push, Pop, MovImm64, Cqo:
			// flags pass through
		case Arith, Test, IMul, Neg, IDiv, Ret, Call:
			return false
		default:
			// Jcc, Jmp, Bind and anything unknown
			return true
		}
	}
	return false
}

func reduceOnce(op Op, next []Op) (n Op, keep, changed bool) {
	switch o := op.(type) {
	case Mov:
		if o.W == W64 && o.Dst == o.Src {
			if _, ok := o.Dst.(Reg); ok {
				return nil, false, false
			}
		}
	case Arith:
		if o.W != W64 || o.Kind != Add && o.Kind != Sub || flagsRead(next) {
			break
		}
		if _, ok := o.Dst.(Reg); !ok {
			break
		}
		if v, ok := immValue(o.Src); ok && v == 0 {
			return nil, false, false
		}
	case Lea:
		if o.Target == mc.NoLabel && o.Src.Base == o.Dst && o.Src.Index == NoReg && o.Src.Disp == 0 {
			return nil, false, false
		}
	case MovImm64:
		if o.Target == mc.NoLabel && o.Imm64 >= math.MinInt32 && o.Imm64 <= math.MaxInt32 {
			return Mov{W: W64, Dst: o.Dst, Src: Imm32(o.Imm64)}, true, true
		}
	}
	return op, true, false
}

// combine drops the second of two moves that swap the same registers back
func combine(prev, cur Op) (Op, bool) {
	p, ok := prev.(Mov)
	if !ok || p.W != W64 {
		return nil, false
	}
	c, ok := cur.(Mov)
	if !ok || c.W != W64 {
		return nil, false
	}
	pd, ok1 := p.Dst.(Reg)
	ps, ok2 := p.Src.(Reg)
	cd, ok3 := c.Dst.(Reg)
	cs, ok4 := c.Src.(Reg)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, false
	}
	if pd == cs && ps == cd {
		return p, true
	}
	return nil, false
}
