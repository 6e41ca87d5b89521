package x64

import (
	"fmt"
	"math"

	"github.com/xyproto/mcode/internal/ir"
	"github.com/xyproto/mcode/internal/mc"
	"github.com/xyproto/mcode/internal/regalloc"
)

type lowerer struct {
	ra  *regalloc.Allocator[Reg]
	ops []Op
}

// Lower translates nodes into x86-64 instructions. Three-address nodes become
// a mov into the destination followed by the two-address form.
func Lower(nodes []ir.Node, ra *regalloc.Allocator[Reg]) ([]Op, error) {
	for _, n := range nodes {
		for _, r := range ir.Regs(n) {
			if !r.Virtual && r.N < NumRegs {
				ra.Reserve(Reg(r.N))
			}
		}
	}

	l := &lowerer{ra: ra, ops: make([]Op, 0, len(nodes)*2)}
	for i, n := range nodes {
		if err := l.node(n); err != nil {
			return nil, fmt.Errorf("x64: lowering node %d (%s): %w", i, n, err)
		}
	}
	return l.ops, nil
}

func (l *lowerer) emit(ops ...Op) {
	l.ops = append(l.ops, ops...)
}

func (l *lowerer) reg(r ir.Reg) (Reg, error) {
	if r.Virtual {
		return l.ra.Get(r.N)
	}
	if r.N >= NumRegs {
		return 0, mc.Errorf(mc.KindLower, "register %s does not exist on x86_64", r)
	}
	return Reg(r.N), nil
}

func (l *lowerer) regs(rs ...ir.Reg) ([]Reg, error) {
	out := make([]Reg, len(rs))
	for i, r := range rs {
		var err error
		if out[i], err = l.reg(r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func width(w ir.Width) (Width, error) {
	if !w.Valid() {
		return 0, mc.Errorf(mc.KindLower, "width %d is not supported", uint8(w))
	}
	return Width(w), nil
}

func fitsInt32(v int64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}

// copyTo moves src into dst unless they are the same register
func (l *lowerer) copyTo(dst, src Reg) {
	if dst != src {
		l.emit(Mov{W: W64, Dst: dst, Src: src})
	}
}

func (l *lowerer) node(n ir.Node) error {
	switch n := n.(type) {
	case ir.Const:
		if _, err := width(n.W); err != nil {
			return err
		}
		if !n.W.Fits(n.Imm) {
			return mc.Errorf(mc.KindLower, "constant %d does not fit %s", n.Imm, n.W)
		}
		rd, err := l.reg(n.Dst)
		if err != nil {
			return err
		}
		if n.W != ir.W64 && fitsInt32(n.Imm) {
			l.emit(Mov{W: W64, Dst: rd, Src: Imm32(n.Imm)})
		} else {
			l.emit(MovImm64{Dst: rd, Imm64: n.Imm})
		}

	case ir.Add:
		w, err := width(n.W)
		if err != nil {
			return err
		}
		r, err := l.regs(n.Dst, n.Src1, n.Src2)
		if err != nil {
			return err
		}
		rd, rs1, rs2 := r[0], r[1], r[2]
		if rd == rs2 && rd != rs1 {
			rs1, rs2 = rs2, rs1
		}
		l.copyTo(rd, rs1)
		l.emit(Arith{Kind: Add, W: w, Dst: rd, Src: rs2})

	case ir.Sub:
		w, err := width(n.W)
		if err != nil {
			return err
		}
		r, err := l.regs(n.Dst, n.Src1, n.Src2)
		if err != nil {
			return err
		}
		rd, rs1, rs2 := r[0], r[1], r[2]
		if rd == rs2 && rd != rs1 {
			// rd = rs1 - rd
			l.emit(
				Neg{W: w, Dst: rd},
				Arith{Kind: Add, W: w, Dst: rd, Src: rs1},
			)
			return nil
		}
		l.copyTo(rd, rs1)
		l.emit(Arith{Kind: Sub, W: w, Dst: rd, Src: rs2})

	case ir.AddImm:
		w, err := width(n.W)
		if err != nil {
			return err
		}
		if !fitsInt32(n.Imm) || !n.W.Fits(n.Imm) {
			return mc.Errorf(mc.KindLower, "immediate %d does not fit %s", n.Imm, n.W)
		}
		r, err := l.regs(n.Dst, n.Src)
		if err != nil {
			return err
		}
		l.copyTo(r[0], r[1])
		l.emit(Arith{Kind: Add, W: w, Dst: r[0], Src: Imm32(n.Imm)})

	case ir.Store:
		w, err := width(n.W)
		if err != nil {
			return err
		}
		r, err := l.regs(n.Src, n.Base)
		if err != nil {
			return err
		}
		l.emit(Mov{W: w, Dst: At(r[1], n.Off), Src: r[0]})

	case ir.Load:
		w, err := width(n.W)
		if err != nil {
			return err
		}
		r, err := l.regs(n.Dst, n.Base)
		if err != nil {
			return err
		}
		if w == W64 {
			l.emit(Mov{W: W64, Dst: r[0], Src: At(r[1], n.Off)})
		} else {
			l.emit(Movx{W: w, Signed: !n.Unsigned, Dst: r[0], Src: At(r[1], n.Off)})
		}

	case ir.LoadAddr:
		if n.Target == mc.NoLabel {
			return mc.Errorf(mc.KindLower, "la without a label")
		}
		rd, err := l.reg(n.Dst)
		if err != nil {
			return err
		}
		l.emit(Lea{Dst: rd, Target: n.Target})

	case ir.Label:
		l.emit(Bind{Label: n.ID})

	case ir.Jump:
		l.emit(Jmp{Target: n.Target})

	case ir.Branch:
		cc, ok := branchConds[n.Cond]
		if !ok {
			return mc.Errorf(mc.KindLower, "branch condition %s is not supported", n.Cond)
		}
		r, err := l.regs(n.A, n.B)
		if err != nil {
			return err
		}
		l.emit(
			Arith{Kind: Cmp, W: W64, Dst: r[0], Src: r[1]},
			Jcc{CC: cc, Target: n.Target},
		)

	case ir.Return:
		l.emit(Ret{})

	default:
		return mc.Errorf(mc.KindLower, "no x86_64 lowering for %T", n)
	}
	return nil
}

var branchConds = map[ir.Cond]CC{
	ir.Eq:  CondE,
	ir.Ne:  CondNE,
	ir.Lt:  CondL,
	ir.Ge:  CondGE,
	ir.Ltu: CondB,
	ir.Geu: CondAE,
}
