package rv64

import (
	"fmt"

	"github.com/xyproto/mcode/internal/ir"
	"github.com/xyproto/mcode/internal/mc"
	"github.com/xyproto/mcode/internal/regalloc"
)

type lowerer struct {
	ra  *regalloc.Allocator[Reg]
	ops []Op
}

// Lower translates nodes into RV64 instructions. Virtual registers are
// assigned from ra; architectural registers used by nodes are reserved in
// ra first so the two never collide.
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
			return nil, fmt.Errorf("rv64: lowering node %d (%s): %w", i, n, err)
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
		return 0, mc.Errorf(mc.KindLower, "register %s does not exist on rv64", r)
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

func memWidth(w ir.Width) (Width, error) {
	switch w {
	case ir.W8:
		return B, nil
	case ir.W16:
		return H, nil
	case ir.W32:
		return W, nil
	case ir.W64:
		return D, nil
	}
	return 0, mc.Errorf(mc.KindLower, "width %d is not supported", uint8(w))
}

// aluWidth picks the 64-bit or the 32-bit (W suffixed) form
func aluWidth(w ir.Width, wide, narrow AluKind) (AluKind, error) {
	switch w {
	case ir.W64:
		return wide, nil
	case ir.W32:
		return narrow, nil
	}
	return 0, mc.Errorf(mc.KindLower, "%s arithmetic is not supported on rv64 (only 32 and 64 bits)", w)
}

func fitsImm12(v int64) bool {
	return v >= minImm12 && v <= maxImm12
}

func (l *lowerer) node(n ir.Node) error {
	switch n := n.(type) {
	case ir.Const:
		if !n.W.Valid() {
			return mc.Errorf(mc.KindLower, "width %d is not supported", uint8(n.W))
		}
		if !n.W.Fits(n.Imm) {
			return mc.Errorf(mc.KindLower, "constant %d does not fit %s", n.Imm, n.W)
		}
		rd, err := l.reg(n.Dst)
		if err != nil {
			return err
		}
		l.emit(materialize(rd, n.Imm)...)

	case ir.Add:
		kind, err := aluWidth(n.W, Add, Addw)
		if err != nil {
			return err
		}
		r, err := l.regs(n.Dst, n.Src1, n.Src2)
		if err != nil {
			return err
		}
		l.emit(Alu{Kind: kind, Rd: r[0], Rs1: r[1], Rs2: r[2]})

	case ir.Sub:
		kind, err := aluWidth(n.W, Sub, Subw)
		if err != nil {
			return err
		}
		r, err := l.regs(n.Dst, n.Src1, n.Src2)
		if err != nil {
			return err
		}
		l.emit(Alu{Kind: kind, Rd: r[0], Rs1: r[1], Rs2: r[2]})

	case ir.AddImm:
		kind := Addi
		switch n.W {
		case ir.W64:
		case ir.W32:
			kind = Addiw
		default:
			return mc.Errorf(mc.KindLower, "%s arithmetic is not supported on rv64 (only 32 and 64 bits)", n.W)
		}
		if !fitsImm12(n.Imm) {
			return mc.Errorf(mc.KindLower, "immediate %d does not fit 12 bits", n.Imm)
		}
		r, err := l.regs(n.Dst, n.Src)
		if err != nil {
			return err
		}
		l.emit(OpImm{Kind: kind, Rd: r[0], Rs1: r[1], Imm12: int32(n.Imm)})

	case ir.Store:
		w, err := memWidth(n.W)
		if err != nil {
			return err
		}
		if !fitsImm12(int64(n.Off)) {
			return mc.Errorf(mc.KindLower, "offset %d does not fit 12 bits", n.Off)
		}
		r, err := l.regs(n.Src, n.Base)
		if err != nil {
			return err
		}
		l.emit(Store{W: w, Rs2: r[0], Rs1: r[1], Imm12: n.Off})

	case ir.Load:
		w, err := memWidth(n.W)
		if err != nil {
			return err
		}
		if !fitsImm12(int64(n.Off)) {
			return mc.Errorf(mc.KindLower, "offset %d does not fit 12 bits", n.Off)
		}
		r, err := l.regs(n.Dst, n.Base)
		if err != nil {
			return err
		}
		// A 64-bit load has nothing to extend
		l.emit(Load{W: w, Unsigned: n.Unsigned && w != D, Rd: r[0], Rs1: r[1], Imm12: n.Off})

	case ir.LoadAddr:
		if n.Target == mc.NoLabel {
			return mc.Errorf(mc.KindLower, "la without a label")
		}
		rd, err := l.reg(n.Dst)
		if err != nil {
			return err
		}
		l.emit(
			Auipc{Rd: rd, Target: n.Target},
			OpImm{Kind: Addi, Rd: rd, Rs1: rd, Target: n.Target},
		)

	case ir.Label:
		l.emit(Bind{Label: n.ID})

	case ir.Jump:
		l.emit(Jal{Rd: Zero, Target: n.Target})

	case ir.Branch:
		cond, ok := branchConds[n.Cond]
		if !ok {
			return mc.Errorf(mc.KindLower, "branch condition %s is not supported", n.Cond)
		}
		r, err := l.regs(n.A, n.B)
		if err != nil {
			return err
		}
		l.emit(Br{Cond: cond, Rs1: r[0], Rs2: r[1], Target: n.Target})

	case ir.Return:
		l.emit(Jalr{Rd: Zero, Rs1: RA})

	default:
		return mc.Errorf(mc.KindLower, "no rv64 lowering for %T", n)
	}
	return nil
}

var branchConds = map[ir.Cond]Cond{
	ir.Eq:  Beq,
	ir.Ne:  Bne,
	ir.Lt:  Blt,
	ir.Ge:  Bge,
	ir.Ltu: Bltu,
	ir.Geu: Bgeu,
}
