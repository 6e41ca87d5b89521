package rv64

import (
	"github.com/xyproto/mcode/internal/ir"
	"github.com/xyproto/mcode/internal/mc"
	"github.com/xyproto/mcode/internal/regalloc"
)

// ISA adapts the RV64 encoder to mc.Emit
type ISA struct{}

func (ISA) Name() string { return "riscv64" }

func (ISA) Bind(op Op) (mc.Label, bool) {
	b, ok := op.(Bind)
	return b.Label, ok
}

func (ISA) Target(op Op) mc.Label {
	switch op := op.(type) {
	case Auipc:
		return op.Target
	case OpImm:
		return op.Target
	case Jal:
		return op.Target
	case Br:
		return op.Target
	case Quad:
		return op.Target
	}
	return mc.NoLabel
}

func (ISA) Encode(op Op, here, target int) ([]byte, error) {
	return Encode(op, here, target)
}

func (ISA) Fixup(op Op, here, size int) mc.Reloc {
	return fixup(op, here)
}

func (ISA) Patch(field []byte, r mc.Reloc, target int) error {
	return Patch(field, r, target)
}

func (ISA) Format(op Op) string {
	return Format(op)
}

// NewAllocator returns an allocator over the scratch pool
func NewAllocator() *regalloc.Allocator[Reg] {
	return regalloc.New(ScratchPool)
}

// Assemble expands pseudo-instructions and emits ops as one unit
func Assemble(ops []Op) (*mc.Object, error) {
	return mc.Emit[Op](ISA{}, Expand(ops))
}

// Compile lowers, simplifies and assembles nodes
func Compile(nodes []ir.Node) (*mc.Object, error) {
	ops, err := Lower(nodes, NewAllocator())
	if err != nil {
		return nil, err
	}
	return Assemble(Simplify(ops))
}
