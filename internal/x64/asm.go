package x64

import (
	"github.com/xyproto/mcode/internal/ir"
	"github.com/xyproto/mcode/internal/mc"
	"github.com/xyproto/mcode/internal/regalloc"
)

// ISA adapts the x86-64 encoder to mc.Emit
type ISA struct{}

func (ISA) Name() string { return "x86_64" }

func (ISA) Bind(op Op) (mc.Label, bool) {
	b, ok := op.(Bind)
	return b.Label, ok
}

func (ISA) Target(op Op) mc.Label {
	switch op := op.(type) {
	case MovImm64:
		return op.Target
	case Lea:
		return op.Target
	case Call:
		return op.Target
	case Jmp:
		return op.Target
	case Jcc:
		return op.Target
	}
	return mc.NoLabel
}

func (ISA) Encode(op Op, here, target int) ([]byte, error) {
	return Encode(op, here, target)
}

func (ISA) Fixup(op Op, here, size int) mc.Reloc {
	return fixup(op, here, size)
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

// Assemble emits ops as one unit
func Assemble(ops []Op) (*mc.Object, error) {
	return mc.Emit[Op](ISA{}, ops)
}

// Compile lowers, simplifies and assembles nodes
func Compile(nodes []ir.Node) (*mc.Object, error) {
	ops, err := Lower(nodes, NewAllocator())
	if err != nil {
		return nil, err
	}
	return Assemble(Simplify(ops))
}
