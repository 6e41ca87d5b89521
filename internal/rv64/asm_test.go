package rv64

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/xyproto/mcode/internal/mc"
)

func word(code []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(code[off:])
}

func nops(n int) []Op {
	ops := make([]Op, n)
	for i := range ops {
		ops[i] = OpImm{Kind: Addi, Rd: Zero, Rs1: Zero}
	}
	return ops
}

// TestForwardBranch tests a branch to a label bound after it
func TestForwardBranch(t *testing.T) {
	var g mc.Labels
	done := g.New()
	obj, err := Assemble([]Op{
		Br{Cond: Beq, Rs1: A0, Rs2: A1, Target: done},
		OpImm{Kind: Addi, Rd: A0, Rs1: A0, Imm12: 1},
		Bind{Label: done},
		Ret{},
	})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(obj.Code) != 12 {
		t.Fatalf("Expected 12 bytes, got %d", len(obj.Code))
	}
	if off := DecodeBImm(word(obj.Code, 0)); off != 8 {
		t.Errorf("Expected branch offset 8, got %d", off)
	}
	if obj.Labels[done] != 8 {
		t.Errorf("Expected label at 8, got %d", obj.Labels[done])
	}
	if len(obj.Relocs) != 1 || obj.Relocs[0].Kind != mc.RelocBr12 || obj.Relocs[0].Target != 8 {
		t.Errorf("Unexpected relocations: %v", obj.Relocs)
	}
}

// TestBackwardJump tests a jump to a label bound before it
func TestBackwardJump(t *testing.T) {
	var g mc.Labels
	loop := g.New()
	obj, err := Assemble([]Op{
		Bind{Label: loop},
		OpImm{Kind: Addi, Rd: A0, Rs1: A0, Imm12: -1},
		Br{Cond: Bne, Rs1: A0, Rs2: Zero, Target: loop},
		Jal{Rd: Zero, Target: loop},
	})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if off := DecodeBImm(word(obj.Code, 4)); off != -4 {
		t.Errorf("Expected branch offset -4, got %d", off)
	}
	if off := DecodeJImm(word(obj.Code, 8)); off != -8 {
		t.Errorf("Expected jump offset -8, got %d", off)
	}
}

// TestLoadAddress tests an auipc/addi pair whose low part is negative, so the
// upper part has to be rounded up
func TestLoadAddress(t *testing.T) {
	var g mc.Labels
	data := g.New()
	ops := []Op{
		Auipc{Rd: A0, Target: data},
		OpImm{Kind: Addi, Rd: A0, Rs1: A0, Target: data},
	}
	ops = append(ops, nops(700)...)
	ops = append(ops, Bind{Label: data}, Quad{Value: 42})

	obj, err := Assemble(ops)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	target := obj.Labels[data]
	if target != 2808 {
		t.Fatalf("Expected label at 2808, got %d", target)
	}
	hi := DecodeUImm(word(obj.Code, 0))
	lo := DecodeIImm(word(obj.Code, 4))
	if hi != 1 || lo >= 0 {
		t.Errorf("Expected rounded upper part 1 and a negative low part, got %d and %d", hi, lo)
	}
	if got := int(hi)<<12 + int(lo); got != target {
		t.Errorf("auipc/addi compute %d, expected %d", got, target)
	}
}

// TestLoadAddressBackward resolves both halves directly
func TestLoadAddressBackward(t *testing.T) {
	var g mc.Labels
	data := g.New()
	ops := []Op{Bind{Label: data}, Quad{Value: 7}}
	ops = append(ops, nops(3)...)
	ops = append(ops,
		Auipc{Rd: T0, Target: data},
		OpImm{Kind: Addi, Rd: T0, Rs1: T0, Target: data},
	)
	obj, err := Assemble(ops)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	at := 8 + 3*4
	hi := DecodeUImm(word(obj.Code, at))
	lo := DecodeIImm(word(obj.Code, at+4))
	if got := int(hi)<<12 + int(lo); got != -at {
		t.Errorf("auipc/addi compute %d, expected %d", got, -at)
	}
}

func TestQuadLabel(t *testing.T) {
	var g mc.Labels
	entry := g.New()
	obj, err := Assemble([]Op{
		Quad{Target: entry},
		Ecall{},
		Bind{Label: entry},
		Ret{},
	})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if got := binary.LittleEndian.Uint64(obj.Code); got != 12 {
		t.Errorf("Expected absolute offset 12, got %d", got)
	}
	if obj.Relocs[0].Kind != mc.RelocAbs64 {
		t.Errorf("Expected ABS64 relocation record, got %s", obj.Relocs[0].Kind)
	}
}

func TestRelocationErrors(t *testing.T) {
	var g mc.Labels

	// Never bound
	_, err := Assemble([]Op{Jal{Rd: Zero, Target: g.New()}})
	if !errors.Is(err, mc.ErrReloc) {
		t.Errorf("Expected relocation error, got %v", err)
	}

	// Bound too far away for a branch
	far := g.New()
	ops := []Op{Br{Cond: Beq, Rs1: A0, Rs2: A1, Target: far}}
	ops = append(ops, nops(1100)...)
	ops = append(ops, Bind{Label: far})
	obj, err := Assemble(ops)
	if !errors.Is(err, mc.ErrInvalid) {
		t.Errorf("Expected invalid error, got %v", err)
	}
	if obj != nil {
		t.Errorf("Expected no output on error")
	}

	// Low part without its auipc
	l := g.New()
	_, err = Assemble([]Op{Bind{Label: l}, OpImm{Kind: Addi, Rd: A0, Rs1: A0, Target: l}})
	if !errors.Is(err, mc.ErrReloc) {
		t.Errorf("Expected relocation error, got %v", err)
	}
}

func TestPatchOutsideBuffer(t *testing.T) {
	err := Patch([]byte{0, 0}, mc.Reloc{Kind: mc.RelocJ20}, 0)
	if !errors.Is(err, mc.ErrBuf) {
		t.Errorf("Expected buffer error, got %v", err)
	}
}
