package rv64

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/xyproto/mcode/internal/mc"
)

func encodeOne(t *testing.T, op Op) uint32 {
	t.Helper()
	b, err := Encode(op, 0, -1)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", Format(op), err)
	}
	if len(b) != 4 {
		t.Fatalf("%s: expected 4 bytes, got %d", Format(op), len(b))
	}
	return binary.LittleEndian.Uint32(b)
}

// TestKnownEncodings checks instruction words against a reference assembler
func TestKnownEncodings(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		want uint32
	}{
		{"add a0, a1, a2", Alu{Kind: Add, Rd: A0, Rs1: A1, Rs2: A2}, 0x00C58533},
		{"sub a0, a0, a1", Alu{Kind: Sub, Rd: A0, Rs1: A0, Rs2: A1}, 0x40B50533},
		{"addw a0, a0, a1", Alu{Kind: Addw, Rd: A0, Rs1: A0, Rs2: A1}, 0x00B5053B},
		{"mul a0, a1, a2", MulDiv{Kind: Mul, Rd: A0, Rs1: A1, Rs2: A2}, 0x02C58533},
		{"addi a0, zero, 42", OpImm{Kind: Addi, Rd: A0, Rs1: Zero, Imm12: 42}, 0x02A00513},
		{"addiw a0, a0, -1", OpImm{Kind: Addiw, Rd: A0, Rs1: A0, Imm12: -1}, 0xFFF5051B},
		{"srai a0, a0, 63", OpImm{Kind: Srai, Rd: A0, Rs1: A0, Shamt: 63}, 0x43F55513},
		{"slli t0, t0, 32", OpImm{Kind: Slli, Rd: T0, Rs1: T0, Shamt: 32}, 0x02029293},
		{"lui a0, 0x12345", Lui{Rd: A0, Imm20: 0x12345}, 0x12345537},
		{"lui a0, -1", Lui{Rd: A0, Imm20: -1}, 0xFFFFF537},
		{"ld a0, 8(sp)", Load{W: D, Rd: A0, Rs1: SP, Imm12: 8}, 0x00813503},
		{"lbu t0, 0(a0)", Load{W: B, Unsigned: true, Rd: T0, Rs1: A0}, 0x00054283},
		{"sd a0, 8(sp)", Store{W: D, Rs2: A0, Rs1: SP, Imm12: 8}, 0x00A13423},
		{"sd a0, -8(sp)", Store{W: D, Rs2: A0, Rs1: SP, Imm12: -8}, 0xFEA13C23},
		{"beq a0, a1, 8", Br{Cond: Beq, Rs1: A0, Rs2: A1, Off: 8}, 0x00B50463},
		{"jal zero, 0", Jal{Rd: Zero}, 0x0000006F},
		{"jalr zero, 0(ra)", Jalr{Rd: Zero, Rs1: RA}, 0x00008067},
		{"ecall", Ecall{}, 0x00000073},
		{"ebreak", Ebreak{}, 0x00100073},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encodeOne(t, tt.op); got != tt.want {
				t.Errorf("Expected 0x%08X, got 0x%08X", tt.want, got)
			}
		})
	}
}

// TestAddFields checks the R-type field layout of add
func TestAddFields(t *testing.T) {
	word := encodeOne(t, Alu{Kind: Add, Rd: T1, Rs1: S2, Rs2: A7})
	if Opcode(word) != 0x33 {
		t.Errorf("Expected opcode 0x33, got 0x%02X", Opcode(word))
	}
	if f3 := word >> 12 & 7; f3 != 0 {
		t.Errorf("Expected funct3 0, got %d", f3)
	}
	if f7 := word >> 25; f7 != 0 {
		t.Errorf("Expected funct7 0, got %d", f7)
	}
	if rd := Reg(word >> 7 & 0x1F); rd != T1 {
		t.Errorf("Expected rd t1, got %s", rd)
	}
	if rs1 := Reg(word >> 15 & 0x1F); rs1 != S2 {
		t.Errorf("Expected rs1 s2, got %s", rs1)
	}
	if rs2 := Reg(word >> 20 & 0x1F); rs2 != A7 {
		t.Errorf("Expected rs2 a7, got %s", rs2)
	}
}

// TestImm12Sweep encodes addi with every 12-bit immediate
func TestImm12Sweep(t *testing.T) {
	for i := int32(-2048); i <= 2047; i++ {
		word := encodeOne(t, OpImm{Kind: Addi, Rd: A0, Rs1: A1, Imm12: i})
		want := uint32(i)&0xFFF<<20 | uint32(A1)<<15 | uint32(A0)<<7 | 0x13
		if word != want {
			t.Fatalf("addi %d: expected 0x%08X, got 0x%08X", i, want, word)
		}
		if got := DecodeIImm(word); got != i {
			t.Fatalf("addi %d: decoded %d", i, got)
		}
	}

	for _, i := range []int32{-2049, 2048, 4095, -4096, 1 << 20, -1 << 30} {
		b, err := Encode(OpImm{Kind: Addi, Rd: A0, Rs1: A1, Imm12: i}, 0, -1)
		if !errors.Is(err, mc.ErrInvalid) {
			t.Errorf("addi %d: expected invalid error, got %v", i, err)
		}
		if b != nil {
			t.Errorf("addi %d: expected no bytes, got % x", i, b)
		}
	}
}

func TestStoreImmediateSplit(t *testing.T) {
	for _, i := range []int32{-2048, -1, 0, 1, 31, 32, 2047} {
		word := encodeOne(t, Store{W: W, Rs2: A1, Rs1: A0, Imm12: i})
		if got := DecodeSImm(word); got != i {
			t.Errorf("sw %d: decoded %d", i, got)
		}
	}
	if _, err := Encode(Store{W: D, Rs2: A0, Rs1: SP, Imm12: 2048}, 0, -1); !errors.Is(err, mc.ErrInvalid) {
		t.Errorf("Expected invalid error, got %v", err)
	}
}

// TestBranchRoundTrip encodes every even branch offset and decodes it back
func TestBranchRoundTrip(t *testing.T) {
	for off := int32(-4096); off <= 4094; off += 2 {
		word := encodeOne(t, Br{Cond: Bne, Rs1: T0, Rs2: T1, Off: off})
		if got := DecodeBImm(word); got != off {
			t.Fatalf("offset %d: decoded %d (word 0x%08X)", off, got, word)
		}
		if word&0x01FFF07F != uint32(T1)<<20|uint32(T0)<<15|uint32(Bne)<<12|0x63 {
			t.Fatalf("offset %d: register or opcode fields changed (word 0x%08X)", off, word)
		}
	}

	for _, off := range []int32{-4098, 4096, 3, -1, 1 << 20} {
		if _, err := Encode(Br{Cond: Beq, Off: off}, 0, -1); !errors.Is(err, mc.ErrInvalid) {
			t.Errorf("offset %d: expected invalid error, got %v", off, err)
		}
	}
}

// TestJalRoundTrip encodes every even jump offset and decodes it back
func TestJalRoundTrip(t *testing.T) {
	for off := int32(-1 << 20); off <= 1<<20-2; off += 2 {
		word := encodeOne(t, Jal{Rd: RA, Off: off})
		if got := DecodeJImm(word); got != off {
			t.Fatalf("offset %d: decoded %d (word 0x%08X)", off, got, word)
		}
	}

	for _, off := range []int32{1 << 20, -1<<20 - 2, 7} {
		if _, err := Encode(Jal{Rd: Zero, Off: off}, 0, -1); !errors.Is(err, mc.ErrInvalid) {
			t.Errorf("offset %d: expected invalid error, got %v", off, err)
		}
	}
}

func TestInvalidOperands(t *testing.T) {
	tests := []struct {
		name string
		op   Op
	}{
		{"shift amount 64", OpImm{Kind: Slli, Rd: A0, Rs1: A0, Shamt: 64}},
		{"lui out of range", Lui{Rd: A0, Imm20: 1 << 19}},
		{"register 32", Alu{Kind: Add, Rd: 32, Rs1: A0, Rs2: A0}},
		{"ldu", Load{W: D, Unsigned: true, Rd: A0, Rs1: SP}},
		{"branch condition 2", Br{Cond: 2, Rs1: A0, Rs2: A1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(tt.op, 0, -1)
			if !errors.Is(err, mc.ErrInvalid) {
				t.Errorf("Expected invalid error, got %v", err)
			}
			if b != nil {
				t.Errorf("Expected no bytes, got % x", b)
			}
		})
	}
}

func TestPseudoUnsupported(t *testing.T) {
	for _, op := range []Op{Li{Rd: A0, Imm: 1}, Mv{Rd: A0, Rs: A1}, Ret{}, Bind{Label: 1}} {
		if _, err := Encode(op, 0, -1); !errors.Is(err, mc.ErrUnsupported) {
			t.Errorf("%s: expected unsupported error, got %v", Format(op), err)
		}
	}
}

func TestQuad(t *testing.T) {
	b, err := Encode(Quad{Value: 0x1122334455667788}, 0, -1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}
	for i := range expected {
		if b[i] != expected[i] {
			t.Errorf("Byte %d: expected 0x%02X, got 0x%02X", i, expected[i], b[i])
		}
	}
}
