package rv64

import (
	"fmt"

	"github.com/xyproto/mcode/internal/mc"
)

// Op is one RV64IM instruction, pseudo-instruction or label definition.
// Fields named Imm12/Imm20 hold immediates for those field widths; Off holds
// a byte offset. Forms with a Target refer to a label instead of a literal.
type Op interface {
	isOp()
}

// Width of a memory access
type Width uint8

const (
	B Width = iota // byte
	H              // halfword
	W              // word
	D              // doubleword
)

var widthNames = [...]string{"b", "h", "w", "d"}

func (w Width) String() string {
	if int(w) < len(widthNames) {
		return widthNames[w]
	}
	return "?"
}

// Cond is a branch condition. The values are the funct3 encodings.
type Cond uint8

const (
	Beq  Cond = 0
	Bne  Cond = 1
	Blt  Cond = 4
	Bge  Cond = 5
	Bltu Cond = 6
	Bgeu Cond = 7
)

func (c Cond) String() string {
	switch c {
	case Beq:
		return "beq"
	case Bne:
		return "bne"
	case Blt:
		return "blt"
	case Bge:
		return "bge"
	case Bltu:
		return "bltu"
	case Bgeu:
		return "bgeu"
	}
	return fmt.Sprintf("b?%d", uint8(c))
}

// ImmKind selects an OP-IMM (or OP-IMM-32) instruction
type ImmKind uint8

const (
	Addi ImmKind = iota
	Slti
	Sltiu
	Xori
	Ori
	Andi
	Slli
	Srli
	Srai
	Addiw
)

var immNames = [...]string{"addi", "slti", "sltiu", "xori", "ori", "andi", "slli", "srli", "srai", "addiw"}

func (k ImmKind) String() string {
	if int(k) < len(immNames) {
		return immNames[k]
	}
	return "?"
}

// IsShift reports whether k takes a shift amount instead of an immediate
func (k ImmKind) IsShift() bool {
	return k == Slli || k == Srli || k == Srai
}

// AluKind selects an OP (or OP-32) instruction
type AluKind uint8

const (
	Add AluKind = iota
	Sub
	Sll
	Slt
	Sltu
	Xor
	Srl
	Sra
	Or
	And
	Addw
	Subw
)

var aluNames = [...]string{"add", "sub", "sll", "slt", "sltu", "xor", "srl", "sra", "or", "and", "addw", "subw"}

func (k AluKind) String() string {
	if int(k) < len(aluNames) {
		return aluNames[k]
	}
	return "?"
}

// MulKind selects an M extension instruction
type MulKind uint8

const (
	Mul MulKind = iota
	Mulh
	Mulhsu
	Mulhu
	Div
	Divu
	Rem
	Remu
	Mulw
)

var mulNames = [...]string{"mul", "mulh", "mulhsu", "mulhu", "div", "divu", "rem", "remu", "mulw"}

func (k MulKind) String() string {
	if int(k) < len(mulNames) {
		return mulNames[k]
	}
	return "?"
}

// Lui loads Imm20<<12 into Rd
type Lui struct {
	Rd    Reg
	Imm20 int32
}

// Auipc adds Imm20<<12 to the pc. With a Target, the upper part of the
// pc-relative offset to Target is used (HI20).
type Auipc struct {
	Rd     Reg
	Imm20  int32
	Target mc.Label
}

// Jal jumps by Off (or to Target) and links into Rd
type Jal struct {
	Rd     Reg
	Off    int32
	Target mc.Label
}

// Jalr jumps to Rs1+Imm12 and links into Rd
type Jalr struct {
	Rd, Rs1 Reg
	Imm12   int32
}

// Br branches by Off (or to Target) when Rs1 Cond Rs2
type Br struct {
	Cond     Cond
	Rs1, Rs2 Reg
	Off      int32
	Target   mc.Label
}

// Load reads from Rs1+Imm12
type Load struct {
	W        Width
	Unsigned bool
	Rd, Rs1  Reg
	Imm12    int32
}

// Store writes Rs2 to Rs1+Imm12
type Store struct {
	W        Width
	Rs2, Rs1 Reg
	Imm12    int32
}

// OpImm is a register-immediate ALU instruction. Shifts use Shamt. With a
// Target, the instruction must directly follow an Auipc with the same Target
// and takes the low part of that pc-relative offset (LO12_I).
type OpImm struct {
	Kind    ImmKind
	Rd, Rs1 Reg
	Imm12   int32
	Shamt   uint8
	Target  mc.Label
}

// Alu is a register-register ALU instruction
type Alu struct {
	Kind         AluKind
	Rd, Rs1, Rs2 Reg
}

// MulDiv is a multiply or divide instruction
type MulDiv struct {
	Kind         MulKind
	Rd, Rs1, Rs2 Reg
}

type Ecall struct{}

type Ebreak struct{}

// Quad is 8 bytes of data: Value, or the offset of Target within the unit
type Quad struct {
	Value  int64
	Target mc.Label
}

// Li loads any 64-bit constant (pseudo-instruction)
type Li struct {
	Rd  Reg
	Imm int64
}

// Mv copies Rs into Rd (pseudo-instruction)
type Mv struct {
	Rd, Rs Reg
}

// Ret returns through ra (pseudo-instruction)
type Ret struct{}

// Bind defines Label at the current position
type Bind struct {
	Label mc.Label
}

func (Lui) isOp()    {}
func (Auipc) isOp()  {}
func (Jal) isOp()    {}
func (Jalr) isOp()   {}
func (Br) isOp()     {}
func (Load) isOp()   {}
func (Store) isOp()  {}
func (OpImm) isOp()  {}
func (Alu) isOp()    {}
func (MulDiv) isOp() {}
func (Ecall) isOp()  {}
func (Ebreak) isOp() {}
func (Quad) isOp()   {}
func (Li) isOp()     {}
func (Mv) isOp()     {}
func (Ret) isOp()    {}
func (Bind) isOp()   {}

// Format renders op in assembler syntax
func Format(op Op) string {
	switch op := op.(type) {
	case Lui:
		return fmt.Sprintf("lui %s, %#x", op.Rd, op.Imm20)
	case Auipc:
		if op.Target != mc.NoLabel {
			return fmt.Sprintf("auipc %s, %%pcrel_hi(%s)", op.Rd, op.Target)
		}
		return fmt.Sprintf("auipc %s, %#x", op.Rd, op.Imm20)
	case Jal:
		return fmt.Sprintf("jal %s, %s", op.Rd, target(op.Off, op.Target))
	case Jalr:
		return fmt.Sprintf("jalr %s, %d(%s)", op.Rd, op.Imm12, op.Rs1)
	case Br:
		return fmt.Sprintf("%s %s, %s, %s", op.Cond, op.Rs1, op.Rs2, target(op.Off, op.Target))
	case Load:
		u := ""
		if op.Unsigned {
			u = "u"
		}
		return fmt.Sprintf("l%s%s %s, %d(%s)", op.W, u, op.Rd, op.Imm12, op.Rs1)
	case Store:
		return fmt.Sprintf("s%s %s, %d(%s)", op.W, op.Rs2, op.Imm12, op.Rs1)
	case OpImm:
		switch {
		case op.Target != mc.NoLabel:
			return fmt.Sprintf("%s %s, %s, %%pcrel_lo(%s)", op.Kind, op.Rd, op.Rs1, op.Target)
		case op.Kind.IsShift():
			return fmt.Sprintf("%s %s, %s, %d", op.Kind, op.Rd, op.Rs1, op.Shamt)
		}
		return fmt.Sprintf("%s %s, %s, %d", op.Kind, op.Rd, op.Rs1, op.Imm12)
	case Alu:
		return fmt.Sprintf("%s %s, %s, %s", op.Kind, op.Rd, op.Rs1, op.Rs2)
	case MulDiv:
		return fmt.Sprintf("%s %s, %s, %s", op.Kind, op.Rd, op.Rs1, op.Rs2)
	case Ecall:
		return "ecall"
	case Ebreak:
		return "ebreak"
	case Quad:
		if op.Target != mc.NoLabel {
			return fmt.Sprintf(".quad %s", op.Target)
		}
		return fmt.Sprintf(".quad %#x", op.Value)
	case Li:
		return fmt.Sprintf("li %s, %d", op.Rd, op.Imm)
	case Mv:
		return fmt.Sprintf("mv %s, %s", op.Rd, op.Rs)
	case Ret:
		return "ret"
	case Bind:
		return op.Label.String() + ":"
	}
	return fmt.Sprintf("<%T>", op)
}

func target(off int32, l mc.Label) string {
	if l != mc.NoLabel {
		return l.String()
	}
	return fmt.Sprintf("%+d", off)
}
