package x64

import (
	"fmt"

	"github.com/xyproto/mcode/internal/mc"
)

// Op is one x86-64 instruction or a label definition. W is the operand
// size. Control transfers and rip-relative forms may refer to a Target label
// instead of a literal displacement.
type Op interface {
	isOp()
}

// ArithKind selects a group 1 instruction. The values are the /digit used
// by the immediate forms.
type ArithKind uint8

const (
	Add ArithKind = 0
	Or  ArithKind = 1
	And ArithKind = 4
	Sub ArithKind = 5
	Xor ArithKind = 6
	Cmp ArithKind = 7
)

func (k ArithKind) String() string {
	switch k {
	case Add:
		return "add"
	case Or:
		return "or"
	case And:
		return "and"
	case Sub:
		return "sub"
	case Xor:
		return "xor"
	case Cmp:
		return "cmp"
	}
	return fmt.Sprintf("arith?%d", uint8(k))
}

// CC is a condition code, the low nibble of the jcc opcode
type CC uint8

const (
	CondO CC = iota
	CondNO
	CondB // unsigned <
	CondAE
	CondE
	CondNE
	CondBE
	CondA
	CondS
	CondNS
	CondP
	CondNP
	CondL // signed <
	CondGE
	CondLE
	CondG
)

var ccNames = [...]string{"o", "no", "b", "ae", "e", "ne", "be", "a", "s", "ns", "p", "np", "l", "ge", "le", "g"}

func (c CC) String() string {
	if int(c) < len(ccNames) {
		return ccNames[c]
	}
	return fmt.Sprintf("cc?%d", uint8(c))
}

// Mov copies Src to Dst. Src may be a register, memory or an immediate.
type Mov struct {
	W        Width
	Dst, Src Operand
}

// MovImm64 loads a full 64-bit immediate, or the absolute offset of Target
type MovImm64 struct {
	Dst    Reg
	Imm64  int64
	Target mc.Label
}

// Movx loads a W-bit Src into the 64-bit Dst with sign or zero extension.
// Zero-extending 32 bits is a plain 32-bit mov.
type Movx struct {
	W      Width
	Signed bool
	Dst    Reg
	Src    Operand
}

// Lea computes the address Src into Dst. With a Target, Src is ignored and
// the address is rip-relative to Target.
type Lea struct {
	Dst    Reg
	Src    Mem
	Target mc.Label
}

// Arith is a two-address group 1 instruction: Dst = Dst op Src
type Arith struct {
	Kind     ArithKind
	W        Width
	Dst, Src Operand
}

type Test struct {
	W        Width
	Dst, Src Operand
}

// IMul is the two-operand signed multiply Dst *= Src
type IMul struct {
	W   Width
	Dst Reg
	Src Operand
}

type Neg struct {
	W   Width
	Dst Operand
}

// IDiv divides rdx:rax by Src
type IDiv struct {
	W   Width
	Src Operand
}

// Cqo sign-extends rax into rdx
type Cqo struct{}

type Push struct{ Reg Reg }

type Pop struct{ Reg Reg }

// Call, Jmp and Jcc take a rel32 measured from the end of the instruction
type Call struct {
	Rel    int32
	Target mc.Label
}

type Jmp struct {
	Rel    int32
	Target mc.Label
}

type Jcc struct {
	CC     CC
	Rel    int32
	Target mc.Label
}

type Ret struct{}

type Syscall struct{}

type Int3 struct{}

// Bind defines Label at the current offset
type Bind struct {
	Label mc.Label
}

func (Mov) isOp()      {}
func (MovImm64) isOp() {}
func (Movx) isOp()     {}
func (Lea) isOp()      {}
func (Arith) isOp()    {}
func (Test) isOp()     {}
func (IMul) isOp()     {}
func (Neg) isOp()      {}
func (IDiv) isOp()     {}
func (Cqo) isOp()      {}
func (Push) isOp()     {}
func (Pop) isOp()      {}
func (Call) isOp()     {}
func (Jmp) isOp()      {}
func (Jcc) isOp()      {}
func (Ret) isOp()      {}
func (Syscall) isOp()  {}
func (Int3) isOp()     {}
func (Bind) isOp()     {}

func rel(r int32, target mc.Label) string {
	if target != mc.NoLabel {
		return target.String()
	}
	return fmt.Sprintf("%+d", r)
}

// Format renders op in Intel syntax
func Format(op Op) string {
	switch o := op.(type) {
	case Mov:
		return fmt.Sprintf("mov %s, %s", formatOperand(o.Dst, o.W), formatOperand(o.Src, o.W))
	case MovImm64:
		if o.Target != mc.NoLabel {
			return fmt.Sprintf("movabs %s, %s", o.Dst, o.Target)
		}
		return fmt.Sprintf("movabs %s, %#x", o.Dst, uint64(o.Imm64))
	case Movx:
		name := "movzx"
		switch {
		case o.W == W32 && o.Signed:
			name = "movsxd"
		case o.W == W32:
			return fmt.Sprintf("mov %s, %s", o.Dst.Name(W32), formatOperand(o.Src, W32))
		case o.Signed:
			name = "movsx"
		}
		return fmt.Sprintf("%s %s, %s", name, o.Dst, formatOperand(o.Src, o.W))
	case Lea:
		if o.Target != mc.NoLabel {
			return fmt.Sprintf("lea %s, [rip+%s]", o.Dst, o.Target)
		}
		return fmt.Sprintf("lea %s, %s", o.Dst, o.Src)
	case Arith:
		return fmt.Sprintf("%s %s, %s", o.Kind, formatOperand(o.Dst, o.W), formatOperand(o.Src, o.W))
	case Test:
		return fmt.Sprintf("test %s, %s", formatOperand(o.Dst, o.W), formatOperand(o.Src, o.W))
	case IMul:
		return fmt.Sprintf("imul %s, %s", o.Dst.Name(o.W), formatOperand(o.Src, o.W))
	case Neg:
		return "neg " + formatOperand(o.Dst, o.W)
	case IDiv:
		return "idiv " + formatOperand(o.Src, o.W)
	case Cqo:
		return "cqo"
	case Push:
		return "push " + o.Reg.String()
	case Pop:
		return "pop " + o.Reg.String()
	case Call:
		return "call " + rel(o.Rel, o.Target)
	case Jmp:
		return "jmp " + rel(o.Rel, o.Target)
	case Jcc:
		return fmt.Sprintf("j%s %s", o.CC, rel(o.Rel, o.Target))
	case Ret:
		return "ret"
	case Syscall:
		return "syscall"
	case Int3:
		return "int3"
	case Bind:
		return o.Label.String() + ":"
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("%T", op)
}
