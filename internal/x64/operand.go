package x64

import (
	"fmt"
	"strings"
)

// Operand is a register, an immediate or a memory reference
type Operand interface {
	isOperand()
}

// Imm8 is an 8-bit immediate
type Imm8 int8

// Imm32 is a 32-bit immediate, sign-extended for 64-bit operations
type Imm32 int32

// Mem addresses Base + Index*Scale + Disp. Base or Index may be NoReg; a RIP
// base makes Disp relative to the end of the instruction.
type Mem struct {
	Base  Reg
	Index Reg
	Scale uint8
	Disp  int32
}

func (Reg) isOperand()   {}
func (Imm8) isOperand()  {}
func (Imm32) isOperand() {}
func (Mem) isOperand()   {}

// At returns the memory operand [base+disp]
func At(base Reg, disp int32) Mem {
	return Mem{Base: base, Index: NoReg, Scale: 1, Disp: disp}
}

// Abs returns the memory operand [disp], with neither base nor index
func Abs(disp int32) Mem {
	return Mem{Base: NoReg, Index: NoReg, Scale: 1, Disp: disp}
}

// immValue returns the value of an immediate operand
func immValue(o Operand) (int64, bool) {
	switch o := o.(type) {
	case Imm8:
		return int64(o), true
	case Imm32:
		return int64(o), true
	}
	return 0, false
}

func (m Mem) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	sep := ""
	if m.Base != NoReg {
		sb.WriteString(m.Base.String())
		sep = "+"
	}
	if m.Index != NoReg {
		fmt.Fprintf(&sb, "%s%s*%d", sep, m.Index, m.Scale)
		sep = "+"
	}
	switch {
	case m.Disp < 0:
		fmt.Fprintf(&sb, "%d", m.Disp)
	case m.Disp > 0 || sep == "":
		fmt.Fprintf(&sb, "%s%d", sep, m.Disp)
	}
	sb.WriteByte(']')
	return sb.String()
}

// formatOperand renders o at width w
func formatOperand(o Operand, w Width) string {
	switch o := o.(type) {
	case Reg:
		return o.Name(w)
	case Imm8:
		return fmt.Sprintf("%d", o)
	case Imm32:
		return fmt.Sprintf("%d", o)
	case Mem:
		return sizeNames[w] + " " + o.String()
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("%v", o)
}

var sizeNames = map[Width]string{
	W8:  "byte",
	W16: "word",
	W32: "dword",
	W64: "qword",
}
