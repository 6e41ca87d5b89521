// Package ir is the instruction-selection input of the code generator: a flat,
// ordered list of nodes with explicit widths and registers that are either
// architectural or virtual.
package ir

import (
	"fmt"

	"github.com/xyproto/mcode/internal/mc"
)

// Width is an operand width in bits
type Width uint8

const (
	W8  Width = 8
	W16 Width = 16
	W32 Width = 32
	W64 Width = 64
)

func (w Width) Valid() bool {
	return w == W8 || w == W16 || w == W32 || w == W64
}

// Bytes returns the width in bytes
func (w Width) Bytes() int {
	return int(w) / 8
}

func (w Width) String() string {
	return fmt.Sprintf("i%d", uint8(w))
}

// Fits reports whether v is representable in w bits, as either a signed or
// an unsigned value.
func (w Width) Fits(v int64) bool {
	if w >= W64 {
		return true
	}
	lo := -(int64(1) << (w - 1))
	hi := int64(1)<<w - 1
	return v >= lo && v <= hi
}

// Reg is an architectural register number, or a virtual register id that the
// allocator maps to a scratch register.
type Reg struct {
	N       uint32
	Virtual bool
}

// Phys returns architectural register n
func Phys(n uint32) Reg { return Reg{N: n} }

// Virt returns virtual register n
func Virt(n uint32) Reg { return Reg{N: n, Virtual: true} }

func (r Reg) String() string {
	if r.Virtual {
		return fmt.Sprintf("v%d", r.N)
	}
	return fmt.Sprintf("r%d", r.N)
}

// Cond is a branch condition comparing two registers
type Cond int

const (
	Eq Cond = iota
	Ne
	Lt  // signed
	Ge  // signed
	Ltu // unsigned
	Geu // unsigned
)

var condNames = [...]string{"eq", "ne", "lt", "ge", "ltu", "geu"}

func (c Cond) String() string {
	if c < 0 || int(c) >= len(condNames) {
		return fmt.Sprintf("cond(%d)", int(c))
	}
	return condNames[c]
}

// Node is one IR instruction
type Node interface {
	node()
	String() string
}

// Const loads Imm into Dst
type Const struct {
	Dst Reg
	Imm int64
	W   Width
}

// Add computes Dst = Src1 + Src2
type Add struct {
	Dst, Src1, Src2 Reg
	W               Width
}

// AddImm computes Dst = Src + Imm
type AddImm struct {
	Dst, Src Reg
	Imm      int64
	W        Width
}

// Sub computes Dst = Src1 - Src2
type Sub struct {
	Dst, Src1, Src2 Reg
	W               Width
}

// Store writes the low W bits of Src to [Base+Off]
type Store struct {
	Src, Base Reg
	Off       int32
	W         Width
}

// Load reads W bits from [Base+Off] into Dst, sign-extended unless Unsigned
type Load struct {
	Dst, Base Reg
	Off       int32
	W         Width
	Unsigned  bool
}

// LoadAddr computes the address of Target into Dst
type LoadAddr struct {
	Dst    Reg
	Target mc.Label
}

// Label defines ID at this position
type Label struct {
	ID mc.Label
}

// Jump transfers control to Target
type Jump struct {
	Target mc.Label
}

// Branch transfers control to Target when A Cond B holds
type Branch struct {
	Cond   Cond
	A, B   Reg
	Target mc.Label
}

// Return returns to the caller
type Return struct{}

func (Const) node()    {}
func (Add) node()      {}
func (AddImm) node()   {}
func (Sub) node()      {}
func (Store) node()    {}
func (Load) node()     {}
func (LoadAddr) node() {}
func (Label) node()    {}
func (Jump) node()     {}
func (Branch) node()   {}
func (Return) node()   {}

func (n Const) String() string {
	return fmt.Sprintf("const.%d %s, %d", n.W, n.Dst, n.Imm)
}

func (n Add) String() string {
	return fmt.Sprintf("add.%d %s, %s, %s", n.W, n.Dst, n.Src1, n.Src2)
}

func (n AddImm) String() string {
	return fmt.Sprintf("addi.%d %s, %s, %d", n.W, n.Dst, n.Src, n.Imm)
}

func (n Sub) String() string {
	return fmt.Sprintf("sub.%d %s, %s, %s", n.W, n.Dst, n.Src1, n.Src2)
}

func (n Store) String() string {
	return fmt.Sprintf("store.%d %s, %d(%s)", n.W, n.Src, n.Off, n.Base)
}

func (n Load) String() string {
	u := ""
	if n.Unsigned {
		u = "u"
	}
	return fmt.Sprintf("load.%d%s %s, %d(%s)", n.W, u, n.Dst, n.Off, n.Base)
}

func (n LoadAddr) String() string { return fmt.Sprintf("la %s, %s", n.Dst, n.Target) }
func (n Label) String() string    { return n.ID.String() + ":" }
func (n Jump) String() string     { return "jump " + n.Target.String() }
func (n Return) String() string   { return "ret" }

func (n Branch) String() string {
	return fmt.Sprintf("b%s %s, %s, %s", n.Cond, n.A, n.B, n.Target)
}

// Regs returns the registers n reads or writes
func Regs(n Node) []Reg {
	switch n := n.(type) {
	case Const:
		return []Reg{n.Dst}
	case Add:
		return []Reg{n.Dst, n.Src1, n.Src2}
	case AddImm:
		return []Reg{n.Dst, n.Src}
	case Sub:
		return []Reg{n.Dst, n.Src1, n.Src2}
	case Store:
		return []Reg{n.Src, n.Base}
	case Load:
		return []Reg{n.Dst, n.Base}
	case LoadAddr:
		return []Reg{n.Dst}
	case Branch:
		return []Reg{n.A, n.B}
	}
	return nil
}
