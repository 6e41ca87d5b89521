// Completion: 100% - GPR numbering and 8/16/32/64-bit names complete
package x64

import (
	"fmt"
	"sort"
)

// Reg is a general purpose register number, 0 to 15. The low three bits go
// into ModRM/SIB/opcode fields, bit 3 into a REX extension bit.
type Reg uint8

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	NumRegs = 16
)

const (
	// NoReg marks an absent base or index register
	NoReg Reg = 0xFF
	// RIP as a memory base selects rip-relative addressing
	RIP Reg = 0xFE
)

// Width is an operand size in bits
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

var regNames = map[Width][NumRegs]string{
	W64: {"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
		"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"},
	W32: {"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi",
		"r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d"},
	W16: {"ax", "cx", "dx", "bx", "sp", "bp", "si", "di",
		"r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w"},
	W8: {"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil",
		"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b"},
}

func (r Reg) Valid() bool {
	return r < NumRegs
}

// low returns the three bits that go into an encoding field
func (r Reg) low() uint8 {
	return uint8(r) & 7
}

// ext reports whether r needs a REX extension bit
func (r Reg) ext() bool {
	return r >= 8 && r < NumRegs
}

// Name returns the name of the w-bit view of r
func (r Reg) Name(w Width) string {
	switch {
	case r == RIP:
		return "rip"
	case r == NoReg:
		return "none"
	case !r.Valid():
		return fmt.Sprintf("r?%d", uint8(r))
	}
	names, ok := regNames[w]
	if !ok {
		names = regNames[W64]
	}
	return names[r]
}

func (r Reg) String() string {
	return r.Name(W64)
}

// RegisterByName looks up a 64-bit register name. The numbered spellings
// r0 to r7 are accepted too.
func RegisterByName(name string) (Reg, bool) {
	for i, n := range regNames[W64] {
		if n == name {
			return Reg(i), true
		}
	}
	if len(name) == 2 && name[0] == 'r' && name[1] >= '0' && name[1] <= '7' {
		return Reg(name[1] - '0'), true
	}
	return NoReg, false
}

type registerNames struct{}

// Registers resolves register names for the IR text reader
var Registers registerNames

func (registerNames) Lookup(name string) (uint32, bool) {
	r, ok := RegisterByName(name)
	return uint32(r), ok
}

func (registerNames) Names() []string {
	names := regNames[W64]
	out := append([]string(nil), names[:]...)
	sort.Strings(out)
	return out
}
