// Completion: 100% - SysV, Microsoft x64 and LP64 conventions complete
package codegen

import (
	"github.com/xyproto/mcode/internal/engine"
	"github.com/xyproto/mcode/internal/rv64"
	"github.com/xyproto/mcode/internal/x64"
)

// Calling conventions:
// - System V AMD64 ABI (Linux, macOS, BSD)
// - Microsoft x64 ABI (Windows)
// - RISC-V LP64
//
// The convention depends on the whole platform, not only the ISA: x86-64 on
// Windows passes arguments in different registers than x86-64 elsewhere.

// CallingConvention describes the integer register usage of a platform.
// Registers are given by name so tables for different ISAs can be compared.
type CallingConvention interface {
	Name() string

	// IntArgs returns the argument registers in order
	IntArgs() []string

	// IntRets returns the return value registers in order
	IntRets() []string

	// Preserved returns the registers a callee must save and restore
	Preserved() []string

	StackPointer() string
	FramePointer() string

	// ShadowSpace is the stack space a caller reserves for the callee (Windows: 32, others: 0)
	ShadowSpace() int

	// StackAlignment is the required stack alignment at a call
	StackAlignment() int
}

func names[R interface{ String() string }](regs []R) []string {
	out := make([]string, len(regs))
	for i, r := range regs {
		out[i] = r.String()
	}
	return out
}

// SystemVAMD64 implements the System V AMD64 calling convention (Linux, macOS, BSD)
type SystemVAMD64 struct{}

func (SystemVAMD64) Name() string         { return "System V AMD64" }
func (SystemVAMD64) IntArgs() []string    { return names(x64.SysVArgRegs) }
func (SystemVAMD64) IntRets() []string    { return names(x64.SysVRetRegs) }
func (SystemVAMD64) Preserved() []string  { return names(x64.SysVPreserved) }
func (SystemVAMD64) StackPointer() string { return x64.StackPointer.String() }
func (SystemVAMD64) FramePointer() string { return x64.FramePointer.String() }
func (SystemVAMD64) ShadowSpace() int     { return 0 }
func (SystemVAMD64) StackAlignment() int  { return x64.StackAlign }

// MicrosoftX64 implements the Microsoft x64 calling convention (Windows)
type MicrosoftX64 struct{}

func (MicrosoftX64) Name() string         { return "Microsoft x64" }
func (MicrosoftX64) IntArgs() []string    { return names(x64.WinArgRegs) }
func (MicrosoftX64) IntRets() []string    { return names(x64.WinRetRegs) }
func (MicrosoftX64) Preserved() []string  { return names(x64.WinPreserved) }
func (MicrosoftX64) StackPointer() string { return x64.StackPointer.String() }
func (MicrosoftX64) FramePointer() string { return x64.FramePointer.String() }
func (MicrosoftX64) ShadowSpace() int     { return x64.WinShadowSpace }
func (MicrosoftX64) StackAlignment() int  { return x64.StackAlign }

// RISCVLP64 implements the RISC-V LP64 integer calling convention
type RISCVLP64 struct{}

func (RISCVLP64) Name() string         { return "RISC-V LP64" }
func (RISCVLP64) IntArgs() []string    { return names(rv64.ArgRegs) }
func (RISCVLP64) IntRets() []string    { return names(rv64.RetRegs) }
func (RISCVLP64) Preserved() []string  { return names(rv64.Preserved) }
func (RISCVLP64) StackPointer() string { return rv64.StackPointer.String() }
func (RISCVLP64) FramePointer() string { return rv64.FramePointer.String() }
func (RISCVLP64) ShadowSpace() int     { return 0 }
func (RISCVLP64) StackAlignment() int  { return rv64.StackAlign }

// ConventionFor returns the calling convention of a platform, or nil for an
// unknown architecture
func ConventionFor(p engine.Platform) CallingConvention {
	switch p.Arch {
	case engine.ArchX86_64:
		if p.OS == engine.OSWindows {
			return MicrosoftX64{}
		}
		return SystemVAMD64{}
	case engine.ArchRiscv64:
		return RISCVLP64{}
	}
	return nil
}

// CallFrameSize returns the stack space a caller reserves around a call that
// spills saved registers: the shadow space plus 8 bytes per register,
// rounded up to the stack alignment.
func CallFrameSize(cc CallingConvention, saved int) int {
	total := cc.ShadowSpace() + saved*8
	if align := cc.StackAlignment(); total%align != 0 {
		total = (total/align + 1) * align
	}
	return total
}
