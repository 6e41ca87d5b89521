package engine

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// Feature is one optional ISA extension of the host CPU
type Feature struct {
	Name    string
	Present bool
}

// Features describes the host CPU. Vector reports whether the host has a
// vector unit the code generator could target. No vector forms are
// implemented, so this is informational only.
type Features struct {
	Arch   Arch
	Vector bool
	List   []Feature
}

// HostFeatures probes the CPU the program is running on
func HostFeatures() Features {
	arch, err := ParseArch(runtime.GOARCH)
	if err != nil {
		return Features{Arch: ArchUnknown}
	}
	f := Features{Arch: arch}
	switch arch {
	case ArchX86_64:
		f.Vector = cpu.X86.HasAVX2
		f.List = []Feature{
			{"sse4.2", cpu.X86.HasSSE42},
			{"popcnt", cpu.X86.HasPOPCNT},
			{"bmi2", cpu.X86.HasBMI2},
			{"avx2", cpu.X86.HasAVX2},
			{"avx512f", cpu.X86.HasAVX512F},
		}
	case ArchRiscv64:
		f.Vector = cpu.RISCV64.HasV
		f.List = []Feature{
			{"c", cpu.RISCV64.HasC},
			{"v", cpu.RISCV64.HasV},
			{"zba", cpu.RISCV64.HasZba},
			{"zbb", cpu.RISCV64.HasZbb},
			{"zbs", cpu.RISCV64.HasZbs},
		}
	}
	return f
}
