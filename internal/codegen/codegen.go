// Package codegen compiles IR for a target platform. It picks the backend,
// runs the lowering, peephole and emit stages in order and reports which
// stage failed.
package codegen

import (
	"fmt"

	"github.com/xyproto/mcode/internal/engine"
	"github.com/xyproto/mcode/internal/ir"
	"github.com/xyproto/mcode/internal/mc"
	"github.com/xyproto/mcode/internal/regalloc"
	"github.com/xyproto/mcode/internal/rv64"
	"github.com/xyproto/mcode/internal/x64"
)

// Options controls a compilation
type Options struct {
	// Peephole enables the peephole simplifier
	Peephole bool
	// Vector requests vector code. No backend implements vector forms, so
	// asking for them is an Unsupported error.
	Vector bool
	// Unit names the compilation unit in traces and errors
	Unit string
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{Peephole: true, Unit: "main"}
}

type backend[Op any, R comparable] struct {
	lower    func([]ir.Node, *regalloc.Allocator[R]) ([]Op, error)
	alloc    func() *regalloc.Allocator[R]
	simplify func([]Op) []Op
	assemble func([]Op) (*mc.Object, error)
}

var (
	rv64Backend = backend[rv64.Op, rv64.Reg]{rv64.Lower, rv64.NewAllocator, rv64.Simplify, rv64.Assemble}
	x64Backend  = backend[x64.Op, x64.Reg]{x64.Lower, x64.NewAllocator, x64.Simplify, x64.Assemble}
)

// Compile translates nodes into machine code for p. Every call owns its
// buffer, labels and allocator, so calls may run in parallel.
func Compile(p engine.Platform, nodes []ir.Node, opts Options) (*mc.Object, error) {
	if opts.Vector {
		host := "absent"
		if engine.HostFeatures().Vector {
			host = "present"
		}
		return nil, mc.Errorf(mc.KindUnsupported, "vector code generation is not available for %s (host vector unit %s)", p.Arch, host)
	}
	unit := opts.Unit
	if unit == "" {
		unit = "main"
	}
	switch p.Arch {
	case engine.ArchRiscv64:
		return run(p.Arch, unit, nodes, opts, rv64Backend)
	case engine.ArchX86_64:
		return run(p.Arch, unit, nodes, opts, x64Backend)
	}
	return nil, mc.Errorf(mc.KindUnsupported, "no code generator for architecture %s", p.Arch)
}

func run[Op any, R comparable](arch engine.Arch, unit string, nodes []ir.Node, opts Options, b backend[Op, R]) (*mc.Object, error) {
	pipeline := mc.NewPipeline(unit)

	if err := pipeline.AdvanceTo(mc.StageLower); err != nil {
		return nil, err
	}
	ops, err := b.lower(nodes, b.alloc())
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", unit, pipeline.Current(), err)
	}

	if opts.Peephole {
		if err := pipeline.AdvanceTo(mc.StagePeephole); err != nil {
			return nil, err
		}
		before := len(ops)
		ops = b.simplify(ops)
		mc.Tracef("peephole: %d -> %d instructions\n", before, len(ops))
	}

	if err := pipeline.AdvanceTo(mc.StageEmit); err != nil {
		return nil, err
	}
	obj, err := b.assemble(ops)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", unit, pipeline.Current(), err)
	}
	if align := arch.InstAlign(); len(obj.Code)%align != 0 {
		return nil, mc.Errorf(mc.KindBuf, "%s: %d bytes is not a whole number of %d-byte %s instructions", unit, len(obj.Code), align, arch)
	}

	if err := pipeline.AdvanceTo(mc.StageComplete); err != nil {
		return nil, err
	}
	return obj, nil
}

// Registers returns the register names the IR text reader accepts for arch
func Registers(arch engine.Arch) (ir.RegisterNames, error) {
	switch arch {
	case engine.ArchRiscv64:
		return rv64.Registers, nil
	case engine.ArchX86_64:
		return x64.Registers, nil
	}
	return nil, mc.Errorf(mc.KindUnsupported, "no registers for architecture %s", arch)
}

// CompileText parses src with the register names of p and compiles it
func CompileText(p engine.Platform, src string, opts Options) (*mc.Object, error) {
	regs, err := Registers(p.Arch)
	if err != nil {
		return nil, err
	}
	prog, err := ir.Parse(src, regs)
	if err != nil {
		return nil, err
	}
	return Compile(p, prog.Nodes, opts)
}
