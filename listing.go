package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xyproto/mcode/internal/codegen"
	"github.com/xyproto/mcode/internal/engine"
	"github.com/xyproto/mcode/internal/mc"
	"github.com/xyproto/mcode/internal/rv64"
	"github.com/xyproto/mcode/internal/x64"
)

// writeListing prints one row per instruction, with a row for each label
// just before the instruction it is bound to
func writeListing(w io.Writer, obj *mc.Object) {
	byOffset := make(map[int][]mc.Label)
	for l, off := range obj.Labels {
		byOffset[off] = append(byOffset[off], l)
	}
	for _, ls := range byOffset {
		sort.Slice(ls, func(i, j int) bool { return ls[i] < ls[j] })
	}

	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s (%d bytes)", obj.Arch, len(obj.Code)))
	t.AppendHeader(table.Row{"Offset", "Bytes", "Instruction"})
	labelRows := func(off int) {
		for _, l := range byOffset[off] {
			t.AppendRow(table.Row{fmt.Sprintf("%06x", off), "", l.String() + ":"})
		}
		delete(byOffset, off)
	}
	for _, line := range obj.Listing {
		labelRows(line.Offset)
		t.AppendRow(table.Row{fmt.Sprintf("%06x", line.Offset), fmt.Sprintf("% x", line.Bytes), line.Text})
	}
	// a label bound after the last instruction
	labelRows(len(obj.Code))
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d labels", len(obj.Labels)), fmt.Sprintf("%d relocations", len(obj.Relocs))})
	fmt.Fprintln(w, t.Render())
}

func writeABI(w io.Writer, platform engine.Platform, cc codegen.CallingConvention) {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s (%s)", cc.Name(), platform))
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRow(table.Row{"Integer arguments", strings.Join(cc.IntArgs(), ", ")})
	t.AppendRow(table.Row{"Integer returns", strings.Join(cc.IntRets(), ", ")})
	t.AppendRow(table.Row{"Callee-saved", strings.Join(cc.Preserved(), ", ")})
	t.AppendRow(table.Row{"Stack pointer", cc.StackPointer()})
	t.AppendRow(table.Row{"Frame pointer", cc.FramePointer()})
	t.AppendRow(table.Row{"Shadow space", cc.ShadowSpace()})
	t.AppendRow(table.Row{"Stack alignment", cc.StackAlignment()})
	t.AppendRow(table.Row{"Call frame, 1 saved register", codegen.CallFrameSize(cc, 1)})
	fmt.Fprintln(w, t.Render())
}

func writeCaps(w io.Writer, f engine.Features) {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("CPU features (%s)", f.Arch))
	t.AppendHeader(table.Row{"Feature", "Present"})
	for _, feat := range f.List {
		t.AppendRow(table.Row{feat.Name, yesNo(feat.Present)})
	}
	t.AppendFooter(table.Row{"vector unit", yesNo(f.Vector)})
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, "Vector code generation is not supported; scalar code runs on every host.")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func writeRegs(w io.Writer, arch engine.Arch) error {
	t := table.NewWriter()
	switch arch {
	case engine.ArchX86_64:
		t.SetTitle("x86-64 general purpose registers")
		t.AppendHeader(table.Row{"#", "64", "32", "16", "8"})
		for r := x64.Reg(0); r < x64.NumRegs; r++ {
			t.AppendRow(table.Row{int(r), r.Name(x64.W64), r.Name(x64.W32), r.Name(x64.W16), r.Name(x64.W8)})
		}
	case engine.ArchRiscv64:
		t.SetTitle("RV64 integer registers")
		t.AppendHeader(table.Row{"#", "ABI", "Name"})
		for r := rv64.Reg(0); r < rv64.NumRegs; r++ {
			t.AppendRow(table.Row{int(r), r.String(), fmt.Sprintf("x%d", int(r))})
		}
	default:
		return mc.Errorf(mc.KindUnsupported, "no registers for architecture %s", arch)
	}
	fmt.Fprintln(w, t.Render())
	return nil
}
