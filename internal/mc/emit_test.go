package mc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"testing"
)

// toyOp is a minimal instruction set: a one-byte nop, a label definition
// and a 5-byte jump with a rel32 field.
type toyOp struct {
	bind Label
	jump Label
	quad Label
}

type toyISA struct{}

func (toyISA) Name() string { return "toy" }

func (toyISA) Bind(op toyOp) (Label, bool) { return op.bind, op.bind != NoLabel }

func (toyISA) Target(op toyOp) Label {
	if op.quad != NoLabel {
		return op.quad
	}
	return op.jump
}

func (toyISA) Encode(op toyOp, here, target int) ([]byte, error) {
	switch {
	case op.quad != NoLabel:
		b := make([]byte, 8)
		if target >= 0 {
			binary.LittleEndian.PutUint64(b, uint64(target))
		}
		return b, nil
	case op.jump != NoLabel:
		b := []byte{0xE9, 0, 0, 0, 0}
		if target >= 0 {
			binary.LittleEndian.PutUint32(b[1:], uint32(int32(target-(here+5))))
		}
		return b, nil
	}
	return []byte{0x90}, nil
}

func (toyISA) Fixup(op toyOp, here, size int) Reloc {
	if op.quad != NoLabel {
		return Reloc{Kind: RelocAbs64, At: here}
	}
	return Reloc{Kind: RelocRel32, At: here + size - 4, Anchor: here + size}
}

func (toyISA) Patch(field []byte, r Reloc, target int) error {
	return PatchData(field, r, target)
}

func (toyISA) Format(op toyOp) string {
	switch {
	case op.quad != NoLabel:
		return fmt.Sprintf(".quad %s", op.quad)
	case op.jump != NoLabel:
		return fmt.Sprintf("jmp %s", op.jump)
	}
	return "nop"
}

func TestEmitBackwardAndForward(t *testing.T) {
	var g Labels
	top, end := g.New(), g.New()
	ops := []toyOp{
		{bind: top},
		{},
		{jump: end}, // forward, patched later
		{jump: top}, // backward, encoded directly
		{bind: end},
		{},
	}

	obj, err := Emit[toyOp](toyISA{}, ops)
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	expected := []byte{
		0x90,
		0xE9, 0x05, 0x00, 0x00, 0x00, // 6 + 5 = 11 - 6
		0xE9, 0xF5, 0xFF, 0xFF, 0xFF, // 0 - 11 = -11
		0x90,
	}
	if !bytes.Equal(obj.Code, expected) {
		t.Fatalf("Expected % X, got % X", expected, obj.Code)
	}
	if obj.Labels[top] != 0 || obj.Labels[end] != 11 {
		t.Errorf("Unexpected label offsets: %v", obj.Labels)
	}
	if len(obj.Relocs) != 2 {
		t.Fatalf("Expected 2 relocation records, got %d", len(obj.Relocs))
	}
	for _, r := range obj.Relocs {
		if r.Target != obj.Labels[r.Label] {
			t.Errorf("Relocation %s has target %d, expected %d", r, r.Target, obj.Labels[r.Label])
		}
	}
	if len(obj.Listing) != 4 {
		t.Fatalf("Expected 4 listing lines, got %d", len(obj.Listing))
	}
	if obj.Listing[1].Offset != 1 || !bytes.Equal(obj.Listing[1].Bytes, expected[1:6]) {
		t.Errorf("Listing line 1 is %+v", obj.Listing[1])
	}
}

func TestEmitAbs64(t *testing.T) {
	var g Labels
	l := g.New()
	obj, err := Emit[toyOp](toyISA{}, []toyOp{{quad: l}, {}, {bind: l}})
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if got := binary.LittleEndian.Uint64(obj.Code); got != 9 {
		t.Errorf("Expected absolute offset 9, got %d", got)
	}
}

func TestEmitUnboundLabel(t *testing.T) {
	var g Labels
	obj, err := Emit[toyOp](toyISA{}, []toyOp{{jump: g.New()}})
	if !errors.Is(err, ErrReloc) {
		t.Fatalf("Expected relocation error, got %v", err)
	}
	if obj != nil {
		t.Errorf("Expected no output on error")
	}
}

func TestEmitDoubleBind(t *testing.T) {
	var g Labels
	l := g.New()
	_, err := Emit[toyOp](toyISA{}, []toyOp{{bind: l}, {}, {bind: l}})
	if !errors.Is(err, ErrReloc) {
		t.Fatalf("Expected relocation error, got %v", err)
	}
}

func TestEmitTrace(t *testing.T) {
	var out bytes.Buffer
	Verbose, TraceOutput = true, &out
	defer func() {
		Verbose, TraceOutput = false, os.Stderr
	}()

	var g Labels
	l := g.New()
	if _, err := Emit[toyOp](toyISA{}, []toyOp{{jump: l}, {bind: l}}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	for _, want := range []string{"jmp " + l.String(), l.String() + ":"} {
		if !bytes.Contains(out.Bytes(), []byte(want)) {
			t.Errorf("Expected %q in trace:\n%s", want, out.String())
		}
	}

	out.Reset()
	Verbose = false
	Tracef("hidden\n")
	if out.Len() != 0 {
		t.Errorf("Expected no trace output when not verbose, got %q", out.String())
	}
}
