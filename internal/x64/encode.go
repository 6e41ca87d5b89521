// Completion: 100% - Instruction encoder complete
package x64

import (
	"encoding/binary"
	"math"

	"github.com/xyproto/mcode/internal/mc"
)

const (
	opsizePrefix = 0x66

	rexBase = 0x40
	rexW    = 0x08 // 64-bit operand size
	rexR    = 0x04 // extends ModRM.reg
	rexX    = 0x02 // extends SIB.index
	rexB    = 0x01 // extends ModRM.rm, SIB.base or the opcode register
)

// byteRex reports whether the 8-bit view of r needs a REX prefix. Without one
// the encodings 4 to 7 select ah, ch, dh and bh.
func byteRex(r Reg) bool {
	return r >= RSP && r <= RDI
}

func pick(w Width, op8, op byte) byte {
	if w == W8 {
		return op8
	}
	return op
}

func scaleBits(s uint8) (uint8, bool) {
	switch s {
	case 1:
		return 0, true
	case 2:
		return 1, true
	case 4:
		return 2, true
	case 8:
		return 3, true
	}
	return 0, false
}

// modRM returns the ModRM byte, with field in its reg bits, followed by any
// SIB and displacement bytes for rm. rex holds the X and B bits rm needs.
func modRM(field uint8, rm Operand) (out []byte, rex uint8, err error) {
	field = (field & 7) << 3
	switch m := rm.(type) {
	case Reg:
		if !m.Valid() {
			return nil, 0, mc.Errorf(mc.KindInvalid, "register %s is not encodable", m)
		}
		if m.ext() {
			rex |= rexB
		}
		return []byte{0xC0 | field | m.low()}, rex, nil
	case Mem:
		return memRM(field, m)
	}
	return nil, 0, mc.Errorf(mc.KindInvalid, "operand %v is neither a register nor memory", rm)
}

func memRM(field uint8, m Mem) (out []byte, rex uint8, err error) {
	hasIndex := m.Index != NoReg
	index := uint8(4) // none
	var ss uint8
	if hasIndex {
		if !m.Index.Valid() {
			return nil, 0, mc.Errorf(mc.KindInvalid, "index register %s is not encodable", m.Index)
		}
		if m.Index == RSP {
			return nil, 0, mc.Errorf(mc.KindInvalid, "rsp cannot be an index register")
		}
		var ok bool
		if ss, ok = scaleBits(m.Scale); !ok {
			return nil, 0, mc.Errorf(mc.KindInvalid, "scale %d is not 1, 2, 4 or 8", m.Scale)
		}
		if m.Index.ext() {
			rex |= rexX
		}
		index = m.Index.low()
	}
	disp32 := binary.LittleEndian.AppendUint32(nil, uint32(m.Disp))

	switch {
	case m.Base == RIP:
		if hasIndex {
			return nil, 0, mc.Errorf(mc.KindInvalid, "rip-relative addressing takes no index")
		}
		return append([]byte{field | 5}, disp32...), rex, nil
	case m.Base == NoReg:
		if !hasIndex && m.Disp == 0 {
			return nil, 0, mc.Errorf(mc.KindInvalid, "memory operand %s has no base, index or displacement", m)
		}
		// mod 00 with SIB base 101 means disp32 and no base
		out = []byte{field | 4, ss<<6 | index<<3 | 5}
		return append(out, disp32...), rex, nil
	case !m.Base.Valid():
		return nil, 0, mc.Errorf(mc.KindInvalid, "base register %s is not encodable", m.Base)
	}

	if m.Base.ext() {
		rex |= rexB
	}
	base := m.Base.low()

	// rbp and r13 have no mod 00 form, that encoding is taken by disp32 and rip
	var mod uint8
	var disp []byte
	switch {
	case m.Disp == 0 && base != 5:
	case m.Disp >= math.MinInt8 && m.Disp <= math.MaxInt8:
		mod = 1
		disp = []byte{byte(int8(m.Disp))}
	default:
		mod = 2
		disp = disp32
	}

	// rm 100 means a SIB byte follows, so rsp and r12 as base need one
	if hasIndex || base == 4 {
		out = []byte{mod<<6 | field | 4, ss<<6 | index<<3 | base}
	} else {
		out = []byte{mod<<6 | field | base}
	}
	return append(out, disp...), rex, nil
}

// assemble lays out [66] [REX] opcode ModRM [SIB] [disp] [imm]
func assemble(w Width, opcode []byte, field, rex uint8, forceRex bool, rm Operand, imm []byte) ([]byte, error) {
	if !w.Valid() {
		return nil, mc.Errorf(mc.KindInvalid, "operand width %d", uint8(w))
	}
	body, rmRex, err := modRM(field, rm)
	if err != nil {
		return nil, err
	}
	rex |= rmRex
	if w == W64 {
		rex |= rexW
	}
	if r, ok := rm.(Reg); ok && w == W8 && byteRex(r) {
		forceRex = true
	}

	out := make([]byte, 0, 2+len(opcode)+len(body)+len(imm))
	if w == W16 {
		out = append(out, opsizePrefix)
	}
	if rex != 0 || forceRex {
		out = append(out, rexBase|rex)
	}
	out = append(out, opcode...)
	out = append(out, body...)
	return append(out, imm...), nil
}

// encodeRM encodes an instruction with a register in the ModRM reg field
func encodeRM(w Width, opcode []byte, reg Reg, rm Operand, imm []byte) ([]byte, error) {
	if !reg.Valid() {
		return nil, mc.Errorf(mc.KindInvalid, "register %s is not encodable", reg)
	}
	var rex uint8
	if reg.ext() {
		rex = rexR
	}
	return assemble(w, opcode, reg.low(), rex, w == W8 && byteRex(reg), rm, imm)
}

// encodeDigit encodes an instruction with an opcode extension in the reg field
func encodeDigit(w Width, opcode []byte, digit uint8, rm Operand, imm []byte) ([]byte, error) {
	return assemble(w, opcode, digit, 0, false, rm, imm)
}

// immBytes encodes v as the immediate of a w-bit operation. 64-bit operations
// take a sign-extended imm32.
func immBytes(w Width, v int64) ([]byte, error) {
	switch w {
	case W8:
		if v < math.MinInt8 || v > math.MaxUint8 {
			break
		}
		return []byte{byte(v)}, nil
	case W16:
		if v < math.MinInt16 || v > math.MaxUint16 {
			break
		}
		return binary.LittleEndian.AppendUint16(nil, uint16(v)), nil
	case W32:
		if v < math.MinInt32 || v > math.MaxUint32 {
			break
		}
		return binary.LittleEndian.AppendUint32(nil, uint32(v)), nil
	case W64:
		if v < math.MinInt32 || v > math.MaxInt32 {
			break
		}
		return binary.LittleEndian.AppendUint32(nil, uint32(v)), nil
	default:
		return nil, mc.Errorf(mc.KindInvalid, "operand width %d", uint8(w))
	}
	return nil, mc.Errorf(mc.KindInvalid, "immediate %d does not fit a %d-bit operation", v, uint8(w))
}

// rel32 fills the trailing displacement of code, which sits at here, with
// the distance to target. An unbound target leaves zeros for the patcher.
func rel32(code []byte, label mc.Label, here, target int) ([]byte, error) {
	if label == mc.NoLabel || target < 0 {
		return code, nil
	}
	r := mc.Reloc{Kind: mc.RelocRel32, Anchor: here + len(code), Label: label}
	if err := mc.PatchData(code[len(code)-4:], r, target); err != nil {
		return nil, err
	}
	return code, nil
}

func branch(opcode []byte, disp int32, label mc.Label, here, target int) ([]byte, error) {
	code := binary.LittleEndian.AppendUint32(opcode, uint32(disp))
	if label != mc.NoLabel {
		binary.LittleEndian.PutUint32(code[len(code)-4:], 0)
	}
	return rel32(code, label, here, target)
}

// short encodes push and pop, which carry the register in the opcode
func short(opcode byte, r Reg) ([]byte, error) {
	if !r.Valid() {
		return nil, mc.Errorf(mc.KindInvalid, "register %s is not encodable", r)
	}
	if r.ext() {
		return []byte{rexBase | rexB, opcode + r.low()}, nil
	}
	return []byte{opcode + r.low()}, nil
}

// Encode returns the bytes of op placed at offset here. target is the offset
// of the label op refers to, or -1 if it is not bound yet; the displacement
// is then left as zeros.
func Encode(op Op, here, target int) ([]byte, error) {
	switch o := op.(type) {
	case Mov:
		return encodeMov(o)
	case MovImm64:
		if !o.Dst.Valid() {
			return nil, mc.Errorf(mc.KindInvalid, "register %s is not encodable", o.Dst)
		}
		rex := byte(rexBase | rexW)
		if o.Dst.ext() {
			rex |= rexB
		}
		v := uint64(o.Imm64)
		if o.Target != mc.NoLabel {
			v = 0
			if target >= 0 {
				v = uint64(target)
			}
		}
		return binary.LittleEndian.AppendUint64([]byte{rex, 0xB8 + o.Dst.low()}, v), nil
	case Movx:
		return encodeMovx(o)
	case Lea:
		src := o.Src
		if o.Target != mc.NoLabel {
			src = Mem{Base: RIP, Index: NoReg, Scale: 1}
		}
		code, err := encodeRM(W64, []byte{0x8D}, o.Dst, src, nil)
		if err != nil {
			return nil, err
		}
		return rel32(code, o.Target, here, target)
	case Arith:
		return encodeArith(o)
	case Test:
		return encodeTest(o)
	case IMul:
		if o.W == W8 {
			return nil, mc.Errorf(mc.KindInvalid, "imul has no 8-bit two-operand form")
		}
		return encodeRM(o.W, []byte{0x0F, 0xAF}, o.Dst, o.Src, nil)
	case Neg:
		return encodeDigit(o.W, []byte{pick(o.W, 0xF6, 0xF7)}, 3, o.Dst, nil)
	case IDiv:
		return encodeDigit(o.W, []byte{pick(o.W, 0xF6, 0xF7)}, 7, o.Src, nil)
	case Cqo:
		return []byte{rexBase | rexW, 0x99}, nil
	case Push:
		return short(0x50, o.Reg)
	case Pop:
		return short(0x58, o.Reg)
	case Call:
		return branch([]byte{0xE8}, o.Rel, o.Target, here, target)
	case Jmp:
		return branch([]byte{0xE9}, o.Rel, o.Target, here, target)
	case Jcc:
		if o.CC > CondG {
			return nil, mc.Errorf(mc.KindInvalid, "condition code %d", uint8(o.CC))
		}
		return branch([]byte{0x0F, 0x80 | byte(o.CC)}, o.Rel, o.Target, here, target)
	case Ret:
		return []byte{0xC3}, nil
	case Syscall:
		return []byte{0x0F, 0x05}, nil
	case Int3:
		return []byte{0xCC}, nil
	case Bind:
		return nil, mc.Errorf(mc.KindUnsupported, "label definition %s has no encoding", o.Label)
	}
	return nil, mc.Errorf(mc.KindUnsupported, "%T cannot be encoded", op)
}

func encodeMov(o Mov) ([]byte, error) {
	switch src := o.Src.(type) {
	case Reg:
		return encodeRM(o.W, []byte{pick(o.W, 0x88, 0x89)}, src, o.Dst, nil)
	case Mem:
		dst, ok := o.Dst.(Reg)
		if !ok {
			return nil, mc.Errorf(mc.KindInvalid, "mov from memory needs a register destination")
		}
		return encodeRM(o.W, []byte{pick(o.W, 0x8A, 0x8B)}, dst, src, nil)
	case Imm8, Imm32:
		v, _ := immValue(src)
		imm, err := immBytes(o.W, v)
		if err != nil {
			return nil, err
		}
		return encodeDigit(o.W, []byte{pick(o.W, 0xC6, 0xC7)}, 0, o.Dst, imm)
	}
	return nil, mc.Errorf(mc.KindInvalid, "mov source %v", o.Src)
}

func encodeMovx(o Movx) ([]byte, error) {
	switch o.W {
	case W8, W16:
		// movzx 0F B6/B7, movsx 0F BE/BF
		op := byte(0xB6)
		if o.Signed {
			op = 0xBE
		}
		if o.W == W16 {
			op++
		}
		return encodeRM(W64, []byte{0x0F, op}, o.Dst, o.Src, nil)
	case W32:
		if o.Signed {
			return encodeRM(W64, []byte{0x63}, o.Dst, o.Src, nil)
		}
		// writing a 32-bit register clears the upper half
		return encodeRM(W32, []byte{0x8B}, o.Dst, o.Src, nil)
	}
	return nil, mc.Errorf(mc.KindInvalid, "cannot extend from %d bits", uint8(o.W))
}

func encodeArith(o Arith) ([]byte, error) {
	switch o.Kind {
	case Add, Or, And, Sub, Xor, Cmp:
	default:
		return nil, mc.Errorf(mc.KindInvalid, "arithmetic kind %d", uint8(o.Kind))
	}
	k := uint8(o.Kind)
	switch src := o.Src.(type) {
	case Reg:
		return encodeRM(o.W, []byte{pick(o.W, k*8, k*8+1)}, src, o.Dst, nil)
	case Mem:
		dst, ok := o.Dst.(Reg)
		if !ok {
			return nil, mc.Errorf(mc.KindInvalid, "%s with two memory operands", o.Kind)
		}
		return encodeRM(o.W, []byte{pick(o.W, k*8+2, k*8+3)}, dst, src, nil)
	case Imm8, Imm32:
		v, _ := immValue(src)
		if o.W != W8 && v >= math.MinInt8 && v <= math.MaxInt8 {
			return encodeDigit(o.W, []byte{0x83}, k, o.Dst, []byte{byte(v)})
		}
		imm, err := immBytes(o.W, v)
		if err != nil {
			return nil, err
		}
		return encodeDigit(o.W, []byte{pick(o.W, 0x80, 0x81)}, k, o.Dst, imm)
	}
	return nil, mc.Errorf(mc.KindInvalid, "%s source %v", o.Kind, o.Src)
}

func encodeTest(o Test) ([]byte, error) {
	switch src := o.Src.(type) {
	case Reg:
		return encodeRM(o.W, []byte{pick(o.W, 0x84, 0x85)}, src, o.Dst, nil)
	case Mem:
		dst, ok := o.Dst.(Reg)
		if !ok {
			return nil, mc.Errorf(mc.KindInvalid, "test with two memory operands")
		}
		return encodeRM(o.W, []byte{pick(o.W, 0x84, 0x85)}, dst, src, nil)
	case Imm8, Imm32:
		v, _ := immValue(src)
		imm, err := immBytes(o.W, v)
		if err != nil {
			return nil, err
		}
		return encodeDigit(o.W, []byte{pick(o.W, 0xF6, 0xF7)}, 0, o.Dst, imm)
	}
	return nil, mc.Errorf(mc.KindInvalid, "test source %v", o.Src)
}
