package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xyproto/mcode/internal/engine"
	"github.com/xyproto/mcode/internal/mc"
)

// Textual form, one node per line:
//
//	loop:                   label definition
//	const a0, 42            const.W dst, imm
//	add a0, a0, a1          add.W / sub.W dst, src1, src2
//	addi a0, a0, -8         addi.W dst, src, imm
//	store a0, 8(sp)         store.W src, off(base)
//	load.8u t0, 0(a0)       load.W[u] dst, off(base)
//	la a0, loop             la dst, label
//	jump loop
//	blt a0, a1, loop        beq bne blt bge bltu bgeu
//	ret
//
// Widths default to 64. Registers named vN are virtual. Everything after
// '#' or ';' is a comment.

// RegisterNames resolves architectural register names
type RegisterNames interface {
	Lookup(name string) (uint32, bool)
	Names() []string
}

// Program is the result of parsing
type Program struct {
	Nodes  []Node
	Labels map[string]mc.Label
}

// SyntaxError reports a problem on a specific line of the input
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

type parser struct {
	regs    RegisterNames
	gen     mc.Labels
	labels  map[string]mc.Label
	defined map[string]int // label -> line it was defined on
	used    map[string]int // label -> first line that referenced it
	line    int
}

// Parse reads the textual form of a program
func Parse(src string, regs RegisterNames) (*Program, error) {
	p := &parser{
		regs:    regs,
		labels:  make(map[string]mc.Label),
		defined: make(map[string]int),
		used:    make(map[string]int),
	}
	var nodes []Node
	for i, raw := range strings.Split(src, "\n") {
		p.line = i + 1
		text := raw
		if j := strings.IndexAny(text, "#;"); j >= 0 {
			text = text[:j]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		n, err := p.parseLine(text)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	var undefined *SyntaxError
	for name, line := range p.used {
		if _, ok := p.defined[name]; !ok && (undefined == nil || line < undefined.Line) {
			undefined = &SyntaxError{Line: line, Msg: fmt.Sprintf("undefined label %q", name)}
		}
	}
	if undefined != nil {
		return nil, undefined
	}
	return &Program{Nodes: nodes, Labels: p.labels}, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseLine(text string) (Node, error) {
	if strings.HasSuffix(text, ":") {
		name := strings.TrimSpace(strings.TrimSuffix(text, ":"))
		if !isIdent(name) {
			return nil, p.errorf("invalid label name %q", name)
		}
		if prev, ok := p.defined[name]; ok {
			return nil, p.errorf("label %q already defined on line %d", name, prev)
		}
		p.defined[name] = p.line
		return Label{ID: p.label(name)}, nil
	}

	mnemonic, rest := text, ""
	if j := strings.IndexAny(text, " \t"); j >= 0 {
		mnemonic, rest = text[:j], text[j+1:]
	}
	var args []string
	if rest = strings.TrimSpace(rest); rest != "" {
		for _, a := range strings.Split(rest, ",") {
			args = append(args, strings.TrimSpace(a))
		}
	}

	op, suffix, _ := strings.Cut(strings.ToLower(mnemonic), ".")
	w, unsigned, err := p.parseSuffix(suffix)
	if err != nil {
		return nil, err
	}
	if unsigned && op != "load" {
		return nil, p.errorf("%s does not take an unsigned suffix", op)
	}

	switch op {
	case "const":
		if err := p.arity(op, args, 2); err != nil {
			return nil, err
		}
		dst, err := p.reg(args[0])
		if err != nil {
			return nil, err
		}
		imm, err := p.imm(args[1])
		if err != nil {
			return nil, err
		}
		return Const{Dst: dst, Imm: imm, W: w}, nil

	case "add", "sub":
		if err := p.arity(op, args, 3); err != nil {
			return nil, err
		}
		regs, err := p.regList(args)
		if err != nil {
			return nil, err
		}
		if op == "add" {
			return Add{Dst: regs[0], Src1: regs[1], Src2: regs[2], W: w}, nil
		}
		return Sub{Dst: regs[0], Src1: regs[1], Src2: regs[2], W: w}, nil

	case "addi":
		if err := p.arity(op, args, 3); err != nil {
			return nil, err
		}
		regs, err := p.regList(args[:2])
		if err != nil {
			return nil, err
		}
		imm, err := p.imm(args[2])
		if err != nil {
			return nil, err
		}
		return AddImm{Dst: regs[0], Src: regs[1], Imm: imm, W: w}, nil

	case "store", "load":
		if err := p.arity(op, args, 2); err != nil {
			return nil, err
		}
		r, err := p.reg(args[0])
		if err != nil {
			return nil, err
		}
		off, base, err := p.mem(args[1])
		if err != nil {
			return nil, err
		}
		if op == "store" {
			return Store{Src: r, Base: base, Off: off, W: w}, nil
		}
		return Load{Dst: r, Base: base, Off: off, W: w, Unsigned: unsigned}, nil

	case "la":
		if err := p.arity(op, args, 2); err != nil {
			return nil, err
		}
		dst, err := p.reg(args[0])
		if err != nil {
			return nil, err
		}
		l, err := p.ref(args[1])
		if err != nil {
			return nil, err
		}
		return LoadAddr{Dst: dst, Target: l}, nil

	case "jump", "j":
		if err := p.arity(op, args, 1); err != nil {
			return nil, err
		}
		l, err := p.ref(args[0])
		if err != nil {
			return nil, err
		}
		return Jump{Target: l}, nil

	case "ret":
		if err := p.arity(op, args, 0); err != nil {
			return nil, err
		}
		return Return{}, nil
	}

	if cond, ok := parseCond(op); ok {
		if err := p.arity(op, args, 3); err != nil {
			return nil, err
		}
		regs, err := p.regList(args[:2])
		if err != nil {
			return nil, err
		}
		l, err := p.ref(args[2])
		if err != nil {
			return nil, err
		}
		return Branch{Cond: cond, A: regs[0], B: regs[1], Target: l}, nil
	}

	return nil, p.errorf("unknown instruction %q", mnemonic)
}

func parseCond(op string) (Cond, bool) {
	if !strings.HasPrefix(op, "b") {
		return 0, false
	}
	for i, name := range condNames {
		if op[1:] == name {
			return Cond(i), true
		}
	}
	return 0, false
}

func (p *parser) parseSuffix(s string) (Width, bool, error) {
	if s == "" {
		return W64, false, nil
	}
	unsigned := strings.HasSuffix(s, "u")
	n, err := strconv.Atoi(strings.TrimSuffix(s, "u"))
	switch {
	case err != nil:
	case n == 8, n == 16, n == 32, n == 64:
		return Width(n), unsigned, nil
	}
	return 0, false, p.errorf("invalid width suffix %q (expected 8, 16, 32 or 64)", s)
}

func (p *parser) arity(op string, args []string, n int) error {
	if len(args) != n {
		return p.errorf("%s expects %d operands, got %d", op, n, len(args))
	}
	return nil
}

func (p *parser) regList(args []string) ([]Reg, error) {
	regs := make([]Reg, len(args))
	for i, a := range args {
		r, err := p.reg(a)
		if err != nil {
			return nil, err
		}
		regs[i] = r
	}
	return regs, nil
}

func (p *parser) reg(s string) (Reg, error) {
	name := strings.ToLower(s)
	if len(name) > 1 && name[0] == 'v' {
		if n, err := strconv.ParseUint(name[1:], 10, 32); err == nil {
			return Virt(uint32(n)), nil
		}
	}
	if n, ok := p.regs.Lookup(name); ok {
		return Phys(n), nil
	}
	msg := fmt.Sprintf("unknown register %q", s)
	if similar := engine.Suggest(name, p.regs.Names(), 3); len(similar) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(similar, ", "))
	}
	return Reg{}, p.errorf("%s", msg)
}

func (p *parser) imm(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return v, nil
	}
	if v, err := strconv.ParseUint(s, 0, 64); err == nil {
		return int64(v), nil
	}
	return 0, p.errorf("invalid immediate %q", s)
}

// mem parses off(base)
func (p *parser) mem(s string) (int32, Reg, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return 0, Reg{}, p.errorf("invalid memory operand %q (expected offset(base))", s)
	}
	var off int64
	if o := strings.TrimSpace(s[:open]); o != "" {
		v, err := strconv.ParseInt(o, 0, 32)
		if err != nil {
			return 0, Reg{}, p.errorf("invalid offset %q", o)
		}
		off = v
	}
	base, err := p.reg(strings.TrimSpace(s[open+1 : len(s)-1]))
	if err != nil {
		return 0, Reg{}, err
	}
	return int32(off), base, nil
}

func (p *parser) ref(name string) (mc.Label, error) {
	if !isIdent(name) {
		return mc.NoLabel, p.errorf("invalid label name %q", name)
	}
	if _, ok := p.used[name]; !ok {
		p.used[name] = p.line
	}
	return p.label(name), nil
}

func (p *parser) label(name string) mc.Label {
	l, ok := p.labels[name]
	if !ok {
		l = p.gen.New()
		p.labels[name] = l
	}
	return l
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		switch {
		case ch == '_' || ch == '.' || ch == '$':
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
