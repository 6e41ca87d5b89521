package mc

import (
	"fmt"
	"strings"
)

// ISA adapts one architecture's instruction set to the emitter
type ISA[Op any] interface {
	// Name is used for buffer names and traces
	Name() string

	// Bind reports the label op defines, if op is a label definition.
	// Label definitions produce no bytes.
	Bind(op Op) (Label, bool)

	// Target returns the label op refers to, or NoLabel
	Target(op Op) Label

	// Encode returns the bytes for op placed at offset here. target is the
	// offset of the label op refers to, or -1 if that label is not bound
	// yet, in which case the field is left for Patch.
	Encode(op Op, here, target int) ([]byte, error)

	// Fixup describes the field of the size bytes encoded for op at here
	// that depends on its target label.
	Fixup(op Op, here, size int) Reloc

	// Patch rewrites field, which starts at r.At and spans r.Kind.Size()
	// bytes, so that it refers to target.
	Patch(field []byte, r Reloc, target int) error

	// Format renders op as assembly text
	Format(op Op) string
}

// Line is one entry of an object's listing
type Line struct {
	Offset int
	Bytes  []byte
	Text   string
}

// Object is the result of emitting one compilation unit
type Object struct {
	Arch    string
	Code    []byte
	Labels  map[Label]int
	Relocs  []Reloc // every label reference, with Target filled in
	Listing []Line
}

// String renders the listing
func (o *Object) String() string {
	var sb strings.Builder
	for _, line := range o.Listing {
		fmt.Fprintf(&sb, "%6x  %-24x %s\n", line.Offset, line.Bytes, line.Text)
	}
	return sb.String()
}

// Emit encodes ops in order. References to labels that are already bound are
// encoded directly; the rest are recorded and patched after the last op.
// The first error aborts the unit and no bytes are returned.
func Emit[Op any](isa ISA[Op], ops []Op) (*Object, error) {
	buf := NewBuffer(isa.Name(), len(ops)*4)
	var (
		relocs  []Reloc
		listing []Line
		sizes   []int
	)

	for i, op := range ops {
		if l, ok := isa.Bind(op); ok {
			if err := buf.Bind(l); err != nil {
				return nil, err
			}
			continue
		}

		here := buf.Len()
		label := isa.Target(op)
		target := -1
		if label != NoLabel {
			target = buf.LabelOffset(label)
		}

		code, err := isa.Encode(op, here, target)
		if err != nil {
			return nil, fmt.Errorf("%s op %d (%s): %w", isa.Name(), i, isa.Format(op), err)
		}
		if _, err := buf.Write(code); err != nil {
			return nil, err
		}
		Tracef("%-32s %x\n", isa.Format(op)+":", code)

		if label != NoLabel {
			r := isa.Fixup(op, here, len(code))
			r.Label = label
			if target < 0 {
				if err := buf.AddReloc(r); err != nil {
					return nil, err
				}
			} else {
				r.Target = target
				relocs = append(relocs, r)
			}
		}

		listing = append(listing, Line{Offset: here, Text: isa.Format(op)})
		sizes = append(sizes, len(code))
	}

	resolved, err := buf.Resolve(isa.Patch)
	if err != nil {
		return nil, err
	}
	relocs = append(relocs, resolved...)

	labels := buf.Labels()
	code := buf.Commit()
	for i := range listing {
		listing[i].Bytes = code[listing[i].Offset : listing[i].Offset+sizes[i]]
	}

	return &Object{
		Arch:    isa.Name(),
		Code:    code,
		Labels:  labels,
		Relocs:  relocs,
		Listing: listing,
	}, nil
}
