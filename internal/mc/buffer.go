// Completion: 100% - Code buffer with labels and pending relocations complete
package mc

import "maps"

// Buffer is the append-only byte sink for one compilation unit. It tracks
// label offsets and relocations that are still waiting for their label.
// Once committed, every mutation fails with a Buf error.
type Buffer struct {
	name      string // for debugging
	code      []byte
	labels    map[Label]int // bound labels only
	pending   []Reloc
	committed bool
}

// NewBuffer creates an empty buffer with a name used in traces and errors
func NewBuffer(name string, sizeHint int) *Buffer {
	return &Buffer{
		name:   name,
		code:   make([]byte, 0, sizeHint),
		labels: make(map[Label]int),
	}
}

// Write appends p
func (b *Buffer) Write(p []byte) (int, error) {
	if b.committed {
		return 0, Errorf(KindBuf, "%s: cannot write to committed buffer", b.name)
	}
	b.code = append(b.code, p...)
	return len(p), nil
}

// Len returns the current offset
func (b *Buffer) Len() int {
	return len(b.code)
}

// Bytes returns the buffer contents. The slice must not be modified.
func (b *Buffer) Bytes() []byte {
	return b.code
}

// Bind records that l starts at the current offset
func (b *Buffer) Bind(l Label) error {
	if b.committed {
		return Errorf(KindBuf, "%s: cannot bind %s in committed buffer", b.name, l)
	}
	if l == NoLabel {
		return Errorf(KindReloc, "%s: cannot bind the empty label", b.name)
	}
	if off, ok := b.labels[l]; ok {
		return Errorf(KindReloc, "%s: label %s already bound at %#x", b.name, l, off)
	}
	b.labels[l] = len(b.code)
	Tracef("%s:\n", l)
	return nil
}

// LabelOffset returns the offset of l, or -1 if it is not bound yet
func (b *Buffer) LabelOffset(l Label) int {
	off, ok := b.labels[l]
	if !ok {
		return -1
	}
	return off
}

// Labels returns every bound label
func (b *Buffer) Labels() map[Label]int {
	return maps.Clone(b.labels)
}

// AddReloc queues r until its label is bound
func (b *Buffer) AddReloc(r Reloc) error {
	if b.committed {
		return Errorf(KindBuf, "%s: cannot add relocation to committed buffer", b.name)
	}
	r.Target = -1
	b.pending = append(b.pending, r)
	return nil
}

// Pending returns the number of unresolved relocations
func (b *Buffer) Pending() int {
	return len(b.pending)
}

// Field returns the n bytes at off for in-place patching
func (b *Buffer) Field(off, n int) ([]byte, error) {
	if b.committed {
		return nil, Errorf(KindBuf, "%s: cannot patch committed buffer", b.name)
	}
	if off < 0 || n < 0 || off+n > len(b.code) {
		return nil, Errorf(KindBuf, "%s: patch [%#x, %#x) outside emitted range [0, %#x)", b.name, off, off+n, len(b.code))
	}
	return b.code[off : off+n], nil
}

// Resolve patches every pending relocation exactly once, using patch to
// rewrite the field. The pending list is empty afterwards, and the resolved
// records are returned.
func (b *Buffer) Resolve(patch func(field []byte, r Reloc, target int) error) ([]Reloc, error) {
	resolved := make([]Reloc, 0, len(b.pending))
	for _, r := range b.pending {
		target := b.LabelOffset(r.Label)
		if target < 0 {
			return nil, Errorf(KindReloc, "%s: %s references unbound label %s", b.name, r.Kind, r.Label)
		}
		field, err := b.Field(r.At, r.Kind.Size())
		if err != nil {
			return nil, err
		}
		if err := patch(field, r, target); err != nil {
			return nil, err
		}
		Tracef("reloc %s resolved to %#x\n", r, target)
		r.Target = target
		resolved = append(resolved, r)
	}
	b.pending = nil
	return resolved, nil
}

// Commit marks the buffer as complete and returns its contents
func (b *Buffer) Commit() []byte {
	Tracef("Buffer(%s): committed with %d bytes\n", b.name, len(b.code))
	b.committed = true
	return b.code
}

// IsCommitted returns true if the buffer has been committed
func (b *Buffer) IsCommitted() bool {
	return b.committed
}
