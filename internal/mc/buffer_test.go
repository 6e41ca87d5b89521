package mc

import (
	"errors"
	"testing"
)

func TestBufferLabels(t *testing.T) {
	b := NewBuffer("test", 0)
	if b.LabelOffset(3) != -1 {
		t.Errorf("Expected unbound label to report -1")
	}
	b.Write([]byte{1, 2, 3})
	if err := b.Bind(3); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if off := b.LabelOffset(3); off != 3 {
		t.Errorf("Expected offset 3, got %d", off)
	}
	if b.LabelOffset(2) != -1 {
		t.Errorf("Expected label 2 to stay unbound")
	}
	if err := b.Bind(3); !errors.Is(err, ErrReloc) {
		t.Errorf("Expected relocation error on rebind, got %v", err)
	}
	if err := b.Bind(NoLabel); !errors.Is(err, ErrReloc) {
		t.Errorf("Expected relocation error binding NoLabel, got %v", err)
	}
}

func TestBufferSparseLabels(t *testing.T) {
	b := NewBuffer("test", 0)
	far := Label(1 << 31)
	b.Write([]byte{0x90})
	if err := b.Bind(far); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if err := b.Bind(^Label(0)); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	labels := b.Labels()
	if len(labels) != 2 || labels[far] != 1 {
		t.Errorf("Expected two labels with %s at 1, got %v", far, labels)
	}
	labels[far] = 99
	if b.LabelOffset(far) != 1 {
		t.Errorf("Expected Labels to return a copy")
	}
}

func TestBufferField(t *testing.T) {
	b := NewBuffer("test", 0)
	b.Write([]byte{0, 0, 0, 0, 0, 0})

	tests := []struct {
		name string
		off  int
		n    int
		ok   bool
	}{
		{"start", 0, 4, true},
		{"end", 2, 4, true},
		{"past end", 3, 4, false},
		{"negative", -1, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Field(tt.off, tt.n)
			if tt.ok && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrBuf) {
				t.Errorf("Expected buffer error, got %v", err)
			}
		})
	}
}

func TestBufferResolveOutOfRange(t *testing.T) {
	b := NewBuffer("test", 0)
	b.Write([]byte{0xE9, 0, 0, 0, 0})
	b.Bind(1)
	b.AddReloc(Reloc{Kind: RelocRel32, At: 3, Anchor: 5, Label: 1})
	_, err := b.Resolve(PatchData)
	if !errors.Is(err, ErrBuf) {
		t.Fatalf("Expected buffer error, got %v", err)
	}
}

func TestBufferCommit(t *testing.T) {
	b := NewBuffer("test", 0)
	b.Write([]byte{0xC3})
	code := b.Commit()
	if len(code) != 1 || code[0] != 0xC3 {
		t.Fatalf("Unexpected committed bytes % X", code)
	}
	if !b.IsCommitted() {
		t.Errorf("Expected buffer to be committed")
	}
	if _, err := b.Write([]byte{0x90}); !errors.Is(err, ErrBuf) {
		t.Errorf("Expected buffer error after commit, got %v", err)
	}
	if _, err := b.Field(0, 1); !errors.Is(err, ErrBuf) {
		t.Errorf("Expected buffer error patching after commit, got %v", err)
	}
	if err := b.Bind(1); !errors.Is(err, ErrBuf) {
		t.Errorf("Expected buffer error binding after commit, got %v", err)
	}
}

func TestPatchRel32Range(t *testing.T) {
	field := make([]byte, 4)
	r := Reloc{Kind: RelocRel32, Anchor: 0}
	if err := PatchData(field, r, 1<<31); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected invalid error, got %v", err)
	}
	if err := PatchData(field, Reloc{Kind: RelocHi20}, 0); !errors.Is(err, ErrReloc) {
		t.Errorf("Expected relocation error for HI20, got %v", err)
	}
}
