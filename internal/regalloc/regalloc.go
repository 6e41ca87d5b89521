// Completion: 100% - Scratch pool allocator complete
package regalloc

// Minimal register allocator for virtual registers.
//
// Virtual ids are mapped onto a fixed pool of scratch registers on first use,
// in pool order. A mapping lives for the whole compilation unit. There is no
// liveness analysis and no spilling: once the pool is exhausted Get fails
// with an RA error and the existing mappings stay as they were.

import (
	"fmt"

	"github.com/xyproto/mcode/internal/mc"
)

// Allocator maps virtual register ids to physical registers of type R
type Allocator[R comparable] struct {
	pool     []R
	next     int // index of the next pool register to hand out
	assigned map[uint32]R
	taken    map[R]bool // handed out or reserved
}

// New creates an allocator over pool. The pool slice is not modified.
func New[R comparable](pool []R) *Allocator[R] {
	return &Allocator[R]{
		pool:     pool,
		assigned: make(map[uint32]R),
		taken:    make(map[R]bool),
	}
}

// Reserve removes r from the pool, typically because the input already uses
// it as a pre-assigned register.
func (a *Allocator[R]) Reserve(r R) {
	a.taken[r] = true
}

// Get returns the register for virtual id v, assigning one on first use
func (a *Allocator[R]) Get(v uint32) (R, error) {
	if r, ok := a.assigned[v]; ok {
		return r, nil
	}
	for a.next < len(a.pool) && a.taken[a.pool[a.next]] {
		a.next++
	}
	if a.next >= len(a.pool) {
		var zero R
		return zero, mc.Errorf(mc.KindRA, "no scratch register left for v%d (%d in use, pool of %d)",
			v, len(a.assigned), len(a.pool))
	}
	r := a.pool[a.next]
	a.next++
	a.taken[r] = true
	a.assigned[v] = r
	mc.Tracef("regalloc: v%d -> %v\n", v, r)
	return r, nil
}

// Lookup returns the register already assigned to v
func (a *Allocator[R]) Lookup(v uint32) (R, bool) {
	r, ok := a.assigned[v]
	return r, ok
}

// Len returns the number of virtual registers assigned so far
func (a *Allocator[R]) Len() int {
	return len(a.assigned)
}

// Free returns the number of pool registers still available
func (a *Allocator[R]) Free() int {
	n := 0
	for _, r := range a.pool[a.next:] {
		if !a.taken[r] {
			n++
		}
	}
	return n
}

func (a *Allocator[R]) String() string {
	return fmt.Sprintf("regalloc(%d assigned, %d free)", len(a.assigned), a.Free())
}
