// Completion: 100% - Register tables complete
package rv64

import (
	"fmt"
	"sort"
)

// Reg is an integer register number, x0 to x31
type Reg uint8

const (
	Zero Reg = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6

	NumRegs = 32
	FP      = S0
)

var abiNames = [NumRegs]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// registersByName accepts both ABI names and xN names
var registersByName = func() map[string]Reg {
	m := map[string]Reg{"fp": FP}
	for i, name := range abiNames {
		m[name] = Reg(i)
		m[fmt.Sprintf("x%d", i)] = Reg(i)
	}
	return m
}()

func (r Reg) Valid() bool {
	return r < NumRegs
}

func (r Reg) String() string {
	if !r.Valid() {
		return fmt.Sprintf("x?%d", uint8(r))
	}
	return abiNames[r]
}

// RegisterByName looks up a register by ABI name ("a0") or number ("x10")
func RegisterByName(name string) (Reg, bool) {
	r, ok := registersByName[name]
	return r, ok
}

type registerNames struct{}

// Registers resolves register names for the IR text reader
var Registers registerNames

func (registerNames) Lookup(name string) (uint32, bool) {
	r, ok := RegisterByName(name)
	return uint32(r), ok
}

func (registerNames) Names() []string {
	names := make([]string, 0, len(registersByName))
	for name := range registersByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
