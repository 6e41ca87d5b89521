package rv64

// LP64 calling convention
var (
	ArgRegs   = []Reg{A0, A1, A2, A3, A4, A5, A6, A7}
	RetRegs   = []Reg{A0, A1}
	Preserved = []Reg{S0, S1, S2, S3, S4, S5, S6, S7, S8, S9, S10, S11}

	// ScratchPool is handed out to virtual registers, temporaries first
	ScratchPool = []Reg{T0, T1, T2, T3, T4, T5, T6, A0, A1, A2, A3, A4, A5, A6, A7}
)

const (
	StackPointer  = SP
	FramePointer  = FP
	ReturnAddress = RA
	StackAlign    = 16
)
