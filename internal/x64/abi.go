package x64

// System V AMD64 (Linux, macOS, BSD)
var (
	SysVArgRegs   = []Reg{RDI, RSI, RDX, RCX, R8, R9}
	SysVRetRegs   = []Reg{RAX, RDX}
	SysVPreserved = []Reg{RBX, RBP, R12, R13, R14, R15}
)

// Microsoft x64 (Windows)
var (
	WinArgRegs   = []Reg{RCX, RDX, R8, R9}
	WinRetRegs   = []Reg{RAX}
	WinPreserved = []Reg{RBX, RBP, RDI, RSI, R12, R13, R14, R15}
)

// ScratchPool is handed out to virtual registers. These are caller-saved
// under System V.
var ScratchPool = []Reg{RAX, RCX, RDX, RSI, RDI, R8, R9, R10, R11}

const (
	StackPointer   = RSP
	FramePointer   = RBP
	StackAlign     = 16
	WinShadowSpace = 32
)
