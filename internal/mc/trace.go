package mc

import (
	"fmt"
	"io"
	"os"
)

// Verbose enables tracing of every encoded instruction, label and relocation.
// It is set once before compiling and only read afterwards.
var Verbose bool

// TraceOutput receives trace lines
var TraceOutput io.Writer = os.Stderr

// Tracef writes a trace line when Verbose is set
func Tracef(format string, args ...any) {
	if Verbose {
		fmt.Fprintf(TraceOutput, format, args...)
	}
}
