// Completion: 100% - Entry point complete

// Command mcode compiles a small register-level IR to x86-64 and RISC-V 64
// machine code.
package main

import (
	"bufio"
	"os"

	"github.com/tebeka/atexit"
)

func main() {
	stdout := bufio.NewWriter(os.Stdout)
	atexit.Register(func() {
		stdout.Flush()
	})

	ctx := &CommandContext{
		Config: loadConfig(),
		Stdin:  os.Stdin,
		Stdout: stdout,
		Stderr: os.Stderr,
	}
	atexit.Exit(RunCLI(ctx, os.Args[1:]))
}
