// Completion: 100% - CLI interface complete, all subcommands working
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xyproto/mcode/internal/codegen"
	"github.com/xyproto/mcode/internal/engine"
	"github.com/xyproto/mcode/internal/mc"
)

// cli.go - Go-like command line interface with subcommands:
// - mcode build <file> (compile IR text to machine code)
// - mcode abi (show the calling convention of the target)
// - mcode caps (show host CPU features)
// - mcode regs (show register names of the target)
// - mcode version, mcode help

const versionString = "mcode 0.3.0"

// errUsage is returned after a usage message has been printed
var errUsage = errors.New("usage")

// CommandContext holds the execution context for a CLI command
type CommandContext struct {
	Config Config
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx *CommandContext, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"build", "Compile an IR text file to machine code", cmdBuild},
		{"abi", "Show the calling convention of the target", cmdABI},
		{"caps", "Show the CPU features of this machine", cmdCaps},
		{"regs", "Show the register names of the target", cmdRegs},
		{"version", "Show version information", cmdVersion},
		{"help", "Show this help message", cmdHelp},
	}
}

// RunCLI runs the command named by args[0] and returns the exit code
func RunCLI(ctx *CommandContext, args []string) int {
	if len(args) == 0 {
		cmdHelp(ctx, nil)
		return 2
	}

	name := args[0]
	switch name {
	case "-h", "--help":
		name = "help"
	case "-V", "--version":
		name = "version"
	}

	for _, c := range commands {
		if c.name == name {
			err := c.run(ctx, args[1:])
			switch {
			case err == nil:
				return 0
			case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
				return 2
			}
			fmt.Fprintf(ctx.Stderr, "error: %v\n", err)
			return 1
		}
	}

	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}
	msg := fmt.Sprintf("unknown command: %s", name)
	if similar := engine.Suggest(name, names, 3); len(similar) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(similar, ", "))
	}
	fmt.Fprintf(ctx.Stderr, "error: %s\n\nRun 'mcode help' for usage information\n", msg)
	return 2
}

// targetFlags registers the flags every target-dependent command takes
func targetFlags(ctx *CommandContext, fs *flag.FlagSet) (arch, osName *string) {
	arch = fs.String("arch", ctx.Config.Arch, "target architecture (amd64, riscv64)")
	osName = fs.String("os", ctx.Config.OS, "target OS (linux, darwin, freebsd, windows)")
	return arch, osName
}

func newFlagSet(ctx *CommandContext, name string) *flag.FlagSet {
	fs := flag.NewFlagSet("mcode "+name, flag.ContinueOnError)
	fs.SetOutput(ctx.Stderr)
	return fs
}

// parseFlags reports bad flags as usage errors; the flag package has already
// printed the message
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return err
}

// cmdBuild compiles an IR text file. The code is written raw to -o, or shown
// as a hex dump or listing.
//
// NOTE: flag parsing stops at the first non-flag argument, so flags come
// before the file name: mcode build -arch riscv64 prog.ir
func cmdBuild(ctx *CommandContext, args []string) error {
	fs := newFlagSet(ctx, "build")
	arch, osName := targetFlags(ctx, fs)
	output := fs.String("o", "", "write the raw machine code to this file")
	listing := fs.Bool("listing", false, "show an offset/bytes/instruction table")
	verbose := fs.Bool("v", ctx.Config.Verbose, "verbose mode (trace stages, instructions and relocations)")
	noPeephole := fs.Bool("no-peephole", !ctx.Config.Peephole, "disable the peephole pass")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(ctx.Stderr, "usage: mcode build [flags] <file.ir | ->")
		fs.PrintDefaults()
		return errUsage
	}

	platform, err := engine.ParsePlatform(*arch, *osName)
	if err != nil {
		return err
	}

	src, err := readSource(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	mc.Verbose = *verbose
	if mc.Verbose {
		mc.TraceOutput = ctx.Stderr
		fmt.Fprintf(ctx.Stderr, "Compiling %s for %s\n", fs.Arg(0), platform.FullString())
	}

	opts := codegen.DefaultOptions()
	opts.Peephole = !*noPeephole
	opts.Unit = fs.Arg(0)
	obj, err := codegen.CompileText(platform, src, opts)
	if err != nil {
		return err
	}

	switch {
	case *output != "":
		if err := os.WriteFile(*output, obj.Code, 0o644); err != nil {
			return fmt.Errorf("failed to write output: %v", err)
		}
		if mc.Verbose {
			fmt.Fprintf(ctx.Stderr, "Wrote %d bytes to %s\n", len(obj.Code), *output)
		}
		if *listing {
			writeListing(ctx.Stdout, obj)
		}
	case *listing:
		writeListing(ctx.Stdout, obj)
	default:
		writeHex(ctx.Stdout, obj.Code)
	}
	return nil
}

func readSource(ctx *CommandContext, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(ctx.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %v", name, err)
	}
	return string(data), nil
}

// writeHex prints code 16 bytes per line
func writeHex(w io.Writer, code []byte) {
	for off := 0; off < len(code); off += 16 {
		end := min(off+16, len(code))
		fmt.Fprintf(w, "%08x  % x\n", off, code[off:end])
	}
}

func parseTarget(ctx *CommandContext, name string, args []string) (engine.Platform, error) {
	fs := newFlagSet(ctx, name)
	arch, osName := targetFlags(ctx, fs)
	if err := parseFlags(fs, args); err != nil {
		return engine.Platform{}, err
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(ctx.Stderr, "usage: mcode %s [-arch ARCH] [-os OS]\n", name)
		return engine.Platform{}, errUsage
	}
	return engine.ParsePlatform(*arch, *osName)
}

func cmdABI(ctx *CommandContext, args []string) error {
	platform, err := parseTarget(ctx, "abi", args)
	if err != nil {
		return err
	}
	cc := codegen.ConventionFor(platform)
	if cc == nil {
		return mc.Errorf(mc.KindUnsupported, "no calling convention for %s", platform)
	}
	writeABI(ctx.Stdout, platform, cc)
	return nil
}

func cmdCaps(ctx *CommandContext, args []string) error {
	if len(args) != 0 {
		fmt.Fprintln(ctx.Stderr, "usage: mcode caps")
		return errUsage
	}
	writeCaps(ctx.Stdout, engine.HostFeatures())
	return nil
}

func cmdRegs(ctx *CommandContext, args []string) error {
	platform, err := parseTarget(ctx, "regs", args)
	if err != nil {
		return err
	}
	return writeRegs(ctx.Stdout, platform.Arch)
}

func cmdVersion(ctx *CommandContext, args []string) error {
	fmt.Fprintln(ctx.Stdout, versionString)
	return nil
}

func cmdHelp(ctx *CommandContext, args []string) error {
	fmt.Fprintf(ctx.Stdout, `%s - machine code generator for x86-64 and RISC-V 64

USAGE:
    mcode <command> [flags] [arguments]

COMMANDS:
`, versionString)
	for _, c := range commands {
		fmt.Fprintf(ctx.Stdout, "    %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprint(ctx.Stdout, `
FLAGS (build, abi, regs):
    -arch <arch>      Target architecture: amd64, riscv64 (env: MCODE_ARCH)
    -os <os>          Target OS: linux, darwin, freebsd, windows (env: MCODE_OS)

FLAGS (build):
    -o <file>         Write the raw machine code to a file
    -listing          Show an offset/bytes/instruction table
    -v                Verbose mode (env: MCODE_VERBOSE)
    -no-peephole      Disable the peephole pass (env: MCODE_PEEPHOLE=0)

EXAMPLES:
    mcode build -arch riscv64 -listing countdown.ir
    printf 'const a0, 42\nret\n' | mcode build -arch riscv64 -
    mcode abi -arch amd64 -os windows
`)
	return nil
}
