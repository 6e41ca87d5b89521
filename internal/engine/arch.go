// Completion: 100% - Target description complete
package engine

import (
	"fmt"
	"runtime"
	"strings"
)

// Arch is a target instruction set
type Arch int

const (
	ArchUnknown Arch = iota
	ArchX86_64
	ArchRiscv64
)

type archInfo struct {
	name      string
	goarch    string
	aliases   []string
	wordSize  int
	instAlign int // every instruction starts at a multiple of this
}

var archs = map[Arch]archInfo{
	ArchX86_64:  {"x86_64", "amd64", []string{"x86-64", "x64"}, 8, 1},
	ArchRiscv64: {"riscv64", "riscv64", []string{"riscv", "rv64"}, 8, 4},
}

func (a Arch) String() string {
	if info, ok := archs[a]; ok {
		return info.name
	}
	return "unknown"
}

// GOARCH returns the Go name of the architecture, as accepted by -arch
func (a Arch) GOARCH() string {
	return archs[a].goarch
}

// WordSize is the size of a general purpose register in bytes
func (a Arch) WordSize() int {
	return archs[a].wordSize
}

// InstAlign is the alignment of every instruction. Code for an architecture
// with fixed-width instructions is always a whole number of words.
func (a Arch) InstAlign() int {
	return archs[a].instAlign
}

// ParseArch parses an architecture name. GOARCH values, the canonical names
// and the common abbreviations are accepted.
func ParseArch(s string) (Arch, error) {
	s = strings.ToLower(s)
	var known []string
	for a := ArchX86_64; a <= ArchRiscv64; a++ {
		info := archs[a]
		if s == info.name || s == info.goarch {
			return a, nil
		}
		for _, alias := range info.aliases {
			if s == alias {
				return a, nil
			}
		}
		known = append(known, info.goarch)
	}
	msg := fmt.Sprintf("unsupported architecture: %s (supported: %s)", s, strings.Join(known, ", "))
	if similar := Suggest(s, known, 1); len(similar) > 0 {
		msg += fmt.Sprintf(", did you mean %s?", similar[0])
	}
	return ArchUnknown, fmt.Errorf("%s", msg)
}

// OS only matters for choosing a calling convention
type OS int

const (
	OSLinux OS = iota
	OSDarwin
	OSFreeBSD
	OSWindows
)

var osNames = [...]string{
	OSLinux:   "linux",
	OSDarwin:  "darwin",
	OSFreeBSD: "freebsd",
	OSWindows: "windows",
}

func (o OS) String() string {
	if o < 0 || int(o) >= len(osNames) {
		return "unknown"
	}
	return osNames[o]
}

// ParseOS parses an OS string (like GOOS values)
func ParseOS(s string) (OS, error) {
	switch s = strings.ToLower(s); s {
	case "macos":
		return OSDarwin, nil
	case "win":
		return OSWindows, nil
	}
	for o, name := range osNames {
		if s == name {
			return OS(o), nil
		}
	}
	return 0, fmt.Errorf("unsupported OS: %s (supported: %s)", s, strings.Join(osNames[:], ", "))
}

// Platform is a target architecture and OS
type Platform struct {
	Arch Arch
	OS   OS
}

// String returns a human-readable platform string
func (p Platform) String() string {
	return fmt.Sprintf("%s-%s", p.Arch, p.OS)
}

// FullString returns a detailed platform string
func (p Platform) FullString() string {
	return fmt.Sprintf("%s on %s", p.Arch, p.OS)
}

// ParsePlatform parses an architecture and an OS name
func ParsePlatform(arch, os string) (Platform, error) {
	a, err := ParseArch(arch)
	if err != nil {
		return Platform{}, err
	}
	o, err := ParseOS(os)
	if err != nil {
		return Platform{}, err
	}
	return Platform{Arch: a, OS: o}, nil
}

// HostArch returns the GOARCH of the running program
func HostArch() string {
	return runtime.GOARCH
}

// HostOS returns the GOOS of the running program
func HostOS() string {
	return runtime.GOOS
}
