package main

import (
	"github.com/xyproto/env/v2"
	"github.com/xyproto/mcode/internal/engine"
)

// Config holds the defaults that flags can override
type Config struct {
	Arch     string
	OS       string
	Verbose  bool
	Peephole bool
}

// loadConfig reads the defaults from the environment:
//
//	MCODE_ARCH      target architecture (default: the host)
//	MCODE_OS        target OS (default: the host)
//	MCODE_VERBOSE   trace every stage and instruction
//	MCODE_PEEPHOLE  set to a false value to disable the peephole pass
func loadConfig() Config {
	peephole := true
	if env.Has("MCODE_PEEPHOLE") {
		peephole = env.Bool("MCODE_PEEPHOLE")
	}
	return Config{
		Arch:     env.Str("MCODE_ARCH", engine.HostArch()),
		OS:       env.Str("MCODE_OS", engine.HostOS()),
		Verbose:  env.Bool("MCODE_VERBOSE"),
		Peephole: peephole,
	}
}

// Platform parses the configured architecture and OS
func (c Config) Platform() (engine.Platform, error) {
	return engine.ParsePlatform(c.Arch, c.OS)
}
