package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const answer = "const a0, 42\nret\n"

func newTestContext(stdin string) (*CommandContext, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	ctx := &CommandContext{
		Config: Config{Arch: "riscv64", OS: "linux", Peephole: true},
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	}
	return ctx, &stdout, &stderr
}

func TestVersionAndHelp(t *testing.T) {
	ctx, stdout, _ := newTestContext("")
	if code := RunCLI(ctx, []string{"version"}); code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if strings.TrimSpace(stdout.String()) != versionString {
		t.Errorf("Expected %q, got %q", versionString, stdout.String())
	}

	ctx, stdout, _ = newTestContext("")
	if code := RunCLI(ctx, []string{"--help"}); code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	for _, name := range []string{"build", "abi", "caps", "regs", "MCODE_ARCH"} {
		if !strings.Contains(stdout.String(), name) {
			t.Errorf("Expected %q in help output", name)
		}
	}

	ctx, _, _ = newTestContext("")
	if code := RunCLI(ctx, nil); code != 2 {
		t.Errorf("Expected exit code 2 without arguments, got %d", code)
	}
}

func TestUnknownCommand(t *testing.T) {
	ctx, _, stderr := newTestContext("")
	if code := RunCLI(ctx, []string{"biuld"}); code != 2 {
		t.Fatalf("Expected exit code 2, got %d", code)
	}
	if !strings.Contains(stderr.String(), "did you mean build") {
		t.Errorf("Expected a suggestion, got %q", stderr.String())
	}
}

func TestBuildFromStdin(t *testing.T) {
	ctx, stdout, stderr := newTestContext(answer)
	if code := RunCLI(ctx, []string{"build", "-"}); code != 0 {
		t.Fatalf("Expected exit code 0, got %d: %s", code, stderr.String())
	}
	// addi a0, zero, 42; jalr zero, 0(ra)
	want := "00000000  13 05 a0 02 67 80 00 00\n"
	if stdout.String() != want {
		t.Errorf("Expected %q, got %q", want, stdout.String())
	}
}

func TestBuildListing(t *testing.T) {
	src := filepath.Join(t.TempDir(), "loop.ir")
	prog := "const v0, 3\nloop:\naddi v0, v0, -1\nbne v0, zero, loop\nret\n"
	if err := os.WriteFile(src, []byte(prog), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, stdout, stderr := newTestContext("")
	if code := RunCLI(ctx, []string{"build", "-listing", src}); code != 0 {
		t.Fatalf("Expected exit code 0, got %d: %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"riscv64", "jalr zero, 0(ra)", "1 labels", "relocations"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in listing:\n%s", want, out)
		}
	}
}

func TestBuildOutputFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "answer.bin")
	ctx, stdout, stderr := newTestContext("const rax, 42\nret\n")
	if code := RunCLI(ctx, []string{"build", "-arch", "amd64", "-o", out, "-"}); code != 0 {
		t.Fatalf("Expected exit code 0, got %d: %s", code, stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("Expected no output on stdout, got %q", stdout.String())
	}
	code, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if len(code) == 0 || code[len(code)-1] != 0xC3 {
		t.Errorf("Expected x86-64 code ending with ret, got % x", code)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		src  string
		code int
		want string
	}{
		{"no file", []string{"build"}, "", 2, "usage: mcode build"},
		{"bad flag", []string{"build", "-bogus", "-"}, "", 2, "bogus"},
		{"bad arch", []string{"build", "-arch", "sparc", "-"}, answer, 1, "sparc"},
		{"missing file", []string{"build", "/nonexistent/prog.ir"}, "", 1, "failed to read"},
		{"syntax", []string{"build", "-"}, "frobnicate a0\n", 1, "line 1"},
		{"regs usage", []string{"regs", "extra"}, "", 2, "usage: mcode regs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _, stderr := newTestContext(tt.src)
			if code := RunCLI(ctx, tt.args); code != tt.code {
				t.Errorf("Expected exit code %d, got %d", tt.code, code)
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Errorf("Expected %q in %q", tt.want, stderr.String())
			}
		})
	}
}

func TestABI(t *testing.T) {
	ctx, stdout, _ := newTestContext("")
	if code := RunCLI(ctx, []string{"abi", "-arch", "amd64", "-os", "windows"}); code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	out := stdout.String()
	for _, want := range []string{"Microsoft x64", "rcx, rdx, r8, r9", "32", "48"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in:\n%s", want, out)
		}
	}

	ctx, stdout, _ = newTestContext("")
	if code := RunCLI(ctx, []string{"abi"}); code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if !strings.Contains(stdout.String(), "RISC-V LP64") {
		t.Errorf("Expected the configured riscv64 convention, got:\n%s", stdout.String())
	}
}

func TestRegs(t *testing.T) {
	ctx, stdout, _ := newTestContext("")
	if code := RunCLI(ctx, []string{"regs", "-arch", "amd64"}); code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	for _, want := range []string{"r12d", "sil", "r15w"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("Expected %q in:\n%s", want, stdout.String())
		}
	}

	ctx, stdout, _ = newTestContext("")
	if code := RunCLI(ctx, []string{"regs"}); code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if !strings.Contains(stdout.String(), "x31") || !strings.Contains(stdout.String(), "t6") {
		t.Errorf("Expected RV64 registers, got:\n%s", stdout.String())
	}
}

func TestCaps(t *testing.T) {
	ctx, stdout, _ := newTestContext("")
	if code := RunCLI(ctx, []string{"caps"}); code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if !strings.Contains(stdout.String(), "not supported") {
		t.Errorf("Expected the vector note, got:\n%s", stdout.String())
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("MCODE_ARCH", "riscv64")
	t.Setenv("MCODE_OS", "freebsd")
	t.Setenv("MCODE_VERBOSE", "1")
	t.Setenv("MCODE_PEEPHOLE", "0")

	cfg := loadConfig()
	if cfg.Arch != "riscv64" || cfg.OS != "freebsd" {
		t.Errorf("Expected riscv64/freebsd, got %s/%s", cfg.Arch, cfg.OS)
	}
	if !cfg.Verbose || cfg.Peephole {
		t.Errorf("Expected verbose without peephole, got %+v", cfg)
	}
	p, err := cfg.Platform()
	if err != nil {
		t.Fatalf("Platform failed: %v", err)
	}
	if p.String() != "riscv64-freebsd" {
		t.Errorf("Expected riscv64-freebsd, got %s", p)
	}
}
