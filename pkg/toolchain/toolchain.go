// Package toolchain drives the external tools that turn emitted assembly
// into runnable artifacts: clang with lld for MIPS, ilasm for CIL.
package toolchain

import (
	"bytes"
	"context"
	_ "embed"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

//go:embed linker.ld
var linkerScript []byte

//go:embed runtimeconfig.json
var runtimeConfig []byte

// ErrTool is wrapped by failures of an external tool
var ErrTool = errors.New("tool failed")

// Runner executes an external command and returns its combined output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Exec runs commands with os/exec
func Exec(ctx context.Context, name string, args ...string) ([]byte, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Assembler turns an assembly file into an artifact
type Assembler interface {
	// Name identifies the tool configuration in the build cache
	Name() string
	Assemble(ctx context.Context, src, out string) error
}

func run(ctx context.Context, r Runner, name string, args ...string) error {
	if r == nil {
		r = Exec
	}
	tlog.SpanFromContext(ctx).Printw("run tool", "name", name, "args", args)

	out, err := r(ctx, name, args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		return errors.Wrap(ErrTool, "%s: %s", name, msg)
	}
	return nil
}

// MIPS links a freestanding static MIPS executable with clang and lld
type MIPS struct {
	Clang  string
	Runner Runner
}

func (m MIPS) Name() string {
	return "mips:" + m.clang()
}

func (m MIPS) clang() string {
	if m.Clang == "" {
		return "clang"
	}
	return m.Clang
}

// Args returns the clang command line for src and out using the linker
// script at script
func (m MIPS) Args(script, src, out string) []string {
	return []string{
		"--target=mips-linux-gnu", "-O0", "-fno-pic", "-mno-abicalls",
		"-nostartfiles", "-T", script, "-nostdlib", "-fuse-ld=lld", "-static",
		src, "-o", out,
	}
}

func (m MIPS) Assemble(ctx context.Context, src, out string) error {
	f, err := os.CreateTemp("", "fortallc-*.ld")
	if err != nil {
		return errors.Wrap(err, "linker script")
	}
	defer os.Remove(f.Name())

	_, err = f.Write(linkerScript)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(err, "write linker script")
	}

	return run(ctx, m.Runner, m.clang(), m.Args(f.Name(), src, out)...)
}

// CIL assembles a managed executable with ilasm and writes the runtime
// configuration the host needs to start it
type CIL struct {
	Ilasm  string
	Runner Runner
}

func (c CIL) Name() string {
	return "cil:" + c.ilasm()
}

func (c CIL) ilasm() string {
	if c.Ilasm == "" {
		return "ilasm"
	}
	return c.Ilasm
}

// Args returns the ilasm command line for src and out
func (c CIL) Args(src, out string) []string {
	return []string{src, "/EXE", "/OUTPUT=" + out}
}

func (c CIL) Assemble(ctx context.Context, src, out string) error {
	if err := run(ctx, c.Runner, c.ilasm(), c.Args(src, out)...); err != nil {
		return err
	}
	cfg := strings.TrimSuffix(out, filepath.Ext(out)) + ".runtimeconfig.json"
	if err := os.WriteFile(cfg, runtimeConfig, 0o644); err != nil {
		return errors.Wrap(err, "runtime config")
	}
	return nil
}
