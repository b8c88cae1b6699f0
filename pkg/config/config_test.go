package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
target: cil
mips:
  registers: [$s0, $s1]
cil:
  assembly_name: Demo
`))
	require.NoError(t, err)

	want := Default()
	want.Target = TargetCIL
	want.MIPS.Registers = []string{"$s0", "$s1"}
	want.CIL.AssemblyName = "Demo"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.MIPSConfig().Registers; len(got) != 2 {
		t.Errorf("MIPSConfig registers = %v", got)
	}
	if got := cfg.CILConfig().AssemblyName; got != "Demo" {
		t.Errorf("CILConfig assembly = %q", got)
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("empty config differs from defaults:\n%s", diff)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		invalid bool
	}{
		{"unknown target", "target: x86", true},
		{"empty registers", "mips:\n  registers: []", true},
		{"not a register", "mips:\n  registers: [t0]", true},
		{"duplicate register", "mips:\n  registers: [$t0, $t0]", true},
		{"zero word size", "mips:\n  word_size: 0", true},
		{"too many args", "mips:\n  max_args: 5", true},
		{"negative buffer", "mips:\n  string_buffer: -1", true},
		{"no temp locals", "cil:\n  temp_locals: 0", true},
		{"unknown key", "optimize: true", false},
		{"bad yaml", "target: [", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatalf("Parse(%q) succeeded", tt.input)
			}
			if got := errors.Is(err, ErrInvalid); got != tt.invalid {
				t.Errorf("errors.Is(ErrInvalid) = %v for %v", got, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fortallc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: prog\ncache: build.cache\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	if cfg.Output != "prog" || cfg.Cache != "build.cache" {
		t.Errorf("Load = %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Load of a missing file succeeded")
	}
}

func TestTargetFlag(t *testing.T) {
	target := TargetMIPS
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(&target, "target", "")

	require.NoError(t, fs.Parse([]string{"--target", "CIL"}))
	if target != TargetCIL {
		t.Errorf("target = %s, want cil", target)
	}
	if err := fs.Parse([]string{"--target", "arm"}); err == nil {
		t.Errorf("--target arm accepted")
	}
	if got := fs.Lookup("target").Value.Type(); got != "target" {
		t.Errorf("Type() = %q", got)
	}
}
