// Package config loads compiler settings from YAML. Every key is
// optional; missing keys keep their defaults.
//
//	target: mips
//	output: a.out
//	mips:
//	  registers: [$t0, $t1, $t2]
//	  word_size: 4
//	  max_args: 4
//	  string_buffer: 256
//	  clang: clang
//	cil:
//	  assembly_name: FortallProgram
//	  temp_locals: 16
//	  ilasm: ilasm
//	cache: .fortallc-cache
package config

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/fortall-lang/fortallc/pkg/cil"
	"github.com/fortall-lang/fortallc/pkg/mips"
	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
)

// ErrInvalid is returned for settings that cannot drive a compilation
var ErrInvalid = errors.New("invalid configuration")

// Target selects the code emitter
type Target string

const (
	TargetMIPS Target = "mips"
	TargetCIL  Target = "cil"
)

// Targets lists the supported targets
var Targets = []Target{TargetMIPS, TargetCIL}

func (t *Target) String() string {
	return string(*t)
}

// Set implements pflag.Value
func (t *Target) Set(s string) error {
	v := Target(strings.ToLower(s))
	if !v.Valid() {
		return errors.Wrap(ErrInvalid, "unknown target %q", s)
	}
	*t = v
	return nil
}

// Type implements pflag.Value
func (t *Target) Type() string {
	return "target"
}

// Valid reports whether t names a supported emitter
func (t Target) Valid() bool {
	for _, v := range Targets {
		if t == v {
			return true
		}
	}
	return false
}

// MIPS holds MIPS backend settings
type MIPS struct {
	Registers    []string `yaml:"registers"`
	WordSize     int      `yaml:"word_size"`
	MaxArgs      int      `yaml:"max_args"`
	StringBuffer int      `yaml:"string_buffer"`
	Clang        string   `yaml:"clang"`
}

// CIL holds managed backend settings
type CIL struct {
	AssemblyName string `yaml:"assembly_name"`
	TempLocals   int    `yaml:"temp_locals"`
	Ilasm        string `yaml:"ilasm"`
}

// Config is the complete compiler configuration
type Config struct {
	Target Target `yaml:"target"`
	Output string `yaml:"output"`
	MIPS   MIPS   `yaml:"mips"`
	CIL    CIL    `yaml:"cil"`
	// Cache is the build cache file. Empty disables caching.
	Cache string `yaml:"cache"`
}

// Default returns the built-in configuration
func Default() Config {
	m := mips.DefaultConfig()
	c := cil.DefaultConfig()
	return Config{
		Target: TargetMIPS,
		MIPS: MIPS{
			Registers:    m.Registers,
			WordSize:     m.WordSize,
			MaxArgs:      m.MaxArgs,
			StringBuffer: m.StringBuffer,
			Clang:        "clang",
		},
		CIL: CIL{
			AssemblyName: c.AssemblyName,
			TempLocals:   c.TempLocals,
			Ilasm:        "ilasm",
		},
	}
}

// Load reads the YAML file at path over the defaults
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrap(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "decode")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no backend can honor
func (c Config) Validate() error {
	if !c.Target.Valid() {
		return errors.Wrap(ErrInvalid, "unknown target %q", string(c.Target))
	}
	if len(c.MIPS.Registers) == 0 {
		return errors.Wrap(ErrInvalid, "mips.registers is empty")
	}
	seen := make(map[string]bool, len(c.MIPS.Registers))
	for _, r := range c.MIPS.Registers {
		if !strings.HasPrefix(r, "$") {
			return errors.Wrap(ErrInvalid, "mips.registers: %q is not a register", r)
		}
		if seen[r] {
			return errors.Wrap(ErrInvalid, "mips.registers: %s listed twice", r)
		}
		seen[r] = true
	}
	if c.MIPS.WordSize <= 0 {
		return errors.Wrap(ErrInvalid, "mips.word_size must be positive")
	}
	if c.MIPS.MaxArgs <= 0 || c.MIPS.MaxArgs > len(mips.ArgRegs) {
		return errors.Wrap(ErrInvalid, "mips.max_args must be between 1 and %d", len(mips.ArgRegs))
	}
	if c.MIPS.StringBuffer <= 0 {
		return errors.Wrap(ErrInvalid, "mips.string_buffer must be positive")
	}
	if c.CIL.TempLocals <= 0 {
		return errors.Wrap(ErrInvalid, "cil.temp_locals must be positive")
	}
	if c.CIL.AssemblyName == "" {
		return errors.Wrap(ErrInvalid, "cil.assembly_name is empty")
	}
	return nil
}

// MIPSConfig returns the emitter settings for the MIPS target
func (c Config) MIPSConfig() mips.Config {
	return mips.Config{
		Registers:    append([]string(nil), c.MIPS.Registers...),
		WordSize:     c.MIPS.WordSize,
		MaxArgs:      c.MIPS.MaxArgs,
		StringBuffer: c.MIPS.StringBuffer,
	}
}

// CILConfig returns the emitter settings for the CIL target
func (c Config) CILConfig() cil.Config {
	return cil.Config{AssemblyName: c.CIL.AssemblyName, TempLocals: c.CIL.TempLocals}
}
