package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// Expectations are checks against emitted assembly
type Expectations struct {
	Expect       []string `yaml:"expect"`        // Strings that must appear in output
	ExpectOrder  []string `yaml:"expect_order"`  // Strings that must appear in this order
	ExpectUnique []string `yaml:"expect_unique"` // Strings that must appear exactly once
	ExpectNot    []string `yaml:"expect_not"`    // Strings that must NOT appear in output
}

// E2ETestSpec represents a single end-to-end test case
type E2ETestSpec struct {
	Name  string        `yaml:"name"`
	Input string        `yaml:"input"`
	MIPS  *Expectations `yaml:"mips"`
	CIL   *Expectations `yaml:"cil"`
	Skip  string        `yaml:"skip,omitempty"`
}

// E2ETestFile represents the e2e.yaml file structure
type E2ETestFile struct {
	Tests []E2ETestSpec `yaml:"tests"`
}

func loadE2E(t *testing.T) E2ETestFile {
	t.Helper()
	data, err := os.ReadFile("../../testdata/e2e.yaml")
	if err != nil {
		t.Fatalf("failed to read e2e.yaml: %v", err)
	}
	var f E2ETestFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		t.Fatalf("failed to parse e2e.yaml: %v", err)
	}
	return f
}

func checkExpectations(t *testing.T, output string, exp *Expectations) {
	t.Helper()
	for _, s := range exp.Expect {
		if !strings.Contains(output, s) {
			t.Errorf("output missing %q", s)
		}
	}
	for _, s := range exp.ExpectNot {
		if strings.Contains(output, s) {
			t.Errorf("output unexpectedly contains %q", s)
		}
	}
	for _, s := range exp.ExpectUnique {
		if n := strings.Count(output, s); n != 1 {
			t.Errorf("%q appears %d times, want once", s, n)
		}
	}
	rest := output
	for _, s := range exp.ExpectOrder {
		i := strings.Index(rest, s)
		if i < 0 {
			t.Errorf("%q missing or out of order", s)
			return
		}
		rest = rest[i+len(s):]
	}
	if t.Failed() {
		t.Logf("output:\n%s", output)
	}
}

func TestE2EAssembly(t *testing.T) {
	for _, tc := range loadE2E(t).Tests {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Skip != "" {
				t.Skip(tc.Skip)
			}
			testFile := writeSource(t, tc.Input)

			targets := []struct {
				name string
				exp  *Expectations
			}{{"mips", tc.MIPS}, {"cil", tc.CIL}}
			for _, target := range targets {
				if target.exp == nil {
					continue
				}
				t.Run(target.name, func(t *testing.T) {
					out, errOut, err := execute(t, "--dasm", "--target", target.name, testFile)
					if err != nil {
						t.Fatalf("fortallc failed: %v\nStderr: %s", err, errOut)
					}
					checkExpectations(t, out, target.exp)
				})
			}
		})
	}
}

// TestE2ELinkMIPS links each program with the real toolchain when clang
// and lld are installed
func TestE2ELinkMIPS(t *testing.T) {
	if _, err := exec.LookPath("clang"); err != nil {
		t.Skip("clang not found")
	}
	if _, err := exec.LookPath("ld.lld"); err != nil {
		t.Skip("ld.lld not found")
	}

	for _, tc := range loadE2E(t).Tests {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Skip != "" {
				t.Skip(tc.Skip)
			}
			testFile := writeSource(t, tc.Input)
			exe := filepath.Join(filepath.Dir(testFile), "prog")

			if _, errOut, err := execute(t, "-o", exe, testFile); err != nil {
				t.Fatalf("fortallc failed: %v\nStderr: %s", err, errOut)
			}
			if _, err := os.Stat(exe); err != nil {
				t.Errorf("executable not produced: %v", err)
			}
		})
	}
}
