package compiler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fortall-lang/fortallc/pkg/backend"
	"github.com/fortall-lang/fortallc/pkg/config"
	"github.com/fortall-lang/fortallc/pkg/diag"
	"github.com/stretchr/testify/require"
)

const hello = `
str greeting = "hello";
func twice(int n): int { return n * 2; }
func main() { write(greeting); write(twice(21)); }
`

func TestCompileTargets(t *testing.T) {
	tests := []struct {
		target config.Target
		want   []string
	}{
		{config.TargetMIPS, []string{"__function_main:", "jal\t__function_twice", "__global_greeting__data:"}},
		{config.TargetCIL, []string{".entrypoint", "call int32 FortallProgram.Program::'twice'(int32)", "WriteLine(string)"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.target), func(t *testing.T) {
			cfg := config.Default()
			cfg.Target = tt.target
			res, err := Compile(context.Background(), "hello.fa", hello, cfg)
			require.NoError(t, err)
			asm := string(res.Assembly)
			for _, w := range tt.want {
				if !strings.Contains(asm, w) {
					t.Errorf("assembly missing %q:\n%s", w, asm)
				}
			}
		})
	}
}

func TestDiagnosticsErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		stage Stage
		msg   string
	}{
		{"syntax", "func main( {", StageParse, ""},
		{"no main", "func f() {}", StageAnalyze, "analyze: 0:0 - main function not declared"},
		{"type", "func main() { int x = true; }", StageAnalyze, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(context.Background(), "t.fa", tt.src, config.Default())
			var de *DiagnosticsError
			if !errors.As(err, &de) {
				t.Fatalf("err = %v, want *DiagnosticsError", err)
			}
			if de.Stage != tt.stage {
				t.Errorf("stage = %v, want %v", de.Stage, tt.stage)
			}
			if !de.Diagnostics.HasErrors() {
				t.Errorf("no error diagnostics")
			}
			if tt.msg != "" && de.Error() != tt.msg {
				t.Errorf("Error() = %q, want %q", de.Error(), tt.msg)
			}
		})
	}
}

func TestWarningsDoNotFail(t *testing.T) {
	res, err := Compile(context.Background(), "t.fa", "func main() { return; write(1); }", config.Default())
	require.NoError(t, err)
	if res.Diagnostics.Len() != 1 || res.Diagnostics.All()[0].Severity != diag.Warning {
		t.Errorf("diagnostics = %s, want one warning", res.Diagnostics.String())
	}
}

func TestRunStopsAtStage(t *testing.T) {
	res, err := Run(context.Background(), "t.fa", hello, config.Default(), StageLower)
	require.NoError(t, err)
	if res.IL == nil || res.Info == nil {
		t.Fatalf("missing lowered program")
	}
	if res.Assembly != nil {
		t.Errorf("assembly emitted before the emit stage")
	}

	res, err = Run(context.Background(), "t.fa", hello, config.Default(), StageParse)
	require.NoError(t, err)
	if res.Info != nil {
		t.Errorf("analysis ran for a parse-only request")
	}
}

func TestFaultsAreNotDiagnostics(t *testing.T) {
	cfg := config.Default()
	cfg.MIPS.Registers = []string{"$t0", "$t1"}
	_, err := Compile(context.Background(), "t.fa", "func main() { write(1 + (2 + 3)); }", cfg)
	if !errors.Is(err, backend.ErrRegistersExhausted) {
		t.Fatalf("err = %v, want ErrRegistersExhausted", err)
	}
	var de *DiagnosticsError
	if errors.As(err, &de) {
		t.Errorf("fault reported as diagnostics")
	}
	var f *backend.Fault
	if !errors.As(err, &f) {
		t.Errorf("err = %v, want a *backend.Fault in the chain", err)
	}
}

func TestUnknownTarget(t *testing.T) {
	cfg := config.Default()
	cfg.Target = "arm"
	_, err := Compile(context.Background(), "t.fa", hello, cfg)
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}
