// Package compiler runs the Fortall pipeline: parse, analyze, lower to
// IL and emit assembly for the configured target.
package compiler

import (
	"bytes"
	"context"
	"fmt"

	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/cil"
	"github.com/fortall-lang/fortallc/pkg/config"
	"github.com/fortall-lang/fortallc/pkg/diag"
	"github.com/fortall-lang/fortallc/pkg/il"
	"github.com/fortall-lang/fortallc/pkg/ilgen"
	"github.com/fortall-lang/fortallc/pkg/mips"
	"github.com/fortall-lang/fortallc/pkg/parser"
	"github.com/fortall-lang/fortallc/pkg/sema"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// Stage is a pipeline step
type Stage int

const (
	StageParse Stage = iota
	StageAnalyze
	StageLower
	StageEmit
)

func (s Stage) String() string {
	switch s {
	case StageParse:
		return "parse"
	case StageAnalyze:
		return "analyze"
	case StageLower:
		return "lower"
	case StageEmit:
		return "emit"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Result holds everything produced up to the last stage run
type Result struct {
	Program *ast.Program
	Info    *sema.Info
	IL      *il.Program
	// Assembly is the emitted text for the configured target
	Assembly []byte
	// Diagnostics are the warnings of a successful compilation
	Diagnostics diag.List
}

// DiagnosticsError reports a source program rejected by the parser or
// the analyzer
type DiagnosticsError struct {
	Stage       Stage
	Diagnostics diag.List
}

func (e *DiagnosticsError) Error() string {
	errs := e.Diagnostics.Errors()
	switch len(errs) {
	case 0:
		return e.Stage.String() + " failed"
	case 1:
		return fmt.Sprintf("%s: %s", e.Stage, errs[0])
	}
	return fmt.Sprintf("%s: %s (and %d more errors)", e.Stage, errs[0], len(errs)-1)
}

// Compile runs every stage on src
func Compile(ctx context.Context, name, src string, cfg config.Config) (*Result, error) {
	return Run(ctx, name, src, cfg, StageEmit)
}

// Run executes the pipeline on src through stage until
func Run(ctx context.Context, name, src string, cfg config.Config, until Stage) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name, "size", len(src), "until", until)
	defer tr.Finish("err", &err)

	res = &Result{}

	prog, parseDiags := parser.Parse(src)
	tr.Printw("parsed", "fields", len(prog.Fields), "functions", len(prog.Functions), "diagnostics", parseDiags.Len())
	res.Program = prog
	if parseDiags.HasErrors() {
		parseDiags.Sort()
		return res, &DiagnosticsError{Stage: StageParse, Diagnostics: parseDiags}
	}
	res.Diagnostics.Append(parseDiags)
	if until == StageParse {
		return res, nil
	}

	var diags diag.List
	info, ok := sema.Analyze(prog, &diags)
	diags.Sort()
	tr.Printw("analyzed", "ok", ok, "diagnostics", diags.Len(), "literals", len(info.Literals))
	res.Info = info
	if !ok {
		return res, &DiagnosticsError{Stage: StageAnalyze, Diagnostics: diags}
	}
	res.Diagnostics.Append(diags)
	if until == StageAnalyze {
		return res, nil
	}

	ilProg, err := ilgen.Generate(prog, info)
	if err != nil {
		return res, errors.Wrap(err, "lower")
	}
	tr.Printw("lowered", "globals", len(ilProg.Globals), "functions", len(ilProg.Functions))
	res.IL = ilProg
	if until == StageLower {
		return res, nil
	}

	asm, err := Emit(ctx, ilProg, cfg)
	if err != nil {
		return res, err
	}
	res.Assembly = asm
	return res, nil
}

// Emit produces assembly text for cfg.Target
func Emit(ctx context.Context, prog *il.Program, cfg config.Config) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch cfg.Target {
	case config.TargetMIPS:
		err = mips.Emit(&buf, prog, cfg.MIPSConfig())
	case config.TargetCIL:
		err = cil.Emit(&buf, prog, cfg.CILConfig())
	default:
		return nil, errors.Wrap(config.ErrInvalid, "unknown target %q", string(cfg.Target))
	}
	if err != nil {
		return nil, errors.Wrap(err, "emit %s", string(cfg.Target))
	}
	tlog.SpanFromContext(ctx).Printw("emitted", "target", cfg.Target, "bytes", buf.Len())
	return buf.Bytes(), nil
}
