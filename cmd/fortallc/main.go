package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/compiler"
	"github.com/fortall-lang/fortallc/pkg/config"
	"github.com/fortall-lang/fortallc/pkg/il"
	"github.com/fortall-lang/fortallc/pkg/toolchain"
	"github.com/spf13/cobra"
	"tlog.app/go/tlog"
)

var version = "0.1.0"

// sourceExt is the conventional extension of Fortall sources
const sourceExt = ".all"

// Debug flags for dumping intermediate representations
var (
	dParse bool
	dIL    bool
	dAsm   bool
)

// Build options
var (
	asmOnly    bool // -S flag
	outputFile string
	configFile string
	verbose    bool
	target     config.Target
)

// runner is replaced in tests to avoid calling real assemblers
var runner toolchain.Runner = toolchain.Exec

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the dump flags that also accept single-dash style
var debugFlagNames = []string{"dparse", "dil", "dasm"}

// normalizeFlags converts single-dash dump flags like -dparse to --dparse
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fortallc [file]",
		Short: "fortallc compiles Fortall programs to MIPS or CIL",
		Long: `fortallc compiles a Fortall source file to MIPS assembly or to
CIL assembly text, then assembles it with clang or ilasm. Intermediate
forms can be dumped with the -d flags.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			filename := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				fmt.Fprintf(errOut, "fortallc: %v\n", err)
				return err
			}

			ctx := context.Background()
			if verbose {
				tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(errOut, tlog.LstdFlags))
				ctx = tlog.ContextWithSpan(ctx, tlog.Root())
			}

			return compileFile(ctx, filename, cfg, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	target = config.TargetMIPS

	// Add debug flags
	rootCmd.Flags().BoolVarP(&dParse, "dparse", "", false, "Dump after parsing")
	rootCmd.Flags().BoolVarP(&dIL, "dil", "", false, "Dump three-address IL")
	rootCmd.Flags().BoolVarP(&dAsm, "dasm", "", false, "Dump assembly")

	// Add build flags
	rootCmd.Flags().BoolVarP(&asmOnly, "assembly", "S", false, "Write assembly and stop")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file")
	rootCmd.Flags().StringVar(&configFile, "config", "", "YAML configuration file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline stages")
	rootCmd.Flags().Var(&target, "target", "Target: mips or cil")

	return rootCmd
}

// loadConfig reads --config and applies flag overrides
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return config.Config{}, err
		}
	}
	if cmd.Flags().Changed("target") {
		cfg.Target = target
	}
	if outputFile != "" {
		cfg.Output = outputFile
	}
	return cfg, nil
}

// compileFile runs the pipeline as far as the flags ask
func compileFile(ctx context.Context, filename string, cfg config.Config, out, errOut io.Writer) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(errOut, "fortallc: error reading %s: %v\n", filename, err)
		return err
	}

	until := compiler.StageEmit
	switch {
	case dParse:
		until = compiler.StageParse
	case dIL:
		until = compiler.StageLower
	}

	res, err := compiler.Run(ctx, filename, string(content), cfg, until)
	if err != nil {
		var de *compiler.DiagnosticsError
		if errors.As(err, &de) {
			de.Diagnostics.Format(errOut, filename)
			return err
		}
		fmt.Fprintf(errOut, "fortallc: %v\n", err)
		return err
	}
	res.Diagnostics.Format(errOut, filename)

	switch {
	case dParse:
		return dump(parsedOutputFilename(filename), out, errOut, func(w io.Writer) {
			ast.NewPrinter(w).PrintProgram(res.Program)
		})
	case dIL:
		return dump(ilOutputFilename(filename), out, errOut, func(w io.Writer) {
			il.NewPrinter(w).PrintProgram(res.IL)
		})
	}

	if dAsm {
		out.Write(res.Assembly)
	}

	asmFile := asmOutputFilename(filename, cfg.Target)
	if asmOnly {
		if cfg.Output != "" {
			asmFile = cfg.Output
		}
		if err := os.WriteFile(asmFile, res.Assembly, 0o644); err != nil {
			fmt.Fprintf(errOut, "fortallc: error creating %s: %v\n", asmFile, err)
			return err
		}
		return nil
	}
	if dAsm {
		return nil
	}

	return assemble(ctx, filename, asmFile, res.Assembly, cfg, errOut)
}

// assemble hands the emitted text to the target toolchain
func assemble(ctx context.Context, filename, asmFile string, asm []byte, cfg config.Config, errOut io.Writer) error {
	var a toolchain.Assembler
	switch cfg.Target {
	case config.TargetCIL:
		a = toolchain.CIL{Ilasm: cfg.CIL.Ilasm, Runner: runner}
	default:
		a = toolchain.MIPS{Clang: cfg.MIPS.Clang, Runner: runner}
	}

	var cache *toolchain.Cache
	if cfg.Cache != "" {
		var err error
		if cache, err = toolchain.OpenCache(cfg.Cache); err != nil {
			fmt.Fprintf(errOut, "fortallc: %v\n", err)
			return err
		}
	}

	exe := cfg.Output
	if exe == "" {
		exe = binaryOutputFilename(filename, cfg.Target)
	}
	if _, err := toolchain.Build(ctx, a, asm, asmFile, exe, cache); err != nil {
		fmt.Fprintf(errOut, "fortallc: %v\n", err)
		return err
	}
	return nil
}

// dump writes a printed form both to file and to out
func dump(file string, out, errOut io.Writer, print func(io.Writer)) error {
	outFile, err := os.Create(file)
	if err != nil {
		fmt.Fprintf(errOut, "fortallc: error creating %s: %v\n", file, err)
		return err
	}
	defer outFile.Close()

	print(outFile)
	print(out)
	return nil
}

func trimSource(filename string) string {
	return strings.TrimSuffix(filename, sourceExt)
}

// parsedOutputFilename returns the output filename for -dparse
// input.all -> input.parsed.all
func parsedOutputFilename(filename string) string {
	return trimSource(filename) + ".parsed" + sourceExt
}

// ilOutputFilename returns the output filename for -dil
func ilOutputFilename(filename string) string {
	return trimSource(filename) + ".tac"
}

// asmOutputFilename returns the assembly file for the target
func asmOutputFilename(filename string, t config.Target) string {
	if t == config.TargetCIL {
		return trimSource(filename) + ".il"
	}
	return trimSource(filename) + ".s"
}

// binaryOutputFilename returns the default artifact for the target
func binaryOutputFilename(filename string, t config.Target) string {
	if t == config.TargetCIL {
		return trimSource(filename) + ".exe"
	}
	if base := trimSource(filename); base != filename {
		return base
	}
	return filename + ".out"
}
