package cil

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/backend"
	"github.com/fortall-lang/fortallc/pkg/diag"
	"github.com/fortall-lang/fortallc/pkg/il"
	"github.com/fortall-lang/fortallc/pkg/ilgen"
	"github.com/fortall-lang/fortallc/pkg/parser"
	"github.com/fortall-lang/fortallc/pkg/sema"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func lower(t *testing.T, src string) *il.Program {
	t.Helper()
	prog, perrs := parser.Parse(src)
	require.True(t, perrs.IsEmpty(), "parse errors: %s", perrs.String())

	var diags diag.List
	info, ok := sema.Analyze(prog, &diags)
	require.True(t, ok, "analysis errors: %s", diags.String())

	out, err := ilgen.Generate(prog, info)
	require.NoError(t, err)
	return out
}

func emit(t *testing.T, src string, cfg Config) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := Emit(&buf, lower(t, src), cfg)
	return buf.String(), err
}

func TestEmitProgram(t *testing.T) {
	got, err := emit(t, `
int g = 5;
func add(int a, int b): int { return a + b; }
func main() { int x = add(g, 2); write(x); write("ok"); }
`, DefaultConfig())
	require.NoError(t, err)

	want := `.assembly extern System.Runtime
{
  .ver 9:0:0:0
}
.assembly extern System.Console
{
  .ver 9:0:0:0
}
.assembly FortallProgram {}
.module FortallProgram.exe

.class public auto ansi abstract sealed beforefieldinit FortallProgram.Program
  extends [System.Runtime]System.Object
{
  .field public static int32 '__global_g'

  .method public hidebysig static int32 'add'(int32 'a', int32 'b') cil managed
  {
    .maxstack 8
    .locals init ([0] int32 '$i0')
    ldarg 0
    ldarg 1
    add
    stloc '$i0'
    ldloc '$i0'
    ret
  }

  .method public hidebysig static void 'main'() cil managed
  {
    .entrypoint
    .maxstack 8
    .locals init ([0] int32 'x', [1] int32 '$i0')
    ldc.i4.2
    stloc '$i0'
    ldsfld int32 FortallProgram.Program::'__global_g'
    ldloc '$i0'
    call int32 FortallProgram.Program::'add'(int32, int32)
    stloc '$i0'
    ldloc '$i0'
    stloc 'x'
    ldloc 'x'
    call void [System.Console]System.Console::WriteLine(int32)
    ldstr "ok"
    call void [System.Console]System.Console::WriteLine(string)
    ret
  }

  .method private hidebysig specialname rtspecialname static void .cctor() cil managed
  {
    .maxstack 8
    ldc.i4.5
    stsfld int32 FortallProgram.Program::'__global_g'
    ret
  }
}
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assembly mismatch (-want +got):\n%s", diff)
	}
}

func TestSnippets(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "string temporaries use the string pool",
			src:  `func s(): str { return "a"; } func main() { str x = s(); write(x); }`,
			want: []string{
				".locals init ([0] string 'x', [1] string '$s0')",
				"    call string FortallProgram.Program::'s'()\n    stloc '$s0'\n    ldloc '$s0'\n    stloc 'x'\n",
				"    ldstr \"a\"\n    ret\n",
			},
		},
		{
			name: "not equal",
			src:  "func main() { int a = 1; write(a != 1); }",
			want: []string{"    ldloc 'a'\n    ldloc '$i0'\n    ceq\n    ldc.i4.0\n    ceq\n"},
		},
		{
			name: "negation",
			src:  "func main() { bool b = false; b = !b; }",
			want: []string{"    ldloc 'b'\n    ldc.i4.0\n    ceq\n    stloc '$i0'\n"},
		},
		{
			name: "bare trailing return yields zero",
			src:  "func f(bool b): int { if (b) { return 1; } else { return 2; } } func main() { write(f(true)); }",
			want: []string{"    ldc.i4.0\n    ret\n  }\n"},
		},
		{
			name: "read int",
			src:  "func main() { int i; read(i); }",
			want: []string{"    call string [System.Console]System.Console::ReadLine()\n    call int32 [System.Runtime]System.Int32::Parse(string)\n    stloc 'i'\n"},
		},
		{
			name: "parameter store",
			src:  "func f(int a) { a = 3; } func main() { f(1); }",
			want: []string{"    ldc.i4.3\n    stloc '$i0'\n    ldloc '$i0'\n    starg 0\n"},
		},
		{
			name: "string field initializer",
			src:  `str name = "x"; bool on = true; func main() { write(name); }`,
			want: []string{
				"  .field public static string '__global_name'\n",
				"    ldstr \"x\"\n    stsfld string FortallProgram.Program::'__global_name'\n",
				"    ldc.i4.1\n    stsfld bool FortallProgram.Program::'__global_on'\n",
				"    ldsfld string FortallProgram.Program::'__global_name'\n",
			},
		},
		{
			name: "loop branches",
			src:  "func main() { int i = 3; while (i > 0) { i = i - 1; } }",
			want: []string{
				"  __function_main$while_start_0:\n",
				"    brtrue __function_main$while_end_0\n",
				"    br __function_main$while_start_0\n",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := emit(t, tt.src, DefaultConfig())
			require.NoError(t, err)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
		})
	}
}

func TestAssemblyName(t *testing.T) {
	got, err := emit(t, "func main() {}", Config{AssemblyName: "Demo", TempLocals: 4})
	require.NoError(t, err)
	for _, w := range []string{".assembly Demo {}\n", ".module Demo.exe\n", "beforefieldinit Demo.Program\n"} {
		if !strings.Contains(got, w) {
			t.Errorf("output missing %q", w)
		}
	}
}

func TestTemporaryPoolExhaustion(t *testing.T) {
	cfg := Config{AssemblyName: "P", TempLocals: 2}

	_, err := emit(t, "func f(int a, int b, int c, int d): int { return (a + b) * (c + d); } func main() { write(f(1, 1, 1, 1) > 0); }", cfg)
	if err == nil {
		t.Fatalf("expected exhaustion from four live call arguments")
	}

	_, err = emit(t, "func f(int a, int b, int c, int d): int { return (a + b) * (c + d); } func main() {}", cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Emit(&buf, lower(t, "func main() { write(1 + (2 + 3)); }"), cfg)
	if !errors.Is(err, backend.ErrRegistersExhausted) {
		t.Fatalf("err = %v, want ErrRegistersExhausted", err)
	}
	var f *backend.Fault
	if !errors.As(err, &f) || f.Function != "main" {
		t.Errorf("fault = %+v, want one in main", f)
	}
	if buf.Len() != 0 {
		t.Errorf("partial output written:\n%s", buf.String())
	}
}

func TestRetypedTemporaryReleased(t *testing.T) {
	lit := il.Address{Name: "string_literal_0", Kind: il.Global, Type: ast.String, Label: "string_literal_0"}
	t0s := il.Address{Name: "t0", Kind: il.Temporary, Type: ast.String}
	t0i := il.Address{Name: "t0", Kind: il.Temporary, Type: ast.Integer}
	t1s := il.Address{Name: "t1", Kind: il.Temporary, Type: ast.String}
	one := ast.IntConst(1)

	prog := &il.Program{
		Globals: []il.GlobalVar{
			{Name: "string_literal_0", Type: ast.String, Init: &ast.Constant{Type: ast.String, Str: "hi"}, Literal: true},
		},
		Functions: []il.Function{
			{
				Name: "size", Label: "__function_size", ReturnType: ast.Integer,
				Params: []il.Param{{Name: "s", Type: ast.String}},
				Code: []il.Instruction{
					il.Load{Dest: t0i, Value: one},
					il.Return{Value: &t0i},
				},
			},
			{
				Name: "main", Label: "__function_main", ReturnType: ast.Void,
				Code: []il.Instruction{
					il.LoadPointer{Dest: t0s, Src: lit},
					il.Call{Dest: t0i, Func: "size", Args: []il.Address{t0s}},
					il.Write{Src: t0i, Type: ast.Integer},
					il.LoadPointer{Dest: t1s, Src: lit},
					il.Write{Src: t1s, Type: ast.String},
					il.Return{},
				},
			},
		},
		MainLabel: "__function_main",
	}

	var buf bytes.Buffer
	err := Emit(&buf, prog, Config{AssemblyName: "P", TempLocals: 1})
	require.NoError(t, err)
	if n := strings.Count(buf.String(), "stloc '$s0'"); n != 2 {
		t.Errorf("$s0 stored %d times, want 2:\n%s", n, buf.String())
	}
}

func TestLdcForms(t *testing.T) {
	tests := []struct {
		v    int64
		want Op
	}{
		{-1, Op{Code: "ldc.i4.m1"}},
		{0, Op{Code: "ldc.i4.0"}},
		{8, Op{Code: "ldc.i4.8"}},
		{9, Op{Code: "ldc.i4.s", Operand: "9"}},
		{-128, Op{Code: "ldc.i4.s", Operand: "-128"}},
		{1000, Op{Code: "ldc.i4", Operand: "1000"}},
	}
	for _, tt := range tests {
		if got := ldcI4(tt.v); got != tt.want {
			t.Errorf("ldcI4(%d) = %+v, want %+v", tt.v, got, tt.want)
		}
	}
}

func TestQuote(t *testing.T) {
	if got, want := QuoteString("a\"b\\\n"), `"a\"b\\\n"`; got != want {
		t.Errorf("QuoteString = %s, want %s", got, want)
	}
	if got, want := QuoteName("it's"), `'it\'s'`; got != want {
		t.Errorf("QuoteName = %s, want %s", got, want)
	}
}
