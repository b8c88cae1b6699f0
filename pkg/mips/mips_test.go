package mips

import (
	"bytes"
	"errors"
	"strings"
	"testing"

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

func emit(t *testing.T, src string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := Emit(&buf, lower(t, src), DefaultConfig())
	return buf.String(), err
}

func TestEmitProgram(t *testing.T) {
	got, err := emit(t, `
int g = 5;
func add(int a, int b): int { return a + b; }
func main() { int x = add(g, 2); write(x); write("ok"); }
`)
	require.NoError(t, err)

	want := `	.data
__global_g:	.word	5
string_literal_0:	.asciiz	"ok"

	.text
	.globl	__start
__start:
	j	__function_main

__function_add:
	addi	$sp, $sp, -12
	sw	$ra, 8($sp)
	sw	$a0, 4($sp)
	sw	$a1, 0($sp)
	lw	$t0, 4($sp)
	lw	$t1, 0($sp)
	add	$t2, $t0, $t1
	move	$v0, $t2
	lw	$ra, 8($sp)
	addi	$sp, $sp, 12
	jr	$ra

__function_main:
	addi	$sp, $sp, -4
	li	$t0, 2
	lw	$a0, __global_g
	move	$a1, $t0
	jal	__function_add
	move	$t0, $v0
	sw	$t0, 0($sp)
	lw	$a0, 0($sp)
	li	$v0, 1
	syscall
	la	$a0, string_literal_0
	li	$v0, 4
	syscall
	li	$v0, 10
	syscall

`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assembly mismatch (-want +got):\n%s", diff)
	}
}

func TestLiveTemporariesSavedAroundCall(t *testing.T) {
	got, err := emit(t, "func one(): int { return 1; } func main() { write(2 + one()); }")
	require.NoError(t, err)

	want := "\taddi\t$sp, $sp, -4\n\tsw\t$t0, 0($sp)\n\tjal\t__function_one\n\tlw\t$t0, 0($sp)\n\taddi\t$sp, $sp, 4\n\tmove\t$t1, $v0\n\tadd\t$t1, $t0, $t1\n"
	if !strings.Contains(got, want) {
		t.Errorf("missing save/restore sequence in:\n%s", got)
	}
}

func TestRegisterExhaustionFaults(t *testing.T) {
	var sb strings.Builder
	n := len(DefaultConfig().Registers) + 1
	for i := 1; i < n; i++ {
		sb.WriteString("1 + (")
	}
	sb.WriteString("1")
	sb.WriteString(strings.Repeat(")", n-1))

	out, err := emit(t, "func main() { write("+sb.String()+"); }")
	if !errors.Is(err, backend.ErrRegistersExhausted) {
		t.Fatalf("err = %v, want ErrRegistersExhausted", err)
	}
	var f *backend.Fault
	if !errors.As(err, &f) || f.Function != "main" {
		t.Errorf("fault = %+v, want one in main", f)
	}
	if out != "" {
		t.Errorf("partial output written:\n%s", out)
	}
}

func TestRightDeepWithinPool(t *testing.T) {
	var sb strings.Builder
	n := len(DefaultConfig().Registers)
	for i := 1; i < n; i++ {
		sb.WriteString("1 + (")
	}
	sb.WriteString("1")
	sb.WriteString(strings.Repeat(")", n-1))

	if _, err := emit(t, "func main() { write("+sb.String()+"); }"); err != nil {
		t.Errorf("expression needing %d registers failed: %v", n, err)
	}
}

func TestTooManyArguments(t *testing.T) {
	_, err := emit(t, "func f(int a, int b, int c, int d, int e) {} func main() { f(1, 2, 3, 4, 5); }")
	if !errors.Is(err, backend.ErrTooManyArgs) {
		t.Fatalf("err = %v, want ErrTooManyArgs", err)
	}
	var f *backend.Fault
	if errors.As(err, &f) && f.Function != "f" {
		t.Errorf("fault in %s, want f", f.Function)
	}
}

func TestSnippets(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "main exit code",
			src:  "func main(): int { return 3; }",
			want: []string{"\tli\t$t0, 3\n\tmove\t$v0, $t0\n\tmove\t$a0, $v0\n\tli\t$v0, 17\n\tsyscall\n"},
		},
		{
			name: "read string into buffer",
			src:  "func main() { str s; read(s); write(s); }",
			want: []string{"\tli\t$v0, 9\n", "\tli\t$a1, 256\n\tli\t$v0, 8\n\tsyscall\n\tsw\t$a0, 0($sp)\n"},
		},
		{
			name: "data section",
			src:  `bool flag = true; str name = "x"; str empty; func main() {}`,
			want: []string{
				"__global_flag:\t.word\t1\n",
				"__global_name:\t.word\t__global_name__data\n",
				"__global_empty:\t.word\t0\n",
				"__global_name__data:\t.asciiz\t\"x\"\n",
			},
		},
		{
			name: "not and branch",
			src:  "func main() { bool b = true; if (b) { write(1); } }",
			want: []string{"\tlw\t$t0, 0($sp)\n\txori\t$t1, $t0, 1\n\tbnez\t$t1, __function_main$else_0\n"},
		},
		{
			name: "comparison",
			src:  "func main() { int a = 1; write(a <= 2); }",
			want: []string{"\tsle\t"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := emit(t, tt.src)
			require.NoError(t, err)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
		})
	}
}

func TestEscapeString(t *testing.T) {
	got := EscapeString("a\"b\\c\nd\te")
	want := `a\"b\\c\nd\te`
	if got != want {
		t.Errorf("EscapeString = %q, want %q", got, want)
	}
}
