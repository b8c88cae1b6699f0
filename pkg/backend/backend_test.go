package backend

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/il"
	"github.com/google/go-cmp/cmp"
)

func TestFrameOffsets(t *testing.T) {
	for n := 1; n <= 6; n++ {
		f := NewFrame(4)
		for i := 0; i < n; i++ {
			f.Allocate(fmt.Sprintf("v%d", i))
		}
		if f.Size() != n*4 {
			t.Errorf("n=%d: Size() = %d, want %d", n, f.Size(), n*4)
		}
		for i := 0; i < n; i++ {
			off, ok := f.Offset(fmt.Sprintf("v%d", i))
			if !ok {
				t.Fatalf("n=%d: v%d not allocated", n, i)
			}
			if want := (n - (i + 1)) * 4; off != want {
				t.Errorf("n=%d: Offset(v%d) = %d, want %d", n, i, off, want)
			}
		}
	}
}

func TestFrameAllocateIdempotent(t *testing.T) {
	f := NewFrame(4)
	a := f.Allocate("x")
	b := f.Allocate("x")
	if a != b || f.Len() != 1 {
		t.Errorf("Allocate twice: %d, %d, Len %d", a, b, f.Len())
	}
	if _, ok := f.Offset("missing"); ok {
		t.Error("Offset of unallocated name reported ok")
	}
}

func TestLayoutFunction(t *testing.T) {
	fn := &il.Function{
		Name:   "f",
		Params: []il.Param{{Name: "a", Type: ast.Integer}, {Name: "b", Type: ast.Integer}},
		Code: []il.Instruction{
			il.VarDecl{Name: "x", Type: ast.Integer},
			il.Write{Src: il.Address{Name: "x", Kind: il.Stack}, Type: ast.Integer},
			il.VarDecl{Name: "y", Type: ast.Boolean},
			il.Return{},
		},
	}

	f := LayoutFunction(fn, 4, true)
	want := []string{ReturnSlot, "a", "b", "x", "y"}
	if diff := cmp.Diff(want, f.Names()); diff != "" {
		t.Errorf("Names (-want +got):\n%s", diff)
	}
	if off, _ := f.Offset(ReturnSlot); off != 16 {
		t.Errorf("return slot offset = %d, want 16", off)
	}

	main := LayoutFunction(fn, 4, false)
	if main.Len() != 4 {
		t.Errorf("main frame has %d slots, want 4", main.Len())
	}
}

func temp(name string) il.Address {
	return il.Address{Name: name, Kind: il.Temporary, Type: ast.Integer}
}

func TestRegisterPoolOrderAndReuse(t *testing.T) {
	p := NewRegisterPool([]string{"$t0", "$t1", "$t2"})

	r0, _ := p.Allocate(temp("t0"))
	r1, _ := p.Allocate(temp("t1"))
	if r0 != "$t0" || r1 != "$t1" {
		t.Fatalf("got %s %s, want $t0 $t1", r0, r1)
	}
	again, _ := p.Allocate(temp("t0"))
	if again != r0 {
		t.Errorf("rebinding t0 gave %s, want %s", again, r0)
	}

	p.Dispose(r0)
	if p.Bound(temp("t0")) {
		t.Error("t0 still bound after dispose")
	}
	if _, err := p.Get(temp("t0")); !errors.Is(err, ErrUnbound) {
		t.Errorf("Get after dispose: err = %v, want ErrUnbound", err)
	}
	r, _ := p.Allocate(temp("t5"))
	if r != "$t0" {
		t.Errorf("after dispose got %s, want $t0 back", r)
	}
	if diff := cmp.Diff([]string{"$t1", "$t0"}, p.Used()); diff != "" {
		t.Errorf("Used (-want +got):\n%s", diff)
	}
	p.Dispose("$t2") // free register, no-op
	if p.Free() != 1 {
		t.Errorf("Free() = %d, want 1", p.Free())
	}
}

func TestRegisterPoolExhaustion(t *testing.T) {
	regs := make([]string, 10)
	for i := range regs {
		regs[i] = fmt.Sprintf("$t%d", i)
	}
	p := NewRegisterPool(regs)

	for i := 0; i < 10; i++ {
		if _, err := p.Allocate(temp(fmt.Sprintf("t%d", i))); err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
	}
	_, err := p.Allocate(temp("t10"))
	if !errors.Is(err, ErrRegistersExhausted) {
		t.Errorf("11th allocation: err = %v, want ErrRegistersExhausted", err)
	}
}

func TestLastUses(t *testing.T) {
	t0, t1 := temp("t0"), temp("t1")
	x := il.Address{Name: "x", Kind: il.Stack, Type: ast.Integer}
	code := []il.Instruction{
		il.Load{Dest: t0, Value: ast.IntConst(1)},
		il.Load{Dest: t1, Value: ast.IntConst(2)},
		// t0 dies, t1 is redefined
		il.BinaryOp{Dest: t1, Left: t0, Op: ast.OpAdd, Right: t1},
		il.Move{Dest: x, Src: t1},
		// dead definition
		il.Call{Dest: t0, Func: "f"},
	}

	got := LastUses(code)
	names := make([][]string, len(got))
	for i, addrs := range got {
		for _, a := range addrs {
			names[i] = append(names[i], a.Name)
		}
	}
	want := [][]string{nil, nil, {"t0"}, {"t1"}, {"t0"}}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("LastUses (-want +got):\n%s", diff)
	}
}

func TestLocator(t *testing.T) {
	f := NewFrame(4)
	f.Allocate("a")
	f.Allocate("x")
	regs := NewRegisterPool([]string{"$t0"})
	regs.Allocate(temp("t0"))

	l := &Locator{Frame: f, Regs: regs}
	loc, err := l.Locate(il.Address{Name: "a", Kind: il.Parameter})
	if err != nil || loc.Kind != InFrame || loc.Offset != 4 {
		t.Errorf("param a = %+v, %v; want frame offset 4", loc, err)
	}
	loc, _ = l.Locate(temp("t0"))
	if loc.Kind != InRegister || loc.Register != "$t0" {
		t.Errorf("t0 = %+v", loc)
	}
	loc, _ = l.Locate(il.Address{Name: "__global_g", Kind: il.Global, Label: "__global_g"})
	if loc.Kind != InSymbol || loc.Symbol != "__global_g" {
		t.Errorf("global = %+v", loc)
	}
	if _, err := l.Locate(il.Address{Name: "nope", Kind: il.Stack}); !errors.Is(err, ErrUnknownAddress) {
		t.Errorf("unknown slot err = %v", err)
	}

	args := &Locator{Frame: f, Regs: regs, Args: map[string]int{"a": 0}}
	if loc, _ := args.Locate(il.Address{Name: "a", Kind: il.Parameter}); loc.Kind != InArgument || loc.Index != 0 {
		t.Errorf("argument a = %+v", loc)
	}
}

func TestFaultUnwraps(t *testing.T) {
	err := error(&Fault{Function: "main", Instruction: il.Goto{Label: "L"}, Err: ErrTooManyArgs})
	if !errors.Is(err, ErrTooManyArgs) {
		t.Error("Fault does not unwrap to its cause")
	}
	var f *Fault
	if !errors.As(err, &f) || f.Function != "main" {
		t.Error("errors.As failed for *Fault")
	}
	if got := err.Error(); got != "function main: goto L: too many call arguments" {
		t.Errorf("Error() = %q", got)
	}
}
