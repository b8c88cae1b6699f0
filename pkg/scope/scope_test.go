package scope

import (
	"errors"
	"testing"

	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/google/go-cmp/cmp"
)

func TestShadowing(t *testing.T) {
	tab := NewTable()
	root := tab.New(None)
	child := tab.New(root)

	outer, err := tab.DeclareVar(root, Variable{Name: "x", Type: ast.Integer, Source: Global})
	if err != nil {
		t.Fatal(err)
	}
	inner, err := tab.DeclareVar(child, Variable{Name: "x", Type: ast.Boolean, Source: Local})
	if err != nil {
		t.Fatalf("shadowing in child scope rejected: %v", err)
	}
	if outer.ID == inner.ID {
		t.Errorf("shadowing declarations share ID %d", outer.ID)
	}

	if v, _ := tab.LookupVar(child, "x"); v.Type != ast.Boolean {
		t.Errorf("child resolves x as %v, want bool", v.Type)
	}
	if v, _ := tab.LookupVar(root, "x"); v.Type != ast.Integer {
		t.Errorf("root resolves x as %v, want int", v.Type)
	}
}

func TestRedeclareSameScope(t *testing.T) {
	tab := NewTable()
	root := tab.New(None)

	if _, err := tab.DeclareVar(root, Variable{Name: "x", Type: ast.Integer}); err != nil {
		t.Fatal(err)
	}
	prev, err := tab.DeclareVar(root, Variable{Name: "x", Type: ast.String})
	if !errors.Is(err, ErrAlreadyDeclared) {
		t.Fatalf("err = %v, want ErrAlreadyDeclared", err)
	}
	if prev.Type != ast.Integer {
		t.Errorf("first declaration not kept: %v", prev.Type)
	}
	if err := tab.DeclareFunc(root, "f", 0); err != nil {
		t.Fatal(err)
	}
	if err := tab.DeclareFunc(root, "f", 1); !errors.Is(err, ErrAlreadyDeclared) {
		t.Errorf("err = %v, want ErrAlreadyDeclared", err)
	}
}

func TestLookupWalksChain(t *testing.T) {
	tab := NewTable()
	root := tab.New(None)
	mid := tab.New(root)
	leaf := tab.New(mid)

	if err := tab.DeclareFunc(root, "main", 3); err != nil {
		t.Fatal(err)
	}
	if fn, ok := tab.LookupFunc(leaf, "main"); !ok || fn != 3 {
		t.Errorf("LookupFunc = %d, %v; want 3, true", fn, ok)
	}
	if tab.HasFunc(leaf, "main") {
		t.Error("HasFunc must only check the current scope")
	}
	if _, ok := tab.LookupVar(leaf, "missing"); ok {
		t.Error("LookupVar found an undeclared name")
	}
	if tab.Parent(leaf) != mid || tab.Parent(root) != None {
		t.Error("parent links wrong")
	}
}

func TestDeclarationOrder(t *testing.T) {
	tab := NewTable()
	root := tab.New(None)
	for _, name := range []string{"c", "a", "b"} {
		if _, err := tab.DeclareVar(root, Variable{Name: name, Type: ast.Integer}); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	for _, v := range tab.Vars(root) {
		got = append(got, v.Name)
	}
	if diff := cmp.Diff([]string{"c", "a", "b"}, got); diff != "" {
		t.Errorf("Vars order (-want +got):\n%s", diff)
	}
}
