// Temporary and local naming for IL generation.
// Temporaries are recycled through a LIFO free list; locals get a frame
// name that stays unique within the function even when shadowed.

package ilgen

import (
	"fmt"

	"github.com/fortall-lang/fortallc/pkg/ast"
	"github.com/fortall-lang/fortallc/pkg/il"
	"github.com/fortall-lang/fortallc/pkg/scope"
)

// Temps hands out temporary addresses t0, t1, ... and reuses released ones
type Temps struct {
	free   []string // released names, most recent last
	minted int
}

// NewTemps creates an empty temporary allocator
func NewTemps() *Temps {
	return &Temps{}
}

// Get returns a temporary of type t, preferring the most recently
// released name
func (a *Temps) Get(t ast.Type) il.Address {
	var name string
	if n := len(a.free); n > 0 {
		name = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		name = fmt.Sprintf("t%d", a.minted)
		a.minted++
	}
	return il.Address{Name: name, Kind: il.Temporary, Type: t}
}

// Release makes addr available again. Non-temporary addresses are ignored.
func (a *Temps) Release(addr il.Address) {
	if !addr.Reusable() {
		return
	}
	a.free = append(a.free, addr.Name)
}

// Minted returns how many distinct temporary names were created
func (a *Temps) Minted() int {
	return a.minted
}

// Locals maps variable declarations to frame names for one function
type Locals struct {
	byID map[int]string
	used map[string]bool
}

// NewLocals reserves the parameter names of a function
func NewLocals(params []ast.Param) *Locals {
	l := &Locals{
		byID: make(map[int]string),
		used: make(map[string]bool),
	}
	for _, p := range params {
		l.used[p.Name] = true
	}
	return l
}

// Declare assigns a frame name to v. The source name is kept unless an
// earlier declaration in the function already took it.
func (l *Locals) Declare(v scope.Variable) string {
	if name, ok := l.byID[v.ID]; ok {
		return name
	}
	name := v.Name
	for n := 1; l.used[name]; n++ {
		name = fmt.Sprintf("%s_%d", v.Name, n)
	}
	l.used[name] = true
	l.byID[v.ID] = name
	return name
}

// Lookup returns the frame name given to v
func (l *Locals) Lookup(v scope.Variable) (string, bool) {
	name, ok := l.byID[v.ID]
	return name, ok
}
