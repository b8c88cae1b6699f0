// Package backend holds the resources shared by the code emitters: the
// stack slot allocator, the register pool, last-use analysis of IL
// temporaries and the fatal error kind raised during emission.
package backend

import "github.com/fortall-lang/fortallc/pkg/il"

// ReturnSlot is the frame slot holding the saved return address
const ReturnSlot = "$ra"

// Frame assigns word-sized slots to names in declaration order.
//
//	+---------------------------+  <- caller's SP
//	| slot 0 (return address)   |  offset (n-1)*word
//	| parameters                |
//	| locals                    |
//	| slot n-1                  |  offset 0
//	+---------------------------+  <- SP after the prologue
//
// The first slot declared sits at the top of the frame.
type Frame struct {
	word  int
	names []string
	index map[string]int
}

// NewFrame creates an empty frame with the given slot size in bytes
func NewFrame(word int) *Frame {
	return &Frame{word: word, index: make(map[string]int)}
}

// Allocate reserves a slot for name and returns its index. Allocating a
// name twice returns the existing slot.
func (f *Frame) Allocate(name string) int {
	if i, ok := f.index[name]; ok {
		return i
	}
	f.index[name] = len(f.names)
	f.names = append(f.names, name)
	return len(f.names) - 1
}

// Index returns the declaration index of name
func (f *Frame) Index(name string) (int, bool) {
	i, ok := f.index[name]
	return i, ok
}

// Offset returns the SP-relative byte offset of name
func (f *Frame) Offset(name string) (int, bool) {
	i, ok := f.index[name]
	if !ok {
		return 0, false
	}
	return (len(f.names) - (i + 1)) * f.word, true
}

// Size is the frame size in bytes
func (f *Frame) Size() int {
	return len(f.names) * f.word
}

// Len is the number of slots
func (f *Frame) Len() int {
	return len(f.names)
}

// Names returns slot names in declaration order
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// LayoutFunction builds the frame of fn: the return slot when requested,
// then parameters, then each VarDecl in code order.
func LayoutFunction(fn *il.Function, word int, withReturnSlot bool) *Frame {
	f := NewFrame(word)
	if withReturnSlot {
		f.Allocate(ReturnSlot)
	}
	for _, p := range fn.Params {
		f.Allocate(p.Name)
	}
	LayoutLocals(f, fn)
	return f
}

// LayoutLocals appends a slot for each VarDecl of fn
func LayoutLocals(f *Frame, fn *il.Function) {
	for _, instr := range fn.Code {
		if v, ok := instr.(il.VarDecl); ok {
			f.Allocate(v.Name)
		}
	}
}
