// Package il defines the three-address intermediate language produced from
// checked Fortall programs. Control flow is linear: labels, unconditional
// jumps and conditional jumps on a boolean address.
package il

import "github.com/fortall-lang/fortallc/pkg/ast"

// Kind classifies where an address lives
type Kind int

const (
	Temporary Kind = iota // compiler-generated, reusable
	Stack                 // local variable slot
	Global                // module-level symbol
	Parameter             // function argument
)

func (k Kind) String() string {
	names := []string{"temp", "stack", "global", "param"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// Key identifies an address. Two addresses are the same storage when
// their keys are equal, regardless of Type or Label.
type Key struct {
	Name string
	Kind Kind
}

// Address is an operand of an instruction
type Address struct {
	Name  string
	Kind  Kind
	Type  ast.Type
	Label string // emitted symbol for globals
}

// Key returns the identity of a
func (a Address) Key() Key {
	return Key{Name: a.Name, Kind: a.Kind}
}

// Same reports whether a and b name the same storage
func (a Address) Same(b Address) bool {
	return a.Key() == b.Key()
}

// Less orders addresses by name, then kind
func (a Address) Less(b Address) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Kind < b.Kind
}

// Reusable reports whether the address may be handed out again once released
func (a Address) Reusable() bool {
	return a.Kind == Temporary
}

// Instruction is the interface for all IL instructions
type Instruction interface {
	implInstruction()
}

// Load puts a constant into Dest
type Load struct {
	Dest  Address
	Value ast.Constant
}

// Move copies a scalar value
type Move struct {
	Dest Address
	Src  Address
}

// LoadPointer copies a string reference
type LoadPointer struct {
	Dest Address
	Src  Address
}

// BinaryOp computes Dest = Left Op Right
type BinaryOp struct {
	Dest  Address
	Left  Address
	Op    ast.BinaryOp
	Right Address
}

// UnaryOp computes Dest = Op Operand
type UnaryOp struct {
	Dest    Address
	Op      ast.UnaryOp
	Operand Address
}

// Call invokes Func and stores its result (if any) in Dest
type Call struct {
	Dest Address
	Func string
	Args []Address
}

// Goto jumps unconditionally
type Goto struct {
	Label string
}

// IfGoto jumps when Cond is true
type IfGoto struct {
	Cond  Address
	Label string
}

// Label marks a jump target
type Label struct {
	Name string
}

// Return leaves the function, optionally with a value
type Return struct {
	Value *Address
}

// Read stores a value of Type read from input into Dest
type Read struct {
	Dest Address
	Type ast.Type
}

// Write prints Src as Type
type Write struct {
	Src  Address
	Type ast.Type
}

// VarDecl marks the point where a stack variable is declared
type VarDecl struct {
	Name string
	Type ast.Type
}

func (Load) implInstruction()        {}
func (Move) implInstruction()        {}
func (LoadPointer) implInstruction() {}
func (BinaryOp) implInstruction()    {}
func (UnaryOp) implInstruction()     {}
func (Call) implInstruction()        {}
func (Goto) implInstruction()        {}
func (IfGoto) implInstruction()      {}
func (Label) implInstruction()       {}
func (Return) implInstruction()      {}
func (Read) implInstruction()        {}
func (Write) implInstruction()       {}
func (VarDecl) implInstruction()     {}

// Param is a function parameter
type Param struct {
	Name string
	Type ast.Type
}

// Function is a lowered function
type Function struct {
	Name       string
	Label      string
	Params     []Param
	ReturnType ast.Type
	Code       []Instruction
}

// GlobalVar is a module-level variable or an interned string literal
type GlobalVar struct {
	Name    string
	Type    ast.Type
	Init    *ast.Constant
	Literal bool
}

// Program is a complete lowered program
type Program struct {
	Globals   []GlobalVar
	Functions []Function
	MainLabel string
}

// Function returns the function named name
func (p *Program) Function(name string) (*Function, bool) {
	for i := range p.Functions {
		if p.Functions[i].Name == name {
			return &p.Functions[i], true
		}
	}
	return nil, false
}

// Uses returns the addresses an instruction reads
func Uses(instr Instruction) []Address {
	switch in := instr.(type) {
	case Move:
		return []Address{in.Src}
	case LoadPointer:
		return []Address{in.Src}
	case BinaryOp:
		return []Address{in.Left, in.Right}
	case UnaryOp:
		return []Address{in.Operand}
	case Call:
		return append([]Address(nil), in.Args...)
	case IfGoto:
		return []Address{in.Cond}
	case Return:
		if in.Value != nil {
			return []Address{*in.Value}
		}
	case Write:
		return []Address{in.Src}
	}
	return nil
}

// Def returns the address an instruction writes, if any
func Def(instr Instruction) (Address, bool) {
	switch in := instr.(type) {
	case Load:
		return in.Dest, true
	case Move:
		return in.Dest, true
	case LoadPointer:
		return in.Dest, true
	case BinaryOp:
		return in.Dest, true
	case UnaryOp:
		return in.Dest, true
	case Call:
		return in.Dest, true
	case Read:
		return in.Dest, true
	}
	return Address{}, false
}
