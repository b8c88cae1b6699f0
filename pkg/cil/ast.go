// Package cil defines a model of ECMA-335 assembly text (as accepted by
// ilasm) and lowers IL programs into it. Every Fortall program becomes a
// single class of static fields and static methods.
package cil

// Instruction is the interface for method body entries
type Instruction interface {
	implInstruction()
}

// Op is an opcode with an optional operand, printed verbatim
type Op struct {
	Code    string
	Operand string
}

// LabelDef marks a branch target
type LabelDef struct {
	Name string
}

func (Op) implInstruction()       {}
func (LabelDef) implInstruction() {}

// Local is a named, typed slot: a method local or a parameter
type Local struct {
	Name string
	Type string
}

// Method is a static method of the program class
type Method struct {
	Name       string
	ReturnType string
	Params     []Local
	Locals     []Local
	Entry      bool
	// Special marks runtime-recognized names such as .cctor
	Special  bool
	MaxStack int
	Code     []Instruction
}

// Append adds instructions to the method body
func (m *Method) Append(instrs ...Instruction) {
	m.Code = append(m.Code, instrs...)
}

// Field is a static field backing a global variable
type Field struct {
	Name string
	Type string
}

// Program is a complete assembly
type Program struct {
	Assembly string
	Class    string
	Fields   []Field
	Methods  []Method
}
