// Package mips defines a MIPS32 assembly representation and lowers IL
// programs into it. Output targets the MARS/SPIM pseudo-instruction set.
package mips

// Fixed registers
const (
	Zero = "$zero"
	SP   = "$sp"
	RA   = "$ra"
	V0   = "$v0"
	A0   = "$a0"
	A1   = "$a1"
)

// ArgRegs are the argument registers in order
var ArgRegs = []string{"$a0", "$a1", "$a2", "$a3"}

// Instruction is the interface for MIPS instructions
type Instruction interface {
	implInstruction()
}

// R is a three-register instruction: Op Rd, Rs, Rt
type R struct {
	Op         string
	Rd, Rs, Rt string
}

// I is a register-immediate instruction: Op Rt, Rs, Imm
type I struct {
	Op     string
	Rt, Rs string
	Imm    int64
}

// LI loads an immediate
type LI struct {
	Rd  string
	Imm int64
}

// LA loads the address of a symbol
type LA struct {
	Rd     string
	Symbol string
}

// Move copies a register
type Move struct {
	Rd, Rs string
}

// LW loads a word from Offset(Base)
type LW struct {
	Rt     string
	Offset int
	Base   string
}

// SW stores a word to Offset(Base)
type SW struct {
	Rt     string
	Offset int
	Base   string
}

// LWSym loads the word at a symbol
type LWSym struct {
	Rt     string
	Symbol string
}

// SWSym stores a word at a symbol
type SWSym struct {
	Rt     string
	Symbol string
}

// J jumps to a label
type J struct {
	Label string
}

// JAL calls a label
type JAL struct {
	Label string
}

// JR jumps to a register
type JR struct {
	Rs string
}

// BNEZ branches when Rs is non-zero
type BNEZ struct {
	Rs    string
	Label string
}

// Syscall traps into the runtime
type Syscall struct{}

// LabelDef defines a label
type LabelDef struct {
	Name string
}

func (R) implInstruction()        {}
func (I) implInstruction()        {}
func (LI) implInstruction()       {}
func (LA) implInstruction()       {}
func (Move) implInstruction()     {}
func (LW) implInstruction()       {}
func (SW) implInstruction()       {}
func (LWSym) implInstruction()    {}
func (SWSym) implInstruction()    {}
func (J) implInstruction()        {}
func (JAL) implInstruction()      {}
func (JR) implInstruction()       {}
func (BNEZ) implInstruction()     {}
func (Syscall) implInstruction()  {}
func (LabelDef) implInstruction() {}

// DataKind selects the directive of a data item
type DataKind int

const (
	Word   DataKind = iota // .word Value or .word Symbol
	Asciiz                 // .asciiz Str
	Space                  // .space Size
)

// Data is one item of the data section
type Data struct {
	Name   string
	Kind   DataKind
	Value  int64
	Symbol string
	Str    string
	Size   int
}

// Function is an emitted function
type Function struct {
	Label string
	Code  []Instruction
}

// Append adds an instruction to the function
func (f *Function) Append(inst ...Instruction) {
	f.Code = append(f.Code, inst...)
}

// Program is a complete assembly program
type Program struct {
	Data      []Data
	Entry     string
	Functions []Function
}
