package mips

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs MIPS assembly
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new assembly printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram outputs an entire program
func (p *Printer) PrintProgram(prog *Program) {
	if len(prog.Data) > 0 {
		fmt.Fprintf(p.w, "\t.data\n")
		for _, d := range prog.Data {
			p.printData(d)
		}
		fmt.Fprintf(p.w, "\n")
	}

	fmt.Fprintf(p.w, "\t.text\n")
	fmt.Fprintf(p.w, "\t.globl\t__start\n")
	fmt.Fprintf(p.w, "__start:\n")
	fmt.Fprintf(p.w, "\tj\t%s\n\n", prog.Entry)
	for _, f := range prog.Functions {
		p.printFunction(f)
	}
}

func (p *Printer) printData(d Data) {
	switch d.Kind {
	case Word:
		if d.Symbol != "" {
			fmt.Fprintf(p.w, "%s:\t.word\t%s\n", d.Name, d.Symbol)
		} else {
			fmt.Fprintf(p.w, "%s:\t.word\t%d\n", d.Name, d.Value)
		}
	case Asciiz:
		fmt.Fprintf(p.w, "%s:\t.asciiz\t\"%s\"\n", d.Name, EscapeString(d.Str))
	case Space:
		fmt.Fprintf(p.w, "%s:\t.space\t%d\n", d.Name, d.Size)
	}
}

func (p *Printer) printFunction(f Function) {
	fmt.Fprintf(p.w, "%s:\n", f.Label)
	for _, inst := range f.Code {
		p.printInstruction(inst)
	}
	fmt.Fprintf(p.w, "\n")
}

func (p *Printer) printInstruction(inst Instruction) {
	switch i := inst.(type) {
	case LabelDef:
		fmt.Fprintf(p.w, "%s:\n", i.Name)
	case R:
		fmt.Fprintf(p.w, "\t%s\t%s, %s, %s\n", i.Op, i.Rd, i.Rs, i.Rt)
	case I:
		fmt.Fprintf(p.w, "\t%s\t%s, %s, %d\n", i.Op, i.Rt, i.Rs, i.Imm)
	case LI:
		fmt.Fprintf(p.w, "\tli\t%s, %d\n", i.Rd, i.Imm)
	case LA:
		fmt.Fprintf(p.w, "\tla\t%s, %s\n", i.Rd, i.Symbol)
	case Move:
		fmt.Fprintf(p.w, "\tmove\t%s, %s\n", i.Rd, i.Rs)
	case LW:
		fmt.Fprintf(p.w, "\tlw\t%s, %d(%s)\n", i.Rt, i.Offset, i.Base)
	case SW:
		fmt.Fprintf(p.w, "\tsw\t%s, %d(%s)\n", i.Rt, i.Offset, i.Base)
	case LWSym:
		fmt.Fprintf(p.w, "\tlw\t%s, %s\n", i.Rt, i.Symbol)
	case SWSym:
		fmt.Fprintf(p.w, "\tsw\t%s, %s\n", i.Rt, i.Symbol)
	case J:
		fmt.Fprintf(p.w, "\tj\t%s\n", i.Label)
	case JAL:
		fmt.Fprintf(p.w, "\tjal\t%s\n", i.Label)
	case JR:
		fmt.Fprintf(p.w, "\tjr\t%s\n", i.Rs)
	case BNEZ:
		fmt.Fprintf(p.w, "\tbnez\t%s, %s\n", i.Rs, i.Label)
	case Syscall:
		fmt.Fprintf(p.w, "\tsyscall\n")
	default:
		fmt.Fprintf(p.w, "\t# unknown instruction %T\n", inst)
	}
}

// EscapeString escapes s for an .asciiz directive
func EscapeString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case 0:
			sb.WriteString(`\0`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
