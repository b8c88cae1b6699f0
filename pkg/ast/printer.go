package ast

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs the tree in Fortall source form
type Printer struct {
	w      io.Writer
	prog   *Program
	indent int
}

// NewPrinter creates a new AST printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints a complete program
func (p *Printer) PrintProgram(prog *Program) {
	p.prog = prog
	for _, f := range prog.Fields {
		if f.Init != nil {
			fmt.Fprintf(p.w, "%s %s = %s;\n", f.Type, f.Name, f.Init)
		} else {
			fmt.Fprintf(p.w, "%s %s;\n", f.Type, f.Name)
		}
	}
	if len(prog.Fields) > 0 && len(prog.Functions) > 0 {
		fmt.Fprintln(p.w)
	}
	for i, fn := range prog.Functions {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		p.printFunction(fn)
	}
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

func (p *Printer) printFunction(fn Function) {
	fmt.Fprintf(p.w, "func %s(", fn.Name)
	for i, param := range fn.Params {
		if i > 0 {
			fmt.Fprint(p.w, ", ")
		}
		fmt.Fprintf(p.w, "%s %s", param.Type, param.Name)
	}
	fmt.Fprint(p.w, ")")
	if fn.ReturnType != Void {
		fmt.Fprintf(p.w, ": %s", fn.ReturnType)
	}
	fmt.Fprint(p.w, " ")
	p.printBlock(fn.Body)
	fmt.Fprintln(p.w)
}

func (p *Printer) printBlock(id BlockID) {
	fmt.Fprintln(p.w, "{")
	p.indent++
	for _, s := range p.prog.Block(id).Stmts {
		p.printStmt(s)
	}
	p.indent--
	p.writeIndent()
	fmt.Fprint(p.w, "}")
}

func (p *Printer) printStmt(stmt Stmt) {
	p.writeIndent()
	switch s := stmt.(type) {
	case VarDecl:
		if s.Init != NoExpr {
			fmt.Fprintf(p.w, "%s %s = %s;\n", s.Type, s.Name, p.Expr(s.Init))
		} else {
			fmt.Fprintf(p.w, "%s %s;\n", s.Type, s.Name)
		}
	case Assign:
		fmt.Fprintf(p.w, "%s = %s;\n", p.Expr(s.Target), p.Expr(s.Value))
	case If:
		fmt.Fprintf(p.w, "if (%s) ", p.Expr(s.Cond))
		p.printBlock(s.Then)
		if s.Else != NoBlock {
			fmt.Fprint(p.w, " else ")
			p.printBlock(s.Else)
		}
		fmt.Fprintln(p.w)
	case While:
		fmt.Fprintf(p.w, "while (%s) ", p.Expr(s.Cond))
		p.printBlock(s.Body)
		fmt.Fprintln(p.w)
	case Return:
		if s.Value != NoExpr {
			fmt.Fprintf(p.w, "return %s;\n", p.Expr(s.Value))
		} else {
			fmt.Fprintln(p.w, "return;")
		}
	case Write:
		fmt.Fprintf(p.w, "write(%s);\n", p.Expr(s.Value))
	case Read:
		fmt.Fprintf(p.w, "read(%s);\n", p.Expr(s.Target))
	case CallStmt:
		fmt.Fprintf(p.w, "%s;\n", p.Expr(s.Call))
	case Empty:
		fmt.Fprintln(p.w, ";")
	default:
		fmt.Fprintf(p.w, "/* unknown statement %T */\n", stmt)
	}
}

// Expr renders the expression id. Binary operands are always
// parenthesized unless they are atoms.
func (p *Printer) Expr(id ExprID) string {
	switch e := p.prog.Expr(id).(type) {
	case Literal:
		return e.Value.String()
	case Ident:
		return e.Name
	case Unary:
		return e.Op.String() + p.operand(e.Operand)
	case Binary:
		return fmt.Sprintf("%s %s %s", p.operand(e.Left), e.Op, p.operand(e.Right))
	case Call:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = p.Expr(a)
		}
		return fmt.Sprintf("%s(%s)", e.Name, strings.Join(args, ", "))
	}
	return "?"
}

func (p *Printer) operand(id ExprID) string {
	switch p.prog.Expr(id).(type) {
	case Binary:
		return "(" + p.Expr(id) + ")"
	}
	return p.Expr(id)
}

// ExprString renders a single expression of prog
func ExprString(prog *Program, id ExprID) string {
	p := &Printer{prog: prog}
	return p.Expr(id)
}
