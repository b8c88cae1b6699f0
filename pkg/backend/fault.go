package backend

import (
	"fmt"

	"github.com/fortall-lang/fortallc/pkg/il"
	"tlog.app/go/errors"
)

var (
	ErrRegistersExhausted = errors.New("no free registers")
	ErrUnbound            = errors.New("address not bound to a register")
	ErrTooManyArgs        = errors.New("too many call arguments")
	ErrUnsupported        = errors.New("unsupported operation")
	ErrUnknownType        = errors.New("unknown type")
	ErrUnknownAddress     = errors.New("address has no storage")
)

// Fault is a fatal code generation error. The program cannot be emitted.
type Fault struct {
	Function    string
	Instruction il.Instruction
	Err         error
}

func (f *Fault) Error() string {
	if f.Instruction != nil {
		return fmt.Sprintf("function %s: %s: %v", f.Function, il.FormatInstruction(f.Instruction), f.Err)
	}
	return fmt.Sprintf("function %s: %v", f.Function, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}
