package backend

import (
	"github.com/fortall-lang/fortallc/pkg/il"
	"tlog.app/go/errors"
)

// LocKind says where the value of an address lives during emission
type LocKind int

const (
	InRegister LocKind = iota
	InFrame
	InArgument
	InSymbol
)

// Location is the resolved storage of an address
type Location struct {
	Kind     LocKind
	Register string // InRegister
	Offset   int    // InFrame: SP-relative bytes
	Index    int    // InFrame: slot index; InArgument: argument index
	Symbol   string // InSymbol
}

// Locator resolves IL addresses against one function's frame and
// register pool
type Locator struct {
	Frame *Frame
	Regs  *RegisterPool
	// Args maps parameter names to their argument index. When nil,
	// parameters are expected to have frame slots.
	Args map[string]int
}

// Locate returns the storage of a. Temporaries must already be bound.
func (l *Locator) Locate(a il.Address) (Location, error) {
	switch a.Kind {
	case il.Temporary:
		r, err := l.Regs.Get(a)
		if err != nil {
			return Location{}, err
		}
		return Location{Kind: InRegister, Register: r}, nil
	case il.Parameter:
		if l.Args != nil {
			i, ok := l.Args[a.Name]
			if !ok {
				return Location{}, errors.Wrap(ErrUnknownAddress, "parameter %s", a.Name)
			}
			return Location{Kind: InArgument, Index: i}, nil
		}
		return l.frameSlot(a)
	case il.Stack:
		return l.frameSlot(a)
	case il.Global:
		sym := a.Label
		if sym == "" {
			sym = a.Name
		}
		return Location{Kind: InSymbol, Symbol: sym}, nil
	}
	return Location{}, errors.Wrap(ErrUnknownAddress, "%s has kind %v", a.Name, a.Kind)
}

func (l *Locator) frameSlot(a il.Address) (Location, error) {
	off, ok := l.Frame.Offset(a.Name)
	if !ok {
		return Location{}, errors.Wrap(ErrUnknownAddress, "%s %s", a.Kind, a.Name)
	}
	idx, _ := l.Frame.Index(a.Name)
	return Location{Kind: InFrame, Offset: off, Index: idx}, nil
}
