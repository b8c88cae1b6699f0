// Register binding for emission.
// Registers come from a fixed pool modeled as a stack; IL temporaries are
// bound at definition and disposed at their last use.

package backend

import (
	"github.com/fortall-lang/fortallc/pkg/il"
	"tlog.app/go/errors"
)

// RegisterPool binds IL temporaries to a fixed set of registers
type RegisterPool struct {
	free  []string // top of stack is the last element
	bound map[il.Key]string
	owner map[string]il.Key
	order []string // bound registers in allocation order
}

// NewRegisterPool creates a pool handing out regs in order
func NewRegisterPool(regs []string) *RegisterPool {
	p := &RegisterPool{
		bound: make(map[il.Key]string),
		owner: make(map[string]il.Key),
	}
	for i := len(regs) - 1; i >= 0; i-- {
		p.free = append(p.free, regs[i])
	}
	return p
}

// Allocate returns the register bound to addr, binding a free one if
// needed
func (p *RegisterPool) Allocate(addr il.Address) (string, error) {
	if r, ok := p.bound[addr.Key()]; ok {
		return r, nil
	}
	n := len(p.free)
	if n == 0 {
		return "", errors.Wrap(ErrRegistersExhausted, "binding %s", il.FormatAddress(addr))
	}
	r := p.free[n-1]
	p.free = p.free[:n-1]
	p.bound[addr.Key()] = r
	p.owner[r] = addr.Key()
	p.order = append(p.order, r)
	return r, nil
}

// Get returns the register bound to addr
func (p *RegisterPool) Get(addr il.Address) (string, error) {
	if r, ok := p.bound[addr.Key()]; ok {
		return r, nil
	}
	return "", errors.Wrap(ErrUnbound, "%s", il.FormatAddress(addr))
}

// Bound reports whether addr holds a register
func (p *RegisterPool) Bound(addr il.Address) bool {
	_, ok := p.bound[addr.Key()]
	return ok
}

// Dispose returns reg to the pool. Disposing a free register is a no-op.
func (p *RegisterPool) Dispose(reg string) {
	key, ok := p.owner[reg]
	if !ok {
		return
	}
	delete(p.owner, reg)
	delete(p.bound, key)
	for i, r := range p.order {
		if r == reg {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	p.free = append(p.free, reg)
}

// Release disposes the register bound to addr, if any
func (p *RegisterPool) Release(addr il.Address) {
	if r, ok := p.bound[addr.Key()]; ok {
		p.Dispose(r)
	}
}

// Used returns the bound registers in allocation order
func (p *RegisterPool) Used() []string {
	return append([]string(nil), p.order...)
}

// Free returns how many registers are available
func (p *RegisterPool) Free() int {
	return len(p.free)
}
