package backend

import "github.com/fortall-lang/fortallc/pkg/il"

// LastUses returns, for each instruction of code, the temporaries whose
// value is dead once that instruction has executed: uses not read again
// before being redefined, and definitions never read.
//
// Temporaries never live across a label, so a single backward pass over
// the linear code is exact.
func LastUses(code []il.Instruction) [][]il.Address {
	out := make([][]il.Address, len(code))
	live := make(map[il.Key]bool)

	for i := len(code) - 1; i >= 0; i-- {
		instr := code[i]
		var dying []il.Address
		seen := make(map[il.Key]bool)

		def, hasDef := il.Def(instr)
		hasDef = hasDef && def.Kind == il.Temporary
		if hasDef && !live[def.Key()] {
			dying = append(dying, def)
			seen[def.Key()] = true
		}

		uses := il.Uses(instr)
		for _, u := range uses {
			if u.Kind != il.Temporary || seen[u.Key()] {
				continue
			}
			if hasDef && u.Key() == def.Key() {
				continue
			}
			if !live[u.Key()] {
				dying = append(dying, u)
				seen[u.Key()] = true
			}
		}

		if hasDef {
			delete(live, def.Key())
		}
		for _, u := range uses {
			if u.Kind == il.Temporary {
				live[u.Key()] = true
			}
		}
		out[i] = dying
	}
	return out
}
