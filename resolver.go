package understory

// resolver canonicalizes symbols by collapsing import and re-export alias
// chains down to the underlying declaration.
type resolver struct {
	p Provider
}

// Resolve follows alias edges until it reaches a non-alias symbol. A hop
// that fails or does not resolve ends the walk at the deepest symbol
// reached, so callers never see an error and resolution of unresolvable
// aliases degrades to the alias itself. A cyclic chain collapses to its
// smallest member, so every symbol on the cycle resolves to the same
// canonical identity. Both rules keep Resolve idempotent: resolving an
// already resolved symbol returns it unchanged.
func (r *resolver) Resolve(sym Symbol) Symbol {
	if sym == NoSymbol {
		return NoSymbol
	}
	index := map[Symbol]int{sym: 0}
	path := []Symbol{sym}
	cur := sym
	for {
		next, err := r.p.AliasTarget(cur)
		if err != nil || next == NoSymbol {
			return cur
		}
		if start, ok := index[next]; ok {
			// Cyclic re-export chain. Canonicalize to the smallest cycle
			// member so the result is independent of the entry point.
			canon := next
			for _, s := range path[start:] {
				if s < canon {
					canon = s
				}
			}
			return canon
		}
		index[next] = len(path)
		path = append(path, next)
		cur = next
	}
}
