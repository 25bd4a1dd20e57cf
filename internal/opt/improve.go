package opt

// Bounded local-improvement passes. Every move must keep the touched routes
// feasible and strictly reduce distance, so invariants hold after any number
// of passes and the loop is deterministic.

// twoOptPass reverses intra-route segments. Returns true if any move helped.
func (p *problem) twoOptPass(routes [][]int) bool {
	improved := false
	for vi := range routes {
		order := routes[vi]
		n := len(order)
		if n < 3 {
			continue
		}
		base, viol := p.scheduleRoute(vi, order)
		if viol != "" {
			continue
		}
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				cand := append([]int(nil), order...)
				for a, b := i, k; a < b; a, b = a+1, b-1 {
					cand[a], cand[b] = cand[b], cand[a]
				}
				sc, viol := p.scheduleRoute(vi, cand)
				if viol != "" {
					continue
				}
				if sc.distM+1e-6 < base.distM {
					order = cand
					base = sc
					improved = true
				}
			}
		}
		routes[vi] = order
	}
	return improved
}

// relocatePass moves a single stop to its cheapest position in any route.
func (p *problem) relocatePass(routes [][]int) bool {
	improved := false
	for a := range routes {
		for i := 0; i < len(routes[a]); i++ {
			si := routes[a][i]
			before := p.totalDistance(routes)
			bestB, bestPos := -1, -1
			bestTotal := before
			for b := range routes {
				for pos := 0; pos <= len(routes[b]); pos++ {
					if b == a && (pos == i || pos == i+1) {
						continue
					}
					cand := removeAt(routes, a, i)
					insPos := pos
					if b == a && pos > i {
						insPos = pos - 1
					}
					cand[b] = insertAt(cand[b], insPos, si)
					total := p.totalDistance(cand)
					if total+1e-6 < bestTotal {
						bestTotal = total
						bestB = b
						bestPos = insPos
					}
				}
			}
			if bestB >= 0 {
				next := removeAt(routes, a, i)
				next[bestB] = insertAt(next[bestB], bestPos, si)
				copy(routes, next)
				improved = true
				i--
			}
		}
	}
	return improved
}

// crossExchangePass swaps one stop between two routes when the combined
// distance drops and both routes stay feasible.
func (p *problem) crossExchangePass(routes [][]int) bool {
	improved := false
	m := len(routes)
	for a := 0; a < m; a++ {
		for b := a + 1; b < m; b++ {
			for i := 0; i < len(routes[a]); i++ {
				for j := 0; j < len(routes[b]); j++ {
					sa, va := p.scheduleRoute(a, routes[a])
					sb, vb := p.scheduleRoute(b, routes[b])
					if va != "" || vb != "" {
						continue
					}
					ca := append([]int(nil), routes[a]...)
					cb := append([]int(nil), routes[b]...)
					ca[i], cb[j] = cb[j], ca[i]
					na, va2 := p.scheduleRoute(a, ca)
					nb, vb2 := p.scheduleRoute(b, cb)
					if va2 != "" || vb2 != "" {
						continue
					}
					if na.distM+nb.distM+1e-6 < sa.distM+sb.distM {
						routes[a] = ca
						routes[b] = cb
						improved = true
					}
				}
			}
		}
	}
	return improved
}

// removeAt deep-copies routes with stop index i removed from route a.
func removeAt(routes [][]int, a, i int) [][]int {
	out := make([][]int, len(routes))
	for vi := range routes {
		out[vi] = append([]int(nil), routes[vi]...)
	}
	out[a] = append(out[a][:i], out[a][i+1:]...)
	return out
}
