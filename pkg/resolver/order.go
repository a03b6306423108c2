package resolver

const (
	white = iota
	gray
	black
)

// dependencyEdges maps each key to the keys it placed constraints on, in
// creation order of the dependency.
func dependencyEdges(resolutions []*Resolution) map[Key][]Key {
	edges := make(map[Key][]Key)
	seen := make(map[[2]Key]bool)
	for _, r := range resolutions {
		for _, c := range r.Constraints {
			if c.From == nil || *c.From == r.Key {
				continue
			}
			edge := [2]Key{*c.From, r.Key}
			if seen[edge] {
				continue
			}
			seen[edge] = true
			edges[*c.From] = append(edges[*c.From], r.Key)
		}
	}
	return edges
}

// topologicalOrder returns keys with dependencies before dependers. Targets
// are visited first, in creation order, then everything else. An edge into
// a key that is still being visited closes a cycle: it is ignored for
// ordering and reported.
func topologicalOrder(resolutions []*Resolution) ([]Key, []CycleDiagnostic) {
	edges := dependencyEdges(resolutions)
	state := make(map[Key]int, len(resolutions))
	var (
		order  []Key
		cycles []CycleDiagnostic
		stack  []Key
	)

	var visit func(Key)
	visit = func(k Key) {
		state[k] = gray
		stack = append(stack, k)
		for _, dep := range edges[k] {
			switch state[dep] {
			case white:
				visit(dep)
			case gray:
				cycles = append(cycles, CycleDiagnostic{Path: cyclePath(stack, dep)})
			}
		}
		stack = stack[:len(stack)-1]
		state[k] = black
		order = append(order, k)
	}

	for _, r := range resolutions {
		if isTarget(r) && state[r.Key] == white {
			visit(r.Key)
		}
	}
	for _, r := range resolutions {
		if state[r.Key] == white {
			visit(r.Key)
		}
	}
	return order, cycles
}

func cyclePath(stack []Key, to Key) []Key {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == to {
			path := make([]Key, 0, len(stack)-i+1)
			path = append(path, stack[i:]...)
			return append(path, to)
		}
	}
	return []Key{to, to}
}

func isTarget(r *Resolution) bool {
	for _, c := range r.Constraints {
		if c.From == nil {
			return true
		}
	}
	return false
}

// skippedKeys finds the resolutions whose every constraint comes from a
// failed or skipped resolution.
func skippedKeys(store *Store) map[Key]bool {
	skipped := make(map[Key]bool)
	for changed := true; changed; {
		changed = false
		for _, r := range store.Resolutions() {
			if skipped[r.Key] || r.Status == StatusFailed || len(r.Constraints) == 0 {
				continue
			}
			if onlyFailedDemand(store, r, skipped) {
				skipped[r.Key] = true
				changed = true
			}
		}
	}
	return skipped
}

func onlyFailedDemand(store *Store, r *Resolution, skipped map[Key]bool) bool {
	for _, c := range r.Constraints {
		if c.From == nil {
			return false
		}
		from := store.Get(*c.From)
		if from == nil {
			return false
		}
		if from.Status != StatusFailed && !skipped[from.Key] {
			return false
		}
	}
	return true
}
