package resolver

import (
	"context"
	"fmt"

	"github.com/perdasilva/depres/pkg/sat"
	"github.com/perdasilva/depres/pkg/universe"
	"github.com/perdasilva/depres/pkg/universe/search"
)

const targetsIdentifier = sat.Identifier("<targets>")

// checkPlan encodes the plan as a SAT problem. The targets and every
// planned candidate are mandatory. The other candidates sharing a planned
// slot are free variables, and each slot holds at most one candidate.
// Every constraint between planned resolutions becomes a dependency on the
// candidates matching its atom. A plan the solver cannot satisfy is
// inconsistent.
func checkPlan(ctx context.Context, provider universe.Provider, store *Store, decisions []Entry) error {
	planned := make(map[Key]*universe.Candidate)
	var order []Key
	for _, e := range decisions {
		if e.Decision.Kind == Use || e.Decision.Kind == Keep {
			planned[e.Key] = e.Decision.Candidate
			order = append(order, e.Key)
		}
	}

	root := sat.NewVariable(targetsIdentifier, sat.Mandatory())
	input := []sat.Variable{root}
	owners := make(map[Key]*sat.GenericVariable, len(order))
	var encoded []*universe.Candidate
	seen := make(map[string]bool)

	for _, key := range order {
		candidates, err := provider.CandidatesFor(ctx, key.Name)
		if err != nil {
			return fmt.Errorf("plan check: %w", err)
		}
		slot := append([]*universe.Candidate{planned[key]}, search.Filter(candidates, search.WithSlot(key.Slot))...)

		var ids []sat.Identifier
		for _, c := range slot {
			if seen[c.ID()] {
				continue
			}
			seen[c.ID()] = true
			v := sat.NewVariable(sat.IdentifierFromString(c.ID()))
			if c == planned[key] {
				v.AddConstraint(sat.Mandatory())
				owners[key] = v
			}
			input = append(input, v)
			encoded = append(encoded, c)
			ids = append(ids, v.Identifier())
		}
		root.AddConstraint(sat.AtMost(1, ids...))
	}

	matching := func(c *Constraint) []sat.Identifier {
		var ids []sat.Identifier
		for _, candidate := range search.Filter(encoded, search.MatchingAtom(c.Atom)) {
			ids = append(ids, sat.IdentifierFromString(candidate.ID()))
		}
		return ids
	}

	for _, key := range order {
		for _, c := range store.Get(key).Constraints {
			switch {
			case c.From == nil:
				root.AddConstraint(sat.Dependency(matching(c)...))
			case owners[*c.From] != nil:
				owners[*c.From].AddConstraint(sat.Dependency(matching(c)...))
			}
		}
	}

	s, err := sat.New(sat.WithInput(input))
	if err != nil {
		return fmt.Errorf("plan check: %w", err)
	}
	if _, err := s.Solve(ctx); err != nil {
		return fmt.Errorf("plan check: %w", err)
	}
	return nil
}
