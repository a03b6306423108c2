package search

import (
	"github.com/perdasilva/depres/pkg/depspec"
	"github.com/perdasilva/depres/pkg/universe"
)

func And(predicates ...universe.Predicate) universe.Predicate {
	return func(c *universe.Candidate) bool {
		eval := true
		for _, predicate := range predicates {
			eval = eval && predicate(c)
			if !eval {
				return false
			}
		}
		return eval
	}
}

func Or(predicates ...universe.Predicate) universe.Predicate {
	return func(c *universe.Candidate) bool {
		eval := false
		for _, predicate := range predicates {
			eval = eval || predicate(c)
			if eval {
				return true
			}
		}
		return eval
	}
}

func Not(predicate universe.Predicate) universe.Predicate {
	return func(c *universe.Candidate) bool {
		return !predicate(c)
	}
}

func WithName(name string) universe.Predicate {
	return func(c *universe.Candidate) bool {
		return c.Name == name
	}
}

func WithSlot(slot string) universe.Predicate {
	return func(c *universe.Candidate) bool {
		return c.Slot == slot
	}
}

func WithID(id string) universe.Predicate {
	return func(c *universe.Candidate) bool {
		return c.ID() == id
	}
}

func Installed() universe.Predicate {
	return func(c *universe.Candidate) bool {
		return c.Installed
	}
}

// MatchingAtom selects candidates that satisfy a.
func MatchingAtom(a *depspec.Atom) universe.Predicate {
	return func(c *universe.Candidate) bool {
		return universe.Matches(a, c)
	}
}

// Filter returns the candidates for which predicate holds, keeping their
// order.
func Filter(candidates []*universe.Candidate, predicate universe.Predicate) []*universe.Candidate {
	out := make([]*universe.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if predicate(c) {
			out = append(out, c)
		}
	}
	return out
}
