package sat

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/z"
)

const satisfiable = 1

// NotSatisfiable is an error composed of a minimal set of applied
// constraints that is sufficient to make a solution impossible.
type NotSatisfiable []AppliedConstraint

func (e NotSatisfiable) Error() string {
	const msg = "constraints not satisfiable"
	if len(e) == 0 {
		return msg
	}
	s := make([]string, len(e))
	for i, a := range e {
		s[i] = a.String()
	}
	return fmt.Sprintf("%s: %s", msg, strings.Join(s, ", "))
}

// Solver finds a set of variables that satisfies every constraint of its
// input.
type Solver interface {
	Solve(context.Context) ([]Variable, error)
}

type solver struct {
	g      inter.S
	litMap *LitMapping
}

type Option func(s *solver) error

// WithInput sets the problem variables. Their order determines anchor
// order in the search.
func WithInput(input []Variable) Option {
	return func(s *solver) error {
		var err error
		s.litMap, err = NewLitMapping(input)
		return err
	}
}

func New(options ...Option) (Solver, error) {
	s := &solver{g: gini.New()}
	for _, option := range append(options, defaults...) {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

var defaults = []Option{
	func(s *solver) error {
		if s.litMap == nil {
			var err error
			s.litMap, err = NewLitMapping(nil)
			return err
		}
		return nil
	},
}

// Solve takes the anchors (variables with a Mandatory constraint) in input
// order and walks their dependencies breadth first. For each dependency
// that is not already met, the first candidate that keeps the problem
// satisfiable is selected. Everything not selected is left out of the
// solution when possible.
func (s *solver) Solve(ctx context.Context) ([]Variable, error) {
	s.litMap.AddConstraints(s.g)

	if !s.test(nil) {
		return nil, NotSatisfiable(s.litMap.Conflicts(s.g))
	}

	anchors := s.litMap.AnchorIdentifiers()
	selected := make(map[Identifier]struct{}, len(anchors))
	visited := make(map[Identifier]struct{}, len(anchors))
	assumptions := make([]z.Lit, 0, len(anchors))

	queue := make([]Identifier, 0, len(anchors))
	for _, id := range anchors {
		selected[id] = struct{}{}
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var head Identifier
		head, queue = queue[0], queue[1:]
		if _, ok := visited[head]; ok {
			continue
		}
		visited[head] = struct{}{}

		lit := s.litMap.LitOf(head)
		assumptions = append(assumptions, lit)

		for _, constraint := range s.litMap.VariableOf(lit).Constraints() {
			deps := constraint.Order()
			if len(deps) == 0 || anySelected(selected, deps) {
				continue
			}
			for _, dep := range deps {
				candidate := append(assumptions, s.litMap.LitOf(dep))
				if s.test(candidate) {
					assumptions = candidate
					selected[dep] = struct{}{}
					queue = append(queue, dep)
					break
				}
			}
		}
	}

	// leave out everything that was not selected, if the problem allows it
	excluded := make([]z.Lit, 0, len(assumptions))
	excluded = append(excluded, assumptions...)
	for _, m := range s.litMap.Lits(nil) {
		if _, ok := selected[s.litMap.VariableOf(m).Identifier()]; !ok {
			excluded = append(excluded, m.Not())
		}
	}
	if !s.test(excluded) && !s.test(assumptions) {
		return nil, fmt.Errorf("selected variables are no longer satisfiable")
	}

	if err := s.litMap.Error(); err != nil {
		return nil, err
	}
	return s.litMap.Variables(s.g), nil
}

func (s *solver) test(assumptions []z.Lit) bool {
	s.litMap.AssumeConstraints(s.g)
	s.g.Assume(assumptions...)
	return s.g.Solve() == satisfiable
}

func anySelected(selected map[Identifier]struct{}, ids []Identifier) bool {
	for _, id := range ids {
		if _, ok := selected[id]; ok {
			return true
		}
	}
	return false
}
