package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/perdasilva/depres/pkg/depspec"
	"github.com/perdasilva/depres/pkg/sat"
	"github.com/perdasilva/depres/pkg/universe"
	"github.com/perdasilva/depres/pkg/universe/source"
)

// Encodes a whole catalog as one SAT problem and solves it for a target,
// for comparing against the resolver's plan on the same catalog.
//
//	go run ./hack <catalog> <target...>
func main() {
	if len(os.Args) < 3 {
		log.Fatalf("usage: %s <catalog> <target...>", os.Args[0])
	}
	ctx := context.Background()

	cat, err := source.LoadFile(os.Args[1])
	if err != nil {
		log.Fatalf("error loading catalog (%s): %s", os.Args[1], err)
	}
	g := depspec.MustGrammar(depspec.GrammarPaludis1)
	u, err := source.LoadUniverse(ctx, g, cat)
	if err != nil {
		log.Fatalf("error building universe: %s", err)
	}
	target, err := depspec.Parse(strings.Join(os.Args[2:], " "), g)
	if err != nil {
		log.Fatalf("error parsing target: %s", err)
	}

	variables, err := universeToVariables(ctx, u, target)
	if err != nil {
		log.Fatalf("error encoding catalog: %s", err)
	}

	satSolver, err := sat.New(sat.WithInput(variables))
	if err != nil {
		log.Fatalf("error building solver: %s", err)
	}
	solution, err := satSolver.Solve(ctx)
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, v := range solution {
		fmt.Println(v.Identifier())
	}
}

const targetID = sat.Identifier("<targets>")

func universeToVariables(ctx context.Context, u *universe.Universe, target *depspec.AllOf) ([]sat.Variable, error) {
	byKey := map[string][]sat.Identifier{}
	all := u.AllCandidates().Sort(universe.ByVersionDescending)

	root := sat.NewVariable(targetID, sat.Mandatory())
	root.AddConstraint(encode(u, nil, target))
	variables := []sat.Variable{root}

	for _, c := range all {
		byKey[c.Name+":"+c.Slot] = append(byKey[c.Name+":"+c.Slot], sat.IdentifierFromString(c.ID()))
	}

	for _, c := range all {
		deps, err := u.DeclaredDependencies(ctx, c)
		if err != nil {
			return nil, err
		}
		id := sat.IdentifierFromString(c.ID())
		v := sat.NewVariable(id, encode(u, c, deps))
		// one candidate per slot
		for _, other := range byKey[c.Name+":"+c.Slot] {
			if other != id {
				v.AddConstraint(sat.Conflict(other))
			}
		}
		variables = append(variables, v)
	}
	return variables, nil
}

// encode turns a dependency tree into a constraint on the candidate that
// declares it. Conditionals are decided up front from the candidate's
// flags; the target string sees every flag disabled.
func encode(u *universe.Universe, c *universe.Candidate, node depspec.Node) sat.Constraint {
	switch n := node.(type) {
	case *depspec.Atom:
		var ids []sat.Identifier
		for _, m := range u.Search(func(other *universe.Candidate) bool { return universe.Matches(n, other) }).Sort(universe.ByVersionDescending) {
			ids = append(ids, sat.IdentifierFromString(m.ID()))
		}
		return sat.Dependency(ids...)
	case *depspec.AnyOf:
		if len(n.Children) == 0 {
			return sat.Prohibited()
		}
		return sat.Or(encodeAll(u, c, n.Children)...)
	case *depspec.Conditional:
		enabled := c != nil && u.FlagState(c, n.Flag)
		if enabled == n.Negated {
			return sat.And()
		}
		return sat.And(encodeAll(u, c, n.Children)...)
	}
	return sat.And(encodeAll(u, c, depspec.Children(node))...)
}

func encodeAll(u *universe.Universe, c *universe.Candidate, nodes []depspec.Node) []sat.Constraint {
	out := make([]sat.Constraint, len(nodes))
	for i, node := range nodes {
		out[i] = encode(u, c, node)
	}
	return out
}
