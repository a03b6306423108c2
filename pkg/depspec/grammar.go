package depspec

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownGrammar is returned by LookupGrammar for names it does not know.
var ErrUnknownGrammar = errors.New("unknown grammar")

// Grammar names understood by LookupGrammar.
const (
	GrammarZero     = "0"
	GrammarOne      = "1"
	GrammarTwo      = "2"
	GrammarPaludis1 = "paludis-1"
)

// Grammar is the set of nesting and atom rules a dependency string is
// parsed under. Values are plain data and are passed explicitly to Parse.
type Grammar struct {
	Name string

	// ConditionalsInAnyOf permits `|| ( flag? ( ... ) )` without an
	// intervening ( ... ) group.
	ConditionalsInAnyOf bool

	// EmptyAnyOf permits `|| ( )`. Such a group can never be satisfied.
	EmptyAnyOf bool

	Slots            bool
	Repositories     bool
	FlagRequirements bool
}

var grammars = map[string]Grammar{
	GrammarZero: {
		Name:                GrammarZero,
		ConditionalsInAnyOf: true,
		EmptyAnyOf:          true,
		Slots:               true,
	},
	GrammarOne: {
		Name:                GrammarOne,
		ConditionalsInAnyOf: true,
		EmptyAnyOf:          true,
		Slots:               true,
	},
	GrammarTwo: {
		Name:                GrammarTwo,
		ConditionalsInAnyOf: true,
		EmptyAnyOf:          true,
		Slots:               true,
		FlagRequirements:    true,
	},
	GrammarPaludis1: {
		Name:             GrammarPaludis1,
		Slots:            true,
		Repositories:     true,
		FlagRequirements: true,
	},
}

// LookupGrammar returns a copy of the named grammar.
func LookupGrammar(name string) (Grammar, error) {
	g, ok := grammars[name]
	if !ok {
		return Grammar{}, fmt.Errorf("%w %q", ErrUnknownGrammar, name)
	}
	return g, nil
}

// MustGrammar is like LookupGrammar but panics on unknown names.
func MustGrammar(name string) Grammar {
	g, err := LookupGrammar(name)
	if err != nil {
		panic(err)
	}
	return g
}

// GrammarNames lists the known grammar names in sorted order.
func GrammarNames() []string {
	names := make([]string, 0, len(grammars))
	for name := range grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
