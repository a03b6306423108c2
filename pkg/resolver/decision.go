package resolver

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/perdasilva/depres/pkg/universe"
)

type DecisionKind int

const (
	// Use installs Candidate.
	Use DecisionKind = iota
	// Keep leaves the installed Candidate in place.
	Keep
	// Unsatisfiable means no candidate could meet the resolution's
	// constraints. Reasons says why.
	Unsatisfiable
	// Skipped resolutions were only demanded by dependers that failed.
	Skipped
)

var decisionKindNames = map[DecisionKind]string{
	Use:           "use",
	Keep:          "keep",
	Unsatisfiable: "unsatisfiable",
	Skipped:       "skipped",
}

func (k DecisionKind) String() string {
	return decisionKindNames[k]
}

// Decision is the final outcome for one resolution.
type Decision struct {
	Kind      DecisionKind
	Candidate *universe.Candidate
	Reasons   []string
}

func (d Decision) String() string {
	switch d.Kind {
	case Use, Keep:
		return fmt.Sprintf("%s %s", d.Kind, d.Candidate.ID())
	case Unsatisfiable:
		return fmt.Sprintf("%s: %s", d.Kind, strings.Join(d.Reasons, "; "))
	}
	return d.Kind.String()
}

// Entry pairs a resolution key with its decision.
type Entry struct {
	Key      Key
	Decision Decision
}

// CycleDiagnostic reports a dependency cycle. Path starts and ends with
// the same key.
type CycleDiagnostic struct {
	Path []Key
}

func (c CycleDiagnostic) String() string {
	parts := make([]string, len(c.Path))
	for i, key := range c.Path {
		parts[i] = key.String()
	}
	return strings.Join(parts, " -> ")
}

// Result is the outcome of one Resolve call. Decisions are ordered so that
// dependencies come before their dependers.
type Result struct {
	RunID       uuid.UUID
	Decisions   []Entry
	Resolutions []*Resolution
	Cycles      []CycleDiagnostic
	// Restarts is the number of times the run was started over.
	Restarts int
}

// Plan returns the candidates of every Use and Keep decision, in order.
func (r *Result) Plan() []*universe.Candidate {
	var out []*universe.Candidate
	for _, e := range r.Decisions {
		if e.Decision.Kind == Use || e.Decision.Kind == Keep {
			out = append(out, e.Decision.Candidate)
		}
	}
	return out
}

// Lookup returns the decision for key.
func (r *Result) Lookup(key Key) (Decision, bool) {
	for _, e := range r.Decisions {
		if e.Key == key {
			return e.Decision, true
		}
	}
	return Decision{}, false
}
