package resolver

import (
	"fmt"

	"github.com/perdasilva/depres/pkg/depspec"
	"github.com/perdasilva/depres/pkg/universe"
)

// Key identifies a resolution: one package name in one slot.
type Key struct {
	Name string
	Slot string
}

// RootKey is the pseudo resolution that failures of the target string
// itself (such as an empty || ( ) group) are attributed to.
var RootKey = Key{Name: "<targets>"}

func (k Key) String() string {
	if k.Slot == "" {
		return k.Name
	}
	return k.Name + ":" + k.Slot
}

type Status int

const (
	StatusUnresolved Status = iota
	StatusDecided
	StatusConflicted
	StatusFailed
)

var statusNames = map[Status]string{
	StatusUnresolved: "unresolved",
	StatusDecided:    "decided",
	StatusConflicted: "conflicted",
	StatusFailed:     "failed",
}

func (s Status) String() string {
	return statusNames[s]
}

// Constraint is one edge of demand on a resolution.
type Constraint struct {
	// From is the resolution whose dependencies produced the constraint,
	// nil for the targets.
	From *Key
	// Depender is the candidate chosen for From when the constraint was
	// made, nil for the targets.
	Depender *universe.Candidate
	Atom     *depspec.Atom
	// ViaConditional is set when a satisfied flag? ( ) group led here.
	ViaConditional bool

	origin *choicePoint
}

func (c *Constraint) String() string {
	if c.Depender == nil {
		return fmt.Sprintf("%s (target)", c.Atom)
	}
	if c.ViaConditional {
		return fmt.Sprintf("%s (conditionally required by %s)", c.Atom, c.Depender.ID())
	}
	return fmt.Sprintf("%s (required by %s)", c.Atom, c.Depender.ID())
}

// Resolution is the resolver's working state for one Key.
type Resolution struct {
	Key         Key
	Candidate   *universe.Candidate
	Constraints []*Constraint
	Status      Status
	// Restarts counts how often a conflict on this key restarted the run.
	Restarts int
	// Reason explains a Failed status.
	Reason string
}

// SatisfiedBy reports whether c meets every constraint of r.
func (r *Resolution) SatisfiedBy(c *universe.Candidate) bool {
	for _, constraint := range r.Constraints {
		if !universe.Matches(constraint.Atom, c) {
			return false
		}
	}
	return true
}

func (r *Resolution) String() string {
	if r.Candidate == nil {
		return fmt.Sprintf("%s [%s]", r.Key, r.Status)
	}
	return fmt.Sprintf("%s [%s %s]", r.Key, r.Status, r.Candidate.ID())
}
