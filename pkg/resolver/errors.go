package resolver

import (
	"fmt"
	"strings"
)

// ResolutionError explains why one resolution could not be satisfied.
type ResolutionError struct {
	Key    Key
	Reason string
	// Trail follows the demand back towards the targets: the first
	// constraint is on Key, the next is on the resolution that made it.
	Trail []*Constraint
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Reason)
}

// Explain renders the error with its trail, for example
// "lib:0: no candidate matches >=lib-9, required by app-1:0, which is
// required by the targets".
func (e *ResolutionError) Explain() string {
	var b strings.Builder
	b.WriteString(e.Error())
	for i, c := range e.Trail {
		if i == 0 {
			b.WriteString(", required by ")
		} else {
			b.WriteString(", which is required by ")
		}
		if c.Depender == nil {
			b.WriteString("the targets")
			break
		}
		b.WriteString(c.Depender.ID())
	}
	return b.String()
}

// UnsatisfiableError aggregates every failed resolution of a Resolve call.
// It is returned together with the Result.
type UnsatisfiableError struct {
	Errors []*ResolutionError
}

func (e *UnsatisfiableError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("unsatisfiable: %s", e.Errors[0])
	}
	s := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		s[i] = err.Error()
	}
	return fmt.Sprintf("%d resolutions unsatisfiable: %s", len(e.Errors), strings.Join(s, "; "))
}

// restartError unwinds the current run so that it can be started again
// with more knowledge about key.
type restartError struct {
	key Key
}

func (e *restartError) Error() string {
	return fmt.Sprintf("restart required for %s", e.key)
}

// trail walks from the first constraint on r towards the targets.
func trail(store *Store, r *Resolution) []*Constraint {
	var out []*Constraint
	seen := map[Key]bool{r.Key: true}
	for current := r; current != nil && len(current.Constraints) > 0; {
		c := current.Constraints[0]
		out = append(out, c)
		if c.From == nil || seen[*c.From] {
			break
		}
		seen[*c.From] = true
		current = store.Get(*c.From)
	}
	return out
}
