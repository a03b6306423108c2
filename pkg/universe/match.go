package universe

import (
	"github.com/perdasilva/depres/pkg/depspec"
	"github.com/perdasilva/depres/pkg/version"
)

// Matches reports whether candidate c satisfies atom a. Checks run in a
// fixed order and stop at the first that fails.
func Matches(a *depspec.Atom, c *Candidate) bool {
	if a.Name != c.Name {
		return false
	}
	if a.Version != nil && !matchesVersion(a, c.Version) {
		return false
	}
	if a.Slot != "" && a.Slot != c.Slot {
		return false
	}
	if a.Repository != "" && a.Repository != c.Repository {
		return false
	}
	for _, req := range a.Flags {
		if c.Flag(req.Flag) != req.Enabled {
			return false
		}
	}
	return true
}

func matchesVersion(a *depspec.Atom, v version.Spec) bool {
	want := *a.Version
	switch a.Operator {
	case depspec.OpEqual:
		if a.Wildcard {
			return v.HasPrefix(want)
		}
		return version.Compare(v, want) == 0
	case depspec.OpTilde:
		return v.EqualIgnoringRevision(want)
	case depspec.OpLess:
		return version.Compare(v, want) < 0
	case depspec.OpLessEqual:
		return version.Compare(v, want) <= 0
	case depspec.OpGreater:
		return version.Compare(v, want) > 0
	case depspec.OpGreaterEqual:
		return version.Compare(v, want) >= 0
	}
	return false
}
