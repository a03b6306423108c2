package universe

import (
	"context"
	"fmt"

	"github.com/perdasilva/depres/pkg/depspec"
	"github.com/perdasilva/depres/pkg/version"
)

// Candidate is one concrete, available version of a package.
type Candidate struct {
	Name       string
	Version    version.Spec
	Slot       string
	Repository string

	// Depend is the declared dependency string, parsed under Grammar.
	Depend  string
	Grammar string

	Flags     map[string]bool
	Installed bool
}

// ID uniquely names the candidate within a universe.
func (c *Candidate) ID() string {
	id := fmt.Sprintf("%s-%s:%s", c.Name, c.Version, c.Slot)
	if c.Repository != "" {
		id += "::" + c.Repository
	}
	return id
}

func (c *Candidate) String() string {
	return c.ID()
}

// Flag reports the state of flag on c. Unknown flags are disabled.
func (c *Candidate) Flag(flag string) bool {
	return c.Flags[flag]
}

// DeepCopyInto copies c into out.
func (c *Candidate) DeepCopyInto(out *Candidate) {
	*out = *c
	flags := make(map[string]bool, len(c.Flags))
	for key, value := range c.Flags {
		flags[key] = value
	}
	out.Flags = flags
}

// Provider is the narrow query interface the resolver uses to learn about
// the package universe. Implementations must answer repeat queries
// identically for the duration of one resolve call.
type Provider interface {
	// CandidatesFor returns every candidate named name, in any order.
	CandidatesFor(ctx context.Context, name string) ([]*Candidate, error)
	// DeclaredDependencies returns the parsed dependency tree of c.
	DeclaredDependencies(ctx context.Context, c *Candidate) (*depspec.AllOf, error)
	// FlagState reports whether flag is enabled for c.
	FlagState(c *Candidate, flag string) bool
	// InstalledCandidateFor returns the installed candidate for name and
	// slot, or nil if nothing is installed there.
	InstalledCandidateFor(ctx context.Context, name, slot string) (*Candidate, error)
}

// ParseDepend parses c.Depend under c's grammar, falling back to
// defaultGrammar when c names none.
func ParseDepend(c *Candidate, defaultGrammar depspec.Grammar) (*depspec.AllOf, error) {
	g := defaultGrammar
	if c.Grammar != "" {
		var err error
		if g, err = depspec.LookupGrammar(c.Grammar); err != nil {
			return nil, fmt.Errorf("candidate %s: %w", c.ID(), err)
		}
	}
	tree, err := depspec.Parse(c.Depend, g)
	if err != nil {
		return nil, fmt.Errorf("candidate %s: %w", c.ID(), err)
	}
	return tree, nil
}
