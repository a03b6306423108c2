package universe

import (
	"context"
	"sort"

	"github.com/perdasilva/depres/pkg/depspec"
	"github.com/perdasilva/depres/pkg/version"
)

// Predicate selects candidates in a Search.
type Predicate func(c *Candidate) bool

// Universe is an in-memory package universe. It implements Provider.
type Universe struct {
	candidates map[string]*Candidate
	byName     map[string][]*Candidate
	grammar    depspec.Grammar
}

var _ Provider = &Universe{}

// NewUniverse indexes candidates by ID. Later duplicates replace earlier
// ones. Dependency strings of candidates that do not name a grammar are
// parsed under defaultGrammar.
func NewUniverse(defaultGrammar depspec.Grammar, candidates ...*Candidate) *Universe {
	u := &Universe{
		candidates: make(map[string]*Candidate, len(candidates)),
		byName:     make(map[string][]*Candidate),
		grammar:    defaultGrammar,
	}
	for _, c := range candidates {
		u.add(c)
	}
	return u
}

func (u *Universe) add(c *Candidate) {
	id := c.ID()
	if old, ok := u.candidates[id]; ok {
		siblings := u.byName[old.Name]
		for i := range siblings {
			if siblings[i] == old {
				siblings[i] = c
			}
		}
		u.candidates[id] = c
		return
	}
	u.candidates[id] = c
	u.byName[c.Name] = append(u.byName[c.Name], c)
	sort.SliceStable(u.byName[c.Name], func(i, j int) bool {
		return ByVersionDescending(u.byName[c.Name][i], u.byName[c.Name][j])
	})
}

// Get returns the candidate with the given ID, or nil.
func (u *Universe) Get(id string) *Candidate {
	return u.candidates[id]
}

// Len is the number of candidates in the universe.
func (u *Universe) Len() int {
	return len(u.candidates)
}

// SetInstalled marks c as the installed candidate for its name and slot,
// adding it to the universe if it is not already known. Any candidate
// previously installed in the same slot loses its mark.
func (u *Universe) SetInstalled(c *Candidate) {
	for _, other := range u.byName[c.Name] {
		if other.Slot == c.Slot {
			other.Installed = false
		}
	}
	if known, ok := u.candidates[c.ID()]; ok {
		known.Installed = true
		return
	}
	installed := &Candidate{}
	c.DeepCopyInto(installed)
	installed.Installed = true
	u.add(installed)
}

func (u *Universe) Search(predicate Predicate) SearchResult {
	out := make(SearchResult, 0)
	for _, c := range u.candidates {
		if predicate(c) {
			out = append(out, c)
		}
	}
	return out.Sort(ByID)
}

func (u *Universe) AllCandidates() SearchResult {
	out := make(SearchResult, 0, len(u.candidates))
	for _, c := range u.candidates {
		out = append(out, c)
	}
	return out.Sort(ByID)
}

func (u *Universe) CandidatesFor(_ context.Context, name string) ([]*Candidate, error) {
	out := make([]*Candidate, len(u.byName[name]))
	copy(out, u.byName[name])
	return out, nil
}

func (u *Universe) DeclaredDependencies(_ context.Context, c *Candidate) (*depspec.AllOf, error) {
	return ParseDepend(c, u.grammar)
}

func (u *Universe) FlagState(c *Candidate, flag string) bool {
	return c.Flag(flag)
}

func (u *Universe) InstalledCandidateFor(_ context.Context, name, slot string) (*Candidate, error) {
	for _, c := range u.byName[name] {
		if c.Installed && c.Slot == slot {
			return c, nil
		}
	}
	return nil, nil
}

type SearchResult []*Candidate
type SortFunction func(c1 *Candidate, c2 *Candidate) bool

func (r SearchResult) Sort(fn SortFunction) SearchResult {
	sort.SliceStable(r, func(i, j int) bool {
		return fn(r[i], r[j])
	})
	return r
}

func (r SearchResult) CollectIDs() []string {
	ids := make([]string, len(r))
	for i := range r {
		ids[i] = r[i].ID()
	}
	return ids
}

// ByID orders candidates by ID.
func ByID(c1 *Candidate, c2 *Candidate) bool {
	return c1.ID() < c2.ID()
}

// ByVersionDescending orders the highest version first. Ties are broken by
// slot and then repository so the order is total.
func ByVersionDescending(c1 *Candidate, c2 *Candidate) bool {
	if cmp := version.Compare(c1.Version, c2.Version); cmp != 0 {
		return cmp > 0
	}
	if c1.Slot != c2.Slot {
		return c1.Slot < c2.Slot
	}
	return c1.Repository < c2.Repository
}
