package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perdasilva/depres/pkg/depspec"
	"github.com/perdasilva/depres/pkg/universe"
	"github.com/perdasilva/depres/pkg/version"
)

func pkg(name, v, depend string) *universe.Candidate {
	return &universe.Candidate{
		Name:       name,
		Version:    version.MustParse(v),
		Slot:       "0",
		Repository: "gentoo",
		Depend:     depend,
	}
}

func withFlags(c *universe.Candidate, flags map[string]bool) *universe.Candidate {
	c.Flags = flags
	return c
}

func testUniverse(candidates ...*universe.Candidate) *universe.Universe {
	return universe.NewUniverse(depspec.MustGrammar(depspec.GrammarPaludis1), candidates...)
}

type decided struct {
	Kind      DecisionKind
	Candidate string
}

func summarize(res *Result) []decided {
	var out []decided
	for _, e := range res.Decisions {
		d := decided{Kind: e.Decision.Kind}
		if e.Decision.Candidate != nil {
			d.Candidate = e.Decision.Candidate.ID()
		}
		out = append(out, d)
	}
	return out
}

func findResolution(res *Result, name string) *Resolution {
	for _, r := range res.Resolutions {
		if r.Key.Name == name {
			return r
		}
	}
	return nil
}

func TestResolve(t *testing.T) {
	type tc struct {
		Name     string
		Universe []*universe.Candidate
		Targets  []string
		Options  []Option
		Expected []decided
		Restarts int
	}

	for _, tt := range []tc{
		{
			Name:     "no targets",
			Universe: []*universe.Candidate{pkg("dev-libs/lib", "1", "")},
		},
		{
			Name: "dependencies come first",
			Universe: []*universe.Candidate{
				pkg("app-misc/app", "1", "dev-libs/lib"),
				pkg("dev-libs/lib", "1", ""),
				pkg("dev-libs/lib", "2", ""),
			},
			Targets: []string{"app-misc/app"},
			Expected: []decided{
				{Kind: Use, Candidate: "dev-libs/lib-2:0::gentoo"},
				{Kind: Use, Candidate: "app-misc/app-1:0::gentoo"},
			},
		},
		{
			Name: "version operators select the highest match",
			Universe: []*universe.Candidate{
				pkg("dev-libs/lib", "1", ""),
				pkg("dev-libs/lib", "2", ""),
				pkg("dev-libs/lib", "3", ""),
			},
			Targets: []string{"<dev-libs/lib-3"},
			Expected: []decided{
				{Kind: Use, Candidate: "dev-libs/lib-2:0::gentoo"},
			},
		},
		{
			Name: "shared dependency is decided once",
			Universe: []*universe.Candidate{
				pkg("app-misc/a", "1", "dev-libs/lib"),
				pkg("app-misc/b", "1", ">=dev-libs/lib-1"),
				pkg("dev-libs/lib", "1", ""),
			},
			Targets: []string{"app-misc/a", "app-misc/b"},
			Expected: []decided{
				{Kind: Use, Candidate: "dev-libs/lib-1:0::gentoo"},
				{Kind: Use, Candidate: "app-misc/a-1:0::gentoo"},
				{Kind: Use, Candidate: "app-misc/b-1:0::gentoo"},
			},
		},
		{
			Name: "conflict restarts with the remembered constraints",
			Universe: []*universe.Candidate{
				pkg("app-misc/other", "1", "<dev-libs/lib-3"),
				pkg("dev-libs/lib", "1", ""),
				pkg("dev-libs/lib", "2", ""),
				pkg("dev-libs/lib", "3", ""),
			},
			Targets: []string{"dev-libs/lib", "app-misc/other"},
			Expected: []decided{
				{Kind: Use, Candidate: "dev-libs/lib-2:0::gentoo"},
				{Kind: Use, Candidate: "app-misc/other-1:0::gentoo"},
			},
			Restarts: 1,
		},
		{
			Name: "any-of prefers an alternative that fits earlier decisions",
			Universe: []*universe.Candidate{
				pkg("dev-libs/lib", "1", ""),
				pkg("dev-libs/lib", "2", ""),
				pkg("dev-libs/other", "1", ""),
			},
			Targets: []string{"=dev-libs/lib-2", "|| ( =dev-libs/lib-1 dev-libs/other )"},
			Expected: []decided{
				{Kind: Use, Candidate: "dev-libs/lib-2:0::gentoo"},
				{Kind: Use, Candidate: "dev-libs/other-1:0::gentoo"},
			},
		},
		{
			Name: "conditional follows the depender's flags",
			Universe: []*universe.Candidate{
				withFlags(pkg("app-misc/app", "1", "ssl? ( dev-libs/openssl ) !ssl? ( dev-libs/nettle )"), map[string]bool{"ssl": true}),
				pkg("dev-libs/openssl", "3", ""),
				pkg("dev-libs/nettle", "3", ""),
			},
			Targets: []string{"app-misc/app"},
			Expected: []decided{
				{Kind: Use, Candidate: "dev-libs/openssl-3:0::gentoo"},
				{Kind: Use, Candidate: "app-misc/app-1:0::gentoo"},
			},
		},
		{
			Name: "root conditionals follow root flags",
			Universe: []*universe.Candidate{
				pkg("dev-libs/openssl", "3", ""),
				pkg("dev-libs/nettle", "3", ""),
			},
			Targets: []string{"ssl? ( dev-libs/openssl ) !ssl? ( dev-libs/nettle )"},
			Options: []Option{WithRootFlags(map[string]bool{"ssl": false})},
			Expected: []decided{
				{Kind: Use, Candidate: "dev-libs/nettle-3:0::gentoo"},
			},
		},
		{
			Name: "flag requirements filter candidates",
			Universe: []*universe.Candidate{
				withFlags(pkg("dev-libs/lib", "2", ""), map[string]bool{"static": false}),
				withFlags(pkg("dev-libs/lib", "1", ""), map[string]bool{"static": true}),
			},
			Targets: []string{"dev-libs/lib[static]"},
			Expected: []decided{
				{Kind: Use, Candidate: "dev-libs/lib-1:0::gentoo"},
			},
		},
		{
			Name: "plan check accepts a consistent plan",
			Universe: []*universe.Candidate{
				pkg("app-misc/app", "1", "dev-libs/lib || ( dev-libs/x dev-libs/y )"),
				pkg("dev-libs/lib", "1", ""),
				pkg("dev-libs/y", "1", ""),
			},
			Targets: []string{"app-misc/app"},
			Options: []Option{WithPlanCheck(true)},
			Expected: []decided{
				{Kind: Use, Candidate: "dev-libs/lib-1:0::gentoo"},
				{Kind: Use, Candidate: "dev-libs/y-1:0::gentoo"},
				{Kind: Use, Candidate: "app-misc/app-1:0::gentoo"},
			},
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			r := New(testUniverse(tt.Universe...), tt.Options...)
			res, err := r.Resolve(context.Background(), tt.Targets...)
			require.NoError(t, err)
			assert.Equal(t, tt.Expected, summarize(res))
			assert.Equal(t, tt.Restarts, res.Restarts)
			assert.Empty(t, res.Cycles)
		})
	}
}

func TestResolveAnyOfRetryRollsBackFirstAlternative(t *testing.T) {
	u := testUniverse(
		pkg("app-misc/app", "1", ">=dev-libs/lib-2"),
		pkg("dev-libs/lib", "1", ""),
		pkg("dev-libs/lib", "2", ""),
	)

	res, err := New(u).Resolve(context.Background(), "|| ( =dev-libs/lib-1 =dev-libs/lib-2 ) app-misc/app")
	require.NoError(t, err)
	assert.Equal(t, []decided{
		{Kind: Use, Candidate: "dev-libs/lib-2:0::gentoo"},
		{Kind: Use, Candidate: "app-misc/app-1:0::gentoo"},
	}, summarize(res))
	assert.Zero(t, res.Restarts)

	lib := findResolution(res, "dev-libs/lib")
	require.NotNil(t, lib)
	var atoms []string
	for _, c := range lib.Constraints {
		atoms = append(atoms, c.Atom.String())
	}
	assert.ElementsMatch(t, []string{"=dev-libs/lib-2", ">=dev-libs/lib-2"}, atoms)
}

func TestResolveAnyOfRetriesAreBounded(t *testing.T) {
	u := testUniverse(
		pkg("app-misc/app", "1", ">=dev-libs/lib-2"),
		pkg("dev-libs/lib", "1", ""),
		pkg("dev-libs/lib", "2", ""),
	)

	res, err := New(u, WithMaxAnyOfRetries(0)).Resolve(context.Background(), "|| ( =dev-libs/lib-1 =dev-libs/lib-2 ) app-misc/app")
	var unsat *UnsatisfiableError
	require.True(t, errors.As(err, &unsat))
	require.NotNil(t, res)

	lib := Key{Name: "dev-libs/lib", Slot: "0"}
	require.Len(t, unsat.Errors, 1)
	assert.Equal(t, lib, unsat.Errors[0].Key)
	d, ok := res.Lookup(lib)
	require.True(t, ok)
	assert.Equal(t, Unsatisfiable, d.Kind)
}

func TestRunDefersConditionalUntilOwnerIsDecided(t *testing.T) {
	app := withFlags(pkg("app-misc/app", "1", ""), map[string]bool{"ssl": true})
	u := testUniverse(app, pkg("dev-libs/openssl", "3", ""))
	ctx := context.Background()
	rn := New(u).newRun(zap.NewNop(), make(map[Key][]*depspec.Atom), make(map[Key]int))

	owner := Key{Name: "app-misc/app", Slot: "0"}
	rn.store.GetOrCreate(owner)
	conditional := depspec.MustParse("ssl? ( dev-libs/openssl )", depspec.MustGrammar(depspec.GrammarPaludis1)).Children[0]
	require.NoError(t, rn.process(ctx, workItem{node: conditional, owner: &owner, depender: app}))
	assert.Empty(t, rn.queue)
	assert.Len(t, rn.deferred[owner], 1)

	atom, err := depspec.ParseAtom("app-misc/app", depspec.MustGrammar(depspec.GrammarPaludis1))
	require.NoError(t, err)
	require.NoError(t, rn.decide(ctx, owner, app, &Constraint{Atom: atom}))
	assert.Empty(t, rn.deferred)
	require.NoError(t, rn.drain(ctx))

	openssl := rn.store.Get(Key{Name: "dev-libs/openssl", Slot: "0"})
	require.NotNil(t, openssl)
	assert.Equal(t, StatusDecided, openssl.Status)
	require.Len(t, openssl.Constraints, 1)
	assert.True(t, openssl.Constraints[0].ViaConditional)
	assert.Equal(t, owner, *openssl.Constraints[0].From)
}

func TestResolveRestartCountsOnResolution(t *testing.T) {
	u := testUniverse(
		pkg("app-misc/other", "1", "<dev-libs/lib-3"),
		pkg("dev-libs/lib", "2", ""),
		pkg("dev-libs/lib", "3", ""),
	)

	res, err := New(u).Resolve(context.Background(), "dev-libs/lib", "app-misc/other")
	require.NoError(t, err)
	lib := findResolution(res, "dev-libs/lib")
	require.NotNil(t, lib)
	assert.Equal(t, 1, lib.Restarts)
	assert.Equal(t, "dev-libs/lib-2:0::gentoo", lib.Candidate.ID())
}

func TestResolveRestartsAreBounded(t *testing.T) {
	u := testUniverse(
		pkg("app-misc/other", "1", "<dev-libs/lib-3"),
		pkg("dev-libs/lib", "2", ""),
		pkg("dev-libs/lib", "3", ""),
	)

	res, err := New(u, WithMaxRestarts(0)).Resolve(context.Background(), "dev-libs/lib", "app-misc/other")
	var unsat *UnsatisfiableError
	require.True(t, errors.As(err, &unsat))
	require.NotNil(t, res)
	assert.Zero(t, res.Restarts)
	require.Len(t, unsat.Errors, 1)
	assert.Equal(t, Key{Name: "dev-libs/lib", Slot: "0"}, unsat.Errors[0].Key)
}

func TestResolveUnsatisfiable(t *testing.T) {
	u := testUniverse(
		pkg("app-misc/app", "1", ">=dev-libs/lib-9"),
		pkg("dev-libs/lib", "1", ""),
	)

	res, err := New(u).Resolve(context.Background(), "app-misc/app")
	require.NotNil(t, res)

	var unsat *UnsatisfiableError
	require.True(t, errors.As(err, &unsat))
	require.Len(t, unsat.Errors, 1)
	failure := unsat.Errors[0]
	assert.Equal(t, Key{Name: "dev-libs/lib"}, failure.Key)
	assert.Equal(t,
		"dev-libs/lib: no candidate matches >=dev-libs/lib-9, required by app-misc/app-1:0::gentoo, which is required by the targets",
		failure.Explain())

	assert.Equal(t, []decided{
		{Kind: Unsatisfiable},
		{Kind: Use, Candidate: "app-misc/app-1:0::gentoo"},
	}, summarize(res))
}

func TestResolveSkipsDependenciesOfFailedResolutions(t *testing.T) {
	u := testUniverse(
		pkg("app-misc/app", "1", "dev-libs/lib"),
		pkg("dev-libs/lib", "1", "dev-libs/deeper"),
		pkg("dev-libs/deeper", "1", ""),
	)

	res, err := New(u).Resolve(context.Background(), "app-misc/app >=app-misc/app-5")
	var unsat *UnsatisfiableError
	require.True(t, errors.As(err, &unsat))

	decision, ok := res.Lookup(Key{Name: "app-misc/app", Slot: "0"})
	require.True(t, ok)
	assert.Equal(t, Unsatisfiable, decision.Kind)

	decision, ok = res.Lookup(Key{Name: "dev-libs/lib", Slot: "0"})
	require.True(t, ok)
	assert.Equal(t, Skipped, decision.Kind)

	decision, ok = res.Lookup(Key{Name: "dev-libs/deeper", Slot: "0"})
	require.True(t, ok)
	assert.Equal(t, Skipped, decision.Kind)

	assert.Empty(t, res.Plan())
}

func TestResolveEmptyAnyOfFails(t *testing.T) {
	u := testUniverse(pkg("dev-libs/lib", "1", ""))

	res, err := New(u, WithGrammar(depspec.MustGrammar(depspec.GrammarZero))).Resolve(context.Background(), "|| ( )")
	var unsat *UnsatisfiableError
	require.True(t, errors.As(err, &unsat))
	require.Len(t, unsat.Errors, 1)
	assert.Equal(t, RootKey, unsat.Errors[0].Key)

	decision, ok := res.Lookup(RootKey)
	require.True(t, ok)
	assert.Equal(t, Unsatisfiable, decision.Kind)
}

func TestResolveKeepsInstalled(t *testing.T) {
	for _, tt := range []struct {
		Name     string
		Prefer   bool
		Expected decided
	}{
		{Name: "prefer installed", Prefer: true, Expected: decided{Kind: Keep, Candidate: "dev-libs/lib-1:0::gentoo"}},
		{Name: "prefer newest", Prefer: false, Expected: decided{Kind: Use, Candidate: "dev-libs/lib-2:0::gentoo"}},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			old := pkg("dev-libs/lib", "1", "")
			u := testUniverse(old, pkg("dev-libs/lib", "2", ""))
			u.SetInstalled(old)

			res, err := New(u, WithPreferInstalled(tt.Prefer)).Resolve(context.Background(), "dev-libs/lib")
			require.NoError(t, err)
			assert.Equal(t, []decided{tt.Expected}, summarize(res))
		})
	}
}

func TestResolveIsAFixpoint(t *testing.T) {
	u := testUniverse(
		pkg("app-misc/app", "1", "|| ( dev-libs/a dev-libs/b ) ssl? ( dev-libs/openssl )"),
		pkg("app-misc/app", "2", "|| ( ( dev-libs/a >=dev-libs/c-2 ) dev-libs/b ) dev-libs/c"),
		pkg("dev-libs/a", "1", "dev-libs/c"),
		pkg("dev-libs/b", "1", ""),
		pkg("dev-libs/c", "1", ""),
		pkg("dev-libs/c", "2", ""),
	)
	r := New(u)

	first, err := r.Resolve(context.Background(), "app-misc/app")
	require.NoError(t, err)
	var ids []string
	for _, c := range first.Plan() {
		ids = append(ids, c.ID())
		u.SetInstalled(c)
	}

	second, err := r.Resolve(context.Background(), "app-misc/app")
	require.NoError(t, err)
	var again []string
	for _, e := range second.Decisions {
		assert.Equal(t, Keep, e.Decision.Kind, e.Key.String())
		again = append(again, e.Decision.Candidate.ID())
	}
	assert.Equal(t, ids, again)
}

func TestResolveReportsCycles(t *testing.T) {
	u := testUniverse(
		pkg("dev-libs/a", "1", "dev-libs/b"),
		pkg("dev-libs/b", "1", "dev-libs/a"),
	)

	res, err := New(u).Resolve(context.Background(), "dev-libs/a")
	require.NoError(t, err)
	require.Len(t, res.Cycles, 1)
	assert.Equal(t, "dev-libs/a:0 -> dev-libs/b:0 -> dev-libs/a:0", res.Cycles[0].String())
	assert.Equal(t, []decided{
		{Kind: Use, Candidate: "dev-libs/b-1:0::gentoo"},
		{Kind: Use, Candidate: "dev-libs/a-1:0::gentoo"},
	}, summarize(res))
}

func TestResolveParseError(t *testing.T) {
	res, err := New(testUniverse()).Resolve(context.Background(), "(((")
	assert.Nil(t, res)
	var parseErr *depspec.DepStringError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 2, parseErr.Position)
}

func TestResolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(testUniverse(pkg("dev-libs/lib", "1", ""))).Resolve(ctx, "dev-libs/lib")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

type failingProvider struct {
	universe.Provider
	err error
}

func (p *failingProvider) CandidatesFor(context.Context, string) ([]*universe.Candidate, error) {
	return nil, p.err
}

func TestResolveProviderError(t *testing.T) {
	boom := errors.New("repository unavailable")
	res, err := New(&failingProvider{Provider: testUniverse(), err: boom}).Resolve(context.Background(), "dev-libs/lib")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
}

func TestResolveRunIDsDiffer(t *testing.T) {
	r := New(testUniverse(pkg("dev-libs/lib", "1", "")))
	first, err := r.Resolve(context.Background(), "dev-libs/lib")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "dev-libs/lib")
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
}
