package depspec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perdasilva/depres/pkg/version"
)

func atom(name string) *Atom {
	return &Atom{Name: name}
}

func TestParse(t *testing.T) {
	permissive := MustGrammar(GrammarZero)

	type tc struct {
		Name     string
		Input    string
		Expected *AllOf
	}

	for _, tt := range []tc{
		{
			Name:     "empty input",
			Input:    "",
			Expected: &AllOf{Children: []Node{}},
		},
		{
			Name:     "blank input",
			Input:    "   \n\t",
			Expected: &AllOf{Children: []Node{}},
		},
		{
			Name:     "single atom",
			Input:    "app-editors/vim",
			Expected: &AllOf{Children: []Node{atom("app-editors/vim")}},
		},
		{
			Name:  "versioned atom with slot",
			Input: ">=app-editors/vim-6.4_alpha:one",
			Expected: &AllOf{Children: []Node{&Atom{
				Name:     "app-editors/vim",
				Operator: OpGreaterEqual,
				Version:  versionPtr("6.4_alpha"),
				Slot:     "one",
			}}},
		},
		{
			Name:  "any of",
			Input: "|| ( one/one two/two )",
			Expected: &AllOf{Children: []Node{
				&AnyOf{Children: []Node{atom("one/one"), atom("two/two")}},
			}},
		},
		{
			Name:  "nested groups",
			Input: "( one/one ( two/two ) )",
			Expected: &AllOf{Children: []Node{
				&AllOf{Children: []Node{
					atom("one/one"),
					&AllOf{Children: []Node{atom("two/two")}},
				}},
			}},
		},
		{
			Name:  "conditional and negated conditional",
			Input: "foo? ( one/one ) !bar? ( two/two )",
			Expected: &AllOf{Children: []Node{
				&Conditional{Flag: "foo", Children: []Node{atom("one/one")}},
				&Conditional{Flag: "bar", Negated: true, Children: []Node{atom("two/two")}},
			}},
		},
		{
			Name:  "newlines are whitespace",
			Input: "one/one\n\ttwo/two\r\n",
			Expected: &AllOf{Children: []Node{
				atom("one/one"), atom("two/two"),
			}},
		},
		{
			Name:  "empty any of is accepted by permissive grammars",
			Input: "|| ( )",
			Expected: &AllOf{Children: []Node{
				&AnyOf{Children: []Node{}},
			}},
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			got, err := Parse(tt.Input, permissive)
			require.NoError(t, err)
			assert.True(t, Equal(tt.Expected, got), "expected %q, got %q", Format(tt.Expected), Format(got))
		})
	}
}

func TestParseConditionalInsideAnyOf(t *testing.T) {
	strict := MustGrammar(GrammarPaludis1)
	permissive := MustGrammar(GrammarZero)

	bare := "|| ( one/one foo? ( two/two ) )"
	wrapped := "|| ( one/one ( foo? ( two/two ) ) )"

	_, err := Parse(bare, strict)
	var depErr *DepStringError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, "foo?", depErr.Text)
	assert.Equal(t, 13, depErr.Position)

	tree, err := Parse(bare, permissive)
	require.NoError(t, err)
	anyOf, ok := tree.Children[0].(*AnyOf)
	require.True(t, ok)
	assert.IsType(t, &Conditional{}, anyOf.Children[1])

	for _, g := range []Grammar{strict, permissive} {
		tree, err := Parse(wrapped, g)
		require.NoError(t, err, "grammar %s", g.Name)
		assert.Equal(t, wrapped, tree.String())
	}
}

func TestParseErrors(t *testing.T) {
	type tc struct {
		Name     string
		Input    string
		Grammar  string
		Text     string
		Position int
	}

	for _, tt := range []tc{
		{Name: "close without open", Input: ")", Text: ")", Position: 0},
		{Name: "unclosed groups", Input: "(((", Text: "(", Position: 2},
		{Name: "glued closers", Input: "( ))", Text: ")", Position: 3},
		{Name: "glued open and close", Input: "()(", Text: "(", Position: 2},
		{Name: "any of without group", Input: "!foo? ||", Text: "||", Position: 6},
		{Name: "parenthesis glued to atom", Input: "(foo/bar)", Text: "(foo/bar)", Position: 0},
		{Name: "unclosed conditional", Input: "!foo? ( one/one", Text: "(", Position: 6},
		{Name: "extra close", Input: "!foo? ( one/one ) )", Text: ")", Position: 18},
		{Name: "deep unclosed", Input: "( ( ( ) )", Text: "(", Position: 0},
		{Name: "deep extra close", Input: "( ( ( ) ) ) )", Text: ")", Position: 12},
		{Name: "bare any of at end", Input: "one/one ||", Text: "||", Position: 8},
		{Name: "conditional without group", Input: "foo? one/one", Text: "one/one", Position: 5},
		{Name: "invalid conditional flag", Input: "!? ( one/one )", Text: "!?", Position: 0},
		{Name: "empty any of in strict grammar", Input: "|| ( )", Grammar: GrammarPaludis1, Text: "||", Position: 0},
		{Name: "operator without version", Input: ">=one/one", Text: ">=one/one", Position: 0},
		{Name: "version without operator", Input: "one/one-1.0", Text: "one/one-1.0", Position: 0},
		{Name: "star without equals", Input: ">=one/one-1*", Text: ">=one/one-1*", Position: 0},
		{Name: "unknown token", Input: "one/one @@", Text: "@@", Position: 8},
		{Name: "repository in grammar 0", Input: "one/one::gentoo", Text: "one/one::gentoo", Position: 0},
		{Name: "flags in grammar 1", Input: "one/one[foo]", Grammar: GrammarOne, Text: "one/one[foo]", Position: 0},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			name := tt.Grammar
			if name == "" {
				name = GrammarZero
			}
			tree, err := Parse(tt.Input, MustGrammar(name))
			assert.Nil(t, tree)
			var depErr *DepStringError
			require.True(t, errors.As(err, &depErr), "expected DepStringError, got %v", err)
			assert.Equal(t, tt.Text, depErr.Text)
			assert.Equal(t, tt.Position, depErr.Position)
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	g := MustGrammar(GrammarPaludis1)
	for _, input := range []string{
		"app-editors/vim",
		">=app-editors/vim-6.4_alpha:one",
		"|| ( one/one two/two ) three/three",
		"foo? ( =dev-libs/a-1.2* ) !bar? ( || ( <x/y-2 ~x/z-3.0-r1 ) )",
		"( ( ( ) ) )",
		"dev-libs/foo:2::gentoo[ssl,-debug]",
		"  one/one\n\n( two/two\t)  ",
	} {
		t.Run(input, func(t *testing.T) {
			first, err := Parse(input, g)
			require.NoError(t, err)
			second, err := Parse(first.String(), g)
			require.NoError(t, err)
			assert.True(t, Equal(first, second))
			assert.Equal(t, first.String(), second.String())
		})
	}
}

func TestAtomsAndWalk(t *testing.T) {
	tree := MustParse("a/a || ( b/b foo? ( c/c ) ) ( d/d )", MustGrammar(GrammarZero))

	var names []string
	for _, a := range Atoms(tree) {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"a/a", "b/b", "c/c", "d/d"}, names)

	visited := 0
	Walk(tree, func(n Node) bool {
		visited++
		_, isAnyOf := n.(*AnyOf)
		return !isAnyOf
	})
	// root, a/a, any-of (children skipped), all-of, d/d
	assert.Equal(t, 5, visited)
}

func versionPtr(text string) *version.Spec {
	v := version.MustParse(text)
	return &v
}
