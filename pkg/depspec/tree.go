package depspec

import (
	"strings"
)

// Node is one of *AllOf, *AnyOf, *Conditional or *Atom. The set is closed:
// only this package can implement it, so a type switch over those four
// cases is exhaustive.
type Node interface {
	String() string
	isNode()
}

// AllOf holds when every child holds. The root of every parsed tree is an
// AllOf.
type AllOf struct {
	Children []Node
}

// AnyOf holds when at least one child holds. An AnyOf without children
// never holds.
type AnyOf struct {
	Children []Node
}

// Conditional applies its children only when Flag is enabled (or disabled,
// when Negated) on the candidate whose dependencies are being evaluated.
type Conditional struct {
	Flag     string
	Negated  bool
	Children []Node
}

func (*AllOf) isNode()       {}
func (*AnyOf) isNode()       {}
func (*Conditional) isNode() {}
func (*Atom) isNode()        {}

// String prints a root-level group without surrounding parentheses. Use
// Format for nested printing.
func (n *AllOf) String() string {
	return joinNodes(n.Children)
}

func (n *AnyOf) String() string {
	return format(n)
}

func (n *Conditional) String() string {
	return format(n)
}

// Format prints n as it would appear nested inside another group.
func Format(n Node) string {
	return format(n)
}

func format(n Node) string {
	switch n := n.(type) {
	case *AllOf:
		return group("(", n.Children)
	case *AnyOf:
		return group("|| (", n.Children)
	case *Conditional:
		prefix := n.Flag + "? ("
		if n.Negated {
			prefix = "!" + prefix
		}
		return group(prefix, n.Children)
	case *Atom:
		return n.String()
	}
	return ""
}

func group(open string, children []Node) string {
	if len(children) == 0 {
		return open + " )"
	}
	return open + " " + joinNodes(children) + " )"
}

func joinNodes(children []Node) string {
	parts := make([]string, len(children))
	for i, child := range children {
		parts[i] = format(child)
	}
	return strings.Join(parts, " ")
}

// Equal reports whether a and b are structurally identical trees.
func Equal(a, b Node) bool {
	switch a := a.(type) {
	case *AllOf:
		b, ok := b.(*AllOf)
		return ok && equalChildren(a.Children, b.Children)
	case *AnyOf:
		b, ok := b.(*AnyOf)
		return ok && equalChildren(a.Children, b.Children)
	case *Conditional:
		b, ok := b.(*Conditional)
		return ok && a.Flag == b.Flag && a.Negated == b.Negated && equalChildren(a.Children, b.Children)
	case *Atom:
		b, ok := b.(*Atom)
		return ok && a.Equal(b)
	}
	return false
}

func equalChildren(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Children returns the direct children of n, or nil for an atom.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *AllOf:
		return n.Children
	case *AnyOf:
		return n.Children
	case *Conditional:
		return n.Children
	}
	return nil
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the node just visited.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(child, fn)
	}
}

// Atoms collects every atom below n in declaration order, regardless of
// conditionals or alternatives.
func Atoms(n Node) []*Atom {
	var atoms []*Atom
	Walk(n, func(node Node) bool {
		if atom, ok := node.(*Atom); ok {
			atoms = append(atoms, atom)
		}
		return true
	})
	return atoms
}
