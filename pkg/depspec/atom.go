package depspec

import (
	"strings"

	"github.com/perdasilva/depres/pkg/matchrule"
	"github.com/perdasilva/depres/pkg/version"
)

// Operator is the version comparison prefix of an atom.
type Operator int

const (
	OpNone Operator = iota
	OpLess
	OpLessEqual
	OpEqual
	OpGreaterEqual
	OpGreater
	// OpTilde matches any revision of the exact base version.
	OpTilde
)

var operatorText = map[Operator]string{
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpEqual:        "=",
	OpGreaterEqual: ">=",
	OpGreater:      ">",
	OpTilde:        "~",
}

func (op Operator) String() string {
	return operatorText[op]
}

// longest prefixes first
var operatorPrefixes = []Operator{OpLessEqual, OpGreaterEqual, OpLess, OpGreater, OpEqual, OpTilde}

// FlagRequirement demands that a candidate has Flag enabled (or disabled).
type FlagRequirement struct {
	Flag    string
	Enabled bool
}

func (r FlagRequirement) String() string {
	if r.Enabled {
		return r.Flag
	}
	return "-" + r.Flag
}

// Atom names a package and the conditions a candidate must meet.
type Atom struct {
	Name       string
	Operator   Operator
	Version    *version.Spec
	Wildcard   bool
	Slot       string
	Repository string
	Flags      []FlagRequirement
}

func (a *Atom) String() string {
	var b strings.Builder
	b.WriteString(a.Operator.String())
	b.WriteString(a.Name)
	if a.Version != nil {
		b.WriteByte('-')
		b.WriteString(a.Version.String())
	}
	if a.Wildcard {
		b.WriteByte('*')
	}
	if a.Slot != "" {
		b.WriteByte(':')
		b.WriteString(a.Slot)
	}
	if a.Repository != "" {
		b.WriteString("::")
		b.WriteString(a.Repository)
	}
	if len(a.Flags) > 0 {
		flags := make([]string, len(a.Flags))
		for i, f := range a.Flags {
			flags[i] = f.String()
		}
		b.WriteByte('[')
		b.WriteString(strings.Join(flags, ","))
		b.WriteByte(']')
	}
	return b.String()
}

// Equal reports whether a and other describe the same requirement.
func (a *Atom) Equal(other *Atom) bool {
	if a.Name != other.Name || a.Operator != other.Operator || a.Wildcard != other.Wildcard ||
		a.Slot != other.Slot || a.Repository != other.Repository || len(a.Flags) != len(other.Flags) {
		return false
	}
	if (a.Version == nil) != (other.Version == nil) {
		return false
	}
	if a.Version != nil && a.Version.String() != other.Version.String() {
		return false
	}
	for i := range a.Flags {
		if a.Flags[i] != other.Flags[i] {
			return false
		}
	}
	return true
}

var (
	nameStart = matchrule.Either(matchrule.Alnum, matchrule.Chars("_"))
	nameChars = matchrule.Either(matchrule.Alnum, matchrule.Chars("+_-"))

	qualifiedName = matchrule.Seq(
		nameStart,
		matchrule.ZeroOrMore(matchrule.Either(matchrule.Alnum, matchrule.Chars("+_.-"))),
		matchrule.Literal("/"),
		nameStart,
		matchrule.ZeroOrMore(nameChars),
		matchrule.EOL(),
	)

	slotName = matchrule.Seq(
		nameStart,
		matchrule.ZeroOrMore(matchrule.Either(matchrule.Alnum, matchrule.Chars("+_.-"))),
		matchrule.EOL(),
	)

	repositoryName = matchrule.Seq(
		nameStart,
		matchrule.ZeroOrMore(nameChars),
		matchrule.EOL(),
	)

	flagName = matchrule.Seq(
		matchrule.Alnum,
		matchrule.ZeroOrMore(matchrule.Either(matchrule.Alnum, matchrule.Chars("+_@-"))),
		matchrule.EOL(),
	)
)

// ValidName reports whether name is a category/package pair.
func ValidName(name string) bool {
	return matchrule.Match(qualifiedName, name) && !strings.HasSuffix(name, "-")
}

// ValidFlag reports whether flag is a legal configuration flag name.
func ValidFlag(flag string) bool {
	return matchrule.Match(flagName, flag)
}

// ParseAtom parses a single atom token under g.
func ParseAtom(text string, g Grammar) (*Atom, error) {
	return parseAtom(text, 0, g)
}

func parseAtom(text string, pos int, g Grammar) (*Atom, error) {
	fail := func(msg string) error {
		return &DepStringError{Message: msg, Text: text, Position: pos}
	}

	a := &Atom{}
	s := text

	if strings.HasSuffix(s, "]") {
		open := strings.LastIndexByte(s, '[')
		if open < 0 {
			return nil, fail("unbalanced ']' in atom")
		}
		if !g.FlagRequirements {
			return nil, fail("flag requirements are not permitted in grammar " + g.Name)
		}
		body := s[open+1 : len(s)-1]
		if body == "" {
			return nil, fail("empty flag requirement list")
		}
		for _, raw := range strings.Split(body, ",") {
			req := FlagRequirement{Flag: raw, Enabled: true}
			if strings.HasPrefix(raw, "-") {
				req = FlagRequirement{Flag: raw[1:], Enabled: false}
			}
			if !ValidFlag(req.Flag) {
				return nil, fail("invalid flag requirement '" + raw + "'")
			}
			a.Flags = append(a.Flags, req)
		}
		s = s[:open]
	}

	if i := strings.Index(s, "::"); i >= 0 {
		if !g.Repositories {
			return nil, fail("repository restrictions are not permitted in grammar " + g.Name)
		}
		a.Repository = s[i+2:]
		if !matchrule.Match(repositoryName, a.Repository) {
			return nil, fail("invalid repository name '" + a.Repository + "'")
		}
		s = s[:i]
	}

	if i := strings.IndexByte(s, ':'); i >= 0 {
		if !g.Slots {
			return nil, fail("slot restrictions are not permitted in grammar " + g.Name)
		}
		a.Slot = s[i+1:]
		if strings.HasSuffix(a.Slot, "*") {
			a.Wildcard = true
			a.Slot = strings.TrimSuffix(a.Slot, "*")
		}
		if !matchrule.Match(slotName, a.Slot) {
			return nil, fail("invalid slot '" + a.Slot + "'")
		}
		s = s[:i]
	}

	if strings.HasSuffix(s, "*") {
		a.Wildcard = true
		s = strings.TrimSuffix(s, "*")
	}

	for _, op := range operatorPrefixes {
		if strings.HasPrefix(s, op.String()) {
			a.Operator = op
			s = s[len(op.String()):]
			break
		}
	}

	a.Name = s
	for i := 0; i+1 < len(s); i++ {
		if s[i] != '-' || s[i+1] < '0' || s[i+1] > '9' {
			continue
		}
		if !ValidName(s[:i]) || !version.Valid(s[i+1:]) {
			continue
		}
		v, err := version.Parse(s[i+1:])
		if err != nil {
			return nil, fail(err.Error())
		}
		a.Name = s[:i]
		a.Version = &v
		break
	}

	if !ValidName(a.Name) {
		return nil, fail("invalid package name '" + a.Name + "'")
	}
	switch {
	case a.Operator != OpNone && a.Version == nil:
		return nil, fail("operator '" + a.Operator.String() + "' without a version")
	case a.Operator == OpNone && a.Version != nil:
		return nil, fail("version without an operator")
	case a.Wildcard && a.Operator != OpEqual:
		return nil, fail("'*' is only permitted with the '=' operator")
	}
	return a, nil
}
