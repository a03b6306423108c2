package version

import (
	"errors"
	"fmt"
	"strings"

	"github.com/perdasilva/depres/pkg/matchrule"
)

// ErrInvalidVersion is wrapped by every error returned from Parse.
var ErrInvalidVersion = errors.New("invalid version")

// SuffixKind is a qualifier suffix such as _alpha or _p.
type SuffixKind int

// SuffixRank is the fixed ordering of qualifier suffixes. A version without a
// suffix at some position compares as SuffixRelease, so 1.0_rc1 < 1.0 < 1.0_p1.
const (
	SuffixPre SuffixKind = iota
	SuffixAlpha
	SuffixBeta
	SuffixRC
	SuffixRelease
	SuffixPatch
)

var suffixNames = map[SuffixKind]string{
	SuffixPre:   "pre",
	SuffixAlpha: "alpha",
	SuffixBeta:  "beta",
	SuffixRC:    "rc",
	SuffixPatch: "p",
}

func (k SuffixKind) String() string {
	return suffixNames[k]
}

// Suffix is one qualifier suffix with its optional number.
type Suffix struct {
	Kind   SuffixKind
	Number string
}

func (s Suffix) String() string {
	return "_" + s.Kind.String() + s.Number
}

// Spec is a parsed package version. The zero value is not a valid version;
// use Parse or MustParse.
type Spec struct {
	components []string
	letter     byte
	suffixes   []Suffix
	revision   string
}

var shape = matchrule.Seq(
	matchrule.Digits,
	matchrule.ZeroOrMore(matchrule.Seq(matchrule.Literal("."), matchrule.Digits)),
	matchrule.Optional(matchrule.Lower),
	matchrule.ZeroOrMore(matchrule.Seq(
		matchrule.Literal("_"),
		matchrule.Either(
			matchrule.Literal("alpha"),
			matchrule.Literal("beta"),
			matchrule.Literal("pre"),
			matchrule.Literal("rc"),
			matchrule.Literal("p"),
		),
		matchrule.ZeroOrMore(matchrule.Digit),
	)),
	matchrule.Optional(matchrule.Seq(matchrule.Literal("-r"), matchrule.Digits)),
	matchrule.EOL(),
)

// Valid reports whether text has the lexical shape of a version.
func Valid(text string) bool {
	return matchrule.Match(shape, text)
}

// Parse parses text such as 1.2.3b_alpha4_p1-r2.
func Parse(text string) (Spec, error) {
	if !Valid(text) {
		return Spec{}, fmt.Errorf("%w %q", ErrInvalidVersion, text)
	}

	var v Spec
	rest := text
	if i := strings.Index(rest, "-r"); i >= 0 {
		v.revision = rest[i+2:]
		rest = rest[:i]
	}

	var suffixPart string
	if i := strings.IndexByte(rest, '_'); i >= 0 {
		suffixPart = rest[i+1:]
		rest = rest[:i]
	}

	if last := rest[len(rest)-1]; last >= 'a' && last <= 'z' {
		v.letter = last
		rest = rest[:len(rest)-1]
	}
	v.components = strings.Split(rest, ".")

	if suffixPart != "" {
		for _, raw := range strings.Split(suffixPart, "_") {
			s, err := parseSuffix(raw)
			if err != nil {
				return Spec{}, fmt.Errorf("%w %q: %s", ErrInvalidVersion, text, err)
			}
			v.suffixes = append(v.suffixes, s)
		}
	}
	return v, nil
}

func parseSuffix(raw string) (Suffix, error) {
	// longest names first so that "pre" is not read as "p" + "re"
	for _, kind := range []SuffixKind{SuffixAlpha, SuffixBeta, SuffixPre, SuffixRC, SuffixPatch} {
		name := kind.String()
		if strings.HasPrefix(raw, name) {
			num := raw[len(name):]
			if strings.Trim(num, "0123456789") != "" {
				continue
			}
			return Suffix{Kind: kind, Number: num}, nil
		}
	}
	return Suffix{}, fmt.Errorf("unknown suffix _%s", raw)
}

// MustParse is like Parse but panics on error.
func MustParse(text string) Spec {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v was never parsed.
func (v Spec) IsZero() bool {
	return len(v.components) == 0
}

// HasRevision reports whether an explicit -rN was given.
func (v Spec) HasRevision() bool {
	return v.revision != ""
}

// Revision returns the numeric revision text, "0" when absent.
func (v Spec) Revision() string {
	if v.revision == "" {
		return "0"
	}
	return v.revision
}

func (v Spec) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(v.components, "."))
	if v.letter != 0 {
		b.WriteByte(v.letter)
	}
	for _, s := range v.suffixes {
		b.WriteString(s.String())
	}
	if v.revision != "" {
		b.WriteString("-r")
		b.WriteString(v.revision)
	}
	return b.String()
}

// RemoveRevision returns v without its revision part.
func RemoveRevision(v Spec) Spec {
	out := v
	out.revision = ""
	return out
}

// Compare returns -1, 0 or 1 as a is less than, equal to or greater than b.
func Compare(a, b Spec) int {
	if c := compareBase(a, b); c != 0 {
		return c
	}
	return compareNumeric(a.revision, b.revision)
}

// Less reports whether v sorts before other.
func (v Spec) Less(other Spec) bool {
	return Compare(v, other) < 0
}

// Equal reports whether v and other compare equal.
func (v Spec) Equal(other Spec) bool {
	return Compare(v, other) == 0
}

// EqualIgnoringRevision reports whether v and other differ at most in
// their revisions.
func (v Spec) EqualIgnoringRevision(other Spec) bool {
	return compareBase(v, other) == 0
}

// HasPrefix reports whether prefix's numeric components (and letter and
// suffixes, when given) are a leading part of v. Revisions are ignored.
func (v Spec) HasPrefix(prefix Spec) bool {
	if len(prefix.components) > len(v.components) {
		return false
	}
	for i, c := range prefix.components {
		if compareNumeric(c, v.components[i]) != 0 {
			return false
		}
	}
	if prefix.letter == 0 && len(prefix.suffixes) == 0 {
		return true
	}
	if len(prefix.components) != len(v.components) || prefix.letter != v.letter {
		return false
	}
	if len(prefix.suffixes) > len(v.suffixes) {
		return false
	}
	for i, s := range prefix.suffixes {
		if s.Kind != v.suffixes[i].Kind || compareNumeric(s.Number, v.suffixes[i].Number) != 0 {
			return false
		}
	}
	return true
}

func compareBase(a, b Spec) int {
	n := len(a.components)
	if len(b.components) > n {
		n = len(b.components)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(a.components):
			return -1
		case i >= len(b.components):
			return 1
		}
		if c := compareNumeric(a.components[i], b.components[i]); c != 0 {
			return c
		}
	}

	switch {
	case a.letter < b.letter:
		return -1
	case a.letter > b.letter:
		return 1
	}

	n = len(a.suffixes)
	if len(b.suffixes) > n {
		n = len(b.suffixes)
	}
	for i := 0; i < n; i++ {
		sa, sb := Suffix{Kind: SuffixRelease}, Suffix{Kind: SuffixRelease}
		if i < len(a.suffixes) {
			sa = a.suffixes[i]
		}
		if i < len(b.suffixes) {
			sb = b.suffixes[i]
		}
		switch {
		case sa.Kind < sb.Kind:
			return -1
		case sa.Kind > sb.Kind:
			return 1
		}
		if c := compareNumeric(sa.Number, sb.Number); c != 0 {
			return c
		}
	}
	return 0
}

// compareNumeric compares two digit strings of any length by value.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return strings.Compare(a, b)
}
