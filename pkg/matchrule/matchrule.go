package matchrule

import "strings"

// NoMatch is returned by a Rule that does not match at the given offset.
const NoMatch = -1

// Rule reports how many bytes of s it consumes starting at pos, or NoMatch.
type Rule func(s string, pos int) int

// Literal matches the exact string lit.
func Literal(lit string) Rule {
	return func(s string, pos int) int {
		if strings.HasPrefix(s[pos:], lit) {
			return len(lit)
		}
		return NoMatch
	}
}

// Seq matches every rule one after the other.
func Seq(rules ...Rule) Rule {
	return func(s string, pos int) int {
		total := 0
		for _, rule := range rules {
			n := rule(s, pos+total)
			if n == NoMatch {
				return NoMatch
			}
			total += n
		}
		return total
	}
}

// Either returns the result of the first rule that matches.
func Either(rules ...Rule) Rule {
	return func(s string, pos int) int {
		for _, rule := range rules {
			if n := rule(s, pos); n != NoMatch {
				return n
			}
		}
		return NoMatch
	}
}

// ZeroOrMore applies rule greedily until it stops matching. It never
// backtracks, and a rule that matches the empty string stops the loop.
func ZeroOrMore(rule Rule) Rule {
	return func(s string, pos int) int {
		total := 0
		for {
			n := rule(s, pos+total)
			if n == NoMatch || n == 0 {
				return total
			}
			total += n
		}
	}
}

// OneOrMore is rule followed by ZeroOrMore(rule).
func OneOrMore(rule Rule) Rule {
	return Seq(rule, ZeroOrMore(rule))
}

// Optional matches rule or nothing.
func Optional(rule Rule) Rule {
	return Either(rule, Literal(""))
}

// EOL matches only at the end of the input.
func EOL() Rule {
	return func(s string, pos int) int {
		if pos >= len(s) {
			return 0
		}
		return NoMatch
	}
}

// Range matches a single byte in [lo, hi].
func Range(lo, hi byte) Rule {
	return func(s string, pos int) int {
		if pos < len(s) && s[pos] >= lo && s[pos] <= hi {
			return 1
		}
		return NoMatch
	}
}

// Chars matches a single byte contained in set.
func Chars(set string) Rule {
	return func(s string, pos int) int {
		if pos < len(s) && strings.IndexByte(set, s[pos]) >= 0 {
			return 1
		}
		return NoMatch
	}
}

// Match reports whether rule matches s from its first byte.
func Match(rule Rule, s string) bool {
	return rule(s, 0) != NoMatch
}

// Common lexical classes.
var (
	Digit  = Range('0', '9')
	Lower  = Range('a', 'z')
	Upper  = Range('A', 'Z')
	Alnum  = Either(Lower, Upper, Digit)
	Digits = OneOrMore(Digit)
)
