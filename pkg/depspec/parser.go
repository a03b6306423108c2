package depspec

import (
	"strings"
)

type token struct {
	text string
	pos  int
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func tokenize(input string) []token {
	var tokens []token
	for i := 0; i < len(input); {
		if isSpace(input[i]) {
			i++
			continue
		}
		start := i
		for i < len(input) && !isSpace(input[i]) {
			i++
		}
		text := input[start:i]
		if onlyParens(text) {
			for j := range text {
				tokens = append(tokens, token{text: text[j : j+1], pos: start + j})
			}
			continue
		}
		tokens = append(tokens, token{text: text, pos: start})
	}
	return tokens
}

// onlyParens reports whether text is a run of group delimiters such as
// "(((" or "))". Such runs are split into one token per delimiter; a
// delimiter glued to anything else stays part of an atom token.
func onlyParens(text string) bool {
	return strings.Trim(text, "()") == ""
}

type parser struct {
	tokens  []token
	next    int
	grammar Grammar
	input   string
}

// Parse turns a dependency string into a tree under grammar g. Empty or
// blank input yields an AllOf without children. Any malformed input aborts
// the parse with a *DepStringError.
func Parse(input string, g Grammar) (*AllOf, error) {
	p := &parser{
		tokens:  tokenize(input),
		grammar: g,
		input:   input,
	}
	children, err := p.parseSequence(nil)
	if err != nil {
		return nil, err
	}
	return &AllOf{Children: children}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// static tables.
func MustParse(input string, g Grammar) *AllOf {
	n, err := Parse(input, g)
	if err != nil {
		panic(err)
	}
	return n
}

func (p *parser) errorAt(t token, msg string) error {
	return &DepStringError{Message: msg, Text: t.text, Position: t.pos}
}

func (p *parser) peek() (token, bool) {
	if p.next >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.next], true
}

// parseSequence reads nodes until the matching ")" of open, or until the
// end of input when open is nil.
func (p *parser) parseSequence(open *token) ([]Node, error) {
	children := make([]Node, 0)
	for {
		t, ok := p.peek()
		if !ok {
			if open != nil {
				return nil, p.errorAt(*open, "unbalanced '(' with no matching ')'")
			}
			return children, nil
		}
		p.next++

		switch {
		case t.text == "(":
			grandchildren, err := p.parseSequence(&t)
			if err != nil {
				return nil, err
			}
			children = append(children, &AllOf{Children: grandchildren})

		case t.text == ")":
			if open == nil {
				return nil, p.errorAt(t, "unbalanced ')' with no matching '('")
			}
			return children, nil

		case t.text == "||":
			node, err := p.parseAnyOf(t)
			if err != nil {
				return nil, err
			}
			children = append(children, node)

		case strings.HasSuffix(t.text, "?"):
			node, err := p.parseConditional(t)
			if err != nil {
				return nil, err
			}
			children = append(children, node)

		default:
			atom, err := parseAtom(t.text, t.pos, p.grammar)
			if err != nil {
				return nil, err
			}
			children = append(children, atom)
		}
	}
}

// expectGroup consumes the "(" that must follow after.
func (p *parser) expectGroup(after token) (token, error) {
	t, ok := p.peek()
	if !ok {
		return token{}, p.errorAt(after, "'"+after.text+"' must be followed by '('")
	}
	if t.text != "(" {
		return token{}, p.errorAt(t, "'"+after.text+"' must be followed by '('")
	}
	p.next++
	return t, nil
}

func (p *parser) parseAnyOf(t token) (Node, error) {
	open, err := p.expectGroup(t)
	if err != nil {
		return nil, err
	}
	start := p.next
	children, err := p.parseSequence(&open)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 && !p.grammar.EmptyAnyOf {
		return nil, p.errorAt(t, "empty '|| ( )' group is not permitted in grammar "+p.grammar.Name)
	}
	if !p.grammar.ConditionalsInAnyOf {
		for _, child := range children {
			if _, ok := child.(*Conditional); ok {
				return nil, p.conditionalInAnyOfError(start)
			}
		}
	}
	return &AnyOf{Children: children}, nil
}

// conditionalInAnyOfError locates the first conditional token directly
// inside the || group starting at token index start.
func (p *parser) conditionalInAnyOfError(start int) error {
	depth := 0
	for _, t := range p.tokens[start:p.next] {
		switch {
		case t.text == "(":
			depth++
		case t.text == ")":
			depth--
		case depth == 0 && strings.HasSuffix(t.text, "?"):
			return p.errorAt(t, "conditional directly inside '||' is not permitted in grammar "+p.grammar.Name)
		}
	}
	return p.errorAt(p.tokens[start], "conditional directly inside '||' is not permitted in grammar "+p.grammar.Name)
}

func (p *parser) parseConditional(t token) (Node, error) {
	flag := strings.TrimSuffix(t.text, "?")
	negated := strings.HasPrefix(flag, "!")
	flag = strings.TrimPrefix(flag, "!")
	if !ValidFlag(flag) {
		return nil, p.errorAt(t, "invalid conditional flag '"+flag+"'")
	}
	open, err := p.expectGroup(t)
	if err != nil {
		return nil, err
	}
	children, err := p.parseSequence(&open)
	if err != nil {
		return nil, err
	}
	return &Conditional{Flag: flag, Negated: negated, Children: children}, nil
}
