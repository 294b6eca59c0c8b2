package logic

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseError reports malformed goal text.
type ParseError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse goal %q at offset %d: %s", e.Input, e.Offset, e.Msg)
}

// FaultKind names the error for the interpreter's fault reporting.
func (e *ParseError) FaultKind() string { return "SyntaxError" }

// ParseGoals parses a comma-separated conjunction of goals such as
//
//	entity(?E), state(?E, جوع, ?V).
//
// Only plain goals are accepted: name(arg, ...). Arguments are ?Vars,
// numbers, quoted strings, or bare words (taken as strings). A trailing
// "." is ignored. Variables with the same name share one *Var.
func ParseGoals(input string) ([]*Predicate, *Scope, error) {
	p := &goalParser{input: input, runes: []rune(input), scope: NewScope()}
	var goals []*Predicate
	for {
		p.skipSpace()
		g, err := p.predicate()
		if err != nil {
			return nil, nil, err
		}
		goals = append(goals, g)
		p.skipSpace()
		if p.eof() {
			break
		}
		switch p.peek() {
		case ',':
			p.pos++
			continue
		case '.':
			p.pos++
			p.skipSpace()
			if !p.eof() {
				return nil, nil, p.errorf("unexpected text after '.'")
			}
		default:
			return nil, nil, p.errorf("expected ',' between goals")
		}
		break
	}
	return goals, p.scope, nil
}

// ParseGoal parses a single goal.
func ParseGoal(input string) (*Predicate, *Scope, error) {
	goals, scope, err := ParseGoals(input)
	if err != nil {
		return nil, nil, err
	}
	if len(goals) != 1 {
		return nil, nil, &ParseError{Input: input, Msg: fmt.Sprintf("expected one goal, got %d", len(goals))}
	}
	return goals[0], scope, nil
}

type goalParser struct {
	input string
	runes []rune
	pos   int
	scope *Scope
}

func (p *goalParser) eof() bool  { return p.pos >= len(p.runes) }
func (p *goalParser) peek() rune { return p.runes[p.pos] }

func (p *goalParser) errorf(format string, args ...any) error {
	return &ParseError{Input: p.input, Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *goalParser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		p.pos++
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func (p *goalParser) word() string {
	start := p.pos
	for !p.eof() && isWordRune(p.peek()) {
		p.pos++
	}
	return string(p.runes[start:p.pos])
}

func (p *goalParser) predicate() (*Predicate, error) {
	name := p.word()
	if name == "" {
		return nil, p.errorf("expected predicate name")
	}
	p.skipSpace()
	if p.eof() || p.peek() != '(' {
		return nil, p.errorf("expected '(' after %s", name)
	}
	p.pos++
	var args []any
	for {
		p.skipSpace()
		if !p.eof() && p.peek() == ')' && len(args) == 0 {
			p.pos++
			break
		}
		arg, err := p.argument()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated argument list")
		}
		if p.peek() == ',' {
			p.pos++
			continue
		}
		if p.peek() == ')' {
			p.pos++
			break
		}
		return nil, p.errorf("expected ',' or ')'")
	}
	return NewPredicate(name, args...), nil
}

func (p *goalParser) argument() (any, error) {
	if p.eof() {
		return nil, p.errorf("expected argument")
	}
	switch r := p.peek(); {
	case r == '?':
		p.pos++
		name := p.word()
		if name == "" {
			return nil, p.errorf("expected variable name after '?'")
		}
		return p.scope.Var(name), nil
	case r == '"' || r == '\'':
		return p.quoted(r)
	case r == '-' || r == '+' || unicode.IsDigit(r):
		return p.number()
	case isWordRune(r):
		w := p.word()
		if w == "_" {
			return p.scope.Var(w), nil
		}
		return w, nil
	default:
		return nil, p.errorf("unexpected %q", r)
	}
}

func (p *goalParser) quoted(q rune) (any, error) {
	p.pos++
	var b strings.Builder
	for !p.eof() {
		r := p.peek()
		p.pos++
		if r == '\\' && !p.eof() {
			b.WriteRune(p.peek())
			p.pos++
			continue
		}
		if r == q {
			return b.String(), nil
		}
		b.WriteRune(r)
	}
	return nil, p.errorf("unterminated string")
}

func (p *goalParser) number() (any, error) {
	start := p.pos
	p.pos++
	for !p.eof() {
		r := p.peek()
		if !unicode.IsDigit(r) && r != '.' && r != 'e' && r != 'E' {
			break
		}
		p.pos++
	}
	text := string(p.runes[start:p.pos])
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.errorf("invalid number %q", text)
	}
	return f, nil
}
