// Package parser turns a boolean query string into a query tree scoped to one
// field.
//
// Grammar:
//
//	query   := or EOF
//	or      := and { [ "OR" ] and }
//	and     := primary { "AND" primary }
//	primary := word | "\"" words "\"" | "(" or ")"
//
// Adjacent operands with no operator between them are combined with OR, and
// AND binds tighter than OR. Words and phrases are analyzed with the index
// tokenizer; a bare word that yields several tokens becomes a phrase.
package parser

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/document"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/music-search/pkg/errors"
)

const (
	MaxQueryLength = 1024
	MaxDepth       = 32
)

// Query is a parsed query scoped to one field.
type Query struct {
	Field document.Field
	Root  Node
	Raw   string
}

// String is the canonical form of q; equal strings mean equal queries.
func (q *Query) String() string {
	return string(q.Field) + ":" + q.Root.String()
}

// Terms returns the distinct terms of q in first-appearance order.
func (q *Query) Terms() []string {
	seen := make(map[string]struct{})
	var out []string
	Walk(q.Root, func(n Node) {
		var terms []string
		switch v := n.(type) {
		case *Term:
			terms = []string{v.Text}
		case *Phrase:
			terms = v.Terms
		}
		for _, t := range terms {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	})
	return out
}

// Parse parses input into a query on field.
func Parse(input string, field document.Field) (*Query, error) {
	if len(input) > MaxQueryLength {
		return nil, &apperrors.QuerySyntaxError{
			Query:  input,
			Pos:    MaxQueryLength,
			Reason: fmt.Sprintf("query longer than %d bytes", MaxQueryLength),
		}
	}
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{input: input, tokens: tokens}
	if p.peek().kind == tokEOF {
		return nil, p.errorf(0, "empty query")
	}
	root, err := p.parseOr(0)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		if tok.kind == tokRParen {
			return nil, p.errorf(tok.pos, "unbalanced parenthesis: unexpected )")
		}
		return nil, p.errorf(tok.pos, "unexpected %s", tok.kind)
	}
	return &Query{Field: field, Root: root, Raw: input}, nil
}

type parser struct {
	input  string
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return &apperrors.QuerySyntaxError{Query: p.input, Pos: pos, Reason: fmt.Sprintf(format, args...)}
}

func startsOperand(k tokenKind) bool {
	return k == tokWord || k == tokPhrase || k == tokLParen
}

func (p *parser) parseOr(depth int) (Node, error) {
	first, err := p.parseAnd(depth)
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for {
		tok := p.peek()
		if tok.kind == tokOr {
			p.next()
			if !startsOperand(p.peek().kind) {
				return nil, p.errorf(p.peek().pos, "expected a term after OR, found %s", p.peek().kind)
			}
		} else if !startsOperand(tok.kind) {
			break
		}
		child, err := p.parseAnd(depth)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &Or{Children: children}, nil
}

func (p *parser) parseAnd(depth int) (Node, error) {
	first, err := p.parsePrimary(depth)
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for p.peek().kind == tokAnd {
		p.next()
		if !startsOperand(p.peek().kind) {
			return nil, p.errorf(p.peek().pos, "expected a term after AND, found %s", p.peek().kind)
		}
		child, err := p.parsePrimary(depth)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &And{Children: children}, nil
}

func (p *parser) parsePrimary(depth int) (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokWord:
		terms := tokenizer.Terms(tok.text)
		if len(terms) == 0 {
			return nil, p.errorf(tok.pos, "%q contains no searchable characters", tok.text)
		}
		return termOrPhrase(terms), nil
	case tokPhrase:
		terms := tokenizer.Terms(tok.text)
		if len(terms) == 0 {
			return nil, p.errorf(tok.pos, "empty phrase")
		}
		return termOrPhrase(terms), nil
	case tokLParen:
		if depth >= MaxDepth {
			return nil, p.errorf(tok.pos, "parentheses nested deeper than %d", MaxDepth)
		}
		if p.peek().kind == tokRParen {
			return nil, p.errorf(tok.pos, "empty parentheses")
		}
		if p.peek().kind == tokEOF {
			return nil, p.errorf(tok.pos, "unbalanced parenthesis: missing )")
		}
		inner, err := p.parseOr(depth + 1)
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, p.errorf(tok.pos, "unbalanced parenthesis: missing )")
		}
		p.next()
		return &Group{Child: inner}, nil
	case tokRParen:
		return nil, p.errorf(tok.pos, "unbalanced parenthesis: unexpected )")
	case tokEOF:
		return nil, p.errorf(tok.pos, "unexpected end of query")
	default:
		return nil, p.errorf(tok.pos, "unexpected operator %s", tok.kind)
	}
}

func termOrPhrase(terms []string) Node {
	if len(terms) == 1 {
		return &Term{Text: terms[0]}
	}
	return &Phrase{Terms: terms}
}

// Node is one of *Term, *Phrase, *And, *Or or *Group.
type Node interface {
	String() string
	node()
}

// Term matches documents containing one normalized token.
type Term struct {
	Text string
}

// Phrase matches documents containing Terms contiguously and in order.
type Phrase struct {
	Terms []string
}

type And struct {
	Children []Node
}

type Or struct {
	Children []Node
}

// Group is a parenthesized subexpression.
type Group struct {
	Child Node
}

func (*Term) node()   {}
func (*Phrase) node() {}
func (*And) node()    {}
func (*Or) node()     {}
func (*Group) node()  {}

func (t *Term) String() string { return t.Text }

func (p *Phrase) String() string { return `"` + strings.Join(p.Terms, " ") + `"` }

func (a *And) String() string { return join(a.Children, " AND ") }

func (o *Or) String() string { return join(o.Children, " OR ") }

func (g *Group) String() string { return "(" + g.Child.String() + ")" }

func join(nodes []Node, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}

// Walk calls fn for n and every descendant, depth first.
func Walk(n Node, fn func(Node)) {
	fn(n)
	switch v := n.(type) {
	case *And:
		for _, c := range v.Children {
			Walk(c, fn)
		}
	case *Or:
		for _, c := range v.Children {
			Walk(c, fn)
		}
	case *Group:
		Walk(v.Child, fn)
	}
}
