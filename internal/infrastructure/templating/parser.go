package templating

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/docforge/backend/internal/domain/printing"
)

type parser struct {
	toks    []token
	pos     int
	filters map[string]filterSpec
}

// endTag is the block tag that terminated a body
type endTag struct {
	keyword string
	rest    string
	line    int
}

func parse(src string, filters map[string]filterSpec) ([]Node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, filters: filters}
	nodes, _, err := p.parseBody(nil)
	return nodes, err
}

func (p *parser) parseBody(stops []string) ([]Node, endTag, error) {
	var nodes []Node
	for p.pos < len(p.toks) {
		tok := p.toks[p.pos]
		p.pos++

		switch tok.kind {
		case tokText:
			if tok.val != "" {
				nodes = append(nodes, &TextNode{Text: tok.val})
			}
		case tokComment:
		case tokOutput:
			if tok.val == "" {
				return nil, endTag{}, printing.NewTemplateSyntaxError(tok.line, "empty output expression")
			}
			e, err := p.parseExpr(tok.val, tok.line)
			if err != nil {
				return nil, endTag{}, err
			}
			nodes = append(nodes, &OutputNode{Expr: e, Line: tok.line})
		case tokTag:
			keyword, rest := splitKeyword(tok.val)
			for _, stop := range stops {
				if keyword == stop {
					return nodes, endTag{keyword: keyword, rest: rest, line: tok.line}, nil
				}
			}
			var (
				n   Node
				err error
			)
			switch keyword {
			case "if":
				n, err = p.parseIf(rest, tok.line)
			case "for":
				n, err = p.parseFor(rest, tok.line)
			default:
				err = printing.NewTemplateSyntaxError(tok.line, fmt.Sprintf("unexpected tag %q", keyword))
			}
			if err != nil {
				return nil, endTag{}, err
			}
			nodes = append(nodes, n)
		}
	}
	if len(stops) > 0 {
		line := 1
		if len(p.toks) > 0 {
			line = p.toks[len(p.toks)-1].line
		}
		return nil, endTag{}, printing.NewTemplateSyntaxError(line,
			"unexpected end of template, expected "+strings.Join(stops, " or "))
	}
	return nodes, endTag{}, nil
}

func (p *parser) parseIf(cond string, line int) (Node, error) {
	n := &IfNode{Line: line}
	for {
		if cond == "" {
			return nil, printing.NewTemplateSyntaxError(line, "missing condition")
		}
		e, err := p.parseExpr(cond, line)
		if err != nil {
			return nil, err
		}
		body, end, err := p.parseBody([]string{"elif", "else", "endif"})
		if err != nil {
			return nil, err
		}
		n.Branches = append(n.Branches, IfBranch{Cond: e, Body: body})

		switch end.keyword {
		case "elif":
			cond, line = end.rest, end.line
			continue
		case "else":
			if end.rest != "" {
				return nil, printing.NewTemplateSyntaxError(end.line, "else takes no arguments")
			}
			body, end, err := p.parseBody([]string{"endif"})
			if err != nil {
				return nil, err
			}
			if end.rest != "" {
				return nil, printing.NewTemplateSyntaxError(end.line, "endif takes no arguments")
			}
			n.Else = body
			return n, nil
		default:
			if end.rest != "" {
				return nil, printing.NewTemplateSyntaxError(end.line, "endif takes no arguments")
			}
			return n, nil
		}
	}
}

func (p *parser) parseFor(header string, line int) (Node, error) {
	toks, err := tokenizeExpr(header, line)
	if err != nil {
		return nil, err
	}
	if len(toks) < 4 || toks[0].kind != etIdent || toks[1].kind != etIdent || toks[1].val != "in" {
		return nil, printing.NewTemplateSyntaxError(line, "expected 'for <name> in <expression>'")
	}
	if isKeyword(toks[0].val) {
		return nil, printing.NewTemplateSyntaxError(line, fmt.Sprintf("%q cannot be a loop variable", toks[0].val))
	}
	ep := &exprParser{toks: toks[2:], line: line, filters: p.filters}
	source, err := ep.parseComplete()
	if err != nil {
		return nil, err
	}

	n := &ForNode{Var: toks[0].val, Source: source, Line: line}
	body, end, err := p.parseBody([]string{"else", "endfor"})
	if err != nil {
		return nil, err
	}
	n.Body = body
	if end.keyword == "else" {
		if end.rest != "" {
			return nil, printing.NewTemplateSyntaxError(end.line, "else takes no arguments")
		}
		if n.Else, end, err = p.parseBody([]string{"endfor"}); err != nil {
			return nil, err
		}
	}
	if end.rest != "" {
		return nil, printing.NewTemplateSyntaxError(end.line, "endfor takes no arguments")
	}
	return n, nil
}

func (p *parser) parseExpr(src string, line int) (Expr, error) {
	toks, err := tokenizeExpr(src, line)
	if err != nil {
		return nil, err
	}
	ep := &exprParser{toks: toks, line: line, filters: p.filters}
	return ep.parseComplete()
}

func splitKeyword(s string) (string, string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func isKeyword(s string) bool {
	switch s {
	case "and", "or", "not", "in", "true", "false", "none", "True", "False", "None", "null", "loop":
		return true
	}
	return false
}

type exprParser struct {
	toks    []exprTok
	pos     int
	line    int
	filters map[string]filterSpec
}

func (ep *exprParser) peek() exprTok { return ep.toks[ep.pos] }

func (ep *exprParser) next() exprTok {
	t := ep.toks[ep.pos]
	if t.kind != etEOF {
		ep.pos++
	}
	return t
}

func (ep *exprParser) peekOp(op string) bool {
	t := ep.peek()
	return t.kind == etOp && t.val == op
}

func (ep *exprParser) peekWord(word string) bool {
	t := ep.peek()
	return t.kind == etIdent && t.val == word
}

func (ep *exprParser) errorf(format string, args ...any) error {
	return printing.NewTemplateSyntaxError(ep.line, fmt.Sprintf(format, args...))
}

func (ep *exprParser) parseComplete() (Expr, error) {
	e, err := ep.parseOr()
	if err != nil {
		return nil, err
	}
	if t := ep.peek(); t.kind != etEOF {
		return nil, ep.errorf("unexpected %q", t.val)
	}
	return e, nil
}

func (ep *exprParser) parseOr() (Expr, error) {
	left, err := ep.parseAnd()
	if err != nil {
		return nil, err
	}
	for ep.peekWord("or") {
		ep.next()
		right, err := ep.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (ep *exprParser) parseAnd() (Expr, error) {
	left, err := ep.parseNot()
	if err != nil {
		return nil, err
	}
	for ep.peekWord("and") {
		ep.next()
		right, err := ep.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (ep *exprParser) parseNot() (Expr, error) {
	if ep.peekWord("not") {
		ep.next()
		x, err := ep.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{X: x}, nil
	}
	return ep.parseCompare()
}

func (ep *exprParser) parseCompare() (Expr, error) {
	left, err := ep.parseFiltered()
	if err != nil {
		return nil, err
	}

	t := ep.peek()
	op := ""
	switch {
	case t.kind == etOp && (t.val == "==" || t.val == "!=" || t.val == "<" || t.val == "<=" || t.val == ">" || t.val == ">="):
		op = t.val
		ep.next()
	case t.kind == etIdent && t.val == "in":
		op = "in"
		ep.next()
	case t.kind == etIdent && t.val == "not" && ep.toks[ep.pos+1].kind == etIdent && ep.toks[ep.pos+1].val == "in":
		op = "not in"
		ep.next()
		ep.next()
	default:
		return left, nil
	}

	right, err := ep.parseFiltered()
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Op: op, Left: left, Right: right}, nil
}

func (ep *exprParser) parseFiltered() (Expr, error) {
	x, err := ep.parsePrimary()
	if err != nil {
		return nil, err
	}
	for ep.peekOp("|") {
		ep.next()
		name := ep.next()
		if name.kind != etIdent {
			return nil, ep.errorf("expected filter name after '|'")
		}
		def, ok := ep.filters[name.val]
		if !ok {
			return nil, printing.NewUnknownFilterError(name.val, ep.line)
		}

		var args []Expr
		if ep.peekOp("(") {
			ep.next()
			for !ep.peekOp(")") {
				arg, err := ep.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if ep.peekOp(",") {
					ep.next()
					continue
				}
				if !ep.peekOp(")") {
					return nil, ep.errorf("expected ',' or ')' in arguments of %s", name.val)
				}
			}
			ep.next()
		}
		if len(args) > def.maxArgs {
			return nil, ep.errorf("filter %s takes at most %d argument(s), got %d", name.val, def.maxArgs, len(args))
		}
		x = &FilterExpr{Name: name.val, Input: x, Args: args, Line: ep.line, fn: def.fn}
	}
	return x, nil
}

func (ep *exprParser) parsePrimary() (Expr, error) {
	t := ep.next()
	switch t.kind {
	case etString:
		return &LiteralExpr{Value: String(t.val)}, nil
	case etNumber:
		d, err := decimal.NewFromString(t.val)
		if err != nil {
			return nil, ep.errorf("invalid number %q", t.val)
		}
		return &LiteralExpr{Value: Number(d)}, nil
	case etOp:
		if t.val == "(" {
			e, err := ep.parseOr()
			if err != nil {
				return nil, err
			}
			if !ep.peekOp(")") {
				return nil, ep.errorf("expected ')'")
			}
			ep.next()
			return e, nil
		}
		return nil, ep.errorf("unexpected %q", t.val)
	case etIdent:
		switch t.val {
		case "true", "True":
			return &LiteralExpr{Value: Bool(true)}, nil
		case "false", "False":
			return &LiteralExpr{Value: Bool(false)}, nil
		case "none", "None", "null":
			return &LiteralExpr{Value: Null()}, nil
		case "and", "or", "not", "in":
			return nil, ep.errorf("unexpected keyword %q", t.val)
		}
		return ep.parsePath(t.val)
	default:
		return nil, ep.errorf("unexpected end of expression")
	}
}

func (ep *exprParser) parsePath(first string) (Expr, error) {
	p := &PathExpr{Segments: []PathSegment{{Key: first}}}
	raw := first
	for {
		switch {
		case ep.peekOp("."):
			ep.next()
			t := ep.next()
			if t.kind != etIdent && t.kind != etNumber {
				return nil, ep.errorf("expected name after '.' in %s", raw)
			}
			if t.kind == etNumber {
				i, err := strconv.Atoi(t.val)
				if err != nil {
					return nil, ep.errorf("invalid index %q", t.val)
				}
				p.Segments = append(p.Segments, PathSegment{Index: i, IsIndex: true})
			} else {
				p.Segments = append(p.Segments, PathSegment{Key: t.val})
			}
			raw += "." + t.val
		case ep.peekOp("["):
			ep.next()
			t := ep.next()
			switch t.kind {
			case etNumber:
				i, err := strconv.Atoi(t.val)
				if err != nil {
					return nil, ep.errorf("invalid index %q", t.val)
				}
				p.Segments = append(p.Segments, PathSegment{Index: i, IsIndex: true})
				raw += "[" + t.val + "]"
			case etString:
				p.Segments = append(p.Segments, PathSegment{Key: t.val})
				raw += "[" + strconv.Quote(t.val) + "]"
			default:
				return nil, ep.errorf("expected index in %s[...]", raw)
			}
			if !ep.peekOp("]") {
				return nil, ep.errorf("expected ']' in %s", raw)
			}
			ep.next()
		default:
			p.Raw = raw
			return p, nil
		}
	}
}
