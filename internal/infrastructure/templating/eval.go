package templating

import (
	"html"
	"strings"

	"github.com/docforge/backend/internal/domain/printing"
)

type evaluator struct {
	strict bool
	root   Value
	frames []map[string]Value
	out    strings.Builder
}

func (ev *evaluator) exec(nodes []Node) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case *TextNode:
			ev.out.WriteString(n.Text)
		case *OutputNode:
			v, err := ev.eval(n.Expr, false)
			if err != nil {
				return err
			}
			if v.IsSafe() {
				ev.out.WriteString(v.String())
			} else {
				ev.out.WriteString(html.EscapeString(v.String()))
			}
		case *IfNode:
			if err := ev.execIf(n); err != nil {
				return err
			}
		case *ForNode:
			if err := ev.execFor(n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ev *evaluator) execIf(n *IfNode) error {
	for _, br := range n.Branches {
		// a missing path in a condition is simply false
		c, err := ev.eval(br.Cond, true)
		if err != nil {
			return err
		}
		if c.Truthy() {
			return ev.exec(br.Body)
		}
	}
	return ev.exec(n.Else)
}

func (ev *evaluator) execFor(n *ForNode) error {
	src, err := ev.eval(n.Source, false)
	if err != nil {
		return err
	}
	items := src.Items()
	if len(items) == 0 {
		return ev.exec(n.Else)
	}

	frame := map[string]Value{}
	ev.frames = append(ev.frames, frame)
	defer func() { ev.frames = ev.frames[:len(ev.frames)-1] }()

	total := len(items)
	for i, item := range items {
		frame[n.Var] = item
		frame["loop"] = Map(map[string]Value{
			"index":    Int(int64(i + 1)),
			"index0":   Int(int64(i)),
			"revindex": Int(int64(total - i)),
			"first":    Bool(i == 0),
			"last":     Bool(i == total-1),
			"length":   Int(int64(total)),
		})
		if err := ev.exec(n.Body); err != nil {
			return err
		}
	}
	return nil
}

// eval computes an expression. lenient suppresses strict-mode failures for
// missing paths, as in conditions and the input of the default filter.
func (ev *evaluator) eval(e Expr, lenient bool) (Value, error) {
	switch e := e.(type) {
	case *LiteralExpr:
		return e.Value, nil
	case *PathExpr:
		return ev.resolvePath(e, lenient)
	case *FilterExpr:
		in, err := ev.eval(e.Input, lenient || e.Name == "default")
		if err != nil {
			return Value{}, err
		}
		args := make([]Value, len(e.Args))
		for i, a := range e.Args {
			if args[i], err = ev.eval(a, lenient); err != nil {
				return Value{}, err
			}
		}
		return e.fn(in, args), nil
	case *NotExpr:
		x, err := ev.eval(e.X, lenient)
		if err != nil {
			return Value{}, err
		}
		return Bool(!x.Truthy()), nil
	case *BinaryExpr:
		return ev.evalBinary(e, lenient)
	}
	return Undefined(), nil
}

func (ev *evaluator) evalBinary(e *BinaryExpr, lenient bool) (Value, error) {
	left, err := ev.eval(e.Left, lenient)
	if err != nil {
		return Value{}, err
	}
	switch e.Op {
	case "and":
		if !left.Truthy() {
			return Bool(false), nil
		}
	case "or":
		if left.Truthy() {
			return Bool(true), nil
		}
	}
	right, err := ev.eval(e.Right, lenient)
	if err != nil {
		return Value{}, err
	}

	switch e.Op {
	case "and", "or":
		return Bool(right.Truthy()), nil
	case "==":
		return Bool(equalValues(left, right)), nil
	case "!=":
		return Bool(!equalValues(left, right)), nil
	case "in":
		return Bool(containsValue(right, left)), nil
	case "not in":
		return Bool(!containsValue(right, left)), nil
	}

	c, ok := compareValues(left, right)
	if !ok {
		return Bool(false), nil
	}
	switch e.Op {
	case "<":
		return Bool(c < 0), nil
	case "<=":
		return Bool(c <= 0), nil
	case ">":
		return Bool(c > 0), nil
	case ">=":
		return Bool(c >= 0), nil
	}
	return Bool(false), nil
}

func (ev *evaluator) resolvePath(p *PathExpr, lenient bool) (Value, error) {
	v, ok := ev.lookup(p.Segments[0].Key)
	for _, seg := range p.Segments[1:] {
		if !ok {
			break
		}
		if seg.IsIndex {
			v, ok = v.Index(seg.Index)
		} else {
			v, ok = v.Lookup(seg.Key)
		}
	}
	if !ok {
		if ev.strict && !lenient {
			return Value{}, printing.NewUnresolvedVariableError(p.Raw)
		}
		return Undefined(), nil
	}
	return v, nil
}

func (ev *evaluator) lookup(name string) (Value, bool) {
	for i := len(ev.frames) - 1; i >= 0; i-- {
		if v, ok := ev.frames[i][name]; ok {
			return v, true
		}
	}
	return ev.root.Lookup(name)
}
