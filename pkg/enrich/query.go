package enrich

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Jiacheng-Lyu/pan-cancer-plasma-proteome/pkg/dataset"
)

// Query is a parsed boolean row filter over table columns. The grammar is
// comparisons of the form `column op value` (op one of ==, !=, >, >=, <, <=)
// combined with `&` and `|`, where `&` binds tighter. Parentheses group.
// Values are numeric literals or quoted strings; column names may be quoted
// when they contain spaces or operator characters.
type Query struct {
	root queryNode
	expr string
}

// ParseQuery compiles the filter expression.
func ParseQuery(expr string) (*Query, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	p := &queryParser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("enrich: trailing input %q in query", p.toks[p.pos].text)
	}
	return &Query{root: root, expr: expr}, nil
}

// String returns the original expression.
func (q *Query) String() string { return q.expr }

// Filter returns the row labels of t matching the query, in table order.
func (q *Query) Filter(t *dataset.Table) ([]string, error) {
	var out []string
	for i, label := range t.Rows() {
		ok, err := q.root.eval(t, i)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, label)
		}
	}
	return out, nil
}

type queryNode interface {
	eval(t *dataset.Table, row int) (bool, error)
}

type boolNode struct {
	and         bool
	left, right queryNode
}

func (n *boolNode) eval(t *dataset.Table, row int) (bool, error) {
	l, err := n.left.eval(t, row)
	if err != nil {
		return false, err
	}
	// Short-circuit keeps errors from the taken branch only.
	if n.and && !l {
		return false, nil
	}
	if !n.and && l {
		return true, nil
	}
	return n.right.eval(t, row)
}

type cmpNode struct {
	column string
	op     string
	numVal float64
	strVal string
	isStr  bool
}

func (n *cmpNode) eval(t *dataset.Table, row int) (bool, error) {
	j, ok := t.ColIndex(n.column)
	if !ok {
		return false, fmt.Errorf("enrich: query column %q not in table %q", n.column, t.Name)
	}
	if n.isStr {
		s := t.TextAt(row, j)
		switch n.op {
		case "==":
			return s == n.strVal, nil
		case "!=":
			return s != n.strVal, nil
		default:
			return false, fmt.Errorf("enrich: operator %q needs a numeric value", n.op)
		}
	}
	v := t.At(row, j)
	if math.IsNaN(v) {
		return false, nil
	}
	switch n.op {
	case "==":
		return v == n.numVal, nil
	case "!=":
		return v != n.numVal, nil
	case ">":
		return v > n.numVal, nil
	case ">=":
		return v >= n.numVal, nil
	case "<":
		return v < n.numVal, nil
	case "<=":
		return v <= n.numVal, nil
	}
	return false, fmt.Errorf("enrich: unknown operator %q", n.op)
}

type token struct {
	kind string // ident, str, num, op, and, or, lparen, rparen
	text string
}

func tokenize(expr string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{"lparen", "("})
			i++
		case c == ')':
			toks = append(toks, token{"rparen", ")"})
			i++
		case c == '&':
			toks = append(toks, token{"and", "&"})
			i++
		case c == '|':
			toks = append(toks, token{"or", "|"})
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(expr[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("enrich: unterminated string in query at offset %d", i)
			}
			toks = append(toks, token{"str", expr[i+1 : i+1+end]})
			i += end + 2
		case strings.ContainsRune("=!<>", rune(c)):
			op := string(c)
			if i+1 < len(expr) && expr[i+1] == '=' {
				op += "="
				i++
			}
			i++
			switch op {
			case "==", "!=", ">", ">=", "<", "<=":
				toks = append(toks, token{"op", op})
			default:
				return nil, fmt.Errorf("enrich: bad operator %q in query", op)
			}
		default:
			j := i
			for j < len(expr) && !strings.ContainsRune(" \t()&|=!<>'\"", rune(expr[j])) {
				j++
			}
			word := expr[i:j]
			if _, err := strconv.ParseFloat(word, 64); err == nil {
				toks = append(toks, token{"num", word})
			} else {
				toks = append(toks, token{"ident", word})
			}
			i = j
		}
	}
	return toks, nil
}

type queryParser struct {
	toks []token
	pos  int
}

func (p *queryParser) parseOr() (queryNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.pos < len(p.toks) && p.toks[p.pos].kind == "or" {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &boolNode{and: false, left: left, right: right}
	}
	return left, nil
}

func (p *queryParser) parseAnd() (queryNode, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.pos < len(p.toks) && p.toks[p.pos].kind == "and" {
		p.pos++
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = &boolNode{and: true, left: left, right: right}
	}
	return left, nil
}

func (p *queryParser) parseAtom() (queryNode, error) {
	if p.pos < len(p.toks) && p.toks[p.pos].kind == "lparen" {
		p.pos++
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.toks) || p.toks[p.pos].kind != "rparen" {
			return nil, fmt.Errorf("enrich: missing closing parenthesis in query")
		}
		p.pos++
		return node, nil
	}
	if p.pos+3 > len(p.toks) {
		return nil, fmt.Errorf("enrich: incomplete comparison in query")
	}
	col := p.toks[p.pos]
	if col.kind != "ident" && col.kind != "str" {
		return nil, fmt.Errorf("enrich: expected column name, got %q", col.text)
	}
	op := p.toks[p.pos+1]
	if op.kind != "op" {
		return nil, fmt.Errorf("enrich: expected comparison operator after %q", col.text)
	}
	val := p.toks[p.pos+2]
	p.pos += 3
	node := &cmpNode{column: col.text, op: op.text}
	switch val.kind {
	case "num":
		node.numVal, _ = strconv.ParseFloat(val.text, 64)
	case "str", "ident":
		node.isStr = true
		node.strVal = val.text
	default:
		return nil, fmt.Errorf("enrich: expected value after %q %s", col.text, op.text)
	}
	return node, nil
}
