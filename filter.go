package cartconf

import "strings"

// PathSegment is one variant name on the path from root to the current
// point in the expansion, together with any `(key=value)` attributes that
// were attached to it (currently just its var_type, when the enclosing
// VariantsDecl named one).
type PathSegment struct {
	Name  string
	Attrs map[string]string
}

// Path is the ordered sequence of chosen variant names, root to leaf.
type Path []PathSegment

func (p Path) withAttr(name, key, value string) Path {
	seg := PathSegment{Name: name, Attrs: map[string]string{key: value}}
	return append(append(Path{}, p...), seg)
}

func (p Path) with(name string) Path {
	return append(append(Path{}, p...), PathSegment{Name: name})
}

// FilterExpr is the boolean expression language over variant paths: `,`
// (OR), `..` (AND), `.` (immediately-followed-by) and `(key=value)`
// predicates, with `!` negation and parenthesized grouping.
type FilterExpr interface {
	// Match reports whether expr matches somewhere in path.
	Match(path Path) bool
	matchAt(seg PathSegment) bool
}

// Atom is a single terminal: either a literal variant-name match or a
// `(key=value)` attribute predicate.
type Atom struct {
	Name     string
	AttrKey  string
	AttrVal  string
	isAttr   bool
}

func (a *Atom) matchAt(seg PathSegment) bool {
	if a.isAttr {
		v, ok := seg.Attrs[a.AttrKey]
		return ok && v == a.AttrVal
	}
	return seg.Name == a.Name
}

func (a *Atom) Match(path Path) bool {
	for _, seg := range path {
		if a.matchAt(seg) {
			return true
		}
	}
	return false
}

// Not negates its inner expression.
type Not struct{ Inner FilterExpr }

func (n *Not) matchAt(seg PathSegment) bool { return !n.Inner.matchAt(seg) }
func (n *Not) Match(path Path) bool         { return !n.Inner.Match(path) }

// And is the `..` connective: every element must match the path
// independently; order between elements is irrelevant.
type And struct{ Items []FilterExpr }

func (a *And) matchAt(seg PathSegment) bool {
	for _, it := range a.Items {
		if !it.matchAt(seg) {
			return false
		}
	}
	return true
}

func (a *And) Match(path Path) bool {
	for _, it := range a.Items {
		if !it.Match(path) {
			return false
		}
	}
	return true
}

// Or is the `,` connective: any one element matching is enough.
type Or struct{ Items []FilterExpr }

func (o *Or) matchAt(seg PathSegment) bool {
	for _, it := range o.Items {
		if it.matchAt(seg) {
			return true
		}
	}
	return false
}

func (o *Or) Match(path Path) bool {
	for _, it := range o.Items {
		if it.Match(path) {
			return true
		}
	}
	return false
}

// AdjAnd is the `.` connective: a sequence of terms that must align with
// consecutive path segments, in order, with no intervening segment.
type AdjAnd struct{ Items []FilterExpr }

func (a *AdjAnd) matchAt(seg PathSegment) bool {
	// A multi-segment chain cannot be satisfied by a single segment; only
	// a length-1 chain collapses to its sole element's own anchoring.
	if len(a.Items) == 1 {
		return a.Items[0].matchAt(seg)
	}
	return false
}

func (a *AdjAnd) Match(path Path) bool {
	if len(a.Items) == 0 {
		return true
	}
	for start := 0; start+len(a.Items) <= len(path); start++ {
		ok := true
		for j, it := range a.Items {
			if !it.matchAt(path[start+j]) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// ParseFilterExpr compiles a filter-expression string into a FilterExpr,
// following precedence `,` (weakest) < `..` < `.` (strongest), with `!`
// prefix negation and parenthesized grouping.
func ParseFilterExpr(expr string) (FilterExpr, error) {
	toks, err := lexFilterExpr(expr)
	if err != nil {
		return nil, err
	}
	p := &filterParser{toks: toks, src: expr}
	out, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, &FilterError{Expr: expr, Reason: "unexpected trailing tokens"}
	}
	return out, nil
}

type filterTokKind int

const (
	ftIdent filterTokKind = iota
	ftComma
	ftAnd
	ftDot
	ftNot
	ftLParen
	ftRParen
	ftEquals
)

type filterTok struct {
	kind filterTokKind
	text string
}

func lexFilterExpr(s string) ([]filterTok, error) {
	var out []filterTok
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == ',':
			out = append(out, filterTok{kind: ftComma})
			i++
		case c == '.' && i+1 < len(s) && s[i+1] == '.':
			out = append(out, filterTok{kind: ftAnd})
			i += 2
		case c == '.':
			out = append(out, filterTok{kind: ftDot})
			i++
		case c == '!':
			out = append(out, filterTok{kind: ftNot})
			i++
		case c == '(':
			out = append(out, filterTok{kind: ftLParen})
			i++
		case c == ')':
			out = append(out, filterTok{kind: ftRParen})
			i++
		case c == '=':
			out = append(out, filterTok{kind: ftEquals})
			i++
		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentCont(s[j]) {
				j++
			}
			out = append(out, filterTok{kind: ftIdent, text: s[i:j]})
			i = j
		default:
			return nil, &FilterError{Expr: s, Reason: "unexpected character '" + string(c) + "'"}
		}
	}
	return out, nil
}

type filterParser struct {
	toks []filterTok
	pos  int
	src  string
}

func (p *filterParser) peek() (filterTok, bool) {
	if p.pos >= len(p.toks) {
		return filterTok{}, false
	}
	return p.toks[p.pos], true
}

func (p *filterParser) parseOr() (FilterExpr, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	items := []FilterExpr{first}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != ftComma {
			break
		}
		p.pos++
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		items = append(items, next)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return &Or{Items: items}, nil
}

func (p *filterParser) parseAnd() (FilterExpr, error) {
	first, err := p.parseAdj()
	if err != nil {
		return nil, err
	}
	items := []FilterExpr{first}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != ftAnd {
			break
		}
		p.pos++
		next, err := p.parseAdj()
		if err != nil {
			return nil, err
		}
		items = append(items, next)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return &And{Items: items}, nil
}

func (p *filterParser) parseAdj() (FilterExpr, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	items := []FilterExpr{first}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != ftDot {
			break
		}
		p.pos++
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		items = append(items, next)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return &AdjAnd{Items: items}, nil
}

func (p *filterParser) parseUnary() (FilterExpr, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, &FilterError{Expr: p.src, Reason: "unexpected end of expression"}
	}
	if tok.kind == ftNot {
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *filterParser) parsePrimary() (FilterExpr, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, &FilterError{Expr: p.src, Reason: "unexpected end of expression"}
	}
	switch tok.kind {
	case ftIdent:
		p.pos++
		return &Atom{Name: tok.text}, nil
	case ftLParen:
		// Distinguish `(key=value)` predicates from a parenthesized
		// sub-expression by looking ahead for IDENT '=' IDENT ')'.
		if p.pos+4 <= len(p.toks) &&
			p.toks[p.pos+1].kind == ftIdent &&
			p.toks[p.pos+2].kind == ftEquals &&
			p.toks[p.pos+3].kind == ftIdent &&
			p.pos+4 < len(p.toks) && p.toks[p.pos+4].kind == ftRParen {
			key := p.toks[p.pos+1].text
			val := p.toks[p.pos+3].text
			p.pos += 5
			return &Atom{AttrKey: key, AttrVal: val, isAttr: true}, nil
		}
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closeTok, ok := p.peek()
		if !ok || closeTok.kind != ftRParen {
			return nil, &FilterError{Expr: p.src, Reason: "missing closing ')'"}
		}
		p.pos++
		return inner, nil
	default:
		return nil, &FilterError{Expr: p.src, Reason: "unexpected token in expression"}
	}
}

// splitJoinGroups splits a `join` statement's argument text into the
// whitespace-separated list of independent filter expressions it names.
func splitJoinGroups(s string) []string {
	return strings.Fields(s)
}
