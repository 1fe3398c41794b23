package cartconf

import "strings"

// Parser consumes a classified line stream and builds the statement tree,
// resolving `include` directives inline through a Loader as it goes.
type Parser struct {
	lex     *Lexer
	loader  Loader
	visited map[string]bool
	cache   *includeCache
	pending *stmtLine
	hasPend bool
}

// NewParser builds a Parser over source. A nil loader is fine as long as
// the source contains no `include` directives.
func NewParser(source string, loader Loader) (*Parser, error) {
	lex, err := NewLexer(source)
	if err != nil {
		return nil, err
	}
	return &Parser{lex: lex, loader: loader, visited: map[string]bool{}, cache: newIncludeCache()}, nil
}

// Parse builds the root Block of the statement tree.
func (p *Parser) Parse() (*Block, error) {
	return p.parseRootBlock()
}

func (p *Parser) peekLine() (*stmtLine, bool, error) {
	if p.hasPend {
		return p.pending, p.pending != nil, nil
	}
	line, ok, err := p.lex.Next()
	if err != nil {
		return nil, false, err
	}
	p.pending = line
	p.hasPend = true
	return line, ok, nil
}

func (p *Parser) nextLine() (*stmtLine, bool, error) {
	line, ok, err := p.peekLine()
	p.hasPend = false
	return line, ok, err
}

// parseRootBlock gathers every top-level statement of the document. It
// cannot reuse parseBlock's "children strictly extend parentIndent" rule:
// the root has no enclosing line, so its own statements sit at whatever
// indent the first one uses (ordinarily none at all), not at some indent
// deeper than a parent. Treating "" as both the root's own indent and its
// children's indent would make every top-level line look like an
// immediate dedent, so the child indent here is established from the
// first line actually seen and compared for equality, not strict prefix
// extension.
func (p *Parser) parseRootBlock() (*Block, error) {
	block := &Block{Indent: ""}
	childIndent := ""
	haveChildIndent := false

	for {
		line, ok, err := p.peekLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if !haveChildIndent {
			childIndent = line.indent
			haveChildIndent = true
		} else if line.indent != childIndent {
			if strings.HasPrefix(line.indent, childIndent) {
				return nil, &ParseError{Line: line.line, Reason: "unexpected deeper indentation"}
			}
			return nil, &ParseError{Line: line.line, Reason: "unexpected dedent at top level"}
		}

		node, err := p.parseStatement(line)
		if err != nil {
			return nil, err
		}
		if spliced, ok := node.(*splicedInclude); ok {
			block.Children = append(block.Children, spliced.Body.Children...)
		} else if node != nil {
			block.Children = append(block.Children, node)
		}
	}
	return block, nil
}

// parseBlock gathers consecutive statements sharing one indentation level
// that strictly extends parentIndent.
func (p *Parser) parseBlock(parentIndent string) (*Block, error) {
	block := &Block{Indent: parentIndent}
	childIndent := ""
	haveChildIndent := false

	for {
		line, ok, err := p.peekLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if !strings.HasPrefix(line.indent, parentIndent) {
			break
		}
		if line.indent == parentIndent {
			break
		}
		if !haveChildIndent {
			childIndent = line.indent
			haveChildIndent = true
		} else if line.indent != childIndent {
			if strings.HasPrefix(line.indent, childIndent) {
				return nil, &ParseError{Line: line.line, Reason: "unexpected deeper indentation"}
			}
			break
		}

		node, err := p.parseStatement(line)
		if err != nil {
			return nil, err
		}
		if spliced, ok := node.(*splicedInclude); ok {
			block.Children = append(block.Children, spliced.Body.Children...)
		} else if node != nil {
			block.Children = append(block.Children, node)
		}
	}
	block.baseNode.Line = 0
	return block, nil
}

// parseStatement consumes the peeked line (already known to belong to the
// current block) and returns the node it produces. Include directives are
// resolved inline and return a *splicedInclude, whose children the caller
// splices into its own block.
func (p *Parser) parseStatement(line *stmtLine) (node Node, err error) {
	p.nextLine()

	switch {
	case line.keyword == "variants":
		return p.parseVariantsDecl(line)
	case line.keyword == "bullet":
		return nil, &ParseError{Line: line.line, Reason: "'-' bullet outside a variants: block"}
	case line.keyword == "include":
		return p.resolveInclude(line)
	case line.keyword == "del":
		return &Del{baseNode: baseNode{line.line}, KeyPattern: line.value}, nil
	case line.keyword == "only" || line.keyword == "no":
		expr, err := ParseFilterExpr(line.value)
		if err != nil {
			return nil, err
		}
		kind := filterOnly
		if line.keyword == "no" {
			kind = filterNo
		}
		return &FilterStmt{baseNode: baseNode{line.line}, Kind: kind, Expr: expr}, nil
	case line.keyword == "join":
		groups := splitJoinGroups(line.value)
		if len(groups) == 0 {
			return nil, &ParseError{Line: line.line, Reason: "join requires at least one filter expression"}
		}
		exprs := make([]FilterExpr, 0, len(groups))
		for _, g := range groups {
			expr, err := ParseFilterExpr(g)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, expr)
		}
		return &Join{baseNode: baseNode{line.line}, Groups: exprs}, nil
	case line.keyword == "suffix":
		return &Suffix{baseNode: baseNode{line.line}, Text: line.value}, nil
	case line.keyword == "condblock":
		expr, err := ParseFilterExpr(line.value)
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock(line.indent)
		if err != nil {
			return nil, err
		}
		return &CondBlock{baseNode: baseNode{line.line}, Expr: expr, Negated: line.negated, Body: body}, nil
	case line.key != "":
		op, ok := parseAssignOp(line.op)
		if !ok {
			return nil, &ParseError{Line: line.line, Reason: "unknown assignment operator " + line.op}
		}
		return &Assign{baseNode: baseNode{line.line}, Key: line.key, Op: op, Value: line.value}, nil
	default:
		return nil, &ParseError{Line: line.line, Reason: "unrecognized statement"}
	}
}

func parseAssignOp(text string) (AssignOp, bool) {
	switch text {
	case "=":
		return OpSet, true
	case "+=":
		return OpAppend, true
	case "<=":
		return OpPrepend, true
	case "~=":
		return OpRegexSub, true
	case "?=":
		return OpLazySet, true
	case "?+=":
		return OpLazyAppend, true
	case "?<=":
		return OpLazyPrepend, true
	default:
		return 0, false
	}
}

// parseVariantsDecl reads the `variants:` header (optional var_type,
// optional `[meta]` brackets) and then the bullets nested beneath it.
func (p *Parser) parseVariantsDecl(line *stmtLine) (*VariantsDecl, error) {
	varType, meta, shortOnly, err := parseVariantsHeader(line.value)
	if err != nil {
		return nil, &ParseError{Line: line.line, Reason: err.Error()}
	}
	decl := &VariantsDecl{
		baseNode:      baseNode{line.line},
		VarType:       varType,
		Meta:          meta,
		ShortNameOnly: shortOnly,
	}

	childIndent := ""
	haveChildIndent := false
	for {
		next, ok, err := p.peekLine()
		if err != nil {
			return nil, err
		}
		if !ok || !strings.HasPrefix(next.indent, line.indent) || next.indent == line.indent {
			break
		}
		if !haveChildIndent {
			childIndent = next.indent
			haveChildIndent = true
		} else if next.indent != childIndent {
			break
		}
		if next.keyword != "bullet" {
			return nil, &ParseError{Line: next.line, Reason: "expected '-' bullet inside variants: block"}
		}
		p.nextLine()
		vn, err := p.parseVariantName(next)
		if err != nil {
			return nil, err
		}
		decl.Children = append(decl.Children, vn)
	}
	return decl, nil
}

func (p *Parser) parseVariantName(line *stmtLine) (*VariantName, error) {
	text := line.value
	def := false
	if strings.HasPrefix(text, "@") {
		def = true
		text = strings.TrimSpace(text[1:])
	}
	name := text
	var deps []string
	if idx := strings.Index(text, ":"); idx >= 0 {
		name = strings.TrimSpace(text[:idx])
		depsText := strings.TrimSpace(text[idx+1:])
		if depsText != "" {
			for _, d := range strings.Split(depsText, ",") {
				d = strings.TrimSpace(d)
				if d != "" {
					deps = append(deps, d)
				}
			}
		}
	}
	if name == "" {
		return nil, &ParseError{Line: line.line, Reason: "variant bullet has no name"}
	}

	vn := &VariantName{baseNode: baseNode{line.line}, Name: name, Deps: deps, Default: def}

	next, ok, err := p.peekLine()
	if err != nil {
		return nil, err
	}
	if ok && strings.HasPrefix(next.indent, line.indent) && next.indent != line.indent {
		body, err := p.parseBlock(line.indent)
		if err != nil {
			return nil, err
		}
		vn.Body = body
	} else {
		vn.Body = &Block{Indent: line.indent}
	}
	return vn, nil
}

// parseVariantsHeader parses the text following the `variants` keyword,
// up to and including its trailing colon: an optional var_type
// identifier, then zero or more `[flag]` / `[key=value]` meta groups.
func parseVariantsHeader(raw string) (varType string, meta map[string]string, shortOnly bool, err error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasSuffix(raw, ":") {
		return "", nil, false, errParseMsg("variants header must end with ':'")
	}
	raw = strings.TrimSpace(strings.TrimSuffix(raw, ":"))
	meta = map[string]string{}

	i := 0
	if i < len(raw) && isIdentStart(raw[i]) {
		i++
		for i < len(raw) && isIdentCont(raw[i]) {
			i++
		}
	}
	varType = raw[:i]
	rest := strings.TrimSpace(raw[i:])

	for len(rest) > 0 {
		if rest[0] != '[' {
			return "", nil, false, errParseMsg("unexpected content in variants header: " + rest)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, false, errParseMsg("unterminated '[' in variants header")
		}
		body := strings.TrimSpace(rest[1:end])
		if eq := strings.IndexByte(body, '='); eq >= 0 {
			key := strings.TrimSpace(body[:eq])
			val := strings.TrimSpace(body[eq+1:])
			meta[key] = val
		} else if body != "" {
			meta[body] = "true"
			if body == "short_name_only" {
				shortOnly = true
			}
		}
		rest = strings.TrimSpace(rest[end+1:])
	}
	return varType, meta, shortOnly, nil
}

type parseMsg string

func (m parseMsg) Error() string { return string(m) }

func errParseMsg(s string) error { return parseMsg(s) }

// resolveInclude fetches the include target through the Loader, parses it
// recursively (sharing the visited-set for cycle detection), and splices
// its top-level statements into the enclosing block at the include's
// position.
func (p *Parser) resolveInclude(line *stmtLine) (Node, error) {
	target := line.value
	if p.loader == nil {
		return nil, wrapInclude(target, "no loader configured", nil)
	}
	if p.visited[target] {
		return nil, wrapInclude(target, "cyclic include", nil)
	}
	if body, ok := p.cache.get(target); ok {
		return &splicedInclude{baseNode: baseNode{line.line}, Body: body}, nil
	}

	src, err := p.loader.Load(target)
	if err != nil {
		return nil, wrapInclude(target, "failed to load", err)
	}
	p.visited[target] = true
	sub, err := NewParser(src, p.loader)
	if err != nil {
		return nil, wrapInclude(target, "failed to tokenize", err)
	}
	sub.visited = p.visited
	sub.cache = p.cache
	body, err := sub.Parse()
	delete(p.visited, target)
	if err != nil {
		return nil, wrapInclude(target, "failed to parse", err)
	}
	p.cache.set(target, body)
	return &splicedInclude{baseNode: baseNode{line.line}, Body: body}, nil
}

// splicedInclude carries an already-resolved include's children so
// parseBlock can inline them without special-casing Include at expansion
// time.
type splicedInclude struct {
	baseNode
	Body *Block
}
