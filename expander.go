package cartconf

import (
	"context"
	"strings"
)

// Variant is one emitted result of expansion: the dotted name, the
// (possibly shorter) short name, and the fully materialized, interpolated
// parameter dict.
type Variant struct {
	Name      string
	ShortName string
	Dict      map[string]string
}

// pendingOp is a deferred statement collected while walking the tree,
// tagged with the conditional filters active at the point it was
// encountered. It is only applied once the final path of a leaf is known.
type pendingOp struct {
	node Node
	cond []condFilter
}

type typedChoice struct {
	VarType string
	Name    string
}

// walkState is the expander's traversal state. It is threaded by value
// through the continuation-passing walk so that sibling branches of a
// VariantsDecl never see each other's mutations; slices are only ever
// extended with a fresh backing array, never appended-in-place, to keep
// branches independent.
type walkState struct {
	path       Path
	seenNames  map[string]bool
	nameParts  []string
	shortParts []string
	typed      []typedChoice
	deps       []string
	depsSeen   map[string]bool
	ops        []pendingOp
	cond       []condFilter
}

func newWalkState() walkState {
	return walkState{seenNames: map[string]bool{}, depsSeen: map[string]bool{}}
}

func (st walkState) appendOp(n Node) walkState {
	ns := st
	ns.ops = append(append([]pendingOp{}, st.ops...), pendingOp{node: n, cond: append([]condFilter{}, st.cond...)})
	return ns
}

func (st walkState) withCond(c condFilter) walkState {
	ns := st
	ns.cond = append(append([]condFilter{}, st.cond...), c)
	return ns
}

func (st walkState) withChoice(decl *VariantsDecl, vn *VariantName) walkState {
	ns := st
	if decl.VarType != "" {
		ns.path = st.path.withAttr(vn.Name, "var_type", decl.VarType)
	} else {
		ns.path = st.path.with(vn.Name)
	}
	ns.seenNames = cloneSet(st.seenNames)
	ns.seenNames[vn.Name] = true

	// Every chosen bullet contributes its name to name/short_name,
	// regardless of whether its VariantsDecl carries a var_type; only
	// short_name_only narrows short_name specifically. A var_type also
	// earns the chosen name an implicit var_type=name assignment.
	//
	// Names are built innermost-first: a VariantsDecl encountered later in
	// the walk (deeper in the effective tree, since it lives among a
	// bullet's remaining siblings) prepends its choice ahead of the
	// choices already accumulated by its enclosing dimensions.
	ns.nameParts = append([]string{vn.Name}, st.nameParts...)
	if !decl.ShortNameOnly {
		ns.shortParts = append([]string{vn.Name}, st.shortParts...)
	} else {
		ns.shortParts = append([]string{}, st.shortParts...)
	}
	if decl.VarType != "" {
		ns.typed = append(append([]typedChoice{}, st.typed...), typedChoice{VarType: decl.VarType, Name: vn.Name})
	} else {
		ns.typed = append([]typedChoice{}, st.typed...)
	}

	ns.depsSeen = cloneSet(st.depsSeen)
	ns.deps = append([]string{}, st.deps...)
	for _, d := range vn.Deps {
		if !ns.depsSeen[d] {
			ns.depsSeen[d] = true
			ns.deps = append(ns.deps, d)
		}
	}
	return ns
}

func cloneSet(s map[string]bool) map[string]bool {
	c := make(map[string]bool, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Expander walks a parsed node tree in document order and yields the
// Cartesian product of its variant declarations, filtered and with every
// assignment operator and interpolation applied.
type Expander struct {
	root             *Block
	extraAssignments []*Assign
	extraFilters     []*FilterStmt
}

// NewExpander builds an Expander over root. extraAssignments and
// extraFilters are applied as if declared at the outermost scope of the
// document, ahead of everything else (matching the CLI's `key=value` /
// `only X` / `no X` positional arguments).
func NewExpander(root *Block, extraAssignments []string, extraFilters []ExtraFilter) (*Expander, error) {
	if err := validateDeps(root); err != nil {
		return nil, err
	}
	ex := &Expander{root: root}
	for _, kv := range extraAssignments {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			return nil, &ParseError{Reason: "malformed extra assignment: " + kv}
		}
		ex.extraAssignments = append(ex.extraAssignments, &Assign{
			Key: strings.TrimSpace(kv[:eq]), Op: OpSet, Value: strings.TrimSpace(kv[eq+1:]),
		})
	}
	for _, ef := range extraFilters {
		expr, err := ParseFilterExpr(ef.Expr)
		if err != nil {
			return nil, err
		}
		kind := filterOnly
		if ef.Kind == "no" {
			kind = filterNo
		}
		ex.extraFilters = append(ex.extraFilters, &FilterStmt{Kind: kind, Expr: expr})
	}
	return ex, nil
}

// ExtraFilter is one CLI-style `only X` / `no X` extra filter argument.
type ExtraFilter struct {
	Kind string // "only" or "no"
	Expr string
}

// Expand runs the expansion synchronously, calling emit for every variant
// in document order. It returns (or propagates) the first error
// encountered; per the error-handling policy an expansion error aborts
// the whole walk rather than skipping the offending variant.
func (ex *Expander) Expand(emit func(Variant) error) error {
	st := newWalkState()
	for _, a := range ex.extraAssignments {
		st = st.appendOp(a)
	}
	for _, f := range ex.extraFilters {
		st = st.appendOp(f)
	}

	var firstErr error
	err := walkChildren(ex.root.Children, st, func(final walkState) error {
		v, ok, err := materializeLeaf(final)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return emit(v)
	})
	if err != nil {
		firstErr = err
	}
	return firstErr
}

// Iterate returns a lazy, restartable, channel-based iterator: a context-
// cancellable single-producer generator in the style of the teacher's
// worker/result channel pattern, collapsed here to one producer and one
// consumer since expansion order is observable and single-threaded by
// contract.
func (ex *Expander) Iterate(ctx context.Context) (<-chan Variant, <-chan error) {
	out := make(chan Variant)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		err := ex.Expand(func(v Variant) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case out <- v:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		errc <- err
		close(errc)
	}()

	return out, errc
}

// walkChildren processes children in document order under st, invoking
// emit once per leaf reached. Branching nodes (VariantsDecl, Join) fork
// the continuation so each branch sees the remaining siblings
// independently.
func walkChildren(children []Node, st walkState, emit func(walkState) error) error {
	if len(children) == 0 {
		return emit(st)
	}
	head, rest := children[0], children[1:]

	switch n := head.(type) {
	case *Assign, *Del, *FilterStmt, *Suffix:
		return walkChildren(rest, st.appendOp(head), emit)

	case *CondBlock:
		cf := condFilter{Expr: n.Expr, Negated: n.Negated}
		inner := st.withCond(cf)
		return walkChildren(n.Body.Children, inner, func(after walkState) error {
			continued := after
			continued.cond = st.cond
			return walkChildren(rest, continued, emit)
		})

	case *Block:
		return walkChildren(append(append([]Node{}, n.Children...), rest...), st, emit)

	case *VariantsDecl:
		// An unnamed declaration with a single bullet is transparent: the
		// bullet's body is walked in place, adding no path segment, name
		// part or dep, just as if the body were written inline.
		if n.VarType == "" && len(n.Children) == 1 {
			vn := n.Children[0]
			if !depsSatisfied(vn.Deps, st.seenNames) {
				return nil
			}
			return walkChildren(append(append([]Node{}, vn.Body.Children...), rest...), st, emit)
		}
		for _, vn := range n.Children {
			if !depsSatisfied(vn.Deps, st.seenNames) {
				continue
			}
			branchState := st.withChoice(n, vn)
			err := walkChildren(vn.Body.Children, branchState, func(after walkState) error {
				return walkChildren(rest, after, emit)
			})
			if err != nil {
				return err
			}
		}
		return nil

	case *Join:
		return handleJoin(n, rest, st, emit)

	default:
		return walkChildren(rest, st, emit)
	}
}

func depsSatisfied(deps []string, seen map[string]bool) bool {
	for _, d := range deps {
		if !seen[d] {
			return false
		}
	}
	return true
}

// materializeLeaf replays st's deferred operation list in order, skipping
// operations whose conditional filters don't match the final path,
// applies only/no pruning, injects the implicit keys, and interpolates.
// ok is false when an only/no filter rejects this leaf; that is not an
// error, just an empty branch of the product. A document with no
// statements and no variant choices at all reaches this as a single
// trivial leaf with nothing recorded in either st.ops or st.path; spec.md
// §8 scenario 1 requires that to yield no dicts at all, so it is
// suppressed here rather than materialized into the usual empty-name dict.
func materializeLeaf(st walkState) (Variant, bool, error) {
	if len(st.ops) == 0 && len(st.path) == 0 {
		return Variant{}, false, nil
	}

	finalPath := st.path

	for _, op := range st.ops {
		fs, ok := op.node.(*FilterStmt)
		if !ok {
			continue
		}
		if !condsMatch(op.cond, finalPath) {
			continue
		}
		matched := fs.Expr.Match(finalPath)
		if fs.Kind == filterOnly && !matched {
			return Variant{}, false, nil
		}
		if fs.Kind == filterNo && matched {
			return Variant{}, false, nil
		}
	}

	dict := newOrderedDict()
	activeSuffix := ""
	for _, op := range st.ops {
		if !condsMatch(op.cond, finalPath) {
			continue
		}
		switch n := op.node.(type) {
		case *Assign:
			dict.apply(n.Key+activeSuffix, n.Op, n.Value)
		case *Del:
			if err := dict.del(n.KeyPattern); err != nil {
				return Variant{}, false, &ExpansionError{Reason: "del: " + err.Error()}
			}
		case *Suffix:
			activeSuffix = n.Text
		}
	}

	name := strings.Join(st.nameParts, ".")
	shortName := strings.Join(st.shortParts, ".")
	dict.set("name", name, false)
	dict.set("shortname", shortName, false)
	dict.set("dep", formatDepList(st.deps), false)
	for _, tc := range st.typed {
		dict.set(tc.VarType, tc.Name, false)
	}

	if err := interpolate(dict); err != nil {
		return Variant{}, false, err
	}

	return Variant{Name: name, ShortName: shortName, Dict: dict.toMap()}, true, nil
}

func condsMatch(cond []condFilter, path Path) bool {
	for _, c := range cond {
		matched := c.Expr.Match(path)
		if c.Negated {
			matched = !matched
		}
		if !matched {
			return false
		}
	}
	return true
}

func formatDepList(deps []string) string {
	return "[" + strings.Join(deps, ", ") + "]"
}

// handleJoin resolves a `join` statement against the VariantsDecl
// siblings following it in the same block, independently expands each
// named group, and pairs their results positionally (truncating to the
// shortest group) rather than taking their full cross product, per the
// documented truncate-on-mismatch reading of the join semantics.
func handleJoin(n *Join, rest []Node, st walkState, emit func(walkState) error) error {
	var groupNames []string
	for _, g := range n.Groups {
		if atom, ok := g.(*Atom); ok && !atom.isAttr {
			groupNames = append(groupNames, atom.Name)
		}
	}
	if len(groupNames) == 0 {
		return &ExpansionError{Reason: "join requires one or more named variant groups"}
	}

	var decls []*VariantsDecl
	var remaining []Node
	for _, child := range rest {
		if vd, ok := child.(*VariantsDecl); ok && containsString(groupNames, vd.VarType) {
			decls = append(decls, vd)
			continue
		}
		remaining = append(remaining, child)
	}
	if len(decls) != len(groupNames) {
		return &ExpansionError{Reason: "join targets not found: " + strings.Join(groupNames, " ")}
	}

	type joinBranch struct {
		seg  PathSegment
		name string
		ops  []pendingOp
	}

	groupBranches := make([][]joinBranch, len(decls))
	for gi, vd := range decls {
		for _, vn := range vd.Children {
			seg := PathSegment{Name: vn.Name}
			if vd.VarType != "" {
				seg = PathSegment{Name: vn.Name, Attrs: map[string]string{"var_type": vd.VarType}}
			}
			var ops []pendingOp
			collectFlatOps(vn.Body.Children, nil, &ops)
			ops = resolveBranchSuffix(ops)
			groupBranches[gi] = append(groupBranches[gi], joinBranch{seg: seg, name: vn.Name, ops: ops})
		}
	}

	minLen := len(groupBranches[0])
	for _, gb := range groupBranches[1:] {
		if len(gb) < minLen {
			minLen = len(gb)
		}
	}
	if minLen == 0 {
		return &ExpansionError{Reason: "join target produced zero subtrees"}
	}

	for i := 0; i < minLen; i++ {
		branchState := st
		branchState.path = append([]PathSegment{}, st.path...)
		branchState.nameParts = append([]string{}, st.nameParts...)
		branchState.shortParts = append([]string{}, st.shortParts...)
		branchState.typed = append([]typedChoice{}, st.typed...)
		branchState.ops = append([]pendingOp{}, st.ops...)
		branchState.seenNames = cloneSet(st.seenNames)

		// Join's groups are simultaneous, not nested, dimensions: each
		// contributes its name segment in declaration order rather than
		// the innermost-first ordering a nested VariantsDecl walk uses.
		for gi, vd := range decls {
			b := groupBranches[gi][i]
			branchState.path = append(branchState.path, b.seg)
			branchState.seenNames[b.name] = true
			branchState.nameParts = append(branchState.nameParts, b.name)
			if !vd.ShortNameOnly {
				branchState.shortParts = append(branchState.shortParts, b.name)
			}
			if vd.VarType != "" {
				branchState.typed = append(branchState.typed, typedChoice{VarType: vd.VarType, Name: b.name})
			}
			branchState.ops = append(branchState.ops, b.ops...)
		}

		if err := walkChildren(remaining, branchState, emit); err != nil {
			return err
		}
	}
	return nil
}

// collectFlatOps gathers the deferred ops directly inside a join target's
// body. Nested variants/join statements inside a join target are not
// supported; the bodies joined in practice are leaf-shaped (assignments,
// conditional blocks, del, suffix).
func collectFlatOps(children []Node, cond []condFilter, out *[]pendingOp) {
	for _, c := range children {
		switch n := c.(type) {
		case *Assign, *Del, *FilterStmt, *Suffix:
			*out = append(*out, pendingOp{node: n, cond: append([]condFilter{}, cond...)})
		case *CondBlock:
			cf := condFilter{Expr: n.Expr, Negated: n.Negated}
			collectFlatOps(n.Body.Children, append(append([]condFilter{}, cond...), cf), out)
		case *Block:
			collectFlatOps(n.Children, cond, out)
		}
	}
}

// resolveBranchSuffix bakes a join branch's own `suffix S` statement (if
// any) into its own Assign keys and drops the Suffix op, so that when
// several branches' flat ops are concatenated into one leaf's
// materialization list, a suffix declared inside one join group's subtree
// can never bleed forward into a sibling group's keys. Per spec.md §4.4,
// suffix renames "every key k in the current subtree's emitted dict" — the
// whole subtree, not just assignments textually following the suffix
// statement — so it is applied to every Assign in the branch regardless of
// declaration order.
func resolveBranchSuffix(ops []pendingOp) []pendingOp {
	suffix := ""
	for _, op := range ops {
		if s, ok := op.node.(*Suffix); ok {
			suffix = s.Text
		}
	}
	if suffix == "" {
		return ops
	}
	out := make([]pendingOp, 0, len(ops))
	for _, op := range ops {
		switch n := op.node.(type) {
		case *Suffix:
			continue
		case *Assign:
			renamed := *n
			renamed.Key = n.Key + suffix
			out = append(out, pendingOp{node: &renamed, cond: op.cond})
		default:
			out = append(out, op)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// validateDeps performs the one static check the expander can make ahead
// of time: every `deps` name a bullet declares must be some other
// bullet's name somewhere in the reachable tree. Deps that could never be
// satisfied by any sibling tree are rejected before expansion begins
// rather than silently never matching.
func validateDeps(root *Block) error {
	names := map[string]bool{}
	collectAllVariantNames(root, names)

	var check func(Node) error
	check = func(n Node) error {
		switch t := n.(type) {
		case *Block:
			for _, c := range t.Children {
				if err := check(c); err != nil {
					return err
				}
			}
		case *VariantsDecl:
			for _, vn := range t.Children {
				for _, d := range vn.Deps {
					if !names[d] {
						return &DepError{Variant: vn.Name, Dep: d}
					}
				}
				if vn.Body != nil {
					if err := check(vn.Body); err != nil {
						return err
					}
				}
			}
		case *CondBlock:
			if t.Body != nil {
				return check(t.Body)
			}
		}
		return nil
	}
	return check(root)
}

func collectAllVariantNames(n Node, names map[string]bool) {
	switch t := n.(type) {
	case *Block:
		for _, c := range t.Children {
			collectAllVariantNames(c, names)
		}
	case *VariantsDecl:
		for _, vn := range t.Children {
			names[vn.Name] = true
			if vn.Body != nil {
				collectAllVariantNames(vn.Body, names)
			}
		}
	case *CondBlock:
		if t.Body != nil {
			collectAllVariantNames(t.Body, names)
		}
	}
}
