package cartconf

import (
	"fmt"

	"github.com/pkg/errors"
)

// LexError reports an invalid character or unterminated string encountered
// while tokenizing a source buffer.
type LexError struct {
	Line   int
	Col    int
	Reason string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %d:%d: %s", e.Line, e.Col, e.Reason)
}

// ParseError reports a structural problem in the statement tree: bad
// indentation, an unexpected token, or a malformed header.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Reason)
}

// FilterError reports a malformed filter expression discovered while
// compiling it, whether from the source or from an extra CLI filter.
type FilterError struct {
	Expr   string
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter error in %q: %s", e.Expr, e.Reason)
}

// DepError reports a variant bullet whose declared dependency can never be
// satisfied by any sibling tree.
type DepError struct {
	Variant string
	Dep     string
}

func (e *DepError) Error() string {
	return fmt.Sprintf("variant %q depends on %q, which is never declared", e.Variant, e.Dep)
}

// IncludeError reports an include cycle or a target the loader could not
// resolve.
type IncludeError struct {
	Target string
	Reason string
	Cause  error
}

func (e *IncludeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("include error for %q: %s: %v", e.Target, e.Reason, e.Cause)
	}
	return fmt.Sprintf("include error for %q: %s", e.Target, e.Reason)
}

func (e *IncludeError) Unwrap() error {
	return e.Cause
}

// InterpError reports a `${...}` reference that never resolved, either
// because it names an unknown key or because resolution did not reach a
// fixed point within the iteration cap.
type InterpError struct {
	Key   string
	Chain []string
}

func (e *InterpError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("interpolation error: unresolved reference ${%s}", e.Key)
	}
	return fmt.Sprintf("interpolation error: ${%s} did not reach a fixed point (chain: %v)", e.Key, e.Chain)
}

// ExpansionError reports an inconsistent state discovered while walking the
// node tree, such as a `join` whose targets produce zero subtrees.
type ExpansionError struct {
	Reason string
}

func (e *ExpansionError) Error() string {
	return fmt.Sprintf("expansion error: %s", e.Reason)
}

// wrapInclude attaches include-resolution context to a loader failure,
// preserving the original error for errors.Is/As callers.
func wrapInclude(target, reason string, cause error) error {
	return &IncludeError{Target: target, Reason: reason, Cause: errors.WithStack(cause)}
}
