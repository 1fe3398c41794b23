// Package cartconf parses and expands the Cartesian configuration format:
// an indentation-sensitive DSL describing nested `variants:` dimensions
// whose choices multiply out into a stream of named parameter
// dictionaries, filtered by a small boolean expression language and
// assembled with deferred, operator-driven key assignment.
package cartconf

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Source describes where configuration text comes from: either a path on
// disk (resolved through a FileLoader rooted at its directory, so sibling
// includes resolve relative to it) or literal contents paired with an
// explicit Loader for includes.
type Source struct {
	Path     string
	Contents string
	Loader   Loader
}

func (s Source) resolve() (string, Loader, error) {
	if s.Path != "" {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return "", nil, errors.Wrapf(err, "reading %s", s.Path)
		}
		loader := s.Loader
		if loader == nil {
			loader = NewFileLoader(filepath.Dir(s.Path))
		}
		return string(data), loader, nil
	}
	return s.Contents, s.Loader, nil
}

// Options configures a Parse/Iterate call with the CLI-shaped extra
// inputs described in the external interface: assignments applied at the
// outermost scope ahead of everything else, and extra only/no filters.
type Options struct {
	ExtraAssignments []string
	ExtraFilters     []ExtraFilter
}

// Parse reads and expands src, calling emit once per resulting dict in
// document order. It is the "stream-of-dicts" public entry point.
func Parse(src Source, opts Options, emit func(map[string]string) error) error {
	text, loader, err := src.resolve()
	if err != nil {
		return err
	}
	parser, err := NewParser(text, loader)
	if err != nil {
		return err
	}
	root, err := parser.Parse()
	if err != nil {
		return err
	}
	expander, err := NewExpander(root, opts.ExtraAssignments, opts.ExtraFilters)
	if err != nil {
		return err
	}
	return expander.Expand(func(v Variant) error {
		return emit(v.Dict)
	})
}

// VariantIterator is the restartable "variant iterator" public entry
// point: identical data to Parse, wrapped as (name, short_name, dict)
// triples, for consumers that enumerate variants independently of
// executing them. Each call to Iterate starts a fresh expansion; the
// parsed tree is read-only and shared across them.
type VariantIterator struct {
	root *Block
	opts Options
}

// NewVariantIterator parses src once and returns an iterator that can be
// restarted any number of times via Iterate.
func NewVariantIterator(src Source, opts Options) (*VariantIterator, error) {
	text, loader, err := src.resolve()
	if err != nil {
		return nil, err
	}
	parser, err := NewParser(text, loader)
	if err != nil {
		return nil, err
	}
	root, err := parser.Parse()
	if err != nil {
		return nil, err
	}
	return &VariantIterator{root: root, opts: opts}, nil
}

// Iterate starts a fresh, independent expansion and returns its result
// and error channels. Cancelling ctx stops the producer between yields.
func (vi *VariantIterator) Iterate(ctx context.Context) (<-chan Variant, <-chan error) {
	expander, err := NewExpander(vi.root, vi.opts.ExtraAssignments, vi.opts.ExtraFilters)
	if err != nil {
		errc := make(chan error, 1)
		errc <- err
		close(errc)
		out := make(chan Variant)
		close(out)
		return out, errc
	}
	return expander.Iterate(ctx)
}

// All drains Iterate into a slice, for callers that don't need
// incremental consumption.
func (vi *VariantIterator) All(ctx context.Context) ([]Variant, error) {
	out, errc := vi.Iterate(ctx)
	var results []Variant
	for v := range out {
		results = append(results, v)
	}
	if err := <-errc; err != nil {
		return results, err
	}
	return results, nil
}
