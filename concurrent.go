package cartconf

import (
	"context"
	"runtime"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// BatchExpander expands several independent configuration sources
// concurrently. Each source's own expansion remains single-threaded, as
// required by the core's determinism contract; only the file-level work
// is parallelized across a fixed worker pool fed from a buffered job
// channel.
type BatchExpander struct {
	workers int
	opts    Options
}

// NewBatchExpander builds a BatchExpander with the given worker count. A
// non-positive count defaults to runtime.NumCPU().
func NewBatchExpander(workers int, opts Options) *BatchExpander {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &BatchExpander{workers: workers, opts: opts}
}

// BatchResult is one source's outcome: its Variants on success, or Error
// on failure. Either way Source identifies which input it came from.
type BatchResult struct {
	Source   Source
	Variants []Variant
	Error    error
}

// ExpandAll expands every source in sources, distributing the work
// across the pool's workers, and returns one BatchResult per input in
// the same order they were given. Cancelling ctx makes every source that
// no worker has started yet report ctx.Err() instead of being expanded; a
// source whose expansion is already under way runs to completion.
func (be *BatchExpander) ExpandAll(ctx context.Context, sources []Source) []BatchResult {
	results := make([]BatchResult, len(sources))
	if len(sources) == 0 {
		return results
	}

	type job struct {
		index int
		src   Source
	}
	jobs := make(chan job, len(sources))
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for j := range jobs {
			select {
			case <-ctx.Done():
				results[j.index] = BatchResult{Source: j.src, Error: ctx.Err()}
			default:
				results[j.index] = be.expandOne(j.src)
			}
		}
	}

	for i := 0; i < be.workers && i < len(sources); i++ {
		wg.Add(1)
		go worker()
	}
	for i, src := range sources {
		jobs <- job{index: i, src: src}
	}
	close(jobs)
	wg.Wait()

	return results
}

func (be *BatchExpander) expandOne(src Source) BatchResult {
	var variants []Variant
	text, loader, err := src.resolve()
	if err != nil {
		return BatchResult{Source: src, Error: err}
	}
	parser, err := NewParser(text, loader)
	if err != nil {
		return BatchResult{Source: src, Error: err}
	}
	root, err := parser.Parse()
	if err != nil {
		return BatchResult{Source: src, Error: err}
	}
	expander, err := NewExpander(root, be.opts.ExtraAssignments, be.opts.ExtraFilters)
	if err != nil {
		return BatchResult{Source: src, Error: err}
	}
	err = expander.Expand(func(v Variant) error {
		variants = append(variants, v)
		return nil
	})
	return BatchResult{Source: src, Variants: variants, Error: err}
}

// Errors collects every non-nil error across results into a single
// *multierror.Error, or nil if every source succeeded.
func Errors(results []BatchResult) error {
	var combined *multierror.Error
	for _, r := range results {
		if r.Error != nil {
			combined = multierror.Append(combined, r.Error)
		}
	}
	if combined == nil {
		return nil
	}
	return combined
}
