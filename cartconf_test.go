package cartconf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseStreamOfDicts(t *testing.T) {
	src := Source{Contents: "x = 1\n"}
	var got []map[string]string
	err := Parse(src, Options{}, func(dict map[string]string) error {
		got = append(got, dict)
		return nil
	})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(got) != 1 || got[0]["x"] != "1" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestParseExtraAssignmentsApplyAtOutermostScope(t *testing.T) {
	src := Source{Contents: "x = 1\n"}
	opts := Options{ExtraAssignments: []string{"x=2"}}
	var got map[string]string
	err := Parse(src, opts, func(dict map[string]string) error {
		got = dict
		return nil
	})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got["x"] != "1" {
		t.Errorf("x = %q; extra assignments apply before the source's own Set, so the source's own x=1 should win", got["x"])
	}
}

func TestParsePropagatesEmitErrors(t *testing.T) {
	src := Source{Contents: "x = 1\n"}
	sentinel := os.ErrClosed
	err := Parse(src, Options{}, func(map[string]string) error {
		return sentinel
	})
	if err != sentinel {
		t.Errorf("expected Parse to propagate the emit error, got %v", err)
	}
}

func TestSourceResolveFromPathWithIncludes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "shared.cfg"), []byte("y = 2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	mainPath := filepath.Join(dir, "main.cfg")
	if err := os.WriteFile(mainPath, []byte("x = 1\ninclude shared.cfg\n"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	var got map[string]string
	err := Parse(Source{Path: mainPath}, Options{}, func(dict map[string]string) error {
		got = dict
		return nil
	})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got["x"] != "1" || got["y"] != "2" {
		t.Fatalf("expected both x and y via include resolution, got %+v", got)
	}
}

func TestVariantIteratorIsRestartable(t *testing.T) {
	src := Source{Contents: "variants:\n    - a:\n    - b:\n"}
	vi, err := NewVariantIterator(src, Options{})
	if err != nil {
		t.Fatalf("NewVariantIterator error: %v", err)
	}
	ctx := context.Background()
	first, err := vi.All(ctx)
	if err != nil {
		t.Fatalf("All error: %v", err)
	}
	second, err := vi.All(ctx)
	if err != nil {
		t.Fatalf("All error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("restarted iteration produced a different count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Errorf("variant %d: name mismatch across restarts: %q vs %q", i, first[i].Name, second[i].Name)
		}
	}
}

func TestVariantIteratorContextCancellation(t *testing.T) {
	src := Source{Contents: "variants:\n    - a:\n    - b:\n    - c:\n"}
	vi, err := NewVariantIterator(src, Options{})
	if err != nil {
		t.Fatalf("NewVariantIterator error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	out, errc := vi.Iterate(ctx)
	<-out
	cancel()
	for range out {
	}
	if err := <-errc; err == nil {
		t.Errorf("expected a context-cancellation error")
	}
}
