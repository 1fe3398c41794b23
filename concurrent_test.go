package cartconf

import (
	"context"
	"testing"
)

func TestBatchExpanderExpandsEachSourceIndependently(t *testing.T) {
	be := NewBatchExpander(2, Options{})
	sources := []Source{
		{Contents: "x = 1\n"},
		{Contents: "variants:\n    - a:\n    - b:\n"},
		{Contents: "y = 2\n"},
	}
	results := be.ExpandAll(context.Background(), sources)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Error != nil || len(results[0].Variants) != 1 || results[0].Variants[0].Dict["x"] != "1" {
		t.Errorf("result 0 = %+v", results[0])
	}
	if results[1].Error != nil || len(results[1].Variants) != 2 {
		t.Errorf("result 1 = %+v", results[1])
	}
	if results[2].Error != nil || results[2].Variants[0].Dict["y"] != "2" {
		t.Errorf("result 2 = %+v", results[2])
	}
}

func TestBatchExpanderCollectsPerSourceErrors(t *testing.T) {
	be := NewBatchExpander(2, Options{})
	sources := []Source{
		{Contents: "x = 1\n"},
		{Contents: "- bad bullet outside variants\n"},
	}
	results := be.ExpandAll(context.Background(), sources)
	if results[0].Error != nil {
		t.Errorf("expected the first source to succeed, got %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Errorf("expected the second source to fail to parse")
	}
	if err := Errors(results); err == nil {
		t.Errorf("expected Errors to aggregate the one failure")
	}
}

func TestBatchExpanderEmptyInput(t *testing.T) {
	be := NewBatchExpander(0, Options{})
	results := be.ExpandAll(context.Background(), nil)
	if len(results) != 0 {
		t.Fatalf("expected no results for no sources, got %d", len(results))
	}
	if err := Errors(results); err != nil {
		t.Errorf("expected no error for an empty result set, got %v", err)
	}
}
