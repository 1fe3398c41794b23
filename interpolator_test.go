package cartconf

import "testing"

func TestInterpolateResolvesNestedReferences(t *testing.T) {
	d := newOrderedDict()
	d.set("a", "1", false)
	d.set("b", "${a}", false)
	d.set("c", "${b}-${a}", false)
	if err := interpolate(d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := d.get("c"); v != "1-1" {
		t.Errorf("c = %q, want 1-1", v)
	}
}

func TestInterpolateUnresolvedReferenceErrors(t *testing.T) {
	d := newOrderedDict()
	d.set("a", "${missing}", false)
	err := interpolate(d)
	if err == nil {
		t.Fatalf("expected an InterpError for a reference to a nonexistent key")
	}
	ie, ok := err.(*InterpError)
	if !ok {
		t.Fatalf("expected *InterpError, got %T", err)
	}
	if ie.Key != "missing" {
		t.Errorf("InterpError.Key = %q, want missing", ie.Key)
	}
}

func TestInterpolateLeavesPlainValuesUntouched(t *testing.T) {
	d := newOrderedDict()
	d.set("a", "plain value", false)
	if err := interpolate(d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := d.get("a"); v != "plain value" {
		t.Errorf("a = %q, want unchanged", v)
	}
}

func TestSubstituteOnceReplacesMultipleOccurrences(t *testing.T) {
	d := newOrderedDict()
	d.set("x", "5", false)
	result, _, ok := substituteOnce("${x}+${x}", d)
	if !ok {
		t.Fatalf("expected substitution to succeed")
	}
	if result != "5+5" {
		t.Errorf("result = %q, want 5+5", result)
	}
}

func TestSubstituteOnceReportsFirstUnresolvedName(t *testing.T) {
	d := newOrderedDict()
	_, ref, ok := substituteOnce("${nope}", d)
	if ok {
		t.Fatalf("expected substitution to fail for an unknown key")
	}
	if ref != "nope" {
		t.Errorf("unresolved ref = %q, want nope", ref)
	}
}
