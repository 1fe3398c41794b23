package cartconf

import "testing"

func TestOrderedDictSetPreservesInsertionOrder(t *testing.T) {
	d := newOrderedDict()
	d.set("b", "2", false)
	d.set("a", "1", false)
	d.set("b", "20", false)
	if got := d.toMap(); got["a"] != "1" || got["b"] != "20" {
		t.Fatalf("unexpected map contents: %+v", got)
	}
	if len(d.keys) != 2 || d.keys[0] != "b" || d.keys[1] != "a" {
		t.Errorf("keys = %v, want [b a] (re-setting b should not move it)", d.keys)
	}
}

func TestDictApplyAppendPrepend(t *testing.T) {
	d := newOrderedDict()
	d.apply("x", OpAppend, "b")
	d.apply("x", OpAppend, "c")
	if v, _ := d.get("x"); v != "bc" {
		t.Errorf("x = %q, want bc", v)
	}
	d2 := newOrderedDict()
	d2.apply("y", OpPrepend, "b")
	d2.apply("y", OpPrepend, "a")
	if v, _ := d2.get("y"); v != "ab" {
		t.Errorf("y = %q, want ab", v)
	}
}

func TestDictApplyRegexSub(t *testing.T) {
	d := newOrderedDict()
	d.set("path", "/usr/local/bin", false)
	d.apply("path", OpRegexSub, "/local//")
	if v, _ := d.get("path"); v != "/usr//bin" {
		t.Errorf("path = %q, want /usr//bin", v)
	}
}

func TestDictApplyRegexSubOnAbsentKeyYieldsEmpty(t *testing.T) {
	d := newOrderedDict()
	d.apply("missing", OpRegexSub, "/a/b/")
	v, ok := d.get("missing")
	if !ok || v != "" {
		t.Errorf("expected missing to become an empty string, got (%q, %v)", v, ok)
	}
}

func TestDictLazyVsLazyFirstWins(t *testing.T) {
	d := newOrderedDict()
	d.apply("x", OpLazySet, "first")
	d.apply("x", OpLazySet, "second")
	if v, _ := d.get("x"); v != "first" {
		t.Errorf("x = %q, want first (first lazy assignment should win)", v)
	}
}

func TestDictNonLazyAlwaysOverridesLazy(t *testing.T) {
	d := newOrderedDict()
	d.apply("x", OpLazySet, "lazy")
	d.apply("x", OpSet, "real")
	if v, _ := d.get("x"); v != "real" {
		t.Errorf("x = %q, want real", v)
	}
}

func TestDictDelMatchesAnchoredPattern(t *testing.T) {
	d := newOrderedDict()
	d.set("foo_bar", "1", false)
	d.set("foobar", "2", false)
	d.set("foo", "3", false)
	if err := d.del("foo.*"); err != nil {
		t.Fatalf("del error: %v", err)
	}
	if len(d.keys) != 0 {
		t.Errorf("expected every foo* key removed, got %v", d.keys)
	}
}

func TestDictCloneIsIndependent(t *testing.T) {
	d := newOrderedDict()
	d.set("a", "1", false)
	c := d.clone()
	c.set("a", "2", false)
	c.set("b", "3", false)
	if v, _ := d.get("a"); v != "1" {
		t.Errorf("mutating the clone changed the original: a = %q", v)
	}
	if d.has("b") {
		t.Errorf("mutating the clone added a key to the original")
	}
}
