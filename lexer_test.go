package cartconf

import "testing"

func TestSplitLogicalLinesStripsCommentsAndBlanks(t *testing.T) {
	src := "x = 1 # trailing\n\n  // whole line\ny = 2\n"
	lines, err := splitLogicalLines(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 logical lines, got %d: %+v", len(lines), lines)
	}
	if lines[0].content != "x = 1 " {
		t.Errorf("line 0 content = %q", lines[0].content)
	}
	if lines[1].content != "y = 2" {
		t.Errorf("line 1 content = %q", lines[1].content)
	}
}

func TestSplitLogicalLinesJoinsContinuations(t *testing.T) {
	src := "x = 1 + \\\n    2\n"
	lines, err := splitLogicalLines(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 logical line, got %d", len(lines))
	}
	if lines[0].content != "x = 1 + 2" {
		t.Errorf("joined content = %q", lines[0].content)
	}
}

func TestSplitAssignmentPrefersLongestOperator(t *testing.T) {
	cases := []struct {
		in      string
		wantOp  string
		wantKey string
		wantVal string
	}{
		{"x = 1", "=", "x", "1"},
		{"x += 1", "+=", "x", "1"},
		{"x <= 1", "<=", "x", "1"},
		{"x ~= /a/b/", "~=", "x", "/a/b/"},
		{"x ?= 1", "?=", "x", "1"},
		{"x ?+= 1", "?+=", "x", "1"},
		{"x ?<= 1", "?<=", "x", "1"},
	}
	for _, c := range cases {
		op, key, val, ok := splitAssignment(c.in)
		if !ok {
			t.Fatalf("splitAssignment(%q) failed to match", c.in)
		}
		if op != c.wantOp || key != c.wantKey || val != c.wantVal {
			t.Errorf("splitAssignment(%q) = (%q, %q, %q), want (%q, %q, %q)",
				c.in, op, key, val, c.wantOp, c.wantKey, c.wantVal)
		}
	}
}

func TestSplitAssignmentIgnoresBracketedEquals(t *testing.T) {
	_, _, _, ok := splitAssignment("variants[key=value]:")
	if ok {
		t.Errorf("splitAssignment should not treat [key=value] meta as an assignment")
	}
}

func TestClassifyLineRecognizesDirectives(t *testing.T) {
	cases := map[string]string{
		"variants:":    "variants",
		"- a:":         "bullet",
		"include foo":  "include",
		"del x":        "del",
		"only a":       "only",
		"no b":         "no",
		"join a b":     "join",
		"suffix _x":    "suffix",
	}
	for in, wantKeyword := range cases {
		raw := rawLine{indent: "", content: in, line: 1}
		st, err := classifyLine(raw)
		if err != nil {
			t.Fatalf("classifyLine(%q) error: %v", in, err)
		}
		if st.keyword != wantKeyword {
			t.Errorf("classifyLine(%q).keyword = %q, want %q", in, st.keyword, wantKeyword)
		}
	}
}

func TestClassifyLineCondBlock(t *testing.T) {
	st, err := classifyLine(rawLine{content: "a..b:", line: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.keyword != "condblock" || st.negated {
		t.Errorf("got %+v", st)
	}

	st, err = classifyLine(rawLine{content: "!a:", line: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.keyword != "condblock" || !st.negated {
		t.Errorf("got %+v", st)
	}
}
