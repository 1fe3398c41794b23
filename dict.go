package cartconf

import "regexp"

// orderedDict is a string-to-string map with stable insertion order,
// also recording for each key whether its current value came from a lazy
// assignment. A lazy op fires only while its key is absent; a later
// non-lazy op always wins.
type orderedDict struct {
	keys   []string
	values map[string]string
	lazy   map[string]bool
}

func newOrderedDict() *orderedDict {
	return &orderedDict{values: map[string]string{}, lazy: map[string]bool{}}
}

func (d *orderedDict) get(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok
}

func (d *orderedDict) set(key, value string, lazy bool) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
	d.lazy[key] = lazy
}

func (d *orderedDict) has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// apply performs one AssignOp against the dict's current value for key.
func (d *orderedDict) apply(key string, op AssignOp, value string) {
	if op.isLazy() {
		if d.has(key) && !d.lazy[key] {
			return // a non-lazy value already won
		}
		if d.has(key) && d.lazy[key] {
			return // an earlier lazy op already claimed this key
		}
	}

	switch op {
	case OpSet, OpLazySet:
		d.set(key, value, op.isLazy())
	case OpAppend, OpLazyAppend:
		cur, _ := d.get(key)
		d.set(key, cur+value, op.isLazy())
	case OpPrepend, OpLazyPrepend:
		cur, _ := d.get(key)
		d.set(key, value+cur, op.isLazy())
	case OpRegexSub:
		cur, ok := d.get(key)
		if !ok {
			d.set(key, "", false)
			return
		}
		d.set(key, applyRegexSub(cur, value), false)
	}
}

// applyRegexSub interprets value as a `/pattern/replacement/` triple and
// runs it against cur. A malformed triple leaves cur unchanged.
func applyRegexSub(cur, value string) string {
	if len(value) < 2 || value[0] != '/' {
		return cur
	}
	parts := splitRegexTriple(value)
	if parts == nil {
		return cur
	}
	re, err := regexp.Compile(parts[0])
	if err != nil {
		return cur
	}
	return re.ReplaceAllString(cur, parts[1])
}

// splitRegexTriple splits `/pattern/replacement/` on unescaped `/`.
func splitRegexTriple(s string) []string {
	if len(s) < 2 || s[0] != '/' {
		return nil
	}
	var fields []string
	var cur []byte
	for i := 1; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == '/' {
			cur = append(cur, '/')
			i++
			continue
		}
		if s[i] == '/' {
			fields = append(fields, string(cur))
			cur = nil
			continue
		}
		cur = append(cur, s[i])
	}
	if len(fields) < 2 {
		return nil
	}
	return fields[:2]
}

func (d *orderedDict) del(pattern string) error {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return err
	}
	var kept []string
	for _, k := range d.keys {
		if re.MatchString(k) {
			delete(d.values, k)
			delete(d.lazy, k)
			continue
		}
		kept = append(kept, k)
	}
	d.keys = kept
	return nil
}

func (d *orderedDict) clone() *orderedDict {
	c := newOrderedDict()
	c.keys = append([]string{}, d.keys...)
	for k, v := range d.values {
		c.values[k] = v
	}
	for k, v := range d.lazy {
		c.lazy[k] = v
	}
	return c
}

// toMap returns a plain map snapshot, used for public API results.
func (d *orderedDict) toMap() map[string]string {
	m := make(map[string]string, len(d.keys))
	for _, k := range d.keys {
		m[k] = d.values[k]
	}
	return m
}
