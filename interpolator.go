package cartconf

import "strings"

// maxInterpPasses bounds the number of fixed-point passes the interpolator
// will attempt before giving up on a value that still contains `${...}`.
const maxInterpPasses = 32

// interpolate replaces every `${name}` in every value of dict with the
// current value of dict[name], repeating until no `${...}` remains or the
// pass cap is reached. It mutates dict in place.
func interpolate(dict *orderedDict) error {
	for pass := 0; pass < maxInterpPasses; pass++ {
		changed := false
		for _, key := range dict.keys {
			val := dict.values[key]
			if !strings.Contains(val, "${") {
				continue
			}
			next, ref, ok := substituteOnce(val, dict)
			if !ok {
				return &InterpError{Key: ref}
			}
			if next != val {
				dict.values[key] = next
				changed = true
			}
		}
		if !changed {
			return checkResolved(dict)
		}
	}
	return &InterpError{Key: firstUnresolved(dict), Chain: dict.keys}
}

// substituteOnce replaces every `${name}` occurrence in val with the
// dict's current value for name. It reports the first unresolved name it
// finds (if any) so the caller can build an InterpError.
func substituteOnce(val string, dict *orderedDict) (result string, unresolvedKey string, ok bool) {
	var b strings.Builder
	i := 0
	for i < len(val) {
		start := strings.Index(val[i:], "${")
		if start < 0 {
			b.WriteString(val[i:])
			break
		}
		start += i
		b.WriteString(val[i:start])
		end := strings.IndexByte(val[start:], '}')
		if end < 0 {
			b.WriteString(val[start:])
			break
		}
		end += start
		name := val[start+2 : end]
		ref, found := dict.get(name)
		if !found {
			return "", name, false
		}
		b.WriteString(ref)
		i = end + 1
	}
	return b.String(), "", true
}

func checkResolved(dict *orderedDict) error {
	for _, key := range dict.keys {
		if strings.Contains(dict.values[key], "${") {
			return &InterpError{Key: key, Chain: dict.keys}
		}
	}
	return nil
}

func firstUnresolved(dict *orderedDict) string {
	for _, key := range dict.keys {
		if strings.Contains(dict.values[key], "${") {
			return key
		}
	}
	return ""
}
