package cartconf

// isIdentStart reports whether b can begin an identifier: `[A-Za-z0-9]`.
// The grammar allows a leading digit (variant names like "1"/"2" in
// spec.md §8 scenario 3), unlike most languages' identifier rules.
func isIdentStart(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z'
}

// isIdentCont reports whether b can continue an identifier begun by
// isIdentStart: `[A-Za-z0-9_-]`.
func isIdentCont(b byte) bool {
	return isIdentStart(b) || b == '_' || b == '-'
}
