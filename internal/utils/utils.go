package utils

// CopyBytes - Returns a copy of a that does not share memory with it. A nil slice is returned as nil.
func CopyBytes(a []byte) (b []byte) {
	if a == nil {
		return
	}
	b = make([]byte, len(a))
	_ = copy(b, a)

	return
}

// Printable - Returns a representation of key suited for log output, bytes outside printable ascii are
// replaced by a dot.
func Printable(key []byte) string {
	b := make([]byte, len(key))
	for i, v := range key {
		if v < 0x20 || v > 0x7e {
			b[i] = '.'
		} else {
			b[i] = v
		}
	}

	return string(b)
}
