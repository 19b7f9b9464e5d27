package order

// Base64Alphabet - The url safe base64 alphabet, in the order used for comparison
const Base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// Base64Order - Orders keys made of base64 characters by their position in Base64Alphabet rather than by their
// byte values, so that 'Z' < 'a' < '0' < '-' < '_'. This is the ordering used for url and word hashes.
type Base64Order struct {
	ahpla [256]int8
}

// NewBase64Order - Returns a pointer to a new Base64Order instance
func NewBase64Order() *Base64Order {
	b := &Base64Order{}
	for i := range b.ahpla {
		b.ahpla[i] = -1
	}
	for i := 0; i < len(Base64Alphabet); i++ {
		b.ahpla[Base64Alphabet[i]] = int8(i)
	}

	return b
}

// Name - Returns the name of the ordering
func (B *Base64Order) Name() string {
	return "base64"
}

// Compare - Compares a and b by alphabet position. Bytes outside the alphabet sort before every alphabet
// character and among themselves by byte value.
func (B *Base64Order) Compare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	for i := 0; i < n; i++ {
		ca, cb := int(B.ahpla[a[i]]), int(B.ahpla[b[i]])
		if ca == -1 && cb == -1 {
			ca, cb = int(a[i])-256, int(b[i])-256
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}

	return len(a) - len(b)
}

// WellFormed - Returns true if key is non-empty and made only of alphabet characters
func (B *Base64Order) WellFormed(key []byte) bool {
	if len(key) == 0 {
		return false
	}
	for _, c := range key {
		if B.ahpla[c] == -1 {
			return false
		}
	}

	return true
}
