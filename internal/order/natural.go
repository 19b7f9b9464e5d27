package order

import (
	"bytes"
)

// NaturalOrder - The internally used default ordering. Keys are compared byte by byte as unsigned values,
// which for fixed length keys equals plain lexicographic order.
type NaturalOrder struct{}

// NewNaturalOrder - Returns a pointer to a new NaturalOrder instance
func NewNaturalOrder() *NaturalOrder {
	return &NaturalOrder{}
}

// Name - Returns the name of the ordering
func (N *NaturalOrder) Name() string {
	return "natural"
}

// Compare - Compares a and b as unsigned byte strings
func (N *NaturalOrder) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// WellFormed - Any non-empty key is accepted as long as it does not start with the free record marker
func (N *NaturalOrder) WellFormed(key []byte) bool {
	return len(key) > 0 && key[0] != 0
}
