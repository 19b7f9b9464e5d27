package byteorder

import (
	"github.com/gostonefire/blobheap/internal/order"
)

// ByteOrder - Interface that permits an implementation using the BlobHeap to supply a custom total ordering
// of its fixed length keys. The ordering decides the iteration order of keys and the layout of the in memory index,
// hence the same ByteOrder must be used every time a heap file is opened.
type ByteOrder interface {
	// Name - Returns a short name of the ordering, it is used in log output and in tooling.
	Name() string

	// Compare - Returns a negative number if a sorts before b, zero if they are equal and a positive number
	// if a sorts after b. The order must be total and consistent over time.
	Compare(a, b []byte) int

	// WellFormed - Returns true if the key can legally appear in the heap file.
	// Keys that are not well-formed are refused when written and skipped when the heap file is scanned.
	// A key starting with a zero byte is never well-formed since that byte marks a free record on disk.
	WellFormed(key []byte) bool
}

// Natural - Returns the default ordering, keys are compared as unsigned byte strings and any key not starting
// with a zero byte is well-formed
func Natural() ByteOrder {
	return order.NewNaturalOrder()
}

// Base64 - Returns an ordering of keys made of characters from the URL safe base64 alphabet, compared by their
// position in the alphabet. Keys with any other character are not well-formed.
func Base64() ByteOrder {
	return order.NewBase64Order()
}
