package blobheap

import (
	"github.com/gostonefire/blobheap/bherr"
)

// Errors returned by a BlobHeap are marked with one of these, test with errors.Is.
var (
	// ErrNoRecordFound - There is no record for the key
	ErrNoRecordFound = bherr.ErrNoRecordFound
	// ErrIO - Reading, writing or truncating the heap file failed
	ErrIO = bherr.ErrIO
	// ErrCorruptRecord - A stored record runs past the end of the heap file
	ErrCorruptRecord = bherr.ErrCorruptRecord
	// ErrCorruptionDetected - The heap file did not hold the key where the index said, the index has been rebuilt
	ErrCorruptionDetected = bherr.ErrCorruptionDetected
	// ErrMalformedKey - The key is not well-formed in the ordering of the heap
	ErrMalformedKey = bherr.ErrMalformedKey
	// ErrKeyLength - The key does not have the key length of the heap
	ErrKeyLength = bherr.ErrKeyLength
	// ErrRecordTooLarge - The payload does not fit in a record
	ErrRecordTooLarge = bherr.ErrRecordTooLarge
	// ErrClosed - The heap has been closed
	ErrClosed = bherr.ErrClosed
)
