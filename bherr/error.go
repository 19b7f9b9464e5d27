package bherr

import (
	"github.com/cockroachdb/errors"
)

// ErrNoRecordFound - Sentinel to inform that no record was found for a key
var ErrNoRecordFound = errors.New("no record found")

// ErrIO - Sentinel marking errors coming from reading, writing, seeking or truncating the heap file
var ErrIO = errors.New("heap file i/o failure")

// ErrCorruptRecord - Sentinel marking a record whose declared size runs past the end of the heap file
var ErrCorruptRecord = errors.New("corrupt record")

// ErrCorruptionDetected - Sentinel marking a mismatch between an index entry and the key stored in the heap file.
// Whenever this is returned the index has already been rebuilt from the heap file.
var ErrCorruptionDetected = errors.New("corruption detected")

// ErrMalformedKey - Sentinel marking a key that the byte order does not accept
var ErrMalformedKey = errors.New("malformed key")

// ErrKeyLength - Sentinel marking a key of the wrong length
var ErrKeyLength = errors.New("wrong key length")

// ErrRecordTooLarge - Sentinel marking a payload that does not fit the 32-bit record length field
var ErrRecordTooLarge = errors.New("record too large")

// ErrClosed - Sentinel returned by any operation on a heap that has been closed
var ErrClosed = errors.New("heap closed")

// IOErrorf - Wraps err with a formatted message and marks it as ErrIO
func IOErrorf(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrIO)
}

// CorruptRecordf - Returns a formatted error marked as ErrCorruptRecord
func CorruptRecordf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruptRecord)
}

// CorruptionDetectedf - Returns a formatted error marked as both ErrCorruptionDetected and ErrNoRecordFound,
// callers only interested in presence of a record can keep treating it as a miss.
func CorruptionDetectedf(format string, args ...interface{}) error {
	return errors.Mark(errors.Mark(errors.Newf(format, args...), ErrCorruptionDetected), ErrNoRecordFound)
}

// MalformedKeyf - Returns a formatted error marked as ErrMalformedKey
func MalformedKeyf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrMalformedKey)
}

// KeyLengthf - Returns a formatted error marked as ErrKeyLength
func KeyLengthf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrKeyLength)
}

// RecordTooLargef - Returns a formatted error marked as ErrRecordTooLarge
func RecordTooLargef(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrRecordTooLarge)
}
