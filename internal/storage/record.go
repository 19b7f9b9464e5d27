package storage

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/gostonefire/blobheap/bherr"
	"github.com/gostonefire/blobheap/internal/conf"
	"github.com/gostonefire/blobheap/internal/model"
)

// zeroChunk - Largest number of zero bytes written in one call when filling a free record
const zeroChunk int64 = 64 * 1024

// RecordFile - The random access file holding the heap, *os.File implements it
type RecordFile interface {
	io.ReaderAt
	io.WriterAt
	Truncate(size int64) error
	Stat() (os.FileInfo, error)
}

// FileSize - Returns the current size of the heap file
func FileSize(rf RecordFile) (size int64, err error) {
	stat, err := rf.Stat()
	if err != nil {
		err = bherr.IOErrorf(err, "stat heap file")
		return
	}

	size = stat.Size()

	return
}

// ReadLength - Reads the length field of the record at offset
func ReadLength(rf RecordFile, offset int64) (length int32, err error) {
	buf := make([]byte, conf.LengthFieldBytes)
	_, err = rf.ReadAt(buf, offset)
	if err != nil {
		err = bherr.IOErrorf(err, "read record length at %d", offset)
		return
	}

	length = int32(binary.BigEndian.Uint32(buf))

	return
}

// WriteLength - Writes the length field of the record at offset
func WriteLength(rf RecordFile, offset int64, length int32) (err error) {
	buf := make([]byte, conf.LengthFieldBytes)
	binary.BigEndian.PutUint32(buf, uint32(length))

	_, err = rf.WriteAt(buf, offset)
	if err != nil {
		err = bherr.IOErrorf(err, "write record length at %d", offset)
	}

	return
}

// ReadKey - Reads n key bytes of the record at offset
func ReadKey(rf RecordFile, offset, n int64) (key []byte, err error) {
	key = make([]byte, n)
	_, err = rf.ReadAt(key, offset+conf.LengthFieldBytes)
	if err != nil {
		key = nil
		err = bherr.IOErrorf(err, "read record key at %d", offset)
	}

	return
}

// ReadMarker - Reads the first key byte of the record at offset
func ReadMarker(rf RecordFile, offset int64) (marker byte, err error) {
	key, err := ReadKey(rf, offset, 1)
	if err != nil {
		return
	}

	marker = key[0]

	return
}

// ReadPayload - Reads the payload of the record at offset given the value of its length field
func ReadPayload(rf RecordFile, offset, keyLength int64, length int32) (payload []byte, err error) {
	n := int64(length) - keyLength
	if n < 0 {
		err = bherr.CorruptRecordf("record at %d has length %d shorter than key length %d", offset, length, keyLength)
		return
	}

	payload = make([]byte, n)
	_, err = rf.ReadAt(payload, offset+conf.LengthFieldBytes+keyLength)
	if err != nil {
		payload = nil
		err = bherr.IOErrorf(err, "read record payload at %d", offset)
	}

	return
}

// AppendRecord - Appends the on disk representation of key and payload to dst
func AppendRecord(dst, key, payload []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(key)+len(payload)))
	dst = append(dst, key...)
	dst = append(dst, payload...)

	return dst
}

// WriteRecord - Writes a complete record at offset using one write call
func WriteRecord(rf RecordFile, offset int64, key, payload []byte) (err error) {
	buf := AppendRecord(make([]byte, 0, conf.LengthFieldBytes+int64(len(key)+len(payload))), key, payload)

	_, err = rf.WriteAt(buf, offset)
	if err != nil {
		err = bherr.IOErrorf(err, "write record at %d", offset)
	}

	return
}

// WriteGapHeader - Writes the length field and the free record marker of a gap at offset.
// Size must be at least one since the marker is the first byte after the length field.
func WriteGapHeader(rf RecordFile, offset int64, size int32) (err error) {
	buf := make([]byte, conf.LengthFieldBytes+1)
	binary.BigEndian.PutUint32(buf, uint32(size))
	buf[conf.LengthFieldBytes] = conf.GapMarker

	_, err = rf.WriteAt(buf, offset)
	if err != nil {
		err = bherr.IOErrorf(err, "write gap header at %d", offset)
	}

	return
}

// ZeroFill - Overwrites the size bytes following the length field of the record at offset with zeros,
// which turns the record into a free record.
func ZeroFill(rf RecordFile, offset int64, size int32) (err error) {
	remaining := int64(size)
	chunk := remaining
	if chunk > zeroChunk {
		chunk = zeroChunk
	}
	zeros := make([]byte, chunk)

	pos := offset + conf.LengthFieldBytes
	for remaining > 0 {
		n := remaining
		if n > chunk {
			n = chunk
		}
		_, err = rf.WriteAt(zeros[:n], pos)
		if err != nil {
			err = bherr.IOErrorf(err, "zero fill record at %d", offset)
			return
		}
		pos += n
		remaining -= n
	}

	return
}

// Walk - Walks the heap file from the start and calls fn with the header of every record found.
// Walking ends at the end of the file or at the first record that can not be valid: a length field that is
// zero, negative, cut off, or that makes the record run past the end of the file.
//
// It returns:
//   - validEnd is the offset where the sequence of valid records ends, it equals the file size for a sound file.
//   - cause is nil for a sound file, otherwise an error marked bherr.ErrCorruptRecord telling why walking stopped at validEnd.
//   - err is an i/o error or an error returned from fn, walking stops immediately on it.
func Walk(rf RecordFile, keyLength int64, fn func(header model.RecordHeader) error) (validEnd int64, cause error, err error) {
	fileSize, err := FileSize(rf)
	if err != nil {
		return
	}

	var offset int64
	var length int32
	var key []byte
	for offset < fileSize {
		if offset+conf.LengthFieldBytes > fileSize {
			validEnd = offset
			cause = bherr.CorruptRecordf("length field at %d is cut off by end of file at %d", offset, fileSize)
			return
		}

		length, err = ReadLength(rf, offset)
		if err != nil {
			return
		}
		if length == 0 {
			validEnd = offset
			cause = bherr.CorruptRecordf("zero record length at %d", offset)
			return
		}
		if length < 0 || offset+conf.LengthFieldBytes+int64(length) > fileSize {
			validEnd = offset
			cause = bherr.CorruptRecordf("record length %d at %d runs past end of file at %d", length, offset, fileSize)
			return
		}

		n := keyLength
		if int64(length) < n {
			n = int64(length)
		}
		key, err = ReadKey(rf, offset, n)
		if err != nil {
			return
		}

		err = fn(model.RecordHeader{Offset: offset, Length: length, Key: key})
		if err != nil {
			return
		}

		offset += conf.LengthFieldBytes + int64(length)
	}

	validEnd = offset

	return
}
