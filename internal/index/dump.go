package index

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/gostonefire/blobheap/bherr"
	"github.com/gostonefire/blobheap/byteorder"
	"github.com/gostonefire/blobheap/internal/conf"
	"github.com/gostonefire/blobheap/internal/model"
)

// Index dump file layout, all numbers big-endian:
//
//	magic        4 bytes "BHIX"
//	version      1 byte
//	key length   4 bytes
//	entry count  8 bytes
//	entries      entry count times [key][8 byte offset], in key order
//	gap count    8 bytes
//	gaps         gap count times [8 byte offset][4 byte size], in offset order
//	checksum     8 bytes xxhash64 of everything before it
const (
	dumpHeaderLength   = 4 + 1 + 4 + 8
	dumpGapLength      = 8 + 4
	dumpChecksumLength = 8
)

// ErrBadDump - Sentinel marking an index dump file that can not be used
var ErrBadDump = errors.New("bad index dump")

// Dump - Writes the index and the given gaps to a new dump file at path, replacing any file already there
//   - path is the path of the dump file
//   - gaps is the free list of the heap file in offset order
//
// It returns:
//   - err which is an i/o error from writing the file
func (I *Index) Dump(path string, gaps []model.Gap) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		err = bherr.IOErrorf(err, "create index dump %s", path)
		return
	}

	err = errors.CombineErrors(I.writeDump(f, gaps), f.Close())
	if err != nil {
		_ = os.Remove(path)
		err = bherr.IOErrorf(err, "write index dump %s", path)
	}

	return
}

// writeDump - Writes the dump content to w
func (I *Index) writeDump(w io.Writer, gaps []model.Gap) (err error) {
	digest := xxhash.New()
	bw := bufio.NewWriter(io.MultiWriter(w, digest))

	header := make([]byte, 0, dumpHeaderLength)
	header = append(header, conf.IndexFileMagic...)
	header = append(header, conf.IndexFileVersion)
	header = binary.BigEndian.AppendUint32(header, uint32(I.keyLength))
	header = binary.BigEndian.AppendUint64(header, uint64(I.tree.Len()))
	if _, err = bw.Write(header); err != nil {
		return
	}

	buf := make([]byte, 0, I.keyLength+8)
	I.tree.Ascend(func(e entry) bool {
		buf = append(buf[:0], e.key...)
		buf = binary.BigEndian.AppendUint64(buf, uint64(e.offset))
		_, err = bw.Write(buf)
		return err == nil
	})
	if err != nil {
		return
	}

	buf = binary.BigEndian.AppendUint64(buf[:0], uint64(len(gaps)))
	if _, err = bw.Write(buf); err != nil {
		return
	}
	for _, g := range gaps {
		buf = binary.BigEndian.AppendUint64(buf[:0], uint64(g.Offset))
		buf = binary.BigEndian.AppendUint32(buf, uint32(g.Size))
		if _, err = bw.Write(buf); err != nil {
			return
		}
	}

	if err = bw.Flush(); err != nil {
		return
	}

	_, err = w.Write(binary.BigEndian.AppendUint64(nil, digest.Sum64()))

	return
}

// Load - Reads an index and a free list from a dump file
//   - path is the path of the dump file
//   - keyLength is the fixed length of all keys, it must match the one in the dump
//   - order is the ordering of keys
//
// It returns:
//   - index which is the loaded index
//   - gaps which is the loaded free list in offset order
//   - err which is either an i/o error or an error marked ErrBadDump if the content is not a valid dump
func Load(path string, keyLength int64, order byteorder.ByteOrder) (index *Index, gaps []model.Gap, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = bherr.IOErrorf(err, "read index dump %s", path)
		return
	}

	if len(data) < dumpHeaderLength+8+dumpChecksumLength {
		err = badDumpf("dump of %d bytes is too short", len(data))
		return
	}

	body, checksum := data[:len(data)-dumpChecksumLength], data[len(data)-dumpChecksumLength:]
	if xxhash.Sum64(body) != binary.BigEndian.Uint64(checksum) {
		err = badDumpf("checksum mismatch")
		return
	}

	if string(body[:4]) != conf.IndexFileMagic {
		err = badDumpf("bad magic %q", body[:4])
		return
	}
	if body[4] != conf.IndexFileVersion {
		err = badDumpf("unsupported version %d", body[4])
		return
	}
	if dumpKeyLength := int64(binary.BigEndian.Uint32(body[5:9])); dumpKeyLength != keyLength {
		err = badDumpf("dump has key length %d, expected %d", dumpKeyLength, keyLength)
		return
	}

	entryLength := uint64(keyLength) + 8
	nEntries := binary.BigEndian.Uint64(body[9:dumpHeaderLength])
	rest := body[dumpHeaderLength:]
	if nEntries > uint64(len(rest))/entryLength {
		err = badDumpf("dump declares %d entries but holds %d bytes", nEntries, len(rest))
		return
	}

	index = New(keyLength, order)
	for i := uint64(0); i < nEntries; i++ {
		e := entry{
			key:    append([]byte(nil), rest[:keyLength]...),
			offset: int64(binary.BigEndian.Uint64(rest[keyLength:entryLength])),
		}
		index.tree.ReplaceOrInsert(e)
		rest = rest[entryLength:]
	}

	if len(rest) < 8 {
		index, err = nil, badDumpf("gap count is missing")
		return
	}
	nGaps := binary.BigEndian.Uint64(rest[:8])
	rest = rest[8:]
	if nGaps != uint64(len(rest))/dumpGapLength || uint64(len(rest))%dumpGapLength != 0 {
		index, err = nil, badDumpf("dump declares %d gaps but holds %d bytes", nGaps, len(rest))
		return
	}

	gaps = make([]model.Gap, 0, nGaps)
	for i := uint64(0); i < nGaps; i++ {
		gaps = append(gaps, model.Gap{
			Offset: int64(binary.BigEndian.Uint64(rest[:8])),
			Size:   int32(binary.BigEndian.Uint32(rest[8:dumpGapLength])),
		})
		rest = rest[dumpGapLength:]
	}

	return
}

// badDumpf - Returns a formatted error marked as ErrBadDump
func badDumpf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrBadDump)
}
