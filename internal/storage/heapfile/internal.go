package heapfile

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gostonefire/blobheap/bherr"
	"github.com/gostonefire/blobheap/internal/conf"
	"github.com/gostonefire/blobheap/internal/freelist"
	"github.com/gostonefire/blobheap/internal/index"
	"github.com/gostonefire/blobheap/internal/model"
	"github.com/gostonefire/blobheap/internal/storage"
	"github.com/gostonefire/blobheap/internal/utils"
)

// checkKeyLength - Checks that key has the fixed key length
func (H *HeapFile) checkKeyLength(key []byte) (err error) {
	if int64(len(key)) != H.keyLength {
		err = bherr.KeyLengthf("key has length %d, expected %d", len(key), H.keyLength)
	}

	return
}

// checkKey - Checks that key has the fixed key length and is well-formed in the ordering of the heap.
// A leading gap marker is refused whatever the ordering says, a scan would take such a record for a gap.
func (H *HeapFile) checkKey(key []byte) (err error) {
	err = H.checkKeyLength(key)
	if err != nil {
		return
	}

	if key[0] == conf.GapMarker {
		err = bherr.MalformedKeyf("key %s starts with the gap marker", utils.Printable(key))
		return
	}

	if !H.order.WellFormed(key) {
		err = bherr.MalformedKeyf("key %s is not well-formed in %s order", utils.Printable(key), H.order.Name())
	}

	return
}

// locate - Returns offset and length field of the record stored for key, after checking that the key stored in the
// heap file matches. On a mismatch the index is rebuilt from the heap file.
func (H *HeapFile) locate(key []byte) (offset int64, length int32, err error) {
	offset, ok := H.index.Get(key)
	if !ok {
		err = errors.Wrapf(bherr.ErrNoRecordFound, "key %s", utils.Printable(key))
		return
	}

	length, err = storage.ReadLength(H.heapFile, offset)
	if err != nil {
		return
	}

	stored, err := storage.ReadKey(H.heapFile, offset, H.keyLength)
	if err != nil {
		return
	}

	if H.order.Compare(stored, key) != 0 {
		H.logger.Warnf("index entry for key %s points at %d holding key %s, rebuilding index",
			utils.Printable(key), offset, utils.Printable(stored))
		rebuildErr := H.initIndexReadFromHeap()
		err = errors.CombineErrors(
			bherr.CorruptionDetectedf("index entry for key %s does not match heap file at %d", utils.Printable(key), offset),
			rebuildErr,
		)
	}

	return
}

// putToGap - Writes the record into a gap, either one of exactly the needed size or else the largest one if it is
// large enough to be split into the record and a new smaller gap.
//
// It returns:
//   - done which is false if no gap could take the record
//   - err which is an i/o error from writing the heap file
func (H *HeapFile) putToGap(key, payload []byte) (done bool, err error) {
	if H.free.Len() == 0 {
		return
	}

	recordLength := int32(H.keyLength + int64(len(payload)))

	if gap, ok := H.free.ExactFit(recordLength); ok {
		err = storage.WriteRecord(H.heapFile, gap.Offset, key, payload)
		if err != nil {
			return
		}
		H.index.Put(key, gap.Offset)
		H.free.Remove(gap.Offset)
		done = true
		return
	}

	gap, ok := H.free.Largest()
	if !ok || int64(gap.Size) <= int64(recordLength)+conf.LengthFieldBytes {
		return
	}

	err = storage.WriteRecord(H.heapFile, gap.Offset, key, payload)
	if err != nil {
		return
	}
	H.index.Put(key, gap.Offset)

	// The rest of the gap becomes a new gap right after the record
	residual := model.Gap{
		Offset: gap.Offset + conf.LengthFieldBytes + int64(recordLength),
		Size:   gap.Size - recordLength - int32(conf.LengthFieldBytes),
	}
	err = storage.WriteGapHeader(H.heapFile, residual.Offset, residual.Size)
	if err != nil {
		return
	}
	H.free.Remove(gap.Offset)
	err = H.free.Insert(residual)
	if err != nil {
		return
	}

	done = true

	return
}

// add - Appends the record to the end of the heap file
func (H *HeapFile) add(key, payload []byte) (err error) {
	offset, err := storage.FileSize(H.heapFile)
	if err != nil {
		return
	}

	err = storage.WriteRecord(H.heapFile, offset, key, payload)
	if err != nil {
		return
	}

	H.index.Put(key, offset)

	return
}

// flushBuffer - Appends every buffered record to the end of the heap file in one write and empties the buffer
func (H *HeapFile) flushBuffer() (err error) {
	if H.buffer.Len() == 0 {
		return
	}

	offset, err := storage.FileSize(H.heapFile)
	if err != nil {
		return
	}

	buf, placements := H.buffer.Layout(offset)
	_, err = H.heapFile.WriteAt(buf, offset)
	if err != nil {
		err = bherr.IOErrorf(err, "flush %d buffered records at %d", len(placements), offset)
		return
	}

	for _, p := range placements {
		H.index.Put(p.Key, p.Offset)
	}
	H.buffer.Clear()

	return
}

// flushForIteration - Flushes the write buffer so that the index holds every key
func (H *HeapFile) flushForIteration() (err error) {
	if H.buffer.Len() == 0 {
		return
	}

	H.shrinkWithGapsAtEnd()

	return H.flushBuffer()
}

// shrinkWithGapsAtEnd - Cuts trailing gaps from the heap file, a failure is only logged
func (H *HeapFile) shrinkWithGapsAtEnd() {
	shrunk, err := H.free.ShrinkTrailingGaps(H.heapFile)
	if err != nil {
		H.logger.Errorf("cutting trailing gaps: %v", err)
		return
	}

	if shrunk > 0 {
		H.logger.Debugf("cut %d bytes of trailing gaps", shrunk)
	}
}

// initIndex - Restores the index and the free list from an index dump if there is a valid one for the heap file,
// otherwise they are rebuilt by scanning the heap file
func (H *HeapFile) initIndex() (err error) {
	if H.initIndexReadDump() {
		return
	}

	return H.initIndexReadFromHeap()
}

// initIndexReadDump - Looks for an index dump matching the fingerprint of the heap file and uses it if it passes
// verification. Dumps are used only once, every dump of the heap file is removed afterwards.
//
// It returns:
//   - used which is true if the index and the free list were taken from a dump
func (H *HeapFile) initIndexReadDump() (used bool) {
	defer func() {
		if _, err := index.RemoveStaleDumps(H.heapFileName, ""); err != nil {
			H.logger.Warnf("removing index dumps: %v", err)
		}
	}()

	fp, err := index.Fingerprint(H.heapFileName)
	if err != nil {
		H.logger.Warnf("fingerprint of heap file: %v", err)
		return
	}

	dumpPath := index.DumpFileName(H.heapFileName, fp)
	if _, err = os.Stat(dumpPath); err != nil {
		return
	}

	idx, gaps, err := index.Load(dumpPath, H.keyLength, H.order)
	if err != nil {
		H.logger.Warnf("reading index dump %s: %v", dumpPath, err)
		return
	}

	if idx.Len() == 0 {
		return
	}

	if !H.verifyDump(idx, gaps) {
		H.logger.Warnf("verification of index dump %s failed, rebuilding index", dumpPath)
		return
	}

	free := freelist.New()
	for _, g := range gaps {
		if err = free.Insert(g); err != nil {
			H.logger.Warnf("free list of index dump %s: %v", dumpPath, err)
			return
		}
	}

	H.index = idx
	H.free = free
	used = true

	H.logger.Infof("using index dump with %d entries and %d gaps", idx.Len(), free.Len())

	return
}

// verifyDump - Checks the first index entries and gaps of a dump against the heap file
func (H *HeapFile) verifyDump(idx *index.Index, gaps []model.Gap) bool {
	fileSize, err := storage.FileSize(H.heapFile)
	if err != nil {
		return false
	}

	for _, p := range idx.First(H.verifySamples) {
		if p.Offset+conf.LengthFieldBytes+H.keyLength > fileSize {
			return false
		}
		stored, err := storage.ReadKey(H.heapFile, p.Offset, H.keyLength)
		if err != nil || H.order.Compare(stored, p.Key) != 0 {
			return false
		}
	}

	n := min(max(H.verifySamples, 0), len(gaps))
	for _, g := range gaps[:n] {
		if g.End() > fileSize {
			return false
		}
		length, err := storage.ReadLength(H.heapFile, g.Offset)
		if err != nil || length != g.Size {
			return false
		}
		if g.Size > 0 {
			marker, err := storage.ReadMarker(H.heapFile, g.Offset)
			if err != nil || marker != conf.GapMarker {
				return false
			}
		}
	}

	return true
}

// initIndexReadFromHeap - Rebuilds the index and the free list by walking every record of the heap file.
// Free records go to the free list, records with well-formed keys to the index and any other record is skipped.
// A record that can not be valid ends the walk and the heap file is truncated in front of it.
func (H *HeapFile) initIndexReadFromHeap() (err error) {
	start := time.Now()
	builder := index.NewBuilder(H.keyLength, H.order, H.asyncIndexBuild)
	free := freelist.New()

	validEnd, cause, err := storage.Walk(H.heapFile, H.keyLength, func(header model.RecordHeader) error {
		switch {
		case header.IsGap():
			return free.Insert(model.Gap{Offset: header.Offset, Size: header.Length})
		case int64(header.Length) > H.keyLength && H.order.WellFormed(header.Key):
			return builder.Consume(header.Key, header.Offset)
		default:
			H.logger.Warnf("skipped record: %v", bherr.MalformedKeyf("key %s at %d with record length %d",
				utils.Printable(header.Key), header.Offset, header.Length))
			return nil
		}
	})

	idx, finishErr := builder.Finish()
	err = errors.CombineErrors(err, finishErr)
	if err != nil {
		return
	}

	if cause != nil {
		H.logger.Errorf("truncating heap file at %d: %v", validEnd, cause)
		err = H.heapFile.Truncate(validEnd)
		if err != nil {
			err = bherr.IOErrorf(err, "truncate heap file to %d", validEnd)
			return
		}
	}

	merged, err := free.MergeAdjacentOnLoad(H.heapFile)
	if err != nil {
		return
	}
	if merged > 0 {
		H.logger.Infof("merged %d free records", merged)
	}

	if H.index == nil {
		H.index = idx
	} else {
		H.index.Replace(idx)
	}
	H.free = free
	H.indexRebuilds++

	H.logger.Infof("rebuilt index of %d entries and %d gaps in %s", idx.Len(), free.Len(), time.Since(start))

	return
}

// dumpIndex - Writes the index and the free list to a dump file named by the fingerprint of the closed heap file,
// a failure is only logged
func (H *HeapFile) dumpIndex() {
	start := time.Now()

	fp, err := index.Fingerprint(H.heapFileName)
	if err != nil {
		H.logger.Errorf("fingerprint of heap file: %v", err)
		return
	}

	dumpPath := index.DumpFileName(H.heapFileName, fp)
	if _, err = index.RemoveStaleDumps(H.heapFileName, dumpPath); err != nil {
		H.logger.Warnf("removing stale index dumps: %v", err)
	}

	err = H.index.Dump(dumpPath, H.free.Gaps())
	if err != nil {
		H.logger.Errorf("writing index dump: %v", err)
		return
	}

	H.logger.Infof("wrote a dump for the %d index entries and %d gaps in %s", H.index.Len(), H.free.Len(), time.Since(start))
}
