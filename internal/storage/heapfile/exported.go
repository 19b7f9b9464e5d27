package heapfile

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/gostonefire/blobheap/bherr"
	"github.com/gostonefire/blobheap/byteorder"
	"github.com/gostonefire/blobheap/internal/buffer"
	"github.com/gostonefire/blobheap/internal/conf"
	"github.com/gostonefire/blobheap/internal/freelist"
	"github.com/gostonefire/blobheap/internal/index"
	"github.com/gostonefire/blobheap/internal/model"
	"github.com/gostonefire/blobheap/internal/storage"
	"github.com/gostonefire/blobheap/internal/utils"
	"go.uber.org/zap"
)

// HeapFileConf - Configuration of a HeapFile
//   - Path is the path of the heap file, it is created if it does not exist
//   - KeyLength is the fixed length of all keys
//   - ByteOrder is the ordering of keys
//   - BufferMax is the number of payload bytes held in the write buffer before it is flushed, 0 disables buffering
//   - AsyncIndexBuild makes the index be built in a separate goroutine while the heap file is scanned
//   - VerifySamples is the number of index entries and gaps from an index dump that are checked against the heap file
//   - Logger is the logger to use, nil disables logging
type HeapFileConf struct {
	Path            string
	KeyLength       int64
	ByteOrder       byteorder.ByteOrder
	BufferMax       int64
	AsyncIndexBuild bool
	VerifySamples   int
	Logger          *zap.SugaredLogger
}

// HeapFile - Represents a heap file of records with fixed length keys and variable length payloads.
// Live records are found through an in memory index, removed records become gaps that are reused by later writes,
// and small writes are collected in a write buffer that is appended to the file in one go.
// A HeapFile is not safe for concurrent use.
type HeapFile struct {
	heapFileName    string
	heapFile        *os.File
	keyLength       int64
	order           byteorder.ByteOrder
	bufferMax       int64
	asyncIndexBuild bool
	verifySamples   int
	index           *index.Index
	free            *freelist.FreeList
	buffer          *buffer.WriteBuffer
	logger          *zap.SugaredLogger
	indexRebuilds   int64
}

// NewHeapFile - Returns a pointer to a new instance of HeapFile. The heap file is opened, or created if it does not
// exist, and the index is restored from a matching index dump or else rebuilt by scanning the heap file.
//   - hfConf is a HeapFileConf struct
//
// It returns:
//   - heapFile which is a pointer to the created instance
//   - err which is marked bherr.ErrIO if the heap file could not be opened or scanned
func NewHeapFile(hfConf HeapFileConf) (heapFile *HeapFile, err error) {
	logger := hfConf.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	hf := &HeapFile{
		heapFileName:    hfConf.Path,
		keyLength:       hfConf.KeyLength,
		order:           hfConf.ByteOrder,
		bufferMax:       hfConf.BufferMax,
		asyncIndexBuild: hfConf.AsyncIndexBuild,
		verifySamples:   hfConf.VerifySamples,
		free:            freelist.New(),
		buffer:          buffer.New(),
		logger:          logger.With("heap", filepath.Base(hfConf.Path)),
	}

	hf.heapFile, err = storage.OpenHeapFile(hf.heapFileName)
	if err != nil {
		return
	}

	err = hf.initIndex()
	if err != nil {
		_ = storage.CloseFile(hf.heapFile)
		return
	}

	heapFile = hf

	return
}

// Name - Returns the base name of the heap file
func (H *HeapFile) Name() string {
	return filepath.Base(H.heapFileName)
}

// KeyLength - Returns the fixed length of keys
func (H *HeapFile) KeyLength() int64 {
	return H.keyLength
}

// Ordering - Returns the ordering of keys
func (H *HeapFile) Ordering() byteorder.ByteOrder {
	return H.order
}

// Size - Returns the number of records, buffered ones included
func (H *HeapFile) Size() int {
	return H.index.Len() + H.buffer.Len()
}

// FileLength - Returns the length of the heap file plus the payload bytes waiting in the write buffer
func (H *HeapFile) FileLength() (length int64, err error) {
	length, err = storage.FileSize(H.heapFile)
	if err != nil {
		return
	}

	length += H.buffer.TotalBytes()

	return
}

// Has - Returns true if there is a record for key, no disk access is needed
func (H *HeapFile) Has(key []byte) bool {
	if int64(len(key)) != H.keyLength {
		return false
	}

	return H.buffer.Has(key) || H.index.Has(key)
}

// Get - Returns the payload stored for key.
// If the key stored in the heap file does not match the index, the index is rebuilt from the heap file and an error
// marked both bherr.ErrCorruptionDetected and bherr.ErrNoRecordFound is returned.
//   - key is the key of the record
//
// It returns:
//   - payload which is a copy of the stored payload
//   - err which is marked bherr.ErrNoRecordFound if there is no record for key
func (H *HeapFile) Get(key []byte) (payload []byte, err error) {
	err = H.checkKeyLength(key)
	if err != nil {
		return
	}

	if p, ok := H.buffer.Get(key); ok {
		payload = utils.CopyBytes(p)
		return
	}

	offset, length, err := H.locate(key)
	if err != nil {
		return
	}

	payload, err = storage.ReadPayload(H.heapFile, offset, H.keyLength, length)

	return
}

// Length - Returns the length of the payload stored for key, it behaves like Get otherwise
func (H *HeapFile) Length(key []byte) (length int64, err error) {
	err = H.checkKeyLength(key)
	if err != nil {
		return
	}

	if p, ok := H.buffer.Get(key); ok {
		length = int64(len(p))
		return
	}

	_, recordLength, err := H.locate(key)
	if err != nil {
		return
	}

	length = int64(recordLength) - H.keyLength

	return
}

// Put - Stores payload under key, replacing any record already stored for the key.
// The record goes into a gap if one fits, otherwise into the write buffer or directly to the end of the heap file.
// An empty payload is not stored.
//   - key is the key of the record, it must be well-formed in the ordering of the heap
//   - payload is the payload to store
//
// It returns:
//   - err which is marked bherr.ErrMalformedKey, bherr.ErrKeyLength, bherr.ErrRecordTooLarge or bherr.ErrIO
func (H *HeapFile) Put(key, payload []byte) (err error) {
	err = H.checkKey(key)
	if err != nil {
		return
	}

	if len(payload) == 0 {
		return
	}

	if H.keyLength+int64(len(payload)) > conf.MaxRecordLength {
		err = bherr.RecordTooLargef("payload of %d bytes does not fit a record", len(payload))
		return
	}

	err = H.Remove(key)
	if err != nil {
		return
	}

	done, err := H.putToGap(key, payload)
	if err != nil || done {
		return
	}

	if H.buffer.TotalBytes()+int64(len(payload)) > H.bufferMax {
		H.shrinkWithGapsAtEnd()
		err = H.flushBuffer()
		if err != nil {
			return
		}

		if int64(len(payload)) > H.bufferMax {
			err = H.add(key, payload)
			return
		}
	}

	H.buffer.Put(key, payload)

	return
}

// Remove - Removes the record for key, nothing happens if there is none.
// The record becomes a gap that is merged with directly adjacent gaps.
//   - key is the key of the record
//
// It returns:
//   - err which is marked bherr.ErrCorruptRecord if the stored length runs past the end of the heap file
func (H *HeapFile) Remove(key []byte) (err error) {
	err = H.checkKeyLength(key)
	if err != nil {
		return
	}

	if _, ok := H.buffer.Remove(key); ok {
		return
	}

	offset, ok := H.index.Get(key)
	if !ok {
		return
	}

	size, err := storage.ReadLength(H.heapFile, offset)
	if err != nil {
		return
	}
	fileSize, err := storage.FileSize(H.heapFile)
	if err != nil {
		return
	}
	if size <= 0 || offset+conf.LengthFieldBytes+int64(size) > fileSize {
		err = bherr.CorruptRecordf("record length %d at %d runs past end of heap file at %d", size, offset, fileSize)
		H.logger.Errorf("refusing to remove key %s: %v", utils.Printable(key), err)
		return
	}

	err = storage.ZeroFill(H.heapFile, offset, size)
	if err != nil {
		return
	}

	H.index.Remove(key)

	_, err = H.free.FreeRegion(H.heapFile, offset, size)

	return
}

// Keys - Returns an iterator over all keys in key order, the write buffer is flushed first
//   - ascending gives the direction of iteration
//   - from is the key to start at, nil to start at the first or last key
func (H *HeapFile) Keys(ascending bool, from []byte) (keyIterator *index.KeyIterator, err error) {
	err = H.flushForIteration()
	if err != nil {
		return
	}

	keyIterator = H.index.Keys(ascending, from)

	return
}

// RotatingKeys - Returns an iterator over all keys that continues from the other end when it reaches the last key,
// it yields at most as many keys as there are records. The write buffer is flushed first.
//   - ascending gives the direction of iteration
//   - from is the key to start at, nil to start at the first or last key
func (H *HeapFile) RotatingKeys(ascending bool, from []byte) (keyIterator *index.KeyIterator, err error) {
	err = H.flushForIteration()
	if err != nil {
		return
	}

	keyIterator = H.index.RotatingKeys(ascending, from)

	return
}

// Stat - Returns statistics on the usage of the heap file
func (H *HeapFile) Stat() (stat model.HeapStat, err error) {
	fileSize, err := storage.FileSize(H.heapFile)
	if err != nil {
		return
	}

	stat = model.HeapStat{
		Records:         int64(H.Size()),
		BufferedRecords: int64(H.buffer.Len()),
		BufferedBytes:   H.buffer.TotalBytes(),
		Gaps:            int64(H.free.Len()),
		GapBytes:        H.free.TotalBytes(),
		FileSize:        fileSize,
		IndexRebuilds:   H.indexRebuilds,
	}

	return
}

// Gaps - Returns the gaps of the heap file in offset order
func (H *HeapFile) Gaps() []model.Gap {
	return H.free.Gaps()
}

// RebuildIndex - Rebuilds the index and the free list by scanning the heap file, buffered records are kept
func (H *HeapFile) RebuildIndex() (err error) {
	return H.initIndexReadFromHeap()
}

// Close - Flushes the write buffer, closes the heap file and writes an index dump for the next open.
// Trailing gaps are cut from the heap file before. The HeapFile can not be used after Close.
//
// It returns:
//   - err which is an error from flushing or closing, failing to write the index dump is only logged
func (H *HeapFile) Close() (err error) {
	if H.heapFile == nil {
		return
	}

	H.shrinkWithGapsAtEnd()
	err = H.flushBuffer()

	err = errors.CombineErrors(err, storage.CloseFile(H.heapFile))
	H.heapFile = nil

	if err == nil {
		H.dumpIndex()
	} else {
		H.logger.Errorf("no index dump written since closing failed: %v", err)
	}

	H.index.Clear()
	H.free.Clear()
	H.buffer.Clear()

	return
}

// IsOpen - Returns true while the heap file is open, it is false after Close and after a Clear that could not
// create the new heap file
func (H *HeapFile) IsOpen() bool {
	return H.heapFile != nil
}

// Clear - Drops all records by removing the heap file and creating a new empty one. If the new heap file can not be
// created an error is returned and the instance is left closed, see IsOpen.
func (H *HeapFile) Clear() (err error) {
	H.buffer.Clear()
	H.index.Clear()
	H.free.Clear()

	// A failed close still leaves the descriptor released, so go on and replace the file
	if closeErr := storage.CloseFile(H.heapFile); closeErr != nil {
		H.logger.Errorf("closing heap file before clearing: %v", closeErr)
	}
	H.heapFile = nil

	err = storage.RemoveFile(H.heapFileName)
	if err != nil {
		return
	}

	if _, rmErr := index.RemoveStaleDumps(H.heapFileName, ""); rmErr != nil {
		H.logger.Errorf("removing index dumps: %v", rmErr)
	}

	H.heapFile, err = storage.OpenHeapFile(H.heapFileName)

	return
}
