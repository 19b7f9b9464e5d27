package blobheap

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gostonefire/blobheap/byteorder"
	"github.com/gostonefire/blobheap/internal/conf"
	"github.com/gostonefire/blobheap/internal/storage/heapfile"
	"go.uber.org/zap"
)

// DefaultBufferMax - Number of payload bytes a write buffer of usual size holds before it is flushed
const DefaultBufferMax = conf.DefaultBufferMax

// DefaultVerifySamples - Number of index entries and gaps of an index dump that are checked against the heap file
// before the dump is used
const DefaultVerifySamples = conf.DefaultVerifySamples

// Conf - Configuration of a BlobHeap
//   - Path is the path of the heap file, it is created if it does not exist
//   - KeyLength is the fixed length of all keys, it must be higher than 0 (zero)
//   - ByteOrder is the ordering of keys, nil gives byteorder.Natural. The same ordering must be used every time the heap file is opened.
//   - BufferMax is the number of payload bytes held in the write buffer before it is flushed, 0 (zero) writes every record directly
//   - AsyncIndexBuild makes the index be built in a separate goroutine while the heap file is scanned at open
//   - VerifySamples is the number of index entries and gaps of an index dump to verify, 0 (zero) gives DefaultVerifySamples
//   - Logger is an optional logger, nil disables logging
type Conf struct {
	Path            string
	KeyLength       int64
	ByteOrder       byteorder.ByteOrder
	BufferMax       int64
	AsyncIndexBuild bool
	VerifySamples   int
	Logger          *zap.Logger
}

// HeapStat - Statistics on the usage of a heap
//   - Records is the total number of records stored, including those in the write buffer
//   - BufferedRecords is the number of records waiting in the write buffer
//   - BufferedBytes is the number of payload bytes waiting in the write buffer
//   - Gaps is the number of free records in the heap file
//   - GapBytes is the number of bytes held by free records
//   - FileSize is the current size of the heap file
//   - IndexRebuilds is the number of times the index has been rebuilt by scanning the heap file since it was opened
type HeapStat struct {
	Records         int64
	BufferedRecords int64
	BufferedBytes   int64
	Gaps            int64
	GapBytes        int64
	FileSize        int64
	IndexRebuilds   int64
}

// BlobHeap - The main implementation struct, a key/value store of variable length payloads kept in a single file.
// It is safe for concurrent use, every operation holds one lock for its whole duration.
type BlobHeap struct {
	mu       sync.Mutex
	heapFile *heapfile.HeapFile
	closed   bool
}

// Open - Opens the heap file given in bhConf, or creates it if it does not exist. The index of the heap is restored
// from an index dump written by the last Close if there is one matching the heap file, otherwise it is rebuilt by
// scanning the heap file.
//   - bhConf is a Conf struct
//
// It returns:
//   - blobHeap is a pointer to a BlobHeap struct
//   - err is a normal go Error which should be nil if everything went ok, it is marked ErrIO if the heap file could not be opened
func Open(bhConf Conf) (blobHeap *BlobHeap, err error) {
	// Check if the key length is valid
	if bhConf.KeyLength <= 0 {
		err = errors.Newf("key length must be a positive value higher than 0 (zero), got %d", bhConf.KeyLength)
		return
	}

	// Check if the buffer max is valid
	if bhConf.BufferMax < 0 {
		err = errors.Newf("buffer max can not be negative, got %d", bhConf.BufferMax)
		return
	}

	// Check if verify samples is valid
	if bhConf.VerifySamples < 0 {
		err = errors.Newf("verify samples can not be negative, got %d", bhConf.VerifySamples)
		return
	}

	// Check if path is empty
	if bhConf.Path == "" {
		err = errors.New("path can not be empty, it names the heap file")
		return
	}

	ordering := bhConf.ByteOrder
	if ordering == nil {
		ordering = byteorder.Natural()
	}

	verifySamples := bhConf.VerifySamples
	if verifySamples == 0 {
		verifySamples = DefaultVerifySamples
	}

	logger := bhConf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hfConf := heapfile.HeapFileConf{
		Path:            bhConf.Path,
		KeyLength:       bhConf.KeyLength,
		ByteOrder:       ordering,
		BufferMax:       bhConf.BufferMax,
		AsyncIndexBuild: bhConf.AsyncIndexBuild,
		VerifySamples:   verifySamples,
		Logger:          logger.Named("blobheap").Sugar(),
	}

	hf, err := heapfile.NewHeapFile(hfConf)
	if err != nil {
		return
	}

	blobHeap = &BlobHeap{heapFile: hf}

	return
}

// NewBlobHeap - Opens or creates a heap file with the usual settings, see Open.
//   - path is the path of the heap file
//   - keyLength is the fixed length of all keys
//   - byteOrder is an optional ordering of keys, nil gives byteorder.Natural
//   - bufferMax is the number of payload bytes to buffer before writing, DefaultBufferMax is a good start
//
// It returns:
//   - blobHeap is a pointer to a BlobHeap struct
//   - err is a normal go Error which should be nil if everything went ok
func NewBlobHeap(path string, keyLength int64, byteOrder byteorder.ByteOrder, bufferMax int64) (blobHeap *BlobHeap, err error) {
	return Open(Conf{
		Path:      path,
		KeyLength: keyLength,
		ByteOrder: byteOrder,
		BufferMax: bufferMax,
	})
}

// lock - Takes the lock and checks that the heap is open, the lock is held also when err is returned
func (B *BlobHeap) lock() (err error) {
	B.mu.Lock()
	if B.closed {
		err = errors.Wrap(ErrClosed, B.heapFile.Name())
	}

	return
}
