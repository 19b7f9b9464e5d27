package blobheap

import (
	"github.com/gostonefire/blobheap/byteorder"
)

// Name - Returns the base name of the heap file
func (B *BlobHeap) Name() string {
	B.mu.Lock()
	defer B.mu.Unlock()

	return B.heapFile.Name()
}

// KeyLength - Returns the fixed length of keys
func (B *BlobHeap) KeyLength() int64 {
	B.mu.Lock()
	defer B.mu.Unlock()

	return B.heapFile.KeyLength()
}

// Ordering - Returns the ordering of keys
func (B *BlobHeap) Ordering() byteorder.ByteOrder {
	B.mu.Lock()
	defer B.mu.Unlock()

	return B.heapFile.Ordering()
}

// Size - Returns the number of records in the heap, 0 (zero) if the heap is closed
func (B *BlobHeap) Size() int {
	defer B.mu.Unlock()
	if err := B.lock(); err != nil {
		return 0
	}

	return B.heapFile.Size()
}

// FileLength - Returns the length of the heap file including bytes still waiting in the write buffer
func (B *BlobHeap) FileLength() (length int64, err error) {
	defer B.mu.Unlock()
	if err = B.lock(); err != nil {
		return
	}

	return B.heapFile.FileLength()
}

// Has - Returns true if there is a record for key. No disk access is made.
//   - key is the identifier of a record, it has to be of the key length given when opening the heap
func (B *BlobHeap) Has(key []byte) bool {
	defer B.mu.Unlock()
	if err := B.lock(); err != nil {
		return false
	}

	return B.heapFile.Has(key)
}

// Get - Gets the payload of the record for key.
//   - key is the identifier of a record, it has to be of the key length given when opening the heap
//
// It returns:
//   - payload is the payload of the record, a copy the caller may keep.
//   - err is marked ErrNoRecordFound if there is no record for key. If the heap file did not hold the key where the
//     index said it would, the index has been rebuilt and err is marked both ErrCorruptionDetected and ErrNoRecordFound.
func (B *BlobHeap) Get(key []byte) (payload []byte, err error) {
	defer B.mu.Unlock()
	if err = B.lock(); err != nil {
		return
	}

	return B.heapFile.Get(key)
}

// Length - Gets the length of the payload of the record for key, errors are as for Get.
//   - key is the identifier of a record, it has to be of the key length given when opening the heap
func (B *BlobHeap) Length(key []byte) (length int64, err error) {
	defer B.mu.Unlock()
	if err = B.lock(); err != nil {
		return
	}

	return B.heapFile.Length(key)
}

// Put - Stores payload as the record for key, replacing any existing record for the key.
// Putting an empty payload does nothing.
//   - key is the identifier of a record, it has to be of the key length given when opening the heap and well-formed in its ordering
//   - payload is the bytes to store
//
// It returns:
//   - err is marked ErrKeyLength, ErrMalformedKey or ErrRecordTooLarge for a key or payload that can not be stored,
//     or ErrIO if writing the heap file failed
func (B *BlobHeap) Put(key, payload []byte) (err error) {
	defer B.mu.Unlock()
	if err = B.lock(); err != nil {
		return
	}

	return B.heapFile.Put(key, payload)
}

// Remove - Removes the record for key, removing a key that has no record does nothing.
//   - key is the identifier of a record, it has to be of the key length given when opening the heap
//
// It returns:
//   - err is marked ErrCorruptRecord if the stored record runs past the end of the heap file, the record is then kept
func (B *BlobHeap) Remove(key []byte) (err error) {
	defer B.mu.Unlock()
	if err = B.lock(); err != nil {
		return
	}

	return B.heapFile.Remove(key)
}

// Stat - Returns statistics on the usage of the heap
func (B *BlobHeap) Stat() (heapStat HeapStat, err error) {
	defer B.mu.Unlock()
	if err = B.lock(); err != nil {
		return
	}

	stat, err := B.heapFile.Stat()
	if err != nil {
		return
	}

	heapStat = HeapStat(stat)

	return
}

// RebuildIndex - Drops the index and rebuilds it by scanning the heap file. Records waiting in the write buffer are kept.
func (B *BlobHeap) RebuildIndex() (err error) {
	defer B.mu.Unlock()
	if err = B.lock(); err != nil {
		return
	}

	return B.heapFile.RebuildIndex()
}

// Clear - Removes every record by replacing the heap file with an empty one.
// If no new heap file could be created the heap is closed and later calls return an error marked ErrClosed.
func (B *BlobHeap) Clear() (err error) {
	defer B.mu.Unlock()
	if err = B.lock(); err != nil {
		return
	}

	err = B.heapFile.Clear()
	if !B.heapFile.IsOpen() {
		B.closed = true
	}

	return
}

// Close - Writes buffered records to the heap file, closes it and leaves an index dump for a fast next open.
// Any later call on the heap, or on iterators over its keys, returns an error marked ErrClosed.
// Closing an already closed heap does nothing.
func (B *BlobHeap) Close() (err error) {
	B.mu.Lock()
	defer B.mu.Unlock()

	if B.closed {
		return
	}
	B.closed = true

	return B.heapFile.Close()
}
