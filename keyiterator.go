package blobheap

import (
	"github.com/gostonefire/blobheap/internal/index"
)

// KeyIterator - Is used to iterate over the keys of a heap one by one in key order.
// No snapshot is taken, keys put or removed while iterating are seen or skipped depending on where they sort.
// Every step takes the lock of the heap.
type KeyIterator struct {
	blobHeap *BlobHeap
	keys     *index.KeyIterator
}

// Keys - Returns an iterator over all keys in key order, records waiting in the write buffer are written first
//   - ascending gives the direction of iteration
//   - from is the key to start at, in ascending order the first key returned is the first one greater than or equal
//     to from, in descending order the first one less than or equal. A nil from starts at the first or last key.
func (B *BlobHeap) Keys(ascending bool, from []byte) (keyIterator *KeyIterator, err error) {
	defer B.mu.Unlock()
	if err = B.lock(); err != nil {
		return
	}

	keys, err := B.heapFile.Keys(ascending, from)
	if err != nil {
		return
	}

	keyIterator = &KeyIterator{blobHeap: B, keys: keys}

	return
}

// RotatingKeys - Returns an iterator that continues from the other end of the key order when it passes the last key.
// It returns at most as many keys as the heap held when the iterator was created. Arguments are as for Keys.
func (B *BlobHeap) RotatingKeys(ascending bool, from []byte) (keyIterator *KeyIterator, err error) {
	defer B.mu.Unlock()
	if err = B.lock(); err != nil {
		return
	}

	keys, err := B.heapFile.RotatingKeys(ascending, from)
	if err != nil {
		return
	}

	keyIterator = &KeyIterator{blobHeap: B, keys: keys}

	return
}

// HasNext - Returns true if there are more keys to be fetched from a call to Next, false also when the heap is closed
func (K *KeyIterator) HasNext() bool {
	defer K.blobHeap.mu.Unlock()
	if err := K.blobHeap.lock(); err != nil {
		return false
	}

	return K.keys.HasNext()
}

// Next - Returns the next key.
// It returns:
//   - key is the next key, a copy the caller may keep.
//   - err is marked ErrNoRecordFound if there are no more keys when calling this function, or ErrClosed if the heap is closed.
func (K *KeyIterator) Next() (key []byte, err error) {
	defer K.blobHeap.mu.Unlock()
	if err = K.blobHeap.lock(); err != nil {
		return
	}

	return K.keys.Next()
}

// Reset - Restarts the iteration from where it started
func (K *KeyIterator) Reset() {
	K.blobHeap.mu.Lock()
	defer K.blobHeap.mu.Unlock()

	K.keys.Reset()
}
