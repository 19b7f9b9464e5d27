package buffer

import (
	"github.com/cockroachdb/swiss"
	"github.com/gostonefire/blobheap/internal/conf"
	"github.com/gostonefire/blobheap/internal/model"
	"github.com/gostonefire/blobheap/internal/storage"
	"github.com/gostonefire/blobheap/internal/utils"
)

// initialCapacity - Number of entries the map is initialised for
const initialCapacity = 16

// WriteBuffer - Holds records that are not yet written to the heap file. Keys are kept as strings made of the raw
// key bytes, which makes two keys with the same bytes the same entry.
type WriteBuffer struct {
	m          swiss.Map[string, []byte]
	totalBytes int64
}

// New - Returns a pointer to a new, empty WriteBuffer instance
func New() *WriteBuffer {
	w := &WriteBuffer{}
	w.m.Init(initialCapacity)

	return w
}

// Put - Stores a copy of payload under key, replacing any payload already buffered for the key
func (W *WriteBuffer) Put(key, payload []byte) {
	k := string(key)
	if old, ok := W.m.Get(k); ok {
		W.totalBytes -= int64(len(old))
	}

	W.m.Put(k, utils.CopyBytes(payload))
	W.totalBytes += int64(len(payload))
}

// Get - Returns the payload buffered for key
func (W *WriteBuffer) Get(key []byte) (payload []byte, ok bool) {
	return W.m.Get(string(key))
}

// Has - Returns true if a payload is buffered for key
func (W *WriteBuffer) Has(key []byte) bool {
	_, ok := W.m.Get(string(key))

	return ok
}

// Remove - Drops the payload buffered for key
//
// It returns:
//   - payload which is the dropped payload
//   - ok which is false if nothing was buffered for key
func (W *WriteBuffer) Remove(key []byte) (payload []byte, ok bool) {
	k := string(key)
	payload, ok = W.m.Get(k)
	if !ok {
		return
	}

	W.m.Delete(k)
	W.totalBytes -= int64(len(payload))

	return
}

// Len - Returns the number of buffered records
func (W *WriteBuffer) Len() int {
	return W.m.Len()
}

// TotalBytes - Returns the number of buffered payload bytes
func (W *WriteBuffer) TotalBytes() int64 {
	return W.totalBytes
}

// Clear - Drops every buffered record
func (W *WriteBuffer) Clear() {
	W.m.Init(initialCapacity)
	W.totalBytes = 0
}

// Layout - Lays out every buffered record back to back as they are to be written to the heap file from offset start.
// The order is the iteration order of the buffer.
//   - start is the heap file offset of the first record
//
// It returns:
//   - buf which holds the on disk representation of all records
//   - placements which tells the offset of each record
func (W *WriteBuffer) Layout(start int64) (buf []byte, placements []model.Placement) {
	var size int64
	W.m.All(func(k string, payload []byte) bool {
		size += conf.LengthFieldBytes + int64(len(k)+len(payload))
		return true
	})

	buf = make([]byte, 0, size)
	placements = make([]model.Placement, 0, W.m.Len())
	W.m.All(func(k string, payload []byte) bool {
		placements = append(placements, model.Placement{Key: []byte(k), Offset: start + int64(len(buf))})
		buf = storage.AppendRecord(buf, []byte(k), payload)
		return true
	})

	return
}
