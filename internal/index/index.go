package index

import (
	"github.com/google/btree"
	"github.com/gostonefire/blobheap/byteorder"
	"github.com/gostonefire/blobheap/internal/model"
	"github.com/gostonefire/blobheap/internal/utils"
)

// treeDegree - Degree of the B-tree holding the index entries
const treeDegree = 32

// entry - One index entry, the offset of the record holding key
type entry struct {
	key    []byte
	offset int64
}

// Index - The in memory index of a heap file, mapping every live key to the offset of its record.
// Entries are kept in a B-tree ordered by the ByteOrder of the heap.
type Index struct {
	keyLength int64
	order     byteorder.ByteOrder
	tree      *btree.BTreeG[entry]
}

// New - Returns a pointer to a new, empty Index instance
//   - keyLength is the fixed length of all keys
//   - order is the ordering of keys
func New(keyLength int64, order byteorder.ByteOrder) *Index {
	return &Index{
		keyLength: keyLength,
		order:     order,
		tree:      newTree(order),
	}
}

// newTree - Returns a new B-tree ordered by order
func newTree(order byteorder.ByteOrder) *btree.BTreeG[entry] {
	return btree.NewG(treeDegree, func(a, b entry) bool { return order.Compare(a.key, b.key) < 0 })
}

// Get - Returns the offset of the record holding key
func (I *Index) Get(key []byte) (offset int64, ok bool) {
	e, ok := I.tree.Get(entry{key: key})
	if ok {
		offset = e.offset
	}

	return
}

// Has - Returns true if key is in the index
func (I *Index) Has(key []byte) bool {
	return I.tree.Has(entry{key: key})
}

// Put - Sets the offset of the record holding key, the key is copied
func (I *Index) Put(key []byte, offset int64) {
	I.tree.ReplaceOrInsert(entry{key: utils.CopyBytes(key), offset: offset})
}

// Remove - Drops key from the index
//
// It returns:
//   - offset which is the offset the key pointed at
//   - ok which is false if key was not in the index
func (I *Index) Remove(key []byte) (offset int64, ok bool) {
	e, ok := I.tree.Delete(entry{key: key})
	if ok {
		offset = e.offset
	}

	return
}

// Len - Returns the number of entries
func (I *Index) Len() int {
	return I.tree.Len()
}

// Clear - Drops all entries
func (I *Index) Clear() {
	I.tree.Clear(false)
}

// Replace - Takes over the entries of other, iterators created on I see the new entries from their next step
func (I *Index) Replace(other *Index) {
	I.tree = other.tree
}

// First - Returns up to n entries from the start of the key order
func (I *Index) First(n int) (placements []model.Placement) {
	if n <= 0 {
		return
	}

	I.tree.Ascend(func(e entry) bool {
		placements = append(placements, model.Placement{Key: e.key, Offset: e.offset})
		return len(placements) < n
	})

	return
}
