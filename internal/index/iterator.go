package index

import (
	"github.com/cockroachdb/errors"
	"github.com/gostonefire/blobheap/bherr"
	"github.com/gostonefire/blobheap/internal/utils"
)

// KeyIterator - Is used to iterate over the keys of an Index one by one in key order.
// No snapshot is taken, every step seeks the index again from the last returned key, hence keys added or removed
// while iterating are seen or skipped depending on where they sort.
type KeyIterator struct {
	index     *Index
	ascending bool
	from      []byte
	rotating  bool
	limit     int
	cursor    []byte
	inclusive bool
	returned  int
}

// Keys - Returns a pointer to a new KeyIterator over the keys of the index
//   - ascending gives the direction of iteration
//   - from is the key to start at, in ascending order the first key returned is the first one greater than or equal
//     to from, in descending order the first one less than or equal. A nil from starts at the first or last key.
func (I *Index) Keys(ascending bool, from []byte) *KeyIterator {
	k := &KeyIterator{
		index:     I,
		ascending: ascending,
		from:      utils.CopyBytes(from),
		limit:     -1,
	}
	k.Reset()

	return k
}

// RotatingKeys - Returns a pointer to a new KeyIterator that continues from the other end of the key order when it
// reaches the last key. It stops after having returned as many keys as the index held when it was created.
//   - ascending gives the direction of iteration
//   - from is the key to start at, see Keys
func (I *Index) RotatingKeys(ascending bool, from []byte) *KeyIterator {
	k := I.Keys(ascending, from)
	k.rotating = true
	k.limit = I.Len()

	return k
}

// Reset - Restarts the iteration from its initial position
func (K *KeyIterator) Reset() {
	K.cursor = K.from
	K.inclusive = true
	K.returned = 0
}

// HasNext - Returns true if there are more keys to be fetched from a call to Next.
func (K *KeyIterator) HasNext() bool {
	_, ok := K.seek()

	return ok
}

// Next - Returns the next key.
// It returns:
//   - key is the next key, a copy the caller may keep.
//   - err is an error marked bherr.ErrNoRecordFound if there are no more keys when calling this function.
func (K *KeyIterator) Next() (key []byte, err error) {
	key, ok := K.seek()
	if !ok {
		key = nil
		err = errors.Wrap(bherr.ErrNoRecordFound, "no more keys")
		return
	}

	key = utils.CopyBytes(key)
	K.cursor = key
	K.inclusive = false
	K.returned++

	return
}

// seek - Finds the key the next call to Next returns
func (K *KeyIterator) seek() (key []byte, ok bool) {
	if K.limit >= 0 && K.returned >= K.limit {
		return
	}

	key, ok = K.index.seek(K.ascending, K.cursor, K.inclusive)
	if !ok && K.rotating && K.cursor != nil {
		key, ok = K.index.seek(K.ascending, nil, true)
	}

	return
}

// seek - Returns the first key at or after pivot in the direction of iteration, excluding pivot itself unless
// inclusive is set. A nil pivot means the first key in that direction.
func (I *Index) seek(ascending bool, pivot []byte, inclusive bool) (key []byte, ok bool) {
	visit := func(e entry) bool {
		if !inclusive && I.order.Compare(e.key, pivot) == 0 {
			return true
		}
		key, ok = e.key, true
		return false
	}

	switch {
	case pivot == nil && ascending:
		var e entry
		if e, ok = I.tree.Min(); ok {
			key = e.key
		}
	case pivot == nil:
		var e entry
		if e, ok = I.tree.Max(); ok {
			key = e.key
		}
	case ascending:
		I.tree.AscendGreaterOrEqual(entry{key: pivot}, visit)
	default:
		I.tree.DescendLessOrEqual(entry{key: pivot}, visit)
	}

	return
}
