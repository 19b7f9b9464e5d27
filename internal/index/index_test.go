package index

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gostonefire/blobheap/bherr"
	"github.com/gostonefire/blobheap/internal/model"
	"github.com/gostonefire/blobheap/internal/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(keys ...string) *Index {
	idx := New(4, order.NewNaturalOrder())
	for i, k := range keys {
		idx.Put([]byte(k), int64(i*100))
	}

	return idx
}

func drain(t *testing.T, it *KeyIterator) (keys []string) {
	for it.HasNext() {
		key, err := it.Next()
		require.NoError(t, err, "next key")
		keys = append(keys, string(key))
	}

	return
}

func TestIndex(t *testing.T) {
	t.Run("put, get and remove", func(t *testing.T) {
		// Prepare
		idx := newTestIndex("CCCC", "AAAA", "BBBB")

		// Execute
		offset, ok := idx.Get([]byte("AAAA"))
		idx.Put([]byte("AAAA"), 999)
		replaced, _ := idx.Get([]byte("AAAA"))
		removed, removedOk := idx.Remove([]byte("CCCC"))
		_, missingOk := idx.Remove([]byte("CCCC"))

		// Check
		assert.True(t, ok)
		assert.Equal(t, int64(100), offset)
		assert.Equal(t, int64(999), replaced)
		assert.True(t, removedOk)
		assert.Equal(t, int64(0), removed)
		assert.False(t, missingOk)
		assert.Equal(t, 2, idx.Len())
		assert.True(t, idx.Has([]byte("BBBB")))
		assert.False(t, idx.Has([]byte("CCCC")))
	})

	t.Run("put keeps a private copy of the key", func(t *testing.T) {
		// Prepare
		idx := newTestIndex()
		key := []byte("AAAA")

		// Execute
		idx.Put(key, 1)
		key[0] = 'Z'

		// Check
		assert.True(t, idx.Has([]byte("AAAA")))
		assert.False(t, idx.Has([]byte("ZAAA")))
	})

	t.Run("entries follow the byte order", func(t *testing.T) {
		// Prepare
		idx := New(1, order.NewBase64Order())
		for i, k := range []string{"_", "a", "0", "A"} {
			idx.Put([]byte(k), int64(i))
		}

		// Execute
		var keys []string
		for _, p := range idx.First(idx.Len()) {
			keys = append(keys, string(p.Key))
		}

		// Check
		assert.Equal(t, []string{"A", "a", "0", "_"}, keys)
		assert.Equal(t, []model.Placement{{Key: []byte("A"), Offset: 3}, {Key: []byte("a"), Offset: 1}}, idx.First(2))
		assert.Empty(t, idx.First(0))
	})

	t.Run("clear drops everything", func(t *testing.T) {
		// Prepare
		idx := newTestIndex("AAAA", "BBBB")

		// Execute
		idx.Clear()

		// Check
		assert.Zero(t, idx.Len())
		assert.False(t, idx.Keys(true, nil).HasNext(), "no keys left")
	})

	t.Run("replace is seen by a running iterator", func(t *testing.T) {
		// Prepare
		idx := newTestIndex("AAAA", "CCCC")
		it := idx.Keys(true, nil)
		first, err := it.Next()
		require.NoError(t, err)

		// Execute
		idx.Replace(newTestIndex("AAAA", "BBBB", "DDDD"))

		// Check
		assert.Equal(t, "AAAA", string(first))
		assert.Equal(t, []string{"BBBB", "DDDD"}, drain(t, it))
		offset, ok := idx.Get([]byte("DDDD"))
		assert.True(t, ok)
		assert.Equal(t, int64(200), offset)
	})
}

func TestKeyIterator(t *testing.T) {
	t.Run("ascending and descending from the ends", func(t *testing.T) {
		// Prepare
		idx := newTestIndex("CCCC", "AAAA", "DDDD", "BBBB")

		// Execute
		up := drain(t, idx.Keys(true, nil))
		down := drain(t, idx.Keys(false, nil))

		// Check
		assert.Equal(t, []string{"AAAA", "BBBB", "CCCC", "DDDD"}, up)
		assert.Equal(t, []string{"DDDD", "CCCC", "BBBB", "AAAA"}, down)
	})

	t.Run("starting keys include an exact match", func(t *testing.T) {
		// Prepare
		idx := newTestIndex("AAAA", "BBBB", "DDDD")

		// Execute
		upExact := drain(t, idx.Keys(true, []byte("BBBB")))
		upBetween := drain(t, idx.Keys(true, []byte("CCCC")))
		downBetween := drain(t, idx.Keys(false, []byte("CCCC")))

		// Check
		assert.Equal(t, []string{"BBBB", "DDDD"}, upExact)
		assert.Equal(t, []string{"DDDD"}, upBetween)
		assert.Equal(t, []string{"BBBB", "AAAA"}, downBetween)
	})

	t.Run("next after the end reports no record found", func(t *testing.T) {
		// Prepare
		it := newTestIndex("AAAA").Keys(true, nil)
		_, err := it.Next()
		require.NoError(t, err)

		// Execute
		key, err := it.Next()

		// Check
		assert.Nil(t, key)
		assert.True(t, errors.Is(err, bherr.ErrNoRecordFound))
	})

	t.Run("keys changed while iterating are seen where they sort", func(t *testing.T) {
		// Prepare
		idx := newTestIndex("AAAA", "CCCC", "EEEE")
		it := idx.Keys(true, nil)
		first, err := it.Next()
		require.NoError(t, err)

		// Execute
		idx.Put([]byte("BBBB"), 1)
		idx.Remove([]byte("CCCC"))
		idx.Put([]byte("0000"), 2)
		rest := drain(t, it)

		// Check
		assert.Equal(t, "AAAA", string(first))
		assert.Equal(t, []string{"BBBB", "EEEE"}, rest)
	})

	t.Run("reset restarts the iteration", func(t *testing.T) {
		// Prepare
		it := newTestIndex("AAAA", "BBBB").Keys(true, nil)
		_ = drain(t, it)

		// Execute
		it.Reset()

		// Check
		assert.Equal(t, []string{"AAAA", "BBBB"}, drain(t, it))
	})

	t.Run("rotating iteration wraps around once", func(t *testing.T) {
		// Prepare
		idx := newTestIndex("AAAA", "BBBB", "CCCC", "DDDD")

		// Execute
		up := drain(t, idx.RotatingKeys(true, []byte("CCCC")))
		down := drain(t, idx.RotatingKeys(false, []byte("BBBB")))
		fromNil := drain(t, idx.RotatingKeys(true, nil))

		// Check
		assert.Equal(t, []string{"CCCC", "DDDD", "AAAA", "BBBB"}, up)
		assert.Equal(t, []string{"BBBB", "AAAA", "DDDD", "CCCC"}, down)
		assert.Equal(t, []string{"AAAA", "BBBB", "CCCC", "DDDD"}, fromNil)
	})

	t.Run("rotating iteration past the last key starts over", func(t *testing.T) {
		// Prepare
		idx := newTestIndex("AAAA", "BBBB")

		// Execute
		keys := drain(t, idx.RotatingKeys(true, []byte("ZZZZ")))

		// Check
		assert.Equal(t, []string{"AAAA", "BBBB"}, keys)
	})

	t.Run("rotating iteration over an empty index yields nothing", func(t *testing.T) {
		// Prepare
		idx := newTestIndex()

		// Execute
		keys := drain(t, idx.RotatingKeys(true, []byte("AAAA")))

		// Check
		assert.Empty(t, keys)
	})
}
