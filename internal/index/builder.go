package index

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/gostonefire/blobheap/byteorder"
	"github.com/gostonefire/blobheap/internal/utils"
	"golang.org/x/sync/errgroup"
)

// builderQueueLength - Number of entries that can be waiting for the consumer of an asynchronous Builder
const builderQueueLength = 1024

// Builder - Builds an Index from the entries found when scanning a heap file.
// A synchronous Builder collects every entry and sorts them before inserting them into the index.
// An asynchronous Builder hands entries over to a consumer goroutine that inserts them while the scan goes on.
// In both cases an entry consumed later replaces an earlier one with an equal key.
type Builder struct {
	index   *Index
	entries []entry
	async   bool
	queue   chan entry
	group   *errgroup.Group
	ctx     context.Context
	done    bool
}

// NewBuilder - Returns a pointer to a new Builder instance
//   - keyLength is the fixed length of all keys
//   - order is the ordering of keys
//   - async tells whether to insert entries in a separate goroutine while consuming
func NewBuilder(keyLength int64, order byteorder.ByteOrder, async bool) *Builder {
	b := &Builder{
		index: New(keyLength, order),
		async: async,
	}

	if async {
		b.queue = make(chan entry, builderQueueLength)
		b.group, b.ctx = errgroup.WithContext(context.Background())
		b.group.Go(func() error {
			for e := range b.queue {
				b.index.tree.ReplaceOrInsert(e)
			}
			return nil
		})
	}

	return b
}

// Consume - Hands over one entry found in the heap file, the key is copied
//   - key is the key of the record
//   - offset is the offset of the record
//
// It returns:
//   - err which is an assertion failure if the key has the wrong length or if Finish was already called
func (B *Builder) Consume(key []byte, offset int64) (err error) {
	if B.done {
		err = errors.AssertionFailedf("consume after finish")
		return
	}
	if int64(len(key)) != B.index.keyLength {
		err = errors.AssertionFailedf("key at %d has length %d, expected %d", offset, len(key), B.index.keyLength)
		return
	}

	e := entry{key: utils.CopyBytes(key), offset: offset}
	if !B.async {
		B.entries = append(B.entries, e)
		return
	}

	select {
	case B.queue <- e:
	case <-B.ctx.Done():
		err = errors.Wrap(B.ctx.Err(), "index builder stopped")
	}

	return
}

// Finish - Completes the index and returns it, it blocks until every consumed entry is inserted
func (B *Builder) Finish() (index *Index, err error) {
	if B.done {
		err = errors.AssertionFailedf("finish called twice")
		return
	}
	B.done = true

	if B.async {
		close(B.queue)
		err = B.group.Wait()
		if err != nil {
			return
		}
	} else {
		order := B.index.order
		slices.SortStableFunc(B.entries, func(a, b entry) int { return order.Compare(a.key, b.key) })
		for _, e := range B.entries {
			B.index.tree.ReplaceOrInsert(e)
		}
		B.entries = nil
	}

	index = B.index

	return
}
