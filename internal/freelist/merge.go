package freelist

import (
	"github.com/cockroachdb/errors"
	"github.com/gostonefire/blobheap/bherr"
	"github.com/gostonefire/blobheap/internal/conf"
	"github.com/gostonefire/blobheap/internal/model"
	"github.com/gostonefire/blobheap/internal/storage"
)

// MergeAdjacentOnLoad - Coalesces every pair of directly adjacent gaps. It is run once after the heap file has been
// scanned, since the scan may find gaps that were never merged, e.g. after a crash.
// The length field of the surviving gap is rewritten and the length field of the absorbed gap is zeroed.
//   - rf is the heap file
//
// It returns:
//   - merged which is the number of gaps absorbed into a preceding gap
//   - err which is an i/o error from updating the heap file
func (F *FreeList) MergeAdjacentOnLoad(rf storage.RecordFile) (merged int, err error) {
	if F.tree.Len() < 2 {
		return
	}

	gaps := F.Gaps()
	last := gaps[0]
	for _, next := range gaps[1:] {
		if last.End() == next.Offset && fits(last, next) {
			last, err = F.mergeGaps(rf, last, next)
			if err != nil {
				return
			}
			merged++
		} else {
			last = next
		}
	}

	return
}

// FreeRegion - Registers the already zero filled record at offset as a gap and merges it with adjacent gaps.
// Merging forward runs first and follows the whole chain of gaps after the region, merging backward then only needs
// to look at the single nearest gap in front of it.
//   - rf is the heap file
//   - offset is the offset of the record
//   - size is the value of the length field of the record
//
// It returns:
//   - gap which is the gap that now covers the region
//   - err which is an i/o error from updating the heap file
func (F *FreeList) FreeRegion(rf storage.RecordFile, offset int64, size int32) (gap model.Gap, err error) {
	err = F.Insert(model.Gap{Offset: offset, Size: size})
	if err != nil {
		return
	}

	gap, err = F.TryMergeForward(rf, offset, size)
	if err != nil {
		return
	}

	gap, err = F.TryMergeBackward(rf, offset)

	return
}

// TryMergeForward - Merges the registered gap at offset with the gaps that directly follow it, as long as they are
// registered and marked free in the heap file. A registered gap of size zero is merged without reading its marker.
//   - rf is the heap file
//   - offset is the offset of a registered gap
//   - size is the size of that gap
//
// It returns:
//   - gap which is the gap at offset after merging
//   - err which is an i/o error from reading or updating the heap file
func (F *FreeList) TryMergeForward(rf storage.RecordFile, offset int64, size int32) (gap model.Gap, err error) {
	gap = model.Gap{Offset: offset, Size: size}

	fileSize, err := storage.FileSize(rf)
	if err != nil {
		return
	}

	var marker byte
	for {
		nextOffset := gap.End()
		if nextOffset >= fileSize {
			return
		}

		next, ok := F.Get(nextOffset)
		if !ok || !fits(gap, next) {
			return
		}

		if next.Size > 0 {
			marker, err = storage.ReadMarker(rf, nextOffset)
			if err != nil {
				return
			}
			if marker != conf.GapMarker {
				return
			}
		}

		gap, err = F.mergeGaps(rf, gap, next)
		if err != nil {
			return
		}
	}
}

// TryMergeBackward - Merges the registered gap at offset into the nearest gap in front of it if that one ends right
// at offset. Only this one step is taken, hence TryMergeForward must have been called for offset before.
//   - rf is the heap file
//   - offset is the offset of a registered gap
//
// It returns:
//   - gap which is the gap now covering offset
//   - err which is an i/o error from updating the heap file
func (F *FreeList) TryMergeBackward(rf storage.RecordFile, offset int64) (gap model.Gap, err error) {
	gap, ok := F.Get(offset)
	if !ok {
		err = errors.AssertionFailedf("no gap registered at %d", offset)
		return
	}

	prev, ok := F.Before(offset)
	if !ok || prev.End() != offset || !fits(prev, gap) {
		return
	}

	gap, err = F.mergeGaps(rf, prev, gap)

	return
}

// ShrinkTrailingGaps - Truncates the heap file as long as its last gap reaches the end of the file
//   - rf is the heap file
//
// It returns:
//   - shrunk which is the number of bytes cut from the file
//   - err which is an i/o error from truncating the heap file
func (F *FreeList) ShrinkTrailingGaps(rf storage.RecordFile) (shrunk int64, err error) {
	fileSize, err := storage.FileSize(rf)
	if err != nil {
		return
	}

	for {
		last, ok := F.Last()
		if !ok || last.End() != fileSize {
			return
		}

		err = rf.Truncate(last.Offset)
		if err != nil {
			err = bherr.IOErrorf(err, "truncate heap file to %d", last.Offset)
			return
		}
		F.Remove(last.Offset)

		shrunk += fileSize - last.Offset
		fileSize = last.Offset
	}
}

// mergeGaps - Fuses second into first, which must directly precede it. The length field of second is zeroed
// and first gets the combined size in both the heap file and the free list.
func (F *FreeList) mergeGaps(rf storage.RecordFile, first, second model.Gap) (merged model.Gap, err error) {
	if registered, ok := F.Get(first.Offset); !ok || registered.Size != first.Size {
		err = errors.AssertionFailedf("gap at %d size %d is not registered", first.Offset, first.Size)
		return
	}
	if _, ok := F.Remove(second.Offset); !ok {
		err = errors.AssertionFailedf("gap at %d size %d is not registered", second.Offset, second.Size)
		return
	}

	merged = model.Gap{Offset: first.Offset, Size: first.Size + int32(conf.LengthFieldBytes) + second.Size}

	err = storage.WriteLength(rf, second.Offset, 0)
	if err != nil {
		return
	}
	err = storage.WriteLength(rf, merged.Offset, merged.Size)
	if err != nil {
		return
	}

	err = F.Insert(merged)

	return
}

// fits - Returns true if the two gaps merged still have a size the length field can hold
func fits(first, second model.Gap) bool {
	return int64(first.Size)+conf.LengthFieldBytes+int64(second.Size) <= conf.MaxRecordLength
}
