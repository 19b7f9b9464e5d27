package freelist

import (
	"github.com/cockroachdb/errors"
	"github.com/google/btree"
	"github.com/gostonefire/blobheap/internal/conf"
	"github.com/gostonefire/blobheap/internal/model"
)

// treeDegree - Degree of the B-tree holding the gaps
const treeDegree = 16

// FreeList - Represents the free records of a heap file, ordered by their offset in the file.
// It is the only register of gaps, the largest gap and exact fit searches walk it in offset order.
type FreeList struct {
	tree       *btree.BTreeG[model.Gap]
	totalBytes int64
}

// New - Returns a pointer to a new, empty FreeList instance
func New() *FreeList {
	return &FreeList{
		tree: btree.NewG(treeDegree, func(a, b model.Gap) bool { return a.Offset < b.Offset }),
	}
}

// Insert - Registers a gap, replacing any gap registered at the same offset
//   - gap is the free record to register
//
// It returns:
//   - err which is an assertion failure if the gap would overlap a neighbouring gap
func (F *FreeList) Insert(gap model.Gap) (err error) {
	if prev, ok := F.Before(gap.Offset); ok && prev.End() > gap.Offset {
		err = errors.AssertionFailedf("gap at %d size %d overlaps previous gap at %d size %d", gap.Offset, gap.Size, prev.Offset, prev.Size)
		return
	}
	if next, ok := F.after(gap.Offset); ok && gap.End() > next.Offset {
		err = errors.AssertionFailedf("gap at %d size %d overlaps next gap at %d size %d", gap.Offset, gap.Size, next.Offset, next.Size)
		return
	}

	if old, replaced := F.tree.ReplaceOrInsert(gap); replaced {
		F.totalBytes -= footprint(old)
	}
	F.totalBytes += footprint(gap)

	return
}

// Remove - Drops the gap registered at offset
//
// It returns:
//   - gap which is the dropped gap
//   - ok which is false if no gap was registered at offset
func (F *FreeList) Remove(offset int64) (gap model.Gap, ok bool) {
	gap, ok = F.tree.Delete(model.Gap{Offset: offset})
	if ok {
		F.totalBytes -= footprint(gap)
	}

	return
}

// Get - Returns the gap registered at offset, if any
func (F *FreeList) Get(offset int64) (gap model.Gap, ok bool) {
	return F.tree.Get(model.Gap{Offset: offset})
}

// Len - Returns the number of registered gaps
func (F *FreeList) Len() int {
	return F.tree.Len()
}

// TotalBytes - Returns the number of file bytes held by gaps, length fields included
func (F *FreeList) TotalBytes() int64 {
	return F.totalBytes
}

// Largest - Returns the gap with the largest size. Among gaps of equal size the one with the lowest offset wins.
func (F *FreeList) Largest() (gap model.Gap, ok bool) {
	F.tree.Ascend(func(g model.Gap) bool {
		if !ok || g.Size > gap.Size {
			gap, ok = g, true
		}
		return true
	})

	return
}

// ExactFit - Returns the gap with the lowest offset whose size equals size
func (F *FreeList) ExactFit(size int32) (gap model.Gap, ok bool) {
	F.tree.Ascend(func(g model.Gap) bool {
		if g.Size == size {
			gap, ok = g, true
			return false
		}
		return true
	})

	return
}

// Before - Returns the nearest gap that starts strictly before offset
func (F *FreeList) Before(offset int64) (gap model.Gap, ok bool) {
	F.tree.DescendLessOrEqual(model.Gap{Offset: offset}, func(g model.Gap) bool {
		if g.Offset == offset {
			return true
		}
		gap, ok = g, true
		return false
	})

	return
}

// after - Returns the nearest gap that starts strictly after offset
func (F *FreeList) after(offset int64) (gap model.Gap, ok bool) {
	F.tree.AscendGreaterOrEqual(model.Gap{Offset: offset}, func(g model.Gap) bool {
		if g.Offset == offset {
			return true
		}
		gap, ok = g, true
		return false
	})

	return
}

// Last - Returns the gap with the highest offset
func (F *FreeList) Last() (gap model.Gap, ok bool) {
	return F.tree.Max()
}

// Gaps - Returns all gaps in offset order
func (F *FreeList) Gaps() (gaps []model.Gap) {
	gaps = make([]model.Gap, 0, F.tree.Len())
	F.tree.Ascend(func(g model.Gap) bool {
		gaps = append(gaps, g)
		return true
	})

	return
}

// Clear - Drops all gaps
func (F *FreeList) Clear() {
	F.tree.Clear(false)
	F.totalBytes = 0
}

// footprint - Returns the number of file bytes a gap occupies
func footprint(gap model.Gap) int64 {
	return conf.LengthFieldBytes + int64(gap.Size)
}
