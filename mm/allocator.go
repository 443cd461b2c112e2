// Package mm implements the kernel's memory subsystems: the boot-time
// dual-level allocator, the physical frame allocator, and the address-space
// manager.
package mm

import (
	"sync"
	"sync/atomic"

	kerrors "nanokernel/errors"
)

// Boot heap configuration.
const (
	// HeapSize is the size of the boot-time arena.
	HeapSize = 4 * 1024 * 1024
	// HeapAlign is the alignment, in bytes, applied to every allocation.
	HeapAlign = 64
	// SmallBlockThreshold is the largest size served from the segregated
	// free list; anything bigger always comes from the bump region.
	SmallBlockThreshold = 256
	// MaxFreeListEntries bounds the total number of tracked free blocks.
	MaxFreeListEntries = 1024
)

// sizeClasses partitions small allocations into buckets. Bucket i holds
// free blocks sized in (sizeClasses[i], sizeClasses[i+1]]; the last bucket
// also holds coalesced blocks larger than SmallBlockThreshold.
var sizeClasses = [...]uint64{0, 16, 32, 64, 128, 256}

const numBuckets = len(sizeClasses) - 1

// bucketIndex returns the smallest bucket that can satisfy size.
func bucketIndex(size uint64) int {
	for i := 1; i < len(sizeClasses); i++ {
		if size <= sizeClasses[i] {
			return i - 1
		}
	}
	return numBuckets - 1
}

func alignUp(addr, align uint64) uint64 {
	return (addr + align - 1) &^ (align - 1)
}

// freeBlock is an entry in a segregated free list bucket.
type freeBlock struct {
	offset uint64
	size   uint64
}

// Allocator is the dual-level allocator used during boot: a lock-free bump
// allocator serves large or first-time allocations, and a mutex-guarded
// segregated free list serves reuse of small freed blocks, with adjacent
// blocks coalesced on free. All offsets are relative to a fixed arena and
// aligned to HeapAlign.
type Allocator struct {
	arenaSize uint64
	offset    atomic.Uint64

	mu           sync.Mutex
	freeList     [numBuckets][]freeBlock
	freeListSize int
}

// NewAllocator creates an allocator over an arena of HeapSize bytes.
func NewAllocator() *Allocator {
	return &Allocator{arenaSize: HeapSize}
}

// Allocated returns the number of bytes claimed from the bump region.
func (a *Allocator) Allocated() uint64 {
	return a.offset.Load()
}

// Free returns the number of bytes remaining in the bump region. It does
// not count bytes held in the free list, matching the original allocator's
// definition of "free" as "available for new bump growth".
func (a *Allocator) Free() uint64 {
	return a.arenaSize - a.Allocated()
}

// Utilization returns the fraction of the arena claimed from the bump
// region, as a percentage.
func (a *Allocator) Utilization() float64 {
	return float64(a.Allocated()) / float64(a.arenaSize) * 100.0
}

// Alloc reserves size bytes aligned to HeapAlign and returns the offset of
// the reserved block within the arena. Small allocations are served from
// the segregated free list first; otherwise it falls back to the bump
// allocator.
func (a *Allocator) Alloc(size uint64) (uint64, error) {
	if size == 0 {
		return 0, kerrors.Wrap(kerrors.ErrInvalidAlignment, kerrors.ErrKindMemory, "alloc")
	}

	if size <= SmallBlockThreshold {
		if offset, ok := a.allocFromFreeList(size); ok {
			return offset, nil
		}
	}

	for {
		current := a.offset.Load()
		aligned := alignUp(current, HeapAlign)
		newOffset := aligned + size

		if newOffset > a.arenaSize {
			return 0, kerrors.Wrap(kerrors.ErrOutOfMemory, kerrors.ErrKindOutOfMemory, "alloc")
		}

		if a.offset.CompareAndSwap(current, newOffset) {
			return aligned, nil
		}
	}
}

// allocFromFreeList searches buckets from the smallest that can fit size
// upward, taking the smallest suitable block in the first non-empty bucket
// it finds.
func (a *Allocator) allocFromFreeList(size uint64) (uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for b := bucketIndex(size); b < numBuckets; b++ {
		bucket := a.freeList[b]
		for i, blk := range bucket {
			if blk.size >= size {
				a.freeList[b] = append(bucket[:i], bucket[i+1:]...)
				a.freeListSize--
				return blk.offset, true
			}
		}
	}
	return 0, false
}

// Dealloc returns a previously allocated block to the free list. Blocks
// larger than SmallBlockThreshold are discarded: the bump allocator has no
// way to reclaim bump-region space. Adjacent free blocks are coalesced
// before being reinserted.
func (a *Allocator) Dealloc(offset, size uint64) {
	if size == 0 || size > SmallBlockThreshold {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.freeListSize >= MaxFreeListEntries {
		return
	}

	mergedOffset, mergedSize := offset, size
	for b := 0; b < numBuckets; b++ {
		bucket := a.freeList[b]
		kept := bucket[:0]
		for _, blk := range bucket {
			switch {
			case blk.offset+blk.size == mergedOffset:
				mergedOffset = blk.offset
				mergedSize += blk.size
				a.freeListSize--
			case mergedOffset+mergedSize == blk.offset:
				mergedSize += blk.size
				a.freeListSize--
			default:
				kept = append(kept, blk)
			}
		}
		a.freeList[b] = kept
	}

	target := bucketIndex(mergedSize)
	a.insertSortedLocked(target, freeBlock{offset: mergedOffset, size: mergedSize})
	a.freeListSize++
}

// insertSortedLocked inserts blk into bucket b keeping the bucket sorted by
// ascending size. Callers must hold a.mu.
func (a *Allocator) insertSortedLocked(b int, blk freeBlock) {
	bucket := a.freeList[b]
	i := 0
	for i < len(bucket) && bucket[i].size < blk.size {
		i++
	}
	bucket = append(bucket, freeBlock{})
	copy(bucket[i+1:], bucket[i:])
	bucket[i] = blk
	a.freeList[b] = bucket
}

// FreeListSize returns the number of blocks currently tracked in the
// segregated free list, for diagnostics and tests.
func (a *Allocator) FreeListSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.freeListSize
}
