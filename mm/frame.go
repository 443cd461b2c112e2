package mm

import (
	"sync"
	"sync/atomic"

	kerrors "nanokernel/errors"
)

// PageSize is the physical frame size.
const PageSize = 4096

// Frame is a physical memory frame tracked by the FrameAllocator.
type Frame struct {
	Addr      uint64
	Allocated bool
	refCount  atomic.Uint64
}

// RefCount returns the frame's current reference count.
func (f *Frame) RefCount() uint64 {
	return f.refCount.Load()
}

// FrameAllocator tracks physical frames over a fixed-size region of
// physical memory, allocating whole frames and refcounting shared ones.
type FrameAllocator struct {
	mu         sync.Mutex
	frames     map[uint64]*Frame
	order      []uint64 // ascending addr order, for first-fit scans
	totalCount int
	freeCount  int
}

// NewFrameAllocator creates a FrameAllocator over totalMemory bytes,
// partitioned into PageSize frames.
func NewFrameAllocator(totalMemory uint64) *FrameAllocator {
	count := int(totalMemory / PageSize)
	fa := &FrameAllocator{
		frames: make(map[uint64]*Frame, count),
		order:  make([]uint64, 0, count),
	}
	for i := 0; i < count; i++ {
		addr := uint64(i) * PageSize
		fa.frames[addr] = &Frame{Addr: addr}
		fa.order = append(fa.order, addr)
	}
	fa.totalCount = count
	fa.freeCount = count
	return fa
}

// TotalFrames returns the total number of frames managed.
func (fa *FrameAllocator) TotalFrames() int {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.totalCount
}

// FreeFrames returns the number of unallocated frames.
func (fa *FrameAllocator) FreeFrames() int {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.freeCount
}

// AllocatedFrames returns the number of allocated frames.
func (fa *FrameAllocator) AllocatedFrames() int {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.totalCount - fa.freeCount
}

// AllocFrame reserves the first free frame, first-fit, and returns its
// physical address with a reference count of one.
func (fa *FrameAllocator) AllocFrame() (uint64, error) {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	for _, addr := range fa.order {
		frame := fa.frames[addr]
		if !frame.Allocated {
			frame.Allocated = true
			frame.refCount.Store(1)
			fa.freeCount--
			return addr, nil
		}
	}
	return 0, kerrors.Wrap(kerrors.ErrOutOfMemory, kerrors.ErrKindOutOfMemory, "alloc_frame")
}

// AllocFrames reserves count frames, rolling back any partial allocation
// on failure.
func (fa *FrameAllocator) AllocFrames(count int) ([]uint64, error) {
	addrs := make([]uint64, 0, count)
	for i := 0; i < count; i++ {
		addr, err := fa.AllocFrame()
		if err != nil {
			for _, a := range addrs {
				fa.FreeFrame(a)
			}
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// RetainFrame increments a frame's reference count for sharing (e.g.
// copy-on-write mappings) and returns the new count.
func (fa *FrameAllocator) RetainFrame(addr uint64) (uint64, error) {
	fa.mu.Lock()
	frame, ok := fa.frames[addr]
	fa.mu.Unlock()
	if !ok {
		return 0, kerrors.Wrap(kerrors.ErrFrameRefUnderflow, kerrors.ErrKindMemory, "retain_frame")
	}
	return frame.refCount.Add(1), nil
}

// FreeFrame decrements a frame's reference count, releasing it back to the
// free pool only when the count reaches zero.
func (fa *FrameAllocator) FreeFrame(addr uint64) error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	frame, ok := fa.frames[addr]
	if !ok {
		return kerrors.Wrap(kerrors.ErrFrameRefUnderflow, kerrors.ErrKindMemory, "free_frame")
	}

	current := frame.refCount.Load()
	if current == 0 {
		return kerrors.Wrap(kerrors.ErrFrameRefUnderflow, kerrors.ErrKindMemory, "free_frame")
	}

	if frame.refCount.Add(^uint64(0)) == 0 {
		frame.Allocated = false
		fa.freeCount++
	}
	return nil
}

// FrameSnapshot is a point-in-time copy of a frame's bookkeeping state.
type FrameSnapshot struct {
	Addr      uint64
	Allocated bool
	RefCount  uint64
}

// FrameInfo returns a snapshot of a frame's bookkeeping state, if tracked.
func (fa *FrameAllocator) FrameInfo(addr uint64) (FrameSnapshot, bool) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	frame, ok := fa.frames[addr]
	if !ok {
		return FrameSnapshot{}, false
	}
	return FrameSnapshot{Addr: frame.Addr, Allocated: frame.Allocated, RefCount: frame.refCount.Load()}, true
}
