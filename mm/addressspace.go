package mm

import (
	"sort"
	"sync"
	"sync/atomic"

	kerrors "nanokernel/errors"
)

// Protection is the region permission lattice: a bitmask of read, write,
// execute, and user-accessible bits, mirroring the flag-bit bookkeeping
// namespace and capability tables use elsewhere in this codebase.
type Protection uint8

const (
	ProtRead Protection = 1 << iota
	ProtWrite
	ProtExec
	ProtUser
)

// Named protection combinations matching common kernel/user region kinds.
var (
	ProtKernelReadOnly  = ProtRead
	ProtKernelReadWrite = ProtRead | ProtWrite
	ProtKernelCode      = ProtRead | ProtExec
	ProtUserReadOnly    = ProtRead | ProtUser
	ProtUserReadWrite   = ProtRead | ProtWrite | ProtUser
	ProtUserCode        = ProtRead | ProtExec | ProtUser
)

// Has reports whether all bits in want are set.
func (p Protection) Has(want Protection) bool {
	return p&want == want
}

// Region flags, independent of the protection lattice.
const (
	RegionAnonymous uint32 = 1 << iota
	RegionFileBacked
)

// Region describes a single mapped range within an address space.
type Region struct {
	Start      uint64
	Size       uint64
	Protection Protection
	Backing    *uint64 // physical frame address, nil if not yet mapped
	Flags      uint32
}

// End returns the address one past the last byte in the region.
func (r Region) End() uint64 {
	return r.Start + r.Size
}

// Contains reports whether addr falls within the region.
func (r Region) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End()
}

func (r Region) overlaps(other Region) bool {
	return !(r.End() <= other.Start || r.Start >= other.End())
}

// TLBInvalidator is notified when mappings change so a real platform layer
// can shoot down stale translations. A no-op implementation is used when
// no hardware backing exists.
type TLBInvalidator interface {
	InvalidateRange(asid uint32, start, size uint64)
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateRange(uint32, uint64, uint64) {}

// AddressSpace is a single virtual address space: an ordered set of
// non-overlapping regions plus a reference count for sharing between
// tasks (e.g. threads within a process).
type AddressSpace struct {
	mu       sync.Mutex
	id       uint32
	regions  []Region // kept sorted by Start
	refCount atomic.Uint64
}

// ID returns the address space identifier.
func (as *AddressSpace) ID() uint32 {
	return as.id
}

// IncRef increments the address space's reference count.
func (as *AddressSpace) IncRef() uint64 {
	return as.refCount.Add(1)
}

// DecRef decrements the address space's reference count.
func (as *AddressSpace) DecRef() uint64 {
	return as.refCount.Add(^uint64(0))
}

// AddRegion inserts a new region, rejecting it if it overlaps an existing
// one.
func (as *AddressSpace) AddRegion(r Region) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	for _, existing := range as.regions {
		if r.overlaps(existing) {
			return kerrors.WrapWithDetail(kerrors.ErrAddressSpaceOverlap, kerrors.ErrKindAddressSpace,
				"add_region", "new region overlaps an existing mapping")
		}
	}

	as.regions = append(as.regions, r)
	sort.Slice(as.regions, func(i, j int) bool { return as.regions[i].Start < as.regions[j].Start })
	return nil
}

// RemoveRegion removes the region starting at start, if any.
func (as *AddressSpace) RemoveRegion(start uint64) (Region, bool) {
	as.mu.Lock()
	defer as.mu.Unlock()

	for i, r := range as.regions {
		if r.Start == start {
			as.regions = append(as.regions[:i], as.regions[i+1:]...)
			return r, true
		}
	}
	return Region{}, false
}

// FindRegion returns the region containing addr, if any.
func (as *AddressSpace) FindRegion(addr uint64) (Region, bool) {
	as.mu.Lock()
	defer as.mu.Unlock()

	for _, r := range as.regions {
		if r.Contains(addr) {
			return r, true
		}
	}
	return Region{}, false
}

// CheckAccess validates that addr may be accessed with the given
// protection bits, returning ErrProtectionViolation otherwise.
func (as *AddressSpace) CheckAccess(addr uint64, want Protection) error {
	r, ok := as.FindRegion(addr)
	if !ok {
		return kerrors.Wrap(kerrors.ErrRegionNotFound, kerrors.ErrKindAddressSpace, "check_access")
	}
	if !r.Protection.Has(want) {
		return kerrors.Wrap(kerrors.ErrProtectionViolation, kerrors.ErrKindAddressSpace, "check_access")
	}
	return nil
}

// Regions returns a snapshot of all regions, ordered by start address.
func (as *AddressSpace) Regions() []Region {
	as.mu.Lock()
	defer as.mu.Unlock()
	out := make([]Region, len(as.regions))
	copy(out, as.regions)
	return out
}

// AddressSpaceManager creates, destroys, and maps memory within address
// spaces, notifying a TLBInvalidator of changes.
type AddressSpaceManager struct {
	mu      sync.Mutex
	spaces  map[uint32]*AddressSpace
	nextID  atomic.Uint32
	invalid TLBInvalidator
}

// NewAddressSpaceManager creates a manager with the given TLB invalidation
// hook. Pass nil to use a no-op hook.
func NewAddressSpaceManager(invalidator TLBInvalidator) *AddressSpaceManager {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	m := &AddressSpaceManager{
		spaces:  make(map[uint32]*AddressSpace),
		invalid: invalidator,
	}
	m.nextID.Store(1)
	return m
}

// CreateAddressSpace allocates a new, empty address space and returns its id.
func (m *AddressSpaceManager) CreateAddressSpace() uint32 {
	id := m.nextID.Add(1) - 1

	as := &AddressSpace{id: id}
	as.refCount.Store(1)

	m.mu.Lock()
	m.spaces[id] = as
	m.mu.Unlock()

	return id
}

// DestroyAddressSpace removes an address space and invalidates its entire
// mapped range.
func (m *AddressSpaceManager) DestroyAddressSpace(id uint32) error {
	m.mu.Lock()
	as, ok := m.spaces[id]
	if ok {
		delete(m.spaces, id)
	}
	m.mu.Unlock()

	if !ok {
		return kerrors.Wrap(kerrors.ErrRegionNotFound, kerrors.ErrKindAddressSpace, "destroy_address_space")
	}

	for _, r := range as.Regions() {
		m.invalid.InvalidateRange(id, r.Start, r.Size)
	}
	return nil
}

// Get returns the address space for id, if it exists.
func (m *AddressSpaceManager) Get(id uint32) (*AddressSpace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, ok := m.spaces[id]
	return as, ok
}

// MapMemory adds a region to the address space named by id.
func (m *AddressSpaceManager) MapMemory(id uint32, start, size uint64, prot Protection) error {
	as, ok := m.Get(id)
	if !ok {
		return kerrors.Wrap(kerrors.ErrRegionNotFound, kerrors.ErrKindAddressSpace, "map_memory")
	}
	return as.AddRegion(Region{Start: start, Size: size, Protection: prot, Flags: RegionAnonymous})
}

// UnmapMemory removes the region starting at start from the address space
// named by id and invalidates its range.
func (m *AddressSpaceManager) UnmapMemory(id uint32, start uint64) error {
	as, ok := m.Get(id)
	if !ok {
		return kerrors.Wrap(kerrors.ErrRegionNotFound, kerrors.ErrKindAddressSpace, "unmap_memory")
	}

	r, removed := as.RemoveRegion(start)
	if !removed {
		return kerrors.Wrap(kerrors.ErrRegionNotFound, kerrors.ErrKindAddressSpace, "unmap_memory")
	}

	m.invalid.InvalidateRange(id, r.Start, r.Size)
	return nil
}
