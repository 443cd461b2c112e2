package boot

import kerrors "nanokernel/errors"

// firstMegabyte is the x86_64 low-memory region the kernel must load above.
const firstMegabyte = 1024 * 1024

// KernelInfo describes where the kernel image was loaded and where
// execution should resume.
type KernelInfo struct {
	LoadAddr   uint64
	Size       uint64
	EntryPoint uint64
}

// End returns the address one past the kernel image.
func (k KernelInfo) End() uint64 {
	return k.LoadAddr + k.Size
}

// NewKernelInfo validates and constructs a KernelInfo. entry_point must
// fall within [load_addr, load_addr+size), and load_addr must sit above
// the first megabyte on x86_64.
func NewKernelInfo(loadAddr, size, entryPoint uint64) (KernelInfo, error) {
	k := KernelInfo{LoadAddr: loadAddr, Size: size, EntryPoint: entryPoint}

	if loadAddr < firstMegabyte {
		return KernelInfo{}, kerrors.WrapWithDetail(kerrors.ErrBootValidation, kerrors.ErrKindBootValidation,
			"new_kernel_info", "load_addr must be above the first megabyte")
	}
	if entryPoint < loadAddr || entryPoint >= k.End() {
		return KernelInfo{}, kerrors.WrapWithDetail(kerrors.ErrBootValidation, kerrors.ErrKindBootValidation,
			"new_kernel_info", "entry_point must fall within [load_addr, load_addr+size)")
	}

	return k, nil
}

// KernelLoader locates and loads the kernel image against a validated
// memory map, returning its placement.
type KernelLoader interface {
	LoadKernel(memoryMap []MemoryRegion) (KernelInfo, error)
}

// FixedKernelLoader always places the kernel at a fixed address range,
// standing in for a real image-loading step (ELF parsing, relocation).
type FixedKernelLoader struct {
	LoadAddr   uint64
	Size       uint64
	EntryPoint uint64
}

// LoadKernel returns the loader's configured placement, after checking it
// fits within some Available region of the supplied memory map.
func (l FixedKernelLoader) LoadKernel(memoryMap []MemoryRegion) (KernelInfo, error) {
	k, err := NewKernelInfo(l.LoadAddr, l.Size, l.EntryPoint)
	if err != nil {
		return KernelInfo{}, err
	}

	for _, r := range memoryMap {
		if r.Type == RegionAvailable && k.LoadAddr >= r.Start && k.End() <= r.End() {
			return k, nil
		}
	}
	return KernelInfo{}, kerrors.WrapWithDetail(kerrors.ErrBootValidation, kerrors.ErrKindBootValidation,
		"load_kernel", "kernel image does not fit within any available memory region")
}

// DefaultKernelLoader places the kernel at 0x100000, sized 0x500000, with
// the entry point at the load address; matching the "Happy boot" scenario.
func DefaultKernelLoader() FixedKernelLoader {
	return FixedKernelLoader{LoadAddr: 0x100000, Size: 0x500000, EntryPoint: 0x100000}
}
