package boot

import (
	"sort"

	kerrors "nanokernel/errors"
)

// RegionType classifies a range in the firmware-reported memory map.
type RegionType uint32

const (
	RegionAvailable RegionType = iota
	RegionReserved
	RegionACPI
	RegionNVS
	RegionBadMemory
)

// String returns a human-readable region type name.
func (t RegionType) String() string {
	switch t {
	case RegionAvailable:
		return "available"
	case RegionReserved:
		return "reserved"
	case RegionACPI:
		return "acpi"
	case RegionNVS:
		return "nvs"
	case RegionBadMemory:
		return "bad_memory"
	default:
		return "unknown"
	}
}

// MemoryRegion is one entry of the firmware-reported memory map.
type MemoryRegion struct {
	Start uint64
	Size  uint64
	Type  RegionType
}

// End returns the address one past the region's last byte.
func (r MemoryRegion) End() uint64 {
	return r.Start + r.Size
}

// pageAligned reports whether addr is aligned to a 4 KiB page.
func pageAligned(addr uint64) bool {
	return addr%4096 == 0
}

// CPUFeatures records the detected CPU feature bits relevant to boot
// prerequisite validation.
type CPUFeatures struct {
	LongMode bool // x86_64 64-bit mode
	NX       bool // no-execute page bit
	SSE2     bool
	APIC     bool
}

// GraphicsCapabilities describes the detected display hardware.
type GraphicsCapabilities struct {
	Supported      bool
	MaxWidth       uint32
	MaxHeight      uint32
	SupportedModes []GraphicsMode
}

// HardwareInfo is the complete result of hardware detection.
type HardwareInfo struct {
	CPUFeatures CPUFeatures
	MemoryMap   []MemoryRegion
	Graphics    GraphicsCapabilities
}

// TotalAvailable sums the size of all Available regions in the memory map.
func (h HardwareInfo) TotalAvailable() uint64 {
	var total uint64
	for _, r := range h.MemoryMap {
		if r.Type == RegionAvailable {
			total += r.Size
		}
	}
	return total
}

// ValidateMemoryMap checks the invariants spec.md §3 places on a memory
// map: regions do not overlap, and Available regions are page-aligned.
func ValidateMemoryMap(regions []MemoryRegion) error {
	sorted := make([]MemoryRegion, len(regions))
	copy(sorted, regions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i, r := range sorted {
		if r.Type == RegionAvailable && (!pageAligned(r.Start) || !pageAligned(r.Size)) {
			return kerrors.WrapWithDetail(kerrors.ErrBootValidation, kerrors.ErrKindBootValidation,
				"validate_memory_map", "available region is not page-aligned")
		}
		if i > 0 && sorted[i-1].End() > r.Start {
			return kerrors.WrapWithDetail(kerrors.ErrBootValidation, kerrors.ErrKindBootValidation,
				"validate_memory_map", "memory regions overlap")
		}
	}
	return nil
}

// HardwareDetectionService abstracts platform probing so the orchestrator
// does not depend on a concrete firmware interface.
type HardwareDetectionService interface {
	DetectHardware() (HardwareInfo, error)
}

// SimulatedHardwareDetector returns a fixed HardwareInfo, standing in for
// real firmware/CPUID probing. Tests and the CLI construct one directly
// with the memory map and features they want to exercise.
type SimulatedHardwareDetector struct {
	Info HardwareInfo
}

// DetectHardware returns the configured HardwareInfo.
func (d SimulatedHardwareDetector) DetectHardware() (HardwareInfo, error) {
	return d.Info, nil
}

// DefaultHardwareInfo is a minimal, prerequisite-satisfying hardware
// profile used when no detector is supplied.
func DefaultHardwareInfo() HardwareInfo {
	return HardwareInfo{
		CPUFeatures: CPUFeatures{LongMode: true, NX: true, SSE2: true, APIC: true},
		MemoryMap: []MemoryRegion{
			{Start: 0x100000, Size: 127 * 1024 * 1024, Type: RegionAvailable},
		},
		Graphics: GraphicsCapabilities{Supported: false},
	}
}
