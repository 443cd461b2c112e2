package sched

import (
	"golang.org/x/sys/unix"

	kerrors "nanokernel/errors"
)

// AffinityMask is the scheduler's CPU-affinity representation: a 1024-bit
// CPU set (spec.md §4.4), backed by golang.org/x/sys/unix.CPUSet, the same
// fixed-size bitmask type Linux uses for sched_getaffinity/sched_setaffinity
// (grounded on the teacher's linux/namespace.go use of raw Linux bit-flag
// types for kernel resource sets, and
// original_source/kernel/src/posix/realtime.rs's CpuSet).
type AffinityMask struct {
	set unix.CPUSet
}

// MaxCPUs is the width of the affinity bitmask (spec.md §4.4: "a
// 1024-bit CPU set"), matching unix.CPUSet's fixed _CPU_SETSIZE.
const MaxCPUs = 1024

// NewAffinityMask returns a mask with every CPU set (no restriction).
func NewAffinityMask() *AffinityMask {
	m := &AffinityMask{}
	m.set.Zero()
	for cpu := 0; cpu < MaxCPUs; cpu++ {
		m.set.Set(cpu)
	}
	return m
}

// NewEmptyAffinityMask returns a mask with no CPUs set.
func NewEmptyAffinityMask() *AffinityMask {
	m := &AffinityMask{}
	m.set.Zero()
	return m
}

// Set marks cpu as eligible.
func (m *AffinityMask) Set(cpu int) {
	m.set.Set(cpu)
}

// Clear marks cpu as ineligible.
func (m *AffinityMask) Clear(cpu int) {
	m.set.Clear(cpu)
}

// IsSet reports whether cpu is eligible under this mask.
func (m *AffinityMask) IsSet(cpu int) bool {
	return m.set.IsSet(cpu)
}

// Count returns how many CPUs are eligible.
func (m *AffinityMask) Count() int {
	return m.set.Count()
}

// Validate rejects an affinity mask with no CPUs set (spec.md §4.4: "An
// affinity with no CPUs is rejected").
func (m *AffinityMask) Validate() error {
	if m.Count() == 0 {
		return kerrors.Wrap(kerrors.ErrEmptyCPUSet, kerrors.ErrKindScheduler, "validate_affinity")
	}
	return nil
}

// Clone returns an independent copy of the mask.
func (m *AffinityMask) Clone() *AffinityMask {
	c := &AffinityMask{}
	c.set.Zero()
	for cpu := 0; cpu < MaxCPUs; cpu++ {
		if m.set.IsSet(cpu) {
			c.set.Set(cpu)
		}
	}
	return c
}
