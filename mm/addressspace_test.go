package mm

import "testing"

func TestProtection_Has(t *testing.T) {
	p := ProtUserReadWrite
	if !p.Has(ProtRead) || !p.Has(ProtWrite) {
		t.Error("ProtUserReadWrite should have read and write bits")
	}
	if p.Has(ProtExec) {
		t.Error("ProtUserReadWrite should not have exec bit")
	}
}

func TestRegion_ContainsAndEnd(t *testing.T) {
	r := Region{Start: 0x1000, Size: 4096, Protection: ProtUserReadOnly}

	if !r.Contains(0x1000) {
		t.Error("region should contain its start address")
	}
	if !r.Contains(0x1000 + 1000) {
		t.Error("region should contain an address within its range")
	}
	if r.Contains(0x1000 - 1) {
		t.Error("region should not contain an address before its start")
	}
	if r.Contains(0x1000 + 4096) {
		t.Error("region should not contain its end address (exclusive)")
	}
	if r.End() != 0x1000+4096 {
		t.Errorf("End() = %#x, want %#x", r.End(), 0x1000+4096)
	}
}

func TestAddressSpaceManager_CreateAndMap(t *testing.T) {
	m := NewAddressSpaceManager(nil)
	id := m.CreateAddressSpace()

	if err := m.MapMemory(id, 0x1000, 4096, ProtUserReadWrite); err != nil {
		t.Fatalf("MapMemory failed: %v", err)
	}

	as, ok := m.Get(id)
	if !ok {
		t.Fatal("expected address space to exist")
	}
	region, ok := as.FindRegion(0x1500)
	if !ok {
		t.Fatal("expected to find region containing 0x1500")
	}
	if region.Start != 0x1000 {
		t.Errorf("region.Start = %#x, want %#x", region.Start, 0x1000)
	}
}

func TestAddressSpaceManager_RejectsOverlap(t *testing.T) {
	m := NewAddressSpaceManager(nil)
	id := m.CreateAddressSpace()

	if err := m.MapMemory(id, 0x1000, 4096, ProtUserReadWrite); err != nil {
		t.Fatalf("first MapMemory failed: %v", err)
	}

	err := m.MapMemory(id, 0x1800, 4096, ProtUserReadWrite)
	if err == nil {
		t.Fatal("expected overlap error for regions that share range")
	}
}

func TestAddressSpaceManager_Unmap(t *testing.T) {
	m := NewAddressSpaceManager(nil)
	id := m.CreateAddressSpace()

	if err := m.MapMemory(id, 0x1000, 4096, ProtUserReadWrite); err != nil {
		t.Fatalf("MapMemory failed: %v", err)
	}
	if err := m.UnmapMemory(id, 0x1000); err != nil {
		t.Fatalf("UnmapMemory failed: %v", err)
	}

	as, _ := m.Get(id)
	if _, ok := as.FindRegion(0x1500); ok {
		t.Error("region should be gone after unmap")
	}
}

func TestAddressSpaceManager_UnmapNotFound(t *testing.T) {
	m := NewAddressSpaceManager(nil)
	id := m.CreateAddressSpace()

	if err := m.UnmapMemory(id, 0x9999); err == nil {
		t.Fatal("expected error unmapping a non-existent region")
	}
}

func TestAddressSpaceManager_CheckAccessViolation(t *testing.T) {
	m := NewAddressSpaceManager(nil)
	id := m.CreateAddressSpace()
	as, _ := m.Get(id)

	if err := as.AddRegion(Region{Start: 0x2000, Size: 4096, Protection: ProtUserReadOnly}); err != nil {
		t.Fatalf("AddRegion failed: %v", err)
	}

	if err := as.CheckAccess(0x2000, ProtRead); err != nil {
		t.Errorf("read access should be allowed: %v", err)
	}
	if err := as.CheckAccess(0x2000, ProtWrite); err == nil {
		t.Error("write access to a read-only region should be denied")
	}
	if err := as.CheckAccess(0x9000, ProtRead); err == nil {
		t.Error("access to an unmapped address should fail with region not found")
	}
}

type recordingInvalidator struct {
	calls []struct {
		asid  uint32
		start uint64
		size  uint64
	}
}

func (r *recordingInvalidator) InvalidateRange(asid uint32, start, size uint64) {
	r.calls = append(r.calls, struct {
		asid  uint32
		start uint64
		size  uint64
	}{asid, start, size})
}

func TestAddressSpaceManager_InvalidatesOnUnmapAndDestroy(t *testing.T) {
	inv := &recordingInvalidator{}
	m := NewAddressSpaceManager(inv)
	id := m.CreateAddressSpace()

	if err := m.MapMemory(id, 0x1000, 4096, ProtUserReadWrite); err != nil {
		t.Fatalf("MapMemory failed: %v", err)
	}
	if err := m.UnmapMemory(id, 0x1000); err != nil {
		t.Fatalf("UnmapMemory failed: %v", err)
	}
	if len(inv.calls) != 1 {
		t.Fatalf("expected one invalidation after unmap, got %d", len(inv.calls))
	}

	if err := m.MapMemory(id, 0x2000, 4096, ProtUserReadWrite); err != nil {
		t.Fatalf("MapMemory failed: %v", err)
	}
	if err := m.DestroyAddressSpace(id); err != nil {
		t.Fatalf("DestroyAddressSpace failed: %v", err)
	}
	if len(inv.calls) != 2 {
		t.Fatalf("expected a second invalidation after destroy, got %d", len(inv.calls))
	}
}
