package netstack

import (
	"bytes"
	"testing"
	"time"
)

func TestReassemblyTable_OutOfOrderFragmentsReassemble(t *testing.T) {
	// Property: "Reassembly correctness" (spec.md §8 universal invariant 9)
	// and end-to-end scenario "Fragmented IPv4" (§8 scenario 5).
	rt := NewReassemblyTable()
	now := time.Now()
	key := func(mf bool, offset int) IPv4Header {
		return IPv4Header{Src: IPv4{1, 1, 1, 1}, Dst: IPv4{2, 2, 2, 2}, Proto: ProtoUDP, Ident: 7, MF: mf, FragOffset: uint16(offset / 8)}
	}

	part1 := bytes.Repeat([]byte{0xAA}, 1000)
	part2 := bytes.Repeat([]byte{0xBB}, 1000)
	part3 := bytes.Repeat([]byte{0xCC}, 1000)

	// Arrive out of order: 3, 1, 2.
	if _, done := rt.Insert(key(false, 2000), part3, now); done {
		t.Fatal("reassembly completed early")
	}
	if _, done := rt.Insert(key(true, 0), part1, now); done {
		t.Fatal("reassembly completed early")
	}
	full, done := rt.Insert(key(true, 1000), part2, now)
	if !done {
		t.Fatal("reassembly did not complete once all fragments arrived")
	}

	want := append(append(append([]byte{}, part1...), part2...), part3...)
	if !bytes.Equal(full, want) {
		t.Error("reassembled payload does not equal fragments concatenated in offset order")
	}
}

func TestReassemblyTable_ExpiresIncompleteEntries(t *testing.T) {
	rt := NewReassemblyTable()
	now := time.Now()
	hdr := IPv4Header{Src: IPv4{1, 1, 1, 1}, Dst: IPv4{2, 2, 2, 2}, Proto: ProtoUDP, Ident: 1, MF: true}

	rt.Insert(hdr, []byte{1, 2, 3}, now)
	if rt.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", rt.Pending())
	}

	dropped := rt.ExpireOlderThan(now.Add(ReassemblyTimeout + time.Second))
	if dropped != 1 {
		t.Errorf("ExpireOlderThan() dropped %d, want 1", dropped)
	}
	if rt.Pending() != 0 {
		t.Errorf("Pending() after expiry = %d, want 0", rt.Pending())
	}
}
