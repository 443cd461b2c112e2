package netstack

import (
	"testing"
	"time"
)

func TestProcessArp_RequestForOurIPYieldsReply(t *testing.T) {
	iface := NewInterface(0, MacAddr{0, 1, 2, 3, 4, 5}, IPv4{10, 0, 0, 1}, IPv4{255, 255, 255, 0}, 1500)
	iface.SetUp(true)

	req := EncodeArp(ArpFrame{
		Op: ArpRequest,
		SenderHW: MacAddr{1, 1, 1, 1, 1, 1}, SenderIP: IPv4{10, 0, 0, 2},
		TargetIP: IPv4{10, 0, 0, 1},
	})

	res := ProcessArp(iface, req, time.Now())
	if res.Emit == nil {
		t.Fatal("ProcessArp() Emit = nil, want a synthesised reply")
	}
	reply, ok := DecodeArp(res.Emit.Bytes)
	if !ok || reply.Op != ArpReply {
		t.Fatalf("reply = %+v, want an ARP reply", reply)
	}
	if reply.TargetIP != (IPv4{10, 0, 0, 2}) {
		t.Errorf("reply.TargetIP = %v, want the original sender", reply.TargetIP)
	}
}

func TestProcessArp_RequestForOtherIPNoReply(t *testing.T) {
	iface := NewInterface(0, MacAddr{}, IPv4{10, 0, 0, 1}, IPv4{255, 255, 255, 0}, 1500)
	req := EncodeArp(ArpFrame{Op: ArpRequest, TargetIP: IPv4{10, 0, 0, 99}})

	res := ProcessArp(iface, req, time.Now())
	if res.Emit != nil {
		t.Error("ProcessArp() emitted a reply for an IP that isn't ours")
	}
}

func TestProcessArp_ReplyUpdatesCache(t *testing.T) {
	iface := NewInterface(0, MacAddr{}, IPv4{10, 0, 0, 1}, IPv4{255, 255, 255, 0}, 1500)
	now := time.Now()
	reply := EncodeArp(ArpFrame{
		Op: ArpReply, SenderHW: MacAddr{9, 9, 9, 9, 9, 9}, SenderIP: IPv4{10, 0, 0, 5},
	})

	ProcessArp(iface, reply, now)

	mac, ok := iface.ArpLookup(IPv4{10, 0, 0, 5}, now)
	if !ok || mac != (MacAddr{9, 9, 9, 9, 9, 9}) {
		t.Errorf("ArpLookup() = (%v, %v), want the learned MAC", mac, ok)
	}
}
